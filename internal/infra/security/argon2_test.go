package security

import (
	"strings"
	"testing"
)

func TestHashPassword_ProducesVerifiableHash(t *testing.T) {
	encoded, err := HashPassword("Abcd1234")
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}

	if !strings.HasPrefix(encoded, "argon2id$") {
		t.Fatalf("unexpected hash format: %s", encoded)
	}
	if strings.Contains(encoded, "Abcd1234") {
		t.Fatalf("hash contains the plain password")
	}

	ok, err := VerifyPassword("Abcd1234", encoded)
	if err != nil {
		t.Fatalf("VerifyPassword returned error: %v", err)
	}
	if !ok {
		t.Fatalf("expected password to verify against its own hash")
	}

	ok, err = VerifyPassword("Abcd12345", encoded)
	if err != nil {
		t.Fatalf("VerifyPassword returned error: %v", err)
	}
	if ok {
		t.Fatalf("wrong password verified")
	}
}

func TestHashPassword_SaltedPerCall(t *testing.T) {
	first, err := HashPassword("Abcd1234")
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}
	second, err := HashPassword("Abcd1234")
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}
	if first == second {
		t.Fatalf("expected distinct hashes for the same password")
	}
}

func TestVerifyPassword_MalformedEncodings(t *testing.T) {
	for _, encoded := range []string{
		"",
		"plaintext",
		"argon2id$v=19$m=65536,t=3,p=4$notbase64!!$x",
		"bcrypt$something",
	} {
		if ok, _ := VerifyPassword("Abcd1234", encoded); ok {
			t.Fatalf("malformed encoding %q verified", encoded)
		}
	}
}
