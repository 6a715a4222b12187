package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type AppConfig struct {
	App       AppSettings       `mapstructure:"app"`
	Postgres  PostgresSettings  `mapstructure:"postgres"`
	Kafka     KafkaSettings     `mapstructure:"kafka"`
	JWT       JWTSettings       `mapstructure:"jwt"`
	Email     EmailSettings     `mapstructure:"email"`
	Password  PasswordSettings  `mapstructure:"password"`
	Telemetry TelemetrySettings `mapstructure:"telemetry"`
	CORS      CORSSettings      `mapstructure:"cors"`
}

type AppSettings struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	// BaseURL is the public client origin embedded in emailed links.
	BaseURL string `mapstructure:"base_url"`
}

type PostgresSettings struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	User              string        `mapstructure:"user"`
	Password          string        `mapstructure:"password"`
	Database          string        `mapstructure:"database"`
	SSLMode           string        `mapstructure:"ssl_mode"`
	MaxConns          int32         `mapstructure:"max_conns"`
	MinConns          int32         `mapstructure:"min_conns"`
	MaxConnLifetime   time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime   time.Duration `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
	Migrate           bool          `mapstructure:"migrate"`
}

// KafkaSettings configures the identity event producer. An empty broker
// list switches the application to the logging stub publisher.
type KafkaSettings struct {
	Brokers     []string `mapstructure:"brokers"`
	TopicPrefix string   `mapstructure:"topic_prefix"`
}

type JWTSettings struct {
	// SigningSecret is the server-held HMAC secret for bearer tokens.
	SigningSecret  string        `mapstructure:"signing_secret"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`
}

// EmailSettings configures transactional mail. With an empty server token
// the application falls back to the logging dev mailer.
type EmailSettings struct {
	PostmarkServerToken  string        `mapstructure:"postmark_server_token"`
	PostmarkAccountToken string        `mapstructure:"postmark_account_token"`
	SenderAddress        string        `mapstructure:"sender_address"`
	SenderName           string        `mapstructure:"sender_name"`
	SendTimeout          time.Duration `mapstructure:"send_timeout"`
}

// PasswordSettings tunes the registration strength policy.
type PasswordSettings struct {
	MinLength int `mapstructure:"min_length"`
	// MinStrengthScore enables the zxcvbn estimator when > 0 (scores 1-4).
	MinStrengthScore int `mapstructure:"min_strength_score"`
	// ResetTokenTTL bounds how long an emailed reset secret stays valid.
	ResetTokenTTL time.Duration `mapstructure:"reset_token_ttl"`
}

type TelemetrySettings struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	ServiceName  string  `mapstructure:"service_name"`
	SamplingRate float64 `mapstructure:"sampling_rate"`
	Enabled      bool    `mapstructure:"enabled"`
}

type CORSSettings struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

func Load() (*AppConfig, error) {
	v := viper.New()

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("STUDIO")

	setDefaults(v)

	if err := bindEnvs(v, []string{
		"app.name",
		"app.env",
		"app.host",
		"app.port",
		"app.base_url",
		"postgres.host",
		"postgres.port",
		"postgres.user",
		"postgres.password",
		"postgres.database",
		"postgres.ssl_mode",
		"postgres.max_conns",
		"postgres.min_conns",
		"postgres.max_conn_lifetime",
		"postgres.max_conn_idle_time",
		"postgres.health_check_period",
		"postgres.migrate",
		"kafka.brokers",
		"kafka.topic_prefix",
		"jwt.signing_secret",
		"jwt.access_token_ttl",
		"email.postmark_server_token",
		"email.postmark_account_token",
		"email.sender_address",
		"email.sender_name",
		"email.send_timeout",
		"password.min_length",
		"password.min_strength_score",
		"password.reset_token_ttl",
		"telemetry.otlp_endpoint",
		"telemetry.service_name",
		"telemetry.sampling_rate",
		"telemetry.enabled",
		"cors.allowed_origins",
	}); err != nil {
		return nil, err
	}

	v.AutomaticEnv()

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.App.Env == "production" && cfg.JWT.SigningSecret == "" {
		return nil, fmt.Errorf("jwt.signing_secret is required in production")
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "studio-identity")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.host", "0.0.0.0")
	v.SetDefault("app.port", 8080)
	v.SetDefault("app.base_url", "http://localhost:3000")

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "studio")
	v.SetDefault("postgres.password", "studio_password")
	v.SetDefault("postgres.database", "studio")
	v.SetDefault("postgres.ssl_mode", "disable")
	v.SetDefault("postgres.max_conns", 10)
	v.SetDefault("postgres.min_conns", 2)
	v.SetDefault("postgres.max_conn_lifetime", "60m")
	v.SetDefault("postgres.max_conn_idle_time", "15m")
	v.SetDefault("postgres.health_check_period", "30s")
	v.SetDefault("postgres.migrate", true)

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic_prefix", "studio")

	v.SetDefault("jwt.signing_secret", "dev-only-signing-secret")
	v.SetDefault("jwt.access_token_ttl", "720h")

	v.SetDefault("email.postmark_server_token", "")
	v.SetDefault("email.postmark_account_token", "")
	v.SetDefault("email.sender_address", "no-reply@studio.local")
	v.SetDefault("email.sender_name", "Practice Studio")
	v.SetDefault("email.send_timeout", "10s")

	v.SetDefault("password.min_length", 8)
	v.SetDefault("password.min_strength_score", 0)
	v.SetDefault("password.reset_token_ttl", "10m")

	v.SetDefault("telemetry.otlp_endpoint", "http://localhost:4318")
	v.SetDefault("telemetry.service_name", "studio-identity")
	v.SetDefault("telemetry.sampling_rate", 1.0)
	v.SetDefault("telemetry.enabled", false)

	v.SetDefault("cors.allowed_origins", []string{"*"})
}

func bindEnvs(v *viper.Viper, keys []string) error {
	for _, key := range keys {
		envKey := strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, "STUDIO_"+envKey, envKey); err != nil {
			return fmt.Errorf("bind env for %s: %w", key, err)
		}
	}
	return nil
}
