package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/avelar/studio-identity/internal/core/domain"
	"github.com/avelar/studio-identity/internal/repository"
)

const accountsTable = "identity.accounts"

var accountColumns = []string{
	"id",
	"name",
	"email",
	"password_hash",
	"role",
	"is_verified",
	"verification_token_hash",
	"reset_token_hash",
	"reset_token_expires_at",
	"avatar",
	"favorites",
	"created_at",
	"updated_at",
}

// AccountRepository implements port.AccountRepository using PostgreSQL.
type AccountRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewAccountRepository wires a PostgreSQL-backed account repository.
func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{
		pool:    pool,
		exec:    pool,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// WithExecutor returns a repository bound to the supplied executor
// (transaction or mock).
func (r *AccountRepository) WithExecutor(exec pgExecutor) *AccountRepository {
	if exec == nil {
		return r
	}
	return &AccountRepository{pool: r.pool, exec: exec, builder: r.builder}
}

// Create inserts a new account row. The unique index on email is the single
// point of atomicity for duplicate registration; violations surface as
// repository.ErrDuplicateEmail.
func (r *AccountRepository) Create(ctx context.Context, account domain.Account) error {
	stmt, args, err := r.builder.Insert(accountsTable).
		Columns(accountColumns...).
		Values(
			account.ID,
			account.Name,
			account.Email,
			account.PasswordHash,
			account.Role,
			account.IsVerified,
			account.VerificationTokenHash,
			account.ResetTokenHash,
			account.ResetTokenExpiresAt,
			account.Avatar,
			account.Favorites,
			account.CreatedAt,
			account.UpdatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert account sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicateEmail
		}
		return fmt.Errorf("insert account: %w", err)
	}

	return nil
}

// GetByID retrieves an account by identifier.
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	return r.getWhere(ctx, squirrel.Eq{"id": id})
}

// GetByEmail retrieves an account by its normalized email.
func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return r.getWhere(ctx, squirrel.Eq{"email": email})
}

// GetByVerificationTokenHash retrieves the account holding a pending
// verification secret.
func (r *AccountRepository) GetByVerificationTokenHash(ctx context.Context, hash string) (*domain.Account, error) {
	return r.getWhere(ctx, squirrel.Eq{"verification_token_hash": hash})
}

// GetByResetTokenHash retrieves the account holding a pending reset secret.
// Expiry is checked by the caller, not here: an expired hash still matching
// lets the flow distinguish "present but stale" from "unknown".
func (r *AccountRepository) GetByResetTokenHash(ctx context.Context, hash string) (*domain.Account, error) {
	return r.getWhere(ctx, squirrel.Eq{"reset_token_hash": hash})
}

func (r *AccountRepository) getWhere(ctx context.Context, pred any) (*domain.Account, error) {
	stmt, args, err := r.builder.
		Select(accountColumns...).
		From(accountsTable).
		Where(pred).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select account sql: %w", err)
	}

	row := r.exec.QueryRow(ctx, stmt, args...)
	account, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan account: %w", err)
	}

	return account, nil
}

// List returns all accounts ordered by creation time, newest first.
func (r *AccountRepository) List(ctx context.Context) ([]domain.Account, error) {
	stmt, args, err := r.builder.
		Select(accountColumns...).
		From(accountsTable).
		OrderBy("created_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list accounts sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query accounts: %w", err)
	}
	defer rows.Close()

	accounts := make([]domain.Account, 0)
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, *account)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate accounts: %w", err)
	}

	return accounts, nil
}

// UpdateProfile persists name, email, avatar, and the favorites set.
// A changed email hits the same unique index as Create.
func (r *AccountRepository) UpdateProfile(ctx context.Context, account domain.Account) error {
	stmt, args, err := r.builder.Update(accountsTable).
		Set("name", account.Name).
		Set("email", account.Email).
		Set("avatar", account.Avatar).
		Set("favorites", account.Favorites).
		Set("updated_at", account.UpdatedAt).
		Where(squirrel.Eq{"id": account.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update profile sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicateEmail
		}
		return fmt.Errorf("update profile: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// UpdatePassword replaces the stored hash.
func (r *AccountRepository) UpdatePassword(ctx context.Context, id, passwordHash string, changedAt time.Time) error {
	stmt, args, err := r.builder.Update(accountsTable).
		Set("password_hash", passwordHash).
		Set("updated_at", changedAt).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update password sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// UpdateRole transitions the account's role.
func (r *AccountRepository) UpdateRole(ctx context.Context, id string, role domain.Role) error {
	stmt, args, err := r.builder.Update(accountsTable).
		Set("role", role).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update role sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update role: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// MarkVerified flips is_verified and clears the verification hash in one
// statement; the WHERE on the hash column makes consumption single-use even
// under concurrent redemption attempts.
func (r *AccountRepository) MarkVerified(ctx context.Context, id string) error {
	stmt, args, err := r.builder.Update(accountsTable).
		Set("is_verified", true).
		Set("verification_token_hash", nil).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": id}).
		Where(squirrel.NotEq{"verification_token_hash": nil}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build mark verified sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("mark verified: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// SetVerificationToken stores a new verification hash, superseding any
// previous one.
func (r *AccountRepository) SetVerificationToken(ctx context.Context, id, tokenHash string) error {
	stmt, args, err := r.builder.Update(accountsTable).
		Set("verification_token_hash", tokenHash).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build set verification token sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("set verification token: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// SetResetToken stores a new reset hash and expiry, superseding any
// previous pair.
func (r *AccountRepository) SetResetToken(ctx context.Context, id, tokenHash string, expiresAt time.Time) error {
	stmt, args, err := r.builder.Update(accountsTable).
		Set("reset_token_hash", tokenHash).
		Set("reset_token_expires_at", expiresAt).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build set reset token sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("set reset token: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// ClearResetToken removes any pending reset secret.
func (r *AccountRepository) ClearResetToken(ctx context.Context, id string) error {
	stmt, args, err := r.builder.Update(accountsTable).
		Set("reset_token_hash", nil).
		Set("reset_token_expires_at", nil).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build clear reset token sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("clear reset token: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// Delete removes an account row.
func (r *AccountRepository) Delete(ctx context.Context, id string) error {
	stmt, args, err := r.builder.Delete(accountsTable).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete account sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*domain.Account, error) {
	var (
		account          domain.Account
		verificationHash sql.NullString
		resetHash        sql.NullString
		resetExpires     sql.NullTime
		avatar           sql.NullString
	)

	if err := row.Scan(
		&account.ID,
		&account.Name,
		&account.Email,
		&account.PasswordHash,
		&account.Role,
		&account.IsVerified,
		&verificationHash,
		&resetHash,
		&resetExpires,
		&avatar,
		&account.Favorites,
		&account.CreatedAt,
		&account.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if verificationHash.Valid {
		val := verificationHash.String
		account.VerificationTokenHash = &val
	}
	if resetHash.Valid {
		val := resetHash.String
		account.ResetTokenHash = &val
	}
	if resetExpires.Valid {
		val := resetExpires.Time
		account.ResetTokenExpiresAt = &val
	}
	if avatar.Valid {
		account.Avatar = avatar.String
	}

	return &account, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
