package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"identity-registration/internal/user/domain"
)

// pgUniqueViolation is the SQLSTATE for unique_violation.
const pgUniqueViolation = "23505"

const selectUserColumns = `id, email, password_hash, first_name, last_name, roles, attributes, active, confirmed_at, created_at, updated_at`

type PostgresDatastore struct {
	db *sql.DB
}

// NewPostgresDatastore returns a user datastore that uses the given db for persistence.
func NewPostgresDatastore(db *sql.DB) *PostgresDatastore {
	return &PostgresDatastore{db: db}
}

// Begin opens a transaction. The returned unit of work must be committed or rolled back.
func (r *PostgresDatastore) Begin(ctx context.Context) (UserStore, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &postgresUnit{tx: tx}, nil
}

// GetByID returns the user for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresDatastore) GetByID(ctx context.Context, id string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+selectUserColumns+` FROM users WHERE id = $1`, id)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return u, err
}

// GetByEmail returns the user with the given email, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresDatastore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+selectUserColumns+` FROM users WHERE email = $1`, email)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return u, err
}

// Confirm sets confirmed_at when it is still NULL. An already confirmed user is left unchanged.
func (r *PostgresDatastore) Confirm(ctx context.Context, id string, at time.Time) error {
	var exists bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET confirmed_at = $2, updated_at = $2 WHERE id = $1 AND confirmed_at IS NULL`,
		id, at)
	return err
}

type postgresUnit struct {
	tx *sql.Tx
}

// CreateUser inserts the user inside the unit's transaction.
func (u *postgresUnit) CreateUser(ctx context.Context, nu NewUser) (*domain.User, error) {
	rec, err := newRecord(nu, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	roles, err := json.Marshal(rec.Roles)
	if err != nil {
		return nil, err
	}
	attrs := []byte("{}")
	if len(rec.Attributes) > 0 {
		if attrs, err = json.Marshal(rec.Attributes); err != nil {
			return nil, err
		}
	}
	var first, last sql.NullString
	if rec.Name != nil {
		first = sql.NullString{String: rec.Name.First, Valid: true}
		last = sql.NullString{String: rec.Name.Last, Valid: true}
	}
	const query = `INSERT INTO users (id, email, password_hash, first_name, last_name, roles, attributes, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err = u.tx.ExecContext(ctx, query,
		rec.ID, rec.Email, rec.PasswordHash, first, last, string(roles), string(attrs), rec.Active, rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}
	return rec, nil
}

func (u *postgresUnit) Commit() error {
	if err := u.tx.Commit(); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateEmail
		}
		return err
	}
	return nil
}

func (u *postgresUnit) Rollback() error {
	if err := u.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	var (
		u           domain.User
		first, last sql.NullString
		roles       []byte
		attrs       []byte
		confirmedAt sql.NullTime
	)
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &first, &last, &roles, &attrs, &u.Active, &confirmedAt, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	if first.Valid || last.Valid {
		u.Name = &domain.Name{First: first.String, Last: last.String}
	}
	if err := json.Unmarshal(roles, &u.Roles); err != nil {
		return nil, err
	}
	if len(attrs) > 0 {
		if err := json.Unmarshal(attrs, &u.Attributes); err != nil {
			return nil, err
		}
		if len(u.Attributes) == 0 {
			u.Attributes = nil
		}
	}
	if confirmedAt.Valid {
		t := confirmedAt.Time
		u.ConfirmedAt = &t
	}
	return &u, nil
}
