package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrUserNotFound is returned by a UserStore for an unknown user.
var ErrUserNotFound = errors.New("auth: user not found")

// UserStore is the persistence the auth core depends on.
type UserStore interface {
	GetByID(ctx context.Context, id int64) (*UserRecord, error)
	FindByLogin(ctx context.Context, login string) (*UserRecord, error)
	// UpdatePasswordHash replaces the hash only if it still equals oldHash
	// and reports whether it did.
	UpdatePasswordHash(ctx context.Context, id int64, oldHash, newHash string) (bool, error)
}

type dbtx interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// PGRepository implements UserStore using PostgreSQL.
type PGRepository struct {
	db dbtx
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{db: pool}
}

const getUserByID = `SELECT id, login, password_hash, role_id FROM users WHERE id = $1`

// GetByID fetches a user by id.
func (r *PGRepository) GetByID(ctx context.Context, id int64) (*UserRecord, error) {
	return r.scanUser(r.db.QueryRow(ctx, getUserByID, id))
}

const getUserByLogin = `SELECT id, login, password_hash, role_id FROM users WHERE login = $1`

// FindByLogin fetches a user by login name.
func (r *PGRepository) FindByLogin(ctx context.Context, login string) (*UserRecord, error) {
	return r.scanUser(r.db.QueryRow(ctx, getUserByLogin, login))
}

const updatePasswordHash = `UPDATE users SET password_hash = $3, updated_at = NOW() WHERE id = $1 AND password_hash = $2`

// UpdatePasswordHash swaps the stored hash when it still matches oldHash.
func (r *PGRepository) UpdatePasswordHash(ctx context.Context, id int64, oldHash, newHash string) (bool, error) {
	tag, err := r.db.Exec(ctx, updatePasswordHash, id, oldHash, newHash)
	if err != nil {
		return false, fmt.Errorf("auth: update password hash: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *PGRepository) scanUser(row pgx.Row) (*UserRecord, error) {
	var (
		u      UserRecord
		roleID int32
	)
	if err := row.Scan(&u.ID, &u.Login, &u.PasswordHash, &roleID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("auth: scan user: %w", err)
	}
	u.RoleID = int(roleID)
	return &u, nil
}

var _ UserStore = (*PGRepository)(nil)
