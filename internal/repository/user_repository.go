package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/civicworks/facility-reservation/internal/booking"
	"github.com/civicworks/facility-reservation/internal/model"
)

// UserRepo provides read access to the 'users' table. Account
// creation and identity verification happen in the municipality's
// back-office system; the portal only authenticates existing accounts.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userCols = "id, email, password_hash, full_name, role, is_verified, is_active, created_at, updated_at"

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.scanOne(r.DB.QueryRowContext(ctx,
		"SELECT "+userCols+" FROM users WHERE email=? LIMIT 1", email))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return r.scanOne(r.DB.QueryRowContext(ctx,
		"SELECT "+userCols+" FROM users WHERE id=? LIMIT 1", id))
}

// IsUserVerified reports whether the resident's identity has been
// verified.  It satisfies booking.IdentityVerifier; unknown users
// count as unverified rather than erroring so the auto-approval
// evaluator degrades to manual review.
func (r *UserRepo) IsUserVerified(ctx context.Context, userID uint64) (bool, error) {
	var verified bool
	err := r.DB.QueryRowContext(ctx,
		"SELECT is_verified FROM users WHERE id=? LIMIT 1", userID).Scan(&verified)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return verified, nil
}

func (r *UserRepo) scanOne(row *sql.Row) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FullName, &u.Role,
		&u.IsVerified, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return model.User{}, booking.ErrNotFound
	}
	return u, err
}
