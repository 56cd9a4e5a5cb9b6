package model

import "time"

// Role names as stored in the JWT "role" claim and the users.role
// column.  Residents submit reservations; staff approve or deny them;
// admins additionally manage facilities.
const (
	RoleResident = "RESIDENT"
	RoleStaff    = "STAFF"
	RoleAdmin    = "ADMIN"
)

// User represents an account record as stored in the `users` table.
// The json tags are omitted because these structs are used internally
// by the repository layer; handlers define separate response types.
//
// Fields:
//  ID           – primary key identifier.
//  Email        – unique email address.
//  PasswordHash – bcrypt hashed password.
//  FullName     – display name of the account holder.
//  Role         – RESIDENT, STAFF or ADMIN.
//  IsVerified   – whether the resident's identity has been verified by
//                 the municipality; required for auto-approval.
//  IsActive     – whether the account is active.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64    // users.id
	Email        string    // users.email
	PasswordHash string    // users.password_hash
	FullName     string    // users.full_name
	Role         string    // users.role
	IsVerified   bool      // users.is_verified
	IsActive     bool      // users.is_active
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}

// RefreshToken models an entry in the `refresh_tokens` table.  Each
// refresh token belongs to a user and contains metadata for expiry and
// revocation.  The plain token is not stored; only its SHA-256 hash.
//
// Fields:
//  ID        – primary key identifier.
//  UserID    – owner of the token.
//  TokenHash – SHA-256 hex digest of the token value.
//  ExpiresAt – expiration timestamp of the token.
//  RevokedAt – when the token was revoked (null if still active).
//  CreatedAt – timestamp of creation.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    uint64     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}
