package utils

import "golang.org/x/crypto/bcrypt"

// VerifyPassword safely compares bcrypt hash and plain password.
// Hashes are produced by the municipality's back-office system; the
// portal only verifies them at login.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
