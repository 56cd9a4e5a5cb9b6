// Package repository implements the persistence layer over MySQL.
// The reservation store returns the booking package's sentinels so the
// engine stays decoupled from SQL details; driver-level errors are
// translated here.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// isDuplicateKey reports whether err is a MySQL duplicate-entry
// violation (error 1062), which backs the reservation slot-bucket
// exclusion constraint.
func isDuplicateKey(err error) bool {
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == 1062
}
