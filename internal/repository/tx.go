package repository

import (
	"context"
	"database/sql"
)

type txKey struct{}

// queryer abstracts *sql.DB and *sql.Tx so store methods run the same
// statements inside or outside a transaction.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// withTx runs fn inside a transaction stored in the context.  Nested
// calls reuse the surrounding transaction so a service can compose
// store operations without knowing whether a caller already opened
// one.
func withTx(ctx context.Context, db *sql.DB, fn func(ctx context.Context) error) error {
	if txFromContext(ctx) != nil {
		return fn(ctx)
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	txCtx := context.WithValue(ctx, txKey{}, tx)
	if err := fn(txCtx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func txFromContext(ctx context.Context) *sql.Tx {
	tx, _ := ctx.Value(txKey{}).(*sql.Tx)
	return tx
}

// pick returns the transaction from ctx when present, the pool
// otherwise.
func pick(ctx context.Context, db *sql.DB) queryer {
	if tx := txFromContext(ctx); tx != nil {
		return tx
	}
	return db
}
