package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// WithTx starts a transaction, runs fn, and commits if fn returns nil.
// If fn returns an error, the transaction is rolled back and that error is
// returned unchanged so callers can still match sentinels with errors.Is.
//
//	err := storage.WithTx(ctx, db, &sql.TxOptions{Isolation: sql.LevelSerializable}, func(tx *sql.Tx) error {
//	    // use tx.ExecContext / tx.QueryRowContext ...
//	    return nil
//	})
func WithTx(ctx context.Context, db *sql.DB, opts *sql.TxOptions, fn func(*sql.Tx) error) (err error) {
	if db == nil {
		return errors.New("storage: DB is nil")
	}
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("storage: begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		if e := tx.Commit(); e != nil {
			err = fmt.Errorf("storage: commit: %w", e)
		}
	}()
	err = fn(tx)
	return
}
