package core

import (
	"context"
	"database/sql"
)

type (
	DBExecutor interface {
		Exec(query string, args ...interface{}) (sql.Result, error)
		ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
		Query(query string, args ...interface{}) (*sql.Rows, error)
		QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
		QueryRow(query string, args ...interface{}) *sql.Row
		QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	}

	DB interface {
		DBExecutor

		Begin() (*sql.Tx, error)
		BeginTx(context.Context, *sql.TxOptions) (*sql.Tx, error)
	}

	DBTransactor interface {
		DBExecutor

		Commit() error
		Rollback() error
	}
)

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

// ReadOnlyTx runs fn inside a read-only, repeatable-read transaction so that
// every query fn makes sees the same snapshot.
// Non-transactional DBs (eg. the in-memory store) simply run fn.
func ReadOnlyTx(ctx context.Context, db DB, fn func(exec DBExecutor) error) error {
	return runTx(ctx, db, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}, fn)
}

// Transaction runs fn inside a read-write transaction, committed when fn succeeds.
// Non-transactional DBs simply run fn.
func Transaction(ctx context.Context, db DB, fn func(exec DBExecutor) error) error {
	return runTx(ctx, db, nil, fn)
}

func runTx(ctx context.Context, db DB, opts *sql.TxOptions, fn func(exec DBExecutor) error) (err error) {
	if db == nil {
		return fn(nil)
	}
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()
	return fn(tx)
}
