package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrReferenced is returned by guarded deletes when the row is still
// referenced and must not be removed.
var ErrReferenced = errors.New("row is still referenced")

const (
	pgForeignKeyViolation = "23503"
	pgUniqueViolation     = "23505"
)

func isPgErr(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}

func isForeignKeyViolation(err error) bool { return isPgErr(err, pgForeignKeyViolation) }

func isUniqueViolation(err error) bool { return isPgErr(err, pgUniqueViolation) }
