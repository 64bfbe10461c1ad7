// Package store is the record store: SQL over the lost, found, match and
// archive collections plus accounts and settings.
//
// Getters return (nil, nil) when a row does not exist. Mutations return
// model errors: ErrValidation before touching the database, ErrNotFound and
// ErrConflict for state problems, ErrDependency for driver failures.
package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/erazemk/najdeno/internal/model"
)

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Filter narrows list queries. Zero fields are ignored.
type Filter struct {
	Category string
	Status   string
	From     model.Date // inclusive
	To       model.Date // inclusive
	Before   model.Date // exclusive
	OwnerID  *int64     // lost reports only
	Order    string     // "newest", "oldest", or creation order when empty
}

// Orders accepted by Filter.Order.
const (
	OrderNewest = "newest"
	OrderOldest = "oldest"
)

// where renders f as a WHERE clause over the given date column.
func (f Filter) where(dateCol string) (string, []any) {
	clause := ` WHERE 1=1`
	var args []any

	if f.Category != "" {
		clause += ` AND category = ?`
		args = append(args, f.Category)
	}
	if f.Status != "" {
		clause += ` AND status = ?`
		args = append(args, f.Status)
	}
	if !f.From.IsZero() {
		clause += ` AND ` + dateCol + ` >= ?`
		args = append(args, f.From)
	}
	if !f.To.IsZero() {
		clause += ` AND ` + dateCol + ` <= ?`
		args = append(args, f.To)
	}
	if !f.Before.IsZero() {
		clause += ` AND ` + dateCol + ` < ?`
		args = append(args, f.Before)
	}
	if f.OwnerID != nil {
		clause += ` AND owner_id = ?`
		args = append(args, *f.OwnerID)
	}

	switch f.Order {
	case OrderNewest:
		clause += ` ORDER BY ` + dateCol + ` DESC, rowid DESC`
	case OrderOldest:
		clause += ` ORDER BY ` + dateCol + `, rowid`
	default:
		clause += ` ORDER BY rowid`
	}
	return clause, args
}

// ValidOrder reports whether o is accepted by Filter.Order.
func ValidOrder(o string) bool {
	return o == "" || o == OrderNewest || o == OrderOldest
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	}
	return se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(se.Error(), "UNIQUE")
}
