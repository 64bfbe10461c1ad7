package store

import (
	"context"
	"database/sql"

	"github.com/erazemk/najdeno/internal/model"
)

// nextID advances the counter for kind and returns the formatted ID. It must
// run in the transaction that inserts the row, so a rollback releases the value
// together with the row. Counters never move backwards, so IDs of deleted rows
// are not reused.
func nextID(ctx context.Context, tx *sql.Tx, kind string) (string, error) {
	var n int64
	err := tx.QueryRowContext(ctx,
		`INSERT INTO counters (kind, value) VALUES (?, 1)
		 ON CONFLICT (kind) DO UPDATE SET value = value + 1
		 RETURNING value`, kind,
	).Scan(&n)
	if err != nil {
		return "", model.Dependency("advancing "+kind+" counter", err)
	}
	return model.FormatID(model.PrefixFor(kind), n), nil
}

// CounterValue returns the last value handed out for kind, or 0.
func CounterValue(ctx context.Context, db *sql.DB, kind string) (int64, error) {
	var n int64
	err := db.QueryRowContext(ctx, `SELECT value FROM counters WHERE kind = ?`, kind).Scan(&n)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, model.Dependency("reading "+kind+" counter", err)
	}
	return n, nil
}
