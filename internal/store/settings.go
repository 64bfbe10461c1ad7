package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"time"

	"github.com/erazemk/najdeno/internal/model"
)

// GetJWTSecret returns the token signing secret, generating and storing one on
// first use. INSERT OR IGNORE followed by a read keeps concurrent first starts
// on the same value.
func GetJWTSecret(ctx context.Context, db *sql.DB) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", model.Dependency("generating jwt secret", err)
	}

	_, err := db.ExecContext(ctx,
		`INSERT OR IGNORE INTO settings (key, value) VALUES ('jwt_secret', ?)`,
		hex.EncodeToString(buf),
	)
	if err != nil {
		return "", model.Dependency("storing jwt secret", err)
	}

	secret, ok, err := getSetting(ctx, db, "jwt_secret")
	if err != nil {
		return "", err
	}
	if !ok {
		return "", model.Dependency("reading jwt secret", sql.ErrNoRows)
	}
	return secret, nil
}

// RecordJobRun stores the time a scheduled job last finished.
func RecordJobRun(ctx context.Context, db *sql.DB, job string, at time.Time) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT (key) DO UPDATE SET value = excluded.value`,
		"last_run."+job, at.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return model.Dependency("recording "+job+" run", err)
	}
	return nil
}

// LastJobRun returns the time job last finished, or the zero time if it never
// ran.
func LastJobRun(ctx context.Context, db *sql.DB, job string) (time.Time, error) {
	v, ok, err := getSetting(ctx, db, "last_run."+job)
	if err != nil || !ok {
		return time.Time{}, err
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, model.Dependency("parsing "+job+" run time", err)
	}
	return t, nil
}

func getSetting(ctx context.Context, db *sql.DB, key string) (string, bool, error) {
	var v string
	err := db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&v)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, model.Dependency("reading setting "+key, err)
	}
	return v, true, nil
}
