package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/erazemk/najdeno/internal/model"
)

// ErrPairMatched marks the conflict raised when the exact (lost, found) pair
// already has a match. It is carried alongside ErrConflict.
var ErrPairMatched = errors.New("pair already matched")

func pairMatched(lostID, foundID, matchID string) error {
	msg := fmt.Sprintf("%s and %s already matched", lostID, foundID)
	if matchID != "" {
		msg += " as " + matchID
	}
	return &model.Error{Kind: model.ErrConflict, Op: "creating match", Msg: msg, Err: ErrPairMatched}
}

// CreateMatch atomically pairs a Pending lost report with a Pending found
// record: it inserts the match under the next M#### ID and flips both sides to
// Matched. An existing match for the pair, or either side no longer Pending,
// yields ErrConflict; only the former also matches ErrPairMatched.
func CreateMatch(ctx context.Context, db *sql.DB, lostID, foundID string, now time.Time) (*model.Match, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, model.Dependency("beginning transaction", err)
	}
	defer tx.Rollback()

	var existing string
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM matches WHERE lost_id = ? AND found_id = ?`, lostID, foundID,
	).Scan(&existing)
	if err == nil {
		return nil, pairMatched(lostID, foundID, existing)
	}
	if err != sql.ErrNoRows {
		return nil, model.Dependency("checking existing match", err)
	}

	lost, err := getLost(ctx, tx, lostID)
	if err != nil {
		return nil, err
	}
	if lost == nil {
		return nil, model.NotFound("lost report", lostID)
	}
	found, err := getFound(ctx, tx, foundID)
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, model.NotFound("found record", foundID)
	}
	if lost.Status != model.StatusPending || found.Status != model.StatusPending {
		return nil, model.Conflict("creating match", "%s is %s and %s is %s", lostID, lost.Status, foundID, found.Status)
	}

	id, err := nextID(ctx, tx, model.KindMatch)
	if err != nil {
		return nil, err
	}

	lost.Status = model.StatusMatched
	found.Status = model.StatusMatched
	m := &model.Match{
		ID:        id,
		LostID:    lostID,
		FoundID:   foundID,
		Lost:      *lost,
		Found:     *found,
		MatchedAt: now.UTC(),
	}

	lostSnap, err := json.Marshal(m.Lost)
	if err != nil {
		return nil, fmt.Errorf("encoding lost snapshot: %w", err)
	}
	foundSnap, err := json.Marshal(m.Found)
	if err != nil {
		return nil, fmt.Errorf("encoding found snapshot: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO matches (id, lost_id, found_id, lost_snapshot, found_snapshot, matched_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id, lostID, foundID, string(lostSnap), string(foundSnap), m.MatchedAt,
	)
	if isUniqueViolation(err) {
		return nil, pairMatched(lostID, foundID, "")
	}
	if err != nil {
		return nil, model.Dependency("creating match", err)
	}

	if err := setStatus(ctx, tx, "lost_reports", lostID, model.StatusPending, model.StatusMatched); err != nil {
		return nil, err
	}
	if err := setStatus(ctx, tx, "found_records", foundID, model.StatusPending, model.StatusMatched); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, model.Dependency("committing match", err)
	}
	return m, nil
}

// setStatus moves one row from status from to status to, failing with
// ErrConflict when the row is not in status from.
func setStatus(ctx context.Context, tx *sql.Tx, table, id, from, to string) error {
	result, err := tx.ExecContext(ctx,
		`UPDATE `+table+` SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND status = ?`,
		to, id, from,
	)
	if err != nil {
		return model.Dependency("updating "+table+" status", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return model.Dependency("updating "+table+" status", err)
	}
	if n != 1 {
		return model.Conflict("updating status", "%s is no longer %s", id, from)
	}
	return nil
}

const matchColumns = `id, lost_id, found_id, lost_snapshot, found_snapshot, matched_at`

func scanMatch(row interface{ Scan(...any) error }) (*model.Match, error) {
	m := &model.Match{}
	var lostSnap, foundSnap string
	if err := row.Scan(&m.ID, &m.LostID, &m.FoundID, &lostSnap, &foundSnap, &m.MatchedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(lostSnap), &m.Lost); err != nil {
		return nil, fmt.Errorf("decoding lost snapshot of %s: %w", m.ID, err)
	}
	if err := json.Unmarshal([]byte(foundSnap), &m.Found); err != nil {
		return nil, fmt.Errorf("decoding found snapshot of %s: %w", m.ID, err)
	}
	return m, nil
}

// GetMatch returns a match by ID.
func GetMatch(ctx context.Context, db *sql.DB, id string) (*model.Match, error) {
	return getMatch(ctx, db, `id = ?`, id)
}

func getMatch(ctx context.Context, q querier, cond string, arg any) (*model.Match, error) {
	m, err := scanMatch(q.QueryRowContext(ctx, `SELECT `+matchColumns+` FROM matches WHERE `+cond, arg))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, model.Dependency("getting match", err)
	}
	return m, nil
}

// ListMatches returns all active matches in creation order.
func ListMatches(ctx context.Context, db *sql.DB) ([]model.Match, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+matchColumns+` FROM matches ORDER BY rowid`)
	if err != nil {
		return nil, model.Dependency("listing matches", err)
	}
	defer rows.Close()

	var matches []model.Match
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, model.Dependency("scanning match", err)
		}
		matches = append(matches, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, model.Dependency("listing matches", err)
	}
	return matches, nil
}

// CancelMatch deletes a match and returns both sides to Pending. A missing
// match yields ErrNotFound.
func CancelMatch(ctx context.Context, db *sql.DB, id string) (*model.Match, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, model.Dependency("beginning transaction", err)
	}
	defer tx.Rollback()

	m, err := getMatch(ctx, tx, `id = ?`, id)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, model.NotFound("match", id)
	}

	if err := setStatus(ctx, tx, "lost_reports", m.LostID, model.StatusMatched, model.StatusPending); err != nil {
		return nil, err
	}
	if err := setStatus(ctx, tx, "found_records", m.FoundID, model.StatusMatched, model.StatusPending); err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM matches WHERE id = ?`, id); err != nil {
		return nil, model.Dependency("deleting match", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, model.Dependency("committing match cancellation", err)
	}
	return m, nil
}
