package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/erazemk/najdeno/internal/model"
)

// ClaimResult lists what a claim moved into the archive.
type ClaimResult struct {
	Found   model.ArchivedRecord  `json:"found"`
	Lost    *model.ArchivedRecord `json:"lost,omitempty"`
	MatchID string                `json:"match_id,omitempty"`
}

// LostRecordID returns the ID of the archived lost report, if any.
func (r *ClaimResult) LostRecordID() string {
	if r.Lost == nil {
		return ""
	}
	return r.Lost.RecordID
}

// ClaimFound hands a found record to a claimant. The record is copied to the
// archive as Claimed, and so is its lost report when the record is matched or
// lostID names a Pending report; the match and active rows are then deleted,
// all in one transaction.
func ClaimFound(ctx context.Context, db *sql.DB, foundID, lostID string, c model.Claimant, now time.Time) (*ClaimResult, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, model.Dependency("beginning transaction", err)
	}
	defer tx.Rollback()

	found, err := getFound(ctx, tx, foundID)
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, model.NotFound("found record", foundID)
	}

	m, err := getMatch(ctx, tx, `found_id = ?`, foundID)
	if err != nil {
		return nil, err
	}

	var lost *model.LostReport
	switch {
	case m != nil:
		if lostID != "" && lostID != m.LostID {
			return nil, model.Validation("lost_id", "%s is matched with %s, not %s", foundID, m.LostID, lostID)
		}
		if lost, err = getLost(ctx, tx, m.LostID); err != nil {
			return nil, err
		}
		if lost == nil {
			return nil, model.NotFound("lost report", m.LostID)
		}
	case lostID != "":
		if lost, err = getLost(ctx, tx, lostID); err != nil {
			return nil, err
		}
		if lost == nil {
			return nil, model.NotFound("lost report", lostID)
		}
		if lost.Status != model.StatusPending {
			return nil, model.Conflict("claiming", "%s is %s with another record", lostID, lost.Status)
		}
	}

	now = now.UTC()
	found.Status = model.StatusClaimed
	result := &ClaimResult{}
	rec, err := insertArchive(ctx, tx, model.KindFound, found.ID, model.StatusClaimed, found.Category, found, &c, now)
	if err != nil {
		return nil, err
	}
	result.Found = *rec

	if lost != nil {
		lost.Status = model.StatusClaimed
		rec, err := insertArchive(ctx, tx, model.KindLost, lost.ID, model.StatusClaimed, lost.Category, lost, &c, now)
		if err != nil {
			return nil, err
		}
		result.Lost = rec
	}

	if m != nil {
		if _, err := tx.ExecContext(ctx, `DELETE FROM matches WHERE id = ?`, m.ID); err != nil {
			return nil, model.Dependency("deleting match", err)
		}
		result.MatchID = m.ID
	}
	if lost != nil {
		if _, err := tx.ExecContext(ctx, `DELETE FROM lost_reports WHERE id = ?`, lost.ID); err != nil {
			return nil, model.Dependency("deleting lost report", err)
		}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM found_records WHERE id = ?`, found.ID); err != nil {
		return nil, model.Dependency("deleting found record", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, model.Dependency("committing claim", err)
	}
	return result, nil
}

// ArchiveStaleLost moves a Pending lost report dated before cutoff into the
// archive as Archived. The status and date are re-checked inside the
// transaction; a report that changed since it was listed yields ErrConflict.
func ArchiveStaleLost(ctx context.Context, db *sql.DB, id string, cutoff model.Date, now time.Time) (*model.ArchivedRecord, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, model.Dependency("beginning transaction", err)
	}
	defer tx.Rollback()

	r, err := getLost(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, model.NotFound("lost report", id)
	}
	if r.Status != model.StatusPending || !r.DateLost.Before(cutoff) {
		return nil, model.Conflict("archiving", "%s is %s, dated %s", id, r.Status, r.DateLost)
	}

	r.Status = model.StatusArchived
	rec, err := insertArchive(ctx, tx, model.KindLost, id, model.StatusArchived, r.Category, r, nil, now.UTC())
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM lost_reports WHERE id = ? AND status = 'Pending'`, id); err != nil {
		return nil, model.Dependency("deleting lost report", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, model.Dependency("committing archive move", err)
	}
	return rec, nil
}

// ArchiveStaleFound is ArchiveStaleLost for found records.
func ArchiveStaleFound(ctx context.Context, db *sql.DB, id string, cutoff model.Date, now time.Time) (*model.ArchivedRecord, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, model.Dependency("beginning transaction", err)
	}
	defer tx.Rollback()

	r, err := getFound(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, model.NotFound("found record", id)
	}
	if r.Status != model.StatusPending || !r.DateFound.Before(cutoff) {
		return nil, model.Conflict("archiving", "%s is %s, dated %s", id, r.Status, r.DateFound)
	}

	r.Status = model.StatusArchived
	rec, err := insertArchive(ctx, tx, model.KindFound, id, model.StatusArchived, r.Category, r, nil, now.UTC())
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM found_records WHERE id = ? AND status = 'Pending'`, id); err != nil {
		return nil, model.Dependency("deleting found record", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, model.Dependency("committing archive move", err)
	}
	return rec, nil
}

// insertArchive writes the archive copy. It always runs before the delete of
// the active row in the same transaction.
func insertArchive(ctx context.Context, tx *sql.Tx, kind, recordID, status, category string, snapshot any, c *model.Claimant, now time.Time) (*model.ArchivedRecord, error) {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("encoding %s snapshot: %w", kind, err)
	}

	var claimedByID, claimedByName string
	if c != nil {
		claimedByID, claimedByName = c.ID, c.Name
	}

	result, err := tx.ExecContext(ctx,
		`INSERT INTO archive (kind, record_id, status, category, snapshot, claimed_by_id, claimed_by_name, archived_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		kind, recordID, status, category, string(data), claimedByID, claimedByName, now,
	)
	if isUniqueViolation(err) {
		return nil, model.Conflict("archiving", "%s %s is already archived", kind, recordID)
	}
	if err != nil {
		return nil, model.Dependency("writing archive copy", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, model.Dependency("getting archive id", err)
	}

	rec := &model.ArchivedRecord{
		ID:            id,
		Kind:          kind,
		RecordID:      recordID,
		Status:        status,
		Category:      category,
		ClaimedByID:   claimedByID,
		ClaimedByName: claimedByName,
		ArchivedAt:    now,
	}
	switch v := snapshot.(type) {
	case *model.LostReport:
		rec.Lost = v
	case *model.FoundRecord:
		rec.Found = v
	}
	return rec, nil
}

// ArchiveFilter narrows ListArchive. Zero fields are ignored.
type ArchiveFilter struct {
	Kind     string
	Status   string
	Category string
}

const archiveColumns = `id, kind, record_id, status, category, snapshot, claimed_by_id, claimed_by_name, archived_at`

func scanArchived(row interface{ Scan(...any) error }) (*model.ArchivedRecord, error) {
	rec := &model.ArchivedRecord{}
	var snapshot string
	if err := row.Scan(&rec.ID, &rec.Kind, &rec.RecordID, &rec.Status, &rec.Category, &snapshot,
		&rec.ClaimedByID, &rec.ClaimedByName, &rec.ArchivedAt); err != nil {
		return nil, err
	}
	switch rec.Kind {
	case model.KindLost:
		rec.Lost = &model.LostReport{}
		if err := json.Unmarshal([]byte(snapshot), rec.Lost); err != nil {
			return nil, fmt.Errorf("decoding archived %s: %w", rec.RecordID, err)
		}
	case model.KindFound:
		rec.Found = &model.FoundRecord{}
		if err := json.Unmarshal([]byte(snapshot), rec.Found); err != nil {
			return nil, fmt.Errorf("decoding archived %s: %w", rec.RecordID, err)
		}
	}
	return rec, nil
}

// GetArchived returns the archive copy of a record.
func GetArchived(ctx context.Context, db *sql.DB, kind, recordID string) (*model.ArchivedRecord, error) {
	rec, err := scanArchived(db.QueryRowContext(ctx,
		`SELECT `+archiveColumns+` FROM archive WHERE kind = ? AND record_id = ?`, kind, recordID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, model.Dependency("getting archived record", err)
	}
	return rec, nil
}

// ListArchive returns archived records, oldest first.
func ListArchive(ctx context.Context, db *sql.DB, f ArchiveFilter) ([]model.ArchivedRecord, error) {
	query := `SELECT ` + archiveColumns + ` FROM archive WHERE 1=1`
	var args []any
	if f.Kind != "" {
		query += ` AND kind = ?`
		args = append(args, f.Kind)
	}
	if f.Status != "" {
		query += ` AND status = ?`
		args = append(args, f.Status)
	}
	if f.Category != "" {
		query += ` AND category = ?`
		args = append(args, f.Category)
	}
	query += ` ORDER BY id`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, model.Dependency("listing archive", err)
	}
	defer rows.Close()

	var records []model.ArchivedRecord
	for rows.Next() {
		rec, err := scanArchived(rows)
		if err != nil {
			return nil, model.Dependency("scanning archived record", err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, model.Dependency("listing archive", err)
	}
	return records, nil
}
