package store

import (
	"context"
	"database/sql"

	"github.com/erazemk/najdeno/internal/model"
)

const lostColumns = `id, item_name, category, description, location, date_lost, status,
	notify_address, owner_id, created_at, updated_at`

func scanLost(row interface{ Scan(...any) error }) (*model.LostReport, error) {
	r := &model.LostReport{}
	err := row.Scan(&r.ID, &r.ItemName, &r.Category, &r.Description, &r.Location, &r.DateLost,
		&r.Status, &r.NotifyAddress, &r.OwnerID, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// CreateLostReport validates in and stores it as a Pending report with the
// next L#### ID.
func CreateLostReport(ctx context.Context, db *sql.DB, in model.LostInput, ownerID *int64) (*model.LostReport, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, model.Dependency("beginning transaction", err)
	}
	defer tx.Rollback()

	id, err := nextID(ctx, tx, model.KindLost)
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO lost_reports (id, item_name, category, description, location, date_lost, notify_address, owner_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, in.ItemName, in.Category, in.Description, in.Location, in.DateLost, in.NotifyAddress, ownerID,
	)
	if err != nil {
		return nil, model.Dependency("creating lost report", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, model.Dependency("committing lost report", err)
	}

	return GetLostReport(ctx, db, id)
}

// GetLostReport returns a lost report by ID.
func GetLostReport(ctx context.Context, db *sql.DB, id string) (*model.LostReport, error) {
	return getLost(ctx, db, id)
}

func getLost(ctx context.Context, q querier, id string) (*model.LostReport, error) {
	r, err := scanLost(q.QueryRowContext(ctx,
		`SELECT `+lostColumns+` FROM lost_reports WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, model.Dependency("getting lost report", err)
	}
	return r, nil
}

// ListLostReports returns lost reports matching f.
func ListLostReports(ctx context.Context, db *sql.DB, f Filter) ([]model.LostReport, error) {
	where, args := f.where("date_lost")
	rows, err := db.QueryContext(ctx, `SELECT `+lostColumns+` FROM lost_reports`+where, args...)
	if err != nil {
		return nil, model.Dependency("listing lost reports", err)
	}
	defer rows.Close()

	var reports []model.LostReport
	for rows.Next() {
		r, err := scanLost(rows)
		if err != nil {
			return nil, model.Dependency("scanning lost report", err)
		}
		reports = append(reports, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, model.Dependency("listing lost reports", err)
	}
	return reports, nil
}

// loadOwnedPending loads a report for an owner edit. A nil ownerID skips the
// ownership check. Reports owned by someone else look missing.
func loadOwnedPending(ctx context.Context, tx *sql.Tx, id string, ownerID *int64) (*model.LostReport, error) {
	r, err := getLost(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if r == nil || (ownerID != nil && (r.OwnerID == nil || *r.OwnerID != *ownerID)) {
		return nil, model.NotFound("lost report", id)
	}
	if r.Status != model.StatusPending {
		return nil, model.Conflict("lost report", "%s is %s, only pending reports can change", id, r.Status)
	}
	return r, nil
}

// UpdateLostReport replaces the editable fields of a Pending report.
func UpdateLostReport(ctx context.Context, db *sql.DB, id string, ownerID *int64, in model.LostInput) (*model.LostReport, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, model.Dependency("beginning transaction", err)
	}
	defer tx.Rollback()

	if _, err := loadOwnedPending(ctx, tx, id, ownerID); err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE lost_reports
		 SET item_name = ?, category = ?, description = ?, location = ?, date_lost = ?,
		     notify_address = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND status = 'Pending'`,
		in.ItemName, in.Category, in.Description, in.Location, in.DateLost, in.NotifyAddress, id,
	)
	if err != nil {
		return nil, model.Dependency("updating lost report", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, model.Dependency("committing lost report", err)
	}

	return GetLostReport(ctx, db, id)
}

// DeleteLostReport removes a Pending report without an archive copy.
func DeleteLostReport(ctx context.Context, db *sql.DB, id string, ownerID *int64) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return model.Dependency("beginning transaction", err)
	}
	defer tx.Rollback()

	if _, err := loadOwnedPending(ctx, tx, id, ownerID); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM lost_reports WHERE id = ? AND status = 'Pending'`, id,
	); err != nil {
		return model.Dependency("deleting lost report", err)
	}

	if err := tx.Commit(); err != nil {
		return model.Dependency("committing lost report deletion", err)
	}
	return nil
}
