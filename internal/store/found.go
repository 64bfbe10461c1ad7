package store

import (
	"context"
	"database/sql"

	"github.com/erazemk/najdeno/internal/model"
)

const foundColumns = `id, item_name, category, description, location, date_found, finder_name,
	finder_id, status, photo_ref, created_at, updated_at`

func scanFound(row interface{ Scan(...any) error }) (*model.FoundRecord, error) {
	r := &model.FoundRecord{}
	err := row.Scan(&r.ID, &r.ItemName, &r.Category, &r.Description, &r.Location, &r.DateFound,
		&r.FinderName, &r.FinderID, &r.Status, &r.PhotoRef, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// CreateFoundRecord validates in and stores it as a Pending record with the
// next F#### ID.
func CreateFoundRecord(ctx context.Context, db *sql.DB, in model.FoundInput) (*model.FoundRecord, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, model.Dependency("beginning transaction", err)
	}
	defer tx.Rollback()

	id, err := nextID(ctx, tx, model.KindFound)
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO found_records (id, item_name, category, description, location, date_found, finder_name, finder_id, photo_ref)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, in.ItemName, in.Category, in.Description, in.Location, in.DateFound, in.FinderName, in.FinderID, in.PhotoRef,
	)
	if err != nil {
		return nil, model.Dependency("creating found record", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, model.Dependency("committing found record", err)
	}

	return GetFoundRecord(ctx, db, id)
}

// GetFoundRecord returns a found record by ID.
func GetFoundRecord(ctx context.Context, db *sql.DB, id string) (*model.FoundRecord, error) {
	return getFound(ctx, db, id)
}

func getFound(ctx context.Context, q querier, id string) (*model.FoundRecord, error) {
	r, err := scanFound(q.QueryRowContext(ctx,
		`SELECT `+foundColumns+` FROM found_records WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, model.Dependency("getting found record", err)
	}
	return r, nil
}

// ListFoundRecords returns found records matching f. f.OwnerID is ignored.
func ListFoundRecords(ctx context.Context, db *sql.DB, f Filter) ([]model.FoundRecord, error) {
	f.OwnerID = nil
	where, args := f.where("date_found")
	rows, err := db.QueryContext(ctx, `SELECT `+foundColumns+` FROM found_records`+where, args...)
	if err != nil {
		return nil, model.Dependency("listing found records", err)
	}
	defer rows.Close()

	var records []model.FoundRecord
	for rows.Next() {
		r, err := scanFound(rows)
		if err != nil {
			return nil, model.Dependency("scanning found record", err)
		}
		records = append(records, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, model.Dependency("listing found records", err)
	}
	return records, nil
}
