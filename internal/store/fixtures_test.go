package store

import (
	"context"
	"database/sql"
	"testing"

	"github.com/erazemk/najdeno/internal/model"
)

func lostInput(name, category, description, date string) model.LostInput {
	return model.LostInput{
		ItemName:    name,
		Category:    category,
		Description: description,
		Location:    "Library",
		DateLost:    model.MustParseDate(date),
	}
}

func foundInput(name, category, description, date string) model.FoundInput {
	return model.FoundInput{
		ItemName:    name,
		Category:    category,
		Description: description,
		Location:    "Cafeteria",
		DateFound:   model.MustParseDate(date),
		FinderName:  "Ana Novak",
		FinderID:    "6310000001",
	}
}

func mustLost(t *testing.T, database *sql.DB, in model.LostInput) *model.LostReport {
	t.Helper()
	r, err := CreateLostReport(context.Background(), database, in, nil)
	if err != nil {
		t.Fatalf("CreateLostReport: %v", err)
	}
	return r
}

func mustFound(t *testing.T, database *sql.DB, in model.FoundInput) *model.FoundRecord {
	t.Helper()
	r, err := CreateFoundRecord(context.Background(), database, in)
	if err != nil {
		t.Fatalf("CreateFoundRecord: %v", err)
	}
	return r
}
