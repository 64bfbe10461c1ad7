package store

import (
	"context"
	"testing"
	"time"

	"github.com/erazemk/najdeno/internal/db"
)

func TestGetJWTSecret_GeneratesAndPersists(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	secret1, err := GetJWTSecret(ctx, database)
	if err != nil {
		t.Fatal(err)
	}
	if len(secret1) != 64 { // 32 bytes = 64 hex chars
		t.Fatalf("expected 64 hex chars, got %d", len(secret1))
	}

	secret2, err := GetJWTSecret(ctx, database)
	if err != nil {
		t.Fatal(err)
	}
	if secret1 != secret2 {
		t.Fatalf("expected same secret, got %q and %q", secret1, secret2)
	}
}

func TestJobRuns(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	last, err := LastJobRun(ctx, database, "sweep")
	if err != nil {
		t.Fatal(err)
	}
	if !last.IsZero() {
		t.Fatalf("expected zero time before first run, got %v", last)
	}

	first := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	second := first.Add(24 * time.Hour)
	if err := RecordJobRun(ctx, database, "sweep", first); err != nil {
		t.Fatal(err)
	}
	if err := RecordJobRun(ctx, database, "sweep", second); err != nil {
		t.Fatal(err)
	}

	last, err = LastJobRun(ctx, database, "sweep")
	if err != nil {
		t.Fatal(err)
	}
	if !last.Equal(second) {
		t.Errorf("expected %v, got %v", second, last)
	}

	other, _ := LastJobRun(ctx, database, "reconcile")
	if !other.IsZero() {
		t.Errorf("expected jobs to be tracked separately, got %v", other)
	}
}
