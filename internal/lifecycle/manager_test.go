package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/erazemk/najdeno/internal/db"
	"github.com/erazemk/najdeno/internal/model"
	"github.com/erazemk/najdeno/internal/store"
)

var testNow = time.Date(2026, 4, 10, 9, 30, 0, 0, time.UTC)

func newManager(t *testing.T) (*Manager, context.Context) {
	t.Helper()
	m := NewManager(db.NewTestDB(t), nil, nil, time.Second, 6)
	m.Now = func() time.Time { return testNow }
	return m, context.Background()
}

func addLost(t *testing.T, m *Manager, description, date string) *model.LostReport {
	t.Helper()
	l, err := store.CreateLostReport(context.Background(), m.db, model.LostInput{
		ItemName:    "Umbrella",
		Category:    "Personal Belongings",
		Description: description,
		Location:    "Gym",
		DateLost:    model.MustParseDate(date),
	}, nil)
	if err != nil {
		t.Fatalf("CreateLostReport: %v", err)
	}
	return l
}

func addFound(t *testing.T, m *Manager, description, date string) *model.FoundRecord {
	t.Helper()
	f, err := store.CreateFoundRecord(context.Background(), m.db, model.FoundInput{
		ItemName:    "Umbrella",
		Category:    "Personal Belongings",
		Description: description,
		Location:    "Gym",
		DateFound:   model.MustParseDate(date),
		FinderName:  "Ana Novak",
		FinderID:    "6310000001",
	})
	if err != nil {
		t.Fatalf("CreateFoundRecord: %v", err)
	}
	return f
}

func TestClaim(t *testing.T) {
	m, ctx := newManager(t)
	l := addLost(t, m, "blue umbrella", "2026-04-01")
	f := addFound(t, m, "blue umbrella", "2026-04-02")
	match, err := store.CreateMatch(ctx, m.db, l.ID, f.ID, testNow)
	if err != nil {
		t.Fatal(err)
	}

	res, err := m.Claim(ctx, ClaimRequest{
		FoundID:  f.ID,
		Claimant: model.Claimant{ID: "6310000042", Name: "Maja Kos"},
	})
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if res.MatchID != match.ID || res.LostRecordID() != l.ID {
		t.Errorf("unexpected claim result %+v", res)
	}

	arch, _ := store.GetArchived(ctx, m.db, model.KindFound, f.ID)
	if arch == nil || arch.Status != model.StatusClaimed || arch.ClaimedByName != "Maja Kos" {
		t.Errorf("unexpected archive copy %+v", arch)
	}
	if !arch.ArchivedAt.Equal(testNow) {
		t.Errorf("expected archived_at %v, got %v", testNow, arch.ArchivedAt)
	}
}

func TestClaimValidatesIDs(t *testing.T) {
	m, ctx := newManager(t)
	c := model.Claimant{ID: "6310000042", Name: "Maja Kos"}

	if _, err := m.Claim(ctx, ClaimRequest{FoundID: "L0001", Claimant: c}); !errors.Is(err, model.ErrValidation) {
		t.Errorf("expected validation error for wrong prefix, got %v", err)
	}
	if _, err := m.Claim(ctx, ClaimRequest{FoundID: "F0001", LostID: "x", Claimant: c}); !errors.Is(err, model.ErrValidation) {
		t.Errorf("expected validation error for bad lost id, got %v", err)
	}
	if _, err := m.Claim(ctx, ClaimRequest{FoundID: "F0001", Claimant: c}); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestCancelMatchIsIdempotent(t *testing.T) {
	m, ctx := newManager(t)
	l := addLost(t, m, "blue umbrella", "2026-04-01")
	f := addFound(t, m, "blue umbrella", "2026-04-02")
	match, err := store.CreateMatch(ctx, m.db, l.ID, f.ID, testNow)
	if err != nil {
		t.Fatal(err)
	}

	if err := m.CancelMatch(ctx, match.ID); err != nil {
		t.Fatalf("CancelMatch: %v", err)
	}
	if err := m.CancelMatch(ctx, match.ID); err != nil {
		t.Fatalf("second CancelMatch: %v", err)
	}

	l2, _ := store.GetLostReport(ctx, m.db, l.ID)
	f2, _ := store.GetFoundRecord(ctx, m.db, f.ID)
	if l2.Status != model.StatusPending || f2.Status != model.StatusPending {
		t.Errorf("expected both Pending, got %q/%q", l2.Status, f2.Status)
	}

	if err := m.CancelMatch(ctx, "match-1"); !errors.Is(err, model.ErrValidation) {
		t.Errorf("expected validation error for malformed id, got %v", err)
	}
}

func TestDeleteLostReport(t *testing.T) {
	m, ctx := newManager(t)
	l := addLost(t, m, "blue umbrella", "2026-04-01")

	if err := m.DeleteLostReport(ctx, l.ID, nil); err != nil {
		t.Fatalf("DeleteLostReport: %v", err)
	}
	if got, _ := store.GetLostReport(ctx, m.db, l.ID); got != nil {
		t.Error("expected report to be gone")
	}
	if recs, _ := store.ListArchive(ctx, m.db, store.ArchiveFilter{}); len(recs) != 0 {
		t.Errorf("expected no archive copy for an owner deletion, got %d", len(recs))
	}
}

func TestCutoff(t *testing.T) {
	m, _ := newManager(t)
	if got := m.Cutoff(testNow).String(); got != "2025-10-10" {
		t.Errorf("expected 2025-10-10, got %s", got)
	}

	monthEnd := time.Date(2024, 8, 31, 12, 0, 0, 0, time.UTC)
	cutoff := m.Cutoff(monthEnd)
	if got := cutoff.String(); got != "2024-02-29" {
		t.Errorf("expected 2024-02-29 at month end, got %s", got)
	}
	if model.MustParseDate("2024-03-01").Before(cutoff) {
		t.Error("a report under six months old falls before the cutoff")
	}
}

func TestSweepArchival(t *testing.T) {
	m, ctx := newManager(t)
	stale := addLost(t, m, "old scarf", "2025-10-09")
	fresh := addLost(t, m, "new scarf", "2025-10-10")
	staleFound := addFound(t, m, "old pen", "2025-01-15")

	// A stale pair that is matched must stay put.
	ml := addLost(t, m, "green bottle", "2025-05-01")
	mf := addFound(t, m, "green bottle", "2025-05-02")
	if _, err := store.CreateMatch(ctx, m.db, ml.ID, mf.ID, testNow); err != nil {
		t.Fatal(err)
	}

	res, err := m.SweepArchival(ctx, testNow)
	if err != nil {
		t.Fatalf("SweepArchival: %v", err)
	}
	if res.Archived != 2 || res.Skipped != 0 || res.Errors != 0 {
		t.Errorf("unexpected result %+v", res)
	}

	for _, id := range []string{stale.ID, staleFound.ID} {
		kind := model.KindLost
		if id[0] == 'F' {
			kind = model.KindFound
		}
		arch, _ := store.GetArchived(ctx, m.db, kind, id)
		if arch == nil || arch.Status != model.StatusArchived {
			t.Errorf("expected %s archived, got %+v", id, arch)
		}
	}
	if got, _ := store.GetLostReport(ctx, m.db, fresh.ID); got == nil || got.Status != model.StatusPending {
		t.Errorf("expected %s untouched, got %+v", fresh.ID, got)
	}
	if got, _ := store.GetLostReport(ctx, m.db, ml.ID); got == nil || got.Status != model.StatusMatched {
		t.Errorf("expected %s untouched, got %+v", ml.ID, got)
	}

	again, err := m.SweepArchival(ctx, testNow)
	if err != nil {
		t.Fatal(err)
	}
	if again.Archived != 0 {
		t.Errorf("expected second sweep to archive nothing, got %+v", again)
	}
}

func TestSweepSkipsRecordsMatchedDuringSweep(t *testing.T) {
	m, ctx := newManager(t)
	l := addLost(t, m, "old scarf", "2025-01-09")
	f := addFound(t, m, "old scarf", "2025-01-10")

	m.beforeArchive = func(kind, id string) {
		if kind == model.KindLost && id == l.ID {
			if _, err := store.CreateMatch(ctx, m.db, l.ID, f.ID, testNow); err != nil {
				t.Errorf("CreateMatch during sweep: %v", err)
			}
		}
	}

	res, err := m.SweepArchival(ctx, testNow)
	if err != nil {
		t.Fatalf("SweepArchival: %v", err)
	}
	if res.Archived != 0 || res.Skipped != 2 {
		t.Errorf("expected both records skipped, got %+v", res)
	}

	match, _ := store.ListMatches(ctx, m.db)
	if len(match) != 1 {
		t.Errorf("expected the match to survive, got %d matches", len(match))
	}
}
