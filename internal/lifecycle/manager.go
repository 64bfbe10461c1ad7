// Package lifecycle moves records through their terminal transitions: claim,
// match cancellation, owner deletion and the time-based archival sweep.
package lifecycle

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/erazemk/najdeno/internal/metrics"
	"github.com/erazemk/najdeno/internal/model"
	"github.com/erazemk/najdeno/internal/store"
)

// DefaultRetentionMonths is how long a Pending record stays active.
const DefaultRetentionMonths = 6

// ClaimRequest names the found record being handed over, optionally the lost
// report it answers, and who takes it.
type ClaimRequest struct {
	FoundID string `json:"found_id"`
	LostID  string `json:"lost_id,omitempty"`
	model.Claimant
}

// SweepResult counts what one archival sweep did.
type SweepResult struct {
	Cutoff   model.Date `json:"cutoff"`
	Archived int        `json:"archived"`
	Skipped  int        `json:"skipped"`
	Errors   int        `json:"errors"`
}

// Manager runs lifecycle operations against the store.
type Manager struct {
	db              *sql.DB
	metrics         *metrics.Metrics
	logger          *slog.Logger
	timeout         time.Duration
	retentionMonths int

	// Now is the clock used for claim timestamps. Defaults to time.Now.
	Now func() time.Time

	// beforeArchive runs before each sweep move.
	beforeArchive func(kind, id string)
}

// NewManager returns a manager over db. Each store call is bounded by timeout
// when it is positive.
func NewManager(db *sql.DB, m *metrics.Metrics, logger *slog.Logger, timeout time.Duration, retentionMonths int) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if retentionMonths <= 0 {
		retentionMonths = DefaultRetentionMonths
	}
	return &Manager{
		db:              db,
		metrics:         m,
		logger:          logger,
		timeout:         timeout,
		retentionMonths: retentionMonths,
		Now:             time.Now,
	}
}

// Claim archives the found record, and its lost report when there is one,
// as Claimed and removes them from the active set.
func (m *Manager) Claim(ctx context.Context, req ClaimRequest) (*store.ClaimResult, error) {
	if _, err := model.ParseID(model.PrefixFound, req.FoundID); err != nil {
		return nil, model.Validation("found_id", "malformed found id %q", req.FoundID)
	}
	if req.LostID != "" {
		if _, err := model.ParseID(model.PrefixLost, req.LostID); err != nil {
			return nil, model.Validation("lost_id", "malformed lost id %q", req.LostID)
		}
	}

	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	res, err := store.ClaimFound(ctx, m.db, req.FoundID, req.LostID, req.Claimant, m.Now())
	if err != nil {
		return nil, err
	}

	m.metrics.Claimed()
	m.logger.Info("item claimed", "found_id", req.FoundID, "lost_id", res.LostRecordID(), "match_id", res.MatchID)
	return res, nil
}

// CancelMatch dissolves a match and returns both sides to Pending. Cancelling
// a match that does not exist succeeds without changing anything.
func (m *Manager) CancelMatch(ctx context.Context, id string) error {
	if _, err := model.ParseID(model.PrefixMatch, id); err != nil {
		return model.Validation("match_id", "malformed match id %q", id)
	}

	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	match, err := store.CancelMatch(ctx, m.db, id)
	if errors.Is(err, model.ErrNotFound) {
		m.logger.Info("match already gone", "match_id", id)
		return nil
	}
	if err != nil {
		return err
	}

	m.metrics.MatchCancelled()
	m.logger.Info("match cancelled", "match_id", id, "lost_id", match.LostID, "found_id", match.FoundID)
	return nil
}

// DeleteLostReport removes a Pending report on behalf of its owner. A nil
// ownerID deletes regardless of owner.
func (m *Manager) DeleteLostReport(ctx context.Context, id string, ownerID *int64) error {
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	if err := store.DeleteLostReport(ctx, m.db, id, ownerID); err != nil {
		return err
	}
	m.logger.Info("lost report deleted", "lost_id", id)
	return nil
}

// Cutoff returns the first date that is not yet stale at now.
func (m *Manager) Cutoff(now time.Time) model.Date {
	return model.DateOf(now).AddMonths(-m.retentionMonths)
}

// SweepArchival archives every Pending lost report and found record dated
// before the retention cutoff. Records that stop being Pending before their
// move are skipped; other per-record failures are counted and the sweep goes
// on. An error is returned only when the candidates cannot be listed.
func (m *Manager) SweepArchival(ctx context.Context, now time.Time) (SweepResult, error) {
	res := SweepResult{Cutoff: m.Cutoff(now)}
	filter := store.Filter{Status: model.StatusPending, Before: res.Cutoff}

	lost, found, err := m.candidates(ctx, filter)
	if err != nil {
		return res, err
	}

	for _, l := range lost {
		m.move(ctx, &res, model.KindLost, l.ID, func(ctx context.Context) error {
			_, err := store.ArchiveStaleLost(ctx, m.db, l.ID, res.Cutoff, now)
			return err
		})
	}
	for _, f := range found {
		m.move(ctx, &res, model.KindFound, f.ID, func(ctx context.Context) error {
			_, err := store.ArchiveStaleFound(ctx, m.db, f.ID, res.Cutoff, now)
			return err
		})
	}

	m.metrics.Swept(res.Archived, res.Skipped, res.Errors)
	m.logger.Info("archival sweep finished", "cutoff", res.Cutoff,
		"archived", res.Archived, "skipped", res.Skipped, "errors", res.Errors)
	return res, nil
}

func (m *Manager) candidates(ctx context.Context, f store.Filter) ([]model.LostReport, []model.FoundRecord, error) {
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	lost, err := store.ListLostReports(ctx, m.db, f)
	if err != nil {
		return nil, nil, err
	}
	found, err := store.ListFoundRecords(ctx, m.db, f)
	if err != nil {
		return nil, nil, err
	}
	return lost, found, nil
}

func (m *Manager) move(ctx context.Context, res *SweepResult, kind, id string, archive func(context.Context) error) {
	if m.beforeArchive != nil {
		m.beforeArchive(kind, id)
	}

	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	err := archive(ctx)
	switch {
	case err == nil:
		res.Archived++
		m.logger.Info("record archived", "kind", kind, "id", id)
	case errors.Is(err, model.ErrConflict), errors.Is(err, model.ErrNotFound):
		res.Skipped++
		m.logger.Info("record changed during sweep, skipped", "kind", kind, "id", id)
	default:
		res.Errors++
		m.logger.Error("archiving record", "kind", kind, "id", id, "error", err)
	}
}

func (m *Manager) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if m.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, m.timeout)
}
