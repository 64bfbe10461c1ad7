package match

import (
	"cmp"
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/erazemk/najdeno/internal/metrics"
	"github.com/erazemk/najdeno/internal/model"
	"github.com/erazemk/najdeno/internal/notify"
	"github.com/erazemk/najdeno/internal/store"
)

type pair struct {
	lostID, foundID string
}

// Reconciler runs reconciliation passes. It remembers every pair it has
// matched, or found already matched, for as long as it lives, so repeated
// passes do not retry them; the database uniqueness rules still decide.
type Reconciler struct {
	db       *sql.DB
	notifier notify.Notifier
	metrics  *metrics.Metrics
	logger   *slog.Logger
	timeout  time.Duration

	// Now returns the match time. Defaults to time.Now.
	Now func() time.Time

	mu      sync.Mutex
	visited map[pair]bool
}

// NewReconciler returns a reconciler over db. Store calls are bounded by
// timeout when it is positive.
func NewReconciler(db *sql.DB, n notify.Notifier, m *metrics.Metrics, logger *slog.Logger, timeout time.Duration) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		db:       db,
		notifier: n,
		metrics:  m,
		logger:   logger,
		timeout:  timeout,
		Now:      time.Now,
		visited:  make(map[pair]bool),
	}
}

// Reconcile evaluates every (lost, found) pair, lost reports outer and found
// records inner, both in ID order, and creates a match for each accepted pair.
// Records matched earlier in the pass are not offered again. A pair whose
// match already exists is remembered and skipped; a pair rejected only
// because one side stopped being Pending is skipped for this pass alone. The
// returned matches are the ones this pass created.
func (r *Reconciler) Reconcile(ctx context.Context, m Matcher, lost []model.LostReport, found []model.FoundRecord) ([]model.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reconcile(ctx, m, lost, found)
}

// ReconcilePending runs Reconcile over everything currently Pending. The
// records are loaded under the same lock as the pass.
func (r *Reconciler) ReconcilePending(ctx context.Context, m Matcher) ([]model.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	lost, found, err := r.loadPending(ctx)
	if err != nil {
		return nil, err
	}
	return r.reconcile(ctx, m, lost, found)
}

func (r *Reconciler) reconcile(ctx context.Context, m Matcher, lost []model.LostReport, found []model.FoundRecord) ([]model.Match, error) {
	lost = slices.Clone(lost)
	found = slices.Clone(found)
	slices.SortFunc(lost, func(a, b model.LostReport) int { return compareIDs(model.PrefixLost, a.ID, b.ID) })
	slices.SortFunc(found, func(a, b model.FoundRecord) int { return compareIDs(model.PrefixFound, a.ID, b.ID) })

	var created []model.Match
	for i := range lost {
		l := &lost[i]
		for j := range found {
			f := &found[j]
			p := pair{l.ID, f.ID}
			if r.visited[p] || !m.IsMatch(l, f) {
				continue
			}

			match, err := r.create(ctx, l.ID, f.ID)
			switch {
			case errors.Is(err, store.ErrPairMatched):
				r.logger.Info("pair already matched", "lost_id", l.ID, "found_id", f.ID)
				r.metrics.MatchConflict()
				r.visited[p] = true
				continue
			case errors.Is(err, model.ErrConflict), errors.Is(err, model.ErrNotFound):
				r.logger.Info("pair no longer eligible", "lost_id", l.ID, "found_id", f.ID, "reason", err)
				r.metrics.MatchConflict()
				continue
			case err != nil:
				return created, err
			}

			r.visited[p] = true
			l.Status = model.StatusMatched
			f.Status = model.StatusMatched
			created = append(created, *match)
			r.metrics.MatchCreated()
			r.logger.Info("match created", "match_id", match.ID, "lost_id", l.ID, "found_id", f.ID)

			r.notify(ctx, match)
			break
		}
	}
	return created, nil
}

func (r *Reconciler) loadPending(ctx context.Context) ([]model.LostReport, []model.FoundRecord, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	lost, err := store.ListLostReports(ctx, r.db, store.Filter{Status: model.StatusPending})
	if err != nil {
		return nil, nil, err
	}
	found, err := store.ListFoundRecords(ctx, r.db, store.Filter{Status: model.StatusPending})
	if err != nil {
		return nil, nil, err
	}
	return lost, found, nil
}

func (r *Reconciler) create(ctx context.Context, lostID, foundID string) (*model.Match, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	return store.CreateMatch(ctx, r.db, lostID, foundID, r.Now())
}

// notify sends the match notification. Failures are logged and counted; the
// match stands.
func (r *Reconciler) notify(ctx context.Context, m *model.Match) {
	to := m.Lost.NotifyAddress
	if model.SkipNotify(to) {
		r.metrics.Notification(metrics.Skipped)
		return
	}
	if r.notifier == nil {
		return
	}

	body, err := NotificationBody(m)
	if err != nil {
		r.logger.Error("rendering notification", "match_id", m.ID, "error", err)
		r.metrics.Notification(metrics.Failed)
		return
	}

	if err := r.notifier.Send(ctx, to, Subject, body); err != nil {
		r.logger.Error("notifying owner", "match_id", m.ID, "to", to, "error", err)
		if errors.Is(err, notify.ErrQueueFull) {
			r.metrics.Notification(metrics.Dropped)
		} else {
			r.metrics.Notification(metrics.Failed)
		}
	}
}

func (r *Reconciler) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, r.timeout)
}

// compareIDs orders IDs by their numeric part, falling back to string order
// for malformed IDs.
func compareIDs(prefix, a, b string) int {
	na, errA := model.ParseID(prefix, a)
	nb, errB := model.ParseID(prefix, b)
	if errA != nil || errB != nil {
		return cmp.Compare(a, b)
	}
	return cmp.Compare(na, nb)
}
