package api

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/erazemk/najdeno/internal/auth"
	"github.com/erazemk/najdeno/internal/lifecycle"
	"github.com/erazemk/najdeno/internal/match"
	"github.com/erazemk/najdeno/internal/metrics"
	"github.com/erazemk/najdeno/internal/model"
)

// Deps carries the services the handlers call into.
type Deps struct {
	Reconciler *match.Reconciler
	Lifecycle  *lifecycle.Manager
	Metrics    *metrics.Metrics

	// Matchers used after a lost report is filed, after a found item is
	// logged, and for manual passes.
	ReportMatcher   match.Matcher
	FoundMatcher    match.Matcher
	ScheduleMatcher match.Matcher

	// Jobs lists the scheduled job names reported by GET /api/admin/jobs.
	Jobs []string

	// RequestTimeout bounds each request; zero disables it.
	RequestTimeout time.Duration
}

// NewRouter creates the API router with all endpoints registered.
func NewRouter(db *sql.DB, tokens *auth.Tokens, deps Deps) http.Handler {
	mux := http.NewServeMux()

	authHandler := &AuthHandler{DB: db, Tokens: tokens}
	usersHandler := &UsersHandler{DB: db}
	lostHandler := &LostHandler{DB: db, Reconciler: deps.Reconciler, Matcher: deps.ReportMatcher, Lifecycle: deps.Lifecycle}
	foundHandler := &FoundHandler{DB: db, Reconciler: deps.Reconciler, Matcher: deps.FoundMatcher}
	matchesHandler := &MatchesHandler{DB: db, Lifecycle: deps.Lifecycle}
	claimsHandler := &ClaimsHandler{Lifecycle: deps.Lifecycle}
	archiveHandler := &ArchiveHandler{DB: db}
	adminHandler := &AdminHandler{
		DB:         db,
		Reconciler: deps.Reconciler,
		Matcher:    deps.ScheduleMatcher,
		Lifecycle:  deps.Lifecycle,
		Jobs:       deps.Jobs,
	}

	authMW := AuthMiddleware(tokens, db)
	requireAdmin := RequireRole(model.RoleAdmin)
	requireStaff := RequireRole(model.RoleStaff)

	// Public.
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.HandleFunc("GET /api/categories", Categories)

	// Authenticated routes.
	mux.Handle("PUT /api/auth/password", authMW(http.HandlerFunc(authHandler.ChangePassword)))
	mux.Handle("POST /api/auth/logout", authMW(http.HandlerFunc(authHandler.Logout)))

	// Users (admin only).
	mux.Handle("GET /api/users", authMW(requireAdmin(http.HandlerFunc(usersHandler.List))))
	mux.Handle("POST /api/users", authMW(requireAdmin(http.HandlerFunc(usersHandler.Create))))
	mux.Handle("GET /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Get))))
	mux.Handle("PUT /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Update))))
	mux.Handle("PUT /api/users/{id}/password", authMW(requireAdmin(http.HandlerFunc(usersHandler.ResetPassword))))
	mux.Handle("DELETE /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Delete))))

	// Lost reports (all roles, students scoped to their own).
	mux.Handle("GET /api/lost", authMW(http.HandlerFunc(lostHandler.List)))
	mux.Handle("POST /api/lost", authMW(http.HandlerFunc(lostHandler.Create)))
	mux.Handle("GET /api/lost/{id}", authMW(http.HandlerFunc(lostHandler.Get)))
	mux.Handle("PUT /api/lost/{id}", authMW(http.HandlerFunc(lostHandler.Update)))
	mux.Handle("DELETE /api/lost/{id}", authMW(http.HandlerFunc(lostHandler.Delete)))

	// Found records: read (all roles), write (staff+).
	mux.Handle("GET /api/found", authMW(http.HandlerFunc(foundHandler.List)))
	mux.Handle("POST /api/found", authMW(requireStaff(http.HandlerFunc(foundHandler.Create))))
	mux.Handle("GET /api/found/{id}", authMW(http.HandlerFunc(foundHandler.Get)))

	// Matches, claims and archive (staff+).
	mux.Handle("GET /api/matches", authMW(requireStaff(http.HandlerFunc(matchesHandler.List))))
	mux.Handle("GET /api/matches/{id}", authMW(requireStaff(http.HandlerFunc(matchesHandler.Get))))
	mux.Handle("DELETE /api/matches/{id}", authMW(requireStaff(http.HandlerFunc(matchesHandler.Cancel))))
	mux.Handle("POST /api/claims", authMW(requireStaff(http.HandlerFunc(claimsHandler.Create))))
	mux.Handle("GET /api/archive", authMW(requireStaff(http.HandlerFunc(archiveHandler.List))))
	mux.Handle("GET /api/archive/{kind}/{id}", authMW(requireStaff(http.HandlerFunc(archiveHandler.Get))))

	// Admin.
	mux.Handle("POST /api/admin/reconcile", authMW(requireAdmin(http.HandlerFunc(adminHandler.Reconcile))))
	mux.Handle("POST /api/admin/sweep", authMW(requireAdmin(http.HandlerFunc(adminHandler.Sweep))))
	mux.Handle("GET /api/admin/jobs", authMW(requireAdmin(http.HandlerFunc(adminHandler.ListJobs))))

	if deps.Metrics != nil {
		mux.Handle("GET /metrics", deps.Metrics.Handler())
	}

	return TimeoutMiddleware(deps.RequestTimeout)(mux)
}
