package main

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"

	"github.com/erazemk/najdeno/internal/api"
	"github.com/erazemk/najdeno/internal/auth"
	"github.com/erazemk/najdeno/internal/config"
	"github.com/erazemk/najdeno/internal/db"
	"github.com/erazemk/najdeno/internal/lifecycle"
	"github.com/erazemk/najdeno/internal/lock"
	"github.com/erazemk/najdeno/internal/match"
	"github.com/erazemk/najdeno/internal/metrics"
	"github.com/erazemk/najdeno/internal/model"
	"github.com/erazemk/najdeno/internal/notify"
	"github.com/erazemk/najdeno/internal/store"
)

// levelRouter is a slog.Handler that routes INFO/WARN to stdout and ERROR+ to stderr.
type levelRouter struct {
	stdout slog.Handler
	stderr slog.Handler
}

func (lr *levelRouter) Enabled(_ context.Context, level slog.Level) bool {
	return level >= slog.LevelInfo
}

func (lr *levelRouter) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= slog.LevelError {
		return lr.stderr.Handle(ctx, r)
	}
	return lr.stdout.Handle(ctx, r)
}

func (lr *levelRouter) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &levelRouter{
		stdout: lr.stdout.WithAttrs(attrs),
		stderr: lr.stderr.WithAttrs(attrs),
	}
}

func (lr *levelRouter) WithGroup(name string) slog.Handler {
	return &levelRouter{
		stdout: lr.stdout.WithGroup(name),
		stderr: lr.stderr.WithGroup(name),
	}
}

// setupLogger configures structured logging. If logPath is non-empty, all
// levels are also appended to that file. The returned func closes it.
func setupLogger(logPath string) (func(), error) {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}

	cleanup := func() {}
	stdoutW := io.Writer(os.Stdout)
	stderrW := io.Writer(os.Stderr)

	if logPath != "" {
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		cleanup = func() { f.Close() }
		stdoutW = io.MultiWriter(os.Stdout, f)
		stderrW = io.MultiWriter(os.Stderr, f)
	}

	handler := &levelRouter{
		stdout: slog.NewTextHandler(stdoutW, opts),
		stderr: slog.NewTextHandler(stderrW, opts),
	}
	slog.SetDefault(slog.New(handler))
	return cleanup, nil
}

func main() {
	fs := config.NewFlagSet("najdeno")
	fs.Usage = func() {
		fmt.Fprint(os.Stdout, "Usage: najdeno [flags]\n\nFlags:\n")
		fs.SetOutput(os.Stdout)
		fs.PrintDefaults()
	}

	if err := fs.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			os.Exit(0)
		}
		os.Exit(1)
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(os.Stderr, "unexpected argument: %s\n", fs.Arg(0))
		fs.Usage()
		os.Exit(1)
	}

	cfgPath, _ := fs.GetString("config")
	cfg, err := config.Load(cfgPath, fs.Changed("config"))
	if err == nil {
		err = cfg.ApplyFlags(fs)
	}
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	closeLog, err := setupLogger(cfg.LogFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	if err := run(cfg); err != nil {
		slog.Error("fatal", "error", err)
		closeLog()
		os.Exit(1)
	}
}

func run(cfg config.Config) error {
	// Check if DB exists, auto-init if not.
	if _, err := os.Stat(cfg.DB); os.IsNotExist(err) {
		database, password, err := initDatabase(cfg.DB, cfg.AdminUser)
		if err != nil {
			return fmt.Errorf("initializing database: %w", err)
		}
		database.Close()

		printInitResult(cfg.DB, cfg.AdminUser, password)
		fmt.Println()
	}

	database, err := db.Open(cfg.DB)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()

	if err := db.EnsureSchema(database); err != nil {
		return fmt.Errorf("ensuring database schema: %w", err)
	}
	slog.Info("database ready", "path", cfg.DB)

	jwtSecret, err := store.GetJWTSecret(context.Background(), database)
	if err != nil {
		return fmt.Errorf("loading JWT secret: %w", err)
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	transport, closeTransport, err := newNotifier(cfg.Notify)
	if err != nil {
		return err
	}
	defer closeTransport()
	dispatcher := notify.NewDispatcher(transport, cfg.Notify.QueueSize, cfg.Notify.SendTimeout, slog.Default(), m)

	reconciler := match.NewReconciler(database, dispatcher, m, slog.Default(), cfg.StoreTimeout)
	manager := lifecycle.NewManager(database, m, slog.Default(), cfg.StoreTimeout, cfg.RetentionMonths)
	scheduleMatcher := match.Matcher{RequireDateOrder: cfg.Matching.DateOrderOnSchedule}

	var locker lifecycle.Locker
	if cfg.Redis.Addr != "" {
		rl, err := lock.NewRedisLocker(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.LockPrefix, cfg.Redis.LockTTL)
		if err != nil {
			return fmt.Errorf("setting up job lease: %w", err)
		}
		defer rl.Close()
		if err := rl.Ping(context.Background()); err != nil {
			slog.Warn("redis unreachable, jobs will run without a lease", "addr", cfg.Redis.Addr, "error", err)
		}
		locker = rl
	}

	scheduler := lifecycle.NewScheduler(locker, database, m, slog.Default())
	scheduler.Add(lifecycle.Job{
		Name:     "reconcile",
		Interval: cfg.ReconcileInterval,
		Run: func(ctx context.Context) error {
			_, err := reconciler.ReconcilePending(ctx, scheduleMatcher)
			return err
		},
	})
	scheduler.Add(lifecycle.Job{
		Name:     "sweep",
		Interval: cfg.SweepInterval,
		Run: func(ctx context.Context) error {
			_, err := manager.SweepArchival(ctx, time.Now())
			return err
		},
	})

	tokens := auth.NewTokens(jwtSecret)
	apiRouter := api.NewRouter(database, tokens, api.Deps{
		Reconciler:      reconciler,
		Lifecycle:       manager,
		Metrics:         m,
		ReportMatcher:   match.Matcher{RequireDateOrder: cfg.Matching.DateOrderOnReport},
		FoundMatcher:    match.Matcher{RequireDateOrder: cfg.Matching.DateOrderOnFound},
		ScheduleMatcher: scheduleMatcher,
		Jobs:            []string{"reconcile", "sweep"},
		RequestTimeout:  cfg.StoreTimeout * 4,
	})

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.LoggingMiddleware(apiRouter),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return dispatcher.Run(gctx)
	})
	g.Go(func() error {
		scheduler.Start(gctx)
		<-gctx.Done()
		scheduler.Stop()
		return nil
	})
	g.Go(func() error {
		slog.Info("server started", "addr", cfg.Addr, "notify", cfg.Notify.Transport)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server forced to shutdown", "error", err)
		}
		return nil
	})

	err = g.Wait()
	slog.Info("server stopped, closing database")
	return err
}

// newNotifier builds the delivery transport named in cfg. The returned func
// releases it.
func newNotifier(cfg config.Notify) (notify.Notifier, func(), error) {
	switch cfg.Transport {
	case notify.TransportSMTP:
		s := cfg.SMTP
		return notify.NewSMTPNotifier(s.Host, s.Port, s.Username, s.Password, s.From), func() {}, nil
	case notify.TransportAMQP:
		n, err := notify.DialAMQP(cfg.AMQP.URL, cfg.AMQP.Exchange, cfg.AMQP.RoutingKey)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to message broker: %w", err)
		}
		return n, func() { n.Close() }, nil
	default:
		return notify.LogNotifier{Logger: slog.Default()}, func() {}, nil
	}
}

// initDatabase creates a new database, ensures the schema, and creates the admin user.
func initDatabase(path, adminUsername string) (*sql.DB, string, error) {
	database, err := db.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("opening database: %w", err)
	}

	fail := func(err error) (*sql.DB, string, error) {
		database.Close()
		os.Remove(path)
		return nil, "", err
	}

	if err := db.EnsureSchema(database); err != nil {
		return fail(fmt.Errorf("ensuring schema: %w", err))
	}

	password := rand.Text()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fail(fmt.Errorf("hashing password: %w", err))
	}

	_, err = store.CreateUser(context.Background(), database, adminUsername, string(hash), model.RoleAdmin, "")
	if err != nil {
		return fail(fmt.Errorf("creating admin user: %w", err))
	}

	return database, password, nil
}

// printInitResult prints the database initialization result to stdout.
func printInitResult(dbPath, username, password string) {
	fmt.Printf("Database created: %s\n", dbPath)
	fmt.Println("Schema initialized.")
	fmt.Println()
	fmt.Println("Admin account created:")
	fmt.Printf("  Username: %s\n", username)
	fmt.Printf("  Password: %s\n", password)
	fmt.Println()
	fmt.Println("Save this password, it cannot be recovered.")
	fmt.Println("The admin can change it after logging in.")
}
