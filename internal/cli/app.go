package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/roach88/golem/internal/config"
	"github.com/roach88/golem/internal/content"
	"github.com/roach88/golem/internal/engine"
	"github.com/roach88/golem/internal/sandbox"
	"github.com/roach88/golem/internal/session"
	"github.com/roach88/golem/internal/store"
)

// app is everything a learner-facing command needs: the configured store,
// the attempt journal and an open session.
type app struct {
	cfg      config.Config
	logger   *slog.Logger
	kv       store.KV
	journal  *store.Store
	registry *prometheus.Registry
	session  *session.Session
	out      *OutputFormatter
}

// loadConfig resolves configuration: file, environment, then flags.
func loadConfig(opts *RootOptions) (config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath, func(c *config.Config) {
		if opts.DataDir != "" {
			c.DataDir = opts.DataDir
		}
		if opts.Backend != "" {
			c.Backend = opts.Backend
		}
		if opts.Content != "" {
			c.ContentPath = opts.Content
		}
		if opts.Verbose {
			c.LogLevel = "debug"
		}
	})
	if err != nil {
		return cfg, WrapExitError(ExitCommandError, "configuration", err)
	}
	return cfg, nil
}

// loadCurriculum loads path, or the builtin curriculum when path is empty.
func loadCurriculum(path string) (*content.Curriculum, error) {
	if path == "" {
		return content.Builtin()
	}
	return content.Load(path)
}

// openApp assembles a session from configuration. Callers must Close it.
func openApp(cmd *cobra.Command, opts *RootOptions) (*app, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: cfg.Level()}))
	ctx := cmd.Context()

	a := &app{
		cfg:      cfg,
		logger:   logger,
		registry: prometheus.NewRegistry(),
		out:      newFormatter(opts, cmd),
	}
	if err := a.openStores(); err != nil {
		a.Close()
		return nil, WrapExitError(ExitCommandError, "open progress store", err)
	}

	cur, err := loadCurriculum(cfg.ContentPath)
	if err != nil {
		a.Close()
		return nil, WrapExitError(ExitCommandError, "load curriculum", err)
	}

	lastSeq, err := a.journal.LastAttemptSeq(ctx)
	if err != nil {
		a.Close()
		return nil, WrapExitError(ExitCommandError, "read attempt journal", err)
	}

	host := sandbox.Shared()
	if opts.NewHost != nil {
		host = opts.NewHost()
	}

	a.session, err = session.Open(ctx, session.Options{
		Curriculum: cur,
		Prefs:      store.NewPreferences(a.kv, logger),
		Host:       host,
		Logger:     logger,
		EngineOptions: []engine.Option{
			engine.WithJournal(a.journal),
			engine.WithClock(engine.NewClockAt(lastSeq)),
			engine.WithEntryPoint(cfg.EntryPoint),
			engine.WithMetrics(a.registry),
		},
	})
	if err != nil {
		a.Close()
		return nil, WrapExitError(ExitCommandError, "open session", err)
	}
	logger.Debug("session opened",
		"backend", cfg.Backend,
		"store", cfg.StorePath(),
		"chapters", cur.Len(),
		"last_seq", lastSeq,
	)
	return a, nil
}

func (a *app) openStores() error {
	if a.cfg.Backend != config.BackendMemory {
		if err := os.MkdirAll(a.cfg.DataDir, 0o755); err != nil {
			return fmt.Errorf("create data dir: %w", err)
		}
	}

	switch a.cfg.Backend {
	case config.BackendSQLite:
		s, err := store.Open(a.cfg.StorePath())
		if err != nil {
			return err
		}
		a.kv, a.journal = s, s
		return nil
	case config.BackendBadger:
		b, err := store.OpenBadger(a.cfg.StorePath(), a.logger)
		if err != nil {
			return err
		}
		a.kv = b
	default:
		a.kv = store.NewMemory()
	}

	journal, err := store.Open(a.cfg.JournalPath())
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	a.journal = journal
	return nil
}

// requireHost fails when the interpreter could not start.
func (a *app) requireHost() error {
	if err := a.session.HostError(); err != nil {
		return WrapExitError(ExitCommandError, "interpreter unavailable", err)
	}
	return nil
}

// Close releases the session and both stores.
func (a *app) Close() {
	if a.session != nil {
		a.session.Close()
	}
	var errs []error
	if a.kv != nil {
		errs = append(errs, a.kv.Close())
	}
	if a.journal != nil && store.KV(a.journal) != a.kv {
		errs = append(errs, a.journal.Close())
	}
	if err := errors.Join(errs...); err != nil {
		a.logger.Warn("close stores", "error", err)
	}
}

// withApp opens the app, runs fn and closes it.
func withApp(cmd *cobra.Command, opts *RootOptions, fn func(ctx context.Context, a *app) error) error {
	a, err := openApp(cmd, opts)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(cmd.Context(), a)
}
