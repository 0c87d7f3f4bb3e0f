package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/urfave/cli/v2"

	"github.com/cooksync/cooksync/internal/auth"
	"github.com/cooksync/cooksync/internal/config"
	"github.com/cooksync/cooksync/internal/export"
	"github.com/cooksync/cooksync/internal/identity"
	"github.com/cooksync/cooksync/internal/logging"
	"github.com/cooksync/cooksync/internal/notify"
	"github.com/cooksync/cooksync/internal/settings"
	"github.com/cooksync/cooksync/internal/syncer"
	"github.com/cooksync/cooksync/internal/vault"
	"github.com/cooksync/cooksync/pkg/cooksync"
)

// runtime holds the components a command needs.
type runtime struct {
	cfg      *config.Config
	logger   *slog.Logger
	client   *cooksync.Client
	ids      identity.Provider
	activity *notify.ActivityLog
	notifier notify.Notifier
	store    settings.Store
	orch     *syncer.Orchestrator

	closers []io.Closer
}

// setup loads configuration and wires the client together.
func setup(c *cli.Context) (*runtime, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	if v := c.String("vault"); v != "" {
		cfg.Vault.Root = v
	}

	logger, logCloser, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}
	rt := &runtime{cfg: cfg, logger: logger, closers: []io.Closer{logCloser}}

	fs, err := vault.NewOS(cfg.Vault.Root)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("open vault: %w", err)
	}

	rt.store, err = settings.Open(cfg.State.Backend, cfg.ResolvePath(cfg.State.Path))
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("open settings: %w", err)
	}
	rt.closers = append(rt.closers, rt.store)

	rt.activity = notify.NewActivityLog(cfg.ResolvePath(cfg.State.ActivityPath), 200, logger)
	var out notify.Notifier = notify.NewConsole(c.App.Writer)
	if c.Bool("quiet") {
		out = notify.LogNotifier{Logger: logger}
	}
	rt.notifier = notify.Multi{out, rt.activity}

	rt.ids = identity.NewFileProvider(cfg.ResolvePath(cfg.State.IdentityPath), logger)
	rt.client = cooksync.NewClient(cooksync.Config{
		BaseURL:        cfg.Server.BaseURL,
		ClientTarget:   cfg.Server.ClientTarget,
		ClientIDHeader: cfg.Server.ClientIDHeader,
		Timeout:        cfg.Server.Timeout,
	})

	rt.orch, err = syncer.Load(c.Context,
		syncer.Config{StaleAfter: cfg.Sync.StaleAfter},
		rt.store,
		export.NewRequester(rt.client, rt.ids, logger),
		fs,
		rt.notifier,
		logger,
	)
	if err != nil {
		rt.Close()
		return nil, err
	}

	logger.Debug("runtime ready",
		"vault", fs.Root(),
		"backend", cfg.State.Backend,
		"server", cfg.Server.BaseURL,
	)
	return rt, nil
}

func (rt *runtime) acquirer(browser auth.BrowserOpener) *auth.Acquirer {
	return auth.NewAcquirer(
		auth.Config{MaxAttempts: rt.cfg.Auth.MaxAttempts, PollInterval: rt.cfg.Auth.PollInterval},
		rt.client,
		rt.ids,
		browser,
		rt.orch,
		rt.notifier,
		rt.logger,
	)
}

// Close releases files in reverse order of opening.
func (rt *runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i].Close(); err != nil {
			rt.logger.Warn("close", "error", err)
		}
	}
	rt.closers = nil
}
