// Package auth obtains an API token by sending the user through the
// browser authorization page and polling until the server has linked a
// token to this device.
package auth

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/cooksync/cooksync/internal/identity"
	"github.com/cooksync/cooksync/internal/notify"
	"github.com/cooksync/cooksync/pkg/cooksync"
)

// Defaults for the polling loop.
const (
	DefaultMaxAttempts  = 51
	DefaultPollInterval = 3 * time.Second
)

// State is the acquisition state.
type State string

const (
	StateIdle                  State = "idle"
	StateAwaitingAuthorization State = "awaiting_authorization"
	StatePolling               State = "polling"
	StateAuthorized            State = "authorized"
	StateFailed                State = "failed"
)

// TokenAPI is the part of the service client the acquirer needs.
type TokenAPI interface {
	AuthorizationURL(deviceID string) string
	FetchToken(ctx context.Context, deviceID string) (string, error)
}

// BrowserOpener opens a URL for the user.
type BrowserOpener interface {
	Open(url string) error
}

// TokenSink receives the token once the server hands it out.
type TokenSink interface {
	StoreToken(ctx context.Context, token string) error
}

// Config controls the polling budget.
type Config struct {
	// MaxAttempts is the total number of token lookups.
	MaxAttempts  int
	PollInterval time.Duration
}

// Acquirer runs the authorization flow.
type Acquirer struct {
	cfg      Config
	api      TokenAPI
	ids      identity.Provider
	browser  BrowserOpener
	sink     TokenSink
	notifier notify.Notifier
	logger   *slog.Logger

	mu    sync.RWMutex
	state State
}

// NewAcquirer creates an Acquirer. Zero config values take the defaults.
func NewAcquirer(cfg Config, api TokenAPI, ids identity.Provider, browser BrowserOpener, sink TokenSink, notifier notify.Notifier, logger *slog.Logger) *Acquirer {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	return &Acquirer{
		cfg:      cfg,
		api:      api,
		ids:      ids,
		browser:  browser,
		sink:     sink,
		notifier: notifier,
		logger:   logger,
		state:    StateIdle,
	}
}

// State returns the current acquisition state.
func (a *Acquirer) State() State {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state
}

func (a *Acquirer) setState(s State) {
	a.mu.Lock()
	a.state = s
	a.mu.Unlock()
}

// AcquireToken opens the authorization page once and polls for a token.
// ok is false when the flow failed, ran out of attempts or ctx ended.
func (a *Acquirer) AcquireToken(ctx context.Context) (token string, ok bool) {
	deviceID := a.ids.DeviceID()

	a.setState(StateAwaitingAuthorization)
	authURL := a.api.AuthorizationURL(deviceID)
	if err := a.browser.Open(authURL); err != nil {
		a.logger.Warn("open authorization page", "url", authURL, "error", err)
		a.notifier.Info("Open this page to authorize Cooksync: " + authURL)
	}

	a.setState(StatePolling)
	for attempt := 0; attempt < a.cfg.MaxAttempts; attempt++ {
		tok, err := a.api.FetchToken(ctx, deviceID)
		if err != nil {
			a.setState(StateFailed)
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return "", false
			}
			var statusErr *cooksync.StatusError
			if errors.As(err, &statusErr) {
				a.logger.Warn("token lookup rejected", "attempt", attempt, "error", err)
				return "", false
			}
			a.logger.Error("token lookup failed", "attempt", attempt, "error", err)
			a.notifier.Error("Authorization failed. Please try again")
			return "", false
		}

		if tok != "" {
			if err := a.sink.StoreToken(context.WithoutCancel(ctx), tok); err != nil {
				a.logger.Error("persist token", "error", err)
				a.notifier.Error("Could not save the Cooksync token. Please try again")
				a.setState(StateFailed)
				return "", false
			}
			a.setState(StateAuthorized)
			a.logger.Info("authorized", "attempts", attempt+1)
			return tok, true
		}

		if attempt == a.cfg.MaxAttempts-1 {
			break
		}
		a.logger.Debug("token not ready, retrying", "attempt", attempt+1)

		timer := time.NewTimer(a.cfg.PollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			a.setState(StateFailed)
			return "", false
		case <-timer.C:
		}
	}

	a.logger.Warn("reached attempt limit waiting for authorization", "attempts", a.cfg.MaxAttempts)
	a.setState(StateFailed)
	return "", false
}
