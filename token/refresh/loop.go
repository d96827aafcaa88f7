// Package refresh keeps the access token valid for as long as a session is
// active, by silently exchanging the refresh token on a fixed interval.
package refresh

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/careflow/go-emr-client/api"
	"github.com/careflow/go-emr-client/token"
)

// TokenStore is the slice of the session store the loop needs: the paired
// token operations.
type TokenStore interface {
	RefreshToken() (string, bool)
	SetTokens(access, refresh string) error
	ClearTokens() error
}

// Loop is a cancellable scheduled task: Start runs one immediate refresh
// and then repeats on the configured interval until Stop is called.
type Loop struct {
	store    TokenStore
	executor api.Executor
	interval time.Duration
	log      zerolog.Logger

	lock   sync.Mutex
	cancel context.CancelFunc
}

// NewLoop creates a refresh loop. The interval comes from application
// configuration, never from a constant at the call site.
func NewLoop(store TokenStore, executor api.Executor, interval time.Duration, log zerolog.Logger) (*Loop, error) {
	if store == nil {
		return nil, errors.New("[refresh.NewLoop] store is required")
	}
	if executor == nil {
		return nil, errors.New("[refresh.NewLoop] executor is required")
	}
	if interval <= 0 {
		return nil, errors.New("[refresh.NewLoop] interval must be positive")
	}
	return &Loop{
		store:    store,
		executor: executor,
		interval: interval,
		log:      log,
	}, nil
}

// Start launches the loop: one immediate tick, then a repeating tick every
// interval. Calling Start on a running loop is a no-op.
func (l *Loop) Start() {
	l.lock.Lock()
	if l.cancel != nil {
		l.lock.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	l.cancel = cancel
	l.lock.Unlock()

	go l.run(ctx)
}

// Stop cancels the loop. Safe to call on a stopped loop.
func (l *Loop) Stop() {
	l.lock.Lock()
	defer l.lock.Unlock()
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
}

// Running reports whether the loop is currently scheduled.
func (l *Loop) Running() bool {
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.cancel != nil
}

func (l *Loop) run(ctx context.Context) {
	l.Tick(ctx)

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Tick(ctx)
		}
	}
}

// Tick performs a single silent refresh. With no refresh token stored it
// does nothing: that state is indistinguishable from a logout that raced
// this tick, and both are fine to ignore. Any failed exchange clears both
// tokens, which forces the session to the login view.
func (l *Loop) Tick(ctx context.Context) {
	refreshToken, ok := l.store.RefreshToken()
	if !ok {
		l.log.Debug().Msg("Refresh tick skipped: no refresh token")
		return
	}

	res := l.executor.TokenRefresh(ctx, refreshToken)
	if !res.Ok() || res.Data.Access == "" || res.Data.Refresh == "" {
		l.log.Info().Int("status", res.Status).Err(res.Err).Msg("Token refresh failed, clearing session tokens")
		if err := l.store.ClearTokens(); err != nil {
			l.log.Error().Err(err).Msg("Failed to clear tokens after refresh failure")
		}
		return
	}

	if err := l.store.SetTokens(res.Data.Access, res.Data.Refresh); err != nil {
		l.log.Error().Err(err).Msg("Failed to store refreshed tokens")
		return
	}
	if exp, ok := token.PeekExpiry(res.Data.Access); ok {
		l.log.Debug().Time("expires_at", exp).Msg("Access token refreshed")
	} else {
		l.log.Debug().Msg("Access token refreshed")
	}
}
