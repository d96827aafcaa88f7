// Package session owns the authenticated-session lifecycle: it establishes
// the identity on start, keeps the tokens fresh while a user is present,
// reacts to logouts performed by other tabs, and exposes the sign-in,
// sign-out and refetch operations the rest of the application funnels
// through.
package session

import (
	"context"
	"net/url"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/careflow/go-emr-client/api"
	"github.com/careflow/go-emr-client/internal/config"
	"github.com/careflow/go-emr-client/redirect"
	"github.com/careflow/go-emr-client/store"
	"github.com/careflow/go-emr-client/token/refresh"
)

// Manager is the session context. It is constructed once at application
// start and passed by reference to every consumer; there is no ambient
// singleton. Start mounts it, Close unmounts it.
type Manager struct {
	cfg      config.Config
	executor api.Executor
	store    *store.Store
	loop     *refresh.Loop
	log      zerolog.Logger
	nav      Navigator
	locate   Locator

	lock        sync.Mutex
	started     bool
	identity    *api.Identity
	state       State
	unsubscribe func()
	listeners   []func(State)
}

// ManagerOption modifies a Manager instance.
type ManagerOption func(*Manager)

// WithNavigator sets the navigation sink.
func WithNavigator(nav Navigator) ManagerOption {
	return func(m *Manager) {
		m.nav = nav
	}
}

// WithLocator sets the current-location provider.
func WithLocator(locate Locator) ManagerOption {
	return func(m *Manager) {
		m.locate = locate
	}
}

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) ManagerOption {
	return func(m *Manager) {
		m.log = log
	}
}

// NewManager creates the session context over a tab-scoped store and an
// executor. The token refresh interval comes from cfg.
func NewManager(cfg config.Config, executor api.Executor, st *store.Store, options ...ManagerOption) (*Manager, error) {
	if cfg == nil {
		return nil, errors.New("[NewManager] config is required")
	}
	if executor == nil {
		return nil, errors.New("[NewManager] executor is required")
	}
	if st == nil {
		return nil, errors.New("[NewManager] store is required")
	}

	m := &Manager{
		cfg:      cfg,
		executor: executor,
		store:    st,
		state:    StateLoading,
		locate:   func() *url.URL { return &url.URL{Scheme: "http", Host: "localhost", Path: "/"} },
	}
	for _, opt := range options {
		opt(m)
	}
	if m.nav == nil {
		m.nav = logNavigator{log: m.log}
	}

	loop, err := refresh.NewLoop(st, executor, cfg.GetTokenRefreshInterval(), m.log)
	if err != nil {
		return nil, errors.Wrap(err, "[NewManager] refresh.NewLoop")
	}
	m.loop = loop

	return m, nil
}

// Start mounts the session: it runs the initial identity query, installs
// the cross-tab logout listener and, if a user is present, starts the
// refresh loop. A failed identity query is the same as no identity; it is
// never surfaced as an error.
func (m *Manager) Start(ctx context.Context) error {
	m.lock.Lock()
	if m.started {
		m.lock.Unlock()
		return errors.New("[Manager.Start] already started")
	}
	m.started = true
	m.state = StateLoading
	m.lock.Unlock()

	m.RefetchUser(ctx)

	m.lock.Lock()
	m.unsubscribe = m.store.Subscribe(
		[]string{store.AccessTokenKey, store.RefreshTokenKey},
		m.onTokenEvent,
	)
	m.lock.Unlock()

	return nil
}

// Close unmounts the session: the refresh loop is stopped and the
// cross-tab listener removed. Safe to call more than once.
func (m *Manager) Close() {
	m.lock.Lock()
	m.started = false
	unsubscribe := m.unsubscribe
	m.unsubscribe = nil
	m.lock.Unlock()

	m.loop.Stop()
	if unsubscribe != nil {
		unsubscribe()
	}
}

// CurrentState returns the session's rendering state.
func (m *Manager) CurrentState() State {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.state
}

// Identity returns the authenticated user, or nil.
func (m *Manager) Identity() *api.Identity {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.identity
}

// OnStateChange registers fn to run after every state transition. The
// callback runs outside the manager's lock.
func (m *Manager) OnStateChange(fn func(State)) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.listeners = append(m.listeners, fn)
}

// SignIn submits credentials. On success the token pair is stored as a
// unit, the identity refetched, and — when the user is sitting on the root
// or login page — navigation goes to the resolved redirect target. On
// failure nothing is mutated and the result is returned for the caller's
// error display; the session itself surfaces nothing.
func (m *Manager) SignIn(ctx context.Context, creds api.Credentials) api.Result[api.TokenPair] {
	res := m.executor.Login(ctx, creds)
	if !res.Ok() {
		return res
	}

	if err := m.store.SetTokens(res.Data.Access, res.Data.Refresh); err != nil {
		res.Err = errors.Wrap(err, "[Manager.SignIn] store.SetTokens")
		return res
	}

	m.RefetchUser(ctx)

	loc := m.locate()
	if loc != nil && (loc.Path == "/" || loc.Path == m.cfg.GetLoginPath()) {
		m.nav.Navigate(redirect.Resolve(loc, "/"))
	}
	return res
}

// SignOut clears both tokens as a unit, refetches the identity (which
// settles to absent) and navigates to the login view. Unless the user was
// already on the login view, the target carries a redirect parameter
// pointing back at the pre-logout location.
func (m *Manager) SignOut(ctx context.Context) error {
	loc := m.locate()

	if err := m.store.ClearTokens(); err != nil {
		return errors.Wrap(err, "[Manager.SignOut] store.ClearTokens")
	}

	m.RefetchUser(ctx)
	m.navigateToLogin(loc)
	return nil
}

// RefetchUser forces the identity query to re-run and returns its settled
// outcome. The state machine and the refresh loop follow the new identity:
// the loop runs exactly while a user is present.
func (m *Manager) RefetchUser(ctx context.Context) api.Result[api.Identity] {
	res := m.executor.CurrentUser(ctx)

	m.lock.Lock()
	if res.Ok() {
		m.identity = res.Data
	} else {
		m.identity = nil
	}
	previous := m.state
	m.state = m.deriveStateLocked()
	changed := m.state != previous
	current := m.state
	listeners := append([]func(State){}, m.listeners...)
	hasUser := m.identity != nil
	m.lock.Unlock()

	if hasUser {
		m.loop.Start()
	} else {
		m.loop.Stop()
	}

	if changed {
		m.log.Debug().Stringer("from", previous).Stringer("to", current).Msg("Session state changed")
		for _, fn := range listeners {
			fn(current)
		}
	}
	return res
}

func (m *Manager) deriveStateLocked() State {
	if m.identity != nil {
		return StateAuthenticated
	}
	if _, ok := m.store.OTPToken(); ok {
		return StateOTPAuthorized
	}
	return StateUnauthenticated
}

// onTokenEvent is the cross-tab logout propagator. The change bus never
// delivers this tab's own writes, so everything arriving here originated
// elsewhere. Only clears matter: a clear of either token key means another
// tab signed out, and this tab must follow without a reload.
func (m *Manager) onTokenEvent(ev store.Event) {
	if !ev.Cleared() {
		return
	}

	m.lock.Lock()
	active := m.started && (m.identity != nil || m.loop.Running())
	m.lock.Unlock()
	if !active {
		// Already signed out; the second event of a paired clear (or a
		// clear seen by an unauthenticated tab) changes nothing.
		return
	}

	m.log.Info().Str("key", ev.Key).Msg("Tokens cleared by another tab, signing out")
	loc := m.locate()
	m.RefetchUser(context.Background())
	m.navigateToLogin(loc)
}

func (m *Manager) navigateToLogin(from *url.URL) {
	login := m.cfg.GetLoginPath()
	if from != nil && from.Path != login {
		m.nav.Navigate(redirect.WithReturnTo(login, pathWithQuery(from)))
		return
	}
	m.nav.Navigate(login)
}

func pathWithQuery(u *url.URL) string {
	target := u.EscapedPath()
	if target == "" {
		target = "/"
	}
	if u.RawQuery != "" {
		target += "?" + u.RawQuery
	}
	return target
}
