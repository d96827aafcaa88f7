// Package store provides the persistent key-value surface that holds the
// session tokens. The backing medium is shared by every client context
// ("tab") of the same origin; each mutation is published to the other
// contexts through a change bus, never back to the context that made it.
package store

import (
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Fixed keys of the shared storage substrate.
const (
	AccessTokenKey     = "access_token"
	RefreshTokenKey    = "refresh_token"
	PatientOTPTokenKey = "patient_otp_token"
	ThemeKey           = "theme"
)

// Store is a tab-scoped handle over a shared Backend. Every Store attached
// to the same Backend sees the same data; change notifications fan out to
// all attached Stores except the one that performed the mutation.
type Store struct {
	backend Backend
	origin  string
	nowTime func() time.Time
}

// StoreOption modifies a Store instance.
type StoreOption func(*Store)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) StoreOption {
	return func(s *Store) {
		s.nowTime = nowFunc
	}
}

// New attaches a new tab-scoped Store to a Backend.
func New(backend Backend, options ...StoreOption) (*Store, error) {
	if backend == nil {
		return nil, errors.New("[store.New] backend is required")
	}
	s := &Store{
		backend: backend,
		origin:  uuid.New().String(),
		nowTime: time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// Origin returns the identifier under which this Store's mutations are
// published. Notifications carrying this origin are never delivered back
// to this Store's subscribers.
func (s *Store) Origin() string {
	return s.origin
}

// Get returns the value stored under key.
func (s *Store) Get(key string) (string, bool) {
	return s.backend.Get(key)
}

// Set writes a single key.
func (s *Store) Set(key, value string) error {
	return s.backend.Apply(s.origin, []Mutation{{Key: key, Value: &value}})
}

// Clear removes a single key.
func (s *Store) Clear(key string) error {
	return s.backend.Apply(s.origin, []Mutation{{Key: key}})
}

// Subscribe registers fn for change notifications on the given keys,
// excluding changes made through this Store. The returned function removes
// the subscription.
func (s *Store) Subscribe(keys []string, fn func(Event)) func() {
	return s.backend.Subscribe(s.origin, keys, fn)
}

// AccessToken returns the stored access token, if any.
func (s *Store) AccessToken() (string, bool) {
	return s.backend.Get(AccessTokenKey)
}

// RefreshToken returns the stored refresh token, if any.
func (s *Store) RefreshToken() (string, bool) {
	return s.backend.Get(RefreshTokenKey)
}

// SetTokens writes the access and refresh tokens as a unit: both are applied
// under a single backend transaction, so a concurrent reader or change
// listener can never observe only one of the pair.
func (s *Store) SetTokens(access, refresh string) error {
	if err := s.backend.Apply(s.origin, []Mutation{
		{Key: AccessTokenKey, Value: &access},
		{Key: RefreshTokenKey, Value: &refresh},
	}); err != nil {
		return errors.Wrap(err, "[Store.SetTokens] backend.Apply")
	}
	return nil
}

// ClearTokens removes the access and refresh tokens as a unit. Clearing
// tokens that are already absent is a no-op.
func (s *Store) ClearTokens() error {
	if err := s.backend.Apply(s.origin, []Mutation{
		{Key: AccessTokenKey},
		{Key: RefreshTokenKey},
	}); err != nil {
		return errors.Wrap(err, "[Store.ClearTokens] backend.Apply")
	}
	return nil
}

// Theme returns the stored UI theme preference. The theme shares the storage
// substrate with the session tokens but takes no part in the auth lifecycle.
func (s *Store) Theme() (string, bool) {
	return s.backend.Get(ThemeKey)
}

// SetTheme stores the UI theme preference.
func (s *Store) SetTheme(theme string) error {
	return s.Set(ThemeKey, theme)
}
