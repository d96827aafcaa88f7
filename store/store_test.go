package store_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/careflow/go-emr-client/store"
)

const (
	testAccessToken  = "access-token-1"
	testRefreshToken = "refresh-token-1"
)

func newMemoryStore(t *testing.T, options ...store.StoreOption) (*store.Store, *store.MemoryBackend) {
	t.Helper()
	backend := store.NewMemoryBackend()
	s, err := store.New(backend, options...)
	require.NoError(t, err)
	return s, backend
}

func TestStore_SetAndGet(t *testing.T) {
	s, _ := newMemoryStore(t)

	require.NoError(t, s.Set(store.ThemeKey, "dark"))

	theme, ok := s.Theme()
	require.True(t, ok)
	require.Equal(t, "dark", theme)

	require.NoError(t, s.Clear(store.ThemeKey))
	_, ok = s.Theme()
	require.False(t, ok)
}

func TestStore_SetTokensWritesBoth(t *testing.T) {
	s, _ := newMemoryStore(t)

	require.NoError(t, s.SetTokens(testAccessToken, testRefreshToken))

	access, ok := s.AccessToken()
	require.True(t, ok)
	require.Equal(t, testAccessToken, access)

	refresh, ok := s.RefreshToken()
	require.True(t, ok)
	require.Equal(t, testRefreshToken, refresh)
}

func TestStore_ClearTokensClearsBoth(t *testing.T) {
	s, _ := newMemoryStore(t)
	require.NoError(t, s.SetTokens(testAccessToken, testRefreshToken))

	require.NoError(t, s.ClearTokens())

	_, ok := s.AccessToken()
	require.False(t, ok)
	_, ok = s.RefreshToken()
	require.False(t, ok)
}

func TestStore_ClearTokensWhenAbsentIsNoOp(t *testing.T) {
	s, backend := newMemoryStore(t)

	other, err := store.New(backend)
	require.NoError(t, err)
	var events []store.Event
	other.Subscribe(nil, func(ev store.Event) {
		events = append(events, ev)
	})

	require.NoError(t, s.ClearTokens())
	require.Empty(t, events, "clearing absent tokens must not notify anyone")
}

func TestStore_OwnWritesDoNotNotifySelf(t *testing.T) {
	s, _ := newMemoryStore(t)

	var events []store.Event
	s.Subscribe([]string{store.AccessTokenKey, store.RefreshTokenKey}, func(ev store.Event) {
		events = append(events, ev)
	})

	require.NoError(t, s.SetTokens(testAccessToken, testRefreshToken))
	require.NoError(t, s.ClearTokens())

	require.Empty(t, events, "a tab must never observe its own writes")
}

func TestStore_OtherTabObservesPairedMutations(t *testing.T) {
	tabA, backend := newMemoryStore(t)
	tabB, err := store.New(backend)
	require.NoError(t, err)

	var events []store.Event
	tabB.Subscribe([]string{store.AccessTokenKey, store.RefreshTokenKey}, func(ev store.Event) {
		events = append(events, ev)
	})

	require.NoError(t, tabA.SetTokens(testAccessToken, testRefreshToken))
	require.Len(t, events, 2)
	for _, ev := range events {
		require.False(t, ev.Cleared())
		// The paired write is visible as a unit: by the time either event
		// is delivered, both tokens are already readable.
		_, ok := tabB.AccessToken()
		require.True(t, ok)
		_, ok = tabB.RefreshToken()
		require.True(t, ok)
	}

	events = nil
	require.NoError(t, tabA.ClearTokens())
	require.Len(t, events, 2)
	for _, ev := range events {
		require.True(t, ev.Cleared())
	}
}

func TestStore_SubscriptionFiltersByKey(t *testing.T) {
	tabA, backend := newMemoryStore(t)
	tabB, err := store.New(backend)
	require.NoError(t, err)

	var events []store.Event
	tabB.Subscribe([]string{store.AccessTokenKey}, func(ev store.Event) {
		events = append(events, ev)
	})

	require.NoError(t, tabA.SetTheme("dark"))
	require.Empty(t, events, "unrelated keys must not notify")

	require.NoError(t, tabA.Set(store.AccessTokenKey, testAccessToken))
	require.Len(t, events, 1)
	require.Equal(t, store.AccessTokenKey, events[0].Key)
}

func TestStore_UnsubscribeRemovesListener(t *testing.T) {
	tabA, backend := newMemoryStore(t)
	tabB, err := store.New(backend)
	require.NoError(t, err)

	count := 0
	unsubscribe := tabB.Subscribe([]string{store.AccessTokenKey}, func(store.Event) {
		count++
	})

	require.NoError(t, tabA.Set(store.AccessTokenKey, "one"))
	unsubscribe()
	require.NoError(t, tabA.Set(store.AccessTokenKey, "two"))

	require.Equal(t, 1, count)
}

func TestStore_OTPTokenWithinWindow(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s, _ := newMemoryStore(t, store.WithNowTime(func() time.Time { return now }))

	record := store.OTPToken{Token: "otp-1", CreatedAt: now.Add(-13 * time.Minute)}
	require.NoError(t, s.SetOTPToken(record))

	got, ok := s.OTPToken()
	require.True(t, ok)
	require.Equal(t, "otp-1", got.Token)
}

func TestStore_OTPTokenExpiredTreatedAsAbsent(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s, _ := newMemoryStore(t, store.WithNowTime(func() time.Time { return now }))

	record := store.OTPToken{Token: "otp-1", CreatedAt: now.Add(-15 * time.Minute)}
	require.NoError(t, s.SetOTPToken(record))

	_, ok := s.OTPToken()
	require.False(t, ok, "a record older than the validity window is absent even if stored")
}

func TestStore_OTPTokenMalformedTreatedAsAbsent(t *testing.T) {
	s, _ := newMemoryStore(t)

	require.NoError(t, s.Set(store.PatientOTPTokenKey, "{not json"))

	_, ok := s.OTPToken()
	require.False(t, ok)
}

func TestStore_OTPTokenEmptyTokenTreatedAsAbsent(t *testing.T) {
	s, _ := newMemoryStore(t)

	require.NoError(t, s.SetOTPToken(store.OTPToken{CreatedAt: time.Now()}))

	_, ok := s.OTPToken()
	require.False(t, ok)
}
