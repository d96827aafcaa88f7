package refresh_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/careflow/go-emr-client/api"
	"github.com/careflow/go-emr-client/api/apifakes"
	"github.com/careflow/go-emr-client/store"
	"github.com/careflow/go-emr-client/token/refresh"
)

const (
	oldAccess  = "access-old"
	oldRefresh = "refresh-old"
	newAccess  = "access-new"
	newRefresh = "refresh-new"
)

func okPair(access, refreshToken string) api.Result[api.TokenPair] {
	return api.Result[api.TokenPair]{
		Data:   &api.TokenPair{Access: access, Refresh: refreshToken},
		Status: 200,
	}
}

func setupLoop(t *testing.T, interval time.Duration) (*refresh.Loop, *store.Store, *apifakes.FakeExecutor) {
	t.Helper()

	s, err := store.New(store.NewMemoryBackend())
	require.NoError(t, err)
	executor := apifakes.NewFakeExecutor()

	loop, err := refresh.NewLoop(s, executor, interval, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(loop.Stop)

	return loop, s, executor
}

func TestNewLoop_ValidatesDependencies(t *testing.T) {
	s, err := store.New(store.NewMemoryBackend())
	require.NoError(t, err)
	executor := apifakes.NewFakeExecutor()

	_, err = refresh.NewLoop(nil, executor, time.Minute, zerolog.Nop())
	require.Error(t, err)
	_, err = refresh.NewLoop(s, nil, time.Minute, zerolog.Nop())
	require.Error(t, err)
	_, err = refresh.NewLoop(s, executor, 0, zerolog.Nop())
	require.Error(t, err)
}

func TestTick_NoRefreshTokenIsSilentNoOp(t *testing.T) {
	loop, s, executor := setupLoop(t, time.Minute)

	loop.Tick(context.Background())

	require.Zero(t, executor.RefreshCallCount(), "no network call without a refresh token")
	_, ok := s.AccessToken()
	require.False(t, ok)
	_, ok = s.RefreshToken()
	require.False(t, ok)
}

func TestTick_SuccessOverwritesBothTokens(t *testing.T) {
	loop, s, executor := setupLoop(t, time.Minute)
	require.NoError(t, s.SetTokens(oldAccess, oldRefresh))
	executor.SetTokenRefreshResult(okPair(newAccess, newRefresh))

	loop.Tick(context.Background())

	require.Equal(t, []string{oldRefresh}, executor.TokenRefreshCalls)
	access, ok := s.AccessToken()
	require.True(t, ok)
	require.Equal(t, newAccess, access)
	refreshToken, ok := s.RefreshToken()
	require.True(t, ok)
	require.Equal(t, newRefresh, refreshToken)
}

func TestTick_Non200ClearsBothTokens(t *testing.T) {
	loop, s, executor := setupLoop(t, time.Minute)
	require.NoError(t, s.SetTokens(oldAccess, oldRefresh))
	executor.SetTokenRefreshResult(api.Result[api.TokenPair]{Status: 401})

	loop.Tick(context.Background())

	_, ok := s.AccessToken()
	require.False(t, ok)
	_, ok = s.RefreshToken()
	require.False(t, ok)
}

func TestTick_EmptyPayloadClearsBothTokens(t *testing.T) {
	loop, s, executor := setupLoop(t, time.Minute)
	require.NoError(t, s.SetTokens(oldAccess, oldRefresh))
	executor.SetTokenRefreshResult(api.Result[api.TokenPair]{Status: 200})

	loop.Tick(context.Background())

	_, ok := s.RefreshToken()
	require.False(t, ok)
}

func TestTick_PartialPayloadClearsBothTokens(t *testing.T) {
	loop, s, executor := setupLoop(t, time.Minute)
	require.NoError(t, s.SetTokens(oldAccess, oldRefresh))
	executor.SetTokenRefreshResult(okPair(newAccess, ""))

	loop.Tick(context.Background())

	_, ok := s.RefreshToken()
	require.False(t, ok)
}

func TestStart_RunsImmediateTickThenRepeats(t *testing.T) {
	loop, s, executor := setupLoop(t, 30*time.Millisecond)
	require.NoError(t, s.SetTokens(oldAccess, oldRefresh))
	executor.SetTokenRefreshResult(okPair(newAccess, newRefresh))

	loop.Start()
	defer loop.Stop()

	require.Eventually(t, func() bool {
		return executor.RefreshCallCount() >= 1
	}, time.Second, 5*time.Millisecond, "one-shot immediate refresh")

	require.Eventually(t, func() bool {
		return executor.RefreshCallCount() >= 3
	}, 2*time.Second, 5*time.Millisecond, "repeating refresh on the interval")
}

func TestStart_IsIdempotentWhileRunning(t *testing.T) {
	loop, s, executor := setupLoop(t, time.Hour)
	require.NoError(t, s.SetTokens(oldAccess, oldRefresh))
	executor.SetTokenRefreshResult(okPair(newAccess, newRefresh))

	loop.Start()
	loop.Start()
	defer loop.Stop()

	require.Eventually(t, func() bool {
		return executor.RefreshCallCount() == 1
	}, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, 1, executor.RefreshCallCount(), "second Start must not spawn a second loop")
}

func TestStop_CancelsTheLoop(t *testing.T) {
	loop, s, executor := setupLoop(t, 20*time.Millisecond)
	require.NoError(t, s.SetTokens(oldAccess, oldRefresh))
	executor.SetTokenRefreshResult(okPair(newAccess, newRefresh))

	loop.Start()
	require.Eventually(t, func() bool {
		return executor.RefreshCallCount() >= 1
	}, time.Second, 5*time.Millisecond)

	loop.Stop()
	require.False(t, loop.Running())
	settled := executor.RefreshCallCount()
	time.Sleep(100 * time.Millisecond)
	require.LessOrEqual(t, executor.RefreshCallCount(), settled+1, "no further ticks after Stop")

	loop.Stop() // safe to call twice
}

func TestTick_AfterConcurrentLogoutIsHarmless(t *testing.T) {
	loop, s, executor := setupLoop(t, time.Minute)
	executor.SetTokenRefreshResult(api.Result[api.TokenPair]{Status: 401})

	// Simulate a tick firing after another path cleared the tokens: the
	// store is already empty, the tick must not call out or fail.
	require.NoError(t, s.ClearTokens())
	loop.Tick(context.Background())

	require.Zero(t, executor.RefreshCallCount())
}
