package apifakes

import (
	"context"
	"sync"

	"github.com/careflow/go-emr-client/api"
)

var _ api.Executor = (*FakeExecutor)(nil)

// FakeExecutor is a scripted executor for tests. Each call returns the
// configured result and records its input.
type FakeExecutor struct {
	lock sync.Mutex

	CurrentUserResult  api.Result[api.Identity]
	LoginResult        api.Result[api.TokenPair]
	TokenRefreshResult api.Result[api.TokenPair]

	CurrentUserCalls  int
	LoginCalls        []api.Credentials
	TokenRefreshCalls []string
}

func NewFakeExecutor() *FakeExecutor {
	return &FakeExecutor{}
}

func (f *FakeExecutor) CurrentUser(ctx context.Context) api.Result[api.Identity] {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.CurrentUserCalls++
	return f.CurrentUserResult
}

func (f *FakeExecutor) Login(ctx context.Context, creds api.Credentials) api.Result[api.TokenPair] {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.LoginCalls = append(f.LoginCalls, creds)
	return f.LoginResult
}

func (f *FakeExecutor) TokenRefresh(ctx context.Context, refresh string) api.Result[api.TokenPair] {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.TokenRefreshCalls = append(f.TokenRefreshCalls, refresh)
	return f.TokenRefreshResult
}

// RefreshCallCount returns how many refresh calls were made.
func (f *FakeExecutor) RefreshCallCount() int {
	f.lock.Lock()
	defer f.lock.Unlock()
	return len(f.TokenRefreshCalls)
}

// SetLoginResult swaps the scripted login result.
func (f *FakeExecutor) SetLoginResult(res api.Result[api.TokenPair]) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.LoginResult = res
}

// SetCurrentUserResult swaps the scripted identity result.
func (f *FakeExecutor) SetCurrentUserResult(res api.Result[api.Identity]) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.CurrentUserResult = res
}

// SetTokenRefreshResult swaps the scripted refresh result.
func (f *FakeExecutor) SetTokenRefreshResult(res api.Result[api.TokenPair]) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.TokenRefreshResult = res
}
