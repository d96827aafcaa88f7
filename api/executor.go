package api

import "context"

// Result mirrors the {data, response, error} triple the EMR backend client
// hands back for every call. Data is nil when the call failed or the
// payload was empty; Status is the HTTP status code, zero when the request
// never reached the server.
type Result[T any] struct {
	Data   *T
	Status int
	Err    error
}

// Ok reports whether the call succeeded with a usable payload.
func (r Result[T]) Ok() bool {
	return r.Err == nil && r.Status >= 200 && r.Status < 300 && r.Data != nil
}

// Executor performs the authentication calls against the EMR backend.
// CurrentUser and TokenRefresh are silent calls: implementations must not
// surface their failures to the user, only to the caller.
type Executor interface {
	CurrentUser(ctx context.Context) Result[Identity]
	Login(ctx context.Context, creds Credentials) Result[TokenPair]
	TokenRefresh(ctx context.Context, refresh string) Result[TokenPair]
}
