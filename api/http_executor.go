package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const (
	loginPath        = "/api/auth/login/"
	tokenRefreshPath = "/api/auth/token/refresh/"
	currentUserPath  = "/api/users/me/"

	defaultTimeout = 15 * time.Second
)

// TokenSource supplies the bearer credential attached to authenticated
// calls. The session token store satisfies this.
type TokenSource interface {
	AccessToken() (string, bool)
}

var _ Executor = (*HTTPExecutor)(nil)

// HTTPExecutor is the net/http implementation of Executor against the EMR
// REST backend. Silent calls (CurrentUser, TokenRefresh) log failures at
// debug level only.
type HTTPExecutor struct {
	baseURL string
	tokens  TokenSource
	client  *http.Client
	log     zerolog.Logger
}

// HTTPExecutorOption modifies an HTTPExecutor instance.
type HTTPExecutorOption func(*HTTPExecutor)

// WithHTTPClient overrides the underlying http.Client.
func WithHTTPClient(client *http.Client) HTTPExecutorOption {
	return func(e *HTTPExecutor) {
		e.client = client
	}
}

// NewHTTPExecutor creates an executor for the backend at baseURL. tokens may
// be nil, in which case no bearer header is attached.
func NewHTTPExecutor(baseURL string, tokens TokenSource, log zerolog.Logger, options ...HTTPExecutorOption) (*HTTPExecutor, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("[NewHTTPExecutor] baseURL is required")
	}
	e := &HTTPExecutor{
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		client:  &http.Client{Timeout: defaultTimeout},
		log:     log,
	}
	for _, opt := range options {
		opt(e)
	}
	return e, nil
}

// CurrentUser fetches the authenticated user's profile. A failure of any
// kind yields a Result with no Data; it is never treated as fatal.
func (e *HTTPExecutor) CurrentUser(ctx context.Context) Result[Identity] {
	res := doJSON[Identity](ctx, e, http.MethodGet, currentUserPath, nil, true)
	if res.Err != nil {
		e.log.Debug().Err(res.Err).Msg("current user query failed")
	}
	return res
}

// Login exchanges credentials for a token pair.
func (e *HTTPExecutor) Login(ctx context.Context, creds Credentials) Result[TokenPair] {
	return doJSON[TokenPair](ctx, e, http.MethodPost, loginPath, creds, false)
}

// TokenRefresh exchanges a refresh token for a new pair. Silent: failures
// are reported only through the Result.
func (e *HTTPExecutor) TokenRefresh(ctx context.Context, refresh string) Result[TokenPair] {
	body := map[string]string{"refresh": refresh}
	res := doJSON[TokenPair](ctx, e, http.MethodPost, tokenRefreshPath, body, false)
	if res.Err != nil {
		e.log.Debug().Err(res.Err).Msg("token refresh call failed")
	}
	return res
}

// doJSON performs one JSON round trip. Non-2xx responses and decode
// failures produce a Result with the status set and Data nil.
func doJSON[T any](ctx context.Context, e *HTTPExecutor, method, path string, body any, bearer bool) Result[T] {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return Result[T]{Err: errors.Wrap(err, "[HTTPExecutor] json.Marshal")}
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, e.baseURL+path, reader)
	if err != nil {
		return Result[T]{Err: errors.Wrap(err, "[HTTPExecutor] http.NewRequest")}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer && e.tokens != nil {
		if access, ok := e.tokens.AccessToken(); ok {
			req.Header.Set("Authorization", "Bearer "+access)
		}
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return Result[T]{Err: errors.Wrap(err, "[HTTPExecutor] client.Do")}
	}
	defer resp.Body.Close()

	result := Result[T]{Status: resp.StatusCode}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return result
	}

	var payload T
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		result.Err = errors.Wrap(err, "[HTTPExecutor] decode response")
		return result
	}
	result.Data = &payload
	return result
}
