package repositories

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"siramm-project/web-service/credentials"
	"siramm-project/web-service/logging"
	"siramm-project/web-service/models"
)

// Remote is the shared transport to the remote store: base URL, HTTP client
// and circuit breaker. Repositories pair it with one credential provider.
type Remote struct {
	baseURL string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
}

func NewRemote(baseURL string, client *http.Client, breaker *gobreaker.CircuitBreaker) *Remote {
	if client == nil {
		client = NewHTTPClient()
	}
	if breaker == nil {
		breaker = NewBreaker("RemoteStoreCB", 5*time.Second, 3)
	}
	return &Remote{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		breaker: breaker,
	}
}

// NewHTTPClient has no overall timeout; call sites that need one use a
// context deadline.
func NewHTTPClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        50,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// NewBreaker trips after more than maxFailures consecutive transport or 5xx
// failures and half-opens after timeout. A request the caller abandoned is
// not held against the store.
func NewBreaker(name string, timeout time.Duration, maxFailures uint32) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > maxFailures
		},
		IsSuccessful: func(err error) bool {
			var ce *callerError
			return err == nil || errors.As(err, &ce)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Logger.Infof("Event ID: CIRCUIT_BREAKER_STATE_CHANGE, Description: Circuit Breaker '%s' changed from '%s' to '%s'", name, from.String(), to.String())
		},
	})
}

type response struct {
	status int
	body   []byte
}

// serverError is returned inside the breaker so 5xx responses count as failures.
type serverError struct {
	status int
	body   string
}

func (e *serverError) Error() string { return strings.TrimSpace(e.body) }

// callerError marks a request that failed because its own context was
// cancelled or ran out of time.
type callerError struct {
	err error
}

func (e *callerError) Error() string { return e.err.Error() }
func (e *callerError) Unwrap() error { return e.err }

// call performs one authenticated request. out may be nil. It returns the raw
// body on success so callers can tell an empty reply from a decoded one.
func (r *Remote) call(ctx context.Context, creds credentials.Provider, op, method, path string, in, out any) ([]byte, error) {
	token, err := creds.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("%s: encode request: %w", op, err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.baseURL+path, body)
	if err != nil {
		return nil, &models.TransportError{Op: op, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	if err := ctx.Err(); err != nil {
		return nil, &models.TransportError{Op: op, Err: err}
	}

	result, err := r.breaker.Execute(func() (interface{}, error) {
		resp, err := r.client.Do(req)
		if err != nil {
			return nil, abandoned(ctx, err)
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, abandoned(ctx, err)
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return nil, &serverError{status: resp.StatusCode, body: string(data)}
		}
		return &response{status: resp.StatusCode, body: data}, nil
	})
	if err != nil {
		var se *serverError
		if errors.As(err, &se) {
			return nil, &models.TransportError{Op: op, StatusCode: se.status, Err: se}
		}
		var ce *callerError
		if errors.As(err, &ce) {
			return nil, &models.TransportError{Op: op, Err: ce.err}
		}
		return nil, &models.TransportError{Op: op, Err: err}
	}

	resp := result.(*response)
	switch {
	case resp.status == http.StatusUnauthorized:
		if cerr := creds.Clear(ctx); cerr != nil {
			logging.Logger.Warnf("Event ID: CREDENTIAL_CLEAR_FAILED, Description: %s: %v", op, cerr)
		}
		return nil, fmt.Errorf("%s: %w", op, models.ErrAuthenticationRequired)
	case resp.status == http.StatusNotFound:
		return nil, fmt.Errorf("%s: %w", op, models.ErrNotFound)
	case resp.status < 200 || resp.status >= 300:
		return nil, &models.TransportError{Op: op, StatusCode: resp.status, Err: errors.New(strings.TrimSpace(string(resp.body)))}
	}

	if out != nil && len(bytes.TrimSpace(resp.body)) > 0 {
		if err := json.Unmarshal(resp.body, out); err != nil {
			return nil, &models.TransportError{Op: op, StatusCode: resp.status, Err: fmt.Errorf("decode response: %w", err)}
		}
	}
	return resp.body, nil
}

// abandoned wraps err in a callerError when ctx is already done.
func abandoned(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return &callerError{err: err}
	}
	return err
}
