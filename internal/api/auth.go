package api

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrUnauthenticated is returned when no bearer token can be obtained
// within the bounded wait. Callers should re-authenticate, not retry.
var ErrUnauthenticated = errors.New("api: unauthenticated")

// TokenSource supplies the bearer credential for API calls. The token may
// not be available during a bootstrap window; implementations block until
// it settles or the context expires.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a TokenSource for a fixed credential, used with config
// file tokens and in tests.
type StaticToken string

func (s StaticToken) Token(ctx context.Context) (string, error) {
	if s == "" {
		return "", ErrUnauthenticated
	}
	return string(s), nil
}

// AsyncToken is a TokenSource fed by an identity provider that settles at
// some point after startup. Token blocks until Set or Fail is called, the
// bounded wait elapses, or the context is cancelled.
type AsyncToken struct {
	mu      sync.Mutex
	token   string
	err     error
	settled chan struct{}
	wait    time.Duration
}

// NewAsyncToken creates an unsettled source with the given maximum wait.
func NewAsyncToken(wait time.Duration) *AsyncToken {
	return &AsyncToken{settled: make(chan struct{}), wait: wait}
}

// Set settles the source with a credential. Subsequent Set calls replace
// the token for future requests.
func (a *AsyncToken) Set(token string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.token = token
	a.err = nil
	a.settleLocked()
}

// Fail settles the source with a terminal auth failure.
func (a *AsyncToken) Fail(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.err = err
	a.settleLocked()
}

func (a *AsyncToken) settleLocked() {
	select {
	case <-a.settled:
	default:
		close(a.settled)
	}
}

func (a *AsyncToken) Token(ctx context.Context) (string, error) {
	timer := time.NewTimer(a.wait)
	defer timer.Stop()
	select {
	case <-a.settled:
	case <-timer.C:
		return "", ErrUnauthenticated
	case <-ctx.Done():
		return "", ctx.Err()
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return "", ErrUnauthenticated
	}
	if a.token == "" {
		return "", ErrUnauthenticated
	}
	return a.token, nil
}
