// Package creds holds the current backend credential and refreshes it on
// demand. The refresh itself is an external collaborator; this package
// only stores the token, answers expiry questions, and collapses
// concurrent refreshes into one.
package creds

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/singleflight"

	"github.com/kbukum/backstop/logger"
)

// Refresher obtains a fresh credential from the auth backend.
type Refresher interface {
	Refresh(ctx context.Context) (string, error)
}

// RefresherFunc adapts a function to the Refresher interface.
type RefresherFunc func(ctx context.Context) (string, error)

// Refresh calls the function.
func (f RefresherFunc) Refresh(ctx context.Context) (string, error) { return f(ctx) }

// Store holds the current token and its expiry. Safe for concurrent use.
// Concurrent Refresh calls share a single round trip to the refresher.
type Store struct {
	refresher Refresher
	log       *logger.Logger

	mu        sync.RWMutex
	token     string
	expiresAt time.Time

	flight singleflight.Group
	now    func() time.Time // test hook
}

// NewStore creates a credential store around a refresher.
func NewStore(refresher Refresher) *Store {
	return &Store{
		refresher: refresher,
		log:       logger.WithComponent("creds"),
		now:       time.Now,
	}
}

// SetToken installs a token, reading its exp claim (unverified; signature
// checking is the backend's business) so Expired can answer. Tokens that
// do not parse as JWTs are stored with no known expiry.
func (s *Store) SetToken(raw string) {
	expiresAt := expiryOf(raw)

	s.mu.Lock()
	s.token = raw
	s.expiresAt = expiresAt
	s.mu.Unlock()
}

// Token returns the current token. The bool is false when none is held.
func (s *Store) Token() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, s.token != ""
}

// Expired reports whether the held token is past its exp claim. A missing
// token counts as expired; a token with no readable expiry does not.
func (s *Store) Expired() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.token == "" {
		return true
	}
	if s.expiresAt.IsZero() {
		return false
	}
	return !s.now().Before(s.expiresAt)
}

// ExpiresAt returns the exp claim of the held token, zero when unknown.
func (s *Store) ExpiresAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expiresAt
}

// Refresh obtains a fresh token and stores it. Concurrent calls are
// collapsed into a single refresher round trip whose result they all
// share.
func (s *Store) Refresh(ctx context.Context) (string, error) {
	if s.refresher == nil {
		return "", fmt.Errorf("creds: no refresher configured")
	}

	v, err, shared := s.flight.Do("refresh", func() (any, error) {
		token, err := s.refresher.Refresh(ctx)
		if err != nil {
			return "", err
		}
		s.SetToken(token)
		return token, nil
	})
	if err != nil {
		s.log.Warn("credential refresh failed", logger.Fields(logger.FieldError, err.Error()))
		return "", err
	}
	if !shared {
		s.log.Debug("credential refreshed")
	}
	return v.(string), nil
}

// expiryOf extracts the exp claim without verifying the signature.
func expiryOf(raw string) time.Time {
	token, _, err := jwt.NewParser().ParseUnverified(raw, jwt.MapClaims{})
	if err != nil {
		return time.Time{}
	}
	exp, err := token.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
