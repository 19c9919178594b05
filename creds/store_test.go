package creds

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	claims := jwt.MapClaims{"sub": "user1", "exp": exp.Unix()}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("signing test token: %v", err)
	}
	return raw
}

func TestStore_EmptyIsExpired(t *testing.T) {
	s := NewStore(nil)

	if _, ok := s.Token(); ok {
		t.Error("expected no token in a fresh store")
	}
	if !s.Expired() {
		t.Error("expected a missing token to count as expired")
	}
}

func TestStore_SetTokenReadsExpiry(t *testing.T) {
	s := NewStore(nil)
	exp := time.Now().Add(time.Hour).Truncate(time.Second)

	s.SetToken(signedToken(t, exp))

	if got := s.ExpiresAt(); !got.Equal(exp) {
		t.Errorf("expected expiry %v, got %v", exp, got)
	}
	if s.Expired() {
		t.Error("expected an hour-long token to be fresh")
	}
}

func TestStore_ExpiredToken(t *testing.T) {
	s := NewStore(nil)
	s.SetToken(signedToken(t, time.Now().Add(time.Hour)))

	s.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	if !s.Expired() {
		t.Error("expected the token to be expired two hours on")
	}
}

func TestStore_OpaqueTokenHasNoExpiry(t *testing.T) {
	s := NewStore(nil)
	s.SetToken("not-a-jwt")

	if got, ok := s.Token(); !ok || got != "not-a-jwt" {
		t.Errorf("expected the opaque token stored, got %q %v", got, ok)
	}
	if !s.ExpiresAt().IsZero() {
		t.Error("expected no expiry for an opaque token")
	}
	if s.Expired() {
		t.Error("expected an opaque token not to count as expired")
	}
}

func TestStore_RefreshStoresResult(t *testing.T) {
	exp := time.Now().Add(time.Hour)
	fresh := signedToken(t, exp)
	s := NewStore(RefresherFunc(func(ctx context.Context) (string, error) {
		return fresh, nil
	}))

	got, err := s.Refresh(context.Background())
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if got != fresh {
		t.Error("expected the refreshed token returned")
	}
	if stored, ok := s.Token(); !ok || stored != fresh {
		t.Error("expected the refreshed token stored")
	}
}

func TestStore_RefreshError(t *testing.T) {
	boom := errors.New("auth backend down")
	s := NewStore(RefresherFunc(func(ctx context.Context) (string, error) {
		return "", boom
	}))

	if _, err := s.Refresh(context.Background()); !errors.Is(err, boom) {
		t.Errorf("expected the refresher error, got %v", err)
	}
	if _, ok := s.Token(); ok {
		t.Error("expected no token stored after a failed refresh")
	}
}

func TestStore_NoRefresherConfigured(t *testing.T) {
	s := NewStore(nil)
	if _, err := s.Refresh(context.Background()); err == nil {
		t.Error("expected an error without a refresher")
	}
}

func TestStore_ConcurrentRefreshCollapses(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	s := NewStore(RefresherFunc(func(ctx context.Context) (string, error) {
		calls.Add(1)
		<-release
		return "token", nil
	}))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Refresh(context.Background()); err != nil {
				t.Errorf("refresh: %v", err)
			}
		}()
	}

	// Give the goroutines time to pile onto the in-flight call.
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := calls.Load(); got != 1 {
		t.Errorf("expected one refresher round trip, got %d", got)
	}
}
