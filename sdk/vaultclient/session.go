package vaultclient

import (
	"context"
	"fmt"
	"sync"
	"time"
)

const (
	// refreshLead is how long before expiry the proactive refresh fires.
	refreshLead = 5 * time.Minute
	// retryDelay is the wait before the single retry after a failed
	// proactive refresh.
	retryDelay = 30 * time.Second
)

// RefreshFunc exchanges the current token for a fresh one.
type RefreshFunc func(ctx context.Context, currentToken string) (*AccessToken, error)

// Session owns the access token lifecycle. It persists tokens through a
// TokenStore, schedules a proactive refresh before each expiry and logs out
// when refreshing fails twice or the server rejects the session.
//
// Only one refresh may be in flight at a time; a refresh requested while one
// is pending is a no-op.
type Session struct {
	mu         sync.Mutex
	store      TokenStore
	refresh    RefreshFunc
	token      *AccessToken
	refreshing bool
	generation int
	cancelTimer func() bool

	now       func() time.Time
	afterFunc func(d time.Duration, f func()) func() bool
	onLogout  func()
}

// SessionOption customizes a Session.
type SessionOption func(*Session)

// WithClock overrides the time source.
func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) { s.now = now }
}

// WithScheduler overrides timer creation. The returned function stops the
// timer.
func WithScheduler(afterFunc func(d time.Duration, f func()) func() bool) SessionOption {
	return func(s *Session) { s.afterFunc = afterFunc }
}

// WithLogoutHandler registers a callback invoked after every logout.
func WithLogoutHandler(fn func()) SessionOption {
	return func(s *Session) { s.onLogout = fn }
}

// NewSession creates a session manager. Call Start to load a persisted token.
func NewSession(refresh RefreshFunc, store TokenStore, opts ...SessionOption) *Session {
	s := &Session{
		store:   store,
		refresh: refresh,
		now:     time.Now,
	}
	s.afterFunc = func(d time.Duration, f func()) func() bool {
		return time.AfterFunc(d, f).Stop
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start loads the persisted token. An expired token is discarded rather than
// silently refreshed; a valid one is adopted and a refresh is scheduled.
func (s *Session) Start() error {
	token, err := s.store.Load()
	if err != nil {
		return fmt.Errorf("loading stored token: %w", err)
	}
	if token == nil {
		return nil
	}
	if token.Expired(s.now()) {
		return s.store.Clear()
	}

	s.mu.Lock()
	s.token = token
	s.scheduleLocked(token)
	s.mu.Unlock()
	return nil
}

// Authenticated reports whether a token is held.
func (s *Session) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token != nil
}

// Token returns the current bearer token, or "".
func (s *Session) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == nil {
		return ""
	}
	return s.token.Token
}

// SetToken adopts a newly issued token, persists it and reschedules the
// proactive refresh.
func (s *Session) SetToken(token *AccessToken) error {
	if err := s.store.Save(token); err != nil {
		return fmt.Errorf("persisting token: %w", err)
	}

	s.mu.Lock()
	s.token = token
	s.scheduleLocked(token)
	s.mu.Unlock()
	return nil
}

// Refresh exchanges the current token for a fresh one. It returns false
// without error when a refresh is already in flight, and false with an error
// when the session is anonymous or the server rejects the token. A failed
// refresh here does not log out; only the scheduled retry path does.
func (s *Session) Refresh(ctx context.Context) (bool, error) {
	s.mu.Lock()
	if s.refreshing {
		s.mu.Unlock()
		return false, nil
	}
	if s.token == nil {
		s.mu.Unlock()
		return false, fmt.Errorf("no session to refresh")
	}
	current := s.token.Token
	generation := s.generation
	s.refreshing = true
	s.mu.Unlock()

	token, err := s.refresh(ctx, current)

	s.mu.Lock()
	s.refreshing = false
	stale := s.generation != generation
	s.mu.Unlock()

	if err != nil {
		return false, err
	}
	if stale {
		// Logged out while the call was in flight; drop the result.
		return false, nil
	}
	if err := s.SetToken(token); err != nil {
		return false, err
	}
	return true, nil
}

// HandleUnauthenticated logs out when err is an authentication failure
// (HTTP 401 or an UNAUTHENTICATED error code). It reports whether a logout
// happened.
func (s *Session) HandleUnauthenticated(err error) bool {
	if !IsUnauthenticated(err) {
		return false
	}
	s.Logout()
	return true
}

// Logout clears the token from memory and the store and cancels any pending
// refresh timer.
func (s *Session) Logout() {
	s.mu.Lock()
	s.token = nil
	s.generation++
	if s.cancelTimer != nil {
		s.cancelTimer()
		s.cancelTimer = nil
	}
	onLogout := s.onLogout
	s.mu.Unlock()

	_ = s.store.Clear()
	if onLogout != nil {
		onLogout()
	}
}

// scheduleLocked arms the refresh timer for the given token. Caller holds mu.
func (s *Session) scheduleLocked(token *AccessToken) {
	if s.cancelTimer != nil {
		s.cancelTimer()
	}
	delay := token.ExpiresAt.Sub(s.now()) - refreshLead
	if delay < 0 {
		delay = 0
	}
	generation := s.generation
	s.cancelTimer = s.afterFunc(delay, func() {
		s.refreshWithRetry(generation)
	})
}

// refreshWithRetry is the timer path: one attempt, one delayed retry, then
// logout.
func (s *Session) refreshWithRetry(generation int) {
	if s.expired(generation) {
		return
	}
	if _, err := s.Refresh(context.Background()); err == nil {
		return
	}

	s.mu.Lock()
	if s.generation != generation {
		s.mu.Unlock()
		return
	}
	s.cancelTimer = s.afterFunc(retryDelay, func() {
		if s.expired(generation) {
			return
		}
		if _, err := s.Refresh(context.Background()); err != nil {
			s.Logout()
		}
	})
	s.mu.Unlock()
}

func (s *Session) expired(generation int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation != generation
}
