package otp

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sellorahq/sellora-be/internal/models"
)

type memStore struct {
	mu       sync.Mutex
	code     map[int64]string
	issuedAt map[int64]time.Time
	verified map[int64]bool
}

func newMemStore() *memStore {
	return &memStore{
		code:     make(map[int64]string),
		issuedAt: make(map[int64]time.Time),
		verified: make(map[int64]bool),
	}
}

func (s *memStore) StoreOTP(ctx context.Context, userID int64, code string, issuedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.code[userID] = code
	s.issuedAt[userID] = issuedAt
	return nil
}

func (s *memStore) ConsumeOTP(ctx context.Context, userID int64, code string, markVerified bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.code[userID] != code || s.code[userID] == "" {
		return false, nil
	}
	delete(s.code, userID)
	delete(s.issuedAt, userID)
	if markVerified {
		s.verified[userID] = true
	}
	return true, nil
}

func (s *memStore) profile(userID int64) models.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := models.Profile{UserID: userID, Verified: s.verified[userID]}
	if code, ok := s.code[userID]; ok {
		at := s.issuedAt[userID]
		p.OTP = &code
		p.OTPCreatedAt = &at
	}
	return p
}

// fixedClock returns a mutable time source for tests.
type fixedClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fixedClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fixedClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func TestIssueCodeRange(t *testing.T) {
	store := newMemStore()
	engine := NewEngine(store, DefaultTTL)

	for i := 0; i < 200; i++ {
		code, err := engine.Issue(context.Background(), 1)
		require.NoError(t, err)
		require.Len(t, code, 6)
		require.GreaterOrEqual(t, code, "100000")
		require.LessOrEqual(t, code, "999999")
	}
}

func TestVerifySuccessConsumesChallenge(t *testing.T) {
	store := newMemStore()
	clock := &fixedClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	engine := NewEngine(store, DefaultTTL, WithClock(clock.now))

	code, err := engine.Issue(context.Background(), 7)
	require.NoError(t, err)

	err = engine.Verify(context.Background(), store.profile(7), code, true)
	require.NoError(t, err)
	require.True(t, store.profile(7).Verified)
	require.False(t, store.profile(7).HasChallenge())

	// Replaying the same once-valid code must fail.
	err = engine.Verify(context.Background(), store.profile(7), code, true)
	require.ErrorIs(t, err, ErrNoChallenge)
}

func TestVerifyTrimsWhitespace(t *testing.T) {
	store := newMemStore()
	engine := NewEngine(store, DefaultTTL)

	code, err := engine.Issue(context.Background(), 7)
	require.NoError(t, err)

	err = engine.Verify(context.Background(), store.profile(7), "  "+code+"\n", false)
	require.NoError(t, err)
}

func TestVerifyExpired(t *testing.T) {
	store := newMemStore()
	clock := &fixedClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	engine := NewEngine(store, DefaultTTL, WithClock(clock.now))

	code, err := engine.Issue(context.Background(), 7)
	require.NoError(t, err)

	clock.advance(DefaultTTL + time.Second)
	err = engine.Verify(context.Background(), store.profile(7), code, false)
	require.ErrorIs(t, err, ErrExpired)

	// The stale code is rejected but not cleared.
	require.True(t, store.profile(7).HasChallenge())
}

func TestVerifyExactlyAtTTLStillValid(t *testing.T) {
	store := newMemStore()
	clock := &fixedClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	engine := NewEngine(store, DefaultTTL, WithClock(clock.now))

	code, err := engine.Issue(context.Background(), 7)
	require.NoError(t, err)

	clock.advance(DefaultTTL)
	err = engine.Verify(context.Background(), store.profile(7), code, false)
	require.NoError(t, err)
}

func TestVerifyMismatchLeavesChallengeOutstanding(t *testing.T) {
	store := newMemStore()
	engine := NewEngine(store, DefaultTTL)

	code, err := engine.Issue(context.Background(), 7)
	require.NoError(t, err)

	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}
	err = engine.Verify(context.Background(), store.profile(7), wrong, false)
	require.ErrorIs(t, err, ErrMismatch)

	// Retrying with the correct code within the TTL still works.
	err = engine.Verify(context.Background(), store.profile(7), code, false)
	require.NoError(t, err)
}

func TestVerifyNoChallenge(t *testing.T) {
	store := newMemStore()
	engine := NewEngine(store, DefaultTTL)

	err := engine.Verify(context.Background(), models.Profile{UserID: 7}, "123456", false)
	require.ErrorIs(t, err, ErrNoChallenge)
}

func TestIssueOverwritesPriorChallenge(t *testing.T) {
	store := newMemStore()
	engine := NewEngine(store, DefaultTTL)

	first, err := engine.Issue(context.Background(), 7)
	require.NoError(t, err)
	second, err := engine.Issue(context.Background(), 7)
	require.NoError(t, err)

	if first != second {
		err = engine.Verify(context.Background(), store.profile(7), first, false)
		require.ErrorIs(t, err, ErrMismatch)
	}
	err = engine.Verify(context.Background(), store.profile(7), second, false)
	require.NoError(t, err)
}
