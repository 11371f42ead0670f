package otp

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/sellorahq/sellora-be/internal/models"
)

// DefaultTTL is the validity window of an issued code.
const DefaultTTL = 5 * time.Minute

// ErrNoChallenge indicates no code is outstanding for the profile.
var ErrNoChallenge = errors.New("no verification code outstanding")

// ErrExpired indicates the outstanding code is past its TTL.
var ErrExpired = errors.New("verification code expired")

// ErrMismatch indicates the submitted code does not match the outstanding one.
var ErrMismatch = errors.New("verification code does not match")

// Store is the persistence surface the engine needs for challenges.
type Store interface {
	StoreOTP(ctx context.Context, userID int64, code string, issuedAt time.Time) error
	ConsumeOTP(ctx context.Context, userID int64, code string, markVerified bool) (bool, error)
}

// Engine issues and verifies one-time passcodes bound to a profile. At most
// one challenge is outstanding per profile; issuing overwrites any prior one.
type Engine struct {
	store Store
	ttl   time.Duration
	now   func() time.Time
	rand  io.Reader
}

// Option customizes an Engine; used by tests to pin time and randomness.
type Option func(*Engine)

// WithClock overrides the engine's time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithRand overrides the engine's randomness source.
func WithRand(r io.Reader) Option {
	return func(e *Engine) { e.rand = r }
}

// NewEngine creates an engine with the given challenge TTL.
func NewEngine(store Store, ttl time.Duration, opts ...Option) *Engine {
	e := &Engine{
		store: store,
		ttl:   ttl,
		now:   time.Now,
		rand:  rand.Reader,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// TTL returns the validity window applied to issued codes.
func (e *Engine) TTL() time.Duration {
	return e.ttl
}

// Issue generates a fresh 6-digit code, persists it with the current
// timestamp, and returns it for the caller to dispatch. It never sends
// anything itself.
func (e *Engine) Issue(ctx context.Context, userID int64) (string, error) {
	// Uniform in [100000, 999999]: always exactly six digits.
	n, err := rand.Int(e.rand, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	code := strconv.FormatInt(n.Int64()+100000, 10)

	if err := e.store.StoreOTP(ctx, userID, code, e.now()); err != nil {
		return "", err
	}
	return code, nil
}

// Verify checks the submitted code against the profile's outstanding
// challenge and consumes it on success. markVerified also flips the
// profile's verified flag as part of the same update.
//
// An expired code is rejected but left in place; only consumption or a
// fresh Issue clears it.
func (e *Engine) Verify(ctx context.Context, profile models.Profile, submitted string, markVerified bool) error {
	if !profile.HasChallenge() {
		return ErrNoChallenge
	}
	if e.now().After(profile.OTPCreatedAt.Add(e.ttl)) {
		return ErrExpired
	}
	submitted = strings.TrimSpace(submitted)
	if subtle.ConstantTimeCompare([]byte(submitted), []byte(*profile.OTP)) != 1 {
		return ErrMismatch
	}

	consumed, err := e.store.ConsumeOTP(ctx, profile.UserID, *profile.OTP, markVerified)
	if err != nil {
		return err
	}
	if !consumed {
		// A concurrent verify won the compare-and-clear.
		return ErrNoChallenge
	}
	return nil
}
