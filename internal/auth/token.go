package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sellorahq/sellora-be/internal/models"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// ErrInvalidToken indicates a token that is malformed, expired, or of the
// wrong type for the operation.
var ErrInvalidToken = errors.New("invalid or expired token")

// TokenPair is a freshly minted access/refresh credential pair.
type TokenPair struct {
	Access  string
	Refresh string
}

// Identity is the claim set extracted from a verified token.
type Identity struct {
	UserID   int64
	Username string
	Email    string
}

// TokenManager issues and verifies signed JWTs for authenticated users.
// Validity is delegated entirely to the token's signed expiry; there is no
// server-side session store or revocation list.
type TokenManager struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewTokenManager creates a manager with the provided secret, issuer, and lifetimes.
func NewTokenManager(secret, issuer string, accessTTL, refreshTTL time.Duration) *TokenManager {
	return &TokenManager{
		secret:     []byte(secret),
		issuer:     issuer,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// WithClock overrides the manager's time source; used by tests.
func (t *TokenManager) WithClock(now func() time.Time) *TokenManager {
	t.now = now
	return t
}

// Mint issues an access/refresh pair for the provided user.
func (t *TokenManager) Mint(user models.User) (TokenPair, error) {
	access, err := t.sign(user.ID, user.Username, user.Email, tokenTypeAccess, t.accessTTL)
	if err != nil {
		return TokenPair{}, fmt.Errorf("sign access token: %w", err)
	}
	refresh, err := t.sign(user.ID, user.Username, user.Email, tokenTypeRefresh, t.refreshTTL)
	if err != nil {
		return TokenPair{}, fmt.Errorf("sign refresh token: %w", err)
	}
	return TokenPair{Access: access, Refresh: refresh}, nil
}

// Refresh verifies a refresh token and mints a new access token from its claims.
func (t *TokenManager) Refresh(refreshToken string) (string, error) {
	identity, err := t.verify(refreshToken, tokenTypeRefresh)
	if err != nil {
		return "", err
	}
	access, err := t.sign(identity.UserID, identity.Username, identity.Email, tokenTypeAccess, t.accessTTL)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return access, nil
}

// VerifyAccess validates an access token and returns the identity it encodes.
func (t *TokenManager) VerifyAccess(token string) (Identity, error) {
	return t.verify(token, tokenTypeAccess)
}

func (t *TokenManager) sign(userID int64, username, email, tokenType string, ttl time.Duration) (string, error) {
	now := t.now()
	claims := jwt.MapClaims{
		"iss":        t.issuer,
		"sub":        strconv.FormatInt(userID, 10),
		"username":   username,
		"email":      email,
		"token_type": tokenType,
		"iat":        now.Unix(),
		"nbf":        now.Unix(),
		"exp":        now.Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

func (t *TokenManager) verify(tokenString, wantType string) (Identity, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return t.secret, nil
	}, jwt.WithIssuer(t.issuer), jwt.WithTimeFunc(t.now))
	if err != nil || !token.Valid {
		return Identity{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, ErrInvalidToken
	}
	if tokenType, _ := claims["token_type"].(string); tokenType != wantType {
		return Identity{}, ErrInvalidToken
	}
	sub, _ := claims["sub"].(string)
	userID, err := strconv.ParseInt(sub, 10, 64)
	if err != nil {
		return Identity{}, ErrInvalidToken
	}
	username, _ := claims["username"].(string)
	email, _ := claims["email"].(string)
	return Identity{UserID: userID, Username: username, Email: email}, nil
}
