package service

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/staybook/booking-api/internal/core/domain"
)

const (
	minSigningKeyLen = 32
	refreshTokenLen  = 64
)

var errIncompleteIdentity = errors.New("user must have an id and an email")

// TokenConfig carries the signing material and lifetimes for issued tokens.
type TokenConfig struct {
	SigningKey string
	Issuer     string
	Audience   string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

type accessClaims struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// TokenService signs HS256 access tokens and mints opaque refresh tokens.
// It holds no mutable state and is safe for concurrent use.
type TokenService struct {
	key []byte
	cfg TokenConfig
	now func() time.Time
}

func NewTokenService(cfg TokenConfig) (*TokenService, error) {
	if len(cfg.SigningKey) < minSigningKeyLen {
		return nil, domain.ErrWeakSigningKey
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = 24 * time.Hour
	}
	if cfg.RefreshTTL <= cfg.AccessTTL {
		return nil, fmt.Errorf("refresh token ttl (%s) must exceed access token ttl (%s)", cfg.RefreshTTL, cfg.AccessTTL)
	}
	return &TokenService{key: []byte(cfg.SigningKey), cfg: cfg, now: time.Now}, nil
}

// CreateToken issues a fresh access/refresh pair for user. Persisting the
// refresh token is the caller's job.
func (s *TokenService) CreateToken(user *domain.User) (*domain.AuthenticationResponse, error) {
	if user == nil || user.ID == uuid.Nil || user.Email == "" {
		return nil, fmt.Errorf("create token: %w", errIncompleteIdentity)
	}

	now := s.now().UTC()
	expiresAt := now.Add(s.cfg.AccessTTL)

	claims := accessClaims{
		Email:    user.Email,
		Username: user.Username,
		Role:     string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			Issuer:    s.cfg.Issuer,
			Audience:  jwt.ClaimStrings{s.cfg.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	refresh, err := newRefreshToken()
	if err != nil {
		return nil, err
	}

	return &domain.AuthenticationResponse{
		ID:                     user.ID,
		Username:               user.Username,
		Email:                  user.Email,
		Token:                  signed,
		Expiration:             expiresAt,
		RefreshToken:           refresh,
		RefreshTokenExpiration: now.Add(s.cfg.RefreshTTL),
	}, nil
}

// ValidateToken fully verifies an access token, expiry included.
func (s *TokenService) ValidateToken(token string) (*domain.Identity, error) {
	claims, err := s.parse(token,
		jwt.WithIssuer(s.cfg.Issuer),
		jwt.WithAudience(s.cfg.Audience),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, err
	}
	return toIdentity(claims)
}

// ValidateExpiredToken verifies signature, algorithm, issuer and audience but
// accepts a token whose expiry has passed. It backs the refresh exchange.
func (s *TokenService) ValidateExpiredToken(token string) (*domain.Identity, error) {
	claims, err := s.parse(token, jwt.WithoutClaimsValidation())
	if err != nil {
		return nil, err
	}
	// WithoutClaimsValidation skips iss and aud as well.
	if claims.Issuer != s.cfg.Issuer {
		return nil, fmt.Errorf("%w: issuer mismatch", domain.ErrInvalidToken)
	}
	if !slices.Contains(claims.Audience, s.cfg.Audience) {
		return nil, fmt.Errorf("%w: audience mismatch", domain.ErrInvalidToken)
	}
	return toIdentity(claims)
}

func (s *TokenService) parse(token string, opts ...jwt.ParserOption) (*accessClaims, error) {
	opts = append(opts, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	claims := &accessClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return s.key, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return nil, domain.ErrInvalidToken
	}
	return claims, nil
}

func toIdentity(c *accessClaims) (*domain.Identity, error) {
	userID, err := uuid.Parse(c.Subject)
	if err != nil {
		return nil, fmt.Errorf("%w: subject is not a user id", domain.ErrInvalidToken)
	}
	if c.Email == "" || c.ID == "" {
		return nil, fmt.Errorf("%w: missing identity claims", domain.ErrInvalidToken)
	}

	id := &domain.Identity{
		UserID:   userID,
		Email:    c.Email,
		Username: c.Username,
		Role:     domain.Role(c.Role),
		TokenID:  c.ID,
	}
	if c.IssuedAt != nil {
		id.IssuedAt = c.IssuedAt.Time
	}
	if c.ExpiresAt != nil {
		id.ExpiresAt = c.ExpiresAt.Time
	}
	return id, nil
}

func newRefreshToken() (string, error) {
	buf := make([]byte, refreshTokenLen)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate refresh token: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf), nil
}

// HashRefreshToken returns the hex SHA-256 digest stored in place of the raw
// refresh token.
func HashRefreshToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
