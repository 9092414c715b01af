package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/staybook/booking-api/internal/api/metrics"
	"github.com/staybook/booking-api/internal/core/domain"
	"github.com/staybook/booking-api/internal/core/ports"
)

// AuthService implements registration, login, refresh-token exchange and logout.
type AuthService struct {
	users       ports.UserRepository
	tx          ports.TransactionManager
	tokens      ports.TokenService
	revocations ports.RevocationStore
	log         zerolog.Logger
	now         func() time.Time
}

func NewAuthService(
	users ports.UserRepository,
	tx ports.TransactionManager,
	tokens ports.TokenService,
	revocations ports.RevocationStore,
	log zerolog.Logger,
) *AuthService {
	return &AuthService{
		users:       users,
		tx:          tx,
		tokens:      tokens,
		revocations: revocations,
		log:         log,
		now:         time.Now,
	}
}

func (s *AuthService) Register(ctx context.Context, in ports.RegisterInput) (*domain.AuthenticationResponse, error) {
	username := strings.TrimSpace(in.Username)
	email := normalizeEmail(in.Email)
	if username == "" || email == "" {
		return nil, domain.ErrInvalidCredentials
	}
	if !domain.ValidPassword(in.Password) {
		return nil, domain.ErrWeakPassword
	}

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		countAuth("register", domain.ErrUserExists)
		return nil, domain.ErrUserExists
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, fmt.Errorf("register: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("register: hash password: %w", err)
	}

	now := s.now().UTC()
	user := &domain.User{
		ID:           uuid.New(),
		Username:     username,
		Email:        email,
		PhoneNumber:  strings.TrimSpace(in.PhoneNumber),
		PasswordHash: string(hash),
		Role:         domain.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	resp, err := s.tokens.CreateToken(user)
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	user.RefreshTokenHash = HashRefreshToken(resp.RefreshToken)
	user.RefreshTokenExpiresAt = resp.RefreshTokenExpiration

	if err := s.users.Create(ctx, user); err != nil {
		countAuth("register", err)
		return nil, fmt.Errorf("register: %w", err)
	}

	countAuth("register", nil)
	s.log.Info().Str("user_id", user.ID.String()).Str("username", user.Username).Msg("user registered")
	return resp, nil
}

// Login never tells the caller whether the account exists.
func (s *AuthService) Login(ctx context.Context, emailOrUsername, password string) (*domain.AuthenticationResponse, error) {
	login := strings.TrimSpace(emailOrUsername)
	if login == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.users.FindByEmailOrUsername(ctx, login)
	if errors.Is(err, domain.ErrUserNotFound) {
		countAuth("login", domain.ErrInvalidCredentials)
		return nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		countAuth("login", domain.ErrInvalidCredentials)
		return nil, domain.ErrInvalidCredentials
	}

	resp, err := s.tokens.CreateToken(user)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	if err := s.users.SaveRefreshToken(ctx, user.ID, HashRefreshToken(resp.RefreshToken), resp.RefreshTokenExpiration); err != nil {
		return nil, fmt.Errorf("login: save refresh token: %w", err)
	}

	countAuth("login", nil)
	return resp, nil
}

// Refresh runs compare-and-rotate under a lock on the user row so a refresh
// token can be spent exactly once.
func (s *AuthService) Refresh(ctx context.Context, accessToken, refreshToken string) (*domain.AuthenticationResponse, error) {
	identity, err := s.tokens.ValidateExpiredToken(accessToken)
	if err != nil {
		countAuth("refresh", domain.ErrInvalidToken)
		return nil, err
	}
	if refreshToken == "" {
		countAuth("refresh", domain.ErrInvalidRefreshToken)
		return nil, domain.ErrInvalidRefreshToken
	}

	presented := HashRefreshToken(refreshToken)

	var resp *domain.AuthenticationResponse
	err = s.tx.Execute(ctx, func(tx ports.Tx) error {
		user, err := tx.LockUserByEmail(ctx, identity.Email)
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.ErrInvalidRefreshToken
		}
		if err != nil {
			return err
		}

		if user.ID != identity.UserID || user.RefreshTokenHash == "" ||
			subtle.ConstantTimeCompare([]byte(user.RefreshTokenHash), []byte(presented)) != 1 {
			return domain.ErrInvalidRefreshToken
		}
		if !user.RefreshTokenExpiresAt.After(s.now()) {
			return domain.ErrInvalidRefreshToken
		}

		issued, err := s.tokens.CreateToken(user)
		if err != nil {
			return err
		}
		if err := tx.SaveRefreshToken(ctx, user.ID, HashRefreshToken(issued.RefreshToken), issued.RefreshTokenExpiration); err != nil {
			return err
		}
		resp = issued
		return nil
	})
	if err != nil {
		countAuth("refresh", err)
		if errors.Is(err, domain.ErrInvalidRefreshToken) {
			s.log.Warn().Str("user_id", identity.UserID.String()).Msg("refresh token rejected")
			return nil, err
		}
		return nil, fmt.Errorf("refresh: %w", err)
	}

	countAuth("refresh", nil)
	return resp, nil
}

// Logout revokes the presented access token until it would have expired and
// drops the stored refresh token.
func (s *AuthService) Logout(ctx context.Context, identity domain.Identity) error {
	if identity.TokenID != "" && s.revocations != nil {
		if err := s.revocations.Revoke(ctx, identity.TokenID, identity.ExpiresAt); err != nil {
			return fmt.Errorf("logout: revoke token: %w", err)
		}
	}
	if err := s.users.SaveRefreshToken(ctx, identity.UserID, "", time.Time{}); err != nil && !errors.Is(err, domain.ErrUserNotFound) {
		return fmt.Errorf("logout: clear refresh token: %w", err)
	}

	countAuth("logout", nil)
	s.log.Info().Str("user_id", identity.UserID.String()).Msg("user logged out")
	return nil
}

// EnsureAdmin creates the bootstrap administrator, or promotes an existing
// account with the same email.
func (s *AuthService) EnsureAdmin(ctx context.Context, username, email, password string) error {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil
	}

	existing, err := s.users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.IsAdmin() {
			return nil
		}
		if err := s.users.UpdateRole(ctx, existing.ID, domain.RoleAdmin); err != nil {
			return fmt.Errorf("ensure admin: promote: %w", err)
		}
		s.log.Info().Str("email", email).Msg("existing user promoted to admin")
		return nil
	case !errors.Is(err, domain.ErrUserNotFound):
		return fmt.Errorf("ensure admin: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("ensure admin: hash password: %w", err)
	}
	now := s.now().UTC()
	admin := &domain.User{
		ID:           uuid.New(),
		Username:     strings.TrimSpace(username),
		Email:        email,
		PasswordHash: string(hash),
		Role:         domain.RoleAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, admin); err != nil {
		return fmt.Errorf("ensure admin: %w", err)
	}
	s.log.Info().Str("email", email).Msg("admin account created")
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func countAuth(op string, err error) {
	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrInvalidCredentials),
		errors.Is(err, domain.ErrInvalidToken),
		errors.Is(err, domain.ErrInvalidRefreshToken):
		outcome = "rejected"
	case errors.Is(err, domain.ErrUserExists):
		outcome = "conflict"
	default:
		outcome = "error"
	}
	metrics.AuthOperationsTotal.WithLabelValues(op, outcome).Inc()
}
