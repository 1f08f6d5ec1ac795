package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/poyrazK/gatekeep/internal/core/domain"
	"github.com/poyrazK/gatekeep/internal/core/ports"
)

type authService struct {
	repo   ports.Repository
	secret []byte
	ttl    time.Duration
	logger *slog.Logger
}

// NewAuthService verifies bearer credentials (JWT or API key) and
// issues JWTs in exchange for username/password.
func NewAuthService(repo ports.Repository, secret []byte, ttl time.Duration, logger *slog.Logger) ports.AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &authService{repo: repo, secret: secret, ttl: ttl, logger: logger}
}

// Authenticate resolves a bearer credential to an identity. Every
// failure mode returns domain.ErrUnauthorized unchanged; the caller
// must not be able to tell an expired key from a nonexistent one.
func (s *authService) Authenticate(ctx context.Context, credential string) (*domain.Identity, error) {
	if credential == "" {
		return nil, domain.ErrUnauthorized
	}
	if strings.HasPrefix(credential, domain.APIKeyPrefix) {
		return s.authenticateKey(ctx, credential)
	}
	return s.authenticateToken(credential)
}

// authenticateToken is stateless: signature and expiry only, no store
// lookup. Token revocation is handled by short TTLs.
func (s *authService) authenticateToken(credential string) (*domain.Identity, error) {
	token, err := jwt.Parse(credential, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return nil, domain.ErrUnauthorized
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, domain.ErrUnauthorized
	}
	sub, _ := claims["sub"].(string)
	role, _ := claims["role"].(string)
	if sub == "" || !domain.ValidRole(domain.Role(role)) {
		return nil, domain.ErrUnauthorized
	}
	return &domain.Identity{UserID: sub, Role: domain.Role(role)}, nil
}

func (s *authService) authenticateKey(ctx context.Context, credential string) (*domain.Identity, error) {
	hash := sha256.Sum256([]byte(credential))
	keyHash := hex.EncodeToString(hash[:])

	apiKey, err := s.repo.GetAPIKeyByHash(ctx, keyHash)
	if err != nil {
		return nil, fmt.Errorf("lookup api key: %w", err)
	}
	if apiKey == nil || !apiKey.Active {
		return nil, domain.ErrUnauthorized
	}
	if apiKey.ExpiresAt != nil && apiKey.ExpiresAt.Before(time.Now()) {
		return nil, domain.ErrUnauthorized
	}

	// Deactivating a user revokes all of their keys at once.
	owner, err := s.repo.GetUserByID(ctx, apiKey.UserID)
	if err != nil {
		return nil, fmt.Errorf("lookup key owner: %w", err)
	}
	if owner == nil || !owner.Active {
		return nil, domain.ErrUnauthorized
	}

	// Best-effort usage stamp, detached from the request lifecycle.
	go func(id string) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.repo.TouchAPIKey(ctx, id, time.Now()); err != nil {
			s.logger.Debug("failed to touch api key", "key_id", id, "error", err)
		}
	}(apiKey.ID)

	return &domain.Identity{UserID: apiKey.UserID, Role: apiKey.Role}, nil
}

// Login exchanges a username and password for a signed JWT. Unknown
// user, wrong password and deactivated account all reject identically.
func (s *authService) Login(ctx context.Context, username, password string) (string, error) {
	user, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil {
		return "", fmt.Errorf("lookup user: %w", err)
	}
	if user == nil || !user.Active {
		return "", domain.ErrUnauthorized
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", domain.ErrUnauthorized
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  user.ID,
		"role": string(user.Role),
		"iat":  now.Unix(),
		"exp":  now.Add(s.ttl).Unix(),
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
