package auth

import (
	"context"
	"strings"

	"github.com/rurikon/gallery-api/internal/pkg/jwt"
	"github.com/rurikon/gallery-api/internal/pkg/logger"
	"github.com/rurikon/gallery-api/internal/pkg/password"
)

// Service authenticates the single gallery operator.
type Service struct {
	email        string
	passwordHash string
	jwtService   *jwt.Service
}

// NewService creates auth service. passwordHash is a bcrypt hash.
func NewService(email, passwordHash string, jwtService *jwt.Service) *Service {
	return &Service{
		email:        normalizeEmail(email),
		passwordHash: passwordHash,
		jwtService:   jwtService,
	}
}

// Login checks the operator credentials and issues an access token.
func (s *Service) Login(ctx context.Context, req *LoginRequest) (*TokenResponse, error) {
	if s.email == "" || s.passwordHash == "" {
		return nil, ErrNotConfigured
	}

	email := normalizeEmail(req.Email)
	// bcrypt runs even for an unknown email so both failures take the same time
	ok := password.Verify(req.Password, s.passwordHash)
	if email != s.email || !ok {
		logger.LogWarn(ctx, "login rejected", "email", email)
		return nil, ErrInvalidCredentials
	}

	token, expiresAt, err := s.jwtService.GenerateAccessToken(s.email, jwt.RoleAdmin)
	if err != nil {
		return nil, err
	}

	logger.LogInfo(ctx, "operator logged in", "identity", s.email)
	return &TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   expiresAt,
		Identity:    s.email,
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
