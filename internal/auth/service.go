package auth

import (
	"context"
	"errors"
	"time"

	"github.com/tappy-hq/tappy-backend/internal/users"
	pkgauth "github.com/tappy-hq/tappy-backend/pkg/auth"
	"github.com/tappy-hq/tappy-backend/pkg/auth/session"
	"github.com/tappy-hq/tappy-backend/pkg/config"
	"github.com/tappy-hq/tappy-backend/pkg/db/models"
	pkgerrors "github.com/tappy-hq/tappy-backend/pkg/errors"
	"github.com/tappy-hq/tappy-backend/pkg/logger"
	"github.com/tappy-hq/tappy-backend/pkg/security"
)

// ServiceParams groups dependencies for the auth service.
type ServiceParams struct {
	UserRepo users.Repository
	Sessions *session.Manager
	JWT      config.JWTConfig
	Logger   *logger.Logger
}

// Service authenticates dashboard users and manages their sessions.
type Service struct {
	userRepo users.Repository
	sessions *session.Manager
	jwtCfg   config.JWTConfig
	logg     *logger.Logger
	now      func() time.Time
}

// NewService builds an auth service.
func NewService(params ServiceParams) (*Service, error) {
	if params.UserRepo == nil {
		return nil, errors.New("user repo is required")
	}
	if params.Sessions == nil {
		return nil, errors.New("session manager is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	return &Service{
		userRepo: params.UserRepo,
		sessions: params.Sessions,
		jwtCfg:   params.JWT,
		logg:     params.Logger,
		now:      time.Now,
	}, nil
}

// LoginResult carries the minted session token and its owner.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      *models.User
}

// Login verifies credentials and mints a session-backed JWT. Unknown emails
// and bad passwords both surface as the same unauthorized error.
func (s *Service) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	user, err := s.userRepo.FindByEmail(ctx, input.Email)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "looking up user")
	}
	if user == nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
	}

	match, err := security.VerifyPassword(input.Password, user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verifying password")
	}
	if !match {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
	}

	now := s.now().UTC()
	jti := session.NewAccessID()
	token, err := pkgauth.MintAccessToken(s.jwtCfg, now, pkgauth.AccessTokenPayload{
		UserID: user.ID,
		Role:   user.Role,
		JTI:    jti,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "minting access token")
	}

	if err := s.sessions.Create(ctx, jti, user.ID.String()); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "registering session")
	}

	s.logg.Info(s.logg.WithUserID(ctx, user.ID.String()), "user logged in")

	return &LoginResult{
		Token:     token,
		ExpiresAt: now.Add(s.jwtCfg.SessionTTL()),
		User:      user,
	}, nil
}

// Logout revokes the session tied to the token's jti.
func (s *Service) Logout(ctx context.Context, jti string) error {
	if jti == "" {
		return nil
	}
	if err := s.sessions.Revoke(ctx, jti); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoking session")
	}
	return nil
}
