package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"librarian/internal/common"
	"librarian/internal/common/security"
	"librarian/internal/domain/model"
	"librarian/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

type AuthService struct {
	userRepo repository.UserRepository
	tokens   *security.TokenService
	log      zerolog.Logger
}

func NewAuthService(userRepo repository.UserRepository, tokens *security.TokenService, log zerolog.Logger) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		tokens:   tokens,
		log:      log.With().Str("component", "auth_service").Logger(),
	}
}

type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResult struct {
	User         *model.User
	AccessToken  string
	RefreshToken string
}

type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

func (s *AuthService) Signup(ctx context.Context, req SignupRequest) (*AuthResult, error) {
	if err := validateSignup(req); err != nil {
		return nil, err
	}

	hashedPassword, err := security.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	role := req.Role
	if role == "" {
		role = model.RoleMember
	}

	user := &model.User{
		ID:             uuid.NewString(),
		Name:           strings.TrimSpace(req.Name),
		Email:          strings.ToLower(strings.TrimSpace(req.Email)),
		HashedPassword: hashedPassword,
		Role:           role,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	pair, err := s.issueAndStore(ctx, user)
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("user_id", user.ID).Str("role", user.Role).Msg("user registered")
	user.HashedPassword = ""
	return &AuthResult{User: user, AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken}, nil
}

func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*AuthResult, error) {
	if req.Email == "" || req.Password == "" {
		return nil, common.NewError(common.ErrBadRequest, "Email and password are required")
	}

	user, err := s.userRepo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.NewError(common.ErrUnauthorized, "Invalid email or password")
		}
		return nil, err
	}

	if !security.CheckPasswordHash(req.Password, user.HashedPassword) {
		return nil, common.NewError(common.ErrUnauthorized, "Invalid email or password")
	}

	pair, err := s.issueAndStore(ctx, user)
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("user_id", user.ID).Msg("user logged in")
	user.HashedPassword = ""
	return &AuthResult{User: user, AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken}, nil
}

// Rotate exchanges a refresh token for a fresh pair. The stored token is the
// single source of truth for revocation: the swap is conditional on the old
// value, so of two concurrent rotations only one can win and the loser gets
// Unauthorized.
func (s *AuthService) Rotate(ctx context.Context, oldToken string) (*TokenPair, error) {
	user, err := s.userRepo.FindByRefreshToken(ctx, oldToken)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.NewError(common.ErrUnauthorized, "Invalid refresh token")
		}
		return nil, err
	}

	claims, err := s.tokens.VerifyRefreshToken(oldToken)
	if err != nil {
		return nil, common.NewError(common.ErrUnauthorized, "Refresh token invalid or expired")
	}
	if claims.UserID != user.ID {
		// Token decrypts but names a different subject than the row it was
		// found on: storage and token have desynced.
		return nil, common.NewError(common.ErrUnauthorized, "Refresh token invalid or expired")
	}

	accessToken, err := s.tokens.IssueAccessToken(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("issuing access token: %w", err)
	}
	refreshToken, err := s.tokens.IssueRefreshToken(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("issuing refresh token: %w", err)
	}

	if err := s.userRepo.SwapRefreshToken(ctx, user.ID, oldToken, refreshToken); err != nil {
		return nil, err
	}

	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

func (s *AuthService) Logout(ctx context.Context, userID string) error {
	if _, err := s.userRepo.FindByID(ctx, userID); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return common.NewError(common.ErrNotFound, "User not found")
		}
		return err
	}
	if err := s.userRepo.ClearRefreshToken(ctx, userID); err != nil {
		return err
	}
	s.log.Info().Str("user_id", userID).Msg("user logged out")
	return nil
}

func (s *AuthService) issueAndStore(ctx context.Context, user *model.User) (*TokenPair, error) {
	accessToken, err := s.tokens.IssueAccessToken(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("issuing access token: %w", err)
	}
	refreshToken, err := s.tokens.IssueRefreshToken(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("issuing refresh token: %w", err)
	}
	if err := s.userRepo.SetRefreshToken(ctx, user.ID, refreshToken); err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

func validateSignup(req SignupRequest) error {
	if strings.TrimSpace(req.Name) == "" {
		return common.NewError(common.ErrValidation, "Name is required")
	}
	if !emailPattern.MatchString(strings.TrimSpace(req.Email)) {
		return common.NewError(common.ErrValidation, "A valid email is required")
	}
	if len(req.Password) < 8 {
		return common.NewError(common.ErrValidation, "Password must be at least 8 characters")
	}
	if req.Role != "" && req.Role != model.RoleAdmin && req.Role != model.RoleMember {
		return common.NewError(common.ErrValidation, "Role must be ADMIN or MEMBER")
	}
	return nil
}
