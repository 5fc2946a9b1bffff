package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/justsurfingit/job-funnel-tracker/internal/auth"
	"github.com/justsurfingit/job-funnel-tracker/internal/dtos"
	"github.com/justsurfingit/job-funnel-tracker/internal/models"
	"github.com/justsurfingit/job-funnel-tracker/internal/repository"
)

type AuthService struct {
	Users  repository.UserRepository
	Tokens *auth.TokenManager
}

func NewAuthService(users repository.UserRepository, tokens *auth.TokenManager) *AuthService {
	return &AuthService{Users: users, Tokens: tokens}
}

func (s *AuthService) Signup(ctx context.Context, req *dtos.Credentials) (*dtos.AuthResponse, error) {
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	user := &models.User{Email: req.Email, PasswordHash: hash}
	if err := s.Users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("%w: email already used", ErrValidation)
		}
		return nil, err
	}
	slog.Info("user signed up", slog.String("user_id", user.ID))
	return s.session(user)
}

func (s *AuthService) Login(ctx context.Context, req *dtos.Credentials) (*dtos.AuthResponse, error) {
	user, err := s.Users.FindUserByEmail(ctx, req.Email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUnauthorized
	}
	if err != nil {
		return nil, err
	}
	if err := auth.CheckPassword(user.PasswordHash, req.Password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}
	return s.session(user)
}

// Authenticate resolves a bearer token to the user id it was issued for.
func (s *AuthService) Authenticate(token string) (string, error) {
	claims, err := s.Tokens.Parse(token)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}
	return claims.Subject, nil
}

func (s *AuthService) session(user *models.User) (*dtos.AuthResponse, error) {
	token, _, err := s.Tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, err
	}
	return &dtos.AuthResponse{
		Token: token,
		User:  dtos.UserInfo{ID: user.ID, Email: user.Email},
	}, nil
}
