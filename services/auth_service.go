package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"salon-booking-backend/logger"
	"salon-booking-backend/models"
	"salon-booking-backend/repository"
	"salon-booking-backend/utils"
)

type AuthService struct {
	admins repository.AdminRepository
	tokens *utils.TokenIssuer
	log    logger.Logger
	now    func() time.Time
}

func NewAuthService(admins repository.AdminRepository, tokens *utils.TokenIssuer, log logger.Logger) *AuthService {
	return &AuthService{
		admins: admins,
		tokens: tokens,
		log:    log.With("component", "auth"),
		now:    time.Now,
	}
}

type LoginResult struct {
	Token string            `json:"token"`
	User  *models.AdminUser `json:"user"`
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.admins.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("storage: %w", err)
	}
	if !user.IsAdmin || !utils.CheckPasswordHash(password, user.Password) {
		return nil, ErrInvalidCredentials
	}

	token, err := s.tokens.GenerateToken(user.ID, user.Email, user.IsAdmin)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	now := s.now().UTC()
	if err := s.admins.TouchLogin(ctx, user.ID, now); err != nil {
		s.log.Warn("failed to record login", "userId", user.ID, "error", err)
	}
	user.LastLogin = &now
	return &LoginResult{Token: token, User: user}, nil
}

// MakeAdmin creates the account or promotes an existing one. An empty
// password keeps the current one.
func (s *AuthService) MakeAdmin(ctx context.Context, email, name, password string) (*models.AdminUser, bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !utils.ValidEmail(email) {
		verr := &ValidationError{}
		verr.Add("email", "is not a valid email address")
		return nil, false, verr
	}

	user, err := s.admins.FindByEmail(ctx, email)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		if len(password) < 8 {
			verr := &ValidationError{}
			verr.Add("password", "must be at least 8 characters")
			return nil, false, verr
		}
		user = &models.AdminUser{Email: email, Name: name, Password: password, IsAdmin: true}
		if err := s.admins.Create(ctx, user); err != nil {
			return nil, false, fmt.Errorf("create admin: %w", err)
		}
		s.log.Info("admin created", "email", email)
		return user, true, nil
	case err != nil:
		return nil, false, fmt.Errorf("storage: %w", err)
	}

	user.IsAdmin = true
	if name != "" {
		user.Name = name
	}
	if password != "" {
		if len(password) < 8 {
			verr := &ValidationError{}
			verr.Add("password", "must be at least 8 characters")
			return nil, false, verr
		}
		user.Password = password
	}
	if err := s.admins.Update(ctx, user); err != nil {
		return nil, false, fmt.Errorf("update admin: %w", err)
	}
	s.log.Info("admin promoted", "email", email)
	return user, false, nil
}
