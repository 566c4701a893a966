package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"boardgame-rental-backend/internal/domain"
	"boardgame-rental-backend/internal/logger"
	"boardgame-rental-backend/internal/repository"
	"boardgame-rental-backend/internal/security"
)

const minPasswordLength = 8

var ErrInvalidCredentials = &domain.Error{Kind: domain.KindUnauthorized, Message: "invalid email or password"}

type authService struct {
	users        repository.UserRepository
	tokenManager security.TokenManager
}

func NewAuthService(repos repository.Repositories, tokenManager security.TokenManager) AuthService {
	return &authService{
		users:        repos.Users,
		tokenManager: tokenManager,
	}
}

func (s *authService) Login(ctx context.Context, email, password string) (string, *domain.User, error) {
	logger.EnterMethod("authService.Login", "email", email)

	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			err = ErrInvalidCredentials
		}
		logExit("authService.Login", err, "email", email)
		return "", nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		logExit("authService.Login", ErrInvalidCredentials, "email", email)
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.tokenManager.GenerateAccessToken(user)
	if err != nil {
		logger.ExitMethodWithError("authService.Login", err, "userID", user.ID)
		return "", nil, err
	}

	logger.ExitMethod("authService.Login", "userID", user.ID, "role", user.Role)
	return token, user, nil
}

func (s *authService) CreateUser(ctx context.Context, caller domain.Caller, input NewUser) (*domain.User, error) {
	logger.EnterMethod("authService.CreateUser", "callerID", caller.UserID, "email", input.Email)

	if err := security.Require(caller, security.ManageUsers); err != nil {
		logExit("authService.CreateUser", err, "callerID", caller.UserID)
		return nil, err
	}

	user, err := s.create(ctx, input)
	if err != nil {
		logExit("authService.CreateUser", err, "email", input.Email)
		return nil, err
	}

	logger.ExitMethod("authService.CreateUser", "userID", user.ID, "role", user.Role)
	return user, nil
}

// EnsureAdmin creates the bootstrap administrator unless the email is taken.
func (s *authService) EnsureAdmin(ctx context.Context, email, password string) (*domain.User, error) {
	existing, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}

	user, err := s.create(ctx, NewUser{Email: email, Name: "Administrator", Role: string(domain.RoleAdmin), Password: password})
	if err != nil {
		return nil, err
	}
	logger.Info("Bootstrap administrator created", "userID", user.ID, "email", user.Email)
	return user, nil
}

func (s *authService) create(ctx context.Context, input NewUser) (*domain.User, error) {
	email := strings.TrimSpace(input.Email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, domain.InvalidInput("invalid email %q", input.Email)
	}
	if len(input.Password) < minPasswordLength {
		return nil, domain.InvalidInput("password must be at least %d characters", minPasswordLength)
	}
	role, err := domain.ParseRole(input.Role)
	if err != nil {
		return nil, err
	}
	if input.BorrowerIndex != "" {
		if err := domain.ValidateBorrowerIndex(input.BorrowerIndex); err != nil {
			return nil, err
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Email:         email,
		Name:          strings.TrimSpace(input.Name),
		BorrowerIndex: input.BorrowerIndex,
		Role:          role,
		PasswordHash:  string(hash),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}
