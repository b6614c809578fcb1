package service

import (
	"context"
	"errors"
	"fmt"

	"farm-market/internal/auth"
	"farm-market/internal/models"
	"farm-market/internal/store"
	"farm-market/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AuthService registers users and exchanges credentials for bearer tokens.
type AuthService struct {
	users  UserStore
	tokens *auth.TokenMaker
	logger *zap.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(users UserStore, tokens *auth.TokenMaker) *AuthService {
	return &AuthService{
		users:  users,
		tokens: tokens,
		logger: util.GetLogger(),
	}
}

// RegisterRequest is the signup payload.
type RegisterRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	FullName string `json:"full_name" binding:"required"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
	UserType string `json:"user_type" binding:"required"`
}

// LoginRequest is the credential payload.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Token is the login response.
type Token struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	UserID      string      `json:"user_id"`
	UserType    models.Role `json:"user_type"`
}

// Register creates a new farmer or buyer account.
func (s *AuthService) Register(ctx context.Context, req *RegisterRequest) (*models.User, error) {
	ctx, span := util.StartSpan(ctx, "AuthService.Register")
	defer span.End()

	role, ok := models.ToRole(req.UserType)
	if !ok {
		return nil, fmt.Errorf("user_type must be farmer or buyer: %w", ErrInvalidArgument)
	}

	exists, err := s.users.UserExists(ctx, req.Username, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing users: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("username or email already registered: %w", ErrInvalidArgument)
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		FullName:     req.FullName,
		Phone:        req.Phone,
		Address:      req.Address,
		Role:         role,
	}

	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, fmt.Errorf("username or email already registered: %w", ErrInvalidArgument)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("User registered",
		zap.String("user_id", user.ID),
		zap.String("role", string(user.Role)))
	return user, nil
}

// Login verifies credentials and issues a bearer token.
func (s *AuthService) Login(ctx context.Context, req *LoginRequest) (*Token, error) {
	ctx, span := util.StartSpan(ctx, "AuthService.Login")
	defer span.End()

	user, err := s.users.GetUserByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("incorrect username or password: %w", ErrUnauthenticated)
		}
		return nil, err
	}
	if !auth.CheckPassword(req.Password, user.PasswordHash) {
		return nil, fmt.Errorf("incorrect username or password: %w", ErrUnauthenticated)
	}

	accessToken, err := s.tokens.CreateToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	return &Token{
		AccessToken: accessToken,
		TokenType:   "bearer",
		UserID:      user.ID,
		UserType:    user.Role,
	}, nil
}

// GetUser resolves a user id from a verified token subject.
func (s *AuthService) GetUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("user not found: %w", ErrUnauthenticated)
		}
		return nil, err
	}
	return user, nil
}
