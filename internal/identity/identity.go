// Package identity issues and validates sessions. The rest of the system
// only ever consumes "current authenticated user id"; everything here is
// the thin provider behind that.
package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/fanlinkhq/fanlink/internal/config"
	"github.com/fanlinkhq/fanlink/internal/models"
	"github.com/fanlinkhq/fanlink/internal/store"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Service errors
var (
	ErrEmailAlreadyExists  = errors.New("email already registered")
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrInvalidToken        = errors.New("invalid token")
	ErrTokenExpired        = errors.New("token expired")
	ErrUserNotFound        = errors.New("user not found")
	ErrInvalidRole         = errors.New("role must be fan or creator")
	ErrDisplayNameRequired = errors.New("display name is required for creators")
	ErrSessionNotReady     = errors.New("session not yet queryable")
)

// Store is the slice of the entity store the identity service uses
type Store interface {
	EmailExists(ctx context.Context, email string) (bool, error)
	CreateUser(ctx context.Context, u *models.User, p *models.Profile) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Service handles registration, login and token issuance
type Service struct {
	store  Store
	config *config.JWTConfig

	// Session lookups immediately after a credential-issuing call may lag
	// behind; WaitForSession retries within these bounds.
	sessionRetries int
	sessionDelay   time.Duration
}

// NewService creates an identity service
func NewService(st Store, jwtCfg *config.JWTConfig) *Service {
	return &Service{
		store:          st,
		config:         jwtCfg,
		sessionRetries: 15,
		sessionDelay:   200 * time.Millisecond,
	}
}

// Claims represents JWT claims
type Claims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// TokenPair represents access and refresh tokens
type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	TokenType    string    `json:"token_type"`
}

// RegisterRequest represents a registration request
type RegisterRequest struct {
	Email       string      `json:"email" binding:"required,email"`
	Password    string      `json:"password" binding:"required,min=8"`
	Role        models.Role `json:"role" binding:"required,oneof=fan creator"`
	DisplayName string      `json:"display_name"` // Required for creators
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// RefreshRequest represents a token refresh request
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// UserResponse represents a user response without sensitive data
type UserResponse struct {
	ID        uuid.UUID   `json:"id"`
	Email     string      `json:"email"`
	Role      models.Role `json:"role"`
	CreatedAt time.Time   `json:"created_at"`
}

// AuthResponse bundles the user with a fresh token pair
type AuthResponse struct {
	User   UserResponse `json:"user"`
	Tokens TokenPair    `json:"tokens"`
}

// Register creates a new account with its profile
func (s *Service) Register(ctx context.Context, req *RegisterRequest) (*AuthResponse, error) {
	if !req.Role.Valid() {
		return nil, ErrInvalidRole
	}
	if req.Role == models.RoleCreator && req.DisplayName == "" {
		return nil, ErrDisplayNameRequired
	}

	exists, err := s.store.EmailExists(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email existence: %w", err)
	}
	if exists {
		return nil, ErrEmailAlreadyExists
	}

	passwordHash, err := argon2id.CreateHash(req.Password, argon2id.DefaultParams)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	var fullName *string
	if req.DisplayName != "" {
		fullName = &req.DisplayName
	}
	user, err := s.store.CreateUser(ctx,
		&models.User{Email: req.Email, PasswordHash: passwordHash, Role: req.Role},
		&models.Profile{FullName: fullName, Role: req.Role},
	)
	if err != nil {
		return nil, err
	}

	tokens, err := s.issueTokens(user)
	if err != nil {
		return nil, err
	}
	return &AuthResponse{User: toUserResponse(user), Tokens: *tokens}, nil
}

// Login verifies credentials and issues a token pair
func (s *Service) Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error) {
	user, err := s.store.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	match, err := argon2id.ComparePasswordAndHash(req.Password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to verify password: %w", err)
	}
	if !match {
		return nil, ErrInvalidCredentials
	}

	tokens, err := s.issueTokens(user)
	if err != nil {
		return nil, err
	}
	return &AuthResponse{User: toUserResponse(user), Tokens: *tokens}, nil
}

// RefreshTokens exchanges a valid refresh token for a new pair
func (s *Service) RefreshTokens(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.parseToken(refreshToken)
	if err != nil {
		return nil, err
	}
	if claims.Subject != "refresh" {
		return nil, ErrInvalidToken
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, ErrInvalidToken
	}
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	return s.issueTokens(user)
}

// WaitForSession polls the user lookup until the freshly issued session
// becomes queryable. Session propagation is eventually consistent; the
// delay is short and bounded, and callers get ErrSessionNotReady only
// after the bound is exhausted.
func (s *Service) WaitForSession(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	var lastErr error
	for attempt := 0; attempt < s.sessionRetries; attempt++ {
		user, err := s.store.GetUser(ctx, userID)
		if err == nil {
			return user, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		lastErr = err

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.sessionDelay):
		}
	}
	return nil, fmt.Errorf("%w: %v", ErrSessionNotReady, lastErr)
}

func (s *Service) issueTokens(user *models.User) (*TokenPair, error) {
	now := time.Now()
	accessExpiry := now.Add(s.config.AccessTokenExpiry)

	access, err := s.signToken(user, "access", now, accessExpiry)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}
	refresh, err := s.signToken(user, "refresh", now, now.Add(s.config.RefreshTokenExpiry))
	if err != nil {
		return nil, fmt.Errorf("failed to sign refresh token: %w", err)
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    accessExpiry,
		TokenType:    "Bearer",
	}, nil
}

func (s *Service) signToken(user *models.User, subject string, issuedAt, expiresAt time.Time) (string, error) {
	claims := &Claims{
		UserID: user.ID.String(),
		Role:   string(user.Role),
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    s.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.Secret))
}

func (s *Service) parseToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.config.Secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func toUserResponse(user *models.User) UserResponse {
	return UserResponse{
		ID:        user.ID,
		Email:     user.Email,
		Role:      user.Role,
		CreatedAt: user.CreatedAt,
	}
}
