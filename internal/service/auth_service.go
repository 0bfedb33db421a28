package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/hobbyist/hobbyist-api/internal/apperror"
	"github.com/hobbyist/hobbyist-api/internal/config"
	"github.com/hobbyist/hobbyist-api/internal/model"
	"github.com/hobbyist/hobbyist-api/internal/repository"
	"github.com/hobbyist/hobbyist-api/internal/resilience"
	"github.com/hobbyist/hobbyist-api/internal/rules"
)

// ErrInvalidCredentials is returned for an unknown email or a wrong password.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Claims extends JWT standard claims with the marketplace identity.
type Claims struct {
	jwt.RegisteredClaims
	UserID uuid.UUID  `json:"user_id"`
	Email  string     `json:"email"`
	Role   model.Role `json:"role"`
}

// AuthService handles registration, passwords and JWTs.
type AuthService struct {
	cfg       *config.Config
	users     *repository.UserRepository
	validator *rules.Validator
	guard     *resilience.Guard
}

// NewAuthService creates a new AuthService.
func NewAuthService(cfg *config.Config, users *repository.UserRepository, validator *rules.Validator, guard *resilience.Guard) *AuthService {
	return &AuthService{cfg: cfg, users: users, validator: validator, guard: guard}
}

// HashPassword hashes a password with the configured bcrypt cost.
func (s *AuthService) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	return string(hash), err
}

// CheckPassword compares a plaintext password against a bcrypt hash.
func (s *AuthService) CheckPassword(hash, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// GenerateToken issues a JWT for user.
func (s *AuthService) GenerateToken(user *model.UserProfile) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.JWTExpiry)),
		},
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses and validates a JWT, returning the claims.
func (s *AuthService) ValidateToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// Register runs the user_registration rules and creates a student account.
func (s *AuthService) Register(ctx context.Context, req *model.RegisterRequest) (*model.UserProfile, []rules.Warning, error) {
	in := rules.RegistrationInput{
		Email:       req.Email,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Phone:       req.Phone,
		DateOfBirth: req.DateOfBirth,
	}
	res := s.validator.Validate(ctx, rules.CategoryUserRegistration, in, rules.RuleContext{})
	warnings, err := check(res, rules.CategoryUserRegistration)
	if err != nil {
		return nil, nil, err
	}

	hash, err := s.HashPassword(req.Password)
	if err != nil {
		return nil, nil, apperror.Internal("Failed to secure password", err)
	}

	user := &model.UserProfile{
		Email:        strings.TrimSpace(req.Email),
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Role:         model.RoleStudent,
	}
	if req.Phone != "" {
		user.Phone = &req.Phone
	}
	if req.DateOfBirth != "" {
		// Already checked by age_verification.
		if dob, err := time.Parse(time.DateOnly, req.DateOfBirth); err == nil {
			user.DateOfBirth = &dob
		}
	}

	err = s.guard.Once(ctx, func(ctx context.Context) error { return s.users.Create(ctx, user) })
	if errors.Is(err, repository.ErrEmailTaken) {
		return nil, nil, apperror.Conflict("An account with this email address already exists", "user")
	}
	if err != nil {
		return nil, nil, err
	}
	return user, warnings, nil
}

// Login verifies credentials and issues a token.
func (s *AuthService) Login(ctx context.Context, req *model.LoginRequest) (*model.LoginResponse, error) {
	user, err := resilience.Call(ctx, s.guard, func(ctx context.Context) (*model.UserProfile, error) {
		return s.users.GetByEmail(ctx, req.Email)
	})
	if apperror.IsNotFound(err) {
		return nil, apperror.Authentication("Invalid email or password").Wrap(ErrInvalidCredentials)
	}
	if err != nil {
		return nil, err
	}
	if err := s.CheckPassword(user.PasswordHash, req.Password); err != nil {
		return nil, apperror.Authentication("Invalid email or password").Wrap(err)
	}

	token, err := s.GenerateToken(user)
	if err != nil {
		return nil, apperror.Internal("Failed to issue token", err)
	}
	return &model.LoginResponse{Token: token, User: *user}, nil
}

// Me returns the profile behind a token.
func (s *AuthService) Me(ctx context.Context, userID uuid.UUID) (*model.UserProfile, error) {
	user, err := resilience.Call(ctx, s.guard, func(ctx context.Context) (*model.UserProfile, error) {
		return s.users.GetByID(ctx, userID)
	})
	if apperror.IsNotFound(err) {
		return nil, apperror.NotFound("user", userID.String())
	}
	return user, err
}
