package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/noah-isme/atlas-logistics-api/internal/dto"
	"github.com/noah-isme/atlas-logistics-api/internal/models"
	"github.com/noah-isme/atlas-logistics-api/internal/observability"
	"github.com/noah-isme/atlas-logistics-api/internal/repository"
	"github.com/noah-isme/atlas-logistics-api/pkg/mailer"
)

var (
	// ErrInvalidCredentials indicates the email or password did not match an active account.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrSessionRevoked indicates the session subject no longer maps to an active account.
	ErrSessionRevoked = errors.New("session is no longer valid")
)

// AuthConfig controls session issuance.
type AuthConfig struct {
	Secret string
	TTL    time.Duration
}

// AuthService signs admins in and validates their sessions.
type AuthService interface {
	Login(ctx context.Context, req dto.LoginRequest) (dto.LoginResponse, error)
	VerifySession(ctx context.Context, userID uint) (models.UserRole, error)
}

type authService struct {
	users    repository.UserRepository
	validate *validator.Validate
	cfg      AuthConfig
	logger   zerolog.Logger
	now      func() time.Time
}

// NewAuthService constructs the auth service.
func NewAuthService(users repository.UserRepository, validate *validator.Validate, cfg AuthConfig, logger zerolog.Logger) AuthService {
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	return &authService{
		users:    users,
		validate: validate,
		cfg:      cfg,
		logger:   logger.With().Str("component", "auth_service").Logger(),
		now:      time.Now,
	}
}

func (s *authService) Login(ctx context.Context, req dto.LoginRequest) (dto.LoginResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return dto.LoginResponse{}, err
	}

	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.LoginAttempts().WithLabelValues("rejected").Inc()
			return dto.LoginResponse{}, ErrInvalidCredentials
		}
		return dto.LoginResponse{}, err
	}
	if user.IsDeleted {
		observability.LoginAttempts().WithLabelValues("rejected").Inc()
		return dto.LoginResponse{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		observability.LoginAttempts().WithLabelValues("rejected").Inc()
		s.logger.Warn().Str("email", mailer.MaskEmail(user.Email)).Msg("login rejected")
		return dto.LoginResponse{}, ErrInvalidCredentials
	}

	issuedAt := s.now().UTC()
	expiresAt := issuedAt.Add(s.cfg.TTL)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  strconv.FormatUint(uint64(user.ID), 10),
		"role": string(user.Role),
		"iat":  issuedAt.Unix(),
		"exp":  expiresAt.Unix(),
	})
	signed, err := token.SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return dto.LoginResponse{}, err
	}

	observability.LoginAttempts().WithLabelValues("accepted").Inc()
	s.logger.Info().Uint("user_id", user.ID).Str("role", string(user.Role)).Msg("admin signed in")

	return dto.LoginResponse{
		Token:     signed,
		ExpiresAt: expiresAt,
		User:      dto.NewUserResponse(user),
	}, nil
}

// VerifySession returns the current role of an active account.
func (s *authService) VerifySession(ctx context.Context, userID uint) (models.UserRole, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrSessionRevoked
		}
		return "", err
	}
	if user.IsDeleted || !user.Role.Valid() {
		return "", ErrSessionRevoked
	}
	return models.UserRole(strings.ToUpper(string(user.Role))), nil
}
