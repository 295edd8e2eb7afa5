package service

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/noah-isme/atlas-logistics-api/internal/models"
	"github.com/noah-isme/atlas-logistics-api/internal/repository"
	"github.com/noah-isme/atlas-logistics-api/pkg/mailer"
)

// ErrSeedCredentialsMissing indicates the bootstrap account is not configured.
var ErrSeedCredentialsMissing = errors.New("super admin email and password are required")

// SuperAdminSeed describes the bootstrap account.
type SuperAdminSeed struct {
	Email    string
	Password string
	Name     string
}

// SeedService provisions the bootstrap super admin.
type SeedService interface {
	SeedSuperAdmin(ctx context.Context, seed SuperAdminSeed) (models.User, bool, error)
}

type seedService struct {
	users  repository.UserRepository
	logger zerolog.Logger
	cost   int
}

// NewSeedService constructs a seeding service.
func NewSeedService(users repository.UserRepository, logger zerolog.Logger) SeedService {
	return &seedService{
		users:  users,
		logger: logger.With().Str("component", "seed_service").Logger(),
		cost:   passwordCost,
	}
}

// SeedSuperAdmin creates the account or, when it already exists, resets its password.
// The boolean reports whether a new account was created.
func (s *seedService) SeedSuperAdmin(ctx context.Context, seed SuperAdminSeed) (models.User, bool, error) {
	email := strings.ToLower(strings.TrimSpace(seed.Email))
	if email == "" || seed.Password == "" {
		return models.User{}, false, ErrSeedCredentialsMissing
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(seed.Password), s.cost)
	if err != nil {
		return models.User{}, false, err
	}

	existing, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if err := s.users.UpdatePassword(ctx, existing.ID, string(hash)); err != nil {
			return models.User{}, false, err
		}
		s.logger.Info().Str("email", mailer.MaskEmail(email)).Msg("super admin password refreshed")
		return existing, false, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return models.User{}, false, err
	}

	name := strings.TrimSpace(seed.Name)
	if name == "" {
		name = "Super Admin"
	}
	user := models.User{
		Email:    email,
		Name:     name,
		Password: string(hash),
		Role:     models.RoleSuperAdmin,
	}
	if err := s.users.Create(ctx, &user); err != nil {
		return models.User{}, false, err
	}

	s.logger.Info().Str("email", mailer.MaskEmail(email)).Msg("super admin created")
	return user, true, nil
}
