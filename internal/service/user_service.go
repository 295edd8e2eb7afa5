package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/noah-isme/atlas-logistics-api/internal/dto"
	"github.com/noah-isme/atlas-logistics-api/internal/models"
	"github.com/noah-isme/atlas-logistics-api/internal/policy"
	"github.com/noah-isme/atlas-logistics-api/internal/repository"
)

const passwordCost = 12

var (
	// ErrUserNotFound indicates the account does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrSelfDelete indicates an admin tried to remove their own account.
	ErrSelfDelete = errors.New("cannot delete your own account")
	// ErrEmailTaken indicates another account already uses the email address.
	ErrEmailTaken = errors.New("email already registered")
	// ErrUserHasShipments indicates the account still owns shipments and cannot be purged.
	ErrUserHasShipments = errors.New("user still owns shipments")
	// ErrPasswordTooLong indicates the password exceeds bcrypt's 72 byte input limit.
	ErrPasswordTooLong = errors.New("password must be at most 72 bytes")
)

// maxPasswordBytes is bcrypt's input limit; multibyte runes count per byte.
const maxPasswordBytes = 72

func hashPassword(password string, cost int) ([]byte, error) {
	if len(password) > maxPasswordBytes {
		return nil, ErrPasswordTooLong
	}
	return bcrypt.GenerateFromPassword([]byte(password), cost)
}

// UserService manages back-office accounts.
type UserService interface {
	Me(ctx context.Context, actor policy.Actor) (dto.UserResponse, error)
	List(ctx context.Context, actor policy.Actor, deleted bool) ([]dto.UserResponse, error)
	Create(ctx context.Context, actor policy.Actor, req dto.CreateUserRequest) (dto.UserResponse, error)
	Delete(ctx context.Context, actor policy.Actor, id uint) error
	Restore(ctx context.Context, actor policy.Actor, id uint) (dto.UserResponse, error)
	ForceDelete(ctx context.Context, actor policy.Actor, id uint) error
	UpdatePassword(ctx context.Context, actor policy.Actor, req dto.UpdatePasswordRequest) error
}

type userService struct {
	store    repository.Store
	validate *validator.Validate
	logger   zerolog.Logger
	cost     int
	now      func() time.Time
}

// NewUserService constructs the user service.
func NewUserService(store repository.Store, validate *validator.Validate, logger zerolog.Logger) UserService {
	return &userService{
		store:    store,
		validate: validate,
		logger:   logger.With().Str("component", "user_service").Logger(),
		cost:     passwordCost,
		now:      time.Now,
	}
}

func (s *userService) Me(ctx context.Context, actor policy.Actor) (dto.UserResponse, error) {
	if err := policy.RequireAdmin(actor); err != nil {
		return dto.UserResponse{}, err
	}
	user, err := s.store.Users().GetByID(ctx, actor.ID)
	if err != nil {
		return dto.UserResponse{}, notFound(err, ErrUserNotFound)
	}
	return dto.NewUserResponse(user), nil
}

func (s *userService) List(ctx context.Context, actor policy.Actor, deleted bool) ([]dto.UserResponse, error) {
	if err := policy.RequireSuperAdmin(actor); err != nil {
		return nil, err
	}
	users, err := s.store.Users().List(ctx, deleted)
	if err != nil {
		return nil, err
	}
	return dto.NewUserResponseSlice(users), nil
}

// Create registers a new ADMIN. Super admins are only provisioned through seeding.
func (s *userService) Create(ctx context.Context, actor policy.Actor, req dto.CreateUserRequest) (dto.UserResponse, error) {
	if err := policy.RequireSuperAdmin(actor); err != nil {
		return dto.UserResponse{}, err
	}
	if err := s.validate.Struct(req); err != nil {
		return dto.UserResponse{}, err
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := s.store.Users().GetByEmail(ctx, email); err == nil {
		return dto.UserResponse{}, ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.UserResponse{}, err
	}

	hash, err := hashPassword(req.Password, s.cost)
	if err != nil {
		return dto.UserResponse{}, err
	}

	user := models.User{
		Email:    email,
		Name:     sanitizeText(req.Name),
		Password: string(hash),
		Role:     models.RoleAdmin,
	}

	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		if err := tx.Users().Create(ctx, &user); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrEmailTaken
			}
			return err
		}
		return recordAudit(ctx, tx.AuditLogs(), actor, models.AuditCreateUser, models.AuditEntityUser, user.ID, map[string]interface{}{
			"email": user.Email,
		})
	})
	if err != nil {
		return dto.UserResponse{}, err
	}

	s.logger.Info().Uint("user_id", user.ID).Uint("created_by", actor.ID).Msg("admin account created")
	return dto.NewUserResponse(user), nil
}

func (s *userService) Delete(ctx context.Context, actor policy.Actor, id uint) error {
	return s.manage(ctx, actor, id, models.AuditDeleteUser, func(tx repository.Store, user models.User) error {
		deletedAt := s.now().UTC()
		return tx.Users().SetDeleted(ctx, user.ID, &deletedAt)
	})
}

func (s *userService) Restore(ctx context.Context, actor policy.Actor, id uint) (dto.UserResponse, error) {
	err := s.manage(ctx, actor, id, models.AuditRestoreUser, func(tx repository.Store, user models.User) error {
		return tx.Users().SetDeleted(ctx, user.ID, nil)
	})
	if err != nil {
		return dto.UserResponse{}, err
	}

	user, err := s.store.Users().GetByID(ctx, id)
	if err != nil {
		return dto.UserResponse{}, notFound(err, ErrUserNotFound)
	}
	return dto.NewUserResponse(user), nil
}

// ForceDelete purges an account. Accounts that still own shipments are refused so no
// shipment is left without an owner.
func (s *userService) ForceDelete(ctx context.Context, actor policy.Actor, id uint) error {
	return s.manage(ctx, actor, id, models.AuditDeleteUserPermanent, func(tx repository.Store, user models.User) error {
		owned, err := tx.Shipments().CountByAdmin(ctx, user.ID)
		if err != nil {
			return err
		}
		if owned > 0 {
			return ErrUserHasShipments
		}
		return tx.Users().Delete(ctx, user.ID)
	})
}

// manage applies a super-admin-only change to another account and records it.
func (s *userService) manage(ctx context.Context, actor policy.Actor, id uint, action models.AuditAction, fn func(tx repository.Store, user models.User) error) error {
	if err := policy.RequireSuperAdmin(actor); err != nil {
		return err
	}
	if id == actor.ID {
		return ErrSelfDelete
	}

	return s.store.Transaction(ctx, func(tx repository.Store) error {
		user, err := tx.Users().GetByID(ctx, id)
		if err != nil {
			return notFound(err, ErrUserNotFound)
		}
		if err := fn(tx, user); err != nil {
			return notFound(err, ErrUserNotFound)
		}
		return recordAudit(ctx, tx.AuditLogs(), actor, action, models.AuditEntityUser, user.ID, map[string]interface{}{
			"email": user.Email,
		})
	})
}

func (s *userService) UpdatePassword(ctx context.Context, actor policy.Actor, req dto.UpdatePasswordRequest) error {
	if err := policy.RequireAdmin(actor); err != nil {
		return err
	}
	if err := s.validate.Struct(req); err != nil {
		return err
	}

	hash, err := hashPassword(req.Password, s.cost)
	if err != nil {
		return err
	}

	return s.store.Transaction(ctx, func(tx repository.Store) error {
		if err := tx.Users().UpdatePassword(ctx, actor.ID, string(hash)); err != nil {
			return notFound(err, ErrUserNotFound)
		}
		return recordAudit(ctx, tx.AuditLogs(), actor, models.AuditUpdatePassword, models.AuditEntityUser, actor.ID, nil)
	})
}
