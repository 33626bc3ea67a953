package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"storefront/internal/models"
	"storefront/internal/repositories"
)

// UserService is the admin side of account management.
type UserService struct {
	store repositories.Store
}

func NewUserService(store repositories.Store) *UserService {
	return &UserService{store: store}
}

// AdminUserInput creates an account with an explicit admin flag.
type AdminUserInput struct {
	FullName string `json:"full_name" validate:"required,max=200"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=6"`
	Address  string `json:"address" validate:"max=1000"`
	IsAdmin  bool   `json:"is_admin"`
}

// AdminUserUpdate edits an account. An empty NewPassword keeps the current one.
type AdminUserUpdate struct {
	FullName        string `json:"full_name" validate:"required,max=200"`
	Email           string `json:"email" validate:"required,email,max=255"`
	Address         string `json:"address" validate:"max=1000"`
	IsAdmin         bool   `json:"is_admin"`
	NewPassword     string `json:"new_password" validate:"omitempty,min=6"`
	PasswordConfirm string `json:"password_confirm" validate:"eqfield=NewPassword"`
}

func (s *UserService) List(ctx context.Context) ([]models.User, error) {
	return s.store.Users().List(ctx)
}

func (s *UserService) Get(ctx context.Context, id uint) (*models.User, error) {
	return s.store.Users().GetByID(ctx, id)
}

func (s *UserService) Create(ctx context.Context, in AdminUserInput) (*models.User, error) {
	in.FullName = strings.TrimSpace(in.FullName)
	in.Email = normalizeEmail(in.Email)
	in.Address = strings.TrimSpace(in.Address)
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	users := s.store.Users()
	if err := ensureEmailAvailable(ctx, users, in.Email, 0); err != nil {
		return nil, err
	}
	hashed, err := hashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:    in.Email,
		Password: hashed,
		FullName: in.FullName,
		Address:  in.Address,
		IsAdmin:  in.IsAdmin,
	}
	if err := users.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}
	log.Printf("Admin created user %d (%s, admin=%t)", user.ID, user.Email, user.IsAdmin)
	return user, nil
}

func (s *UserService) Update(ctx context.Context, id uint, in AdminUserUpdate) (*models.User, error) {
	in.FullName = strings.TrimSpace(in.FullName)
	in.Email = normalizeEmail(in.Email)
	in.Address = strings.TrimSpace(in.Address)
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	var user *models.User
	err := s.store.Transaction(ctx, func(tx repositories.Store) error {
		var err error
		user, err = tx.Users().GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := ensureEmailAvailable(ctx, tx.Users(), in.Email, user.ID); err != nil {
			return err
		}

		user.FullName = in.FullName
		user.Email = in.Email
		user.Address = in.Address
		user.IsAdmin = in.IsAdmin
		if err := tx.Users().Update(ctx, user); err != nil {
			if errors.Is(err, repositories.ErrDuplicate) {
				return ErrDuplicateEmail
			}
			return err
		}

		if in.NewPassword == "" {
			return nil
		}
		hashed, err := hashPassword(in.NewPassword)
		if err != nil {
			return err
		}
		return tx.Users().UpdatePassword(ctx, user.ID, hashed)
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Delete removes an account that has no orders and no reviews. Admins cannot
// delete their own account.
func (s *UserService) Delete(ctx context.Context, actorID, id uint) error {
	if actorID == id {
		return fieldError("user", "you cannot delete your own account")
	}

	err := s.store.Transaction(ctx, func(tx repositories.Store) error {
		if _, err := tx.Users().GetByID(ctx, id); err != nil {
			return err
		}
		orders, err := tx.Orders().CountByUser(ctx, id)
		if err != nil {
			return err
		}
		reviews, err := tx.Reviews().CountByUser(ctx, id)
		if err != nil {
			return err
		}
		if orders > 0 || reviews > 0 {
			return fmt.Errorf("user %d has %d orders and %d reviews: %w", id, orders, reviews, ErrUserHasHistory)
		}
		return tx.Users().Delete(ctx, id)
	})
	if errors.Is(err, repositories.ErrReferenced) {
		return fmt.Errorf("user %d is still referenced: %w", id, ErrUserHasHistory)
	}
	if err != nil {
		return err
	}
	log.Printf("Admin %d deleted user %d", actorID, id)
	return nil
}
