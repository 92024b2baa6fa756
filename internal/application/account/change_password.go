package account

import (
	"context"
	"errors"
	"fmt"

	domain "github.com/mohammadpnp/identity-migration/internal/domain/identity"
	"golang.org/x/crypto/bcrypt"
)

type ChangePasswordInput struct {
	ID          int64
	OldPassword string
	NewPassword string
}

type ChangePassword interface {
	Execute(ctx context.Context, in ChangePasswordInput) error
}

type changePassword struct {
	directory domain.EmployeeDirectory
	cost      int
}

func NewChangePassword(directory domain.EmployeeDirectory, cost int) ChangePassword {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &changePassword{directory: directory, cost: cost}
}

func (uc *changePassword) Execute(ctx context.Context, in ChangePasswordInput) error {
	if in.OldPassword == "" || in.NewPassword == "" {
		return ErrMissingPasswords
	}
	if in.ID <= 0 {
		return ErrInvalidEmployeeID
	}

	employee, err := uc.directory.FindByID(ctx, in.ID)
	if err != nil {
		if errors.Is(err, domain.ErrEmployeeNotFound) {
			return ErrEmployeeNotFound
		}
		return fmt.Errorf("%w: %v", ErrChangePassword, err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(employee.PasswordHash), []byte(in.OldPassword)); err != nil {
		return ErrInvalidPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.NewPassword), uc.cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return ErrPasswordTooLong
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrChangePassword, err)
	}

	if err := uc.directory.UpdatePasswordHash(ctx, employee.ID, string(hash)); err != nil {
		if errors.Is(err, domain.ErrEmployeeNotFound) {
			return ErrEmployeeNotFound
		}
		return fmt.Errorf("%w: %v", ErrChangePassword, err)
	}
	return nil
}
