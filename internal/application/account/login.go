package account

import (
	"context"
	"errors"
	"fmt"
	"strings"

	domain "github.com/mohammadpnp/identity-migration/internal/domain/identity"
	"golang.org/x/crypto/bcrypt"
)

type LoginInput struct {
	ContactNumber string
	Password      string
}

type LoginOutput struct {
	AccessToken  string `json:"access_token"`
	DepartmentID *int64 `json:"department_id"`
	Email        string `json:"email"`
	FullName     string `json:"full_name"`
	ID           int64  `json:"id"`
	Role         string `json:"role"`
}

type Login interface {
	Execute(ctx context.Context, in LoginInput) (LoginOutput, error)
}

type tokenIssuer interface {
	Issue(employee domain.Employee) (string, error)
}

type login struct {
	directory domain.EmployeeDirectory
	tokens    tokenIssuer
}

func NewLogin(directory domain.EmployeeDirectory, tokens tokenIssuer) Login {
	return &login{directory: directory, tokens: tokens}
}

func (uc *login) Execute(ctx context.Context, in LoginInput) (LoginOutput, error) {
	contact := strings.TrimSpace(in.ContactNumber)
	if contact == "" || in.Password == "" {
		return LoginOutput{}, ErrMissingCredentials
	}

	employee, err := uc.directory.FindByContactNumber(ctx, contact)
	if err != nil {
		if errors.Is(err, domain.ErrEmployeeNotFound) {
			return LoginOutput{}, ErrEmployeeNotFound
		}
		return LoginOutput{}, fmt.Errorf("%w: %v", ErrLogin, err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(employee.PasswordHash), []byte(in.Password)); err != nil {
		return LoginOutput{}, ErrInvalidPassword
	}

	token, err := uc.tokens.Issue(*employee)
	if err != nil {
		return LoginOutput{}, fmt.Errorf("%w: %v", ErrLogin, err)
	}

	return LoginOutput{
		AccessToken:  token,
		DepartmentID: employee.DepartmentID,
		Email:        employee.Email,
		FullName:     employee.FullName,
		ID:           employee.ID,
		Role:         employee.Designation,
	}, nil
}
