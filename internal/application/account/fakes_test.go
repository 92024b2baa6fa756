package account_test

import (
	"context"
	"testing"

	domain "github.com/mohammadpnp/identity-migration/internal/domain/identity"
	"golang.org/x/crypto/bcrypt"
)

type fakeDirectory struct {
	byContact map[string]*domain.Employee
	byID      map[int64]*domain.Employee
	findErr   error
	updateErr error
	updated   map[int64]string
}

func (f *fakeDirectory) FindByContactNumber(ctx context.Context, contact string) (*domain.Employee, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	employee, ok := f.byContact[contact]
	if !ok {
		return nil, domain.ErrEmployeeNotFound
	}
	return employee, nil
}

func (f *fakeDirectory) FindByID(ctx context.Context, id int64) (*domain.Employee, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	employee, ok := f.byID[id]
	if !ok {
		return nil, domain.ErrEmployeeNotFound
	}
	return employee, nil
}

func (f *fakeDirectory) UpdatePasswordHash(ctx context.Context, id int64, hash string) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	if f.updated == nil {
		f.updated = make(map[int64]string)
	}
	f.updated[id] = hash
	return nil
}

func mustHash(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return string(hash)
}

func testEmployee(t *testing.T) *domain.Employee {
	department := int64(4)
	return &domain.Employee{
		ID:           17,
		FullName:     "Sara Karimi",
		Email:        "sara@example.com",
		DepartmentID: &department,
		Designation:  "Supervisor",
		PasswordHash: mustHash(t, "correct horse"),
	}
}
