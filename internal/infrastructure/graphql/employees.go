package graphql

import (
	"context"
	"fmt"

	domain "github.com/mohammadpnp/identity-migration/internal/domain/identity"
)

type employeeRow struct {
	ID       int64   `json:"id"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
	FullName *string `json:"full_name"`
	UserID   *string `json:"user_id"`
}

type profileRow struct {
	ID           int64   `json:"id"`
	FullName     *string `json:"full_name"`
	Email        *string `json:"email"`
	DepartmentID *int64  `json:"department_id"`
	Password     *string `json:"password"`
	Designation  *struct {
		Name string `json:"designation_name"`
	} `json:"master_designation"`
}

type employeesData struct {
	Employees []employeeRow `json:"master_employee"`
}

type profilesData struct {
	Employees []profileRow `json:"master_employee"`
}

type updateData struct {
	Updated *struct {
		ID int64 `json:"id"`
	} `json:"update_master_employee_by_pk"`
}

// EmployeeRepository exposes the legacy master_employee table through the data layer.
type EmployeeRepository struct {
	client *Client
}

func NewEmployeeRepository(client *Client) *EmployeeRepository {
	return &EmployeeRepository{client: client}
}

func (r *EmployeeRepository) FetchUnmigratedRecords(ctx context.Context) ([]domain.LegacyRecord, error) {
	var data employeesData
	if err := r.client.Do(ctx, "ListEmployees", listEmployeesDocument, nil, &data); err != nil {
		return nil, err
	}

	records := make([]domain.LegacyRecord, 0, len(data.Employees))
	for _, row := range data.Employees {
		records = append(records, domain.LegacyRecord{
			ID:               row.ID,
			Email:            deref(row.Email),
			FullName:         deref(row.FullName),
			PasswordHash:     row.Password,
			LinkedIdentityID: row.UserID,
		})
	}
	return records, nil
}

func (r *EmployeeRepository) LinkIdentity(ctx context.Context, legacyID int64, targetID string) error {
	var data updateData
	err := r.client.Do(ctx, "LinkEmployee", linkEmployeeDocument, map[string]any{
		"id":      legacyID,
		"user_id": targetID,
	}, &data)
	if err != nil {
		return err
	}
	if data.Updated == nil {
		return fmt.Errorf("%w: employee %d", domain.ErrEmployeeNotFound, legacyID)
	}
	return nil
}

func (r *EmployeeRepository) FindByContactNumber(ctx context.Context, contact string) (*domain.Employee, error) {
	return r.findOne(ctx, "EmployeeByContact", employeeByContactDocument, map[string]any{"contact": contact})
}

func (r *EmployeeRepository) FindByID(ctx context.Context, id int64) (*domain.Employee, error) {
	return r.findOne(ctx, "EmployeeByID", employeeByIDDocument, map[string]any{"id": id})
}

func (r *EmployeeRepository) UpdatePasswordHash(ctx context.Context, id int64, hash string) error {
	var data updateData
	err := r.client.Do(ctx, "UpdateEmployeePassword", updatePasswordDocument, map[string]any{
		"id":       id,
		"password": hash,
	}, &data)
	if err != nil {
		return err
	}
	if data.Updated == nil {
		return fmt.Errorf("%w: employee %d", domain.ErrEmployeeNotFound, id)
	}
	return nil
}

func (r *EmployeeRepository) findOne(ctx context.Context, operation, document string, variables map[string]any) (*domain.Employee, error) {
	var data profilesData
	if err := r.client.Do(ctx, operation, document, variables, &data); err != nil {
		return nil, err
	}
	if len(data.Employees) == 0 {
		return nil, domain.ErrEmployeeNotFound
	}

	row := data.Employees[0]
	employee := &domain.Employee{
		ID:           row.ID,
		FullName:     deref(row.FullName),
		Email:        deref(row.Email),
		DepartmentID: row.DepartmentID,
		PasswordHash: deref(row.Password),
	}
	if row.Designation != nil {
		employee.Designation = row.Designation.Name
	}
	return employee, nil
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
