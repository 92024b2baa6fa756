package identity

type Employee struct {
	ID           int64
	FullName     string
	Email        string
	DepartmentID *int64
	Designation  string
	PasswordHash string
}
