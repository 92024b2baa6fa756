package graphql

import (
	"fmt"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"
)

var (
	listEmployeesDocument = mustParse("ListEmployees", `
query ListEmployees {
  master_employee(order_by: {id: asc}) {
    id
    email
    password
    full_name
    user_id
  }
}`)

	linkEmployeeDocument = mustParse("LinkEmployee", `
mutation LinkEmployee($id: Int!, $user_id: uuid!) {
  update_master_employee_by_pk(pk_columns: {id: $id}, _set: {user_id: $user_id}) {
    id
  }
}`)

	employeeByContactDocument = mustParse("EmployeeByContact", `
query EmployeeByContact($contact: String!) {
  master_employee(where: {contact_number: {_eq: $contact}}, limit: 1) {
    id
    full_name
    email
    department_id
    password
    master_designation {
      designation_name
    }
  }
}`)

	employeeByIDDocument = mustParse("EmployeeByID", `
query EmployeeByID($id: Int!) {
  master_employee(where: {id: {_eq: $id}}, limit: 1) {
    id
    full_name
    email
    department_id
    password
    master_designation {
      designation_name
    }
  }
}`)

	updatePasswordDocument = mustParse("UpdateEmployeePassword", `
mutation UpdateEmployeePassword($id: Int!, $password: String!) {
  update_master_employee_by_pk(pk_columns: {id: $id}, _set: {password: $password}) {
    id
  }
}`)
)

// mustParse rejects syntactically broken documents at start-up instead of at the
// first request against the data layer.
func mustParse(name, document string) string {
	if _, err := parser.ParseQuery(&ast.Source{Name: name, Input: document}); err != nil {
		panic(fmt.Sprintf("graphql document %s: %v", name, err))
	}
	return document
}
