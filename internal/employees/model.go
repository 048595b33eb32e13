// Package employees serves the employee list and its export.
package employees

import (
	"encoding/json"
	"strings"

	"github.com/odyssey-erp/odyssey-admin/internal/listview"
)

// Entity names the list in cache buckets and export filenames.
const Entity = "employees"

const (
	listPath   = "/employees"
	exportPath = "/employees/export"
)

type named struct {
	Name string `json:"name"`
}

// DTO is an employee as returned by the backend.
type DTO struct {
	ID           string      `json:"id"`
	EmployeeCode string      `json:"employeeCode"`
	FirstName    string      `json:"firstName"`
	LastName     string      `json:"lastName"`
	Email        string      `json:"email"`
	Phone        string      `json:"phone"`
	Designation  string      `json:"designation"`
	Department   *named      `json:"department"`
	Branch       *named      `json:"branch"`
	Status       string      `json:"status"`
	JoiningDate  string      `json:"joiningDate"`
	Salary       json.Number `json:"salary"`
}

// Row is the employee view-model.
type Row struct {
	ID                 string  `json:"id"`
	EmployeeCode       string  `json:"employeeCode"`
	Name               string  `json:"name"`
	Email              string  `json:"email"`
	Phone              string  `json:"phone"`
	Designation        string  `json:"designation"`
	Department         string  `json:"department"`
	Branch             string  `json:"branch"`
	Status             string  `json:"status"`
	StatusDisplay      string  `json:"statusDisplay"`
	JoiningDate        string  `json:"joiningDate"`
	JoiningDateDisplay string  `json:"joiningDateDisplay"`
	Salary             float64 `json:"salary"`
	SalaryDisplay      string  `json:"salaryDisplay"`
}

// Normalizer converts DTOs into rows using f for display strings.
func Normalizer(f listview.Formatter) func(DTO) Row {
	return func(d DTO) Row {
		salary := listview.ParseAmount(d.Salary.String())
		iso, display := f.Date(d.JoiningDate)
		row := Row{
			ID:                 d.ID,
			EmployeeCode:       strings.TrimSpace(d.EmployeeCode),
			Name:               strings.Join(strings.Fields(d.FirstName+" "+d.LastName), " "),
			Email:              strings.ToLower(strings.TrimSpace(d.Email)),
			Phone:              strings.TrimSpace(d.Phone),
			Designation:        strings.TrimSpace(d.Designation),
			Status:             strings.ToUpper(strings.TrimSpace(d.Status)),
			StatusDisplay:      f.Label(d.Status),
			JoiningDate:        iso,
			JoiningDateDisplay: display,
			Salary:             salary,
			SalaryDisplay:      f.Money(salary),
		}
		if d.Department != nil {
			row.Department = d.Department.Name
		}
		if d.Branch != nil {
			row.Branch = d.Branch.Name
		}
		return row
	}
}

var schema = listview.NewSchema([]listview.Field[Row]{
	{Name: "employeeCode", Kind: listview.KindNumericString, Value: func(r Row) string { return r.EmployeeCode }, Searchable: true, Sortable: true},
	{Name: "name", Kind: listview.KindString, Value: func(r Row) string { return r.Name }, Searchable: true, Sortable: true},
	{Name: "email", Value: func(r Row) string { return r.Email }, Searchable: true},
	{Name: "phone", Value: func(r Row) string { return r.Phone }, Searchable: true},
	{Name: "designation", Kind: listview.KindString, Value: func(r Row) string { return r.Designation }, Searchable: true, Sortable: true},
	{Name: "department", Kind: listview.KindString, Value: func(r Row) string { return r.Department }, Searchable: true, Sortable: true, Filterable: true},
	{Name: "branch", Kind: listview.KindString, Value: func(r Row) string { return r.Branch }, Searchable: true, Sortable: true, Filterable: true},
	{Name: "status", Kind: listview.KindString, Value: func(r Row) string { return r.Status }, Filterable: true},
	{Name: "statusDisplay", Value: func(r Row) string { return r.StatusDisplay }, Searchable: true},
	{Name: "joiningDate", Kind: listview.KindDate, Value: func(r Row) string { return r.JoiningDate }, Sortable: true},
	{Name: "joiningDateDisplay", Value: func(r Row) string { return r.JoiningDateDisplay }, Searchable: true},
	{Name: "salary", Kind: listview.KindNumber, Value: func(r Row) string { return listview.FormatFloat(r.Salary) }, Sortable: true},
	{Name: "salaryDisplay", Value: func(r Row) string { return r.SalaryDisplay }, Searchable: true},
}, listview.SortState{Key: "name", Order: listview.Asc}).
	WithAliases(map[string]string{
		"name":         "firstName",
		"employeeCode": "employeeCode",
		"joiningDate":  "joiningDate",
		"department":   "department",
	}).
	WithDateField("joiningDate")

// ServerFilters forwards the categorical filters and the joining date preset.
var ServerFilters = listview.DateParams("joiningDateFrom", "joiningDateTo")

// Schema returns the employee field table.
func Schema() *listview.Schema[Row] {
	return schema
}
