// Package expenses serves the expense list, its export and the expense form.
package expenses

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/odyssey-erp/odyssey-admin/internal/listview"
)

// Entity names the list in cache buckets and export filenames.
const Entity = "expenses"

// Backend paths.
const (
	listPath   = "/expenses"
	exportPath = "/expenses/export"
	createPath = "/expenses"
)

// DTO is an expense as returned by the backend.
type DTO struct {
	ID            string      `json:"id"`
	ExpenseCode   string      `json:"expenseCode"`
	ExpenseType   string      `json:"expenseType"`
	Category      string      `json:"category"`
	Amount        json.Number `json:"amount"`
	PaymentMethod string      `json:"paymentMethod"`
	ExpenseDate   string      `json:"expenseDate"`
	Status        string      `json:"status"`
	Description   string      `json:"description"`
	Vehicle       *struct {
		RegistrationNumber string `json:"registrationNumber"`
	} `json:"vehicle"`
	SubmittedBy *struct {
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
	} `json:"submittedBy"`
	Receipts []string `json:"receipts"`
}

// Row is the expense view-model. Display fields hold exactly what the table
// shows.
type Row struct {
	ID                   string  `json:"id"`
	ExpenseCode          string  `json:"expenseCode"`
	ExpenseType          string  `json:"expenseType"`
	Category             string  `json:"category"`
	Amount               float64 `json:"amount"`
	AmountDisplay        string  `json:"amountDisplay"`
	PaymentMethod        string  `json:"paymentMethod"`
	PaymentMethodDisplay string  `json:"paymentMethodDisplay"`
	ExpenseDate          string  `json:"expenseDate"`
	ExpenseDateDisplay   string  `json:"expenseDateDisplay"`
	Status               string  `json:"status"`
	Description          string  `json:"description"`
	VehicleNumber        string  `json:"vehicleNumber"`
	SubmittedBy          string  `json:"submittedBy"`
	ReceiptCount         int     `json:"receiptCount"`
}

var paymentLabels = map[string]string{
	"CASH":          "Cash",
	"UPI":           "UPI",
	"CARD":          "Card",
	"BANK_TRANSFER": "Bank Transfer",
	"CHEQUE":        "Cheque",
}

// Normalizer converts DTOs into rows using f for display strings.
func Normalizer(f listview.Formatter) func(DTO) Row {
	return func(d DTO) Row {
		amount := listview.ParseAmount(d.Amount.String())
		iso, display := f.Date(d.ExpenseDate)
		method := strings.ToUpper(strings.TrimSpace(d.PaymentMethod))
		label, ok := paymentLabels[method]
		if !ok {
			label = f.Label(d.PaymentMethod)
		}
		row := Row{
			ID:                   d.ID,
			ExpenseCode:          strings.TrimSpace(d.ExpenseCode),
			ExpenseType:          strings.TrimSpace(d.ExpenseType),
			Category:             strings.TrimSpace(d.Category),
			Amount:               amount,
			AmountDisplay:        f.Money(amount),
			PaymentMethod:        method,
			PaymentMethodDisplay: label,
			ExpenseDate:          iso,
			ExpenseDateDisplay:   display,
			Status:               strings.ToUpper(strings.TrimSpace(d.Status)),
			Description:          strings.TrimSpace(d.Description),
			ReceiptCount:         len(d.Receipts),
		}
		if d.Vehicle != nil {
			row.VehicleNumber = d.Vehicle.RegistrationNumber
		}
		if d.SubmittedBy != nil {
			row.SubmittedBy = strings.TrimSpace(d.SubmittedBy.FirstName + " " + d.SubmittedBy.LastName)
		}
		return row
	}
}

var schema = listview.NewSchema([]listview.Field[Row]{
	{Name: "expenseCode", Kind: listview.KindNumericString, Value: func(r Row) string { return r.ExpenseCode }, Searchable: true, Sortable: true},
	{Name: "expenseType", Kind: listview.KindString, Value: func(r Row) string { return r.ExpenseType }, Searchable: true, Sortable: true},
	{Name: "category", Kind: listview.KindString, Value: func(r Row) string { return r.Category }, Searchable: true, Filterable: true},
	{Name: "amount", Kind: listview.KindNumber, Value: func(r Row) string { return listview.FormatFloat(r.Amount) }, Sortable: true},
	{Name: "amountDisplay", Value: func(r Row) string { return r.AmountDisplay }, Searchable: true},
	{Name: "paymentMethod", Kind: listview.KindString, Value: func(r Row) string { return r.PaymentMethod }, Filterable: true},
	{Name: "paymentMethodDisplay", Value: func(r Row) string { return r.PaymentMethodDisplay }, Searchable: true},
	{Name: "expenseDate", Kind: listview.KindDate, Value: func(r Row) string { return r.ExpenseDate }, Sortable: true},
	{Name: "expenseDateDisplay", Value: func(r Row) string { return r.ExpenseDateDisplay }, Searchable: true},
	{Name: "status", Kind: listview.KindString, Value: func(r Row) string { return r.Status }, Searchable: true, Sortable: true, Filterable: true},
	{Name: "description", Value: func(r Row) string { return r.Description }, Searchable: true},
	{Name: "vehicleNumber", Value: func(r Row) string { return r.VehicleNumber }, Searchable: true},
	{Name: "submittedBy", Value: func(r Row) string { return r.SubmittedBy }, Searchable: true},
	{Name: "receiptCount", Kind: listview.KindNumber, Value: func(r Row) string { return strconv.Itoa(r.ReceiptCount) }, Sortable: true},
}, listview.SortState{Key: "expenseDate", Order: listview.Desc}).
	WithAliases(map[string]string{
		"expenseCode": "expenseCode",
		"expenseDate": "expenseDate",
		"amount":      "amount",
		"status":      "status",
	}).
	WithDateField("expenseDate")

// Schema returns the expense field table.
func Schema() *listview.Schema[Row] {
	return schema
}

// ServerFilters forwards the categorical filters and the date preset as
// inclusive startDate/endDate bounds.
var ServerFilters = listview.DateParams("startDate", "endDate")
