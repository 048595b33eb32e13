package expenses

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/odyssey-erp/odyssey-admin/internal/attachments"
	"github.com/odyssey-erp/odyssey-admin/internal/shared"
)

// MaxReceipts caps the receipts attached to one expense.
const MaxReceipts = 5

// Form is the expense form submitted by the UI.
type Form struct {
	ExpenseType   string  `json:"expenseType" validate:"required,max=120"`
	Category      string  `json:"category" validate:"required,max=60"`
	Amount        float64 `json:"amount" validate:"gt=0,lte=10000000"`
	PaymentMethod string  `json:"paymentMethod" validate:"required,oneof=CASH UPI CARD BANK_TRANSFER CHEQUE"`
	ExpenseDate   string  `json:"expenseDate" validate:"required,datetime=2006-01-02"`
	VehicleID     string  `json:"vehicleId,omitempty" validate:"omitempty,max=64"`
	Description   string  `json:"description,omitempty" validate:"max=500"`
}

// Steps groups the form fields by wizard step.
var Steps = map[string][]string{
	"details":  {"expenseType", "category", "expenseDate", "vehicleId", "description"},
	"payment":  {"amount", "paymentMethod"},
	"receipts": {"receipts"},
}

func (f Form) normalized() Form {
	f.ExpenseType = strings.TrimSpace(f.ExpenseType)
	f.Category = strings.TrimSpace(f.Category)
	f.PaymentMethod = strings.ToUpper(strings.TrimSpace(f.PaymentMethod))
	f.ExpenseDate = strings.TrimSpace(f.ExpenseDate)
	f.VehicleID = strings.TrimSpace(f.VehicleID)
	f.Description = strings.TrimSpace(f.Description)
	return f
}

// Validate collects every problem with the form and its receipts. A
// non-empty step restricts the result to that wizard step.
func Validate(v *shared.Validator, policy attachments.Policy, form Form, receipts []attachments.Upload, step string, now time.Time) shared.FieldErrors {
	form = form.normalized()
	errs := v.Struct(form)
	if _, ok := errs["expenseDate"]; !ok {
		if d, err := time.ParseInLocation(time.DateOnly, form.ExpenseDate, now.Location()); err == nil {
			y, m, dd := now.Date()
			if d.After(time.Date(y, m, dd, 0, 0, 0, 0, now.Location())) {
				errs.Add("expenseDate", "cannot be in the future")
			}
		}
	}
	if len(receipts) > MaxReceipts {
		errs.Add("receipts", fmt.Sprintf("must have at most %d entries", MaxReceipts))
	}
	errs.Merge(policy.CheckAll("receipts", receipts))
	if fields, ok := Steps[step]; ok {
		return errs.Only(fields...)
	}
	return errs
}

func (f Form) fields() map[string]string {
	out := map[string]string{
		"expenseType":   f.ExpenseType,
		"category":      f.Category,
		"amount":        strconv.FormatFloat(f.Amount, 'f', 2, 64),
		"paymentMethod": f.PaymentMethod,
		"expenseDate":   f.ExpenseDate,
	}
	if f.VehicleID != "" {
		out["vehicleId"] = f.VehicleID
	}
	if f.Description != "" {
		out["description"] = f.Description
	}
	return out
}
