package fleet

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/odyssey-erp/odyssey-admin/internal/attachments"
	"github.com/odyssey-erp/odyssey-admin/internal/shared"
)

// MaxDocuments caps the documents uploaded during onboarding.
const MaxDocuments = 6

// OnboardingForm is the multi-step vehicle onboarding form.
type OnboardingForm struct {
	RegistrationNumber    string  `json:"registrationNumber" validate:"required,max=20"`
	Unit                  string  `json:"unit" validate:"required,max=40"`
	UnitLocation          string  `json:"unitLocation" validate:"required,max=60"`
	VehicleType           string  `json:"vehicleType" validate:"required,oneof=TRUCK VAN CAR BUS PICKUP TWO_WHEELER"`
	Make                  string  `json:"make" validate:"required,max=60"`
	Model                 string  `json:"model" validate:"required,max=60"`
	ManufactureYear       int     `json:"manufactureYear" validate:"gte=1980"`
	FuelType              string  `json:"fuelType" validate:"required,oneof=DIESEL PETROL CNG ELECTRIC HYBRID"`
	ChassisNumber         string  `json:"chassisNumber" validate:"required,len=17,alphanum"`
	EngineNumber          string  `json:"engineNumber" validate:"required,max=30"`
	Odometer              float64 `json:"odometer" validate:"gte=0"`
	InsuranceProvider     string  `json:"insuranceProvider" validate:"required,max=80"`
	InsurancePolicyNumber string  `json:"insurancePolicyNumber" validate:"required,max=40"`
	InsuranceExpiry       string  `json:"insuranceExpiry" validate:"required,datetime=2006-01-02"`
	BranchID              string  `json:"branchId" validate:"required"`
}

// Steps groups the onboarding fields by wizard step.
var Steps = map[string][]string{
	"basic":      {"registrationNumber", "unit", "unitLocation", "vehicleType", "make", "model", "manufactureYear"},
	"technical":  {"fuelType", "chassisNumber", "engineNumber", "odometer"},
	"compliance": {"insuranceProvider", "insurancePolicyNumber", "insuranceExpiry", "branchId"},
	"documents":  {"documents"},
}

var registrationPattern = regexp.MustCompile(`^[A-Z]{2}[- ]?\d{1,2}[- ]?[A-Z]{0,3}[- ]?\d{1,4}$`)

func (f OnboardingForm) normalized() OnboardingForm {
	f.RegistrationNumber = strings.ToUpper(strings.TrimSpace(f.RegistrationNumber))
	f.Unit = strings.TrimSpace(f.Unit)
	f.UnitLocation = strings.TrimSpace(f.UnitLocation)
	f.VehicleType = strings.ToUpper(strings.TrimSpace(f.VehicleType))
	f.Make = strings.TrimSpace(f.Make)
	f.Model = strings.TrimSpace(f.Model)
	f.FuelType = strings.ToUpper(strings.TrimSpace(f.FuelType))
	f.ChassisNumber = strings.ToUpper(strings.TrimSpace(f.ChassisNumber))
	f.EngineNumber = strings.ToUpper(strings.TrimSpace(f.EngineNumber))
	f.InsuranceProvider = strings.TrimSpace(f.InsuranceProvider)
	f.InsurancePolicyNumber = strings.TrimSpace(f.InsurancePolicyNumber)
	f.InsuranceExpiry = strings.TrimSpace(f.InsuranceExpiry)
	f.BranchID = strings.TrimSpace(f.BranchID)
	return f
}

// Validate collects every problem with the form and its documents. A
// non-empty step restricts the result to that wizard step. Documents are
// only required when validating the whole form or the documents step.
func Validate(v *shared.Validator, policy attachments.Policy, form OnboardingForm, documents []attachments.Upload, step string, now time.Time) shared.FieldErrors {
	form = form.normalized()
	errs := v.Struct(form)
	if _, ok := errs["registrationNumber"]; !ok && !registrationPattern.MatchString(form.RegistrationNumber) {
		errs.Add("registrationNumber", "is not a valid registration number")
	}
	if form.ManufactureYear > now.Year() {
		errs.Add("manufactureYear", "cannot be in the future")
	}
	if _, ok := errs["insuranceExpiry"]; !ok {
		if d, err := time.ParseInLocation(time.DateOnly, form.InsuranceExpiry, now.Location()); err == nil && !d.After(now) {
			errs.Add("insuranceExpiry", "must be a future date")
		}
	}
	switch {
	case len(documents) == 0 && (step == "" || step == "documents"):
		errs.Add("documents", "upload at least the registration certificate")
	case len(documents) > MaxDocuments:
		errs.Add("documents", fmt.Sprintf("must have at most %d entries", MaxDocuments))
	}
	errs.Merge(policy.CheckAll("documents", documents))
	if fields, ok := Steps[step]; ok {
		return errs.Only(fields...)
	}
	return errs
}

func (f OnboardingForm) fields() map[string]string {
	return map[string]string{
		"registrationNumber":    f.RegistrationNumber,
		"unit":                  f.Unit,
		"unitLocation":          f.UnitLocation,
		"vehicleType":           f.VehicleType,
		"make":                  f.Make,
		"model":                 f.Model,
		"manufactureYear":       strconv.Itoa(f.ManufactureYear),
		"fuelType":              f.FuelType,
		"chassisNumber":         f.ChassisNumber,
		"engineNumber":          f.EngineNumber,
		"odometer":              strconv.FormatFloat(f.Odometer, 'f', -1, 64),
		"insuranceProvider":     f.InsuranceProvider,
		"insurancePolicyNumber": f.InsurancePolicyNumber,
		"insuranceExpiry":       f.InsuranceExpiry,
		"branchId":              f.BranchID,
	}
}
