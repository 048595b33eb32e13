// Package fleet serves the vehicle list, its export and vehicle onboarding.
package fleet

import (
	"encoding/json"
	"strings"

	"github.com/odyssey-erp/odyssey-admin/internal/listview"
)

// Entity names the list in cache buckets and export filenames.
const Entity = "vehicles"

const (
	listPath   = "/vehicles"
	exportPath = "/vehicles/export"
	createPath = "/vehicles"
)

type named struct {
	Name string `json:"name"`
}

// DTO is a vehicle as returned by the backend.
type DTO struct {
	ID                 string      `json:"id"`
	Unit               string      `json:"unit"`
	UnitLocation       string      `json:"unitLocation"`
	RegistrationNumber string      `json:"registrationNumber"`
	Make               string      `json:"make"`
	Model              string      `json:"model"`
	VehicleType        string      `json:"vehicleType"`
	FuelType           string      `json:"fuelType"`
	Status             string      `json:"status"`
	Odometer           json.Number `json:"odometer"`
	InsuranceExpiry    string      `json:"insuranceExpiry"`
	Branch             *named      `json:"branch"`
	AssignedDriver     *named      `json:"assignedDriver"`
}

// Row is the vehicle view-model.
type Row struct {
	ID                     string  `json:"id"`
	Unit                   string  `json:"unit"`
	UnitLocation           string  `json:"unitLocation"`
	RegistrationNumber     string  `json:"registrationNumber"`
	Make                   string  `json:"make"`
	Model                  string  `json:"model"`
	VehicleType            string  `json:"vehicleType"`
	VehicleTypeDisplay     string  `json:"vehicleTypeDisplay"`
	FuelType               string  `json:"fuelType"`
	FuelTypeDisplay        string  `json:"fuelTypeDisplay"`
	Status                 string  `json:"status"`
	Odometer               float64 `json:"odometer"`
	OdometerDisplay        string  `json:"odometerDisplay"`
	InsuranceExpiry        string  `json:"insuranceExpiry"`
	InsuranceExpiryDisplay string  `json:"insuranceExpiryDisplay"`
	Branch                 string  `json:"branch"`
	Driver                 string  `json:"driver"`
}

// UnitKey is the composite unit sort key.
func (r Row) UnitKey() string {
	return listview.Join(r.Unit, r.UnitLocation)
}

// Normalizer converts DTOs into rows using f for display strings.
func Normalizer(f listview.Formatter) func(DTO) Row {
	return func(d DTO) Row {
		odometer := listview.ParseAmount(d.Odometer.String())
		iso, display := f.Date(d.InsuranceExpiry)
		row := Row{
			ID:                     d.ID,
			Unit:                   strings.TrimSpace(d.Unit),
			UnitLocation:           strings.TrimSpace(d.UnitLocation),
			RegistrationNumber:     strings.ToUpper(strings.TrimSpace(d.RegistrationNumber)),
			Make:                   strings.TrimSpace(d.Make),
			Model:                  strings.TrimSpace(d.Model),
			VehicleType:            strings.ToUpper(strings.TrimSpace(d.VehicleType)),
			VehicleTypeDisplay:     f.Label(d.VehicleType),
			FuelType:               strings.ToUpper(strings.TrimSpace(d.FuelType)),
			FuelTypeDisplay:        f.Label(d.FuelType),
			Status:                 strings.ToUpper(strings.TrimSpace(d.Status)),
			Odometer:               odometer,
			OdometerDisplay:        f.Number(odometer) + " km",
			InsuranceExpiry:        iso,
			InsuranceExpiryDisplay: display,
		}
		if d.Branch != nil {
			row.Branch = d.Branch.Name
		}
		if d.AssignedDriver != nil {
			row.Driver = d.AssignedDriver.Name
		}
		return row
	}
}

var schema = listview.NewSchema([]listview.Field[Row]{
	{Name: "unit", Kind: listview.KindString, Value: Row.UnitKey, Searchable: true, Sortable: true},
	{Name: "registrationNumber", Kind: listview.KindString, Value: func(r Row) string { return r.RegistrationNumber }, Searchable: true, Sortable: true},
	{Name: "make", Kind: listview.KindString, Value: func(r Row) string { return r.Make + " " + r.Model }, Searchable: true, Sortable: true},
	{Name: "vehicleType", Kind: listview.KindString, Value: func(r Row) string { return r.VehicleType }, Filterable: true},
	{Name: "vehicleTypeDisplay", Value: func(r Row) string { return r.VehicleTypeDisplay }, Searchable: true},
	{Name: "fuelType", Kind: listview.KindString, Value: func(r Row) string { return r.FuelType }, Filterable: true},
	{Name: "fuelTypeDisplay", Value: func(r Row) string { return r.FuelTypeDisplay }, Searchable: true},
	{Name: "status", Kind: listview.KindString, Value: func(r Row) string { return r.Status }, Searchable: true, Sortable: true, Filterable: true},
	{Name: "odometer", Kind: listview.KindNumber, Value: func(r Row) string { return listview.FormatFloat(r.Odometer) }, Sortable: true},
	{Name: "odometerDisplay", Value: func(r Row) string { return r.OdometerDisplay }, Searchable: true},
	{Name: "insuranceExpiry", Kind: listview.KindDate, Value: func(r Row) string { return r.InsuranceExpiry }, Sortable: true},
	{Name: "insuranceExpiryDisplay", Value: func(r Row) string { return r.InsuranceExpiryDisplay }, Searchable: true},
	{Name: "branch", Kind: listview.KindString, Value: func(r Row) string { return r.Branch }, Searchable: true, Filterable: true},
	{Name: "driver", Value: func(r Row) string { return r.Driver }, Searchable: true},
}, listview.SortState{Key: "registrationNumber", Order: listview.Asc}).
	WithAliases(map[string]string{
		"registrationNumber": "registrationNumber",
		"insuranceExpiry":    "insuranceExpiry",
		"odometer":           "odometer",
		"status":             "status",
	})

// Schema returns the vehicle field table.
func Schema() *listview.Schema[Row] {
	return schema
}
