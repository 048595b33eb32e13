package listview

import (
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// DisplayDate is the on-screen date layout. Rows carry dates pre-formatted
// in this layout so free-text search matches what the user sees.
const DisplayDate = "02 Jan 2006"

// Formatter renders raw values the way list screens display them.
type Formatter struct {
	printer  *message.Printer
	unit     currency.Unit
	location *time.Location
}

// NewFormatter returns a formatter for an ISO 4217 currency code and a time
// zone. Unknown codes fall back to INR and a nil location to UTC.
func NewFormatter(code string, loc *time.Location) Formatter {
	unit, err := currency.ParseISO(strings.TrimSpace(code))
	if err != nil {
		unit = currency.INR
	}
	if loc == nil {
		loc = time.UTC
	}
	return Formatter{
		printer:  message.NewPrinter(language.English),
		unit:     unit,
		location: loc,
	}
}

func (f Formatter) ready() Formatter {
	if f.printer == nil {
		return NewFormatter("", f.location)
	}
	return f
}

// Location returns the zone dates are read in.
func (f Formatter) Location() *time.Location {
	if f.location == nil {
		return time.UTC
	}
	return f.location
}

// Money formats an amount with the currency symbol and grouping.
func (f Formatter) Money(amount float64) string {
	f = f.ready()
	return f.printer.Sprint(currency.Symbol(f.unit.Amount(amount)))
}

// Number formats v with digit grouping and no decimals.
func (f Formatter) Number(v float64) string {
	f = f.ready()
	return f.printer.Sprintf("%.0f", v)
}

// Date parses a backend date and returns it as ISO YYYY-MM-DD plus its
// display form. Unparsable input yields empty strings.
func (f Formatter) Date(raw string) (iso, display string) {
	t, ok := ParseDate(raw, f.Location())
	if !ok {
		return "", ""
	}
	t = t.In(f.Location())
	return t.Format(time.DateOnly), t.Format(DisplayDate)
}

// Label turns an enum such as BANK_TRANSFER into "Bank Transfer".
func (f Formatter) Label(raw string) string {
	v := strings.TrimSpace(strings.ReplaceAll(raw, "_", " "))
	if v == "" {
		return ""
	}
	return cases.Title(language.English).String(v)
}

// ParseAmount reads a backend decimal; unparsable values are 0.
func ParseAmount(raw string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0
	}
	return v
}

// FormatFloat renders v for sort accessors.
func FormatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
