package listview

import (
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Sort returns a stably sorted copy of rows. An unknown or non-sortable key
// falls back to the schema default; if that is unusable too the input order
// is kept.
func Sort[T any](schema *Schema[T], rows []T, s SortState) []T {
	out := slices.Clone(rows)
	field, ok := sortField(schema, s.Key)
	if !ok {
		if field, ok = sortField(schema, schema.DefaultSort.Key); !ok {
			return out
		}
		if s.Order == "" {
			s.Order = schema.DefaultSort.Order
		}
	}
	cmp := comparator(field.Kind)
	sign := s.Order.sign()
	slices.SortStableFunc(out, func(a, b T) int {
		return sign * cmp(field.Value(a), field.Value(b))
	})
	return out
}

func sortField[T any](schema *Schema[T], key string) (Field[T], bool) {
	f, ok := schema.Field(key)
	if !ok || !f.Sortable || f.Value == nil {
		return Field[T]{}, false
	}
	return f, true
}

// comparator returns a three-way compare for a field kind. String collation
// state is not safe for concurrent use so a collator is built per call.
func comparator(kind Kind) func(a, b string) int {
	switch kind {
	case KindNumber:
		return func(a, b string) int { return compareFloat(numberOrZero(a), numberOrZero(b)) }
	case KindDate:
		return func(a, b string) int { return compareInt(epochOrZero(a), epochOrZero(b)) }
	case KindNumericString:
		str := stringComparator()
		return func(a, b string) int {
			x, errA := strconv.ParseFloat(strings.TrimSpace(a), 64)
			y, errB := strconv.ParseFloat(strings.TrimSpace(b), 64)
			if errA == nil && errB == nil && !math.IsNaN(x) && !math.IsNaN(y) {
				return compareFloat(x, y)
			}
			return str(a, b)
		}
	default:
		return stringComparator()
	}
}

func stringComparator() func(a, b string) int {
	c := collate.New(language.English, collate.IgnoreCase)
	return func(a, b string) int {
		return c.CompareString(a, b)
	}
}

func numberOrZero(v string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil || math.IsNaN(f) {
		return 0
	}
	return f
}

// epochOrZero maps missing or unparsable dates to 0 so they collect at the
// end of a descending sort.
func epochOrZero(v string) int64 {
	t, ok := ParseDate(v, time.UTC)
	if !ok {
		return 0
	}
	return t.UnixMilli()
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
