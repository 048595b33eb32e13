package listview

import (
	"strings"
	"time"
)

// Filter returns the rows matching every active predicate in f. The input is
// never modified. Categories naming unknown or non-filterable fields are
// ignored.
func Filter[T any](schema *Schema[T], rows []T, f FilterState, now time.Time) []T {
	preds := predicates(schema, f, now)
	out := make([]T, 0, len(rows))
	for _, row := range rows {
		if matchAll(preds, row) {
			out = append(out, row)
		}
	}
	return out
}

type predicate[T any] func(T) bool

func matchAll[T any](preds []predicate[T], row T) bool {
	for _, p := range preds {
		if !p(row) {
			return false
		}
	}
	return true
}

func predicates[T any](schema *Schema[T], f FilterState, now time.Time) []predicate[T] {
	var preds []predicate[T]
	for name, want := range f.ActiveCategories() {
		field, ok := schema.Field(name)
		if !ok || !field.Filterable || field.Value == nil {
			continue
		}
		preds = append(preds, categoryPredicate(field, want))
	}
	if term := f.SearchTerm(); term != "" {
		preds = append(preds, searchPredicate(schema.searchable(), term))
	}
	if schema.DateField != "" {
		if rng, ok := ResolvePreset(f.DateRange, now); ok {
			if field, ok := schema.Field(schema.DateField); ok && field.Value != nil {
				preds = append(preds, datePredicate(field, rng, now.Location()))
			}
		}
	}
	return preds
}

func categoryPredicate[T any](field Field[T], want string) predicate[T] {
	return func(row T) bool {
		return strings.EqualFold(strings.TrimSpace(field.Value(row)), want)
	}
}

func searchPredicate[T any](fields []Field[T], term string) predicate[T] {
	return func(row T) bool {
		for _, field := range fields {
			if strings.Contains(strings.ToLower(field.Value(row)), term) {
				return true
			}
		}
		return false
	}
}

func datePredicate[T any](field Field[T], rng Range, loc *time.Location) predicate[T] {
	return func(row T) bool {
		t, ok := ParseDate(field.Value(row), loc)
		return ok && rng.Contains(t)
	}
}
