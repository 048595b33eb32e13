// Package listview implements the filter, sort and paginate pipeline shared
// by every admin list screen.
package listview

import "strings"

// Kind tags the semantic type of a field for comparison purposes.
type Kind int

const (
	// KindString compares case-insensitively with locale collation.
	KindString Kind = iota
	// KindNumber parses the value as a float; unparsable values count as 0.
	KindNumber
	// KindDate parses the value to an epoch; unparsable values count as 0.
	KindDate
	// KindNumericString compares numerically when both sides are numbers and
	// falls back to string comparison otherwise.
	KindNumericString
)

// Field describes one column of a row type.
type Field[T any] struct {
	Name       string
	Kind       Kind
	Value      func(T) string
	Searchable bool
	Sortable   bool
	Filterable bool
}

// Schema is the field table for one row type.
type Schema[T any] struct {
	Fields []Field[T]
	// DefaultSort is applied when the requested sort key is unknown.
	DefaultSort SortState
	// SortAliases maps UI sort keys to backend columns. Keys without an alias
	// are sorted client side only.
	SortAliases map[string]string
	// DateField names the field the date-range preset applies to.
	DateField string

	index map[string]int
}

// NewSchema builds a schema and indexes its fields by name.
func NewSchema[T any](fields []Field[T], defaultSort SortState) *Schema[T] {
	s := &Schema[T]{Fields: fields, DefaultSort: defaultSort, index: make(map[string]int, len(fields))}
	for i, f := range fields {
		s.index[f.Name] = i
	}
	return s
}

// WithAliases sets the backend sort alias table.
func (s *Schema[T]) WithAliases(aliases map[string]string) *Schema[T] {
	s.SortAliases = aliases
	return s
}

// WithDateField sets the field used by date-range presets.
func (s *Schema[T]) WithDateField(name string) *Schema[T] {
	s.DateField = name
	return s
}

// Field looks up a field by name.
func (s *Schema[T]) Field(name string) (Field[T], bool) {
	if s == nil {
		return Field[T]{}, false
	}
	i, ok := s.index[name]
	if !ok {
		return Field[T]{}, false
	}
	return s.Fields[i], true
}

// CanSort reports whether name is a sortable field.
func (s *Schema[T]) CanSort(name string) bool {
	f, ok := s.Field(name)
	return ok && f.Sortable
}

// CanFilter reports whether name accepts a categorical filter.
func (s *Schema[T]) CanFilter(name string) bool {
	f, ok := s.Field(name)
	return ok && f.Filterable
}

// BackendSort returns the backend column for a UI sort key.
func (s *Schema[T]) BackendSort(key string) (string, bool) {
	if s == nil || s.SortAliases == nil {
		return "", false
	}
	col, ok := s.SortAliases[key]
	return col, ok && col != ""
}

// FilterNames lists the filterable fields in declaration order.
func (s *Schema[T]) FilterNames() []string {
	names := make([]string, 0, len(s.Fields))
	for _, f := range s.Fields {
		if f.Filterable {
			names = append(names, f.Name)
		}
	}
	return names
}

func (s *Schema[T]) searchable() []Field[T] {
	out := make([]Field[T], 0, len(s.Fields))
	for _, f := range s.Fields {
		if f.Searchable && f.Value != nil {
			out = append(out, f)
		}
	}
	return out
}

// Join concatenates parts with a dash, used for composite sort keys such as
// unit and unit location.
func Join(parts ...string) string {
	return strings.Join(parts, "-")
}
