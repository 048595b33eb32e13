package listview

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// AllSentinel disables a categorical predicate.
const AllSentinel = "all"

// Default page window.
const (
	DefaultPage     = 1
	DefaultPageSize = 10
	MaxPageSize     = 200
)

// Order is a sort direction.
type Order string

const (
	Asc  Order = "asc"
	Desc Order = "desc"
)

// ParseOrder normalises a direction string; anything unknown yields def.
func ParseOrder(raw string, def Order) Order {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "asc":
		return Asc
	case "desc":
		return Desc
	default:
		return def
	}
}

func (o Order) sign() int {
	if o == Desc {
		return -1
	}
	return 1
}

// FilterState holds the independent filters of a list view. All active
// filters combine with AND.
type FilterState struct {
	Query      string            `json:"query,omitempty"`
	Categories map[string]string `json:"categories,omitempty"`
	DateRange  Preset            `json:"dateRange,omitempty"`
}

// Active reports whether a categorical value enables its predicate.
func Active(value string) bool {
	v := strings.TrimSpace(value)
	return v != "" && !strings.EqualFold(v, AllSentinel)
}

// ActiveCategories returns the enabled categorical filters.
func (f FilterState) ActiveCategories() map[string]string {
	out := make(map[string]string, len(f.Categories))
	for k, v := range f.Categories {
		if Active(v) {
			out[k] = strings.TrimSpace(v)
		}
	}
	return out
}

// SearchTerm returns the trimmed, lower-cased free-text query.
func (f FilterState) SearchTerm() string {
	return strings.ToLower(strings.TrimSpace(f.Query))
}

// SortState is the single active sort key.
type SortState struct {
	Key   string `json:"key"`
	Order Order  `json:"order"`
}

// PageWindow is a 1-based page index and a page size.
type PageWindow struct {
	Page int `json:"page"`
	Size int `json:"size"`
}

// Normalize applies defaults and bounds.
func (w PageWindow) Normalize() PageWindow {
	if w.Size <= 0 {
		w.Size = DefaultPageSize
	}
	if w.Size > MaxPageSize {
		w.Size = MaxPageSize
	}
	if w.Page <= 0 {
		w.Page = DefaultPage
	}
	return w
}

// State is the full view state of a list screen.
type State struct {
	Filter FilterState `json:"filter"`
	Sort   SortState   `json:"sort"`
	Window PageWindow  `json:"window"`
}

// NewState returns the mount-time defaults for a schema.
func NewState[T any](schema *Schema[T]) State {
	return State{
		Filter: FilterState{Categories: map[string]string{}, DateRange: PresetAllTime},
		Sort:   schema.DefaultSort,
		Window: PageWindow{Page: DefaultPage, Size: DefaultPageSize},
	}
}

// SetQuery replaces the free-text query and resets to page 1.
func (s State) SetQuery(q string) State {
	s.Filter.Query = q
	s.Window.Page = DefaultPage
	return s
}

// SetCategory sets a categorical filter and resets to page 1.
func (s State) SetCategory(name, value string) State {
	cats := make(map[string]string, len(s.Filter.Categories)+1)
	for k, v := range s.Filter.Categories {
		cats[k] = v
	}
	cats[name] = value
	s.Filter.Categories = cats
	s.Window.Page = DefaultPage
	return s
}

// SetDateRange sets the date preset and resets to page 1.
func (s State) SetDateRange(p Preset) State {
	s.Filter.DateRange = p
	s.Window.Page = DefaultPage
	return s
}

// ToggleSort flips the order when key is already active; a new key starts
// in descending order. Either way the view returns to page 1.
func (s State) ToggleSort(key string) State {
	if s.Sort.Key == key {
		if s.Sort.Order == Desc {
			s.Sort.Order = Asc
		} else {
			s.Sort.Order = Desc
		}
	} else {
		s.Sort = SortState{Key: key, Order: Desc}
	}
	s.Window.Page = DefaultPage
	return s
}

// SetPage moves to page p without touching filters or sort.
func (s State) SetPage(p int) State {
	s.Window.Page = p
	return s
}

// SetPageSize changes the page size and resets to page 1. Sort is kept.
func (s State) SetPageSize(size int) State {
	s.Window.Size = size
	s.Window.Page = DefaultPage
	return s
}

// Reconcile resets to page 1 when the filters or sort differ from the
// state identified by prev. An empty prev is treated as a first render.
func (s State) Reconcile(prev string) State {
	if prev != "" && prev != s.Signature() {
		s.Window.Page = DefaultPage
	}
	return s
}

// Signature fingerprints filters and sort. Page and page size are excluded.
func (s State) Signature() string {
	return digest(s.Filter.signature() + "|sort=" + s.Sort.Key + ":" + string(s.Sort.Order))
}

// ServerSignature fingerprints only the filters forwarded to the backend.
func (f FilterState) ServerSignature() string {
	cats := f.ActiveCategories()
	keys := make([]string, 0, len(cats))
	for k := range cats {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(strings.ToLower(cats[k]))
		b.WriteByte(';')
	}
	b.WriteString("range=")
	b.WriteString(string(f.DateRange.orAllTime()))
	return digest(b.String())
}

func (f FilterState) signature() string {
	return "q=" + f.SearchTerm() + "|" + f.ServerSignature()
}

func digest(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:8])
}

// Mode is the paging strategy of a composite search view.
type Mode string

const (
	// ModeServerPaged trusts the backend pagination metadata.
	ModeServerPaged Mode = "server"
	// ModeClientPaged pages over the full fetched collection.
	ModeClientPaged Mode = "client"
)

// ModeFor selects client paging whenever a free-text query is present.
func ModeFor(f FilterState) Mode {
	if f.SearchTerm() != "" {
		return ModeClientPaged
	}
	return ModeServerPaged
}
