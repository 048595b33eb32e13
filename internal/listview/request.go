package listview

import (
	"net/url"
	"strconv"
	"strings"
)

// Query string parameters understood by list endpoints. Categorical filters
// use the field name as parameter.
const (
	ParamQuery     = "q"
	ParamSort      = "sort"
	ParamOrder     = "order"
	ParamPage      = "page"
	ParamSize      = "size"
	ParamRange     = "range"
	ParamSignature = "sig"
)

// ParseState reads a list view state from query parameters. Unknown sort
// keys fall back to the schema default and unknown presets to all-time. When
// the caller echoes the signature of the previous render in "sig", a change
// of filters or sort resets the page.
func ParseState[T any](schema *Schema[T], values url.Values) State {
	st := NewState(schema)
	st.Filter.Query = strings.TrimSpace(values.Get(ParamQuery))
	for _, name := range schema.FilterNames() {
		if v := strings.TrimSpace(values.Get(name)); v != "" {
			st.Filter.Categories[name] = v
		}
	}
	if p, ok := ParsePreset(values.Get(ParamRange)); ok {
		st.Filter.DateRange = p
	}
	if key := values.Get(ParamSort); schema.CanSort(key) {
		st.Sort = SortState{Key: key, Order: ParseOrder(values.Get(ParamOrder), Desc)}
	}
	st.Window.Page = atoiOr(values.Get(ParamPage), DefaultPage)
	size := values.Get(ParamSize)
	if size == "" {
		size = values.Get("limit")
	}
	st.Window.Size = atoiOr(size, DefaultPageSize)
	st.Window = st.Window.Normalize()
	return st.Reconcile(values.Get(ParamSignature))
}

// Values renders st back into query parameters, the inverse of ParseState.
func (s State) Values() url.Values {
	v := url.Values{}
	if s.Filter.Query != "" {
		v.Set(ParamQuery, s.Filter.Query)
	}
	for k, val := range s.Filter.ActiveCategories() {
		v.Set(k, val)
	}
	if s.Filter.DateRange != "" && s.Filter.DateRange != PresetAllTime {
		v.Set(ParamRange, string(s.Filter.DateRange))
	}
	if s.Sort.Key != "" {
		v.Set(ParamSort, s.Sort.Key)
		v.Set(ParamOrder, string(s.Sort.Order))
	}
	v.Set(ParamPage, strconv.Itoa(s.Window.Page))
	v.Set(ParamSize, strconv.Itoa(s.Window.Size))
	v.Set(ParamSignature, s.Signature())
	return v
}

func atoiOr(raw string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n <= 0 {
		return def
	}
	return n
}

// Envelope is the JSON body of a list endpoint. Errors still produce an
// envelope with empty rows and a notice so the table can render.
type Envelope[R any] struct {
	Rows      []R    `json:"rows"`
	Meta      Meta   `json:"meta"`
	From      int    `json:"from"`
	To        int    `json:"to"`
	State     State  `json:"state"`
	Mode      Mode   `json:"mode"`
	Signature string `json:"signature"`
	Notice    string `json:"notice,omitempty"`
}

// NewEnvelope wraps a view result with an optional user-facing notice.
func NewEnvelope[R any](res ViewResult[R], notice string) Envelope[R] {
	rows := res.Page.Rows
	if rows == nil {
		rows = []R{}
	}
	return Envelope[R]{
		Rows:      rows,
		Meta:      res.Page.Meta,
		From:      res.Page.From,
		To:        res.Page.To,
		State:     res.State,
		Mode:      res.Mode,
		Signature: res.Signature,
		Notice:    notice,
	}
}
