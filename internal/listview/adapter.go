package listview

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/odyssey-erp/odyssey-admin/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-admin/internal/shared"
)

// Default whole-collection paging parameters.
const (
	DefaultAllPageSize = 500
	DefaultMaxPages    = 1000
)

// Query is the request sent to a remote list endpoint.
type Query struct {
	Page      int
	Limit     int
	SortBy    string
	SortOrder Order
	Filters   map[string]string
}

// Result is the envelope returned by a remote list endpoint.
type Result[D any] struct {
	Data []D `json:"data"`
	Meta Meta `json:"meta"`
}

// Source fetches one page of backend DTOs.
type Source[D any] interface {
	List(ctx context.Context, q Query) (Result[D], error)
}

// SourceFunc adapts a function to Source.
type SourceFunc[D any] func(ctx context.Context, q Query) (Result[D], error)

// List implements Source.
func (f SourceFunc[D]) List(ctx context.Context, q Query) (Result[D], error) {
	return f(ctx, q)
}

// Adapter fetches DTOs from a Source, normalises them into rows and runs the
// view pipeline over them.
type Adapter[D, R any] struct {
	Name      string
	Source    Source[D]
	Normalize func(D) R
	Schema    *Schema[R]
	Bucket    *cache.Bucket
	// ServerFilters converts the filter state into backend named filters.
	// When nil the active categories are forwarded as-is.
	ServerFilters func(f FilterState, now time.Time) map[string]string
	AllPageSize   int
	MaxPages      int
	Logger        *slog.Logger
}

// ViewResult is one rendered list view.
type ViewResult[R any] struct {
	Page      Page[R] `json:"page"`
	State     State   `json:"state"`
	Mode      Mode    `json:"mode"`
	Signature string  `json:"signature"`
}

// View renders st. Without a free-text query the backend pages the data;
// with one the whole collection is fetched and paged locally. On failure the
// result carries an empty page alongside the error.
func (a *Adapter[D, R]) View(ctx context.Context, st State, now time.Time) (ViewResult[R], error) {
	st.Window = st.Window.Normalize()
	mode := ModeFor(st.Filter)

	var (
		page Page[R]
		err  error
	)
	if mode == ModeClientPaged {
		var rows []R
		rows, err = a.All(ctx, st.Filter, now)
		if err == nil {
			page = Run(a.Schema, rows, st, now)
		}
	} else {
		page, err = a.Page(ctx, st, now)
	}
	if err != nil {
		page = Paginate([]R{}, st.Window)
	}
	st.Window.Page = page.Meta.Page
	return ViewResult[R]{Page: page, State: st, Mode: mode, Signature: st.Signature()}, err
}

// Page fetches one server-side page. Sort keys without a backend alias are
// applied to the returned page only. A page beyond the last one is clamped
// and refetched once.
func (a *Adapter[D, R]) Page(ctx context.Context, st State, now time.Time) (Page[R], error) {
	w := st.Window.Normalize()
	q := Query{Page: w.Page, Limit: w.Size, Filters: a.serverFilters(st.Filter, now)}
	col, serverSorted := a.Schema.BackendSort(st.Sort.Key)
	if serverSorted {
		q.SortBy = col
		q.SortOrder = st.Sort.Order
	}

	res, err := a.fetchPage(ctx, q)
	if err != nil {
		return Page[R]{}, err
	}
	if res.Meta.PageCount > 0 && q.Page > res.Meta.PageCount {
		q.Page = res.Meta.PageCount
		if res, err = a.fetchPage(ctx, q); err != nil {
			return Page[R]{}, err
		}
	}

	rows := res.Data
	if !serverSorted {
		rows = Sort(a.Schema, rows, st.Sort)
	}
	return Passthrough(rows, res.Meta), nil
}

func (a *Adapter[D, R]) fetchPage(ctx context.Context, q Query) (Result[R], error) {
	key := scope(ctx) + ":page:" + q.cacheKey()
	return cache.Fetch(ctx, a.Bucket, key, func(ctx context.Context) (Result[R], error) {
		res, err := a.Source.List(ctx, q)
		if err != nil {
			return Result[R]{}, fmt.Errorf("%s: list page %d: %w", a.Name, q.Page, err)
		}
		return Result[R]{Data: a.normalizeAll(res.Data), Meta: res.Meta}, nil
	})
}

// All returns the whole collection matching the server-side filters by
// walking pages until the backend reports no next page. MaxPages bounds the
// walk in case that signal never arrives.
func (a *Adapter[D, R]) All(ctx context.Context, f FilterState, now time.Time) ([]R, error) {
	filters := a.serverFilters(f, now)
	key := scope(ctx) + ":all:" + Query{Filters: filters}.cacheKey()
	return cache.Fetch(ctx, a.Bucket, key, func(ctx context.Context) ([]R, error) {
		return a.walk(ctx, filters)
	})
}

func (a *Adapter[D, R]) walk(ctx context.Context, filters map[string]string) ([]R, error) {
	size := a.AllPageSize
	if size <= 0 {
		size = DefaultAllPageSize
	}
	maxPages := a.MaxPages
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	rows := make([]R, 0, size)
	for page := 1; page <= maxPages; page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res, err := a.Source.List(ctx, Query{Page: page, Limit: size, Filters: filters})
		if err != nil {
			return nil, fmt.Errorf("%s: fetch all page %d: %w", a.Name, page, err)
		}
		rows = append(rows, a.normalizeAll(res.Data)...)
		if !res.Meta.HasNextPage {
			return rows, nil
		}
	}
	a.logger().Warn("whole-collection fetch hit page cap",
		slog.String("list", a.Name), slog.Int("max_pages", maxPages), slog.Int("rows", len(rows)))
	return rows, nil
}

func (a *Adapter[D, R]) normalizeAll(data []D) []R {
	out := make([]R, 0, len(data))
	for _, d := range data {
		out = append(out, a.Normalize(d))
	}
	return out
}

func (a *Adapter[D, R]) serverFilters(f FilterState, now time.Time) map[string]string {
	if a.ServerFilters != nil {
		return a.ServerFilters(f, now)
	}
	return f.ActiveCategories()
}

// scope separates cache entries of actors whose token is forwarded to the
// backend, since the backend may return different rows per actor.
func scope(ctx context.Context) string {
	actor := shared.ActorFromContext(ctx)
	if actor.Token == "" {
		return "svc"
	}
	return "actor-" + digest(actor.ID+"|"+actor.Token)
}

func (a *Adapter[D, R]) logger() *slog.Logger {
	if a.Logger != nil {
		return a.Logger
	}
	return slog.Default()
}

// DateParams resolves the date preset into inclusive YYYY-MM-DD bounds under
// the given parameter names, merged with the active categories.
func DateParams(fromKey, toKey string) func(FilterState, time.Time) map[string]string {
	return func(f FilterState, now time.Time) map[string]string {
		out := f.ActiveCategories()
		if rng, ok := ResolvePreset(f.DateRange, now); ok {
			out[fromKey] = rng.From.Format(time.DateOnly)
			out[toKey] = rng.To.AddDate(0, 0, -1).Format(time.DateOnly)
		}
		return out
	}
}

// Encode renders q as URL query parameters.
func (q Query) Encode() map[string]string {
	out := make(map[string]string, len(q.Filters)+4)
	for k, v := range q.Filters {
		out[k] = v
	}
	if q.Page > 0 {
		out["page"] = strconv.Itoa(q.Page)
	}
	if q.Limit > 0 {
		out["limit"] = strconv.Itoa(q.Limit)
	}
	if q.SortBy != "" {
		out["sortBy"] = q.SortBy
		out["sortOrder"] = strings.ToUpper(string(q.SortOrder))
	}
	return out
}

// cacheKey fingerprints every parameter of q.
func (q Query) cacheKey() string {
	params := q.Encode()
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(strings.ToLower(params[k]))
		b.WriteByte('&')
	}
	return digest(b.String())
}
