package listview

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-admin/internal/platform/cache"
)

type fakeDTO struct {
	ID     int    `json:"id"`
	Reg    string `json:"registrationNumber"`
	Status string `json:"status"`
}

type fakeSource struct {
	mu      sync.Mutex
	rows    []fakeDTO
	calls   []Query
	err     error
	endless bool
}

func (s *fakeSource) List(ctx context.Context, q Query) (Result[fakeDTO], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, q)
	if s.err != nil {
		return Result[fakeDTO]{}, s.err
	}
	var matched []fakeDTO
	for _, r := range s.rows {
		if want, ok := q.Filters["status"]; ok && r.Status != want {
			continue
		}
		matched = append(matched, r)
	}
	page := Paginate(matched, PageWindow{Page: q.Page, Size: q.Limit})
	if q.Page > page.Meta.PageCount {
		page.Rows = nil
		page.Meta.Page = q.Page
	}
	if s.endless {
		page.Meta.HasNextPage = true
	}
	return Result[fakeDTO]{Data: page.Rows, Meta: page.Meta}, nil
}

func (s *fakeSource) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func rowSchema() *Schema[testRow] {
	return testSchema().WithAliases(map[string]string{"registration": "registrationNumber"})
}

func newAdapter(t *testing.T, src *fakeSource) (*Adapter[fakeDTO, testRow], *cache.Store) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := cache.NewStore(client, cache.Options{RevalidateAfter: time.Hour})
	t.Cleanup(func() {
		store.Wait()
		_ = client.Close()
	})
	return &Adapter[fakeDTO, testRow]{
		Name:   "vehicles",
		Source: src,
		Normalize: func(d fakeDTO) testRow {
			return testRow{ID: fmt.Sprint(d.ID), Reg: d.Reg, Status: d.Status}
		},
		Schema:      rowSchema(),
		Bucket:      store.Bucket("vehicles", time.Minute),
		AllPageSize: 10,
	}, store
}

func seedDTOs(n int) []fakeDTO {
	rows := make([]fakeDTO, n)
	for i := range rows {
		status := "active"
		if i%3 == 0 {
			status = "inactive"
		}
		rows[i] = fakeDTO{ID: i + 1, Reg: fmt.Sprintf("MH-%02d", n-i), Status: status}
	}
	return rows
}

func TestAdapterServerPagedForwardsAliasedSort(t *testing.T) {
	src := &fakeSource{rows: seedDTOs(25)}
	a, _ := newAdapter(t, src)

	st := State{Sort: SortState{Key: "registration", Order: Asc}, Window: PageWindow{Page: 2, Size: 10}}
	res, err := a.View(context.Background(), st, time.Now())
	require.NoError(t, err)
	require.Equal(t, ModeServerPaged, res.Mode)
	require.Len(t, res.Page.Rows, 10)
	require.Equal(t, 25, res.Page.Meta.ItemCount)
	require.Equal(t, 11, res.Page.From)

	require.Len(t, src.calls, 1)
	require.Equal(t, "registrationNumber", src.calls[0].SortBy)
	require.Equal(t, Asc, src.calls[0].SortOrder)
	require.Equal(t, 2, src.calls[0].Page)
}

func TestAdapterUnsupportedSortStaysClientSide(t *testing.T) {
	src := &fakeSource{rows: seedDTOs(5)}
	a, _ := newAdapter(t, src)

	st := State{Sort: SortState{Key: "status", Order: Asc}, Window: PageWindow{Page: 1, Size: 10}}
	res, err := a.View(context.Background(), st, time.Now())
	require.NoError(t, err)
	require.Empty(t, src.calls[0].SortBy)
	require.Equal(t, "active", res.Page.Rows[0].Status)
	require.Equal(t, "inactive", res.Page.Rows[len(res.Page.Rows)-1].Status)
}

func TestAdapterServerPageIsCached(t *testing.T) {
	src := &fakeSource{rows: seedDTOs(12)}
	a, _ := newAdapter(t, src)
	st := State{Window: PageWindow{Page: 1, Size: 5}}

	_, err := a.View(context.Background(), st, time.Now())
	require.NoError(t, err)
	_, err = a.View(context.Background(), st, time.Now())
	require.NoError(t, err)
	require.Equal(t, 1, src.callCount())

	require.NoError(t, a.Bucket.Invalidate(context.Background()))
	_, err = a.View(context.Background(), st, time.Now())
	require.NoError(t, err)
	require.Equal(t, 2, src.callCount())
}

func TestAdapterClampsServerPage(t *testing.T) {
	src := &fakeSource{rows: seedDTOs(20)}
	a, _ := newAdapter(t, src)

	res, err := a.View(context.Background(), State{Window: PageWindow{Page: 5, Size: 10}}, time.Now())
	require.NoError(t, err)
	require.Equal(t, 2, res.State.Window.Page)
	require.Len(t, res.Page.Rows, 10)
	require.Equal(t, 2, src.callCount())
}

func TestAdapterClientPagedWalksAllPages(t *testing.T) {
	src := &fakeSource{rows: seedDTOs(34)}
	a, _ := newAdapter(t, src)

	st := State{
		Filter: FilterState{Query: "mh-1"},
		Sort:   SortState{Key: "registration", Order: Asc},
		Window: PageWindow{Page: 1, Size: 5},
	}
	res, err := a.View(context.Background(), st, time.Now())
	require.NoError(t, err)
	require.Equal(t, ModeClientPaged, res.Mode)
	// MH-10 .. MH-19
	require.Equal(t, 10, res.Page.Meta.ItemCount)
	require.Equal(t, "MH-10", res.Page.Rows[0].Reg)
	require.Equal(t, 4, src.callCount(), "34 rows at 10 per page")

	// A second query over the same server filters reuses the cached collection.
	_, err = a.View(context.Background(), st.SetQuery("mh-2"), time.Now())
	require.NoError(t, err)
	require.Equal(t, 4, src.callCount())
}

func TestAdapterAllStopsAtPageCap(t *testing.T) {
	src := &fakeSource{rows: seedDTOs(3), endless: true}
	a, _ := newAdapter(t, src)
	a.MaxPages = 7

	rows, err := a.All(context.Background(), FilterState{}, time.Now())
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, 7, src.callCount())
}

func TestAdapterForwardsServerFilters(t *testing.T) {
	src := &fakeSource{rows: seedDTOs(9)}
	a, _ := newAdapter(t, src)

	st := State{Filter: FilterState{Categories: map[string]string{"status": "inactive"}}, Window: PageWindow{Page: 1, Size: 10}}
	res, err := a.View(context.Background(), st, time.Now())
	require.NoError(t, err)
	require.Equal(t, 3, res.Page.Meta.ItemCount)
	require.Equal(t, "inactive", src.calls[0].Filters["status"])
}

func TestAdapterErrorYieldsEmptyPage(t *testing.T) {
	boom := errors.New("backend down")
	src := &fakeSource{err: boom}
	a, _ := newAdapter(t, src)

	res, err := a.View(context.Background(), State{Filter: FilterState{Query: "x"}}, time.Now())
	require.ErrorIs(t, err, boom)
	require.Empty(t, res.Page.Rows)
	require.Equal(t, 1, res.Page.Meta.PageCount)
}

func TestDateParams(t *testing.T) {
	now := time.Date(2026, 10, 15, 10, 0, 0, 0, time.UTC)
	params := DateParams("dateFrom", "dateTo")(FilterState{
		DateRange:  PresetThisMonth,
		Categories: map[string]string{"status": "approved", "category": "all"},
	}, now)
	require.Equal(t, map[string]string{"status": "approved", "dateFrom": "2026-10-01", "dateTo": "2026-10-31"}, params)
}

func TestQueryEncode(t *testing.T) {
	q := Query{Page: 2, Limit: 25, SortBy: "expenseDate", SortOrder: Desc, Filters: map[string]string{"status": "pending"}}
	require.Equal(t, map[string]string{
		"page": "2", "limit": "25", "sortBy": "expenseDate", "sortOrder": "DESC", "status": "pending",
	}, q.Encode())
}
