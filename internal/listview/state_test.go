package listview

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestToggleSortFlipsOrResets(t *testing.T) {
	st := NewState(testSchema()).SetPage(4)
	require.Equal(t, SortState{Key: "date", Order: Desc}, st.Sort)

	st = st.ToggleSort("date")
	require.Equal(t, Asc, st.Sort.Order)
	require.Equal(t, 1, st.Window.Page)

	st = st.SetPage(3).ToggleSort("amount")
	require.Equal(t, SortState{Key: "amount", Order: Desc}, st.Sort)
	require.Equal(t, 1, st.Window.Page)

	st = st.ToggleSort("amount")
	require.Equal(t, Asc, st.Sort.Order)
}

func TestPageSizeResetsPageButKeepsSort(t *testing.T) {
	st := NewState(testSchema()).ToggleSort("amount").SetPage(5)
	st = st.SetPageSize(50)
	require.Equal(t, 1, st.Window.Page)
	require.Equal(t, 50, st.Window.Size)
	require.Equal(t, SortState{Key: "amount", Order: Desc}, st.Sort)
}

func TestFilterChangesResetPage(t *testing.T) {
	base := NewState(testSchema())
	require.Equal(t, 1, base.SetPage(3).SetQuery("abc").Window.Page)
	require.Equal(t, 1, base.SetPage(3).SetCategory("status", "active").Window.Page)
	require.Equal(t, 1, base.SetPage(3).SetDateRange(PresetToday).Window.Page)
}

func TestSetCategoryDoesNotAliasPreviousState(t *testing.T) {
	base := NewState(testSchema()).SetCategory("status", "active")
	next := base.SetCategory("status", "inactive")
	require.Equal(t, "active", base.Filter.Categories["status"])
	require.Equal(t, "inactive", next.Filter.Categories["status"])
}

func TestSignatureIgnoresPaging(t *testing.T) {
	st := NewState(testSchema()).SetCategory("status", "Active")
	sig := st.Signature()
	require.Equal(t, sig, st.SetPage(9).Signature())
	require.Equal(t, sig, st.SetPageSize(25).Signature())
	require.NotEqual(t, sig, st.ToggleSort("amount").Signature())
	require.NotEqual(t, sig, st.SetQuery("x").Signature())
	require.Equal(t, sig, st.SetCategory("type", "all").Signature(), "sentinel values do not change the signature")
}

func TestReconcile(t *testing.T) {
	st := NewState(testSchema()).SetPage(4)
	require.Equal(t, 4, st.Reconcile("").Window.Page)
	require.Equal(t, 4, st.Reconcile(st.Signature()).Window.Page)
	require.Equal(t, 1, st.Reconcile("stale-signature").Window.Page)
}

func TestModeFor(t *testing.T) {
	require.Equal(t, ModeServerPaged, ModeFor(FilterState{}))
	require.Equal(t, ModeServerPaged, ModeFor(FilterState{Query: "   "}))
	require.Equal(t, ModeClientPaged, ModeFor(FilterState{Query: "mh"}))
}

func TestSequencerDiscardsStaleTokens(t *testing.T) {
	var seq Sequencer
	first := seq.Issue()
	second := seq.Issue()
	require.False(t, seq.IsLatest(first))
	require.True(t, seq.IsLatest(second))

	applied := ""
	require.False(t, seq.Apply(first, func() { applied = "first" }))
	require.True(t, seq.Apply(second, func() { applied = "second" }))
	require.Equal(t, "second", applied)
}

func TestControllerAppliesOnlyLatestResponse(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	release := make(chan struct{})
	fetch := func(ctx context.Context, st State) (ViewResult[testRow], error) {
		if st.Filter.Query == "slow" {
			<-release
		}
		rows := []testRow{{ID: st.Filter.Query}}
		return ViewResult[testRow]{Page: Paginate(rows, st.Window), State: st}, nil
	}

	var mu sync.Mutex
	var seen []string
	ctrl := NewController(NewState(testSchema()), fetch, func(res ViewResult[testRow], err error) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, res.Page.Rows[0].ID)
	})

	ctx := context.Background()
	ctrl.Dispatch(ctx, func(s State) State { return s.SetQuery("slow") })
	ctrl.Dispatch(ctx, func(s State) State { return s.SetQuery("fast") })

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 1
	}, time.Second, 5*time.Millisecond)
	close(release)
	ctrl.Wait()

	st, res, err := ctrl.Snapshot()
	require.NoError(t, err)
	require.Equal(t, "fast", st.Filter.Query)
	require.Equal(t, "fast", res.Page.Rows[0].ID)
	require.Equal(t, []string{"fast"}, seen)
}

func TestControllerAdoptsClampedPage(t *testing.T) {
	fetch := func(ctx context.Context, st State) (ViewResult[testRow], error) {
		page := Paginate(numbered(20), st.Window)
		st.Window.Page = page.Meta.Page
		return ViewResult[testRow]{Page: page, State: st}, nil
	}
	ctrl := NewController(NewState(testSchema()), fetch, nil)
	ctrl.Dispatch(context.Background(), func(s State) State { return s.SetPage(5) })
	ctrl.Wait()

	st, res, err := ctrl.Snapshot()
	require.NoError(t, err)
	require.Equal(t, 2, st.Window.Page)
	require.Equal(t, 2, res.Page.Meta.Page)
}
