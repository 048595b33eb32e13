package cli

import (
	"context"
	"fmt"
	"io"
	"net/url"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/odyssey-erp/odyssey-admin/internal/listview"
)

// Column renders one table column of a list.
type Column[R any] struct {
	Title string
	Value func(R) string
}

// BrowseOptions select the state and how many pages to print.
type BrowseOptions struct {
	Params url.Values
	Pages  int
}

// Browse drives a listview.Controller from the parsed state and prints up to
// opts.Pages pages, stopping at the last one.
func Browse[R any](ctx context.Context, out io.Writer, schema *listview.Schema[R], fetch listview.Fetcher[R], columns []Column[R], opts BrowseOptions) error {
	pages := opts.Pages
	if pages <= 0 {
		pages = 1
	}
	ctrl := listview.NewController(listview.ParseState(schema, opts.Params), fetch, nil)
	ctrl.Refresh(ctx)
	ctrl.Wait()
	for i := 0; ; i++ {
		st, res, err := ctrl.Snapshot()
		if err != nil {
			return err
		}
		if err := printPage(out, st, res, columns); err != nil {
			return err
		}
		if i+1 >= pages || !res.Page.Meta.HasNextPage {
			return nil
		}
		next := st.Window.Page + 1
		ctrl.Dispatch(ctx, func(s listview.State) listview.State { return s.SetPage(next) })
		ctrl.Wait()
	}
}

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)

var cellStyle = lipgloss.NewStyle().Padding(0, 1)

func printPage[R any](out io.Writer, st listview.State, res listview.ViewResult[R], columns []Column[R]) error {
	meta := res.Page.Meta
	titles := make([]string, len(columns))
	for i, c := range columns {
		titles[i] = c.Title
	}
	rows := make([][]string, 0, len(res.Page.Rows))
	for _, row := range res.Page.Rows {
		cells := make([]string, len(columns))
		for i, c := range columns {
			cells[i] = c.Value(row)
		}
		rows = append(rows, cells)
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(titles...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	_, err := fmt.Fprintf(out, "%s\npage %d of %d, rows %d-%d of %d (%s paged, sort %s %s)\n",
		t.Render(), meta.Page, meta.PageCount, res.Page.From, res.Page.To, meta.ItemCount, res.Mode, st.Sort.Key, st.Sort.Order)
	return err
}
