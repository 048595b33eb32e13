// Package cli implements odysseyctl, the operator command line.
package cli

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/odyssey-erp/odyssey-admin/internal/app"
	"github.com/odyssey-erp/odyssey-admin/internal/employees"
	"github.com/odyssey-erp/odyssey-admin/internal/expenses"
	"github.com/odyssey-erp/odyssey-admin/internal/fleet"
	"github.com/odyssey-erp/odyssey-admin/internal/listview"
)

// Env supplies the dependencies of the commands.
type Env struct {
	Out      io.Writer
	Services func(ctx context.Context) (*app.Services, error)
	Jobs     func() (*JobsCLI, error)
}

// NewRootCommand builds the command tree.
func NewRootCommand(env Env) *cobra.Command {
	root := &cobra.Command{
		Use:           "odysseyctl",
		Short:         "Operate the odyssey admin list service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(env.Out)
	root.AddCommand(newBrowseCommand(env), newJobsCommand(env))
	return root
}

type browseFlags struct {
	query   string
	sort    string
	order   string
	page    int
	size    int
	preset  string
	filters map[string]string
	pages   int
}

func (f browseFlags) values() url.Values {
	v := url.Values{}
	set := func(k, val string) {
		if val != "" {
			v.Set(k, val)
		}
	}
	set(listview.ParamQuery, f.query)
	set(listview.ParamSort, f.sort)
	set(listview.ParamOrder, f.order)
	set(listview.ParamRange, f.preset)
	if f.page > 0 {
		v.Set(listview.ParamPage, strconv.Itoa(f.page))
	}
	if f.size > 0 {
		v.Set(listview.ParamSize, strconv.Itoa(f.size))
	}
	for k, val := range f.filters {
		v.Set(k, val)
	}
	return v
}

func newBrowseCommand(env Env) *cobra.Command {
	var flags browseFlags
	cmd := &cobra.Command{
		Use:       "browse employees|vehicles|expenses",
		Short:     "Print a list the way the admin screens render it",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{employees.Entity, fleet.Entity, expenses.Entity},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svcs, err := env.Services(ctx)
			if err != nil {
				return err
			}
			defer svcs.Close()
			opts := BrowseOptions{Params: flags.values(), Pages: flags.pages}
			out := cmd.OutOrStdout()
			switch strings.ToLower(args[0]) {
			case employees.Entity:
				return Browse(ctx, out, employees.Schema(), svcs.Employees.List, employeeColumns, opts)
			case fleet.Entity:
				return Browse(ctx, out, fleet.Schema(), svcs.Vehicles.List, vehicleColumns, opts)
			case expenses.Entity:
				return Browse(ctx, out, expenses.Schema(), svcs.Expenses.List, expenseColumns, opts)
			default:
				return fmt.Errorf("unknown list %q", args[0])
			}
		},
	}
	f := cmd.Flags()
	f.StringVarP(&flags.query, "query", "q", "", "free-text search")
	f.StringVar(&flags.sort, "sort", "", "sort key")
	f.StringVar(&flags.order, "order", "", "asc or desc")
	f.IntVar(&flags.page, "page", 0, "first page to print")
	f.IntVar(&flags.size, "size", 0, "rows per page")
	f.StringVar(&flags.preset, "range", "", "date preset: today, this-week, this-month, this-quarter, this-year")
	f.StringToStringVar(&flags.filters, "filter", nil, "categorical filter, e.g. --filter status=ACTIVE")
	f.IntVar(&flags.pages, "pages", 1, "number of consecutive pages to print")
	return cmd
}

func newJobsCommand(env Env) *cobra.Command {
	cmd := &cobra.Command{Use: "jobs", Short: "Manage background jobs"}
	cmd.AddCommand(&cobra.Command{
		Use:   "warmup [list...]",
		Short: "Queue a cache warmup for the named lists, or all of them",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := env.Jobs()
			if err != nil {
				return err
			}
			defer c.Close()
			info, err := c.Warmup(cmd.Context(), args...)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "queued %s as %s\n", info.Type, info.ID)
			return err
		},
	}, &cobra.Command{
		Use:   "stats",
		Short: "Show the default queue",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := env.Jobs()
			if err != nil {
				return err
			}
			defer c.Close()
			stats, err := c.InspectQueue()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "queue=%s pending=%d active=%d scheduled=%d retry=%d\n",
				stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry)
			return err
		},
	})
	return cmd
}

var employeeColumns = []Column[employees.Row]{
	{Title: "Code", Value: func(r employees.Row) string { return r.EmployeeCode }},
	{Title: "Name", Value: func(r employees.Row) string { return r.Name }},
	{Title: "Department", Value: func(r employees.Row) string { return r.Department }},
	{Title: "Branch", Value: func(r employees.Row) string { return r.Branch }},
	{Title: "Status", Value: func(r employees.Row) string { return r.StatusDisplay }},
	{Title: "Joined", Value: func(r employees.Row) string { return r.JoiningDateDisplay }},
}

var vehicleColumns = []Column[fleet.Row]{
	{Title: "Registration", Value: func(r fleet.Row) string { return r.RegistrationNumber }},
	{Title: "Vehicle", Value: func(r fleet.Row) string { return strings.TrimSpace(r.Make + " " + r.Model) }},
	{Title: "Type", Value: func(r fleet.Row) string { return r.VehicleTypeDisplay }},
	{Title: "Status", Value: func(r fleet.Row) string { return r.Status }},
	{Title: "Odometer", Value: func(r fleet.Row) string { return r.OdometerDisplay }},
	{Title: "Insurance", Value: func(r fleet.Row) string { return r.InsuranceExpiryDisplay }},
}

var expenseColumns = []Column[expenses.Row]{
	{Title: "Code", Value: func(r expenses.Row) string { return r.ExpenseCode }},
	{Title: "Date", Value: func(r expenses.Row) string { return r.ExpenseDateDisplay }},
	{Title: "Type", Value: func(r expenses.Row) string { return r.ExpenseType }},
	{Title: "Amount", Value: func(r expenses.Row) string { return r.AmountDisplay }},
	{Title: "Payment", Value: func(r expenses.Row) string { return r.PaymentMethodDisplay }},
	{Title: "Status", Value: func(r expenses.Row) string { return r.Status }},
}
