package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-admin/internal/app"
)

// vehicleBackend serves n vehicles, paged by the page and limit parameters.
func vehicleBackend(t *testing.T, n int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		if page < 1 {
			page = 1
		}
		if limit < 1 {
			limit = 10
		}
		pages := (n + limit - 1) / limit
		data := []map[string]any{}
		for i := (page-1)*limit + 1; i <= min(page*limit, n); i++ {
			data = append(data, map[string]any{
				"id":                 strconv.Itoa(i),
				"registrationNumber": "MH-12-AB-" + strconv.Itoa(1000+i),
				"make":               "Tata",
				"model":              "Ace",
				"status":             "ACTIVE",
				"odometer":           12000 + i,
			})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": data,
			"meta": map[string]any{"itemCount": n, "pageCount": pages, "page": page, "limit": limit, "hasNextPage": page < pages},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testEnv(t *testing.T, backendURL string, out io.Writer) Env {
	return Env{
		Out: out,
		Services: func(ctx context.Context) (*app.Services, error) {
			cfg := &app.Config{BackendBaseURL: backendURL, TimeZone: "UTC", Currency: "INR", BackendTimeout: time.Second}
			return app.BuildServices(ctx, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
		},
		Jobs: func() (*JobsCLI, error) { return nil, errors.New("no queue in tests") },
	}
}

func TestBrowsePrintsConsecutivePages(t *testing.T) {
	srv := vehicleBackend(t, 5)
	var out bytes.Buffer
	root := NewRootCommand(testEnv(t, srv.URL, &out))
	root.SetArgs([]string{"browse", "vehicles", "--size", "2", "--pages", "5"})
	require.NoError(t, root.ExecuteContext(context.Background()))

	text := out.String()
	require.Contains(t, text, "Registration")
	require.Contains(t, text, "MH-12-AB-1001")
	require.Contains(t, text, "MH-12-AB-1005")
	require.Contains(t, text, "12,005 km")
	require.Equal(t, 3, strings.Count(text, "page "), "stops after the last page")
	require.Contains(t, text, "page 3 of 3, rows 5-5 of 5 (server paged")
}

func TestBrowseSearchUsesClientPaging(t *testing.T) {
	srv := vehicleBackend(t, 12)
	var out bytes.Buffer
	root := NewRootCommand(testEnv(t, srv.URL, &out))
	root.SetArgs([]string{"browse", "vehicles", "-q", "1011"})
	require.NoError(t, root.ExecuteContext(context.Background()))
	require.Contains(t, out.String(), "MH-12-AB-1011")
	require.NotContains(t, out.String(), "MH-12-AB-1001")
	require.Contains(t, out.String(), "rows 1-1 of 1 (client paged")
}

func TestBrowseRejectsUnknownList(t *testing.T) {
	srv := vehicleBackend(t, 1)
	root := NewRootCommand(testEnv(t, srv.URL, io.Discard))
	root.SetArgs([]string{"browse", "payroll"})
	require.ErrorContains(t, root.ExecuteContext(context.Background()), "unknown list")
}

func TestJobsCommandSurfacesQueueErrors(t *testing.T) {
	root := NewRootCommand(testEnv(t, "http://unused", io.Discard))
	root.SetArgs([]string{"jobs", "warmup", "vehicles"})
	require.ErrorContains(t, root.ExecuteContext(context.Background()), "no queue")
}

func TestBrowseFlagsToValues(t *testing.T) {
	v := browseFlags{query: "tata", sort: "odometer", order: "asc", size: 25, preset: "this-month", filters: map[string]string{"status": "ACTIVE"}}.values()
	require.Equal(t, "tata", v.Get("q"))
	require.Equal(t, "odometer", v.Get("sort"))
	require.Equal(t, "25", v.Get("size"))
	require.Equal(t, "ACTIVE", v.Get("status"))
	require.Empty(t, v.Get("page"))
}
