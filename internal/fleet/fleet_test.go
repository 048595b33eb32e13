package fleet

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-admin/internal/attachments"
	"github.com/odyssey-erp/odyssey-admin/internal/backend"
	"github.com/odyssey-erp/odyssey-admin/internal/exports"
	"github.com/odyssey-erp/odyssey-admin/internal/listview"
	"github.com/odyssey-erp/odyssey-admin/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-admin/internal/shared"
)

var now = time.Date(2024, 7, 9, 11, 0, 0, 0, time.UTC)

type vehicleBackend struct {
	mu        sync.Mutex
	vehicles  []DTO
	queries   []map[string]string
	onboarded map[string]string
	documents int
	status    int
}

func (b *vehicleBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.status != 0 {
		w.WriteHeader(b.status)
		_, _ = io.WriteString(w, `{"message":"Forbidden resource"}`)
		return
	}
	if r.Method == http.MethodPost {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		b.onboarded = map[string]string{}
		for k, v := range r.MultipartForm.Value {
			b.onboarded[k] = v[0]
		}
		b.documents = len(r.MultipartForm.File["documents"])
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id":"veh-1","registrationNumber":"MH12AB1234"}`)
		return
	}
	q := map[string]string{}
	for k := range r.URL.Query() {
		q[k] = r.URL.Query().Get(k)
	}
	b.queries = append(b.queries, q)
	var matched []DTO
	for _, v := range b.vehicles {
		if s := q["status"]; s != "" && v.Status != s {
			continue
		}
		matched = append(matched, v)
	}
	page, _ := strconv.Atoi(q["page"])
	limit, _ := strconv.Atoi(q["limit"])
	p := listview.Paginate(matched, listview.PageWindow{Page: page, Size: limit})
	_ = json.NewEncoder(w).Encode(listview.Result[DTO]{Data: p.Rows, Meta: p.Meta})
}

func (b *vehicleBackend) lastQuery() map[string]string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.queries[len(b.queries)-1]
}

func (b *vehicleBackend) submission() (map[string]string, int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.onboarded, b.documents
}

func fixtureVehicles() []DTO {
	return []DTO{
		{ID: "1", Unit: "U2", UnitLocation: "Pune", RegistrationNumber: "MH-01", Make: "Tata", VehicleType: "TRUCK", FuelType: "DIESEL", Status: "ACTIVE", Odometer: "120500", InsuranceExpiry: "2025-01-15"},
		{ID: "2", Unit: "U1", UnitLocation: "Nashik", RegistrationNumber: "MH-10", Make: "Ashok Leyland", VehicleType: "BUS", FuelType: "CNG", Status: "ACTIVE", Odometer: "88000"},
		{ID: "3", Unit: "U1", UnitLocation: "Mumbai", RegistrationNumber: "MH-02", Make: "Mahindra", VehicleType: "PICKUP", FuelType: "DIESEL", Status: "MAINTENANCE", Odometer: "5000", Branch: &named{Name: "Mumbai Central"}},
	}
}

func newTestService(t *testing.T, b *vehicleBackend) *Service {
	t.Helper()
	srv := httptest.NewServer(b)
	t.Cleanup(srv.Close)
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	store := cache.NewStore(rdb, cache.Options{RevalidateAfter: time.Hour})
	t.Cleanup(store.Wait)

	client := backend.NewClient(backend.Config{BaseURL: srv.URL})
	return NewService(Config{
		Client:   client,
		Store:    store,
		Exporter: exports.NewExporter(client, nil, nil, func() time.Time { return now }),
		Format:   listview.NewFormatter("INR", time.UTC),
		Policy:   attachments.DefaultPolicy(),
		Now:      func() time.Time { return now },
	})
}

func registrations(rows []Row) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.RegistrationNumber
	}
	return out
}

func TestRegistrationSortIsLexicographic(t *testing.T) {
	svc := newTestService(t, &vehicleBackend{vehicles: fixtureVehicles()})
	st := listview.NewState(Schema()).SetQuery("mh")
	st.Sort = listview.SortState{Key: "registrationNumber", Order: listview.Asc}
	res, err := svc.List(context.Background(), st)
	require.NoError(t, err)
	require.Equal(t, []string{"MH-01", "MH-02", "MH-10"}, registrations(res.Page.Rows))
}

func TestAliasedSortIsSentToBackend(t *testing.T) {
	b := &vehicleBackend{vehicles: fixtureVehicles()}
	svc := newTestService(t, b)
	st := listview.NewState(Schema()).ToggleSort("odometer")
	_, err := svc.List(context.Background(), st)
	require.NoError(t, err)
	q := b.lastQuery()
	require.Equal(t, "odometer", q["sortBy"])
	require.Equal(t, "DESC", q["sortOrder"])
}

func TestCompositeUnitSortStaysLocal(t *testing.T) {
	b := &vehicleBackend{vehicles: fixtureVehicles()}
	svc := newTestService(t, b)
	st := listview.NewState(Schema()).ToggleSort("unit").ToggleSort("unit")
	res, err := svc.List(context.Background(), st)
	require.NoError(t, err)
	require.NotContains(t, b.lastQuery(), "sortBy")
	require.Equal(t, []string{"MH-02", "MH-10", "MH-01"}, registrations(res.Page.Rows))
}

func TestNormalizerDisplayFields(t *testing.T) {
	row := Normalizer(listview.NewFormatter("INR", time.UTC))(fixtureVehicles()[0])
	require.Equal(t, "120,500 km", row.OdometerDisplay)
	require.Equal(t, "15 Jan 2025", row.InsuranceExpiryDisplay)
	require.Equal(t, "U2-Pune", row.UnitKey())
	require.Equal(t, "Diesel", row.FuelTypeDisplay)
}

func validForm() OnboardingForm {
	return OnboardingForm{
		RegistrationNumber: "mh12ab1234", Unit: "U9", UnitLocation: "Pune", VehicleType: "truck",
		Make: "Tata", Model: "Ultra", ManufactureYear: 2022, FuelType: "diesel",
		ChassisNumber: "MA1ZZ2ZZ3ZZ456789", EngineNumber: "ENG123", Odometer: 10,
		InsuranceProvider: "ICICI Lombard", InsurancePolicyNumber: "POL-1", InsuranceExpiry: "2025-06-30", BranchID: "b1",
	}
}

var pdf = []byte("%PDF-1.4\n")

func TestValidateCollectsEveryStep(t *testing.T) {
	svc := newTestService(t, &vehicleBackend{})
	require.Empty(t, svc.Validate(validForm(), []attachments.Upload{{Name: "rc.pdf", Data: pdf}}, ""))

	bad := validForm()
	bad.RegistrationNumber = "???"
	bad.ChassisNumber = "SHORT"
	bad.ManufactureYear = 2030
	bad.InsuranceExpiry = "2024-01-01"
	errs := svc.Validate(bad, nil, "")
	require.Equal(t, "is not a valid registration number", errs["registrationNumber"])
	require.Equal(t, "must be exactly 17 characters", errs["chassisNumber"])
	require.Equal(t, "cannot be in the future", errs["manufactureYear"])
	require.Equal(t, "must be a future date", errs["insuranceExpiry"])
	require.Contains(t, errs, "documents")

	basic := svc.Validate(bad, nil, "basic")
	require.Len(t, basic, 2)
	require.Contains(t, basic, "registrationNumber")
	require.Contains(t, basic, "manufactureYear")
}

func TestOnboardInvalidatesList(t *testing.T) {
	b := &vehicleBackend{vehicles: fixtureVehicles()}
	svc := newTestService(t, b)
	ctx := context.Background()
	st := listview.NewState(Schema())

	_, err := svc.List(ctx, st)
	require.NoError(t, err)

	out, err := svc.Onboard(ctx, validForm(), []attachments.Upload{{Name: "rc.pdf", Data: pdf}})
	require.NoError(t, err)
	require.Equal(t, "veh-1", out.ID)
	fields, docs := b.submission()
	require.Equal(t, "MH12AB1234", fields["registrationNumber"])
	require.Equal(t, "TRUCK", fields["vehicleType"])
	require.Equal(t, 1, docs)

	b.mu.Lock()
	b.vehicles = append(b.vehicles, DTO{ID: "4", RegistrationNumber: "MH12AB1234", Status: "ACTIVE"})
	b.mu.Unlock()
	res, err := svc.List(ctx, st)
	require.NoError(t, err)
	require.Len(t, res.Page.Rows, 4)
}

func TestHandlerForbiddenNoticeForOwner(t *testing.T) {
	svc := newTestService(t, &vehicleBackend{status: http.StatusForbidden})
	r := chi.NewRouter()
	NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), svc, 1<<20).MountRoutes(r)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(shared.ContextWithActor(req.Context(), shared.Actor{Role: shared.RoleOwner}))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)

	var env listview.Envelope[Row]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.Empty(t, env.Rows)
	require.Contains(t, env.Notice, "subscription")
}
