package shared

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

func TestUserSafeMessageIsRoleAware(t *testing.T) {
	err := fmt.Errorf("list vehicles: %w", ErrForbidden)
	owner := UserSafeMessage(err, "Owner")
	staff := UserSafeMessage(err, "manager")
	require.NotEqual(t, owner, staff)
	require.Contains(t, owner, "subscription")
	require.Contains(t, staff, "account owner")

	require.Empty(t, UserSafeMessage(nil, ""))
	require.Contains(t, UserSafeMessage(fmt.Errorf("x: %w", ErrUnavailable), ""), "could not be reached")
	require.NotContains(t, UserSafeMessage(errors.New("pq: relation missing"), ""), "pq")
}

func TestValidationErrorUnwraps(t *testing.T) {
	err := fmt.Errorf("create: %w", &ValidationError{Message: "amount: must be positive"})
	require.ErrorIs(t, err, ErrValidation)
	require.Equal(t, "amount: must be positive", UserSafeMessage(err, ""))
}

type sampleItem struct {
	Name     string  `json:"name" validate:"required"`
	Quantity float64 `json:"quantity" validate:"gt=0"`
}

type sampleForm struct {
	Email string       `json:"email" validate:"required,email"`
	Kind  string       `json:"kind" validate:"oneof=fuel toll"`
	Items []sampleItem `json:"items" validate:"min=1,dive"`
}

func TestValidatorCollectsEveryViolation(t *testing.T) {
	v := NewValidator()
	errs := v.Struct(sampleForm{
		Email: "nope",
		Kind:  "snacks",
		Items: []sampleItem{{Name: "Cable", Quantity: 2}, {Quantity: 0}},
	})
	require.Equal(t, FieldErrors{
		"email":             "must be a valid email address",
		"kind":              "must be one of: fuel, toll",
		"items[1].name":     "is required",
		"items[1].quantity": "must be greater than 0",
	}, errs)

	err := errs.Err()
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	require.Len(t, ve.Fields, 4)
	require.Contains(t, ve.Error(), "4 field(s)")

	require.Empty(t, v.Struct(sampleForm{Email: "a@b.co", Kind: "fuel", Items: []sampleItem{{Name: "x", Quantity: 1}}}))
	require.NoError(t, FieldErrors{}.Err())
}

func TestFieldErrorsKeepFirstComplaint(t *testing.T) {
	fe := FieldErrors{}
	fe.Add("amount", "is required")
	fe.Merge(FieldErrors{"amount": "must be positive", "date": "is required"})
	require.Equal(t, FieldErrors{"amount": "is required", "date": "is required"}, fe)
}

func TestFieldErrorsOnly(t *testing.T) {
	fe := FieldErrors{"items[0].name": "is required", "itemsCount": "x", "title": "is required", "receipts[1]": "too large"}
	require.Equal(t, FieldErrors{"items[0].name": "is required", "receipts[1]": "too large"}, fe.Only("items", "receipts"))
}

func TestActorMiddleware(t *testing.T) {
	var got Actor
	h := ActorMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = ActorFromContext(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/api/vehicles", nil)
	req.Header.Set(HeaderActorID, " 42 ")
	req.Header.Set(HeaderActorRole, "OWNER")
	req.Header.Set("Authorization", "Bearer abc")
	h.ServeHTTP(httptest.NewRecorder(), req)
	require.Equal(t, Actor{ID: "42", Role: RoleOwner, Token: "abc"}, got)

	require.Equal(t, Actor{}, ActorFromContext(context.Background()))
}

type execRecorder struct {
	sql  string
	args []any
}

func (e *execRecorder) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	e.sql = sql
	e.args = args
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func TestAuditLoggerRecord(t *testing.T) {
	rec := &execRecorder{}
	logger := NewAuditLogger(rec)
	at := time.Date(2024, 5, 2, 10, 0, 0, 0, time.UTC)
	logger.now = func() time.Time { return at }

	err := logger.Record(context.Background(), AuditLog{
		ActorID: "7", Action: "export", Entity: "expenses", EntityID: "req-1",
		Meta: map[string]any{"status": "approved"},
	})
	require.NoError(t, err)
	require.Contains(t, rec.sql, "INSERT INTO audit_logs")
	require.Equal(t, "7", rec.args[0])
	require.JSONEq(t, `{"status":"approved"}`, string(rec.args[4].([]byte)))
	require.Equal(t, at, rec.args[5])

	require.Error(t, logger.Record(context.Background(), AuditLog{Action: "export"}))
	require.NoError(t, NewAuditLogger(nil).Record(context.Background(), AuditLog{Action: "a", Entity: "b", EntityID: "c"}))
}
