package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/stockgame/internal/api/apierr"
	"github.com/mcoot/stockgame/internal/dependencies/mocks"
	"github.com/mcoot/stockgame/internal/model"
	rootmw "github.com/mcoot/stockgame/internal/middleware"
	"github.com/mcoot/stockgame/internal/services/auth"
	"github.com/mcoot/stockgame/internal/storage/memory"
	"github.com/mcoot/stockgame/internal/testutil"
)

func newAuthService(t *testing.T) *auth.Service {
	t.Helper()
	svc, err := auth.New(memory.New(), mocks.NewMockClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)), nil, auth.Config{
		Secret:   []byte("0123456789abcdef0123456789abcdef"),
		TTL:      time.Hour,
		HashCost: bcrypt.MinCost,
	})
	require.NoError(t, err)
	return svc
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body apierr.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body.Error.Code
}

func TestAuthPutsSubjectInContext(t *testing.T) {
	svc := newAuthService(t)
	session, err := svc.Issue("alice")
	require.NoError(t, err)

	var seen model.PlayerID
	h := Auth(svc)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = MustGetPlayerID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+session.Token)
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, model.PlayerID("alice"), seen)
}

func TestAuthRejectsMissingAndBadTokens(t *testing.T) {
	svc := newAuthService(t)
	h := Auth(svc)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, apierr.CodeTokenMissing, errorCode(t, rec))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "v1.bogus.token"})
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, apierr.CodeTokenInvalid, errorCode(t, rec))
}

func TestMustGetPlayerIDPanicsWithoutAuth(t *testing.T) {
	assert.Panics(t, func() {
		MustGetPlayerID(httptest.NewRequest(http.MethodGet, "/", nil).Context())
	})
}

func TestStandardRecoversWithJSONAndLogsRequestID(t *testing.T) {
	logger, logs := testutil.CapturingLogger()
	h := Standard(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(&model.InvariantViolation{Reason: "holding went negative"})
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/trades/sell", nil)
	req.Header.Set(rootmw.RequestIDHeader, "req-42")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, apierr.CodeInternalError, errorCode(t, rec))
	assert.Contains(t, logs.String(), `"request_id":"req-42"`)
	assert.Contains(t, logs.String(), "holding went negative")
	assert.Contains(t, logs.String(), `"status":500`)
}
