package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"fjacquet/teamkasse/internal/coordinator"
	"fjacquet/teamkasse/internal/ingest"
	"fjacquet/teamkasse/internal/logging"
	"fjacquet/teamkasse/internal/parsererror"
	"fjacquet/teamkasse/internal/service"
	"fjacquet/teamkasse/internal/store"
	"fjacquet/teamkasse/internal/store/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTime = time.Date(2025, 3, 15, 18, 30, 0, 0, time.UTC)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	s := memory.New()
	logger := logging.NewMockLogger()
	clock := func() time.Time { return testTime }
	coord := coordinator.New(s, logger, coordinator.WithClock(clock))
	svc := service.New(s, coord, ingest.New(s, nil, logger), nil, logger,
		service.WithClock(clock), service.WithIngestOptions(ingest.Options{Now: testTime}))
	srv := NewServer(svc, logger)
	srv.EnableMetrics()
	return srv.Handler()
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func createMember(t *testing.T, h http.Handler, name string) string {
	t.Helper()
	w := do(t, h, http.MethodPost, "/api/members", fmt.Sprintf(`{"name":%q}`, name))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decodeBody(t, w)["id"].(string)
}

func TestHealthAndMetrics(t *testing.T) {
	h := newTestServer(t)

	w := do(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decodeBody(t, w)["status"])

	w = do(t, h, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMembersAPI(t *testing.T) {
	h := newTestServer(t)
	id := createMember(t, h, "Anna Schmidt")

	w := do(t, h, http.MethodPost, "/api/members", `{"name":"anna schmidt"}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(t, h, http.MethodPost, "/api/members", `{"name":""}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = do(t, h, http.MethodPost, "/api/members", `{"nom":"x"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, h, http.MethodGet, "/api/members/"+id, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Anna S.", decodeBody(t, w)["nickname"])

	w = do(t, h, http.MethodGet, "/api/members/missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, h, http.MethodDelete, "/api/members/"+id, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "deleted", decodeBody(t, w)["status"])

	w = do(t, h, http.MethodGet, "/api/members", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	w = do(t, h, http.MethodGet, "/api/members?includeDeleted=true", "")
	var all []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &all))
	assert.Len(t, all, 1)
}

func TestEntriesAPI(t *testing.T) {
	h := newTestServer(t)
	id := createMember(t, h, "Ben Meier")
	base := "/api/members/" + id

	w := do(t, h, http.MethodPost, base+"/payments", `{"amount":"4"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "4", decodeBody(t, w)["balance"])

	w = do(t, h, http.MethodPost, base+"/fines", `{"amount":"10","reason":"Zu spät"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	body := decodeBody(t, w)
	assert.Equal(t, "-2", body["balance"])
	fine := body["entry"].(map[string]interface{})
	fineID := fine["id"].(string)
	assert.Equal(t, "4", fine["amount_paid"])
	assert.Equal(t, false, fine["paid"])

	w = do(t, h, http.MethodPost, base+"/fines/"+fineID+"/pay", `{"amount":"10"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code, "overpayment")

	w = do(t, h, http.MethodPost, base+"/fines/"+fineID+"/pay", `{"amount":"2"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "0", decodeBody(t, w)["balance"])

	w = do(t, h, http.MethodPut, base+"/fines/"+fineID+"/paid", `{"paid":true}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "4", decodeBody(t, w)["balance"])

	w = do(t, h, http.MethodGet, base+"/fines/"+fineID, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decodeBody(t, w)["paid"])

	w = do(t, h, http.MethodGet, base+"/fines", "")
	require.Equal(t, http.StatusOK, w.Code)
	var fines []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &fines))
	assert.Len(t, fines, 1)

	w = do(t, h, http.MethodDelete, base+"/fines/"+fineID+"?strategy=bogus", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, h, http.MethodDelete, base+"/fines/"+fineID+"?strategy=hard", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(t, h, http.MethodGet, base+"/fines/"+fineID, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, h, http.MethodGet, base+"/loans", "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = do(t, h, http.MethodGet, base+"/balance", "")
	require.Equal(t, http.StatusOK, w.Code)
	report := decodeBody(t, w)
	assert.Equal(t, "4", report["cached"])
	assert.Equal(t, "0", report["drift"])

	w = do(t, h, http.MethodPost, base+"/reconcile", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decodeBody(t, w)["corrected"])

	w = do(t, h, http.MethodGet, base+"/ledger", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeBody(t, w)["payments"], 1)
}

func TestDuesAPI(t *testing.T) {
	h := newTestServer(t)
	createMember(t, h, "Anna Schmidt")
	createMember(t, h, "Ben Meier")

	w := do(t, h, http.MethodPost, "/api/dues", `{"name":"Saison 2024/25","amount":"50"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	dueID := decodeBody(t, w)["id"].(string)

	w = do(t, h, http.MethodPost, "/api/dues/"+dueID+"/assign", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Len(t, decodeBody(t, w)["assigned"], 2)

	w = do(t, h, http.MethodPost, "/api/dues/"+dueID+"/assign", `{}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeBody(t, w)["skipped"], 2)

	w = do(t, h, http.MethodPost, "/api/dues/"+dueID+"/archive", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, h, http.MethodPost, "/api/dues/"+dueID+"/assign", "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = do(t, h, http.MethodGet, "/api/dues?includeArchived=true", "")
	require.Equal(t, http.StatusOK, w.Code)
	var dues []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &dues))
	assert.Len(t, dues, 1)

	w = do(t, h, http.MethodPost, "/api/dues/missing/assign", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestImportAPI(t *testing.T) {
	h := newTestServer(t)
	csv := "user_name;reason;amount\nAnna Schmidt;Zu spät;500\nUnknown;Zu spät;500\n"

	req := httptest.NewRequest(http.MethodPost, "/api/import/punishments", strings.NewReader(csv))
	req.Header.Set("Content-Type", "text/csv")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decodeBody(t, w)
	assert.Equal(t, true, res["success"])
	assert.Equal(t, float64(1), res["playersCreated"])
	assert.Len(t, res["skippedItems"], 1)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "transactions.csv")
	require.NoError(t, err)
	_, err = fw.Write([]byte("date;amount;subject\n05.03.2025;2000;Einzahlung: Anna Schmidt\n"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req = httptest.NewRequest(http.MethodPost, "/api/import/transactions", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, float64(1), decodeBody(t, w)["recordsCreated"])

	w = do(t, h, http.MethodPost, "/api/import/loans", "a;b\n")
	assert.Equal(t, http.StatusNotFound, w.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/import/dues", strings.NewReader("foo;bar\n1;2\n"))
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())
	assert.Equal(t, false, decodeBody(t, w)["success"])
}

func TestSuggestAPI(t *testing.T) {
	h := newTestServer(t)
	createMember(t, h, "Ben Meier")

	w := do(t, h, http.MethodPost, "/api/suggest", `{"text":"Ben Meier Apfelwein verschüttet"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decodeBody(t, w)
	assert.Equal(t, "Apfelwein verschüttet", body["reason"])
	assert.Equal(t, []interface{}{"Ben Meier"}, body["players"])
	assert.Equal(t, "beverage", body["fineType"])

	w = do(t, h, http.MethodPost, "/api/suggest", `{"text":""}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"member not found", store.MemberNotFound("x"), http.StatusNotFound},
		{"entry exists", &coordinator.WriteError{Op: coordinator.OpCreateFine, Err: coordinator.ErrEntryExists}, http.StatusConflict},
		{"conflict", store.ErrConflict, http.StatusConflict},
		{"overpayment", &coordinator.WriteError{Op: coordinator.OpApplyPayment, Err: coordinator.ErrOverpayment}, http.StatusUnprocessableEntity},
		{"invalid input", fmt.Errorf("%w: name", service.ErrInvalidInput), http.StatusUnprocessableEntity},
		{"bad file", &parsererror.InvalidFormatError{}, http.StatusUnprocessableEntity},
		{"unavailable", store.ErrUnavailable, http.StatusServiceUnavailable},
		{"other", errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}
