package diagnostic

import (
	"context"
	"encoding/json"
	"mime"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mydiagai/internal/catalog"
	"mydiagai/internal/scoring"
)

type fakeExporter struct {
	got DiagnosticReport
}

func (f *fakeExporter) Export(r DiagnosticReport, at time.Time) ([]byte, string, error) {
	f.got = r
	return []byte("%PDF-fake"), "Diagnostic_" + strings.ReplaceAll(r.Patient.Name, " ", "_") + ".pdf", nil
}

type apiFixture struct {
	router   http.Handler
	repo     Repository
	exporter *fakeExporter
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	repo := NewRepository()
	exp := &fakeExporter{}
	svc := NewService(repo, catalog.Default(), scoring.NewStatic(), exp, Config{}, zerolog.Nop())

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		RegisterRoutes(r, NewHandler(svc, zerolog.Nop()))
	})
	return &apiFixture{router: r, repo: repo, exporter: exp}
}

func (f *apiFixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *apiFixture) createSession(t *testing.T) string {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/api/sessions", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	var snap Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, StepIntake, snap.Step)
	return snap.ID.String()
}

func (f *apiFixture) wait(t *testing.T, id string) {
	t.Helper()
	sess, err := f.repo.GetByID(context.Background(), uuid.MustParse(id))
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, sess.Wait(ctx))
}

func TestAPI_ListSymptoms(t *testing.T) {
	f := newAPIFixture(t)
	rec := f.do(t, http.MethodGet, "/api/symptoms", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var symptoms []catalog.SymptomDescriptor
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &symptoms))
	assert.Len(t, symptoms, 25)
}

func TestAPI_FullFlow(t *testing.T) {
	f := newAPIFixture(t)
	id := f.createSession(t)
	base := "/api/sessions/" + id

	rec := f.do(t, http.MethodPost, base+"/patient", `{"name":"Jean Dupont","age":35,"gender":"male"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	for _, sym := range []string{"fever", "cough"} {
		rec = f.do(t, http.MethodPost, base+"/symptoms/"+sym, "")
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec = f.do(t, http.MethodGet, base+"/report", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do(t, http.MethodPost, base+"/analysis", "")
	require.Equal(t, http.StatusAccepted, rec.Code)
	f.wait(t, id)

	rec = f.do(t, http.MethodGet, base, "")
	var snap Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, StepComplete, snap.Step)

	rec = f.do(t, http.MethodGet, base+"/report", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var report DiagnosticReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Len(t, report.Symptoms, 2)
	assert.NotEmpty(t, report.Candidates)

	rec = f.do(t, http.MethodGet, base+"/report.pdf", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "Diagnostic_Jean_Dupont.pdf")
	assert.Equal(t, "Jean Dupont", f.exporter.got.Patient.Name)

	rec = f.do(t, http.MethodPost, base+"/reset", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var cleared Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cleared))
	assert.Equal(t, StepIntake, cleared.Step)
	assert.Nil(t, cleared.Patient)
	assert.Empty(t, cleared.SelectedSymptoms)
}

func TestAPI_ValidationErrors(t *testing.T) {
	f := newAPIFixture(t)
	id := f.createSession(t)

	rec := f.do(t, http.MethodPost, "/api/sessions/"+id+"/patient", `{"name":"J","age":"","gender":""}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var body struct {
		Fields []struct {
			Field  string `json:"field"`
			Reason string `json:"reason"`
		} `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Fields, 3)
	assert.Equal(t, "name", body.Fields[0].Field)

	rec = f.do(t, http.MethodPost, "/api/sessions/"+id+"/patient", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_SelectionErrors(t *testing.T) {
	f := newAPIFixture(t)
	id := f.createSession(t)
	base := "/api/sessions/" + id

	rec := f.do(t, http.MethodPost, base+"/symptoms/fever", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do(t, http.MethodPost, base+"/patient", `{"name":"Jean Dupont","age":"35","gender":"male"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPost, base+"/symptoms/xyz", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodPost, base+"/analysis", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do(t, http.MethodPost, base+"/back", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAPI_SessionLookup(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, "/api/sessions/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/sessions/"+uuid.NewString(), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	id := f.createSession(t)
	rec = f.do(t, http.MethodDelete, "/api/sessions/"+id, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/sessions/"+id, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFlexString(t *testing.T) {
	var req PatientRequest
	require.NoError(t, json.Unmarshal([]byte(`{"age":42}`), &req))
	assert.Equal(t, flexString("42"), req.Age)

	require.NoError(t, json.Unmarshal([]byte(`{"age":"42"}`), &req))
	assert.Equal(t, flexString("42"), req.Age)

	require.NoError(t, json.Unmarshal([]byte(`{"age":null}`), &req))
	assert.Equal(t, flexString(""), req.Age)
}

func TestAPI_ReportPDFAccentedName(t *testing.T) {
	f := newAPIFixture(t)
	id := f.createSession(t)
	base := "/api/sessions/" + id

	rec := f.do(t, http.MethodPost, base+"/patient", `{"name":"Hélène Dupont","age":"41","gender":"female"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = f.do(t, http.MethodPost, base+"/symptoms/headache", "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec = f.do(t, http.MethodPost, base+"/analysis", "")
	require.Equal(t, http.StatusAccepted, rec.Code)
	f.wait(t, id)

	rec = f.do(t, http.MethodGet, base+"/report.pdf", "")
	require.Equal(t, http.StatusOK, rec.Code)

	header := rec.Header().Get("Content-Disposition")
	for _, b := range []byte(header) {
		require.Less(t, b, byte(0x80), "header must stay ASCII: %s", header)
	}
	disposition, params, err := mime.ParseMediaType(header)
	require.NoError(t, err)
	assert.Equal(t, "attachment", disposition)
	assert.Equal(t, "Diagnostic_Hélène_Dupont.pdf", params["filename"])
}
