package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"clinicnotes/internal/config"
	"clinicnotes/internal/ratelimit"
	"clinicnotes/internal/storage"
)

const testAPIKey = "test-key"

func testConfig(t *testing.T) config.Config {
	return config.Config{
		Port:            "3000",
		APIKey:          testAPIKey,
		DataDir:         t.TempDir(),
		RateLimit:       config.RateLimitConfig{Max: 1000, Window: 15 * time.Minute},
		MaxBodyBytes:    1 << 20,
		BaseURL:         "http://localhost:3000",
		ShareSecret:     "secret",
		ShareTTL:        time.Minute,
		MetricsEnabled:  true,
		ShutdownTimeout: time.Second,
	}
}

func setupTestServer(t *testing.T, cfg config.Config) http.Handler {
	t.Helper()

	store, err := storage.Open(context.Background(), config.DatabaseConfig{
		Driver:       "sqlite",
		DSN:          filepath.Join(cfg.DataDir, "api.db"),
		MaxOpenConns: 1,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Migrate(context.Background()))

	return NewServer(cfg, store, ratelimit.NewMemoryStore(), zap.NewNop()).Handler()
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	return doWithKey(t, h, method, path, body, testAPIKey)
}

func doWithKey(t *testing.T, h http.Handler, method, path string, body any, key string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set("x-api-key", key)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Details []struct {
		Field   string `json:"field"`
		Message string `json:"message"`
	} `json:"details"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

func dataID(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var obj struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &obj))
	require.NotEmpty(t, obj.ID)
	return obj.ID
}

func createPatient(t *testing.T, h http.Handler, mrn string) string {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/api/patients", map[string]any{
		"name":                "Ada Lovelace",
		"dateOfBirth":         "1985-12-10",
		"medicalRecordNumber": mrn,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return dataID(t, rec)
}

func createVoiceNote(t *testing.T, h http.Handler, patientID, recordedAt string) string {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/api/voice-notes", map[string]any{
		"patientId":  patientID,
		"title":      "Consultation",
		"duration":   180,
		"recordedAt": recordedAt,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return dataID(t, rec)
}

func createSummary(t *testing.T, h http.Handler, voiceNoteID string) *httptest.ResponseRecorder {
	t.Helper()
	return do(t, h, http.MethodPost, "/api/summaries", map[string]any{
		"voiceNoteId": voiceNoteID,
		"content":     "Patient reports improved sleep.",
		"keyPoints":   []string{"Sleep improved", "Continue therapy"},
	})
}

func TestHealthHandler(t *testing.T) {
	h := setupTestServer(t, testConfig(t))

	rec := doWithKey(t, h, http.MethodGet, "/health", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, body["timestamp"])

	_, err := uuid.Parse(rec.Header().Get("X-Request-Id"))
	assert.NoError(t, err)
}

func TestAPIKeyRequired(t *testing.T) {
	h := setupTestServer(t, testConfig(t))

	for _, key := range []string{"", "wrong-key"} {
		rec := doWithKey(t, h, http.MethodGet, "/api/patients", nil, key)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Invalid API key", decode(t, rec).Error)
		assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
	}
}

func TestUnknownRoute(t *testing.T) {
	h := setupTestServer(t, testConfig(t))

	rec := do(t, h, http.MethodGet, "/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Not found", decode(t, rec).Error)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestUnknownAPIRouteRequiresKey(t *testing.T) {
	h := setupTestServer(t, testConfig(t))

	for _, path := range []string{"/api/unknown", "/api/patients/x/extra"} {
		anon := doWithKey(t, h, http.MethodGet, path, nil, "")
		assert.Equal(t, http.StatusUnauthorized, anon.Code, path)
		assert.Equal(t, "Invalid API key", decode(t, anon).Error)
		assert.NotEmpty(t, anon.Header().Get("RateLimit-Remaining"), path)

		authed := do(t, h, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusNotFound, authed.Code, path)
		assert.Equal(t, "Not found", decode(t, authed).Error)
	}

	rec := do(t, h, http.MethodPut, "/api/patients", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreatePatientAndDuplicateMRN(t *testing.T) {
	h := setupTestServer(t, testConfig(t))

	id := createPatient(t, h, "MRN-001")

	rec := do(t, h, http.MethodGet, "/api/patients/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var patient map[string]any
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &patient))
	assert.Equal(t, "MRN-001", patient["medicalRecordNumber"])
	assert.Equal(t, "1985-12-10", patient["dateOfBirth"])
	assert.Equal(t, patient["createdAt"], patient["updatedAt"])

	dup := do(t, h, http.MethodPost, "/api/patients", map[string]any{
		"name":                "Someone",
		"dateOfBirth":         "1990-01-01",
		"medicalRecordNumber": "MRN-001",
	})
	assert.Equal(t, http.StatusConflict, dup.Code)
	assert.Equal(t, "Medical record number already exists", decode(t, dup).Error)

	list := do(t, h, http.MethodGet, "/api/patients", nil)
	require.Equal(t, http.StatusOK, list.Code)
	var patients []map[string]any
	require.NoError(t, json.Unmarshal(decode(t, list).Data, &patients))
	assert.Len(t, patients, 1)
}

func TestCreatedResourcesReadBackUnchanged(t *testing.T) {
	h := setupTestServer(t, testConfig(t))

	created := do(t, h, http.MethodPost, "/api/patients", map[string]any{
		"name":                "Grace Hopper",
		"dateOfBirth":         "1906-12-09",
		"medicalRecordNumber": "MRN-RT",
	})
	require.Equal(t, http.StatusCreated, created.Code, created.Body.String())
	var patient map[string]any
	require.NoError(t, json.Unmarshal(decode(t, created).Data, &patient))
	assert.Equal(t, "Grace Hopper", patient["name"])
	assert.Equal(t, "1906-12-09", patient["dateOfBirth"])
	assert.Equal(t, "MRN-RT", patient["medicalRecordNumber"])
	id := patient["id"].(string)

	first := do(t, h, http.MethodGet, "/api/patients/"+id, nil)
	second := do(t, h, http.MethodGet, "/api/patients/"+id, nil)
	require.Equal(t, http.StatusOK, first.Code)
	require.Equal(t, http.StatusOK, second.Code)
	assert.JSONEq(t, string(decode(t, created).Data), string(decode(t, first).Data))
	assert.JSONEq(t, string(decode(t, first).Data), string(decode(t, second).Data))

	note := do(t, h, http.MethodPost, "/api/voice-notes",
		`{"patientId":"`+id+`","title":"Intake","duration":120.0,"recordedAt":"2024-01-01T10:00:00.500Z"}`)
	require.Equal(t, http.StatusCreated, note.Code, note.Body.String())
	noteID := dataID(t, note)
	var createdNote struct {
		Duration int64 `json:"duration"`
	}
	require.NoError(t, json.Unmarshal(decode(t, note).Data, &createdNote))
	assert.Equal(t, int64(120), createdNote.Duration)

	readNote := do(t, h, http.MethodGet, "/api/voice-notes/"+noteID, nil)
	require.Equal(t, http.StatusOK, readNote.Code)
	assert.JSONEq(t, string(decode(t, note).Data), string(decode(t, readNote).Data))
}

func TestVoiceNoteListOrdersFractionalSeconds(t *testing.T) {
	h := setupTestServer(t, testConfig(t))
	patient := createPatient(t, h, "MRN-FRAC")

	whole := createVoiceNote(t, h, patient, "2024-01-01T10:00:00Z")
	fractional := createVoiceNote(t, h, patient, "2024-01-01T10:00:00.500Z")

	rec := do(t, h, http.MethodGet, "/api/voice-notes?patientId="+url.QueryEscape(patient), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var notes []struct {
		ID         string `json:"id"`
		RecordedAt string `json:"recordedAt"`
	}
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &notes))
	require.Len(t, notes, 2)
	assert.Equal(t, fractional, notes[0].ID)
	assert.Equal(t, whole, notes[1].ID)
	assert.Equal(t, "2024-01-01T10:00:00.000Z", notes[1].RecordedAt)
}

func TestCreatePatientValidation(t *testing.T) {
	h := setupTestServer(t, testConfig(t))

	rec := do(t, h, http.MethodPost, "/api/patients", map[string]any{
		"name":        "",
		"dateOfBirth": "1990-02-30",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	env := decode(t, rec)
	assert.Equal(t, "Validation failed", env.Error)
	fields := make([]string, 0, len(env.Details))
	for _, d := range env.Details {
		fields = append(fields, d.Field)
	}
	assert.ElementsMatch(t, []string{"name", "dateOfBirth", "medicalRecordNumber"}, fields)

	malformed := do(t, h, http.MethodPost, "/api/patients", `{"name":`)
	assert.Equal(t, http.StatusBadRequest, malformed.Code)
}

func TestUpdatePatient(t *testing.T) {
	h := setupTestServer(t, testConfig(t))
	id := createPatient(t, h, "MRN-UPD")
	other := createPatient(t, h, "MRN-OTHER")

	rec := do(t, h, http.MethodPatch, "/api/patients/"+id, map[string]any{"name": "Renamed"})
	require.Equal(t, http.StatusOK, rec.Code)
	var patient map[string]any
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &patient))
	assert.Equal(t, "Renamed", patient["name"])
	assert.Equal(t, "MRN-UPD", patient["medicalRecordNumber"])

	empty := do(t, h, http.MethodPatch, "/api/patients/"+id, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, empty.Code)
	assert.Equal(t, "No fields to update", decode(t, empty).Error)

	missing := do(t, h, http.MethodPatch, "/api/patients/"+uuid.NewString(), map[string]any{"name": "X"})
	assert.Equal(t, http.StatusNotFound, missing.Code)
	assert.Equal(t, "Patient not found", decode(t, missing).Error)

	taken := do(t, h, http.MethodPatch, "/api/patients/"+other, map[string]any{"medicalRecordNumber": "MRN-UPD"})
	assert.Equal(t, http.StatusConflict, taken.Code)
}

func TestVoiceNotes(t *testing.T) {
	h := setupTestServer(t, testConfig(t))
	alice := createPatient(t, h, "MRN-A")
	bob := createPatient(t, h, "MRN-B")

	older := createVoiceNote(t, h, alice, "2024-01-01T09:00:00Z")
	newer := createVoiceNote(t, h, alice, "2024-02-01T09:00:00Z")
	createVoiceNote(t, h, bob, "2024-03-01T09:00:00Z")

	rec := do(t, h, http.MethodGet, "/api/voice-notes?patientId="+url.QueryEscape(alice), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var notes []struct {
		ID        string `json:"id"`
		PatientID string `json:"patientId"`
	}
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &notes))
	require.Len(t, notes, 2)
	assert.Equal(t, newer, notes[0].ID)
	assert.Equal(t, older, notes[1].ID)

	all := do(t, h, http.MethodGet, "/api/voice-notes", nil)
	require.NoError(t, json.Unmarshal(decode(t, all).Data, &notes))
	assert.Len(t, notes, 3)

	orphan := do(t, h, http.MethodPost, "/api/voice-notes", map[string]any{
		"patientId":  uuid.NewString(),
		"title":      "Orphan",
		"duration":   10,
		"recordedAt": "2024-01-01T09:00:00Z",
	})
	assert.Equal(t, http.StatusNotFound, orphan.Code)
	assert.Equal(t, "Patient not found", decode(t, orphan).Error)

	bad := do(t, h, http.MethodPost, "/api/voice-notes", map[string]any{
		"patientId":  alice,
		"title":      "Bad",
		"duration":   -5,
		"recordedAt": "yesterday",
	})
	assert.Equal(t, http.StatusBadRequest, bad.Code)
}

func TestSummaries(t *testing.T) {
	h := setupTestServer(t, testConfig(t))
	patient := createPatient(t, h, "MRN-SUM")
	note := createVoiceNote(t, h, patient, "2024-01-01T09:00:00Z")

	rec := createSummary(t, h, note)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var summary struct {
		ID             string   `json:"id"`
		KeyPoints      []string `json:"keyPoints"`
		VoiceNoteTitle string   `json:"voiceNoteTitle"`
		PatientID      string   `json:"patientId"`
	}
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &summary))
	assert.Equal(t, []string{"Sleep improved", "Continue therapy"}, summary.KeyPoints)
	assert.Equal(t, "Consultation", summary.VoiceNoteTitle)
	assert.Equal(t, patient, summary.PatientID)

	dup := createSummary(t, h, note)
	assert.Equal(t, http.StatusConflict, dup.Code)
	assert.Equal(t, "Summary already exists for this voice note", decode(t, dup).Error)

	missing := createSummary(t, h, uuid.NewString())
	assert.Equal(t, http.StatusNotFound, missing.Code)
	assert.Equal(t, "Voice note not found", decode(t, missing).Error)

	get := do(t, h, http.MethodGet, "/api/summaries/"+summary.ID, nil)
	assert.Equal(t, http.StatusOK, get.Code)

	del := do(t, h, http.MethodDelete, "/api/summaries/"+summary.ID, nil)
	assert.Equal(t, http.StatusNoContent, del.Code)
	assert.Empty(t, del.Body.Bytes())

	again := do(t, h, http.MethodDelete, "/api/summaries/"+summary.ID, nil)
	assert.Equal(t, http.StatusNotFound, again.Code)
	assert.Equal(t, "Summary not found", decode(t, again).Error)
}

func TestDeletePatientCascades(t *testing.T) {
	h := setupTestServer(t, testConfig(t))
	patient := createPatient(t, h, "MRN-DEL")
	note := createVoiceNote(t, h, patient, "2024-01-01T09:00:00Z")
	summaryID := dataID(t, createSummary(t, h, note))

	rec := do(t, h, http.MethodDelete, "/api/patients/"+patient, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/api/patients/"+patient, nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/api/voice-notes/"+note, nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/api/summaries/"+summaryID, nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodDelete, "/api/patients/"+patient, nil).Code)
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig(t)
	cfg.RateLimit.Max = 2
	h := setupTestServer(t, cfg)

	first := do(t, h, http.MethodGet, "/api/patients", nil)
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "2;w=900", first.Header().Get("RateLimit-Policy"))
	assert.Equal(t, "2", first.Header().Get("RateLimit-Limit"))
	assert.Equal(t, "1", first.Header().Get("RateLimit-Remaining"))
	assert.Equal(t, "900", first.Header().Get("RateLimit-Reset"))

	require.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/api/patients", nil).Code)

	limited := do(t, h, http.MethodGet, "/api/patients", nil)
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.Equal(t, "Too many requests, please try again later", decode(t, limited).Error)
	assert.Equal(t, "0", limited.Header().Get("RateLimit-Remaining"))
	assert.NotEmpty(t, limited.Header().Get("Retry-After"))

	// a different key has its own budget, and invalid keys are counted before auth
	assert.Equal(t, http.StatusUnauthorized, doWithKey(t, h, http.MethodGet, "/api/patients", nil, "other").Code)
}

func TestSummaryPDFAndShareLink(t *testing.T) {
	h := setupTestServer(t, testConfig(t))
	patient := createPatient(t, h, "MRN-PDF")
	note := createVoiceNote(t, h, patient, "2024-01-01T09:00:00Z")
	summaryID := dataID(t, createSummary(t, h, note))

	pdf := do(t, h, http.MethodGet, "/api/summaries/"+summaryID+"/pdf", nil)
	require.Equal(t, http.StatusOK, pdf.Code)
	assert.Equal(t, "application/pdf", pdf.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(pdf.Body.Bytes(), []byte("%PDF-")))

	share := do(t, h, http.MethodPost, "/api/summaries/"+summaryID+"/share", nil)
	require.Equal(t, http.StatusOK, share.Code)
	var link struct {
		URL       string    `json:"url"`
		ExpiresAt time.Time `json:"expiresAt"`
	}
	require.NoError(t, json.Unmarshal(share.Body.Bytes(), &link))
	require.True(t, strings.HasPrefix(link.URL, "http://localhost:3000/share/summaries/"+summaryID+"/pdf?"))

	public := strings.TrimPrefix(link.URL, "http://localhost:3000")
	served := doWithKey(t, h, http.MethodGet, public, nil, "")
	require.Equal(t, http.StatusOK, served.Code, served.Body.String())
	assert.True(t, bytes.HasPrefix(served.Body.Bytes(), []byte("%PDF-")))

	missingSig := doWithKey(t, h, http.MethodGet, "/share/summaries/"+summaryID+"/pdf", nil, "")
	assert.Equal(t, http.StatusBadRequest, missingSig.Code)

	forged := doWithKey(t, h, http.MethodGet, "/share/summaries/"+summaryID+"/pdf?exp=9999999999&sig=invalid", nil, "")
	assert.Equal(t, http.StatusForbidden, forged.Code)

	expired := doWithKey(t, h, http.MethodGet, "/share/summaries/"+summaryID+"/pdf?exp=1&sig=whatever", nil, "")
	assert.Equal(t, http.StatusGone, expired.Code)

	unknown := do(t, h, http.MethodPost, "/api/summaries/"+uuid.NewString()+"/share", nil)
	assert.Equal(t, http.StatusNotFound, unknown.Code)
}

func TestExportPatients(t *testing.T) {
	h := setupTestServer(t, testConfig(t))
	createPatient(t, h, "MRN-XLS")

	rec := do(t, h, http.MethodGet, "/api/exports/patients", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, contentTypeXLSX, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "patients.xlsx")
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")))
}

func TestMetricsEndpoint(t *testing.T) {
	h := setupTestServer(t, testConfig(t))
	createPatient(t, h, "MRN-MET")

	rec := doWithKey(t, h, http.MethodGet, "/metrics", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `clinicnotes_pipeline_duration_seconds_count{operation="patient.create",outcome="success"} 1`)
	assert.Contains(t, rec.Body.String(), `clinicnotes_http_requests_total{method="POST",route="/api/patients",status="201"} 1`)
}

func TestBodyTooLarge(t *testing.T) {
	cfg := testConfig(t)
	cfg.MaxBodyBytes = 16
	h := setupTestServer(t, cfg)

	rec := do(t, h, http.MethodPost, "/api/patients", map[string]any{
		"name":                strings.Repeat("x", 64),
		"dateOfBirth":         "1990-01-01",
		"medicalRecordNumber": "MRN",
	})
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}
