package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/wxarchive/internal/importer"
	"github.com/i474232898/wxarchive/internal/store"
	"github.com/i474232898/wxarchive/internal/units"
	"github.com/i474232898/wxarchive/internal/weather"
)

type staticSource struct{}

func (staticSource) Name() string { return "csv" }

func (staticSource) FieldMap() weather.FieldMap {
	return weather.FieldMap{
		"dateTime": {SourceField: "ts", Unit: units.UnixEpoch},
		"outTemp":  {SourceField: "t", Unit: units.DegreeC},
	}
}

func (staticSource) Periods(context.Context, time.Time, time.Time) ([]weather.Period, error) {
	return []weather.Period{{Label: "all"}}, nil
}

func (staticSource) Fetch(context.Context, weather.Period) ([]weather.RawRecord, error) {
	return []weather.RawRecord{
		{"ts": "1704067500", "t": "0"},
		{"ts": "1704067800", "t": "10"},
	}, nil
}

func newTestApp(t *testing.T, seed bool) (*fiber.App, *importer.Service) {
	t.Helper()
	memStore := store.NewMemoryStore()
	if seed {
		rec := weather.NewRecord(time.Date(2024, 1, 1, 0, 5, 0, 0, time.UTC), units.MetricWX)
		rec.Set("outTemp", 100)
		rec.Interval = 5
		if _, err := memStore.SaveRecords([]weather.Record{rec}, false); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	factory := func(_ context.Context, name string) (weather.Source, importer.Options, error) {
		return staticSource{}, importer.Options{System: units.MetricWX, Interval: "5"}, nil
	}
	svc := importer.NewService(memStore, factory, "csv", 10)
	t.Cleanup(svc.Close)
	return NewApp("wxarchive-test", svc, time.UTC), svc
}

func do(t *testing.T, app *fiber.App, req *http.Request, wantStatus int) map[string]any {
	t.Helper()
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != wantStatus {
		t.Fatalf("expected status %d, got %d", wantStatus, resp.StatusCode)
	}
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return body
}

func TestHealth(t *testing.T) {
	app, _ := newTestApp(t, false)
	body := do(t, app, httptest.NewRequest(http.MethodGet, "/health", nil), http.StatusOK)
	if body["status"] != "ok" {
		t.Fatalf("unexpected health body: %v", body)
	}
}

func TestLatestEmptyArchive(t *testing.T) {
	app, _ := newTestApp(t, false)
	body := do(t, app, httptest.NewRequest(http.MethodGet, "/api/v1/archive/latest", nil), http.StatusNotFound)
	if body["error"] != true {
		t.Fatalf("expected error body, got %v", body)
	}
}

func TestLatestConvertsUnits(t *testing.T) {
	app, _ := newTestApp(t, true)

	body := do(t, app, httptest.NewRequest(http.MethodGet, "/api/v1/archive/latest?units=us", nil), http.StatusOK)
	values := body["values"].(map[string]any)
	if got := values["outTemp"].(float64); got < 211.99 || got > 212.01 {
		t.Fatalf("expected 212F, got %v", got)
	}
	if body["usUnits"].(float64) != float64(units.US) {
		t.Fatalf("expected usUnits %d, got %v", units.US, body["usUnits"])
	}

	do(t, app, httptest.NewRequest(http.MethodGet, "/api/v1/archive/latest?units=imperial", nil), http.StatusBadRequest)
}

// TestRecordsRangeValidation verifies that the records endpoint requires both
// ends of the range and rejects a range ending before it starts.
func TestRecordsRangeValidation(t *testing.T) {
	app, _ := newTestApp(t, true)

	do(t, app, httptest.NewRequest(http.MethodGet, "/api/v1/archive/records?from=2024-01-01T00:00:00Z", nil), http.StatusBadRequest)
	do(t, app, httptest.NewRequest(http.MethodGet, "/api/v1/archive/records?from=1704070800&to=1704067200", nil), http.StatusBadRequest)
	do(t, app, httptest.NewRequest(http.MethodGet, "/api/v1/archive/records?from=yesterday&to=1704067200", nil), http.StatusBadRequest)

	body := do(t, app, httptest.NewRequest(http.MethodGet, "/api/v1/archive/records?from=1704067200&to=2024-01-01T01:00:00Z", nil), http.StatusOK)
	if body["count"].(float64) != 1 {
		t.Fatalf("expected one record, got %v", body["count"])
	}

	do(t, app, httptest.NewRequest(http.MethodGet, "/api/v1/archive/records?from=1800000000&to=1800000060", nil), http.StatusNotFound)
}

func TestSummary(t *testing.T) {
	app, _ := newTestApp(t, true)

	do(t, app, httptest.NewRequest(http.MethodGet, "/api/v1/archive/summary", nil), http.StatusBadRequest)
	do(t, app, httptest.NewRequest(http.MethodGet, "/api/v1/archive/summary?date=01-01-2024", nil), http.StatusBadRequest)

	body := do(t, app, httptest.NewRequest(http.MethodGet, "/api/v1/archive/summary?date=2024-01-01", nil), http.StatusOK)
	if body["records"].(float64) != 1 {
		t.Fatalf("expected one record, got %v", body["records"])
	}
}

func TestImportJobLifecycle(t *testing.T) {
	app, svc := newTestApp(t, false)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/imports", strings.NewReader(`{"date":"2024-01-01","dryRun":false}`))
	req.Header.Set("Content-Type", "application/json")
	body := do(t, app, req, http.StatusAccepted)
	id, _ := body["id"].(string)
	if id == "" {
		t.Fatalf("expected job id, got %v", body)
	}

	svc.Wait()

	job := do(t, app, httptest.NewRequest(http.MethodGet, "/api/v1/imports/"+id, nil), http.StatusOK)
	if job["state"] != string(importer.JobSucceeded) {
		t.Fatalf("expected succeeded job, got %v", job)
	}
	summary := job["summary"].(map[string]any)
	if summary["imported"].(float64) != 2 {
		t.Fatalf("expected 2 imported records, got %v", summary["imported"])
	}

	list := do(t, app, httptest.NewRequest(http.MethodGet, "/api/v1/imports", nil), http.StatusOK)
	if len(list["jobs"].([]any)) != 1 {
		t.Fatalf("expected one job, got %v", list["jobs"])
	}

	do(t, app, httptest.NewRequest(http.MethodGet, "/api/v1/imports/nope", nil), http.StatusNotFound)
}

func TestImportRequestValidation(t *testing.T) {
	app, _ := newTestApp(t, false)

	cases := []string{
		`{"source":"ftp"}`,
		`{"date":"2024-13-01"}`,
		`{"date":"2024-01-01","from":"1704067200"}`,
		`{"from":"1704070800","to":"1704067200"}`,
		`not json`,
	}
	for _, c := range cases {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/imports", strings.NewReader(c))
		req.Header.Set("Content-Type", "application/json")
		do(t, app, req, http.StatusBadRequest)
	}
}
