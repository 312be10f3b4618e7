package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/mearone/cellar-sage/models"
)

type fakeRateStore struct {
	records map[string]*models.FeeRecord
	audits  []models.FeeAuditEntry
}

func newFakeRateStore() *fakeRateStore {
	return &fakeRateStore{records: make(map[string]*models.FeeRecord)}
}

func (s *fakeRateStore) Get(_ context.Context, house string) (*models.FeeRecord, error) {
	record, ok := s.records[house]
	if !ok {
		return nil, nil
	}
	copied := *record
	return &copied, nil
}

func (s *fakeRateStore) Upsert(_ context.Context, record *models.FeeRecord) error {
	copied := *record
	s.records[record.House] = &copied
	return nil
}

func (s *fakeRateStore) AppendAudit(_ context.Context, entry *models.FeeAuditEntry) error {
	s.audits = append(s.audits, *entry)
	return nil
}

func (s *fakeRateStore) ListAll(_ context.Context) ([]models.FeeRecord, error) {
	var records []models.FeeRecord
	for _, record := range s.records {
		records = append(records, *record)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].House < records[j].House })
	return records, nil
}

func (s *fakeRateStore) ListAudit(_ context.Context, limit int) ([]models.FeeAuditEntry, error) {
	if limit > len(s.audits) {
		limit = len(s.audits)
	}
	entries := make([]models.FeeAuditEntry, limit)
	copy(entries, s.audits[len(s.audits)-limit:])
	return entries, nil
}

func newFeesApp(store *fakeRateStore) *fiber.App {
	handler := NewFeesHandler(store)
	app := fiber.New()
	app.Get("/api/v1/fees", handler.GetFees)
	app.Put("/api/v1/admin/fees", handler.UpsertFee)
	return app
}

func putFee(t *testing.T, app *fiber.App, body string) int {
	t.Helper()
	request := httptest.NewRequest("PUT", "/api/v1/admin/fees", strings.NewReader(body))
	request.Header.Set("Content-Type", "application/json")
	response, err := app.Test(request)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return response.StatusCode
}

func TestUpsertFeeValidation(t *testing.T) {
	app := newFeesApp(newFakeRateStore())

	cases := []struct {
		name string
		body string
	}{
		{"missing house", `{"buyers_premium": 0.25}`},
		{"missing premium", `{"house": "Acker"}`},
		{"premium above one", `{"house": "Acker", "buyers_premium": 25}`},
		{"negative premium", `{"house": "Acker", "buyers_premium": -0.1}`},
		{"non-numeric premium", `{"house": "Acker", "buyers_premium": "a quarter"}`},
		{"bad date", `{"house": "Acker", "buyers_premium": 0.25, "last_verified": "soon"}`},
	}

	for _, tc := range cases {
		if status := putFee(t, app, tc.body); status != fiber.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", tc.name, status)
		}
	}
}

func TestUpsertFeeRoundTrip(t *testing.T) {
	store := newFakeRateStore()
	app := newFeesApp(store)

	status := putFee(t, app, `{"house": "WineBid", "buyers_premium": 0.17, "source_url": "https://www.winebid.com/Help/Payment", "last_verified": "2026-08-01"}`)
	if status != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}

	request := httptest.NewRequest("GET", "/api/v1/fees", nil)
	response, err := app.Test(request)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	body, _ := io.ReadAll(response.Body)

	var records []models.FeeRecord
	if err := json.Unmarshal(body, &records); err != nil {
		t.Fatalf("failed to decode fees response: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected one record, got %d", len(records))
	}

	record := records[0]
	if record.House != "WineBid" || record.BuyersPremium != 0.17 {
		t.Errorf("round trip lost data: %+v", record)
	}
	if record.SourceURL == nil || *record.SourceURL != "https://www.winebid.com/Help/Payment" {
		t.Errorf("round trip lost source_url: %+v", record)
	}
	if record.LastVerified == nil || record.LastVerified.Format("2006-01-02") != "2026-08-01" {
		t.Errorf("round trip lost last_verified: %+v", record)
	}
}

func TestUpsertFeeAuditInvariant(t *testing.T) {
	store := newFakeRateStore()
	app := newFeesApp(store)

	// First write: no prior record, one audit entry with nil old rate.
	putFee(t, app, `{"house": "Acker", "buyers_premium": 0.25}`)
	if len(store.audits) != 1 {
		t.Fatalf("expected one audit entry after first write, got %d", len(store.audits))
	}
	if store.audits[0].OldRate != nil {
		t.Errorf("expected nil old rate for a first write, got %v", *store.audits[0].OldRate)
	}

	// Identical rate: no new audit entry.
	putFee(t, app, `{"house": "Acker", "buyers_premium": 0.25}`)
	if len(store.audits) != 1 {
		t.Errorf("identical rate must not produce an audit entry, got %d entries", len(store.audits))
	}

	// Changed rate: exactly one new entry with correct old/new.
	putFee(t, app, `{"house": "Acker", "buyers_premium": 0.23}`)
	if len(store.audits) != 2 {
		t.Fatalf("expected a second audit entry after a change, got %d", len(store.audits))
	}
	audit := store.audits[1]
	if audit.OldRate == nil || *audit.OldRate != 0.25 || audit.NewRate != 0.23 {
		t.Errorf("audit entry has wrong rates: old=%v new=%v", audit.OldRate, audit.NewRate)
	}
}

func TestGetFeesOrderedByHouse(t *testing.T) {
	store := newFakeRateStore()
	app := newFeesApp(store)

	putFee(t, app, `{"house": "WineBid", "buyers_premium": 0.17}`)
	putFee(t, app, `{"house": "Acker", "buyers_premium": 0.25}`)
	putFee(t, app, `{"house": "Spectrum", "buyers_premium": 0.22}`)

	request := httptest.NewRequest("GET", "/api/v1/fees", nil)
	response, err := app.Test(request)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	body, _ := io.ReadAll(response.Body)

	var records []models.FeeRecord
	if err := json.Unmarshal(body, &records); err != nil {
		t.Fatalf("failed to decode fees response: %v", err)
	}

	var houses []string
	for _, record := range records {
		houses = append(houses, record.House)
	}
	if !sort.StringsAreSorted(houses) {
		t.Errorf("expected records ordered by house, got %v", houses)
	}
}
