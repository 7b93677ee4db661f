package transport

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Franelll/MaaS-sub000/internal/planner/scoring"
	"github.com/Franelll/MaaS-sub000/internal/shared/logger"
)

func newTestHandler() *Handler {
	log := logger.NewLoggerWithWriter("planner-test", io.Discard)
	return NewHandler(scoring.NewScorer(scoring.DefaultPolicy()), log)
}

func TestRankRoutesOK(t *testing.T) {
	h := newTestHandler()

	body := `{
		"mode": "fastest",
		"itineraries": [
			{"id":"fast","duration":1200,"cost":8,"segments":[{"mode":"metro","duration":1200}]},
			{"id":"slow","duration":20000,"segments":[{"mode":"bus","duration":20000}]},
			{"id":"mid","duration":2400,"cost":4,"segments":[{"mode":"bus","duration":2400}]}
		]
	}`

	req := httptest.NewRequest(http.MethodPost, "/v1/routes/rank", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.RankRoutes(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body.String())
	}

	var resp RankResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Mode != "fastest" {
		t.Errorf("mode = %q, want fastest", resp.Mode)
	}
	if len(resp.Itineraries) != 2 {
		t.Fatalf("returned %d itineraries, want 2 (non-viable filtered)", len(resp.Itineraries))
	}
	if resp.Itineraries[0].ID != "fast" {
		t.Errorf("top = %q, want fast", resp.Itineraries[0].ID)
	}
	if resp.Itineraries[0].DominantMode != "metro" {
		t.Errorf("dominantMode = %q, want metro", resp.Itineraries[0].DominantMode)
	}
}

func TestRankRoutesBadRequests(t *testing.T) {
	h := newTestHandler()

	tests := []struct {
		name string
		body string
	}{
		{"malformed body", `{not json`},
		{"unknown mode", `{"mode":"scenic","itineraries":[]}`},
		{"empty mode", `{"itineraries":[]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/v1/routes/rank", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			h.RankRoutes(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
			var resp map[string]string
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode error body: %v", err)
			}
			if resp["error"] == "" {
				t.Error("error body missing message")
			}
		})
	}
}

func TestRankRoutesEmptyItineraries(t *testing.T) {
	h := newTestHandler()

	req := httptest.NewRequest(http.MethodPost, "/v1/routes/rank", strings.NewReader(`{"mode":"cheapest","itineraries":[]}`))
	rec := httptest.NewRecorder()
	h.RankRoutes(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp RankResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Itineraries) != 0 {
		t.Errorf("returned %d itineraries for empty input, want 0", len(resp.Itineraries))
	}
}
