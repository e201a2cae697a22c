package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/warner-apps/service-timeclock/cache"
	"github.com/warner-apps/service-timeclock/timeclock"
)

type stubBoard struct {
	snap *cache.Snapshot
}

func (s *stubBoard) Latest() *cache.Snapshot { return s.snap }

func boardRouter(h *Handlers) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/api/timeclock", h.GetTimeclock)
	router.GET("/api/timeclock/export", h.ExportTimeclock)
	router.GET("/api/branches", h.GetBranches)
	return router
}

func testSnapshot() *cache.Snapshot {
	idle := "00:30"
	return &cache.Snapshot{
		Records: []timeclock.TechnicianStatus{
			{
				EmpID: 1, EmpName: "A", BrnID: 100,
				ClockStatus: timeclock.ClockedIn, OnWorkOrder: timeclock.NotOnOrder,
				CurrentIdle: &idle, TimeElapsedText: "00:00",
			},
			{
				EmpID: 2, EmpName: "B", BrnID: 200,
				ClockStatus: timeclock.OffClock, OnWorkOrder: timeclock.NotOnOrder,
				TimeElapsedText: "00:00",
			},
		},
		LastRefresh: time.Date(2024, 3, 11, 10, 0, 0, 0, time.UTC),
	}
}

func TestGetTimeclock(t *testing.T) {
	h := &Handlers{Board: &stubBoard{snap: testSnapshot()}}
	router := boardRouter(h)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/timeclock", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var body struct {
		LastRefresh *string          `json:"last_refresh"`
		RecordCount int              `json:"record_count"`
		Data        []map[string]any `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.LastRefresh == nil || *body.LastRefresh != "2024-03-11 10:00:00" {
		t.Errorf("unexpected last_refresh: %v", body.LastRefresh)
	}
	if body.RecordCount != 2 || len(body.Data) != 2 {
		t.Errorf("expected 2 records, got count=%d len=%d", body.RecordCount, len(body.Data))
	}

	// undefined nullable fields must serialize as explicit JSON null
	first := body.Data[0]
	if v, ok := first["CurrentRO"]; !ok || v != nil {
		t.Errorf("CurrentRO should be present and null, got %v (present=%v)", v, ok)
	}
	if first["CurrentIdle"] != "00:30" {
		t.Errorf("unexpected CurrentIdle: %v", first["CurrentIdle"])
	}
}

func TestGetTimeclockBranchFilter(t *testing.T) {
	h := &Handlers{Board: &stubBoard{snap: testSnapshot()}}
	router := boardRouter(h)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/timeclock?branch=200", nil)
	router.ServeHTTP(w, req)

	var body timeclockResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.RecordCount != 1 {
		t.Fatalf("expected 1 record for branch 200, got %d", body.RecordCount)
	}
	if body.Data[0].BrnID != 200 {
		t.Errorf("wrong branch in result: %+v", body.Data[0])
	}
}

func TestGetTimeclockBeforeFirstRefresh(t *testing.T) {
	h := &Handlers{Board: &stubBoard{}}
	router := boardRouter(h)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/timeclock", nil)
	router.ServeHTTP(w, req)

	var body struct {
		LastRefresh *string          `json:"last_refresh"`
		RecordCount int              `json:"record_count"`
		Data        []map[string]any `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.LastRefresh != nil {
		t.Errorf("expected null last_refresh, got %v", *body.LastRefresh)
	}
	if body.RecordCount != 0 || body.Data == nil {
		t.Errorf("expected empty data array, got %+v", body)
	}
}

func TestGetBranches(t *testing.T) {
	h := &Handlers{
		Board:    &stubBoard{},
		Branches: map[string]string{"100": "Saskatoon", "200": "Regina"},
	}
	router := boardRouter(h)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/branches", nil)
	router.ServeHTTP(w, req)

	var branches map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &branches); err != nil {
		t.Fatal(err)
	}
	if branches["100"] != "Saskatoon" || branches["200"] != "Regina" {
		t.Errorf("unexpected branches: %v", branches)
	}
}

func TestExportTimeclock(t *testing.T) {
	h := &Handlers{Board: &stubBoard{snap: testSnapshot()}}
	router := boardRouter(h)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/timeclock/export", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet" {
		t.Errorf("unexpected content type: %s", ct)
	}
	if w.Body.Len() == 0 {
		t.Error("expected workbook bytes")
	}
}

func TestBuildWorkbookRowPerTechnician(t *testing.T) {
	buf, err := buildWorkbook(testSnapshot().Records)
	if err != nil {
		t.Fatal(err)
	}
	if len(buf) == 0 {
		t.Error("expected non-empty workbook")
	}
}
