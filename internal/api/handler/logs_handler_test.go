package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/KurtDue/iono-pi-access-control/internal/core/domain"
	"github.com/KurtDue/iono-pi-access-control/internal/core/ports"
)

type stubAuditStore struct {
	attempts   []domain.AccessAttempt
	lastFilter ports.AttemptFilter
}

func (s *stubAuditStore) Append(_ context.Context, att *domain.AccessAttempt) error {
	s.attempts = append(s.attempts, *att)
	return nil
}

func (s *stubAuditStore) Query(_ context.Context, filter ports.AttemptFilter) ([]domain.AccessAttempt, error) {
	s.lastFilter = filter
	return s.attempts, nil
}

func TestLogsHandler_List(t *testing.T) {
	e := echo.New()
	store := &stubAuditStore{attempts: []domain.AccessAttempt{
		{
			ID:         2,
			Timestamp:  time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
			Barcode:    "CARD-002",
			Source:     domain.SourceScanner,
			Granted:    true,
			UserID:     "u2",
			Transition: domain.DoorOpening,
		},
		{
			ID:        1,
			Timestamp: time.Date(2026, 8, 30, 11, 0, 0, 0, time.UTC),
			Barcode:   "CARD-001",
			Source:    domain.SourceAPI,
			Granted:   false,
			Reason:    "barcode not found",
			Operator:  "admin",
		},
	}}
	handler := NewLogsHandler(store)

	c, rec := newTestContext(e, http.MethodGet, "/logs/access", "")
	if err := handler.List(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp listAttemptsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.Count != 2 || len(resp.Attempts) != 2 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.Attempts[0].Barcode != "CARD-002" || resp.Attempts[0].Timestamp != "2026-08-30T12:00:00Z" {
		t.Fatalf("unexpected first attempt: %+v", resp.Attempts[0])
	}
	if resp.Attempts[1].Operator != "admin" {
		t.Fatalf("unexpected second attempt: %+v", resp.Attempts[1])
	}

	if store.lastFilter.Limit != 50 {
		t.Fatalf("expected default limit 50, got %d", store.lastFilter.Limit)
	}
}

func TestLogsHandler_List_Filters(t *testing.T) {
	e := echo.New()
	store := &stubAuditStore{}
	handler := NewLogsHandler(store)

	target := "/logs/access?limit=10&offset=5&source=scanner&granted=true&since=2026-08-01T00:00:00Z&until=2026-08-30T00:00:00Z"
	c, rec := newTestContext(e, http.MethodGet, target, "")
	if err := handler.List(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	f := store.lastFilter
	if f.Limit != 10 || f.Offset != 5 {
		t.Fatalf("limit/offset not parsed: %+v", f)
	}
	if f.Source != domain.SourceScanner {
		t.Fatalf("source not parsed: %+v", f)
	}
	if f.Granted == nil || !*f.Granted {
		t.Fatalf("granted not parsed: %+v", f)
	}
	if f.Since.IsZero() || f.Until.IsZero() {
		t.Fatalf("time bounds not parsed: %+v", f)
	}
}

func TestLogsHandler_List_BadParams(t *testing.T) {
	e := echo.New()
	handler := NewLogsHandler(&stubAuditStore{})

	for _, target := range []string{
		"/logs/access?limit=zero",
		"/logs/access?limit=-1",
		"/logs/access?offset=-2",
		"/logs/access?source=telepathy",
		"/logs/access?granted=of-course",
		"/logs/access?since=yesterday",
		"/logs/access?until=30-08-2026",
	} {
		c, _ := newTestContext(e, http.MethodGet, target, "")
		err := handler.List(c)
		he, ok := err.(*echo.HTTPError)
		if !ok || he.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400 HTTPError, got %v", target, err)
		}
	}
}
