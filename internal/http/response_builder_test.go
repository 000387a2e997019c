package http

import (
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestResponseBuilderJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	NewResponse().Status(http.StatusAccepted).NoStore().JSON(map[string]int{"count": 2}).Write(rec)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	if rec.Header().Get("Content-Type") != "application/json" {
		t.Errorf("unexpected content type %q", rec.Header().Get("Content-Type"))
	}
	if rec.Header().Get("Cache-Control") == "" {
		t.Errorf("expected Cache-Control")
	}
	if rec.Body.String() != `{"count":2}` {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
}

func TestResponseBuilderAttachment(t *testing.T) {
	rec := httptest.NewRecorder()
	NewResponse().Attachment("spending report.csv", "text/csv").Body([]byte("a,b\n")).Write(rec)

	if got := rec.Header().Get("Content-Disposition"); got != `attachment; filename="spending report.csv"` {
		t.Errorf("unexpected disposition %q", got)
	}
	if rec.Body.String() != "a,b\n" {
		t.Errorf("unexpected body %q", rec.Body.String())
	}
}

func TestResponseBuilderEncodingError(t *testing.T) {
	b := NewResponse().JSON(math.NaN())
	if b.Err() == nil {
		t.Fatal("expected encoding error for NaN")
	}
	rec := httptest.NewRecorder()
	b.Write(rec)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}
