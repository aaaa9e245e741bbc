package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestLoggerTagsComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelDebug, Component: ComponentReports, Output: &buf})

	logger.Info("dispatch finished", FieldUserID, 4)
	logger.WithComponent(ComponentWorker).Debug("job consumed")

	out := buf.String()
	if !strings.Contains(out, "component=reports") || !strings.Contains(out, "user_id=4") {
		t.Fatalf("unexpected output %q", out)
	}
	if !strings.Contains(out, "component=worker") {
		t.Fatalf("component override missing: %q", out)
	}
	if strings.Count(out, "component=") != 2 {
		t.Fatalf("component should be logged once per record: %q", out)
	}
}

func TestFromContextFallsBack(t *testing.T) {
	if got := FromContext(context.Background()).Component(); got != "unknown" {
		t.Fatalf("component = %q", got)
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Output: &buf})

	h := Middleware(logger)(RequestIDMiddleware(func(*http.Request) string { return "req-1" })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			FromContext(r.Context()).InfoContext(r.Context(), "inside handler")
		})))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if !strings.Contains(buf.String(), "request_id=req-1") {
		t.Fatalf("request id missing: %q", buf.String())
	}
}

func TestStructuredLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(New(Config{Output: &buf}))
	r := httptest.NewRequest(http.MethodGet, "/api/report?month=2025-01", nil)

	sl.LogHTTPEnd(context.Background(), r, http.StatusInternalServerError, 12, "10.0.0.1")
	sl.LogError(context.Background(), "summary failed", errors.New("boom"), ComponentHTTP, OpSummary, nil)

	out := buf.String()
	if !strings.Contains(out, "level=ERROR") || !strings.Contains(out, "status_code=500") {
		t.Fatalf("unexpected output %q", out)
	}
	if !strings.Contains(out, "error=boom") || !strings.Contains(out, "operation=summary") {
		t.Fatalf("error fields missing: %q", out)
	}
}
