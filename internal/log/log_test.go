package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"DEBUG", slog.LevelDebug, false},
		{"warn", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"loud", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNew_JSONCarriesComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelInfo, Format: FormatJSON, Component: ComponentWorker, Output: &buf})

	l.Debug("hidden")
	l.Info("sync done", FieldQueueID, 7)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1: %q", len(lines), buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if entry[FieldComponent] != ComponentWorker || entry[FieldQueueID] != float64(7) {
		t.Errorf("unexpected entry: %v", entry)
	}
}

func TestLogFields(t *testing.T) {
	f := NewFields().
		WithRecord("contracts", "c1").
		WithUser("u1", "Admin").
		WithError(errors.New("boom"), ErrorTypeDatabase).
		WithRequestID("")

	if f[FieldResource] != "contracts" || f[FieldRecordID] != "c1" {
		t.Errorf("record fields = %v", f)
	}
	if f[FieldUserRole] != "Admin" || f[FieldErrorType] != ErrorTypeDatabase {
		t.Errorf("user or error fields = %v", f)
	}
	if _, ok := f[FieldRequestID]; ok {
		t.Error("empty request id should be skipped")
	}
	if got := len(f.ToSlice()); got != 2*len(f) {
		t.Errorf("ToSlice() len = %d, want %d", got, 2*len(f))
	}
}

func TestMiddleware_AddsRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	base := New(Config{Format: FormatText, Component: ComponentHTTP, Output: &buf})

	h := Middleware(base, func(*http.Request) string { return "req_abc" })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			FromContext(r.Context()).Info("inside")
		}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if !strings.Contains(buf.String(), "request_id=req_abc") {
		t.Errorf("request id missing from %q", buf.String())
	}
	if FromContext(context.Background()) == nil {
		t.Error("FromContext should fall back to the default logger")
	}
}
