package metrics

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", LevelDebug},
		{"info", LevelInfo},
		{"warn", LevelWarn},
		{"error", LevelError},
		{"silent", LevelSilent},
		{"bogus", LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(WithOutput(&buf), WithLevel(LevelWarn))

	l.Debug("d")
	l.Info("i")
	l.Warn("w")
	l.Error("e")

	out := buf.String()
	if strings.Contains(out, "DEBUG") || strings.Contains(out, "INFO") {
		t.Errorf("below-threshold output leaked: %q", out)
	}
	if !strings.Contains(out, "WARN") || !strings.Contains(out, "ERROR") {
		t.Errorf("expected WARN and ERROR entries: %q", out)
	}
}

func TestLoggerJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(WithOutput(&buf), WithFormat(FormatJSON), WithFields(Fields{"vehicle": 3}))

	l.Info("SPDU received", Fields{"seq": 7})

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if entry["msg"] != "SPDU received" || entry["level"] != "INFO" {
		t.Errorf("entry = %v", entry)
	}
	if entry["vehicle"] != float64(3) || entry["seq"] != float64(7) {
		t.Errorf("fields not merged: %v", entry)
	}
}

func TestLoggerTextFieldsSorted(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(WithOutput(&buf))

	l.Info("msg", Fields{"zeta": 1, "alpha": 2})

	out := buf.String()
	if strings.Index(out, "alpha=2") > strings.Index(out, "zeta=1") {
		t.Errorf("fields not sorted: %q", out)
	}
}

func TestLoggerNamed(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(WithOutput(&buf)).Named("receiver").Named("flow")

	l.Info("hello")
	if !strings.Contains(buf.String(), "[receiver.flow]") {
		t.Errorf("name missing: %q", buf.String())
	}
}

func TestLoggerWithDoesNotMutateParent(t *testing.T) {
	var buf bytes.Buffer
	parent := NewLogger(WithOutput(&buf))
	child := parent.With(Fields{"vehicle": 1})

	parent.Info("from parent")
	if strings.Contains(buf.String(), "vehicle=1") {
		t.Errorf("parent inherited child fields: %q", buf.String())
	}

	buf.Reset()
	child.Info("from child")
	if !strings.Contains(buf.String(), "vehicle=1") {
		t.Errorf("child fields missing: %q", buf.String())
	}
}

func TestNullLoggerDiscards(t *testing.T) {
	// Must not panic and must not write anywhere observable.
	l := NullLogger()
	l.Error("dropped")
}
