package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

// records parses the one-JSON-object-per-line output the handler emits.
func records(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(buf.String(), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("bad JSON record %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

func TestLevelFiltersAndCanBeRaisedAtRuntime(t *testing.T) {
	var buf bytes.Buffer
	UseWriter(&buf)
	if err := SetLevel("info"); err != nil {
		t.Fatalf("SetLevel: %v", err)
	}

	Debug("suppressed")
	Info("kept", "k", 1)
	got := records(t, &buf)
	if len(got) != 1 || got[0]["msg"] != "kept" {
		t.Fatalf("expected only the info record, got %v", got)
	}

	buf.Reset()
	if err := SetLevel("debug"); err != nil {
		t.Fatalf("SetLevel: %v", err)
	}
	Debug("now visible")
	got = records(t, &buf)
	if len(got) != 1 || got[0]["level"] != "DEBUG" {
		t.Fatalf("expected one DEBUG record after raising the level, got %v", got)
	}
}

func TestWithHelpersAttachStructuredFields(t *testing.T) {
	var buf bytes.Buffer
	UseWriter(&buf)
	if err := SetLevel("debug"); err != nil {
		t.Fatalf("SetLevel: %v", err)
	}

	l := WithMessageMeta(WithSession(WithComponent(Logger(), "session"), "c1"), 20, 1, 12345)
	l.Info("handled")

	got := records(t, &buf)
	if len(got) != 1 {
		t.Fatalf("expected one record, got %d", len(got))
	}
	rec := got[0]
	if rec["component"] != "session" || rec["session_id"] != "c1" {
		t.Fatalf("identity fields missing: %v", rec)
	}
	if rec["type_id"] != float64(20) || rec["msid"] != float64(1) || rec["timestamp"] != float64(12345) {
		t.Fatalf("message meta fields wrong: %v", rec)
	}
}

func TestSetLevelNames(t *testing.T) {
	for name, want := range map[string]string{
		"debug":   "DEBUG",
		"info":    "INFO",
		"warning": "WARN",
		"err":     "ERROR",
	} {
		if err := SetLevel(name); err != nil {
			t.Fatalf("SetLevel(%q): %v", name, err)
		}
		if got := Level(); got != want {
			t.Fatalf("Level() after SetLevel(%q) = %q, want %q", name, got, want)
		}
	}
	if err := SetLevel("chatty"); err == nil {
		t.Fatal("expected an error for an unknown level name")
	}
}
