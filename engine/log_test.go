package engine

import (
	"bytes"
	"strings"
	"testing"

	"github.com/speakeasy-api/symcore"
)

func TestParseLogLevel(t *testing.T) {
	tests := map[string]LogLevel{
		"error":   LevelError,
		"WARN":    LevelWarn,
		"warning": LevelWarn,
		"Info":    LevelInfo,
		"debug":   LevelDebug,
		"bogus":   LevelWarn,
	}
	for in, want := range tests {
		if got := ParseLogLevel(in); got != want {
			t.Errorf("ParseLogLevel(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestLoggerLevelsAndFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(LevelWarn, &buf).With(map[string]any{"session": "abc"})

	l.Debugf("hidden %d", 1)
	l.Infof("hidden %d", 2)
	l.Warnf("shown %d", 3)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("messages below the level were written:\n%s", out)
	}
	for _, want := range []string{"level=warning", "shown 3", "session=abc"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestEngineLogsWarnings(t *testing.T) {
	var buf bytes.Buffer
	opts := DefaultOptions()
	opts.SessionID = "s-1"
	opts.Logger = NewLogger(LevelWarn, &buf)
	e := New(symcore.NewTable(), opts)

	mustEval(t, e, "Set[Plus, 1]")
	out := buf.String()
	if !strings.Contains(out, "protected") || !strings.Contains(out, "session=s-1") {
		t.Errorf("expected the warning with the session field, got:\n%s", out)
	}
}

func TestPreview(t *testing.T) {
	tab := symcore.NewTable()
	long := symcore.Call(tab.Intern("f"), symcore.Str(strings.Repeat("x", 100)))

	got := preview(long, 20)
	if !strings.HasSuffix(got, "...") || len(got) > 20 {
		t.Errorf("preview = %q", got)
	}
	if got := preview(symcore.Int(7), 20); got != "7" {
		t.Errorf("preview = %q", got)
	}
	if got := preview(nil, 20); got != "Null" {
		t.Errorf("preview(nil) = %q", got)
	}
}
