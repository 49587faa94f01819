package logger

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

// capture routes log output into a buffer at the given level for one test
func capture(t *testing.T, level string) *bytes.Buffer {
	t.Helper()
	if err := Init(level); err != nil {
		t.Fatalf("Init(%q) error = %v", level, err)
	}
	log.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: true,
		DisableColors:    true,
	})
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() { SetOutput(&bytes.Buffer{}) })
	return &buf
}

func TestInit(t *testing.T) {
	tests := map[string]struct {
		level       string
		want        logrus.Level
		expectError bool
	}{
		"debug":      {level: "debug", want: logrus.DebugLevel},
		"warn":       {level: "warn", want: logrus.WarnLevel},
		"upper case": {level: "ERROR", want: logrus.ErrorLevel},
		"invalid":    {level: "verbose", expectError: true},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			err := Init(tt.level)
			if tt.expectError {
				if err == nil {
					t.Error("Expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if log.GetLevel() != tt.want {
				t.Errorf("Expected level %s, got %s", tt.want, log.GetLevel())
			}
		})
	}
}

func TestLevelFiltering(t *testing.T) {
	sentinel := errors.New("boom")
	emitters := map[string]func(){
		"debug":   func() { Debug("debug line") },
		"info":    func() { Info("info line") },
		"warning": func() { Warn("warn line", sentinel) },
		"error":   func() { Error("error line", sentinel) },
	}

	tests := []struct {
		configured string
		emitted    []string
	}{
		{configured: "debug", emitted: []string{"debug", "info", "warning", "error"}},
		{configured: "info", emitted: []string{"info", "warning", "error"}},
		{configured: "warn", emitted: []string{"warning", "error"}},
		{configured: "error", emitted: []string{"error"}},
	}

	for _, tt := range tests {
		t.Run(tt.configured, func(t *testing.T) {
			buf := capture(t, tt.configured)
			for level, emit := range emitters {
				buf.Reset()
				emit()
				want := false
				for _, e := range tt.emitted {
					if e == level {
						want = true
					}
				}
				got := strings.Contains(buf.String(), "level="+level)
				if got != want {
					t.Errorf("level %s at %s: emitted = %v, want %v (output %q)", level, tt.configured, got, want, buf.String())
				}
			}
		})
	}
}

func TestWarnAndErrorCarryErrorAndFields(t *testing.T) {
	buf := capture(t, "info")
	cause := errors.New("page token expired")

	tests := []struct {
		name  string
		log   func(string, error, ...map[string]interface{})
		level string
	}{
		{name: "warn", log: Warn, level: "warning"},
		{name: "error", log: Error, level: "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf.Reset()
			tt.log("Sync pull failed", cause, map[string]interface{}{"op": "pull", "page": 2})
			output := buf.String()
			for _, want := range []string{"level=" + tt.level, `msg="Sync pull failed"`, `error="page token expired"`, "op=pull", "page=2"} {
				if !strings.Contains(output, want) {
					t.Errorf("Expected %q in output: %s", want, output)
				}
			}

			buf.Reset()
			tt.log("Sync pull failed", cause)
			if strings.Contains(buf.String(), "op=") {
				t.Errorf("Fields leaked from a previous call: %s", buf.String())
			}
		})
	}
}

func TestSetOutput(t *testing.T) {
	first := capture(t, "info")
	Info("to first")

	var second bytes.Buffer
	SetOutput(&second)
	Info("to second", map[string]interface{}{"store": "data"})

	if !strings.Contains(first.String(), "to first") || strings.Contains(first.String(), "to second") {
		t.Errorf("First writer got %q", first.String())
	}
	if !strings.Contains(second.String(), "to second") || !strings.Contains(second.String(), "store=data") {
		t.Errorf("Second writer got %q", second.String())
	}
}
