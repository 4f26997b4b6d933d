package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func consoleLogger(buf *bytes.Buffer, level slog.Level) *slog.Logger {
	levelVar := new(slog.LevelVar)
	levelVar.Set(level)
	return slog.New(newConsoleHandler(buf, levelVar))
}

func TestConsoleHandlerFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := WithComponent(consoleLogger(&buf, slog.LevelInfo), "scheduler")

	logger.Info("job queued", FieldJobID, int64(7), "path", "/tmp/a b")

	line := buf.String()
	if !strings.Contains(line, " INFO scheduler: job queued") {
		t.Fatalf("unexpected line %q", line)
	}
	if !strings.Contains(line, "job_id=7") {
		t.Fatalf("missing job_id attribute in %q", line)
	}
	// Values with spaces get quoted.
	if !strings.Contains(line, `path="/tmp/a b"`) {
		t.Fatalf("missing quoted path in %q", line)
	}
	if !strings.HasSuffix(line, "\n") {
		t.Fatalf("line must end with newline: %q", line)
	}
}

func TestConsoleHandlerSuppressesBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := consoleLogger(&buf, slog.LevelInfo)

	logger.Debug("noise")
	if buf.Len() != 0 {
		t.Fatalf("debug record must be suppressed, got %q", buf.String())
	}

	logger.Warn("signal")
	if !strings.Contains(buf.String(), " WARN signal") {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

func TestConsoleHandlerFlattensGroups(t *testing.T) {
	var buf bytes.Buffer
	logger := consoleLogger(&buf, slog.LevelInfo).WithGroup("job")

	logger.Info("queued", "id", 3)
	if !strings.Contains(buf.String(), "job.id=3") {
		t.Fatalf("expected flattened group key, got %q", buf.String())
	}
}

func TestJSONHandlerKeys(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	logger := slog.New(newJSONHandler(&buf, levelVar))

	logger.Info("queued", FieldWorkUnit, "John_3_16")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("unmarshal log line: %v", err)
	}
	if record["msg"] != "queued" {
		t.Fatalf("unexpected msg %v", record["msg"])
	}
	if record["level"] != "info" {
		t.Fatalf("unexpected level %v", record["level"])
	}
	if _, ok := record["ts"].(string); !ok {
		t.Fatalf("expected ts string, got %#v", record["ts"])
	}
	if record["work_unit"] != "John_3_16" {
		t.Fatalf("unexpected work_unit %v", record["work_unit"])
	}
}

func TestParseLevel(t *testing.T) {
	cases := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{" warn ", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
	}
	for _, tc := range cases {
		if got := parseLevel(tc.input); got != tc.want {
			t.Fatalf("parseLevel(%q) = %v, want %v", tc.input, got, tc.want)
		}
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("expected unknown format to be rejected")
	}
}

func TestNewForDirWritesLogFile(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewForDir(dir, "info", "json")
	if err != nil {
		t.Fatalf("NewForDir failed: %v", err)
	}

	logger.Info("hello from the daemon")

	content, err := os.ReadFile(filepath.Join(dir, "versemill.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), "hello from the daemon") {
		t.Fatalf("log file missing record: %q", content)
	}
}

func TestNopLoggerDiscards(t *testing.T) {
	logger := NewNop()
	if logger.Enabled(nil, slog.LevelError) {
		t.Fatal("nop logger must disable all levels")
	}
}
