package logx

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func bufLogger(buf *bytes.Buffer, level zerolog.Level) Logger {
	return Logger{base: zerolog.New(buf).Level(level), hasBase: true}
}

func TestLoggerWritesStructuredFields(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := bufLogger(&buf, zerolog.DebugLevel).With(String("comp", "test"))
	log.Info("hello", Int("n", 3), Int64("big", 9), Bool("ok", true),
		Duration("d", time.Second), Err(errors.New("boom")))

	out := buf.String()
	for _, want := range []string{
		`"message":"hello"`, `"level":"info"`, `"comp":"test"`,
		`"n":3`, `"big":9`, `"ok":true`, "boom",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %s:\n%s", want, out)
		}
	}
}

func TestLoggerHonorsLevel(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := bufLogger(&buf, zerolog.WarnLevel)
	log.Debug("quiet")
	log.Info("also quiet")
	log.Warn("loud")

	out := buf.String()
	if strings.Contains(out, "quiet") {
		t.Fatalf("below-level messages leaked:\n%s", out)
	}
	if !strings.Contains(out, "loud") {
		t.Fatalf("warn message missing:\n%s", out)
	}
}

func TestZeroValueLoggerIsSafe(t *testing.T) {
	t.Parallel()
	var log Logger
	if !log.IsZero() {
		t.Fatal("zero value should report IsZero")
	}
	log.Info("dropped")
	log.With(String("k", "v")).Error("also dropped", Err(errors.New("x")))
}

func TestParseLevel(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"ERROR", zerolog.ErrorLevel},
		{"  info  ", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
		{"nonsense", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in, zerolog.InfoLevel); got != tt.want {
			t.Fatalf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
