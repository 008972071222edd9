package logx_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/p00ya/native-messaging/internal/logx"
	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	var tests = []struct {
		in   string
		want zerolog.Level
	}{
		{"all", zerolog.TraceLevel},
		{"WARNING", zerolog.WarnLevel},
		{" debug ", zerolog.DebugLevel},
		{"none", zerolog.Disabled},
		{"bogus", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		if got := logx.ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestNewLevelFromEnv(t *testing.T) {
	t.Setenv(logx.EnvLevel, "error")
	t.Setenv(logx.EnvFile, "")
	var buf bytes.Buffer
	log, closeFn, err := logx.New(logx.Options{Out: &buf, JSON: true})
	if err != nil {
		t.Fatal(err)
	}
	defer closeFn()

	log.Info().Msg("quiet")
	log.Error().Msg("loud")
	if strings.Contains(buf.String(), "quiet") || !strings.Contains(buf.String(), "loud") {
		t.Errorf("unexpected log output %q", buf.String())
	}
}

func TestNewFile(t *testing.T) {
	t.Setenv(logx.EnvLevel, "")
	name := filepath.Join(t.TempDir(), "host.log")
	var buf bytes.Buffer
	log, closeFn, err := logx.New(logx.Options{Out: &buf, File: name})
	if err != nil {
		t.Fatal(err)
	}
	log.Info().Str("k", "v").Msg("to both")
	if err := closeFn(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(name)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "to both") || !strings.Contains(buf.String(), "to both") {
		t.Errorf("file got %q, out got %q", data, buf.String())
	}
}

func TestNewBadFile(t *testing.T) {
	name := filepath.Join(t.TempDir(), "missing", "host.log")
	if _, _, err := logx.New(logx.Options{File: name}); err == nil {
		t.Error("New() with an unwritable file returned nil error")
	}
}

func TestWithSession(t *testing.T) {
	var buf bytes.Buffer
	log, id := logx.WithSession(zerolog.New(&buf))
	log.Info().Msg("started")
	if id == "" || !strings.Contains(buf.String(), `"session":"`+id+`"`) {
		t.Errorf("session %q missing from %q", id, buf.String())
	}
}
