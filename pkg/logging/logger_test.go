package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// restoreGlobal undoes the global state Setup changes.
func restoreGlobal(t *testing.T) {
	t.Helper()
	level, logger := zerolog.GlobalLevel(), log.Logger
	t.Cleanup(func() {
		zerolog.SetGlobalLevel(level)
		log.Logger = logger
	})
}

func TestSetup_LevelFiltering(t *testing.T) {
	restoreGlobal(t)

	tests := []struct {
		level   string
		written []string
		dropped []string
	}{
		{level: "debug", written: []string{"debug", "info", "warn", "error"}},
		{level: "info", written: []string{"info", "warn", "error"}, dropped: []string{"debug"}},
		{level: "warn", written: []string{"warn", "error"}, dropped: []string{"debug", "info"}},
		{level: "error", written: []string{"error"}, dropped: []string{"debug", "info", "warn"}},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			buf := &bytes.Buffer{}
			logger := Setup(Config{Level: tt.level, Output: buf})

			logger.Debug().Msg("debug line")
			logger.Info().Msg("info line")
			logger.Warn().Msg("warn line")
			logger.Error().Msg("error line")

			out := buf.String()
			for _, l := range tt.written {
				if !strings.Contains(out, l+" line") {
					t.Errorf("%s line missing from %q", l, out)
				}
			}
			for _, l := range tt.dropped {
				if strings.Contains(out, l+" line") {
					t.Errorf("%s line should be filtered at %s", l, tt.level)
				}
			}
		})
	}
}

func TestSetup_ServiceField(t *testing.T) {
	restoreGlobal(t)

	buf := &bytes.Buffer{}
	logger := Setup(Config{Level: "info", Output: buf})
	logger.Info().Msg("started")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf)
	}
	if line["service"] != ServiceName {
		t.Errorf("service = %v, want %s", line["service"], ServiceName)
	}
	if _, ok := line["time"]; !ok {
		t.Error("missing timestamp")
	}
}

func TestSetup_Pretty(t *testing.T) {
	restoreGlobal(t)

	buf := &bytes.Buffer{}
	logger := Setup(Config{Level: "info", Pretty: true, Output: buf})
	logger.Info().Msg("pretty line")

	out := buf.String()
	if !strings.Contains(out, "pretty line") || strings.HasPrefix(out, "{") {
		t.Errorf("expected console output, got %q", out)
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		"info":    zerolog.InfoLevel,
		"WARNING": zerolog.WarnLevel,
		" warn ":  zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"":        zerolog.InfoLevel,
		"verbose": zerolog.InfoLevel,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewLogger(t *testing.T) {
	restoreGlobal(t)

	buf := &bytes.Buffer{}
	Setup(Config{Level: "info", Output: buf})

	logger := NewLogger(ComponentCache)
	logger.Info().Msg("refreshed")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if line["component"] != ComponentCache || line["service"] != ServiceName {
		t.Errorf("line = %v", line)
	}
}

func TestFor(t *testing.T) {
	buf := &bytes.Buffer{}
	parent := zerolog.New(buf).With().Str("req_id", "abc").Logger()

	logger := For(parent, ComponentAuth)
	logger.Info().Msg("signed in")

	out := buf.String()
	if !strings.Contains(out, `"component":"auth"`) || !strings.Contains(out, `"req_id":"abc"`) {
		t.Errorf("output = %q", out)
	}
}
