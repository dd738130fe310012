package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"envgate-server/internal/config"
)

func TestNew_ReleaseVersionLogsJSON(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.Config{AppEnv: "prod", LogLevel: slog.LevelInfo, Profile: config.ProfileFull}

	logger := newWithWriter(&buf, cfg, "1.2.3", "envgate")
	logger.Info("hello", "k", "v")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("unmarshal log line %q: %v", buf.String(), err)
	}
	for key, want := range map[string]string{
		"msg":     "hello",
		"app":     "envgate",
		"version": "1.2.3",
		"env":     "prod",
		"profile": "full",
		"k":       "v",
	} {
		if rec[key] != want {
			t.Errorf("%s = %v, want %q", key, rec[key], want)
		}
	}
}

func TestNew_DevVersionRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.Config{AppEnv: "dev", LogLevel: slog.LevelWarn, Profile: config.ProfileBasic}

	logger := newWithWriter(&buf, cfg, "dev", "envgate")
	logger.Info("quiet")
	if buf.Len() != 0 {
		t.Fatalf("info record written below warn level: %q", buf.String())
	}

	logger.Warn("loud")
	if !strings.Contains(buf.String(), "loud") {
		t.Fatalf("warn record missing: %q", buf.String())
	}
}
