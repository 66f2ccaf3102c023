package obslog

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestNewJSONConsole(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Level: "debug", Format: "json", ToConsole: true, Console: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Debug("tree_expand", zap.Int("lines", 20))
	_ = logger.Sync()

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("log line is not json: %v (%q)", err, buf.String())
	}
	if entry["msg"] != "tree_expand" || entry["level"] != "debug" || entry["lines"] != float64(20) {
		t.Fatalf("unexpected entry %v", entry)
	}
}

func TestLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Level: "warn", Format: "console", ToConsole: true, Console: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Info("engine_search_done")
	logger.Warn("engine_session_stale")
	out := buf.String()
	if strings.Contains(out, "engine_search_done") || !strings.Contains(out, "engine_session_stale") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "repertoire.log")
	logger, err := New(Config{Format: "legacy", ToFile: true, FilePath: path})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Info("eval_cache_hit")
	_ = logger.Sync()
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(raw), " | INFO | ") || !strings.Contains(string(raw), "eval_cache_hit") {
		t.Fatalf("unexpected file content %q", raw)
	}
}

func TestInitFromEnvWithoutSinks(t *testing.T) {
	t.Setenv("LOG_TO_CONSOLE", "false")
	t.Setenv("LOG_TO_FILE", "false")
	if err := InitFromEnv(); err != nil {
		t.Fatalf("InitFromEnv: %v", err)
	}
	if L() == nil {
		t.Fatalf("global logger is nil")
	}
	L().Info("ignored")
}
