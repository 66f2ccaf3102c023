package config

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"STOCKFISH_PATH", "ENGINE_DEPTH", "ENGINE_THREADS", "ENGINE_HASH_MB", "ENGINE_MULTIPV",
		"ENGINE_POOL_CAPACITY", "WILDCARD_SYMBOL", "TREE_MAX_LINES", "REDIS_URL", "EVAL_CACHE_TTL_SEC",
		"DATABASE_URL", "HTTP_ADDR", "POLYGLOT_BOOK_PATH", "MESSAGES_DIR",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := &AppConfig{
		EngineDepth:     20,
		EngineThreads:   1,
		EngineHashMB:    256,
		EngineMultiPV:   1,
		WildcardSymbol:  "__",
		TreeMaxLines:    100000,
		EvalCacheTTLSec: 604800,
		HTTPAddr:        ":8080",
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("defaults mismatch (-want +got):\n%s", diff)
	}
	if cfg.EvalCacheTTL() != 7*24*time.Hour {
		t.Fatalf("EvalCacheTTL = %v", cfg.EvalCacheTTL())
	}
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("STOCKFISH_PATH", " /opt/sf ")
	t.Setenv("ENGINE_DEPTH", "12")
	t.Setenv("ENGINE_MULTIPV", "3")
	t.Setenv("ENGINE_POOL_CAPACITY", "2")
	t.Setenv("WILDCARD_SYMBOL", "??")
	t.Setenv("REDIS_URL", "redis://localhost:6379/1")
	t.Setenv("HTTP_ADDR", "127.0.0.1:9000")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.StockfishPath != "/opt/sf" || cfg.EnginePoolCapacity != 2 || cfg.WildcardSymbol != "??" || cfg.HTTPAddr != "127.0.0.1:9000" {
		t.Fatalf("unexpected config %+v", cfg)
	}
	lim := cfg.EngineLimits()
	if lim.Depth != 12 || lim.MultiPV != 3 || lim.HashMB != 256 {
		t.Fatalf("unexpected limits %+v", lim)
	}
}

func TestLoadRejectsBadNumbers(t *testing.T) {
	for _, v := range []string{"abc", "0", "-3"} {
		clearEnv(t)
		t.Setenv("ENGINE_DEPTH", v)
		if _, err := Load(); err == nil || !strings.Contains(err.Error(), "ENGINE_DEPTH") {
			t.Fatalf("ENGINE_DEPTH=%q: expected error, got %v", v, err)
		}
	}
}
