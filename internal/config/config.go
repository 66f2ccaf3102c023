package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/park285/repertoire/internal/chess"
	"github.com/park285/repertoire/internal/chess/movetext"
)

type AppConfig struct {
	StockfishPath      string
	EngineDepth        int
	EngineThreads      int
	EngineHashMB       int
	EngineMultiPV      int
	EnginePoolCapacity int

	WildcardSymbol string
	TreeMaxLines   int

	RedisURL        string
	EvalCacheTTLSec int

	DatabaseURL string

	HTTPAddr         string
	PolyglotBookPath string
	MessagesDir      string
}

const (
	DefaultTreeMaxLines    = 100000
	DefaultEvalCacheTTLSec = 7 * 24 * 3600
	DefaultHTTPAddr        = ":8080"
)

// Load reads the environment. Nothing is required here; each command checks
// the settings it depends on.
func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		EngineDepth:     chess.DefaultDepth,
		EngineThreads:   chess.DefaultThreads,
		EngineHashMB:    chess.DefaultHashMB,
		EngineMultiPV:   chess.DefaultMultiPV,
		WildcardSymbol:  movetext.DefaultWildcard,
		TreeMaxLines:    DefaultTreeMaxLines,
		EvalCacheTTLSec: DefaultEvalCacheTTLSec,
		HTTPAddr:        DefaultHTTPAddr,
	}

	cfg.StockfishPath = strings.TrimSpace(os.Getenv("STOCKFISH_PATH"))
	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	cfg.PolyglotBookPath = strings.TrimSpace(os.Getenv("POLYGLOT_BOOK_PATH"))
	cfg.MessagesDir = strings.TrimSpace(os.Getenv("MESSAGES_DIR"))

	if v := strings.TrimSpace(os.Getenv("WILDCARD_SYMBOL")); v != "" {
		cfg.WildcardSymbol = v
	}
	if v := strings.TrimSpace(os.Getenv("HTTP_ADDR")); v != "" {
		cfg.HTTPAddr = v
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"ENGINE_DEPTH", &cfg.EngineDepth},
		{"ENGINE_THREADS", &cfg.EngineThreads},
		{"ENGINE_HASH_MB", &cfg.EngineHashMB},
		{"ENGINE_MULTIPV", &cfg.EngineMultiPV},
		{"ENGINE_POOL_CAPACITY", &cfg.EnginePoolCapacity},
		{"TREE_MAX_LINES", &cfg.TreeMaxLines},
		{"EVAL_CACHE_TTL_SEC", &cfg.EvalCacheTTLSec},
	}
	for _, it := range ints {
		v := strings.TrimSpace(os.Getenv(it.key))
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("%s must be a positive integer, got %q", it.key, v)
		}
		*it.dst = n
	}
	return cfg, nil
}

// EngineLimits returns the configured search defaults.
func (c *AppConfig) EngineLimits() chess.Limits {
	return chess.Limits{
		Depth:   c.EngineDepth,
		MultiPV: c.EngineMultiPV,
		Threads: c.EngineThreads,
		HashMB:  c.EngineHashMB,
	}
}

func (c *AppConfig) EvalCacheTTL() time.Duration {
	return time.Duration(c.EvalCacheTTLSec) * time.Second
}
