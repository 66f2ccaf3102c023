package uci

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

var ErrEngineNotFound = errors.New("engine binary not found")

var fallbackBinaryPaths = []string{
	"/usr/bin/stockfish",
	"/usr/local/bin/stockfish",
	"/opt/homebrew/bin/stockfish",
}

// FindBinary resolves the engine executable: explicit path, then STOCKFISH_PATH,
// then stockfish on PATH, then the usual install locations.
func FindBinary(explicit string) (string, error) {
	if path := strings.TrimSpace(explicit); path != "" {
		if isExecutable(path) {
			return path, nil
		}
		return "", fmt.Errorf("%w: %s", ErrEngineNotFound, path)
	}
	if path := strings.TrimSpace(os.Getenv("STOCKFISH_PATH")); path != "" {
		if isExecutable(path) {
			return path, nil
		}
		return "", fmt.Errorf("%w: env STOCKFISH_PATH points to %s", ErrEngineNotFound, path)
	}
	if path, err := exec.LookPath("stockfish"); err == nil {
		return path, nil
	}
	for _, candidate := range fallbackBinaryPaths {
		if isExecutable(candidate) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: install stockfish or set STOCKFISH_PATH", ErrEngineNotFound)
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	return info.Mode()&0o111 != 0
}
