package repertoire

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/park285/repertoire/internal/chess/position"
	"github.com/park285/repertoire/internal/chess/tree"
)

const sample = `
lines:
  - name: Italian
    pattern: "1. e4 e5 2. Nf3 Nc6 3. Bc4 __"
  - name: Scandinavian replies
    pattern: "1... d5 2. __"
    start_fen: "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq - 0 1"
  - name: Anything
    pattern: "1. __ __"
    max_lines: 50
`

func TestParseAndExpand(t *testing.T) {
	f, err := Parse([]byte(sample))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if f.Wildcard != "__" || len(f.Lines) != 3 {
		t.Fatalf("unexpected file: %+v", f)
	}

	italian, err := f.Find("Italian")
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	root, err := f.Expand(italian)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	for _, line := range root.Flatten() {
		if len(line) != 6 || line[4] != "Bc4" {
			t.Fatalf("unexpected line %v", line)
		}
	}

	scandi, _ := f.Find("Scandinavian replies")
	root, err = f.Expand(scandi)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if root.LineCount() < 30 {
		t.Fatalf("expected white replies to d5, got %d", root.LineCount())
	}

	anything, _ := f.Find("Anything")
	if _, err := f.Expand(anything); !errors.Is(err, tree.ErrTooManyLines) {
		t.Fatalf("expected ErrTooManyLines, got %v", err)
	}

	if _, err := f.Find("Missing"); !errors.Is(err, ErrUnknownLine) {
		t.Fatalf("expected ErrUnknownLine, got %v", err)
	}
}

func TestExpandAllUsesCustomWildcard(t *testing.T) {
	f, err := Parse([]byte(`
wildcard: "*"
lines:
  - name: KP
    pattern: "1. e4 *"
  - name: QP
    pattern: "1. d4 d5"
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	all, err := f.ExpandAll(tree.WithMaxLines(100))
	if err != nil {
		t.Fatalf("ExpandAll: %v", err)
	}
	if len(all) != 2 || all[0].Root.LineCount() != 20 || all[1].Root.LineCount() != 1 {
		t.Fatalf("unexpected expansion: %d trees", len(all))
	}
}

func TestParseRejectsInvalid(t *testing.T) {
	tests := map[string]string{
		"empty":      "lines: []",
		"no name":    "lines:\n  - pattern: \"1. e4\"",
		"duplicate":  "lines:\n  - name: a\n    pattern: e4\n  - name: a\n    pattern: d4",
		"negative":   "lines:\n  - name: a\n    pattern: e4\n    max_lines: -1",
		"not yaml":   "lines: [",
	}
	for name, raw := range tests {
		if _, err := Parse([]byte(raw)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rep.yaml")
	if err := os.WriteFile(path, []byte(sample), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	f, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if f.Lines[1].StartFEN == position.StartFEN {
		t.Fatalf("start_fen not read")
	}
	if _, err := Load(path + ".missing"); err == nil || !strings.Contains(err.Error(), "read repertoire") {
		t.Fatalf("expected read error, got %v", err)
	}

	bad, _ := f.Find("Italian")
	bad.Pattern = "1. e4 e5 2. Ke3"
	if _, err := f.Expand(bad); !errors.Is(err, position.ErrIllegalMove) {
		t.Fatalf("expected ErrIllegalMove, got %v", err)
	}
}
