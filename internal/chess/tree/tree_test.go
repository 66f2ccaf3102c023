package tree

import (
	"errors"
	"slices"
	"strings"
	"testing"

	nchess "github.com/corentings/chess/v2"
	"github.com/google/go-cmp/cmp"

	"github.com/park285/repertoire/internal/chess/position"
)

func mustExpand(t *testing.T, pattern string, opts ...Option) *Node {
	t.Helper()
	root, err := Expand(pattern, opts...)
	if err != nil {
		t.Fatalf("Expand(%q): %v", pattern, err)
	}
	return root
}

func TestExpandLineCounts(t *testing.T) {
	tests := []struct {
		pattern string
		opts    []Option
		want    int
	}{
		{pattern: "1. e4 e5 2. Nf3", want: 1},
		{pattern: "1. e4 __", want: 20},
		{pattern: "1. __", want: 20},
		{pattern: "1. __ __", want: 400},
		{pattern: "1. e4 __ 2. Nf3", want: 20},
		{pattern: "1. e4 __ 2. Nc3", want: 20},
		{pattern: "1. e4 e5 2. __", want: 29},
		{pattern: "1. e4 ?? 2. Nf3", opts: []Option{WithWildcard("??")}, want: 20},
		{pattern: "", want: 1},
	}
	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			root := mustExpand(t, tt.pattern, tt.opts...)
			if got := root.LineCount(); got != tt.want {
				t.Fatalf("LineCount = %d, want %d", got, tt.want)
			}
			if got := len(root.Flatten()); got != tt.want {
				t.Fatalf("len(Flatten) = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestExpandFixedLine(t *testing.T) {
	root := mustExpand(t, "1. e4 e5 2. Nf3 Nc6")
	want := [][]string{{"e4", "e5", "Nf3", "Nc6"}}
	if diff := cmp.Diff(want, root.Flatten()); diff != "" {
		t.Fatalf("Flatten mismatch (-want +got):\n%s", diff)
	}
	if root.Move != "" {
		t.Fatalf("root move = %q, want empty", root.Move)
	}
	if root.Children[0].Move != "e4" || root.Children[0].Children[0].Move != "e5" {
		t.Fatalf("unexpected child moves")
	}
	if root.Depth() != 4 {
		t.Fatalf("Depth = %d, want 4", root.Depth())
	}
}

func TestExpandFEN(t *testing.T) {
	root := mustExpand(t, "1. e4")
	if root.FEN != position.StartFEN {
		t.Fatalf("root fen = %q", root.FEN)
	}
	want := strings.Fields("rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq - 0 1")
	got := strings.Fields(root.Children[0].FEN)
	if len(got) != 6 {
		t.Fatalf("malformed fen %q", root.Children[0].FEN)
	}
	// the en passant field depends on whether the rules library records it
	// for a double push that no pawn can capture.
	got[3], want[3] = "-", "-"
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("fen after e4 mismatch (-want +got):\n%s", diff)
	}
}

func TestExpandEmpty(t *testing.T) {
	root := mustExpand(t, "")
	if root.Move != "" || root.FEN != position.StartFEN || len(root.Children) != 0 {
		t.Fatalf("unexpected root: %+v", root)
	}
	if diff := cmp.Diff([][]string{{}}, root.Flatten()); diff != "" {
		t.Fatalf("Flatten mismatch (-want +got):\n%s", diff)
	}
}

func TestExpandWildcardLines(t *testing.T) {
	root := mustExpand(t, "1. e4 __")
	lines := root.Flatten()
	for _, line := range lines {
		if len(line) != 2 || line[0] != "e4" {
			t.Fatalf("unexpected line %v", line)
		}
	}
	for _, reply := range []string{"e5", "d5", "c5", "Nf6"} {
		if !slices.ContainsFunc(lines, func(l []string) bool { return l[1] == reply }) {
			t.Fatalf("expected reply %s among lines", reply)
		}
	}
}

func TestExpandAcceleratedLondon(t *testing.T) {
	root := mustExpand(t, "1. d4 __ 2. Bf4 __")
	if root.LineCount() <= 400 {
		t.Fatalf("expected more than 400 lines, got %d", root.LineCount())
	}
	for _, line := range root.Flatten() {
		if len(line) != 4 || line[0] != "d4" || line[2] != "Bf4" {
			t.Fatalf("unexpected line %v", line)
		}
	}
}

func TestExpandIllegalMove(t *testing.T) {
	_, err := Expand("1. e4 e5 2. Qh5 Qxh5")
	if !errors.Is(err, position.ErrIllegalMove) {
		t.Fatalf("expected ErrIllegalMove, got %v", err)
	}
	msg := err.Error()
	if !strings.Contains(msg, "Qxh5") || !strings.Contains(msg, "not legal in this position") {
		t.Fatalf("unexpected message: %s", msg)
	}
}

func TestExpandMaxLines(t *testing.T) {
	_, err := Expand("1. __ __", WithMaxLines(100))
	if !errors.Is(err, ErrTooManyLines) {
		t.Fatalf("expected ErrTooManyLines, got %v", err)
	}
	if _, err := Expand("1. e4 __", WithMaxLines(20)); err != nil {
		t.Fatalf("20 lines within limit: %v", err)
	}
}

func TestExpandStartFEN(t *testing.T) {
	fen := "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq - 0 1"
	root := mustExpand(t, "1... e5 2. __", WithStartFEN(fen))
	if root.FEN != fen {
		t.Fatalf("root fen = %q", root.FEN)
	}
	if root.LineCount() != 29 {
		t.Fatalf("LineCount = %d, want 29", root.LineCount())
	}
	if _, err := Expand("e4", WithStartFEN("garbage")); !errors.Is(err, position.ErrInvalidFEN) {
		t.Fatalf("expected ErrInvalidFEN, got %v", err)
	}
}

func TestExpandToleratesResultAndBlackMoveNumbers(t *testing.T) {
	root := mustExpand(t, "1. e4 e5 2. Nf3 2... Nc6 1-0")
	want := [][]string{{"e4", "e5", "Nf3", "Nc6"}}
	if diff := cmp.Diff(want, root.Flatten()); diff != "" {
		t.Fatalf("Flatten mismatch (-want +got):\n%s", diff)
	}
}

func TestExpandWildcardAfterMate(t *testing.T) {
	root := mustExpand(t, "1. f3 e5 2. g4 Qh4# __")
	want := [][]string{{"f3", "e5", "g4", "Qh4#"}}
	if diff := cmp.Diff(want, root.Flatten()); diff != "" {
		t.Fatalf("Flatten mismatch (-want +got):\n%s", diff)
	}
}

func TestLeavesAndWalk(t *testing.T) {
	root := mustExpand(t, "1. e4 __")
	leaves := root.Leaves()
	if len(leaves) != 20 {
		t.Fatalf("expected 20 leaves, got %d", len(leaves))
	}
	for _, l := range leaves {
		if l.Node.Move != l.Line[len(l.Line)-1] {
			t.Fatalf("leaf node %q does not end line %v", l.Node.Move, l.Line)
		}
	}

	visited := 0
	maxPly := 0
	root.Walk(func(n *Node, ply int) bool {
		visited++
		maxPly = max(maxPly, ply)
		return true
	})
	if visited != 22 || maxPly != 2 {
		t.Fatalf("Walk visited %d nodes up to ply %d", visited, maxPly)
	}

	visited = 0
	root.Walk(func(n *Node, ply int) bool {
		visited++
		return ply < 1
	})
	if visited != 2 {
		t.Fatalf("pruned walk visited %d nodes, want 2", visited)
	}
}

type kingPawnClassifier struct{}

func (kingPawnClassifier) Classify(game *nchess.Game) (string, string, bool) {
	moves := game.Moves()
	if len(moves) == 1 && moves[0].String() == "e2e4" {
		return "B00", "King's Pawn Game", true
	}
	return "", "", false
}

func TestClassifierAndSummary(t *testing.T) {
	root := mustExpand(t, "1. __ e5", WithClassifier(kingPawnClassifier{}))
	if root.ECO != "" {
		t.Fatalf("root should not be classified")
	}
	var e4 *Node
	for _, child := range root.Children {
		if child.Move == "e4" {
			e4 = child
		}
	}
	if e4 == nil || e4.ECO != "B00" || e4.Opening != "King's Pawn Game" {
		t.Fatalf("e4 not classified: %+v", e4)
	}

	summary := root.Summary()
	total := 0
	for _, c := range summary {
		total += c.Lines
	}
	if total != root.LineCount() {
		t.Fatalf("summary covers %d lines, tree has %d", total, root.LineCount())
	}
	if !slices.Contains(summary, OpeningCount{ECO: "B00", Name: "King's Pawn Game", Lines: 1}) {
		t.Fatalf("expected B00 entry in %v", summary)
	}
}

type anyClassifier struct{}

func (anyClassifier) Classify(*nchess.Game) (string, string, bool) {
	return "A00", "Irregular", true
}

func TestClassifierSkippedFromCustomStart(t *testing.T) {
	fen := "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq - 0 1"
	root := mustExpand(t, "1... e5 2. __", WithStartFEN(fen), WithClassifier(anyClassifier{}))
	root.Walk(func(n *Node, _ int) bool {
		if n.ECO != "" || n.Opening != "" {
			t.Fatalf("node %q classified from a custom start: %s %s", n.Move, n.ECO, n.Opening)
		}
		return true
	})

	fromStart := mustExpand(t, "1. e4", WithStartFEN(position.StartFEN), WithClassifier(anyClassifier{}))
	if fromStart.Children[0].ECO != "A00" {
		t.Fatalf("explicit initial position should still classify")
	}
}
