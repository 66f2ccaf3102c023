package uci

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/park285/repertoire/internal/chess/uci/ucitest"
)

func TestMain(m *testing.M) {
	if ucitest.Serving() {
		os.Exit(ucitest.Main())
	}
	os.Exit(m.Run())
}

func intPtr(v int) *int { return &v }

func TestParseInfo(t *testing.T) {
	tests := []struct {
		name string
		line string
		want Candidate
		ok   bool
	}{
		{
			name: "centipawns",
			line: "info depth 18 seldepth 24 multipv 2 score cp -31 nodes 100 pv e7e5 g1f3",
			want: Candidate{MultiPV: 2, Depth: 18, Move: "e7e5", CP: intPtr(-31), Principal: []string{"e7e5", "g1f3"}},
			ok:   true,
		},
		{
			name: "mate",
			line: "info depth 5 score mate -3 pv e1e2",
			want: Candidate{MultiPV: 1, Depth: 5, Move: "e1e2", MateIn: intPtr(-3), Principal: []string{"e1e2"}},
			ok:   true,
		},
		{
			name: "bound marker",
			line: "info depth 9 multipv 1 score cp 12 lowerbound pv d2d4",
			want: Candidate{MultiPV: 1, Depth: 9, Move: "d2d4", CP: intPtr(12), Principal: []string{"d2d4"}},
			ok:   true,
		},
		{
			name: "score without pv",
			line: "info depth 0 score mate 0",
			want: Candidate{MultiPV: 1, MateIn: intPtr(0)},
			ok:   true,
		},
		{name: "string", line: "info string NNUE evaluation enabled", ok: false},
		{name: "currmove", line: "info depth 10 currmove e2e4 currmovenumber 1", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseInfo(tt.line)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if !ok {
				return
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("parseInfo mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestBuildCommands(t *testing.T) {
	if got := buildPositionCommand("", []string{"e2e4", "e7e5"}); got != "position startpos moves e2e4 e7e5\n" {
		t.Fatalf("startpos command = %q", got)
	}
	fen := "8/8/8/8/8/8/8/K6k w - - 0 1"
	if got := buildPositionCommand(fen, nil); got != "position fen "+fen+"\n" {
		t.Fatalf("fen command = %q", got)
	}
	tokens, err := buildGoTokens(Limits{Depth: 20, NodeCap: 5000})
	if err != nil {
		t.Fatalf("buildGoTokens: %v", err)
	}
	if diff := cmp.Diff([]string{"go", "depth", "20", "nodes", "5000"}, tokens); diff != "" {
		t.Fatalf("go tokens mismatch (-want +got):\n%s", diff)
	}
	if _, err := buildGoTokens(Limits{}); err == nil {
		t.Fatalf("expected error for empty limits")
	}
}

func TestValidateOptions(t *testing.T) {
	if err := validateOptions(Options{Threads: 1, HashMB: 16, MultiPV: 1}); err != nil {
		t.Fatalf("valid options rejected: %v", err)
	}
	bad := []Options{
		{HashMB: 0, MultiPV: 1},
		{HashMB: 16, MultiPV: 0},
		{HashMB: 16, MultiPV: 1, SkillLevel: 21},
		{HashMB: 16, MultiPV: 1, Elo: -1},
		{HashMB: 16, MultiPV: 1, Threads: -2},
	}
	for _, opt := range bad {
		if err := validateOptions(opt); err == nil {
			t.Fatalf("expected %+v to be rejected", opt)
		}
	}
}

func newTestSession(t *testing.T, multiPV int) *Session {
	t.Helper()
	s, err := NewSession(context.Background(), ucitest.Binary(t), Options{Threads: 1, HashMB: 16, MultiPV: multiPV}, nil)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSessionSearchMultiPV(t *testing.T) {
	s := newTestSession(t, 3)
	ctx := context.Background()
	if err := s.NewGame(ctx); err != nil {
		t.Fatalf("NewGame: %v", err)
	}

	resp, err := s.Search(ctx, SearchRequest{Moves: []string{"e2e4"}, Limits: Limits{Depth: 10}})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(resp.Candidates) != 3 {
		t.Fatalf("expected 3 candidates, got %d", len(resp.Candidates))
	}
	for i, c := range resp.Candidates {
		if c.MultiPV != i+1 || c.Depth != 10 || c.CP == nil || c.MateIn != nil {
			t.Fatalf("unexpected candidate %d: %+v", i, c)
		}
		if want := 35 - 10*i; *c.CP != want {
			t.Fatalf("candidate %d cp = %d, want %d", i, *c.CP, want)
		}
		if len(c.Principal) != 2 || c.Move != c.Principal[0] {
			t.Fatalf("candidate %d pv = %v", i, c.Principal)
		}
	}
	if resp.BestMove != resp.Candidates[0].Move {
		t.Fatalf("bestmove %q != first candidate %q", resp.BestMove, resp.Candidates[0].Move)
	}
}

func TestSessionSearchMate(t *testing.T) {
	s := newTestSession(t, 1)
	ctx := context.Background()

	fen := "rnbqkbnr/pppp1ppp/8/4p3/6P1/5P2/PPPPP2P/RNBQKBNR b KQkq - 0 2"
	resp, err := s.Search(ctx, SearchRequest{FEN: fen, Limits: Limits{Depth: 5}})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(resp.Candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(resp.Candidates))
	}
	c := resp.Candidates[0]
	if c.MateIn == nil || *c.MateIn != 1 || c.CP != nil || c.Move != "d8h4" {
		t.Fatalf("unexpected mate candidate: %+v", c)
	}

	mated := "rnb1kbnr/pppp1ppp/8/4p3/6Pq/5P2/PPPPP2P/RNBQKBNR w KQkq - 1 3"
	resp, err = s.Search(ctx, SearchRequest{FEN: mated, Limits: Limits{Depth: 5}})
	if err != nil {
		t.Fatalf("Search mated: %v", err)
	}
	if resp.BestMove != "" {
		t.Fatalf("expected no best move, got %q", resp.BestMove)
	}
	if len(resp.Candidates) != 1 || resp.Candidates[0].MateIn == nil || *resp.Candidates[0].MateIn != 0 {
		t.Fatalf("expected mate 0, got %+v", resp.Candidates)
	}
}

func TestSessionEngineExit(t *testing.T) {
	s := newTestSession(t, 1)
	_, err := s.Search(context.Background(), SearchRequest{Limits: Limits{Depth: ucitest.CrashDepth}})
	if !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("expected ErrSessionClosed, got %v", err)
	}
}

func TestSessionSearchTimeout(t *testing.T) {
	s := newTestSession(t, 1)
	_, err := s.Search(context.Background(), SearchRequest{
		Limits:  Limits{Depth: ucitest.HangDepth},
		Timeout: 200 * time.Millisecond,
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := s.EnsureReady(context.Background()); !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("expected ErrSessionClosed after Close, got %v", err)
	}
}

func TestFindBinary(t *testing.T) {
	t.Setenv("STOCKFISH_PATH", "")
	if _, err := FindBinary(filepath.Join(t.TempDir(), "missing")); !errors.Is(err, ErrEngineNotFound) {
		t.Fatalf("expected ErrEngineNotFound, got %v", err)
	}

	exe, err := os.Executable()
	if err != nil {
		t.Fatalf("os.Executable: %v", err)
	}
	if got, err := FindBinary(exe); err != nil || got != exe {
		t.Fatalf("FindBinary(explicit) = %q, %v", got, err)
	}

	t.Setenv("STOCKFISH_PATH", exe)
	if got, err := FindBinary(""); err != nil || got != exe {
		t.Fatalf("FindBinary(env) = %q, %v", got, err)
	}

	t.Setenv("STOCKFISH_PATH", filepath.Join(t.TempDir(), "nope"))
	if _, err := FindBinary(""); !errors.Is(err, ErrEngineNotFound) {
		t.Fatalf("expected ErrEngineNotFound for bad env path, got %v", err)
	}
}
