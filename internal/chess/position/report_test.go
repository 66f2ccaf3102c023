package position

import (
	"errors"
	"slices"
	"testing"
)

func findMove(t *testing.T, info PositionInfo, san string) MoveInfo {
	t.Helper()
	for _, m := range info.LegalMoves {
		if m.SAN == san {
			return m
		}
	}
	t.Fatalf("move %q not found among %v", san, info.SANs())
	return MoveInfo{}
}

func TestReportStartingPosition(t *testing.T) {
	info, err := ReportFEN(StartFEN)
	if err != nil {
		t.Fatalf("ReportFEN: %v", err)
	}
	if info.MoveCount() != 20 {
		t.Fatalf("expected 20 moves, got %d", info.MoveCount())
	}
	if info.Turn != "white" || info.IsCheck || info.IsCheckmate || info.IsStalemate {
		t.Fatalf("unexpected flags: %+v", info)
	}
	if info.FEN != StartFEN {
		t.Fatalf("fen = %q", info.FEN)
	}
	nf3 := findMove(t, info, "Nf3")
	if nf3.UCI != "g1f3" || nf3.IsCapture || nf3.IsCastling || nf3.GivesCheck {
		t.Fatalf("unexpected Nf3 info: %+v", nf3)
	}
}

func TestReportPGN(t *testing.T) {
	t.Run("bare movetext", func(t *testing.T) {
		info, err := ReportPGN("1. e4 e5")
		if err != nil {
			t.Fatalf("ReportPGN: %v", err)
		}
		if info.Turn != "white" || info.MoveCount() == 0 {
			t.Fatalf("unexpected info: turn=%s count=%d", info.Turn, info.MoveCount())
		}
	})

	t.Run("with headers", func(t *testing.T) {
		pgn := "[Event \"Test\"]\n[Result \"*\"]\n\n1. e4 e5 2. Nf3 *"
		info, err := ReportPGN(pgn)
		if err != nil {
			t.Fatalf("ReportPGN: %v", err)
		}
		if info.Turn != "black" {
			t.Fatalf("expected black to move, got %s", info.Turn)
		}
	})

	t.Run("italian", func(t *testing.T) {
		info, err := ReportPGN("1. e4 e5 2. Nf3 Nc6 3. Bc4")
		if err != nil {
			t.Fatalf("ReportPGN: %v", err)
		}
		if !slices.Contains(info.SANs(), "Bc5") {
			t.Fatalf("expected Bc5 among %v", info.SANs())
		}
	})

	t.Run("result marker ignored", func(t *testing.T) {
		info, err := ReportPGN("1. e4 e5 2. Nf3 Nf6 3. Nxe5 *")
		if err != nil {
			t.Fatalf("ReportPGN: %v", err)
		}
		if info.Turn != "black" || !slices.Contains(info.SANs(), "d6") {
			t.Fatalf("unexpected info: %s %v", info.Turn, info.SANs())
		}
	})

	t.Run("annotated movetext", func(t *testing.T) {
		const afterNf3Nc6 = "r1bqkbnr/pppp1ppp/2n5/4p3/4P3/5N2/PPPP1PPP/RNBQKB1R w KQkq - 2 3"
		cases := []struct {
			name string
			pgn  string
			want string
		}{
			{"comment", "1. e4 {king pawn} e5 2. Nf3 Nc6", afterNf3Nc6},
			{"nag", "1. e4 e5 2. Nf3 $1 Nc6", afterNf3Nc6},
			{"variation", "1. e4 e5 (1... c5 2. Nf3) 2. Nf3 Nc6", afterNf3Nc6},
			{"no space after number", "1.e4 e5 2.Nf3 Nc6", afterNf3Nc6},
			{"decisive result", "1. e4 e5 2. Nf3 Nc6 1-0", afterNf3Nc6},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				info, err := ReportPGN(tc.pgn)
				if err != nil {
					t.Fatalf("ReportPGN(%q): %v", tc.pgn, err)
				}
				if info.FEN != tc.want {
					t.Fatalf("fen = %q, want %q", info.FEN, tc.want)
				}
			})
		}
	})

	t.Run("empty", func(t *testing.T) {
		info, err := ReportPGN("")
		if err != nil {
			t.Fatalf("ReportPGN: %v", err)
		}
		if info.FEN != StartFEN || info.MoveCount() != 20 {
			t.Fatalf("expected starting position, got %s (%d)", info.FEN, info.MoveCount())
		}
	})

	t.Run("illegal move", func(t *testing.T) {
		_, err := ReportPGN("1. e4 e5 2. Ke3")
		if !errors.Is(err, ErrInvalidPGN) {
			t.Fatalf("expected ErrInvalidPGN, got %v", err)
		}
	})
}

func TestReportFENErrors(t *testing.T) {
	_, err := ReportFEN("not a fen")
	if !errors.Is(err, ErrInvalidFEN) {
		t.Fatalf("expected ErrInvalidFEN, got %v", err)
	}
}

func TestReportFlags(t *testing.T) {
	t.Run("checkmate after moves", func(t *testing.T) {
		info, err := ReportPGN("1. f3 e5 2. g4 Qh4#")
		if err != nil {
			t.Fatalf("ReportPGN: %v", err)
		}
		if !info.IsCheck || !info.IsCheckmate || info.IsStalemate || info.MoveCount() != 0 {
			t.Fatalf("expected checkmate, got %+v", info)
		}
	})

	t.Run("check from fen", func(t *testing.T) {
		info, err := ReportFEN("4k3/8/8/8/8/8/4R3/4K3 b - - 0 1")
		if err != nil {
			t.Fatalf("ReportFEN: %v", err)
		}
		if !info.IsCheck || info.IsCheckmate || info.MoveCount() == 0 {
			t.Fatalf("expected plain check, got %+v", info)
		}
	})

	t.Run("check by pinned piece", func(t *testing.T) {
		info, err := ReportFEN("4k3/8/2b5/8/4R3/8/6K1/8 b - - 0 1")
		if err != nil {
			t.Fatalf("ReportFEN: %v", err)
		}
		if !info.IsCheck || info.IsCheckmate || info.IsStalemate {
			t.Fatalf("expected check from the pinned rook, got %+v", info)
		}
		if !slices.Contains(info.SANs(), "Kd8") || !slices.Contains(info.SANs(), "Bxe4") {
			t.Fatalf("expected Kd8 and Bxe4 among %v", info.SANs())
		}
	})

	t.Run("stalemate", func(t *testing.T) {
		info, err := ReportFEN("7k/5Q2/6K1/8/8/8/8/8 b - - 0 1")
		if err != nil {
			t.Fatalf("ReportFEN: %v", err)
		}
		if info.IsCheck || info.IsCheckmate || !info.IsStalemate || info.MoveCount() != 0 {
			t.Fatalf("expected stalemate, got %+v", info)
		}
	})
}

func TestReportMoveTags(t *testing.T) {
	t.Run("castling", func(t *testing.T) {
		info, err := ReportFEN("r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1")
		if err != nil {
			t.Fatalf("ReportFEN: %v", err)
		}
		short := findMove(t, info, "O-O")
		long := findMove(t, info, "O-O-O")
		if !short.IsCastling || !long.IsCastling || short.UCI != "e1g1" || long.UCI != "e1c1" {
			t.Fatalf("unexpected castling info: %+v %+v", short, long)
		}
	})

	t.Run("en passant", func(t *testing.T) {
		info, err := ReportFEN("rnbqkbnr/ppp1p1pp/8/3pPp2/8/8/PPPP1PPP/RNBQKBNR w KQkq f6 0 3")
		if err != nil {
			t.Fatalf("ReportFEN: %v", err)
		}
		ep := findMove(t, info, "exf6")
		if !ep.IsEnPassant || !ep.IsCapture || ep.UCI != "e5f6" {
			t.Fatalf("unexpected en passant info: %+v", ep)
		}
	})

	t.Run("gives check", func(t *testing.T) {
		info, err := ReportFEN("4k3/8/8/8/8/8/8/R3K3 w - - 0 1")
		if err != nil {
			t.Fatalf("ReportFEN: %v", err)
		}
		ra8 := findMove(t, info, "Ra8+")
		if !ra8.GivesCheck || ra8.IsCapture {
			t.Fatalf("unexpected Ra8+ info: %+v", ra8)
		}
	})
}

func TestPushFallsBackToUCI(t *testing.T) {
	game, err := FromSAN([]string{"e2e4", "e5"})
	if err != nil {
		t.Fatalf("FromSAN: %v", err)
	}
	if len(game.Moves()) != 2 {
		t.Fatalf("expected 2 moves, got %d", len(game.Moves()))
	}
	if err := Push(game, "Qxh7"); !errors.Is(err, ErrIllegalMove) {
		t.Fatalf("expected ErrIllegalMove, got %v", err)
	}
}
