package position

import (
	"errors"
	"fmt"
	"strings"

	nchess "github.com/corentings/chess/v2"
)

var (
	ErrInvalidFEN  = errors.New("invalid FEN")
	ErrInvalidPGN  = errors.New("invalid PGN")
	ErrIllegalMove = errors.New("illegal move")
)

// StartFEN is the standard initial position.
const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// FromFEN loads a game whose current position is fen. "startpos" and the empty
// string both mean the initial position.
func FromFEN(fen string) (*nchess.Game, error) {
	fen = strings.TrimSpace(fen)
	if fen == "" || fen == "startpos" {
		return nchess.NewGame(), nil
	}
	option, err := nchess.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidFEN, fen, err)
	}
	return nchess.NewGame(option), nil
}

// FromPGN loads the final position of a PGN game. Bare movetext such as
// "1. e4 e5 2. Nf3" is accepted as well as full PGN with tag pairs.
func FromPGN(pgn string) (*nchess.Game, error) {
	pgn = strings.TrimSpace(pgn)
	if pgn == "" {
		return nchess.NewGame(), nil
	}
	if !strings.HasPrefix(pgn, "[") {
		pgn = "[Result \"*\"]\n\n" + pgn
		if !hasResult(pgn) {
			pgn += " *"
		}
	}

	option, err := nchess.PGN(strings.NewReader(pgn))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPGN, err)
	}
	return nchess.NewGame(option), nil
}

func hasResult(movetext string) bool {
	for _, r := range []string{"*", "1-0", "0-1", "1/2-1/2"} {
		if strings.HasSuffix(movetext, r) {
			return true
		}
	}
	return false
}

// FromSAN replays SAN moves from the initial position.
func FromSAN(moves []string) (*nchess.Game, error) {
	game := nchess.NewGame()
	for _, mv := range moves {
		if err := Push(game, mv); err != nil {
			return nil, err
		}
	}
	return game, nil
}

// Push applies a move written in SAN, falling back to UCI coordinates.
func Push(game *nchess.Game, move string) error {
	move = strings.TrimSpace(move)
	if move == "" {
		return fmt.Errorf("%w: empty move", ErrIllegalMove)
	}
	if err := game.PushNotationMove(move, nchess.AlgebraicNotation{}, nil); err == nil {
		return nil
	}
	if err := game.PushNotationMove(strings.ToLower(move), nchess.UCINotation{}, nil); err == nil {
		return nil
	}
	return fmt.Errorf("%w '%s' in position: %s", ErrIllegalMove, move, game.FEN())
}

// FindUCI returns the legal move written as uci ("e2e4", "e7e8q"), if any.
func FindUCI(game *nchess.Game, uci string) (*nchess.Move, bool) {
	uci = strings.ToLower(strings.TrimSpace(uci))
	pos := game.Position()
	notation := nchess.UCINotation{}
	valid := pos.ValidMoves()
	for i := range valid {
		if strings.ToLower(notation.Encode(pos, &valid[i])) == uci {
			return &valid[i], true
		}
	}
	return nil, false
}

// Turn returns "white" or "black" for the side to move.
func Turn(pos *nchess.Position) string {
	if pos.Turn() == nchess.Black {
		return "black"
	}
	return "white"
}

// InCheck reports whether the side to move is in check. The move that led to
// the position is trusted when present; otherwise the opponent moves next on a
// copy without its own king, so pinned pieces still count, and its generated
// moves are scanned for one landing on the king square.
func InCheck(game *nchess.Game) bool {
	moves := game.Moves()
	if n := len(moves); n > 0 && moves[n-1].HasTag(nchess.Check) {
		return true
	}
	if game.Method() == nchess.Checkmate {
		return true
	}
	pos := game.Position()
	king, ok := kingSquare(pos.Board(), pos.Turn())
	if !ok {
		return false
	}
	option, err := nchess.FEN(attackerView(pos))
	if err != nil {
		return false
	}
	opponent := nchess.NewGame(option)
	for _, mv := range opponent.ValidMoves() {
		if mv.S2() == king {
			return true
		}
	}
	return false
}

func kingSquare(board *nchess.Board, color nchess.Color) (nchess.Square, bool) {
	for sq, piece := range board.SquareMap() {
		if piece.Type() == nchess.King && piece.Color() == color {
			return sq, true
		}
	}
	return nchess.NoSquare, false
}

// attackerView returns the FEN of pos with the other side to move and that
// side's king removed.
func attackerView(pos *nchess.Position) string {
	board := pos.Board().SquareMap()
	attacker := pos.Turn().Other()
	for sq, piece := range board {
		if piece.Type() == nchess.King && piece.Color() == attacker {
			delete(board, sq)
		}
	}
	turn := "w"
	if attacker == nchess.Black {
		turn = "b"
	}
	return nchess.NewBoard(board).String() + " " + turn + " - - 0 1"
}
