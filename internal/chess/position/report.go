package position

import (
	"strings"

	nchess "github.com/corentings/chess/v2"
)

// MoveInfo describes one legal move of a position.
type MoveInfo struct {
	SAN         string `json:"san"`
	UCI         string `json:"uci"`
	IsCapture   bool   `json:"is_capture"`
	IsCastling  bool   `json:"is_castling"`
	IsEnPassant bool   `json:"is_en_passant"`
	GivesCheck  bool   `json:"gives_check"`
}

// PositionInfo is a snapshot of a position and all of its legal moves.
type PositionInfo struct {
	FEN         string     `json:"fen"`
	Turn        string     `json:"turn"`
	IsCheck     bool       `json:"is_check"`
	IsCheckmate bool       `json:"is_checkmate"`
	IsStalemate bool       `json:"is_stalemate"`
	LegalMoves  []MoveInfo `json:"legal_moves"`
}

func (p PositionInfo) MoveCount() int { return len(p.LegalMoves) }

// SANs lists the legal moves in SAN, in generation order.
func (p PositionInfo) SANs() []string {
	out := make([]string, 0, len(p.LegalMoves))
	for _, m := range p.LegalMoves {
		out = append(out, m.SAN)
	}
	return out
}

// Report collects the legal moves and status flags of the game's current position.
func Report(game *nchess.Game) PositionInfo {
	pos := game.Position()
	valid := pos.ValidMoves()
	san := nchess.AlgebraicNotation{}
	uci := nchess.UCINotation{}

	moves := make([]MoveInfo, 0, len(valid))
	for i := range valid {
		mv := &valid[i]
		moves = append(moves, MoveInfo{
			SAN:         san.Encode(pos, mv),
			UCI:         strings.ToLower(uci.Encode(pos, mv)),
			IsCapture:   mv.HasTag(nchess.Capture) || mv.HasTag(nchess.EnPassant),
			IsCastling:  mv.HasTag(nchess.KingSideCastle) || mv.HasTag(nchess.QueenSideCastle),
			IsEnPassant: mv.HasTag(nchess.EnPassant),
			GivesCheck:  mv.HasTag(nchess.Check),
		})
	}

	inCheck := InCheck(game)
	mate := pos.Status() == nchess.Checkmate || (len(valid) == 0 && inCheck)
	return PositionInfo{
		FEN:         game.FEN(),
		Turn:        Turn(pos),
		IsCheck:     inCheck || mate,
		IsCheckmate: mate,
		IsStalemate: len(valid) == 0 && !mate,
		LegalMoves:  moves,
	}
}

// ReportFEN reports the legal moves of a FEN position.
func ReportFEN(fen string) (PositionInfo, error) {
	game, err := FromFEN(fen)
	if err != nil {
		return PositionInfo{}, err
	}
	return Report(game), nil
}

// ReportPGN reports the legal moves of the final position of a PGN game.
func ReportPGN(pgn string) (PositionInfo, error) {
	game, err := FromPGN(pgn)
	if err != nil {
		return PositionInfo{}, err
	}
	return Report(game), nil
}
