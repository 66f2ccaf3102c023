package chess

import "fmt"

// Result is one analysed line. Scores are from White's point of view; at most
// one of CentiPawns and MateIn is set.
type Result struct {
	CentiPawns  *int     `json:"centipawns,omitempty"`
	MateIn      *int     `json:"mate_in,omitempty"`
	BestMove    string   `json:"best_move"`
	BestMoveUCI string   `json:"best_move_uci"`
	PV          []string `json:"pv"`
	Depth       int      `json:"depth"`
}

func (r Result) IsMate() bool { return r.MateIn != nil }

func (r Result) EvaluationString() string {
	return FormatScore(r.CentiPawns, r.MateIn)
}

// FormatScore renders "M3" / "M-2" for mates, "+0.35" for centipawns and "?"
// when neither is known.
func FormatScore(cp, mate *int) string {
	switch {
	case mate != nil:
		return fmt.Sprintf("M%d", *mate)
	case cp != nil:
		return fmt.Sprintf("%+.2f", float64(*cp)/100)
	default:
		return "?"
	}
}

// Analysis holds every line returned for one position, best first.
type Analysis struct {
	FEN   string   `json:"fen"`
	Lines []Result `json:"lines"`
}

func (a *Analysis) Best() Result {
	if a == nil || len(a.Lines) == 0 {
		return Result{}
	}
	return a.Lines[0]
}
