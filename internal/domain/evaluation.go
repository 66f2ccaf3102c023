package domain

import (
	"time"

	"github.com/park285/repertoire/internal/chess"
)

// Run groups the evaluations produced for one expanded pattern.
type Run struct {
	ID        string
	Pattern   string
	StartFEN  string
	Depth     int
	MultiPV   int
	CreatedAt time.Time
}

// NodeEvaluation is the engine verdict for the position at the end of Line.
// Scores are from White's point of view.
type NodeEvaluation struct {
	Line       []string      `json:"line"`
	FEN        string        `json:"fen"`
	CentiPawns *int          `json:"centipawns,omitempty"`
	MateIn     *int          `json:"mate_in,omitempty"`
	BestMove   string        `json:"best_move"`
	PV         []string      `json:"pv,omitempty"`
	Depth      int           `json:"depth"`
	Latency    time.Duration `json:"-"`
}

func (e NodeEvaluation) IsMate() bool { return e.MateIn != nil }

func (e NodeEvaluation) EvaluationString() string {
	return chess.FormatScore(e.CentiPawns, e.MateIn)
}

// FromResult copies the best line of an engine result onto line and fen.
func FromResult(line []string, fen string, r chess.Result) NodeEvaluation {
	return NodeEvaluation{
		Line:       append([]string{}, line...),
		FEN:        fen,
		CentiPawns: r.CentiPawns,
		MateIn:     r.MateIn,
		BestMove:   r.BestMove,
		PV:         r.PV,
		Depth:      r.Depth,
	}
}
