package repertoiredto

// Evaluation scores are from White's point of view. Score is the display
// form, e.g. "+0.35" or "M-2".
type Evaluation struct {
	Score       string   `json:"score"`
	CentiPawns  *int     `json:"centipawns,omitempty"`
	MateIn      *int     `json:"mate_in,omitempty"`
	BestMove    string   `json:"best_move,omitempty"`
	BestMoveUCI string   `json:"best_move_uci,omitempty"`
	PV          []string `json:"pv,omitempty"`
	Depth       int      `json:"depth"`
}

type EvaluateResponse struct {
	FEN   string       `json:"fen"`
	Lines []Evaluation `json:"lines"`
}

type LineEvaluation struct {
	Line []string `json:"line"`
	FEN  string   `json:"fen"`
	Evaluation
}

type EvaluateTreeResponse struct {
	RunID string           `json:"run_id,omitempty"`
	Lines []LineEvaluation `json:"lines"`
}

type HealthResponse struct {
	Status string `json:"status"`
	Engine bool   `json:"engine"`
	Cache  bool   `json:"cache"`
	Store  bool   `json:"store"`
	Book   bool   `json:"book"`
}
