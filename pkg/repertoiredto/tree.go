package repertoiredto

// TreeNode mirrors one node of an expanded opening tree.
type TreeNode struct {
	Move     string      `json:"move,omitempty"`
	FEN      string      `json:"fen"`
	ECO      string      `json:"eco,omitempty"`
	Opening  string      `json:"opening,omitempty"`
	Children []*TreeNode `json:"children,omitempty"`
}

type OpeningCount struct {
	ECO   string `json:"eco"`
	Name  string `json:"name"`
	Lines int    `json:"lines"`
}

type ExpandResponse struct {
	Pattern   string         `json:"pattern"`
	LineCount int            `json:"line_count"`
	Depth     int            `json:"depth"`
	Lines     [][]string     `json:"lines"`
	Openings  []OpeningCount `json:"openings,omitempty"`
	Tree      *TreeNode      `json:"tree,omitempty"`
}
