package repertoiredto

type Move struct {
	SAN         string `json:"san"`
	UCI         string `json:"uci"`
	IsCapture   bool   `json:"is_capture,omitempty"`
	IsCastling  bool   `json:"is_castling,omitempty"`
	IsEnPassant bool   `json:"is_en_passant,omitempty"`
	GivesCheck  bool   `json:"gives_check,omitempty"`
}

type MovesResponse struct {
	FEN         string `json:"fen"`
	Turn        string `json:"turn"`
	IsCheck     bool   `json:"is_check"`
	IsCheckmate bool   `json:"is_checkmate"`
	IsStalemate bool   `json:"is_stalemate"`
	MoveCount   int    `json:"move_count"`
	Moves       []Move `json:"moves"`
}

type BookMove struct {
	SAN    string `json:"san"`
	UCI    string `json:"uci"`
	Weight uint16 `json:"weight"`
}

type BookResponse struct {
	FEN   string     `json:"fen"`
	Moves []BookMove `json:"moves"`
}
