package openingbook

import (
	"bytes"
	"fmt"
	"os"
	"sort"
	"strings"

	chesslib "github.com/corentings/chess/v2"

	"github.com/park285/repertoire/internal/chess/position"
	"github.com/park285/repertoire/internal/chess/tree"
)

type BookMove struct {
	UCI    string `json:"uci"`
	SAN    string `json:"san"`
	Weight uint16 `json:"weight"`
}

type WalkOptions struct {
	MaxPly    int
	MinWeight uint16
}

// Book answers polyglot lookups for arbitrary positions.
type Book struct {
	polyglot *chesslib.PolyglotBook
}

func LoadFromPath(bookPath string) (*Book, error) {
	if strings.TrimSpace(bookPath) == "" {
		return nil, fmt.Errorf("polyglot book path required")
	}
	raw, err := os.ReadFile(bookPath)
	if err != nil {
		return nil, fmt.Errorf("open polyglot book %q: %w", bookPath, err)
	}
	book, err := LoadFromBytes(raw)
	if err != nil {
		return nil, fmt.Errorf("load polyglot book %q: %w", bookPath, err)
	}
	return book, nil
}

func LoadFromBytes(raw []byte) (*Book, error) {
	polyglot, err := chesslib.LoadFromReader(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	return &Book{polyglot: polyglot}, nil
}

// ResolveBookPath returns POLYGLOT_BOOK_PATH when set, or the first default
// location that exists, or "" when no book is available.
func ResolveBookPath() (string, error) {
	if envPath := strings.TrimSpace(os.Getenv("POLYGLOT_BOOK_PATH")); envPath != "" {
		if exists(envPath) {
			return envPath, nil
		}
		return "", fmt.Errorf("env POLYGLOT_BOOK_PATH points to missing file: %s", envPath)
	}
	for _, candidate := range defaultBookPaths() {
		if exists(candidate) {
			return candidate, nil
		}
	}
	return "", nil
}

func defaultBookPaths() []string {
	return []string{
		"resources/opening/book.bin",
		"book.bin",
	}
}

func exists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

// Moves lists the legal book moves of fen, heaviest first.
func (b *Book) Moves(fen string) ([]BookMove, error) {
	game, err := position.FromFEN(fen)
	if err != nil {
		return nil, err
	}
	return b.movesFor(game, 0)
}

func (b *Book) movesFor(game *chesslib.Game, minWeight uint16) ([]BookMove, error) {
	hasher := chesslib.NewZobristHasher()
	hashStr, err := hasher.HashPosition(game.FEN())
	if err != nil {
		return nil, fmt.Errorf("compute polyglot hash: %w", err)
	}
	entries := b.polyglot.FindMoves(chesslib.ZobristHashToUint64(hashStr))

	algebraic := chesslib.AlgebraicNotation{}
	out := make([]BookMove, 0, len(entries))
	seen := make(map[string]bool, len(entries))
	for _, entry := range entries {
		if entry.Weight < minWeight {
			continue
		}
		decoded := chesslib.DecodeMove(entry.Move).ToMove()
		move, ok := legalBookMove(game, decoded.String())
		if !ok {
			continue
		}
		uci := strings.ToLower(chesslib.UCINotation{}.Encode(game.Position(), move))
		if seen[uci] {
			continue
		}
		seen[uci] = true
		out = append(out, BookMove{
			UCI:    uci,
			SAN:    algebraic.Encode(game.Position(), move),
			Weight: entry.Weight,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Weight > out[j].Weight })
	return out, nil
}

// polyglot writes castling as the king capturing its own rook.
var polyglotCastling = map[string]string{
	"e1h1": "e1g1",
	"e1a1": "e1c1",
	"e8h8": "e8g8",
	"e8a8": "e8c8",
}

func legalBookMove(game *chesslib.Game, uci string) (*chesslib.Move, bool) {
	if move, ok := position.FindUCI(game, uci); ok {
		return move, true
	}
	if castle, ok := polyglotCastling[uci]; ok {
		return position.FindUCI(game, castle)
	}
	return nil, false
}

// Walk builds an opening tree from startFEN that follows every book move of at
// least MinWeight, stopping at MaxPly or when the book runs out.
func (b *Book) Walk(startFEN string, opts WalkOptions) (*tree.Node, error) {
	maxPly := opts.MaxPly
	if maxPly <= 0 {
		maxPly = 12
	}
	minWeight := opts.MinWeight
	if minWeight == 0 {
		minWeight = 1
	}

	game, err := position.FromFEN(startFEN)
	if err != nil {
		return nil, err
	}

	var walk func(game *chesslib.Game, node *tree.Node, ply int) error
	walk = func(game *chesslib.Game, node *tree.Node, ply int) error {
		if ply >= maxPly {
			return nil
		}
		moves, err := b.movesFor(game, minWeight)
		if err != nil {
			return err
		}
		for _, mv := range moves {
			child := game.Clone()
			if err := child.PushNotationMove(mv.UCI, chesslib.UCINotation{}, nil); err != nil {
				return fmt.Errorf("apply move %q: %w", mv.UCI, err)
			}
			next := &tree.Node{Move: mv.SAN, FEN: child.FEN()}
			node.Children = append(node.Children, next)
			if err := walk(child, next, ply+1); err != nil {
				return err
			}
		}
		return nil
	}

	root := &tree.Node{FEN: game.FEN()}
	if err := walk(game, root, 0); err != nil {
		return nil, err
	}
	return root, nil
}
