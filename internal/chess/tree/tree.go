package tree

import (
	"errors"
	"fmt"
	"time"

	nchess "github.com/corentings/chess/v2"
	"go.uber.org/zap"

	"github.com/park285/repertoire/internal/chess/movetext"
	"github.com/park285/repertoire/internal/chess/position"
)

var ErrTooManyLines = errors.New("too many lines")

// Node is one position of an opening tree. The root has an empty Move.
type Node struct {
	Move     string  `json:"move,omitempty"`
	FEN      string  `json:"fen"`
	ECO      string  `json:"eco,omitempty"`
	Opening  string  `json:"opening,omitempty"`
	Children []*Node `json:"children,omitempty"`
}

// Classifier names the opening reached by a game, if it knows one.
type Classifier interface {
	Classify(game *nchess.Game) (code, title string, ok bool)
}

type options struct {
	wildcard   string
	startFEN   string
	maxLines   int
	classifier Classifier
	logger     *zap.Logger
}

type Option func(*options)

func WithWildcard(symbol string) Option {
	return func(o *options) {
		if symbol != "" {
			o.wildcard = symbol
		}
	}
}

func WithStartFEN(fen string) Option {
	return func(o *options) { o.startFEN = fen }
}

// WithMaxLines aborts expansion with ErrTooManyLines once more than n leaves exist.
// Zero or negative disables the limit.
func WithMaxLines(n int) Option {
	return func(o *options) { o.maxLines = n }
}

func WithClassifier(c Classifier) Option {
	return func(o *options) { o.classifier = c }
}

func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Expand builds the tree of every line matching pattern, branching over all legal
// moves at each wildcard ply.
func Expand(pattern string, opts ...Option) (*Node, error) {
	o := options{wildcard: movetext.DefaultWildcard, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	game, err := position.FromFEN(o.startFEN)
	if err != nil {
		return nil, err
	}
	tokens := movetext.Clean(movetext.Parse(pattern, o.wildcard))

	// ECO lines are move sequences from the initial position.
	if game.FEN() != position.StartFEN {
		o.classifier = nil
	}

	start := time.Now()
	b := &builder{opts: o}
	root := b.node("", game)
	if err := b.expand(root, game, tokens); err != nil {
		return nil, err
	}
	o.logger.Debug("tree_expand",
		zap.String("pattern", pattern),
		zap.Int("plies", len(tokens)),
		zap.Int("lines", b.leaves),
		zap.Duration("elapsed", time.Since(start)),
	)
	return root, nil
}

type builder struct {
	opts   options
	leaves int
}

func (b *builder) node(move string, game *nchess.Game) *Node {
	n := &Node{Move: move, FEN: game.FEN()}
	if b.opts.classifier != nil && move != "" {
		if code, title, ok := b.opts.classifier.Classify(game); ok {
			n.ECO = code
			n.Opening = title
		}
	}
	return n
}

func (b *builder) leaf() error {
	b.leaves++
	if b.opts.maxLines > 0 && b.leaves > b.opts.maxLines {
		return fmt.Errorf("%w: more than %d lines", ErrTooManyLines, b.opts.maxLines)
	}
	return nil
}

func (b *builder) expand(parent *Node, game *nchess.Game, tokens []movetext.Token) error {
	if len(tokens) == 0 {
		return b.leaf()
	}
	tok, rest := tokens[0], tokens[1:]

	if !tok.Wildcard {
		child := game.Clone()
		if err := position.Push(child, tok.Move); err != nil {
			return fmt.Errorf("%w: the move is not legal in this position", err)
		}
		n := b.node(tok.Move, child)
		parent.Children = []*Node{n}
		return b.expand(n, child, rest)
	}

	pos := game.Position()
	valid := game.ValidMoves()
	if len(valid) == 0 {
		return b.leaf()
	}
	san := nchess.AlgebraicNotation{}
	parent.Children = make([]*Node, 0, len(valid))
	for i := range valid {
		mv := &valid[i]
		text := san.Encode(pos, mv)
		child := game.Clone()
		if err := child.Move(mv, nil); err != nil {
			return fmt.Errorf("apply move %q: %w", text, err)
		}
		n := b.node(text, child)
		parent.Children = append(parent.Children, n)
		if err := b.expand(n, child, rest); err != nil {
			return err
		}
	}
	return nil
}

// Leaf is one complete line of a tree together with the node it ends on.
type Leaf struct {
	Line []string
	Node *Node
}

// Leaves lists every root-to-leaf line in depth-first order. A tree without
// children has a single leaf with an empty line.
func (n *Node) Leaves() []Leaf {
	var out []Leaf
	var walk func(node *Node, line []string)
	walk = func(node *Node, line []string) {
		if node.Move != "" {
			line = append(line[:len(line):len(line)], node.Move)
		}
		if len(node.Children) == 0 {
			out = append(out, Leaf{Line: append([]string{}, line...), Node: node})
			return
		}
		for _, child := range node.Children {
			walk(child, line)
		}
	}
	walk(n, nil)
	return out
}

// Flatten returns every line as a slice of moves, excluding the root.
func (n *Node) Flatten() [][]string {
	leaves := n.Leaves()
	lines := make([][]string, 0, len(leaves))
	for _, l := range leaves {
		lines = append(lines, l.Line)
	}
	return lines
}

func (n *Node) LineCount() int {
	if len(n.Children) == 0 {
		return 1
	}
	total := 0
	for _, child := range n.Children {
		total += child.LineCount()
	}
	return total
}

func (n *Node) Depth() int {
	best := 0
	for _, child := range n.Children {
		if d := child.Depth() + 1; d > best {
			best = d
		}
	}
	return best
}

// Walk visits nodes depth-first, parents before children. Returning false from
// fn skips the node's subtree.
func (n *Node) Walk(fn func(node *Node, ply int) bool) {
	var visit func(node *Node, ply int)
	visit = func(node *Node, ply int) {
		if !fn(node, ply) {
			return
		}
		for _, child := range node.Children {
			visit(child, ply+1)
		}
	}
	visit(n, 0)
}
