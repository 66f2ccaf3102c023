package analysis

import (
	"context"
	"fmt"
	"strings"
	"time"

	nchess "github.com/corentings/chess/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/park285/repertoire/internal/chess"
	"github.com/park285/repertoire/internal/chess/position"
	"github.com/park285/repertoire/internal/chess/tree"
	"github.com/park285/repertoire/internal/domain"
)

type Evaluator interface {
	Evaluate(ctx context.Context, game *nchess.Game, limits chess.Limits) (*chess.Analysis, error)
	Concurrency() int
}

// Sink receives every finished evaluation of a tree run.
type Sink interface {
	Save(ctx context.Context, ev domain.NodeEvaluation) error
}

type TreeOptions struct {
	// Concurrency caps parallel evaluations; zero uses the evaluator's.
	Concurrency int
	Sink        Sink
	Logger      *zap.Logger
}

// EvaluateLine replays SAN moves from the starting position and evaluates the
// final position.
func EvaluateLine(ctx context.Context, ev Evaluator, moves []string, limits chess.Limits) (domain.NodeEvaluation, error) {
	game, err := position.FromSAN(moves)
	if err != nil {
		return domain.NodeEvaluation{}, err
	}
	return evaluate(ctx, ev, game, moves, limits)
}

// EvaluateNode evaluates node.FEN. The reported line holds only the node's own
// move, or nothing for the root.
func EvaluateNode(ctx context.Context, ev Evaluator, node *tree.Node, limits chess.Limits) (domain.NodeEvaluation, error) {
	if node == nil {
		return domain.NodeEvaluation{}, fmt.Errorf("nil node")
	}
	line := []string{}
	if node.Move != "" {
		line = []string{node.Move}
	}
	return evaluateAt(ctx, ev, node.FEN, line, limits)
}

// EvaluateLeaf evaluates a leaf and reports its full line.
func EvaluateLeaf(ctx context.Context, ev Evaluator, leaf tree.Leaf, limits chess.Limits) (domain.NodeEvaluation, error) {
	if leaf.Node == nil {
		return domain.NodeEvaluation{}, fmt.Errorf("nil leaf node")
	}
	return evaluateAt(ctx, ev, leaf.Node.FEN, leaf.Line, limits)
}

// EvaluateTree evaluates every leaf of root. Results come back in leaf order;
// the first failure cancels the remaining work.
func EvaluateTree(ctx context.Context, ev Evaluator, root *tree.Node, limits chess.Limits, opts TreeOptions) ([]domain.NodeEvaluation, error) {
	if root == nil {
		return nil, fmt.Errorf("nil tree")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	limit := opts.Concurrency
	if limit <= 0 {
		limit = ev.Concurrency()
	}
	if limit <= 0 {
		limit = 1
	}

	leaves := root.Leaves()
	results := make([]domain.NodeEvaluation, len(leaves))
	started := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, leaf := range leaves {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := EvaluateLeaf(gctx, ev, leaf, limits)
			if err != nil {
				return fmt.Errorf("evaluate line %q: %w", strings.Join(leaf.Line, " "), err)
			}
			results[i] = res
			if opts.Sink != nil {
				if err := opts.Sink.Save(gctx, res); err != nil {
					return fmt.Errorf("save line %q: %w", strings.Join(leaf.Line, " "), err)
				}
			}
			return nil
		})
	}
	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		logger.Warn("tree_eval_failed", zap.Int("lines", len(leaves)), zap.Error(err))
		return nil, err
	}
	logger.Info("tree_eval_done",
		zap.Int("lines", len(leaves)),
		zap.Int("concurrency", limit),
		zap.Duration("elapsed", time.Since(started)),
	)
	return results, nil
}

func evaluateAt(ctx context.Context, ev Evaluator, fen string, line []string, limits chess.Limits) (domain.NodeEvaluation, error) {
	game, err := position.FromFEN(fen)
	if err != nil {
		return domain.NodeEvaluation{}, err
	}
	return evaluate(ctx, ev, game, line, limits)
}

func evaluate(ctx context.Context, ev Evaluator, game *nchess.Game, line []string, limits chess.Limits) (domain.NodeEvaluation, error) {
	started := time.Now()
	res, err := ev.Evaluate(ctx, game, limits)
	if err != nil {
		return domain.NodeEvaluation{}, err
	}
	out := domain.FromResult(line, game.FEN(), res.Best())
	out.Latency = time.Since(started)
	return out, nil
}
