package chess

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	nchess "github.com/corentings/chess/v2"
	"go.uber.org/zap"

	"github.com/park285/repertoire/internal/chess/position"
	"github.com/park285/repertoire/internal/chess/uci"
)

var ErrNoCandidates = errors.New("engine returned no analysis")

// AnalysisCache stores finished analyses keyed by position and limits.
type AnalysisCache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

type EvaluatorConfig struct {
	Pool     *uci.Pool
	Cache    AnalysisCache
	CacheTTL time.Duration
	Defaults Limits
	Logger   *zap.Logger
}

type Evaluator struct {
	pool     *uci.Pool
	cache    AnalysisCache
	cacheTTL time.Duration
	defaults Limits
	logger   *zap.Logger
}

func NewEvaluator(cfg EvaluatorConfig) (*Evaluator, error) {
	if cfg.Pool == nil {
		return nil, fmt.Errorf("engine pool is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Evaluator{
		pool:     cfg.Pool,
		cache:    cfg.Cache,
		cacheTTL: cfg.CacheTTL,
		defaults: cfg.Defaults.WithDefaults(DefaultLimits()),
		logger:   logger,
	}, nil
}

// NewEngine builds an evaluator with default limits for the engine at binaryPath.
func NewEngine(binaryPath string) (*Evaluator, error) {
	pool, err := uci.NewPool(uci.PoolConfig{BinaryPath: binaryPath})
	if err != nil {
		return nil, err
	}
	return NewEvaluator(EvaluatorConfig{Pool: pool})
}

func (e *Evaluator) Defaults() Limits { return e.defaults }

func (e *Evaluator) Concurrency() int { return e.pool.Capacity() }

func (e *Evaluator) Close() error {
	return e.pool.Close()
}

func (e *Evaluator) EvaluateFEN(ctx context.Context, fen string, limits Limits) (*Analysis, error) {
	game, err := position.FromFEN(fen)
	if err != nil {
		return nil, err
	}
	return e.Evaluate(ctx, game, limits)
}

func (e *Evaluator) EvaluatePGN(ctx context.Context, pgn string, limits Limits) (*Analysis, error) {
	game, err := position.FromPGN(pgn)
	if err != nil {
		return nil, err
	}
	return e.Evaluate(ctx, game, limits)
}

// Evaluate analyses the current position of game. Positions without legal moves
// are still sent to the engine.
func (e *Evaluator) Evaluate(ctx context.Context, game *nchess.Game, limits Limits) (*Analysis, error) {
	lim := limits.WithDefaults(e.defaults)
	if err := lim.Validate(); err != nil {
		return nil, err
	}
	fen := game.FEN()

	key := CacheKey(fen, lim)
	if e.cache != nil {
		var cached Analysis
		hit, err := e.cache.Get(ctx, key, &cached)
		if err != nil {
			e.logger.Warn("eval_cache_error", zap.String("fen", fen), zap.Error(err))
		} else if hit {
			e.logger.Debug("eval_cache_hit", zap.String("fen", fen), zap.Int("depth", lim.Depth))
			return &cached, nil
		}
	}

	analysis, err := e.search(ctx, fen, lim)
	if err != nil {
		return nil, err
	}

	if e.cache != nil {
		if err := e.cache.Set(ctx, key, analysis, e.cacheTTL); err != nil {
			e.logger.Warn("eval_cache_store_error", zap.String("fen", fen), zap.Error(err))
		}
	}
	return analysis, nil
}

func (e *Evaluator) search(ctx context.Context, fen string, lim Limits) (*Analysis, error) {
	session, err := e.pool.Acquire(ctx, lim.options())
	if err != nil {
		return nil, fmt.Errorf("acquire engine: %w", err)
	}
	var releaseErr error
	defer func() {
		e.pool.Release(session, releaseErr)
	}()

	if err := session.NewGame(ctx); err != nil {
		releaseErr = err
		return nil, fmt.Errorf("engine new game: %w", err)
	}

	start := time.Now()
	resp, err := session.Search(ctx, uci.SearchRequest{FEN: fen, Limits: lim.search()})
	if err != nil {
		releaseErr = err
		return nil, fmt.Errorf("engine search: %w", err)
	}

	lines, err := convertCandidates(fen, resp)
	if err != nil {
		return nil, err
	}
	e.logger.Info("engine_search_done",
		zap.String("fen", fen),
		zap.Int("depth", lim.Depth),
		zap.Int("multipv", lim.MultiPV),
		zap.String("best", lines[0].BestMove),
		zap.String("eval", lines[0].EvaluationString()),
		zap.Duration("elapsed", time.Since(start)),
	)
	return &Analysis{FEN: fen, Lines: lines}, nil
}

func convertCandidates(fen string, resp uci.SearchResponse) ([]Result, error) {
	game, err := position.FromFEN(fen)
	if err != nil {
		return nil, err
	}
	blackToMove := game.Position().Turn() == nchess.Black

	lines := make([]Result, 0, len(resp.Candidates))
	for i, cand := range resp.Candidates {
		principal := cand.Principal
		if i == 0 && len(principal) == 0 && resp.BestMove != "" {
			principal = []string{resp.BestMove}
		}
		res := Result{
			CentiPawns: povScore(cand.CP, blackToMove),
			MateIn:     povScore(cand.MateIn, blackToMove),
			PV:         pvToSAN(game, principal),
			Depth:      cand.Depth,
		}
		if len(res.PV) > 0 {
			res.BestMove = res.PV[0]
			res.BestMoveUCI = strings.ToLower(principal[0])
		}
		lines = append(lines, res)
	}

	if len(lines) == 0 && resp.BestMove != "" {
		res := Result{PV: pvToSAN(game, []string{resp.BestMove})}
		if len(res.PV) > 0 {
			res.BestMove = res.PV[0]
			res.BestMoveUCI = strings.ToLower(resp.BestMove)
		}
		lines = append(lines, res)
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoCandidates, fen)
	}
	return lines, nil
}

func povScore(v *int, negate bool) *int {
	if v == nil {
		return nil
	}
	out := *v
	if negate {
		out = -out
	}
	return &out
}

func pvToSAN(start *nchess.Game, pv []string) []string {
	if len(pv) == 0 {
		return nil
	}
	game := start.Clone()
	algebraic := nchess.AlgebraicNotation{}

	out := make([]string, 0, len(pv))
	for _, mv := range pv {
		move, ok := position.FindUCI(game, mv)
		if !ok {
			break
		}
		san := algebraic.Encode(game.Position(), move)
		if err := game.Move(move, nil); err != nil {
			break
		}
		out = append(out, san)
	}
	return out
}

// CacheKey identifies an analysis by position, number of lines and the search
// limit (depth, movetime or nodes).
func CacheKey(fen string, lim Limits) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%d|%d|%d|%d", fen, lim.Depth, lim.MultiPV, lim.MoveTimeMillis, lim.Nodes)))
	return "eval:" + hex.EncodeToString(sum[:])
}
