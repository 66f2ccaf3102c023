package httpapi

import (
	"context"
	"errors"
	"strings"

	nchess "github.com/corentings/chess/v2"
	"github.com/valyala/fasthttp"

	"github.com/park285/repertoire/internal/chess"
	"github.com/park285/repertoire/internal/chess/position"
	"github.com/park285/repertoire/internal/chess/tree"
	"github.com/park285/repertoire/internal/domain"
	"github.com/park285/repertoire/internal/render"
	"github.com/park285/repertoire/internal/service/analysis"
	"github.com/park285/repertoire/pkg/repertoiredto"
)

func (s *Server) handleHealth(ctx *fasthttp.RequestCtx) {
	s.writeJSON(ctx, fasthttp.StatusOK, repertoiredto.HealthResponse{
		Status: "ok",
		Engine: s.cfg.Evaluator != nil,
		Cache:  s.cfg.CacheEnabled,
		Store:  s.cfg.Repo != nil,
		Book:   s.cfg.Book != nil,
	})
}

func (s *Server) handleMoves(ctx *fasthttp.RequestCtx) {
	game, err := gameFromQuery(ctx)
	if err != nil {
		s.writeError(ctx, err)
		return
	}
	s.writeJSON(ctx, fasthttp.StatusOK, toMovesResponse(position.Report(game)))
}

func (s *Server) handleExpand(ctx *fasthttp.RequestCtx) {
	args := ctx.QueryArgs()
	root, err := s.expand(ctx)
	if err != nil {
		s.writeError(ctx, err)
		return
	}
	resp := repertoiredto.ExpandResponse{
		Pattern:   string(args.Peek("pattern")),
		LineCount: root.LineCount(),
		Depth:     root.Depth(),
		Lines:     root.Flatten(),
	}
	if s.cfg.Classifier != nil {
		resp.Openings = toOpeningCounts(root.Summary())
	}
	if args.GetBool("tree") {
		resp.Tree = toTreeNode(root)
	}
	s.writeJSON(ctx, fasthttp.StatusOK, resp)
}

func (s *Server) expand(ctx *fasthttp.RequestCtx) (*tree.Node, error) {
	args := ctx.QueryArgs()
	maxLines := s.cfg.MaxLines
	if args.Has("max_lines") {
		n, err := args.GetUint("max_lines")
		if err != nil {
			return nil, badRequest("max_lines must be a non-negative integer")
		}
		if maxLines <= 0 || (n > 0 && n < maxLines) {
			maxLines = n
		}
	}

	opts := []tree.Option{
		tree.WithWildcard(s.cfg.Wildcard),
		tree.WithMaxLines(maxLines),
		tree.WithLogger(s.logger),
	}
	if w := strings.TrimSpace(string(args.Peek("wildcard"))); w != "" {
		opts = append(opts, tree.WithWildcard(w))
	}
	if fen := strings.TrimSpace(string(args.Peek("start_fen"))); fen != "" {
		opts = append(opts, tree.WithStartFEN(fen))
	}
	if s.cfg.Classifier != nil {
		opts = append(opts, tree.WithClassifier(s.cfg.Classifier))
	}
	return tree.Expand(string(args.Peek("pattern")), opts...)
}

func (s *Server) handleEvaluate(ctx *fasthttp.RequestCtx) {
	if s.cfg.Evaluator == nil {
		s.writeError(ctx, unavailable("engine"))
		return
	}
	game, err := gameFromQuery(ctx)
	if err != nil {
		s.writeError(ctx, err)
		return
	}
	limits, err := limitsFromQuery(ctx)
	if err != nil {
		s.writeError(ctx, err)
		return
	}

	evalCtx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
	defer cancel()
	result, err := s.cfg.Evaluator.Evaluate(evalCtx, game, limits)
	if err != nil {
		s.writeError(ctx, engineFailure(err))
		return
	}
	resp := repertoiredto.EvaluateResponse{FEN: result.FEN, Lines: make([]repertoiredto.Evaluation, 0, len(result.Lines))}
	for _, line := range result.Lines {
		resp.Lines = append(resp.Lines, toEvaluation(line))
	}
	s.writeJSON(ctx, fasthttp.StatusOK, resp)
}

func (s *Server) handleEvaluateTree(ctx *fasthttp.RequestCtx) {
	if s.cfg.Evaluator == nil {
		s.writeError(ctx, unavailable("engine"))
		return
	}
	limits, err := limitsFromQuery(ctx)
	if err != nil {
		s.writeError(ctx, err)
		return
	}
	root, err := s.expand(ctx)
	if err != nil {
		s.writeError(ctx, err)
		return
	}

	evalCtx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
	defer cancel()

	opts := analysis.TreeOptions{Logger: s.logger}
	var runID string
	if ctx.QueryArgs().GetBool("store") {
		if s.cfg.Repo == nil {
			s.writeError(ctx, unavailable("store"))
			return
		}
		lim := limits.WithDefaults(chess.DefaultLimits())
		run, err := s.cfg.Repo.CreateRun(evalCtx, domain.Run{
			Pattern:  string(ctx.QueryArgs().Peek("pattern")),
			StartFEN: root.FEN,
			Depth:    lim.Depth,
			MultiPV:  lim.MultiPV,
		})
		if err != nil {
			s.writeError(ctx, err)
			return
		}
		runID = run.ID
		opts.Sink = analysis.RunSink{Repo: s.cfg.Repo, RunID: run.ID}
	}

	results, err := analysis.EvaluateTree(evalCtx, s.cfg.Evaluator, root, limits, opts)
	if err != nil {
		s.writeError(ctx, engineFailure(err))
		return
	}
	resp := repertoiredto.EvaluateTreeResponse{RunID: runID, Lines: make([]repertoiredto.LineEvaluation, 0, len(results))}
	for _, r := range results {
		resp.Lines = append(resp.Lines, toLineEvaluation(r))
	}
	s.writeJSON(ctx, fasthttp.StatusOK, resp)
}

func (s *Server) handleBook(ctx *fasthttp.RequestCtx) {
	if s.cfg.Book == nil {
		s.writeError(ctx, unavailable("opening book"))
		return
	}
	game, err := position.FromFEN(string(ctx.QueryArgs().Peek("fen")))
	if err != nil {
		s.writeError(ctx, err)
		return
	}
	moves, err := s.cfg.Book.Moves(game.FEN())
	if err != nil {
		s.writeError(ctx, err)
		return
	}
	resp := repertoiredto.BookResponse{FEN: game.FEN(), Moves: make([]repertoiredto.BookMove, 0, len(moves))}
	for _, m := range moves {
		resp.Moves = append(resp.Moves, repertoiredto.BookMove{SAN: m.SAN, UCI: m.UCI, Weight: m.Weight})
	}
	s.writeJSON(ctx, fasthttp.StatusOK, resp)
}

func (s *Server) handleRender(ctx *fasthttp.RequestCtx) {
	args := ctx.QueryArgs()
	game, err := gameFromQuery(ctx)
	if err != nil {
		s.writeError(ctx, err)
		return
	}
	opts := render.Options{
		Header:  string(args.Peek("header")),
		Caption: string(args.Peek("caption")),
	}
	if lastMove := strings.TrimSpace(string(args.Peek("last_move"))); lastMove != "" {
		hl, err := render.ParseHighlight(lastMove)
		if err != nil {
			s.writeError(ctx, badRequest("%v", err))
			return
		}
		opts.Highlight = hl
	}
	if args.Has("size") {
		size, err := args.GetUint("size")
		if err != nil {
			s.writeError(ctx, badRequest("size must be a positive integer"))
			return
		}
		opts.SquareSize = size
	}

	renderCtx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
	defer cancel()
	png, err := render.NewRenderer().RenderPNG(renderCtx, game.Position().Board(), opts)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			s.writeError(ctx, err)
			return
		}
		s.writeError(ctx, badRequest("%v", err))
		return
	}
	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetContentType("image/png")
	ctx.SetBody(png)
}

// gameFromQuery loads the position named by ?fen= or ?pgn=, defaulting to the
// initial position.
func gameFromQuery(ctx *fasthttp.RequestCtx) (*nchess.Game, error) {
	args := ctx.QueryArgs()
	fen := strings.TrimSpace(string(args.Peek("fen")))
	pgn := strings.TrimSpace(string(args.Peek("pgn")))
	if fen != "" && pgn != "" {
		return nil, badRequest("fen and pgn are mutually exclusive")
	}
	if pgn != "" {
		return position.FromPGN(pgn)
	}
	return position.FromFEN(fen)
}

func limitsFromQuery(ctx *fasthttp.RequestCtx) (chess.Limits, error) {
	args := ctx.QueryArgs()
	var lim chess.Limits
	fields := []struct {
		key string
		dst *int
	}{
		{"depth", &lim.Depth},
		{"multipv", &lim.MultiPV},
		{"movetime_ms", &lim.MoveTimeMillis},
		{"nodes", &lim.Nodes},
	}
	for _, f := range fields {
		if !args.Has(f.key) {
			continue
		}
		v, err := args.GetUint(f.key)
		if err != nil {
			return chess.Limits{}, badRequest("%s must be a non-negative integer", f.key)
		}
		*f.dst = v
	}
	if err := lim.Validate(); err != nil {
		return chess.Limits{}, badRequest("%v", err)
	}
	return lim, nil
}
