package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	nchess "github.com/corentings/chess/v2"
	"go.uber.org/zap"

	"github.com/park285/repertoire/internal/builder"
	"github.com/park285/repertoire/internal/chess"
	"github.com/park285/repertoire/internal/chess/movetext"
	"github.com/park285/repertoire/internal/chess/openingbook"
	"github.com/park285/repertoire/internal/chess/position"
	"github.com/park285/repertoire/internal/chess/tree"
	"github.com/park285/repertoire/internal/domain"
	"github.com/park285/repertoire/internal/httpapi"
	"github.com/park285/repertoire/internal/render"
	"github.com/park285/repertoire/internal/repertoire"
	"github.com/park285/repertoire/internal/service/analysis"
)

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	return fs
}

type positionFlags struct {
	fen *string
	pgn *string
}

func addPositionFlags(fs *flag.FlagSet) positionFlags {
	return positionFlags{
		fen: fs.String("fen", "", "position in FEN (default: initial position)"),
		pgn: fs.String("pgn", "", "game in PGN or bare movetext; its final position is used"),
	}
}

func (p positionFlags) game() (*nchess.Game, error) {
	if *p.fen != "" && *p.pgn != "" {
		return nil, fmt.Errorf("-fen and -pgn are mutually exclusive")
	}
	if *p.pgn != "" {
		return position.FromPGN(*p.pgn)
	}
	return position.FromFEN(*p.fen)
}

func addLimitFlags(fs *flag.FlagSet) *chess.Limits {
	lim := &chess.Limits{}
	fs.IntVar(&lim.Depth, "depth", 0, "search depth (default ENGINE_DEPTH)")
	fs.IntVar(&lim.MultiPV, "multipv", 0, "number of lines to report (default ENGINE_MULTIPV)")
	fs.IntVar(&lim.MoveTimeMillis, "movetime", 0, "search time in milliseconds instead of a depth")
	return lim
}

type expandFlags struct {
	pattern  *string
	wildcard *string
	startFEN *string
	maxLines *int
	file     *string
	line     *string
}

func addExpandFlags(fs *flag.FlagSet) expandFlags {
	return expandFlags{
		pattern:  fs.String("pattern", "", `move pattern, e.g. "1. e4 __ 2. Nf3"`),
		wildcard: fs.String("wildcard", "", "wildcard token (default WILDCARD_SYMBOL)"),
		startFEN: fs.String("start-fen", "", "expand from this position instead of the initial one"),
		maxLines: fs.Int("max-lines", 0, "abort when the tree exceeds this many lines (default TREE_MAX_LINES)"),
		file:     fs.String("file", "", "repertoire YAML file"),
		line:     fs.String("line", "", "name of the repertoire line to use with -file"),
	}
}

type namedTree struct {
	name string
	root *tree.Node
}

// trees expands either -pattern or the repertoire file entries.
func (a *app) trees(f expandFlags, extra ...tree.Option) ([]namedTree, error) {
	opts := []tree.Option{
		tree.WithWildcard(a.cfg.WildcardSymbol),
		tree.WithMaxLines(a.cfg.TreeMaxLines),
		tree.WithLogger(a.logger),
	}
	if *f.wildcard != "" {
		opts = append(opts, tree.WithWildcard(*f.wildcard))
	}
	if *f.maxLines > 0 {
		opts = append(opts, tree.WithMaxLines(*f.maxLines))
	}
	if *f.startFEN != "" {
		opts = append(opts, tree.WithStartFEN(*f.startFEN))
	}
	opts = append(opts, extra...)

	if *f.file == "" {
		if *f.line != "" {
			return nil, fmt.Errorf("-line requires -file")
		}
		root, err := tree.Expand(*f.pattern, opts...)
		if err != nil {
			return nil, err
		}
		return []namedTree{{name: *f.pattern, root: root}}, nil
	}

	if *f.pattern != "" {
		return nil, fmt.Errorf("-pattern and -file are mutually exclusive")
	}
	file, err := repertoire.Load(*f.file)
	if err != nil {
		return nil, err
	}
	if *f.line != "" {
		entry, err := file.Find(*f.line)
		if err != nil {
			return nil, err
		}
		root, err := file.Expand(entry, opts...)
		if err != nil {
			return nil, err
		}
		return []namedTree{{name: entry.Name, root: root}}, nil
	}
	all, err := file.ExpandAll(opts...)
	if err != nil {
		return nil, err
	}
	out := make([]namedTree, 0, len(all))
	for _, e := range all {
		out = append(out, namedTree{name: e.Entry.Name, root: e.Root})
	}
	return out, nil
}

func cmdMoves(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("moves")
	pos := addPositionFlags(fs)
	asJSON := fs.Bool("json", false, "print JSON")
	server := fs.String("server", "", "base URL of a running server to ask instead")
	if err := fs.Parse(args); err != nil {
		return err
	}
	deps, err := a.build(ctx, builder.Needs{})
	if err != nil {
		return err
	}

	var view movesView
	if *server != "" {
		resp, err := httpapi.NewClient(*server).Moves(ctx, httpapi.MovesQuery{FEN: *pos.fen, PGN: *pos.pgn})
		if err != nil {
			return err
		}
		if *asJSON {
			return writeJSON(a.out, resp)
		}
		view = movesViewFromDTO(resp)
	} else {
		game, err := pos.game()
		if err != nil {
			return err
		}
		info := position.Report(game)
		if *asJSON {
			return writeJSON(a.out, info)
		}
		view = movesViewFromInfo(info)
	}
	return printMoves(a.out, deps.Messages, view)
}

func cmdExpand(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("expand")
	ef := addExpandFlags(fs)
	openings := fs.Bool("openings", false, "classify nodes and print an ECO summary")
	asJSON := fs.Bool("json", false, "print the tree as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	deps, err := a.build(ctx, builder.Needs{})
	if err != nil {
		return err
	}

	var extra []tree.Option
	if *openings {
		extra = append(extra, tree.WithClassifier(deps.Classifier))
	}
	trees, err := a.trees(ef, extra...)
	if err != nil {
		return err
	}
	if *asJSON {
		if len(trees) == 1 {
			return writeJSON(a.out, trees[0].root)
		}
		byName := make(map[string]*tree.Node, len(trees))
		for _, t := range trees {
			byName[t.name] = t.root
		}
		return writeJSON(a.out, byName)
	}
	for _, t := range trees {
		if len(trees) > 1 {
			fmt.Fprintf(a.out, "# %s\n", t.name)
		}
		if err := printTree(a.out, deps.Messages, t.root, *openings); err != nil {
			return err
		}
	}
	return nil
}

func cmdEval(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("eval")
	pos := addPositionFlags(fs)
	lim := addLimitFlags(fs)
	asJSON := fs.Bool("json", false, "print JSON")
	server := fs.String("server", "", "base URL of a running server to ask instead")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *server != "" {
		deps, err := a.build(ctx, builder.Needs{})
		if err != nil {
			return err
		}
		resp, err := httpapi.NewClient(*server).Evaluate(ctx, httpapi.EvaluateQuery{
			FEN: *pos.fen, PGN: *pos.pgn,
			Depth: lim.Depth, MultiPV: lim.MultiPV, MoveTimeMillis: lim.MoveTimeMillis,
		})
		if err != nil {
			return err
		}
		if *asJSON {
			return writeJSON(a.out, resp)
		}
		for i, l := range resp.Lines {
			if err := printEval(a.out, deps.Messages, evalView{
				Line: pvLabel(i), Score: l.Score, Depth: l.Depth, BestMove: l.BestMove, PV: strings.Join(l.PV, " "),
			}); err != nil {
				return err
			}
		}
		return nil
	}

	game, err := pos.game()
	if err != nil {
		return err
	}
	deps, err := a.build(ctx, builder.Needs{Engine: true})
	if err != nil {
		return err
	}
	result, err := deps.Evaluator.Evaluate(ctx, game, *lim)
	if err != nil {
		return err
	}
	if *asJSON {
		return writeJSON(a.out, result)
	}
	for i, l := range result.Lines {
		if err := printEval(a.out, deps.Messages, evalView{
			Line: pvLabel(i), Score: l.EvaluationString(), Depth: l.Depth, BestMove: l.BestMove, PV: strings.Join(l.PV, " "),
		}); err != nil {
			return err
		}
	}
	return nil
}

func cmdEvalLine(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("eval-line")
	lim := addLimitFlags(fs)
	asJSON := fs.Bool("json", false, "print JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	tokens := movetext.Clean(movetext.Parse(strings.Join(fs.Args(), " "), a.cfg.WildcardSymbol))
	moves, ok := movetext.Moves(tokens)
	if !ok {
		return fmt.Errorf("eval-line takes fixed moves; use eval-tree for patterns with %q", a.cfg.WildcardSymbol)
	}

	deps, err := a.build(ctx, builder.Needs{Engine: true})
	if err != nil {
		return err
	}
	ev, err := analysis.EvaluateLine(ctx, deps.Evaluator, moves, *lim)
	if err != nil {
		return err
	}
	if *asJSON {
		return writeJSON(a.out, ev)
	}
	return printEval(a.out, deps.Messages, evalViewFrom(ev))
}

func cmdEvalTree(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("eval-tree")
	ef := addExpandFlags(fs)
	lim := addLimitFlags(fs)
	concurrency := fs.Int("concurrency", 0, "parallel evaluations (default ENGINE_POOL_CAPACITY)")
	save := fs.Bool("store", false, "record the run in the evaluation store (DATABASE_URL, or memory)")
	asJSON := fs.Bool("json", false, "print JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *ef.file != "" && *ef.line == "" {
		return fmt.Errorf("eval-tree evaluates one repertoire line; pass -line")
	}

	deps, err := a.build(ctx, builder.Needs{Engine: true, Store: *save})
	if err != nil {
		return err
	}
	trees, err := a.trees(ef)
	if err != nil {
		return err
	}
	t := trees[0]

	opts := analysis.TreeOptions{Concurrency: *concurrency, Logger: a.logger}
	var evalRun domain.Run
	if *save {
		eff := lim.WithDefaults(deps.Evaluator.Defaults())
		evalRun, err = deps.Repo.CreateRun(ctx, domain.Run{
			Pattern:  t.name,
			StartFEN: t.root.FEN,
			Depth:    eff.Depth,
			MultiPV:  eff.MultiPV,
		})
		if err != nil {
			return err
		}
		opts.Sink = analysis.RunSink{Repo: deps.Repo, RunID: evalRun.ID}
		a.logger.Info("eval_run_created", zap.String("run_id", evalRun.ID), zap.Int("lines", t.root.LineCount()))
	}

	results, err := analysis.EvaluateTree(ctx, deps.Evaluator, t.root, *lim, opts)
	if err != nil {
		return err
	}
	if *asJSON {
		return writeJSON(a.out, struct {
			RunID string                  `json:"run_id,omitempty"`
			Lines []domain.NodeEvaluation `json:"lines"`
		}{evalRun.ID, results})
	}
	for _, r := range results {
		if err := printEval(a.out, deps.Messages, evalViewFrom(r)); err != nil {
			return err
		}
	}
	if *save {
		return printLine(a.out, deps.Messages, "eval.run", map[string]any{"RunID": evalRun.ID, "Count": len(results)})
	}
	return nil
}

func cmdRender(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("render")
	pos := addPositionFlags(fs)
	lastMove := fs.String("last-move", "", "UCI move to highlight (default: last move of -pgn)")
	size := fs.Int("size", 0, "square size in pixels")
	header := fs.String("header", "", "text above the board")
	caption := fs.String("caption", "", "text beside the header, e.g. an evaluation")
	outPath := fs.String("out", "", "PNG file to write (required)")
	server := fs.String("server", "", "base URL of a running server to render instead")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *outPath == "" {
		return fmt.Errorf("-out is required")
	}

	var png []byte
	if *server != "" {
		var err error
		png, err = httpapi.NewClient(*server).Render(ctx, httpapi.RenderQuery{
			FEN: *pos.fen, PGN: *pos.pgn, LastMove: *lastMove,
			SquareSize: *size, Header: *header, Caption: *caption,
		})
		if err != nil {
			return err
		}
	} else {
		game, err := pos.game()
		if err != nil {
			return err
		}
		opts := render.Options{SquareSize: *size, Header: *header, Caption: *caption}
		hl := *lastMove
		if hl == "" {
			if moves := game.Moves(); len(moves) > 0 {
				hl = moves[len(moves)-1].String()
			}
		}
		if hl != "" {
			if opts.Highlight, err = render.ParseHighlight(hl); err != nil {
				return err
			}
		}
		png, err = render.NewRenderer().RenderPNG(ctx, game.Position().Board(), opts)
		if err != nil {
			return err
		}
	}
	if err := os.WriteFile(*outPath, png, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", *outPath, err)
	}
	a.logger.Info("render_written", zap.String("path", *outPath), zap.Int("bytes", len(png)))
	return nil
}

func cmdBook(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("book")
	fen := fs.String("fen", "", "position in FEN (default: initial position)")
	walk := fs.Bool("walk", false, "follow the book from -fen and print every line")
	maxPly := fs.Int("max-ply", 0, "walk depth in plies (default 12)")
	minWeight := fs.Uint("min-weight", 0, "skip book moves lighter than this")
	asJSON := fs.Bool("json", false, "print JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	deps, err := a.build(ctx, builder.Needs{Book: true})
	if err != nil {
		return err
	}
	if deps.Book == nil {
		return fmt.Errorf("no polyglot book found; set POLYGLOT_BOOK_PATH")
	}

	if *walk {
		root, err := deps.Book.Walk(*fen, openingbook.WalkOptions{MaxPly: *maxPly, MinWeight: uint16(*minWeight)})
		if err != nil {
			return err
		}
		if *asJSON {
			return writeJSON(a.out, root)
		}
		return printTree(a.out, deps.Messages, root, false)
	}

	game, err := position.FromFEN(*fen)
	if err != nil {
		return err
	}
	moves, err := deps.Book.Moves(game.FEN())
	if err != nil {
		return err
	}
	if *asJSON {
		return writeJSON(a.out, moves)
	}
	if len(moves) == 0 {
		return printLine(a.out, deps.Messages, "book.empty", map[string]any{"FEN": game.FEN()})
	}
	for _, m := range moves {
		if err := printLine(a.out, deps.Messages, "book.row", m); err != nil {
			return err
		}
	}
	return nil
}

func cmdServe(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("serve")
	addr := fs.String("addr", a.cfg.HTTPAddr, "listen address (default HTTP_ADDR)")
	withEngine := fs.Bool("engine", true, "start the engine pool; without it /evaluate answers 503")
	if err := fs.Parse(args); err != nil {
		return err
	}
	deps, err := a.build(ctx, builder.Needs{Engine: *withEngine, Store: true, Book: true})
	if err != nil {
		return err
	}

	cfg := httpapi.Config{
		Classifier:   deps.Classifier,
		Repo:         deps.Repo,
		CacheEnabled: deps.Cache != nil,
		Wildcard:     a.cfg.WildcardSymbol,
		MaxLines:     a.cfg.TreeMaxLines,
		Logger:       a.logger,
	}
	// typed nils must not reach the interfaces
	if deps.Evaluator != nil {
		cfg.Evaluator = deps.Evaluator
	}
	if deps.Book != nil {
		cfg.Book = deps.Book
	}
	return httpapi.NewServer(cfg).ListenAndServe(ctx, *addr)
}
