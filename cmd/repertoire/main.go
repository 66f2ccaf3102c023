package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/park285/repertoire/internal/builder"
	"github.com/park285/repertoire/internal/config"
	"github.com/park285/repertoire/internal/obslog"
)

type command struct {
	summary string
	run     func(ctx context.Context, a *app, args []string) error
}

var commands = map[string]command{
	"moves":     {"list the legal moves of a position", cmdMoves},
	"expand":    {"expand a wildcard move pattern into an opening tree", cmdExpand},
	"eval":      {"evaluate a position with the UCI engine", cmdEval},
	"eval-line": {"evaluate the position after a line of SAN moves", cmdEvalLine},
	"eval-tree": {"evaluate every line of an expanded pattern", cmdEvalTree},
	"render":    {"draw a position as PNG", cmdRender},
	"book":      {"look up or walk the polyglot opening book", cmdBook},
	"serve":     {"run the HTTP API", cmdServe},
}

func main() {
	os.Exit(realMain())
}

func realMain() int {
	if err := obslog.InitFromEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "logger init: %v\n", err)
		return 1
	}
	defer obslog.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 2
		}
		obslog.L().Error("command_failed", zap.Error(err))
		fmt.Fprintf(os.Stderr, "repertoire: %v\n", err)
		return 1
	}
	return 0
}

func run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		usage(os.Stderr)
		return flag.ErrHelp
	}
	cmd, ok := commands[args[0]]
	if !ok {
		usage(os.Stderr)
		return fmt.Errorf("unknown command %q", args[0])
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	a := &app{cfg: cfg, logger: obslog.L().With(zap.String("command", args[0])), out: out}
	defer a.close()
	return cmd.run(ctx, a, args[1:])
}

func usage(w io.Writer) {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	var b strings.Builder
	b.WriteString("usage: repertoire <command> [flags]\n\ncommands:\n")
	for _, name := range names {
		fmt.Fprintf(&b, "  %-10s %s\n", name, commands[name].summary)
	}
	b.WriteString("\nRun 'repertoire <command> -h' for the flags of a command.\n")
	fmt.Fprint(w, b.String())
}

// app carries what every command shares. deps is built on demand because
// each command needs a different subset.
type app struct {
	cfg    *config.AppConfig
	logger *zap.Logger
	out    io.Writer
	deps   *builder.Deps
}

func (a *app) build(ctx context.Context, needs builder.Needs) (*builder.Deps, error) {
	deps, err := builder.New(ctx, a.cfg, needs, a.logger)
	if err != nil {
		return nil, err
	}
	a.deps = deps
	return deps, nil
}

func (a *app) close() {
	if a.deps == nil {
		return
	}
	if err := a.deps.Close(); err != nil {
		a.logger.Warn("deps_close_failed", zap.Error(err))
	}
}
