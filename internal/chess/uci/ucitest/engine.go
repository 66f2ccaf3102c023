// Package ucitest provides a scripted UCI engine for tests. The engine runs
// inside the test binary itself: TestMain calls Main when EnvVar is set, and
// tests point the engine path at os.Executable via Binary.
//
// The engine answers "go" with one info line per multipv slot. Slot 1 is a
// mating move scored "mate 1" when one exists; the other slots take the legal
// moves in generation order scored cp 35, 25, 15 and so on. "go depth 99"
// makes the engine exit without answering and "go depth 98" makes it hang.
package ucitest

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"testing"

	nchess "github.com/corentings/chess/v2"

	"github.com/park285/repertoire/internal/chess/position"
)

const EnvVar = "REPERTOIRE_FAKE_UCI_ENGINE"

const (
	CrashDepth = 99
	HangDepth  = 98
)

// Serving reports whether the current process was started as the fake engine.
func Serving() bool { return os.Getenv(EnvVar) == "1" }

// Main runs the fake engine on stdin/stdout and returns the exit code.
func Main() int {
	if err := Serve(os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "fake engine:", err)
		return 1
	}
	return 0
}

// Binary returns a path that starts the fake engine when executed.
func Binary(t testing.TB) string {
	t.Helper()
	path, err := os.Executable()
	if err != nil {
		t.Fatalf("os.Executable: %v", err)
	}
	t.Setenv(EnvVar, "1")
	return path
}

type engine struct {
	out     *bufio.Writer
	game    *nchess.Game
	multiPV int
}

func Serve(r io.Reader, w io.Writer) error {
	e := &engine{out: bufio.NewWriter(w), game: nchess.NewGame(), multiPV: 1}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "uci":
			e.println("id name repertoire-fake")
			e.println("option name MultiPV type spin default 1 min 1 max 500")
			e.println("uciok")
		case "isready":
			e.println("readyok")
		case "setoption":
			e.setOption(fields[1:])
		case "ucinewgame":
			e.game = nchess.NewGame()
		case "position":
			if err := e.setPosition(fields[1:]); err != nil {
				e.println("info string " + err.Error())
			}
		case "go":
			depth := goDepth(fields[1:])
			switch depth {
			case CrashDepth:
				return nil
			case HangDepth:
				continue
			}
			e.search(depth)
		case "quit":
			return e.out.Flush()
		}
		if err := e.out.Flush(); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func (e *engine) println(line string) {
	e.out.WriteString(line)
	e.out.WriteByte('\n')
}

func (e *engine) setOption(args []string) {
	name, value := "", ""
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "name":
			if i+1 < len(args) {
				name = args[i+1]
			}
		case "value":
			if i+1 < len(args) {
				value = args[i+1]
			}
		}
	}
	if name == "MultiPV" {
		if n, err := strconv.Atoi(value); err == nil && n > 0 {
			e.multiPV = n
		}
	}
}

func (e *engine) setPosition(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("empty position")
	}
	var fen string
	rest := args[1:]
	switch args[0] {
	case "startpos":
	case "fen":
		end := len(rest)
		for i, tok := range rest {
			if tok == "moves" {
				end = i
				break
			}
		}
		fen = strings.Join(rest[:end], " ")
		rest = rest[end:]
	default:
		return fmt.Errorf("bad position %q", args[0])
	}
	game, err := position.FromFEN(fen)
	if err != nil {
		return err
	}
	if len(rest) > 0 && rest[0] == "moves" {
		for _, mv := range rest[1:] {
			if err := game.PushNotationMove(mv, nchess.UCINotation{}, nil); err != nil {
				return err
			}
		}
	}
	e.game = game
	return nil
}

func goDepth(args []string) int {
	for i := 0; i+1 < len(args); i++ {
		if args[i] == "depth" {
			if n, err := strconv.Atoi(args[i+1]); err == nil {
				return n
			}
		}
	}
	return 12
}

func (e *engine) search(depth int) {
	valid := e.game.ValidMoves()
	if len(valid) == 0 {
		if position.InCheck(e.game) {
			e.println("info depth 0 score mate 0")
		} else {
			e.println("info depth 0 score cp 0")
		}
		e.println("bestmove (none)")
		return
	}

	uci := nchess.UCINotation{}
	pos := e.game.Position()
	order := make([]int, 0, len(valid))
	mate := -1
	for i := range valid {
		child := e.game.Clone()
		if err := child.Move(&valid[i], nil); err == nil && child.Method() == nchess.Checkmate {
			mate = i
			break
		}
	}
	if mate >= 0 {
		order = append(order, mate)
	}
	for i := range valid {
		if i != mate {
			order = append(order, i)
		}
	}

	lines := min(e.multiPV, len(order))
	e.println("info string fake search")
	for slot := 1; slot <= lines; slot++ {
		fmt.Fprintf(e.out, "info depth 1 multipv %d score cp -999 pv %s\n", slot,
			strings.ToLower(uci.Encode(pos, &valid[order[slot-1]])))
	}

	var best, ponder string
	for slot := 1; slot <= lines; slot++ {
		idx := order[slot-1]
		first := strings.ToLower(uci.Encode(pos, &valid[idx]))
		pv := []string{first}

		child := e.game.Clone()
		if err := child.Move(&valid[idx], nil); err == nil {
			if replies := child.ValidMoves(); len(replies) > 0 {
				pv = append(pv, strings.ToLower(uci.Encode(child.Position(), &replies[0])))
			}
		}

		score := fmt.Sprintf("cp %d", 35-10*(slot-1))
		if idx == mate {
			score = "mate 1"
		}
		fmt.Fprintf(e.out, "info depth %d seldepth %d multipv %d score %s nodes 1000 nps 100000 pv %s\n",
			depth, depth+2, slot, score, strings.Join(pv, " "))
		if slot == 1 {
			best = first
			if len(pv) > 1 {
				ponder = pv[1]
			}
		}
	}
	if ponder != "" {
		e.println("bestmove " + best + " ponder " + ponder)
		return
	}
	e.println("bestmove " + best)
}
