package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/park285/repertoire/internal/chess/position"
	"github.com/park285/repertoire/internal/chess/tree"
	"github.com/park285/repertoire/internal/domain"
	"github.com/park285/repertoire/internal/msgcat"
	"github.com/park285/repertoire/pkg/repertoiredto"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printLine(w io.Writer, cat *msgcat.Catalog, key string, data any) error {
	text, err := cat.Render(key, data)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, text)
	return err
}

type moveRow struct {
	SAN   string
	UCI   string
	Flags string
}

type movesView struct {
	FEN       string
	Turn      string
	Count     int
	Check     bool
	Checkmate bool
	Stalemate bool
	Rows      []moveRow
}

func moveFlags(capture, castling, enPassant, check bool) string {
	var flags []string
	if capture {
		flags = append(flags, "capture")
	}
	if enPassant {
		flags = append(flags, "en passant")
	}
	if castling {
		flags = append(flags, "castle")
	}
	if check {
		flags = append(flags, "check")
	}
	return strings.Join(flags, ",")
}

func movesViewFromInfo(info position.PositionInfo) movesView {
	v := movesView{
		FEN: info.FEN, Turn: info.Turn, Count: info.MoveCount(),
		Check: info.IsCheck, Checkmate: info.IsCheckmate, Stalemate: info.IsStalemate,
	}
	for _, m := range info.LegalMoves {
		v.Rows = append(v.Rows, moveRow{SAN: m.SAN, UCI: m.UCI, Flags: moveFlags(m.IsCapture, m.IsCastling, m.IsEnPassant, m.GivesCheck)})
	}
	return v
}

func movesViewFromDTO(resp *repertoiredto.MovesResponse) movesView {
	v := movesView{
		FEN: resp.FEN, Turn: resp.Turn, Count: resp.MoveCount,
		Check: resp.IsCheck, Checkmate: resp.IsCheckmate, Stalemate: resp.IsStalemate,
	}
	for _, m := range resp.Moves {
		v.Rows = append(v.Rows, moveRow{SAN: m.SAN, UCI: m.UCI, Flags: moveFlags(m.IsCapture, m.IsCastling, m.IsEnPassant, m.GivesCheck)})
	}
	return v
}

func printMoves(w io.Writer, cat *msgcat.Catalog, v movesView) error {
	if err := printLine(w, cat, "moves.header", v); err != nil {
		return err
	}
	for _, row := range v.Rows {
		if err := printLine(w, cat, "moves.row", row); err != nil {
			return err
		}
	}
	return nil
}

func printTree(w io.Writer, cat *msgcat.Catalog, root *tree.Node, openings bool) error {
	for _, line := range root.Flatten() {
		if err := printLine(w, cat, "expand.line", map[string]any{"Line": strings.Join(line, " ")}); err != nil {
			return err
		}
	}
	if err := printLine(w, cat, "expand.summary", map[string]any{"Lines": root.LineCount(), "Depth": root.Depth()}); err != nil {
		return err
	}
	if !openings {
		return nil
	}
	for _, c := range root.Summary() {
		if c.ECO == "" {
			c.ECO, c.Name = "-", "unclassified"
		}
		if err := printLine(w, cat, "expand.opening", c); err != nil {
			return err
		}
	}
	return nil
}

type evalView struct {
	Line     string
	Score    string
	Depth    int
	BestMove string
	PV       string
}

func evalViewFrom(ev domain.NodeEvaluation) evalView {
	return evalView{
		Line:     strings.Join(ev.Line, " "),
		Score:    ev.EvaluationString(),
		Depth:    ev.Depth,
		BestMove: ev.BestMove,
		PV:       strings.Join(ev.PV, " "),
	}
}

func pvLabel(i int) string {
	return fmt.Sprintf("pv%d", i+1)
}

func printEval(w io.Writer, cat *msgcat.Catalog, v evalView) error {
	return printLine(w, cat, "eval.line", v)
}
