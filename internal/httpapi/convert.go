package httpapi

import (
	"github.com/park285/repertoire/internal/chess"
	"github.com/park285/repertoire/internal/chess/position"
	"github.com/park285/repertoire/internal/chess/tree"
	"github.com/park285/repertoire/internal/domain"
	"github.com/park285/repertoire/pkg/repertoiredto"
)

func toMovesResponse(info position.PositionInfo) repertoiredto.MovesResponse {
	moves := make([]repertoiredto.Move, 0, len(info.LegalMoves))
	for _, m := range info.LegalMoves {
		moves = append(moves, repertoiredto.Move{
			SAN:         m.SAN,
			UCI:         m.UCI,
			IsCapture:   m.IsCapture,
			IsCastling:  m.IsCastling,
			IsEnPassant: m.IsEnPassant,
			GivesCheck:  m.GivesCheck,
		})
	}
	return repertoiredto.MovesResponse{
		FEN:         info.FEN,
		Turn:        info.Turn,
		IsCheck:     info.IsCheck,
		IsCheckmate: info.IsCheckmate,
		IsStalemate: info.IsStalemate,
		MoveCount:   info.MoveCount(),
		Moves:       moves,
	}
}

func toTreeNode(n *tree.Node) *repertoiredto.TreeNode {
	out := &repertoiredto.TreeNode{Move: n.Move, FEN: n.FEN, ECO: n.ECO, Opening: n.Opening}
	for _, child := range n.Children {
		out.Children = append(out.Children, toTreeNode(child))
	}
	return out
}

func toOpeningCounts(in []tree.OpeningCount) []repertoiredto.OpeningCount {
	out := make([]repertoiredto.OpeningCount, 0, len(in))
	for _, c := range in {
		out = append(out, repertoiredto.OpeningCount{ECO: c.ECO, Name: c.Name, Lines: c.Lines})
	}
	return out
}

func toEvaluation(r chess.Result) repertoiredto.Evaluation {
	return repertoiredto.Evaluation{
		Score:       r.EvaluationString(),
		CentiPawns:  r.CentiPawns,
		MateIn:      r.MateIn,
		BestMove:    r.BestMove,
		BestMoveUCI: r.BestMoveUCI,
		PV:          r.PV,
		Depth:       r.Depth,
	}
}

func toLineEvaluation(ev domain.NodeEvaluation) repertoiredto.LineEvaluation {
	return repertoiredto.LineEvaluation{
		Line: ev.Line,
		FEN:  ev.FEN,
		Evaluation: repertoiredto.Evaluation{
			Score:      ev.EvaluationString(),
			CentiPawns: ev.CentiPawns,
			MateIn:     ev.MateIn,
			BestMove:   ev.BestMove,
			PV:         ev.PV,
			Depth:      ev.Depth,
		},
	}
}
