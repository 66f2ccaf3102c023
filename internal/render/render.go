package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	"image/png"
	"strings"

	nchess "github.com/corentings/chess/v2"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"

	"github.com/park285/repertoire/internal/chess/position"
)

const (
	defaultSquareSize = 64
	minSquareSize     = 16
	maxSquareSize     = 160
)

type MoveHighlight struct {
	From nchess.Square
	To   nchess.Square
}

type Options struct {
	Highlight  *MoveHighlight
	SquareSize int
	// Header is drawn above the board; empty hides the panel.
	Header string
	// Caption is drawn in a smaller panel on the right, e.g. an evaluation.
	Caption string
}

type BoardRenderer interface {
	RenderPNG(ctx context.Context, board *nchess.Board, opts Options) ([]byte, error)
}

type pngRenderer struct{}

func NewRenderer() BoardRenderer {
	return &pngRenderer{}
}

// RenderFEN draws fen with the default renderer. lastMove, when set, is a UCI
// move ("e2e4") that gets highlighted.
func RenderFEN(ctx context.Context, fen, lastMove string, opts Options) ([]byte, error) {
	game, err := position.FromFEN(fen)
	if err != nil {
		return nil, err
	}
	if lastMove = strings.TrimSpace(lastMove); lastMove != "" {
		hl, err := ParseHighlight(lastMove)
		if err != nil {
			return nil, err
		}
		opts.Highlight = hl
	}
	return NewRenderer().RenderPNG(ctx, game.Position().Board(), opts)
}

// ParseHighlight reads the from and to squares of a UCI move.
func ParseHighlight(uci string) (*MoveHighlight, error) {
	uci = strings.ToLower(strings.TrimSpace(uci))
	if len(uci) < 4 || len(uci) > 5 {
		return nil, fmt.Errorf("invalid move %q", uci)
	}
	from, ok := parseSquare(uci[0:2])
	if !ok {
		return nil, fmt.Errorf("invalid move %q", uci)
	}
	to, ok := parseSquare(uci[2:4])
	if !ok {
		return nil, fmt.Errorf("invalid move %q", uci)
	}
	return &MoveHighlight{From: from, To: to}, nil
}

func parseSquare(s string) (nchess.Square, bool) {
	if len(s) != 2 || s[0] < 'a' || s[0] > 'h' || s[1] < '1' || s[1] > '8' {
		return nchess.NoSquare, false
	}
	return nchess.NewSquare(nchess.File(s[0]-'a'), nchess.Rank(s[1]-'1')), true
}

func (r *pngRenderer) RenderPNG(ctx context.Context, board *nchess.Board, opts Options) ([]byte, error) {
	if board == nil {
		return nil, fmt.Errorf("board is nil")
	}
	squareSize := opts.SquareSize
	if squareSize == 0 {
		squareSize = defaultSquareSize
	}
	if squareSize < minSquareSize || squareSize > maxSquareSize {
		return nil, fmt.Errorf("square size %d out of range [%d, %d]", squareSize, minSquareSize, maxSquareSize)
	}

	const (
		sideMargin  = 28
		hudHeight   = 30
		hudGap      = 12
		panelRadius = 8
	)
	topMargin := sideMargin
	if opts.Header != "" || opts.Caption != "" {
		topMargin += hudHeight + hudGap
	}
	boardSize := squareSize * 8
	totalWidth := boardSize + sideMargin*2
	totalHeight := boardSize + topMargin + sideMargin
	origin := image.Point{X: sideMargin, Y: topMargin}
	boardRect := image.Rect(origin.X, origin.Y, origin.X+boardSize, origin.Y+boardSize)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	img := image.NewRGBA(image.Rect(0, 0, totalWidth, totalHeight))
	imagedraw.Draw(img, img.Bounds(), image.NewUniform(backgroundColor), image.Point{}, imagedraw.Src)

	drawHUD(img, opts, boardRect, hudHeight, hudGap, panelRadius)
	drawSquares(img, squareSize, origin)
	drawHighlight(img, board, opts.Highlight, squareSize, origin)
	if err := drawPieces(img, board, squareSize, origin); err != nil {
		return nil, err
	}
	drawCoordinates(img, squareSize, origin, sideMargin)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	var pngBuf bytes.Buffer
	if err := png.Encode(&pngBuf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return pngBuf.Bytes(), nil
}

var (
	backgroundColor         = color.RGBA{R: 28, G: 31, B: 46, A: 255}
	lightSquare             = color.RGBA{233, 207, 163, 255}
	darkSquare              = color.RGBA{187, 136, 96, 255}
	whiteMoveHighlightFill  = color.NRGBA{R: 255, G: 228, B: 120, A: 140}
	blackMoveHighlightArrow = color.NRGBA{R: 148, G: 207, B: 255, A: 170}
	neutralHighlightArrow   = color.NRGBA{R: 182, G: 184, B: 190, A: 140}
	hudPanelColor           = color.NRGBA{R: 44, G: 48, B: 70, A: 255}
	hudTextPrimary          = color.NRGBA{R: 236, G: 239, B: 255, A: 255}
	coordinateTextColor     = color.NRGBA{R: 8, G: 214, B: 120, A: 255}
)

var (
	displayRanks = []nchess.Rank{nchess.Rank8, nchess.Rank7, nchess.Rank6, nchess.Rank5, nchess.Rank4, nchess.Rank3, nchess.Rank2, nchess.Rank1}
	displayFiles = []nchess.File{nchess.FileA, nchess.FileB, nchess.FileC, nchess.FileD, nchess.FileE, nchess.FileF, nchess.FileG, nchess.FileH}
)

func drawSquares(dst imagedraw.Image, squareSize int, origin image.Point) {
	for row, rank := range displayRanks {
		for col, file := range displayFiles {
			x := origin.X + col*squareSize
			y := origin.Y + row*squareSize
			clr := squareColor(nchess.NewSquare(file, rank))
			imagedraw.Draw(dst, image.Rect(x, y, x+squareSize, y+squareSize), image.NewUniform(clr), image.Point{}, imagedraw.Src)
		}
	}
}

func drawPieces(dst imagedraw.Image, board *nchess.Board, squareSize int, origin image.Point) error {
	boardMap := board.SquareMap()
	for sq, piece := range boardMap {
		if piece == nchess.NoPiece {
			continue
		}
		img, err := renderPieceImage(piece, squareSize)
		if err != nil {
			return err
		}
		imagedraw.Draw(dst, squareRect(sq, squareSize, origin), img, image.Point{}, imagedraw.Over)
	}
	return nil
}

func drawHighlight(img *image.RGBA, board *nchess.Board, highlight *MoveHighlight, squareSize int, origin image.Point) {
	if highlight == nil {
		return
	}
	switch moverColor, ok := highlightMoverColor(board, highlight); {
	case ok && moverColor == nchess.Black:
		drawArrow(img, highlight.From, highlight.To, squareSize, origin, blackMoveHighlightArrow)
	case ok && moverColor == nchess.White:
		drawSquareOverlay(img, highlight.From, squareSize, origin, whiteMoveHighlightFill)
		drawSquareOverlay(img, highlight.To, squareSize, origin, whiteMoveHighlightFill)
	default:
		drawArrow(img, highlight.From, highlight.To, squareSize, origin, neutralHighlightArrow)
	}
}

func highlightMoverColor(board *nchess.Board, highlight *MoveHighlight) (nchess.Color, bool) {
	if piece := board.Piece(highlight.To); piece != nchess.NoPiece {
		return piece.Color(), true
	}
	if piece := board.Piece(highlight.From); piece != nchess.NoPiece {
		return piece.Color(), true
	}
	return nchess.NoColor, false
}

func drawHUD(img *image.RGBA, opts Options, boardRect image.Rectangle, height, gap, radius int) {
	header := strings.TrimSpace(opts.Header)
	caption := strings.TrimSpace(opts.Caption)
	if header == "" && caption == "" {
		return
	}
	face := basicfont.Face7x13
	drawer := &font.Drawer{Dst: img, Face: face}

	bottom := boardRect.Min.Y - gap
	top := bottom - height

	captionWidth := 0
	if caption != "" {
		captionWidth = drawer.MeasureString(caption).Round() + 24
		captionRect := image.Rect(boardRect.Max.X-captionWidth, top, boardRect.Max.X, bottom)
		drawRoundedPanel(img, captionRect, radius, hudPanelColor)
		drawCenteredString(drawer, captionRect, caption, hudTextPrimary)
	}
	if header != "" {
		maxWidth := boardRect.Dx() - captionWidth - 12
		headerRect := image.Rect(boardRect.Min.X, top, boardRect.Min.X+maxWidth, bottom)
		header = truncateWithEllipsis(face, header, maxWidth-24)
		drawRoundedPanel(img, headerRect, radius, hudPanelColor)
		drawCenteredString(drawer, headerRect, header, hudTextPrimary)
	}
}

func drawCoordinates(dst imagedraw.Image, squareSize int, origin image.Point, margin int) {
	face := basicfont.Face7x13
	drawer := &font.Drawer{Dst: dst, Face: face, Src: image.NewUniform(coordinateTextColor)}
	ascent := face.Metrics().Ascent.Ceil()
	boardEndY := origin.Y + len(displayRanks)*squareSize

	for row, rank := range displayRanks {
		rankCenter := origin.Y + row*squareSize + squareSize/2
		drawCenteredText(drawer, rank.String(), origin.X-margin/2, rankCenter+ascent/2)
	}
	for col, file := range displayFiles {
		fileCenter := origin.X + col*squareSize + squareSize/2
		drawCenteredText(drawer, file.String(), fileCenter, boardEndY+ascent+2)
	}
}

func squareColor(sq nchess.Square) color.Color {
	if (int(sq.File())+int(sq.Rank()))%2 == 0 {
		return darkSquare
	}
	return lightSquare
}

func squareRect(sq nchess.Square, squareSize int, origin image.Point) image.Rectangle {
	col := int(sq.File())
	row := 7 - int(sq.Rank())
	x := origin.X + col*squareSize
	y := origin.Y + row*squareSize
	return image.Rect(x, y, x+squareSize, y+squareSize)
}
