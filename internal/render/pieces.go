package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sync"

	nchess "github.com/corentings/chess/v2"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

// piece outlines on a 45x45 canvas
var pieceShapes = map[nchess.PieceType][]string{
	nchess.Pawn: {
		`<circle cx="22.5" cy="14" r="5.5"/>`,
		`<path d="M 17 36 L 28 36 L 26 21 L 19 21 Z"/>`,
		`<path d="M 12 40 L 33 40 L 33 35 L 12 35 Z"/>`,
	},
	nchess.Knight: {
		`<path d="M 12 39 L 33 39 L 31 30 C 31 20 28 12 20 10 L 18 6 L 16 11 L 10 20 L 12 24 L 17 21 L 20 24 L 14 32 Z"/>`,
		`<circle cx="17" cy="15" r="1.2"/>`,
	},
	nchess.Bishop: {
		`<circle cx="22.5" cy="8.5" r="3"/>`,
		`<path d="M 22.5 11.5 C 15 17 15 26 18 31 L 27 31 C 30 26 30 17 22.5 11.5 Z"/>`,
		`<path d="M 11 39 L 34 39 L 31 32 L 14 32 Z"/>`,
	},
	nchess.Rook: {
		`<path d="M 11 39 L 34 39 L 34 35 L 11 35 Z"/>`,
		`<path d="M 14 35 L 31 35 L 29 17 L 16 17 Z"/>`,
		`<path d="M 12 17 L 33 17 L 33 9 L 29 9 L 29 12 L 25 12 L 25 9 L 20 9 L 20 12 L 16 12 L 16 9 L 12 9 Z"/>`,
	},
	nchess.Queen: {
		`<path d="M 9 27 L 12 12 L 17 23 L 22.5 10 L 28 23 L 33 12 L 36 27 Z"/>`,
		`<path d="M 11 39 L 34 39 L 33 27 L 12 27 Z"/>`,
		`<circle cx="12" cy="11" r="2.2"/>`,
		`<circle cx="22.5" cy="9" r="2.2"/>`,
		`<circle cx="33" cy="11" r="2.2"/>`,
	},
	nchess.King: {
		`<path d="M 21 3 L 24 3 L 24 7 L 28 7 L 28 10 L 24 10 L 24 15 L 21 15 L 21 10 L 17 10 L 17 7 L 21 7 Z"/>`,
		`<path d="M 11 39 L 34 39 L 32 24 C 30 16 15 16 13 24 Z"/>`,
	},
}

// pieceSVG renders the outline of piece as a standalone SVG document.
func pieceSVG(piece nchess.Piece) ([]byte, error) {
	shapes, ok := pieceShapes[piece.Type()]
	if !ok {
		return nil, fmt.Errorf("no outline for piece %v", piece)
	}
	fill, stroke := "#f8f8f8", "#1a1a1a"
	if piece.Color() == nchess.Black {
		fill, stroke = "#1a1a1a", "#e0e0e0"
	}

	var buf bytes.Buffer
	buf.WriteString(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 45 45" width="45" height="45">`)
	fmt.Fprintf(&buf, `<g fill="%s" stroke="%s" stroke-width="1.5" stroke-linejoin="round">`, fill, stroke)
	for _, s := range shapes {
		buf.WriteString(s)
	}
	buf.WriteString(`</g></svg>`)
	return buf.Bytes(), nil
}

type pieceCacheKey struct {
	piece nchess.Piece
	size  int
}

var (
	pieceCache   = map[pieceCacheKey]image.Image{}
	pieceCacheMu sync.RWMutex
)

func renderPieceImage(piece nchess.Piece, size int) (image.Image, error) {
	key := pieceCacheKey{piece: piece, size: size}

	pieceCacheMu.RLock()
	if img, ok := pieceCache[key]; ok {
		pieceCacheMu.RUnlock()
		return img, nil
	}
	pieceCacheMu.RUnlock()

	data, err := pieceSVG(piece)
	if err != nil {
		return nil, err
	}
	icon, err := oksvg.ReadIconStream(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse piece svg: %w", err)
	}
	icon.SetTarget(0, 0, float64(size), float64(size))

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Transparent), image.Point{}, draw.Src)

	scanner := rasterx.NewScannerGV(size, size, img, img.Bounds())
	raster := rasterx.NewDasher(size, size, scanner)
	icon.Draw(raster, 1.0)

	pieceCacheMu.Lock()
	pieceCache[key] = img
	pieceCacheMu.Unlock()

	return img, nil
}
