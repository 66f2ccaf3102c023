package openingbook

import (
	chesslib "github.com/corentings/chess/v2"
	"github.com/corentings/chess/v2/opening"

	"github.com/park285/repertoire/internal/chess/position"
)

type Opening struct {
	Code  string `json:"eco"`
	Title string `json:"name"`
}

// Classifier names openings from the built-in ECO table. It satisfies
// tree.Classifier.
type Classifier struct {
	eco *opening.BookECO
}

func NewClassifier() *Classifier {
	return &Classifier{eco: opening.NewBookECO()}
}

func (c *Classifier) Classify(game *chesslib.Game) (string, string, bool) {
	moves := game.Moves()
	if len(moves) == 0 {
		return "", "", false
	}
	o := c.eco.Find(moves)
	if o == nil {
		return "", "", false
	}
	return o.Code(), o.Title(), true
}

// ClassifySAN classifies the position reached by SAN moves from the start.
func (c *Classifier) ClassifySAN(moves []string) (Opening, bool, error) {
	game, err := position.FromSAN(moves)
	if err != nil {
		return Opening{}, false, err
	}
	code, title, ok := c.Classify(game)
	return Opening{Code: code, Title: title}, ok, nil
}
