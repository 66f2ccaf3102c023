package analysis

import (
	"context"

	"github.com/park285/repertoire/internal/domain"
	"github.com/park285/repertoire/internal/service/store"
)

// RunSink persists evaluations under one run.
type RunSink struct {
	Repo  store.Repository
	RunID string
}

func (s RunSink) Save(ctx context.Context, ev domain.NodeEvaluation) error {
	return s.Repo.SaveEvaluation(ctx, s.RunID, ev)
}
