package store

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/park285/repertoire/internal/domain"
)

// memrepo keeps runs in process memory. It is used when no database is configured.
type memrepo struct {
	mu sync.RWMutex

	runs  map[string]*domain.Run
	evals map[string][]domain.NodeEvaluation
	index map[string]int // runID|lineKey -> position in evals[runID]
}

func NewMemoryRepository() Repository {
	return &memrepo{
		runs:  make(map[string]*domain.Run),
		evals: make(map[string][]domain.NodeEvaluation),
		index: make(map[string]int),
	}
}

func (m *memrepo) EnsureSchema(context.Context) error { return nil }

func (m *memrepo) Close() error { return nil }

func (m *memrepo) CreateRun(_ context.Context, run domain.Run) (domain.Run, error) {
	run.ID = uuid.NewString()
	run.CreatedAt = time.Now().UTC()

	m.mu.Lock()
	defer m.mu.Unlock()
	stored := run
	m.runs[run.ID] = &stored
	return run, nil
}

func (m *memrepo) GetRun(_ context.Context, id string) (*domain.Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.runs[strings.TrimSpace(id)]
	if !ok {
		return nil, nil
	}
	copy := *r
	return &copy, nil
}

func (m *memrepo) SaveEvaluation(_ context.Context, runID string, ev domain.NodeEvaluation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.runs[runID]; !ok {
		return ErrRunNotFound
	}
	ev.Line = slices.Clone(ev.Line)
	ev.PV = slices.Clone(ev.PV)

	key := runID + "|" + LineKey(ev.Line)
	if i, ok := m.index[key]; ok {
		m.evals[runID][i] = ev
		return nil
	}
	m.index[key] = len(m.evals[runID])
	m.evals[runID] = append(m.evals[runID], ev)
	return nil
}

func (m *memrepo) ListEvaluations(_ context.Context, runID string) ([]domain.NodeEvaluation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.runs[runID]; !ok {
		return nil, ErrRunNotFound
	}
	return slices.Clone(m.evals[runID]), nil
}
