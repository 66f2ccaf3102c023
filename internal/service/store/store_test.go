package store

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/park285/repertoire/internal/domain"
)

func intp(v int) *int { return &v }

func exerciseRepository(t *testing.T, repo Repository) {
	t.Helper()
	ctx := context.Background()

	if err := repo.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	run, err := repo.CreateRun(ctx, domain.Run{Pattern: "1. e4 __", StartFEN: "startpos", Depth: 12, MultiPV: 1})
	if err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	if run.ID == "" || run.CreatedAt.IsZero() {
		t.Fatalf("run not populated: %+v", run)
	}
	got, err := repo.GetRun(ctx, run.ID)
	if err != nil || got == nil || got.Pattern != "1. e4 __" {
		t.Fatalf("GetRun = %+v, %v", got, err)
	}
	if missing, err := repo.GetRun(ctx, "00000000-0000-0000-0000-000000000000"); err != nil || missing != nil {
		t.Fatalf("GetRun(missing) = %+v, %v", missing, err)
	}

	first := domain.NodeEvaluation{Line: []string{"e4", "e5"}, FEN: "fen-1", CentiPawns: intp(30), BestMove: "Nf3", PV: []string{"Nf3", "Nc6"}, Depth: 12}
	second := domain.NodeEvaluation{Line: []string{"e4", "c5"}, FEN: "fen-2", MateIn: intp(-3), BestMove: "Qh4", PV: []string{"Qh4"}, Depth: 12}
	for _, ev := range []domain.NodeEvaluation{first, second} {
		if err := repo.SaveEvaluation(ctx, run.ID, ev); err != nil {
			t.Fatalf("SaveEvaluation: %v", err)
		}
	}
	updated := first
	updated.CentiPawns = intp(41)
	updated.Depth = 14
	if err := repo.SaveEvaluation(ctx, run.ID, updated); err != nil {
		t.Fatalf("SaveEvaluation(update): %v", err)
	}

	list, err := repo.ListEvaluations(ctx, run.ID)
	if err != nil {
		t.Fatalf("ListEvaluations: %v", err)
	}
	want := []domain.NodeEvaluation{updated, second}
	if diff := cmp.Diff(want, list, cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("ListEvaluations mismatch (-want +got):\n%s", diff)
	}
}

func TestMemoryRepository(t *testing.T) {
	exerciseRepository(t, NewMemoryRepository())
}

func TestMemoryRepositoryUnknownRun(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	if err := repo.SaveEvaluation(ctx, "nope", domain.NodeEvaluation{}); !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
	if _, err := repo.ListEvaluations(ctx, "nope"); !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
}

func TestMemoryRepositoryRootLine(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	run, _ := repo.CreateRun(ctx, domain.Run{Pattern: ""})
	root := domain.NodeEvaluation{Line: []string{}, FEN: "start", CentiPawns: intp(20)}
	if err := repo.SaveEvaluation(ctx, run.ID, root); err != nil {
		t.Fatalf("SaveEvaluation: %v", err)
	}
	list, _ := repo.ListEvaluations(ctx, run.ID)
	if len(list) != 1 || list[0].Line == nil || len(list[0].Line) != 0 {
		t.Fatalf("root line not preserved: %+v", list)
	}
}

func TestPostgresRepository(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	repo, err := Open(context.Background(), dsn)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	exerciseRepository(t, repo)
}
