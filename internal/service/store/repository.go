package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/park285/repertoire/internal/domain"
)

var ErrRunNotFound = errors.New("evaluation run not found")

type Repository interface {
	EnsureSchema(ctx context.Context) error
	CreateRun(ctx context.Context, run domain.Run) (domain.Run, error)
	GetRun(ctx context.Context, id string) (*domain.Run, error)
	SaveEvaluation(ctx context.Context, runID string, ev domain.NodeEvaluation) error
	ListEvaluations(ctx context.Context, runID string) ([]domain.NodeEvaluation, error)
	Close() error
}

const schema = `
	CREATE TABLE IF NOT EXISTS evaluation_runs (
		id         UUID PRIMARY KEY,
		pattern    TEXT NOT NULL,
		start_fen  TEXT NOT NULL,
		depth      INTEGER NOT NULL,
		multipv    INTEGER NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	CREATE TABLE IF NOT EXISTS node_evaluations (
		id          BIGSERIAL PRIMARY KEY,
		run_id      UUID NOT NULL REFERENCES evaluation_runs(id) ON DELETE CASCADE,
		line_key    TEXT NOT NULL,
		line        JSONB NOT NULL,
		fen         TEXT NOT NULL,
		centipawns  INTEGER,
		mate_in     INTEGER,
		best_move   TEXT NOT NULL,
		pv          JSONB NOT NULL,
		depth       INTEGER NOT NULL,
		latency_ms  BIGINT NOT NULL,
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (run_id, line_key)
	);`

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

// Open connects to Postgres with the pool settings used across the project.
func Open(ctx context.Context, databaseURL string) (Repository, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return NewRepository(db), nil
}

func (r *repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

func (r *repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (r *repository) CreateRun(ctx context.Context, run domain.Run) (domain.Run, error) {
	run.ID = uuid.NewString()
	const query = `
		INSERT INTO evaluation_runs (id, pattern, start_fen, depth, multipv)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`

	err := r.db.QueryRowContext(ctx, query, run.ID, run.Pattern, run.StartFEN, run.Depth, run.MultiPV).Scan(&run.CreatedAt)
	if err != nil {
		return domain.Run{}, fmt.Errorf("insert evaluation run: %w", err)
	}
	return run, nil
}

func (r *repository) GetRun(ctx context.Context, id string) (*domain.Run, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}
	const query = `
		SELECT id, pattern, start_fen, depth, multipv, created_at
		FROM evaluation_runs
		WHERE id = $1`

	var run domain.Run
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&run.ID,
		&run.Pattern,
		&run.StartFEN,
		&run.Depth,
		&run.MultiPV,
		&run.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select evaluation run: %w", err)
	}
	return &run, nil
}

func (r *repository) SaveEvaluation(ctx context.Context, runID string, ev domain.NodeEvaluation) error {
	lineJSON, err := json.Marshal(nonNil(ev.Line))
	if err != nil {
		return fmt.Errorf("marshal line: %w", err)
	}
	pvJSON, err := json.Marshal(nonNil(ev.PV))
	if err != nil {
		return fmt.Errorf("marshal pv: %w", err)
	}

	const query = `
		INSERT INTO node_evaluations (
			run_id,
			line_key,
			line,
			fen,
			centipawns,
			mate_in,
			best_move,
			pv,
			depth,
			latency_ms
		)
		VALUES ($1, $2, $3::jsonb, $4, $5, $6, $7, $8::jsonb, $9, $10)
		ON CONFLICT (run_id, line_key)
		DO UPDATE SET
			fen = EXCLUDED.fen,
			centipawns = EXCLUDED.centipawns,
			mate_in = EXCLUDED.mate_in,
			best_move = EXCLUDED.best_move,
			pv = EXCLUDED.pv,
			depth = EXCLUDED.depth,
			latency_ms = EXCLUDED.latency_ms,
			updated_at = NOW()`

	_, err = r.db.ExecContext(
		ctx,
		query,
		runID,
		LineKey(ev.Line),
		lineJSON,
		ev.FEN,
		nullInt(ev.CentiPawns),
		nullInt(ev.MateIn),
		ev.BestMove,
		pvJSON,
		ev.Depth,
		ev.Latency.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("upsert node evaluation: %w", err)
	}
	return nil
}

func (r *repository) ListEvaluations(ctx context.Context, runID string) ([]domain.NodeEvaluation, error) {
	if _, err := uuid.Parse(runID); err != nil {
		return nil, ErrRunNotFound
	}
	const query = `
		SELECT line, fen, centipawns, mate_in, best_move, pv, depth, latency_ms
		FROM node_evaluations
		WHERE run_id = $1
		ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("select node evaluations: %w", err)
	}
	defer rows.Close()

	out := make([]domain.NodeEvaluation, 0)
	for rows.Next() {
		var (
			ev        domain.NodeEvaluation
			lineJSON  []byte
			pvJSON    []byte
			cp        sql.NullInt64
			mate      sql.NullInt64
			latencyMS int64
		)
		if err := rows.Scan(&lineJSON, &ev.FEN, &cp, &mate, &ev.BestMove, &pvJSON, &ev.Depth, &latencyMS); err != nil {
			return nil, fmt.Errorf("scan node evaluation: %w", err)
		}
		if err := json.Unmarshal(lineJSON, &ev.Line); err != nil {
			return nil, fmt.Errorf("unmarshal line: %w", err)
		}
		if err := json.Unmarshal(pvJSON, &ev.PV); err != nil {
			return nil, fmt.Errorf("unmarshal pv: %w", err)
		}
		ev.CentiPawns = intPtr(cp)
		ev.MateIn = intPtr(mate)
		ev.Latency = time.Duration(latencyMS) * time.Millisecond
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate node evaluations: %w", err)
	}
	return out, nil
}

// LineKey identifies a line within a run.
func LineKey(line []string) string {
	return strings.Join(line, " ")
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}
