package builder

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/park285/repertoire/internal/chess"
	"github.com/park285/repertoire/internal/chess/openingbook"
	"github.com/park285/repertoire/internal/chess/uci"
	"github.com/park285/repertoire/internal/config"
	"github.com/park285/repertoire/internal/msgcat"
	"github.com/park285/repertoire/internal/service/cache"
	"github.com/park285/repertoire/internal/service/store"
)

// Needs selects the optional parts a command depends on.
type Needs struct {
	Engine bool
	Store  bool
	Book   bool
}

type Deps struct {
	Config     *config.AppConfig
	Evaluator  *chess.Evaluator
	Cache      *cache.CacheService
	Repo       store.Repository
	Book       *openingbook.Book
	Classifier *openingbook.Classifier
	Messages   *msgcat.Catalog
}

func New(ctx context.Context, cfg *config.AppConfig, needs Needs, logger *zap.Logger) (*Deps, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	messages, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	deps := &Deps{Config: cfg, Classifier: openingbook.NewClassifier(), Messages: messages}

	if needs.Engine {
		if err := deps.initEngine(logger); err != nil {
			_ = deps.Close()
			return nil, err
		}
	}
	if needs.Store {
		if err := deps.initStore(ctx, logger); err != nil {
			_ = deps.Close()
			return nil, err
		}
	}
	if needs.Book {
		if err := deps.initBook(logger); err != nil {
			_ = deps.Close()
			return nil, err
		}
	}
	return deps, nil
}

func (d *Deps) initEngine(logger *zap.Logger) error {
	binary, err := uci.FindBinary(d.Config.StockfishPath)
	if err != nil {
		return err
	}

	// Cache (Redis optional)
	if d.Config.RedisURL != "" {
		cconf, err := cache.ParseURL(d.Config.RedisURL)
		if err != nil {
			return fmt.Errorf("parse redis url: %w", err)
		}
		d.Cache, err = cache.NewCacheService(*cconf, logger)
		if err != nil {
			return fmt.Errorf("init cache: %w", err)
		}
	}

	pool, err := uci.NewPool(uci.PoolConfig{
		BinaryPath: binary,
		Capacity:   d.Config.EnginePoolCapacity,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("init engine pool: %w", err)
	}
	evCfg := chess.EvaluatorConfig{
		Pool:     pool,
		CacheTTL: d.Config.EvalCacheTTL(),
		Defaults: d.Config.EngineLimits(),
		Logger:   logger,
	}
	if d.Cache != nil {
		evCfg.Cache = d.Cache
	}
	d.Evaluator, err = chess.NewEvaluator(evCfg)
	if err != nil {
		_ = pool.Close()
		return fmt.Errorf("init evaluator: %w", err)
	}
	logger.Info("engine_ready",
		zap.String("binary", binary),
		zap.Int("pool_capacity", pool.Capacity()),
		zap.Bool("cache", d.Cache != nil),
	)
	return nil
}

func (d *Deps) initStore(ctx context.Context, logger *zap.Logger) error {
	if d.Config.DatabaseURL == "" {
		logger.Info("store_memory", zap.String("reason", "DATABASE_URL not set"))
		d.Repo = store.NewMemoryRepository()
		return nil
	}
	repo, err := store.Open(ctx, d.Config.DatabaseURL)
	if err != nil {
		return err
	}
	if err := repo.EnsureSchema(ctx); err != nil {
		_ = repo.Close()
		return err
	}
	d.Repo = repo
	return nil
}

func (d *Deps) initBook(logger *zap.Logger) error {
	path := d.Config.PolyglotBookPath
	if path == "" {
		resolved, err := openingbook.ResolveBookPath()
		if err != nil {
			return err
		}
		path = resolved
	}
	if path == "" {
		logger.Info("book_unavailable")
		return nil
	}
	book, err := openingbook.LoadFromPath(path)
	if err != nil {
		return err
	}
	logger.Info("book_loaded", zap.String("path", path))
	d.Book = book
	return nil
}

func (d *Deps) Close() error {
	if d == nil {
		return nil
	}
	var errs []error
	if d.Evaluator != nil {
		errs = append(errs, d.Evaluator.Close())
	}
	if d.Cache != nil {
		errs = append(errs, d.Cache.Close())
	}
	if d.Repo != nil {
		errs = append(errs, d.Repo.Close())
	}
	return errors.Join(errs...)
}
