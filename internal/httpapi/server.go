package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/park285/repertoire/internal/chess/openingbook"
	"github.com/park285/repertoire/internal/chess/position"
	"github.com/park285/repertoire/internal/chess/tree"
	"github.com/park285/repertoire/internal/service/analysis"
	"github.com/park285/repertoire/internal/service/store"
	"github.com/park285/repertoire/pkg/repertoiredto"
)

const (
	defaultRequestTimeout = 2 * time.Minute
	shutdownTimeout       = 10 * time.Second
)

// BookSource looks up polyglot moves for a position.
type BookSource interface {
	Moves(fen string) ([]openingbook.BookMove, error)
}

// Config wires the server. Every dependency except Logger is optional; the
// endpoints that need a missing one answer 503.
type Config struct {
	Evaluator  analysis.Evaluator
	Classifier tree.Classifier
	Book       BookSource
	Repo       store.Repository
	// CacheEnabled is only reported by /healthz.
	CacheEnabled bool

	Wildcard       string
	MaxLines       int
	RequestTimeout time.Duration
	Logger         *zap.Logger
}

type Server struct {
	cfg    Config
	logger *zap.Logger
	srv    *fasthttp.Server
}

func NewServer(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	s := &Server{cfg: cfg, logger: cfg.Logger}
	s.srv = &fasthttp.Server{
		Name:         "repertoire",
		Handler:      s.Handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 10*time.Second,
	}
	return s
}

// Handler routes a single request.
func (s *Server) Handler(ctx *fasthttp.RequestCtx) {
	started := time.Now()
	defer func() {
		s.logger.Debug("http_request",
			zap.ByteString("method", ctx.Method()),
			zap.ByteString("path", ctx.Path()),
			zap.Int("status", ctx.Response.StatusCode()),
			zap.Duration("elapsed", time.Since(started)),
		)
	}()

	if !ctx.IsGet() && !ctx.IsHead() {
		s.writeError(ctx, &apiError{
			status: fasthttp.StatusMethodNotAllowed,
			body:   repertoiredto.Error{Code: repertoiredto.CodeBadRequest, Message: "only GET is supported"},
		})
		return
	}

	switch string(ctx.Path()) {
	case "/healthz":
		s.handleHealth(ctx)
	case "/moves":
		s.handleMoves(ctx)
	case "/expand":
		s.handleExpand(ctx)
	case "/evaluate":
		s.handleEvaluate(ctx)
	case "/evaluate/tree":
		s.handleEvaluateTree(ctx)
	case "/book":
		s.handleBook(ctx)
	case "/render":
		s.handleRender(ctx)
	default:
		s.writeError(ctx, &apiError{
			status: fasthttp.StatusNotFound,
			body:   repertoiredto.Error{Code: repertoiredto.CodeNotFound, Message: fmt.Sprintf("no route for %s", ctx.Path())},
		})
	}
}

func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	s.logger.Info("http_listening", zap.String("addr", ln.Addr().String()))
	return s.Serve(ctx, ln)
}

// Serve blocks until ln fails or ctx is cancelled, in which case in-flight
// requests get shutdownTimeout to finish.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() { errCh <- s.srv.Serve(ln) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.srv.ShutdownWithContext(shutdownCtx); err != nil {
			s.logger.Warn("http_shutdown_failed", zap.Error(err))
			return err
		}
		<-errCh
		s.logger.Info("http_stopped")
		return nil
	}
}

type apiError struct {
	status int
	body   repertoiredto.Error
}

func (e *apiError) Error() string { return e.body.Error() }

func badRequest(format string, args ...any) error {
	return &apiError{
		status: fasthttp.StatusBadRequest,
		body:   repertoiredto.Error{Code: repertoiredto.CodeBadRequest, Message: fmt.Sprintf(format, args...)},
	}
}

func unavailable(what string) error {
	return &apiError{
		status: fasthttp.StatusServiceUnavailable,
		body:   repertoiredto.Error{Code: repertoiredto.CodeUnavailable, Message: what + " is not configured"},
	}
}

var errEngine = errors.New("engine failure")

func engineFailure(err error) error {
	return fmt.Errorf("%w: %w", errEngine, err)
}

// toAPIError maps domain errors onto HTTP statuses and error codes.
func toAPIError(err error) *apiError {
	var api *apiError
	if errors.As(err, &api) {
		return api
	}
	mk := func(status int, code string, retryable bool) *apiError {
		return &apiError{status: status, body: repertoiredto.Error{Code: code, Message: err.Error(), Retryable: retryable}}
	}
	switch {
	case errors.Is(err, position.ErrInvalidFEN):
		return mk(fasthttp.StatusBadRequest, repertoiredto.CodeInvalidFEN, false)
	case errors.Is(err, position.ErrInvalidPGN):
		return mk(fasthttp.StatusBadRequest, repertoiredto.CodeInvalidPGN, false)
	case errors.Is(err, position.ErrIllegalMove):
		return mk(fasthttp.StatusUnprocessableEntity, repertoiredto.CodeIllegalMove, false)
	case errors.Is(err, tree.ErrTooManyLines):
		return mk(fasthttp.StatusUnprocessableEntity, repertoiredto.CodeTooManyLines, false)
	case errors.Is(err, store.ErrRunNotFound):
		return mk(fasthttp.StatusNotFound, repertoiredto.CodeNotFound, false)
	case errors.Is(err, context.DeadlineExceeded):
		return mk(fasthttp.StatusGatewayTimeout, repertoiredto.CodeEngineFailure, true)
	case errors.Is(err, errEngine):
		return mk(fasthttp.StatusBadGateway, repertoiredto.CodeEngineFailure, true)
	default:
		return mk(fasthttp.StatusInternalServerError, repertoiredto.CodeUnavailable, false)
	}
}

func (s *Server) writeError(ctx *fasthttp.RequestCtx, err error) {
	api := toAPIError(err)
	if api.status >= fasthttp.StatusInternalServerError {
		s.logger.Warn("http_request_failed", zap.ByteString("path", ctx.Path()), zap.Error(err))
	}
	s.writeJSON(ctx, api.status, api.body)
}

func (s *Server) writeJSON(ctx *fasthttp.RequestCtx, status int, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		s.logger.Error("http_encode_failed", zap.Error(err))
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		return
	}
	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json")
	ctx.SetBody(payload)
}
