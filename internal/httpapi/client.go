package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/park285/repertoire/pkg/repertoiredto"
)

// Client talks to a running repertoire server.
type Client struct {
	baseURL string
	http    *fasthttp.Client

	defaultTimeout time.Duration
	retryMax       int
}

type ClientOption func(*Client)

func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.defaultTimeout = d }
}

func WithRetry(max int) ClientOption {
	return func(c *Client) { c.retryMax = max }
}

// WithDial replaces the TCP dialer, e.g. with an in-memory listener.
func WithDial(dial func(addr string) (net.Conn, error)) ClientOption {
	return func(c *Client) { c.http.Dial = dial }
}

func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		http:           &fasthttp.Client{ReadTimeout: 5 * time.Minute, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 16},
		defaultTimeout: 5 * time.Minute,
		retryMax:       3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type MovesQuery struct {
	FEN string
	PGN string
}

type ExpandQuery struct {
	Pattern  string
	Wildcard string
	StartFEN string
	MaxLines int
	Tree     bool
}

type EvaluateQuery struct {
	FEN            string
	PGN            string
	Depth          int
	MultiPV        int
	MoveTimeMillis int
}

type EvaluateTreeQuery struct {
	ExpandQuery
	Depth int
	Store bool
}

type RenderQuery struct {
	FEN        string
	PGN        string
	LastMove   string
	SquareSize int
	Header     string
	Caption    string
}

type query []string

func (q query) add(key, value string) query {
	if value == "" {
		return q
	}
	return append(q, key, value)
}

func (q query) addInt(key string, v int) query {
	if v == 0 {
		return q
	}
	return append(q, key, strconv.Itoa(v))
}

func (q query) addBool(key string, v bool) query {
	if !v {
		return q
	}
	return append(q, key, "1")
}

func (q ExpandQuery) args() query {
	return query{}.
		add("pattern", q.Pattern).
		add("wildcard", q.Wildcard).
		add("start_fen", q.StartFEN).
		addInt("max_lines", q.MaxLines).
		addBool("tree", q.Tree)
}

func (c *Client) Health(ctx context.Context) (*repertoiredto.HealthResponse, error) {
	var out repertoiredto.HealthResponse
	if err := c.getJSON(ctx, "/healthz", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Moves(ctx context.Context, q MovesQuery) (*repertoiredto.MovesResponse, error) {
	var out repertoiredto.MovesResponse
	args := query{}.add("fen", q.FEN).add("pgn", q.PGN)
	if err := c.getJSON(ctx, "/moves", args, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Expand(ctx context.Context, q ExpandQuery) (*repertoiredto.ExpandResponse, error) {
	var out repertoiredto.ExpandResponse
	if err := c.getJSON(ctx, "/expand", q.args(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Evaluate(ctx context.Context, q EvaluateQuery) (*repertoiredto.EvaluateResponse, error) {
	var out repertoiredto.EvaluateResponse
	args := query{}.
		add("fen", q.FEN).
		add("pgn", q.PGN).
		addInt("depth", q.Depth).
		addInt("multipv", q.MultiPV).
		addInt("movetime_ms", q.MoveTimeMillis)
	if err := c.getJSON(ctx, "/evaluate", args, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) EvaluateTree(ctx context.Context, q EvaluateTreeQuery) (*repertoiredto.EvaluateTreeResponse, error) {
	var out repertoiredto.EvaluateTreeResponse
	args := q.ExpandQuery.args().addInt("depth", q.Depth).addBool("store", q.Store)
	if err := c.getJSON(ctx, "/evaluate/tree", args, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Book(ctx context.Context, fen string) (*repertoiredto.BookResponse, error) {
	var out repertoiredto.BookResponse
	if err := c.getJSON(ctx, "/book", query{}.add("fen", fen), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Render returns the PNG body.
func (c *Client) Render(ctx context.Context, q RenderQuery) ([]byte, error) {
	args := query{}.
		add("fen", q.FEN).
		add("pgn", q.PGN).
		add("last_move", q.LastMove).
		addInt("size", q.SquareSize).
		add("header", q.Header).
		add("caption", q.Caption)
	return c.get(ctx, "/render", args)
}

func (c *Client) getJSON(ctx context.Context, path string, args query, out any) error {
	body, err := c.get(ctx, path, args)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// get issues a GET and returns a copy of the body. Every endpoint is
// idempotent, so retryable failures are retried with backoff.
func (c *Client) get(ctx context.Context, path string, args query) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(fasthttp.MethodGet)
	req.SetRequestURI(c.baseURL + path)
	qa := req.URI().QueryArgs()
	for i := 0; i+1 < len(args); i += 2 {
		qa.Add(args[i], args[i+1])
	}

	attempts := c.retryMax
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		deadline := c.computeDeadline(ctx)
		if err := c.http.DoDeadline(req, resp, deadline); err != nil {
			if attempt == attempts {
				return nil, fmt.Errorf("request failed: %w", err)
			}
			lastErr = err
			if sleepErr := c.sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				return nil, lastErr
			}
			continue
		}

		status := resp.StatusCode()
		if status < 200 || status >= 300 {
			err := decodeError(status, resp.Body())
			if attempt == attempts || !shouldRetry(status, err) {
				return nil, err
			}
			lastErr = err
			if sleepErr := c.sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				return nil, lastErr
			}
			continue
		}
		return append([]byte(nil), resp.Body()...), nil
	}

	if lastErr == nil {
		lastErr = errors.New("unknown error")
	}
	return nil, lastErr
}

// decodeError wraps the server's error body so callers can errors.As it into
// a repertoiredto.Error.
func decodeError(status int, body []byte) error {
	var apiErr repertoiredto.Error
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Code != "" {
		return fmt.Errorf("repertoire api status=%d: %w", status, apiErr)
	}
	return fmt.Errorf("repertoire api error: status=%d body=%s", status, truncate(string(body), 512))
}

func (c *Client) computeDeadline(ctx context.Context) time.Time {
	clientDL := time.Now().Add(c.defaultTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(clientDL) {
		return dl
	}
	return clientDL
}

func (c *Client) sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func backoffDuration(attempt int) time.Duration {
	attempt = min(max(attempt, 1), 6)
	return time.Duration(1<<uint(attempt-1)) * 100 * time.Millisecond
}

// shouldRetry honours the server's retryable flag when the body carried one.
func shouldRetry(code int, err error) bool {
	var apiErr repertoiredto.Error
	if errors.As(err, &apiErr) {
		return apiErr.Retryable
	}
	switch code {
	case fasthttp.StatusBadGateway, fasthttp.StatusServiceUnavailable, fasthttp.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
