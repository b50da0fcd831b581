// Package modelclient implements the Model Client Session (§4.H): a
// per-request streaming connection wrapper that turns rate-limit and
// turn-state headers into events, triggers a models-catalog refresh on an
// etag mismatch, and retries transport failures with jittered backoff.
package modelclient

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/codex-engine/codex/internal/models"
	"github.com/codex-engine/codex/internal/observability"
	"github.com/codex-engine/codex/internal/protocol"
	"github.com/codex-engine/codex/internal/ratelimit"
	"github.com/codex-engine/codex/internal/retry"
)

// Transport opens one streaming connection for a model turn. turnState is
// the value to echo back as the x-codex-turn-state request header, empty
// on the first request of a turn. The returned Stream yields the
// already-decoded ParserEvent sequence (stream decoding is the Stream
// Parser's job, §4.A); Transport is only responsible for the wire
// round-trip and exposing response headers.
type Transport interface {
	Open(ctx context.Context, req protocol.TurnRequest, turnState string) (*StreamResponse, error)
}

// StreamResponse is what a Transport hands back for one model turn.
type StreamResponse struct {
	Headers http.Header
	Stream  protocol.EventStream
}

// ModelsRefresher refreshes the model catalog; invoked at most once per
// turn on an X-Models-Etag mismatch.
type ModelsRefresher interface {
	Refresh(ctx context.Context) error
}

// CatalogRefresher adapts a remote model-list fetch into a ModelsRefresher,
// registering whatever Fetch returns into Catalog (internal/models).
type CatalogRefresher struct {
	Catalog *models.Catalog
	Fetch   func(ctx context.Context) ([]*models.Model, error)
}

// Refresh implements ModelsRefresher.
func (r *CatalogRefresher) Refresh(ctx context.Context) error {
	if r.Fetch == nil {
		return nil
	}
	fetched, err := r.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("modelclient: refresh catalog: %w", err)
	}
	for _, m := range fetched {
		r.Catalog.Register(m)
	}
	return nil
}

// Session implements protocol.ModelSession for one provider. It is shared
// across every StartTurn call for a given Turn Context's active turn;
// ResetTurnState must be called when a new top-level turn begins (the
// Turn Scheduler's responsibility, §4.F) so turn-state and the
// once-per-turn refresh guard don't leak across turns.
type Session struct {
	provider  string
	transport Transport
	events    chan<- protocol.EventMsg
	refresher ModelsRefresher
	retry     retry.Config
	idleTimeout time.Duration
	limiter   *ratelimit.Bucket

	mu                sync.Mutex
	turnState         string
	modelsEtag        string
	refreshedThisTurn bool
	rateLimits        protocol.RateLimitSnapshot

	// Logger, if set, records retries, catalog refreshes, and rate-limit
	// updates. Nil disables logging entirely.
	Logger *observability.Logger
}

func (s *Session) logf(ctx context.Context, msg string, args ...any) {
	if s.Logger == nil {
		return
	}
	s.Logger.Debug(ctx, msg, append(args, "provider", s.provider)...)
}

// Option configures a Session.
type Option func(*Session)

// WithRetry overrides the default retry config.
func WithRetry(cfg retry.Config) Option { return func(s *Session) { s.retry = cfg } }

// WithIdleTimeout bounds how long a single Next call may wait for the
// next stream event before failing.
func WithIdleTimeout(d time.Duration) Option { return func(s *Session) { s.idleTimeout = d } }

// WithLimiter paces outgoing StartTurn attempts against a client-side
// token bucket, independent of the server's own rate-limit headers.
func WithLimiter(b *ratelimit.Bucket) Option { return func(s *Session) { s.limiter = b } }

// NewSession creates a Model Client Session for provider, issuing requests
// through transport. events (optional) receives RateLimitSnapshot updates.
func NewSession(provider string, transport Transport, events chan<- protocol.EventMsg, refresher ModelsRefresher, opts ...Option) *Session {
	s := &Session{
		provider:  provider,
		transport: transport,
		events:    events,
		refresher: refresher,
		retry:     retry.Exponential(4, 200*time.Millisecond, 5*time.Second),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Provider implements protocol.ModelSession.
func (s *Session) Provider() string { return s.provider }

// ResetTurnState clears the echoed turn-state header and the
// once-per-turn refresh guard. Call this when a new top-level turn
// begins, not on every StartTurn (a turn may span several round-trips).
func (s *Session) ResetTurnState() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turnState = ""
	s.refreshedThisTurn = false
}

// RateLimits returns the most recently merged rate-limit snapshot.
func (s *Session) RateLimits() protocol.RateLimitSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rateLimits
}

// StartTurn implements protocol.ModelSession: opens a streaming
// connection, retrying transport failures with jittered backoff, then
// wraps the result with header-derived rate-limit/turn-state handling and
// a per-read idle timeout.
func (s *Session) StartTurn(ctx context.Context, req protocol.TurnRequest) (protocol.EventStream, error) {
	if s.limiter != nil {
		if err := waitForBucket(ctx, s.limiter); err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	turnState := s.turnState
	s.mu.Unlock()

	var resp *StreamResponse
	result := retry.Do(ctx, s.retry, func() error {
		r, err := s.transport.Open(ctx, req, turnState)
		if err != nil {
			return err
		}
		resp = r
		return nil
	})
	if result.Err != nil {
		s.logf(ctx, "modelclient: open stream failed", "attempts", result.Attempts, "error", result.Err)
		return nil, fmt.Errorf("modelclient: open stream after %d attempt(s): %w", result.Attempts, result.Err)
	}
	if result.Attempts > 1 {
		s.logf(ctx, "modelclient: stream opened after retry", "attempts", result.Attempts)
	}

	s.handleHeaders(ctx, resp.Headers)

	return &sessionStream{session: s, inner: resp.Stream, idleTimeout: s.idleTimeout}, nil
}

func (s *Session) handleHeaders(ctx context.Context, headers http.Header) {
	headerSnapshot := parseHeaderRateLimits(headers)

	s.mu.Lock()
	s.rateLimits = s.rateLimits.Merge(headerSnapshot)
	merged := s.rateLimits
	if ts := headers.Get("x-codex-turn-state"); ts != "" {
		s.turnState = ts
	}
	etag := headers.Get("X-Models-Etag")
	needsRefresh := etag != "" && etag != s.modelsEtag && !s.refreshedThisTurn
	if needsRefresh {
		s.modelsEtag = etag
		s.refreshedThisTurn = true
	}
	s.mu.Unlock()

	if needsRefresh && s.refresher != nil {
		s.logf(ctx, "modelclient: refreshing model catalog", "etag", etag)
		if err := s.refresher.Refresh(ctx); err != nil {
			s.logf(ctx, "modelclient: catalog refresh failed", "error", err)
		}
	}
	s.emit(protocol.EventMsg{Type: protocol.EventRateLimits, RateLimits: &merged})
}

func (s *Session) handleInBand(ctx context.Context, ev protocol.ParserEvent) {
	switch ev.Kind {
	case protocol.ParserRateLimits:
		s.mu.Lock()
		s.rateLimits = s.rateLimits.Merge(ev.RateLimits)
		merged := s.rateLimits
		s.mu.Unlock()
		s.emit(protocol.EventMsg{Type: protocol.EventRateLimits, RateLimits: &merged})
	case protocol.ParserModelsEtag:
		s.mu.Lock()
		needsRefresh := ev.ModelsEtag != "" && ev.ModelsEtag != s.modelsEtag && !s.refreshedThisTurn
		if needsRefresh {
			s.modelsEtag = ev.ModelsEtag
			s.refreshedThisTurn = true
		}
		s.mu.Unlock()
		if needsRefresh && s.refresher != nil {
			_ = s.refresher.Refresh(ctx)
		}
	}
}

func (s *Session) emit(e protocol.EventMsg) {
	if s.events != nil {
		s.events <- e
	}
}

func waitForBucket(ctx context.Context, b *ratelimit.Bucket) error {
	for !b.Allow() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(b.WaitTime()):
		}
	}
	return nil
}

// sessionStream wraps the decoded event stream with the in-band
// rate-limit/etag hook and a per-call idle timeout (§5 "model-stream idle
// timeouts are plain wall-clock").
type sessionStream struct {
	session     *Session
	inner       protocol.EventStream
	idleTimeout time.Duration
}

func (st *sessionStream) Next(ctx context.Context) (protocol.ParserEvent, bool, error) {
	readCtx := ctx
	if st.idleTimeout > 0 {
		var cancel context.CancelFunc
		readCtx, cancel = context.WithTimeout(ctx, st.idleTimeout)
		defer cancel()
	}
	ev, ok, err := st.inner.Next(readCtx)
	if err != nil || !ok {
		return ev, ok, err
	}
	st.session.handleInBand(ctx, ev)
	return ev, ok, nil
}

// parseHeaderRateLimits decodes the X-Codex-{Primary,Secondary}-* headers
// into a RateLimitSnapshot (§4.H). Malformed or missing headers leave the
// corresponding zero-valued field, which Merge treats as absent.
func parseHeaderRateLimits(h http.Header) protocol.RateLimitSnapshot {
	var snap protocol.RateLimitSnapshot
	snap.PrimaryUsedPercent = parseFloatHeader(h, "X-Codex-Primary-Used-Percent")
	snap.PrimaryWindowMinutes = parseIntHeader(h, "X-Codex-Primary-Window-Minutes")
	snap.PrimaryResetAt = parseTimeHeader(h, "X-Codex-Primary-Reset-At")
	snap.SecondaryUsedPercent = parseFloatHeader(h, "X-Codex-Secondary-Used-Percent")
	snap.SecondaryWindowMinutes = parseIntHeader(h, "X-Codex-Secondary-Window-Minutes")
	snap.SecondaryResetAt = parseTimeHeader(h, "X-Codex-Secondary-Reset-At")
	return snap
}

func parseFloatHeader(h http.Header, key string) float64 {
	v, err := strconv.ParseFloat(h.Get(key), 64)
	if err != nil {
		return 0
	}
	return v
}

func parseIntHeader(h http.Header, key string) int {
	v, err := strconv.Atoi(h.Get(key))
	if err != nil {
		return 0
	}
	return v
}

func parseTimeHeader(h http.Header, key string) time.Time {
	v := h.Get(key)
	if v == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}
	}
	return t
}
