package forwardedheaders

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// Resolver rewrites a request's peer address, scheme and host from the
// forwarded headers added by known proxies.
//
// Resolver instances are safe for concurrent reuse.
type Resolver struct {
	config *config
}

// New creates a Resolver from one or more Option builders.
func New(opts ...Option) (*Resolver, error) {
	cfg, err := configFromOptions(opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	return &Resolver{config: cfg}, nil
}

// ForwardedHeaders returns the header families this resolver honors.
func (r *Resolver) ForwardedHeaders() ForwardedHeaders {
	return r.config.forwardedHeaders
}

// ResolveState walks the forwarded headers of state and, when at least one
// trusted hop contributed a value, rewrites state and its headers in place.
//
// Resolution never fails: untrusted or malformed chains leave state either
// untouched or resolved up to the last trusted hop, as reported by the
// returned Result.
func (r *Resolver) ResolveState(state *RequestState) Result {
	if state == nil {
		return Result{Outcome: OutcomeUnchanged}
	}

	ctx := requestStateContext(state)
	result := r.resolve(ctx, state)
	r.config.metrics.RecordResolution(result.Outcome.String())

	return result
}

func (r *Resolver) resolve(ctx context.Context, state *RequestState) Result {
	cfg := r.config
	unchanged := func(outcome Outcome) Result {
		return Result{
			Outcome:    outcome,
			RemoteAddr: state.RemoteAddr,
			Scheme:     state.Scheme,
			Host:       state.Host,
		}
	}

	if cfg.forwardedHeaders == ForwardedNone {
		return unchanged(OutcomeUnchanged)
	}

	values := r.gatherForwardedValues(state.Headers)

	if cfg.requireHeaderSymmetry && !values.symmetric(cfg.forwardedHeaders) {
		r.recordAbort(ctx, state, securityEventHeaderCountMismatch, "forwarded header value counts differ while header symmetry is required",
			"for_count", len(values.forwardedFor),
			"proto_count", len(values.forwardedProto),
			"host_count", len(values.forwardedHost),
		)
		return unchanged(OutcomeAborted)
	}

	hops := values.hops(cfg.forwardedHeaders, cfg.forwardLimit)
	if len(hops) == 0 {
		return unchanged(OutcomeUnchanged)
	}

	walk := r.walkChain(ctx, state, hops)
	if walk.aborted {
		return unchanged(OutcomeAborted)
	}
	if walk.changed == ForwardedNone {
		return unchanged(OutcomeUnchanged)
	}

	r.applyWalk(state, values, walk)

	outcome := OutcomeApplied
	if walk.stopped {
		outcome = OutcomePartial
	}

	return Result{
		Outcome:      outcome,
		HopsConsumed: walk.consumed,
		Changed:      walk.changed,
		RemoteAddr:   state.RemoteAddr,
		Scheme:       state.Scheme,
		Host:         state.Host,
	}
}

// Apply resolves r in place.
//
// The peer comes from RemoteAddr (unparsable values count as no peer), the
// scheme from URL.Scheme or, when empty, from the presence of TLS, and the
// host from Host. On change, RemoteAddr is rewritten as "ip:port", URL.Scheme
// and Host are replaced.
func (r *Resolver) Apply(req *http.Request) Result {
	if req == nil {
		return Result{Outcome: OutcomeUnchanged}
	}

	state := RequestState{
		Context:    req.Context(),
		Headers:    req.Header,
		RemoteAddr: parseRemoteAddr(req.RemoteAddr),
		Scheme:     requestScheme(req),
		Host:       req.Host,
		Path:       requestPath(req),
	}

	result := r.ResolveState(&state)
	if !result.Applied() {
		return result
	}

	if result.Changed.Has(ForwardedFor) {
		req.RemoteAddr = formatEndpoint(state.RemoteAddr)
	}
	if result.Changed.Has(ForwardedProto) {
		if req.URL == nil {
			req.URL = &url.URL{}
		}
		req.URL.Scheme = state.Scheme
	}
	if result.Changed.Has(ForwardedHost) {
		req.Host = state.Host
	}

	return result
}

// Middleware returns an http.Handler that applies the resolver to every
// request before calling next. The Result is available to next through
// ResultFromRequest.
func (r *Resolver) Middleware(next http.Handler) http.Handler {
	if next == nil {
		panic("forwardedheaders: nil next handler")
	}

	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		result := r.Apply(req)
		next.ServeHTTP(w, req.WithContext(WithResult(req.Context(), result)))
	})
}

// ApplyWithOptions is a one-shot convenience helper.
//
// It constructs a temporary resolver from opts and applies it to req.
func ApplyWithOptions(req *http.Request, opts ...Option) (Result, error) {
	resolver, err := New(opts...)
	if err != nil {
		return Result{}, err
	}

	return resolver.Apply(req), nil
}

func requestScheme(req *http.Request) string {
	if req.URL != nil && req.URL.Scheme != "" {
		return req.URL.Scheme
	}
	if req.TLS != nil {
		return "https"
	}
	return "http"
}

func requestPath(req *http.Request) string {
	if req.URL == nil {
		return ""
	}
	return req.URL.Path
}

func (r *Resolver) logAttrs(state *RequestState, event string, attrs []any) []any {
	baseAttrs := []any{
		"event", event,
		"path", state.Path,
		"remote_addr", formatEndpoint(state.RemoteAddr),
	}

	return append(baseAttrs, attrs...)
}

// recordHopEvent records a per-hop rejection that stops the walk or skips a
// field. These are expected on the open internet and logged at debug level.
func (r *Resolver) recordHopEvent(ctx context.Context, state *RequestState, event, msg string, attrs ...any) {
	r.config.metrics.RecordSecurityEvent(event)
	r.config.logger.DebugContext(ctx, msg, r.logAttrs(state, event, attrs)...)
}

// recordAbort records a header symmetry violation that discards every change.
func (r *Resolver) recordAbort(ctx context.Context, state *RequestState, event, msg string, attrs ...any) {
	r.config.metrics.RecordSecurityEvent(event)
	r.config.logger.WarnContext(ctx, msg, r.logAttrs(state, event, attrs)...)
}
