package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sort"

	"github.com/abczzz13/forwardedheaders"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gopkg.in/yaml.v3"
)

const requestIDHeader = "X-Request-Id"

// requestID returns the caller's request ID or a fresh UUID.
func requestID(req *http.Request) string {
	if id := req.Header.Get(requestIDHeader); id != "" {
		return id
	}
	return uuid.New().String()
}

// echoResponse is the identity a request carries after resolution.
type echoResponse struct {
	RequestID    string              `json:"request_id,omitempty" yaml:"request_id,omitempty"`
	Outcome      string              `json:"outcome" yaml:"outcome"`
	HopsConsumed int                 `json:"hops_consumed" yaml:"hops_consumed"`
	Changed      string              `json:"changed" yaml:"changed"`
	RemoteAddr   string              `json:"remote_addr" yaml:"remote_addr"`
	Scheme       string              `json:"scheme" yaml:"scheme"`
	Host         string              `json:"host" yaml:"host"`
	Method       string              `json:"method,omitempty" yaml:"method,omitempty"`
	Path         string              `json:"path,omitempty" yaml:"path,omitempty"`
	Headers      map[string][]string `json:"headers,omitempty" yaml:"headers,omitempty"`
}

// echoedHeaders lists the headers worth showing after resolution.
func echoedHeaders(names ...string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		key := http.CanonicalHeaderKey(name)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}

func newEchoResponse(req *http.Request, result forwardedheaders.Result, headerNames []string) echoResponse {
	resp := echoResponse{
		Outcome:      result.Outcome.String(),
		HopsConsumed: result.HopsConsumed,
		Changed:      result.Changed.String(),
		RemoteAddr:   req.RemoteAddr,
		Scheme:       result.Scheme,
		Host:         req.Host,
		Method:       req.Method,
	}
	if req.URL != nil {
		resp.Path = req.URL.Path
	}

	for _, name := range headerNames {
		values := req.Header.Values(name)
		if len(values) == 0 {
			continue
		}
		if resp.Headers == nil {
			resp.Headers = make(map[string][]string)
		}
		resp.Headers[name] = values
	}

	return resp
}

// newRouter mounts the echo endpoint behind the resolver middleware, plus
// /metrics for gatherer and /healthz.
func newRouter(resolver *forwardedheaders.Resolver, headerNames []string, gatherer prom.Gatherer, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Group(func(r chi.Router) {
		r.Use(resolver.Middleware)
		r.Get("/*", echoHandler(headerNames, logger))
	})

	return r
}

func echoHandler(headerNames []string, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		result, ok := forwardedheaders.ResultFromRequest(req)
		if !ok {
			http.Error(w, "resolution result missing", http.StatusInternalServerError)
			return
		}

		resp := newEchoResponse(req, result, headerNames)
		resp.RequestID = requestID(req)
		w.Header().Set(requestIDHeader, resp.RequestID)

		if err := writeEcho(w, req.URL.Query().Get("format"), resp); err != nil {
			logger.ErrorContext(req.Context(), "writing echo response", "request_id", resp.RequestID, "error", err)
		}
	}
}

func writeEcho(w http.ResponseWriter, format string, resp echoResponse) error {
	switch format {
	case "yaml":
		w.Header().Set("Content-Type", "application/yaml")
		enc := yaml.NewEncoder(w)
		if err := enc.Encode(resp); err != nil {
			return fmt.Errorf("encoding yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("encoding yaml: %w", err)
		}
	case "", "json":
		w.Header().Set("Content-Type", "application/json")
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(resp); err != nil {
			return fmt.Errorf("encoding json: %w", err)
		}
	default:
		http.Error(w, "unsupported format "+format, http.StatusBadRequest)
	}
	return nil
}
