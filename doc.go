// Package forwardedheaders resolves the original client address, scheme and
// host of HTTP requests that reach the application through one or more
// trusted reverse proxies, by consuming the X-Forwarded-For,
// X-Forwarded-Proto and X-Forwarded-Host headers those proxies append.
//
// # Features
//
//   - Hop-by-hop trust: a forwarded value is honored only when the address that
//     delivered it is a known proxy or inside a known network
//   - Strict token grammar for addresses, schemes and hosts, plus an optional
//     host allow-list with punycode normalisation and subdomain wildcards
//   - Optional header symmetry: all-or-nothing processing when every proxy is
//     expected to set every header
//   - Forward limit to bound how many hops are consumed
//   - Consumed entries are removed from the forwarded headers and the replaced
//     values are kept in X-Original-For/-Proto/-Host
//   - Optional observability with context-aware logging and pluggable metrics
//
// # Basic Usage
//
// Behind a reverse proxy on the same host:
//
//	resolver, err := forwardedheaders.New(forwardedheaders.PresetLoopbackReverseProxy())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	http.ListenAndServe(":8080", resolver.Middleware(mux))
//
// Handlers behind the middleware can inspect what happened with
// ResultFromRequest.
//
// # Multiple Proxies
//
// Walk up to three hops through private-network load balancers, honoring
// only a fixed set of hosts:
//
//	networks, _ := forwardedheaders.ParseCIDRs("10.0.0.0/8")
//	resolver, err := forwardedheaders.New(
//	    forwardedheaders.WithForwardedHeaders(forwardedheaders.ForwardedAll),
//	    forwardedheaders.KnownNetworks(networks...),
//	    forwardedheaders.ForwardLimit(3),
//	    forwardedheaders.AllowedHosts("example.com", "*.example.com"),
//	)
//
// The walk starts at the transport peer and moves one entry to the left for
// every hop whose delivering address is trusted. It stops, keeping what was
// resolved so far, at the first unknown proxy or unparsable address.
//
// # Framework-Agnostic Use
//
// ResolveState works on a RequestState, so the resolver can be used with any
// server that exposes headers through HeaderStore:
//
//	state := forwardedheaders.RequestState{
//	    Headers:    headers,
//	    RemoteAddr: peer,
//	    Scheme:     "http",
//	    Host:       host,
//	}
//	result := resolver.ResolveState(&state)
//
// # Observability
//
// Add logging and metrics for production monitoring
// (Prometheus adapter package: github.com/abczzz13/forwardedheaders/prometheus).
// The logger receives the request context, allowing trace/span IDs to flow
// through.
//
//	resolver, err := forwardedheaders.New(
//	    forwardedheaders.PresetLoopbackReverseProxy(),
//	    forwardedheaders.WithLogger(slog.Default()),
//	    fwdprom.WithMetrics(),
//	)
//
// # Security Considerations
//
//   - Without any known proxy or network, every peer is trusted. The defaults
//     trust loopback only; ClearKnownProxies removes them.
//   - A request without a peer address (some transports hide it) can consume
//     one hop without a trust check.
//   - Enable RequireHeaderSymmetry when every proxy in front of the app sets
//     every honored header; partial or mismatched chains are then ignored.
//
// # Thread Safety
//
// Resolver instances are safe for concurrent use. They are typically created
// once at application startup and reused across all requests.
package forwardedheaders
