package forwardedheaders

import (
	"context"
	"net/netip"
)

// typicalChainCapacity is the initial capacity used when splitting forwarded
// headers.
//
// Most deployments have short chains (around 1-5 hops). Preallocating 8 avoids
// reallocations in common cases without meaningful memory overhead.
const typicalChainCapacity = 8

// forwardedValues holds the split entries of each honored header in wire
// order (leftmost, farthest hop first).
type forwardedValues struct {
	forwardedFor   []string
	forwardedProto []string
	forwardedHost  []string
}

// hop is one link of the forwarding chain, nearest to the server first.
// Fields are empty when the corresponding header had no value for this hop.
type hop struct {
	ipAndPortText string
	scheme        string
	host          string
}

// chainWalk is the request-local resolution state.
type chainWalk struct {
	remoteAddr netip.AddrPort
	scheme     string
	host       string

	changed ForwardedHeaders

	// consumed counts hops folded into the resolution.
	consumed int
	stopped  bool
	aborted  bool
}

func (r *Resolver) gatherForwardedValues(headers HeaderStore) forwardedValues {
	cfg := r.config
	values := forwardedValues{}

	if cfg.forwardedHeaders.Has(ForwardedFor) {
		values.forwardedFor = headerEntries(headers, cfg.forwardedForHeader)
	}
	if cfg.forwardedHeaders.Has(ForwardedProto) {
		values.forwardedProto = headerEntries(headers, cfg.forwardedProtoHeader)
	}
	if cfg.forwardedHeaders.Has(ForwardedHost) {
		values.forwardedHost = headerEntries(headers, cfg.forwardedHostHeader)
	}

	return values
}

// counts returns the entry count of every honored family, in For, Proto,
// Host order.
func (v forwardedValues) counts(honored ForwardedHeaders) []int {
	counts := make([]int, 0, 3)
	if honored.Has(ForwardedFor) {
		counts = append(counts, len(v.forwardedFor))
	}
	if honored.Has(ForwardedProto) {
		counts = append(counts, len(v.forwardedProto))
	}
	if honored.Has(ForwardedHost) {
		counts = append(counts, len(v.forwardedHost))
	}
	return counts
}

// symmetric reports whether every honored family has the same entry count.
func (v forwardedValues) symmetric(honored ForwardedHeaders) bool {
	counts := v.counts(honored)
	for _, count := range counts[min(1, len(counts)):] {
		if count != counts[0] {
			return false
		}
	}
	return true
}

// hops pairs the entries into hop records, reversed so index 0 is the value
// appended by the proxy nearest to the server. limit caps the number of hops;
// 0 means unlimited.
func (v forwardedValues) hops(honored ForwardedHeaders, limit int) []hop {
	entryCount := 0
	for _, count := range v.counts(honored) {
		entryCount = max(entryCount, count)
	}
	if limit > 0 {
		entryCount = min(entryCount, limit)
	}
	if entryCount == 0 {
		return nil
	}

	hops := make([]hop, entryCount)
	for i := range hops {
		hops[i] = hop{
			ipAndPortText: reverseEntry(v.forwardedFor, i),
			scheme:        reverseEntry(v.forwardedProto, i),
			host:          reverseEntry(v.forwardedHost, i),
		}
	}

	return hops
}

// reverseEntry returns the i-th entry counted from the right, or "" when the
// header is shorter.
func reverseEntry(entries []string, i int) string {
	if i >= len(entries) {
		return ""
	}
	return entries[len(entries)-1-i]
}

// walkChain walks hops nearest-first.
//
// The peer trust check runs before each hop's address is accepted, so a hop is
// honored only when the address that delivered it is a known proxy. A missing
// peer address does not block the first hop.
func (r *Resolver) walkChain(ctx context.Context, state *RequestState, hops []hop) chainWalk {
	cfg := r.config
	honored := cfg.forwardedHeaders
	checkKnownProxies := !cfg.knownProxyMatch.empty()

	walk := chainWalk{remoteAddr: state.RemoteAddr}

	for ; walk.consumed < len(hops); walk.consumed++ {
		current := hops[walk.consumed]

		if honored.Has(ForwardedFor) {
			if walk.remoteAddr.IsValid() && checkKnownProxies && !cfg.knownProxyMatch.contains(walk.remoteAddr.Addr()) {
				r.recordHopEvent(ctx, state, securityEventUntrustedProxy, "stopping at unknown proxy",
					"hop", walk.consumed,
					"proxy", formatEndpoint(walk.remoteAddr),
				)
				walk.stopped = true
				return walk
			}

			if addrPort, ok := parseEndpoint(current.ipAndPortText); ok {
				walk.remoteAddr = addrPort
				walk.changed |= ForwardedFor
			} else if current.ipAndPortText != "" {
				r.recordHopEvent(ctx, state, securityEventInvalidFor, "stopping at unparsable forwarded address",
					"hop", walk.consumed,
					"value", current.ipAndPortText,
				)
				walk.stopped = true
				return walk
			} else if cfg.requireHeaderSymmetry {
				r.recordAbort(ctx, state, securityEventMissingFor, "forwarded address missing while header symmetry is required",
					"hop", walk.consumed,
				)
				walk.aborted = true
				return walk
			}
		}

		if honored.Has(ForwardedProto) {
			if current.scheme != "" && isValidScheme(current.scheme) {
				walk.scheme = current.scheme
				walk.changed |= ForwardedProto
			} else if cfg.requireHeaderSymmetry {
				r.recordAbort(ctx, state, securityEventInvalidProto, "forwarded scheme missing or invalid while header symmetry is required",
					"hop", walk.consumed,
					"value", current.scheme,
				)
				walk.aborted = true
				return walk
			} else if current.scheme != "" {
				r.recordHopEvent(ctx, state, securityEventInvalidProto, "ignoring invalid forwarded scheme",
					"hop", walk.consumed,
					"value", current.scheme,
				)
			}
		}

		if honored.Has(ForwardedHost) {
			event, acceptable := r.checkHost(current.host)
			if acceptable {
				walk.host = current.host
				walk.changed |= ForwardedHost
			} else if cfg.requireHeaderSymmetry {
				r.recordAbort(ctx, state, event, "forwarded host missing, invalid or not allowed while header symmetry is required",
					"hop", walk.consumed,
					"value", current.host,
				)
				walk.aborted = true
				return walk
			} else if current.host != "" {
				r.recordHopEvent(ctx, state, event, "ignoring forwarded host",
					"hop", walk.consumed,
					"value", current.host,
				)
			}
		}
	}

	return walk
}

// checkHost validates a forwarded host and matches it against the allow-list.
// The returned event names the rejection reason.
func (r *Resolver) checkHost(host string) (event string, ok bool) {
	if host == "" || !isValidHost(host) {
		return securityEventInvalidHost, false
	}
	if !r.config.hostFilter.allows(host) {
		return securityEventHostNotAllowed, false
	}
	return "", true
}

// applyWalk writes the resolved identity to state and rewrites the forwarded
// headers: replaced values go to the original-value headers and consumed
// entries are removed from the forwarded headers.
func (r *Resolver) applyWalk(state *RequestState, values forwardedValues, walk chainWalk) {
	cfg := r.config
	headers := state.Headers

	if walk.changed.Has(ForwardedFor) {
		if state.RemoteAddr.IsValid() {
			headers.Set(cfg.originalForHeader, formatEndpoint(state.RemoteAddr))
		}
		truncateHeader(headers, cfg.forwardedForHeader, values.forwardedFor, walk.consumed)
		state.RemoteAddr = walk.remoteAddr
	}

	if walk.changed.Has(ForwardedProto) {
		if state.Scheme != "" {
			headers.Set(cfg.originalProtoHeader, state.Scheme)
		}
		truncateHeader(headers, cfg.forwardedProtoHeader, values.forwardedProto, walk.consumed)
		state.Scheme = walk.scheme
	}

	if walk.changed.Has(ForwardedHost) {
		if state.Host != "" {
			headers.Set(cfg.originalHostHeader, state.Host)
		}
		truncateHeader(headers, cfg.forwardedHostHeader, values.forwardedHost, walk.consumed)
		state.Host = walk.host
	}
}
