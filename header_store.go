package forwardedheaders

import (
	"context"
	"net/netip"
	"strings"
)

// HeaderStore provides read and write access to request headers by name.
//
// Values must return one slice entry per received header line; the resolver
// splits every line on commas itself.
//
// net/http's http.Header satisfies this interface directly.
type HeaderStore interface {
	Values(name string) []string
	Set(name, value string)
	Del(name string)
}

// RequestState is the framework-agnostic view of an inbound request that the
// resolver reads and rewrites.
//
// RemoteAddr is the zero netip.AddrPort when the transport does not expose a
// peer address. Context defaults to context.Background() when nil; Path is
// only used in log attributes.
type RequestState struct {
	Context    context.Context
	Headers    HeaderStore
	RemoteAddr netip.AddrPort
	Scheme     string
	Host       string
	Path       string
}

func requestStateContext(state *RequestState) context.Context {
	if state == nil || state.Context == nil {
		return context.Background()
	}

	return state.Context
}

// headerEntries returns the comma-separated entries of header name in wire
// order, leftmost (farthest hop) first.
//
// Entries are trimmed, surrounding double quotes are removed and empty
// entries are dropped. Multiple header lines are concatenated in order.
func headerEntries(headers HeaderStore, name string) []string {
	if headers == nil || isNilInterface(headers) {
		return nil
	}

	values := headers.Values(name)
	if len(values) == 0 {
		return nil
	}

	entries := make([]string, 0, typicalChainCapacity)
	for _, value := range values {
		for part := range strings.SplitSeq(value, ",") {
			entry := strings.TrimSpace(trimMatchedChar(strings.TrimSpace(part), '"'))
			if entry != "" {
				entries = append(entries, entry)
			}
		}
	}

	return entries
}

// truncateHeader keeps the leftmost len(entries)-consumed entries of header
// name, or removes the header when every entry was consumed.
func truncateHeader(headers HeaderStore, name string, entries []string, consumed int) {
	remaining := len(entries) - consumed
	if remaining <= 0 {
		headers.Del(name)
		return
	}

	headers.Set(name, strings.Join(entries[:remaining], ", "))
}
