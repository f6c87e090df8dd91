package forwardedheaders

import (
	"crypto/tls"
	"net/http"
	"net/netip"
	"net/url"
	"testing"
)

func mustNewResolver(t *testing.T, opts ...Option) *Resolver {
	t.Helper()

	resolver, err := New(opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	return resolver
}

func mustParseCIDRs(t *testing.T, cidrs ...string) []netip.Prefix {
	t.Helper()

	prefixes, err := ParseCIDRs(cidrs...)
	if err != nil {
		t.Fatalf("ParseCIDRs() error = %v", err)
	}

	return prefixes
}

func newTestRequest(remoteAddr, path string) *http.Request {
	req := &http.Request{
		RemoteAddr: remoteAddr,
		Header:     make(http.Header),
		Host:       "app.internal",
	}

	if path != "" {
		req.URL = &url.URL{Path: path}
	}

	return req
}

// newTestState builds a RequestState with the given peer and forwarded
// headers. An empty peer yields no peer address.
func newTestState(peer string, headers map[string]string) *RequestState {
	h := make(http.Header)
	for name, value := range headers {
		h.Set(name, value)
	}

	state := &RequestState{
		Headers: h,
		Scheme:  "http",
		Host:    "app.internal",
		Path:    "/",
	}
	if peer != "" {
		state.RemoteAddr = netip.MustParseAddrPort(peer)
	}

	return state
}

func mustParseAddrPort(t *testing.T, s string) netip.AddrPort {
	t.Helper()

	addrPort, err := netip.ParseAddrPort(s)
	if err != nil {
		t.Fatalf("ParseAddrPort(%q) error = %v", s, err)
	}

	return addrPort
}

var tlsStateForTest = tls.ConnectionState{HandshakeComplete: true}
