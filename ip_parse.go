package forwardedheaders

import (
	"net/netip"
	"strings"
)

// parseRemoteAddr parses the transport peer address as reported by
// http.Request.RemoteAddr.
//
// It handles "ip:port", "[ipv6]:port" and, for transports that omit the port,
// a bare IP. Anything else (for example a unix socket path or "@") yields an
// invalid netip.AddrPort, which callers treat as "no peer address".
func parseRemoteAddr(s string) netip.AddrPort {
	s = strings.TrimSpace(s)
	if s == "" {
		return netip.AddrPort{}
	}

	addrPort, ok := parseEndpoint(s)
	if !ok {
		return netip.AddrPort{}
	}

	return addrPort
}

// normalizeIP unmaps IPv4-mapped IPv6 addresses.
func normalizeIP(ip netip.Addr) netip.Addr {
	if ip.Is4In6() {
		return ip.Unmap()
	}
	return ip
}

// formatEndpoint renders addrPort as "ip:port" or "[ipv6]:port".
func formatEndpoint(addrPort netip.AddrPort) string {
	if !addrPort.IsValid() {
		return ""
	}
	return addrPort.String()
}

// trimMatchedPair removes one leading and trailing delimiter when both match.
func trimMatchedPair(s string, start, end byte) string {
	if len(s) < 2 {
		return s
	}

	if s[0] != start || s[len(s)-1] != end {
		return s
	}

	return s[1 : len(s)-1]
}

// trimMatchedChar removes one matching leading and trailing character.
func trimMatchedChar(s string, ch byte) string {
	return trimMatchedPair(s, ch, ch)
}
