package forwardedheaders

import "net/netip"

// hostCharValidity marks the characters accepted in a forwarded host name.
//
// This is the RFC 3986 unreserved and sub-delims set without the characters
// that Http.Sys-style servers reject ("*", "+", ",", ";", "=" and "%").
var hostCharValidity = func() [256]bool {
	var table [256]bool
	for ch := 'a'; ch <= 'z'; ch++ {
		table[ch] = true
	}
	for ch := 'A'; ch <= 'Z'; ch++ {
		table[ch] = true
	}
	for ch := '0'; ch <= '9'; ch++ {
		table[ch] = true
	}
	for _, ch := range "!$&'()-._~" {
		table[ch] = true
	}
	return table
}()

// parseEndpoint parses a forwarded address token as an IP endpoint.
//
// Accepted forms are "1.2.3.4", "1.2.3.4:80", "::1", "[::1]" and "[::1]:80".
// A missing port yields port 0.
func parseEndpoint(text string) (netip.AddrPort, bool) {
	if text == "" {
		return netip.AddrPort{}, false
	}

	if addrPort, err := netip.ParseAddrPort(text); err == nil {
		return addrPort, true
	}

	bracketed := text[0] == '['
	addr, err := netip.ParseAddr(trimMatchedPair(text, '[', ']'))
	if err != nil || (bracketed && !addr.Is6()) {
		return netip.AddrPort{}, false
	}

	return netip.AddrPortFrom(addr, 0), true
}

// isValidScheme reports whether text only contains URI scheme characters.
//
// Unlike RFC 3986 the first character is not required to be alphabetic.
func isValidScheme(text string) bool {
	if text == "" {
		return false
	}

	for i := 0; i < len(text); i++ {
		if !isSchemeChar(text[i]) {
			return false
		}
	}

	return true
}

func isSchemeChar(ch byte) bool {
	return isAlpha(ch) || isDigit(ch) || ch == '+' || ch == '-' || ch == '.'
}

// isValidHost reports whether text is an acceptable forwarded host: a
// registered name or IPv4 literal, or a bracketed IPv6 literal, each with an
// optional numeric port.
func isValidHost(text string) bool {
	if text == "" {
		return false
	}

	switch text[0] {
	case '[':
		return isValidIPv6Host(text)
	case ':':
		return false
	}

	i := 0
	for ; i < len(text); i++ {
		if !hostCharValidity[text[i]] {
			break
		}
	}
	if i == len(text) {
		return true
	}

	return isValidPortSuffix(text, i)
}

// isValidIPv6Host validates "[" hex/colon/dot "]" followed by an optional port.
// The leading "[" has already been checked.
func isValidIPv6Host(text string) bool {
	for i := 1; i < len(text); i++ {
		ch := text[i]
		if ch == ']' {
			// "[::1]" is the shortest valid literal.
			if i < 4 {
				return false
			}
			return isValidPortSuffix(text, i+1)
		}
		if !isHex(ch) && ch != ':' && ch != '.' {
			return false
		}
	}

	return false
}

// isValidPortSuffix validates text[offset:] as empty or ":" followed by one or
// more ASCII digits.
func isValidPortSuffix(text string, offset int) bool {
	if offset == len(text) {
		return true
	}

	if text[offset] != ':' || len(text) == offset+1 {
		return false
	}

	for i := offset + 1; i < len(text); i++ {
		if !isDigit(text[i]) {
			return false
		}
	}

	return true
}

func isAlpha(ch byte) bool {
	return ('a' <= ch && ch <= 'z') || ('A' <= ch && ch <= 'Z')
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}

func isHex(ch byte) bool {
	return isDigit(ch) || ('a' <= ch && ch <= 'f') || ('A' <= ch && ch <= 'F')
}
