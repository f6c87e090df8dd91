package forwardedheaders

import (
	"fmt"
	"strings"

	"golang.org/x/net/idna"
)

// hostAllowList filters forwarded host values.
//
// The zero value allows every host.
type hostAllowList struct {
	restricted bool
	patterns   []string
}

// isTopLevelWildcard reports whether host opens the allow-list to any host.
func isTopLevelWildcard(host string) bool {
	return host == "*" || host == "[::]" || host == "0.0.0.0"
}

// buildHostAllowList normalises entries to lower-case punycode and removes
// duplicates. An empty list, or any top-level wildcard entry, allows all hosts.
func buildHostAllowList(entries []string) (hostAllowList, error) {
	if len(entries) == 0 {
		return hostAllowList{}, nil
	}

	patterns := make([]string, 0, len(entries))
	seen := make(map[string]struct{}, len(entries))

	for _, entry := range entries {
		host, err := normalizeAllowedHost(entry)
		if err != nil {
			return hostAllowList{}, err
		}

		if isTopLevelWildcard(host) {
			return hostAllowList{}, nil
		}

		if _, ok := seen[host]; ok {
			continue
		}
		seen[host] = struct{}{}
		patterns = append(patterns, host)
	}

	return hostAllowList{restricted: true, patterns: patterns}, nil
}

func normalizeAllowedHost(entry string) (string, error) {
	trimmed := strings.TrimSpace(entry)
	if trimmed == "" {
		return "", fmt.Errorf("%w: entry cannot be blank", ErrInvalidAllowedHost)
	}

	ascii, err := idna.Punycode.ToASCII(trimmed)
	if err != nil {
		return "", fmt.Errorf("%w %q: %w", ErrInvalidAllowedHost, entry, err)
	}

	return strings.ToLower(ascii), nil
}

// allowAll reports whether filtering is disabled.
func (l hostAllowList) allowAll() bool {
	return !l.restricted
}

// allows reports whether the host part of value (port ignored) matches a
// pattern. Patterns starting with "*." match any subdomain of the remainder
// but not the remainder itself.
func (l hostAllowList) allows(value string) bool {
	if !l.restricted {
		return true
	}

	host := hostWithoutPort(value)
	if host == "" {
		return false
	}

	for _, pattern := range l.patterns {
		if strings.EqualFold(pattern, host) {
			return true
		}

		if suffix, ok := strings.CutPrefix(pattern, "*"); ok && strings.HasPrefix(suffix, ".") {
			if len(host) > len(suffix) && strings.EqualFold(host[len(host)-len(suffix):], suffix) {
				return true
			}
		}
	}

	return false
}

// hostWithoutPort strips an optional ":port" suffix. Bracketed IPv6 literals
// keep their brackets.
func hostWithoutPort(value string) string {
	if strings.HasPrefix(value, "[") {
		end := strings.IndexByte(value, ']')
		if end == -1 {
			return ""
		}
		return value[:end+1]
	}

	if colon := strings.IndexByte(value, ':'); colon != -1 {
		return value[:colon]
	}

	return value
}
