package forwardedheaders

import (
	"fmt"
	"net/netip"
	"net/textproto"
	"strings"
)

const (
	// DefaultForwardedForHeaderName is the default client address header.
	DefaultForwardedForHeaderName = "X-Forwarded-For"
	// DefaultForwardedProtoHeaderName is the default scheme header.
	DefaultForwardedProtoHeaderName = "X-Forwarded-Proto"
	// DefaultForwardedHostHeaderName is the default host header.
	DefaultForwardedHostHeaderName = "X-Forwarded-Host"

	// DefaultOriginalForHeaderName receives the peer endpoint that was replaced.
	DefaultOriginalForHeaderName = "X-Original-For"
	// DefaultOriginalProtoHeaderName receives the scheme that was replaced.
	DefaultOriginalProtoHeaderName = "X-Original-Proto"
	// DefaultOriginalHostHeaderName receives the host that was replaced.
	DefaultOriginalHostHeaderName = "X-Original-Host"

	// DefaultForwardLimit is the number of hops processed unless configured
	// otherwise. One hop matches the common single reverse proxy deployment.
	DefaultForwardLimit = 1
)

// Option configures a Resolver.
//
// Construct options using package-provided option builder functions.
type Option func(*config) error

// config holds resolver configuration state.
//
// It is mutated by Option functions during construction and read-only
// afterwards.
type config struct {
	forwardedHeaders ForwardedHeaders

	forwardedForHeader   string
	forwardedProtoHeader string
	forwardedHostHeader  string
	originalForHeader    string
	originalProtoHeader  string
	originalHostHeader   string

	// forwardLimit caps the hops walked; 0 means unlimited.
	forwardLimit          int
	requireHeaderSymmetry bool

	knownProxies    []netip.Addr
	knownNetworks   []netip.Prefix
	knownProxyMatch knownProxyMatcher

	allowedHosts []string
	hostFilter   hostAllowList

	logger  Logger
	metrics Metrics
}

var (
	// loopbackProxyCIDRs contains loopback networks used when the app sits
	// behind a reverse proxy running on the same host.
	loopbackProxyCIDRs = []netip.Prefix{
		mustParsePrefix("127.0.0.0/8"),
		mustParsePrefix("::1/128"),
	}

	// privateProxyCIDRs contains private-network ranges commonly used for
	// trusted upstream proxies in VM and internal network deployments.
	privateProxyCIDRs = []netip.Prefix{
		mustParsePrefix("10.0.0.0/8"),
		mustParsePrefix("172.16.0.0/12"),
		mustParsePrefix("192.168.0.0/16"),
		mustParsePrefix("fc00::/7"),
	}
)

func mustParsePrefix(cidr string) netip.Prefix {
	prefix, err := netip.ParsePrefix(cidr)
	if err != nil {
		panic(fmt.Sprintf("invalid built-in CIDR %q: %v", cidr, err))
	}
	return prefix
}

func clonePrefixes(prefixes []netip.Prefix) []netip.Prefix {
	if prefixes == nil {
		return nil
	}
	cloned := make([]netip.Prefix, len(prefixes))
	copy(cloned, prefixes)
	return cloned
}

func cloneAddrs(addrs []netip.Addr) []netip.Addr {
	if addrs == nil {
		return nil
	}
	cloned := make([]netip.Addr, len(addrs))
	copy(cloned, addrs)
	return cloned
}

func cloneStrings(values []string) []string {
	if values == nil {
		return nil
	}
	cloned := make([]string, len(values))
	copy(cloned, values)
	return cloned
}

func normalizePrefixes(prefixes []netip.Prefix) ([]netip.Prefix, error) {
	normalized := make([]netip.Prefix, 0, len(prefixes))
	for _, prefix := range prefixes {
		if !prefix.IsValid() {
			return nil, fmt.Errorf("invalid known network %q", prefix)
		}
		normalized = append(normalized, prefix.Masked())
	}

	return normalized, nil
}

func mergeUniquePrefixes(existing []netip.Prefix, additions ...netip.Prefix) []netip.Prefix {
	if len(existing) == 0 && len(additions) == 0 {
		return nil
	}

	merged := make([]netip.Prefix, 0, len(existing)+len(additions))
	seen := make(map[netip.Prefix]struct{}, len(existing)+len(additions))

	for _, prefixes := range [][]netip.Prefix{existing, additions} {
		for _, prefix := range prefixes {
			if _, ok := seen[prefix]; ok {
				continue
			}
			seen[prefix] = struct{}{}
			merged = append(merged, prefix)
		}
	}

	return merged
}

func mergeUniqueAddrs(existing []netip.Addr, additions ...netip.Addr) []netip.Addr {
	if len(existing) == 0 && len(additions) == 0 {
		return nil
	}

	merged := make([]netip.Addr, 0, len(existing)+len(additions))
	seen := make(map[netip.Addr]struct{}, len(existing)+len(additions))

	for _, addrs := range [][]netip.Addr{existing, additions} {
		for _, addr := range addrs {
			if _, ok := seen[addr]; ok {
				continue
			}
			seen[addr] = struct{}{}
			merged = append(merged, addr)
		}
	}

	return merged
}

func defaultConfig() *config {
	return &config{
		forwardedHeaders:     ForwardedNone,
		forwardedForHeader:   DefaultForwardedForHeaderName,
		forwardedProtoHeader: DefaultForwardedProtoHeaderName,
		forwardedHostHeader:  DefaultForwardedHostHeaderName,
		originalForHeader:    DefaultOriginalForHeaderName,
		originalProtoHeader:  DefaultOriginalProtoHeaderName,
		originalHostHeader:   DefaultOriginalHostHeaderName,
		forwardLimit:         DefaultForwardLimit,
		knownProxies:         []netip.Addr{netip.IPv6Loopback()},
		knownNetworks:        []netip.Prefix{mustParsePrefix("127.0.0.0/8")},
		logger:               noopLogger{},
		metrics:              noopMetrics{},
	}
}

func applyOptions(c *config, opts ...Option) error {
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(c); err != nil {
			return err
		}
	}

	return nil
}

func configFromOptions(opts ...Option) (*config, error) {
	cfg := defaultConfig()

	if err := applyOptions(cfg, opts...); err != nil {
		return nil, err
	}

	cfg.canonicalizeHeaderNames()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	hostFilter, err := buildHostAllowList(cfg.allowedHosts)
	if err != nil {
		return nil, err
	}
	cfg.hostFilter = hostFilter

	cfg.knownProxyMatch = buildKnownProxyMatcher(cfg.knownProxies, cfg.knownNetworks)

	return cfg, nil
}

// canonicalizeHeaderNames trims header names and converts non-blank ones to
// canonical MIME form. Blank names are left empty for validate to reject.
func (c *config) canonicalizeHeaderNames() {
	for _, name := range c.headerNames() {
		*name.value = canonicalHeaderName(*name.value)
	}
}

type headerNameField struct {
	option string
	value  *string
}

func (c *config) headerNames() []headerNameField {
	return []headerNameField{
		{option: "forwardedForHeaderName", value: &c.forwardedForHeader},
		{option: "forwardedProtoHeaderName", value: &c.forwardedProtoHeader},
		{option: "forwardedHostHeaderName", value: &c.forwardedHostHeader},
		{option: "originalForHeaderName", value: &c.originalForHeader},
		{option: "originalProtoHeaderName", value: &c.originalProtoHeader},
		{option: "originalHostHeaderName", value: &c.originalHostHeader},
	}
}

func canonicalHeaderName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	return textproto.CanonicalMIMEHeaderKey(name)
}
