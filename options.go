package forwardedheaders

import (
	"fmt"
	"net/netip"
)

// WithForwardedHeaders sets which forwarded header families are honored.
func WithForwardedHeaders(headers ForwardedHeaders) Option {
	return func(c *config) error {
		c.forwardedHeaders = headers
		return nil
	}
}

// WithForwardedForHeader sets the incoming client address header name.
func WithForwardedForHeader(name string) Option {
	return func(c *config) error {
		c.forwardedForHeader = name
		return nil
	}
}

// WithForwardedProtoHeader sets the incoming scheme header name.
func WithForwardedProtoHeader(name string) Option {
	return func(c *config) error {
		c.forwardedProtoHeader = name
		return nil
	}
}

// WithForwardedHostHeader sets the incoming host header name.
func WithForwardedHostHeader(name string) Option {
	return func(c *config) error {
		c.forwardedHostHeader = name
		return nil
	}
}

// WithOriginalForHeader sets the header that receives the replaced peer
// endpoint.
func WithOriginalForHeader(name string) Option {
	return func(c *config) error {
		c.originalForHeader = name
		return nil
	}
}

// WithOriginalProtoHeader sets the header that receives the replaced scheme.
func WithOriginalProtoHeader(name string) Option {
	return func(c *config) error {
		c.originalProtoHeader = name
		return nil
	}
}

// WithOriginalHostHeader sets the header that receives the replaced host.
func WithOriginalHostHeader(name string) Option {
	return func(c *config) error {
		c.originalHostHeader = name
		return nil
	}
}

// ForwardLimit caps the number of hops processed per request.
func ForwardLimit(limit int) Option {
	return func(c *config) error {
		if limit <= 0 {
			return fmt.Errorf("%w, got %d", ErrInvalidForwardLimit, limit)
		}

		c.forwardLimit = limit
		return nil
	}
}

// NoForwardLimit processes every hop in the chain.
func NoForwardLimit() Option {
	return func(c *config) error {
		c.forwardLimit = 0
		return nil
	}
}

// RequireHeaderSymmetry makes every honored header family report the same
// number of values, with a valid value for each family at every hop. Any
// violation discards all changes for the request.
func RequireHeaderSymmetry(require bool) Option {
	return func(c *config) error {
		c.requireHeaderSymmetry = require
		return nil
	}
}

// KnownProxies adds exact proxy addresses whose forwarded values are trusted.
func KnownProxies(addrs ...netip.Addr) Option {
	addrs = cloneAddrs(addrs)

	return func(c *config) error {
		for _, addr := range addrs {
			if !addr.IsValid() {
				return fmt.Errorf("invalid known proxy %q", addr)
			}
		}

		c.knownProxies = mergeUniqueAddrs(c.knownProxies, addrs...)
		return nil
	}
}

// KnownNetworks adds proxy networks whose forwarded values are trusted.
func KnownNetworks(prefixes ...netip.Prefix) Option {
	prefixes = clonePrefixes(prefixes)

	return func(c *config) error {
		normalized, err := normalizePrefixes(prefixes)
		if err != nil {
			return err
		}

		c.knownNetworks = mergeUniquePrefixes(c.knownNetworks, normalized...)
		return nil
	}
}

// TrustLoopbackProxy adds loopback networks to the known networks.
func TrustLoopbackProxy() Option {
	return func(c *config) error {
		c.knownNetworks = mergeUniquePrefixes(c.knownNetworks, loopbackProxyCIDRs...)
		return nil
	}
}

// TrustPrivateProxyRanges adds private network ranges to the known networks.
func TrustPrivateProxyRanges() Option {
	return func(c *config) error {
		c.knownNetworks = mergeUniquePrefixes(c.knownNetworks, privateProxyCIDRs...)
		return nil
	}
}

// ClearKnownProxies removes every known proxy and network, including the
// loopback defaults.
//
// With no known proxies or networks configured, forwarded values are trusted
// from any peer. Only do this when the application is unreachable except
// through the proxies.
func ClearKnownProxies() Option {
	return func(c *config) error {
		c.knownProxies = nil
		c.knownNetworks = nil
		return nil
	}
}

// AllowedHosts restricts accepted forwarded host values.
//
// Entries are matched case-insensitively after punycode normalisation and
// "*.example.com" matches any subdomain of example.com. An empty list, or any
// of "*", "0.0.0.0" or "[::]", allows all hosts.
func AllowedHosts(hosts ...string) Option {
	hosts = cloneStrings(hosts)

	return func(c *config) error {
		c.allowedHosts = append(c.allowedHosts, hosts...)
		return nil
	}
}

// WithLogger sets the logger used for debug and warning events.
func WithLogger(logger Logger) Option {
	return func(c *config) error {
		c.logger = logger
		return nil
	}
}

// WithMetrics sets the metrics implementation.
func WithMetrics(metrics Metrics) Option {
	return func(c *config) error {
		c.metrics = metrics
		return nil
	}
}

// WithMetricsFactory configures metrics through a constructor that may fail,
// such as one registering collectors. The factory runs when the option is
// applied; its error fails New.
func WithMetricsFactory(factory func() (Metrics, error)) Option {
	return func(c *config) error {
		if factory == nil {
			return fmt.Errorf("metrics factory cannot be nil")
		}

		metrics, err := factory()
		if err != nil {
			return err
		}

		c.metrics = metrics
		return nil
	}
}
