package forwardedheaders

import (
	"errors"
	"fmt"
	"io"
	"net/netip"
	"strings"

	"gopkg.in/yaml.v3"
)

// Settings is the plain-data form of a resolver configuration, suitable for
// configuration files and environment binding.
//
// Zero values keep the defaults, except ForwardLimit: nil keeps
// DefaultForwardLimit while 0 removes the limit.
type Settings struct {
	ForwardedHeaders      string   `yaml:"forwarded_headers" mapstructure:"forwarded_headers"`
	ForwardLimit          *int     `yaml:"forward_limit" mapstructure:"forward_limit"`
	RequireHeaderSymmetry bool     `yaml:"require_header_symmetry" mapstructure:"require_header_symmetry"`
	ClearKnownProxies     bool     `yaml:"clear_known_proxies" mapstructure:"clear_known_proxies"`
	KnownProxies          []string `yaml:"known_proxies" mapstructure:"known_proxies"`
	KnownNetworks         []string `yaml:"known_networks" mapstructure:"known_networks"`
	AllowedHosts          []string `yaml:"allowed_hosts" mapstructure:"allowed_hosts"`

	ForwardedForHeaderName   string `yaml:"forwarded_for_header_name" mapstructure:"forwarded_for_header_name"`
	ForwardedProtoHeaderName string `yaml:"forwarded_proto_header_name" mapstructure:"forwarded_proto_header_name"`
	ForwardedHostHeaderName  string `yaml:"forwarded_host_header_name" mapstructure:"forwarded_host_header_name"`
	OriginalForHeaderName    string `yaml:"original_for_header_name" mapstructure:"original_for_header_name"`
	OriginalProtoHeaderName  string `yaml:"original_proto_header_name" mapstructure:"original_proto_header_name"`
	OriginalHostHeaderName   string `yaml:"original_host_header_name" mapstructure:"original_host_header_name"`
}

// LoadSettings decodes YAML settings from r. Unknown keys are rejected.
func LoadSettings(r io.Reader) (Settings, error) {
	var settings Settings

	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&settings); err != nil {
		if errors.Is(err, io.EOF) {
			return Settings{}, nil
		}
		return Settings{}, fmt.Errorf("decode settings: %w", err)
	}

	return settings, nil
}

// FromSettings converts s into an Option. Parse errors surface when the
// option is applied by New.
func FromSettings(s Settings) Option {
	s = s.clone()

	return func(c *config) error {
		opts, err := s.options()
		if err != nil {
			return err
		}

		return applyOptions(c, opts...)
	}
}

func (s Settings) clone() Settings {
	if s.ForwardLimit != nil {
		limit := *s.ForwardLimit
		s.ForwardLimit = &limit
	}
	s.KnownProxies = cloneStrings(s.KnownProxies)
	s.KnownNetworks = cloneStrings(s.KnownNetworks)
	s.AllowedHosts = cloneStrings(s.AllowedHosts)
	return s
}

func (s Settings) options() ([]Option, error) {
	var opts []Option

	if strings.TrimSpace(s.ForwardedHeaders) != "" {
		headers, err := ParseForwardedHeaders(s.ForwardedHeaders)
		if err != nil {
			return nil, fmt.Errorf("forwarded_headers: %w", err)
		}
		opts = append(opts, WithForwardedHeaders(headers))
	}

	if s.ForwardLimit != nil {
		if *s.ForwardLimit == 0 {
			opts = append(opts, NoForwardLimit())
		} else {
			opts = append(opts, ForwardLimit(*s.ForwardLimit))
		}
	}

	if s.RequireHeaderSymmetry {
		opts = append(opts, RequireHeaderSymmetry(true))
	}

	if s.ClearKnownProxies {
		opts = append(opts, ClearKnownProxies())
	}

	if len(s.KnownProxies) > 0 {
		addrs, err := ParseAddrs(s.KnownProxies...)
		if err != nil {
			return nil, fmt.Errorf("known_proxies: %w", err)
		}
		opts = append(opts, KnownProxies(addrs...))
	}

	if len(s.KnownNetworks) > 0 {
		prefixes, err := ParseCIDRs(s.KnownNetworks...)
		if err != nil {
			return nil, fmt.Errorf("known_networks: %w", err)
		}
		opts = append(opts, KnownNetworks(prefixes...))
	}

	if len(s.AllowedHosts) > 0 {
		opts = append(opts, AllowedHosts(s.AllowedHosts...))
	}

	headerNames := []struct {
		value  string
		option func(string) Option
	}{
		{s.ForwardedForHeaderName, WithForwardedForHeader},
		{s.ForwardedProtoHeaderName, WithForwardedProtoHeader},
		{s.ForwardedHostHeaderName, WithForwardedHostHeader},
		{s.OriginalForHeaderName, WithOriginalForHeader},
		{s.OriginalProtoHeaderName, WithOriginalProtoHeader},
		{s.OriginalHostHeaderName, WithOriginalHostHeader},
	}
	for _, name := range headerNames {
		if name.value != "" {
			opts = append(opts, name.option(name.value))
		}
	}

	return opts, nil
}

// ParseCIDRs parses CIDR strings. A bare address is accepted as a
// single-address prefix.
func ParseCIDRs(cidrs ...string) ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(cidrs))
	for _, cidr := range cidrs {
		cidr = strings.TrimSpace(cidr)
		if !strings.Contains(cidr, "/") {
			addr, err := netip.ParseAddr(cidr)
			if err != nil {
				return nil, fmt.Errorf("invalid CIDR %q: %w", cidr, err)
			}
			prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
			continue
		}

		prefix, err := netip.ParsePrefix(cidr)
		if err != nil {
			return nil, fmt.Errorf("invalid CIDR %q: %w", cidr, err)
		}
		prefixes = append(prefixes, prefix)
	}
	return prefixes, nil
}

// ParseAddrs parses IP address strings.
func ParseAddrs(addrs ...string) ([]netip.Addr, error) {
	parsed := make([]netip.Addr, 0, len(addrs))
	for _, raw := range addrs {
		addr, err := netip.ParseAddr(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("invalid IP address %q: %w", raw, err)
		}
		parsed = append(parsed, addr)
	}
	return parsed, nil
}
