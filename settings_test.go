package forwardedheaders

import (
	"errors"
	"net/netip"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseCIDRs(t *testing.T) {
	tests := []struct {
		name    string
		cidrs   []string
		want    []netip.Prefix
		wantErr bool
	}{
		{
			name:  "valid multiple CIDRs",
			cidrs: []string{"10.0.0.0/8", "172.16.0.0/12", "2001:db8::/32"},
			want: []netip.Prefix{
				netip.MustParsePrefix("10.0.0.0/8"),
				netip.MustParsePrefix("172.16.0.0/12"),
				netip.MustParsePrefix("2001:db8::/32"),
			},
		},
		{
			name:  "bare addresses become single-address prefixes",
			cidrs: []string{"192.0.2.1", " ::1 "},
			want: []netip.Prefix{
				netip.MustParsePrefix("192.0.2.1/32"),
				netip.MustParsePrefix("::1/128"),
			},
		},
		{name: "invalid CIDR in list", cidrs: []string{"10.0.0.0/8", "invalid", "192.168.0.0/16"}, wantErr: true},
		{name: "invalid prefix length", cidrs: []string{"10.0.0.0/33"}, wantErr: true},
		{name: "empty string", cidrs: []string{""}, wantErr: true},
		{name: "empty list", cidrs: []string{}, want: []netip.Prefix{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCIDRs(tt.cidrs...)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseCIDRs() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if diff := cmp.Diff(tt.want, got, cmp.Comparer(func(a, b netip.Prefix) bool { return a == b })); diff != "" {
				t.Fatalf("ParseCIDRs() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseAddrs(t *testing.T) {
	got, err := ParseAddrs("192.0.2.1", " 2001:db8::1 ")
	if err != nil {
		t.Fatalf("ParseAddrs() error = %v", err)
	}
	want := []netip.Addr{netip.MustParseAddr("192.0.2.1"), netip.MustParseAddr("2001:db8::1")}
	if diff := cmp.Diff(want, got, cmp.Comparer(func(a, b netip.Addr) bool { return a == b })); diff != "" {
		t.Fatalf("ParseAddrs() mismatch (-want +got):\n%s", diff)
	}

	if _, err := ParseAddrs("192.0.2.1/32"); err == nil {
		t.Fatal("ParseAddrs(prefix) error = nil, want error")
	}
}

func TestLoadSettings(t *testing.T) {
	input := `
forwarded_headers: for, proto, host
forward_limit: 0
require_header_symmetry: true
known_proxies:
  - 192.0.2.10
known_networks:
  - 10.0.0.0/8
allowed_hosts:
  - example.com
  - "*.example.com"
forwarded_for_header_name: X-Client-Chain
`

	settings, err := LoadSettings(strings.NewReader(input))
	if err != nil {
		t.Fatalf("LoadSettings() error = %v", err)
	}

	limit := 0
	want := Settings{
		ForwardedHeaders:       "for, proto, host",
		ForwardLimit:           &limit,
		RequireHeaderSymmetry:  true,
		KnownProxies:           []string{"192.0.2.10"},
		KnownNetworks:          []string{"10.0.0.0/8"},
		AllowedHosts:           []string{"example.com", "*.example.com"},
		ForwardedForHeaderName: "X-Client-Chain",
	}
	if diff := cmp.Diff(want, settings); diff != "" {
		t.Fatalf("LoadSettings() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadSettings_Empty(t *testing.T) {
	settings, err := LoadSettings(strings.NewReader(""))
	if err != nil {
		t.Fatalf("LoadSettings() error = %v", err)
	}
	if diff := cmp.Diff(Settings{}, settings); diff != "" {
		t.Fatalf("LoadSettings() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadSettings_UnknownKey(t *testing.T) {
	_, err := LoadSettings(strings.NewReader("trusted_proxies: [10.0.0.0/8]\n"))
	if err == nil {
		t.Fatal("LoadSettings() error = nil, want unknown key error")
	}
}

func TestFromSettings(t *testing.T) {
	limit := 0
	resolver := mustNewResolver(t, FromSettings(Settings{
		ForwardedHeaders:      "all",
		ForwardLimit:          &limit,
		RequireHeaderSymmetry: true,
		ClearKnownProxies:     true,
		KnownProxies:          []string{"192.0.2.10"},
		KnownNetworks:         []string{"10.0.0.0/8"},
		AllowedHosts:          []string{"example.com"},
		OriginalForHeaderName: "x-peer",
	}))

	want := configSnapshot{
		ForwardedHeaders:      ForwardedAll,
		HeaderNames:           append(append([]string{}, defaultHeaderNames[:3]...), "X-Peer", "X-Original-Proto", "X-Original-Host"),
		ForwardLimit:          0,
		RequireHeaderSymmetry: true,
		KnownProxies:          []string{"192.0.2.10"},
		KnownNetworks:         []string{"10.0.0.0/8"},
		AllowedHostPatterns:   []string{"example.com"},
	}
	if diff := cmp.Diff(want, snapshotConfig(resolver.config)); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestFromSettings_ZeroValueKeepsDefaults(t *testing.T) {
	resolver := mustNewResolver(t, FromSettings(Settings{}))
	defaults := mustNewResolver(t)

	if diff := cmp.Diff(snapshotConfig(defaults.config), snapshotConfig(resolver.config)); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestFromSettings_Errors(t *testing.T) {
	negative := -1

	tests := []struct {
		name     string
		settings Settings
		wantErr  error
		wantText string
	}{
		{name: "unknown family", settings: Settings{ForwardedHeaders: "for, client"}, wantErr: ErrUnknownForwardedHeader, wantText: "forwarded_headers"},
		{name: "negative limit", settings: Settings{ForwardLimit: &negative}, wantErr: ErrInvalidForwardLimit},
		{name: "bad proxy", settings: Settings{KnownProxies: []string{"proxy.internal"}}, wantText: "known_proxies"},
		{name: "bad network", settings: Settings{KnownNetworks: []string{"10.0.0.0/40"}}, wantText: "known_networks"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(FromSettings(tt.settings))
			if err == nil {
				t.Fatal("New() error = nil, want error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantText != "" && !strings.Contains(err.Error(), tt.wantText) {
				t.Fatalf("error = %q, want text %q", err.Error(), tt.wantText)
			}
		})
	}
}

func TestFromSettings_CopiesInput(t *testing.T) {
	settings := Settings{ForwardedHeaders: "for", KnownNetworks: []string{"10.0.0.0/8"}}
	opt := FromSettings(settings)
	settings.KnownNetworks[0] = "0.0.0.0/0"

	resolver := mustNewResolver(t, opt)
	if diff := cmp.Diff([]string{"127.0.0.0/8", "10.0.0.0/8"}, snapshotConfig(resolver.config).KnownNetworks); diff != "" {
		t.Fatalf("known networks mismatch (-want +got):\n%s", diff)
	}
}
