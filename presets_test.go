package forwardedheaders

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestPresets(t *testing.T) {
	tests := []struct {
		name   string
		preset Option
		want   configSnapshot
	}{
		{
			name:   "loopback reverse proxy",
			preset: PresetLoopbackReverseProxy(),
			want: configSnapshot{
				ForwardedHeaders: ForwardedFor | ForwardedProto,
				HeaderNames:      defaultHeaderNames,
				ForwardLimit:     1,
				KnownProxies:     []string{"::1"},
				KnownNetworks:    []string{"127.0.0.0/8", "::1/128"},
				AllowAllHosts:    true,
			},
		},
		{
			name:   "VM reverse proxy",
			preset: PresetVMReverseProxy(3),
			want: configSnapshot{
				ForwardedHeaders: ForwardedAll,
				HeaderNames:      defaultHeaderNames,
				ForwardLimit:     3,
				KnownProxies:     []string{"::1"},
				KnownNetworks:    []string{"127.0.0.0/8", "::1/128", "10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16", "fc00::/7"},
				AllowAllHosts:    true,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolver := mustNewResolver(t, tt.preset)

			if diff := cmp.Diff(tt.want, snapshotConfig(resolver.config)); diff != "" {
				t.Fatalf("config mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPresets_CanBeOverridden(t *testing.T) {
	resolver := mustNewResolver(t,
		PresetVMReverseProxy(2),
		WithForwardedHeaders(ForwardedFor),
		NoForwardLimit(),
	)

	if resolver.config.forwardedHeaders != ForwardedFor {
		t.Fatalf("forwardedHeaders = %v, want %v", resolver.config.forwardedHeaders, ForwardedFor)
	}
	if resolver.config.forwardLimit != 0 {
		t.Fatalf("forwardLimit = %d, want 0", resolver.config.forwardLimit)
	}
}

func TestPresetVMReverseProxy_WalksPrivateChain(t *testing.T) {
	resolver := mustNewResolver(t, PresetVMReverseProxy(2))

	req := newTestRequest("10.0.0.1:5000", "/")
	req.Header.Set("X-Forwarded-For", "203.0.113.5, 192.168.1.20")
	req.Header.Set("X-Forwarded-Proto", "https, http")
	req.Header.Set("X-Forwarded-Host", "shop.example, lb.internal")

	result := resolver.Apply(req)

	want := applyExpectation{
		Outcome:      OutcomeApplied,
		HopsConsumed: 2,
		Changed:      ForwardedAll,
		RemoteAddr:   "203.0.113.5:0",
		Scheme:       "https",
		Host:         "shop.example",
		Headers: map[string][]string{
			"X-Original-For":   {"10.0.0.1:5000"},
			"X-Original-Proto": {"http"},
			"X-Original-Host":  {"app.internal"},
		},
	}
	if diff := cmp.Diff(want, applyStateOf(req, result)); diff != "" {
		t.Fatalf("Apply() mismatch (-want +got):\n%s", diff)
	}
}
