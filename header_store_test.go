package forwardedheaders

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// mapHeaderStore is a HeaderStore that records writes, for frameworks whose
// header type is not http.Header.
type mapHeaderStore struct {
	values map[string][]string
	writes []string
}

func (s *mapHeaderStore) Values(name string) []string {
	return s.values[name]
}

func (s *mapHeaderStore) Set(name, value string) {
	s.writes = append(s.writes, "set "+name)
	s.values[name] = []string{value}
}

func (s *mapHeaderStore) Del(name string) {
	s.writes = append(s.writes, "del "+name)
	delete(s.values, name)
}

func TestHeaderEntries(t *testing.T) {
	tests := []struct {
		name   string
		values []string
		want   []string
	}{
		{name: "absent", values: nil, want: nil},
		{name: "single value", values: []string{"203.0.113.5"}, want: []string{"203.0.113.5"}},
		{name: "comma separated", values: []string{"203.0.113.5, 10.0.0.1,10.0.0.2"}, want: []string{"203.0.113.5", "10.0.0.1", "10.0.0.2"}},
		{name: "multiple lines keep order", values: []string{"203.0.113.5", "10.0.0.1, 10.0.0.2"}, want: []string{"203.0.113.5", "10.0.0.1", "10.0.0.2"}},
		{name: "empty entries dropped", values: []string{" , 203.0.113.5,, ,10.0.0.1,"}, want: []string{"203.0.113.5", "10.0.0.1"}},
		{name: "quotes removed", values: []string{`"[2001:db8::1]:443", "https"`}, want: []string{"[2001:db8::1]:443", "https"}},
		{name: "only separators", values: []string{", ,"}, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			headers := make(http.Header)
			for _, value := range tt.values {
				headers.Add("X-Forwarded-For", value)
			}

			got := headerEntries(headers, "X-Forwarded-For")
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("headerEntries() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestHeaderEntries_NilStore(t *testing.T) {
	var nilHeader http.Header
	var nilStore *mapHeaderStore

	if got := headerEntries(nil, "X-Forwarded-For"); got != nil {
		t.Fatalf("headerEntries(nil) = %v, want nil", got)
	}
	if got := headerEntries(nilHeader, "X-Forwarded-For"); got != nil {
		t.Fatalf("headerEntries(nil http.Header) = %v, want nil", got)
	}
	if got := headerEntries(nilStore, "X-Forwarded-For"); got != nil {
		t.Fatalf("headerEntries(typed nil store) = %v, want nil", got)
	}
}

func TestTruncateHeader(t *testing.T) {
	entries := []string{"203.0.113.5", "10.0.0.1", "10.0.0.2"}

	tests := []struct {
		name     string
		consumed int
		want     []string
	}{
		{name: "one consumed", consumed: 1, want: []string{"203.0.113.5, 10.0.0.1"}},
		{name: "two consumed", consumed: 2, want: []string{"203.0.113.5"}},
		{name: "all consumed", consumed: 3, want: nil},
		{name: "more than available", consumed: 4, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			headers := make(http.Header)
			headers.Set("X-Forwarded-For", "203.0.113.5, 10.0.0.1, 10.0.0.2")

			truncateHeader(headers, "X-Forwarded-For", entries, tt.consumed)

			if diff := cmp.Diff(tt.want, headers.Values("X-Forwarded-For")); diff != "" {
				t.Fatalf("header mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestResolveState_CustomHeaderStore(t *testing.T) {
	resolver := mustNewResolver(t,
		WithForwardedHeaders(ForwardedFor|ForwardedProto),
		KnownNetworks(mustParseCIDRs(t, "10.0.0.0/8")...),
	)

	store := &mapHeaderStore{values: map[string][]string{
		"X-Forwarded-For":   {"203.0.113.5"},
		"X-Forwarded-Proto": {"https"},
	}}
	state := &RequestState{
		Context:    context.Background(),
		Headers:    store,
		RemoteAddr: mustParseAddrPort(t, "10.1.2.3:5000"),
		Scheme:     "http",
		Host:       "app.internal",
	}

	result := resolver.ResolveState(state)
	if result.Outcome != OutcomeApplied {
		t.Fatalf("Outcome = %v, want %v", result.Outcome, OutcomeApplied)
	}

	wantWrites := []string{
		"set X-Original-For",
		"del X-Forwarded-For",
		"set X-Original-Proto",
		"del X-Forwarded-Proto",
	}
	if diff := cmp.Diff(wantWrites, store.writes); diff != "" {
		t.Fatalf("writes mismatch (-want +got):\n%s", diff)
	}

	wantValues := map[string][]string{
		"X-Original-For":   {"10.1.2.3:5000"},
		"X-Original-Proto": {"http"},
	}
	if diff := cmp.Diff(wantValues, store.values); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveState_NilState(t *testing.T) {
	resolver := mustNewResolver(t, WithForwardedHeaders(ForwardedAll))

	if got := resolver.ResolveState(nil); got.Outcome != OutcomeUnchanged {
		t.Fatalf("Outcome = %v, want %v", got.Outcome, OutcomeUnchanged)
	}
}

func TestResolveState_NilHeaders(t *testing.T) {
	resolver := mustNewResolver(t, WithForwardedHeaders(ForwardedAll))

	state := &RequestState{RemoteAddr: mustParseAddrPort(t, "127.0.0.1:5000"), Scheme: "http"}
	if got := resolver.ResolveState(state); got.Outcome != OutcomeUnchanged {
		t.Fatalf("Outcome = %v, want %v", got.Outcome, OutcomeUnchanged)
	}
}
