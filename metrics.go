package forwardedheaders

// Metrics records resolution outcomes and security events emitted by
// Resolver.
//
// Implementations should be safe for concurrent use, as a single Resolver
// instance is typically shared across many goroutines.
type Metrics interface {
	// RecordResolution is called once per resolved request with the
	// Outcome's string form.
	RecordResolution(outcome string)
	// RecordSecurityEvent is called when the resolver rejects a forwarded
	// value or stops at a trust boundary.
	RecordSecurityEvent(event string)
}

// noopMetrics is the default Metrics implementation when metrics are not
// explicitly configured.
type noopMetrics struct{}

func (noopMetrics) RecordResolution(string) {}

func (noopMetrics) RecordSecurityEvent(string) {}
