package forwardedheaders

import (
	"errors"
	"fmt"
	"net/netip"
	"strings"
)

var (
	ErrInvalidConfig = errors.New("invalid configuration")

	ErrEmptyHeaderName = errors.New("header name cannot be empty")

	ErrInvalidForwardLimit = errors.New("forward limit must be > 0")

	ErrInvalidAllowedHost = errors.New("invalid allowed host")

	ErrUnknownForwardedHeader = errors.New("unknown forwarded header")
)

// Outcome classifies what a resolution did to the request.
type Outcome int

const (
	// OutcomeUnchanged means no hop contributed a trusted value; the request was
	// left untouched.
	OutcomeUnchanged Outcome = iota + 1
	// OutcomeAborted means header symmetry was required and violated; every
	// change was discarded and the request was left untouched.
	OutcomeAborted
	// OutcomePartial means the walk stopped at an untrusted proxy or an
	// unparsable address after at least one hop was applied.
	OutcomePartial
	// OutcomeApplied means every hop within the forward limit was walked and
	// at least one contributed a value.
	OutcomeApplied
)

// String returns the canonical text representation of o.
func (o Outcome) String() string {
	switch o {
	case OutcomeUnchanged:
		return "unchanged"
	case OutcomeAborted:
		return "aborted"
	case OutcomePartial:
		return "partial"
	case OutcomeApplied:
		return "applied"
	default:
		return "unknown"
	}
}

// Result describes a single resolution.
//
// RemoteAddr, Scheme and Host hold the identity the request carries after
// resolution, whether or not it changed. Changed lists the families that were
// rewritten.
type Result struct {
	Outcome Outcome

	HopsConsumed int
	Changed      ForwardedHeaders

	RemoteAddr netip.AddrPort
	Scheme     string
	Host       string
}

// Applied reports whether the request was modified.
func (r Result) Applied() bool {
	return r.Outcome == OutcomePartial || r.Outcome == OutcomeApplied
}

// ForwardedHeaders is a set of forwarded header families to honor.
type ForwardedHeaders uint8

const (
	// ForwardedNone honors no forwarded headers.
	ForwardedNone ForwardedHeaders = 0
	// ForwardedFor honors the client address header (X-Forwarded-For).
	ForwardedFor ForwardedHeaders = 1
	// ForwardedProto honors the scheme header (X-Forwarded-Proto).
	ForwardedProto ForwardedHeaders = 2
	// ForwardedHost honors the host header (X-Forwarded-Host).
	ForwardedHost ForwardedHeaders = 4

	// ForwardedAll honors every forwarded header family.
	ForwardedAll = ForwardedFor | ForwardedProto | ForwardedHost
)

// Has reports whether every family in other is part of h.
func (h ForwardedHeaders) Has(other ForwardedHeaders) bool {
	return other != ForwardedNone && h&other == other
}

func (h ForwardedHeaders) valid() bool {
	return h&^ForwardedAll == 0
}

// String returns the families in h as a comma-separated list, for example
// "For, Proto".
func (h ForwardedHeaders) String() string {
	if h == ForwardedNone {
		return "None"
	}

	names := make([]string, 0, 3)
	if h.Has(ForwardedFor) {
		names = append(names, "For")
	}
	if h.Has(ForwardedProto) {
		names = append(names, "Proto")
	}
	if h.Has(ForwardedHost) {
		names = append(names, "Host")
	}
	if rest := h &^ ForwardedAll; rest != 0 {
		names = append(names, fmt.Sprintf("0x%x", uint8(rest)))
	}

	return strings.Join(names, ", ")
}

// ParseForwardedHeaders parses a comma-separated list of family names
// ("for", "proto", "host", "all" or "none"), case-insensitively.
func ParseForwardedHeaders(s string) (ForwardedHeaders, error) {
	var headers ForwardedHeaders

	for part := range strings.SplitSeq(s, ",") {
		name := strings.TrimSpace(part)
		switch strings.ToLower(name) {
		case "":
			continue
		case "none":
		case "for", "x-forwarded-for":
			headers |= ForwardedFor
		case "proto", "x-forwarded-proto":
			headers |= ForwardedProto
		case "host", "x-forwarded-host":
			headers |= ForwardedHost
		case "all":
			headers |= ForwardedAll
		default:
			return ForwardedNone, fmt.Errorf("%w %q", ErrUnknownForwardedHeader, name)
		}
	}

	return headers, nil
}
