package forwardedheaders

const (
	securityEventHeaderCountMismatch = "header_count_mismatch"
	securityEventUntrustedProxy      = "untrusted_proxy"
	securityEventInvalidFor          = "invalid_forwarded_for"
	securityEventMissingFor          = "missing_forwarded_for"
	securityEventInvalidProto        = "invalid_forwarded_proto"
	securityEventInvalidHost         = "invalid_forwarded_host"
	securityEventHostNotAllowed      = "host_not_allowed"
)
