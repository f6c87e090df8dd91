package forwardedheaders

// PresetLoopbackReverseProxy configures resolution for apps behind a single
// reverse proxy on the same host (for example NGINX on localhost).
//
// It honors X-Forwarded-For and X-Forwarded-Proto from loopback peers and
// processes one hop.
func PresetLoopbackReverseProxy() Option {
	return func(c *config) error {
		return applyOptions(c,
			WithForwardedHeaders(ForwardedFor|ForwardedProto),
			TrustLoopbackProxy(),
			ForwardLimit(1),
		)
	}
}

// PresetVMReverseProxy configures resolution for apps behind reverse proxies
// in a typical VM or private-network setup.
//
// It honors all forwarded header families from loopback and private-network
// peers and walks up to hops proxies.
func PresetVMReverseProxy(hops int) Option {
	return func(c *config) error {
		return applyOptions(c,
			WithForwardedHeaders(ForwardedAll),
			TrustLoopbackProxy(),
			TrustPrivateProxyRanges(),
			ForwardLimit(hops),
		)
	}
}
