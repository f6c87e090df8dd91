package forwardedheaders

import "net/netip"

// knownProxyMatcher answers whether a hop address belongs to a known proxy
// (exact address) or a known network (one binary prefix trie per family).
type knownProxyMatcher struct {
	proxies  map[netip.Addr]struct{}
	ipv4     *prefixTrie
	ipv6     *prefixTrie
	networks int
}

type prefixTrie struct {
	children [2]*prefixTrie
	terminal bool
}

func buildKnownProxyMatcher(proxies []netip.Addr, networks []netip.Prefix) knownProxyMatcher {
	var m knownProxyMatcher

	if len(proxies) > 0 {
		m.proxies = make(map[netip.Addr]struct{}, len(proxies))
		for _, addr := range proxies {
			if addr.IsValid() {
				m.proxies[addr.WithZone("")] = struct{}{}
			}
		}
	}

	for _, prefix := range networks {
		if !prefix.IsValid() {
			continue
		}
		m.networks++

		addr := prefix.Addr()
		if addr.Is4() {
			if m.ipv4 == nil {
				m.ipv4 = &prefixTrie{}
			}
			b := addr.As4()
			m.ipv4.insert(b[:], prefix.Bits())
			continue
		}

		if m.ipv6 == nil {
			m.ipv6 = &prefixTrie{}
		}
		b := addr.As16()
		m.ipv6.insert(b[:], prefix.Bits())
	}

	return m
}

// empty reports whether neither proxies nor networks are configured. An empty
// matcher disables the trust check entirely.
func (m knownProxyMatcher) empty() bool {
	return len(m.proxies) == 0 && m.networks == 0
}

// contains reports whether ip is a known proxy or inside a known network.
// IPv4-mapped IPv6 addresses are also checked in their IPv4 form.
func (m knownProxyMatcher) contains(ip netip.Addr) bool {
	if !ip.IsValid() {
		return false
	}

	if m.containsAddr(ip) {
		return true
	}

	return ip.Is4In6() && m.containsAddr(normalizeIP(ip))
}

func (m knownProxyMatcher) containsAddr(ip netip.Addr) bool {
	if _, ok := m.proxies[ip.WithZone("")]; ok {
		return true
	}

	if ip.Is4() {
		b := ip.As4()
		return m.ipv4.contains(b[:])
	}

	b := ip.As16()
	return m.ipv6.contains(b[:])
}

// insert marks the first bits of addr as a terminal prefix.
func (t *prefixTrie) insert(addr []byte, bits int) {
	node := t
	for i := range bits {
		bit := bitAt(addr, i)
		if node.children[bit] == nil {
			node.children[bit] = &prefixTrie{}
		}
		node = node.children[bit]
	}
	node.terminal = true
}

// contains reports whether any inserted prefix covers addr. A nil trie
// contains nothing.
func (t *prefixTrie) contains(addr []byte) bool {
	node := t
	for i := 0; node != nil; i++ {
		if node.terminal {
			return true
		}
		if i == len(addr)*8 {
			return false
		}
		node = node.children[bitAt(addr, i)]
	}
	return false
}

func bitAt(addr []byte, i int) int {
	return int(addr[i/8]>>(7-uint(i%8))) & 1
}
