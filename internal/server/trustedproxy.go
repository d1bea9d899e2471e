package server

import (
	"net/http"
	"net/netip"
	"strings"
)

// TrustedProxies decides whether a peer is allowed to speak for another
// client through forwarding headers. Rate limit keys are derived from the
// resolved client IP, so only proxies listed here can influence them.
type TrustedProxies struct {
	prefixes []netip.Prefix
}

// NewTrustedProxies parses a list of CIDR prefixes or plain addresses.
// Entries that parse as neither are skipped.
func NewTrustedProxies(entries []string) *TrustedProxies {
	tp := &TrustedProxies{}
	for _, entry := range entries {
		if prefix, err := netip.ParsePrefix(entry); err == nil {
			tp.prefixes = append(tp.prefixes, prefix.Masked())
			continue
		}
		if addr, err := netip.ParseAddr(entry); err == nil {
			tp.prefixes = append(tp.prefixes, netip.PrefixFrom(addr, addr.BitLen()))
		}
	}
	return tp
}

// IsTrusted reports whether addr falls inside any configured prefix.
func (tp *TrustedProxies) IsTrusted(addr netip.Addr) bool {
	for _, prefix := range tp.prefixes {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

// ClientIP resolves the originating client address for a request. The
// forwarding headers are honored only when the direct peer is a trusted
// proxy; anyone else could set them to dodge per-client rate limits.
// The second return value is false when the peer address cannot be parsed.
func (tp *TrustedProxies) ClientIP(r *http.Request) (netip.Addr, bool) {
	direct := parsePeerAddr(r.RemoteAddr)
	if !direct.IsValid() || !tp.IsTrusted(direct) {
		return direct, direct.IsValid()
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// The first parseable entry is the original client, the rest are
		// proxy hops appended along the way.
		for _, hop := range strings.Split(xff, ",") {
			if addr, err := netip.ParseAddr(strings.TrimSpace(hop)); err == nil {
				return addr.Unmap(), true
			}
		}
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		if addr, err := netip.ParseAddr(xri); err == nil {
			return addr.Unmap(), true
		}
	}

	return direct, true
}

// ClientIPString returns the resolved client IP for logging and rate limit
// keys, or "unknown" when the peer address cannot be parsed.
func (tp *TrustedProxies) ClientIPString(r *http.Request) string {
	addr, ok := tp.ClientIP(r)
	if !ok {
		return "unknown"
	}
	return addr.String()
}

// parsePeerAddr parses a RemoteAddr, which is usually "ip:port" but may be
// a bare address. Returns the zero Addr when nothing parses.
func parsePeerAddr(addr string) netip.Addr {
	if ap, err := netip.ParseAddrPort(addr); err == nil {
		return ap.Addr().Unmap()
	}
	if a, err := netip.ParseAddr(addr); err == nil {
		return a.Unmap()
	}
	return netip.Addr{}
}
