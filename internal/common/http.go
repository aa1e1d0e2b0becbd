package common

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP returns the caller address. Proxy headers are resolved upstream by
// chi's RealIP middleware, which rewrites RemoteAddr.
func ClientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	addr := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(addr); err == nil {
		addr = host
	}
	if ip := net.ParseIP(addr); ip != nil {
		return ip.String()
	}
	return addr
}

// ClientKey derives a rate limiting key for the caller. IPv6 callers are
// grouped by their /64 prefix.
func ClientKey(r *http.Request) string {
	raw := ClientIP(r)
	if raw == "" {
		return "anonymous"
	}
	ip := net.ParseIP(raw)
	if ip != nil && ip.To4() == nil {
		return "ip6:" + ip.Mask(net.CIDRMask(64, 128)).String()
	}
	return "ip:" + raw
}
