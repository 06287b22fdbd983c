package httpapi

import (
	"net"
	"net/http"
	"strings"
)

// consumerID resolves the opaque consumer identity used for broadcast dedup.
// An explicit client-id header always wins; otherwise the client IP is
// resolved from proxy headers in priority order:
//
//  1. X-Forwarded-For (first valid hop)
//  2. X-Real-IP
//  3. RemoteAddr
func consumerID(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get(headerClientID)); id != "" {
		return id
	}

	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		// X-Forwarded-For can contain multiple IPs, find the first valid one
		for hop := range strings.SplitSeq(forwarded, ",") {
			if ip := parseIP(hop); ip != "" {
				return ip
			}
		}
	}

	if ip := parseIP(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		// RemoteAddr may already be a bare IP
		host = r.RemoteAddr
	}
	if ip := parseIP(host); ip != "" {
		return ip
	}
	return r.RemoteAddr
}

// parseIP validates and normalizes an IP address string. Returns an empty
// string when the input is not a valid IP, so spoofed garbage in proxy
// headers never becomes a consumer identity.
func parseIP(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "unknown") {
		return ""
	}

	ip := net.ParseIP(s)
	if ip == nil {
		return ""
	}
	return ip.String()
}
