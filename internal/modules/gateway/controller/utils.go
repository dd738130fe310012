package controller

import (
	"errors"
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// clientIP returns the caller's address, or "" when it cannot be determined.
// Proxy headers are only consulted when trustProxy is set.
func clientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if ip := normalizeIP(first); ip != "" {
				return ip
			}
		}
		if ip := normalizeIP(r.Header.Get("X-Real-IP")); ip != "" {
			return ip
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return normalizeIP(host)
}

func normalizeIP(s string) string {
	addr, err := netip.ParseAddr(strings.TrimSpace(s))
	if err != nil {
		return ""
	}
	return addr.Unmap().String()
}

func parseLocationQuery(r *http.Request, trustProxy bool) (string, error) {
	s := r.URL.Query().Get("ip")
	if s == "" {
		ip := clientIP(r, trustProxy)
		if ip == "" {
			return "", errors.New("missing 'ip' and client address is unknown")
		}
		return ip, nil
	}
	ip := normalizeIP(s)
	if ip == "" {
		return "", errors.New("invalid 'ip' (expected IPv4 or IPv6 address)")
	}
	return ip, nil
}
