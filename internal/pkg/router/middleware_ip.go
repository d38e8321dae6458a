package router

import (
	"net"
	"net/http"
	"strings"
)

// middlewareIP rewrites RemoteAddr to the original client address when the
// request came through a trusted proxy.
func middlewareIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rip := realIP(r); rip != "" {
			r.RemoteAddr = rip
		}
		next.ServeHTTP(w, r)
	})
}

func realIP(r *http.Request) string {
	var ip string

	if tcip := r.Header.Get("True-Client-IP"); tcip != "" {
		ip = tcip
	} else if xrip := r.Header.Get("X-Real-IP"); xrip != "" {
		ip = xrip
	} else if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ip, _, _ = strings.Cut(xff, ",")
	}

	ip = strings.TrimSpace(ip)
	if ip == "" || net.ParseIP(ip) == nil {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err == nil && net.ParseIP(host) != nil {
			return host
		}
		return ""
	}
	return ip
}
