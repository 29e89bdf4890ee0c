package pkg

import (
	"net"
	"net/http"
	"regexp"
	"strings"
)

var (
	localDockerIpRegex = regexp.MustCompile(`^172\.\d{1,3}\.0\.1:\d{1,5}`)
)

// IPIsLocal reports whether addr comes from local development or from the
// docker bridge network.
func IPIsLocal(addr string) bool {
	if strings.HasPrefix(addr, "127.0.0.1:") || strings.HasPrefix(addr, "[::1]:") {
		return true
	}
	return localDockerIpRegex.MatchString(addr)
}

// ClientIP returns the caller's IP for per-client keys such as rate limits.
// Proxy headers win over the connection address; local callers all map to
// "localhost".
func ClientIP(r *http.Request) string {
	addr := r.Header.Get("X-Real-Ip")
	if addr == "" {
		// first hop of "client, proxy1, proxy2"
		addr, _, _ = strings.Cut(r.Header.Get("X-Forwarded-For"), ",")
		addr = strings.TrimSpace(addr)
	}
	if addr == "" {
		addr = r.RemoteAddr
	}

	if IPIsLocal(addr) {
		return "localhost"
	}
	if host, _, err := net.SplitHostPort(addr); err == nil {
		addr = host
	}
	if ip := net.ParseIP(addr); ip != nil {
		return ip.String()
	}
	return "unknown"
}
