package reqlog

import (
	"net"
	"net/http"
	"strings"
)

// forwardedHeaders are consulted in order before falling back to RemoteAddr
var forwardedHeaders = []string{
	"X-Forwarded-For",
	"Proxy-Client-IP",
	"WL-Proxy-Client-IP",
}

// ClientIP returns the originating client address of r.
// Proxy headers win over RemoteAddr; for comma lists the first element is used.
func ClientIP(r *http.Request) string {
	if r == nil {
		return ""
	}

	addr := ""
	for _, h := range forwardedHeaders {
		v := strings.TrimSpace(r.Header.Get(h))
		if v != "" && !strings.EqualFold(v, "unknown") {
			addr = v
			break
		}
	}

	if addr == "" {
		addr = r.RemoteAddr
		if host, _, err := net.SplitHostPort(addr); err == nil {
			addr = host
		}
	}

	if i := strings.IndexByte(addr, ','); i >= 0 {
		addr = addr[:i]
	}
	return strings.TrimSpace(addr)
}
