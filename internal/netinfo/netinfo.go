// Package netinfo discovers the host address and prints the startup banner.
package netinfo

import (
	"fmt"
	"io"
	"net"
	"strings"

	"github.com/jerometseng/requestlog/internal/model"
)

// FallbackAddress is used when no suitable interface address exists
const FallbackAddress = "127.0.0.1"

// interfaceAddrs is swapped out in tests
var interfaceAddrs = systemInterfaceAddrs

// systemInterfaceAddrs lists addresses of interfaces that are up and not loopback
func systemInterfaceAddrs() ([]net.Addr, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("list interfaces: %w", err)
	}

	var out []net.Addr
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		out = append(out, addrs...)
	}
	return out, nil
}

// HostAddress returns the first IPv4 address of an up, non-loopback interface
func HostAddress() string {
	addrs, err := interfaceAddrs()
	if err != nil {
		return FallbackAddress
	}

	for _, a := range addrs {
		var ip net.IP
		switch v := a.(type) {
		case *net.IPNet:
			ip = v.IP
		case *net.IPAddr:
			ip = v.IP
		}
		if ip4 := ip.To4(); ip4 != nil && !ip4.IsLoopback() {
			return ip4.String()
		}
	}
	return FallbackAddress
}

// DocsURL builds the documentation URL; a trailing slash on contextPath is dropped
func DocsURL(host, port, contextPath, docPath string) string {
	contextPath = strings.TrimSuffix(contextPath, "/")
	if docPath != "" && !strings.HasPrefix(docPath, "/") {
		docPath = "/" + docPath
	}
	return fmt.Sprintf("http://%s%s", net.JoinHostPort(host, port), contextPath+docPath)
}

// PortOf extracts the port from a listen address such as ":8080"
func PortOf(addr string) string {
	_, port, err := net.SplitHostPort(addr)
	if err != nil || port == "" {
		return "8080"
	}
	return port
}

const banner = `
 ____  _____ ___  _   _ _____ ____ _____     _     ___   ____
|  _ \| ____/ _ \| | | | ____/ ___|_   _|   | |   / _ \ / ___|
| |_) |  _|| | | | | | |  _| \___ \ | |_____| |  | | | | |  _
|  _ <| |__| |_| | |_| | |___ ___) || |_____| |__| |_| | |_| |
|_| \_\_____\__\_\\___/|_____|____/ |_|     |_____\___/ \____|
`

// Banner prints the product banner and, when enabled, the documentation URL
func Banner(w io.Writer, cfg *model.Config) {
	fmt.Fprint(w, banner)
	if !cfg.Docs.Banner || cfg.Docs.Path == "" {
		return
	}

	line := strings.Repeat("=", 110)
	url := DocsURL(HostAddress(), PortOf(cfg.Server.Addr), cfg.Server.ContextPath, cfg.Docs.Path)
	fmt.Fprintf(w, "<%s>\n\tAPI documentation: %s\n<%s>\n", line, url, line)
}
