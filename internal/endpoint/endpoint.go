// Package endpoint normalizes WebSocket URLs into a scheme/host/port/path
// descriptor. Parsing is pure: no network I/O, no environment lookups.
package endpoint

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/yukibtc/async-wsocket/wserr"
)

// Scheme is the transport security scheme of an endpoint.
type Scheme int

const (
	// SchemeWS is plaintext (ws://, default port 80).
	SchemeWS Scheme = iota
	// SchemeWSS is TLS (wss://, default port 443).
	SchemeWSS
)

// String returns the URL scheme name.
func (s Scheme) String() string {
	if s == SchemeWSS {
		return "wss"
	}
	return "ws"
}

// Endpoint is a validated, normalized WebSocket target.
// Immutable once constructed.
type Endpoint struct {
	Scheme   Scheme
	Host     string
	Port     int
	Path     string
	RawQuery string
}

// Parse validates a WebSocket URL and extracts its components.
// Only ws:// and wss:// are accepted; the port defaults to 80/443 and the
// path defaults to "/".
func Parse(rawURL string) (Endpoint, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return Endpoint{}, wserr.Wrapf(err, wserr.CodeInvalidURL, "parse %q", rawURL)
	}

	var scheme Scheme
	switch strings.ToLower(u.Scheme) {
	case "ws":
		scheme = SchemeWS
	case "wss":
		scheme = SchemeWSS
	default:
		return Endpoint{}, wserr.Newf(wserr.CodeInvalidURL, "unsupported scheme %q (want ws or wss)", u.Scheme)
	}

	host := u.Hostname()
	if host == "" {
		return Endpoint{}, wserr.Newf(wserr.CodeInvalidURL, "missing host in %q", rawURL)
	}

	port := defaultPort(scheme)
	if p := u.Port(); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil || port < 1 || port > 65535 {
			return Endpoint{}, wserr.Newf(wserr.CodeInvalidURL, "invalid port %q", p)
		}
	}

	path := u.Path
	if path == "" {
		path = "/"
	}

	return Endpoint{
		Scheme:   scheme,
		Host:     host,
		Port:     port,
		Path:     path,
		RawQuery: u.RawQuery,
	}, nil
}

func defaultPort(s Scheme) int {
	if s == SchemeWSS {
		return 443
	}
	return 80
}

// IsSecure reports whether the endpoint requires TLS on the native backend.
func (e Endpoint) IsSecure() bool {
	return e.Scheme == SchemeWSS
}

// Addr returns the host:port dial address.
func (e Endpoint) Addr() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

// URL reconstructs the normalized URL string.
func (e Endpoint) URL() string {
	s := fmt.Sprintf("%s://%s%s", e.Scheme, e.Addr(), e.Path)
	if e.RawQuery != "" {
		s += "?" + e.RawQuery
	}
	return s
}

// String implements fmt.Stringer.
func (e Endpoint) String() string {
	return e.URL()
}
