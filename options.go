package wsocket

import (
	"net"
	"strconv"
	"time"

	"github.com/yukibtc/async-wsocket/wserr"
	"github.com/yukibtc/async-wsocket/wslog"
)

// TrustPolicy selects the root-of-trust source for TLS negotiation on
// the native backend. The browser backend performs TLS itself, so the
// policy is ignored there.
type TrustPolicy int

const (
	// PlatformRoots uses the operating system certificate store.
	PlatformRoots TrustPolicy = iota
	// BundledRoots uses the CA list embedded in the binary, for hosts
	// whose platform store is missing or untrusted.
	BundledRoots
)

// defaultReadBufferMessages bounds the inbound buffer when the caller
// does not set one.
const defaultReadBufferMessages = 256

// ProxyConfig names a SOCKS5 proxy endpoint. Only the native backend can
// tunnel; configuring a proxy on the browser backend fails the connect.
type ProxyConfig struct {
	Host string
	Port int
}

// Addr returns the host:port dial address of the proxy.
func (p ProxyConfig) Addr() string {
	return net.JoinHostPort(p.Host, strconv.Itoa(p.Port))
}

func (p ProxyConfig) validate() error {
	if p.Host == "" {
		return wserr.New(wserr.CodeInvalidURL, "proxy host is empty")
	}
	if p.Port < 1 || p.Port > 65535 {
		return wserr.Newf(wserr.CodeInvalidURL, "invalid proxy port %d", p.Port)
	}
	return nil
}

// Options configures a single Connect call. The zero value is usable:
// no proxy, platform trust roots, no timeout beyond the caller's
// context. Options are not retained after the connection is established.
type Options struct {
	// Proxy routes the native connection through a SOCKS5 proxy.
	Proxy *ProxyConfig

	// TLSTrust selects the trust anchors for wss endpoints (native only).
	TLSTrust TrustPolicy

	// ConnectTimeout bounds the whole establishment sequence. Zero means
	// the sequence is bounded only by the context passed to Connect.
	ConnectTimeout time.Duration

	// Subprotocols are offered during the handshake, in preference order.
	Subprotocols []string

	// ReadBufferMessages bounds the inbound message buffer. On the
	// browser backend exceeding it fails the session (CodeOverflow); on
	// the native backend a full buffer stalls the read pump, pushing
	// backpressure onto the peer. Zero means the default of 256.
	ReadBufferMessages int

	// Logger receives connection lifecycle logs. Nil means the package
	// default, which discards output.
	Logger wslog.Logger
}

func (o *Options) logger() wslog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return wslog.Default()
}

func (o *Options) readBufferMessages() int {
	if o.ReadBufferMessages > 0 {
		return o.ReadBufferMessages
	}
	return defaultReadBufferMessages
}
