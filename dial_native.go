//go:build !js

package wsocket

import (
	"context"
	"crypto/x509"
	"errors"
	"net"

	"github.com/gorilla/websocket"

	"github.com/yukibtc/async-wsocket/internal/endpoint"
	"github.com/yukibtc/async-wsocket/internal/transport"
	"github.com/yukibtc/async-wsocket/wserr"
	"github.com/yukibtc/async-wsocket/wslog"
)

// dial is the native backend: TCP (optionally through a SOCKS5 tunnel),
// TLS for wss endpoints, then the HTTP Upgrade handshake driven by
// gorilla/websocket. Each stage reports its own error code; gorilla
// closes the underlying conn itself on a failed handshake, so no
// partial resource survives an error return.
func dial(ctx context.Context, ep endpoint.Endpoint, opts *Options, logger wslog.Logger) (Session, error) {
	netDial := func(dctx context.Context, network, addr string) (net.Conn, error) {
		if opts.Proxy != nil {
			logger.Debugf("tunneling to %s via socks5 proxy %s", ep.Addr(), opts.Proxy.Addr())
			return transport.Tunnel(dctx, opts.Proxy.Addr(), ep.Addr())
		}
		var d net.Dialer
		return d.DialContext(dctx, network, addr)
	}

	dialer := websocket.Dialer{
		NetDialContext: netDial,
		NetDialTLSContext: func(dctx context.Context, network, addr string) (net.Conn, error) {
			raw, err := netDial(dctx, network, addr)
			if err != nil {
				return nil, err
			}
			// Verification always targets the endpoint host, never the
			// address of a proxy hop.
			return transport.Negotiate(dctx, raw, ep.Host, trustRoots(opts.TLSTrust))
		},
		Subprotocols: opts.Subprotocols,
	}

	conn, resp, err := dialer.DialContext(ctx, ep.URL(), nil)
	if err != nil {
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}
		var e *wserr.Error
		if errors.As(err, &e) {
			// A pipeline stage already classified the failure.
			return nil, e
		}
		if errors.Is(err, websocket.ErrBadHandshake) {
			if resp != nil {
				return nil, wserr.Wrapf(err, wserr.CodeWSHandshake, "server rejected upgrade with status %s", resp.Status)
			}
			return nil, wserr.Wrap(err, wserr.CodeWSHandshake, "websocket handshake failed")
		}
		// Leave timeout/cancellation vs. generic I/O to the connector.
		return nil, err
	}

	return newNativeSession(conn, logger, opts.readBufferMessages()), nil
}

// trustRoots maps the trust policy to a certificate pool, nil selecting
// the platform store.
func trustRoots(policy TrustPolicy) *x509.CertPool {
	if policy == BundledRoots {
		return transport.BundledRoots()
	}
	return nil
}
