//go:build !js

// Package transport layers the native connection pipeline: TCP dial,
// optional SOCKS5 tunneling and optional TLS negotiation. Each stage
// consumes a net.Conn and yields a net.Conn, so downstream stages never
// know which stages ran before them.
package transport

import (
	"context"
	"errors"
	"net"
	"sync/atomic"

	"golang.org/x/net/proxy"

	"github.com/yukibtc/async-wsocket/wserr"
)

// Tunnel opens a TCP connection to a SOCKS5 proxy and negotiates a tunnel
// to targetAddr (host:port). The returned conn behaves like a direct TCP
// connection to the target. Failing to reach the proxy and being rejected
// by the proxy are reported as distinct error codes.
func Tunnel(ctx context.Context, proxyAddr, targetAddr string) (net.Conn, error) {
	fwd := &trackingDialer{next: &net.Dialer{}}

	d, err := proxy.SOCKS5("tcp", proxyAddr, nil, fwd)
	if err != nil {
		return nil, wserr.Wrapf(err, wserr.CodeProxyHandshake, "socks5 dialer for %s", proxyAddr)
	}

	var conn net.Conn
	if cd, ok := d.(proxy.ContextDialer); ok {
		conn, err = cd.DialContext(ctx, "tcp", targetAddr)
	} else {
		conn, err = d.Dial("tcp", targetAddr)
	}
	if err != nil {
		if ctxErr := stageTimeout(ctx, err); ctxErr != nil {
			return nil, ctxErr
		}
		if !fwd.reached.Load() {
			return nil, wserr.Wrapf(err, wserr.CodeProxyUnreachable, "dial proxy %s", proxyAddr)
		}
		return nil, wserr.Wrapf(err, wserr.CodeProxyHandshake, "socks5 tunnel to %s via %s", targetAddr, proxyAddr)
	}

	return conn, nil
}

// trackingDialer records whether the TCP leg to the proxy itself
// succeeded, which is what separates PROXY_UNREACHABLE from a rejection
// during the SOCKS5 negotiation.
type trackingDialer struct {
	next    *net.Dialer
	reached atomic.Bool
}

func (t *trackingDialer) Dial(network, addr string) (net.Conn, error) {
	return t.DialContext(context.Background(), network, addr)
}

func (t *trackingDialer) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	conn, err := t.next.DialContext(ctx, network, addr)
	if err == nil {
		t.reached.Store(true)
	}
	return conn, err
}

// stageTimeout converts a context expiry observed during a pipeline stage
// into the timeout error, since a cancelled stage reports wrapper errors
// of its own.
func stageTimeout(ctx context.Context, err error) error {
	if ctx.Err() == nil {
		return nil
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return wserr.Wrap(err, wserr.CodeTimeout, "connect deadline exceeded")
	}
	return wserr.Wrap(err, wserr.CodeTimeout, "connect cancelled")
}
