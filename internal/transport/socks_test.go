//go:build !js

package transport

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yukibtc/async-wsocket/internal/transport/transporttest"
	"github.com/yukibtc/async-wsocket/wserr"
)

func TestTunnelEcho(t *testing.T) {
	proxy := transporttest.StartSOCKS5(t, transporttest.ModeEcho)

	conn, err := Tunnel(context.Background(), proxy.Addr(), "target.internal:7000")
	require.NoError(t, err)
	defer conn.Close()

	payload := []byte("ping through the tunnel")
	_, err = conn.Write(payload)
	require.NoError(t, err)

	got := make([]byte, len(payload))
	_, err = io.ReadFull(conn, got)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
	assert.Equal(t, 1, proxy.Tunnels())
}

func TestTunnelProxyUnreachable(t *testing.T) {
	// Grab a port that is guaranteed closed.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	_, err = Tunnel(context.Background(), addr, "target.internal:7000")
	require.Error(t, err)
	assert.True(t, wserr.IsCode(err, wserr.CodeProxyUnreachable), "got %v", err)
	assert.True(t, wserr.IsRetryable(err))
}

func TestTunnelRejectedByProxy(t *testing.T) {
	proxy := transporttest.StartSOCKS5(t, transporttest.ModeReject)

	_, err := Tunnel(context.Background(), proxy.Addr(), "target.internal:7000")
	require.Error(t, err)
	assert.True(t, wserr.IsCode(err, wserr.CodeProxyHandshake), "got %v", err)
	assert.False(t, wserr.IsRetryable(err))
	assert.Equal(t, 0, proxy.Tunnels())
}

func TestTunnelTimeout(t *testing.T) {
	proxy := transporttest.StartSOCKS5(t, transporttest.ModeStall)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := Tunnel(ctx, proxy.Addr(), "target.internal:7000")
	require.Error(t, err)
	assert.True(t, wserr.IsCode(err, wserr.CodeTimeout), "got %v", err)
	proxy.AssertConnsClosed(t)
}
