//go:build !js

package wsocket

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yukibtc/async-wsocket/internal/transport/transporttest"
	"github.com/yukibtc/async-wsocket/wserr"
)

func proxyConfig(t *testing.T, p *transporttest.SOCKS5Proxy) *ProxyConfig {
	t.Helper()
	host, portStr, err := net.SplitHostPort(p.Addr())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return &ProxyConfig{Host: host, Port: port}
}

func TestConnectInvalidURLBeforeAnyNetworkIO(t *testing.T) {
	// The proxy acts as the collaborator double: if URL validation ran
	// after any dialing, it would see a connection.
	proxy := transporttest.StartSOCKS5(t, transporttest.ModeForward)

	tests := []string{
		"http://example.com",
		"https://example.com/ws",
		"ftp://example.com",
		"example.com:8080",
		"ws://",
	}

	for _, rawURL := range tests {
		t.Run(rawURL, func(t *testing.T) {
			_, err := Connect(context.Background(), rawURL, &Options{Proxy: proxyConfig(t, proxy)})
			require.Error(t, err)
			assert.True(t, wserr.IsCode(err, wserr.CodeInvalidURL), "got %v", err)
		})
	}

	assert.Equal(t, 0, proxy.Accepted(), "URL validation must precede network I/O")
}

func TestConnectRejectsBadProxyConfig(t *testing.T) {
	_, err := Connect(context.Background(), "ws://example.com", &Options{
		Proxy: &ProxyConfig{Host: "proxy.local", Port: 0},
	})
	require.Error(t, err)
	assert.True(t, wserr.IsCode(err, wserr.CodeInvalidURL), "got %v", err)
}

func TestConnectThroughProxy(t *testing.T) {
	srv := newWSTestServer(t, wsServerConfig{})
	proxy := transporttest.StartSOCKS5(t, transporttest.ModeForward)

	sess, err := Connect(context.Background(), srv.wsURL(), &Options{Proxy: proxyConfig(t, proxy)})
	require.NoError(t, err)
	defer sess.Close(0, "")

	require.NoError(t, sess.Send(context.Background(), Text("via proxy")))

	msg, err := sess.Recv(context.Background())
	require.NoError(t, err)
	assert.Equal(t, TextMessage, msg.Type)
	assert.Equal(t, "via proxy", string(msg.Data))

	assert.Equal(t, 1, proxy.Tunnels())
}

func TestConnectProxyUnreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	host, portStr, _ := net.SplitHostPort(addr)
	port, _ := strconv.Atoi(portStr)

	_, err = Connect(context.Background(), "ws://target.internal/ws", &Options{
		Proxy: &ProxyConfig{Host: host, Port: port},
	})
	require.Error(t, err)
	assert.True(t, wserr.IsCode(err, wserr.CodeProxyUnreachable), "got %v", err)
	assert.True(t, wserr.IsRetryable(err))
}

func TestConnectProxyRejectsTunnel(t *testing.T) {
	proxy := transporttest.StartSOCKS5(t, transporttest.ModeReject)

	_, err := Connect(context.Background(), "ws://target.internal/ws", &Options{Proxy: proxyConfig(t, proxy)})
	require.Error(t, err)
	assert.True(t, wserr.IsCode(err, wserr.CodeProxyHandshake), "got %v", err)
	assert.Equal(t, 0, proxy.Tunnels())
}

func TestConnectTimeoutClosesPartialResources(t *testing.T) {
	proxy := transporttest.StartSOCKS5(t, transporttest.ModeStall)

	_, err := Connect(context.Background(), "ws://target.internal/ws", &Options{
		Proxy:          proxyConfig(t, proxy),
		ConnectTimeout: 150 * time.Millisecond,
	})
	require.Error(t, err)
	assert.True(t, wserr.IsCode(err, wserr.CodeTimeout), "got %v", err)

	proxy.AssertConnsClosed(t)
}

func TestConnectContextCancelled(t *testing.T) {
	proxy := transporttest.StartSOCKS5(t, transporttest.ModeStall)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	_, err := Connect(ctx, "ws://target.internal/ws", &Options{Proxy: proxyConfig(t, proxy)})
	require.Error(t, err)
	assert.True(t, wserr.IsCode(err, wserr.CodeTimeout), "got %v", err)
}

func TestConnectHandshakeRejected(t *testing.T) {
	srv := newWSTestServer(t, wsServerConfig{rejectUpgrade: true})

	_, err := Connect(context.Background(), srv.wsURL(), nil)
	require.Error(t, err)
	assert.True(t, wserr.IsCode(err, wserr.CodeWSHandshake), "got %v", err)
	assert.False(t, wserr.IsRetryable(err))
}

func TestConnectTLSHandshakeFailure(t *testing.T) {
	// A self-signed peer cannot verify against either trust policy.
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	t.Cleanup(srv.Close)
	wssURL := "wss" + strings.TrimPrefix(srv.URL, "https")

	for _, policy := range []TrustPolicy{PlatformRoots, BundledRoots} {
		_, err := Connect(context.Background(), wssURL, &Options{TLSTrust: policy})
		require.Error(t, err)
		assert.True(t, wserr.IsCode(err, wserr.CodeTLSHandshake), "policy %v: got %v", policy, err)
	}
}

func TestConnectDirectDialFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	_, err = Connect(context.Background(), "ws://"+addr+"/ws", nil)
	require.Error(t, err)
	assert.True(t, wserr.IsCode(err, wserr.CodeIO), "got %v", err)
}

func TestConnectNilOptions(t *testing.T) {
	srv := newWSTestServer(t, wsServerConfig{})

	sess, err := Connect(context.Background(), srv.wsURL(), nil)
	require.NoError(t, err)
	assert.Equal(t, StateOpen, sess.State())
	assert.NoError(t, sess.Close(0, ""))
}
