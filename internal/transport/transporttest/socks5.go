// Package transporttest provides an in-process SOCKS5 proxy speaking
// just enough of RFC 1928 to exercise the tunnel stage: no-auth
// greeting, one CONNECT request, then a scripted behavior.
package transporttest

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync"
	"testing"
	"time"
)

// SOCKS5Mode scripts how the proxy treats a tunnel request.
type SOCKS5Mode int

const (
	// ModeForward grants the tunnel and relays bytes to the real target.
	ModeForward SOCKS5Mode = iota
	// ModeEcho grants the tunnel and echoes tunneled bytes back.
	ModeEcho
	// ModeReject answers the CONNECT with "connection refused".
	ModeReject
	// ModeStall accepts the TCP connection but never answers.
	ModeStall
)

// SOCKS5Proxy is the scripted proxy. Counters let tests assert how far a
// connect attempt got.
type SOCKS5Proxy struct {
	ln   net.Listener
	mode SOCKS5Mode

	mu       sync.Mutex
	accepted []net.Conn
	tunnels  int
}

// StartSOCKS5 starts a proxy on a loopback port and tears it down with
// the test.
func StartSOCKS5(t testing.TB, mode SOCKS5Mode) *SOCKS5Proxy {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	p := &SOCKS5Proxy{ln: ln, mode: mode}
	go p.serve()
	t.Cleanup(func() { ln.Close() })
	return p
}

// Addr returns the proxy's host:port.
func (p *SOCKS5Proxy) Addr() string {
	return p.ln.Addr().String()
}

// Accepted returns how many TCP connections reached the proxy.
func (p *SOCKS5Proxy) Accepted() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.accepted)
}

// Tunnels returns how many CONNECT requests were granted.
func (p *SOCKS5Proxy) Tunnels() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.tunnels
}

// AssertConnsClosed fails the test unless every connection the proxy
// accepted has been closed by the client side.
func (p *SOCKS5Proxy) AssertConnsClosed(t testing.TB) {
	t.Helper()

	p.mu.Lock()
	conns := append([]net.Conn(nil), p.accepted...)
	p.mu.Unlock()

	for i, conn := range conns {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		// A FIN still delivers bytes buffered before the close (the
		// client's SOCKS5 greeting), so drain until the read errors and
		// judge closedness from that final result.
		var err error
		buf := make([]byte, 256)
		for {
			if _, err = conn.Read(buf); err != nil {
				break
			}
		}
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			t.Errorf("proxy conn %d not closed within deadline", i)
		}
	}
}

func (p *SOCKS5Proxy) serve() {
	for {
		conn, err := p.ln.Accept()
		if err != nil {
			return
		}
		p.mu.Lock()
		p.accepted = append(p.accepted, conn)
		p.mu.Unlock()
		go p.handle(conn)
	}
}

func (p *SOCKS5Proxy) handle(conn net.Conn) {
	defer conn.Close()

	if p.mode == ModeStall {
		time.Sleep(10 * time.Second)
		return
	}

	target, err := p.negotiate(conn)
	if err != nil {
		return
	}

	switch p.mode {
	case ModeReject:
		conn.Write([]byte{0x05, 0x05, 0x00, 0x01, 0, 0, 0, 0, 0, 0})
		return

	case ModeEcho:
		p.grant(conn)
		io.Copy(conn, conn)

	case ModeForward:
		upstream, err := net.DialTimeout("tcp", target, 5*time.Second)
		if err != nil {
			conn.Write([]byte{0x05, 0x04, 0x00, 0x01, 0, 0, 0, 0, 0, 0})
			return
		}
		defer upstream.Close()
		p.grant(conn)

		done := make(chan struct{}, 2)
		go func() { io.Copy(upstream, conn); done <- struct{}{} }()
		go func() { io.Copy(conn, upstream); done <- struct{}{} }()
		<-done
	}
}

// negotiate consumes the greeting and CONNECT request, returning the
// requested target address.
func (p *SOCKS5Proxy) negotiate(conn net.Conn) (string, error) {
	hdr := make([]byte, 2)
	if _, err := io.ReadFull(conn, hdr); err != nil || hdr[0] != 0x05 {
		return "", fmt.Errorf("bad greeting")
	}
	methods := make([]byte, hdr[1])
	if _, err := io.ReadFull(conn, methods); err != nil {
		return "", err
	}
	if _, err := conn.Write([]byte{0x05, 0x00}); err != nil {
		return "", err
	}

	req := make([]byte, 4)
	if _, err := io.ReadFull(conn, req); err != nil || req[0] != 0x05 || req[1] != 0x01 {
		return "", fmt.Errorf("bad request")
	}

	var host string
	switch req[3] {
	case 0x01:
		buf := make([]byte, 4)
		if _, err := io.ReadFull(conn, buf); err != nil {
			return "", err
		}
		host = net.IP(buf).String()
	case 0x03:
		l := make([]byte, 1)
		if _, err := io.ReadFull(conn, l); err != nil {
			return "", err
		}
		buf := make([]byte, l[0])
		if _, err := io.ReadFull(conn, buf); err != nil {
			return "", err
		}
		host = string(buf)
	case 0x04:
		buf := make([]byte, 16)
		if _, err := io.ReadFull(conn, buf); err != nil {
			return "", err
		}
		host = net.IP(buf).String()
	default:
		return "", fmt.Errorf("bad atyp")
	}

	portBuf := make([]byte, 2)
	if _, err := io.ReadFull(conn, portBuf); err != nil {
		return "", err
	}
	port := binary.BigEndian.Uint16(portBuf)

	return net.JoinHostPort(host, fmt.Sprintf("%d", port)), nil
}

func (p *SOCKS5Proxy) grant(conn net.Conn) {
	p.mu.Lock()
	p.tunnels++
	p.mu.Unlock()
	conn.Write([]byte{0x05, 0x00, 0x00, 0x01, 0, 0, 0, 0, 0, 0})
}
