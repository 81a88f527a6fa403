//go:build !js

package transport

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"net"
	"sync"

	"github.com/breml/rootcerts/embedded"

	"github.com/yukibtc/async-wsocket/wserr"
)

var (
	bundledOnce sync.Once
	bundledPool *x509.CertPool
)

// BundledRoots returns the certificate pool backed by the embedded
// Mozilla CA list, for environments where the platform store is absent
// or untrusted.
func BundledRoots() *x509.CertPool {
	bundledOnce.Do(func() {
		bundledPool = x509.NewCertPool()
		bundledPool.AppendCertsFromPEM([]byte(embedded.MozillaCACertificatesPEM()))
	})
	return bundledPool
}

// Negotiate performs a TLS client handshake over rawConn. serverName is
// the endpoint host and drives both SNI and certificate verification; it
// must never be the proxy address. roots selects the trust anchors, nil
// meaning the platform store. On any handshake error rawConn is closed
// before returning.
func Negotiate(ctx context.Context, rawConn net.Conn, serverName string, roots *x509.CertPool) (net.Conn, error) {
	cfg := &tls.Config{
		ServerName: serverName,
		RootCAs:    roots,
		MinVersion: tls.VersionTLS12,
	}

	tlsConn := tls.Client(rawConn, cfg)
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		rawConn.Close()
		if ctxErr := stageTimeout(ctx, err); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, wserr.Wrapf(err, wserr.CodeTLSHandshake, "tls handshake with %s", serverName)
	}

	return tlsConn, nil
}
