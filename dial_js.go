//go:build js && wasm

package wsocket

import (
	"context"
	"errors"
	"syscall/js"

	"github.com/yukibtc/async-wsocket/internal/endpoint"
	"github.com/yukibtc/async-wsocket/wserr"
	"github.com/yukibtc/async-wsocket/wslog"
)

// dial is the browser backend: scheme dispatch, TLS and the WebSocket
// handshake are one opaque operation performed by the host WebSocket
// primitive. This layer only adapts the host's open/message/error/close
// events onto the Session contract.
func dial(ctx context.Context, ep endpoint.Endpoint, opts *Options, logger wslog.Logger) (Session, error) {
	if opts.Proxy != nil {
		// Host sockets cannot be proxied from here; silently dropping
		// the request would downgrade a privacy expectation.
		return nil, wserr.ErrProxyUnsupported
	}

	ws, err := newHostSocket(ep.URL(), opts.Subprotocols)
	if err != nil {
		return nil, err
	}

	s := newJSSession(ws, logger, opts.readBufferMessages())

	// Race the host handshake against ctx. Abandoning the attempt must
	// unregister the callbacks and close the half-open socket before
	// the error becomes observable.
	select {
	case <-s.openCh:
		s.state.Store(int32(StateOpen))
		return s, nil

	case <-s.done:
		// onclose fired before onopen: the host handshake failed.
		s.releaseFuncs()
		return nil, wserr.Newf(wserr.CodeWSHandshake,
			"host websocket closed during handshake: code=%d reason=%q", s.closeCode, s.closeReason)

	case <-ctx.Done():
		s.releaseFuncs()
		callIgnoring(ws, "close")
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, wserr.Wrap(ctx.Err(), wserr.CodeTimeout, "connect deadline exceeded")
		}
		return nil, wserr.Wrap(ctx.Err(), wserr.CodeTimeout, "connect cancelled")
	}
}

// newHostSocket constructs the host WebSocket. The constructor throws on
// malformed URLs, surfaced here as the invalid-URL code.
func newHostSocket(url string, protocols []string) (ws js.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = wserr.Newf(wserr.CodeInvalidURL, "host rejected websocket url: %v", r)
		}
	}()

	ctor := js.Global().Get("WebSocket")
	if ctor.IsUndefined() {
		return js.Value{}, wserr.New(wserr.CodeWSHandshake, "host environment has no WebSocket constructor")
	}

	if len(protocols) > 0 {
		arr := make([]interface{}, len(protocols))
		for i, p := range protocols {
			arr[i] = p
		}
		ws = ctor.New(url, arr)
	} else {
		ws = ctor.New(url)
	}
	ws.Set("binaryType", "arraybuffer")
	return ws, nil
}

// callIgnoring invokes a method on the host object, swallowing throws.
// Used on teardown paths where the socket state is unknown.
func callIgnoring(v js.Value, method string, args ...interface{}) {
	defer func() { recover() }()
	v.Call(method, args...)
}
