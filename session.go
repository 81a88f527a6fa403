package wsocket

import (
	"context"

	"github.com/yukibtc/async-wsocket/wserr"
)

// Session is a live WebSocket connection. It owns the underlying
// socket/TLS/proxy resources for its lifetime; dropping the last
// reference without calling Close leaks the connection until the peer
// closes it.
//
// Send is safe for concurrent use; outbound frames go out in call order.
// Recv yields the inbound sequence in peer order and must not be called
// concurrently with itself. Close is idempotent: the first caller wins
// and later calls are no-ops.
type Session interface {
	// Send transmits one message. After the session leaves Open it
	// fails with wserr.ErrStreamClosed or the transport error.
	Send(ctx context.Context, msg Message) error

	// Recv returns the next inbound message. When the close handshake
	// completes it returns wserr.ErrStreamClosed; after a transport
	// failure it returns the failure once, then wserr.ErrStreamClosed.
	Recv(ctx context.Context) (Message, error)

	// Close initiates a graceful close handshake. A zero code means
	// normal closure (1000).
	Close(code int, reason string) error

	// State reports the current lifecycle state.
	State() State

	// Subprotocol returns the server-selected subprotocol, or "".
	Subprotocol() string
}

const (
	// CloseNormalClosure is the default close status code.
	CloseNormalClosure = 1000

	// maxCloseReasonBytes is the RFC 6455 bound on the close reason
	// (125-byte control payload minus the 2-byte status code).
	maxCloseReasonBytes = 123
)

// validateClose enforces the close-frame constraints the browser API
// enforces, so both backends reject the same inputs before the wire:
// code 1000 or 3000-4999, reason at most 123 UTF-8 bytes. A zero code
// normalizes to 1000.
func validateClose(code int, reason string) (int, error) {
	if code == 0 {
		code = CloseNormalClosure
	}
	if code != CloseNormalClosure && (code < 3000 || code > 4999) {
		return 0, wserr.Newf(wserr.CodeInvalidClose, "close code %d not allowed", code)
	}
	if len(reason) > maxCloseReasonBytes {
		return 0, wserr.Newf(wserr.CodeInvalidClose, "close reason exceeds %d bytes", maxCloseReasonBytes)
	}
	return code, nil
}
