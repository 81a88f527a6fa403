package wsocket

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/yukibtc/async-wsocket/internal/endpoint"
	"github.com/yukibtc/async-wsocket/wserr"
)

// Connect establishes a WebSocket session to rawURL. The URL must use
// the ws or wss scheme. opts may be nil.
//
// The whole establishment sequence (proxy tunnel, TLS negotiation,
// WebSocket handshake) runs under ctx, additionally bounded by
// opts.ConnectTimeout when set. On any failure every partially
// established resource is closed before the error is returned; no stage
// is retried internally.
func Connect(ctx context.Context, rawURL string, opts *Options) (Session, error) {
	if opts == nil {
		opts = &Options{}
	}

	ep, err := endpoint.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	if opts.Proxy != nil {
		if err := opts.Proxy.validate(); err != nil {
			return nil, err
		}
	}

	if opts.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.ConnectTimeout)
		defer cancel()
	}

	logger := opts.logger().WithField("conn_id", uuid.NewString())

	start := time.Now()
	sess, err := dial(ctx, ep, opts, logger)
	if err != nil {
		return nil, connectError(ctx, err)
	}

	logger.WithFields(map[string]interface{}{
		"url":     ep.URL(),
		"elapsed": time.Since(start).String(),
	}).Debug("websocket session established")

	return sess, nil
}

// connectError normalizes a dial failure: stage errors pass through,
// context expiry becomes the timeout code, anything else is generic I/O.
func connectError(ctx context.Context, err error) error {
	var e *wserr.Error
	if errors.As(err, &e) {
		return e
	}
	if ctx.Err() != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return wserr.Wrap(err, wserr.CodeTimeout, "connect deadline exceeded")
		}
		return wserr.Wrap(err, wserr.CodeTimeout, "connect cancelled")
	}
	return wserr.Wrap(err, wserr.CodeIO, "connect failed")
}
