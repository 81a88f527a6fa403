//go:build !js

package wsocket

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/yukibtc/async-wsocket/wserr"
	"github.com/yukibtc/async-wsocket/wslog"
)

const (
	// controlWriteTimeout bounds control-frame writes issued from the
	// read pump (pong echo, close echo).
	controlWriteTimeout = 10 * time.Second

	// closeHandshakeTimeout bounds how long a locally initiated close
	// waits for the peer's close reply before the pump is forced out.
	closeHandshakeTimeout = 10 * time.Second
)

// nativeSession adapts a gorilla connection to the Session contract.
// One read pump feeds the inbound channel; a full channel stalls the
// pump, which propagates backpressure to the peer through TCP. Writes
// are serialized by writeMu to keep outbound FIFO under concurrent Send.
type nativeSession struct {
	conn   *websocket.Conn
	logger wslog.Logger

	state   atomic.Int32
	writeMu sync.Mutex

	inbound  chan Message
	done     chan struct{}
	doneOnce sync.Once

	errMu        sync.Mutex
	termErr      error
	errDelivered bool
}

func newNativeSession(conn *websocket.Conn, logger wslog.Logger, bufSize int) *nativeSession {
	s := &nativeSession{
		conn:    conn,
		logger:  logger,
		inbound: make(chan Message, bufSize),
		done:    make(chan struct{}),
	}
	s.state.Store(int32(StateOpen))

	conn.SetPingHandler(s.onPing)
	conn.SetPongHandler(s.onPong)
	conn.SetCloseHandler(s.onClose)

	go s.readPump()
	return s
}

func (s *nativeSession) State() State {
	return State(s.state.Load())
}

func (s *nativeSession) Subprotocol() string {
	return s.conn.Subprotocol()
}

func (s *nativeSession) Send(ctx context.Context, m Message) error {
	if m.Type == CloseMessage {
		return s.Close(m.Code, m.Reason)
	}

	switch st := s.State(); {
	case st.terminal():
		return s.takeTerminalErr()
	case st == StateClosing:
		return wserr.ErrStreamClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	deadline := time.Time{}
	if d, ok := ctx.Deadline(); ok {
		deadline = d
	}
	s.conn.SetWriteDeadline(deadline)

	var err error
	switch m.Type {
	case TextMessage:
		err = s.conn.WriteMessage(websocket.TextMessage, m.Data)
	case BinaryMessage:
		err = s.conn.WriteMessage(websocket.BinaryMessage, m.Data)
	case PingMessage:
		err = s.conn.WriteControl(websocket.PingMessage, m.Data, controlDeadline(ctx))
	case PongMessage:
		err = s.conn.WriteControl(websocket.PongMessage, m.Data, controlDeadline(ctx))
	default:
		return wserr.Newf(wserr.CodeInternal, "unknown message type %v", m.Type)
	}
	if err != nil {
		if errors.Is(err, websocket.ErrCloseSent) {
			return wserr.ErrStreamClosed
		}
		werr := wserr.Wrapf(err, wserr.CodeIO, "write %s frame", m.Type)
		s.setTerminal(StateFailed, werr)
		s.conn.Close()
		return werr
	}
	return nil
}

func (s *nativeSession) Recv(ctx context.Context) (Message, error) {
	select {
	case m, ok := <-s.inbound:
		if !ok {
			return Message{}, s.takeTerminalErr()
		}
		return m, nil
	case <-ctx.Done():
		return Message{}, ctx.Err()
	}
}

func (s *nativeSession) Close(code int, reason string) error {
	code, err := validateClose(code, reason)
	if err != nil {
		return err
	}

	// First caller wins; every later call observes a state past Open and
	// is a no-op.
	if !s.state.CompareAndSwap(int32(StateOpen), int32(StateClosing)) {
		return nil
	}

	s.logger.Debugf("closing session: code=%d reason=%q", code, reason)

	frame := websocket.FormatCloseMessage(code, reason)
	if err := s.conn.WriteControl(websocket.CloseMessage, frame, time.Now().Add(controlWriteTimeout)); err != nil && !errors.Is(err, websocket.ErrCloseSent) {
		werr := wserr.Wrap(err, wserr.CodeIO, "write close frame")
		s.setTerminal(StateFailed, werr)
		s.conn.Close()
		return werr
	}

	// Bound the wait for the peer's close reply; the read pump finishes
	// the Closing -> Closed transition when it arrives.
	s.conn.SetReadDeadline(time.Now().Add(closeHandshakeTimeout))
	return nil
}

// readPump is the sole reader. It owns the inbound channel and the
// terminal state transition.
func (s *nativeSession) readPump() {
	defer close(s.inbound)
	defer s.conn.Close()

	for {
		mt, data, err := s.conn.ReadMessage()
		if err != nil {
			s.finish(err)
			return
		}

		var m Message
		switch mt {
		case websocket.TextMessage:
			m = Message{Type: TextMessage, Data: data}
		case websocket.BinaryMessage:
			m = Message{Type: BinaryMessage, Data: data}
		default:
			continue
		}
		if !s.deliver(m) {
			return
		}
	}
}

// deliver blocks until the caller drains the inbound channel or the
// session reaches a terminal state.
func (s *nativeSession) deliver(m Message) bool {
	select {
	case s.inbound <- m:
		return true
	case <-s.done:
		return false
	}
}

// finish classifies the read-pump exit into the terminal state.
func (s *nativeSession) finish(err error) {
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		s.logger.Debugf("session closed by peer: code=%d reason=%q", ce.Code, ce.Text)
		s.setTerminal(StateClosed, nil)
		return
	}

	if s.State() == StateClosing && expectedAfterClose(err) {
		s.setTerminal(StateClosed, nil)
		return
	}

	s.logger.WithError(err).Debug("session read failed")
	s.setTerminal(StateFailed, wserr.Wrap(err, wserr.CodeIO, "read failed"))
}

// expectedAfterClose reports errors that a locally initiated close
// legitimately produces instead of a close frame: the peer dropping the
// TCP stream, or the bounded handshake wait expiring.
func expectedAfterClose(err error) bool {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, net.ErrClosed) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func (s *nativeSession) setTerminal(st State, err error) {
	s.errMu.Lock()
	if s.termErr == nil {
		s.termErr = err
	}
	s.errMu.Unlock()

	for {
		cur := s.state.Load()
		if State(cur).terminal() {
			break
		}
		if s.state.CompareAndSwap(cur, int32(st)) {
			break
		}
	}
	s.doneOnce.Do(func() { close(s.done) })
}

// takeTerminalErr surfaces a transport failure exactly once; afterwards
// the session reports a plain closed stream.
func (s *nativeSession) takeTerminalErr() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	if s.termErr != nil && !s.errDelivered {
		s.errDelivered = true
		return s.termErr
	}
	return wserr.ErrStreamClosed
}

// onPing surfaces the ping to the caller and answers it, preserving the
// keep-alive behavior of the default handler.
func (s *nativeSession) onPing(appData string) error {
	s.deliver(Message{Type: PingMessage, Data: []byte(appData)})
	err := s.conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(controlWriteTimeout))
	if errors.Is(err, websocket.ErrCloseSent) {
		return nil
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return nil
	}
	return err
}

func (s *nativeSession) onPong(appData string) error {
	s.deliver(Message{Type: PongMessage, Data: []byte(appData)})
	return nil
}

// onClose surfaces the peer's close frame in-order and echoes it, as the
// default handler would. The pump exits right after with a CloseError.
func (s *nativeSession) onClose(code int, text string) error {
	s.deliver(Message{Type: CloseMessage, Code: code, Reason: text})
	frame := websocket.FormatCloseMessage(code, "")
	s.conn.WriteControl(websocket.CloseMessage, frame, time.Now().Add(controlWriteTimeout))
	return nil
}

func controlDeadline(ctx context.Context) time.Time {
	if d, ok := ctx.Deadline(); ok {
		return d
	}
	return time.Now().Add(controlWriteTimeout)
}
