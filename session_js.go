//go:build js && wasm

package wsocket

import (
	"context"
	"sync"
	"sync/atomic"
	"syscall/js"

	"github.com/eapache/queue"

	"github.com/yukibtc/async-wsocket/wserr"
	"github.com/yukibtc/async-wsocket/wslog"
)

// jsSession adapts the host WebSocket's event callbacks to the Session
// contract. The host runtime is single-threaded and event-driven, so
// "suspension" means waiting for the next host-delivered event; the
// mutex only guards against the Go scheduler interleaving goroutines,
// not OS-level parallelism.
//
// Inbound messages delivered before the caller starts consuming are held
// in a bounded FIFO. Stalling is impossible without blocking the only
// thread and silent drops would break FIFO delivery, so exceeding the
// bound fails the session with the overflow code and closes the socket.
type jsSession struct {
	ws     js.Value
	logger wslog.Logger

	state atomic.Int32

	mu     sync.Mutex
	buf    *queue.Queue
	maxBuf int

	notify chan struct{}
	openCh chan struct{}
	done   chan struct{}

	openOnce sync.Once
	doneOnce sync.Once

	termErr      error
	errDelivered bool
	sawError     bool
	closeCode    int
	closeReason  string

	onOpen    js.Func
	onMessage js.Func
	onError   js.Func
	onClose   js.Func
}

func newJSSession(ws js.Value, logger wslog.Logger, bufSize int) *jsSession {
	s := &jsSession{
		ws:     ws,
		logger: logger,
		buf:    queue.New(),
		maxBuf: bufSize,
		notify: make(chan struct{}, 1),
		openCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
	s.state.Store(int32(StateConnecting))

	s.onOpen = js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		s.openOnce.Do(func() { close(s.openCh) })
		return nil
	})
	s.onMessage = js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		s.handleMessage(args[0].Get("data"))
		return nil
	})
	s.onError = js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		// The host error event carries no information; the close event
		// that follows decides the terminal state.
		s.mu.Lock()
		s.sawError = true
		s.mu.Unlock()
		return nil
	})
	s.onClose = js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		evt := args[0]
		s.handleClose(evt.Get("code").Int(), evt.Get("reason").String(), evt.Get("wasClean").Bool())
		return nil
	})

	ws.Set("onopen", s.onOpen)
	ws.Set("onmessage", s.onMessage)
	ws.Set("onerror", s.onError)
	ws.Set("onclose", s.onClose)

	return s
}

func (s *jsSession) State() State {
	return State(s.state.Load())
}

func (s *jsSession) Subprotocol() string {
	return s.ws.Get("protocol").String()
}

func (s *jsSession) Send(ctx context.Context, m Message) error {
	if m.Type == CloseMessage {
		return s.Close(m.Code, m.Reason)
	}

	switch st := s.State(); {
	case st.terminal():
		return s.takeTerminalErr()
	case st != StateOpen:
		return wserr.ErrStreamClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	switch m.Type {
	case TextMessage:
		return s.hostSend(string(m.Data))
	case BinaryMessage:
		u8 := js.Global().Get("Uint8Array").New(len(m.Data))
		js.CopyBytesToJS(u8, m.Data)
		return s.hostSend(u8)
	case PingMessage, PongMessage:
		return wserr.New(wserr.CodeIO, "ping/pong frames are managed by the host on the browser backend")
	default:
		return wserr.Newf(wserr.CodeInternal, "unknown message type %v", m.Type)
	}
}

func (s *jsSession) hostSend(v interface{}) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = wserr.Newf(wserr.CodeIO, "host send failed: %v", r)
		}
	}()
	s.ws.Call("send", v)
	return nil
}

func (s *jsSession) Recv(ctx context.Context) (Message, error) {
	for {
		s.mu.Lock()
		if s.buf.Length() > 0 {
			m := s.buf.Remove().(Message)
			s.mu.Unlock()
			return m, nil
		}
		terminated := s.State().terminal()
		s.mu.Unlock()

		if terminated {
			return Message{}, s.takeTerminalErr()
		}

		select {
		case <-s.notify:
		case <-s.done:
		case <-ctx.Done():
			return Message{}, ctx.Err()
		}
	}
}

func (s *jsSession) Close(code int, reason string) error {
	code, err := validateClose(code, reason)
	if err != nil {
		return err
	}

	if !s.state.CompareAndSwap(int32(StateOpen), int32(StateClosing)) {
		return nil
	}

	s.logger.Debugf("closing session: code=%d reason=%q", code, reason)
	callIgnoring(s.ws, "close", code, reason)
	return nil
}

func (s *jsSession) handleMessage(data js.Value) {
	var m Message
	if data.Type() == js.TypeString {
		m = Message{Type: TextMessage, Data: []byte(data.String())}
	} else {
		u8 := js.Global().Get("Uint8Array").New(data)
		buf := make([]byte, u8.Get("byteLength").Int())
		js.CopyBytesToGo(buf, u8)
		m = Message{Type: BinaryMessage, Data: buf}
	}

	s.mu.Lock()
	if s.buf.Length() >= s.maxBuf {
		if s.termErr == nil {
			s.termErr = wserr.Newf(wserr.CodeOverflow, "inbound buffer full (%d messages)", s.maxBuf)
		}
		s.mu.Unlock()
		s.logger.Warnf("inbound buffer overflow, failing session")
		s.terminate(StateFailed)
		callIgnoring(s.ws, "close")
		return
	}
	s.buf.Add(m)
	s.mu.Unlock()
	s.signal()
}

func (s *jsSession) handleClose(code int, reason string, wasClean bool) {
	s.mu.Lock()
	s.closeCode = code
	s.closeReason = reason
	sawError := s.sawError
	// The close frame is part of the inbound sequence; it bypasses the
	// overflow bound since at most one ever arrives.
	s.buf.Add(Message{Type: CloseMessage, Code: code, Reason: reason})
	if s.termErr == nil && !wasClean && s.State() != StateClosing {
		s.termErr = wserr.Newf(wserr.CodeIO, "connection lost: code=%d clean=%v error=%v", code, wasClean, sawError)
	}
	failed := s.termErr != nil
	s.mu.Unlock()

	if failed {
		s.terminate(StateFailed)
	} else {
		s.terminate(StateClosed)
	}

	// Release the callback funcs off the event path; releasing onClose
	// while it runs would free the closure under our feet.
	go s.releaseFuncs()
}

// terminate moves to a terminal state (never out of one) and wakes any
// waiter.
func (s *jsSession) terminate(st State) {
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
	s.signal()
}

func (s *jsSession) takeTerminalErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.termErr != nil && !s.errDelivered {
		s.errDelivered = true
		return s.termErr
	}
	return wserr.ErrStreamClosed
}

func (s *jsSession) signal() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *jsSession) releaseFuncs() {
	s.ws.Set("onopen", js.Null())
	s.ws.Set("onmessage", js.Null())
	s.ws.Set("onerror", js.Null())
	s.ws.Set("onclose", js.Null())
	s.onOpen.Release()
	s.onMessage.Release()
	s.onError.Release()
	s.onClose.Release()
}
