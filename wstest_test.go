//go:build !js

package wsocket

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// wsServerConfig scripts the behavior of the in-process peer.
type wsServerConfig struct {
	subprotocols    []string
	rejectUpgrade   bool // answer 403 instead of upgrading
	hardDropAfter   int  // close the TCP conn after N messages, 0 = never
	closeAfterFirst bool // send a close frame after the first message
	closeCode       int
	closeReason     string
	noEcho          bool
}

// wsTestServer is a recording echo peer. It remembers every data/ping
// frame it read, in arrival order, and counts close frames.
type wsTestServer struct {
	*httptest.Server
	cfg      wsServerConfig
	upgrader websocket.Upgrader

	mu          sync.Mutex
	recorded    []Message
	closeFrames int
	peerClose   int
}

func newWSTestServer(t *testing.T, cfg wsServerConfig) *wsTestServer {
	t.Helper()

	s := &wsTestServer{cfg: cfg}
	s.upgrader = websocket.Upgrader{Subprotocols: cfg.subprotocols}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handler))
	t.Cleanup(s.Close)
	return s
}

// wsURL rewrites the httptest base URL onto the ws scheme.
func (s *wsTestServer) wsURL() string {
	return "ws" + strings.TrimPrefix(s.URL, "http")
}

func (s *wsTestServer) record(m Message) {
	s.mu.Lock()
	s.recorded = append(s.recorded, m)
	s.mu.Unlock()
}

func (s *wsTestServer) frames() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.recorded...)
}

func (s *wsTestServer) closeFrameCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeFrames
}

func (s *wsTestServer) peerCloseCode() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peerClose
}

func (s *wsTestServer) handler(w http.ResponseWriter, r *http.Request) {
	if s.cfg.rejectUpgrade {
		http.Error(w, "upgrade refused", http.StatusForbidden)
		return
	}

	c, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer c.Close()

	c.SetPingHandler(func(appData string) error {
		s.record(Message{Type: PingMessage, Data: []byte(appData)})
		return c.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(time.Second))
	})
	c.SetCloseHandler(func(code int, text string) error {
		s.mu.Lock()
		s.closeFrames++
		s.peerClose = code
		s.mu.Unlock()
		frame := websocket.FormatCloseMessage(code, "")
		c.WriteControl(websocket.CloseMessage, frame, time.Now().Add(time.Second))
		return nil
	})

	n := 0
	for {
		mt, data, err := c.ReadMessage()
		if err != nil {
			return
		}
		n++

		switch mt {
		case websocket.TextMessage:
			s.record(Message{Type: TextMessage, Data: data})
		case websocket.BinaryMessage:
			s.record(Message{Type: BinaryMessage, Data: data})
		}

		if !s.cfg.noEcho {
			if err := c.WriteMessage(mt, data); err != nil {
				return
			}
		}

		if s.cfg.closeAfterFirst && n == 1 {
			frame := websocket.FormatCloseMessage(s.cfg.closeCode, s.cfg.closeReason)
			c.WriteControl(websocket.CloseMessage, frame, time.Now().Add(time.Second))
			// Wait for the client's close reply before dropping out.
			c.SetReadDeadline(time.Now().Add(2 * time.Second))
			for {
				if _, _, err := c.ReadMessage(); err != nil {
					return
				}
			}
		}

		if s.cfg.hardDropAfter > 0 && n >= s.cfg.hardDropAfter {
			c.UnderlyingConn().Close()
			return
		}
	}
}
