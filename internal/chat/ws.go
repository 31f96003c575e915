package chat

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/websocket"
)

const (
	peerBacklog  = 64
	writeTimeout = 10 * time.Second
)

var (
	errPeerClosed = errors.New("chat peer closed")
	errPeerBehind = errors.New("chat peer fell behind")
)

// wsPeer queues frames for a single writer goroutine so Send never blocks
// the room. A peer more than peerBacklog frames behind is dropped.
type wsPeer struct {
	conn   *websocket.Conn
	frames chan Frame
	done   chan struct{}
	once   sync.Once
}

func newWSPeer(conn *websocket.Conn) *wsPeer {
	return &wsPeer{conn: conn, frames: make(chan Frame, peerBacklog), done: make(chan struct{})}
}

func (p *wsPeer) Send(f Frame) error {
	select {
	case <-p.done:
		return errPeerClosed
	default:
	}
	select {
	case p.frames <- f:
		return nil
	default:
		p.close()
		return errPeerBehind
	}
}

func (p *wsPeer) close() {
	p.once.Do(func() { close(p.done) })
}

func (p *wsPeer) writeLoop(log *zap.Logger) {
	for {
		select {
		case <-p.done:
			return
		case f := <-p.frames:
			_ = p.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := websocket.JSON.Send(p.conn, f); err != nil {
				log.Debug("chat write failed", zap.String("channel", f.Channel), zap.Error(err))
				p.close()
				return
			}
		}
	}
}

// Identity resolves the organization of a WebSocket request.
type Identity func(r *http.Request) (org string, ok bool)

// Handler upgrades GET /chat/ws?channel=<name> and streams room frames.
// Client frames are ignored; writes go through the REST API.
func (h *Hub) Handler(identity Identity) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		org, ok := identity(r)
		if !ok {
			http.Error(w, "organization required", http.StatusUnauthorized)
			return
		}
		channel, ok := NormalizeChannel(r.URL.Query().Get("channel"))
		if !ok {
			http.Error(w, "channel must be 1-64 lower-case letters, digits, '-' or '_'", http.StatusBadRequest)
			return
		}

		websocket.Server{Handler: func(conn *websocket.Conn) {
			h.serve(conn, org, channel)
		}}.ServeHTTP(w, r)
	})
}

func (h *Hub) serve(conn *websocket.Conn, org, channel string) {
	peer := newWSPeer(conn)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		peer.writeLoop(h.log)
	}()
	defer func() {
		peer.close()
		conn.Close()
		<-writerDone
	}()

	if err := h.Join(org, channel, peer); err != nil {
		return
	}
	defer h.Leave(org, channel, peer)

	// Drain until the client goes away or the writer gives up.
	go func() {
		<-peer.done
		conn.Close()
	}()
	var discard string
	for {
		if err := websocket.Message.Receive(conn, &discard); err != nil {
			h.log.Debug("chat connection closed", zap.String("channel", channel), zap.Error(err))
			return
		}
	}
}
