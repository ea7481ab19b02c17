package render

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rotisserie/eris"

	"github.com/cybre/beat-puppet/internal/pose"
)

const (
	clientQueue  = 8
	writeTimeout = time.Second
)

// Frame is one pose as sent to websocket clients.
type Frame struct {
	Session string `json:"session"`
	Seq     uint64 `json:"seq"`
	pose.Pose
}

// Broadcaster streams every rendered pose as JSON to connected websocket clients on
// /ws. Slow clients lose frames instead of stalling the animation tick.
type Broadcaster struct {
	session  string
	logger   *slog.Logger
	upgrader websocket.Upgrader
	seq      atomic.Uint64

	mu      sync.Mutex
	clients map[*websocket.Conn]chan Frame
}

// NewBroadcaster returns a Broadcaster that stamps frames with session.
func NewBroadcaster(session string, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		session: session,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		clients: make(map[*websocket.Conn]chan Frame),
	}
}

// Handler returns the HTTP handler serving /ws.
func (b *Broadcaster) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", b.handleWebSocket)
	return mux
}

// Serve listens on addr until ctx is done.
func (b *Broadcaster) Serve(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           b.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		b.logger.Info("serving pose stream", slog.String("addr", addr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if eris.Is(err, http.ErrServerClosed) {
			return nil
		}
		return eris.Wrap(err, "pose stream server")
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			b.logger.Warn("failed to shut down pose stream", slog.Any("error", err))
		}
		b.Close()
		return ctx.Err()
	}
}

// Render queues p for every connected client.
func (b *Broadcaster) Render(p pose.Pose) error {
	frame := Frame{Session: b.session, Seq: b.seq.Add(1), Pose: p}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, queue := range b.clients {
		select {
		case queue <- frame:
		default:
		}
	}
	return nil
}

// Clients returns the number of connected clients.
func (b *Broadcaster) Clients() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.clients)
}

// Close disconnects every client.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(b.clients))
	for conn := range b.clients {
		conns = append(conns, conn)
	}
	b.mu.Unlock()

	for _, conn := range conns {
		b.drop(conn)
	}
}

func (b *Broadcaster) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.logger.Warn("websocket upgrade failed", slog.Any("error", err))
		return
	}

	queue := make(chan Frame, clientQueue)
	b.mu.Lock()
	b.clients[conn] = queue
	total := len(b.clients)
	b.mu.Unlock()
	b.logger.Info("pose client connected", slog.String("remote", conn.RemoteAddr().String()), slog.Int("clients", total))

	go b.writeLoop(conn, queue)
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				b.drop(conn)
				return
			}
		}
	}()
}

func (b *Broadcaster) writeLoop(conn *websocket.Conn, queue <-chan Frame) {
	for frame := range queue {
		_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteJSON(frame); err != nil {
			b.logger.Debug("failed to send pose", slog.Any("error", err))
			b.drop(conn)
			return
		}
	}
}

func (b *Broadcaster) drop(conn *websocket.Conn) {
	b.mu.Lock()
	queue, ok := b.clients[conn]
	if ok {
		delete(b.clients, conn)
		close(queue)
	}
	total := len(b.clients)
	b.mu.Unlock()

	if ok {
		conn.Close()
		b.logger.Info("pose client disconnected", slog.Int("clients", total))
	}
}
