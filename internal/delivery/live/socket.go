// Package live streams territory events to map clients over websockets and
// serves the Prometheus endpoint next to them.
package live

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/walkconquest/backend/internal/domain"
	"github.com/walkconquest/backend/internal/observability"
)

const (
	// Time allowed to write a message to the client.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the client.
	pongWait = 60 * time.Second

	// Send pings to client with this period. Must be less than pongWait.
	pingPeriod = 15 * time.Second

	// Maximum message size allowed from client.
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Server exposes /ws/territories, /metrics and /healthz
type Server struct {
	bus     domain.EventBus
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewServer creates the live server. metrics may be nil.
func NewServer(bus domain.EventBus, metrics *observability.Metrics, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{bus: bus, metrics: metrics, logger: logger}
}

// Handler returns the live mux
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws/territories", s.ServeWebSocket)
	mux.Handle("/metrics", s.metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	return mux
}

// ServeWebSocket upgrades the request and streams territory events until
// either side goes away. ?ownerId= limits the stream to events that involve
// that user as new or previous owner.
func (s *Server) ServeWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	events, unsubscribe, err := s.bus.Subscribe(ctx)
	if err != nil {
		s.logger.Error("live subscribe failed", slog.String("error", err.Error()))
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "events unavailable"))
		conn.Close()
		return
	}
	defer unsubscribe()

	s.metrics.AddLiveClients(1)
	defer s.metrics.AddLiveClients(-1)

	st := stream{
		conn:   conn,
		events: events,
		owner:  r.URL.Query().Get("ownerId"),
		logger: s.logger,
	}
	st.run(ctx, cancel)
}

type stream struct {
	conn   *websocket.Conn
	events <-chan domain.TerritoryEvent
	owner  string
	logger *slog.Logger
}

func (s *stream) wants(e domain.TerritoryEvent) bool {
	return s.owner == "" || e.Territory.OwnerID == s.owner || e.PreviousOwnerID == s.owner
}

func (s *stream) run(ctx context.Context, cancel context.CancelFunc) {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		defer cancel()
		s.readLoop()
	}()
	go func() {
		defer wg.Done()
		defer cancel()
		s.writeLoop(ctx)
	}()
	wg.Wait()
}

// readLoop discards client messages and keeps the read deadline fresh
func (s *stream) readLoop() {
	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error { s.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.logger.Debug("websocket closed", slog.String("error", err.Error()))
			}
			return
		}
	}
}

// writeLoop owns the connection; closing it on return unblocks readLoop
func (s *stream) writeLoop(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case e, ok := <-s.events:
			if !ok {
				return
			}
			if !s.wants(e) {
				continue
			}
			payload, err := domain.EncodeEvent(e)
			if err != nil {
				s.logger.Warn("skipping unencodable event", slog.String("error", err.Error()))
				continue
			}
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		}
	}
}
