// Package httpapi exposes the gateway's control-plane surface: a
// websocket feed of streamed turn deltas and a Prometheus /metrics
// endpoint, grounded on the teacher's HTTP server layer.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/attoclaw/gateway/internal/observability"
)

// Delta is one streamed turn fragment broadcast to every websocket
// subscriber.
type Delta struct {
	Channel string `json:"channel"`
	ChatID  string `json:"chat_id"`
	Piece   string `json:"piece"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// Server hosts /ws/stream and /metrics.
type Server struct {
	metrics *observability.Metrics
	log     *observability.Logger

	httpSrv *http.Server

	mu   sync.Mutex
	subs map[*websocket.Conn]struct{}
}

// New builds a Server bound to addr. Call Start to actually listen.
func New(addr string, metrics *observability.Metrics, log *observability.Logger) *Server {
	s := &Server{metrics: metrics, log: log, subs: make(map[*websocket.Conn]struct{})}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws/stream", s.handleStream)
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	s.httpSrv = &http.Server{Addr: addr, Handler: mux}
	return s
}

// Start listens in a background goroutine. Listen errors other than a
// clean shutdown are logged, not returned, matching the fire-and-forget
// shape of the other background services.
func (s *Server) Start() {
	go func() {
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Errorf("httpapi: serve failed: %v", err)
		}
	}()
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

// Broadcast pushes a delta to every connected websocket subscriber,
// dropping connections that fail to accept it.
func (s *Server) Broadcast(d Delta) {
	payload, err := json.Marshal(d)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.subs {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			conn.Close()
			delete(s.subs, conn)
		}
	}
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warnf("httpapi: websocket upgrade failed: %v", err)
		return
	}

	s.mu.Lock()
	s.subs[conn] = struct{}{}
	s.mu.Unlock()

	// Drain and discard client frames; this is a push-only feed, but the
	// read loop is required to detect the peer closing the connection.
	go func() {
		defer func() {
			s.mu.Lock()
			delete(s.subs, conn)
			s.mu.Unlock()
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
