package signaling

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/1ureka/whodis/internal/config"
	"github.com/1ureka/whodis/internal/protocol"
	"github.com/1ureka/whodis/internal/util"
)

// Server exposes the hub over HTTP: /ws for clients and /health for probes.
type Server struct {
	hub      *Hub
	limits   connLimits
	upgrader websocket.Upgrader
}

// NewServer creates a server with its own hub.
func NewServer(cfg *config.Server) *Server {
	return &Server{
		hub: NewHub(),
		limits: connLimits{
			readLimit:  int64(cfg.ReadLimit),
			sendBuffer: cfg.SendBuffer,
			rate:       cfg.RateLimit,
			burst:      cfg.RateBurst,
		},
		upgrader: websocket.Upgrader{
			Subprotocols: protocol.Subprotocols,
			CheckOrigin:  func(r *http.Request) bool { return true },
		},
	}
}

// Handler returns the HTTP routes. The hub must be running (see Serve).
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/health", s.handleHealth)
	return mux
}

// ListenAndServe listens on addr and serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to start WS server: %w", err)
	}
	return s.Serve(ctx, listener)
}

// Serve runs the hub and accepts connections on listener until ctx is
// cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	go s.hub.Run(hubCtx)

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(listener) }()
	util.LogInfo("signaling server listening on %s", listener.Addr())

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		util.Log(util.LevelDebug, "upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}

	client := newClient(s.hub, conn, protocol.CodecFor(conn.Subprotocol()), s.limits)
	select {
	case s.hub.register <- client:
	case <-s.hub.done:
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
		conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	snap, err := s.hub.Health(ctx)
	if err != nil {
		http.Error(w, "hub unavailable", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(snap)
}
