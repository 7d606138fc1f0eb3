// Package monitor serves the running animation over HTTP: a /health
// snapshot, a per-frame websocket feed on /ws and transmit diagnostics on
// /diag.
package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/coreman2200/funtimes-huewheel/spi"
)

const (
	writeWait = 200 * time.Millisecond
	sendQueue = 16
)

// Source is what /health reports on. *spi.Looper implements it.
type Source interface {
	Hue() uint8
	Stats() spi.Stats
	Transport() spi.Transport
}

type Health struct {
	Frames    uint64  `json:"frames"`
	Dropped   uint64  `json:"dropped"`
	Overruns  uint64  `json:"overruns"`
	Hue       uint8   `json:"hue"`
	UptimeS   float64 `json:"uptime_s"`
	Transport string  `json:"transport"`
}

// FrameMsg is one /ws message.
type FrameMsg struct {
	Seq uint64   `json:"seq"`
	Hue uint8    `json:"hue"`
	RGB []string `json:"rgb"`
	Err string   `json:"err,omitempty"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

type Server struct {
	mu          sync.RWMutex
	src         Source
	log         zerolog.Logger
	startTime   time.Time
	clients     map[*client]bool
	diagClients map[*client]bool
	failing     uint64
	up          websocket.Upgrader
}

func New(src Source, logger *zerolog.Logger) *Server {
	s := &Server{
		src:         src,
		log:         zerolog.Nop(),
		startTime:   time.Now(),
		clients:     map[*client]bool{},
		diagClients: map[*client]bool{},
		up:          websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
	}
	if logger != nil {
		s.log = logger.With().Str("component", "monitor").Logger()
	}
	return s
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.HandleHealth)
	mux.HandleFunc("/ws", s.HandleFramesWS)
	mux.HandleFunc("/diag", s.HandleDiagWS)
	return withCORS(mux)
}

func (s *Server) Health() Health {
	st := s.src.Stats()
	return Health{
		Frames:    st.Frames,
		Dropped:   st.Dropped,
		Overruns:  st.Overruns,
		Hue:       s.src.Hue(),
		UptimeS:   time.Since(s.startTime).Seconds(),
		Transport: s.src.Transport().String(),
	}
}

func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.Health())
}

func (s *Server) HandleFramesWS(w http.ResponseWriter, r *http.Request) {
	s.serveWS(w, r, s.clients)
}

func (s *Server) HandleDiagWS(w http.ResponseWriter, r *http.Request) {
	s.serveWS(w, r, s.diagClients)
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request, set map[*client]bool) {
	conn, err := s.up.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug().Err(err).Msg("upgrade")
		return
	}
	c := &client{conn: conn, send: make(chan []byte, sendQueue)}
	s.mu.Lock()
	set[c] = true
	s.mu.Unlock()

	go s.writePump(c)
	go func() {
		defer func() {
			s.mu.Lock()
			if set[c] {
				delete(set, c)
				close(c.send)
			}
			s.mu.Unlock()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (s *Server) writePump(c *client) {
	defer c.conn.Close()
	for b := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
			s.log.Debug().Err(err).Msg("write frame")
			return
		}
	}
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
}

// Observe fans a frame report out to /ws clients and turns transmit
// failures into /diag events. It never blocks: slow clients miss frames.
func (s *Server) Observe(r spi.Report) {
	msg := FrameMsg{Seq: r.Seq, Hue: r.Hue, RGB: make([]string, len(r.Pixels))}
	for i, p := range r.Pixels {
		msg.RGB[i] = p.Hex()
	}
	if r.Err != nil {
		msg.Err = r.Err.Error()
	}
	b, _ := json.Marshal(msg)

	s.mu.Lock()
	defer s.mu.Unlock()
	broadcast(s.clients, b)

	switch {
	case r.Err != nil:
		s.failing++
		if s.failing == 1 {
			s.pushDiag(dropped(r.Seq, r.Err))
		}
	case s.failing > 0:
		s.pushDiag(recovered(r.Seq, s.failing))
		s.failing = 0
	}
}

// pushDiag must be called with mu held.
func (s *Server) pushDiag(d Diagnostic) {
	b, _ := json.Marshal(d)
	broadcast(s.diagClients, b)
}

func broadcast(set map[*client]bool, b []byte) {
	for c := range set {
		select {
		case c.send <- b:
		default:
		}
	}
}

// Close disconnects every websocket client.
func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, set := range []map[*client]bool{s.clients, s.diagClients} {
		for c := range set {
			delete(set, c)
			close(c.send)
		}
	}
}

// ListenAndServe serves on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("HTTP server starting")
		errc <- srv.ListenAndServe()
	}()
	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	s.Close()
	shut, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := srv.Shutdown(shut); err != nil {
		return err
	}
	<-errc
	return nil
}

func withCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		h.ServeHTTP(w, r)
	})
}

func (s *Server) numClients() (frames, diag int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients), len(s.diagClients)
}
