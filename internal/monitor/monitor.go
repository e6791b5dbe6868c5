// Package monitor serves a live view of a training run over HTTP:
// a JSON stats endpoint, a websocket that pushes epoch results as they
// complete, and SVG charts of the loss and accuracy curves.
//
// The monitor attaches to a trainer through its epoch hook and never
// blocks training beyond copying one stats struct under a lock.
package monitor

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/kiln-ml/kiln/internal/metrics"
	"github.com/kiln-ml/kiln/internal/train"
)

const writeWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Config tunes the monitor server.
type Config struct {
	Addr       string      // listen address, e.g. ":8080"
	Logger     *log.Logger // nil uses the default logger
	WindowSize int         // epochs kept for windowed stats, default 100
}

// Server collects epoch stats and serves them.
type Server struct {
	addr   string
	logger *log.Logger
	router *mux.Router
	http   *http.Server

	mu     sync.Mutex
	stats  []train.EpochStats
	loss   *metrics.Window
	acc    *metrics.Window
	smooth *metrics.EMA
	conns  map[*websocket.Conn]struct{}
}

// New builds a monitor server. Call Start to begin serving.
func New(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	if cfg.WindowSize < 1 {
		cfg.WindowSize = 100
	}

	s := &Server{
		addr:   cfg.Addr,
		logger: cfg.Logger,
		loss:   metrics.NewWindow(cfg.WindowSize),
		acc:    metrics.NewWindow(cfg.WindowSize),
		smooth: metrics.NewEMA(0.3),
		conns:  make(map[*websocket.Conn]struct{}),
	}

	r := mux.NewRouter()
	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/api/stats", s.handleStats).Methods(http.MethodGet)
	r.HandleFunc("/api/stats/latest", s.handleLatest).Methods(http.MethodGet)
	r.HandleFunc("/plots/{series:(?:loss|accuracy)}.svg", s.handlePlot).Methods(http.MethodGet)
	r.HandleFunc("/ws", s.handleWebsocket)
	s.router = r
	s.http = &http.Server{Addr: cfg.Addr, Handler: r, ReadHeaderTimeout: 10 * time.Second}

	return s
}

// Handler exposes the route table, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

// Hook adapts the server to the trainer's epoch hook. It records each
// epoch and never requests an early stop.
func (s *Server) Hook() func(train.EpochStats) bool {
	return func(stats train.EpochStats) bool {
		s.Observe(stats)
		return false
	}
}

// Observe records one epoch and pushes it to connected clients.
func (s *Server) Observe(stats train.EpochStats) {
	s.mu.Lock()
	s.stats = append(s.stats, stats)
	s.loss.Push(stats.Loss)
	s.acc.Push(stats.Accuracy)
	s.smooth.Update(stats.Loss)

	for conn := range s.conns {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(stats); err != nil {
			delete(s.conns, conn)
			conn.Close()
		}
	}
	s.mu.Unlock()
}

// Start serves in a background goroutine until Close.
func (s *Server) Start() {
	s.logger.Printf("monitor: listening on %s", s.addr)
	go func() {
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Printf("monitor: %v", err)
		}
	}()
}

// Close stops the server and drops all websocket clients.
func (s *Server) Close() error {
	s.mu.Lock()
	for conn := range s.conns {
		conn.Close()
		delete(s.conns, conn)
	}
	s.mu.Unlock()
	return s.http.Close()
}

// Clients returns the number of connected websocket clients.
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

type statsResponse struct {
	Epochs       []train.EpochStats `json:"epochs"`
	Loss         metrics.Summary    `json:"loss"`
	Accuracy     metrics.Summary    `json:"accuracy"`
	SmoothedLoss float64            `json:"smoothed_loss"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	resp := statsResponse{
		Epochs:       append([]train.EpochStats(nil), s.stats...),
		Loss:         s.loss.Summary(),
		Accuracy:     s.acc.Summary(),
		SmoothedLoss: s.smooth.Value(),
	}
	s.mu.Unlock()

	writeJSON(w, resp)
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	var latest *train.EpochStats
	if n := len(s.stats); n > 0 {
		st := s.stats[n-1]
		latest = &st
	}
	s.mu.Unlock()

	if latest == nil {
		http.Error(w, "no epochs completed yet", http.StatusNotFound)
		return
	}
	writeJSON(w, latest)
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Printf("monitor: websocket upgrade: %v", err)
		return
	}

	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.mu.Unlock()

	// Drain the client side so closes are noticed.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				s.mu.Lock()
				delete(s.conns, conn)
				s.mu.Unlock()
				conn.Close()
				return
			}
		}
	}()
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
