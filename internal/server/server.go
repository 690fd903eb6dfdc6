// Package server exposes the latest pipeline run over HTTP: JSON
// queries for results and a WebSocket feed announcing completed runs.
package server

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"repurchase-lab/internal/domain"
	"repurchase-lab/internal/observability"
)

// Server holds the latest run result and the feed subscribers.
type Server struct {
	logger *log.Logger

	mu      sync.RWMutex
	latest  *domain.RunResult
	started time.Time

	subMu       sync.Mutex
	subscribers map[*websocket.Conn]struct{}
	upgrader    websocket.Upgrader
}

// New creates a new Server.
func New(logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{
		logger:      logger,
		started:     time.Now().UTC(),
		subscribers: make(map[*websocket.Conn]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// Publish stores a completed run as the latest and announces it to all
// feed subscribers.
func (s *Server) Publish(result *domain.RunResult) {
	s.mu.Lock()
	s.latest = result
	s.mu.Unlock()

	s.broadcast(runEvent{
		Type:             "run_completed",
		SnapshotID:       result.SnapshotID,
		GeneratedAt:      result.GeneratedAt,
		PairCount:        result.PairCount,
		CustomerCount:    result.CustomerCount,
		AnomalyCount:     len(result.Anomalies),
		Flags:            result.Flags,
		ForecastDegraded: result.Model.Degraded,
	})
}

// Handler returns the HTTP routing for all endpoints.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", observability.Handler())

	mux.HandleFunc("/status", s.handleStatus)

	mux.HandleFunc("/api/run", s.handleRun)
	mux.HandleFunc("/api/run/pairs", s.handlePairs)
	mux.HandleFunc("/api/run/clusters", s.handleClusters)
	mux.HandleFunc("/api/run/anomalies", s.handleAnomalies)
	mux.HandleFunc("/ws", s.handleFeed)

	return mux
}

// runEvent is one WebSocket feed message.
type runEvent struct {
	Type             string    `json:"type"`
	SnapshotID       string    `json:"snapshot_id"`
	GeneratedAt      time.Time `json:"generated_at"`
	PairCount        int       `json:"pair_count"`
	CustomerCount    int       `json:"customer_count"`
	AnomalyCount     int       `json:"anomaly_count"`
	Flags            []string  `json:"flags,omitempty"`
	ForecastDegraded bool      `json:"forecast_degraded"`
}

// StatusResponse is the JSON response for /status endpoint.
type StatusResponse struct {
	Status      string    `json:"status"`
	Uptime      string    `json:"uptime"`
	SnapshotID  string    `json:"snapshot_id,omitempty"`
	GeneratedAt time.Time `json:"generated_at,omitempty"`
	Subscribers int       `json:"subscribers"`
}

// handleStatus returns server status as JSON.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		Status: "running",
		Uptime: time.Since(s.started).String(),
	}
	if result := s.latestResult(); result != nil {
		resp.SnapshotID = result.SnapshotID
		resp.GeneratedAt = result.GeneratedAt
	}
	s.subMu.Lock()
	resp.Subscribers = len(s.subscribers)
	s.subMu.Unlock()

	writeJSON(w, resp)
}

// handleRun returns the full latest run result.
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	result := s.latestResult()
	if result == nil {
		http.Error(w, "no run available yet", http.StatusNotFound)
		return
	}
	writeJSON(w, result)
}

// handlePairs returns the latest run's pair results, optionally filtered
// by the customer query parameter.
func (s *Server) handlePairs(w http.ResponseWriter, r *http.Request) {
	result := s.latestResult()
	if result == nil {
		http.Error(w, "no run available yet", http.StatusNotFound)
		return
	}

	customer := r.URL.Query().Get("customer")
	if customer == "" {
		writeJSON(w, result.Pairs)
		return
	}

	filtered := make([]*domain.PairResult, 0)
	for _, p := range result.Pairs {
		if p.CustomerID == customer {
			filtered = append(filtered, p)
		}
	}
	writeJSON(w, filtered)
}

// handleClusters returns the latest run's assignments and summaries.
func (s *Server) handleClusters(w http.ResponseWriter, r *http.Request) {
	result := s.latestResult()
	if result == nil {
		http.Error(w, "no run available yet", http.StatusNotFound)
		return
	}
	writeJSON(w, struct {
		Assignments []*domain.ClusterAssignment `json:"assignments"`
		Summaries   []*domain.ClusterSummary    `json:"summaries"`
	}{result.Clusters, result.Summaries})
}

// handleAnomalies returns the latest run's anomaly flags, optionally
// filtered by the customer query parameter.
func (s *Server) handleAnomalies(w http.ResponseWriter, r *http.Request) {
	result := s.latestResult()
	if result == nil {
		http.Error(w, "no run available yet", http.StatusNotFound)
		return
	}

	customer := r.URL.Query().Get("customer")
	flags := make([]*domain.AnomalyFlag, 0)
	for _, f := range result.Anomalies {
		if customer == "" || f.CustomerID == customer {
			flags = append(flags, f)
		}
	}
	writeJSON(w, flags)
}

// handleFeed upgrades the connection and registers it as a subscriber.
func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Printf("websocket upgrade failed: %v", err)
		return
	}

	s.subMu.Lock()
	s.subscribers[conn] = struct{}{}
	s.subMu.Unlock()

	// Reader loop only drains control frames; dropping out unregisters.
	go func() {
		defer s.unsubscribe(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (s *Server) unsubscribe(conn *websocket.Conn) {
	s.subMu.Lock()
	delete(s.subscribers, conn)
	s.subMu.Unlock()
	conn.Close()
}

func (s *Server) broadcast(event runEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Printf("marshal feed event: %v", err)
		return
	}

	s.subMu.Lock()
	conns := make([]*websocket.Conn, 0, len(s.subscribers))
	for conn := range s.subscribers {
		conns = append(conns, conn)
	}
	s.subMu.Unlock()

	for _, conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			s.logger.Printf("feed write failed, dropping subscriber: %v", err)
			s.unsubscribe(conn)
		}
	}
}

func (s *Server) latestResult() *domain.RunResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
