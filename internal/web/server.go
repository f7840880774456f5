// Package web serves the monitoring interface for batch compression runs:
// a small REST API to start and stop runs plus a websocket stream of
// per-file progress events.
package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"image-compressor-go/internal/compressor"
	"image-compressor-go/internal/config"
	"image-compressor-go/internal/folder"
	"image-compressor-go/internal/statistics"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

type Server struct {
	cfg        *config.Config
	log        *logrus.Logger
	router     *mux.Router
	httpServer *http.Server
	wsUpgrader websocket.Upgrader
	wsClients  map[*websocket.Conn]bool
	wsMutex    sync.RWMutex

	// Current run state.
	runMutex     sync.RWMutex
	isRunning    bool
	cancelRun    context.CancelFunc
	currentStats *statistics.Statistics
}

type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

type CompressRequest struct {
	SourceDirectory string  `json:"source_directory"`
	TargetDirectory string  `json:"target_directory,omitempty"`
	Quality         float64 `json:"quality,omitempty"`
	SizeRatio       float64 `json:"size_ratio,omitempty"`
	DryRun          bool    `json:"dry_run"`
}

type WSMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// NewServer builds a Server around the given base configuration.
func NewServer(cfg *config.Config, log *logrus.Logger) *Server {
	s := &Server{
		cfg:       cfg,
		log:       log,
		router:    mux.NewRouter(),
		wsClients: make(map[*websocket.Conn]bool),
		wsUpgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // local tool, no cross-origin concerns
			},
		},
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/status", s.handleStatus).Methods("GET")
	api.HandleFunc("/compress", s.handleCompress).Methods("POST")
	api.HandleFunc("/stop", s.handleStop).Methods("POST")
	api.HandleFunc("/statistics", s.handleGetStatistics).Methods("GET")

	s.router.HandleFunc("/ws", s.handleWebSocket)
	s.router.HandleFunc("/", s.handleIndex).Methods("GET")
}

// Start runs the HTTP server on the given port, blocking until shutdown.
func (s *Server) Start(port int) error {
	addr := fmt.Sprintf(":%d", port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	s.log.Infof("Starting web server on http://localhost%s", addr)
	return s.httpServer.ListenAndServe()
}

// Stop shuts the HTTP server down and cancels any running compression.
func (s *Server) Stop(ctx context.Context) error {
	s.runMutex.Lock()
	if s.cancelRun != nil {
		s.cancelRun()
	}
	s.runMutex.Unlock()

	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, indexHTML)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.runMutex.RLock()
	running := s.isRunning
	stats := s.currentStats
	s.runMutex.RUnlock()

	s.writeJSON(w, APIResponse{
		Success: true,
		Data: map[string]interface{}{
			"running":    running,
			"statistics": statsData(stats),
		},
	})
}

func (s *Server) handleCompress(w http.ResponseWriter, r *http.Request) {
	var req CompressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.SourceDirectory == "" {
		s.writeError(w, "Source directory is required", http.StatusBadRequest)
		return
	}
	if _, err := os.Stat(req.SourceDirectory); os.IsNotExist(err) {
		s.writeError(w, "Source directory does not exist", http.StatusBadRequest)
		return
	}
	if _, err := s.requestFactor(req); err != nil {
		s.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.runMutex.Lock()
	if s.isRunning {
		s.runMutex.Unlock()
		s.writeError(w, "Compression already in progress", http.StatusConflict)
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.isRunning = true
	s.cancelRun = cancel
	s.currentStats = statistics.NewStatistics()
	s.runMutex.Unlock()

	go s.runCompressAsync(ctx, req)

	s.writeJSON(w, APIResponse{
		Success: true,
		Message: "Compression started",
	})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	s.runMutex.Lock()
	if s.cancelRun != nil {
		s.cancelRun()
	}
	s.runMutex.Unlock()

	s.broadcastWSMessage("run_stopped", map[string]interface{}{
		"message": "Compression stopped by user",
	})

	s.writeJSON(w, APIResponse{
		Success: true,
		Message: "Stop requested",
	})
}

func (s *Server) handleGetStatistics(w http.ResponseWriter, r *http.Request) {
	s.runMutex.RLock()
	stats := s.currentStats
	s.runMutex.RUnlock()

	s.writeJSON(w, APIResponse{
		Success: true,
		Data:    statsData(stats),
	})
}

func statsData(stats *statistics.Statistics) interface{} {
	if stats == nil {
		return nil
	}
	return map[string]interface{}{
		"summary": stats.GetSummary(),
		"files": map[string]interface{}{
			"found":      atomic.LoadInt64(&stats.TotalFilesFound),
			"processed":  atomic.LoadInt64(&stats.TotalFilesProcessed),
			"compressed": atomic.LoadInt64(&stats.FilesCompressed),
			"copied":     atomic.LoadInt64(&stats.FilesCopied),
			"skipped":    atomic.LoadInt64(&stats.FilesSkipped),
			"errors":     atomic.LoadInt64(&stats.FilesWithErrors),
		},
		"bytes": map[string]interface{}{
			"in":            atomic.LoadInt64(&stats.BytesIn),
			"out":           atomic.LoadInt64(&stats.BytesOut),
			"saved_percent": stats.SavedPercentage(),
		},
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Errorf("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	s.wsMutex.Lock()
	s.wsClients[conn] = true
	s.wsMutex.Unlock()

	s.log.Debug("WebSocket client connected")

	defer func() {
		s.wsMutex.Lock()
		delete(s.wsClients, conn)
		s.wsMutex.Unlock()
		s.log.Debug("WebSocket client disconnected")
	}()

	// Keep the connection open until the client goes away.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (s *Server) runCompressAsync(ctx context.Context, req CompressRequest) {
	defer func() {
		s.runMutex.Lock()
		s.isRunning = false
		s.cancelRun = nil
		s.runMutex.Unlock()
	}()

	s.broadcastWSMessage("run_started", map[string]interface{}{
		"source_directory": req.SourceDirectory,
		"target_directory": req.TargetDirectory,
		"dry_run":          req.DryRun,
	})

	// Per-run copy of the base config with request overrides. The factor
	// was already validated in handleCompress.
	factor, err := s.requestFactor(req)
	if err != nil {
		s.broadcastWSMessage("run_error", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	cfg := *s.cfg
	cfg.SourceDirectory = req.SourceDirectory
	cfg.TargetDirectory = req.TargetDirectory
	cfg.Processing.DryRun = req.DryRun
	cfg.Factor.Quality = factor.Quality()
	cfg.Factor.SizeRatio = factor.SizeRatio()

	s.runMutex.RLock()
	stats := s.currentStats
	s.runMutex.RUnlock()

	fc, err := folder.New(&cfg, s.log, stats)
	if err != nil {
		s.broadcastWSMessage("run_error", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	fc.SetProgress(func(res folder.Result) {
		s.broadcastWSMessage("file_done", res)
	})

	if _, err := fc.Compress(ctx); err != nil {
		s.broadcastWSMessage("run_error", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	s.broadcastWSMessage("run_completed", map[string]interface{}{
		"statistics": stats.GetSummary(),
	})
}

// requestFactor merges the request's factor overrides with the base
// configuration and validates the result. A zero field means "use the
// configured value"; everything else must pass Factor validation.
func (s *Server) requestFactor(req CompressRequest) (compressor.Factor, error) {
	quality := s.cfg.Factor.Quality
	if req.Quality != 0 {
		quality = req.Quality
	}
	sizeRatio := s.cfg.Factor.SizeRatio
	if req.SizeRatio != 0 {
		sizeRatio = req.SizeRatio
	}
	return compressor.NewFactor(quality, sizeRatio)
}

func (s *Server) broadcastWSMessage(messageType string, data interface{}) {
	msgBytes, err := json.Marshal(WSMessage{Type: messageType, Data: data})
	if err != nil {
		s.log.Errorf("Failed to marshal WebSocket message: %v", err)
		return
	}

	s.wsMutex.RLock()
	defer s.wsMutex.RUnlock()

	for conn := range s.wsClients {
		if err := conn.WriteMessage(websocket.TextMessage, msgBytes); err != nil {
			s.log.Errorf("Failed to write WebSocket message: %v", err)
			go func(c *websocket.Conn) {
				s.wsMutex.Lock()
				delete(s.wsClients, c)
				s.wsMutex.Unlock()
				c.Close()
			}(conn)
		}
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func (s *Server) writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(APIResponse{
		Success: false,
		Error:   message,
	})
}
