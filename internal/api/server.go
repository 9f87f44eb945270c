package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"golang.org/x/net/websocket"

	"pool-httpd/internal/events"
	"pool-httpd/internal/httpd"
	"pool-httpd/internal/logger"
)

// Server は管理APIサーバー
// 稼働中のHTTPサーバーとそのワーカープールの状態をJSONとWebSocketで公開する
type Server struct {
	addr   string
	target *httpd.Server
	bus    *events.Bus

	mu        sync.RWMutex
	wsClients map[*websocket.Conn]bool

	server *http.Server
}

// NewServer は新しい管理APIサーバーを作成する
func NewServer(addr string, target *httpd.Server, bus *events.Bus) *Server {
	return &Server{
		addr:      addr,
		target:    target,
		bus:       bus,
		wsClients: make(map[*websocket.Conn]bool),
	}
}

// Start はサーバーを開始する（ctxキャンセルまでブロック）
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/pool", s.handlePool)
	mux.HandleFunc("/api/metrics", s.handleMetrics)
	mux.Handle("/ws", websocket.Handler(s.handleWebSocket))

	s.server = &http.Server{
		Addr:    s.addr,
		Handler: mux,
	}

	// バックグラウンドでステータス配信とイベント転送
	go s.broadcastLoop(ctx)
	if s.bus != nil {
		go s.forwardEvents(ctx)
	}

	logger.Info("admin", "API server starting on http://%s", s.addr)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

// StatusResponse はステータスレスポンス
type StatusResponse struct {
	Running      bool   `json:"running"`
	Addr         string `json:"addr"`
	Workers      int    `json:"workers"`
	AliveWorkers int    `json:"alive_workers"`
	QueueDepth   int    `json:"queue_depth"`
}

func (s *Server) status() StatusResponse {
	p := s.target.Pool()
	return StatusResponse{
		Running:      s.target.Running(),
		Addr:         s.target.Addr(),
		Workers:      p.Size(),
		AliveWorkers: p.Alive(),
		QueueDepth:   p.QueueDepth(),
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.writeJSON(w, s.status())
}

// PoolResponse はワーカープールの状態レスポンス
type PoolResponse struct {
	Size       int `json:"size"`
	Alive      int `json:"alive"`
	QueueDepth int `json:"queue_depth"`
}

func (s *Server) handlePool(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	p := s.target.Pool()
	s.writeJSON(w, PoolResponse{
		Size:       p.Size(),
		Alive:      p.Alive(),
		QueueDepth: p.QueueDepth(),
	})
}

// MetricsResponse はメトリクスレスポンス
type MetricsResponse struct {
	TotalRequests   uint64  `json:"total_requests"`
	SuccessRequests uint64  `json:"success_requests"`
	FailedRequests  uint64  `json:"failed_requests"`
	RPS             float64 `json:"rps"`
	OverallRPS      float64 `json:"overall_rps"`
	AvgLatencyMs    float64 `json:"avg_latency_ms"`
	P99LatencyMs    float64 `json:"p99_latency_ms"`
	MaxLatencyMs    float64 `json:"max_latency_ms"`
	ErrorRate       float64 `json:"error_rate"`
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	snap := s.target.Metrics().Snapshot()
	s.writeJSON(w, MetricsResponse{
		TotalRequests:   snap.TotalRequests,
		SuccessRequests: snap.SuccessRequests,
		FailedRequests:  snap.FailedRequests,
		RPS:             snap.RPS,
		OverallRPS:      snap.OverallRPS,
		AvgLatencyMs:    float64(snap.AverageLatency) / float64(time.Millisecond),
		P99LatencyMs:    float64(snap.P99Latency) / float64(time.Millisecond),
		MaxLatencyMs:    float64(snap.MaxLatency) / float64(time.Millisecond),
		ErrorRate:       snap.ErrorRate,
	})
}

// WebSocket handling
func (s *Server) handleWebSocket(ws *websocket.Conn) {
	s.mu.Lock()
	s.wsClients[ws] = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.wsClients, ws)
		s.mu.Unlock()
		_ = ws.Close()
	}()

	// Keep connection alive
	for {
		var msg string
		if err := websocket.Message.Receive(ws, &msg); err != nil {
			break
		}
	}
}

func (s *Server) broadcast(data interface{}) {
	s.mu.RLock()
	clients := make([]*websocket.Conn, 0, len(s.wsClients))
	for ws := range s.wsClients {
		clients = append(clients, ws)
	}
	s.mu.RUnlock()

	jsonData, err := json.Marshal(data)
	if err != nil {
		return
	}

	for _, ws := range clients {
		_ = websocket.Message.Send(ws, string(jsonData))
	}
}

// broadcastLoop は定期的にステータスを全クライアントへ配信する
func (s *Server) broadcastLoop(ctx context.Context) {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.broadcast(map[string]interface{}{
				"type":   "status",
				"status": s.status(),
			})
		}
	}
}

// forwardEvents はイベントバスのイベントを全クライアントへ転送する
func (s *Server) forwardEvents(ctx context.Context) {
	ch := s.bus.Subscribe()
	defer s.bus.Unsubscribe(ch)

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			s.broadcast(map[string]interface{}{
				"type":  "event",
				"event": ev,
			})
		}
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("admin", "failed to encode JSON: %v", err)
	}
}
