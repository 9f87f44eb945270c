package httpd

import (
	"bufio"
	"context"
	"embed"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"pool-httpd/internal/events"
	"pool-httpd/internal/logger"
	"pool-httpd/internal/metrics"
	"pool-httpd/internal/pool"
)

//go:embed static
var pages embed.FS

const (
	statusOK       = "200 OK"
	statusNotFound = "404 NOT FOUND"

	pageHello    = "static/hello.html"
	pageNotFound = "static/404.html"

	// 遅い・固まったクライアントがワーカーを専有し続けないための上限
	readTimeout = 30 * time.Second
)

// Config はHTTPサーバーの設定
type Config struct {
	Addr       string        // リッスンアドレス
	Workers    int           // ワーカープールのサイズ（0以下でデフォルト）
	SleepDelay time.Duration // /sleep エンドポイントの遅延
	Bus        *events.Bus   // ライフサイクルイベントの通知先（nilで無効）
}

// DefaultConfig はデフォルト設定を返す
func DefaultConfig() Config {
	return Config{
		Addr:       ":7878",
		Workers:    4,
		SleepDelay: 5 * time.Second,
	}
}

// Server は固定ワーカープールで接続を処理する静的HTTPサーバー
// 1接続につき1ジョブをプールに投入する
type Server struct {
	config  Config
	pool    *pool.Pool
	metrics *metrics.Metrics

	mu       sync.RWMutex
	listener net.Listener
	running  bool
}

// New は新しいサーバーを作成する
// 接続処理用のワーカープールはこの時点で起動する
func New(config Config) *Server {
	if config.Workers < 1 {
		config.Workers = DefaultConfig().Workers
	}
	return &Server{
		config:  config,
		pool:    pool.NewWithConfig(pool.Config{Size: config.Workers, Bus: config.Bus}),
		metrics: metrics.New(),
	}
}

// Listen はリッスンソケットを開く
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Addr, err)
	}

	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()
	return nil
}

// Serve は接続の受け付けループを実行する
// ctxのキャンセルでリスナーを閉じ、プールを停止（全ジョブ完了待ち）してから戻る
func (s *Server) Serve(ctx context.Context) error {
	s.mu.Lock()
	ln := s.listener
	if ln == nil {
		s.mu.Unlock()
		return errors.New("httpd: Serve called before Listen")
	}
	s.running = true
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	addr := ln.Addr().String()
	logger.Info("httpd", "listening on %s (workers: %d)", addr, s.pool.Size())
	if s.config.Bus != nil {
		s.config.Bus.Publish(events.NewServerStartEvent(addr))
	}

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				break
			}
			logger.Warn("httpd", "accept failed: %v", err)
			continue
		}
		s.pool.Submit(func() {
			s.handleConn(conn)
		})
	}

	logger.Info("httpd", "shutting down, draining %d queued connections", s.pool.QueueDepth())
	s.pool.Close()

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	if s.config.Bus != nil {
		s.config.Bus.Publish(events.NewServerStopEvent(addr))
	}
	logger.Info("httpd", "stopped")
	return nil
}

// Start はListenとServeをまとめて実行する
func (s *Server) Start(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve(ctx)
}

// handleConn は1接続を処理する
// エラーはここで握りつぶしてログに残す（プールへは伝播させない）
func (s *Server) handleConn(conn net.Conn) {
	defer func() { _ = conn.Close() }()

	reqID := uuid.NewString()[:8]
	start := time.Now()

	_ = conn.SetReadDeadline(time.Now().Add(readTimeout))

	reader := bufio.NewReader(conn)
	requestLine, err := reader.ReadString('\n')
	if err != nil {
		logger.Warn("httpd", "[%s] failed to read request: %v", reqID, err)
		s.metrics.RecordFailure(time.Since(start))
		return
	}

	method, path, ok := parseRequestLine(requestLine)
	if !ok {
		logger.Warn("httpd", "[%s] malformed request line: %q", reqID, strings.TrimSpace(requestLine))
		s.metrics.RecordFailure(time.Since(start))
		return
	}

	// レスポンスを返す前に残りのヘッダを読み捨てる
	for {
		line, err := reader.ReadString('\n')
		if err != nil || line == "\r\n" || line == "\n" {
			break
		}
	}

	status, page := s.route(method, path)

	body, err := pages.ReadFile(page)
	if err != nil {
		// 埋め込みページの読み出しは失敗しないはずだが、念のため
		logger.Error("httpd", "[%s] missing embedded page %s: %v", reqID, page, err)
		s.metrics.RecordFailure(time.Since(start))
		return
	}

	response := fmt.Sprintf(
		"HTTP/1.1 %s\r\nContent-Type: text/html; charset=utf-8\r\nContent-Length: %d\r\nConnection: close\r\n\r\n%s",
		status, len(body), body,
	)

	if _, err := conn.Write([]byte(response)); err != nil {
		logger.Warn("httpd", "[%s] failed to write response: %v", reqID, err)
		s.metrics.RecordFailure(time.Since(start))
		return
	}

	latency := time.Since(start)
	s.metrics.RecordSuccess(latency)
	logger.Debug("httpd", "[%s] %s %s -> %s (%v)", reqID, method, path, status, latency)
}

// route はメソッドとパスからステータスと表示ページを決める
func (s *Server) route(method, path string) (status, page string) {
	if method != "GET" {
		return statusNotFound, pageNotFound
	}

	switch path {
	case "/":
		return statusOK, pageHello
	case "/sleep":
		time.Sleep(s.config.SleepDelay)
		return statusOK, pageHello
	default:
		return statusNotFound, pageNotFound
	}
}

// parseRequestLine は "GET /path HTTP/1.1" 形式のリクエストラインを分解する
func parseRequestLine(line string) (method, path string, ok bool) {
	fields := strings.Fields(line)
	if len(fields) != 3 || !strings.HasPrefix(fields[2], "HTTP/") {
		return "", "", false
	}
	return fields[0], fields[1], true
}

// Addr は実際のリッスンアドレスを返す（Listen前は空文字）
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Running はサーバーが受け付け中かどうかを返す
func (s *Server) Running() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Pool は接続処理用のワーカープールを返す
func (s *Server) Pool() *pool.Pool {
	return s.pool
}

// Metrics はリクエストメトリクスを返す
func (s *Server) Metrics() *metrics.Metrics {
	return s.metrics
}
