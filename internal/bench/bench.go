package bench

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"pool-httpd/internal/events"
	"pool-httpd/internal/httpd"
	"pool-httpd/internal/loadgen"
	"pool-httpd/internal/logger"
)

// Config はベンチマークの設定
type Config struct {
	Name        string        // ベンチマーク名
	Description string        // 説明
	Duration    time.Duration // 実行時間

	// サーバー設定
	ServerWorkers int           // サーバー側ワーカー数
	SleepDelay    time.Duration // /sleep の遅延

	// クライアント設定
	ClientWorkers int     // クライアント側ワーカー数
	SleepRatio    float64 // /sleep を叩く比率
	MissRatio     float64 // 404になるパスを叩く比率
}

// DefaultConfig はデフォルト設定を返す
func DefaultConfig() Config {
	return Config{
		Name:          "default",
		Description:   "Default benchmark",
		Duration:      10 * time.Second,
		ServerWorkers: 4,
		SleepDelay:    10 * time.Millisecond,
		ClientWorkers: 8,
		SleepRatio:    0.05,
		MissRatio:     0.1,
	}
}

// Result はベンチマーク実行結果
type Result struct {
	RunID     string
	Name      string
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration

	// クライアント側メトリクス
	TotalRequests   uint64
	SuccessRequests uint64
	FailedRequests  uint64
	ErrorRate       float64
	OverallRPS      float64
	AvgLatency      time.Duration
	P99Latency      time.Duration
	MaxLatency      time.Duration

	// サーバー側の状態
	ServedRequests uint64
	ServerWorkers  int
	WorkersJoined  bool
}

// Engine はベンチマーク実行エンジン
// ローカルにHTTPサーバーを立て、負荷生成器を一定時間ぶつけて結果を集計する
type Engine struct {
	config   Config
	eventBus *events.Bus

	mu      sync.RWMutex
	running bool
}

// New は新しいEngineを作成する
func New(config Config) *Engine {
	return &Engine{
		config: config,
	}
}

// SetEventBus はイベントバスを設定する
func (e *Engine) SetEventBus(bus *events.Bus) {
	e.eventBus = bus
}

// Run はベンチマークを実行する
// クライアント側・サーバー側とも、メトリクスを読む前に
// それぞれのプールを停止（全ワーカーjoin）する
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return nil, fmt.Errorf("benchmark is already running")
	}
	e.running = true
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
	}()

	result := &Result{
		RunID:     uuid.NewString()[:8],
		Name:      e.config.Name,
		StartTime: time.Now(),
	}

	logger.Info("bench", "=== Benchmark '%s' started (run %s) ===", e.config.Name, result.RunID)
	logger.Info("bench", "Description: %s", e.config.Description)

	// サーバー起動
	server := httpd.New(httpd.Config{
		Addr:       "127.0.0.1:0",
		Workers:    e.config.ServerWorkers,
		SleepDelay: e.config.SleepDelay,
		Bus:        e.eventBus,
	})
	if err := server.Listen(); err != nil {
		return nil, fmt.Errorf("failed to start benchmark server: %w", err)
	}

	serveCtx, stopServer := context.WithCancel(ctx)
	defer stopServer()

	serveDone := make(chan error, 1)
	go func() {
		serveDone <- server.Serve(serveCtx)
	}()

	// 負荷生成
	gen := loadgen.New(loadgen.Config{
		TargetURL:  "http://" + server.Addr(),
		NumWorkers: e.config.ClientWorkers,
		SleepRatio: e.config.SleepRatio,
		MissRatio:  e.config.MissRatio,
	})
	gen.RunFor(ctx, e.config.Duration)

	// サーバーを止めてから結果を読む
	stopServer()
	if err := <-serveDone; err != nil {
		return nil, fmt.Errorf("benchmark server failed: %w", err)
	}

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)
	e.collectResults(result, server, gen)

	if e.eventBus != nil {
		e.eventBus.Publish(events.NewBenchCompleteEvent(result.RunID, result.TotalRequests))
	}
	logger.Info("bench", "=== Benchmark '%s' completed ===", e.config.Name)

	return result, nil
}

// collectResults は結果を収集する
func (e *Engine) collectResults(result *Result, server *httpd.Server, gen *loadgen.Generator) {
	snapshot := gen.Metrics().Snapshot()
	result.TotalRequests = snapshot.TotalRequests
	result.SuccessRequests = snapshot.SuccessRequests
	result.FailedRequests = snapshot.FailedRequests
	result.ErrorRate = snapshot.ErrorRate
	result.OverallRPS = snapshot.OverallRPS
	result.AvgLatency = snapshot.AverageLatency
	result.P99Latency = snapshot.P99Latency
	result.MaxLatency = snapshot.MaxLatency

	result.ServedRequests = server.Metrics().TotalRequests()
	result.ServerWorkers = server.Pool().Size()
	result.WorkersJoined = server.Pool().Alive() == 0
}

// IsRunning は実行中かどうかを返す
func (e *Engine) IsRunning() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.running
}

// Report は結果をフォーマットして返す
func (r *Result) Report() string {
	joined := "yes"
	if !r.WorkersJoined {
		joined = "NO"
	}

	return fmt.Sprintf(`
================================================================================
                      BENCHMARK REPORT: %s (run %s)
================================================================================

EXECUTION SUMMARY
-----------------
  Start Time:     %s
  End Time:       %s
  Duration:       %v

CLIENT METRICS
--------------
  Total Requests:   %d
  Success:          %d
  Failed:           %d
  Error Rate:       %.2f%%
  Overall RPS:      %.2f
  Avg Latency:      %v
  P99 Latency:      %v
  Max Latency:      %v

SERVER STATE
------------
  Served Requests:  %d
  Pool Workers:     %d
  Workers Joined:   %s

================================================================================`,
		r.Name,
		r.RunID,
		r.StartTime.Format("2006-01-02 15:04:05"),
		r.EndTime.Format("2006-01-02 15:04:05"),
		r.Duration.Round(time.Millisecond),
		r.TotalRequests,
		r.SuccessRequests,
		r.FailedRequests,
		r.ErrorRate*100,
		r.OverallRPS,
		r.AvgLatency.Round(time.Microsecond),
		r.P99Latency.Round(time.Microsecond),
		r.MaxLatency.Round(time.Microsecond),
		r.ServedRequests,
		r.ServerWorkers,
		joined,
	)
}
