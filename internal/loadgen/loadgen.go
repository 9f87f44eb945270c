// Package loadgen provides a load generator for stress testing the server.
package loadgen

import (
	"context"
	"math/rand"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"

	"pool-httpd/internal/logger"
	"pool-httpd/internal/metrics"
	"pool-httpd/internal/pool"
)

// Config はGeneratorの設定
type Config struct {
	TargetURL     string        // 対象サーバーのベースURL
	NumWorkers    int           // ワーカー数（0でCPU数）
	SleepRatio    float64       // /sleep を叩く比率（0.0〜1.0）
	MissRatio     float64       // 存在しないパスを叩く比率（0.0〜1.0）
	Timeout       time.Duration // 1リクエストのタイムアウト
	RequestsLimit uint64        // リクエスト上限（0で無制限）
}

// DefaultConfig はデフォルト設定を返す
func DefaultConfig() Config {
	return Config{
		NumWorkers: 0, // CPU数
		SleepRatio: 0.05,
		MissRatio:  0.1,
		Timeout:    10 * time.Second,
	}
}

// Generator は負荷生成器
// リクエスト1件を1ジョブとして自前のワーカープールに投入する
// プールのキューは無制限なので、実行中ジョブ数に連動したセマフォで
// 生成側を絞り、キューが際限なく伸びないようにしている
type Generator struct {
	config     Config
	numWorkers int
	client     *resty.Client
	metrics    *metrics.Metrics

	pool *pool.Pool
	sem  chan struct{}

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New は新しいGeneratorを作成する
func New(config Config) *Generator {
	numWorkers := config.NumWorkers
	if numWorkers < 1 {
		numWorkers = runtime.NumCPU()
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = DefaultConfig().Timeout
	}

	client := resty.New().
		SetBaseURL(config.TargetURL).
		SetTimeout(timeout)

	return &Generator{
		config:     config,
		numWorkers: numWorkers,
		client:     client,
		metrics:    metrics.New(),
	}
}

// Start は負荷生成を開始する
func (g *Generator) Start(ctx context.Context) {
	if g.running.Swap(true) {
		return // Already running
	}

	g.ctx, g.cancel = context.WithCancel(ctx)
	g.pool = pool.New(g.numWorkers)
	g.sem = make(chan struct{}, g.numWorkers*2)

	logger.Info("loadgen", "started (workers: %d, target: %s)", g.numWorkers, g.config.TargetURL)

	g.wg.Add(1)
	go g.generateRequests()
}

// generateRequests はリクエストを生成し続ける
func (g *Generator) generateRequests() {
	defer g.wg.Done()

	for {
		// リクエスト上限チェック
		if g.config.RequestsLimit > 0 && g.metrics.TotalRequests() >= g.config.RequestsLimit {
			return
		}

		select {
		case <-g.ctx.Done():
			return
		case g.sem <- struct{}{}:
		}

		path := g.pickPath()
		g.pool.Submit(func() {
			defer func() { <-g.sem }()
			g.doRequest(path)
		})
	}
}

// pickPath は設定された比率に従ってリクエスト先を選ぶ
func (g *Generator) pickPath() string {
	r := rand.Float64()
	switch {
	case r < g.config.SleepRatio:
		return "/sleep"
	case r < g.config.SleepRatio+g.config.MissRatio:
		return "/no-such-page"
	default:
		return "/"
	}
}

// doRequest は1リクエストを実行して結果を記録する
// 404もサーバーが応答を返した以上は成功として数える
func (g *Generator) doRequest(path string) {
	start := time.Now()
	_, err := g.client.R().Get(path)
	latency := time.Since(start)

	if err != nil {
		g.metrics.RecordFailure(latency)
	} else {
		g.metrics.RecordSuccess(latency)
	}
}

// Stop は負荷生成を停止する
// 生成ループを止めてから、実行中のリクエストを全て待つ
func (g *Generator) Stop() {
	if !g.running.Swap(false) {
		return // Not running
	}

	g.cancel()
	g.wg.Wait()
	g.pool.Close()

	logger.Info("loadgen", "stopped (%d requests)", g.metrics.TotalRequests())
}

// Metrics はメトリクスを返す
func (g *Generator) Metrics() *metrics.Metrics {
	return g.metrics
}

// IsRunning は実行中かどうかを返す
func (g *Generator) IsRunning() bool {
	return g.running.Load()
}

// RunFor は指定時間だけ負荷生成を実行する
func (g *Generator) RunFor(ctx context.Context, duration time.Duration) *metrics.Snapshot {
	g.Start(ctx)

	select {
	case <-ctx.Done():
	case <-time.After(duration):
	}

	g.Stop()

	snapshot := g.metrics.Snapshot()
	return &snapshot
}

// RunRequests はおおよそ指定数のリクエストを実行する
// 実行中のジョブ分だけ上限を少し超えることがある
func (g *Generator) RunRequests(ctx context.Context, count uint64) *metrics.Snapshot {
	g.config.RequestsLimit = count
	g.Start(ctx)
	g.wg.Wait()
	g.Stop()

	snapshot := g.metrics.Snapshot()
	return &snapshot
}
