// Package main is the entry point for pool-httpd.
package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pool-httpd/internal/api"
	"pool-httpd/internal/bench"
	"pool-httpd/internal/config"
	"pool-httpd/internal/events"
	"pool-httpd/internal/httpd"
	"pool-httpd/internal/logger"
	"pool-httpd/internal/pi"
)

var (
	version = "dev"
)

func main() {
	// フラグ定義
	var (
		configFile  = flag.String("config", "", "設定ファイルパス (YAML/JSON)")
		addr        = flag.String("addr", "", "リッスンアドレス (例: :7878)")
		workers     = flag.Int("workers", 0, "ワーカープールのサイズ")
		sleepDelay  = flag.Duration("sleep", 0, "/sleep エンドポイントの遅延 (例: 5s)")
		adminMode   = flag.Bool("admin", false, "管理APIサーバーを有効化")
		adminAddr   = flag.String("admin-addr", ":8080", "管理APIサーバーのアドレス")
		piMode      = flag.Bool("pi", false, "π計算モードで実行")
		iterations  = flag.Int("iterations", 0, "π計算の反復回数")
		benchMode   = flag.Bool("bench", false, "ベンチマークモードで実行")
		presetName  = flag.String("preset", "", "ベンチマークプリセット名 (quick, basic, slowpath, stress)")
		duration    = flag.Duration("duration", 0, "ベンチマーク実行時間 (例: 10s)")
		listPresets = flag.Bool("list-presets", false, "利用可能なプリセットを表示")
		logLevel    = flag.String("log-level", "", "ログレベル (debug, info, warn, error)")
		showVersion = flag.Bool("version", false, "バージョンを表示")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `pool-httpd - Worker-Pool Static HTTP Server

Usage:
  pool-httpd [options]

Options:
`)
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  # サーバーを起動
  pool-httpd --addr :7878 --workers 4

  # 設定ファイルから起動
  pool-httpd --config server.yaml

  # 管理APIつきで起動
  pool-httpd --admin --admin-addr :8080

  # πを計算して終了
  pool-httpd --pi --workers 8 --iterations 1000000

  # ベンチマークを実行
  pool-httpd --bench --preset quick

  # プリセット一覧を表示
  pool-httpd --list-presets
`)
	}

	flag.Parse()

	// バージョン表示
	if *showVersion {
		fmt.Printf("pool-httpd version %s\n", version)
		return
	}

	// プリセット一覧表示
	if *listPresets {
		printPresets()
		return
	}

	// 設定ファイルの読み込み（指定時のみ）
	var fileConfig *config.FileConfig
	if *configFile != "" {
		fc, err := config.LoadFile(*configFile)
		if err != nil {
			logger.Error("", "設定ファイル読み込みエラー: %v", err)
			os.Exit(1)
		}
		if err := fc.Validate(); err != nil {
			logger.Error("", "設定検証エラー: %v", err)
			os.Exit(1)
		}
		fileConfig = fc
	}

	// ログレベル（フラグ > 設定ファイル）
	levelName := *logLevel
	if levelName == "" && fileConfig != nil {
		levelName = fileConfig.LogLevel
	}
	if levelName != "" {
		level, err := logger.ParseLevel(levelName)
		if err != nil {
			logger.Error("", "ログレベルエラー: %v", err)
			os.Exit(1)
		}
		logger.Default.SetLevel(level)
	}

	// π計算モード
	if *piMode {
		runPi(fileConfig, *workers, *iterations)
		return
	}

	// ベンチマークモード
	if *benchMode {
		if err := runBench(fileConfig, *presetName, *duration, *workers); err != nil {
			logger.Error("", "ベンチマーク実行エラー: %v", err)
			os.Exit(1)
		}
		return
	}

	// サーバーモード（デフォルト）
	serverConfig, err := buildServerConfig(fileConfig, *addr, *workers, *sleepDelay)
	if err != nil {
		logger.Error("", "設定エラー: %v", err)
		os.Exit(1)
	}

	adminEnabled := *adminMode
	resolvedAdminAddr := *adminAddr
	if fileConfig != nil && fileConfig.Admin.Enabled {
		adminEnabled = true
		if fileConfig.Admin.Addr != "" {
			resolvedAdminAddr = fileConfig.Admin.Addr
		}
	}

	if err := runServer(serverConfig, adminEnabled, resolvedAdminAddr); err != nil {
		logger.Error("", "サーバーエラー: %v", err)
		os.Exit(1)
	}
}

// buildServerConfig はサーバー設定を構築する（設定ファイル < フラグの優先順）
func buildServerConfig(fileConfig *config.FileConfig, addr string, workers int, sleepDelay time.Duration) (httpd.Config, error) {
	cfg := httpd.DefaultConfig()

	if fileConfig != nil {
		fc, err := fileConfig.ToServerConfig()
		if err != nil {
			return cfg, err
		}
		cfg = fc
	}

	// フラグでオーバーライド
	if addr != "" {
		cfg.Addr = addr
	}
	if workers > 0 {
		cfg.Workers = workers
	}
	if sleepDelay > 0 {
		cfg.SleepDelay = sleepDelay
	}

	return cfg, nil
}

// runServer はHTTPサーバーを起動する
func runServer(cfg httpd.Config, adminEnabled bool, adminAddr string) error {
	fmt.Println("pool-httpd - Worker-Pool Static HTTP Server")
	fmt.Println("===========================================")
	fmt.Printf("Address: %s, Workers: %d\n", cfg.Addr, cfg.Workers)
	if adminEnabled {
		fmt.Printf("Admin API: http://%s\n", adminAddr)
	}
	fmt.Println("Press Ctrl+C to stop")
	fmt.Println()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// シグナルハンドリング
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Println("\n中断シグナルを受信、サーバーを終了中...")
		cancel()
	}()

	bus := events.NewBus()
	defer bus.Close()
	cfg.Bus = bus

	server := httpd.New(cfg)

	// 管理APIサーバー
	if adminEnabled {
		admin := api.NewServer(adminAddr, server, bus)
		go func() {
			if err := admin.Start(ctx); err != nil {
				logger.Error("admin", "管理APIサーバーエラー: %v", err)
			}
		}()
	}

	return server.Start(ctx)
}

// runPi はπ計算モードを実行する
func runPi(fileConfig *config.FileConfig, workers, iterations int) {
	defWorkers, defIterations := 8, 1_000_000
	if fileConfig != nil {
		defWorkers, defIterations = fileConfig.PiSettings()
	}
	if workers < 1 {
		workers = defWorkers
	}
	if iterations < 1 {
		iterations = defIterations
	}

	fmt.Printf("Calculating pi with %d workers over %d iterations...\n", workers, iterations)

	start := time.Now()
	value := pi.Calculate(workers, iterations)
	elapsed := time.Since(start)

	fmt.Printf("Pi:      %.15f\n", value)
	fmt.Printf("Error:   %.2e\n", math.Abs(math.Pi-value))
	fmt.Printf("Elapsed: %v\n", elapsed.Round(time.Millisecond))
}

// runBench はベンチマークモードを実行する
func runBench(fileConfig *config.FileConfig, presetName string, duration time.Duration, workers int) error {
	cfg := bench.QuickBench()

	// 1. 設定ファイルから
	if fileConfig != nil {
		fc, err := fileConfig.ToBenchConfig()
		if err != nil {
			return err
		}
		cfg = fc
	}

	// 2. プリセット指定が優先
	if presetName != "" {
		preset, ok := bench.GetPreset(presetName)
		if !ok {
			return fmt.Errorf("不明なプリセット: %s (利用可能: %v)", presetName, bench.ListPresets())
		}
		cfg = preset
	}

	// 3. フラグでオーバーライド
	if duration > 0 {
		cfg.Duration = duration
	}
	if workers > 0 {
		cfg.ServerWorkers = workers
	}

	fmt.Println("pool-httpd - Benchmark")
	fmt.Println("======================")
	fmt.Printf("Benchmark: %s\n", cfg.Name)
	fmt.Printf("Duration: %v\n", cfg.Duration)
	fmt.Printf("Server Workers: %d, Client Workers: %d\n", cfg.ServerWorkers, cfg.ClientWorkers)
	fmt.Println()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Println("\n中断シグナルを受信、ベンチマークを終了中...")
		cancel()
	}()

	engine := bench.New(cfg)
	result, err := engine.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Println(result.Report())
	return nil
}

// printPresets は利用可能なプリセットを表示する
func printPresets() {
	fmt.Println("利用可能なベンチマークプリセット:")
	fmt.Println()

	presets := []struct {
		name string
		desc string
	}{
		{"quick", "短時間の動作確認（デフォルト）"},
		{"basic", "速いパスのみの基本負荷テスト"},
		{"slowpath", "遅いリクエスト混在時の詰まり方のテスト"},
		{"stress", "高負荷ストレステスト"},
	}

	for _, p := range presets {
		fmt.Printf("  %-12s %s\n", p.name, p.desc)
	}

	fmt.Println()
	fmt.Println("使用例: pool-httpd --bench --preset quick")
}
