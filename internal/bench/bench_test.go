package bench

import (
	"context"
	"strings"
	"testing"
	"time"

	"pool-httpd/internal/events"
)

func quickTestConfig() Config {
	cfg := QuickBench()
	cfg.Duration = 300 * time.Millisecond
	cfg.SleepRatio = 0
	return cfg
}

func TestEngineRun(t *testing.T) {
	engine := New(quickTestConfig())

	result, err := engine.Run(context.Background())
	if err != nil {
		t.Fatalf("benchmark failed: %v", err)
	}

	if result.TotalRequests == 0 {
		t.Error("expected some requests during the benchmark")
	}
	if !result.WorkersJoined {
		t.Error("expected all server workers joined before results were read")
	}
	if result.RunID == "" {
		t.Error("expected a run id")
	}
	if engine.IsRunning() {
		t.Error("expected engine to report not running after Run")
	}
}

func TestEngineRejectsConcurrentRuns(t *testing.T) {
	cfg := quickTestConfig()
	cfg.Duration = time.Second

	engine := New(cfg)

	started := make(chan struct{})
	go func() {
		close(started)
		_, _ = engine.Run(context.Background())
	}()
	<-started

	// Wait for the first run to be marked running.
	deadline := time.After(time.Second)
	for !engine.IsRunning() {
		select {
		case <-deadline:
			t.Fatal("first run never started")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	if _, err := engine.Run(context.Background()); err == nil {
		t.Error("expected second concurrent run to be rejected")
	}
}

func TestEnginePublishesCompletionEvent(t *testing.T) {
	bus := events.NewBus()
	ch := bus.Subscribe()

	engine := New(quickTestConfig())
	engine.SetEventBus(bus)

	result, err := engine.Run(context.Background())
	if err != nil {
		t.Fatalf("benchmark failed: %v", err)
	}

	deadline := time.After(time.Second)
	for {
		select {
		case ev := <-ch:
			if ev.Type != events.EventBenchComplete {
				continue // server start/stop events come first
			}
			if ev.Data.RunID != result.RunID {
				t.Errorf("expected run id %s in event, got %s", result.RunID, ev.Data.RunID)
			}
			return
		case <-deadline:
			t.Fatal("timeout waiting for bench_complete event")
		}
	}
}

func TestResultReport(t *testing.T) {
	r := &Result{
		RunID:         "abcd1234",
		Name:          "quick",
		StartTime:     time.Now(),
		EndTime:       time.Now(),
		TotalRequests: 42,
		ServerWorkers: 2,
		WorkersJoined: true,
	}

	report := r.Report()
	for _, want := range []string{"BENCHMARK REPORT", "quick", "abcd1234", "42", "Workers Joined:   yes"} {
		if !strings.Contains(report, want) {
			t.Errorf("expected report to contain %q", want)
		}
	}
}

func TestGetPreset(t *testing.T) {
	for _, name := range ListPresets() {
		cfg, ok := GetPreset(name)
		if !ok {
			t.Errorf("preset %s not found", name)
		}
		if cfg.Name != name {
			t.Errorf("preset %s has mismatched name %s", name, cfg.Name)
		}
		if cfg.Duration <= 0 || cfg.ServerWorkers < 1 || cfg.ClientWorkers < 1 {
			t.Errorf("preset %s has invalid settings: %+v", name, cfg)
		}
	}

	if _, ok := GetPreset("nope"); ok {
		t.Error("expected unknown preset to be rejected")
	}
}
