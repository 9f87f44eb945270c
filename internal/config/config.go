package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"pool-httpd/internal/bench"
	"pool-httpd/internal/httpd"
)

// FileConfig は設定ファイルの構造
type FileConfig struct {
	LogLevel string       `yaml:"log_level" json:"log_level"`
	Server   ServerConfig `yaml:"server" json:"server"`
	Admin    AdminConfig  `yaml:"admin" json:"admin"`
	Bench    BenchConfig  `yaml:"bench" json:"bench"`
	Pi       PiConfig     `yaml:"pi" json:"pi"`
}

// ServerConfig はHTTPサーバー設定
type ServerConfig struct {
	Addr       string `yaml:"addr" json:"addr"`
	Workers    int    `yaml:"workers" json:"workers"`
	SleepDelay string `yaml:"sleep_delay" json:"sleep_delay"`
}

// AdminConfig は管理APIサーバー設定
type AdminConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Addr    string `yaml:"addr" json:"addr"`
}

// BenchConfig はベンチマーク設定
type BenchConfig struct {
	Preset        string  `yaml:"preset" json:"preset"`
	Duration      string  `yaml:"duration" json:"duration"`
	ServerWorkers int     `yaml:"server_workers" json:"server_workers"`
	ClientWorkers int     `yaml:"client_workers" json:"client_workers"`
	SleepRatio    float64 `yaml:"sleep_ratio" json:"sleep_ratio"`
	MissRatio     float64 `yaml:"miss_ratio" json:"miss_ratio"`
}

// PiConfig はπ計算設定
type PiConfig struct {
	Workers    int `yaml:"workers" json:"workers"`
	Iterations int `yaml:"iterations" json:"iterations"`
}

// LoadFile は設定ファイルを読み込む
func LoadFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config FileConfig
	ext := strings.ToLower(filepath.Ext(path))

	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse JSON: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}

	return &config, nil
}

// ToServerConfig はFileConfigをhttpd.Configに変換する
func (f *FileConfig) ToServerConfig() (httpd.Config, error) {
	config := httpd.DefaultConfig()

	if f.Server.Addr != "" {
		config.Addr = f.Server.Addr
	}
	if f.Server.Workers > 0 {
		config.Workers = f.Server.Workers
	}
	if f.Server.SleepDelay != "" {
		d, err := time.ParseDuration(f.Server.SleepDelay)
		if err != nil {
			return config, fmt.Errorf("invalid sleep_delay: %w", err)
		}
		config.SleepDelay = d
	}

	return config, nil
}

// ToBenchConfig はFileConfigをbench.Configに変換する
// presetが指定されていればそれを土台にし、個別の値で上書きする
func (f *FileConfig) ToBenchConfig() (bench.Config, error) {
	config := bench.DefaultConfig()

	if f.Bench.Preset != "" {
		preset, ok := bench.GetPreset(f.Bench.Preset)
		if !ok {
			return config, fmt.Errorf("unknown bench preset: %s (available: %v)", f.Bench.Preset, bench.ListPresets())
		}
		config = preset
	}

	if f.Bench.Duration != "" {
		d, err := time.ParseDuration(f.Bench.Duration)
		if err != nil {
			return config, fmt.Errorf("invalid bench duration: %w", err)
		}
		config.Duration = d
	}
	if f.Bench.ServerWorkers > 0 {
		config.ServerWorkers = f.Bench.ServerWorkers
	}
	if f.Bench.ClientWorkers > 0 {
		config.ClientWorkers = f.Bench.ClientWorkers
	}
	if f.Bench.SleepRatio > 0 {
		config.SleepRatio = f.Bench.SleepRatio
	}
	if f.Bench.MissRatio > 0 {
		config.MissRatio = f.Bench.MissRatio
	}

	return config, nil
}

// PiSettings はπ計算の設定値を返す（未指定はデフォルト）
func (f *FileConfig) PiSettings() (workers, iterations int) {
	workers = f.Pi.Workers
	if workers < 1 {
		workers = 8
	}
	iterations = f.Pi.Iterations
	if iterations < 1 {
		iterations = 1_000_000
	}
	return workers, iterations
}

// Validate は設定を検証する
func (f *FileConfig) Validate() error {
	if f.Server.Workers < 0 {
		return fmt.Errorf("server.workers must be non-negative")
	}

	if f.Bench.ServerWorkers < 0 {
		return fmt.Errorf("bench.server_workers must be non-negative")
	}
	if f.Bench.ClientWorkers < 0 {
		return fmt.Errorf("bench.client_workers must be non-negative")
	}
	if f.Bench.SleepRatio < 0 || f.Bench.SleepRatio > 1 {
		return fmt.Errorf("bench.sleep_ratio must be between 0 and 1")
	}
	if f.Bench.MissRatio < 0 || f.Bench.MissRatio > 1 {
		return fmt.Errorf("bench.miss_ratio must be between 0 and 1")
	}
	if f.Bench.SleepRatio+f.Bench.MissRatio > 1 {
		return fmt.Errorf("bench.sleep_ratio + bench.miss_ratio must not exceed 1")
	}

	if f.Pi.Workers < 0 {
		return fmt.Errorf("pi.workers must be non-negative")
	}
	if f.Pi.Iterations < 0 {
		return fmt.Errorf("pi.iterations must be non-negative")
	}

	return nil
}
