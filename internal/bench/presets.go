package bench

import (
	"time"
)

// QuickBench は短時間の動作確認用ベンチマークを返す
func QuickBench() Config {
	return Config{
		Name:          "quick",
		Description:   "Short smoke benchmark",
		Duration:      2 * time.Second,
		ServerWorkers: 2,
		SleepDelay:    time.Millisecond,
		ClientWorkers: 4,
		SleepRatio:    0.05,
		MissRatio:     0.1,
	}
}

// BasicBench は基本的な負荷ベンチマークを返す
// 速いリクエストのみ、遅延パスなし
func BasicBench() Config {
	return Config{
		Name:          "basic",
		Description:   "Basic load benchmark, fast path only",
		Duration:      10 * time.Second,
		ServerWorkers: 4,
		SleepDelay:    time.Millisecond,
		ClientWorkers: 8,
		SleepRatio:    0,
		MissRatio:     0.1,
	}
}

// SlowPathBench は遅いリクエスト混在時の詰まり方を見るベンチマークを返す
// 遅いジョブがワーカーを専有し、後続のキュー待ちがレイテンシに現れる
func SlowPathBench() Config {
	return Config{
		Name:          "slowpath",
		Description:   "Head-of-line blocking with slow requests",
		Duration:      10 * time.Second,
		ServerWorkers: 2,
		SleepDelay:    50 * time.Millisecond,
		ClientWorkers: 8,
		SleepRatio:    0.5,
		MissRatio:     0,
	}
}

// StressBench は高負荷ベンチマークを返す
func StressBench() Config {
	return Config{
		Name:          "stress",
		Description:   "High-load stress benchmark",
		Duration:      30 * time.Second,
		ServerWorkers: 8,
		SleepDelay:    time.Millisecond,
		ClientWorkers: 16,
		SleepRatio:    0.05,
		MissRatio:     0.1,
	}
}

// GetPreset は名前からプリセットを取得する
func GetPreset(name string) (Config, bool) {
	switch name {
	case "quick":
		return QuickBench(), true
	case "basic":
		return BasicBench(), true
	case "slowpath":
		return SlowPathBench(), true
	case "stress":
		return StressBench(), true
	default:
		return Config{}, false
	}
}

// ListPresets は利用可能なプリセット名を返す
func ListPresets() []string {
	return []string{"quick", "basic", "slowpath", "stress"}
}
