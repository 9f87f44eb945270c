package pi

import (
	"sync"

	"pool-httpd/internal/pool"
)

// Calculate は 4/(1+x^2) の [0,1] 区間の数値積分でπを近似する
// 区間をiterations個の等幅中点サンプルに分割し、1サンプルを1ジョブとして
// プールに投入する。部分和はこちらが持つmutexの下で共有の累積値に加算し、
// プールをClose（全ワーカーjoin）してから合計を読む。
// この順序を崩すと途中の部分和を読んでしまうため、先にCloseするのが必須
//
// numWorkersが1未満の場合はpanicする（プール構築時の制約）
func Calculate(numWorkers, iterations int) float64 {
	p := pool.New(numWorkers)

	var mu sync.Mutex
	sum := 0.0

	for i := 0; i < iterations; i++ {
		i := i
		p.Submit(func() {
			value := integrate(i, iterations)

			mu.Lock()
			sum += value
			mu.Unlock()
		})
	}

	p.Close()

	return sum
}

// integrate は1つの中点サンプルの寄与を計算する
func integrate(iteration, maxIterations int) float64 {
	width := 1.0 / float64(maxIterations)
	mid := (float64(iteration) + 0.5) * width
	height := 4.0 / (1.0 + mid*mid)
	return height * width
}
