package pool

import (
	"fmt"
	"sync"
	"sync/atomic"

	"pool-httpd/internal/events"
	"pool-httpd/internal/logger"
)

// Job はプールが実行する単発のジョブを表す
// 引数なし・戻り値なしで、一度だけ実行される
type Job func()

// Config はプールの設定
type Config struct {
	Size int         // ワーカー数（1以上）
	Bus  *events.Bus // ライフサイクルイベントの通知先（nilで無効）
}

// dispatch はキューに乗る唯一の要素
// 通常のジョブか、ワーカー1つ分の終了シグナルのどちらか
type dispatch struct {
	job      Job
	shutdown bool
}

// queue は無制限のFIFOキュー
// 取り出しはワーカー間で排他、ジョブの実行はロックの外で行われる
type queue struct {
	mu       sync.Mutex
	cond     *sync.Cond
	items    []dispatch
	detached bool
}

func newQueue() *queue {
	q := &queue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// push は要素を末尾に追加する
// 破棄済みのキューへのpushは使用上の誤りなのでpanicする
func (q *queue) push(d dispatch) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.detached {
		panic("pool: submit on a closed pool")
	}

	q.items = append(q.items, d)
	q.cond.Signal()
}

// pop は先頭の要素を取り出す（要素が来るまでブロック）
func (q *queue) pop() dispatch {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.items) == 0 {
		q.cond.Wait()
	}

	d := q.items[0]
	q.items = q.items[1:]
	return d
}

// detach は送信側を切り離す（teardown完了後に呼ばれる）
func (q *queue) detach() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.detached = true
}

func (q *queue) depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// worker はプール内の1ワーカー
// idは構築時に割り当てられ、doneはゴルーチン終了時に閉じられる
type worker struct {
	id   int
	done chan struct{}
}

// Pool は固定数のワーカーでジョブを実行するプール
type Pool struct {
	queue   *queue
	workers []*worker
	bus     *events.Bus
	closed  atomic.Bool
}

// New は新しいプールを作成する
// sizeが1未満の場合はpanicする
func New(size int) *Pool {
	return NewWithConfig(Config{Size: size})
}

// NewWithConfig は設定を指定してプールを作成する
func NewWithConfig(config Config) *Pool {
	if config.Size < 1 {
		panic(fmt.Sprintf("pool: size must be at least 1, got %d", config.Size))
	}

	p := &Pool{
		queue:   newQueue(),
		workers: make([]*worker, 0, config.Size),
		bus:     config.Bus,
	}

	for id := 0; id < config.Size; id++ {
		w := &worker{id: id, done: make(chan struct{})}
		p.workers = append(p.workers, w)
		go p.run(w)
	}

	logger.Debug("pool", "started %d workers", config.Size)
	return p
}

// run はワーカーの受信ループ
// ジョブ内のpanicはここで回収され、そのワーカーは二度と復帰しない
// （プロセスを巻き込まず、容量が1つ減るだけに留める）
func (p *Pool) run(w *worker) {
	defer close(w.done)
	defer func() {
		if r := recover(); r != nil {
			logger.Error("pool", "worker %d crashed: %v", w.id, r)
			if p.bus != nil {
				p.bus.Publish(events.NewWorkerCrashEvent(w.id, fmt.Sprint(r)))
			}
		}
	}()

	for {
		d := p.queue.pop()
		if d.shutdown {
			logger.Debug("pool", "worker %d shutting down", w.id)
			return
		}
		d.job()
	}
}

// Submit はジョブをキューに追加する
// 追加した時点で戻り、実行完了は待たない（fire-and-forget）
// teardown開始後の呼び出しはpanicする
func (p *Pool) Submit(job Job) {
	if p.closed.Load() {
		panic("pool: submit on a closed pool")
	}
	p.queue.push(dispatch{job: job})
}

// Close はプールを停止する（2回目以降の呼び出しは何もしない）
// ワーカー数と同数の終了シグナルを通常のジョブの後ろに積み、
// 全ワーカーの終了を構築順に待ってから戻る
// 終了しないジョブが実行中の場合、Closeは永久にブロックする
func (p *Pool) Close() {
	if p.closed.Swap(true) {
		return
	}

	for range p.workers {
		p.queue.push(dispatch{shutdown: true})
	}

	for _, w := range p.workers {
		<-w.done
	}

	p.queue.detach()
	logger.Debug("pool", "all %d workers joined", len(p.workers))
}

// Size は構築時に指定されたワーカー数を返す
func (p *Pool) Size() int {
	return len(p.workers)
}

// Alive は終了していないワーカーの数を返す
func (p *Pool) Alive() int {
	alive := 0
	for _, w := range p.workers {
		select {
		case <-w.done:
		default:
			alive++
		}
	}
	return alive
}

// QueueDepth は未処理のキュー要素数を返す
func (p *Pool) QueueDepth() int {
	return p.queue.depth()
}
