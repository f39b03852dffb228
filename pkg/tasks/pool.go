package tasks

import (
	"context"
	"fmt"
	"sync"

	"github.com/panjf2000/ants/v2"
	"studyai-go/pkg/log"
)

// PoolDispatcher 在进程内的 ants 协程池中执行任务，并发数受池大小限制。
// 所有已接收的任务都登记在 WaitGroup 中，停机时会被等待完成。
type PoolDispatcher struct {
	pool      *ants.Pool
	processor Processor
	wg        sync.WaitGroup
	// mu 保证 closed 的检查与 wg.Add 相对 Shutdown 是原子的
	mu     sync.Mutex
	closed bool
}

// NewPoolDispatcher 创建一个大小为 size 的进程内派发器。
func NewPoolDispatcher(size int, processor Processor) (*PoolDispatcher, error) {
	if size < 1 {
		size = 1
	}
	pool, err := ants.NewPool(size)
	if err != nil {
		return nil, fmt.Errorf("failed to create worker pool: %w", err)
	}
	return &PoolDispatcher{pool: pool, processor: processor}, nil
}

// Dispatch 登记任务后立即返回；池满时任务在后台排队等待空闲协程。
func (d *PoolDispatcher) Dispatch(_ context.Context, task GenerationTask) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrDispatcherClosed
	}
	d.wg.Add(1)
	d.mu.Unlock()

	go func() {
		err := d.pool.Submit(func() {
			defer d.wg.Done()
			d.run(task)
		})
		if err != nil {
			d.wg.Done()
			log.Errorf("[PoolDispatcher] 提交任务失败: documentID=%s, err=%v", task.DocumentID, err)
		}
	}()
	return nil
}

func (d *PoolDispatcher) run(task GenerationTask) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("[PoolDispatcher] 任务发生 panic: documentID=%s, panic=%v", task.DocumentID, r)
		}
	}()
	// 任务与触发它的请求无关，使用独立上下文
	if err := d.processor.Process(context.Background(), task); err != nil {
		log.Errorf("[PoolDispatcher] 任务处理失败: documentID=%s, err=%v", task.DocumentID, err)
	}
}

func (d *PoolDispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.pool.Release()
		log.Info("[PoolDispatcher] 所有后台任务已完成")
		return nil
	case <-ctx.Done():
		log.Warnf("[PoolDispatcher] 等待后台任务超时，仍有任务在运行")
		return ctx.Err()
	}
}
