package workerpool

import (
	"context"
	"log/slog"
	"sync"
)

// Task 投递任务
type Task func()

// Pool 投递工作池
// 订阅端把每次本地投递封装成 Task 提交到池中执行，
// 避免单个慢连接拖慢同一订阅上的其他事件
type Pool struct {
	workers   int
	taskQueue chan Task
	wg        sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
	logger    *slog.Logger

	closeOnce sync.Once
}

// New 创建投递工作池并立即启动 workers
func New(workers int, queueSize int) *Pool {
	ctx, cancel := context.WithCancel(context.Background())

	pool := &Pool{
		workers:   workers,
		taskQueue: make(chan Task, queueSize),
		ctx:       ctx,
		cancel:    cancel,
		logger:    slog.Default(),
	}

	for i := 0; i < workers; i++ {
		pool.wg.Add(1)
		go pool.worker(i)
	}

	pool.logger.Info("Delivery pool started",
		"workers", workers,
		"queue_size", queueSize)

	return pool
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for task := range p.taskQueue {
		// 执行任务，捕获 panic，单个任务崩溃不影响池
		func() {
			defer func() {
				if r := recover(); r != nil {
					p.logger.Error("Delivery task panic recovered",
						"worker_id", id,
						"panic", r)
				}
			}()
			task()
		}()
	}
}

// Submit 提交任务，队列满时阻塞直到有空位或池已关闭
func (p *Pool) Submit(task Task) bool {
	if p.ctx.Err() != nil {
		return false
	}
	select {
	case <-p.ctx.Done():
		return false
	case p.taskQueue <- task:
		return true
	}
}

// TrySubmit 提交任务，队列满时立即返回 false
// 订阅端使用该方法实现满载丢弃
func (p *Pool) TrySubmit(task Task) bool {
	if p.ctx.Err() != nil {
		return false
	}
	select {
	case <-p.ctx.Done():
		return false
	case p.taskQueue <- task:
		return true
	default:
		return false
	}
}

// QueueDepth 当前排队任务数
func (p *Pool) QueueDepth() int {
	return len(p.taskQueue)
}

// Shutdown 优雅关闭：停止接收新任务，等待已排队任务执行完成
func (p *Pool) Shutdown() {
	p.closeOnce.Do(func() {
		p.cancel()
		close(p.taskQueue)
	})
	p.wg.Wait()
	p.logger.Info("Delivery pool shutdown completed")
}
