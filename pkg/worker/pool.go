package worker

import (
	"errors"
	"os"
	"strconv"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

var ErrPoolClosed = errors.New("worker pool is closed")

// Task is a unit of CPU-bound work executed on a pool worker.
type Task func() (interface{}, error)

type IPool interface {
	Submit(ctx context.Context, task Task) (interface{}, error)
	Size() int
	Shutdown()
}

type taskResult struct {
	value interface{}
	err   error
}

type submission struct {
	task Task
	done chan taskResult
}

type pool struct {
	queue chan submission
	quit  chan struct{}
	log   *logrus.Logger
	size  int
}

// New builds a pool with a fixed worker count read from POOL_SIZE.
// Workers pull from a task queue; queue depth equals the worker count so
// callers block in Submit rather than piling up unbounded work.
func New(logger *logrus.Logger) IPool {
	size := 2
	if v := os.Getenv("POOL_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			size = n
		}
	}

	return NewWithSize(logger, size)
}

func NewWithSize(logger *logrus.Logger, size int) IPool {
	if size < 1 {
		size = 1
	}

	p := &pool{
		queue: make(chan submission, size),
		quit:  make(chan struct{}),
		log:   logger,
		size:  size,
	}

	for i := 0; i < size; i++ {
		go p.worker(i)
	}

	return p
}

func (p *pool) worker(id int) {
	for {
		select {
		case <-p.quit:
			return
		case sub := <-p.queue:
			value, err := sub.task()
			sub.done <- taskResult{value: value, err: err}
		}
	}
}

// Submit queues the task and waits for its result. The caller's goroutine
// suspends; request dispatch stays free to serve other traffic. When ctx
// expires before the task finishes, Submit returns ctx.Err() and the worker
// slot frees itself once the underlying task returns.
func (p *pool) Submit(ctx context.Context, task Task) (interface{}, error) {
	select {
	case <-p.quit:
		return nil, ErrPoolClosed
	default:
	}

	sub := submission{
		task: task,
		done: make(chan taskResult, 1),
	}

	select {
	case <-p.quit:
		return nil, ErrPoolClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	case p.queue <- sub:
	}

	select {
	case <-ctx.Done():
		if p.log != nil {
			p.log.Warnf("abandoning in-flight task: %v", ctx.Err())
		}
		return nil, ctx.Err()
	case <-p.quit:
		// Workers exit on quit, so a submission still sitting in the
		// queue would otherwise never be picked up.
		return nil, ErrPoolClosed
	case res := <-sub.done:
		return res.value, res.err
	}
}

func (p *pool) Size() int {
	return p.size
}

func (p *pool) Shutdown() {
	close(p.quit)
}
