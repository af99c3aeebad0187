package converter

import (
	"fmt"
	"log/slog"
	"runtime"
	"time"

	goerrors "github.com/go-errors/errors"
	"golang.org/x/sync/errgroup"
)

// TaskFunc converts one work item.
type TaskFunc func(item WorkItem) Outcome

// TaskFactory builds the task a worker runs for every item it takes. It is
// invoked once per worker so each can own non-shareable resources.
type TaskFactory func(workerID int) TaskFunc

// WorkerPool runs tasks on a fixed number of goroutines.
type WorkerPool struct {
	size            int
	inlineThreshold int
	logger          *slog.Logger
}

// NewWorkerPool creates a pool. A size of 0 or less means runtime.NumCPU().
func NewWorkerPool(size, inlineThreshold int, loggerHandler slog.Handler) *WorkerPool {
	if size <= 0 {
		size = runtime.NumCPU()
	}
	return &WorkerPool{
		size:            size,
		inlineThreshold: inlineThreshold,
		logger:          slog.New(loggerHandler).With(slog.String("component", "pool")),
	}
}

// Size returns the number of workers the pool starts.
func (p *WorkerPool) Size() int { return p.size }

// Run executes every item exactly once and returns the outcomes in item
// order. It returns after all workers have drained the queue. A panicking
// task fails only its own item.
func (p *WorkerPool) Run(items []WorkItem, factory TaskFactory) []Outcome {
	outcomes := make([]Outcome, len(items))
	if len(items) == 0 {
		return outcomes
	}

	if len(items) < p.inlineThreshold {
		p.logger.Debug("Running batch inline", slog.Int("items", len(items)))
		task := factory(0)
		for i, item := range items {
			outcomes[i] = p.runTask(0, task, item)
		}
		return outcomes
	}

	workers := p.size
	if workers > len(items) {
		workers = len(items)
	}
	p.logger.Debug("Starting worker pool", slog.Int("count", workers), slog.Int("items", len(items)))

	queue := make(chan int, len(items))
	for i := range items {
		queue <- i
	}
	close(queue)

	var g errgroup.Group
	for w := 0; w < workers; w++ {
		workerID := w
		g.Go(func() error {
			task := factory(workerID)
			for i := range queue {
				// Each index is taken by exactly one worker, so the slot write needs no lock.
				outcomes[i] = p.runTask(workerID, task, items[i])
			}
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}

// runTask invokes task and converts a panic into a Failed outcome.
func (p *WorkerPool) runTask(workerID int, task TaskFunc, item WorkItem) (outcome Outcome) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			stacked := goerrors.Wrap(r, 2)
			p.logger.Error("Panic recovered in worker",
				slog.Int("workerID", workerID),
				slog.String("path", item.SourcePath),
				slog.Any("panicValue", r))
			p.logger.Debug("Panic stack trace", slog.String("stack", string(stacked.Stack())))
			outcome = Outcome{
				Item:     item,
				Status:   StatusFailed,
				Message:  fmt.Sprintf("panic: %v", r),
				Err:      fmt.Errorf("%w: %w", ErrWorkerPanic, stacked),
				Duration: time.Since(start),
			}
		}
	}()
	return task(item)
}
