package converter_test

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stackvity/chconv/internal/testutil"
	"github.com/stackvity/chconv/pkg/converter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeItems(n int) []converter.WorkItem {
	items := make([]converter.WorkItem, n)
	for i := range items {
		items[i] = converter.WorkItem{
			SourcePath:      fmt.Sprintf("/in/%03d.txt", i),
			DestinationPath: fmt.Sprintf("/out/%03d.txt", i),
		}
	}
	return items
}

func TestWorkerPool_ExecutesEachItemOnce(t *testing.T) {
	items := makeItems(200)
	var mu sync.Mutex
	seen := map[string]int{}

	pool := converter.NewWorkerPool(8, 0, testutil.DiscardHandler())
	outcomes := pool.Run(items, func(int) converter.TaskFunc {
		return func(item converter.WorkItem) converter.Outcome {
			mu.Lock()
			seen[item.SourcePath]++
			mu.Unlock()
			return converter.Outcome{Item: item, Status: converter.StatusSuccess}
		}
	})

	require.Len(t, outcomes, len(items))
	for i, it := range items {
		assert.Equal(t, 1, seen[it.SourcePath], "item %s", it.SourcePath)
		assert.Equal(t, it, outcomes[i].Item, "outcomes are returned in item order")
	}
}

func TestWorkerPool_FailureDoesNotCancelOthers(t *testing.T) {
	items := makeItems(50)
	pool := converter.NewWorkerPool(4, 0, testutil.DiscardHandler())

	outcomes := pool.Run(items, func(int) converter.TaskFunc {
		return func(item converter.WorkItem) converter.Outcome {
			if item.SourcePath == items[7].SourcePath {
				return converter.Outcome{Item: item, Status: converter.StatusFailed, Err: assert.AnError}
			}
			return converter.Outcome{Item: item, Status: converter.StatusSuccess}
		}
	})

	batch := converter.Aggregate(outcomes)
	assert.Equal(t, 49, batch.Succeeded)
	assert.Equal(t, 1, batch.Failed)
	assert.Equal(t, converter.StatusFailed, batch.Verdict)
}

func TestWorkerPool_PanicBecomesFailedOutcome(t *testing.T) {
	items := makeItems(10)
	pool := converter.NewWorkerPool(3, 0, testutil.DiscardHandler())

	outcomes := pool.Run(items, func(int) converter.TaskFunc {
		return func(item converter.WorkItem) converter.Outcome {
			if item.SourcePath == items[3].SourcePath {
				panic("boom")
			}
			return converter.Outcome{Item: item, Status: converter.StatusSuccess}
		}
	})

	require.Len(t, outcomes, 10)
	assert.Equal(t, converter.StatusFailed, outcomes[3].Status)
	assert.Equal(t, items[3], outcomes[3].Item)
	assert.ErrorIs(t, outcomes[3].Err, converter.ErrWorkerPanic)
	assert.Contains(t, outcomes[3].Message, "boom")
	assert.Equal(t, converter.ErrorKindInternal, converter.ErrorKindOf(outcomes[3].Err))
	for i, o := range outcomes {
		if i != 3 {
			assert.Equal(t, converter.StatusSuccess, o.Status)
		}
	}
}

func TestWorkerPool_FactoryCalledPerWorker(t *testing.T) {
	var built atomic.Int32
	var mu sync.Mutex
	workerIDs := map[int]bool{}

	pool := converter.NewWorkerPool(4, 0, testutil.DiscardHandler())
	pool.Run(makeItems(100), func(workerID int) converter.TaskFunc {
		built.Add(1)
		mu.Lock()
		workerIDs[workerID] = true
		mu.Unlock()
		return func(item converter.WorkItem) converter.Outcome {
			return converter.Outcome{Item: item, Status: converter.StatusSuccess}
		}
	})

	assert.Equal(t, int32(4), built.Load())
	assert.Len(t, workerIDs, 4)
}

func TestWorkerPool_InlineBelowThreshold(t *testing.T) {
	var built atomic.Int32
	pool := converter.NewWorkerPool(8, 5, testutil.DiscardHandler())

	outcomes := pool.Run(makeItems(4), func(workerID int) converter.TaskFunc {
		built.Add(1)
		assert.Equal(t, 0, workerID)
		return func(item converter.WorkItem) converter.Outcome {
			return converter.Outcome{Item: item, Status: converter.StatusSkipped}
		}
	})

	assert.Equal(t, int32(1), built.Load(), "inline mode builds a single task")
	assert.Len(t, outcomes, 4)
}

func TestWorkerPool_NeverMoreWorkersThanItems(t *testing.T) {
	var built atomic.Int32
	pool := converter.NewWorkerPool(16, 0, testutil.DiscardHandler())
	pool.Run(makeItems(3), func(int) converter.TaskFunc {
		built.Add(1)
		return func(item converter.WorkItem) converter.Outcome {
			return converter.Outcome{Item: item, Status: converter.StatusSuccess}
		}
	})
	assert.Equal(t, int32(3), built.Load())
}

func TestWorkerPool_Empty(t *testing.T) {
	pool := converter.NewWorkerPool(0, 0, testutil.DiscardHandler())
	assert.Positive(t, pool.Size(), "0 resolves to the CPU count")
	outcomes := pool.Run(nil, func(int) converter.TaskFunc {
		t.Fatal("factory must not be called for an empty batch")
		return nil
	})
	assert.Empty(t, outcomes)
}
