package mapping

import (
	"context"
	"sync"

	"github.com/Gobusters/ectologger"
)

// execution is the per-call scratch state of Executor.Execute.
type execution struct {
	ctx      context.Context
	executor *Executor
	values   []any
}

// executionPool provides object pooling for execution state to reduce
// allocations on hot paths.
var executionPool = sync.Pool{
	New: func() any {
		return &execution{
			values: make([]any, 0, 8),
		}
	},
}

func acquireExecution(ctx context.Context, e *Executor) *execution {
	x := executionPool.Get().(*execution)
	x.ctx = ctx
	x.executor = e
	return x
}

func releaseExecution(x *execution) {
	if x == nil {
		return
	}
	x.Reset()
	executionPool.Put(x)
}

// Reset clears the execution state for reuse.
func (x *execution) Reset() {
	x.ctx = nil
	x.executor = nil

	// keep the slice capacity, drop references
	for i := range x.values {
		x.values[i] = nil
	}
	x.values = x.values[:0]
}

func (x *execution) logger() ectologger.Logger {
	if x.ctx == nil {
		return x.executor.logger
	}
	return x.executor.logger.WithContext(x.ctx)
}
