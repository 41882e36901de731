package compiler

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/chazu/vibecad/pkg/backend"
	"github.com/chazu/vibecad/pkg/dfile"
	"github.com/chazu/vibecad/pkg/engine"
)

// execute runs the engine in its own goroutine and waits for it, bounded by
// the run timeout. A panic that escapes the engine becomes a status error
// report. On timeout the goroutine may still be running; it sees the
// cancelled context before its next feature and its report is discarded.
func (c *Compiler) execute(ctx context.Context, rec *dfile.Record, b backend.Backend) *engine.Report {
	ctx, cancel := context.WithTimeout(ctx, c.runTimeout)
	defer cancel()

	mode := b.Mode()
	ch := make(chan *engine.Report, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				c.log.Error("panic during execution", zap.Any("panic", r))
				ch <- engine.Failed(mode, fmt.Sprintf("panic during execution: %v", r))
			}
		}()
		ch <- c.engine.Execute(ctx, rec, b)
	}()

	select {
	case rep := <-ch:
		return rep
	case <-ctx.Done():
		if ctx.Err() == context.DeadlineExceeded {
			return engine.Failed(mode, fmt.Sprintf("execution timed out after %s", c.runTimeout))
		}
		return engine.Failed(mode, fmt.Sprintf("execution cancelled: %v", ctx.Err()))
	}
}
