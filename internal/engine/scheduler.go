// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Scheduler is the parallel-task facility used by TreeBuilder and
// EntryEvaluator (spec §5). Serial mode is a runtime switch
// (--disable-threads): every scheduled unit then runs synchronously on the
// caller's goroutine, which is also what a single-task batch always does
// regardless of mode.
type Scheduler struct {
	serial bool
	limit  int
}

// NewScheduler builds a Scheduler. limit <= 0 means unlimited concurrency
// (bounded only by len(tasks) in any one Run call).
func NewScheduler(serial bool, limit int) *Scheduler {
	return &Scheduler{serial: serial, limit: limit}
}

// Run executes tasks and blocks until every one has completed: the
// synchronisation barrier spec §5 requires at the end of the keep-phase
// and again after the remove-phase. The first error from any task aborts
// the run; other in-flight tasks are allowed to finish (they may already
// have written objects to the database, which the database owns).
func (s *Scheduler) Run(ctx context.Context, tasks []func(ctx context.Context) error) error {
	if len(tasks) == 0 {
		return nil
	}
	if s.serial || len(tasks) == 1 {
		for _, t := range tasks {
			if err := t(ctx); err != nil {
				return err
			}
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	if s.limit > 0 {
		g.SetLimit(s.limit)
	}
	for _, t := range tasks {
		g.Go(func() error { return t(gctx) })
	}
	return g.Wait()
}
