// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"context"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/sirupsen/logrus"
)

// HistoryWalker enumerates the commits a Driver run must process, in
// reverse-topological (parents-first) order (spec §4.6). The concrete
// implementation lives in internal/gitio, adapted from the teacher's
// topological commit walker.
type HistoryWalker interface {
	Enumerate(rng RevRange) ([]plumbing.Hash, error)
}

// RefWriter is the narrow surface Driver needs to land the rewritten branch
// (spec §4.7).
type RefWriter interface {
	ResolveBranch(name string) (plumbing.Hash, bool, error)
	SetBranch(name string, target plumbing.Hash) error
}

// DriverOptions is everything a Driver run needs beyond the already-built
// collaborators (spec §6's CLI surface, fully resolved).
type DriverOptions struct {
	BranchName string
	Force      bool
	Range      RevRange
	Rewriter   RewriterOptions
}

// Driver is the top-level orchestrator (spec §4.7): validates inputs, walks
// history, drives CommitRewriter over every commit, and lands the result on
// a branch ref.
type Driver struct {
	store     ObjectStore
	walker    HistoryWalker
	refs      RefWriter
	host      PredicateHost
	scheduler *Scheduler
	log       *logrus.Entry
}

// NewDriver wires a Driver around its collaborators. log may be nil, in
// which case a disabled logger is used.
func NewDriver(store ObjectStore, walker HistoryWalker, refs RefWriter, host PredicateHost, scheduler *Scheduler, log *logrus.Entry) *Driver {
	if log == nil {
		l := logrus.New()
		l.SetLevel(logrus.PanicLevel)
		log = logrus.NewEntry(l)
	}
	return &Driver{store: store, walker: walker, refs: refs, host: host, scheduler: scheduler, log: log}
}

// Run validates opts, processes every commit in opts.Range, and moves
// opts.BranchName to point at the final image. It returns the number of
// source commits discarded along the way for the caller to report.
func (d *Driver) Run(ctx context.Context, opts DriverOptions) (discardedCount int, err error) {
	if opts.BranchName == "" {
		return 0, ErrMissingBranchName
	}
	if opts.Rewriter.CommitPredicate == nil && opts.Rewriter.Keep == nil && opts.Rewriter.Remove == nil {
		return 0, ErrMissingFilter
	}
	if _, exists, err := d.refs.ResolveBranch(opts.BranchName); err != nil {
		return 0, err
	} else if exists && !opts.Force {
		return 0, ErrBranchExistsNoForce
	}

	ids, err := d.walker.Enumerate(opts.Range)
	if err != nil {
		return 0, err
	}
	d.log.Infof("processing %d commits", len(ids))

	rewriter := NewCommitRewriter(d.store, d.host, d.scheduler, d.store, opts.Rewriter, func(id plumbing.Hash) ([]plumbing.Hash, error) {
		c, err := d.store.ReadCommit(id)
		if err != nil {
			return nil, err
		}
		return c.Parents, nil
	})

	var lastImage plumbing.Hash
	haveImage := false
	for _, id := range ids {
		s, err := d.store.ReadCommit(id)
		if err != nil {
			d.log.Debugf("reading commit %s: %v", id, err)
			return discardedCount, err
		}
		outcome, err := rewriter.Process(ctx, s)
		if err != nil {
			d.log.Debugf("processing commit %s (tree build/materialise): %v", id, err)
			return discardedCount, err
		}
		if outcome.Discarded {
			discardedCount++
			continue
		}
		lastImage = outcome.Image
		haveImage = true
	}

	if !haveImage {
		return discardedCount, NewErrInvalidRevspec("every commit in range was discarded; nothing to point the branch at")
	}
	d.log.Infof("updating refs/heads/%s -> %s", opts.BranchName, lastImage)
	return discardedCount, d.refs.SetBranch(opts.BranchName, lastImage)
}
