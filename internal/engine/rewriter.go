// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"context"
	"sync"

	"github.com/go-git/go-git/v5/plumbing"
)

// RewriterOptions configures a CommitRewriter for one Driver run (spec
// §4.4/§6's CLI surface, minus everything the Driver already resolved).
type RewriterOptions struct {
	CommitPredicate      CompiledPredicate // nil if no --commit-filter given
	Keep                 *PatternSet       // nil if no keep rules configured
	Remove               *PatternSet       // nil if no remove rules configured
	IncludeLinks         bool
	Detach               bool
	PreserveMergeCommits bool
}

// CommitRewriter is the central state machine of spec §4.4.
type CommitRewriter struct {
	store     ObjectStore
	host      PredicateHost
	builder   *TreeBuilder
	resolver  *ParentResolver
	commits   *CommitMap
	discarded *DiscardedSet
	repo      RepoHandle
	opts      RewriterOptions

	treeFilterConfigured bool
}

// NewCommitRewriter wires a rewriter around a freshly created CommitMap and
// DiscardedSet; parentsOf must return a source commit's parent ids (used by
// ParentResolver when walking through discarded commits).
func NewCommitRewriter(store ObjectStore, host PredicateHost, scheduler *Scheduler, repo RepoHandle, opts RewriterOptions, parentsOf func(plumbing.Hash) ([]plumbing.Hash, error)) *CommitRewriter {
	commits := NewCommitMap()
	discarded := NewDiscardedSet()
	return &CommitRewriter{
		store:                store,
		host:                 host,
		builder:              NewTreeBuilder(store, host, scheduler),
		resolver:             NewParentResolver(commits, discarded, parentsOf),
		commits:              commits,
		discarded:            discarded,
		repo:                 repo,
		opts:                 opts,
		treeFilterConfigured: opts.Keep != nil || opts.Remove != nil,
	}
}

func (r *CommitRewriter) CommitMap() *CommitMap       { return r.commits }
func (r *CommitRewriter) DiscardedSet() *DiscardedSet { return r.discarded }

// ProcessOutcome reports what happened to one source commit.
type ProcessOutcome struct {
	Discarded bool
	Image     plumbing.Hash // valid iff !Discarded
}

// Process implements spec §4.4 for a single source commit. Commits must be
// passed in reverse-topological (parents-first) order; CommitMap must
// already hold images for every parent that was itself processed.
func (r *CommitRewriter) Process(ctx context.Context, s *SourceCommit) (ProcessOutcome, error) {
	mc := NewMutableCommit(s)
	mu := &sync.Mutex{}

	if r.opts.CommitPredicate != nil {
		pctx := &PredicateContext{Repo: r.repo, Commit: mc, Mu: mu}
		if err := r.host.Invoke(r.opts.CommitPredicate, pctx); err != nil {
			return ProcessOutcome{}, NewErrPredicateRuntime(s.ID, err.Error())
		}
		if mc.Discard {
			r.discarded.Add(s.ID)
			return ProcessOutcome{Discarded: true}, nil
		}
	}

	newTree := s.TreeID
	if r.treeFilterConfigured {
		res, err := r.builder.Build(ctx, r.repo, mc, mu, s.TreeID, BuildOptions{
			Keep:         r.opts.Keep,
			Remove:       r.opts.Remove,
			IncludeLinks: r.opts.IncludeLinks,
		})
		if err != nil {
			return ProcessOutcome{}, err
		}
		if res.Discarded || res.Empty {
			r.discarded.Add(s.ID)
			return ProcessOutcome{Discarded: true}, nil
		}
		newTree = res.Tree
	}

	newParents := make([]plumbing.Hash, 0, len(s.Parents))
	unchanged := make([]bool, 0, len(s.Parents))
	var pruneCandidate plumbing.Hash
	havePruneCandidate := false
	anyUnchanged := false
	for _, p := range s.Parents {
		resolvedParent, ok, err := r.resolver.Resolve(p)
		if err != nil {
			return ProcessOutcome{}, err
		}
		if !ok {
			// Spec §4.4 step 3: a parent resolving to nothing (every
			// ancestor back to the root of its chain was discarded) is
			// simply dropped from the new-parents sequence, not an error.
			continue
		}
		wasUnchanged := resolvedParent == p
		anyUnchanged = anyUnchanged || wasUnchanged
		newParents = append(newParents, resolvedParent)
		unchanged = append(unchanged, wasUnchanged)
		if !havePruneCandidate {
			if parentTree, err := r.treeOf(resolvedParent); err == nil && parentTree == newTree {
				pruneCandidate = resolvedParent
				havePruneCandidate = true
			}
		}
	}

	if havePruneCandidate && !(r.opts.PreserveMergeCommits && len(newParents) == 2) {
		r.commits.Set(s.ID, pruneCandidate)
		r.discarded.Add(s.ID)
		return ProcessOutcome{Image: pruneCandidate}, nil
	}

	if r.opts.Detach && anyUnchanged {
		filtered := newParents[:0:0]
		for i, p := range newParents {
			if unchanged[i] {
				continue
			}
			filtered = append(filtered, p)
		}
		newParents = filtered
	}

	image, err := r.store.WriteCommit(mc, newTree, newParents)
	if err != nil {
		return ProcessOutcome{}, err
	}
	r.commits.Set(s.ID, image)
	return ProcessOutcome{Image: image}, nil
}

// treeOf returns the tree id of an already-known commit: either one this
// run rewrote (look it up through the store, since CommitMap only records
// ids) or a source commit that lies outside the range.
func (r *CommitRewriter) treeOf(id plumbing.Hash) (plumbing.Hash, error) {
	c, err := r.store.ReadCommit(id)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	return c.TreeID, nil
}
