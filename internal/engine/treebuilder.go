// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"context"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/go-git/go-git/v5/plumbing"
)

// BuildOptions configures one TreeBuilder.Build call.
type BuildOptions struct {
	Keep         *PatternSet
	Remove       *PatternSet
	IncludeLinks bool
}

// BuildResult is what TreeBuilder.Build produced.
type BuildResult struct {
	Tree      plumbing.Hash
	Empty     bool
	Discarded bool
}

// workingSet is the concurrent-safe collection of admitted leaves TreeBuilder
// assembles while evaluating one commit (spec §5). Leaves are deduplicated
// by path rather than by an explicit identity token: within one tree walk a
// path names exactly one leaf, so path equality already gives the identity
// semantics Design Notes §9 asks for ("the decision must be attributable to
// the latest visit").
type workingSet struct {
	mu      sync.Mutex
	entries map[string]TreeEntry
}

func newWorkingSet() *workingSet {
	return &workingSet{entries: make(map[string]TreeEntry)}
}

func (w *workingSet) admit(e TreeEntry) {
	w.mu.Lock()
	w.entries[e.Path] = e
	w.mu.Unlock()
}

func (w *workingSet) evict(path string) {
	w.mu.Lock()
	delete(w.entries, path)
	w.mu.Unlock()
}

func (w *workingSet) snapshot() []TreeEntry {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]TreeEntry, 0, len(w.entries))
	for _, e := range w.entries {
		out = append(out, e)
	}
	return out
}

// TreeBuilder walks a source tree depth-first, dispatches per-leaf
// evaluation tasks onto a Scheduler, and materialises a new tree object
// from whatever survives the keep- then remove-phase (spec §4.3).
type TreeBuilder struct {
	store     ObjectStore
	host      PredicateHost
	scheduler *Scheduler
}

func NewTreeBuilder(store ObjectStore, host PredicateHost, scheduler *Scheduler) *TreeBuilder {
	return &TreeBuilder{store: store, host: host, scheduler: scheduler}
}

// Build walks root (a tree id), evaluates every leaf against opts.Keep then
// opts.Remove, and writes a new tree object for whatever is admitted.
func (b *TreeBuilder) Build(ctx context.Context, repo RepoHandle, mc *MutableCommit, mu *sync.Mutex, root plumbing.Hash, opts BuildOptions) (BuildResult, error) {
	leaves, err := b.walk(root, "")
	if err != nil {
		return BuildResult{}, err
	}

	ws := newWorkingSet()
	evalOpts := EvalOptions{IncludeLinks: opts.IncludeLinks}

	if discarded, err := b.runPhase(ctx, repo, mc, mu, leaves, ws, opts.Keep, PolarityKeep, evalOpts); err != nil || discarded {
		return BuildResult{Discarded: discarded}, err
	}

	survivors := ws.snapshot()
	if discarded, err := b.runPhase(ctx, repo, mc, mu, survivors, ws, opts.Remove, PolarityRemove, evalOpts); err != nil || discarded {
		return BuildResult{Discarded: discarded}, err
	}

	final := ws.snapshot()
	if len(final) == 0 {
		return BuildResult{Empty: true}, nil
	}

	treeID, err := b.materialise(final)
	if err != nil {
		return BuildResult{}, err
	}
	return BuildResult{Tree: treeID}, nil
}

// runPhase evaluates entries against one PatternSet/polarity pair,
// admitting/evicting into ws, stopping early (after the barrier) if any
// task discarded the commit.
func (b *TreeBuilder) runPhase(ctx context.Context, repo RepoHandle, mc *MutableCommit, mu *sync.Mutex, entries []TreeEntry, ws *workingSet, patterns *PatternSet, polarity Polarity, evalOpts EvalOptions) (bool, error) {
	if patterns == nil {
		// No keep rules configured: every blob (and submodule link when
		// IncludeLinks is set) is admitted, as for an empty keep set.
		if polarity == PolarityKeep {
			for _, e := range entries {
				if e.Mode == ModeSubmodule && !evalOpts.IncludeLinks {
					continue
				}
				ws.admit(e)
			}
		}
		return false, nil
	}
	var discarded sync.Map // single key "x"; only used as a one-shot flag
	tasks := make([]func(context.Context) error, 0, len(entries))
	for _, e := range entries {
		e := e
		tasks = append(tasks, func(ctx context.Context) error {
			res, err := EvaluateEntry(b.host, repo, mc, mu, patterns, polarity, evalOpts, e)
			if err != nil {
				return err
			}
			switch res.Outcome {
			case OutcomeAdmit:
				if res.ReplacementBlob != nil {
					id, err := b.store.WriteBlob(res.ReplacementBlob)
					if err != nil {
						return err
					}
					res.Entry.Target = id
				}
				ws.admit(res.Entry)
			case OutcomeEvict:
				ws.evict(e.Path)
			case OutcomeDiscardCommit:
				discarded.Store("x", struct{}{})
			}
			return nil
		})
	}
	if err := b.scheduler.Run(ctx, tasks); err != nil {
		return false, err
	}
	_, wasDiscarded := discarded.Load("x")
	return wasDiscarded, nil
}

// walk performs the depth-first, sequential traversal of root, returning
// every blob/submodule leaf with its full slash-separated path.
func (b *TreeBuilder) walk(root plumbing.Hash, prefix string) ([]TreeEntry, error) {
	children, err := b.store.ReadTree(root)
	if err != nil {
		return nil, err
	}
	var out []TreeEntry
	for _, c := range children {
		p := c.Name
		if prefix != "" {
			p = path.Join(prefix, c.Name)
		}
		if c.Mode == ModeTree {
			sub, err := b.walk(c.Target, p)
			if err != nil {
				return nil, err
			}
			out = append(out, sub...)
			continue
		}
		out = append(out, TreeEntry{
			Path:     p,
			Name:     c.Name,
			Mode:     c.Mode,
			Target:   c.Target,
			Size:     c.Size,
			IsBinary: c.IsBinary,
		})
	}
	return out, nil
}

// materialise builds the nested tree structure from a flat path->entry map
// and writes it bottom-up through the object store.
func (b *TreeBuilder) materialise(entries []TreeEntry) (plumbing.Hash, error) {
	type dirNode struct {
		files map[string]TreeEntry
		dirs  map[string]*dirNode
	}
	newDir := func() *dirNode { return &dirNode{files: map[string]TreeEntry{}, dirs: map[string]*dirNode{}} }
	root := newDir()

	for _, e := range entries {
		parts := strings.Split(e.Path, "/")
		cur := root
		for _, d := range parts[:len(parts)-1] {
			next, ok := cur.dirs[d]
			if !ok {
				next = newDir()
				cur.dirs[d] = next
			}
			cur = next
		}
		cur.files[parts[len(parts)-1]] = e
	}

	var writeDir func(n *dirNode) (plumbing.Hash, error)
	writeDir = func(n *dirNode) (plumbing.Hash, error) {
		defs := make([]TreeDef, 0, len(n.files)+len(n.dirs))
		for name, e := range n.files {
			defs = append(defs, TreeDef{Name: name, Mode: e.Mode, Target: e.Target})
		}
		for name, sub := range n.dirs {
			id, err := writeDir(sub)
			if err != nil {
				return plumbing.ZeroHash, err
			}
			defs = append(defs, TreeDef{Name: name, Mode: ModeTree, Target: id})
		}
		sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
		return b.store.WriteTree(defs)
	}
	return writeDir(root)
}
