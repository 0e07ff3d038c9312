// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package gitio

import (
	"io"

	"github.com/emirpasic/gods/trees/binaryheap"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/hashbranch/gfr/internal/engine"
)

// Walker enumerates a RevRange in reverse-topological (parents-first) order
// by adapting the teacher's topological commit iterator: that iterator
// yields children before parents (standard "git log" order), so Enumerate
// collects its full output and reverses it.
type Walker struct {
	repo *Repository
}

func NewWalker(repo *Repository) *Walker {
	return &Walker{repo: repo}
}

// Enumerate implements engine.HistoryWalker.
func (w *Walker) Enumerate(rng engine.RevRange) ([]plumbing.Hash, error) {
	to, err := w.repo.repo.CommitObject(rng.To)
	if err != nil {
		return nil, err
	}

	var seenExternal map[plumbing.Hash]bool
	if rng.From != plumbing.ZeroHash {
		from, err := w.repo.repo.CommitObject(rng.From)
		if err != nil {
			return nil, err
		}
		seenExternal, err = ancestorsOf(from)
		if err != nil {
			return nil, err
		}
		seenExternal[from.Hash] = true
	}

	it := newTopoOrderIter(to, seenExternal)
	var childrenFirst []plumbing.Hash
	for {
		c, err := it.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		childrenFirst = append(childrenFirst, c.Hash)
	}

	parentsFirst := make([]plumbing.Hash, len(childrenFirst))
	for i, h := range childrenFirst {
		parentsFirst[len(childrenFirst)-1-i] = h
	}
	return parentsFirst, nil
}

// ancestorsOf walks every commit reachable from start, used to exclude the
// "from" side of a from..to range.
func ancestorsOf(start *object.Commit) (map[plumbing.Hash]bool, error) {
	seen := map[plumbing.Hash]bool{}
	stack := []*object.Commit{start}
	for len(stack) > 0 {
		c := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[c.Hash] {
			continue
		}
		seen[c.Hash] = true
		err := c.Parents().ForEach(func(p *object.Commit) error {
			if !seen[p.Hash] {
				stack = append(stack, p)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return seen, nil
}

// commitHeap orders commits newest-first by committer time, mirroring
// modules/zeta/object/commit_walker_topo_order.go's explorer heap.
type commitHeap struct {
	*binaryheap.Heap
}

func newCommitHeap() *commitHeap {
	return &commitHeap{Heap: binaryheap.NewWith(func(a, b any) int {
		return b.(*object.Commit).Committer.When.Compare(a.(*object.Commit).Committer.When)
	})}
}

func (h *commitHeap) push(c *object.Commit) { h.Heap.Push(c) }
func (h *commitHeap) pop() (*object.Commit, bool) {
	v, ok := h.Heap.Pop()
	if !ok {
		return nil, false
	}
	return v.(*object.Commit), true
}
func (h *commitHeap) peek() (*object.Commit, bool) {
	v, ok := h.Heap.Peek()
	if !ok {
		return nil, false
	}
	return v.(*object.Commit), true
}
func (h *commitHeap) size() int { return h.Heap.Size() }

// topoOrderIter is modules/zeta/object/commit_walker_topo_order.go ported
// onto go-git's object.Commit, dropping the ctx plumbing that type didn't
// need (go-git's CommitObject lookups take none).
type topoOrderIter struct {
	explorer *commitHeap
	visit    []*object.Commit
	inCounts map[plumbing.Hash]int
	seen     map[plumbing.Hash]bool
}

func newTopoOrderIter(start *object.Commit, seenExternal map[plumbing.Hash]bool) *topoOrderIter {
	seen := map[plumbing.Hash]bool{}
	for h := range seenExternal {
		seen[h] = true
	}
	heap := newCommitHeap()
	var visit []*object.Commit
	if !seen[start.Hash] {
		heap.push(start)
		visit = append(visit, start)
	}
	return &topoOrderIter{
		explorer: heap,
		visit:    visit,
		inCounts: map[plumbing.Hash]int{},
		seen:     seen,
	}
}

func (w *topoOrderIter) popVisit() (*object.Commit, bool) {
	if len(w.visit) == 0 {
		return nil, false
	}
	c := w.visit[len(w.visit)-1]
	w.visit = w.visit[:len(w.visit)-1]
	return c, true
}

func (w *topoOrderIter) Next() (*object.Commit, error) {
	var next *object.Commit
	for {
		c, ok := w.popVisit()
		if !ok {
			return nil, io.EOF
		}
		if w.inCounts[c.Hash] == 0 {
			next = c
			break
		}
	}

	parents := make([]*object.Commit, len(next.ParentHashes))
	for i := range next.ParentHashes {
		pc, err := next.Parent(i)
		if err == plumbing.ErrObjectNotFound {
			parents[i] = nil
			continue
		}
		if err != nil {
			return nil, err
		}
		parents[i] = pc
	}

	for {
		toExplore, ok := w.explorer.peek()
		if !ok {
			break
		}
		if toExplore.Hash != next.Hash && w.explorer.size() == 1 {
			break
		}
		w.explorer.pop()
		for i, h := range toExplore.ParentHashes {
			if w.seen[h] {
				continue
			}
			w.inCounts[h]++
			if w.inCounts[h] == 1 {
				pc, err := toExplore.Parent(i)
				if err == plumbing.ErrObjectNotFound {
					continue
				}
				if err != nil {
					return nil, err
				}
				w.explorer.push(pc)
			}
		}
	}

	for i, h := range next.ParentHashes {
		if w.seen[h] {
			continue
		}
		w.inCounts[h]--
		if w.inCounts[h] == 0 {
			if pc := parents[i]; pc != nil {
				w.visit = append(w.visit, pc)
			}
		}
	}
	delete(w.inCounts, next.Hash)

	return next, nil
}
