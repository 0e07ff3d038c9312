// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package engine

import "github.com/go-git/go-git/v5/plumbing"

// ParentResolver finds the nearest rewritten ancestor of a source commit
// id by walking the discarded set (spec §4.5). Results are memoised; the
// recursion is bounded by the source DAG's depth and needs no cycle guard
// since commits form a DAG.
type ParentResolver struct {
	commits    *CommitMap
	discarded  *DiscardedSet
	parentsOf  func(id plumbing.Hash) ([]plumbing.Hash, error)
	cache      map[plumbing.Hash]resolved
}

type resolved struct {
	id plumbing.Hash
	ok bool
}

// NewParentResolver builds a resolver backed by commits/discarded and a
// callback that returns a source commit's parent ids (used only when
// recursing through discarded commits).
func NewParentResolver(commits *CommitMap, discarded *DiscardedSet, parentsOf func(plumbing.Hash) ([]plumbing.Hash, error)) *ParentResolver {
	return &ParentResolver{
		commits:   commits,
		discarded: discarded,
		parentsOf: parentsOf,
		cache:     make(map[plumbing.Hash]resolved),
	}
}

// Resolve returns the nearest rewritten ancestor of id, per spec §4.5:
//   - if id was rewritten, return its image;
//   - if id was discarded, recurse into its own parents in order and
//     return the first non-empty result;
//   - otherwise id lies outside the processed range: return id itself.
func (r *ParentResolver) Resolve(id plumbing.Hash) (plumbing.Hash, bool, error) {
	if cached, ok := r.cache[id]; ok {
		return cached.id, cached.ok, nil
	}
	res, ok, err := r.resolve(id)
	if err != nil {
		return plumbing.ZeroHash, false, err
	}
	r.cache[id] = resolved{id: res, ok: ok}
	return res, ok, nil
}

func (r *ParentResolver) resolve(id plumbing.Hash) (plumbing.Hash, bool, error) {
	if image, ok := r.commits.Get(id); ok {
		return image, true, nil
	}
	if !r.discarded.Contains(id) {
		// Outside the processed range: keep the original parent link.
		return id, true, nil
	}
	parents, err := r.parentsOf(id)
	if err != nil {
		return plumbing.ZeroHash, false, err
	}
	for _, p := range parents {
		if res, ok, err := r.Resolve(p); err != nil {
			return plumbing.ZeroHash, false, err
		} else if ok {
			return res, true, nil
		}
	}
	return plumbing.ZeroHash, false, nil
}
