// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

// Package gitio adapts the engine's storage-facing interfaces
// (engine.ObjectStore, engine.HistoryWalker, engine.RefWriter) onto
// go-git/go-git/v5, the way antgroup-hugescm's own modules/zeta/object
// package wraps its (forked-from-go-git) object database.
package gitio

import (
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/hashbranch/gfr/internal/engine"
)

// Repository opens and validates a source repository, and is the opaque
// engine.RepoHandle predicates carry around.
type Repository struct {
	repo *git.Repository
	path string
}

// Open validates that path names a git repository (spec §7's
// InvalidRepository failure mode). DetectDotGit walks up from path to find
// the enclosing repository, so --repo-dir's default of "." works from any
// subdirectory of a checkout.
func Open(path string) (*Repository, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, engine.ErrInvalidRepository
	}
	return &Repository{repo: repo, path: path}, nil
}

// Resolve turns a revspec fragment ("HEAD", a branch name, a short or full
// hash) into a commit hash, for use with engine.ParseRevRange.
func (r *Repository) Resolve(rev string) (plumbing.Hash, error) {
	h, err := r.repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return plumbing.ZeroHash, err
	}
	return *h, nil
}

// ResolveBranch implements engine.RefWriter.
func (r *Repository) ResolveBranch(name string) (plumbing.Hash, bool, error) {
	ref, err := r.repo.Reference(plumbing.NewBranchReferenceName(name), true)
	if err == plumbing.ErrReferenceNotFound {
		return plumbing.ZeroHash, false, nil
	}
	if err != nil {
		return plumbing.ZeroHash, false, err
	}
	return ref.Hash(), true, nil
}

// SetBranch implements engine.RefWriter: it always deletes the existing ref
// first, matching spec §4.7 ("deleting the old ref first if force was
// given") since ResolveBranch has already enforced the --force guard.
func (r *Repository) SetBranch(name string, target plumbing.Hash) error {
	refName := plumbing.NewBranchReferenceName(name)
	_ = r.repo.Storer.RemoveReference(refName)
	return r.repo.Storer.SetReference(plumbing.NewHashReference(refName, target))
}

// Walker builds the engine.HistoryWalker for this repository.
func (r *Repository) Walker() *Walker { return NewWalker(r) }

// Store builds the engine.ObjectStore for this repository.
func (r *Repository) Store() *Store { return NewStore(r) }
