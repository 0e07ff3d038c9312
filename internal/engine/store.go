// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package engine

import "github.com/go-git/go-git/v5/plumbing"

// RawEntry is one direct child of a tree, as read from the object
// database (spec §1: on-disk git object creation is an external
// collaborator; ObjectStore is the interface the core rewrite engine
// uses to reach it).
type RawEntry struct {
	Name     string
	Mode     EntryMode
	Target   plumbing.Hash
	Size     int64
	IsBinary bool
}

// TreeDef is a fully-resolved directory used to materialise a new tree
// object: one entry per direct child, already written to the object
// database.
type TreeDef struct {
	Name   string
	Mode   EntryMode
	Target plumbing.Hash
}

// ObjectStore is the subset of git object-database access the engine
// needs. The concrete implementation (internal/gitio) wraps go-git.
type ObjectStore interface {
	// ReadCommit loads a commit's metadata.
	ReadCommit(id plumbing.Hash) (*SourceCommit, error)
	// ReadTree returns the direct children of a tree object.
	ReadTree(id plumbing.Hash) ([]RawEntry, error)
	// WriteBlob stores data as a new blob and returns its id.
	WriteBlob(data []byte) (plumbing.Hash, error)
	// WriteTree stores a directory definition as a new tree object.
	WriteTree(entries []TreeDef) (plumbing.Hash, error)
	// WriteCommit stores a new commit object with the given tree and
	// parents, using mc's author/committer/message.
	WriteCommit(mc *MutableCommit, tree plumbing.Hash, parents []plumbing.Hash) (plumbing.Hash, error)
}
