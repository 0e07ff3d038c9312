// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"time"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
)

// EntryMode classifies a TreeEntry the way spec §3 names them, independent
// of go-git's on-disk filemode encoding.
type EntryMode int

const (
	ModeRegular EntryMode = iota
	ModeExecutable
	ModeSymlink
	ModeSubmodule
	ModeTree
)

// FileMode converts back to go-git's on-disk encoding, for the gitio
// adapter to use when materialising tree objects.
func (m EntryMode) FileMode() filemode.FileMode {
	switch m {
	case ModeExecutable:
		return filemode.Executable
	case ModeSymlink:
		return filemode.Symlink
	case ModeSubmodule:
		return filemode.Submodule
	case ModeTree:
		return filemode.Dir
	default:
		return filemode.Regular
	}
}

// Signature mirrors the author/committer pair carried by a commit.
type Signature struct {
	Name  string
	Email string
	When  time.Time
}

// SourceCommit is a read-only handle to a commit in the input repository
// (spec §3). It is created once per processed id and never mutated.
type SourceCommit struct {
	ID        plumbing.Hash
	Author    Signature
	Committer Signature
	Message   string
	TreeID    plumbing.Hash
	Parents   []plumbing.Hash
}

// MutableCommit is the working copy handed to the commit predicate. Every
// field but ID/Parents is writable; Discard and Tag default to their zero
// values.
type MutableCommit struct {
	ID        plumbing.Hash
	Author    Signature
	Committer Signature
	Message   string
	Parents   []plumbing.Hash

	Discard bool
	Tag     any
}

// NewMutableCommit builds the working copy the predicate observes.
func NewMutableCommit(s *SourceCommit) *MutableCommit {
	return &MutableCommit{
		ID:        s.ID,
		Author:    s.Author,
		Committer: s.Committer,
		Message:   s.Message,
		Parents:   append([]plumbing.Hash(nil), s.Parents...),
	}
}

// TreeEntry is a leaf or subtree encountered while walking a source tree
// (spec §3).
type TreeEntry struct {
	Path     string
	Name     string
	Mode     EntryMode
	Target   plumbing.Hash
	Size     int64
	IsBinary bool
}

// Replacement is the new content a predicate may install in place of an
// entry's original target.
type Replacement struct {
	Blob []byte
	Mode EntryMode
}

// MutableEntry is the working copy presented to a per-entry predicate.
type MutableEntry struct {
	Entry       TreeEntry
	Discard     bool
	Replacement *Replacement
}

// NewMutableEntry builds the working copy for entry evaluation. discard is
// the caller-supplied default: false for keep polarity, true for remove.
func NewMutableEntry(e TreeEntry, discard bool) *MutableEntry {
	return &MutableEntry{Entry: e, Discard: discard}
}

// Polarity names which pattern block produced a match.
type Polarity int

const (
	PolarityKeep Polarity = iota
	PolarityRemove
)

// PatternRule is one parsed rule of a PatternSet (spec §3/§4.1).
type PatternRule struct {
	Glob      string
	Predicate CompiledPredicate
	Origin    Polarity
	Index     int
}

// CommitMap is the monotonic source-id -> rewritten-id mapping (spec §3).
// Entries are never removed once written.
type CommitMap struct {
	m map[plumbing.Hash]plumbing.Hash
}

func NewCommitMap() *CommitMap {
	return &CommitMap{m: make(map[plumbing.Hash]plumbing.Hash)}
}

func (c *CommitMap) Set(source, rewritten plumbing.Hash) {
	c.m[source] = rewritten
}

func (c *CommitMap) Get(source plumbing.Hash) (plumbing.Hash, bool) {
	r, ok := c.m[source]
	return r, ok
}

func (c *CommitMap) Len() int {
	return len(c.m)
}

// DiscardedSet is the set of source commit ids dropped by the commit
// filter, the tree filter, or tree-equality pruning.
type DiscardedSet struct {
	m map[plumbing.Hash]bool
}

func NewDiscardedSet() *DiscardedSet {
	return &DiscardedSet{m: make(map[plumbing.Hash]bool)}
}

func (d *DiscardedSet) Add(id plumbing.Hash) {
	d.m[id] = true
}

func (d *DiscardedSet) Contains(id plumbing.Hash) bool {
	return d.m[id]
}
