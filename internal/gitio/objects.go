// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package gitio

import (
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/hashbranch/gfr/internal/engine"
)

// Store implements engine.ObjectStore over one Repository's object
// database, following the encode/SetEncodedObject pattern used throughout
// the go-git ecosystem for writing new objects (commit, tree, and blob
// alike).
type Store struct {
	repo *Repository
}

func NewStore(repo *Repository) *Store { return &Store{repo: repo} }

func (s *Store) ReadCommit(id plumbing.Hash) (*engine.SourceCommit, error) {
	c, err := s.repo.repo.CommitObject(id)
	if err != nil {
		return nil, err
	}
	return &engine.SourceCommit{
		ID: c.Hash,
		Author: engine.Signature{
			Name:  c.Author.Name,
			Email: c.Author.Email,
			When:  c.Author.When,
		},
		Committer: engine.Signature{
			Name:  c.Committer.Name,
			Email: c.Committer.Email,
			When:  c.Committer.When,
		},
		Message: c.Message,
		TreeID:  c.TreeHash,
		Parents: append([]plumbing.Hash(nil), c.ParentHashes...),
	}, nil
}

func (s *Store) ReadTree(id plumbing.Hash) ([]engine.RawEntry, error) {
	t, err := s.repo.repo.TreeObject(id)
	if err != nil {
		return nil, err
	}
	out := make([]engine.RawEntry, 0, len(t.Entries))
	for _, e := range t.Entries {
		mode := modeFromFilemode(e.Mode)
		var size int64
		var isBinary bool
		switch mode {
		case engine.ModeTree, engine.ModeSubmodule:
			// Tree-equality pruning and size predicates never need a size
			// for these: TreeBuilder recurses into trees and never admits
			// them directly, and submodule links carry no blob (spec §9
			// open question: a reimplementation must pick a sentinel —
			// this one reports size 0, matching the source's behaviour).
		default:
			blob, err := s.repo.repo.BlobObject(e.Hash)
			if err != nil {
				return nil, err
			}
			size = blob.Size
			isBinary, err = blobIsBinary(blob)
			if err != nil {
				return nil, err
			}
		}
		out = append(out, engine.RawEntry{
			Name:     e.Name,
			Mode:     mode,
			Target:   e.Hash,
			Size:     size,
			IsBinary: isBinary,
		})
	}
	return out, nil
}

func (s *Store) WriteBlob(data []byte) (plumbing.Hash, error) {
	obj := s.repo.repo.Storer.NewEncodedObject()
	obj.SetType(plumbing.BlobObject)
	w, err := obj.Writer()
	if err != nil {
		return plumbing.ZeroHash, err
	}
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return plumbing.ZeroHash, err
	}
	if err := w.Close(); err != nil {
		return plumbing.ZeroHash, err
	}
	return s.repo.repo.Storer.SetEncodedObject(obj)
}

func (s *Store) WriteTree(entries []engine.TreeDef) (plumbing.Hash, error) {
	t := &object.Tree{Entries: make([]object.TreeEntry, 0, len(entries))}
	for _, e := range entries {
		t.Entries = append(t.Entries, object.TreeEntry{
			Name: e.Name,
			Mode: e.Mode.FileMode(),
			Hash: e.Target,
		})
	}
	obj := s.repo.repo.Storer.NewEncodedObject()
	if err := t.Encode(obj); err != nil {
		return plumbing.ZeroHash, err
	}
	return s.repo.repo.Storer.SetEncodedObject(obj)
}

func (s *Store) WriteCommit(mc *engine.MutableCommit, tree plumbing.Hash, parents []plumbing.Hash) (plumbing.Hash, error) {
	c := &object.Commit{
		Author: object.Signature{
			Name:  mc.Author.Name,
			Email: mc.Author.Email,
			When:  mc.Author.When,
		},
		Committer: object.Signature{
			Name:  mc.Committer.Name,
			Email: mc.Committer.Email,
			When:  mc.Committer.When,
		},
		Message:      mc.Message,
		TreeHash:     tree,
		ParentHashes: parents,
	}
	obj := s.repo.repo.Storer.NewEncodedObject()
	if err := c.Encode(obj); err != nil {
		return plumbing.ZeroHash, err
	}
	return s.repo.repo.Storer.SetEncodedObject(obj)
}

func modeFromFilemode(m filemode.FileMode) engine.EntryMode {
	switch m {
	case filemode.Executable:
		return engine.ModeExecutable
	case filemode.Symlink:
		return engine.ModeSymlink
	case filemode.Submodule:
		return engine.ModeSubmodule
	case filemode.Dir:
		return engine.ModeTree
	default:
		return engine.ModeRegular
	}
}

func blobIsBinary(b *object.Blob) (bool, error) {
	r, err := b.Reader()
	if err != nil {
		return false, err
	}
	defer r.Close()
	buf := make([]byte, 8000)
	n, err := r.Read(buf)
	if err != nil && n == 0 {
		return false, nil
	}
	for _, c := range buf[:n] {
		if c == 0 {
			return true, nil
		}
	}
	return false, nil
}
