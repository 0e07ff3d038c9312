// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"context"
	"testing"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/stretchr/testify/require"
)

// fakeWalker returns a fixed, already parents-first commit list regardless
// of the requested range; Driver tests care about orchestration, not
// enumeration, which internal/gitio implements.
type fakeWalker struct{ ids []plumbing.Hash }

func (w fakeWalker) Enumerate(RevRange) ([]plumbing.Hash, error) { return w.ids, nil }

// fakeRefs is an in-memory RefWriter.
type fakeRefs struct {
	branches map[string]plumbing.Hash
}

func newFakeRefs() *fakeRefs { return &fakeRefs{branches: make(map[string]plumbing.Hash)} }

func (r *fakeRefs) ResolveBranch(name string) (plumbing.Hash, bool, error) {
	h, ok := r.branches[name]
	return h, ok, nil
}

func (r *fakeRefs) SetBranch(name string, target plumbing.Hash) error {
	r.branches[name] = target
	return nil
}

func TestDriverRunRewritesBranch(t *testing.T) {
	store := newFakeStore()
	rootTree := hashFor("root")
	store.seedTree(rootTree, []RawEntry{blobEntry("keep.txt")})

	root := &SourceCommit{ID: hashFor("c1"), Message: "root", TreeID: rootTree}
	store.commits[root.ID] = root

	keep, err := NewPatternSet("keep.txt\n", PolarityKeep, fakeHost{})
	require.NoError(t, err)

	refs := newFakeRefs()
	scheduler := NewScheduler(true, 0)
	driver := NewDriver(store, fakeWalker{ids: []plumbing.Hash{root.ID}}, refs, fakeHost{}, scheduler, nil)

	discarded, err := driver.Run(context.Background(), DriverOptions{
		BranchName: "filtered",
		Range:      RevRange{To: root.ID},
		Rewriter:   RewriterOptions{Keep: keep},
	})
	require.NoError(t, err)
	require.Equal(t, 0, discarded)

	image, ok := refs.branches["filtered"]
	require.True(t, ok)
	require.NotEqual(t, plumbing.ZeroHash, image)
}

func TestDriverRunRejectsMissingBranchName(t *testing.T) {
	store := newFakeStore()
	refs := newFakeRefs()
	driver := NewDriver(store, fakeWalker{}, refs, fakeHost{}, NewScheduler(true, 0), nil)

	_, err := driver.Run(context.Background(), DriverOptions{})
	require.ErrorIs(t, err, ErrMissingBranchName)
}

func TestDriverRunRejectsNoFilterConfigured(t *testing.T) {
	store := newFakeStore()
	refs := newFakeRefs()
	driver := NewDriver(store, fakeWalker{}, refs, fakeHost{}, NewScheduler(true, 0), nil)

	_, err := driver.Run(context.Background(), DriverOptions{BranchName: "out"})
	require.ErrorIs(t, err, ErrMissingFilter)
}

func TestDriverRunRejectsExistingBranchWithoutForce(t *testing.T) {
	store := newFakeStore()
	refs := newFakeRefs()
	refs.branches["taken"] = hashFor("existing")
	keep, err := NewPatternSet("*\n", PolarityKeep, fakeHost{})
	require.NoError(t, err)
	driver := NewDriver(store, fakeWalker{}, refs, fakeHost{}, NewScheduler(true, 0), nil)

	_, err = driver.Run(context.Background(), DriverOptions{BranchName: "taken", Rewriter: RewriterOptions{Keep: keep}})
	require.ErrorIs(t, err, ErrBranchExistsNoForce)
}

func TestDriverRunAllowsOverwriteWithForce(t *testing.T) {
	store := newFakeStore()
	rootTree := hashFor("root2")
	store.seedTree(rootTree, []RawEntry{blobEntry("a.txt")})
	root := &SourceCommit{ID: hashFor("c2"), Message: "root2", TreeID: rootTree}
	store.commits[root.ID] = root

	refs := newFakeRefs()
	refs.branches["taken"] = hashFor("existing")
	keep, err := NewPatternSet("a.txt\n", PolarityKeep, fakeHost{})
	require.NoError(t, err)
	driver := NewDriver(store, fakeWalker{ids: []plumbing.Hash{root.ID}}, refs, fakeHost{}, NewScheduler(true, 0), nil)

	_, err = driver.Run(context.Background(), DriverOptions{BranchName: "taken", Force: true, Rewriter: RewriterOptions{Keep: keep}})
	require.NoError(t, err)
	require.NotEqual(t, hashFor("existing"), refs.branches["taken"])
}

func TestDriverRunEveryCommitDiscardedIsAnError(t *testing.T) {
	store := newFakeStore()
	rootTree := hashFor("root3")
	store.seedTree(rootTree, []RawEntry{blobEntry("drop.txt")})
	root := &SourceCommit{ID: hashFor("c3"), Message: "root3", TreeID: rootTree}
	store.commits[root.ID] = root

	keep, err := NewPatternSet("keep.txt\n", PolarityKeep, fakeHost{})
	require.NoError(t, err)
	refs := newFakeRefs()
	driver := NewDriver(store, fakeWalker{ids: []plumbing.Hash{root.ID}}, refs, fakeHost{}, NewScheduler(true, 0), nil)

	_, err = driver.Run(context.Background(), DriverOptions{BranchName: "out", Rewriter: RewriterOptions{Keep: keep}})
	require.Error(t, err)
	require.True(t, IsErrInvalidRevspec(err))
}
