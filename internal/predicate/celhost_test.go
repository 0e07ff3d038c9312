// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package predicate

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hashbranch/gfr/internal/engine"
)

func newTestPredicateContext(entry *engine.MutableEntry) (*engine.MutableCommit, *engine.PredicateContext) {
	mc := &engine.MutableCommit{Message: "original message"}
	return mc, &engine.PredicateContext{
		Commit:  mc,
		Entry:   entry,
		Pattern: "*.txt",
		Mu:      &sync.Mutex{},
	}
}

func TestCompileRejectsEmptyScript(t *testing.T) {
	h, err := NewHost()
	require.NoError(t, err)
	_, err = h.Compile("   ")
	require.Error(t, err)
	require.True(t, engine.IsErrPredicateCompilation(err))
}

func TestCompileRejectsMalformedStatement(t *testing.T) {
	h, err := NewHost()
	require.NoError(t, err)
	_, err = h.Compile("commit.message")
	require.Error(t, err)
	require.True(t, engine.IsErrPredicateCompilation(err))
}

func TestCompileRejectsUnknownTarget(t *testing.T) {
	h, err := NewHost()
	require.NoError(t, err)
	_, err = h.Compile(`tree.message = "x"`)
	require.Error(t, err)
}

func TestInvokeSetsCommitMessage(t *testing.T) {
	h, err := NewHost()
	require.NoError(t, err)
	pred, err := h.Compile(`commit.message = "rewritten"`)
	require.NoError(t, err)

	mc, pctx := newTestPredicateContext(nil)
	require.NoError(t, h.Invoke(pred, pctx))
	require.Equal(t, "rewritten", mc.Message)
}

func TestInvokeAppendOperatorConcatenates(t *testing.T) {
	h, err := NewHost()
	require.NoError(t, err)
	pred, err := h.Compile(`commit.message += "!"`)
	require.NoError(t, err)

	mc, pctx := newTestPredicateContext(nil)
	require.NoError(t, h.Invoke(pred, pctx))
	require.Equal(t, "original message!", mc.Message)
}

func TestInvokeMultipleStatementsRunInOrder(t *testing.T) {
	h, err := NewHost()
	require.NoError(t, err)
	pred, err := h.Compile(`commit.message = "one"; commit.message += "-two"`)
	require.NoError(t, err)

	mc, pctx := newTestPredicateContext(nil)
	require.NoError(t, h.Invoke(pred, pctx))
	require.Equal(t, "one-two", mc.Message)
}

func TestInvokeCommitDiscardUsingPatternVariable(t *testing.T) {
	h, err := NewHost()
	require.NoError(t, err)
	pred, err := h.Compile(`commit.discard = pattern == "*.txt"`)
	require.NoError(t, err)

	mc, pctx := newTestPredicateContext(nil)
	require.NoError(t, h.Invoke(pred, pctx))
	require.True(t, mc.Discard)
}

func TestInvokeEntryDiscardBasedOnSize(t *testing.T) {
	h, err := NewHost()
	require.NoError(t, err)
	pred, err := h.Compile(`entry.discard = entry.size > 100`)
	require.NoError(t, err)

	entry := &engine.MutableEntry{Entry: engine.TreeEntry{Path: "big.bin", Size: 500}}
	_, pctx := newTestPredicateContext(entry)
	require.NoError(t, h.Invoke(pred, pctx))
	require.True(t, entry.Discard)
}

func TestInvokeEntryReplacementInstallsBlob(t *testing.T) {
	h, err := NewHost()
	require.NoError(t, err)
	pred, err := h.Compile(`entry.replacement = "scrubbed"`)
	require.NoError(t, err)

	entry := &engine.MutableEntry{Entry: engine.TreeEntry{Path: "secret.txt", Mode: engine.ModeRegular}}
	_, pctx := newTestPredicateContext(entry)
	require.NoError(t, h.Invoke(pred, pctx))
	require.Equal(t, []byte("scrubbed"), entry.Replacement.Blob)
	require.Equal(t, engine.ModeRegular, entry.Replacement.Mode)
}

func TestInvokeEntryModeChange(t *testing.T) {
	h, err := NewHost()
	require.NoError(t, err)
	pred, err := h.Compile(`entry.mode = "executable"`)
	require.NoError(t, err)

	entry := &engine.MutableEntry{Entry: engine.TreeEntry{Path: "run.sh", Mode: engine.ModeRegular}}
	_, pctx := newTestPredicateContext(entry)
	require.NoError(t, h.Invoke(pred, pctx))
	require.Equal(t, engine.ModeExecutable, entry.Replacement.Mode)
}

func TestInvokeWrongTypeIsRuntimeError(t *testing.T) {
	h, err := NewHost()
	require.NoError(t, err)
	pred, err := h.Compile(`commit.discard = commit.message`)
	require.NoError(t, err)

	_, pctx := newTestPredicateContext(nil)
	err = h.Invoke(pred, pctx)
	require.Error(t, err)
}
