// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// discardEntryHost flips entry.discard for every invocation, regardless of
// script text, so tests can exercise the "predicate flips the decision"
// branch of EvaluateEntry without a real expression language.
type discardEntryHost struct{ flip bool }

func (h discardEntryHost) Compile(source string) (CompiledPredicate, error) {
	return fakePredicate{source: source}, nil
}

func (h discardEntryHost) Invoke(handle CompiledPredicate, pctx *PredicateContext) error {
	if h.flip && pctx.Entry != nil {
		pctx.Mu.Lock()
		pctx.Entry.Discard = !pctx.Entry.Discard
		pctx.Mu.Unlock()
	}
	return nil
}

func TestEvaluateEntryKeepPolarityNoRuleMatch(t *testing.T) {
	ps, err := NewPatternSet("*.go\n", PolarityKeep, fakeHost{})
	require.NoError(t, err)
	mc := NewMutableCommit(&SourceCommit{})
	mu := &sync.Mutex{}

	res, err := EvaluateEntry(fakeHost{}, nil, mc, mu, ps, PolarityKeep, EvalOptions{}, TreeEntry{Path: "README.md"})
	require.NoError(t, err)
	require.Equal(t, OutcomeNoop, res.Outcome)
}

func TestEvaluateEntryKeepPolarityPureMatchAdmits(t *testing.T) {
	ps, err := NewPatternSet("*.go\n", PolarityKeep, fakeHost{})
	require.NoError(t, err)
	mc := NewMutableCommit(&SourceCommit{})
	mu := &sync.Mutex{}

	res, err := EvaluateEntry(fakeHost{}, nil, mc, mu, ps, PolarityKeep, EvalOptions{}, TreeEntry{Path: "main.go"})
	require.NoError(t, err)
	require.Equal(t, OutcomeAdmit, res.Outcome)
}

func TestEvaluateEntryRemovePolarityPureMatchEvicts(t *testing.T) {
	ps, err := NewPatternSet("*.log\n", PolarityRemove, fakeHost{})
	require.NoError(t, err)
	mc := NewMutableCommit(&SourceCommit{})
	mu := &sync.Mutex{}

	res, err := EvaluateEntry(fakeHost{}, nil, mc, mu, ps, PolarityRemove, EvalOptions{}, TreeEntry{Path: "debug.log"})
	require.NoError(t, err)
	require.Equal(t, OutcomeEvict, res.Outcome)
}

func TestEvaluateEntryScriptedRuleCanFlipDecision(t *testing.T) {
	host := discardEntryHost{flip: true}
	ps, err := NewPatternSet("*.bin => entry.discard = true\n", PolarityKeep, host)
	require.NoError(t, err)
	mc := NewMutableCommit(&SourceCommit{})
	mu := &sync.Mutex{}

	// Keep polarity defaults entry.discard to false; the fake host flips it
	// to true, so the entry must be evicted despite keep polarity.
	res, err := EvaluateEntry(host, nil, mc, mu, ps, PolarityKeep, EvalOptions{}, TreeEntry{Path: "a.bin"})
	require.NoError(t, err)
	require.Equal(t, OutcomeEvict, res.Outcome)
}

func TestEvaluateEntryCommitDiscardStopsEvaluation(t *testing.T) {
	host := commitDiscardHost{}
	ps, err := NewPatternSet("* => commit.discard = true\n", PolarityKeep, host)
	require.NoError(t, err)
	mc := NewMutableCommit(&SourceCommit{})
	mu := &sync.Mutex{}

	res, err := EvaluateEntry(host, nil, mc, mu, ps, PolarityKeep, EvalOptions{}, TreeEntry{Path: "any"})
	require.NoError(t, err)
	require.Equal(t, OutcomeDiscardCommit, res.Outcome)
}

type commitDiscardHost struct{}

func (commitDiscardHost) Compile(source string) (CompiledPredicate, error) {
	return fakePredicate{source: source}, nil
}

func (commitDiscardHost) Invoke(handle CompiledPredicate, pctx *PredicateContext) error {
	pctx.Mu.Lock()
	pctx.Commit.Discard = true
	pctx.Mu.Unlock()
	return nil
}

func TestEvaluateEntrySubmoduleExcludedWhenLinksNotIncluded(t *testing.T) {
	ps, err := NewPatternSet("", PolarityKeep, fakeHost{})
	require.NoError(t, err)
	require.True(t, ps.Empty())
	mc := NewMutableCommit(&SourceCommit{})
	mu := &sync.Mutex{}

	res, err := EvaluateEntry(fakeHost{}, nil, mc, mu, ps, PolarityKeep, EvalOptions{IncludeLinks: false}, TreeEntry{Path: "sub", Mode: ModeSubmodule})
	require.NoError(t, err)
	require.Equal(t, OutcomeNoop, res.Outcome)
}
