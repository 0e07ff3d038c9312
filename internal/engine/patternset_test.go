// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeHost compiles every script to a no-op predicate; these tests exercise
// PatternSet's parsing/matching, not script evaluation.
type fakeHost struct{}

func (fakeHost) Compile(source string) (CompiledPredicate, error) {
	return fakePredicate{source: source}, nil
}

func (fakeHost) Invoke(CompiledPredicate, *PredicateContext) error { return nil }

type fakePredicate struct{ source string }

func (p fakePredicate) Source() string { return p.source }

func TestPatternSetPureGlobMatch(t *testing.T) {
	ps, err := NewPatternSet("*.go\nvendor/\n", PolarityRemove, fakeHost{})
	require.NoError(t, err)
	require.False(t, ps.Empty())

	rule, ok := ps.Match("main.go")
	require.True(t, ok)
	require.Equal(t, PolarityRemove, rule.Origin)

	_, ok = ps.Match("README.md")
	require.False(t, ok)

	rule, ok = ps.Match("vendor/foo/bar.go")
	require.True(t, ok)
	require.Equal(t, PolarityRemove, rule.Origin)
}

func TestPatternSetNegationLastMatchWins(t *testing.T) {
	ps, err := NewPatternSet("*.log\n!keep.log\n", PolarityRemove, fakeHost{})
	require.NoError(t, err)

	_, matched := ps.Match("keep.log")
	require.False(t, matched, "negated rule should un-ignore keep.log")

	_, matched = ps.Match("debug.log")
	require.True(t, matched)
}

func TestPatternSetScriptedRuleTakesPriority(t *testing.T) {
	ps, err := NewPatternSet("secrets/ => entry.discard = true\nsecrets/\n", PolarityRemove, fakeHost{})
	require.NoError(t, err)

	rule, ok := ps.Match("secrets/key.pem")
	require.True(t, ok)
	require.NotNil(t, rule.Predicate, "the scripted rule (first in file) must win over the pure rule")
}

func TestPatternSetMultilineScriptBody(t *testing.T) {
	src := "big.bin {%\nentry.discard = true;\nentry.mode = \"regular\"\n%}\n"
	ps, err := NewPatternSet(src, PolarityKeep, fakeHost{})
	require.NoError(t, err)
	rule, ok := ps.Match("big.bin")
	require.True(t, ok)
	require.NotNil(t, rule.Predicate)
}

func TestPatternSetUnterminatedMultilineIsError(t *testing.T) {
	_, err := NewPatternSet("big.bin {%\nentry.discard = true\n", PolarityKeep, fakeHost{})
	require.Error(t, err)
	require.True(t, IsErrPatternParse(err))
}

func TestPatternSetEmptyBlock(t *testing.T) {
	ps, err := NewPatternSet("# just a comment\n\n", PolarityKeep, fakeHost{})
	require.NoError(t, err)
	require.True(t, ps.Empty())
}

func TestPatternSetMatchIsMemoised(t *testing.T) {
	ps, err := NewPatternSet("*.tmp\n", PolarityRemove, fakeHost{})
	require.NoError(t, err)

	rule1, ok1 := ps.Match("a/b/c.tmp")
	rule2, ok2 := ps.Match("a/b/c.tmp")
	require.True(t, ok1)
	require.Equal(t, ok1, ok2)
	require.Equal(t, rule1.Glob, rule2.Glob)
	require.Equal(t, rule1.Origin, rule2.Origin)
}
