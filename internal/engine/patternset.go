// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"strings"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/git-lfs/wildmatch"
)

// pureRule is a parsed gitignore-style glob with no attached predicate.
// Pure rules are aggregated into one combined matcher; gitignore's own
// negation precedence applies among them (last matching rule wins, a `!`
// prefix un-ignores).
type pureRule struct {
	raw      string
	negated  bool
	matcher  *wildmatch.Wildmatch
	index    int
}

// PatternSet is a parsed list of path-pattern rules (spec §4.1), built from
// one text block (a keep-pattern block or a remove-pattern block). Matches
// are memoised in a path->result cache safe for concurrent readers, backed
// by ristretto so memory stays bounded on repositories with very large
// trees.
type PatternSet struct {
	scripted        []*PatternRule
	scriptedMatcher []*wildmatch.Wildmatch
	pure            []*pureRule
	origin          Polarity
	empty           bool
	cache           *ristretto.Cache[string, *PatternRule]
}

// MatchedRule is returned by PatternSet.Match.
type MatchedRule = PatternRule

func newCache() *ristretto.Cache[string, *PatternRule] {
	c, err := ristretto.NewCache(&ristretto.Config[string, *PatternRule]{
		NumCounters: 1e6,
		MaxCost:     1 << 20,
		BufferItems: 64,
	})
	if err != nil {
		// ristretto only fails on invalid configuration; the config
		// above is static and always valid.
		panic(err)
	}
	return c
}

// NewPatternSet parses text, one rule per logical line. Blank lines and
// '#'-prefixed lines (leading whitespace tolerated) are ignored. A rule is
// either a pure gitignore pattern, `<glob> => <expr>`, or
// `<glob> {% ... %}` spanning subsequent lines until a closing `%}`.
func NewPatternSet(text string, origin Polarity, host PredicateHost) (*PatternSet, error) {
	ps := &PatternSet{origin: origin, cache: newCache()}
	lines := strings.Split(text, "\n")
	index := 0
	for i := 0; i < len(lines); i++ {
		line := lines[i]
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(strings.TrimLeft(line, " \t"), "#") {
			continue
		}

		if glob, tail, ok := strings.Cut(trimmed, "=>"); ok {
			if err := ps.addScripted(strings.TrimSpace(glob), strings.TrimSpace(tail), index, host); err != nil {
				return nil, err
			}
			index++
			continue
		}

		if glob, rest, ok := strings.Cut(trimmed, "{%"); ok {
			glob = strings.TrimSpace(glob)
			body, consumed, err := readMultilineBody(rest, lines[i+1:])
			if err != nil {
				return nil, err
			}
			i += consumed
			if err := ps.addScripted(glob, body, index, host); err != nil {
				return nil, err
			}
			index++
			continue
		}

		ps.addPure(trimmed, index)
		index++
	}
	ps.empty = index == 0
	return ps, nil
}

func readMultilineBody(firstTail string, rest []string) (string, int, error) {
	var b strings.Builder
	if body, ok := strings.CutSuffix(firstTail, "%}"); ok {
		b.WriteString(strings.TrimSpace(body))
		return b.String(), 0, nil
	}
	b.WriteString(firstTail)
	for i, line := range rest {
		if body, ok := strings.CutSuffix(line, "%}"); ok {
			b.WriteString("\n")
			b.WriteString(body)
			return b.String(), i + 1, nil
		}
		b.WriteString("\n")
		b.WriteString(line)
	}
	return "", 0, NewErrPatternParse("unterminated multiline body")
}

func (ps *PatternSet) addScripted(glob, script string, index int, host PredicateHost) error {
	handle, err := host.Compile(script)
	if err != nil {
		return err
	}
	ps.scripted = append(ps.scripted, &PatternRule{
		Glob:      glob,
		Predicate: handle,
		Origin:    ps.origin,
		Index:     index,
	})
	ps.scriptedMatcher = append(ps.scriptedMatcher, wildmatch.NewWildmatch(glob, wildmatch.Basename, wildmatch.Contents))
	return nil
}

func (ps *PatternSet) addPure(raw string, index int) {
	negated := strings.HasPrefix(raw, "!")
	pattern := raw
	if negated {
		pattern = raw[1:]
	}
	ps.pure = append(ps.pure, &pureRule{
		raw:     raw,
		negated: negated,
		matcher: wildmatch.NewWildmatch(pattern, wildmatch.Basename, wildmatch.Contents),
		index:   index,
	})
}

// Empty reports whether this PatternSet has no rules at all.
func (ps *PatternSet) Empty() bool {
	return ps.empty
}

// Match computes the matched rule for path, per spec §4.1: scripted rules
// are tried first in input order (first match wins); otherwise the
// combined gitignore matcher is consulted, applying its own negation
// precedence. Results are memoised.
func (ps *PatternSet) Match(path string) (*PatternRule, bool) {
	if cached, ok := ps.cache.Get(path); ok {
		if cached == nil {
			return nil, false
		}
		return cached, true
	}

	for i, r := range ps.scripted {
		if ps.scriptedMatcher[i].Match(path) {
			ps.cache.Set(path, r, 1)
			return r, true
		}
	}

	var last *pureRule
	ignored := false
	for _, r := range ps.pure {
		if r.matcher.Match(path) {
			ignored = !r.negated
			last = r
		}
	}
	if !ignored || last == nil {
		ps.cache.Set(path, nil, 1)
		return nil, false
	}
	synthetic := &PatternRule{Glob: last.raw, Origin: ps.origin, Index: last.index}
	ps.cache.Set(path, synthetic, 1)
	return synthetic, true
}
