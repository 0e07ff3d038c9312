// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package engine

import "sync"

// EvalOptions carries the knobs EntryEvaluator needs beyond the entry
// itself (spec §4.2).
type EvalOptions struct {
	IncludeLinks bool
}

// EvalOutcome is the effect one entry evaluation has on a commit's working
// set.
type EvalOutcome int

const (
	// OutcomeNoop leaves the working set untouched.
	OutcomeNoop EvalOutcome = iota
	// OutcomeAdmit adds (or keeps) the entry in the working set.
	OutcomeAdmit
	// OutcomeEvict removes the entry from the working set.
	OutcomeEvict
	// OutcomeDiscardCommit means the predicate discarded the whole commit;
	// the caller must stop evaluating this commit entirely.
	OutcomeDiscardCommit
)

// EvalResult is what EvaluateEntry decided. Entry is the original target
// unless a predicate installed a replacement blob, in which case
// ReplacementBlob carries the new bytes and Entry.Mode/Size/IsBinary are
// already updated to match; the caller (TreeBuilder) is responsible for
// writing ReplacementBlob to the object database and filling Entry.Target.
type EvalResult struct {
	Outcome         EvalOutcome
	Entry           TreeEntry
	ReplacementBlob []byte
}

// EvaluateEntry implements spec §4.2: consult patterns.Match, then apply
// the predicate (if any) and polarity rules. repo is the opaque handle
// forwarded to predicates unmodified. mc is the in-flight MutableCommit for
// this commit; if the predicate flips mc.Discard, the caller must abandon
// the whole commit.
func EvaluateEntry(host PredicateHost, repo RepoHandle, mc *MutableCommit, mu *sync.Mutex, patterns *PatternSet, polarity Polarity, opts EvalOptions, entry TreeEntry) (EvalResult, error) {
	rule, matched := patterns.Match(entry.Path)
	if !matched {
		if patterns.Empty() && polarity == PolarityKeep {
			if entry.Mode == ModeSubmodule && !opts.IncludeLinks {
				return EvalResult{Outcome: OutcomeNoop}, nil
			}
			return EvalResult{Outcome: OutcomeAdmit, Entry: entry}, nil
		}
		return EvalResult{Outcome: OutcomeNoop}, nil
	}

	if rule.Predicate == nil {
		if polarity == PolarityKeep {
			return EvalResult{Outcome: OutcomeAdmit, Entry: entry}, nil
		}
		return EvalResult{Outcome: OutcomeEvict, Entry: entry}, nil
	}

	me := NewMutableEntry(entry, polarity == PolarityRemove)
	pctx := &PredicateContext{
		Repo:    repo,
		Pattern: rule.Glob,
		Commit:  mc,
		Entry:   me,
		Mu:      mu,
	}
	if err := host.Invoke(rule.Predicate, pctx); err != nil {
		return EvalResult{}, NewErrPredicateRuntime(mc.ID, err.Error())
	}
	mu.Lock()
	discarded := mc.Discard
	mu.Unlock()
	if discarded {
		return EvalResult{Outcome: OutcomeDiscardCommit}, nil
	}

	out := entry
	var replacement []byte
	if me.Replacement != nil {
		out.Mode = me.Replacement.Mode
		out.Size = int64(len(me.Replacement.Blob))
		out.IsBinary = isBinary(me.Replacement.Blob)
		replacement = me.Replacement.Blob
	}

	// The default per spec §4.2: me.Discard left equal to the polarity's
	// default means the predicate reaffirmed it, so the plain polarity
	// action applies; any other value means the predicate flipped the
	// decision, so the opposite action applies.
	reaffirmedDefault := me.Discard == (polarity == PolarityRemove)
	admit := (polarity == PolarityKeep) == reaffirmedDefault
	if admit {
		return EvalResult{Outcome: OutcomeAdmit, Entry: out, ReplacementBlob: replacement}, nil
	}
	return EvalResult{Outcome: OutcomeEvict, Entry: out, ReplacementBlob: replacement}, nil
}

func isBinary(b []byte) bool {
	for _, c := range b {
		if c == 0 {
			return true
		}
	}
	return false
}
