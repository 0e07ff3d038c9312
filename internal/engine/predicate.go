// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package engine

import "sync"

// PredicateHost compiles and invokes user-supplied predicate scripts. The
// engine depends only on this interface (Design Notes §9): it never knows
// whether scripts are backed by an embedded expression evaluator, a
// bytecode VM, or a JIT-compiled DSL.
type PredicateHost interface {
	// Compile turns script text into an opaque, reusable handle. Compile
	// failures must be reported as *ErrPredicateCompilation.
	Compile(source string) (CompiledPredicate, error)
	// Invoke runs a previously compiled predicate against pctx, mutating
	// pctx.Commit and/or pctx.Entry in place. Runtime failures are returned
	// as plain errors; the engine wraps them in *ErrPredicateRuntime with
	// the source commit id.
	Invoke(handle CompiledPredicate, pctx *PredicateContext) error
}

// CompiledPredicate is an opaque, host-specific compiled script handle.
type CompiledPredicate interface {
	// Source returns the original script text, used for diagnostics.
	Source() string
}

// RepoHandle is the opaque repository reference predicates may read from
// (spec §6's "repo"). The engine never inspects it; hosts and the
// gitio package agree on its concrete type.
type RepoHandle any

// PredicateContext is the environment a predicate observes when invoked
// (spec §6). Pattern and Entry are populated only for tree predicates;
// commit predicates leave them zero.
type PredicateContext struct {
	Repo    RepoHandle
	Pattern string
	Commit  *MutableCommit
	Entry   *MutableEntry
	// Mu guards concurrent writes to Commit's fields from parallel entry
	// evaluations within the same commit (spec §5: an entry predicate may
	// set commit.discard, and many entries of one commit can be evaluated
	// concurrently). Always non-nil.
	Mu *sync.Mutex
}
