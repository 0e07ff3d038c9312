// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"
)

// Sentinel errors for the configuration failures of spec §7 that carry no
// extra data.
var (
	ErrInvalidRepository  = errors.New("invalid repository")
	ErrMissingBranchName  = errors.New("missing branch name")
	ErrBranchExistsNoForce = errors.New("branch exists and --force was not given")
	ErrMissingFilter      = errors.New("no commit or tree filter configured")
)

// ErrInvalidRevspec reports a revspec that failed to parse, or that named
// an unsupported form (merge-base specs are rejected).
type ErrInvalidRevspec struct {
	Detail string
}

func (e *ErrInvalidRevspec) Error() string {
	return fmt.Sprintf("invalid revspec: %s", e.Detail)
}

func NewErrInvalidRevspec(detail string) error {
	return &ErrInvalidRevspec{Detail: detail}
}

func IsErrInvalidRevspec(err error) bool {
	var e *ErrInvalidRevspec
	return errors.As(err, &e)
}

// ErrPatternParse reports a malformed PatternSet source block.
type ErrPatternParse struct {
	Reason string
}

func (e *ErrPatternParse) Error() string {
	return fmt.Sprintf("pattern parse error: %s", e.Reason)
}

func NewErrPatternParse(reason string) error {
	return &ErrPatternParse{Reason: reason}
}

func IsErrPatternParse(err error) bool {
	var e *ErrPatternParse
	return errors.As(err, &e)
}

// ErrPredicateCompilation reports a user script that failed to compile.
// Diagnostics holds the compiler's message; Details renders it followed by
// an indented dump of the script source.
type ErrPredicateCompilation struct {
	Source      string
	Diagnostics string
}

func (e *ErrPredicateCompilation) Error() string {
	return fmt.Sprintf("predicate failed to compile: %s", e.Diagnostics)
}

func (e *ErrPredicateCompilation) Details() string {
	var b strings.Builder
	b.WriteString(e.Diagnostics)
	b.WriteString("\n")
	for _, line := range strings.Split(e.Source, "\n") {
		b.WriteString("    ")
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

func NewErrPredicateCompilation(source, diagnostics string) error {
	return &ErrPredicateCompilation{Source: source, Diagnostics: diagnostics}
}

func IsErrPredicateCompilation(err error) bool {
	var e *ErrPredicateCompilation
	return errors.As(err, &e)
}

// ErrPredicateRuntime reports a user script that raised during evaluation.
type ErrPredicateRuntime struct {
	SourceCommitID plumbing.Hash
	Message        string
}

func (e *ErrPredicateRuntime) Error() string {
	return fmt.Sprintf("predicate failed on commit %s: %s", e.SourceCommitID, e.Message)
}

func NewErrPredicateRuntime(id plumbing.Hash, message string) error {
	return &ErrPredicateRuntime{SourceCommitID: id, Message: message}
}

func IsErrPredicateRuntime(err error) bool {
	var e *ErrPredicateRuntime
	return errors.As(err, &e)
}
