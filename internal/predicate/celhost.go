// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

// Package predicate implements engine.PredicateHost on top of CEL (Common
// Expression Language): a small statement grammar wraps cel-go so commit-
// and tree-filter scripts stay close to the gitfilterbranch vocabulary
// (`commit.message = ...`, `entry.discard = ...`) while every right-hand
// side is a real, sandboxed CEL expression.
package predicate

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types/ref"

	"github.com/hashbranch/gfr/internal/engine"
)

var stmtPattern = regexp.MustCompile(`^([A-Za-z_][\w]*)\.([A-Za-z_][\w]*)\s*(\+=|=)\s*(.+)$`)

// statement is one parsed `target.field op expr` assignment.
type statement struct {
	target string // "commit" or "entry"
	field  string
	append bool // true for "+="
	prg    cel.Program
	source string
}

// Predicate is the CompiledPredicate handle this host hands back.
type Predicate struct {
	source     string
	statements []statement
}

func (p *Predicate) Source() string { return p.source }

// Host is a PredicateHost backed by cel-go. One Host may compile and invoke
// any number of scripts; it holds no per-script state.
type Host struct {
	commitEnv *cel.Env
	entryEnv  *cel.Env
}

// NewHost builds the two CEL environments predicate scripts run against:
// one exposing commit/pattern/repo, the other exposing commit/entry/pattern/repo.
// Both are built once and reused for every Compile call.
func NewHost() (*Host, error) {
	commitEnv, err := cel.NewEnv(
		cel.Variable("commit", cel.DynType),
		cel.Variable("pattern", cel.StringType),
		cel.Variable("repo", cel.DynType),
	)
	if err != nil {
		return nil, fmt.Errorf("building commit CEL environment: %w", err)
	}
	entryEnv, err := cel.NewEnv(
		cel.Variable("commit", cel.DynType),
		cel.Variable("entry", cel.DynType),
		cel.Variable("pattern", cel.StringType),
		cel.Variable("repo", cel.DynType),
	)
	if err != nil {
		return nil, fmt.Errorf("building entry CEL environment: %w", err)
	}
	return &Host{commitEnv: commitEnv, entryEnv: entryEnv}, nil
}

// Compile parses source into `;`-separated statements, each of the form
// `target.field = expr` or `target.field += expr`, and compiles every
// right-hand side as a CEL program against the environment its target
// implies ("commit" scripts never see `entry`; "entry" scripts see both).
func (h *Host) Compile(source string) (engine.CompiledPredicate, error) {
	p := &Predicate{source: source}
	for _, raw := range strings.Split(source, ";") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		m := stmtPattern.FindStringSubmatch(line)
		if m == nil {
			return nil, engine.NewErrPredicateCompilation(source, fmt.Sprintf("not a valid assignment statement: %q", line))
		}
		target, field, op, expr := m[1], m[2], m[3], m[4]
		if target != "commit" && target != "entry" {
			return nil, engine.NewErrPredicateCompilation(source, fmt.Sprintf("unknown assignment target %q (want commit or entry)", target))
		}

		env := h.commitEnv
		if target == "entry" {
			env = h.entryEnv
		}
		ast, issues := env.Compile(expr)
		if issues != nil && issues.Err() != nil {
			return nil, engine.NewErrPredicateCompilation(source, issues.Err().Error())
		}
		prg, err := env.Program(ast)
		if err != nil {
			return nil, engine.NewErrPredicateCompilation(source, err.Error())
		}
		p.statements = append(p.statements, statement{
			target: target,
			field:  field,
			append: op == "+=",
			prg:    prg,
			source: expr,
		})
	}
	if len(p.statements) == 0 {
		return nil, engine.NewErrPredicateCompilation(source, "script contains no statements")
	}
	return p, nil
}

// Invoke runs every statement of handle in order against pctx, applying
// each result to pctx.Commit or pctx.Entry through the typed setter tables
// below. Statements run sequentially so a later one can observe an earlier
// one's effect (e.g. `commit.message = commit.message + "\n"`).
func (h *Host) Invoke(handle engine.CompiledPredicate, pctx *engine.PredicateContext) error {
	p, ok := handle.(*Predicate)
	if !ok {
		return fmt.Errorf("predicate: foreign CompiledPredicate %T", handle)
	}
	for _, st := range p.statements {
		activation := h.activationFor(pctx)
		out, _, err := st.prg.Eval(activation)
		if err != nil {
			return fmt.Errorf("evaluating %q: %w", st.source, err)
		}
		if err := applyResult(pctx, st, out); err != nil {
			return err
		}
	}
	return nil
}

func (h *Host) activationFor(pctx *engine.PredicateContext) map[string]any {
	vars := map[string]any{
		"pattern": pctx.Pattern,
		"repo":    pctx.Repo,
		"commit":  commitView(pctx.Commit),
	}
	if pctx.Entry != nil {
		vars["entry"] = entryView(pctx.Entry)
	}
	return vars
}

func commitView(mc *engine.MutableCommit) map[string]any {
	return map[string]any{
		"id":               mc.ID.String(),
		"message":          mc.Message,
		"discard":          mc.Discard,
		"author_name":      mc.Author.Name,
		"author_email":     mc.Author.Email,
		"author_time":      mc.Author.When.Unix(),
		"committer_name":   mc.Committer.Name,
		"committer_email":  mc.Committer.Email,
		"committer_time":   mc.Committer.When.Unix(),
		"parent_count":     len(mc.Parents),
	}
}

func entryView(me *engine.MutableEntry) map[string]any {
	return map[string]any{
		"path":      me.Entry.Path,
		"name":      me.Entry.Name,
		"size":      me.Entry.Size,
		"is_binary": me.Entry.IsBinary,
		"discard":   me.Discard,
	}
}

// applyResult writes a CEL evaluation result back onto the mutable commit
// or entry, guarded by pctx.Mu since many entries of one commit evaluate
// concurrently and a statement may target commit fields.
func applyResult(pctx *engine.PredicateContext, st statement, out ref.Val) error {
	pctx.Mu.Lock()
	defer pctx.Mu.Unlock()

	switch st.target {
	case "commit":
		return setCommitField(pctx.Commit, st, out)
	case "entry":
		return setEntryField(pctx.Entry, st, out)
	}
	return fmt.Errorf("predicate: unreachable target %q", st.target)
}

func setCommitField(mc *engine.MutableCommit, st statement, out ref.Val) error {
	switch st.field {
	case "message":
		s, ok := out.Value().(string)
		if !ok {
			return fmt.Errorf("commit.message expects a string, got %T", out.Value())
		}
		if st.append {
			mc.Message += s
		} else {
			mc.Message = s
		}
	case "discard":
		b, ok := out.Value().(bool)
		if !ok {
			return fmt.Errorf("commit.discard expects a bool, got %T", out.Value())
		}
		mc.Discard = b
	case "author_name":
		mc.Author.Name = asString(out)
	case "author_email":
		mc.Author.Email = asString(out)
	case "committer_name":
		mc.Committer.Name = asString(out)
	case "committer_email":
		mc.Committer.Email = asString(out)
	case "author_time", "committer_time":
		secs, ok := out.Value().(int64)
		if !ok {
			return fmt.Errorf("%s expects an int, got %T", st.field, out.Value())
		}
		when := time.Unix(secs, 0).UTC()
		if st.field == "author_time" {
			mc.Author.When = when
		} else {
			mc.Committer.When = when
		}
	case "tag":
		mc.Tag = out.Value()
	default:
		return fmt.Errorf("unknown commit field %q", st.field)
	}
	return nil
}

func setEntryField(me *engine.MutableEntry, st statement, out ref.Val) error {
	switch st.field {
	case "discard":
		b, ok := out.Value().(bool)
		if !ok {
			return fmt.Errorf("entry.discard expects a bool, got %T", out.Value())
		}
		me.Discard = b
	case "replacement":
		s, ok := out.Value().(string)
		if !ok {
			return fmt.Errorf("entry.replacement expects a string, got %T", out.Value())
		}
		mode := me.Entry.Mode
		if me.Replacement != nil {
			mode = me.Replacement.Mode
		}
		me.Replacement = &engine.Replacement{Blob: []byte(s), Mode: mode}
	case "mode":
		s, ok := out.Value().(string)
		if !ok {
			return fmt.Errorf("entry.mode expects a string, got %T", out.Value())
		}
		mode, err := parseModeName(s)
		if err != nil {
			return err
		}
		if me.Replacement == nil {
			me.Replacement = &engine.Replacement{Blob: nil, Mode: mode}
		} else {
			me.Replacement.Mode = mode
		}
	default:
		return fmt.Errorf("unknown entry field %q", st.field)
	}
	return nil
}

func asString(out ref.Val) string {
	if s, ok := out.Value().(string); ok {
		return s
	}
	return fmt.Sprintf("%v", out.Value())
}

func parseModeName(s string) (engine.EntryMode, error) {
	switch s {
	case "regular":
		return engine.ModeRegular, nil
	case "executable":
		return engine.ModeExecutable, nil
	case "symlink":
		return engine.ModeSymlink, nil
	case "submodule":
		return engine.ModeSubmodule, nil
	default:
		return 0, fmt.Errorf("unknown entry mode %q", s)
	}
}
