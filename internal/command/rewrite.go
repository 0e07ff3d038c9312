// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/hashbranch/gfr/internal/engine"
	"github.com/hashbranch/gfr/internal/gitio"
	"github.com/hashbranch/gfr/internal/predicate"
)

// Rewrite is the sole subcommand (spec §6): it implements the entire CLI
// surface the core engine needs driven.
type Rewrite struct {
	Branch     string `short:"b" name:"branch" required:"" help:"Output branch name"`
	Force      bool   `name:"force" help:"Permit overwriting an existing branch ref"`

	Keep         []string `short:"k" name:"keep" help:"Append <rule> to the keep-pattern block" sep:"none"`
	KeepFromFile []string `name:"keep-from-file" help:"Append file contents to the keep-pattern block"`

	Remove         []string `short:"r" name:"remove" help:"Append <rule> to the remove-pattern block" sep:"none"`
	RemoveFromFile []string `name:"remove-from-file" help:"Append file contents to the remove-pattern block"`

	CommitFilter       string `short:"c" name:"commit-filter" help:"Commit-predicate body"`
	CommitFilterScript string `name:"commit-filter-script" help:"Commit-predicate body read from file"`

	Detach               bool `name:"detach" help:"Cut original-parent links at the range boundary"`
	IncludeLinks         bool `name:"include-links" help:"Include submodule links in tree filtering"`
	DisableThreads       bool `name:"disable-threads" help:"Serial execution"`
	PreserveMergeCommits bool `name:"preserve-merge-commits" help:"Do not prune two-parent commits via tree-equality"`
	MaxProcs             int  `name:"max-procs" help:"Worker pool limit (0 = unlimited)" default:"0"`

	Revspec string `arg:"" optional:"" name:"revspec" help:"Revision or revision range to rewrite"`
}

func (c *Rewrite) Run(g *Globals) error {
	log := g.Log()

	repo, err := gitio.Open(g.RepoDir)
	if err != nil {
		return err
	}

	keepText, err := c.combinedBlock(c.Keep, c.KeepFromFile)
	if err != nil {
		return err
	}
	removeText, err := c.combinedBlock(c.Remove, c.RemoveFromFile)
	if err != nil {
		return err
	}
	commitFilterText, err := c.resolveCommitFilter()
	if err != nil {
		return err
	}

	if strings.TrimSpace(keepText) == "" && strings.TrimSpace(removeText) == "" && commitFilterText == "" {
		return engine.ErrMissingFilter
	}

	host, err := predicate.NewHost()
	if err != nil {
		return fmt.Errorf("building predicate host: %w", err)
	}

	var keepSet, removeSet *engine.PatternSet
	if strings.TrimSpace(keepText) != "" {
		if keepSet, err = engine.NewPatternSet(keepText, engine.PolarityKeep, host); err != nil {
			log.Debugf("parsing keep-pattern block: %v", err)
			return err
		}
	}
	if strings.TrimSpace(removeText) != "" {
		if removeSet, err = engine.NewPatternSet(removeText, engine.PolarityRemove, host); err != nil {
			log.Debugf("parsing remove-pattern block: %v", err)
			return err
		}
	}

	var commitPredicate engine.CompiledPredicate
	if commitFilterText != "" {
		if commitPredicate, err = host.Compile(commitFilterText); err != nil {
			log.Debugf("compiling commit filter: %v", err)
			return err
		}
	}

	rng, err := engine.ParseRevRange(c.revspecOrHead(), repo.Resolve)
	if err != nil {
		return err
	}

	scheduler := engine.NewScheduler(c.DisableThreads, c.MaxProcs)
	driver := engine.NewDriver(repo.Store(), repo.Walker(), repo, host, scheduler, log.WithField("cmd", "rewrite"))

	discarded, err := driver.Run(context.Background(), engine.DriverOptions{
		BranchName: c.Branch,
		Force:      c.Force,
		Range:      rng,
		Rewriter: engine.RewriterOptions{
			CommitPredicate:      commitPredicate,
			Keep:                 keepSet,
			Remove:               removeSet,
			IncludeLinks:         c.IncludeLinks,
			Detach:               c.Detach,
			PreserveMergeCommits: c.PreserveMergeCommits,
		},
	})
	if err != nil {
		return err
	}
	log.Infof("rewrote refs/heads/%s, %d commits discarded", c.Branch, discarded)
	return nil
}

func (c *Rewrite) revspecOrHead() string {
	if c.Revspec == "" {
		return "HEAD"
	}
	return c.Revspec
}

func (c *Rewrite) combinedBlock(rules, files []string) (string, error) {
	var b strings.Builder
	for _, r := range rules {
		b.WriteString(r)
		b.WriteString("\n")
	}
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return "", engine.NewErrPatternParse(fmt.Sprintf("cannot read %s: %v", f, err))
		}
		b.Write(data)
		b.WriteString("\n")
	}
	return b.String(), nil
}

func (c *Rewrite) resolveCommitFilter() (string, error) {
	if c.CommitFilterScript == "" {
		return c.CommitFilter, nil
	}
	data, err := os.ReadFile(c.CommitFilterScript)
	if err != nil {
		return "", engine.NewErrPatternParse(fmt.Sprintf("cannot read %s: %v", c.CommitFilterScript, err))
	}
	if c.CommitFilter != "" {
		return c.CommitFilter + "\n" + string(data), nil
	}
	return string(data), nil
}
