// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"github.com/hashbranch/gfr/internal/command"
	"github.com/hashbranch/gfr/internal/engine"
)

// App is the whole CLI surface: one "rewrite" subcommand, default so a bare
// `gfr -b branch` works without naming it.
type App struct {
	command.Globals
	Rewrite command.Rewrite `cmd:"rewrite" default:"withargs" help:"Rewrite history onto a new branch"`
}

func main() {
	var app App
	ctx := kong.Parse(&app,
		kong.Name("gfr"),
		kong.Description("Rewrites git history onto a new branch under commit/tree filters"),
		kong.UsageOnError(),
	)
	err := ctx.Run(&app.Globals)
	if err != nil {
		fmt.Fprintf(os.Stderr, "gfr: %v\n", err)
		var compileErr *engine.ErrPredicateCompilation
		if errors.As(err, &compileErr) {
			fmt.Fprint(os.Stderr, compileErr.Details())
		}
		os.Exit(1)
	}
}
