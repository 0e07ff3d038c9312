// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

// Package command defines the CLI surface (spec §6) on top of
// alecthomas/kong, mirroring pkg/command's Globals/Run(g *Globals) shape.
package command

import (
	"github.com/sirupsen/logrus"

	"github.com/hashbranch/gfr/internal/logging"
)

// Globals carries the flags shared by every subcommand.
type Globals struct {
	Verbose bool   `short:"v" name:"verbose" help:"Make the operation more talkative"`
	RepoDir string `short:"d" name:"repo-dir" help:"Source repository (default: discover from current directory)" default:"."`

	log *logrus.Logger
}

// Log lazily builds (and memoises) the Globals' logger.
func (g *Globals) Log() *logrus.Logger {
	if g.log == nil {
		g.log = logging.New(g.Verbose)
	}
	return g.log
}
