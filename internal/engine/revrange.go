// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"strings"

	"github.com/go-git/go-git/v5/plumbing"
)

// RevRange names the slice of history a Driver run processes (spec §4.6).
// From is the zero hash for Single ranges (process since the root).
type RevRange struct {
	From plumbing.Hash
	To   plumbing.Hash
}

// ParseRevRange accepts "<rev>" (process <rev> and every ancestor) or
// "<rev>..<rev>" (process the second, excluding everything reachable from
// the first). Three-dot merge-base forms are rejected: this engine has
// no notion of "common ancestor", only "reachable from".
func ParseRevRange(text string, resolve func(string) (plumbing.Hash, error)) (RevRange, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return RevRange{}, NewErrInvalidRevspec("empty revspec")
	}
	if strings.Contains(text, "...") {
		return RevRange{}, NewErrInvalidRevspec("merge-base (...) revspecs are not supported")
	}
	if idx := strings.Index(text, ".."); idx >= 0 {
		fromText := text[:idx]
		toText := text[idx+2:]
		if fromText == "" || toText == "" {
			return RevRange{}, NewErrInvalidRevspec("incomplete range: " + text)
		}
		from, err := resolve(fromText)
		if err != nil {
			return RevRange{}, NewErrInvalidRevspec("cannot resolve " + fromText)
		}
		to, err := resolve(toText)
		if err != nil {
			return RevRange{}, NewErrInvalidRevspec("cannot resolve " + toText)
		}
		return RevRange{From: from, To: to}, nil
	}
	to, err := resolve(text)
	if err != nil {
		return RevRange{}, NewErrInvalidRevspec("cannot resolve " + text)
	}
	return RevRange{To: to}, nil
}
