// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

// Package logging wraps logrus with the teacher's terse, colourised
// diagnostic style (pkg/command.Globals.DbgPrint): one "* message" line per
// entry, wrapped in yellow ANSI escapes whatever the output is.
package logging

import (
	"bytes"
	"strings"

	"github.com/sirupsen/logrus"
)

// starFormatter renders each log entry the way Globals.DbgPrint does:
// every physical line of the message gets its own "\x1b[33m* ...\x1b[0m"
// wrapper, with no timestamp or level noise.
type starFormatter struct{}

func (starFormatter) Format(e *logrus.Entry) ([]byte, error) {
	var b bytes.Buffer
	message := strings.TrimSuffix(e.Message, "\n")
	for _, line := range strings.Split(message, "\n") {
		b.WriteString("\x1b[33m* ")
		b.WriteString(line)
		b.WriteString("\x1b[0m\n")
	}
	return b.Bytes(), nil
}

// New builds a logrus logger at Info level (Debug when verbose is set),
// formatted with starFormatter.
func New(verbose bool) *logrus.Logger {
	l := logrus.New()
	l.SetFormatter(starFormatter{})
	if verbose {
		l.SetLevel(logrus.DebugLevel)
	} else {
		l.SetLevel(logrus.InfoLevel)
	}
	return l
}
