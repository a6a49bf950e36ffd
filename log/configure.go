// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2022, Unikraft GmbH and The KraftKit Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package log

import (
	"io"

	"github.com/sirupsen/logrus"
)

// Configure builds a *logrus.Logger the way the CLI root command does: pick
// a formatter from typ, a level from levelName (falling back to Info on an
// unrecognised name), and write to out.
func Configure(typ LoggerType, levelName string, timestamps bool, out io.Writer) *logrus.Logger {
	logger := logrus.New()

	switch typ {
	case QUIET:
		logger.Formatter = new(logrus.TextFormatter)

	case JSON:
		formatter := new(logrus.JSONFormatter)
		formatter.DisableTimestamp = !timestamps
		logger.Formatter = formatter

	default: // BASIC, FANCY
		formatter := new(TextFormatter)
		formatter.FullTimestamp = true
		formatter.DisableTimestamp = true
		if timestamps {
			formatter.DisableTimestamp = false
		} else {
			formatter.TimestampFormat = ">"
		}
		logger.Formatter = formatter
	}

	if level, ok := Levels()[levelName]; ok {
		logger.Level = level
	} else {
		logger.Level = logrus.InfoLevel
	}

	logger.SetOutput(out)

	return logger
}
