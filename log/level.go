// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2022, Unikraft GmbH and The KraftKit Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file expect in compliance with the License.
package log

import (
	"strings"

	"github.com/sirupsen/logrus"
)

// LoggerType selects which of Configure's output formats a logger uses.
type LoggerType uint

const (
	QUIET LoggerType = iota
	BASIC
	FANCY
	JSON
)

// LoggerTypeFromString parses a --log-type flag value, case-insensitively,
// defaulting to BASIC for anything unrecognized.
func LoggerTypeFromString(name string) LoggerType {
	switch strings.ToLower(name) {
	case "quiet":
		return QUIET
	case "basic":
		return BASIC
	case "fancy":
		return FANCY
	case "json":
		return JSON
	default:
		return BASIC
	}
}

func LoggerTypeToString(t LoggerType) string {
	switch t {
	case QUIET:
		return "quiet"
	case BASIC:
		return "basic"
	case FANCY:
		return "fancy"
	case JSON:
		return "json"
	default:
		return "basic"
	}
}

// Levels maps the log-level names accepted on the CLI to their logrus
// equivalent, including the "warning"/"warn" alias.
func Levels() map[string]logrus.Level {
	return map[string]logrus.Level{
		"panic":   logrus.PanicLevel,
		"fatal":   logrus.FatalLevel,
		"error":   logrus.ErrorLevel,
		"warning": logrus.WarnLevel,
		"warn":    logrus.WarnLevel,
		"info":    logrus.InfoLevel,
		"debug":   logrus.DebugLevel,
		"trace":   logrus.TraceLevel,
	}
}
