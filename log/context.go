// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2022, Unikraft GmbH and The KraftKit Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package log

import (
	"context"

	"github.com/sirupsen/logrus"
)

// G is an alias for FromContext, short enough to read well at every call
// site that just wants "the logger for this context".
var G = FromContext

// L is the logger used when no context-scoped logger is available.
var L = logrus.StandardLogger()

// ctxKey is the context key a *logrus.Logger is stored under by
// WithLogger.
type ctxKey struct{}

// WithLogger returns a child of ctx carrying logger, retrievable later
// with FromContext or G.
func WithLogger(ctx context.Context, logger *logrus.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext returns the logger stored in ctx by WithLogger, or L if
// ctx carries none.
func FromContext(ctx context.Context) *logrus.Logger {
	logger, ok := ctx.Value(ctxKey{}).(*logrus.Logger)
	if !ok || logger == nil {
		return L
	}
	return logger
}
