// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2022, Unikraft GmbH. All rights reserved.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package config

import "context"

type contextKey struct{}

// WithConfigManager attaches cm to ctx, so any command reachable from the
// root command's context can fall back to the user's persisted settings
// when a flag was left at its zero value.
func WithConfigManager(ctx context.Context, cm *ConfigManager) context.Context {
	return context.WithValue(ctx, contextKey{}, cm)
}

// FromContext returns the ConfigManager attached by WithConfigManager, or
// nil if none was attached.
func FromContext(ctx context.Context) *ConfigManager {
	cm, _ := ctx.Value(contextKey{}).(*ConfigManager)
	return cm
}
