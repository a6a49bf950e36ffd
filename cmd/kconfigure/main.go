// SPDX-License-Identifier: Apache-2.0
// Copyright 2022 Unikraft GmbH. All rights reserved.
package main

import (
	"github.com/rancher/wrangler/pkg/signals"

	"kconfigure.sh/cmdfactory"
	"kconfigure.sh/internal/cli/kconfigure"
)

func main() {
	cmdfactory.Main(signals.SetupSignalContext(), kconfigure.NewCmd())
}
