// SPDX-License-Identifier: Apache-2.0
// Copyright 2022 Acorn Labs, Inc; All rights reserved.
// Copyright 2022 Unikraft GmbH; All rights reserved.
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
package cmdfactory

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// flagOverrides holds flags registered against a specific command path
// (e.g. "kconfigure dump") by plugins or subpackages that want a command
// to accept a flag it didn't declare itself, such as a persistent flag a
// parent command injects into a specific child.
var flagOverrides = make(map[string][]*pflag.Flag)

// RegisterFlag attaches flag to every command matching cmdline, a
// space-separated command path such as "kconfigure dump". The flag is
// spliced onto the target command's flag set the first time a root
// command built with New is executed.
func RegisterFlag(cmdline string, flag *pflag.Flag) {
	flagOverrides[cmdline] = append(flagOverrides[cmdline], flag)
}

// installRegisteredFlags walks the override table and adds each
// registered flag to the command it names, skipping flags the target
// already declares under its own name.
func installRegisteredFlags(cmd *cobra.Command) {
	for cmdline, flags := range flagOverrides {
		args := strings.Fields(cmdline)
		target, _, err := cmd.Traverse(args[1:])
		if err != nil {
			continue
		}

		if target == nil || target.Flags() == nil {
			continue
		}
		for _, flag := range flags {
			if target.Flags().Lookup(flag.Name) == nil {
				target.Flags().AddFlag(flag)
			}
		}
	}
}

// commandMatches reports whether cmd is the command named by cmdline, a
// space-separated command path ("kconfigure cmd subcmd ..."). Only the
// immediate parent's name is checked against the path's penultimate
// element, which is sufficient since cobra command names are unique
// within their parent.
func commandMatches(cmd *cobra.Command, cmdline string) bool {
	path := strings.Fields(cmdline)

	if len(path) == 1 {
		return cmd.Name() == path[0]
	}

	parent := cmd.Parent()
	if parent == nil {
		return false
	}
	return parent.Name() == path[len(path)-2] && cmd.Name() == path[len(path)-1]
}

// filterOutRegisteredFlags strips any flags registered against cmd's
// command path out of args, so that cobra's own flag parser never sees
// (and rejects) a flag that was only added via RegisterFlag.
func filterOutRegisteredFlags(cmd *cobra.Command, args []string) (filtered []string) {
	for cmdline, flags := range flagOverrides {
		if !commandMatches(cmd, cmdline) {
			continue
		}

		registered := map[string]*pflag.Flag{}
		for _, flag := range flags {
			registered[flag.Name] = flag
		}

		for len(args) > 0 {
			arg := args[0]
			args = args[1:]

			switch {
			// not a flag ("", <val>, -)
			case len(arg) == 0 || arg[0] != '-' || len(arg) == 1:
				filtered = append(filtered, arg)

			// long flag
			case arg[1] == '-' && len(arg) > 2:
				parts := strings.SplitN(arg, "=", 2)

				flagName := strings.TrimPrefix(parts[0], "--")
				if flag, ok := registered[flagName]; ok {
					if flag.Value.Type() != "bool" && len(parts) == 1 {
						args = args[1:]
					}
					continue
				}

				filtered = append(filtered, arg)

			// short flag
			default:
				parts := strings.SplitN(arg, "=", 2)

				flagName := strings.TrimPrefix(parts[0], "-")
				if _, ok := registered[flagName]; ok {
					if len(parts) == 1 {
						args = args[1:]
					}
					continue
				}

				filtered = append(filtered, arg)
			}
		}

		return filtered
	}

	return args
}
