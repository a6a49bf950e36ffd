// SPDX-License-Identifier: Apache-2.0
// Copyright 2022 Acorn Labs, Inc; All rights reserved.
// Copyright 2022 Unikraft GmbH; All rights reserved.
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

// Package cmdfactory builds cobra commands from plain Go structs: a
// struct's exported fields become flags via AttributeFlags, and its
// Run/Pre/PersistentPre methods become the command's lifecycle hooks.
package cmdfactory

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// PersistentPreRunnable is implemented by a command struct that needs to
// run setup before itself and its children, such as opening a shared
// resource the subcommand tree depends on.
type PersistentPreRunnable interface {
	PersistentPre(cmd *cobra.Command, args []string) error
}

// PreRunnable is implemented by a command struct that needs to run setup
// immediately before its own Run.
type PreRunnable interface {
	Pre(cmd *cobra.Command, args []string) error
}

// Runnable is the minimum a command struct must implement to be built
// into a cobra.Command by New.
type Runnable interface {
	Run(cmd *cobra.Command, args []string) error
}

// New populates cmd from obj's struct tags (see AttributeFlags) and
// wires obj's Run/Pre/PersistentPre methods into cmd's corresponding
// cobra hooks.
func New(obj Runnable, cmd cobra.Command) (*cobra.Command, error) {
	c := cmd
	if c.Use == "" {
		c.Use = fmt.Sprintf("%s [SUBCOMMAND] [FLAGS]", Name(obj))
	}

	if p, ok := obj.(PersistentPreRunnable); ok {
		c.PersistentPreRunE = p.PersistentPre
	}
	if p, ok := obj.(PreRunnable); ok {
		c.PreRunE = p.Pre
	}

	c.SilenceErrors = true
	c.SilenceUsage = true
	c.DisableFlagsInUseLine = true
	c.InitDefaultHelpFlag()
	c.InitDefaultCompletionCmd()

	if obj != nil {
		c.RunE = obj.Run

		if err := AttributeFlags(&c, obj); err != nil {
			return nil, err
		}
	}

	c.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		rootHelpFunc(cmd, args)
	})
	c.SetUsageFunc(rootUsageFunc)
	c.SetFlagErrorFunc(rootFlagErrorFunc)

	return &c, nil
}

// Main runs cmd to completion against os.Args, printing any returned
// error and exiting with status 1 if one occurs.
func Main(ctx context.Context, cmd *cobra.Command) {
	installRegisteredFlags(cmd)

	cmd.SetContext(ctx)

	if _, err := executeRoot(cmd); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// executeRoot finds the subcommand os.Args actually targets within
// cmd's tree and runs it via runCommand, replicating cobra's own
// Command.Execute but always resolving against cmd.Root() regardless
// of which command in the tree Main was given.
func executeRoot(cmd *cobra.Command) (target *cobra.Command, err error) {
	if cmd.HasParent() {
		return executeRoot(cmd.Root())
	}

	args := os.Args[1:]

	var extra []string
	if cmd.TraverseChildren {
		target, extra, err = cmd.Traverse(args)
	} else {
		target, extra, err = cmd.Find(args)
	}
	if err != nil {
		if target != nil {
			cmd = target
		}
		if !cmd.SilenceErrors {
			cmd.PrintErrln("Error:", err.Error())
			cmd.PrintErrf("Run '%v --help' for usage.\n", cmd.CommandPath())
		}
		return cmd, err
	}

	if target.Context() == nil {
		target.SetContext(cmd.Context())
	}

	if err = runCommand(target, extra); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			target.HelpFunc()(target, args)
			return target, nil
		}

		if !target.SilenceErrors && !cmd.SilenceErrors {
			cmd.PrintErrln("Error:", err.Error())
		}
		if !target.SilenceUsage && !cmd.SilenceUsage {
			cmd.Println(target.UsageString())
		}
	}

	return target, err
}

// runCommand drives a single resolved command through cobra's
// pre-run/run/post-run lifecycle. It exists alongside cobra's own
// Command.execute (unexported, so unreachable from here) because
// executeRoot needs to intercept the --help and "not runnable" cases
// before they reach cobra's usage output.
func runCommand(c *cobra.Command, args []string) (err error) {
	if len(c.Deprecated) > 0 {
		c.Printf("command %q is deprecated, %s\n", c.Name(), c.Deprecated)
	}

	if !c.DisableFlagParsing {
		if err := c.ParseFlags(args); err != nil {
			return c.FlagErrorFunc()(c, err)
		}
	}

	if helpVal, err := c.Flags().GetBool("help"); err == nil && helpVal {
		return flag.ErrHelp
	}
	if !c.Runnable() {
		return flag.ErrHelp
	}

	argWoFlags := c.Flags().Args()
	if c.DisableFlagParsing {
		argWoFlags = args
	}

	if err := c.ValidateArgs(argWoFlags); err != nil {
		return err
	}

	for p := c; p != nil; p = p.Parent() {
		if p.PersistentPreRunE != nil {
			if err := p.PersistentPreRunE(c, argWoFlags); err != nil {
				return err
			}
			break
		} else if p.PersistentPreRun != nil {
			p.PersistentPreRun(c, argWoFlags)
			break
		}
	}
	if c.PreRunE != nil {
		if err := c.PreRunE(c, argWoFlags); err != nil {
			return err
		}
	} else if c.PreRun != nil {
		c.PreRun(c, argWoFlags)
	}

	if err := c.ValidateRequiredFlags(); err != nil {
		return err
	}
	if err := c.ValidateFlagGroups(); err != nil {
		return err
	}

	if c.RunE != nil {
		if err := c.RunE(c, argWoFlags); err != nil {
			return err
		}
	} else {
		c.Run(c, argWoFlags)
	}

	if c.PostRunE != nil {
		if err := c.PostRunE(c, argWoFlags); err != nil {
			return err
		}
	} else if c.PostRun != nil {
		c.PostRun(c, argWoFlags)
	}
	for p := c; p != nil; p = p.Parent() {
		if p.PersistentPostRunE != nil {
			if err := p.PersistentPostRunE(c, argWoFlags); err != nil {
				return err
			}
			break
		} else if p.PersistentPostRun != nil {
			p.PersistentPostRun(c, argWoFlags)
			break
		}
	}

	return nil
}
