// SPDX-License-Identifier: Apache-2.0
// Copyright 2022 Unikraft GmbH. All rights reserved.

// Package kconfigure assembles the root kconfigure command tree: generate,
// dump, and validate, each a thin cmdfactory.Runnable wired against the
// kconfig/decision/resolver packages.
package kconfigure

import (
	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"

	"kconfigure.sh/cmdfactory"
	"kconfigure.sh/config"
	"kconfigure.sh/internal/cli/kconfigure/dump"
	"kconfigure.sh/internal/cli/kconfigure/generate"
	"kconfigure.sh/internal/cli/kconfigure/validate"
	"kconfigure.sh/internal/version"
	"kconfigure.sh/log"
)

// Kconfigure is the root command's Runnable. It carries only the flags
// shared by every subcommand: logging verbosity and output style.
type Kconfigure struct {
	LogLevel      string `long:"log-level" usage:"Set the logging verbosity" env:"KCONFIGURE_LOG_LEVEL" default:"info"`
	LogType       string `long:"log-type" usage:"Set the log output style (quiet, basic, fancy, json)" env:"KCONFIGURE_LOG_TYPE" default:"fancy"`
	LogTimestamps bool   `long:"log-timestamps" usage:"Show timestamps with log output" env:"KCONFIGURE_LOG_TIMESTAMPS" default:"false"`
}

// NewCmd builds the root command and attaches every subcommand.
func NewCmd() *cobra.Command {
	cmd, err := cmdfactory.New(&Kconfigure{}, cobra.Command{
		Short: "Resolve Kconfig decisions into a complete .config",
		Use:   "kconfigure [FLAGS] SUBCOMMAND",
		Long: heredoc.Docf(`
		kconfigure turns a base .config, a Kconfig symbol universe, and a set
		of modification requests into a fully resolved .config: it expands
		each request upward through dependencies, applies the result, and
		runs an informed oldconfig pass to fill in everything newly visible.

		Version: %s`, version.Version()),
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
	})
	if err != nil {
		panic(err)
	}

	cmd.AddCommand(generate.NewCmd())
	cmd.AddCommand(dump.NewCmd())
	cmd.AddCommand(validate.NewCmd())

	return cmd
}

// PersistentPre installs a logger configured from the root flags, and the
// user's persisted settings (§ "Configuration" of the ambient stack), into
// the command's context, so every subcommand's log.G(ctx) and
// config.FromContext(ctx) pick them up.
func (opts *Kconfigure) PersistentPre(cmd *cobra.Command, _ []string) error {
	logger := log.Configure(log.LoggerTypeFromString(opts.LogType), opts.LogLevel, opts.LogTimestamps, cmd.OutOrStderr())
	ctx := log.WithLogger(cmd.Context(), logger)

	cm, err := config.NewConfigManager(
		config.WithDefaultConfigFile(),
		config.WithEnv(),
	)
	if err != nil {
		logger.Warnf("could not load persisted settings, falling back to flag defaults: %v", err)
	} else {
		ctx = config.WithConfigManager(ctx, cm)
	}

	cmd.SetContext(ctx)
	return nil
}

// Run with no subcommand just prints help, matching the teacher's own root
// command behaviour.
func (opts *Kconfigure) Run(cmd *cobra.Command, _ []string) error {
	return cmd.Help()
}
