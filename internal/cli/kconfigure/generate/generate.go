// SPDX-License-Identifier: Apache-2.0
// Copyright 2022 Unikraft GmbH. All rights reserved.

// Package generate implements `kconfigure generate`: the end-to-end
// operation of spec.md's worked scenarios (§8) as a CLI command.
package generate

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"kconfigure.sh/cmdfactory"
	"kconfigure.sh/config"
	"kconfigure.sh/decision"
	"kconfigure.sh/kconfig"
	"kconfigure.sh/log"
	"kconfigure.sh/resolver"
)

// Generate loads a symbol table, a base .config, and one or more
// modification requests, resolves them, and writes the result.
type Generate struct {
	SrcTree       string   `long:"srctree" usage:"Kernel source tree to import Kconfig symbols from" env:"KCONFIGURE_KERNEL_SRCTREE"`
	Arch          string   `long:"arch" usage:"ARCH value for the Kconfig importer" env:"KCONFIGURE_KERNEL_ARCH" default:"x86"`
	SrcArch       string   `long:"srcarch" usage:"SRCARCH value for the Kconfig importer" env:"KCONFIGURE_KERNEL_SRCARCH" default:"x86"`
	KernelVersion string   `long:"kernel-version" usage:"KERNELVERSION value for the importer and kver/kmaj/kmin/kpatch DSL conditions"`
	Config        string   `long:"config" short:"c" usage:"Base .config to resolve against" default:".config"`
	Output        string   `long:"output" short:"o" usage:"Where to write the resolved .config (defaults to --config)"`
	DSL           []string `long:"dsl" usage:"Macro-DSL request file(s) to run, in order"`
	Set           []string `long:"set" usage:"Set SYMBOL=VALUE directly, bypassing the DSL"`
	Disable       []string `long:"disable" usage:"Disable SYMBOL (force n)"`
	Module        []string `long:"module" usage:"Force SYMBOL to m"`
	Builtin       []string `long:"builtin" usage:"Force SYMBOL to y"`
	Either        []string `long:"either" usage:"Force SYMBOL to m or y, resolver's choice"`
	AliasFile     string   `long:"modules-alias" usage:"modules.alias-format file for the driver/modalias DSL modifiers"`
	SymbolsFile   string   `long:"modules-symbols" usage:"module-name to CONFIG_ symbol mapping file"`
	DryRun        bool     `long:"dry-run" usage:"Resolve but do not write the output .config"`
}

func NewCmd() *cobra.Command {
	cmd, err := cmdfactory.New(&Generate{}, cobra.Command{
		Short: "Resolve decisions into a complete .config",
		Use:   "generate [FLAGS]",
		Args:  cobra.NoArgs,
	})
	if err != nil {
		panic(err)
	}

	return cmd
}

func (opts *Generate) Run(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	opts.applyConfigDefaults(ctx)

	if opts.SrcTree == "" {
		return fmt.Errorf("--srctree is required (pass --srctree or set kernel.srctree in the settings file)")
	}

	env := []*kconfig.KeyValue{
		{Key: "ARCH", Value: opts.Arch},
		{Key: "SRCARCH", Value: opts.SrcArch},
		{Key: "KERNELVERSION", Value: opts.KernelVersion},
		{Key: "srctree", Value: opts.SrcTree},
	}

	file, err := kconfig.Parse(filepath.Join(opts.SrcTree, "Kconfig"), env...)
	if err != nil {
		return fmt.Errorf("parsing Kconfig tree: %w", err)
	}

	table, err := kconfig.Import(file)
	if err != nil {
		return fmt.Errorf("importing symbol table: %w", err)
	}
	log.G(ctx).Debugf("imported %d symbols", table.Len())

	base, err := kconfig.ParseConfig(opts.Config)
	if err != nil {
		return fmt.Errorf("reading base config %s: %w", opts.Config, err)
	}

	store := decision.NewStore(table)

	var aliases decision.AliasResolver
	if opts.AliasFile != "" || opts.SymbolsFile != "" {
		aliases, err = decision.NewModulesAliasFile(opts.AliasFile, opts.SymbolsFile)
		if err != nil {
			return fmt.Errorf("loading module aliases: %w", err)
		}
	}

	interp := decision.NewInterpreter(table, store, aliases, opts.KernelVersion)
	for _, path := range opts.DSL {
		if err := interp.RunFile(ctx, path); err != nil {
			return fmt.Errorf("running %s: %w", path, err)
		}
	}

	if err := store.ApplyArgs(ctx, decision.Args{
		Disable: opts.Disable,
		Module:  opts.Module,
		Builtin: opts.Builtin,
		Either:  opts.Either,
		Set:     opts.Set,
	}); err != nil {
		return fmt.Errorf("applying flag-form requests: %w", err)
	}

	log.G(ctx).Debugf("%d decision(s) recorded, resolving", len(store.Names()))

	resolved, err := resolver.New(table).Resolve(ctx, base, store)
	if err != nil {
		return fmt.Errorf("resolving config: %w", err)
	}

	if opts.DryRun {
		cmd.Print(string(resolved.Serialize(table)))
		return nil
	}

	output := opts.Output
	if output == "" {
		output = opts.Config
	}

	if err := resolved.Store(output, table); err != nil {
		return fmt.Errorf("writing %s: %w", output, err)
	}

	log.G(ctx).Infof("wrote %s", output)

	return nil
}

// applyConfigDefaults fills in flags the user left at their zero value from
// the persisted settings file loaded by the root command, so --srctree and
// the modules-alias paths don't need to be repeated on every invocation.
func (opts *Generate) applyConfigDefaults(ctx context.Context) {
	cm := config.FromContext(ctx)
	if cm == nil {
		return
	}

	if opts.SrcTree == "" {
		opts.SrcTree = cm.Config.Kernel.SrcTree
	}
	if opts.KernelVersion == "" {
		opts.KernelVersion = cm.Config.Kernel.Version
	}
	if opts.AliasFile == "" && len(cm.Config.Paths.ModulesAlias) > 0 {
		opts.AliasFile = cm.Config.Paths.ModulesAlias[0]
	}
	if opts.SymbolsFile == "" && len(cm.Config.Paths.ModulesAlias) > 1 {
		opts.SymbolsFile = cm.Config.Paths.ModulesAlias[1]
	}
}
