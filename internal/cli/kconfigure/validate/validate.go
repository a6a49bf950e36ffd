// SPDX-License-Identifier: Apache-2.0
// Copyright 2022 Unikraft GmbH. All rights reserved.

// Package validate implements `kconfigure validate`: confirm a .config is
// a fixed point of parse/serialize and of informed oldconfig, without
// writing anything back (§8's "running oldconfig again makes no further
// changes" property, checked on demand).
package validate

import (
	"bytes"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"kconfigure.sh/cmdfactory"
	"kconfigure.sh/config"
	"kconfigure.sh/decision"
	"kconfigure.sh/kconfig"
	"kconfigure.sh/resolver"
)

type Validate struct {
	SrcTree       string `long:"srctree" usage:"Kernel source tree to import Kconfig symbols from" env:"KCONFIGURE_KERNEL_SRCTREE"`
	Arch          string `long:"arch" usage:"ARCH value for the Kconfig importer" env:"KCONFIGURE_KERNEL_ARCH" default:"x86"`
	SrcArch       string `long:"srcarch" usage:"SRCARCH value for the Kconfig importer" env:"KCONFIGURE_KERNEL_SRCARCH" default:"x86"`
	KernelVersion string `long:"kernel-version" usage:"KERNELVERSION value for the importer"`
	Config        string `long:"config" short:"c" usage:"Config to validate" default:".config"`
}

func NewCmd() *cobra.Command {
	cmd, err := cmdfactory.New(&Validate{}, cobra.Command{
		Short: "Check a .config for round-trip and oldconfig fixed points",
		Use:   "validate [FLAGS]",
		Args:  cobra.NoArgs,
	})
	if err != nil {
		panic(err)
	}

	return cmd
}

func (opts *Validate) Run(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	if cm := config.FromContext(ctx); cm != nil && opts.SrcTree == "" {
		opts.SrcTree = cm.Config.Kernel.SrcTree
	}
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

	original, err := kconfig.ParseConfig(opts.Config)
	if err != nil {
		return fmt.Errorf("reading %s: %w", opts.Config, err)
	}

	roundTripped, err := kconfig.ParseConfigData(original.Serialize(table), opts.Config)
	if err != nil {
		return fmt.Errorf("re-parsing serialized config: %w", err)
	}
	if !bytes.Equal(original.Serialize(table), roundTripped.Serialize(table)) {
		return fmt.Errorf("%s is not a fixed point of parse(serialize(.)): running kconfigure generate would change it", opts.Config)
	}

	resolved, err := resolver.New(table).Resolve(ctx, original, decision.NewStore(table))
	if err != nil {
		return fmt.Errorf("running informed oldconfig: %w", err)
	}
	if !bytes.Equal(original.Serialize(table), resolved.Serialize(table)) {
		return fmt.Errorf("%s is not a fixed point of informed oldconfig: running kconfigure generate with no decisions would change it", opts.Config)
	}

	cmd.Println("ok")

	return nil
}
