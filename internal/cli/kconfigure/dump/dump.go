// SPDX-License-Identifier: Apache-2.0
// Copyright 2022 Unikraft GmbH. All rights reserved.

// Package dump implements `kconfigure dump`, adapted from the teacher's
// cmd/kraft/kconfig/dump: print what the importer saw, for inspecting a
// symbol table without running the resolver.
package dump

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"kconfigure.sh/cmdfactory"
	"kconfigure.sh/config"
	"kconfigure.sh/kconfig"
)

type Dump struct {
	SrcTree       string `long:"srctree" usage:"Kernel source tree to import Kconfig symbols from" env:"KCONFIGURE_KERNEL_SRCTREE"`
	Arch          string `long:"arch" usage:"ARCH value for the Kconfig importer" env:"KCONFIGURE_KERNEL_ARCH" default:"x86"`
	SrcArch       string `long:"srcarch" usage:"SRCARCH value for the Kconfig importer" env:"KCONFIGURE_KERNEL_SRCARCH" default:"x86"`
	KernelVersion string `long:"kernel-version" usage:"KERNELVERSION value for the importer"`

	format OutputFormat
}

// OutputFormat is the set of renderings dump knows how to produce.
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
)

// String implements fmt.Stringer, so OutputFormat satisfies
// cmdfactory.EnumFlag's type parameter.
func (f OutputFormat) String() string {
	return string(f)
}

func Formats() []OutputFormat {
	return []OutputFormat{FormatText, FormatJSON}
}

func NewCmd() *cobra.Command {
	cmd, err := cmdfactory.New(&Dump{}, cobra.Command{
		Short: "Print the parsed symbol table",
		Use:   "dump [FLAGS]",
		Args:  cobra.NoArgs,
	})
	if err != nil {
		panic(err)
	}

	cmd.Flags().VarP(
		cmdfactory.NewEnumFlag(Formats(), FormatText),
		"format", "",
		"Output format: text or json",
	)

	return cmd
}

func (opts *Dump) Pre(cmd *cobra.Command, _ []string) error {
	opts.format = OutputFormat(cmd.Flag("format").Value.String())
	return nil
}

// symbolView is a flattened, JSON-friendly projection of kconfig.Symbol;
// the expression trees print as their String() form rather than the
// Expr sum-type's unexported shape.
type symbolView struct {
	Name    string   `json:"name"`
	Kind    string   `json:"kind"`
	DirDep  string   `json:"dir_dep,omitempty"`
	RevDep  string   `json:"rev_dep,omitempty"`
	Choice  string   `json:"choice,omitempty"`
	Prompts []string `json:"prompts,omitempty"`
}

func (opts *Dump) Run(cmd *cobra.Command, _ []string) error {
	if cm := config.FromContext(cmd.Context()); cm != nil && opts.SrcTree == "" {
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

	views := make([]symbolView, 0, table.Len())
	for _, sym := range table.IterAll() {
		v := symbolView{
			Name:   sym.Name,
			Kind:   sym.Kind.String(),
			Choice: sym.Choice,
		}
		if sym.DirDep != nil {
			v.DirDep = sym.DirDep.String()
		}
		if sym.RevDep != nil {
			v.RevDep = sym.RevDep.String()
		}
		for _, p := range sym.Prompts {
			v.Prompts = append(v.Prompts, p.Text)
		}
		views = append(views, v)
	}

	if opts.format == FormatJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(views)
	}

	for _, v := range views {
		fmt.Fprintf(cmd.OutOrStdout(), "%-40s %-10s dir_dep=%s\n", v.Name, v.Kind, v.DirDep)
	}

	return nil
}
