// SPDX-License-Identifier: Apache-2.0
// Copyright 2022 Unikraft GmbH. All rights reserved.

package kconfig_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"kconfigure.sh/kconfig"
)

// TestSymbol_DirDepDefaultsVisible confirms a dependency-free symbol's
// DirDep evaluates to Yes, so it never gates visibility on its own.
func TestSymbol_DirDepDefaultsVisible(t *testing.T) {
	table := buildTable(t, `mainmenu "Test"

config A
	bool "A"
`)
	a := table.MustByName("A")
	require.NotNil(t, a.DirDep)
	require.Equal(t, kconfig.Yes, a.DirDep.Eval(func(string) string { return "" }))
}

// TestSymbol_DirDepTracksDependency confirms "depends on" feeds DirDep, and
// that HasVisiblePrompt alone (with no depends-on awareness) stays true even
// though the dependency is unmet -- this is exactly why the resolver's
// informed-oldconfig pass must combine HasVisiblePrompt with DirDep rather
// than trusting HasVisiblePrompt on its own.
func TestSymbol_DirDepTracksDependency(t *testing.T) {
	table := buildTable(t, `mainmenu "Test"

config A
	bool "A"

config B
	bool "B"
	depends on A
`)
	b := table.MustByName("B")
	require.NotNil(t, b.DirDep)

	lookupOff := func(name string) string {
		if name == "A" {
			return "n"
		}
		return ""
	}
	lookupOn := func(name string) string {
		if name == "A" {
			return "y"
		}
		return ""
	}

	require.Equal(t, kconfig.No, b.DirDep.Eval(lookupOff))
	require.Equal(t, kconfig.Yes, b.DirDep.Eval(lookupOn))
	require.True(t, b.HasVisiblePrompt(lookupOff), "prompt's own condition carries no depends-on awareness")
}

func TestSymbol_DefaultValue(t *testing.T) {
	table := buildTable(t, `mainmenu "Test"

config A
	bool "A"
	default y
`)
	a := table.MustByName("A")
	val := a.DefaultValue(func(string) string { return "" })
	require.NotNil(t, val)
	require.Equal(t, kconfig.Yes, val.Eval(func(string) string { return "" }))
}

func TestSymbol_ValidateValue(t *testing.T) {
	table := buildTable(t, `mainmenu "Test"

config T
	tristate "T"

config B
	bool "B"

config I
	int "I"

config H
	hex "H"

config S
	string "S"
`)

	require.NoError(t, table.MustByName("T").ValidateValue("m"))
	require.Error(t, table.MustByName("T").ValidateValue("maybe"))

	require.NoError(t, table.MustByName("B").ValidateValue("y"))
	require.Error(t, table.MustByName("B").ValidateValue("m"))

	require.NoError(t, table.MustByName("I").ValidateValue("-42"))
	require.Error(t, table.MustByName("I").ValidateValue("0x10"))

	require.NoError(t, table.MustByName("H").ValidateValue("0xdead"))
	require.Error(t, table.MustByName("H").ValidateValue("dead"))

	require.NoError(t, table.MustByName("S").ValidateValue("anything goes"))
}
