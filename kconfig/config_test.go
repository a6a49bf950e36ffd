// SPDX-License-Identifier: Apache-2.0
// Copyright 2022 Unikraft GmbH. All rights reserved.

package kconfig_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"kconfigure.sh/kconfig"
)

func buildTable(t *testing.T, src string) *kconfig.Table {
	t.Helper()
	file, err := kconfig.ParseData([]byte(src), "Kconfig")
	require.NoError(t, err)
	table, err := kconfig.Import(file)
	require.NoError(t, err)
	return table
}

const configTestTree = `mainmenu "Test"

config A
	tristate "A"

config B
	bool "B"

config C
	string "C"
`

func TestConfig_SerializeRoundTrip(t *testing.T) {
	table := buildTable(t, configTestTree)

	cfg := kconfig.NewConfig()
	cfg.SetTristate("A", kconfig.Mod)
	cfg.SetTristate("B", kconfig.No)
	cfg.Set("C", "hello world")

	data := cfg.Serialize(table)

	reparsed, err := kconfig.ParseConfigData(data, ".config")
	require.NoError(t, err)

	require.Equal(t, "m", reparsed.Value("A"))
	require.Equal(t, "n", reparsed.Value("B"))
	require.Equal(t, "hello world", reparsed.Value("C"))

	require.Equal(t, data, reparsed.Serialize(table))
}

func TestConfig_ParseUnsetLine(t *testing.T) {
	cfg, err := kconfig.ParseConfigData([]byte("# CONFIG_A is not set\n"), ".config")
	require.NoError(t, err)

	require.True(t, cfg.Has("A"))
	require.Equal(t, "n", cfg.Value("A"))
}

func TestConfig_UnsetRemovesEntirely(t *testing.T) {
	cfg := kconfig.NewConfig()
	cfg.Set("A", "y")
	require.True(t, cfg.Has("A"))

	cfg.Unset("A")
	require.False(t, cfg.Has("A"))
	require.Equal(t, "", cfg.Value("A"))
}

func TestConfig_Clone(t *testing.T) {
	cfg := kconfig.NewConfig()
	cfg.Set("A", "y")

	clone := cfg.Clone()
	clone.Set("A", "n")

	require.Equal(t, "y", cfg.Value("A"))
	require.Equal(t, "n", clone.Value("A"))
}

func TestConfig_TristateDefaultsToNo(t *testing.T) {
	cfg := kconfig.NewConfig()
	require.Equal(t, kconfig.No, cfg.Tristate("MISSING"))
}

// TestConfig_MalformedLineReportsParseError covers spec.md §4.1/§7: a line
// matching none of the recognized .config forms is reported as a
// *ParseError naming its line number, but well-formed lines around it
// still get applied.
func TestConfig_MalformedLineReportsParseError(t *testing.T) {
	cfg, err := kconfig.ParseConfigData([]byte("CONFIG_A=y\nthis is not a config line\nCONFIG_B=m\n"), ".config")
	require.Error(t, err)

	var perr *kconfig.ParseError
	require.ErrorAs(t, err, &perr)
	require.Equal(t, 2, perr.LineNo)
	require.Equal(t, ".config", perr.File)

	require.Equal(t, "y", cfg.Value("A"))
	require.Equal(t, "m", cfg.Value("B"))
}

// TestConfig_MalformedLineReportsFirstOnly ensures only the first
// malformed line is surfaced even when several appear, per §4.1's
// "surfaces the first error after draining the file".
func TestConfig_MalformedLineReportsFirstOnly(t *testing.T) {
	_, err := kconfig.ParseConfigData([]byte("garbage one\nCONFIG_A=y\ngarbage two\n"), ".config")
	require.Error(t, err)

	var perr *kconfig.ParseError
	require.ErrorAs(t, err, &perr)
	require.Equal(t, 1, perr.LineNo)
}
