// SPDX-License-Identifier: Apache-2.0
// Copyright 2022 Unikraft GmbH. All rights reserved.

package resolver_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"kconfigure.sh/decision"
	"kconfigure.sh/kconfig"
	"kconfigure.sh/resolver"
)

// buildTable parses src as a Kconfig tree and imports it into a Table,
// failing the test on any parse error.
func buildTable(t *testing.T, src string) *kconfig.Table {
	t.Helper()
	file, err := kconfig.ParseData([]byte(src), "Kconfig")
	require.NoError(t, err)
	table, err := kconfig.Import(file)
	require.NoError(t, err)
	return table
}

func parseBase(t *testing.T, src string) *kconfig.Config {
	t.Helper()
	cfg, err := kconfig.ParseConfigData([]byte(src), ".config")
	require.NoError(t, err)
	return cfg
}

// TestResolve_NoOp covers spec scenario 1: an already-satisfied base with
// no decisions comes back unchanged.
func TestResolve_NoOp(t *testing.T) {
	table := buildTable(t, `mainmenu "Test"

config A
	bool "A"
`)
	base := parseBase(t, "CONFIG_A=y\n")
	store := decision.NewStore(table)

	out, err := resolver.New(table).Resolve(context.Background(), base, store)
	require.NoError(t, err)
	require.Equal(t, "y", out.Value("A"))
}

// TestResolve_SimpleEnable covers spec scenario 2: B depends on A, A is
// already satisfied by the base, so only B changes.
func TestResolve_SimpleEnable(t *testing.T) {
	table := buildTable(t, `mainmenu "Test"

config A
	tristate "A"

config B
	tristate "B"
	depends on A
`)
	base := parseBase(t, "CONFIG_A=y\n")
	store := decision.NewStore(table)
	require.NoError(t, store.Merge(context.Background(), "B", decision.NewTristateSet(kconfig.Mod)))

	out, err := resolver.New(table).Resolve(context.Background(), base, store)
	require.NoError(t, err)
	require.Equal(t, "y", out.Value("A"))
	require.Equal(t, "m", out.Value("B"))
}

// TestResolve_UpwardExpansion covers spec scenario 3: A starts disabled,
// so enabling B forces A to the minimum-impact value (m, not y).
func TestResolve_UpwardExpansion(t *testing.T) {
	table := buildTable(t, `mainmenu "Test"

config A
	tristate "A"

config B
	tristate "B"
	depends on A
`)
	base := parseBase(t, "# CONFIG_A is not set\n")
	store := decision.NewStore(table)
	require.NoError(t, store.Merge(context.Background(), "B", decision.NewTristateSet(kconfig.Mod)))

	out, err := resolver.New(table).Resolve(context.Background(), base, store)
	require.NoError(t, err)
	require.Equal(t, "m", out.Value("A"))
	require.Equal(t, "m", out.Value("B"))
}

// TestResolve_InformedOldconfigDisable covers spec scenario 5: disabling a
// defaulted-on symbol leaves it off rather than falling through to its
// default.
func TestResolve_InformedOldconfigDisable(t *testing.T) {
	table := buildTable(t, `mainmenu "Test"

config D
	tristate "D"
	default y
`)
	base := kconfig.NewConfig()
	store := decision.NewStore(table)
	require.NoError(t, store.Merge(context.Background(), "D", decision.NewTristateSet(kconfig.No)))

	out, err := resolver.New(table).Resolve(context.Background(), base, store)
	require.NoError(t, err)
	require.Equal(t, "n", out.Value("D"))

	data := out.Serialize(table)
	require.Contains(t, string(data), "# CONFIG_D is not set")
}

// TestResolve_Choice covers spec scenario 6: forcing one member of a
// choice group builtin turns off every other member.
func TestResolve_Choice(t *testing.T) {
	table := buildTable(t, `mainmenu "Test"

choice
	prompt "Choice"
config C1
	bool "C1"
config C2
	bool "C2"
endchoice
`)
	base := kconfig.NewConfig()
	store := decision.NewStore(table)
	require.NoError(t, store.Merge(context.Background(), "C2", decision.NewTristateSet(kconfig.Yes)))

	out, err := resolver.New(table).Resolve(context.Background(), base, store)
	require.NoError(t, err)
	require.Equal(t, "n", out.Value("C1"))
	require.Equal(t, "y", out.Value("C2"))

	data := string(out.Serialize(table))
	require.Contains(t, data, "# CONFIG_C1 is not set")
	require.Contains(t, data, "CONFIG_C2=y")
}

// TestResolve_Deterministic covers the determinism property of §8: two
// independent runs over identical inputs produce byte-identical output.
func TestResolve_Deterministic(t *testing.T) {
	src := `mainmenu "Test"

config A
	tristate "A"

config B
	tristate "B"
	depends on A

config C
	tristate "C"
	depends on A && B
`
	run := func() []byte {
		table := buildTable(t, src)
		base := parseBase(t, "# CONFIG_A is not set\n")
		store := decision.NewStore(table)
		require.NoError(t, store.Merge(context.Background(), "C", decision.NewTristateSet(kconfig.Yes)))

		out, err := resolver.New(table).Resolve(context.Background(), base, store)
		require.NoError(t, err)
		return out.Serialize(table)
	}

	require.Equal(t, run(), run())
}

// TestResolve_OldconfigFixedPoint covers the "running oldconfig again makes
// no further changes" property of §8: resolving the already-resolved
// output with no new decisions reproduces it exactly.
func TestResolve_OldconfigFixedPoint(t *testing.T) {
	table := buildTable(t, `mainmenu "Test"

config A
	tristate "A"

config B
	tristate "B"
	depends on A
	default y
`)
	base := kconfig.NewConfig()
	store := decision.NewStore(table)
	require.NoError(t, store.Merge(context.Background(), "A", decision.NewTristateSet(kconfig.Yes)))

	first, err := resolver.New(table).Resolve(context.Background(), base, store)
	require.NoError(t, err)

	second, err := resolver.New(table).Resolve(context.Background(), first, decision.NewStore(table))
	require.NoError(t, err)

	require.Equal(t, first.Serialize(table), second.Serialize(table))
}

// TestResolve_OldconfigRespectsDependency ensures a defaulted-on symbol
// whose dependency is unmet is left out of the output entirely, rather
// than defaulting on regardless of visibility.
func TestResolve_OldconfigRespectsDependency(t *testing.T) {
	table := buildTable(t, `mainmenu "Test"

config A
	bool "A"

config B
	bool "B"
	depends on A
	default y
`)
	base := kconfig.NewConfig()
	store := decision.NewStore(table)

	out, err := resolver.New(table).Resolve(context.Background(), base, store)
	require.NoError(t, err)
	require.Equal(t, "n", out.Value("A"))
	require.False(t, out.Has("B"))

	store2 := decision.NewStore(table)
	require.NoError(t, store2.Merge(context.Background(), "A", decision.NewTristateSet(kconfig.Yes)))
	out2, err := resolver.New(table).Resolve(context.Background(), base, store2)
	require.NoError(t, err)
	require.Equal(t, "y", out2.Value("A"))
	require.Equal(t, "y", out2.Value("B"))
}

// TestResolve_ImplyNudgesDefault exercises the weak `imply` dependency:
// with no explicit decision or firing default, B still comes up enabled
// once A (which implies it) is builtin, but never overrides an explicit
// "n" decision on B itself.
func TestResolve_ImplyNudgesDefault(t *testing.T) {
	src := `mainmenu "Test"

config A
	bool "A"
	imply B

config B
	tristate "B"
`
	t.Run("imply fires with no default or decision", func(t *testing.T) {
		table := buildTable(t, src)
		base := kconfig.NewConfig()
		store := decision.NewStore(table)
		require.NoError(t, store.Merge(context.Background(), "A", decision.NewTristateSet(kconfig.Yes)))

		out, err := resolver.New(table).Resolve(context.Background(), base, store)
		require.NoError(t, err)
		require.Equal(t, "y", out.Value("A"))
		require.Equal(t, "y", out.Value("B"))
	})

	t.Run("explicit disable overrides imply", func(t *testing.T) {
		table := buildTable(t, src)
		base := kconfig.NewConfig()
		store := decision.NewStore(table)
		require.NoError(t, store.Merge(context.Background(), "A", decision.NewTristateSet(kconfig.Yes)))
		require.NoError(t, store.Merge(context.Background(), "B", decision.NewTristateSet(kconfig.No)))

		out, err := resolver.New(table).Resolve(context.Background(), base, store)
		require.NoError(t, err)
		require.Equal(t, "y", out.Value("A"))
		require.Equal(t, "n", out.Value("B"))
	})
}

// TestResolve_Unsatisfiable exercises UnsatisfiableError: B can never be
// built in because A is unconditionally disabled by its own decision.
func TestResolve_Unsatisfiable(t *testing.T) {
	table := buildTable(t, `mainmenu "Test"

config A
	tristate "A"

config B
	tristate "B"
	depends on A
`)
	base := kconfig.NewConfig()
	store := decision.NewStore(table)
	require.NoError(t, store.Merge(context.Background(), "A", decision.NewTristateSet(kconfig.No)))
	require.NoError(t, store.Merge(context.Background(), "B", decision.NewTristateSet(kconfig.Mod)))

	_, err := resolver.New(table).Resolve(context.Background(), base, store)
	require.Error(t, err)
	var unsat *resolver.UnsatisfiableError
	require.ErrorAs(t, err, &unsat)
	require.Equal(t, "B", unsat.Symbol)
}

// TestResolve_Cancelled ensures a cancelled context is honored before any
// expansion work happens.
func TestResolve_Cancelled(t *testing.T) {
	table := buildTable(t, `mainmenu "Test"

config A
	bool "A"
`)
	base := kconfig.NewConfig()
	store := decision.NewStore(table)
	require.NoError(t, store.Merge(context.Background(), "A", decision.NewTristateSet(kconfig.Yes)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := resolver.New(table).Resolve(ctx, base, store)
	require.ErrorIs(t, err, resolver.Cancelled)
}
