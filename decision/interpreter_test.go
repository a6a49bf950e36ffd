// SPDX-License-Identifier: Apache-2.0
// Copyright 2022 Unikraft GmbH. All rights reserved.

package decision_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"kconfigure.sh/decision"
	"kconfigure.sh/kconfig"
)

const interpTestTree = `mainmenu "Test"

config NET_VENDOR_INTEL
	tristate "Intel"

config NET_VENDOR_BROADCOM
	tristate "Broadcom"

config MY_STRING
	string "s"
`

func TestInterpreter_RunStringBasicVerbs(t *testing.T) {
	table := buildTable(t, interpTestTree)
	store := decision.NewStore(table)
	interp := decision.NewInterpreter(table, store, nil, "5.15.0")

	src := `module NET_VENDOR_INTEL
disable NET_VENDOR_BROADCOM
set MY_STRING = "hello"
`
	require.NoError(t, interp.RunString(context.Background(), []byte(src), "."))

	vs, ok := store.Get("NET_VENDOR_INTEL")
	require.True(t, ok)
	require.True(t, vs.Contains(kconfig.Mod))

	vs, ok = store.Get("NET_VENDOR_BROADCOM")
	require.True(t, ok)
	require.True(t, vs.Contains(kconfig.No))

	vs, ok = store.Get("MY_STRING")
	require.True(t, ok)
	require.Equal(t, "hello", vs.Literal)
}

// TestInterpreter_SetOnTristateParsesValue covers spec.md §4.4's `set` row
// for tristate/bool symbols ("any" value), which takes a bare y/m/n token —
// the same token the lexer also recognizes as the short verb forms.
func TestInterpreter_SetOnTristateParsesValue(t *testing.T) {
	table := buildTable(t, interpTestTree)
	store := decision.NewStore(table)
	interp := decision.NewInterpreter(table, store, nil, "5.15.0")

	src := `set NET_VENDOR_INTEL = y
set NET_VENDOR_BROADCOM m
`
	require.NoError(t, interp.RunString(context.Background(), []byte(src), "."))

	vs, ok := store.Get("NET_VENDOR_INTEL")
	require.True(t, ok)
	require.False(t, vs.IsLiteral)
	require.True(t, vs.Contains(kconfig.Yes))

	vs, ok = store.Get("NET_VENDOR_BROADCOM")
	require.True(t, ok)
	require.False(t, vs.IsLiteral)
	require.True(t, vs.Contains(kconfig.Mod))
}

// TestInterpreter_SetOnTristateRejectsBadValue covers the TypeMismatchError
// path when `set`'s value isn't a valid tristate literal.
func TestInterpreter_SetOnTristateRejectsBadValue(t *testing.T) {
	table := buildTable(t, interpTestTree)
	store := decision.NewStore(table)
	interp := decision.NewInterpreter(table, store, nil, "5.15.0")

	err := interp.RunString(context.Background(), []byte(`set NET_VENDOR_INTEL = "maybe"`+"\n"), ".")
	require.Error(t, err)
}

func TestInterpreter_GuardSkipsWhenFalse(t *testing.T) {
	table := buildTable(t, interpTestTree)
	store := decision.NewStore(table)
	interp := decision.NewInterpreter(table, store, nil, "5.15.0")

	src := `builtin NET_VENDOR_INTEL if kver >= 6.0
`
	require.NoError(t, interp.RunString(context.Background(), []byte(src), "."))

	_, ok := store.Get("NET_VENDOR_INTEL")
	require.False(t, ok, "guard should have been false for a kernel older than 6.0")
}

func TestInterpreter_GuardAppliesWhenTrue(t *testing.T) {
	table := buildTable(t, interpTestTree)
	store := decision.NewStore(table)
	interp := decision.NewInterpreter(table, store, nil, "6.5.2")

	src := `builtin NET_VENDOR_INTEL if kver >= 6.0
`
	require.NoError(t, interp.RunString(context.Background(), []byte(src), "."))

	vs, ok := store.Get("NET_VENDOR_INTEL")
	require.True(t, ok)
	require.True(t, vs.Contains(kconfig.Yes))
}

func TestInterpreter_ModuleOnUnknownSymbolErrors(t *testing.T) {
	table := buildTable(t, interpTestTree)
	store := decision.NewStore(table)
	interp := decision.NewInterpreter(table, store, nil, "5.15.0")

	err := interp.RunString(context.Background(), []byte("module DOES_NOT_EXIST\n"), ".")
	require.Error(t, err)
}

func TestInterpreter_DiscardClearsDecision(t *testing.T) {
	table := buildTable(t, interpTestTree)
	store := decision.NewStore(table)
	interp := decision.NewInterpreter(table, store, nil, "5.15.0")

	src := `disable NET_VENDOR_INTEL
discard NET_VENDOR_INTEL
`
	require.NoError(t, interp.RunString(context.Background(), []byte(src), "."))

	_, ok := store.Get("NET_VENDOR_INTEL")
	require.False(t, ok)
}

// TestInterpreter_ShortVerbForms covers spec.md §4.4's short aliases for
// the tristate verbs (n/m/y/ym for disable/module/builtin/
// builtin-or-module), which must parse and behave identically to their
// long forms.
func TestInterpreter_ShortVerbForms(t *testing.T) {
	table := buildTable(t, interpTestTree)
	store := decision.NewStore(table)
	interp := decision.NewInterpreter(table, store, nil, "5.15.0")

	src := `n NET_VENDOR_BROADCOM
m NET_VENDOR_INTEL
`
	require.NoError(t, interp.RunString(context.Background(), []byte(src), "."))

	vs, ok := store.Get("NET_VENDOR_BROADCOM")
	require.True(t, ok)
	require.True(t, vs.Contains(kconfig.No))

	vs, ok = store.Get("NET_VENDOR_INTEL")
	require.True(t, ok)
	require.True(t, vs.Contains(kconfig.Mod))
}

// TestInterpreter_ShortVerbFormBuiltinOrModule covers the "y"/"ym"
// aliases specifically, since both start with the same letter as "y"
// alone and must not be confused by the lexer.
func TestInterpreter_ShortVerbFormBuiltinOrModule(t *testing.T) {
	table := buildTable(t, interpTestTree)
	store := decision.NewStore(table)
	interp := decision.NewInterpreter(table, store, nil, "5.15.0")

	src := `y NET_VENDOR_BROADCOM
ym NET_VENDOR_INTEL
`
	require.NoError(t, interp.RunString(context.Background(), []byte(src), "."))

	vs, ok := store.Get("NET_VENDOR_BROADCOM")
	require.True(t, ok)
	require.True(t, vs.Contains(kconfig.Yes))

	vs, ok = store.Get("NET_VENDOR_INTEL")
	require.True(t, ok)
	require.True(t, vs.Contains(kconfig.Mod))
	require.True(t, vs.Contains(kconfig.Yes))
}

// TestInterpreter_LineContinuation covers spec.md §6: a line ending in a
// backslash continues onto the next physical line as one statement.
func TestInterpreter_LineContinuation(t *testing.T) {
	table := buildTable(t, interpTestTree)
	store := decision.NewStore(table)
	interp := decision.NewInterpreter(table, store, nil, "6.5.2")

	src := "builtin NET_VENDOR_INTEL \\\n  if kver >= 6.0\n"
	require.NoError(t, interp.RunString(context.Background(), []byte(src), "."))

	vs, ok := store.Get("NET_VENDOR_INTEL")
	require.True(t, ok)
	require.True(t, vs.Contains(kconfig.Yes))
}

// TestInterpreter_LineContinuationChain covers a continuation spanning
// more than two physical lines.
func TestInterpreter_LineContinuationChain(t *testing.T) {
	table := buildTable(t, interpTestTree)
	store := decision.NewStore(table)
	interp := decision.NewInterpreter(table, store, nil, "5.15.0")

	src := "disable \\\n  NET_VENDOR_INTEL \\\n  NET_VENDOR_BROADCOM\n"
	require.NoError(t, interp.RunString(context.Background(), []byte(src), "."))

	vs, ok := store.Get("NET_VENDOR_INTEL")
	require.True(t, ok)
	require.True(t, vs.Contains(kconfig.No))

	vs, ok = store.Get("NET_VENDOR_BROADCOM")
	require.True(t, ok)
	require.True(t, vs.Contains(kconfig.No))
}

// TestInterpreter_IncludeRunsFile covers the `include FILE` verb: the named
// file is parsed and executed relative to the including file's directory.
func TestInterpreter_IncludeRunsFile(t *testing.T) {
	table := buildTable(t, interpTestTree)
	store := decision.NewStore(table)
	interp := decision.NewInterpreter(table, store, nil, "5.15.0")

	dir := t.TempDir()
	included := filepath.Join(dir, "extra.dsl")
	require.NoError(t, os.WriteFile(included, []byte("module NET_VENDOR_INTEL\n"), 0o644))

	require.NoError(t, interp.RunString(context.Background(), []byte(`include "extra.dsl"`+"\n"), dir))

	vs, ok := store.Get("NET_VENDOR_INTEL")
	require.True(t, ok)
	require.True(t, vs.Contains(kconfig.Mod))
}

// fakeProducer is a stand-in for the hardware-detect/packages collaborator.
type fakeProducer struct {
	stmts []decision.Statement
}

func (p fakeProducer) Produce(context.Context, *kconfig.Table) ([]decision.Statement, error) {
	return p.stmts, nil
}

// TestInterpreter_HardwareDetectDelegates covers the `hardware-detect` verb:
// the configured RequestProducer's statements are executed in place.
func TestInterpreter_HardwareDetectDelegates(t *testing.T) {
	table := buildTable(t, interpTestTree)
	store := decision.NewStore(table)
	interp := decision.NewInterpreter(table, store, nil, "5.15.0").
		WithRequestProducer(fakeProducer{stmts: []decision.Statement{
			{Verb: "module", Targets: []string{"NET_VENDOR_INTEL"}},
		}})

	require.NoError(t, interp.RunString(context.Background(), []byte("hardware-detect\n"), "."))

	vs, ok := store.Get("NET_VENDOR_INTEL")
	require.True(t, ok)
	require.True(t, vs.Contains(kconfig.Mod))
}

// TestInterpreter_ExistsGuardDowngradesUnknownSymbol covers the §7 rule
// that an `exists` guard turns UnknownSymbolError into a skipped
// statement, while any other guard leaves the hard error in place.
func TestInterpreter_ExistsGuardDowngradesUnknownSymbol(t *testing.T) {
	table := buildTable(t, interpTestTree)
	store := decision.NewStore(table)
	interp := decision.NewInterpreter(table, store, nil, "5.15.0")

	src := `module DOES_NOT_EXIST if exists NET_VENDOR_INTEL
`
	require.NoError(t, interp.RunString(context.Background(), []byte(src), "."))
	_, ok := store.Get("DOES_NOT_EXIST")
	require.False(t, ok)

	err := interp.RunString(context.Background(), []byte("module DOES_NOT_EXIST if true\n"), ".")
	require.Error(t, err)
	var unknown *decision.UnknownSymbolError
	require.ErrorAs(t, err, &unknown)
}
