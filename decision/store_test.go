// SPDX-License-Identifier: Apache-2.0
// Copyright 2022 Unikraft GmbH. All rights reserved.

package decision_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"kconfigure.sh/decision"
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

const testTree = `mainmenu "Test"

config A
	tristate "A"

config B
	string "B"

config C
	int "C"
`

// TestStore_MergeNarrows covers spec scenario 4's happy path: two requests
// on the same symbol intersect rather than the second overwriting the
// first.
func TestStore_MergeNarrows(t *testing.T) {
	table := buildTable(t, testTree)
	store := decision.NewStore(table)

	require.NoError(t, store.Merge(context.Background(), "A", decision.NewTristateSet(kconfig.Mod, kconfig.Yes)))
	require.NoError(t, store.Merge(context.Background(), "A", decision.NewTristateSet(kconfig.Yes)))

	vs, ok := store.Get("A")
	require.True(t, ok)
	require.True(t, vs.Contains(kconfig.Yes))
	require.False(t, vs.Contains(kconfig.Mod))
}

// TestStore_MergeConflict covers spec scenario 4's Conflict case: two
// requests whose value-sets don't intersect produce a ConflictError and
// leave the prior decision untouched.
func TestStore_MergeConflict(t *testing.T) {
	table := buildTable(t, testTree)
	store := decision.NewStore(table)

	require.NoError(t, store.Merge(context.Background(), "A", decision.NewTristateSet(kconfig.No)))
	err := store.Merge(context.Background(), "A", decision.NewTristateSet(kconfig.Yes))

	require.Error(t, err)
	var conflict *decision.ConflictError
	require.ErrorAs(t, err, &conflict)
	require.Equal(t, "A", conflict.Symbol)

	vs, ok := store.Get("A")
	require.True(t, ok)
	require.True(t, vs.Contains(kconfig.No))
}

// TestStore_Discard confirms a discarded decision no longer blocks a
// subsequent request that would otherwise conflict with it.
func TestStore_Discard(t *testing.T) {
	table := buildTable(t, testTree)
	store := decision.NewStore(table)

	require.NoError(t, store.Merge(context.Background(), "A", decision.NewTristateSet(kconfig.No)))
	store.Discard("A")
	_, ok := store.Get("A")
	require.False(t, ok)

	require.NoError(t, store.Merge(context.Background(), "A", decision.NewTristateSet(kconfig.Yes)))
	vs, ok := store.Get("A")
	require.True(t, ok)
	require.True(t, vs.Contains(kconfig.Yes))
}

func TestStore_MergeUnknownSymbol(t *testing.T) {
	table := buildTable(t, testTree)
	store := decision.NewStore(table)

	err := store.Merge(context.Background(), "NOPE", decision.NewTristateSet(kconfig.Yes))
	require.Error(t, err)
	var unknown *decision.UnknownSymbolError
	require.ErrorAs(t, err, &unknown)
}

func TestStore_AppendAndAdd(t *testing.T) {
	table := buildTable(t, testTree)
	store := decision.NewStore(table)

	require.NoError(t, store.Append("B", "foo"))
	require.NoError(t, store.Append("B", "bar"))
	vs, ok := store.Get("B")
	require.True(t, ok)
	require.Equal(t, "foo bar", vs.Literal)

	require.NoError(t, store.Add("C", "5"))
	require.NoError(t, store.Add("C", "3"))
	vs, ok = store.Get("C")
	require.True(t, ok)
	require.Equal(t, "8", vs.Literal)

	err := store.Add("A", "5")
	require.Error(t, err)
	var mismatch *decision.TypeMismatchError
	require.ErrorAs(t, err, &mismatch)
}

func TestStore_ApplyArgs(t *testing.T) {
	table := buildTable(t, testTree)
	store := decision.NewStore(table)

	err := store.ApplyArgs(context.Background(), decision.Args{
		Disable: []string{"A"},
		Set:     []string{"B=hello"},
	})
	require.NoError(t, err)

	vs, ok := store.Get("A")
	require.True(t, ok)
	require.True(t, vs.Contains(kconfig.No))

	vs, ok = store.Get("B")
	require.True(t, ok)
	require.Equal(t, "hello", vs.Literal)
}

func TestStore_ApplyArgsInvalidSet(t *testing.T) {
	table := buildTable(t, testTree)
	store := decision.NewStore(table)

	err := store.ApplyArgs(context.Background(), decision.Args{Set: []string{"NOEQUALS"}})
	require.Error(t, err)
}

func TestStore_ApplyArgsRejectsMistypedLiteral(t *testing.T) {
	table := buildTable(t, testTree)
	store := decision.NewStore(table)

	err := store.ApplyArgs(context.Background(), decision.Args{Set: []string{"C=hello"}})
	require.Error(t, err)
	var mismatch *decision.TypeMismatchError
	require.ErrorAs(t, err, &mismatch)
}
