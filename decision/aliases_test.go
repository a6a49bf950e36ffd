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

const driverTestTree = `mainmenu "Test"

config NET_E1000E
	tristate "e1000e"
`

func writeTestFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestModulesAliasFile_DriverModifier(t *testing.T) {
	table := buildTable(t, driverTestTree)
	store := decision.NewStore(table)

	symbolsPath := writeTestFile(t, "symbols", "e1000e NET_E1000E\n")
	aliases, err := decision.NewModulesAliasFile("", symbolsPath)
	require.NoError(t, err)

	interp := decision.NewInterpreter(table, store, aliases, "5.15.0")
	require.NoError(t, interp.RunString(context.Background(), []byte("module driver e1000e\n"), "."))

	vs, ok := store.Get("NET_E1000E")
	require.True(t, ok)
	require.True(t, vs.Contains(kconfig.Mod))
}

func TestModulesAliasFile_ModaliasModifier(t *testing.T) {
	table := buildTable(t, driverTestTree)
	store := decision.NewStore(table)

	aliasPath := writeTestFile(t, "modules.alias", "alias pci:v00008086d00001 e1000e\n")
	symbolsPath := writeTestFile(t, "symbols", "e1000e NET_E1000E\n")
	aliases, err := decision.NewModulesAliasFile(aliasPath, symbolsPath)
	require.NoError(t, err)

	interp := decision.NewInterpreter(table, store, aliases, "5.15.0")
	require.NoError(t, interp.RunString(context.Background(), []byte(`builtin modalias "pci:v00008086d00001"`+"\n"), "."))

	vs, ok := store.Get("NET_E1000E")
	require.True(t, ok)
	require.True(t, vs.Contains(kconfig.Yes))
}
