// SPDX-License-Identifier: Apache-2.0
// Copyright 2022 Unikraft GmbH. All rights reserved.

package decision_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"kconfigure.sh/decision"
	"kconfigure.sh/kconfig"
)

func TestValueSet_IntersectTristate(t *testing.T) {
	a := decision.NewTristateSet(kconfig.Mod, kconfig.Yes)
	b := decision.NewTristateSet(kconfig.Yes, kconfig.No)

	got := a.Intersect(b)
	require.True(t, got.Contains(kconfig.Yes))
	require.False(t, got.Contains(kconfig.Mod))
	require.False(t, got.Contains(kconfig.No))
	require.False(t, got.Empty())
}

func TestValueSet_IntersectEmpty(t *testing.T) {
	a := decision.NewTristateSet(kconfig.No)
	b := decision.NewTristateSet(kconfig.Yes)

	got := a.Intersect(b)
	require.True(t, got.Empty())
}

func TestValueSet_IntersectLiteral(t *testing.T) {
	a := decision.NewLiteralSet("eth0")
	same := decision.NewLiteralSet("eth0")
	diff := decision.NewLiteralSet("eth1")

	require.False(t, a.Intersect(same).Empty())
	require.True(t, a.Intersect(diff).Empty())
}

func TestValueSet_PreferredPrefersModule(t *testing.T) {
	vs := decision.NewTristateSet(kconfig.Mod, kconfig.Yes)
	pref, ok := vs.Preferred()
	require.True(t, ok)
	require.Equal(t, kconfig.Mod, pref)
}

func TestValueSet_PreferredSingleton(t *testing.T) {
	vs := decision.NewTristateSet(kconfig.Yes)
	pref, ok := vs.Preferred()
	require.True(t, ok)
	require.Equal(t, kconfig.Yes, pref)
}

func TestValueSet_String(t *testing.T) {
	require.Equal(t, "{m,y}", decision.NewTristateSet(kconfig.Yes, kconfig.Mod).String())
	require.Equal(t, `"eth0"`, decision.NewLiteralSet("eth0").String())
}
