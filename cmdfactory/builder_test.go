// SPDX-License-Identifier: Apache-2.0
// Copyright 2022 Acorn Labs, Inc; All rights reserved.
// Copyright 2022 Unikraft GmbH; All rights reserved.
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
package cmdfactory

import (
	"os"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

func TestAttributeFlags_StructFields(t *testing.T) {
	run := func(t *testing.T, obj any, args ...string) {
		t.Helper()

		cmd := makeCommand("kconfigure", "generate", "from-toml")

		allArgs := append(args, "generate", "from-toml")
		os.Args = append([]string{os.Args[1]}, allArgs...)

		// AttributeFlags also populates cmd's private flag fields.
		if err := AttributeFlags(cmd, obj, allArgs...); err != nil {
			t.Fatal("Failed to associate flags with struct fields:", err)
		}

		// Execute command to invoke cmd.RunE. This runs the middleware
		// bindPostParse installs, which copies parsed flag values back
		// onto the struct fields.
		if _, err := cmd.ExecuteC(); err != nil {
			t.Fatal("Failed to execute command:", err)
		}
	}

	type testTarget struct {
		String string            `long:"string" usage:"String arg"`
		Int    int               `long:"int" usage:"Integer arg"`
		Bool   bool              `long:"bool" usage:"Boolean arg"`
		Slice  []string          `long:"slice" usage:"Slice arg"`
		Map    map[string]string `long:"map" usage:"Map arg"`
		Nested struct {
			String string            `long:"n-string" usage:"Nested string arg"`
			Int    int               `long:"n-int" usage:"Nested integer arg"`
			Bool   bool              `long:"n-bool" usage:"Nested boolean arg"`
			Slice  []string          `long:"n-slice" usage:"Nested slice arg"`
			Map    map[string]string `long:"n-map" usage:"Nested map arg"`
		}
	}

	t.Run("String fields", func(t *testing.T) {
		obj := &testTarget{}
		run(t, obj, "--string=val", "--n-string=n-val")
		if expect, got := "val", obj.String; expect != got {
			t.Errorf("Unexpected value for string struct field after flags attribution. Expected %q, got %q", expect, got)
		}
		if expect, got := "n-val", obj.Nested.String; expect != got {
			t.Errorf("Unexpected value for nested string struct field after flags attribution. Expected %q, got %q", expect, got)
		}
	})

	t.Run("Integer fields", func(t *testing.T) {
		obj := &testTarget{}
		run(t, obj, "--int=1", "--n-int=2")
		if expect, got := 1, obj.Int; expect != got {
			t.Errorf("Unexpected value for int struct field after flags attribution. Expected %d, got %d", expect, got)
		}
		if expect, got := 2, obj.Nested.Int; expect != got {
			t.Errorf("Unexpected value for nested int struct field after flags attribution. Expected %d, got %d", expect, got)
		}
	})

	t.Run("Boolean fields", func(t *testing.T) {
		obj := &testTarget{}
		run(t, obj, "--bool=true", "--n-bool=true")
		if expect, got := true, obj.Bool; expect != got {
			t.Errorf("Unexpected value for bool struct field after flags attribution. Expected %t, got %t", expect, got)
		}
		if expect, got := true, obj.Nested.Bool; expect != got {
			t.Errorf("Unexpected value for nested bool struct field after flags attribution. Expected %t, got %t", expect, got)
		}
	})

	t.Run("Slice fields", func(t *testing.T) {
		obj := &testTarget{}
		run(t, obj, "--slice=val1", "--slice=val2", "--n-slice=val1,val2")
		if expect, got := []string{"val1", "val2"}, obj.Slice; !equalSlices(got, expect) {
			t.Errorf("Unexpected value for slice struct field after flags attribution. Expected %v, got %v", expect, got)
		}
		if expect, got := []string{"val1", "val2"}, obj.Nested.Slice; !equalSlices(got, expect) {
			t.Errorf("Unexpected value for nested slice struct field after flags attribution. Expected %v, got %v", expect, got)
		}
	})

	t.Run("Map fields", func(t *testing.T) {
		obj := &testTarget{}
		run(t, obj, "--map=key=val", "--n-map=key=val")
		if expect, got := map[string]string{"key": "val"}, obj.Map; !equalMaps(got, expect) {
			t.Errorf("Unexpected value for map struct field after flags attribution. Expected %v, got %v", expect, got)
		}
		if expect, got := map[string]string{"key": "val"}, obj.Nested.Map; !equalMaps(got, expect) {
			t.Errorf("Unexpected value for nested map struct field after flags attribution. Expected %v, got %v", expect, got)
		}
	})
}

func TestFilterOutRegisteredFlags(t *testing.T) {
	origOverrides := copyFlagOverrides()
	t.Cleanup(func() { flagOverrides = origOverrides })

	flagOverrides = map[string][]*pflag.Flag{
		"kconfigure generate":             makeStringFlags("generate-override1", "generate-override2"),
		"kconfigure dump":                 makeStringFlags("dump-override1", "dump-override2"),
		"kconfigure generate from-toml":   makeStringFlags("from-toml-override1", "from-toml-override2"),
		"kconfigure generate from-fields": makeStringFlags("from-fields-override1", "from-fields-override2"),
	}

	cmd := makeCommand("kconfigure", "generate", "from-toml")

	testCases := []struct {
		desc   string
		args   []string
		expect []string
	}{
		{
			desc:   "args do not contain registered flags",
			args:   []string{"-v", "-w", "wval", "-x=xval", "--y", "yval", "--z=zval"},
			expect: []string{"-v", "-w", "wval", "-x=xval", "--y", "yval", "--z=zval"},
		},
		{
			desc:   "args contain registered flags in long format",
			args:   []string{"--from-toml-override1", "val1", "--from-toml-override2=val2", "--y", "yval", "--z=zval"},
			expect: []string{"--y", "yval", "--z=zval"},
		},
		{
			// unikraft/kraftkit#552
			desc:   "args contain flags with empty values",
			args:   []string{"--from-toml-override1", "", "--from-toml-override2=", "-v", "-w", "", "-x=", "--y", "", "--z="},
			expect: []string{"-v", "-w", "", "-x=", "--y", "", "--z="},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			args := filterOutRegisteredFlags(cmd, tc.args)

			if !equalSlices(args, tc.expect) {
				t.Errorf("Expected filtered args\n%q\ngot\n%q", tc.expect, args)
			}
		})
	}
}

// makeCommand produces a command with the given hierarchy of subcommands, and
// returns the deepest command.
func makeCommand(hierarchy ...string) *cobra.Command {
	var parent *cobra.Command

	for _, name := range hierarchy {
		cmd := &cobra.Command{
			Use:  name + " [-F file | -D dir]... [-f format] something",
			RunE: func(*cobra.Command, []string) error { return nil },
		}
		if parent != nil {
			parent.AddCommand(cmd)
		}
		parent = cmd
	}

	return parent
}

// testStringValue is a minimal pflag.Value backing the fixture flags
// makeStringFlags builds; the production flag-value types that used to
// live alongside AttributeFlags were dropped as dead code, so the test
// fixture carries its own.
type testStringValue string

func (v *testStringValue) String() string   { return string(*v) }
func (v *testStringValue) Set(s string) error { *v = testStringValue(s); return nil }
func (v *testStringValue) Type() string     { return "string" }

// makeStringFlags returns string-valued pflag.Flag instances with the
// given names, for exercising the flag-override machinery without
// wiring them through a real cobra.Command.
func makeStringFlags(names ...string) []*pflag.Flag {
	flags := make([]*pflag.Flag, 0, len(names))

	for _, n := range names {
		val := testStringValue("default")
		flags = append(flags, &pflag.Flag{
			Name:     n,
			Usage:    "a test flag",
			Value:    &val,
			DefValue: "default",
		})
	}

	return flags
}

// copyFlagOverrides returns a copy of the global flagOverrides map.
func copyFlagOverrides() map[string][]*pflag.Flag {
	cpy := make(map[string][]*pflag.Flag, len(flagOverrides))
	for cmdline, flags := range flagOverrides {
		cpy[cmdline] = flags
	}
	return cpy
}

func equalSlices(got, expect []string) bool {
	if len(got) != len(expect) {
		return false
	}

	for i := 0; i < len(got); i++ {
		if got[i] != expect[i] {
			return false
		}
	}

	return true
}

func equalMaps(got, expect map[string]string) bool {
	if len(got) != len(expect) {
		return false
	}

	for k, gv := range got {
		if ev, ok := expect[k]; !ok || ev != gv {
			return false
		}
	}

	return true
}
