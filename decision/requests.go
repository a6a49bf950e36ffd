// SPDX-License-Identifier: Apache-2.0
// Copyright 2022 Unikraft GmbH. All rights reserved.

package decision

import (
	"context"
	"fmt"
	"strings"

	"kconfigure.sh/kconfig"
)

// Args collects the simple CLI-flag form of the requests the DSL otherwise
// expresses: `--set FOO=y`, `--disable FOO`, `--module FOO`, `--builtin
// FOO`. It mirrors the teacher's own component.KConfig-from-flags pattern
// (kraft set/kraft unset) so kconfigure generate works without a DSL file
// for the common case.
type Args struct {
	Disable []string
	Module  []string
	Builtin []string
	Either  []string
	Set     []string // "NAME=VALUE"
}

// ApplyArgs turns Args into decision-store requests, in the same order the
// flags were declared: disable, module, builtin, either, set.
func (s *Store) ApplyArgs(ctx context.Context, a Args) error {
	for _, name := range a.Disable {
		if err := s.Merge(ctx, name, NewTristateSet(kconfig.No)); err != nil {
			return err
		}
	}
	for _, name := range a.Module {
		if err := s.Merge(ctx, name, NewTristateSet(kconfig.Mod)); err != nil {
			return err
		}
	}
	for _, name := range a.Builtin {
		if err := s.Merge(ctx, name, NewTristateSet(kconfig.Yes)); err != nil {
			return err
		}
	}
	for _, name := range a.Either {
		if err := s.Merge(ctx, name, NewTristateSet(kconfig.Mod, kconfig.Yes)); err != nil {
			return err
		}
	}
	for _, kv := range a.Set {
		name, value, ok := strings.Cut(kv, "=")
		if !ok {
			return fmt.Errorf("invalid --set value %q, expected NAME=VALUE", kv)
		}
		sym, found := s.table.ByName(name)
		if !found {
			return &UnknownSymbolError{Symbol: name}
		}
		var vs ValueSet
		switch sym.Kind {
		case kconfig.KindTristate, kconfig.KindBool, kconfig.KindChoice:
			t, ok := kconfig.ParseTristate(value)
			if !ok {
				return &TypeMismatchError{Symbol: name, Verb: "set", Detail: "expected y/m/n"}
			}
			vs = NewTristateSet(t)
		default:
			if err := sym.ValidateValue(value); err != nil {
				return &TypeMismatchError{Symbol: name, Verb: "set", Detail: err.Error()}
			}
			vs = NewLiteralSet(value)
		}
		if err := s.Merge(ctx, name, vs); err != nil {
			return err
		}
	}
	return nil
}
