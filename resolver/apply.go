// SPDX-License-Identifier: Apache-2.0
// Copyright 2022 Unikraft GmbH. All rights reserved.

package resolver

import (
	"context"
	"sort"

	"kconfigure.sh/decision"
	"kconfigure.sh/kconfig"
)

// apply runs §4.7's Apply phase: it iterates the expanded solution's
// symbols layer by layer, low to high, validates each decision is still
// reachable given everything decided at lower layers, and writes the
// chosen value into a fresh, partial Config. base supplies the fallback
// lookup for any symbol the solution doesn't cover.
func apply(ctx context.Context, table *kconfig.Table, base *kconfig.Config, solution map[string]decision.ValueSet) (*kconfig.Config, error) {
	seeds := make([]string, 0, len(solution))
	for name := range solution {
		seeds = append(seeds, name)
	}
	sort.Strings(seeds)

	ls := layerize(buildGraph(table, seeds))
	partial := kconfig.NewConfig()

	lookup := func(name string) string {
		if partial.Has(name) {
			return partial.Value(name)
		}
		return base.Value(name)
	}

	for _, layer := range ls {
		select {
		case <-ctx.Done():
			return nil, Cancelled
		default:
		}

		for _, name := range layer {
			vs, ok := solution[name]
			if !ok {
				continue
			}
			sym := table.MustByName(name)

			if vs.IsLiteral {
				partial.Set(name, vs.Literal)
				continue
			}

			dirDep := sym.DirDep
			if dirDep == nil {
				dirDep = &kconfig.ConstExpr{V: kconfig.Yes}
			}
			vis := dirDep.Eval(lookup)

			revVal := kconfig.No
			if sym.RevDep != nil {
				revVal = sym.RevDep.Eval(lookup)
			}

			chosen, ok := pickReachableValue(vs, vis, revVal, sym.IsBooleanKind())
			if !ok {
				return nil, &UnreachableError{Symbol: name}
			}
			partial.Set(name, chosen.String())
		}
	}

	return partial, nil
}

// pickReachableValue narrows vs to the values consistent with
// revVal <= v <= vis, and returns the preferred one (M over Y) among what
// survives, per §4.7's "prefers M over Y for {M,Y}-decisions".
func pickReachableValue(vs decision.ValueSet, vis, revVal kconfig.Tristate, boolKind bool) (kconfig.Tristate, bool) {
	var reachable []kconfig.Tristate
	for _, t := range vs.Sorted() {
		v := t
		if boolKind {
			v = v.Bool()
		}
		if v > vis || v < revVal {
			continue
		}
		reachable = append(reachable, v)
	}
	if len(reachable) == 0 {
		return kconfig.No, false
	}

	filtered := decision.NewTristateSet(reachable...)
	return filtered.Preferred()
}
