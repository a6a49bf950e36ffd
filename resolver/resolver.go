// SPDX-License-Identifier: Apache-2.0
// Copyright 2022 Unikraft GmbH. All rights reserved.

package resolver

import (
	"context"

	"kconfigure.sh/decision"
	"kconfigure.sh/kconfig"
	"kconfigure.sh/log"
)

// Resolver ties together the three phases of spec.md §4.5-§4.7 over a
// fixed symbol universe: build the dependency layers, expand decisions
// upward, apply them low to high, then run informed oldconfig downward to
// a fixpoint.
type Resolver struct {
	table *kconfig.Table
}

// New returns a Resolver over table. A single Resolver may be reused
// across any number of Resolve calls; the Table it wraps is read-only.
func New(table *kconfig.Table) *Resolver {
	return &Resolver{table: table}
}

// Resolve runs the full pipeline against base and the decisions recorded
// in store, returning a new, fully-resolved Config. base is never
// mutated. ctx is polled between Expand's layers and between Apply's
// layers and oldconfig's fixpoint iterations (§5); a cancelled context
// yields Cancelled and no partial output.
func (r *Resolver) Resolve(ctx context.Context, base *kconfig.Config, store *decision.Store) (*kconfig.Config, error) {
	decided := store.AsMap()
	log.G(ctx).Debugf("resolver: expanding %d decision(s)", len(decided))

	warnChoiceViolations(ctx, r.table, base)

	solution, err := expand(ctx, r.table, base.Lookup, decided)
	if err != nil {
		return nil, err
	}
	log.G(ctx).Debugf("resolver: expansion settled on %d assignment(s)", len(solution))

	partial, err := apply(ctx, r.table, base, solution)
	if err != nil {
		return nil, err
	}

	cfg := base.Clone()
	for _, name := range partial.Names() {
		cfg.Set(name, partial.Value(name))
	}

	if err := oldconfig(ctx, r.table, cfg, solution); err != nil {
		return nil, err
	}

	return cfg, nil
}

// warnChoiceViolations scans base for choice groups that already carry more
// than one builtin member before the solver touches anything. A violated
// group is not an error here, and Resolve does not reduce it to one builtin
// member: only members with a decision of their own change value. It means
// the base came from a different symbol universe or was hand-edited, which
// the user likely wants to know about.
func warnChoiceViolations(ctx context.Context, table *kconfig.Table, base *kconfig.Config) {
	seen := make(map[string]bool)
	for _, sym := range table.IterAll() {
		if sym.Choice == "" || seen[sym.Choice] {
			continue
		}
		seen[sym.Choice] = true

		var builtin []string
		for _, m := range table.ChoiceMembers(sym.Choice) {
			if base.Tristate(m.Name) == kconfig.Yes {
				builtin = append(builtin, m.Name)
			}
		}
		if len(builtin) > 1 {
			log.G(ctx).Warnf("base config enables %d members of the same choice group (%v)", len(builtin), builtin)
		}
	}
}
