// SPDX-License-Identifier: Apache-2.0
// Copyright 2022 Unikraft GmbH. All rights reserved.

package resolver

import (
	"context"

	"kconfigure.sh/decision"
	"kconfigure.sh/kconfig"
)

// oldconfig runs the informed-oldconfig fixpoint of §4.7 directly against
// cfg, which the caller has already seeded with the base Config overridden
// by Apply's partial Config. decisions is the fully-expanded solution,
// consulted for the "disable" shortcut (a decision pinned to {N}
// short-circuits defaulting once the symbol becomes visible) and, in
// assignChoice, for a choice member decided Y.
//
// The fixpoint terminates because each iteration either assigns every
// still-undecided visible symbol (shrinking the visible-and-undecided set
// to empty) or a choice group's winner, and visibility of any symbol only
// ever depends on already-assigned upper-layer values.
func oldconfig(ctx context.Context, table *kconfig.Table, cfg *kconfig.Config, decisions map[string]decision.ValueSet) error {
	lookup := cfg.Lookup

	for {
		select {
		case <-ctx.Done():
			return Cancelled
		default:
		}

		var newSyms []*kconfig.Symbol
		for _, sym := range table.IterAll() {
			if cfg.Has(sym.Name) {
				continue
			}
			if !isVisible(sym, lookup) {
				continue
			}
			newSyms = append(newSyms, sym)
		}
		if len(newSyms) == 0 {
			return nil
		}

		handledChoice := make(map[string]bool)
		for _, sym := range newSyms {
			if cfg.Has(sym.Name) {
				continue // assigned earlier this pass, as another member's choice group
			}

			if sym.Choice != "" {
				if handledChoice[sym.Choice] {
					continue
				}
				handledChoice[sym.Choice] = true
				assignChoice(table, cfg, decisions, sym.Choice, lookup)
				continue
			}

			if vs, forced := decisions[sym.Name]; forced && isForcedNo(vs) {
				cfg.Set(sym.Name, kconfig.No.String())
				continue
			}

			cfg.Set(sym.Name, defaultValueFor(sym, lookup))
		}
	}
}

// isForcedNo reports whether vs is exactly the {N} decision (§4.7's
// `decisions[s] = {N}` shortcut).
func isForcedNo(vs decision.ValueSet) bool {
	return !vs.IsLiteral && len(vs.Tristates) == 1 && vs.Tristates[kconfig.No]
}

// isVisible reports whether sym can be asked at all: its prompt's own
// condition holds, and its dir_dep (the accumulated "depends on" chain)
// hasn't shut it off. A symbol can carry a value via select without ever
// being visible; oldconfig only concerns itself with the visible set.
func isVisible(sym *kconfig.Symbol, lookup kconfig.Lookup) bool {
	if !sym.HasVisiblePrompt(lookup) {
		return false
	}
	if sym.DirDep == nil {
		return true
	}
	return sym.DirDep.Eval(lookup) != kconfig.No
}

// assignChoice resolves one active choice group in a single step: the
// winner is (a) a member with an explicit Y decision, else (b) the first
// member whose own default fires, else (c) the first visible member.
// Every other member, visible or not, becomes N.
func assignChoice(table *kconfig.Table, cfg *kconfig.Config, decisions map[string]decision.ValueSet, choiceID string, lookup kconfig.Lookup) {
	members := table.ChoiceMembers(choiceID)

	var winner *kconfig.Symbol
	for _, m := range members {
		if vs, ok := decisions[m.Name]; ok && !vs.IsLiteral && len(vs.Tristates) == 1 && vs.Tristates[kconfig.Yes] {
			winner = m
			break
		}
	}
	if winner == nil {
		for _, m := range members {
			if def := m.DefaultValue(lookup); def != nil && def.Eval(lookup) != kconfig.No {
				winner = m
				break
			}
		}
	}
	if winner == nil {
		for _, m := range members {
			if isVisible(m, lookup) {
				winner = m
				break
			}
		}
	}

	for _, m := range members {
		if winner != nil && m.Name == winner.Name {
			cfg.Set(m.Name, kconfig.Yes.String())
		} else {
			cfg.Set(m.Name, kconfig.No.String())
		}
	}
}

// defaultValueFor computes first-applicable-default(s) of §4.7: the first
// Default whose Condition holds contributes its Value, clamped to what
// vis(s) allows (dir_dep conjoined with the strongest visible prompt
// condition, per spec.md §3); absent any applicable default, a tristate/bool
// symbol still picks up a weak `imply` nudge toward M/Y if one targets it,
// and only falls back to N if neither applies. string/int/hex fall back to
// their empty/zero literal.
func defaultValueFor(sym *kconfig.Symbol, lookup kconfig.Lookup) string {
	def := sym.DefaultValue(lookup)

	switch sym.Kind {
	case kconfig.KindString, kconfig.KindInt, kconfig.KindHex:
		if def == nil {
			return zeroLiteral(sym.Kind)
		}
		if lit, ok := def.(*kconfig.LiteralExpr); ok {
			return lit.Value
		}
		if ref, ok := def.(*kconfig.SymbolExpr); ok {
			return lookup(ref.Name)
		}
		return zeroLiteral(sym.Kind)

	default: // Tristate, Bool (Choice never appears: no table entry carries it)
		vis := sym.DirDep.Eval(lookup).And(sym.PromptVisibility(lookup))
		if sym.IsBooleanKind() {
			vis = vis.Bool()
		}

		if def == nil {
			if sym.ImplyDep == nil {
				return kconfig.No.String()
			}
			implied := sym.ImplyDep.Eval(lookup)
			if sym.IsBooleanKind() {
				implied = implied.Bool()
			}
			if implied > vis {
				implied = vis
			}
			return implied.String()
		}

		v := def.Eval(lookup)
		if sym.IsBooleanKind() {
			v = v.Bool()
		}
		if v > vis {
			v = vis
		}
		return v.String()
	}
}

// zeroLiteral is the value a scalar symbol takes when no default applies:
// the empty string for string symbols, zero for int/hex.
func zeroLiteral(kind kconfig.SymbolKind) string {
	switch kind {
	case kconfig.KindInt:
		return "0"
	case kconfig.KindHex:
		return "0x0"
	default:
		return ""
	}
}
