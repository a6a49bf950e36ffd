// SPDX-License-Identifier: Apache-2.0
// Copyright 2020 syzkaller project authors. All rights reserved.
// Copyright 2022 Unikraft GmbH. All rights reserved.

package kconfig

import "fmt"

// Import walks a parsed KConfigFile and assembles its Table: one Symbol per
// declared config/menuconfig, choice-group membership, and every select
// inverted into the target's rev_dep.
//
// Import is a pure function of the parse tree: it performs no evaluation,
// only structural assembly, so the same KConfigFile always yields the same
// Table regardless of environment.
func Import(file *KConfigFile) (*Table, error) {
	t := NewTable()
	choiceIDs := make(map[*KConfigMenu]string)
	var selects []Select

	var walk func(m *KConfigMenu, choice *KConfigMenu)
	walk = func(m *KConfigMenu, choice *KConfigMenu) {
		switch m.Kind {
		case MenuChoice:
			id, ok := choiceIDs[m]
			if !ok {
				id = fmt.Sprintf("choice@%s#%d", m.Source, len(choiceIDs))
				choiceIDs[m] = id
			}
			choice = m

		case MenuConfig, MenuMenuConfig:
			sym := importSymbol(m)
			if existing := t.add(sym); existing != sym {
				// A name can be declared at several sites (arch overlays,
				// menu re-entry via source); later sites contribute their
				// prompts/defaults/ranges, and either site's dependency
				// chain is enough to reach the symbol.
				existing.Prompts = append(existing.Prompts, sym.Prompts...)
				existing.Defaults = append(existing.Defaults, sym.Defaults...)
				existing.Ranges = append(existing.Ranges, sym.Ranges...)
				if existing.Kind == KindUnknown {
					existing.Kind = sym.Kind
				}
				existing.DirDep = orExpr(existing.DirDep, sym.DirDep)
				sym = existing
			}
			if choice != nil {
				id := choiceIDs[choice]
				sym.Choice = id
				t.addToChoice(id, sym.Name)
			}
			for _, sel := range m.Selects {
				selects = append(selects, Select{By: m.Name, Target: sel.Target, Cond: sel.Cond, Weak: false})
			}
			for _, sel := range m.Implies {
				selects = append(selects, Select{By: m.Name, Target: sel.Target, Cond: sel.Cond, Weak: true})
			}
		}

		for _, child := range m.Children {
			walk(child, choice)
		}
	}

	if file.Root != nil {
		walk(file.Root, nil)
	}

	applySelects(t, selects)

	return t, nil
}

// importSymbol converts a single KConfigMenu declaration site into a
// Symbol. DirDep defaults to Const(Yes): a config with no "depends on" and
// no enclosing "if" is unconditionally reachable.
func importSymbol(m *KConfigMenu) *Symbol {
	dirDep := exprAnd(m.dependsOn, nil)
	if dirDep == nil {
		dirDep = &ConstExpr{V: Yes}
	}

	sym := &Symbol{
		Name:   m.Name,
		Kind:   symbolKindOf(m.Type, m.Kind),
		DirDep: dirDep,
		Menu:   m,
	}

	prompts := m.Prompts
	if len(prompts) == 0 && m.Prompt.Text != "" {
		prompts = []KConfigPrompt{m.Prompt}
	}
	for _, p := range prompts {
		cond := exprAnd(m.visibleIf, p.Condition)
		sym.Prompts = append(sym.Prompts, Prompt{Text: p.Text, Condition: cond})
	}

	defaults := m.Defaults
	if len(defaults) == 0 && m.Default.Value != nil {
		defaults = []DefaultValue{m.Default}
	}
	for _, d := range defaults {
		sym.Defaults = append(sym.Defaults, Default{Value: d.Value, Condition: d.Condition})
	}

	for _, rc := range m.Ranges {
		r := rc.Range
		sym.Ranges = append(sym.Ranges, Range{Low: r.Low, High: r.High, Condition: rc.Condition})
	}

	return sym
}

// applySelects inverts the by-symbol select/imply declarations gathered
// during the walk into each target's RevDep/ImplyDep: the disjunction of
// (SELECTOR && COND) across every selector of that target.
func applySelects(t *Table, selects []Select) {
	for _, sel := range selects {
		target, ok := t.ByName(sel.Target)
		if !ok {
			// select of a symbol that doesn't exist in this tree (commonly
			// an arch-specific symbol outside the imported subtree); record
			// nothing, Expand/oldconfig only ever look up known symbols.
			continue
		}
		target.Selects = append(target.Selects, sel)

		var cond Expr = &SymbolExpr{Name: sel.By}
		if sel.Cond != nil {
			cond = &AndExpr{A: cond, B: sel.Cond}
		}

		if sel.Weak {
			target.ImplyDep = orExpr(target.ImplyDep, cond)
		} else {
			target.RevDep = orExpr(target.RevDep, cond)
		}
	}
}

func orExpr(a, b Expr) Expr {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return &OrExpr{A: a, B: b}
}
