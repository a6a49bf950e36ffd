// SPDX-License-Identifier: Apache-2.0
// Copyright 2020 syzkaller project authors. All rights reserved.
// Copyright 2022 Unikraft GmbH. All rights reserved.

package kconfig

// Table is the resolved symbol universe produced by Import: every config
// declared anywhere in the Kconfig tree, indexed by name, plus the
// choice-group membership derived from the parse tree's structure.
//
// Iteration order is the order symbols were first declared in the source
// (depth-first, in menu order), not map order, so two imports of the same
// tree produce identical Expand/oldconfig traversal order.
type Table struct {
	order   []string
	symbols map[string]*Symbol
	choices map[string][]string
}

// NewTable returns an empty Table, exported for tests that build one by
// hand instead of going through Import.
func NewTable() *Table {
	return &Table{
		symbols: make(map[string]*Symbol),
		choices: make(map[string][]string),
	}
}

// ByName looks up a symbol by its CONFIG_-stripped name.
func (t *Table) ByName(name string) (*Symbol, bool) {
	s, ok := t.symbols[name]
	return s, ok
}

// MustByName is a convenience for call sites that have already validated
// the name exists (e.g. iterating t.IterAll()).
func (t *Table) MustByName(name string) *Symbol {
	return t.symbols[name]
}

// IterAll returns every symbol in stable declaration order.
func (t *Table) IterAll() []*Symbol {
	out := make([]*Symbol, 0, len(t.order))
	for _, name := range t.order {
		out = append(out, t.symbols[name])
	}
	return out
}

// Len reports the number of symbols in the table.
func (t *Table) Len() int { return len(t.order) }

// ChoiceMembers returns the symbols belonging to the named anonymous choice
// group, in declaration order.
func (t *Table) ChoiceMembers(choice string) []*Symbol {
	names := t.choices[choice]
	out := make([]*Symbol, 0, len(names))
	for _, n := range names {
		if s, ok := t.symbols[n]; ok {
			out = append(out, s)
		}
	}
	return out
}

// add registers s, appending to the declaration order the first time a
// given name is seen and merging additional declarations (menu re-entry via
// `source`, multiple `config FOO` stanzas for the same FOO) into the
// existing Symbol otherwise.
func (t *Table) add(s *Symbol) *Symbol {
	if existing, ok := t.symbols[s.Name]; ok {
		return existing
	}
	t.symbols[s.Name] = s
	t.order = append(t.order, s.Name)
	return s
}

// addToChoice records choiceName as containing member, preserving first-seen
// order.
func (t *Table) addToChoice(choiceName, member string) {
	for _, existing := range t.choices[choiceName] {
		if existing == member {
			return
		}
	}
	t.choices[choiceName] = append(t.choices[choiceName], member)
}
