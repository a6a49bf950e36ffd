// SPDX-License-Identifier: Apache-2.0
// Copyright 2022 Unikraft GmbH. All rights reserved.

// Package decision implements the decision store and its macro-DSL
// interpreter: the user-facing layer that turns modification requests
// ("module NET_VENDOR_INTEL if kver >= 5.4") into the symbol -> value-set
// map the resolver expands, applies, and reconciles against a base
// .config.
package decision

import (
	"sort"
	"strings"

	"kconfigure.sh/kconfig"
)

// ValueSet is the still-acceptable set of values for one symbol, per
// spec.md §3: a subset of {N,M,Y} for tristate, {N,Y} for bool, or a
// singleton literal for string/int/hex.
type ValueSet struct {
	// Tristates holds the acceptable tristate values, used when Literal is
	// not set. An empty-but-non-nil map means "no value is acceptable" —
	// ConflictError territory, never constructed directly by NewTristateSet.
	Tristates map[kconfig.Tristate]bool

	// Literal holds a single accepted literal for string/int/hex symbols.
	Literal   string
	IsLiteral bool
}

// NewTristateSet builds a value-set over the given tristate values.
func NewTristateSet(vals ...kconfig.Tristate) ValueSet {
	m := make(map[kconfig.Tristate]bool, len(vals))
	for _, v := range vals {
		m[v] = true
	}
	return ValueSet{Tristates: m}
}

// NewLiteralSet builds a singleton value-set for a string/int/hex symbol.
func NewLiteralSet(literal string) ValueSet {
	return ValueSet{Literal: literal, IsLiteral: true}
}

// Empty reports whether no value at all is acceptable.
func (vs ValueSet) Empty() bool {
	if vs.IsLiteral {
		return false
	}
	return len(vs.Tristates) == 0
}

// Contains reports whether t is an acceptable tristate value.
func (vs ValueSet) Contains(t kconfig.Tristate) bool {
	if vs.IsLiteral {
		return false
	}
	return vs.Tristates[t]
}

// Intersect computes the merge rule from spec.md §4.4: successive requests
// on the same symbol intersect value-sets. Literal value-sets intersect to
// themselves only if equal.
func (vs ValueSet) Intersect(other ValueSet) ValueSet {
	if vs.IsLiteral || other.IsLiteral {
		if vs.IsLiteral && other.IsLiteral && vs.Literal == other.Literal {
			return vs
		}
		return ValueSet{Tristates: map[kconfig.Tristate]bool{}}
	}

	out := make(map[kconfig.Tristate]bool)
	for t := range vs.Tristates {
		if other.Tristates[t] {
			out[t] = true
		}
	}
	return ValueSet{Tristates: out}
}

// Sorted returns the tristate members in N < M < Y order, for deterministic
// iteration (scoring, diagnostics).
func (vs ValueSet) Sorted() []kconfig.Tristate {
	out := make([]kconfig.Tristate, 0, len(vs.Tristates))
	for t := range vs.Tristates {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Preferred returns the value Apply (§4.7) should pick among several
// acceptable tristate values: M over Y, matching "builtin-or-module"
// semantics; the highest remaining value otherwise.
func (vs ValueSet) Preferred() (kconfig.Tristate, bool) {
	if vs.IsLiteral || len(vs.Tristates) == 0 {
		return kconfig.No, false
	}
	if vs.Tristates[kconfig.Mod] {
		return kconfig.Mod, true
	}
	sorted := vs.Sorted()
	return sorted[len(sorted)-1], true
}

// String renders the value-set for diagnostics, e.g. "{m,y}" or `"foo"`.
func (vs ValueSet) String() string {
	if vs.IsLiteral {
		return `"` + vs.Literal + `"`
	}
	parts := make([]string, 0, len(vs.Tristates))
	for _, t := range vs.Sorted() {
		parts = append(parts, t.String())
	}
	return "{" + strings.Join(parts, ",") + "}"
}
