// SPDX-License-Identifier: Apache-2.0
// Copyright 2022 Unikraft GmbH. All rights reserved.

package decision

import (
	"context"
	"strconv"
	"strings"

	"kconfigure.sh/kconfig"
	"kconfigure.sh/log"
)

// Store is the decision store of spec.md §3/§4.4: a mapping from symbol
// name to the still-acceptable value-set for that symbol, built up over a
// single generation pass from DSL statements and/or CLI flags.
//
// Store is not safe for concurrent use; the core is single-threaded (§5).
type Store struct {
	order  []string
	values map[string]ValueSet
	table  *kconfig.Table
}

// NewStore returns an empty Store validating requests against table.
func NewStore(table *kconfig.Table) *Store {
	return &Store{values: make(map[string]ValueSet), table: table}
}

// Get returns the recorded value-set for name, or ok=false if no request
// has touched it.
func (s *Store) Get(name string) (ValueSet, bool) {
	vs, ok := s.values[name]
	return vs, ok
}

// Names returns every decided symbol in first-touched order.
func (s *Store) Names() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Discard removes any recorded decision for name, per the "discard"
// sentinel in spec.md §3.
func (s *Store) Discard(name string) {
	if _, ok := s.values[name]; !ok {
		return
	}
	delete(s.values, name)
	for i, n := range s.order {
		if n == name {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Merge intersects vs into name's existing value-set (or records it fresh),
// implementing the §4.4 merge rule. An empty resulting intersection is a
// ConflictError; the prior decision is left untouched so the caller may
// recover via a preceding `discard`.
func (s *Store) Merge(ctx context.Context, name string, vs ValueSet) error {
	if _, ok := s.table.ByName(name); !ok {
		return &UnknownSymbolError{Symbol: name}
	}

	existing, ok := s.values[name]
	if !ok {
		s.values[name] = vs
		s.order = append(s.order, name)
		log.G(ctx).Debugf("decision: %s := %s", name, vs)
		return nil
	}

	merged := existing.Intersect(vs)
	if merged.Empty() {
		return &ConflictError{Symbol: name, With: existing, Next: vs}
	}

	s.values[name] = merged
	log.G(ctx).Debugf("decision: %s := %s (merged %s, %s)", name, merged, existing, vs)
	return nil
}

// Append concatenates value onto name's existing string literal with a
// single space, or sets it fresh if name has no decision yet (§9:
// whitespace is fixed to exactly one U+0020 between values regardless of
// what the original tool did).
func (s *Store) Append(name, value string) error {
	sym, ok := s.table.ByName(name)
	if !ok {
		return &UnknownSymbolError{Symbol: name}
	}
	if sym.Kind != kconfig.KindString {
		return &TypeMismatchError{Symbol: name, Verb: "append", Detail: "only valid for string symbols"}
	}

	existing, ok := s.values[name]
	if !ok || !existing.IsLiteral {
		s.setLiteral(name, value)
		return nil
	}
	s.setLiteral(name, strings.TrimSpace(existing.Literal+" "+value))
	return nil
}

// Add extends name's existing value: for string symbols, a whitespace-
// separated set-union; for int symbols, numeric addition.
func (s *Store) Add(name, value string) error {
	sym, ok := s.table.ByName(name)
	if !ok {
		return &UnknownSymbolError{Symbol: name}
	}

	switch sym.Kind {
	case kconfig.KindString:
		existing, ok := s.values[name]
		words := map[string]bool{}
		var order []string
		if ok && existing.IsLiteral {
			for _, w := range strings.Fields(existing.Literal) {
				if !words[w] {
					words[w] = true
					order = append(order, w)
				}
			}
		}
		for _, w := range strings.Fields(value) {
			if !words[w] {
				words[w] = true
				order = append(order, w)
			}
		}
		s.setLiteral(name, strings.Join(order, " "))
		return nil

	case kconfig.KindInt:
		existing, ok := s.values[name]
		base := int64(0)
		if ok && existing.IsLiteral {
			n, err := strconv.ParseInt(existing.Literal, 0, 64)
			if err == nil {
				base = n
			}
		}
		delta, err := strconv.ParseInt(value, 0, 64)
		if err != nil {
			return &TypeMismatchError{Symbol: name, Verb: "add", Detail: "not a valid integer: " + value}
		}
		s.setLiteral(name, strconv.FormatInt(base+delta, 10))
		return nil

	default:
		return &TypeMismatchError{Symbol: name, Verb: "add", Detail: "only valid for string/int symbols"}
	}
}

func (s *Store) setLiteral(name, value string) {
	if _, ok := s.values[name]; !ok {
		s.order = append(s.order, name)
	}
	s.values[name] = NewLiteralSet(value)
}

// AsMap returns a shallow copy of the decided value-sets, for consumption by
// the resolver.
func (s *Store) AsMap() map[string]ValueSet {
	out := make(map[string]ValueSet, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}
