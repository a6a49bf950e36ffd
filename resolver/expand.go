// SPDX-License-Identifier: Apache-2.0
// Copyright 2022 Unikraft GmbH. All rights reserved.

package resolver

import (
	"context"
	"sort"

	"kconfigure.sh/decision"
	"kconfigure.sh/kconfig"
)

// assignment is one candidate "new need_expansion" dict of §4.6 step 2/3:
// symbol name -> value-set still to satisfy at a lower layer.
type assignment map[string]decision.ValueSet

func (a assignment) clone() assignment {
	out := make(assignment, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// merge intersects b into a, symbol by symbol, and reports false if any
// overlapping key's intersection is empty (the merge is dropped per §4.6
// step 3: "drop merges whose intersection is empty").
func (a assignment) merge(b assignment) (assignment, bool) {
	out := a.clone()
	for name, vs := range b {
		if existing, ok := out[name]; ok {
			merged := existing.Intersect(vs)
			if merged.Empty() {
				return nil, false
			}
			out[name] = merged
		} else {
			out[name] = vs
		}
	}
	return out, true
}

// expander carries the read-only inputs to the upward expansion pass: the
// symbol universe and a lookup over whatever is already fixed (the solution
// so far, over the base Config), consulted by symbolAtLeast/symbolAtMost and
// by the comparison-expression fallback below.
type expander struct {
	table  *kconfig.Table
	lookup kconfig.Lookup
}

// atLeast returns every alternative way to assign upper-layer symbols so
// that e.Eval(...) >= threshold, each alternative expressed as an
// assignment. A nil result means no way was found (UnsatisfiableError
// territory); a result containing the empty assignment means e already
// satisfies threshold unconditionally (no new constraint needed).
func (x *expander) atLeast(e kconfig.Expr, threshold kconfig.Tristate) []assignment {
	switch v := e.(type) {
	case *kconfig.ConstExpr:
		if v.V >= threshold {
			return []assignment{{}}
		}
		return nil

	case *kconfig.SymbolExpr:
		return x.symbolAtLeast(v.Name, threshold)

	case *kconfig.NotExpr:
		// not(eval(x)) >= threshold  <=>  eval(x) <= not(threshold), since
		// Not is an order-reversing involution over {N,M,Y}.
		return x.atMost(v.X, threshold.Not())

	case *kconfig.AndExpr:
		// min(a,b) >= threshold requires both branches satisfied.
		return crossMerge(x.atLeast(v.A, threshold), x.atLeast(v.B, threshold))

	case *kconfig.OrExpr:
		// max(a,b) >= threshold requires either branch satisfied.
		return append(x.atLeast(v.A, threshold), x.atLeast(v.B, threshold)...)

	default:
		return x.atomAtLeast(e, threshold)
	}
}

// atMost is atLeast's dual: every way to assign upper-layer symbols so that
// e.Eval(...) <= threshold.
func (x *expander) atMost(e kconfig.Expr, threshold kconfig.Tristate) []assignment {
	switch v := e.(type) {
	case *kconfig.ConstExpr:
		if v.V <= threshold {
			return []assignment{{}}
		}
		return nil

	case *kconfig.SymbolExpr:
		return x.symbolAtMost(v.Name, threshold)

	case *kconfig.NotExpr:
		return x.atLeast(v.X, threshold.Not())

	case *kconfig.AndExpr:
		// min(a,b) <= threshold requires either branch bounded.
		return append(x.atMost(v.A, threshold), x.atMost(v.B, threshold)...)

	case *kconfig.OrExpr:
		// max(a,b) <= threshold requires both branches bounded.
		return crossMerge(x.atMost(v.A, threshold), x.atMost(v.B, threshold))

	default:
		return x.atomAtMost(e, threshold)
	}
}

// symbolAtLeast constrains a bare symbol reference to the tristate values
// at or above threshold, unless it's an out-of-table name (a tristate
// constant never reaches here; Operand parsing turns those into
// ConstExpr, see kconfig/exprparse.go), in which case it can't be assigned
// and is instead read through lookup.
func (x *expander) symbolAtLeast(name string, threshold kconfig.Tristate) []assignment {
	// Already satisfied by whatever's already fixed — the base Config, or
	// a higher layer's solution already folded into x.lookup — needs no
	// new constraint at all; that's the strictly-smaller candidate, so it
	// is the only one offered (minimum-impact scoring would pick it over
	// a forced one anyway, but there's no point generating the loser).
	if (&kconfig.SymbolExpr{Name: name}).Eval(x.lookup) >= threshold {
		return []assignment{{}}
	}

	if _, ok := x.table.ByName(name); !ok {
		return nil // out-of-table name, already checked against lookup above
	}

	vals := tristatesAtOrAbove(threshold)
	if len(vals) == 0 {
		return nil
	}
	return []assignment{{name: decision.NewTristateSet(vals...)}}
}

func (x *expander) symbolAtMost(name string, threshold kconfig.Tristate) []assignment {
	if (&kconfig.SymbolExpr{Name: name}).Eval(x.lookup) <= threshold {
		return []assignment{{}}
	}

	if _, ok := x.table.ByName(name); !ok {
		return nil
	}

	vals := tristatesAtOrBelow(threshold)
	if len(vals) == 0 {
		return nil
	}
	return []assignment{{name: decision.NewTristateSet(vals...)}}
}

// atomAtLeast/atomAtMost handle CompareExpr, RangeExpr and ListExpr: none
// of these name a tristate symbol the resolver can assign a value-set to,
// so they are evaluated directly against the current lookup (base Config
// plus whatever solution has accumulated so far) rather than expanded.
func (x *expander) atomAtLeast(e kconfig.Expr, threshold kconfig.Tristate) []assignment {
	if e.Eval(x.lookup) >= threshold {
		return []assignment{{}}
	}
	return nil
}

func (x *expander) atomAtMost(e kconfig.Expr, threshold kconfig.Tristate) []assignment {
	if e.Eval(x.lookup) <= threshold {
		return []assignment{{}}
	}
	return nil
}

func tristatesAtOrAbove(threshold kconfig.Tristate) []kconfig.Tristate {
	var out []kconfig.Tristate
	for _, t := range []kconfig.Tristate{kconfig.No, kconfig.Mod, kconfig.Yes} {
		if t >= threshold {
			out = append(out, t)
		}
	}
	return out
}

func tristatesAtOrBelow(threshold kconfig.Tristate) []kconfig.Tristate {
	var out []kconfig.Tristate
	for _, t := range []kconfig.Tristate{kconfig.No, kconfig.Mod, kconfig.Yes} {
		if t <= threshold {
			out = append(out, t)
		}
	}
	return out
}

// crossMerge combines two alternative lists conjunctively: every pairing of
// one alternative from each side, dropping pairings whose value-sets
// conflict. A nil operand (no way to satisfy that side at all) makes the
// whole cross product unsatisfiable.
func crossMerge(a, b []assignment) []assignment {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}
	var out []assignment
	for _, x := range a {
		for _, y := range b {
			merged, ok := x.merge(y)
			if ok {
				out = append(out, merged)
			}
		}
	}
	return out
}

// candidateScore is the §4.6.1 minimum-impact tuple: fewer newly-introduced
// symbols first, then fewer forced Y, then fewer forced M, then
// lexicographically-earliest symbol names. base is the need_expansion dict
// entering this layer, used to tell a "new" symbol from one merely carried
// forward.
type candidateScore struct {
	newSymbols int
	forcedYs   int
	forcedMs   int
	names      []string
}

func scoreCandidate(cand assignment, base assignment) candidateScore {
	var score candidateScore
	for name, vs := range cand {
		if _, existed := base[name]; existed {
			continue
		}
		score.newSymbols++
		score.names = append(score.names, name)
		if !vs.IsLiteral {
			if len(vs.Tristates) == 1 && vs.Tristates[kconfig.Yes] {
				score.forcedYs++
			}
			if len(vs.Tristates) == 1 && vs.Tristates[kconfig.Mod] {
				score.forcedMs++
			}
		}
	}
	sort.Strings(score.names)
	return score
}

// less implements the total order of §4.6.1.
func (s candidateScore) less(o candidateScore) bool {
	if s.newSymbols != o.newSymbols {
		return s.newSymbols < o.newSymbols
	}
	if s.forcedYs != o.forcedYs {
		return s.forcedYs < o.forcedYs
	}
	if s.forcedMs != o.forcedMs {
		return s.forcedMs < o.forcedMs
	}
	n := len(s.names)
	if len(o.names) < n {
		n = len(o.names)
	}
	for i := 0; i < n; i++ {
		if s.names[i] != o.names[i] {
			return s.names[i] < o.names[i]
		}
	}
	return len(s.names) < len(o.names)
}

// pickMinimumImpact selects the best-scoring candidate relative to base,
// breaking remaining ties by the candidate's own sorted key list so the
// choice never depends on map iteration order.
func pickMinimumImpact(candidates []assignment, base assignment) assignment {
	best := 0
	bestScore := scoreCandidate(candidates[0], base)
	for i := 1; i < len(candidates); i++ {
		score := scoreCandidate(candidates[i], base)
		if score.less(bestScore) {
			best, bestScore = i, score
		}
	}
	return candidates[best]
}

// expand runs the upward expansion phase of §4.6 over table, starting from
// the decisions recorded in store, and returns the fully expanded solution
// dict: every symbol the resolver must enforce, mapped to its value-set.
// baseLookup resolves whatever the expansion never touches against the
// base Config, as required by comparison atoms and out-of-table symbol
// references.
func expand(ctx context.Context, table *kconfig.Table, baseLookup kconfig.Lookup, decided map[string]decision.ValueSet) (map[string]decision.ValueSet, error) {
	needExpansion := make(assignment, len(decided))
	for k, v := range decided {
		needExpansion[k] = v
	}

	seeds := make([]string, 0, len(needExpansion))
	for name := range needExpansion {
		seeds = append(seeds, name)
	}
	sort.Strings(seeds)

	g := buildGraph(table, seeds)
	ls := layerize(g)

	solution := make(assignment)

	// lookup layers solution (symbols already pinned by a higher layer
	// this pass) over the base Config, so a dependency already satisfied
	// by an earlier decision is recognized as such instead of being
	// forced again.
	lookup := func(name string) string {
		if vs, ok := solution[name]; ok {
			if vs.IsLiteral {
				return vs.Literal
			}
			if t, ok := vs.Preferred(); ok {
				return t.String()
			}
		}
		return baseLookup(name)
	}
	x := &expander{table: table, lookup: lookup}

	for i := len(ls) - 1; i >= 0; i-- {
		select {
		case <-ctx.Done():
			return nil, Cancelled
		default:
		}

		layer := ls[i]

		var inLayer []string
		for _, name := range layer {
			if _, ok := needExpansion[name]; ok {
				inLayer = append(inLayer, name)
			}
		}
		for _, name := range inLayer {
			solution[name] = needExpansion[name]
			delete(needExpansion, name)
		}

		base := needExpansion.clone()
		candidates := []assignment{base.clone()}

		for _, name := range inLayer {
			sym := table.MustByName(name)
			vs := solution[name]

			var picked kconfig.Tristate
			if vs.IsLiteral {
				picked = kconfig.Yes // any literal decision implies the symbol must be visible
			} else {
				p, ok := vs.Preferred()
				if !ok || p == kconfig.No {
					continue // disabling never needs dir_dep satisfied
				}
				picked = p
			}

			threshold := kconfig.Mod
			if sym.Kind == kconfig.KindTristate && !vs.IsLiteral && (picked == kconfig.Mod || picked == kconfig.Yes) {
				threshold = picked
			}

			dirDep := sym.DirDep
			if dirDep == nil {
				dirDep = &kconfig.ConstExpr{V: kconfig.Yes}
			}

			alts := x.atLeast(dirDep, threshold)
			if len(alts) == 0 {
				return nil, &UnsatisfiableError{Symbol: name}
			}

			var merged []assignment
			for _, cand := range candidates {
				for _, alt := range alts {
					m, ok := cand.merge(alt)
					if ok {
						merged = append(merged, m)
					}
				}
			}
			if len(merged) == 0 {
				return nil, &UnsatisfiableError{Symbol: name}
			}
			candidates = merged
		}

		if len(candidates) == 0 {
			return nil, &UnsatisfiableError{Symbol: "<layer>"}
		}

		needExpansion = pickMinimumImpact(candidates, base)
	}

	for k, v := range needExpansion {
		solution[k] = v
	}

	out := make(map[string]decision.ValueSet, len(solution))
	for k, v := range solution {
		out[k] = v
	}
	return out, nil
}
