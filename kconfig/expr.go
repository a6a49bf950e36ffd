// SPDX-License-Identifier: Apache-2.0
// Copyright 2020 syzkaller project authors. All rights reserved.
// Copyright 2022 Unikraft GmbH. All rights reserved.

package kconfig

import "strconv"

// Lookup resolves a symbol name to its current value, in the same textual
// form the .config format uses: "n"/"m"/"y" for tristate and bool symbols,
// the unescaped literal for string symbols, decimal for int, "0x..." for
// hex. A name with no known value resolves to "".
type Lookup func(name string) string

// Expr is the immutable sum type over which dir_dep, rev_dep, prompt
// visibility, select conditions and default conditions are expressed.
// Evaluation is pure, total, and always yields a Tristate: comparison
// operators collapse their result to No/Yes.
type Expr interface {
	Eval(lookup Lookup) Tristate
	collectDeps(out map[string]bool)
	String() string
}

// expr is kept as an alias so the parser (ported from the upstream Kconfig
// importer, which spells the field type in lower case) and the rest of this
// package can refer to the same type.
type expr = Expr

// CollectExprDeps gathers every symbol name referenced anywhere inside e,
// exposing the otherwise-unexported collectDeps walk to other packages
// (the resolver's dependency grouper, §4.5).
func CollectExprDeps(e Expr, out map[string]bool) {
	if e == nil {
		return
	}
	e.collectDeps(out)
}

// exprAnd combines two possibly-nil expressions with And, treating nil as
// "no constraint" (the multiplicative identity, Const(Yes)).
func exprAnd(a, b expr) expr {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return &AndExpr{A: a, B: b}
}

// ConstExpr is a tristate literal: the constants n, m, y.
type ConstExpr struct {
	V Tristate
}

func (e *ConstExpr) Eval(Lookup) Tristate          { return e.V }
func (e *ConstExpr) collectDeps(map[string]bool)   {}
func (e *ConstExpr) String() string                { return e.V.String() }

// LiteralExpr carries a non-tristate literal operand: a quoted string or
// bare numeric/hex token that didn't parse as one of y/m/n. It only ever
// appears as a default's Value (`default "eth0"`, `default 10`), never
// composed into a boolean dir_dep/rev_dep, so Eval reports it as always
// satisfied.
type LiteralExpr struct {
	Value string
}

func (e *LiteralExpr) Eval(Lookup) Tristate        { return Yes }
func (e *LiteralExpr) collectDeps(map[string]bool) {}
func (e *LiteralExpr) String() string              { return e.Value }

// SymbolExpr references another symbol by name, evaluated as tristate when
// used in a boolean position.
type SymbolExpr struct {
	Name string
}

func (e *SymbolExpr) Eval(lookup Lookup) Tristate {
	raw := lookup(e.Name)
	if t, ok := ParseTristate(raw); ok {
		return t
	}
	if raw == "" {
		return No
	}
	return Yes
}

func (e *SymbolExpr) collectDeps(out map[string]bool) { out[e.Name] = true }
func (e *SymbolExpr) String() string                  { return e.Name }

// NotExpr is boolean negation.
type NotExpr struct {
	X Expr
}

func (e *NotExpr) Eval(lookup Lookup) Tristate        { return e.X.Eval(lookup).Not() }
func (e *NotExpr) collectDeps(out map[string]bool)    { e.X.collectDeps(out) }
func (e *NotExpr) String() string                     { return "!" + e.X.String() }

// AndExpr is tristate conjunction (min).
type AndExpr struct {
	A, B Expr
}

func (e *AndExpr) Eval(lookup Lookup) Tristate {
	return e.A.Eval(lookup).And(e.B.Eval(lookup))
}
func (e *AndExpr) collectDeps(out map[string]bool) {
	e.A.collectDeps(out)
	e.B.collectDeps(out)
}
func (e *AndExpr) String() string { return e.A.String() + " && " + e.B.String() }

// OrExpr is tristate disjunction (max).
type OrExpr struct {
	A, B Expr
}

func (e *OrExpr) Eval(lookup Lookup) Tristate {
	return e.A.Eval(lookup).Or(e.B.Eval(lookup))
}
func (e *OrExpr) collectDeps(out map[string]bool) {
	e.A.collectDeps(out)
	e.B.collectDeps(out)
}
func (e *OrExpr) String() string { return e.A.String() + " || " + e.B.String() }

// Operand is one side of a comparison: either a literal value or a
// reference to another symbol's value.
type Operand struct {
	Symbol    string
	Literal   string
	IsLiteral bool
}

func (o Operand) resolve(lookup Lookup) string {
	if o.IsLiteral {
		return o.Literal
	}
	return lookup(o.Symbol)
}

func (o Operand) collectDeps(out map[string]bool) {
	if !o.IsLiteral && o.Symbol != "" {
		out[o.Symbol] = true
	}
}

func (o Operand) String() string {
	if o.IsLiteral {
		return o.Literal
	}
	return o.Symbol
}

// CompareOp enumerates the six comparison operators.
type CompareOp int

const (
	OpEq CompareOp = iota
	OpNeq
	OpLt
	OpLeq
	OpGt
	OpGeq
)

func (op CompareOp) String() string {
	switch op {
	case OpEq:
		return "="
	case OpNeq:
		return "!="
	case OpLt:
		return "<"
	case OpLeq:
		return "<="
	case OpGt:
		return ">"
	case OpGeq:
		return ">="
	default:
		return "?"
	}
}

// CompareExpr implements Eq/Neq/Lt/Leq/Gt/Geq: both operands are resolved to
// strings, compared numerically when both parse as integers (decimal or
// 0x-prefixed hex), otherwise compared as strings (only valid for
// equality/inequality — ordering comparisons on non-numeric operands
// evaluate to No).
type CompareExpr struct {
	Op   CompareOp
	A, B Operand
}

func (e *CompareExpr) Eval(lookup Lookup) Tristate {
	a := e.A.resolve(lookup)
	b := e.B.resolve(lookup)

	an, aerr := strconv.ParseInt(a, 0, 64)
	bn, berr := strconv.ParseInt(b, 0, 64)
	numeric := aerr == nil && berr == nil

	switch e.Op {
	case OpEq:
		if numeric {
			return boolTristate(an == bn)
		}
		return boolTristate(a == b)
	case OpNeq:
		if numeric {
			return boolTristate(an != bn)
		}
		return boolTristate(a != b)
	case OpLt:
		return boolTristate(numeric && an < bn)
	case OpLeq:
		return boolTristate(numeric && an <= bn)
	case OpGt:
		return boolTristate(numeric && an > bn)
	case OpGeq:
		return boolTristate(numeric && an >= bn)
	default:
		return No
	}
}

func boolTristate(b bool) Tristate {
	if b {
		return Yes
	}
	return No
}

func (e *CompareExpr) collectDeps(out map[string]bool) {
	e.A.collectDeps(out)
	e.B.collectDeps(out)
}

func (e *CompareExpr) String() string {
	return e.A.String() + " " + e.Op.String() + " " + e.B.String()
}

// RangeExpr represents a `range MIN MAX` constraint on an int/hex symbol's
// valid values. It is not itself evaluated as part of dir_dep/rev_dep
// boolean expressions (Kconfig never composes `range` with && / ||); it is
// consulted directly by Symbol.ValidateRange when validating a requested
// value, so Eval always reports the range as satisfiable (Yes) when asked
// in a general boolean position.
type RangeExpr struct {
	Low, High Operand
}

func (e *RangeExpr) Eval(Lookup) Tristate { return Yes }
func (e *RangeExpr) collectDeps(out map[string]bool) {
	e.Low.collectDeps(out)
	e.High.collectDeps(out)
}
func (e *RangeExpr) String() string { return "range " + e.Low.String() + " " + e.High.String() }

// Contains reports whether value falls within [Low, High] after numeric
// resolution against lookup.
func (e *RangeExpr) Contains(lookup Lookup, value string) bool {
	v, err := strconv.ParseInt(value, 0, 64)
	if err != nil {
		return false
	}
	lo, loErr := strconv.ParseInt(e.Low.resolve(lookup), 0, 64)
	hi, hiErr := strconv.ParseInt(e.High.resolve(lookup), 0, 64)
	if loErr != nil || hiErr != nil {
		return true
	}
	return v >= lo && v <= hi
}

// ListExpr represents one `select TARGET [if COND]` entry contributing to
// another symbol's rev_dep. Its evaluation is whether the select fires
// (COND, or Yes if there is no condition); the deselect target itself is
// not part of the boolean value, only of the dependency closure.
type ListExpr struct {
	Cond   Expr
	Target string
}

func (e *ListExpr) Eval(lookup Lookup) Tristate {
	if e.Cond == nil {
		return Yes
	}
	return e.Cond.Eval(lookup)
}

func (e *ListExpr) collectDeps(out map[string]bool) {
	if e.Target != "" {
		out[e.Target] = true
	}
	if e.Cond != nil {
		e.Cond.collectDeps(out)
	}
}

func (e *ListExpr) String() string {
	if e.Cond == nil {
		return "select " + e.Target
	}
	return "select " + e.Target + " if " + e.Cond.String()
}
