// SPDX-License-Identifier: Apache-2.0
// Copyright 2022 Unikraft GmbH. All rights reserved.

package decision

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"

	"kconfigure.sh/kconfig"
)

// CondOp is a comparison operator usable by `kver`/`kmaj`/`kmin`/`kpatch`.
type CondOp string

const (
	CondEq  CondOp = "="
	CondNe  CondOp = "!="
	CondLt  CondOp = "<"
	CondLe  CondOp = "<="
	CondGt  CondOp = ">"
	CondGe  CondOp = ">="
)

// EvalContext is the fixed context a compiled Cond evaluates against,
// matching the design note in spec.md §9: "conditions compile to a small
// bytecode evaluated against (kernel_version, symbol_table, previous_cond
// value)".
type EvalContext struct {
	KernelVersion string
	Table         *kconfig.Table
	Config        *kconfig.Config
	Target        string // the DSL statement's current target, for argless `exists`
	Previous      bool   // the truth value of `_`, the previous condition
}

// Cond is a compiled boolean condition: true/false/exists/kver-family/not/
// and/or, each an independently evaluable node so the same Cond can be
// re-evaluated cheaply across fixpoint iterations.
type Cond interface {
	Eval(ctx EvalContext) bool
}

type condTrue struct{}

func (condTrue) Eval(EvalContext) bool { return true }

type condFalse struct{}

func (condFalse) Eval(EvalContext) bool { return false }

// condPrevious implements the `_` keyword.
type condPrevious struct{}

func (condPrevious) Eval(ctx EvalContext) bool { return ctx.Previous }

// condNot negates its operand.
type condNot struct{ X Cond }

func (c condNot) Eval(ctx EvalContext) bool { return !c.X.Eval(ctx) }

type condAnd struct{ A, B Cond }

func (c condAnd) Eval(ctx EvalContext) bool { return c.A.Eval(ctx) && c.B.Eval(ctx) }

type condOr struct{ A, B Cond }

func (c condOr) Eval(ctx EvalContext) bool { return c.A.Eval(ctx) || c.B.Eval(ctx) }

// condExists implements `exists [opt]`: with an argument, checks the named
// symbol or filesystem path; argless, checks the statement's own target
// symbol.
type condExists struct{ Arg string }

func (c condExists) Eval(ctx EvalContext) bool {
	name := c.Arg
	if name == "" {
		name = ctx.Target
	}
	if ctx.Table != nil {
		if _, ok := ctx.Table.ByName(name); ok {
			return true
		}
	}
	if _, err := os.Stat(name); err == nil {
		return true
	}
	return false
}

// condKernel implements `kver`/`kmaj`/`kmin`/`kpatch <op> <version>` using
// github.com/Masterminds/semver/v3 for the actual comparison, with
// kmaj/kmin/kpatch narrowing the compared component first.
type condKernel struct {
	Component string // "ver", "maj", "min", "patch"
	Op        CondOp
	Value     string
}

func (c condKernel) Eval(ctx EvalContext) bool {
	cur, err := parseKernelVersion(ctx.KernelVersion)
	if err != nil {
		return false
	}

	switch c.Component {
	case "maj":
		want, err := strconv.ParseUint(c.Value, 10, 64)
		if err != nil {
			return false
		}
		return compareUint(cur.Major(), want, c.Op)
	case "min":
		want, err := strconv.ParseUint(c.Value, 10, 64)
		if err != nil {
			return false
		}
		return compareUint(cur.Minor(), want, c.Op)
	case "patch":
		want, err := strconv.ParseUint(c.Value, 10, 64)
		if err != nil {
			return false
		}
		return compareUint(cur.Patch(), want, c.Op)
	default: // "ver"
		want, err := parseKernelVersion(c.Value)
		if err != nil {
			return false
		}
		cmp := cur.Compare(want)
		return compareInt(cmp, c.Op)
	}
}

// parseKernelVersion accepts partial dotted versions ("5", "5.4",
// "5.4.10") as KERNELVERSION commonly appears, padding missing components
// with zero so semver.NewVersion accepts it.
func parseKernelVersion(v string) (*semver.Version, error) {
	parts := strings.SplitN(v, ".", 3)
	for len(parts) < 3 {
		parts = append(parts, "0")
	}
	return semver.NewVersion(strings.Join(parts[:3], "."))
}

func compareUint(a, want uint64, op CondOp) bool {
	switch op {
	case CondEq:
		return a == want
	case CondNe:
		return a != want
	case CondLt:
		return a < want
	case CondLe:
		return a <= want
	case CondGt:
		return a > want
	case CondGe:
		return a >= want
	default:
		return false
	}
}

func compareInt(cmp int, op CondOp) bool {
	switch op {
	case CondEq:
		return cmp == 0
	case CondNe:
		return cmp != 0
	case CondLt:
		return cmp < 0
	case CondLe:
		return cmp <= 0
	case CondGt:
		return cmp > 0
	case CondGe:
		return cmp >= 0
	default:
		return false
	}
}

func parseCondOp(s string) (CondOp, error) {
	switch s {
	case "=", "==":
		return CondEq, nil
	case "!=":
		return CondNe, nil
	case "<":
		return CondLt, nil
	case "<=":
		return CondLe, nil
	case ">":
		return CondGt, nil
	case ">=":
		return CondGe, nil
	default:
		return "", fmt.Errorf("unknown comparison operator %q", s)
	}
}
