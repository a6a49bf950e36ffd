// SPDX-License-Identifier: Apache-2.0
// Copyright 2020 syzkaller project authors. All rights reserved.
// Copyright 2022 Unikraft GmbH. All rights reserved.

package kconfig

// Tristate is the ordered three-valued lattice {N < M < Y} used throughout
// Kconfig for both tristate symbols and boolean expression evaluation.
type Tristate int

const (
	No Tristate = iota
	Mod
	Yes
)

// String renders the canonical lower-case spelling used in the DSL and in
// diagnostics ("n", "m", "y").
func (t Tristate) String() string {
	switch t {
	case No:
		return "n"
	case Mod:
		return "m"
	case Yes:
		return "y"
	default:
		return "?"
	}
}

// ParseTristate parses the single-letter forms n/N, m/M and y/Y and the
// lowercase full words no, mod and yes; any other spelling is rejected.
func ParseTristate(s string) (Tristate, bool) {
	switch s {
	case "n", "N", "no":
		return No, true
	case "m", "M", "mod":
		return Mod, true
	case "y", "Y", "yes":
		return Yes, true
	default:
		return No, false
	}
}

// Not implements tristate negation: not(N)=Y, not(M)=M, not(Y)=N.
func (t Tristate) Not() Tristate {
	switch t {
	case No:
		return Yes
	case Yes:
		return No
	default:
		return Mod
	}
}

// And implements tristate conjunction as min.
func (t Tristate) And(o Tristate) Tristate {
	if t < o {
		return t
	}
	return o
}

// Or implements tristate disjunction as max.
func (t Tristate) Or(o Tristate) Tristate {
	if t > o {
		return t
	}
	return o
}

// Bool collapses a tristate to N/Y, treating any non-N value as Y. Used when
// evaluating boolean-kind symbols, which cannot take the M value.
func (t Tristate) Bool() Tristate {
	if t == No {
		return No
	}
	return Yes
}
