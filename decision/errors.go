// SPDX-License-Identifier: Apache-2.0
// Copyright 2022 Unikraft GmbH. All rights reserved.

package decision

import (
	"errors"
	"fmt"
)

// Cancelled is returned when cooperative cancellation (§5) fires while the
// interpreter or resolver is mid-pass.
var Cancelled = errors.New("cancelled")

// UnknownSymbolError reports a DSL statement or CLI flag naming a symbol
// absent from the loaded Table. A "if exists" guard downgrades this to a
// skipped statement instead of propagating.
type UnknownSymbolError struct {
	Symbol string
}

func (e *UnknownSymbolError) Error() string {
	return fmt.Sprintf("unknown symbol %q", e.Symbol)
}

// TypeMismatchError reports a request targeting a symbol of an incompatible
// kind, e.g. `module` on a bool symbol or `append` on a tristate.
type TypeMismatchError struct {
	Symbol string
	Verb   string
	Detail string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("%s is not valid for symbol %q: %s", e.Verb, e.Symbol, e.Detail)
}

// ConflictError reports two requests on the same symbol whose value-sets
// have an empty intersection, with no intervening `discard`.
type ConflictError struct {
	Symbol string
	With   ValueSet
	Next   ValueSet
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflicting requests for %q: %s does not intersect %s", e.Symbol, e.With, e.Next)
}

// ParseError reports a malformed DSL source line. Column is 0 when the
// grammar didn't report token position detail.
type ParseError struct {
	File   string
	LineNo int
	Column int
	Message string
}

func (e *ParseError) Error() string {
	if e.File == "" {
		return fmt.Sprintf("line %d: %s", e.LineNo, e.Message)
	}
	return fmt.Sprintf("%s:%d: %s", e.File, e.LineNo, e.Message)
}
