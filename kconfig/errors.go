// SPDX-License-Identifier: Apache-2.0
// Copyright 2022 Unikraft GmbH. All rights reserved.

package kconfig

import "fmt"

// ParseError reports a malformed Kconfig or .config source line. LineNo is
// 1-indexed; Message holds the detail originally produced by the parser.
type ParseError struct {
	File    string
	LineNo  int
	Message string
}

func (e *ParseError) Error() string {
	if e.File == "" {
		return fmt.Sprintf("line %d: %s", e.LineNo, e.Message)
	}
	return fmt.Sprintf("%s:%d: %s", e.File, e.LineNo, e.Message)
}

// UnknownSymbolError reports a reference (in a .config entry, a macro, or a
// decision request) to a symbol absent from the Table.
type UnknownSymbolError struct {
	Name string
}

func (e *UnknownSymbolError) Error() string {
	return fmt.Sprintf("unknown symbol %q", e.Name)
}

// TypeMismatchError reports a value incompatible with a symbol's kind, e.g.
// assigning "m" to a bool symbol or a non-numeric string to an int symbol.
type TypeMismatchError struct {
	Name  string
	Kind  SymbolKind
	Value string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("value %q is not valid for %s symbol %q", e.Value, e.Kind, e.Name)
}
