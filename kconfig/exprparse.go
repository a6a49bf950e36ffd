// SPDX-License-Identifier: Apache-2.0
// Copyright 2020 syzkaller project authors. All rights reserved.
// Copyright 2022 Unikraft GmbH. All rights reserved.

package kconfig

import "strconv"

// parseExpr parses a Kconfig boolean expression:
//
//	expr  := or
//	or    := and (("||"|"or") and)*
//	and   := not (("&&"|"and") not)*
//	not   := "!" not | atom
//	atom  := "(" expr ")" | operand [cmpop operand]
//
// Comparison binds tighter than the boolean connectives, matching upstream
// Kconfig's grammar.
func (kp *kconfigParser) parseExpr() expr {
	return kp.parseExprOr()
}

func (kp *kconfigParser) parseExprOr() expr {
	left := kp.parseExprAnd()
	for {
		if kp.TryConsume("||") || kp.tryConsumeWord("or") {
			right := kp.parseExprAnd()
			left = &OrExpr{A: left, B: right}
			continue
		}
		break
	}
	return left
}

func (kp *kconfigParser) parseExprAnd() expr {
	left := kp.parseExprNot()
	for {
		if kp.TryConsume("&&") || kp.tryConsumeWord("and") {
			right := kp.parseExprNot()
			left = &AndExpr{A: left, B: right}
			continue
		}
		break
	}
	return left
}

func (kp *kconfigParser) parseExprNot() expr {
	if kp.TryConsume("!") {
		return &NotExpr{X: kp.parseExprNot()}
	}
	return kp.parseExprAtom()
}

func (kp *kconfigParser) parseExprAtom() expr {
	if kp.TryConsume("(") {
		e := kp.parseExpr()
		kp.MustConsume(")")
		return e
	}

	left := kp.parseOperand()

	switch {
	case kp.TryConsume("!="):
		return &CompareExpr{Op: OpNeq, A: left, B: kp.parseOperand()}
	case kp.TryConsume(">="):
		return &CompareExpr{Op: OpGeq, A: left, B: kp.parseOperand()}
	case kp.TryConsume("<="):
		return &CompareExpr{Op: OpLeq, A: left, B: kp.parseOperand()}
	case kp.TryConsume("="):
		return &CompareExpr{Op: OpEq, A: left, B: kp.parseOperand()}
	case kp.TryConsume(">"):
		return &CompareExpr{Op: OpGt, A: left, B: kp.parseOperand()}
	case kp.TryConsume("<"):
		return &CompareExpr{Op: OpLt, A: left, B: kp.parseOperand()}
	}

	return operandToExpr(left)
}

// parseOperand reads a single comparison operand: a quoted string literal,
// a bare numeric/ident literal, or a symbol reference.
func (kp *kconfigParser) parseOperand() Operand {
	if s, ok := kp.TryQuotedString(); ok {
		return Operand{Literal: s, IsLiteral: true}
	}

	id := kp.Ident()
	if id == "y" || id == "m" || id == "n" {
		return Operand{Literal: id, IsLiteral: true}
	}
	if _, err := strconv.ParseInt(id, 0, 64); err == nil {
		return Operand{Literal: id, IsLiteral: true}
	}

	return Operand{Symbol: id}
}

func operandToExpr(o Operand) expr {
	if o.IsLiteral {
		if t, ok := ParseTristate(o.Literal); ok {
			return &ConstExpr{V: t}
		}
		return &LiteralExpr{Value: o.Literal}
	}
	return &SymbolExpr{Name: o.Symbol}
}

// tryConsumeWord consumes word if it appears next, bounded so it doesn't
// match a longer identifier's prefix (e.g. "android" must not match "and").
func (kp *kconfigParser) tryConsumeWord(word string) bool {
	rest := kp.parser.current[kp.col:]
	if len(rest) < len(word) || rest[:len(word)] != word {
		return false
	}
	if len(rest) > len(word) {
		next := rest[len(word)]
		if next >= 'a' && next <= 'z' || next >= 'A' && next <= 'Z' || next >= '0' && next <= '9' || next == '_' || next == '-' {
			return false
		}
	}
	return kp.TryConsume(word)
}
