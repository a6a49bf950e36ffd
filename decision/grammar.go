// SPDX-License-Identifier: Apache-2.0
// Copyright 2022 Unikraft GmbH. All rights reserved.

package decision

import (
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// dslLexer tokenizes the macro-DSL described in spec.md §4.4/§6: verbs and
// keywords are case-insensitive, statements are newline-terminated unless
// the line ends in a backslash continuation (joined by joinContinuations,
// below, before the text ever reaches this lexer), and `#` introduces a
// line comment.
var dslLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `#[^\n]*`},
	{Name: "Keyword", Pattern: `(?i)\b(disable|module|builtin-or-module|builtin|ym|set|append|add|include|discard|hardware-detect|hwdetect|packages|pkg|driver|modalias|if|unless|not|and|or|true|false|exists|kver|kmaj|kmin|kpatch|n|m|y)\b`},
	{Name: "Hex", Pattern: `0[xX][0-9a-fA-F]+`},
	{Name: "Version", Pattern: `[0-9]+(\.[0-9]+){1,2}`},
	{Name: "Int", Pattern: `-?[0-9]+`},
	{Name: "String", Pattern: `"([^"\\]|\\.)*"`},
	{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_-]*`},
	{Name: "Op", Pattern: `==|!=|<=|>=|&&|\|\||[=<>!()]`},
	{Name: "Newline", Pattern: `\r?\n`},
	{Name: "Whitespace", Pattern: `[ \t]+`},
})

var dslParser = participle.MustBuild[File](
	participle.Lexer(dslLexer),
	participle.Elide("Whitespace", "Comment"),
	participle.CaseInsensitive("Keyword"),
	participle.Unquote("String"),
	participle.UseLookahead(2),
)

// File is the root of a parsed DSL document: a sequence of statements, one
// per source line.
type File struct {
	Statements []*Statement `parser:"Newline* ( @@ Newline* )*"`
}

// Statement is one DSL request: `<verb> [modifier] <target...> [= value]
// [if|unless <cond>]`.
type Statement struct {
	Verb     string     `parser:"@Keyword"`
	Modifier string     `parser:"@(\"driver\" | \"modalias\")?"`
	Targets  []string   `parser:"@(Ident | String)*"`
	Assign   *string    `parser:"( \"=\" (@String | @Ident | @Int | @Hex | @(\"y\" | \"m\" | \"n\")) )?"`
	Literal  *string    `parser:"@(String | Int | Hex | \"y\" | \"m\" | \"n\")?"`
	Guard    *GuardAST  `parser:"@@?"`
}

// GuardAST is the trailing `if <cond>` / `unless <cond>` clause.
type GuardAST struct {
	Keyword string     `parser:"@(\"if\" | \"unless\")"`
	Cond    *CondOrAST `parser:"@@"`
}

// CondOrAST / CondAndAST / CondNotAST / CondAtomAST implement operator
// precedence (or binds loosest, not binds tightest) via the standard
// participle left-recursion-free pattern: each level parses one operand of
// the next-tighter level, then zero or more (operator, operand) pairs.
type CondOrAST struct {
	Left  *CondAndAST    `parser:"@@"`
	Rest  []*CondOrRest  `parser:"@@*"`
}

type CondOrRest struct {
	Op   string      `parser:"@(\"||\" | \"or\")"`
	Cond *CondAndAST `parser:"@@"`
}

type CondAndAST struct {
	Left *CondNotAST    `parser:"@@"`
	Rest []*CondAndRest `parser:"@@*"`
}

type CondAndRest struct {
	Op   string      `parser:"@(\"&&\" | \"and\")"`
	Cond *CondNotAST `parser:"@@"`
}

type CondNotAST struct {
	Negate bool        `parser:"@(\"!\" | \"not\")?"`
	Atom   *CondAtomAST `parser:"@@"`
}

type CondAtomAST struct {
	Paren   *CondOrAST   `parser:"\"(\" @@ \")\""`
	True    bool         `parser:"| @\"true\""`
	False   bool         `parser:"| @\"false\""`
	Prev    bool         `parser:"| @\"_\""`
	Exists  *ExistsAST   `parser:"| \"exists\" @@"`
	Kernel  *KernelAST   `parser:"| @@"`
}

type ExistsAST struct {
	Arg string `parser:"@Ident?"`
}

type KernelAST struct {
	Component string `parser:"@(\"kver\" | \"kmaj\" | \"kmin\" | \"kpatch\")"`
	Op        string `parser:"@(\"==\" | \"!=\" | \"<=\" | \">=\" | \"<\" | \">\" | \"=\")"`
	Value     string `parser:"@(Version | Ident | Int | Hex)"`
}

// ParseFile parses the full text of a DSL source document.
func ParseFile(data []byte, filename string) (*File, error) {
	data = joinContinuations(data)

	f, err := dslParser.ParseBytes(filename, data)
	if err != nil {
		if uerr, ok := err.(*participle.UnexpectedTokenError); ok {
			return nil, &ParseError{File: filename, LineNo: uerr.Unexpected.Pos.Line, Column: uerr.Unexpected.Pos.Column, Message: err.Error()}
		}
		return nil, &ParseError{File: filename, Message: err.Error()}
	}
	return f, nil
}

// joinContinuations implements spec.md §6's line-continuation rule: a
// line whose last character (ignoring a trailing \r) is a backslash is
// joined to the next physical line, the backslash dropped and replaced
// with a single space, so the pair lexes as one logical statement line.
// Continuations may chain across more than two physical lines.
func joinContinuations(data []byte) []byte {
	lines := strings.Split(string(data), "\n")
	joined := make([]string, 0, len(lines))

	var pending string
	havePending := false
	for _, line := range lines {
		line = strings.TrimSuffix(line, "\r")

		if strings.HasSuffix(line, "\\") {
			pending += strings.TrimSuffix(line, "\\") + " "
			havePending = true
			continue
		}

		if havePending {
			joined = append(joined, pending+line)
			pending = ""
			havePending = false
		} else {
			joined = append(joined, line)
		}
	}
	if havePending {
		joined = append(joined, strings.TrimSuffix(pending, " "))
	}

	return []byte(strings.Join(joined, "\n"))
}
