// SPDX-License-Identifier: Apache-2.0
// Copyright 2022 Unikraft GmbH. All rights reserved.

package decision

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"kconfigure.sh/kconfig"
	"kconfigure.sh/log"
)

// Verb is the normalized (lower-case, alias-collapsed) DSL verb.
type Verb string

const (
	VerbDisable   Verb = "disable"
	VerbModule    Verb = "module"
	VerbBuiltin   Verb = "builtin"
	VerbEither    Verb = "builtin-or-module"
	VerbSet       Verb = "set"
	VerbAppend    Verb = "append"
	VerbAdd       Verb = "add"
	VerbInclude   Verb = "include"
	VerbDiscard   Verb = "discard"
	VerbHWDetect  Verb = "hardware-detect"
	VerbPackages  Verb = "packages"
)

var verbAliases = map[string]Verb{
	"disable":            VerbDisable,
	"n":                  VerbDisable,
	"module":             VerbModule,
	"m":                  VerbModule,
	"builtin":            VerbBuiltin,
	"y":                  VerbBuiltin,
	"builtin-or-module":  VerbEither,
	"ym":                 VerbEither,
	"set":                VerbSet,
	"append":             VerbAppend,
	"add":                VerbAdd,
	"include":            VerbInclude,
	"discard":            VerbDiscard,
	"hardware-detect":    VerbHWDetect,
	"hwdetect":           VerbHWDetect,
	"packages":           VerbPackages,
	"pkg":                VerbPackages,
}

// RequestProducer is the external collaborator that turns
// `hardware-detect`/`packages` statements into further requests; hardware
// detection and package-manager integration are out of scope (spec.md §1)
// for this repository, so it is modelled only as this seam.
type RequestProducer interface {
	Produce(ctx context.Context, table *kconfig.Table) ([]Statement, error)
}

// Interpreter compiles and runs macro-DSL documents against a Store.
type Interpreter struct {
	table    *kconfig.Table
	store    *Store
	aliases  AliasResolver
	producer RequestProducer
	evalCtx  EvalContext
	prevCond bool
	included map[string]bool
}

// NewInterpreter returns an Interpreter writing decisions into store.
func NewInterpreter(table *kconfig.Table, store *Store, aliases AliasResolver, kernelVersion string) *Interpreter {
	return &Interpreter{
		table:    table,
		store:    store,
		aliases:  aliases,
		included: make(map[string]bool),
		evalCtx: EvalContext{
			KernelVersion: kernelVersion,
			Table:         table,
		},
	}
}

// WithRequestProducer attaches the hardware-detect/packages collaborator.
func (i *Interpreter) WithRequestProducer(p RequestProducer) *Interpreter {
	i.producer = p
	return i
}

// RunFile loads and executes a DSL document from disk, following `include`
// statements relative to the including file's directory.
func (i *Interpreter) RunFile(ctx context.Context, path string) error {
	if i.included[path] {
		return nil
	}
	i.included[path] = true

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read DSL file %v: %w", path, err)
	}

	f, err := ParseFile(data, path)
	if err != nil {
		return err
	}

	return i.run(ctx, f, filepath.Dir(path))
}

// RunString executes a DSL document already in memory (no includes
// resolve relative to a real directory; baseDir is used as-is).
func (i *Interpreter) RunString(ctx context.Context, data []byte, baseDir string) error {
	f, err := ParseFile(data, "<string>")
	if err != nil {
		return err
	}
	return i.run(ctx, f, baseDir)
}

func (i *Interpreter) run(ctx context.Context, f *File, baseDir string) error {
	for _, stmt := range f.Statements {
		select {
		case <-ctx.Done():
			return Cancelled
		default:
		}

		if err := i.execStatement(ctx, stmt, baseDir); err != nil {
			return err
		}
	}
	return nil
}

func (i *Interpreter) execStatement(ctx context.Context, stmt *Statement, baseDir string) error {
	verb, ok := verbAliases[strings.ToLower(stmt.Verb)]
	if !ok {
		return fmt.Errorf("unknown verb %q", stmt.Verb)
	}

	targets := stmt.Targets
	if len(targets) > 0 {
		i.evalCtx.Target = targets[0]
	}

	if stmt.Guard != nil {
		cond := compileCond(stmt.Guard.Cond)
		truth := cond.Eval(i.evalCtx)
		if strings.EqualFold(stmt.Guard.Keyword, "unless") {
			truth = !truth
		}
		i.prevCond = truth
		i.evalCtx.Previous = truth
		if !truth {
			log.G(ctx).Debugf("decision: statement for %v skipped (guard false)", targets)
			return nil
		}
	}

	// include's "target" is a file path, not a symbol; resolve it before
	// the symbol-table validation below ever sees it.
	if verb == VerbInclude {
		file := valueOf(stmt)
		if file == "" && len(targets) > 0 {
			file = targets[0]
		}
		if file == "" {
			return fmt.Errorf("include statement names no file")
		}
		if !filepath.IsAbs(file) {
			file = filepath.Join(baseDir, file)
		}
		return i.RunFile(ctx, file)
	}

	resolved, err := i.resolveTargets(stmt, targets)
	if err != nil {
		// An `exists` guard turns an unknown target into a skipped
		// statement; any other guard leaves the hard error intact.
		if _, ok := err.(*UnknownSymbolError); ok && stmt.Guard != nil && guardChecksExistence(stmt.Guard.Cond) {
			log.G(ctx).Debugf("decision: statement for %v skipped (unknown symbol under exists guard)", targets)
			return nil
		}
		return err
	}

	switch verb {
	case VerbDisable:
		return i.forEach(ctx, resolved, func(name string) error {
			return i.store.Merge(ctx, name, NewTristateSet(kconfig.No))
		})
	case VerbModule:
		return i.forEach(ctx, resolved, func(name string) error {
			return i.requireKindAndMerge(ctx, name, NewTristateSet(kconfig.Mod))
		})
	case VerbBuiltin:
		return i.forEach(ctx, resolved, func(name string) error {
			return i.store.Merge(ctx, name, NewTristateSet(kconfig.Yes))
		})
	case VerbEither:
		return i.forEach(ctx, resolved, func(name string) error {
			return i.requireKindAndMerge(ctx, name, NewTristateSet(kconfig.Mod, kconfig.Yes))
		})
	case VerbSet:
		val := valueOf(stmt)
		return i.forEach(ctx, resolved, func(name string) error {
			return i.mergeSet(ctx, name, val)
		})
	case VerbAppend:
		val := valueOf(stmt)
		return i.forEach(ctx, resolved, func(name string) error {
			return i.store.Append(name, val)
		})
	case VerbAdd:
		val := valueOf(stmt)
		return i.forEach(ctx, resolved, func(name string) error {
			return i.store.Add(name, val)
		})
	case VerbDiscard:
		for _, name := range resolved {
			i.store.Discard(name)
		}
		return nil
	case VerbHWDetect, VerbPackages:
		if i.producer == nil {
			log.G(ctx).Warnf("%s statement ignored: no request producer configured", verb)
			return nil
		}
		stmts, err := i.producer.Produce(ctx, i.table)
		if err != nil {
			return err
		}
		for _, s := range stmts {
			if err := i.execStatement(ctx, &s, baseDir); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("unhandled verb %q", verb)
	}
}

// mergeSet implements the `set` verb's value-set per spec.md §4.4's verb
// table: tristate/bool/choice symbols take a parsed tristate literal (y/m/n),
// everything else takes the text as-is, exactly as ApplyArgs's --set handling
// does for the flag-form equivalent.
func (i *Interpreter) mergeSet(ctx context.Context, name, val string) error {
	sym, ok := i.table.ByName(name)
	if !ok {
		return &UnknownSymbolError{Symbol: name}
	}

	var vs ValueSet
	switch sym.Kind {
	case kconfig.KindTristate, kconfig.KindBool, kconfig.KindChoice:
		t, ok := kconfig.ParseTristate(val)
		if !ok {
			return &TypeMismatchError{Symbol: name, Verb: "set", Detail: "expected y/m/n"}
		}
		vs = NewTristateSet(t)
	default:
		if err := sym.ValidateValue(val); err != nil {
			return &TypeMismatchError{Symbol: name, Verb: "set", Detail: err.Error()}
		}
		vs = NewLiteralSet(val)
	}
	return i.store.Merge(ctx, name, vs)
}

// requireKindAndMerge rejects module/builtin-or-module requests against a
// bool symbol (spec.md §4.4's verb matrix has no `{M}`/`{M,Y}` column for
// bool).
func (i *Interpreter) requireKindAndMerge(ctx context.Context, name string, vs ValueSet) error {
	sym, ok := i.table.ByName(name)
	if ok && sym.Kind == kconfig.KindBool && vs.Contains(kconfig.Mod) {
		return &TypeMismatchError{Symbol: name, Verb: "module", Detail: "bool symbols cannot take the module value"}
	}
	return i.store.Merge(ctx, name, vs)
}

func (i *Interpreter) forEach(ctx context.Context, names []string, f func(string) error) error {
	for _, n := range names {
		if err := f(n); err != nil {
			return err
		}
	}
	return nil
}

// resolveTargets applies the driver/modalias modifier, turning module names
// or hardware modalias strings into Kconfig symbol names.
func (i *Interpreter) resolveTargets(stmt *Statement, targets []string) ([]string, error) {
	switch strings.ToLower(stmt.Modifier) {
	case "driver":
		if i.aliases == nil {
			return nil, fmt.Errorf("driver modifier used with no alias resolver configured")
		}
		out := make([]string, 0, len(targets))
		for _, mod := range targets {
			sym, ok := i.aliases.ModuleToSymbol(mod)
			if !ok {
				return nil, &UnknownSymbolError{Symbol: mod}
			}
			out = append(out, sym)
		}
		return out, nil

	case "modalias":
		if i.aliases == nil {
			return nil, fmt.Errorf("modalias modifier used with no alias resolver configured")
		}
		var out []string
		for _, alias := range targets {
			for _, mod := range i.aliases.ModaliasToModules(alias) {
				sym, ok := i.aliases.ModuleToSymbol(mod)
				if ok {
					out = append(out, sym)
				}
			}
		}
		return out, nil

	default:
		for _, t := range targets {
			if _, ok := i.table.ByName(t); !ok {
				return nil, &UnknownSymbolError{Symbol: t}
			}
		}
		return targets, nil
	}
}

func valueOf(stmt *Statement) string {
	if stmt.Assign != nil {
		return *stmt.Assign
	}
	if stmt.Literal != nil {
		return *stmt.Literal
	}
	return ""
}

// compileCond lowers the parsed condition AST into the evaluable Cond tree.
func compileCond(or *CondOrAST) Cond {
	var c Cond = compileAnd(or.Left)
	for _, r := range or.Rest {
		c = condOr{A: c, B: compileAnd(r.Cond)}
	}
	return c
}

func compileAnd(and *CondAndAST) Cond {
	var c Cond = compileNot(and.Left)
	for _, r := range and.Rest {
		c = condAnd{A: c, B: compileNot(r.Cond)}
	}
	return c
}

func compileNot(not *CondNotAST) Cond {
	c := compileAtom(not.Atom)
	if not.Negate {
		return condNot{X: c}
	}
	return c
}

func compileAtom(atom *CondAtomAST) Cond {
	switch {
	case atom.Paren != nil:
		return compileCond(atom.Paren)
	case atom.True:
		return condTrue{}
	case atom.False:
		return condFalse{}
	case atom.Prev:
		return condPrevious{}
	case atom.Exists != nil:
		return condExists{Arg: atom.Exists.Arg}
	case atom.Kernel != nil:
		op, err := parseCondOp(atom.Kernel.Op)
		if err != nil {
			return condFalse{}
		}
		component := strings.TrimPrefix(strings.ToLower(atom.Kernel.Component), "k")
		return condKernel{Component: component, Op: op, Value: atom.Kernel.Value}
	default:
		return condFalse{}
	}
}

// guardChecksExistence reports whether any atom of the guard condition is
// an `exists` check, which is what allows an unknown target symbol to be
// skipped instead of raising UnknownSymbolError.
func guardChecksExistence(or *CondOrAST) bool {
	for _, and := range append([]*CondAndAST{or.Left}, orConds(or.Rest)...) {
		for _, not := range append([]*CondNotAST{and.Left}, andConds(and.Rest)...) {
			atom := not.Atom
			if atom == nil {
				continue
			}
			if atom.Exists != nil {
				return true
			}
			if atom.Paren != nil && guardChecksExistence(atom.Paren) {
				return true
			}
		}
	}
	return false
}

func orConds(rest []*CondOrRest) []*CondAndAST {
	out := make([]*CondAndAST, 0, len(rest))
	for _, r := range rest {
		out = append(out, r.Cond)
	}
	return out
}

func andConds(rest []*CondAndRest) []*CondNotAST {
	out := make([]*CondNotAST, 0, len(rest))
	for _, r := range rest {
		out = append(out, r.Cond)
	}
	return out
}
