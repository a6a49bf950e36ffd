// SPDX-License-Identifier: Apache-2.0
// Copyright 2022 Unikraft GmbH. All rights reserved.

package decision

import (
	"bufio"
	"os"
	"strings"
)

// AliasResolver is the external collaborator behind the `driver` and
// `modalias` DSL modifiers (spec.md §4.4): it maps kernel module names, and
// hardware modalias strings, to the Kconfig symbol that builds them.
// Hardware detection and package-manager integration are explicitly out of
// scope for this repository (spec.md §1); this interface is the seam a
// caller plugs such a collaborator into.
type AliasResolver interface {
	// ModuleToSymbol resolves a bare kernel module name (e.g. "e1000e") to
	// the CONFIG_ symbol that builds it, or ok=false if unknown.
	ModuleToSymbol(module string) (symbol string, ok bool)

	// ModaliasToModules resolves a hardware modalias string to the set of
	// kernel module names that claim to support it.
	ModaliasToModules(modalias string) []string
}

// ModulesAliasFile is an AliasResolver backed by a kernel
// `modules.alias`-style file: lines of the form
// `alias <modalias-glob> <module>` and, for the reverse module->symbol
// direction, a second file mapping module names to CONFIG_ symbols
// (`<module> <SYMBOL>` per line, as produced by `modinfo`-derived tooling).
type ModulesAliasFile struct {
	moduleToSymbol map[string]string
	modaliasRules  []aliasRule
}

type aliasRule struct {
	prefix string // the literal portion of the glob before the first '*'
	module string
}

// NewModulesAliasFile loads aliasPath (modalias -> module) and symbolsPath
// (module -> symbol); either may be empty to skip that half.
func NewModulesAliasFile(aliasPath, symbolsPath string) (*ModulesAliasFile, error) {
	m := &ModulesAliasFile{moduleToSymbol: make(map[string]string)}

	if aliasPath != "" {
		if err := m.loadAliases(aliasPath); err != nil {
			return nil, err
		}
	}
	if symbolsPath != "" {
		if err := m.loadSymbols(symbolsPath); err != nil {
			return nil, err
		}
	}

	return m, nil
}

func (m *ModulesAliasFile) loadAliases(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	s := bufio.NewScanner(f)
	for s.Scan() {
		fields := strings.Fields(s.Text())
		if len(fields) != 3 || fields[0] != "alias" {
			continue
		}
		glob := fields[1]
		prefix := glob
		if i := strings.IndexByte(glob, '*'); i >= 0 {
			prefix = glob[:i]
		}
		m.modaliasRules = append(m.modaliasRules, aliasRule{prefix: prefix, module: fields[2]})
	}
	return s.Err()
}

func (m *ModulesAliasFile) loadSymbols(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	s := bufio.NewScanner(f)
	for s.Scan() {
		fields := strings.Fields(s.Text())
		if len(fields) != 2 {
			continue
		}
		m.moduleToSymbol[fields[0]] = fields[1]
	}
	return s.Err()
}

func (m *ModulesAliasFile) ModuleToSymbol(module string) (string, bool) {
	sym, ok := m.moduleToSymbol[module]
	return sym, ok
}

func (m *ModulesAliasFile) ModaliasToModules(modalias string) []string {
	var out []string
	for _, rule := range m.modaliasRules {
		if strings.HasPrefix(modalias, rule.prefix) {
			out = append(out, rule.module)
		}
	}
	return out
}
