// SPDX-License-Identifier: Apache-2.0
// Copyright 2020 syzkaller project authors. All rights reserved.
// Copyright 2020 The Compose Specification Authors.
// Copyright 2022 Unikraft GmbH. All rights reserved.

package kconfig

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// DotConfigFileName is the canonical filename Linux's Kconfig tooling reads
// and writes.
const DotConfigFileName = ".config"

// dotConfigHeader is written verbatim at the top of every generated .config,
// matching the marker upstream `make oldconfig` tooling looks for.
const dotConfigHeader = "# Automatically generated file; DO NOT EDIT.\n"

// ConfigValue is one CONFIG_<Name>=<Value> (or "# CONFIG_<Name> is not
// set") line. Value is kept in its raw textual .config form: "n"/"m"/"y"
// for tristate/bool, the unescaped string for string symbols, decimal for
// int, "0x..." for hex.
type ConfigValue struct {
	Name     string
	Value    string
	comments []string
}

// Config is a mutable symbol -> value map mirroring the on-disk .config
// format. It is not itself aware of a Table's dependency structure — it is
// the storage layer the decision/resolver packages read from and write to.
// The only exported field, to match the teacher's convention of allowing
// direct reads of the parsed structure, is absent here: all access goes
// through methods so callers can't bypass the kind/order bookkeeping.
type Config struct {
	order    []string
	values   map[string]*ConfigValue
	comments []string
}

// NewConfig returns an empty Config with nothing set.
func NewConfig() *Config {
	return &Config{values: make(map[string]*ConfigValue)}
}

// Value returns the raw textual value of name, or "" if unset.
func (cf *Config) Value(name string) string {
	cfg := cf.values[name]
	if cfg == nil {
		return ""
	}
	return cfg.Value
}

// Has reports whether name has any recorded value at all (set, even to n).
func (cf *Config) Has(name string) bool {
	_, ok := cf.values[name]
	return ok
}

// Set changes name's value, or adds it if not yet present, preserving
// first-set order for stable serialization.
func (cf *Config) Set(name, val string) {
	cfg := cf.values[name]
	if cfg == nil {
		cfg = &ConfigValue{Name: name}
		cf.values[name] = cfg
		cf.order = append(cf.order, name)
	}
	cfg.Value = val
	cfg.comments = append(cfg.comments, cf.comments...)
	cf.comments = nil
}

// Unset removes name from the config entirely (distinct from setting it to
// the tristate "n", which is how Kconfig represents a known-disabled
// symbol; Unset represents "never considered").
func (cf *Config) Unset(name string) {
	if _, ok := cf.values[name]; !ok {
		return
	}
	delete(cf.values, name)
	for i, n := range cf.order {
		if n == name {
			cf.order = append(cf.order[:i], cf.order[i+1:]...)
			break
		}
	}
}

// Tristate returns name's value as a Tristate, defaulting to No for an
// absent or unparseable entry.
func (cf *Config) Tristate(name string) Tristate {
	t, _ := ParseTristate(cf.Value(name))
	return t
}

// SetTristate stores v in its canonical textual form.
func (cf *Config) SetTristate(name string, v Tristate) {
	cf.Set(name, v.String())
}

// Lookup adapts this Config to the Lookup signature expected by Expr.Eval.
func (cf *Config) Lookup(name string) string {
	return cf.Value(name)
}

// Names returns every set symbol name in first-set order.
func (cf *Config) Names() []string {
	out := make([]string, len(cf.order))
	copy(out, cf.order)
	return out
}

// Clone returns a deep-enough copy for speculative mutation (used by Expand
// when scoring candidate minimum-impact sets).
func (cf *Config) Clone() *Config {
	cf1 := &Config{values: make(map[string]*ConfigValue, len(cf.values))}
	for _, name := range cf.order {
		v := *cf.values[name]
		cf1.values[name] = &v
		cf1.order = append(cf1.order, name)
	}
	return cf1
}

// Serialize renders the config in upstream .config format: tristate/bool
// No as a commented-out "is not set" line, every other kind as
// CONFIG_NAME=VALUE.
func (cf *Config) Serialize(table *Table) []byte {
	buf := new(bytes.Buffer)
	buf.WriteString(dotConfigHeader)

	for _, name := range cf.order {
		cfg := cf.values[name]
		for _, comment := range cfg.comments {
			fmt.Fprintf(buf, "%v\n", comment)
		}

		var kind SymbolKind
		if table != nil {
			if sym, ok := table.ByName(name); ok {
				kind = sym.Kind
			}
		}
		fmt.Fprintln(buf, FormatLine(name, cfg.Value, kind))
	}

	for _, comment := range cf.comments {
		fmt.Fprintf(buf, "%v\n", comment)
	}

	return buf.Bytes()
}

// Store atomically writes the config to path: write to a sibling temp file,
// fsync it, then rename over the destination so readers never observe a
// partially-written .config.
func (cf *Config) Store(path string, table *Table) error {
	data := cf.Serialize(table)

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".config.tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %v: %w", path, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %v: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to fsync %v: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %v: %w", tmpName, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("failed to chmod %v: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to rename %v to %v: %w", tmpName, path, err)
	}

	return nil
}

// ParseConfig reads and parses a .config file from disk.
func ParseConfig(file string) (*Config, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to open .config file %v: %v", file, err)
	}

	return ParseConfigData(data, file)
}

// ParseConfigData parses .config-format bytes already in memory. Per
// spec.md §4.1/§7, a line matching none of the recognized forms (a
// CONFIG_ assignment, a "# CONFIG_ is not set" marker, or a blank/comment
// line) is a malformed line: the parser keeps draining the rest of the
// file so every well-formed line is still applied, but the first such
// line encountered is returned as a *ParseError.
func ParseConfigData(data []byte, file string) (*Config, error) {
	cf := NewConfig()

	var firstErr *ParseError
	lineNo := 0
	s := bufio.NewScanner(bytes.NewReader(data))
	for s.Scan() {
		lineNo++
		if err := cf.parseLine(s.Text()); err != nil && firstErr == nil {
			err.File = file
			err.LineNo = lineNo
			firstErr = err
		}
	}

	if firstErr != nil {
		return cf, firstErr
	}
	return cf, nil
}

// parseLine matches text against the recognized .config line forms,
// recording it in cf if it matches, and returns a *ParseError describing
// the line if it matches none of them (LineNo/File are left for the
// caller to fill in, since parseLine doesn't track its own position).
func (cf *Config) parseLine(text string) *ParseError {
	if match := reConfigSet.FindStringSubmatch(text); match != nil {
		cf.Set(match[1], unescapeConfigValue(match[2]))
		return nil
	}
	if match := reConfigUnset.FindStringSubmatch(text); match != nil {
		cf.Set(match[1], No.String())
		return nil
	}
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		// Serialize always re-emits the generated-file header itself;
		// recording it as a comment too would duplicate it on every
		// parse/serialize round trip.
		if trimmed != strings.TrimSuffix(dotConfigHeader, "\n") {
			cf.comments = append(cf.comments, text)
		}
		return nil
	}
	return &ParseError{Message: fmt.Sprintf("malformed .config line: %q", text)}
}

var (
	reConfigSet   = regexp.MustCompile(`^` + configPrefix + `([A-Za-z0-9_]+)=(y|m|n|(?:-?[0-9]+)|(?:0x[0-9a-fA-F]+)|(?:".*"))$`)
	reConfigUnset = regexp.MustCompile(`^# ` + configPrefix + `([A-Za-z0-9_]+) is not set$`)
)
