// SPDX-License-Identifier: Apache-2.0
// Copyright 2022 Acorn Labs, Inc; All rights reserved.
// Copyright 2022 Unikraft GmbH; All rights reserved.
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
package cmdfactory

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unsafe"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// camelBoundary marks the boundary between a lowercase and an uppercase
// letter, used to turn a Go field name like "MaxRetries" into the flag
// name "max-retries".
var camelBoundary = regexp.MustCompile("([a-z])([A-Z])")

// boundField pairs a struct field's type metadata with the addressable
// reflect.Value backing it, as produced by structFields.
type boundField struct {
	Type  reflect.StructField
	Value reflect.Value
}

// structFields flattens obj's exported fields, descending into anonymous
// struct fields so a struct embedding another struct exposes both
// structs' fields as flags on the same command.
func structFields(obj any) []boundField {
	ptr := reflect.ValueOf(obj)
	var root reflect.Value
	if ptr.Kind() == reflect.Ptr {
		root = ptr.Elem()
	} else {
		root = ptr
	}

	var out []boundField
	for i := 0; i < root.NumField(); i++ {
		ft := root.Type().Field(i)
		switch {
		case ft.Anonymous && ft.Type.Kind() == reflect.Struct:
			out = append(out, structFields(root.Field(i).Addr().Interface())...)
		case !ft.Anonymous:
			out = append(out, boundField{Type: ft, Value: root.Field(i)})
		}
	}

	return out
}

// Name derives a command's name from the name of the Runnable struct
// behind it, stripping a trailing "Command" suffix and converting to
// kebab-case (so *DumpCommand yields "dump").
func Name(obj any) string {
	structName := reflect.ValueOf(obj).Elem().Type().Name()
	structName = strings.Replace(structName, "Command", "", 1)
	flag, _ := flagName(structName, "", "")
	return flag
}

// flagName derives a flag's long name and shorthand from a struct
// field's Go name, unless overridden by the `long`/`short` struct tags
// (setName/short respectively).
func flagName(fieldName, setName, short string) (string, string) {
	if setName != "" {
		return setName, short
	}

	parts := strings.Split(fieldName, "_")
	last := len(parts) - 1
	kebab := camelBoundary.ReplaceAllString(parts[last], "$1-$2")
	kebab = strings.ToLower(kebab)

	result := append([]string{kebab}, parts[:last]...)
	for i := range result {
		result[i] = strings.ToLower(result[i])
	}
	if short == "" && len(result) > 1 {
		short = result[1]
	}
	return result[0], short
}

// flagKey keeps only the part of name after its last comma (all of name when
// it has none), matching the bare flag name used to key the
// arrays/slices/maps/opt* maps below.
func flagKey(name string) string {
	parts := strings.Split(name, ",")
	return parts[len(parts)-1]
}

// AttributeFlags walks obj's exported fields and registers a pflag for
// each one against c, driven by the `long`, `short`, `usage`, `env`,
// `default`, `split`, `local`, and `noattribute` struct tags. If args is
// non-empty it is parsed immediately so obj's fields reflect the parsed
// values without waiting for cobra to invoke the command's RunE.
func AttributeFlags(c *cobra.Command, obj any, args ...string) error {
	var (
		hooks     []func()
		arrays    = map[string]reflect.Value{}
		slices    = map[string]reflect.Value{}
		maps      = map[string]reflect.Value{}
		optString = map[string]reflect.Value{}
		optBool   = map[string]reflect.Value{}
		optInt    = map[string]reflect.Value{}
	)

	for _, field := range structFields(obj) {
		ft := field.Type
		v := field.Value

		if strings.ToUpper(ft.Name[0:1]) != ft.Name[0:1] {
			continue
		}
		if ft.Tag.Get("noattribute") == "true" {
			continue
		}

		name, alias := flagName(ft.Name, ft.Tag.Get("long"), ft.Tag.Get("short"))
		usage := ft.Tag.Get("usage")
		envName := ft.Tag.Get("env")
		defValue := ft.Tag.Get("default")
		defInt, err := strconv.Atoi(defValue)
		if err != nil {
			defInt = 0
		}
		strValue := fmt.Sprint(v)

		// An environment value, when set, takes precedence over whatever
		// the struct field was initialized to (typically from a config
		// file).
		if envName != "" {
			if envValue := os.Getenv(envName); envValue != "" {
				strValue = envValue
			}
		}
		if strValue == "" && defValue != "" {
			strValue = defValue
		}

		flags := c.PersistentFlags()
		if ft.Tag.Get("local") == "true" {
			flags = c.Flags()
		}

		switch v.Interface().(type) {
		case time.Duration:
			flags.DurationVarP((*time.Duration)(unsafe.Pointer(v.Addr().Pointer())), name, alias, time.Duration(defInt), usage)
			continue
		}

		switch ft.Type.Kind() {
		case reflect.Int, reflect.Int64:
			flags.IntVarP((*int)(unsafe.Pointer(v.Addr().Pointer())), name, alias, defInt, usage)
			if err := flags.Set(name, strValue); err != nil {
				return err
			}
		case reflect.String:
			flags.StringVarP((*string)(unsafe.Pointer(v.Addr().Pointer())), name, alias, defValue, usage)
			if err := flags.Set(name, strValue); err != nil {
				return err
			}
		case reflect.Bool:
			flags.BoolVarP((*bool)(unsafe.Pointer(v.Addr().Pointer())), name, alias, false, usage)
			if err := flags.Set(name, strValue); err != nil {
				return err
			}
		case reflect.Slice:
			switch ft.Tag.Get("split") {
			case "false":
				arrays[name] = v
				if ptr := (*[]string)(unsafe.Pointer(v.Addr().Pointer())); *ptr != nil {
					flags.StringArrayVarP(ptr, name, alias, *ptr, usage)
				} else {
					flags.StringArrayP(name, alias, nil, usage)
				}
			default:
				slices[name] = v
				if ptr := (*[]string)(unsafe.Pointer(v.Addr().Pointer())); *ptr != nil {
					flags.StringSliceVarP(ptr, name, alias, *ptr, usage)
				} else {
					flags.StringSliceP(name, alias, nil, usage)
				}
			}
		case reflect.Map:
			maps[name] = v
			if ptr := (*[]string)(unsafe.Pointer(v.Addr().Pointer())); *ptr != nil {
				flags.StringSliceVarP(ptr, name, alias, *ptr, usage)
			} else {
				flags.StringSliceP(name, alias, nil, usage)
			}
		case reflect.Pointer:
			switch ft.Type.Elem().Kind() {
			case reflect.Int, reflect.Int64:
				optInt[name] = v
				flags.IntP(name, alias, defInt, usage)
				if err := flags.Set(name, strValue); err != nil {
					return err
				}
			case reflect.String:
				optString[name] = v
				flags.StringP(name, alias, defValue, usage)
				if err := flags.Set(name, strValue); err != nil {
					return err
				}
			case reflect.Bool:
				optBool[name] = v
				flags.BoolP(name, alias, false, usage)
				if err := flags.Set(name, strValue); err != nil {
					return err
				}
			}
		case reflect.Struct:
			if !v.CanAddr() {
				continue
			}
			// Recurse into embedded (non-anonymous) struct fields so their
			// tagged members become flags on the same command too.
			if err := AttributeFlags(c, v.Addr().Interface()); err != nil {
				return err
			}
		default:
			continue
		}
	}

	if len(args) > 0 {
		installRegisteredFlags(c)

		if err := c.ParseFlags(args); err != nil && !errors.Is(err, pflag.ErrHelp) {
			return err
		}
	}

	c.PersistentPreRunE = bindPostParse(c.PersistentPreRunE, arrays, slices, maps, optInt, optBool, optString, hooks)
	c.PreRunE = bindPostParse(c.PreRunE, arrays, slices, maps, optInt, optBool, optString, hooks)
	c.RunE = bindPostParse(c.RunE, arrays, slices, maps, optInt, optBool, optString, hooks)

	return nil
}

// bindPostParse wraps next so that, once cobra has parsed the command
// line, the slice/map/pointer fields AttributeFlags couldn't bind
// directly (pflag has no native setter for them) are copied from their
// flags into the struct before next runs.
func bindPostParse(
	next func(*cobra.Command, []string) error,
	arrays, slices, maps, optInt, optBool, optString map[string]reflect.Value,
	hooks []func(),
) func(*cobra.Command, []string) error {
	if next == nil {
		return nil
	}
	return func(cmd *cobra.Command, args []string) error {
		for _, hook := range hooks {
			hook()
		}
		if err := applyArrays(cmd, arrays); err != nil {
			return err
		}
		if err := applySlices(cmd, slices); err != nil {
			return err
		}
		if err := applyMaps(cmd, maps); err != nil {
			return err
		}
		if err := applyOptInt(cmd, optInt); err != nil {
			return err
		}
		if err := applyOptBool(cmd, optBool); err != nil {
			return err
		}
		if err := applyOptString(cmd, optString); err != nil {
			return err
		}

		return next(cmd, args)
	}
}

func applyOptBool(cmd *cobra.Command, fields map[string]reflect.Value) error {
	for name, v := range fields {
		name = flagKey(name)
		if !cmd.Flags().Lookup(name).Changed {
			continue
		}
		val, err := cmd.Flags().GetBool(name)
		if err != nil {
			return err
		}
		v.Set(reflect.ValueOf(&val))
	}
	return nil
}

func applyOptString(cmd *cobra.Command, fields map[string]reflect.Value) error {
	for name, v := range fields {
		name = flagKey(name)
		if !cmd.Flags().Lookup(name).Changed {
			continue
		}
		val, err := cmd.Flags().GetString(name)
		if err != nil {
			return err
		}
		v.Set(reflect.ValueOf(&val))
	}
	return nil
}

func applyOptInt(cmd *cobra.Command, fields map[string]reflect.Value) error {
	for name, v := range fields {
		name = flagKey(name)
		if !cmd.Flags().Lookup(name).Changed {
			continue
		}
		val, err := cmd.Flags().GetInt(name)
		if err != nil {
			return err
		}
		v.Set(reflect.ValueOf(&val))
	}
	return nil
}

func applyMaps(cmd *cobra.Command, fields map[string]reflect.Value) error {
	for name, v := range fields {
		name = flagKey(name)
		raw, err := cmd.Flags().GetStringSlice(name)
		if err != nil {
			continue
		}
		if raw == nil {
			continue
		}
		values := map[string]string{}
		for _, entry := range raw {
			parts := strings.SplitN(entry, "=", 2)
			if len(parts) == 1 {
				values[parts[0]] = ""
			} else {
				values[parts[0]] = parts[1]
			}
		}
		v.Set(reflect.ValueOf(values))
	}
	return nil
}

func applySlices(cmd *cobra.Command, fields map[string]reflect.Value) error {
	for name, v := range fields {
		name = flagKey(name)
		raw, err := cmd.Flags().GetStringSlice(name)
		if err != nil {
			continue
		}
		flag := cmd.Flags().Lookup(name)
		if flag.Changed && len(raw) == 0 {
			raw = []string{""}
		}
		if raw != nil {
			v.Set(reflect.ValueOf(raw[:]))
		}
	}
	return nil
}

func applyArrays(cmd *cobra.Command, fields map[string]reflect.Value) error {
	for name, v := range fields {
		name = flagKey(name)
		raw, err := cmd.Flags().GetStringArray(name)
		if err != nil {
			continue
		}
		flag := cmd.Flags().Lookup(name)
		if flag.Changed && len(raw) == 0 {
			raw = []string{""}
		}
		if raw != nil {
			v.Set(reflect.ValueOf(raw[:]))
		}
	}
	return nil
}
