// SPDX-License-Identifier: BSD-3-Clause
//
// Authors: Stefan Jumarea <stefanjumarea02@gmail.com>
//
// Copyright (c) 2022, Unikraft GmbH.  All rights reserved.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions
// are met:
//
// 1. Redistributions of source code must retain the above copyright
//    notice, this list of conditions and the following disclaimer.
// 2. Redistributions in binary form must reproduce the above copyright
//    notice, this list of conditions and the following disclaimer in the
//    documentation and/or other materials provided with the distribution.
// 3. Neither the name of the copyright holder nor the names of its
//    contributors may be used to endorse or promote products derived from
//    this software without specific prior written permission.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND CONTRIBUTORS "AS IS"
// AND ANY EXPRESS OR IMPLIED WARRANTIES, INCLUDING, BUT NOT LIMITED TO, THE
// IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE
// ARE DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR CONTRIBUTORS BE
// LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL, SPECIAL, EXEMPLARY, OR
// CONSEQUENTIAL DAMAGES (INCLUDING, BUT NOT LIMITED TO, PROCUREMENT OF
// SUBSTITUTE GOODS OR SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
// INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY, WHETHER IN
// CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING NEGLIGENCE OR OTHERWISE)
// ARISING IN ANY WAY OUT OF THE USE OF THIS SOFTWARE, EVEN IF ADVISED OF THE
// POSSIBILITY OF SUCH DAMAGE.

package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
)

// EnvFeeder feeds using environment variables. It walks the Config struct's
// `env:"..."` tags directly with os.LookupEnv rather than a struct-tag
// unmarshalling library, since no such library is resolvable from this
// repository's dependency set.
type EnvFeeder struct{}

func (f EnvFeeder) Feed(structure interface{}) error {
	cfg, ok := structure.(**Config)
	if !ok {
		return fmt.Errorf("env feeder expects **Config, got %T", structure)
	}

	return feedEnv(reflect.ValueOf(*cfg))
}

func feedEnv(v reflect.Value) error {
	if v.Kind() != reflect.Ptr {
		return fmt.Errorf("not a pointer value")
	}

	v = reflect.Indirect(v)

	switch v.Kind() {
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			field := v.Field(i)
			tag := v.Type().Field(i).Tag.Get("env")

			if field.Kind() == reflect.Struct {
				if err := feedEnv(field.Addr()); err != nil {
					return err
				}
				continue
			}

			if tag == "" {
				continue
			}

			raw, ok := os.LookupEnv(tag)
			if !ok {
				continue
			}

			switch field.Kind() {
			case reflect.String:
				field.SetString(raw)
			case reflect.Bool:
				b, err := strconv.ParseBool(raw)
				if err != nil {
					return fmt.Errorf("invalid boolean for %s: %v", tag, err)
				}
				field.SetBool(b)
			case reflect.Int:
				n, err := strconv.ParseInt(raw, 10, 64)
				if err != nil {
					return fmt.Errorf("invalid integer for %s: %v", tag, err)
				}
				field.SetInt(n)
			case reflect.Slice:
				if field.Type().Elem().Kind() == reflect.String {
					field.Set(reflect.ValueOf(splitList(raw)))
				}
			}
		}

	default:
		return nil
	}

	return nil
}

// splitList splits a PATH-style colon-separated environment value.
func splitList(raw string) []string {
	var out []string
	start := 0
	for i := 0; i < len(raw); i++ {
		if raw[i] == ':' {
			if i > start {
				out = append(out, raw[start:i])
			}
			start = i + 1
		}
	}
	if start < len(raw) {
		out = append(out, raw[start:])
	}
	return out
}

// Write is a no-op: kconfigure never writes environment variables back.
func (f EnvFeeder) Write(structure interface{}, merge bool) error {
	return nil
}
