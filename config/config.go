// SPDX-License-Identifier: BSD-3-Clause
//
// Authors: Alexander Jung <alex@unikraft.io>
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

// Package config holds the settings that drive kconfigure independently of
// any single .config file: the kernel source tree to import symbols from,
// the target architecture pair, and logging/prompting preferences.
package config

import (
	"fmt"
	"path/filepath"
	"reflect"
	"strconv"
)

// Config holds kconfigure's own settings, loaded from defaults, a YAML
// settings file and environment variables; environment variables override
// the YAML file, which overrides the defaults.
type Config struct {
	NoPrompt bool `json:"no_prompt" yaml:"no_prompt" env:"KCONFIGURE_NO_PROMPT" default:"false"`

	Kernel struct {
		SrcTree string `json:"srctree" yaml:"srctree,omitempty" env:"KCONFIGURE_KERNEL_SRCTREE"`
		Arch    string `json:"arch"    yaml:"arch"              env:"KCONFIGURE_KERNEL_ARCH"    default:"x86"`
		SrcArch string `json:"srcarch" yaml:"srcarch"            env:"KCONFIGURE_KERNEL_SRCARCH" default:"x86"`
		Version string `json:"version" yaml:"version,omitempty" env:"KCONFIGURE_KERNEL_VERSION"`
	} `json:"kernel" yaml:"kernel"`

	Paths struct {
		Config        string   `json:"config"         yaml:"config,omitempty"         env:"KCONFIGURE_PATHS_CONFIG"`
		ModulesAlias  []string `json:"modules_alias"   yaml:"modules_alias,omitempty"   env:"KCONFIGURE_PATHS_MODULES_ALIAS"`
	} `json:"paths" yaml:"paths,omitempty"`

	Log struct {
		Level      string `json:"level"      yaml:"level"      env:"KCONFIGURE_LOG_LEVEL"      default:"info"`
		Timestamps bool   `json:"timestamps" yaml:"timestamps" env:"KCONFIGURE_LOG_TIMESTAMPS" default:"false"`
		Type       string `json:"type"       yaml:"type"       env:"KCONFIGURE_LOG_TYPE"       default:"fancy"`
	} `json:"log" yaml:"log"`
}

type ConfigDetail struct {
	Key           string
	Description   string
	AllowedValues []string
}

var configDetails = []ConfigDetail{
	{
		Key:         "no_prompt",
		Description: "toggle interactive prompting in the terminal",
	},
	{
		Key:         "kernel.arch",
		Description: "the ARCH value used when importing Kconfig symbols",
	},
	{
		Key:         "kernel.srcarch",
		Description: "the SRCARCH value used when importing Kconfig symbols",
	},
	{
		Key:         "log.level",
		Description: "set the logging verbosity",
		AllowedValues: []string{
			"fatal",
			"error",
			"warn",
			"info",
			"debug",
			"trace",
		},
	},
	{
		Key:         "log.type",
		Description: "set the logging output renderer",
		AllowedValues: []string{
			"quiet",
			"basic",
			"fancy",
			"json",
		},
	},
	{
		Key:         "log.timestamps",
		Description: "show timestamps with log output",
	},
}

func ConfigDetails() []ConfigDetail {
	return configDetails
}

func NewDefaultConfig() (*Config, error) {
	c := &Config{}

	if err := setDefaults(c); err != nil {
		return nil, fmt.Errorf("could not set defaults for config: %s", err)
	}

	if len(c.Paths.Config) == 0 {
		c.Paths.Config = filepath.Join(ConfigDir())
	}

	return c, nil
}

func setDefaults(s interface{}) error {
	return setDefaultValue(reflect.ValueOf(s), "")
}

func setDefaultValue(v reflect.Value, def string) error {
	if v.Kind() != reflect.Ptr {
		return fmt.Errorf("not a pointer value")
	}

	v = reflect.Indirect(v)

	switch v.Kind() {
	case reflect.Int:
		if len(def) > 0 {
			i, err := strconv.ParseInt(def, 10, 64)
			if err != nil {
				return fmt.Errorf("could not parse default integer value: %s", err)
			}
			v.SetInt(i)
		}

	case reflect.String:
		if len(def) > 0 {
			v.SetString(def)
		}

	case reflect.Bool:
		if len(def) > 0 {
			b, err := strconv.ParseBool(def)
			if err != nil {
				return fmt.Errorf("could not parse default boolean value: %s", err)
			}
			v.SetBool(b)
		} else {
			v.SetBool(false)
		}

	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			if err := setDefaultValue(
				v.Field(i).Addr(),
				v.Type().Field(i).Tag.Get("default"),
			); err != nil {
				return err
			}
		}

	case reflect.Slice:
		// Nothing to default for string/slice paths.

	default:
		return nil
	}

	return nil
}

// AllowedValues returns the set of accepted values for a settings key, if
// the key is enumerable.
func AllowedValues(key string) []string {
	for _, details := range ConfigDetails() {
		if details.Key == key {
			return details.AllowedValues
		}
	}

	return []string{}
}
