// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2022, Unikraft GmbH and The KraftKit Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file expect in compliance with the License.
package cmdfactory

import (
	"fmt"
	"strings"
)

// EnumFlag is a pflag.Value restricting its input to one of a fixed set
// of fmt.Stringer values, such as an output-format enum.
type EnumFlag[T fmt.Stringer] struct {
	Allowed []T
	Value   T
}

// NewEnumFlag builds an EnumFlag accepting only the given allowed
// values, defaulting to d.
func NewEnumFlag[T fmt.Stringer](allowed []T, d T) *EnumFlag[T] {
	return &EnumFlag[T]{
		Allowed: allowed,
		Value:   d,
	}
}

func (e *EnumFlag[T]) String() string {
	return e.Value.String()
}

func (e *EnumFlag[T]) Set(raw string) error {
	for _, candidate := range e.Allowed {
		if candidate.String() == raw {
			e.Value = candidate
			return nil
		}
	}

	names := make([]string, len(e.Allowed))
	for i, candidate := range e.Allowed {
		names[i] = candidate.String()
	}
	return fmt.Errorf("%s is not included in: %s", raw, strings.Join(names, ", "))
}

func (e *EnumFlag[T]) Type() string {
	return "string"
}
