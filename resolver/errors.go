// SPDX-License-Identifier: Apache-2.0
// Copyright 2022 Unikraft GmbH. All rights reserved.

package resolver

import (
	"fmt"

	"kconfigure.sh/decision"
)

// Cancelled is returned when the context passed to Resolve is done.
// It is decision.Cancelled itself (not a new sentinel), so a single
// errors.Is check covers cancellation from either package.
var Cancelled = decision.Cancelled

// UnsatisfiableError reports that upward expansion (§4.6) found no
// assignment to any upper-layer symbol that makes the named symbol's
// dir_dep satisfiable at its desired value.
type UnsatisfiableError struct {
	Symbol string
}

func (e *UnsatisfiableError) Error() string {
	return fmt.Sprintf("no assignment satisfies %q", e.Symbol)
}

// UnreachableError reports that Apply found a decision whose value-set no
// longer has a member consistent with dir_dep/rev_dep once all upper-layer
// assignments were fixed. Expand is supposed to prevent this; it surfaces
// only if a caller bypasses Expand or mutates the base Config in between.
type UnreachableError struct {
	Symbol string
}

func (e *UnreachableError) Error() string {
	return fmt.Sprintf("decision for %q is no longer reachable", e.Symbol)
}
