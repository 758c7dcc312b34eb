package eval

import (
	"fmt"
	"strings"
)

// Policy selects what a failed check does to the test.
type Policy int

const (
	// Immediate aborts the chain at the first failure.
	Immediate Policy = iota

	// Deferred records failures and lets the chain continue.
	Deferred
)

// String returns the scenario spelling of the policy.
func (p Policy) String() string {
	switch p {
	case Immediate:
		return "now"
	case Deferred:
		return "batch"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// ParsePolicy accepts "now"/"immediate" and "batch"/"deferred".
// The empty string is Immediate.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "now", "immediate":
		return Immediate, nil
	case "batch", "deferred", "soft":
		return Deferred, nil
	default:
		return Immediate, fmt.Errorf("unknown policy %q (want now or batch)", s)
	}
}
