// Package testutil holds shared helpers for the test suites.
package testutil

import "testing"

// Given, When, and Then wrap t.Run so multi-step history scenarios read
// as prose. Each is just a named subtest; there is no machinery behind
// the prefix.
func Given(t *testing.T, desc string, fn func(t *testing.T)) {
	t.Helper()
	t.Run("Given "+desc, fn)
}

func When(t *testing.T, desc string, fn func(t *testing.T)) {
	t.Helper()
	t.Run("When "+desc, fn)
}

func Then(t *testing.T, desc string, fn func(t *testing.T)) {
	t.Helper()
	t.Run("Then "+desc, fn)
}
