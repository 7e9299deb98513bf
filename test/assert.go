// Package test provides helpers to solve gadget circuits in unit tests and
// assert on the outcome.
package test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/consensys/tower-gadgets/circuit"
)

// Assert is a helper to test circuits
type Assert struct {
	t *testing.T
	*require.Assertions
}

// NewAssert returns an Assert helper embedding a testify/require object for
// convenience
func NewAssert(t *testing.T) *Assert {
	return &Assert{t: t, Assertions: require.New(t)}
}

// Run runs the test function fn as a subtest. The subtest is parametrized by
// the description strings descs.
func (assert *Assert) Run(fn func(assert *Assert), descs ...string) {
	desc := strings.Join(descs, "/")
	assert.t.Run(desc, func(t *testing.T) {
		fn(NewAssert(t))
	})
}

// SolvingSucceeded solves the circuit against the witness and asserts no
// constraint fails.
func (assert *Assert) SolvingSucceeded(b *circuit.Builder, w *circuit.Witness) {
	assert.t.Helper()
	assert.NoError(b.Solve(w))
}

// SolvingFailed asserts that solving fails. A non-nil target additionally
// asserts the failure class: circuit.ErrUnsatisfied for a failed constraint,
// circuit.ErrHintFailed for a native failure during witness generation,
// circuit.ErrMissingAssignment for an unassigned wire.
func (assert *Assert) SolvingFailed(b *circuit.Builder, w *circuit.Witness, target error) {
	assert.t.Helper()
	err := b.Solve(w)
	assert.Error(err)
	if target != nil {
		assert.ErrorIs(err, target)
	}
}
