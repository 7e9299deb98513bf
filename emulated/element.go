// Package emulated implements the base-field gadget: one BN254 base-field
// coefficient represented as 8 wires of 32-bit limbs over the native
// Goldilocks field.
//
// The represented value is the little-endian composition of the limbs,
// interpreted modulo the BN254 base-field prime. Arithmetic gates are
// definitional: the solver computes output limbs natively and only equality,
// selection and range checks constrain witness values.
package emulated

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fp"

	"github.com/consensys/tower-gadgets/circuit"
	"github.com/consensys/tower-gadgets/internal/limbs"
	gio "github.com/consensys/tower-gadgets/io"
)

// NbLimbs is the number of wires representing one coefficient.
const NbLimbs = 8

// LimbBits is the width of the value held by each limb wire.
const LimbBits = 32

// Element is one emulated base-field coefficient. It is immutable once
// constructed; every operation returns a new Element.
type Element struct {
	Limbs [NbLimbs]circuit.Wire
}

// FromWires builds an Element from exactly NbLimbs wire references, least
// significant limb first. It panics on any other length: a wrong wire count
// is a circuit-construction bug, not a recoverable condition.
func FromWires(ws []circuit.Wire) Element {
	if len(ws) != NbLimbs {
		panic(fmt.Sprintf("expected %d limb wires, got %d", NbLimbs, len(ws)))
	}
	var e Element
	copy(e.Limbs[:], ws)
	return e
}

// ToWires returns the element's wire references, least significant limb
// first. The inverse of FromWires.
func (e Element) ToWires() []circuit.Wire {
	ws := make([]circuit.Wire, NbLimbs)
	copy(ws, e.Limbs[:])
	return ws
}

// SetWitness decomposes v into limb values and assigns them to the element's
// wires.
func (e Element) SetWitness(w *circuit.Witness, v fp.Element) {
	var bi big.Int
	v.BigInt(&bi)
	digits, err := limbs.Decompose(&bi, LimbBits, NbLimbs)
	if err != nil {
		// fp elements are 254 bits, they always fit 8x32 limbs
		panic(err)
	}
	for i, wire := range e.Limbs {
		w.SetUint64(wire, digits[i])
	}
}

// Value recomposes the element's concrete value from a partial assignment.
// Returns an error wrapping circuit.ErrMissingAssignment if any limb wire
// has no value yet.
func (e Element) Value(w *circuit.Witness) (fp.Element, error) {
	digits := make([]uint64, NbLimbs)
	for i, wire := range e.Limbs {
		v, err := w.Uint64(wire)
		if err != nil {
			return fp.Element{}, err
		}
		digits[i] = v
	}
	var r fp.Element
	r.SetBigInt(limbs.Recompose(digits, LimbBits))
	return r, nil
}

// WriteTo appends the element's wire references to the payload writer.
func (e Element) WriteTo(w *gio.Writer) {
	for _, wire := range e.Limbs {
		w.WriteUint32(uint32(wire))
	}
}

// ReadElement decodes an element written by WriteTo, validating every wire
// reference against the builder.
func ReadElement(r *gio.Reader, b *circuit.Builder) (Element, error) {
	var e Element
	for i := range e.Limbs {
		w, err := circuit.ReadWire(r, b)
		if err != nil {
			return Element{}, fmt.Errorf("limb %d: %w", i, err)
		}
		e.Limbs[i] = w
	}
	return e, nil
}
