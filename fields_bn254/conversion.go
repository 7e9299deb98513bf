package fields_bn254

import (
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fp"

	"github.com/consensys/tower-gadgets/circuit"
	"github.com/consensys/tower-gadgets/emulated"
	gio "github.com/consensys/tower-gadgets/io"
)

// NbWires is the flattened length of a tower element: 12 coefficients of 8
// limb wires each.
const NbWires = 12 * emulated.NbLimbs

// e12ToCoeffs maps the library tower representation onto the flat basis.
// The library nests 𝔽p¹² = 𝔽p⁶[w]/(w²-v), 𝔽p⁶ = 𝔽p²[v]/(v³-9-u); with
// v = w² the coefficient of wᵐ is C_{m mod 2}.B_{m div 2}, its A0 part at
// flat position m and its A1 (u) part at m+6.
func e12ToCoeffs(v *bn254.E12) [12]fp.Element {
	var c [12]fp.Element
	c[0], c[6] = v.C0.B0.A0, v.C0.B0.A1
	c[1], c[7] = v.C1.B0.A0, v.C1.B0.A1
	c[2], c[8] = v.C0.B1.A0, v.C0.B1.A1
	c[3], c[9] = v.C1.B1.A0, v.C1.B1.A1
	c[4], c[10] = v.C0.B2.A0, v.C0.B2.A1
	c[5], c[11] = v.C1.B2.A0, v.C1.B2.A1
	return c
}

// e12FromCoeffs is the inverse of e12ToCoeffs.
func e12FromCoeffs(c *[12]fp.Element) bn254.E12 {
	var v bn254.E12
	v.C0.B0.A0, v.C0.B0.A1 = c[0], c[6]
	v.C1.B0.A0, v.C1.B0.A1 = c[1], c[7]
	v.C0.B1.A0, v.C0.B1.A1 = c[2], c[8]
	v.C1.B1.A0, v.C1.B1.A1 = c[3], c[9]
	v.C0.B2.A0, v.C0.B2.A1 = c[4], c[10]
	v.C1.B2.A0, v.C1.B2.A1 = c[5], c[11]
	return v
}

// ToWires flattens the element to its NbWires wire references, coefficient
// by coefficient.
func (x *E12) ToWires() []circuit.Wire {
	ws := make([]circuit.Wire, 0, NbWires)
	for i := range x.C {
		ws = append(ws, x.C[i].ToWires()...)
	}
	return ws
}

// FromWires rebuilds an element from exactly NbWires wire references,
// grouping them into 12 consecutive chunks of 8. It panics on any other
// length: a wrong wire count is a circuit-construction bug, not a
// recoverable condition.
func FromWires(ws []circuit.Wire) *E12 {
	if len(ws) != NbWires {
		panic(fmt.Sprintf("expected %d wires, got %d", NbWires, len(ws)))
	}
	var x E12
	for i := range x.C {
		x.C[i] = emulated.FromWires(ws[i*emulated.NbLimbs : (i+1)*emulated.NbLimbs])
	}
	return &x
}

// SetWitness decomposes a native tower value into 12 coefficients and
// assigns each to the corresponding coefficient gadget.
func (x *E12) SetWitness(w *circuit.Witness, v *bn254.E12) {
	coeffs := e12ToCoeffs(v)
	for i := range x.C {
		x.C[i].SetWitness(w, coeffs[i])
	}
}

// Value recomposes the element's concrete native value from a partial
// assignment. Returns an error wrapping circuit.ErrMissingAssignment if any
// underlying wire has no value yet.
func (x *E12) Value(w *circuit.Witness) (bn254.E12, error) {
	var coeffs [12]fp.Element
	for i := range x.C {
		v, err := x.C[i].Value(w)
		if err != nil {
			return bn254.E12{}, err
		}
		coeffs[i] = v
	}
	return e12FromCoeffs(&coeffs), nil
}

// WriteTo appends the 12 coefficient gadgets in order.
func (x *E12) WriteTo(w *gio.Writer) {
	for i := range x.C {
		x.C[i].WriteTo(w)
	}
}

// ReadE12 decodes an element written by WriteTo.
func ReadE12(r *gio.Reader, b *circuit.Builder) (*E12, error) {
	x, err := readE12(r, b)
	if err != nil {
		return nil, err
	}
	return &x, nil
}

func readE12(r *gio.Reader, b *circuit.Builder) (E12, error) {
	var x E12
	for i := range x.C {
		el, err := emulated.ReadElement(r, b)
		if err != nil {
			return E12{}, fmt.Errorf("coefficient %d: %w", i, err)
		}
		x.C[i] = el
	}
	return x, nil
}
