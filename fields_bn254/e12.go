package fields_bn254

import (
	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fp"

	"github.com/consensys/tower-gadgets/circuit"
	"github.com/consensys/tower-gadgets/emulated"
)

// E12 is a tower-field gadget: 12 emulated base-field coefficients in the
// flat basis described in the package documentation. Values are immutable
// once constructed; every operation returns a fresh element.
type E12 struct {
	C [12]emulated.Element
}

// Ext12 performs tower-field operations over a builder.
type Ext12 struct {
	fp *emulated.Field
	b  *circuit.Builder
}

func NewExt12(b *circuit.Builder) *Ext12 {
	return &Ext12{
		fp: emulated.NewField(b),
		b:  b,
	}
}

// NewElement allocates an element of fresh unconstrained wires. The caller
// assigns its witness directly, or lets a hint write it.
func (e Ext12) NewElement() *E12 {
	var z E12
	for i := range z.C {
		z.C[i] = e.fp.NewElement()
	}
	return &z
}

// Constant lifts a native tower value into constant coefficients.
func (e Ext12) Constant(v *bn254.E12) *E12 {
	coeffs := e12ToCoeffs(v)
	var z E12
	for i := range z.C {
		z.C[i] = e.fp.Constant(coeffs[i])
	}
	return &z
}

func (e Ext12) Zero() *E12 {
	var zero bn254.E12
	return e.Constant(&zero)
}

func (e Ext12) One() *E12 {
	var one bn254.E12
	one.SetOne()
	return e.Constant(&one)
}

func (e Ext12) Add(x, y *E12) *E12 {
	var z E12
	for i := range z.C {
		z.C[i] = e.fp.Add(x.C[i], y.C[i])
	}
	return &z
}

func (e Ext12) Sub(x, y *E12) *E12 {
	var z E12
	for i := range z.C {
		z.C[i] = e.fp.Sub(x.C[i], y.C[i])
	}
	return &z
}

func (e Ext12) Neg(x *E12) *E12 {
	var z E12
	for i := range z.C {
		z.C[i] = e.fp.Neg(x.C[i])
	}
	return &z
}

// Conjugate negates the coefficients at odd positions: in the flat basis
// those are exactly the terms carrying an odd power of w once u is folded
// in, so this is the conjugation x ↦ x̄ of the quadratic subfield tower.
func (e Ext12) Conjugate(x *E12) *E12 {
	var z E12
	for i := range z.C {
		if i%2 == 1 {
			z.C[i] = e.fp.Neg(x.C[i])
		} else {
			z.C[i] = x.C[i]
		}
	}
	return &z
}

// Mul multiplies two tower elements. Both operands are split into halves
// a0 = c[0..6), a1 = c[6..12); the four 6x6 schoolbook convolutions are
// combined as d = a0b0 - a1b1, s = a0b1 + a1b0 (the u² = -1 step), then the
// degree 6..10 terms are folded back through w⁶ = 9 + u:
//
//	z[i]   = d[i] + 9·d[i+6] - s[i+6]
//	z[i+6] = s[i] + d[i+6] + 9·s[i+6]
//
// for i in 0..4, and z[5] = d[5], z[11] = s[5].
func (e Ext12) Mul(x, y *E12) *E12 {
	a0b0 := e.convolve(x.C[:6], y.C[:6])
	a0b1 := e.convolve(x.C[:6], y.C[6:])
	a1b0 := e.convolve(x.C[6:], y.C[:6])
	a1b1 := e.convolve(x.C[6:], y.C[6:])

	var d, s [11]emulated.Element
	for k := range d {
		d[k] = e.fp.Sub(a0b0[k], a1b1[k])
		s[k] = e.fp.Add(a0b1[k], a1b0[k])
	}

	var nineV fp.Element
	nineV.SetUint64(9)
	nine := e.fp.Constant(nineV)

	var z E12
	for i := 0; i < 5; i++ {
		z.C[i] = e.fp.Sub(e.fp.Add(d[i], e.fp.Mul(nine, d[i+6])), s[i+6])
		z.C[i+6] = e.fp.Add(e.fp.Add(s[i], d[i+6]), e.fp.Mul(nine, s[i+6]))
	}
	z.C[5] = d[5]
	z.C[11] = s[5]
	return &z
}

// convolve returns the 11-coefficient schoolbook product of two
// 6-coefficient halves.
func (e Ext12) convolve(x, y []emulated.Element) [11]emulated.Element {
	var r [11]emulated.Element
	for k := 0; k < 11; k++ {
		lo := max(0, k-5)
		hi := min(k, 5)
		acc := e.fp.Mul(x[lo], y[k-lo])
		for i := lo + 1; i <= hi; i++ {
			acc = e.fp.Add(acc, e.fp.Mul(x[i], y[k-i]))
		}
		r[k] = acc
	}
	return r
}

func (e Ext12) Square(x *E12) *E12 {
	return e.Mul(x, x)
}

// Select returns x if flag is 1, y if flag is 0, by 12 independent
// coefficient selects.
func (e Ext12) Select(flag circuit.Bool, x, y *E12) *E12 {
	var z E12
	for i := range z.C {
		z.C[i] = e.fp.Select(flag, x.C[i], y.C[i])
	}
	return &z
}

// ConditionalMul returns x * y if flag is 1, x unchanged otherwise. The
// product is always computed; the flag only selects the result.
func (e Ext12) ConditionalMul(x, y *E12, flag circuit.Bool) *E12 {
	return e.Select(flag, e.Mul(x, y), x)
}

// AssertIsEqual constrains coefficient-wise equality of two elements.
func (e Ext12) AssertIsEqual(x, y *E12) {
	for i := range x.C {
		e.fp.AssertIsEqual(x.C[i], y.C[i])
	}
}

// Inverse returns 1/x. The inverse is computed by a hint outside the
// constraint system and tied back with the constraint x * inv == 1, so any
// satisfying assignment holds the true field inverse. Witness generation
// fails if x is assigned zero.
func (e Ext12) Inverse(x *E12) *E12 {
	inv := e.NewElement()
	e.b.AddHint(&InverseHint{X: *x, Inv: *inv})
	e.AssertIsEqual(e.Mul(x, inv), e.One())
	return inv
}

// Div returns x / y, as x * Inverse(y).
func (e Ext12) Div(x, y *E12) *E12 {
	return e.Mul(x, e.Inverse(y))
}

// Exp returns offset * x^k for a runtime exponent held by the wire k,
// interpreted as a 64-bit scalar.
//
// The result is computed by a hint and NOT constrained: no algebraic
// relation ties the output to x, offset and k, so a malicious witness can
// substitute an arbitrary value without failing any constraint. Callers
// needing soundness must use ExpVerified or constrain the result
// themselves.
func (e Ext12) Exp(x, offset *E12, k circuit.Wire) *E12 {
	out := e.NewElement()
	e.b.AddHint(&ExpHint{X: *x, Offset: *offset, Out: *out, K: k})
	return out
}

// ExpVerified returns offset * x^k like Exp, but constrains the result with
// a square-and-multiply chain over the 64-bit decomposition of k. It costs
// 64 conditional multiplications and 63 squarings.
func (e Ext12) ExpVerified(x, offset *E12, k circuit.Wire) *E12 {
	bits := e.b.ToBits(k, 64)
	acc := offset
	sq := x
	for i, bit := range bits {
		acc = e.ConditionalMul(acc, sq, bit)
		if i < len(bits)-1 {
			sq = e.Square(sq)
		}
	}
	return acc
}
