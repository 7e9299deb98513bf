package emulated

import (
	"math/big"
	"sync"

	"github.com/consensys/gnark-crypto/ecc/bn254/fp"

	"github.com/consensys/tower-gadgets/circuit"
	"github.com/consensys/tower-gadgets/internal/limbs"
)

// Field performs emulated base-field operations over a builder. All methods
// are single-threaded, like circuit construction itself.
type Field struct {
	b *circuit.Builder

	// caching the constants 0 and 1, which appear in almost every circuit
	zeroConstOnce sync.Once
	zeroConst     Element
	oneConstOnce  sync.Once
	oneConst      Element
}

// NewField returns a base-field gadget factory over the given builder.
func NewField(b *circuit.Builder) *Field {
	return &Field{b: b}
}

// NewElement allocates an element of fresh unconstrained wires. The caller
// assigns its limbs directly, or lets a hint write them.
func (f *Field) NewElement() Element {
	var e Element
	for i := range e.Limbs {
		e.Limbs[i] = f.b.AddWire()
	}
	return e
}

// Constant lifts a native value into interned constant wires.
func (f *Field) Constant(v fp.Element) Element {
	var bi big.Int
	v.BigInt(&bi)
	digits, err := limbs.Decompose(&bi, LimbBits, NbLimbs)
	if err != nil {
		panic(err)
	}
	var e Element
	for i := range e.Limbs {
		e.Limbs[i] = f.b.Constant(digits[i])
	}
	return e
}

// Zero returns the constant 0.
func (f *Field) Zero() Element {
	f.zeroConstOnce.Do(func() {
		f.zeroConst = f.Constant(fp.Element{})
	})
	return f.zeroConst
}

// One returns the constant 1.
func (f *Field) One() Element {
	f.oneConstOnce.Do(func() {
		var one fp.Element
		one.SetOne()
		f.oneConst = f.Constant(one)
	})
	return f.oneConst
}

// Add returns x + y.
func (f *Field) Add(x, y Element) Element {
	return Element{Limbs: f.b.FpAdd(x.Limbs, y.Limbs)}
}

// Sub returns x - y.
func (f *Field) Sub(x, y Element) Element {
	return Element{Limbs: f.b.FpSub(x.Limbs, y.Limbs)}
}

// Neg returns -x.
func (f *Field) Neg(x Element) Element {
	return Element{Limbs: f.b.FpNeg(x.Limbs)}
}

// Mul returns x * y.
func (f *Field) Mul(x, y Element) Element {
	return Element{Limbs: f.b.FpMul(x.Limbs, y.Limbs)}
}

// Select returns x if flag is 1, y if flag is 0.
func (f *Field) Select(flag circuit.Bool, x, y Element) Element {
	return Element{Limbs: f.b.FpSelect(flag, x.Limbs, y.Limbs)}
}

// AssertIsEqual constrains x == y limb-wise.
func (f *Field) AssertIsEqual(x, y Element) {
	f.b.FpAssertEqual(x.Limbs, y.Limbs)
}
