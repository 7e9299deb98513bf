package fields_bn254

import (
	"math/big"
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fp"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/consensys/tower-gadgets/circuit"
	"github.com/consensys/tower-gadgets/internal/limbs"
	"github.com/consensys/tower-gadgets/test"
)

func TestCoeffsConversion(t *testing.T) {
	assert := test.NewAssert(t)
	for i := 0; i < 10; i++ {
		var a bn254.E12
		_, _ = a.SetRandom()
		coeffs := e12ToCoeffs(&a)
		back := e12FromCoeffs(&coeffs)
		assert.True(a.Equal(&back))
	}
}

func TestConvertFp12(t *testing.T) {
	assert := test.NewAssert(t)

	b := circuit.NewBuilder()
	e := NewExt12(b)

	var a bn254.E12
	_, _ = a.SetRandom()

	c := e.Constant(&a)
	ws := c.ToWires()
	assert.Len(ws, NbWires)

	rebuilt := FromWires(ws)
	e.AssertIsEqual(rebuilt, c)

	w := b.NewWitness()
	assert.SolvingSucceeded(b, w)
	got, err := rebuilt.Value(w)
	assert.NoError(err)
	assert.True(a.Equal(&got))

	assert.Panics(func() { FromWires(ws[:NbWires-1]) })
	assert.Panics(func() { FromWires(append(ws, 0)) })
}

func TestAddFp12(t *testing.T) {
	assert := test.NewAssert(t)

	b := circuit.NewBuilder()
	e := NewExt12(b)

	var a, bv, c bn254.E12
	_, _ = a.SetRandom()
	_, _ = bv.SetRandom()
	c.Add(&a, &bv)

	res := e.Add(e.Constant(&a), e.Constant(&bv))
	e.AssertIsEqual(res, e.Constant(&c))

	assert.SolvingSucceeded(b, b.NewWitness())
}

func TestSubFp12(t *testing.T) {
	assert := test.NewAssert(t)

	b := circuit.NewBuilder()
	e := NewExt12(b)

	var a, bv, c bn254.E12
	_, _ = a.SetRandom()
	_, _ = bv.SetRandom()
	c.Sub(&a, &bv)

	res := e.Sub(e.Constant(&a), e.Constant(&bv))
	e.AssertIsEqual(res, e.Constant(&c))

	assert.SolvingSucceeded(b, b.NewWitness())
}

func TestNegFp12(t *testing.T) {
	assert := test.NewAssert(t)

	b := circuit.NewBuilder()
	e := NewExt12(b)

	var a, c bn254.E12
	_, _ = a.SetRandom()
	c.Sub(new(bn254.E12), &a)

	res := e.Neg(e.Constant(&a))
	e.AssertIsEqual(res, e.Constant(&c))

	assert.SolvingSucceeded(b, b.NewWitness())
}

func TestMulFp12(t *testing.T) {
	assert := test.NewAssert(t)

	b := circuit.NewBuilder()
	e := NewExt12(b)

	var a, bv, c bn254.E12
	_, _ = a.SetRandom()
	_, _ = bv.SetRandom()
	c.Mul(&a, &bv)

	// witness inputs rather than constants
	xa := e.NewElement()
	xb := e.NewElement()
	res := e.Mul(xa, xb)
	e.AssertIsEqual(res, e.Constant(&c))

	w := b.NewWitness()
	xa.SetWitness(w, &a)
	xb.SetWitness(w, &bv)
	assert.SolvingSucceeded(b, w)

	got, err := res.Value(w)
	assert.NoError(err)
	assert.True(c.Equal(&got))
}

func TestMulFp12Unsatisfied(t *testing.T) {
	assert := test.NewAssert(t)

	b := circuit.NewBuilder()
	e := NewExt12(b)

	var a, bv, c, one bn254.E12
	_, _ = a.SetRandom()
	_, _ = bv.SetRandom()
	one.SetOne()
	c.Mul(&a, &bv)
	c.Add(&c, &one)

	res := e.Mul(e.Constant(&a), e.Constant(&bv))
	e.AssertIsEqual(res, e.Constant(&c))

	assert.SolvingFailed(b, b.NewWitness(), circuit.ErrUnsatisfied)
}

func TestMulFp12Property(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 10

	properties := gopter.NewProperties(parameters)

	properties.Property("gadget product matches native product", prop.ForAll(
		func(a, bv bn254.E12) bool {
			b := circuit.NewBuilder()
			e := NewExt12(b)

			res := e.Mul(e.Constant(&a), e.Constant(&bv))
			w := b.NewWitness()
			if err := b.Solve(w); err != nil {
				return false
			}
			got, err := res.Value(w)
			if err != nil {
				return false
			}
			var c bn254.E12
			c.Mul(&a, &bv)
			return c.Equal(&got)
		},
		genE12(),
		genE12(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestSquareFp12(t *testing.T) {
	assert := test.NewAssert(t)

	b := circuit.NewBuilder()
	e := NewExt12(b)

	var a, c bn254.E12
	_, _ = a.SetRandom()
	c.Square(&a)

	res := e.Square(e.Constant(&a))
	e.AssertIsEqual(res, e.Constant(&c))

	assert.SolvingSucceeded(b, b.NewWitness())
}

func TestConjugateFp12(t *testing.T) {
	assert := test.NewAssert(t)

	b := circuit.NewBuilder()
	e := NewExt12(b)

	var a, c bn254.E12
	_, _ = a.SetRandom()
	c.Conjugate(&a)

	res := e.Conjugate(e.Constant(&a))
	e.AssertIsEqual(res, e.Constant(&c))

	assert.SolvingSucceeded(b, b.NewWitness())

	// in the flat basis, conjugation is exactly the negation of the odd
	// coefficient positions
	coeffs := e12ToCoeffs(&a)
	conj := e12ToCoeffs(&c)
	for i := range coeffs {
		if i%2 == 1 {
			coeffs[i].Neg(&coeffs[i])
		}
		assert.True(coeffs[i].Equal(&conj[i]), "coefficient %d", i)
	}
}

func TestSelectFp12(t *testing.T) {
	assert := test.NewAssert(t)

	b := circuit.NewBuilder()
	e := NewExt12(b)

	var a, bv bn254.E12
	_, _ = a.SetRandom()
	_, _ = bv.SetRandom()

	x := e.Constant(&a)
	y := e.Constant(&bv)
	e.AssertIsEqual(e.Select(b.ConstantBool(true), x, y), x)
	e.AssertIsEqual(e.Select(b.ConstantBool(false), x, y), y)

	assert.SolvingSucceeded(b, b.NewWitness())
}

func TestConditionalMulFp12(t *testing.T) {
	assert := test.NewAssert(t)

	b := circuit.NewBuilder()
	e := NewExt12(b)

	var a, bv, c bn254.E12
	_, _ = a.SetRandom()
	_, _ = bv.SetRandom()
	c.Mul(&a, &bv)

	x := e.Constant(&a)
	y := e.Constant(&bv)
	e.AssertIsEqual(e.ConditionalMul(x, y, b.ConstantBool(true)), e.Constant(&c))
	e.AssertIsEqual(e.ConditionalMul(x, y, b.ConstantBool(false)), x)

	assert.SolvingSucceeded(b, b.NewWitness())
}

func TestInverseFp12(t *testing.T) {
	assert := test.NewAssert(t)

	b := circuit.NewBuilder()
	e := NewExt12(b)

	var a bn254.E12
	_, _ = a.SetRandom()

	x := e.NewElement()
	inv := e.Inverse(x)

	w := b.NewWitness()
	x.SetWitness(w, &a)
	assert.SolvingSucceeded(b, w)

	got, err := inv.Value(w)
	assert.NoError(err)
	var expected bn254.E12
	expected.Inverse(&a)
	assert.True(expected.Equal(&got))
}

func TestInverseZeroFp12(t *testing.T) {
	assert := test.NewAssert(t)

	b := circuit.NewBuilder()
	e := NewExt12(b)

	x := e.NewElement()
	e.Inverse(x)

	var zero bn254.E12
	w := b.NewWitness()
	x.SetWitness(w, &zero)

	// inverting zero aborts witness generation before any constraint runs;
	// it must not be reported as a failed constraint
	err := b.Solve(w)
	assert.Error(err)
	assert.ErrorIs(err, circuit.ErrHintFailed)
	assert.NotErrorIs(err, circuit.ErrUnsatisfied)
}

func TestDivFp12(t *testing.T) {
	assert := test.NewAssert(t)

	b := circuit.NewBuilder()
	e := NewExt12(b)

	var a, bv, c bn254.E12
	_, _ = a.SetRandom()
	_, _ = bv.SetRandom()
	c.Inverse(&bv)
	c.Mul(&a, &c)

	res := e.Div(e.Constant(&a), e.Constant(&bv))
	e.AssertIsEqual(res, e.Constant(&c))

	assert.SolvingSucceeded(b, b.NewWitness())
}

func TestExpFp12(t *testing.T) {
	assert := test.NewAssert(t)

	for _, k := range []uint64{0, 1, 2, 63, 0x0123456789abcdef} {
		assert.Run(func(assert *test.Assert) {
			b := circuit.NewBuilder()
			e := NewExt12(b)

			var x bn254.E12
			_, _ = x.SetRandom()

			xg := e.NewElement()
			kWire := b.AddWire()

			n := b.NbConstraints()
			out := e.Exp(xg, e.One(), kWire)
			// no algebraic relation ties out to xg, the offset and kWire: a
			// dishonest witness value for out would not be rejected
			assert.Equal(n, b.NbConstraints())

			w := b.NewWitness()
			xg.SetWitness(w, &x)
			w.SetUint64(kWire, k)
			assert.SolvingSucceeded(b, w)

			got, err := out.Value(w)
			assert.NoError(err)
			var expected bn254.E12
			expected.Exp(x, new(big.Int).SetUint64(k))
			assert.True(expected.Equal(&got))
		}, "k", new(big.Int).SetUint64(k).String())
	}
}

func TestExpFp12Offset(t *testing.T) {
	assert := test.NewAssert(t)

	b := circuit.NewBuilder()
	e := NewExt12(b)

	var x, offset bn254.E12
	_, _ = x.SetRandom()
	_, _ = offset.SetRandom()
	const k = uint64(718281828)

	xg := e.NewElement()
	og := e.NewElement()
	kWire := b.AddWire()
	out := e.Exp(xg, og, kWire)

	w := b.NewWitness()
	xg.SetWitness(w, &x)
	og.SetWitness(w, &offset)
	w.SetUint64(kWire, k)
	assert.SolvingSucceeded(b, w)

	got, err := out.Value(w)
	assert.NoError(err)
	var expected bn254.E12
	expected.Exp(x, new(big.Int).SetUint64(k))
	expected.Mul(&offset, &expected)
	assert.True(expected.Equal(&got))
}

func TestExpVerifiedFp12(t *testing.T) {
	assert := test.NewAssert(t)

	b := circuit.NewBuilder()
	e := NewExt12(b)

	var x, offset bn254.E12
	_, _ = x.SetRandom()
	_, _ = offset.SetRandom()
	// exponents stay below the native modulus so the wire holds k verbatim
	const k = uint64(0x6eadbeefcafe1234)

	xg := e.NewElement()
	og := e.NewElement()
	kWire := b.AddWire()

	n := b.NbConstraints()
	out := e.ExpVerified(xg, og, kWire)
	// unlike Exp, the result is tied to the inputs by the square-and-multiply
	// chain
	assert.Greater(b.NbConstraints(), n)

	w := b.NewWitness()
	xg.SetWitness(w, &x)
	og.SetWitness(w, &offset)
	w.SetUint64(kWire, k)
	assert.SolvingSucceeded(b, w)

	got, err := out.Value(w)
	assert.NoError(err)
	var expected bn254.E12
	expected.Exp(x, new(big.Int).SetUint64(k))
	expected.Mul(&offset, &expected)
	assert.True(expected.Equal(&got))
}

func TestSetWitnessFp12(t *testing.T) {
	assert := test.NewAssert(t)

	b := circuit.NewBuilder()
	e := NewExt12(b)

	var a bn254.E12
	_, _ = a.SetRandom()

	x := e.NewElement()
	w := b.NewWitness()

	// reading an unassigned element reports the missing wire
	_, err := x.Value(w)
	assert.ErrorIs(err, circuit.ErrMissingAssignment)

	x.SetWitness(w, &a)
	got, err := x.Value(w)
	assert.NoError(err)
	assert.True(a.Equal(&got))
}

// genE12 generates a tower element from 48 raw words, 4 per coefficient.
func genE12() gopter.Gen {
	return gen.SliceOfN(48, gen.UInt64()).Map(func(vs []uint64) bn254.E12 {
		var coeffs [12]fp.Element
		for i := range coeffs {
			coeffs[i].SetBigInt(limbs.Recompose(vs[i*4:(i+1)*4], 64))
		}
		return e12FromCoeffs(&coeffs)
	})
}

// benches
var builderBench *circuit.Builder

func BenchmarkMulFp12(b *testing.B) {
	for i := 0; i < b.N; i++ {
		builderBench = circuit.NewBuilder()
		ext := NewExt12(builderBench)
		ext.Mul(ext.NewElement(), ext.NewElement())
	}
	b.Log("constraints", builderBench.NbConstraints())
}

func BenchmarkSquareFp12(b *testing.B) {
	for i := 0; i < b.N; i++ {
		builderBench = circuit.NewBuilder()
		ext := NewExt12(builderBench)
		ext.Square(ext.NewElement())
	}
	b.Log("constraints", builderBench.NbConstraints())
}

func BenchmarkInverseFp12(b *testing.B) {
	for i := 0; i < b.N; i++ {
		builderBench = circuit.NewBuilder()
		ext := NewExt12(builderBench)
		ext.Inverse(ext.NewElement())
	}
	b.Log("constraints", builderBench.NbConstraints())
}

func BenchmarkConjugateFp12(b *testing.B) {
	for i := 0; i < b.N; i++ {
		builderBench = circuit.NewBuilder()
		ext := NewExt12(builderBench)
		ext.Conjugate(ext.NewElement())
	}
	b.Log("constraints", builderBench.NbConstraints())
}
