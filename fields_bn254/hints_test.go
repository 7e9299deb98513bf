package fields_bn254

import (
	"errors"
	"math/big"
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bn254"

	"github.com/consensys/tower-gadgets/circuit"
	gio "github.com/consensys/tower-gadgets/io"
	"github.com/consensys/tower-gadgets/test"
)

func TestInverseHintSerialization(t *testing.T) {
	assert := test.NewAssert(t)

	b := circuit.NewBuilder()
	e := NewExt12(b)
	h := &InverseHint{X: *e.NewElement(), Inv: *e.NewElement()}

	w := gio.NewWriter(8 * NbWires)
	h.WriteTo(w)

	dec, err := circuit.GetHintDecoder(h.ID())
	assert.NoError(err)
	decoded, err := dec(gio.NewReader(w.Bytes()), b)
	assert.NoError(err)
	assert.Equal(h, decoded)

	_, err = dec(gio.NewReader(w.Bytes()[:10]), b)
	assert.ErrorIs(err, gio.ErrTruncatedStream)
}

func TestExpHintSerialization(t *testing.T) {
	assert := test.NewAssert(t)

	b := circuit.NewBuilder()
	e := NewExt12(b)
	h := &ExpHint{
		X:      *e.NewElement(),
		Offset: *e.NewElement(),
		Out:    *e.NewElement(),
		K:      b.AddWire(),
	}

	w := gio.NewWriter(16 * NbWires)
	h.WriteTo(w)

	dec, err := circuit.GetHintDecoder(h.ID())
	assert.NoError(err)
	decoded, err := dec(gio.NewReader(w.Bytes()), b)
	assert.NoError(err)
	assert.Equal(h, decoded)

	// a wire reference past the builder's wire count is rejected
	bad := gio.NewWriter(16 * NbWires)
	for i := 0; i < 3*NbWires; i++ {
		bad.WriteUint32(0)
	}
	bad.WriteUint32(1 << 30)
	_, err = dec(gio.NewReader(bad.Bytes()), b)
	assert.ErrorIs(err, gio.ErrInvalidEncoding)
}

func TestHintDecoderRegistry(t *testing.T) {
	assert := test.NewAssert(t)

	_, err := circuit.GetHintDecoder("fields_bn254.unknown")
	assert.Error(err)

	// re-registering an identifier keeps the first decoder
	circuit.RegisterHint(inverseHintID, func(*gio.Reader, *circuit.Builder) (circuit.Hint, error) {
		return nil, errors.New("replacement decoder must not be used")
	})

	b := circuit.NewBuilder()
	e := NewExt12(b)
	h := &InverseHint{X: *e.NewElement(), Inv: *e.NewElement()}
	w := gio.NewWriter(8 * NbWires)
	h.WriteTo(w)

	dec, err := circuit.GetHintDecoder(inverseHintID)
	assert.NoError(err)
	decoded, err := dec(gio.NewReader(w.Bytes()), b)
	assert.NoError(err)
	assert.Equal(h, decoded)
}

func TestCircuitPersistenceWithHints(t *testing.T) {
	assert := test.NewAssert(t)

	b := circuit.NewBuilder()
	e := NewExt12(b)
	x := e.NewElement()
	inv := e.Inverse(x)
	kWire := b.AddWire()
	pow := e.Exp(x, e.One(), kWire)

	buf, err := b.ToBytes()
	assert.NoError(err)
	decoded, _, err := circuit.FromBytes(buf)
	assert.NoError(err)
	assert.Equal(b.NbHints(), decoded.NbHints())
	assert.Equal(b.NbConstraints(), decoded.NbConstraints())

	var a bn254.E12
	_, _ = a.SetRandom()
	const k = uint64(31337)

	// the gadget views index wires, so they read from witnesses of both the
	// original and the deserialized circuit
	solve := func(target *circuit.Builder) (bn254.E12, bn254.E12) {
		w := target.NewWitness()
		x.SetWitness(w, &a)
		w.SetUint64(kWire, k)
		assert.SolvingSucceeded(target, w)
		iv, err := inv.Value(w)
		assert.NoError(err)
		pv, err := pow.Value(w)
		assert.NoError(err)
		return iv, pv
	}

	i1, p1 := solve(b)
	i2, p2 := solve(decoded)
	assert.True(i1.Equal(&i2))
	assert.True(p1.Equal(&p2))

	var expInv bn254.E12
	expInv.Inverse(&a)
	assert.True(expInv.Equal(&i1))
	var expPow bn254.E12
	expPow.Exp(a, new(big.Int).SetUint64(k))
	assert.True(expPow.Equal(&p1))
}

func TestE12GadgetSerialization(t *testing.T) {
	assert := test.NewAssert(t)

	b := circuit.NewBuilder()
	e := NewExt12(b)
	x := e.NewElement()

	w := gio.NewWriter(4 * NbWires)
	x.WriteTo(w)
	assert.Equal(4*NbWires, w.Len())

	decoded, err := ReadE12(gio.NewReader(w.Bytes()), b)
	assert.NoError(err)
	assert.Equal(x, decoded)

	_, err = ReadE12(gio.NewReader(w.Bytes()[:w.Len()-2]), b)
	assert.ErrorIs(err, gio.ErrTruncatedStream)
}
