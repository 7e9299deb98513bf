package limbs

import (
	"math/big"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)
	properties.Property("Recompose(Decompose(x)) == x", prop.ForAll(
		func(lo, hi uint64) bool {
			x := Recompose([]uint64{lo, hi}, 64)
			digits, err := Decompose(x, 32, 4)
			if err != nil {
				return false
			}
			for _, d := range digits {
				if d >= 1<<32 {
					return false
				}
			}
			return Recompose(digits, 32).Cmp(x) == 0
		},
		gen.UInt64(), gen.UInt64(),
	))

	properties.Property("FromBits(ToBits(x)) == x", prop.ForAll(
		func(a uint64) bool {
			x := new(big.Int).SetUint64(a)
			bits, err := ToBits(x, 64)
			if err != nil {
				return false
			}
			return FromBits(bits).Cmp(x) == 0
		},
		gen.UInt64(),
	))

	properties.Property("FromUint32Digits inverts Decompose", prop.ForAll(
		func(lo, hi uint64) bool {
			x := Recompose([]uint64{lo, hi}, 64)
			digits, err := Decompose(x, 32, 4)
			if err != nil {
				return false
			}
			narrow := make([]uint32, len(digits))
			for i, d := range digits {
				narrow[i] = uint32(d)
			}
			return FromUint32Digits(narrow).Cmp(x) == 0
		},
		gen.UInt64(), gen.UInt64(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestDecomposeBounds(t *testing.T) {
	assert := require.New(t)

	// zero decomposes to all-zero digits
	digits, err := Decompose(new(big.Int), 32, 8)
	assert.NoError(err)
	assert.Equal(make([]uint64, 8), digits)

	// maximum value that fits
	x := new(big.Int).Lsh(big.NewInt(1), 256)
	x.Sub(x, big.NewInt(1))
	digits, err = Decompose(x, 32, 8)
	assert.NoError(err)
	for _, d := range digits {
		assert.Equal(uint64(1<<32-1), d)
	}

	// one bit too wide
	x.Add(x, big.NewInt(1))
	_, err = Decompose(x, 32, 8)
	assert.Error(err)

	_, err = ToBits(big.NewInt(256), 8)
	assert.Error(err)

	bits, err := ToBits(big.NewInt(5), 8)
	assert.NoError(err)
	assert.Equal([]bool{true, false, true, false, false, false, false, false}, bits)
}
