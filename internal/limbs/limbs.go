// Package limbs converts between big integers, fixed-width digit arrays and
// little-endian bit sequences. Hint execution uses it to pull concrete values
// out of a partial assignment and to push results back in.
package limbs

import (
	"fmt"
	"math/big"
)

// Recompose combines fixed-width digits into a single integer.
//
// The following holds
//
//	res = \sum_{i=0}^{len(digits)} digits[i] * 2^{nbBits * i}
func Recompose(digits []uint64, nbBits uint) *big.Int {
	res := new(big.Int)
	tmp := new(big.Int)
	for i := range digits {
		res.Lsh(res, nbBits)
		res.Add(res, tmp.SetUint64(digits[len(digits)-i-1]))
	}
	return res
}

// Decompose splits input into nbDigits little-endian digits of width nbBits.
// It errors if the decomposition does not fit into nbDigits digits or if a
// digit would not fit in a uint64.
//
// The following holds
//
//	input = \sum_{i=0}^{nbDigits} res[i] * 2^{nbBits * i}
func Decompose(input *big.Int, nbBits uint, nbDigits int) ([]uint64, error) {
	if input.Sign() < 0 {
		return nil, fmt.Errorf("decomposed integer is negative")
	}
	if input.BitLen() > nbDigits*int(nbBits) {
		return nil, fmt.Errorf("decomposed integer does not fit into %d digits of %d bits", nbDigits, nbBits)
	}
	if nbBits > 64 {
		return nil, fmt.Errorf("digit width %d exceeds 64 bits", nbBits)
	}
	res := make([]uint64, nbDigits)
	base := new(big.Int).Lsh(big.NewInt(1), nbBits)
	digit := new(big.Int)
	tmp := new(big.Int).Set(input)
	for i := 0; i < nbDigits; i++ {
		digit.Mod(tmp, base)
		res[i] = digit.Uint64()
		tmp.Rsh(tmp, nbBits)
	}
	return res, nil
}

// ToBits returns exactly n little-endian bits of input, padding with false.
// It errors if input does not fit in n bits.
func ToBits(input *big.Int, n int) ([]bool, error) {
	if input.Sign() < 0 {
		return nil, fmt.Errorf("bit-decomposed integer is negative")
	}
	if input.BitLen() > n {
		return nil, fmt.Errorf("integer of %d bits does not fit into %d bits", input.BitLen(), n)
	}
	bits := make([]bool, n)
	for i := 0; i < input.BitLen(); i++ {
		bits[i] = input.Bit(i) == 1
	}
	return bits, nil
}

// FromBits combines little-endian bits into an integer.
func FromBits(bits []bool) *big.Int {
	res := new(big.Int)
	for i := len(bits) - 1; i >= 0; i-- {
		res.Lsh(res, 1)
		if bits[i] {
			res.SetBit(res, 0, 1)
		}
	}
	return res
}

// FromUint32Digits combines little-endian 32-bit digits into an integer.
func FromUint32Digits(digits []uint32) *big.Int {
	wide := make([]uint64, len(digits))
	for i, d := range digits {
		wide[i] = uint64(d)
	}
	return Recompose(wide, 32)
}
