// Package fields_bn254 implements the circuit gadget for the Fp12 tower
// field holding pairing results over the BN254 curve.
//
//	𝔽p²[u] = 𝔽p/u²+1
//	𝔽p¹²[w] = 𝔽p²/w⁶-9-u
//
// An element is an ordered array of 12 emulated base-field coefficients
// c[0..11] in the flat basis
//
//	x = Σ (c[m] + c[m+6]·u)·wᵐ   for m in 0..5
//
// so multiplication is a 6x6 schoolbook convolution of both halves followed
// by a fold of the degree 6..10 terms through w⁶ = 9 + u.
package fields_bn254
