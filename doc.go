// Package towergadgets provides arithmetic-circuit gadgets for the BN254 degree-12
// extension field over a Goldilocks-native constraint system.
//
// The module is organized as follows:
//   - circuit: the constraint-system builder; wires, gates, hint nodes, witness
//     solving and structure serialization
//   - emulated: the non-native BN254 base-field gadget (8 x 32-bit limb wires)
//   - fields_bn254: the Fq12 tower-field gadget and its inverse/exponentiation hints
//
// Pairing outputs live in Fq12; this module gives a proof system the operations
// needed to manipulate them in-circuit: addition, subtraction, negation, the full
// tower multiplication with its reduction formula, multiplicative inverse (hinted,
// then constrained), exponentiation by a runtime exponent wire, conjugation and
// conditional selection.
package towergadgets

import (
	"github.com/blang/semver/v4"
)

// Version of the serialized circuit structure format. Embedded in every
// serialized header and checked at deserialization time.
var Version = semver.MustParse("0.1.0")
