package circuit

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fp"
	"github.com/consensys/gnark-crypto/field/goldilocks"

	"github.com/consensys/tower-gadgets/internal/limbs"
)

// nbLimbs is the number of wires representing one emulated base-field
// coefficient, each holding a 32-bit limb. 32-bit limbs keep every limb
// product below the native modulus: (2^32-1)^2 < 2^64 - 2^32 + 1.
const (
	nbLimbs   = 8
	limbBits  = 32
	limbBound = uint64(1) << limbBits
)

// instructionLevel returns 1 + the maximum level among the given wires.
// Virtual wires (assigned directly by the caller) count as level -1.
func instructionLevel(tree InstructionTree, wires ...Wire) Level {
	level := LevelUnset
	for _, w := range wires {
		if !tree.HasWire(w) {
			continue
		}
		if l := tree.GetWireLevel(w); l > level {
			level = l
		}
	}
	return level + 1
}

func insertOutputs(tree InstructionTree, inst Instruction, n int, level Level) {
	for i := 0; i < n; i++ {
		tree.InsertWire(Wire(inst.WireOffset+uint32(i)), level)
	}
}

func calldataWires(inst Instruction, from int) [nbLimbs]Wire {
	var r [nbLimbs]Wire
	for i := range r {
		r[i] = Wire(inst.Calldata[from+i])
	}
	return r
}

func outputWires(inst Instruction) [nbLimbs]Wire {
	var r [nbLimbs]Wire
	for i := range r {
		r[i] = Wire(inst.WireOffset + uint32(i))
	}
	return r
}

// readCoeff composes the canonical values of 8 limb wires into a base-field
// element. A limb outside [0, 2^32) makes the composition meaningless and is
// reported as an unsatisfied range check.
func readCoeff(s Solver, wires [nbLimbs]Wire) (fp.Element, error) {
	var digits [nbLimbs]uint64
	for i, w := range wires {
		v, err := s.Get(w)
		if err != nil {
			return fp.Element{}, err
		}
		digits[i] = v.Bits()[0]
		if digits[i] >= limbBound {
			return fp.Element{}, fmt.Errorf("%w: limb wire %d holds %d, exceeds %d bits", ErrUnsatisfied, w, digits[i], limbBits)
		}
	}
	var coeff fp.Element
	coeff.SetBigInt(limbs.Recompose(digits[:], limbBits))
	return coeff, nil
}

// writeCoeff decomposes a base-field element into 8 limb values and assigns
// them to the given wires.
func writeCoeff(s Solver, wires [nbLimbs]Wire, v *fp.Element) {
	var b big.Int
	v.BigInt(&b)
	digits, err := limbs.Decompose(&b, limbBits, nbLimbs)
	if err != nil {
		// fp elements are 254 bits, they always fit 8x32 limbs
		panic(err)
	}
	var el goldilocks.Element
	for i, w := range wires {
		el.SetUint64(digits[i])
		s.Set(w, el)
	}
}

// blueprintConstant assigns an interned native constant to its single output
// wire. Calldata: [lo, hi] words of the value.
type blueprintConstant struct{}

func (blueprintConstant) CalldataSize() int              { return 2 }
func (blueprintConstant) NbConstraints() int             { return 0 }
func (blueprintConstant) NbOutputs(inst Instruction) int { return 1 }

func (blueprintConstant) UpdateInstructionTree(inst Instruction, tree InstructionTree) Level {
	tree.InsertWire(Wire(inst.WireOffset), 0)
	return 0
}

func (blueprintConstant) Solve(s Solver, inst Instruction) error {
	v := uint64(inst.Calldata[0]) | uint64(inst.Calldata[1])<<32
	var el goldilocks.Element
	el.SetUint64(v)
	s.Set(Wire(inst.WireOffset), el)
	return nil
}

func constantCalldata(v uint64) []uint32 {
	return []uint32{uint32(v), uint32(v >> 32)}
}

// blueprintFpAdd computes out = x + y over the emulated base field.
// Calldata: [x0..x7, y0..y7].
type blueprintFpAdd struct{}

func (blueprintFpAdd) CalldataSize() int              { return 2 * nbLimbs }
func (blueprintFpAdd) NbConstraints() int             { return nbLimbs }
func (blueprintFpAdd) NbOutputs(inst Instruction) int { return nbLimbs }

func (blueprintFpAdd) UpdateInstructionTree(inst Instruction, tree InstructionTree) Level {
	level := instructionLevel(tree, wiresOf(inst.Calldata)...)
	insertOutputs(tree, inst, nbLimbs, level)
	return level
}

func (blueprintFpAdd) Solve(s Solver, inst Instruction) error {
	x, err := readCoeff(s, calldataWires(inst, 0))
	if err != nil {
		return err
	}
	y, err := readCoeff(s, calldataWires(inst, nbLimbs))
	if err != nil {
		return err
	}
	x.Add(&x, &y)
	writeCoeff(s, outputWires(inst), &x)
	return nil
}

// blueprintFpSub computes out = x - y over the emulated base field.
// Calldata: [x0..x7, y0..y7].
type blueprintFpSub struct{}

func (blueprintFpSub) CalldataSize() int              { return 2 * nbLimbs }
func (blueprintFpSub) NbConstraints() int             { return nbLimbs }
func (blueprintFpSub) NbOutputs(inst Instruction) int { return nbLimbs }

func (blueprintFpSub) UpdateInstructionTree(inst Instruction, tree InstructionTree) Level {
	level := instructionLevel(tree, wiresOf(inst.Calldata)...)
	insertOutputs(tree, inst, nbLimbs, level)
	return level
}

func (blueprintFpSub) Solve(s Solver, inst Instruction) error {
	x, err := readCoeff(s, calldataWires(inst, 0))
	if err != nil {
		return err
	}
	y, err := readCoeff(s, calldataWires(inst, nbLimbs))
	if err != nil {
		return err
	}
	x.Sub(&x, &y)
	writeCoeff(s, outputWires(inst), &x)
	return nil
}

// blueprintFpNeg computes out = -x over the emulated base field.
// Calldata: [x0..x7].
type blueprintFpNeg struct{}

func (blueprintFpNeg) CalldataSize() int              { return nbLimbs }
func (blueprintFpNeg) NbConstraints() int             { return nbLimbs }
func (blueprintFpNeg) NbOutputs(inst Instruction) int { return nbLimbs }

func (blueprintFpNeg) UpdateInstructionTree(inst Instruction, tree InstructionTree) Level {
	level := instructionLevel(tree, wiresOf(inst.Calldata)...)
	insertOutputs(tree, inst, nbLimbs, level)
	return level
}

func (blueprintFpNeg) Solve(s Solver, inst Instruction) error {
	x, err := readCoeff(s, calldataWires(inst, 0))
	if err != nil {
		return err
	}
	x.Neg(&x)
	writeCoeff(s, outputWires(inst), &x)
	return nil
}

// blueprintFpMul computes out = x * y over the emulated base field.
// Calldata: [x0..x7, y0..y7].
type blueprintFpMul struct{}

func (blueprintFpMul) CalldataSize() int              { return 2 * nbLimbs }
func (blueprintFpMul) NbConstraints() int             { return nbLimbs }
func (blueprintFpMul) NbOutputs(inst Instruction) int { return nbLimbs }

func (blueprintFpMul) UpdateInstructionTree(inst Instruction, tree InstructionTree) Level {
	level := instructionLevel(tree, wiresOf(inst.Calldata)...)
	insertOutputs(tree, inst, nbLimbs, level)
	return level
}

func (blueprintFpMul) Solve(s Solver, inst Instruction) error {
	x, err := readCoeff(s, calldataWires(inst, 0))
	if err != nil {
		return err
	}
	y, err := readCoeff(s, calldataWires(inst, nbLimbs))
	if err != nil {
		return err
	}
	x.Mul(&x, &y)
	writeCoeff(s, outputWires(inst), &x)
	return nil
}

// blueprintFpSelect picks x if the selector is 1, y if it is 0.
// Calldata: [flag, x0..x7, y0..y7].
type blueprintFpSelect struct{}

func (blueprintFpSelect) CalldataSize() int              { return 1 + 2*nbLimbs }
func (blueprintFpSelect) NbConstraints() int             { return nbLimbs }
func (blueprintFpSelect) NbOutputs(inst Instruction) int { return nbLimbs }

func (blueprintFpSelect) UpdateInstructionTree(inst Instruction, tree InstructionTree) Level {
	level := instructionLevel(tree, wiresOf(inst.Calldata)...)
	insertOutputs(tree, inst, nbLimbs, level)
	return level
}

func (blueprintFpSelect) Solve(s Solver, inst Instruction) error {
	flag, err := s.Get(Wire(inst.Calldata[0]))
	if err != nil {
		return err
	}
	var src [nbLimbs]Wire
	switch flag.Bits()[0] {
	case 1:
		src = calldataWires(inst, 1)
	case 0:
		src = calldataWires(inst, 1+nbLimbs)
	default:
		return fmt.Errorf("%w: selector wire %d is not boolean", ErrUnsatisfied, inst.Calldata[0])
	}
	out := outputWires(inst)
	for i := range src {
		v, err := s.Get(src[i])
		if err != nil {
			return err
		}
		s.Set(out[i], v)
	}
	return nil
}

// blueprintFpAssertEqual checks limb-wise equality of two coefficients.
// Calldata: [x0..x7, y0..y7]. No outputs.
type blueprintFpAssertEqual struct{}

func (blueprintFpAssertEqual) CalldataSize() int              { return 2 * nbLimbs }
func (blueprintFpAssertEqual) NbConstraints() int             { return nbLimbs }
func (blueprintFpAssertEqual) NbOutputs(inst Instruction) int { return 0 }

func (blueprintFpAssertEqual) UpdateInstructionTree(inst Instruction, tree InstructionTree) Level {
	return instructionLevel(tree, wiresOf(inst.Calldata)...)
}

func (blueprintFpAssertEqual) Solve(s Solver, inst Instruction) error {
	xw := calldataWires(inst, 0)
	yw := calldataWires(inst, nbLimbs)
	for i := 0; i < nbLimbs; i++ {
		xv, err := s.Get(xw[i])
		if err != nil {
			return err
		}
		yv, err := s.Get(yw[i])
		if err != nil {
			return err
		}
		if !xv.Equal(&yv) {
			x, errX := readCoeff(s, xw)
			y, errY := readCoeff(s, yw)
			if errX == nil && errY == nil {
				return fmt.Errorf("%w: %s != %s (limb %d: wire %d = %d, wire %d = %d)",
					ErrUnsatisfied, x.String(), y.String(), i, xw[i], xv.Bits()[0], yw[i], yv.Bits()[0])
			}
			return fmt.Errorf("%w: limb %d: wire %d = %d, wire %d = %d",
				ErrUnsatisfied, i, xw[i], xv.Bits()[0], yw[i], yv.Bits()[0])
		}
	}
	return nil
}

// blueprintBoolAssert checks that a wire holds 0 or 1. Calldata: [w].
type blueprintBoolAssert struct{}

func (blueprintBoolAssert) CalldataSize() int              { return 1 }
func (blueprintBoolAssert) NbConstraints() int             { return 1 }
func (blueprintBoolAssert) NbOutputs(inst Instruction) int { return 0 }

func (blueprintBoolAssert) UpdateInstructionTree(inst Instruction, tree InstructionTree) Level {
	return instructionLevel(tree, Wire(inst.Calldata[0]))
}

func (blueprintBoolAssert) Solve(s Solver, inst Instruction) error {
	v, err := s.Get(Wire(inst.Calldata[0]))
	if err != nil {
		return err
	}
	if b := v.Bits()[0]; b > 1 {
		return fmt.Errorf("%w: wire %d holds %d, expected boolean", ErrUnsatisfied, inst.Calldata[0], b)
	}
	return nil
}

// blueprintToBits decomposes a wire into n little-endian bit wires and checks
// the decomposition recomposes to the input. Calldata: [w, nbBits].
type blueprintToBits struct{}

func (blueprintToBits) CalldataSize() int  { return 2 }
func (blueprintToBits) NbConstraints() int { return 1 }

func (blueprintToBits) NbOutputs(inst Instruction) int {
	return int(inst.Calldata[1])
}

func (blueprintToBits) UpdateInstructionTree(inst Instruction, tree InstructionTree) Level {
	level := instructionLevel(tree, Wire(inst.Calldata[0]))
	insertOutputs(tree, inst, int(inst.Calldata[1]), level)
	return level
}

func (blueprintToBits) Solve(s Solver, inst Instruction) error {
	v, err := s.Get(Wire(inst.Calldata[0]))
	if err != nil {
		return err
	}
	n := int(inst.Calldata[1])
	value := new(big.Int).SetUint64(v.Bits()[0])
	bits, err := limbs.ToBits(value, n)
	if err != nil {
		return fmt.Errorf("%w: wire %d: %s", ErrUnsatisfied, inst.Calldata[0], err)
	}
	var el goldilocks.Element
	for i, bit := range bits {
		el.SetZero()
		if bit {
			el.SetOne()
		}
		s.Set(Wire(inst.WireOffset+uint32(i)), el)
	}
	if limbs.FromBits(bits).Cmp(value) != 0 {
		return fmt.Errorf("%w: bit recomposition of wire %d", ErrUnsatisfied, inst.Calldata[0])
	}
	return nil
}

// blueprintHint runs a registered hint node. Calldata: [index into the
// builder's hint list]. The hint writes into virtual wires it owns, so the
// instruction itself has no outputs.
type blueprintHint struct {
	b *Builder
}

func (*blueprintHint) CalldataSize() int              { return 1 }
func (*blueprintHint) NbConstraints() int             { return 0 }
func (*blueprintHint) NbOutputs(inst Instruction) int { return 0 }

func (bp *blueprintHint) UpdateInstructionTree(inst Instruction, tree InstructionTree) Level {
	h := bp.b.hints[inst.Calldata[0]]
	level := instructionLevel(tree, h.Dependencies()...)
	for _, out := range h.Outputs() {
		tree.InsertWire(out, level)
	}
	return level
}

func (bp *blueprintHint) Solve(s Solver, inst Instruction) error {
	w, ok := s.(*Witness)
	if !ok {
		return fmt.Errorf("hint solving requires a *Witness solver")
	}
	h := bp.b.hints[inst.Calldata[0]]
	if err := h.Run(w); err != nil {
		return fmt.Errorf("%w: %s: %s", ErrHintFailed, h.ID(), err)
	}
	return nil
}

func wiresOf(calldata []uint32) []Wire {
	r := make([]Wire, len(calldata))
	for i, c := range calldata {
		r[i] = Wire(c)
	}
	return r
}
