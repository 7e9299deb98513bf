package circuit

import (
	"github.com/consensys/gnark-crypto/field/goldilocks"
)

type BlueprintID uint32

// Blueprint specifies how a gate kind packs its wire references into calldata
// and how the solver executes it. Blueprints keep the instruction stream
// homogeneous: an instruction is a blueprint id plus offsets into the shared
// calldata arena.
type Blueprint interface {
	// CalldataSize returns the number of calldata words an instruction of this
	// blueprint occupies. All blueprints in this package are fixed-size.
	CalldataSize() int

	// NbConstraints returns the number of constraints this blueprint checks at
	// solving time.
	NbConstraints() int

	// NbOutputs returns the number of output wires this blueprint allocates.
	NbOutputs(inst Instruction) int

	// UpdateInstructionTree updates the instruction tree with the level of the
	// instruction's output wires and returns the level at which the
	// instruction is solved.
	UpdateInstructionTree(inst Instruction, tree InstructionTree) Level
}

// BlueprintSolvable is a blueprint that knows how to solve (and check) itself.
// All blueprints registered by NewBuilder implement it.
type BlueprintSolvable interface {
	Blueprint
	// Solve may return an error if the instruction is unsolvable or one of its
	// checks fails.
	Solve(s Solver, inst Instruction) error
}

// Solver is the state a blueprint interacts with at solving time. It is
// implemented by *Witness.
type Solver interface {
	// Get returns the value of a wire, or an error wrapping
	// ErrMissingAssignment if the wire has no value yet.
	Get(w Wire) (goldilocks.Element, error)

	// Set assigns a value to a wire. Assigning a different value to an
	// already-assigned wire panics.
	Set(w Wire, v goldilocks.Element)

	// Has reports whether the wire has a value.
	Has(w Wire) bool
}

// Level of an instruction in the dependency order: an instruction at level n
// only reads wires produced at levels < n, so solving level by level respects
// every data dependency.
type Level int

const LevelUnset Level = -1

// InstructionTree tracks at which level each wire is produced.
// It is implemented by *Builder.
type InstructionTree interface {
	// InsertWire inserts a wire in the instruction tree at the given level.
	// If the wire is already in the instruction tree, it panics.
	InsertWire(w Wire, level Level)

	// HasWire returns true if the wire is produced by an instruction or a
	// hint. False if it is a virtual wire assigned directly by the caller.
	HasWire(w Wire) bool

	// GetWireLevel returns the level of the wire in the instruction tree.
	// If HasWire(w) returns false, it returns LevelUnset.
	GetWireLevel(w Wire) Level
}

// PackedInstruction is the compact form of an instruction in the stream.
type PackedInstruction struct {
	// BlueprintID maps this instruction to a blueprint.
	BlueprintID BlueprintID

	// StartCallData points to the first calldata word of the instruction in
	// the shared arena.
	StartCallData uint64

	// WireOffset is the id of the first output wire allocated by the
	// instruction.
	WireOffset uint32
}

// Instruction is the unpacked view of a PackedInstruction, with its calldata
// slice resolved.
type Instruction struct {
	PackedInstruction
	Calldata []uint32
}

// Unpack returns the Instruction view of pi.
func (pi PackedInstruction) Unpack(b *Builder) Instruction {
	blueprint := b.Blueprints[pi.BlueprintID]
	cSize := blueprint.CalldataSize()
	return Instruction{
		PackedInstruction: pi,
		Calldata:          b.CallData[pi.StartCallData : pi.StartCallData+uint64(cSize)],
	}
}
