// Package circuit implements the constraint-system builder the field gadgets
// are built on: wire allocation, gate scheduling by data dependency, hint
// registration, witness solving and structure serialization.
//
// The native field is Goldilocks (p = 2^64 - 2^32 + 1). Emulated base-field
// coefficients are represented by groups of 8 wires holding 32-bit limbs; the
// gates operating on those groups are definitional: the solver computes output
// limbs from input limbs, and only equality and boolean gates can fail.
package circuit

import (
	"math/big"

	"github.com/consensys/gnark-crypto/field/goldilocks"
	"github.com/rs/zerolog"

	"github.com/consensys/tower-gadgets/debug"
	"github.com/consensys/tower-gadgets/logger"
	"github.com/consensys/tower-gadgets/profile"
)

// Builder is the single mutable construction context threaded through every
// gadget operation. It is not safe for concurrent use; circuit construction
// is sequential.
type Builder struct {
	// Blueprints registered with the builder. The set and order are fixed by
	// NewBuilder, so blueprint ids are stable across serialization.
	Blueprints []Blueprint

	// Instructions is the ordered stream of gates.
	Instructions []PackedInstruction

	// CallData is the shared arena instruction operands point into.
	CallData []uint32

	// Levels groups instruction indices by dependency level; solving proceeds
	// level by level.
	Levels [][]uint32

	// MDebug maps an instruction index to the interned call stack that
	// created it. Populated for constraint-bearing gates only.
	MDebug map[int][]int

	// SymbolTable interns the call stacks referenced by MDebug.
	SymbolTable debug.SymbolTable

	// lbWireLevel tracks at which level each wire is produced; LevelUnset for
	// virtual wires assigned directly by the caller.
	lbWireLevel []Level

	nbWires   uint32
	hints     []Hint
	constants map[uint64]Wire

	bpConstant      BlueprintID
	bpFpAdd         BlueprintID
	bpFpSub         BlueprintID
	bpFpNeg         BlueprintID
	bpFpMul         BlueprintID
	bpFpSelect      BlueprintID
	bpFpAssertEqual BlueprintID
	bpBoolAssert    BlueprintID
	bpToBits        BlueprintID
	bpHint          BlueprintID

	q   *big.Int
	log zerolog.Logger
}

// Option configures a Builder at construction time.
type Option func(*builderConfig)

type builderConfig struct {
	capacity int
	log      *zerolog.Logger
}

// WithCapacity preallocates internal slices for an expected number of
// instructions.
func WithCapacity(capacity int) Option {
	return func(cfg *builderConfig) {
		cfg.capacity = capacity
	}
}

// WithLogger overrides the global logger for this builder.
func WithLogger(l zerolog.Logger) Option {
	return func(cfg *builderConfig) {
		cfg.log = &l
	}
}

// NewBuilder returns an empty builder over the Goldilocks native field.
func NewBuilder(opts ...Option) *Builder {
	cfg := builderConfig{capacity: 256}
	for _, opt := range opts {
		opt(&cfg)
	}
	log := logger.Logger()
	if cfg.log != nil {
		log = *cfg.log
	}

	b := &Builder{
		Instructions: make([]PackedInstruction, 0, cfg.capacity),
		CallData:     make([]uint32, 0, cfg.capacity*8),
		Levels:       make([][]uint32, 0, 16),
		MDebug:       map[int][]int{},
		SymbolTable:  debug.NewSymbolTable(),
		lbWireLevel:  make([]Level, 0, cfg.capacity*8),
		constants:    map[uint64]Wire{},
		q:            goldilocks.Modulus(),
		log:          log,
	}

	b.bpConstant = b.AddBlueprint(blueprintConstant{})
	b.bpFpAdd = b.AddBlueprint(blueprintFpAdd{})
	b.bpFpSub = b.AddBlueprint(blueprintFpSub{})
	b.bpFpNeg = b.AddBlueprint(blueprintFpNeg{})
	b.bpFpMul = b.AddBlueprint(blueprintFpMul{})
	b.bpFpSelect = b.AddBlueprint(blueprintFpSelect{})
	b.bpFpAssertEqual = b.AddBlueprint(blueprintFpAssertEqual{})
	b.bpBoolAssert = b.AddBlueprint(blueprintBoolAssert{})
	b.bpToBits = b.AddBlueprint(blueprintToBits{})
	b.bpHint = b.AddBlueprint(&blueprintHint{b: b})
	return b
}

// AddBlueprint registers a blueprint and returns its id.
func (b *Builder) AddBlueprint(bp Blueprint) BlueprintID {
	b.Blueprints = append(b.Blueprints, bp)
	return BlueprintID(len(b.Blueprints) - 1)
}

// AddWire allocates a fresh virtual wire. It carries no constraint and no
// value until an instruction, a hint or the caller assigns it.
func (b *Builder) AddWire() Wire {
	w := Wire(b.nbWires)
	b.nbWires++
	b.lbWireLevel = append(b.lbWireLevel, LevelUnset)
	return w
}

// NbWires returns the number of allocated wires.
func (b *Builder) NbWires() int {
	return int(b.nbWires)
}

// NbInstructions returns the number of instructions in the stream.
func (b *Builder) NbInstructions() int {
	return len(b.Instructions)
}

// NbConstraints returns the total number of checks the solver performs.
func (b *Builder) NbConstraints() int {
	n := 0
	for _, pi := range b.Instructions {
		n += b.Blueprints[pi.BlueprintID].NbConstraints()
	}
	return n
}

// NbHints returns the number of registered hint nodes.
func (b *Builder) NbHints() int {
	return len(b.hints)
}

// addInstruction appends an instruction to the stream, allocates its output
// wires and schedules it in the dependency levels. It returns the output
// wires.
func (b *Builder) addInstruction(bID BlueprintID, calldata []uint32) []Wire {
	blueprint := b.Blueprints[bID]

	pi := PackedInstruction{
		BlueprintID:   bID,
		StartCallData: uint64(len(b.CallData)),
		WireOffset:    b.nbWires,
	}
	b.CallData = append(b.CallData, calldata...)

	inst := pi.Unpack(b)
	for i := blueprint.NbOutputs(inst); i > 0; i-- {
		b.AddWire()
	}

	b.Instructions = append(b.Instructions, pi)
	iID := uint32(len(b.Instructions) - 1)

	level := blueprint.UpdateInstructionTree(inst, b)
	if int(level) == len(b.Levels) {
		b.Levels = append(b.Levels, make([]uint32, 0, 8))
	}
	b.Levels[level] = append(b.Levels[level], iID)

	for i := blueprint.NbConstraints(); i > 0; i-- {
		profile.RecordConstraint()
	}

	outputs := make([]Wire, blueprint.NbOutputs(inst))
	for i := range outputs {
		outputs[i] = Wire(pi.WireOffset + uint32(i))
	}
	return outputs
}

// Constant returns a wire holding the given value, reduced to the native
// field's canonical range. Constants are interned: the same value always
// yields the same wire.
func (b *Builder) Constant(v uint64) Wire {
	var el goldilocks.Element
	el.SetUint64(v)
	v = el.Bits()[0]
	if w, ok := b.constants[v]; ok {
		return w
	}
	out := b.addInstruction(b.bpConstant, constantCalldata(v))
	b.constants[v] = out[0]
	return out[0]
}

// ConstantBool returns a Bool wire holding 0 or 1.
func (b *Builder) ConstantBool(v bool) Bool {
	if v {
		return Bool{w: b.Constant(1)}
	}
	return Bool{w: b.Constant(0)}
}

// AsBool constrains an existing wire to be boolean and returns it as a Bool.
func (b *Builder) AsBool(w Wire) Bool {
	idx := len(b.Instructions)
	b.addInstruction(b.bpBoolAssert, []uint32{uint32(w)})
	b.MDebug[idx] = b.SymbolTable.CollectStack()
	return Bool{w: w}
}

// NewBool allocates a fresh virtual wire constrained to be boolean.
func (b *Builder) NewBool() Bool {
	return b.AsBool(b.AddWire())
}

// ToBits decomposes a wire into nb little-endian bit wires. The decomposition
// is checked: solving fails if the wire's value does not fit nb bits.
func (b *Builder) ToBits(w Wire, nb int) []Bool {
	if nb <= 0 || nb > 64 {
		panic("bit decomposition width must be in [1, 64]")
	}
	outs := b.addInstruction(b.bpToBits, []uint32{uint32(w), uint32(nb)})
	bits := make([]Bool, nb)
	for i, o := range outs {
		bits[i] = Bool{w: o}
	}
	return bits
}

// FpAdd returns limb wires holding x + y over the emulated base field.
func (b *Builder) FpAdd(x, y [8]Wire) [8]Wire {
	return toLimbGroup(b.addInstruction(b.bpFpAdd, limbCalldata(x, y)))
}

// FpSub returns limb wires holding x - y over the emulated base field.
func (b *Builder) FpSub(x, y [8]Wire) [8]Wire {
	return toLimbGroup(b.addInstruction(b.bpFpSub, limbCalldata(x, y)))
}

// FpNeg returns limb wires holding -x over the emulated base field.
func (b *Builder) FpNeg(x [8]Wire) [8]Wire {
	return toLimbGroup(b.addInstruction(b.bpFpNeg, limbCalldata(x)))
}

// FpMul returns limb wires holding x * y over the emulated base field.
func (b *Builder) FpMul(x, y [8]Wire) [8]Wire {
	return toLimbGroup(b.addInstruction(b.bpFpMul, limbCalldata(x, y)))
}

// FpSelect returns limb wires holding x if flag is 1, y if flag is 0.
func (b *Builder) FpSelect(flag Bool, x, y [8]Wire) [8]Wire {
	calldata := make([]uint32, 0, 1+2*nbLimbs)
	calldata = append(calldata, uint32(flag.Wire()))
	for _, w := range x {
		calldata = append(calldata, uint32(w))
	}
	for _, w := range y {
		calldata = append(calldata, uint32(w))
	}
	return toLimbGroup(b.addInstruction(b.bpFpSelect, calldata))
}

// FpAssertEqual adds the limb-wise equality constraints x == y.
func (b *Builder) FpAssertEqual(x, y [8]Wire) {
	idx := len(b.Instructions)
	b.addInstruction(b.bpFpAssertEqual, limbCalldata(x, y))
	b.MDebug[idx] = b.SymbolTable.CollectStack()
}

// AddHint registers an auxiliary computation node. The node's Run is invoked
// exactly once during solving, after all its declared dependency wires have
// values; its outputs must be fresh virtual wires owned by the node.
func (b *Builder) AddHint(h Hint) {
	if debug.Debug {
		for _, d := range h.Dependencies() {
			if uint32(d) >= b.nbWires {
				panic("hint depends on an unallocated wire")
			}
		}
		for _, o := range h.Outputs() {
			if uint32(o) >= b.nbWires {
				panic("hint writes to an unallocated wire")
			}
		}
	}
	b.hints = append(b.hints, h)
	b.addInstruction(b.bpHint, []uint32{uint32(len(b.hints) - 1)})
}

// NewWitness returns an empty assignment table sized for the builder's
// current wire count.
func (b *Builder) NewWitness() *Witness {
	return NewWitness(b.NbWires())
}

// InsertWire implements InstructionTree.
func (b *Builder) InsertWire(w Wire, level Level) {
	if debug.Debug {
		if level < 0 {
			panic("level must be >= 0")
		}
	}
	if b.lbWireLevel[w] != LevelUnset {
		panic("wire already exists in instruction tree")
	}
	b.lbWireLevel[w] = level
}

// HasWire implements InstructionTree.
func (b *Builder) HasWire(w Wire) bool {
	return b.lbWireLevel[w] != LevelUnset
}

// GetWireLevel implements InstructionTree.
func (b *Builder) GetWireLevel(w Wire) Level {
	return b.lbWireLevel[w]
}

func limbCalldata(groups ...[8]Wire) []uint32 {
	calldata := make([]uint32, 0, len(groups)*nbLimbs)
	for _, g := range groups {
		for _, w := range g {
			calldata = append(calldata, uint32(w))
		}
	}
	return calldata
}

func toLimbGroup(wires []Wire) [8]Wire {
	var r [8]Wire
	copy(r[:], wires)
	return r
}
