package circuit

import (
	"fmt"
	"sync"

	gio "github.com/consensys/tower-gadgets/io"
	"github.com/consensys/tower-gadgets/logger"
)

// Hint is an auxiliary non-deterministic computation node owned by the
// builder. Values that are cheaper to compute natively than to constrain
// algebraically (a field inverse, an exponentiation) are produced by a hint
// and written into virtual output wires; callers needing soundness must tie
// the outputs back with explicit constraints.
//
// A hint declares its input wires, runs exactly once during solving after all
// of them have values, and persists itself under a stable identifier.
type Hint interface {
	// ID returns the stable identifier the node is serialized under.
	ID() string

	// Dependencies returns the wires that must have values before Run.
	Dependencies() []Wire

	// Outputs returns the virtual wires Run writes into. They must be owned
	// by this node: no instruction and no other hint may produce them.
	Outputs() []Wire

	// Run reads concrete dependency values from the witness and writes the
	// node's outputs. A native-arithmetic domain error (such as inverting
	// zero) aborts witness generation for the circuit instance.
	Run(w *Witness) error

	// WriteTo appends the node's payload: captured gadget fields in
	// declaration order, then plain scalar fields. HintDecoder reads the
	// exact same order.
	WriteTo(w *gio.Writer)
}

// HintDecoder reconstructs a hint node of one kind from its serialized
// payload. Wire references are validated against the builder.
type HintDecoder func(r *gio.Reader, b *Builder) (Hint, error)

var hintRegistry = struct {
	sync.RWMutex
	decoders map[string]HintDecoder
}{decoders: map[string]HintDecoder{}}

// RegisterHint makes a hint kind deserializable under its stable identifier.
// It is meant to be called from init functions of packages defining hints.
// Re-registering an identifier logs a warning and keeps the first decoder.
func RegisterHint(id string, dec HintDecoder) {
	hintRegistry.Lock()
	defer hintRegistry.Unlock()
	if _, ok := hintRegistry.decoders[id]; ok {
		log := logger.Logger()
		log.Warn().Str("id", id).Msg("hint decoder already registered")
		return
	}
	hintRegistry.decoders[id] = dec
}

// GetHintDecoder returns the decoder registered for id.
func GetHintDecoder(id string) (HintDecoder, error) {
	hintRegistry.RLock()
	defer hintRegistry.RUnlock()
	dec, ok := hintRegistry.decoders[id]
	if !ok {
		return nil, fmt.Errorf("no hint decoder registered for %q", id)
	}
	return dec, nil
}

// ReadWire decodes a wire reference and validates it against the builder's
// wire count.
func ReadWire(r *gio.Reader, b *Builder) (Wire, error) {
	v, err := r.ReadUint32()
	if err != nil {
		return 0, err
	}
	if v >= b.nbWires {
		return 0, fmt.Errorf("%w: wire %d out of range (%d wires)", gio.ErrInvalidEncoding, v, b.nbWires)
	}
	return Wire(v), nil
}
