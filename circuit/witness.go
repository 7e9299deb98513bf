package circuit

import (
	"fmt"

	"github.com/bits-and-blooms/bitset"
	"github.com/consensys/gnark-crypto/field/goldilocks"

	"github.com/consensys/tower-gadgets/debug"
)

// Witness is the assignment table for one circuit instance: a concrete
// native-field value per wire. The caller assigns virtual wires before
// solving; the solver fills in the rest.
type Witness struct {
	values   []goldilocks.Element
	assigned *bitset.BitSet
}

// NewWitness returns an empty table for n wires.
func NewWitness(n int) *Witness {
	return &Witness{
		values:   make([]goldilocks.Element, n),
		assigned: bitset.New(uint(n)),
	}
}

// Set assigns a value to a wire. Re-assigning the same value is a no-op;
// assigning a different value to an already-assigned wire is a programming
// error and panics.
func (w *Witness) Set(wire Wire, v goldilocks.Element) {
	if uint32(wire) >= uint32(len(w.values)) {
		panic(fmt.Sprintf("wire %d out of range (%d wires)", wire, len(w.values)))
	}
	if w.assigned.Test(uint(wire)) {
		if !w.values[wire].Equal(&v) {
			msg := fmt.Sprintf("wire %d already assigned %d, cannot assign %d",
				wire, w.values[wire].Bits()[0], v.Bits()[0])
			if debug.Debug {
				msg += "\n" + debug.Stack()
			}
			panic(msg)
		}
		return
	}
	w.values[wire] = v
	w.assigned.Set(uint(wire))
}

// SetUint64 assigns a value to a wire, reduced to the native field's
// canonical range.
func (w *Witness) SetUint64(wire Wire, v uint64) {
	var el goldilocks.Element
	el.SetUint64(v)
	w.Set(wire, el)
}

// Get returns the value of a wire, or an error wrapping ErrMissingAssignment
// if the wire has no value yet.
func (w *Witness) Get(wire Wire) (goldilocks.Element, error) {
	if uint32(wire) >= uint32(len(w.values)) {
		return goldilocks.Element{}, fmt.Errorf("%w: wire %d out of range (%d wires)", ErrMissingAssignment, wire, len(w.values))
	}
	if !w.assigned.Test(uint(wire)) {
		return goldilocks.Element{}, fmt.Errorf("%w: wire %d", ErrMissingAssignment, wire)
	}
	return w.values[wire], nil
}

// Has reports whether the wire has a value.
func (w *Witness) Has(wire Wire) bool {
	return uint32(wire) < uint32(len(w.values)) && w.assigned.Test(uint(wire))
}

// Uint64 returns the canonical scalar held by a wire. Used by hints reading
// runtime scalars such as exponents.
func (w *Witness) Uint64(wire Wire) (uint64, error) {
	v, err := w.Get(wire)
	if err != nil {
		return 0, err
	}
	return v.Bits()[0], nil
}

// NbAssigned returns the number of wires holding a value.
func (w *Witness) NbAssigned() int {
	return int(w.assigned.Count())
}
