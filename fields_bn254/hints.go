package fields_bn254

import (
	"errors"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254"

	"github.com/consensys/tower-gadgets/circuit"
	gio "github.com/consensys/tower-gadgets/io"
)

// Stable identifiers the hint nodes persist under.
const (
	inverseHintID = "fields_bn254.inverse"
	expHintID     = "fields_bn254.exp"
)

func init() {
	circuit.RegisterHint(inverseHintID, decodeInverseHint)
	circuit.RegisterHint(expHintID, decodeExpHint)
}

// InverseHint computes the multiplicative inverse of a tower element outside
// the constraint system and writes it into Inv. It owns full snapshots of
// both gadgets; Ext12.Inverse adds the constraint tying Inv back to X.
type InverseHint struct {
	X   E12
	Inv E12
}

func (h *InverseHint) ID() string { return inverseHintID }

// Dependencies declares every limb wire of X: the hint may only run once the
// full operand has concrete values.
func (h *InverseHint) Dependencies() []circuit.Wire { return h.X.ToWires() }

func (h *InverseHint) Outputs() []circuit.Wire { return h.Inv.ToWires() }

func (h *InverseHint) Run(w *circuit.Witness) error {
	x, err := h.X.Value(w)
	if err != nil {
		return err
	}
	if x.IsZero() {
		return errors.New("tower element is zero, no inverse exists")
	}
	var inv bn254.E12
	inv.Inverse(&x)
	h.Inv.SetWitness(w, &inv)
	return nil
}

func (h *InverseHint) WriteTo(w *gio.Writer) {
	h.X.WriteTo(w)
	h.Inv.WriteTo(w)
}

func decodeInverseHint(r *gio.Reader, b *circuit.Builder) (circuit.Hint, error) {
	var h InverseHint
	var err error
	if h.X, err = readE12(r, b); err != nil {
		return nil, err
	}
	if h.Inv, err = readE12(r, b); err != nil {
		return nil, err
	}
	return &h, nil
}

// ExpHint computes Offset * X^k outside the constraint system, where k is
// the 64-bit scalar held by the wire K at witness-generation time, and
// writes the result into Out. It adds no constraint of its own; see
// Ext12.Exp.
type ExpHint struct {
	X      E12
	Offset E12
	Out    E12
	K      circuit.Wire
}

func (h *ExpHint) ID() string { return expHintID }

func (h *ExpHint) Dependencies() []circuit.Wire {
	deps := make([]circuit.Wire, 0, 2*NbWires+1)
	deps = append(deps, h.X.ToWires()...)
	deps = append(deps, h.Offset.ToWires()...)
	deps = append(deps, h.K)
	return deps
}

func (h *ExpHint) Outputs() []circuit.Wire { return h.Out.ToWires() }

func (h *ExpHint) Run(w *circuit.Witness) error {
	x, err := h.X.Value(w)
	if err != nil {
		return err
	}
	offset, err := h.Offset.Value(w)
	if err != nil {
		return err
	}
	k, err := w.Uint64(h.K)
	if err != nil {
		return err
	}
	var r bn254.E12
	r.Exp(x, new(big.Int).SetUint64(k))
	r.Mul(&offset, &r)
	h.Out.SetWitness(w, &r)
	return nil
}

// WriteTo appends the captured gadgets in declaration order, then the
// exponent wire. decodeExpHint reads the exact same order.
func (h *ExpHint) WriteTo(w *gio.Writer) {
	h.X.WriteTo(w)
	h.Offset.WriteTo(w)
	h.Out.WriteTo(w)
	w.WriteUint32(uint32(h.K))
}

func decodeExpHint(r *gio.Reader, b *circuit.Builder) (circuit.Hint, error) {
	var h ExpHint
	var err error
	if h.X, err = readE12(r, b); err != nil {
		return nil, err
	}
	if h.Offset, err = readE12(r, b); err != nil {
		return nil, err
	}
	if h.Out, err = readE12(r, b); err != nil {
		return nil, err
	}
	if h.K, err = circuit.ReadWire(r, b); err != nil {
		return nil, err
	}
	return &h, nil
}
