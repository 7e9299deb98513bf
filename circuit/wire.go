package circuit

// Wire is a reference to a slot in the constraint system that holds a concrete
// native-field value once a witness is assigned.
type Wire uint32

// Bool wraps a wire whose value is constrained to 0 or 1. A Bool is only
// obtained through Builder.NewBool, Builder.ConstantBool or bit decomposition,
// so holding one is a guarantee that the boolean constraint exists.
type Bool struct {
	w Wire
}

// Wire returns the underlying wire.
func (b Bool) Wire() Wire {
	return b.w
}
