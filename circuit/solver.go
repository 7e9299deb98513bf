package circuit

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrMissingAssignment is returned when solving reads a virtual wire the
	// caller never assigned.
	ErrMissingAssignment = errors.New("missing wire assignment")

	// ErrUnsatisfied is returned when a fully assigned constraint check
	// fails.
	ErrUnsatisfied = errors.New("unsatisfied constraint")

	// ErrHintFailed is returned when a hint's execution routine fails, such
	// as inverting zero. It is a witness-generation failure: constraints are
	// never reached.
	ErrHintFailed = errors.New("hint failed")
)

// Solve runs the instruction stream against the witness, level by level, and
// checks every constraint inline. On success the witness holds a value for
// every wire reachable from the assigned virtual wires.
//
// Hints run exactly once, when their level is reached; a hint error aborts
// solving immediately and is reported distinctly from an unsatisfied
// constraint.
func (b *Builder) Solve(w *Witness) error {
	if len(w.values) < b.NbWires() {
		return fmt.Errorf("witness sized for %d wires, builder has %d", len(w.values), b.NbWires())
	}

	start := time.Now()
	for level := range b.Levels {
		for _, iID := range b.Levels[level] {
			pi := b.Instructions[iID]
			blueprint, ok := b.Blueprints[pi.BlueprintID].(BlueprintSolvable)
			if !ok {
				panic(fmt.Sprintf("blueprint %d is not solvable", pi.BlueprintID))
			}
			if err := blueprint.Solve(w, pi.Unpack(b)); err != nil {
				if stack, hasStack := b.MDebug[int(iID)]; hasStack {
					if formatted := b.SymbolTable.FormatStack(stack); formatted != "" {
						err = fmt.Errorf("%w\nadded at:\n%s", err, formatted)
					}
				}
				b.log.Debug().Uint32("instruction", iID).Int("level", level).Err(err).Msg("solver failed")
				return fmt.Errorf("instruction %d: %w", iID, err)
			}
		}
	}

	b.log.Debug().
		Dur("took", time.Since(start)).
		Int("nbInstructions", b.NbInstructions()).
		Int("nbConstraints", b.NbConstraints()).
		Int("nbHints", b.NbHints()).
		Msg("solver done")
	return nil
}
