package debug

import (
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
)

// SymbolTable interns the source locations collected when constraints are
// recorded, so that an unsatisfied constraint can be reported with the call
// site that created it. Serialized with the circuit structure.
type SymbolTable struct {
	Locations  []Location
	Functions  []Function
	mFunctions map[string]int `cbor:"-"` // frame.File+frame.Function to id in Functions
	mLocations map[uint64]int `cbor:"-"` // frame PC to location id in Locations
}

type Function struct {
	Name       string
	SystemName string
	Filename   string
}

type Location struct {
	FunctionID int
	Line       int64
}

func NewSymbolTable() SymbolTable {
	return SymbolTable{
		mFunctions: map[string]int{},
		mLocations: map[uint64]int{},
	}
}

// CollectStack records the current call stack into the table and returns the
// interned location ids, innermost frame first.
func (st *SymbolTable) CollectStack() []int {
	var r []int
	if Debug {
		r = make([]int, 0, 5)
	} else {
		r = make([]int, 0, 2)
	}

	// Ask runtime.Callers for up to 20 pcs
	var pc [20]uintptr
	n := runtime.Callers(3, pc[:])
	if n == 0 {
		// No pcs available. Stop now.
		// This can happen if the first argument to runtime.Callers is large.
		return r
	}
	frames := runtime.CallersFrames(pc[:n]) // pass only valid pcs to runtime.CallersFrames
	cpt := 0
	// Loop to get frames.
	// A fixed number of pcs can expand to an indefinite number of Frames.
	for {
		frame, more := frames.Next()
		fe := strings.Split(frame.Function, "/")
		function := fe[len(fe)-1]

		if !Debug {
			if cpt == 2 {
				// limit stack size to 2 when debug is not set.
				break
			}
			if strings.Contains(function, "runtime.gopanic") {
				continue
			}
			if strings.Contains(function, "circuit.(*Builder)") {
				continue
			}
			frame.File = filepath.Base(frame.File)
		}

		r = append(r, st.locationID(&frame))
		cpt++

		if !more {
			break
		}
		if strings.HasSuffix(function, "tRunner") {
			break
		}
		if strings.HasSuffix(function, "main.main") {
			break
		}
	}
	return r
}

// FormatStack renders previously collected location ids.
func (st *SymbolTable) FormatStack(stack []int) string {
	var sbb strings.Builder
	for _, lID := range stack {
		if lID >= len(st.Locations) {
			continue
		}
		l := st.Locations[lID]
		f := st.Functions[l.FunctionID]
		sbb.WriteString(f.Name)
		sbb.WriteByte('\n')
		sbb.WriteByte('\t')
		sbb.WriteString(f.Filename)
		sbb.WriteByte(':')
		sbb.WriteString(strconv.FormatInt(l.Line, 10))
		sbb.WriteByte('\n')
	}
	return sbb.String()
}

func (st *SymbolTable) locationID(frame *runtime.Frame) int {
	if st.mLocations == nil {
		// table was rebuilt from a serialized circuit
		st.mLocations = map[uint64]int{}
		st.mFunctions = map[string]int{}
	}
	lID, ok := st.mLocations[uint64(frame.PC)]
	if !ok {
		// first let's see if we have the function.
		fID, ok := st.mFunctions[frame.File+frame.Function]
		if !ok {
			fe := strings.Split(frame.Function, "/")
			fName := fe[len(fe)-1]
			f := Function{
				Name:       fName,
				SystemName: frame.Function,
				Filename:   frame.File,
			}

			st.Functions = append(st.Functions, f)
			fID = len(st.Functions) - 1
			st.mFunctions[frame.File+frame.Function] = fID
		}

		l := Location{FunctionID: fID, Line: int64(frame.Line)}

		st.Locations = append(st.Locations, l)
		lID = len(st.Locations) - 1
		st.mLocations[uint64(frame.PC)] = lID
	}

	return lID
}
