// Package profile provides a simple way to generate pprof compatible gate
// count profiles of circuit construction.
//
// Enabling profiling has a non-negligible performance impact on construction,
// since each constraint records its call stack.
package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"unicode"

	"github.com/google/pprof/profile"

	"github.com/consensys/tower-gadgets/logger"
)

var (
	mu             sync.Mutex
	sessions       []*Profile
	activeSessions uint32
)

// Profile represents an active constraint profiling session.
type Profile struct {
	pprof profile.Profile

	functions map[string]*profile.Function
	locations map[uint64]*profile.Location

	filePath string
}

// Option defines configuration of a profiling session.
type Option func(*Profile)

// WithPath controls the profile destination file. Defaults to
// "gadgets.pprof".
func WithPath(path string) Option {
	return func(p *Profile) {
		p.filePath = path
	}
}

// WithNoOutput indicates that the profile is only consumed programmatically,
// through NbConstraints and Top; Stop writes no file.
func WithNoOutput() Option {
	return func(p *Profile) {
		p.filePath = ""
	}
}

// Start creates a new profiling session. Multiple sessions may overlap; each
// records the constraints added between its Start and Stop.
func Start(options ...Option) *Profile {
	p := Profile{
		functions: make(map[string]*profile.Function),
		locations: make(map[uint64]*profile.Location),
		filePath:  "gadgets.pprof",
	}
	p.pprof.SampleType = []*profile.ValueType{{
		Type: "constraints",
		Unit: "count",
	}}
	p.pprof.Mapping = []*profile.Mapping{
		{ID: 1, File: filepath.Base(os.Args[0])},
	}

	for _, option := range options {
		option(&p)
	}

	mu.Lock()
	sessions = append(sessions, &p)
	mu.Unlock()
	atomic.AddUint32(&activeSessions, 1)

	log := logger.Logger()
	log.Info().Msg("profiling started")

	return &p
}

// Stop removes the session from the active ones and, unless WithNoOutput was
// set, writes the accumulated profile to the session's path.
func (p *Profile) Stop() {
	mu.Lock()
	for i := 0; i < len(sessions); i++ {
		if sessions[i] == p {
			sessions[i] = sessions[len(sessions)-1]
			sessions = sessions[:len(sessions)-1]
			break
		}
	}
	mu.Unlock()
	atomic.AddUint32(&activeSessions, ^uint32(0))

	log := logger.Logger()

	if p.filePath != "" {
		f, err := os.Create(p.filePath)
		if err != nil {
			log.Fatal().Err(err).Msg("creating profile file")
		}
		defer f.Close()
		if err := p.pprof.Write(f); err != nil {
			log.Fatal().Err(err).Msg("writing profile")
		}
		log.Info().Str("path", p.filePath).Int("nbConstraints", p.NbConstraints()).Msg("profiling stopped")
	} else {
		log.Info().Int("nbConstraints", p.NbConstraints()).Msg("profiling stopped")
	}
}

// NbConstraints returns the number of constraints recorded by the session.
func (p *Profile) NbConstraints() int {
	return len(p.pprof.Sample)
}

// Top returns a text summary of the session, sorted by constraint count:
// flat counts constraints recorded with the function as innermost frame, cum
// counts constraints with the function anywhere on the stack.
func (p *Profile) Top() string {
	type row struct {
		flat, cum int64
		name      string
	}
	flat := make(map[string]int64)
	cum := make(map[string]int64)

	for _, sample := range p.pprof.Sample {
		if len(sample.Location) == 0 {
			continue
		}
		seen := make(map[string]struct{}, len(sample.Location))
		for i, loc := range sample.Location {
			name := loc.Line[0].Function.Name
			if i == 0 {
				flat[name] += sample.Value[0]
			}
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			cum[name] += sample.Value[0]
		}
	}

	rows := make([]row, 0, len(cum))
	for name, c := range cum {
		rows = append(rows, row{flat: flat[name], cum: c, name: name})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].flat != rows[j].flat {
			return rows[i].flat > rows[j].flat
		}
		return rows[i].name < rows[j].name
	})

	var sbb strings.Builder
	fmt.Fprintf(&sbb, "%d constraints\n", p.NbConstraints())
	fmt.Fprintf(&sbb, "%10s %10s  %s\n", "flat", "cum", "name")
	for _, r := range rows {
		fmt.Fprintf(&sbb, "%10d %10d  %s\n", r.flat, r.cum, r.name)
	}
	return sbb.String()
}

// RecordConstraint adds a sample (with count == 1) to all the active
// profiling sessions.
func RecordConstraint() {
	if n := atomic.LoadUint32(&activeSessions); n == 0 {
		return // do nothing, no active session
	}

	// collect the stack trace
	pc := make([]uintptr, 20)
	n := runtime.Callers(3, pc)

	mu.Lock()
	defer mu.Unlock()
	for _, session := range sessions {
		session.collectSample(pc[:n])
	}
}

func (p *Profile) collectSample(pc []uintptr) {
	sample := &profile.Sample{Value: []int64{1}}

	frames := runtime.CallersFrames(pc)
	// Loop to get frames.
	// A fixed number of pcs can expand to an indefinite number of Frames.
	for {
		frame, more := frames.Next()

		// filter builder internals from the trace; the public gate methods
		// are the interesting attribution points
		if filterBuilderPrivateFunc(frame.Function) {
			if !more {
				break
			}
			continue
		}

		sample.Location = append(sample.Location, p.getLocation(&frame))

		if !more {
			break
		}
		function := frame.Function
		if strings.HasSuffix(function, "tRunner") {
			break
		}
		if strings.HasSuffix(function, "main.main") {
			break
		}
	}

	p.pprof.Sample = append(p.pprof.Sample, sample)
}

func (p *Profile) getLocation(frame *runtime.Frame) *profile.Location {
	location, ok := p.locations[uint64(frame.PC)]
	if !ok {
		function, ok := p.functions[frame.Function]
		if !ok {
			fe := strings.Split(frame.Function, "/")
			fName := fe[len(fe)-1]
			function = &profile.Function{
				ID:         uint64(len(p.functions) + 1),
				Name:       fName,
				SystemName: frame.Function,
				Filename:   frame.File,
			}
			p.functions[frame.Function] = function
			p.pprof.Function = append(p.pprof.Function, function)
		}

		location = &profile.Location{
			ID:      uint64(len(p.locations) + 1),
			Line:    []profile.Line{{Function: function, Line: int64(frame.Line)}},
			Mapping: p.pprof.Mapping[0],
		}
		p.locations[uint64(frame.PC)] = location
		p.pprof.Location = append(p.pprof.Location, location)
	}

	return location
}

func filterBuilderPrivateFunc(f string) bool {
	const builderPrefix = "github.com/consensys/tower-gadgets/circuit.(*Builder)."
	if strings.HasPrefix(f, builderPrefix) && len(f) > len(builderPrefix) {
		c := []rune(f)[len(builderPrefix)]
		if unicode.IsLower(c) {
			return true
		}
	}
	return false
}
