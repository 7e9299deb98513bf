package circuit

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/blang/semver/v4"
	"github.com/consensys/gnark-crypto/field/goldilocks"
	"github.com/fxamacker/cbor/v2"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/sync/errgroup"

	towergadgets "github.com/consensys/tower-gadgets"
	"github.com/consensys/tower-gadgets/debug"
	"github.com/consensys/tower-gadgets/internal/ioutils"
	gio "github.com/consensys/tower-gadgets/io"
	"github.com/consensys/tower-gadgets/logger"
)

// ToBytes serializes the circuit structure (not witness values) to a byte
// slice: a fixed header of section lengths, the levels, instructions and
// calldata sections in compressed binary form, the hint payloads, a CBOR
// body, and a digest trailer.
func (b *Builder) ToBytes() ([]byte, error) {
	// we prepare and write distinct blocks of data;
	// that allows for a more efficient serialization/deserialization (+ parallelism)
	var calldata, instructions, levels, hints []byte
	var g errgroup.Group
	g.Go(func() error {
		var err error
		calldata, err = b.calldataToBytes()
		return err
	})
	g.Go(func() error {
		var err error
		instructions, err = b.instructionsToBytes()
		return err
	})
	g.Go(func() error {
		var err error
		levels, err = b.levelsToBytes()
		return err
	})
	g.Go(func() error {
		var err error
		hints, err = b.hintsToBytes()
		return err
	})
	body, err := b.bodyToBytes()
	if err != nil {
		return nil, err
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	// header
	h := header{
		levelsLen:       uint64(len(levels)),
		instructionsLen: uint64(len(instructions)),
		calldataLen:     uint64(len(calldata)),
		hintsLen:        uint64(len(hints)),
		bodyLen:         uint64(len(body)),
	}

	// write header
	buf := h.toBytes()
	buf = append(buf, levels...)
	buf = append(buf, instructions...)
	buf = append(buf, calldata...)
	buf = append(buf, hints...)
	buf = append(buf, body...)

	// digest trailer, verified on load
	digest := blake2b.Sum256(buf)
	buf = append(buf, digest[:]...)

	return buf, nil
}

// FromBytes deserializes a circuit structure produced by ToBytes and returns
// a builder ready for solving or for further construction. It returns the
// number of bytes consumed.
//
// Malformed, truncated or corrupted input surfaces typed errors wrapping
// io.ErrTruncatedStream or io.ErrInvalidEncoding from this module's io
// package; unknown hint identifiers are reported by name.
func FromBytes(data []byte) (*Builder, int, error) {
	if len(data) < headerLen {
		return nil, 0, fmt.Errorf("reading section header: %w", gio.ErrTruncatedStream)
	}

	// read the header which contains the length of each section
	h := new(header)
	h.fromBytes(data)

	// section lengths come from the stream and are validated before the
	// digest is checked; bound each one so a hostile header can neither
	// overflow the total nor slice out of range
	size := uint64(len(data))
	for _, l := range [...]uint64{h.levelsLen, h.instructionsLen, h.calldataLen, h.hintsLen, h.bodyLen} {
		if l > size {
			return nil, 0, fmt.Errorf("reading sections: %w", gio.ErrTruncatedStream)
		}
	}
	total := headerLen + int(h.levelsLen+h.instructionsLen+h.calldataLen+h.hintsLen+h.bodyLen)
	if len(data) < total+blake2b.Size256 {
		return nil, 0, fmt.Errorf("reading sections: %w", gio.ErrTruncatedStream)
	}

	digest := blake2b.Sum256(data[:total])
	if !bytes.Equal(digest[:], data[total:total+blake2b.Size256]) {
		return nil, 0, fmt.Errorf("digest mismatch: %w", gio.ErrInvalidEncoding)
	}

	// CBOR decoding of the structural metadata
	var body serializedBody
	dm, err := cbor.DecOptions{
		MaxArrayElements: 2147483647,
		MaxMapPairs:      2147483647,
	}.DecMode()
	if err != nil {
		return nil, 0, err
	}
	bodyStart := total - int(h.bodyLen)
	if err := dm.Unmarshal(data[bodyStart:total], &body); err != nil {
		return nil, 0, fmt.Errorf("decoding body: %w (%s)", gio.ErrInvalidEncoding, err)
	}
	if err := body.checkSerializationHeader(); err != nil {
		return nil, 0, err
	}

	b := NewBuilder(WithCapacity(16))
	b.nbWires = body.NbWires
	b.lbWireLevel = make([]Level, body.NbWires)
	for i := range b.lbWireLevel {
		b.lbWireLevel[i] = LevelUnset
	}
	b.MDebug = body.MDebug
	if b.MDebug == nil {
		b.MDebug = map[int][]int{}
	}
	b.SymbolTable = body.SymbolTable

	// read the binary sections in parallel
	var g errgroup.Group
	g.Go(func() error {
		return b.levelsFromBytes(data[headerLen : headerLen+h.levelsLen])
	})
	g.Go(func() error {
		return b.instructionsFromBytes(data[headerLen+h.levelsLen : headerLen+h.levelsLen+h.instructionsLen])
	})
	g.Go(func() error {
		return b.calldataFromBytes(data[headerLen+h.levelsLen+h.instructionsLen : headerLen+h.levelsLen+h.instructionsLen+h.calldataLen])
	})
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	// hints reference wires and the id table, so they are decoded after the
	// wire count and sections are known
	if err := b.hintsFromBytes(data[headerLen+int(h.levelsLen)+int(h.instructionsLen)+int(h.calldataLen):bodyStart], body.Hints); err != nil {
		return nil, 0, err
	}

	if err := b.rebuild(); err != nil {
		return nil, 0, err
	}

	return b, total + blake2b.Size256, nil
}

// WriteTo writes the serialized circuit structure to w.
func (b *Builder) WriteTo(w io.Writer) (int64, error) {
	buf, err := b.ToBytes()
	if err != nil {
		return 0, err
	}
	n, err := w.Write(buf)
	return int64(n), err
}

// ReadFrom reads a serialized circuit structure from r.
func ReadFrom(r io.Reader) (*Builder, int64, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, 0, err
	}
	b, n, err := FromBytes(data)
	return b, int64(n), err
}

const headerLen = 5 * 8

type header struct {
	// length in bytes of each section
	levelsLen       uint64
	instructionsLen uint64
	calldataLen     uint64
	hintsLen        uint64
	bodyLen         uint64
}

func (h *header) toBytes() []byte {
	buf := make([]byte, 0, headerLen+h.levelsLen+h.instructionsLen+h.calldataLen+h.hintsLen+h.bodyLen)

	buf = binary.LittleEndian.AppendUint64(buf, h.levelsLen)
	buf = binary.LittleEndian.AppendUint64(buf, h.instructionsLen)
	buf = binary.LittleEndian.AppendUint64(buf, h.calldataLen)
	buf = binary.LittleEndian.AppendUint64(buf, h.hintsLen)
	buf = binary.LittleEndian.AppendUint64(buf, h.bodyLen)

	return buf
}

func (h *header) fromBytes(buf []byte) {
	h.levelsLen = binary.LittleEndian.Uint64(buf[:8])
	h.instructionsLen = binary.LittleEndian.Uint64(buf[8:16])
	h.calldataLen = binary.LittleEndian.Uint64(buf[16:24])
	h.hintsLen = binary.LittleEndian.Uint64(buf[24:32])
	h.bodyLen = binary.LittleEndian.Uint64(buf[32:40])
}

// serializedBody is the CBOR-encoded structural metadata.
type serializedBody struct {
	Version     string
	ScalarField string
	NbWires     uint32
	Hints       []string
	MDebug      map[int][]int
	SymbolTable debug.SymbolTable
}

// checkSerializationHeader parses the native field and version headers.
func (body *serializedBody) checkSerializationHeader() error {
	binaryVersion := towergadgets.Version
	objectVersion, err := semver.Parse(body.Version)
	if err != nil {
		return fmt.Errorf("when parsing serialized version: %w (%s)", gio.ErrInvalidEncoding, err)
	}

	if binaryVersion.Compare(objectVersion) != 0 {
		log := logger.Logger()
		log.Warn().Str("binary", binaryVersion.String()).Str("object", objectVersion.String()).Msg("version mismatch with serialized circuit. there are no guarantees on compatibility")
	}

	if body.ScalarField != goldilocks.Modulus().Text(16) {
		return fmt.Errorf("unsupported native field %s: %w", body.ScalarField, gio.ErrInvalidEncoding)
	}
	return nil
}

func (b *Builder) bodyToBytes() ([]byte, error) {
	body := serializedBody{
		Version:     towergadgets.Version.String(),
		ScalarField: goldilocks.Modulus().Text(16),
		NbWires:     b.nbWires,
		Hints:       make([]string, 0, len(b.hints)),
		MDebug:      b.MDebug,
		SymbolTable: b.SymbolTable,
	}
	seen := map[string]struct{}{}
	for _, h := range b.hints {
		if _, ok := seen[h.ID()]; ok {
			continue
		}
		seen[h.ID()] = struct{}{}
		body.Hints = append(body.Hints, h.ID())
	}

	enc, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		return nil, err
	}
	buf := new(bytes.Buffer)
	if err := enc.NewEncoder(buf).Encode(&body); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (b *Builder) calldataToBytes() ([]byte, error) {
	// calldata doesn't compress as well as the other sections;
	// we keep it simple with uvarint as it makes deserialization much faster.
	// user is still free to compress the final []byte slice if needed.
	buf := make([]byte, 0, 8+len(b.CallData)*binary.MaxVarintLen32)
	buf = binary.LittleEndian.AppendUint64(buf, uint64(len(b.CallData)))
	for _, v := range b.CallData {
		buf = binary.AppendUvarint(buf, uint64(v))
	}
	return buf, nil
}

func (b *Builder) instructionsToBytes() ([]byte, error) {
	// prepare the []uint32 separated slices for the packed instructions
	sBlueprintID := make([]uint32, len(b.Instructions))
	sWireOffset := make([]uint32, len(b.Instructions))
	sStartCallData := make([]uint64, len(b.Instructions))

	// collect them
	for i, inst := range b.Instructions {
		sBlueprintID[i] = uint32(inst.BlueprintID)
		sWireOffset[i] = inst.WireOffset
		sStartCallData[i] = inst.StartCallData
	}

	// they compress very well due to their nature (sequential integers)
	var buf32 []uint32
	var err error
	var buf bytes.Buffer
	buf.Grow(4 * len(b.Instructions) * 3)

	buf32, err = ioutils.CompressAndWriteUints32(&buf, sBlueprintID, buf32)
	if err != nil {
		return nil, err
	}
	_, err = ioutils.CompressAndWriteUints32(&buf, sWireOffset, buf32)
	if err != nil {
		return nil, err
	}
	err = ioutils.CompressAndWriteUints64(&buf, sStartCallData)
	if err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func (b *Builder) levelsToBytes() ([]byte, error) {
	// they compress very well due to their nature (sequential integers)
	var buf32 []uint32
	var buf bytes.Buffer
	var err error
	buf.Grow(4 * len(b.Instructions))

	binary.Write(&buf, binary.LittleEndian, uint64(len(b.Levels)))
	for _, l := range b.Levels {
		buf32, err = ioutils.CompressAndWriteUints32(&buf, l, buf32)
		if err != nil {
			return nil, err
		}
	}

	return buf.Bytes(), nil
}

func (b *Builder) hintsToBytes() ([]byte, error) {
	idx := map[string]uint32{}
	n := uint32(0)
	for _, h := range b.hints {
		if _, ok := idx[h.ID()]; !ok {
			idx[h.ID()] = n
			n++
		}
	}

	w := gio.NewWriter(64 * len(b.hints))
	w.WriteUint64(uint64(len(b.hints)))
	for _, h := range b.hints {
		w.WriteUint32(idx[h.ID()])
		h.WriteTo(w)
	}
	return w.Bytes(), nil
}

func (b *Builder) hintsFromBytes(in []byte, table []string) error {
	r := gio.NewReader(in)
	n, err := r.ReadUint64()
	if err != nil {
		return fmt.Errorf("decoding hint count: %w", err)
	}
	// each hint record starts with a 4-byte id index
	if n > uint64(r.Remaining())/4 {
		return fmt.Errorf("hint count %d exceeds section size: %w", n, gio.ErrInvalidEncoding)
	}
	b.hints = make([]Hint, 0, n)
	for i := uint64(0); i < n; i++ {
		tableIdx, err := r.ReadUint32()
		if err != nil {
			return fmt.Errorf("decoding hint %d: %w", i, err)
		}
		if int(tableIdx) >= len(table) {
			return fmt.Errorf("decoding hint %d: id index %d out of table: %w", i, tableIdx, gio.ErrInvalidEncoding)
		}
		dec, err := GetHintDecoder(table[tableIdx])
		if err != nil {
			return fmt.Errorf("decoding hint %d: %w", i, err)
		}
		h, err := dec(r, b)
		if err != nil {
			return fmt.Errorf("decoding hint %d (%s): %w", i, table[tableIdx], err)
		}
		b.hints = append(b.hints, h)
	}
	if r.Remaining() != 0 {
		return fmt.Errorf("hint section has %d trailing bytes: %w", r.Remaining(), gio.ErrInvalidEncoding)
	}
	return nil
}

func (b *Builder) levelsFromBytes(in []byte) error {
	if len(in) < 8 {
		return fmt.Errorf("decoding levels: %w", gio.ErrTruncatedStream)
	}
	levelsLen := binary.LittleEndian.Uint64(in[:8])
	// each level carries at least its own 8-byte length prefix
	if levelsLen > uint64(len(in)-8)/8 {
		return fmt.Errorf("decoding levels: count %d exceeds section size: %w", levelsLen, gio.ErrInvalidEncoding)
	}
	r := bytes.NewReader(in[8:])

	b.Levels = make([][]uint32, levelsLen)
	for i := range b.Levels {
		var err error
		_, b.Levels[i], err = ioutils.ReadAndDecompressUints32(r)
		if err != nil {
			return fmt.Errorf("decoding levels: %w (%s)", gio.ErrInvalidEncoding, err)
		}
	}
	return nil
}

func (b *Builder) instructionsFromBytes(in []byte) error {
	var (
		sBlueprintID, sWireOffset []uint32
		sStartCallData            []uint64
		err                       error
	)
	r := bytes.NewReader(in)
	if _, sBlueprintID, err = ioutils.ReadAndDecompressUints32(r); err != nil {
		return fmt.Errorf("decoding instructions: %w (%s)", gio.ErrInvalidEncoding, err)
	}
	if _, sWireOffset, err = ioutils.ReadAndDecompressUints32(r); err != nil {
		return fmt.Errorf("decoding instructions: %w (%s)", gio.ErrInvalidEncoding, err)
	}
	if _, sStartCallData, err = ioutils.ReadAndDecompressUints64(r); err != nil {
		return fmt.Errorf("decoding instructions: %w (%s)", gio.ErrInvalidEncoding, err)
	}
	if len(sWireOffset) != len(sBlueprintID) || len(sStartCallData) != len(sBlueprintID) {
		return fmt.Errorf("decoding instructions: mismatched section lengths: %w", gio.ErrInvalidEncoding)
	}

	// rebuild the instructions
	b.Instructions = make([]PackedInstruction, len(sBlueprintID))
	for i := range b.Instructions {
		b.Instructions[i] = PackedInstruction{
			BlueprintID:   BlueprintID(sBlueprintID[i]),
			WireOffset:    sWireOffset[i],
			StartCallData: sStartCallData[i],
		}
	}
	return nil
}

func (b *Builder) calldataFromBytes(buf []byte) error {
	if len(buf) < 8 {
		return fmt.Errorf("decoding calldata: %w", gio.ErrTruncatedStream)
	}
	calldataLen := binary.LittleEndian.Uint64(buf[:8])
	// every word takes at least one uvarint byte; a larger count cannot be
	// honest, and must not size an allocation
	if calldataLen > uint64(len(buf)-8) {
		return fmt.Errorf("calldata count %d exceeds section size: %w", calldataLen, gio.ErrInvalidEncoding)
	}
	b.CallData = make([]uint32, calldataLen)
	buf = buf[8:]
	for i := uint64(0); i < calldataLen; i++ {
		v, n := binary.Uvarint(buf[:min(len(buf), binary.MaxVarintLen64)])
		if n <= 0 {
			return fmt.Errorf("decoding calldata word %d: %w", i, gio.ErrInvalidEncoding)
		}
		b.CallData[i] = uint32(v)
		buf = buf[n:]
	}
	return nil
}

// rebuild restores the derived construction state (wire levels, interned
// constants) and validates cross-section consistency.
func (b *Builder) rebuild() error {
	covered := 0
	for level, insts := range b.Levels {
		for _, iID := range insts {
			if int(iID) >= len(b.Instructions) {
				return fmt.Errorf("level %d references instruction %d of %d: %w", level, iID, len(b.Instructions), gio.ErrInvalidEncoding)
			}
			covered++
			pi := b.Instructions[iID]
			if int(pi.BlueprintID) >= len(b.Blueprints) {
				return fmt.Errorf("instruction %d references blueprint %d: %w", iID, pi.BlueprintID, gio.ErrInvalidEncoding)
			}
			blueprint := b.Blueprints[pi.BlueprintID]
			end := pi.StartCallData + uint64(blueprint.CalldataSize())
			if end > uint64(len(b.CallData)) {
				return fmt.Errorf("instruction %d calldata out of bounds: %w", iID, gio.ErrInvalidEncoding)
			}
			inst := pi.Unpack(b)

			var outputs []Wire
			if pi.BlueprintID == b.bpHint {
				if int(inst.Calldata[0]) >= len(b.hints) {
					return fmt.Errorf("instruction %d references hint %d of %d: %w", iID, inst.Calldata[0], len(b.hints), gio.ErrInvalidEncoding)
				}
				outputs = b.hints[inst.Calldata[0]].Outputs()
			} else {
				nbOut := blueprint.NbOutputs(inst)
				outputs = make([]Wire, nbOut)
				for i := range outputs {
					outputs[i] = Wire(pi.WireOffset + uint32(i))
				}
			}
			for _, out := range outputs {
				if uint32(out) >= b.nbWires {
					return fmt.Errorf("instruction %d writes wire %d of %d: %w", iID, out, b.nbWires, gio.ErrInvalidEncoding)
				}
				if b.lbWireLevel[out] != LevelUnset {
					return fmt.Errorf("wire %d written twice: %w", out, gio.ErrInvalidEncoding)
				}
				b.lbWireLevel[out] = Level(level)
			}

			if pi.BlueprintID == b.bpConstant {
				v := uint64(inst.Calldata[0]) | uint64(inst.Calldata[1])<<32
				b.constants[v] = Wire(pi.WireOffset)
			}
		}
	}
	if covered != len(b.Instructions) {
		return fmt.Errorf("levels cover %d of %d instructions: %w", covered, len(b.Instructions), gio.ErrInvalidEncoding)
	}
	return nil
}
