// Package modelfile reads and writes the binary model container.
//
// A container is a little header in front of the opaque weight payload:
//
//	magic "AICM" | version u32 | engine u8 | flags u8 | id len u8 | id bytes
//	native rate u32 | native window u32 | intrinsic delay u32
//	open threshold f32 | floor gain f32 | attack ms f32 | release ms f32
//	payload len u32 | payload bytes | crc32 u32
//
// All integers are big-endian. The trailing CRC covers every byte before it.
// Parse references the payload in place rather than copying it, which is why
// buffers handed to the SDK must be 64-byte aligned.
package modelfile

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"math"
	"os"
	"unsafe"
)

// SupportedVersion is the container version this SDK reads and writes.
const SupportedVersion uint32 = 1

const (
	magic      = "AICM"
	headerMin  = 4 + 4 + 1 + 1 + 1
	fixedTail  = 4 + 4 + 4 + 4 + 4 + 4 + 4 + 4 // rate..payload len
	trailerLen = 4

	// FlagLevelFixed marks models whose enhancement level cannot be changed.
	FlagLevelFixed = 1 << 0
)

// Container format errors.
var (
	ErrFormat    = errors.New("model data is not a valid model container")
	ErrVersion   = errors.New("model container version not supported")
	ErrChecksum  = errors.New("model container checksum mismatch")
	ErrUnaligned = errors.New("model data is not 64-byte aligned")
)

// Descriptor is the parsed header of a model container. Payload references
// the buffer the container was parsed from.
type Descriptor struct {
	ID         string
	Version    uint32
	Engine     uint8
	LevelFixed bool

	NativeSampleRate uint32
	NativeWindow     uint32
	IntrinsicDelay   uint32

	OpenThreshold float32
	FloorGain     float32
	AttackMs      float32
	ReleaseMs     float32

	Payload []byte
}

// roundRatio scales n by rate/base with rounding to nearest.
func roundRatio(n, rate, base uint32) int {
	return int((uint64(n)*uint64(rate) + uint64(base)/2) / uint64(base))
}

// WindowAt returns the native window length expressed in frames at the given
// sample rate, never less than one frame.
func (d *Descriptor) WindowAt(rate uint32) int {
	w := roundRatio(d.NativeWindow, rate, d.NativeSampleRate)
	if w < 1 {
		w = 1
	}
	return w
}

// IntrinsicDelayAt returns the model's intrinsic latency in frames at the
// given sample rate.
func (d *Descriptor) IntrinsicDelayAt(rate uint32) int {
	return roundRatio(d.IntrinsicDelay, rate, d.NativeSampleRate)
}

// WindowsIn converts a duration in seconds to a count of native windows,
// rounded to nearest. The window duration in seconds is rate independent.
func (d *Descriptor) WindowsIn(seconds float64) int {
	windows := seconds * float64(d.NativeSampleRate) / float64(d.NativeWindow)
	return int(math.Round(windows))
}

// WindowSeconds returns the duration of one native window.
func (d *Descriptor) WindowSeconds() float64 {
	return float64(d.NativeWindow) / float64(d.NativeSampleRate)
}

// Aligned reports whether the buffer start satisfies the weight alignment
// the engines require.
func Aligned(buf []byte) bool {
	if len(buf) == 0 {
		return false
	}
	return uintptr(unsafe.Pointer(&buf[0]))%64 == 0
}

// AlignedCopy returns a copy of data whose first byte is 64-byte aligned.
func AlignedCopy(data []byte) []byte {
	raw := make([]byte, len(data)+63)
	off := 0
	if rem := uintptr(unsafe.Pointer(&raw[0])) % 64; rem != 0 {
		off = int(64 - rem)
	}
	buf := raw[off : off+len(data)]
	copy(buf, data)
	return buf
}

// Parse validates buf as a model container and returns its descriptor. The
// buffer must be 64-byte aligned; the descriptor's payload points into it.
func Parse(buf []byte) (*Descriptor, error) {
	if !Aligned(buf) {
		return nil, fmt.Errorf("%w: address %p", ErrUnaligned, buf)
	}
	if len(buf) < headerMin+fixedTail+trailerLen {
		return nil, fmt.Errorf("%w: %d bytes is shorter than any container", ErrFormat, len(buf))
	}
	if string(buf[0:4]) != magic {
		return nil, fmt.Errorf("%w: bad magic", ErrFormat)
	}

	version := binary.BigEndian.Uint32(buf[4:8])
	if version != SupportedVersion {
		return nil, fmt.Errorf("%w: container version %d, supported %d", ErrVersion, version, SupportedVersion)
	}

	engine := buf[8]
	flags := buf[9]
	idLen := int(buf[10])
	pos := headerMin

	if idLen == 0 || len(buf) < pos+idLen+fixedTail+trailerLen {
		return nil, fmt.Errorf("%w: truncated header", ErrFormat)
	}
	id := string(buf[pos : pos+idLen])
	pos += idLen

	u32 := func() uint32 {
		v := binary.BigEndian.Uint32(buf[pos : pos+4])
		pos += 4
		return v
	}
	f32 := func() float32 {
		return math.Float32frombits(u32())
	}

	d := &Descriptor{
		ID:               id,
		Version:          version,
		Engine:           engine,
		LevelFixed:       flags&FlagLevelFixed != 0,
		NativeSampleRate: u32(),
		NativeWindow:     u32(),
		IntrinsicDelay:   u32(),
		OpenThreshold:    f32(),
		FloorGain:        f32(),
		AttackMs:         f32(),
		ReleaseMs:        f32(),
	}

	payloadLen := int(u32())
	if payloadLen < 0 || len(buf) < pos+payloadLen+trailerLen {
		return nil, fmt.Errorf("%w: truncated payload", ErrFormat)
	}
	d.Payload = buf[pos : pos+payloadLen]
	pos += payloadLen

	sum := binary.BigEndian.Uint32(buf[pos : pos+4])
	if crc32.ChecksumIEEE(buf[:pos]) != sum {
		return nil, fmt.Errorf("%w", ErrChecksum)
	}
	if pos+trailerLen != len(buf) {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrFormat, len(buf)-pos-trailerLen)
	}

	if d.NativeSampleRate == 0 || d.NativeWindow == 0 {
		return nil, fmt.Errorf("%w: zero native rate or window", ErrFormat)
	}
	if d.Engine == 0 {
		return nil, fmt.Errorf("%w: missing engine kind", ErrFormat)
	}
	return d, nil
}

// Marshal encodes a descriptor and its payload into container bytes.
func Marshal(d *Descriptor) ([]byte, error) {
	if len(d.ID) == 0 || len(d.ID) > 255 {
		return nil, fmt.Errorf("%w: id length %d", ErrFormat, len(d.ID))
	}
	if d.NativeSampleRate == 0 || d.NativeWindow == 0 {
		return nil, fmt.Errorf("%w: zero native rate or window", ErrFormat)
	}

	size := headerMin + len(d.ID) + fixedTail + len(d.Payload) + trailerLen
	buf := make([]byte, 0, size)
	buf = append(buf, magic...)
	buf = binary.BigEndian.AppendUint32(buf, SupportedVersion)
	buf = append(buf, d.Engine)
	var flags uint8
	if d.LevelFixed {
		flags |= FlagLevelFixed
	}
	buf = append(buf, flags, uint8(len(d.ID)))
	buf = append(buf, d.ID...)
	buf = binary.BigEndian.AppendUint32(buf, d.NativeSampleRate)
	buf = binary.BigEndian.AppendUint32(buf, d.NativeWindow)
	buf = binary.BigEndian.AppendUint32(buf, d.IntrinsicDelay)
	buf = binary.BigEndian.AppendUint32(buf, math.Float32bits(d.OpenThreshold))
	buf = binary.BigEndian.AppendUint32(buf, math.Float32bits(d.FloorGain))
	buf = binary.BigEndian.AppendUint32(buf, math.Float32bits(d.AttackMs))
	buf = binary.BigEndian.AppendUint32(buf, math.Float32bits(d.ReleaseMs))
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(d.Payload)))
	buf = append(buf, d.Payload...)
	buf = binary.BigEndian.AppendUint32(buf, crc32.ChecksumIEEE(buf))
	return buf, nil
}

// Load reads a container file into an aligned buffer and parses it.
func Load(path string) (*Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(AlignedCopy(data))
}

// WriteFile marshals d and writes it to path.
func WriteFile(path string, d *Descriptor) error {
	data, err := Marshal(d)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
