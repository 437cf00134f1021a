// Package wavio reads and writes RIFF WAVE files carrying 16-bit PCM or
// 32-bit IEEE float samples. It covers what the command line tools need and
// nothing more: one fmt chunk, one data chunk, unknown chunks skipped.
package wavio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
)

// Sample encodings supported in fmt chunks.
const (
	FormatPCM16   uint16 = 1
	FormatFloat32 uint16 = 3
)

var (
	ErrNotWave     = errors.New("not a RIFF WAVE file")
	ErrUnsupported = errors.New("unsupported WAVE encoding")
)

// File is decoded audio: interleaved float32 samples in -1..1.
type File struct {
	SampleRate uint32
	Channels   uint16
	Samples    []float32
}

// Frames returns the per-channel sample count.
func (f *File) Frames() int {
	if f.Channels == 0 {
		return 0
	}
	return len(f.Samples) / int(f.Channels)
}

// Decode reads a WAVE stream.
func Decode(r io.Reader) (*File, error) {
	var riff [12]byte
	if _, err := io.ReadFull(r, riff[:]); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotWave, err)
	}
	if string(riff[0:4]) != "RIFF" || string(riff[8:12]) != "WAVE" {
		return nil, ErrNotWave
	}

	var (
		format   uint16
		channels uint16
		rate     uint32
		bits     uint16
		haveFmt  bool
	)

	for {
		var header [8]byte
		if _, err := io.ReadFull(r, header[:]); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("%w: no data chunk", ErrNotWave)
			}
			return nil, fmt.Errorf("%w: %s", ErrNotWave, err)
		}
		id := string(header[0:4])
		size := binary.LittleEndian.Uint32(header[4:8])

		switch id {
		case "fmt ":
			if size < 16 {
				return nil, fmt.Errorf("%w: fmt chunk too small", ErrNotWave)
			}
			body := make([]byte, size)
			if _, err := io.ReadFull(r, body); err != nil {
				return nil, fmt.Errorf("%w: %s", ErrNotWave, err)
			}
			format = binary.LittleEndian.Uint16(body[0:2])
			channels = binary.LittleEndian.Uint16(body[2:4])
			rate = binary.LittleEndian.Uint32(body[4:8])
			bits = binary.LittleEndian.Uint16(body[14:16])
			haveFmt = true

		case "data":
			if !haveFmt {
				return nil, fmt.Errorf("%w: data chunk before fmt", ErrNotWave)
			}
			body := make([]byte, size)
			if _, err := io.ReadFull(r, body); err != nil {
				return nil, fmt.Errorf("%w: %s", ErrNotWave, err)
			}
			samples, err := decodeSamples(body, format, bits)
			if err != nil {
				return nil, err
			}
			if channels == 0 {
				return nil, fmt.Errorf("%w: zero channels", ErrNotWave)
			}
			return &File{SampleRate: rate, Channels: channels, Samples: samples}, nil

		default:
			skip := int64(size)
			if size%2 == 1 {
				skip++ // chunks are word aligned
			}
			if _, err := io.CopyN(io.Discard, r, skip); err != nil {
				return nil, fmt.Errorf("%w: %s", ErrNotWave, err)
			}
		}
	}
}

func decodeSamples(body []byte, format, bits uint16) ([]float32, error) {
	switch {
	case format == FormatPCM16 && bits == 16:
		n := len(body) / 2
		out := make([]float32, n)
		for i := 0; i < n; i++ {
			s := int16(binary.LittleEndian.Uint16(body[i*2:]))
			out[i] = float32(s) / 32768
		}
		return out, nil

	case format == FormatFloat32 && bits == 32:
		n := len(body) / 4
		out := make([]float32, n)
		for i := 0; i < n; i++ {
			out[i] = math.Float32frombits(binary.LittleEndian.Uint32(body[i*4:]))
		}
		return out, nil

	default:
		return nil, fmt.Errorf("%w: format %d with %d bits", ErrUnsupported, format, bits)
	}
}

// Read decodes the WAVE file at path.
func Read(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f)
}

// Encode writes the file as a WAVE stream in the given sample format.
func (f *File) Encode(w io.Writer, format uint16) error {
	var bytesPer int
	switch format {
	case FormatPCM16:
		bytesPer = 2
	case FormatFloat32:
		bytesPer = 4
	default:
		return fmt.Errorf("%w: format %d", ErrUnsupported, format)
	}

	dataSize := len(f.Samples) * bytesPer
	blockAlign := int(f.Channels) * bytesPer

	header := make([]byte, 0, 44)
	header = append(header, "RIFF"...)
	header = binary.LittleEndian.AppendUint32(header, uint32(36+dataSize))
	header = append(header, "WAVE"...)
	header = append(header, "fmt "...)
	header = binary.LittleEndian.AppendUint32(header, 16)
	header = binary.LittleEndian.AppendUint16(header, format)
	header = binary.LittleEndian.AppendUint16(header, f.Channels)
	header = binary.LittleEndian.AppendUint32(header, f.SampleRate)
	header = binary.LittleEndian.AppendUint32(header, f.SampleRate*uint32(blockAlign))
	header = binary.LittleEndian.AppendUint16(header, uint16(blockAlign))
	header = binary.LittleEndian.AppendUint16(header, uint16(bytesPer*8))
	header = append(header, "data"...)
	header = binary.LittleEndian.AppendUint32(header, uint32(dataSize))
	if _, err := w.Write(header); err != nil {
		return err
	}

	body := make([]byte, dataSize)
	switch format {
	case FormatPCM16:
		for i, s := range f.Samples {
			v := float64(s)
			if v > 1 {
				v = 1
			} else if v < -1 {
				v = -1
			}
			n := int(math.Round(v * 32768))
			if n > 32767 {
				n = 32767
			}
			binary.LittleEndian.PutUint16(body[i*2:], uint16(int16(n)))
		}
	case FormatFloat32:
		for i, s := range f.Samples {
			binary.LittleEndian.PutUint32(body[i*4:], math.Float32bits(s))
		}
	}
	_, err := w.Write(body)
	return err
}

// Write encodes the file to path.
func (f *File) Write(path string, format uint16) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := f.Encode(out, format); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
