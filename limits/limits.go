package limits

import (
	"errors"
	"fmt"
)

const (
	// MinSampleRate is the lowest sample rate the processing pipeline accepts (8 kHz).
	// Below this the enhancement band would not cover the speech fundamentals.
	MinSampleRate = 8000

	// MaxSampleRate is the highest sample rate the processing pipeline accepts (192 kHz).
	MaxSampleRate = 192000

	// MinChannels is the minimum number of audio channels in a stream.
	MinChannels = 1

	// MaxChannels is the maximum number of audio channels in a stream.
	// The channel count is carried as a uint16 on the API surface.
	MaxChannels = 512

	// MaxPlanarChannels is the maximum number of channels accepted by the
	// planar process call, which collects one buffer pointer per channel
	// into fixed-size scratch storage.
	MaxPlanarChannels = 16

	// MinFrames is the minimum host buffer size in frames per channel.
	MinFrames = 1

	// MaxFrames is the maximum host buffer size in frames per channel.
	// This prevents pathological ring buffer allocations (2^20 frames is
	// almost 22 seconds at 48 kHz).
	MaxFrames = 1 << 20
)

var (
	// ErrSampleRateOutOfRange indicates a sample rate outside [MinSampleRate, MaxSampleRate]
	ErrSampleRateOutOfRange = errors.New("sample rate out of range")

	// ErrChannelCountOutOfRange indicates a channel count outside [MinChannels, MaxChannels]
	ErrChannelCountOutOfRange = errors.New("channel count out of range")

	// ErrFrameCountOutOfRange indicates a frame count outside [MinFrames, MaxFrames]
	ErrFrameCountOutOfRange = errors.New("frame count out of range")
)

// ValidateSampleRate validates a sample rate against the supported range.
// Returns an error with context including the actual value and the bounds.
func ValidateSampleRate(sampleRate uint32) error {
	if sampleRate < MinSampleRate || sampleRate > MaxSampleRate {
		return fmt.Errorf("%w: %d Hz not in [%d, %d]", ErrSampleRateOutOfRange, sampleRate, MinSampleRate, MaxSampleRate)
	}
	return nil
}

// ValidateNumChannels validates a channel count against the supported range.
// Returns an error with context including the actual value and the bounds.
func ValidateNumChannels(numChannels uint16) error {
	if numChannels < MinChannels || numChannels > MaxChannels {
		return fmt.Errorf("%w: %d not in [%d, %d]", ErrChannelCountOutOfRange, numChannels, MinChannels, MaxChannels)
	}
	return nil
}

// ValidateNumFrames validates a host buffer size against the supported range.
// Returns an error with context including the actual value and the bounds.
func ValidateNumFrames(numFrames int) error {
	if numFrames < MinFrames || numFrames > MaxFrames {
		return fmt.Errorf("%w: %d not in [%d, %d]", ErrFrameCountOutOfRange, numFrames, MinFrames, MaxFrames)
	}
	return nil
}
