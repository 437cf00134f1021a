// Package limits provides centralized audio configuration constants and validation
// functions for the SDK. This package ensures consistent bounds enforcement across
// all components of the processing pipeline.
//
// # Configuration Bounds
//
// The package defines the envelope of audio configurations the SDK accepts:
//
//   - Sample rate: 8 kHz to 192 kHz. Models operate on a fixed time window, so the
//     window size in frames scales with the configured sample rate; rates below
//     8 kHz would leave the enhancement band below the speech fundamentals.
//
//   - Channels: 1 to 512 on the interleaved and sequential paths (the channel count
//     travels as a uint16 across the API). The planar path is limited to
//     MaxPlanarChannels (16) because it gathers one buffer per channel into
//     fixed-size scratch storage on the real-time path.
//
//   - Frames per buffer: 1 to 2^20. The upper bound keeps ring buffer allocations
//     proportionate; a larger host buffer would add almost half a minute of
//     buffering latency at typical rates.
//
// # Validation Functions
//
// Each validation function returns a wrapped sentinel error with the offending
// value and the accepted range:
//
//	if err := limits.ValidateSampleRate(cfg.SampleRate); err != nil {
//	    // errors.Is(err, limits.ErrSampleRateOutOfRange) == true
//	}
//
// The sentinels are ErrSampleRateOutOfRange, ErrChannelCountOutOfRange and
// ErrFrameCountOutOfRange. Callers on the public API surface translate them to
// the SDK error taxonomy.
package limits
