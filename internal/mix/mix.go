// Package mix implements channel mixdown and wet/dry blending.
//
// Enhancement runs on a mono signal. Multi-channel input is collapsed to the
// arithmetic mean of its channels, processed once, and blended back into every
// channel against that channel's delay-compensated original. All functions are
// allocation-free and safe on the audio thread.
package mix

// MonoInterleaved writes the per-frame channel mean of interleaved src into
// dst. src holds frames*channels samples as c0,c1,...,cN per frame; dst must
// hold at least frames samples.
func MonoInterleaved(dst, src []float32, channels, frames int) {
	if channels == 1 {
		copy(dst[:frames], src[:frames])
		return
	}
	scale := 1 / float32(channels)
	for f := 0; f < frames; f++ {
		var sum float32
		base := f * channels
		for c := 0; c < channels; c++ {
			sum += src[base+c]
		}
		dst[f] = sum * scale
	}
}

// MonoSequential writes the per-frame channel mean of sequential src into dst.
// src holds channels contiguous planes of frames samples each.
func MonoSequential(dst, src []float32, channels, frames int) {
	if channels == 1 {
		copy(dst[:frames], src[:frames])
		return
	}
	copy(dst[:frames], src[:frames])
	for c := 1; c < channels; c++ {
		plane := src[c*frames : (c+1)*frames]
		for f := 0; f < frames; f++ {
			dst[f] += plane[f]
		}
	}
	scale := 1 / float32(channels)
	for f := 0; f < frames; f++ {
		dst[f] *= scale
	}
}

// MonoPlanar writes the per-frame channel mean of planar src into dst. Every
// channel slice must hold at least frames samples.
func MonoPlanar(dst []float32, src [][]float32, frames int) {
	if len(src) == 1 {
		copy(dst[:frames], src[0][:frames])
		return
	}
	copy(dst[:frames], src[0][:frames])
	for c := 1; c < len(src); c++ {
		plane := src[c]
		for f := 0; f < frames; f++ {
			dst[f] += plane[f]
		}
	}
	scale := 1 / float32(len(src))
	for f := 0; f < frames; f++ {
		dst[f] *= scale
	}
}

// Blend combines one channel's delay-compensated original sample with the
// enhanced mono sample. level 0 returns dry unchanged; level 1 returns the
// enhanced signal scaled by gain.
func Blend(dry, enhanced, level, gain float32) float32 {
	if level == 0 {
		return dry
	}
	return dry*(1-level) + enhanced*gain*level
}
