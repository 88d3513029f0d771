// Package audio provides the PCM signal conditioning used on both sides of
// the duplex path: a streaming microphone filter for inbound samples and a
// gain/clip shaper for outbound samples, plus little-endian int16 conversion
// helpers shared by the codec and session layers.
//
// All functions operate on signed 16-bit PCM. The MicFilter is stateful and
// must be owned by exactly one audio session; create one per session and
// discard it when the session ends.
package audio

import "math"

// Fixed filter cutoffs for microphone conditioning. Speech energy sits well
// inside this band; everything below 300 Hz is dominated by handling noise
// and mains hum, everything above 3.5 kHz contributes little to recognition.
const (
	highpassCutoffHz = 300.0
	lowpassCutoffHz  = 3500.0

	// micGain compensates for attenuation through the two-stage cascade at
	// typical speech levels. Deliberate design constant, not a tunable.
	micGain = 8.0
)

// MicFilter is a two-stage one-pole IIR cascade (high-pass then low-pass)
// with a fixed output gain, applied in place to microphone PCM. State
// persists across calls so arbitrary chunking of the input stream produces
// identical output; samples must therefore arrive in order.
//
// Not safe for concurrent use. One instance per microphone session.
type MicFilter struct {
	highpassAlpha float64
	lowpassAlpha  float64

	prevInputHP  int16
	prevOutputHP float64
	prevOutputLP float64
}

// NewMicFilter creates a filter for the given sample rate. The filter
// coefficients are derived once here and never change afterwards.
func NewMicFilter(sampleRate int) *MicFilter {
	fs := float64(sampleRate)
	thp := math.Tan(math.Pi * highpassCutoffHz / fs)
	tlp := math.Tan(math.Pi * lowpassCutoffHz / fs)
	return &MicFilter{
		highpassAlpha: 1 / (1 + thp),
		lowpassAlpha:  tlp / (1 + tlp),
	}
}

// ProcessInPlace runs the cascade over buf, overwriting each sample with the
// filtered, amplified and clipped result. An all-zero buffer is a fixed
// point: it leaves both the buffer and the filter state untouched.
func (f *MicFilter) ProcessInPlace(buf []int16) {
	for i, x := range buf {
		// Stage 1: one-pole high-pass, difference form.
		yHP := f.highpassAlpha * (f.prevOutputHP + float64(x) - float64(f.prevInputHP))
		f.prevInputHP = x
		f.prevOutputHP = yHP

		// Stage 2: one-pole low-pass.
		yLP := f.lowpassAlpha*yHP + (1-f.lowpassAlpha)*f.prevOutputLP
		f.prevOutputLP = yLP

		buf[i] = clipToInt16(yLP * micGain)
	}
}

// clipToInt16 hard-clips v to the int16 range and truncates toward zero.
func clipToInt16(v float64) int16 {
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(v)
}
