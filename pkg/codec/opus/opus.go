// Package opus implements codec.Encoder on top of libopus via gopus.
//
// One Encoder wraps one Opus encoder state and therefore belongs to exactly
// one outgoing audio stream; Opus carries prediction state between frames,
// so sharing an encoder across streams corrupts the bitstream.
package opus

import (
	"fmt"

	"layeh.com/gopus"

	"github.com/soundbarrier/auricle/pkg/codec"
)

// maxPacketBytes bounds the size of a single encoded Opus packet. Opus never
// produces packets larger than this at the bitrates used for speech.
const maxPacketBytes = 4000

// Option configures an Encoder.
type Option func(*Encoder)

// WithBitrate sets the target encoder bitrate in bits per second. When not
// set, the libopus default applies.
func WithBitrate(bps int) Option {
	return func(e *Encoder) { e.bitrate = bps }
}

// Encoder encodes fixed-size PCM frames into Opus packets. It implements
// [codec.Encoder].
type Encoder struct {
	enc      *gopus.Encoder
	channels int
	// samplesPerChannel is the Opus frame size in samples per channel,
	// fixed at construction from the sample rate and frame duration.
	samplesPerChannel int
	bitrate           int
}

// NewEncoder creates an Opus encoder for the given stream configuration.
// frameMs must be one of the Opus frame durations (2.5, 5, 10, 20, 40 or
// 60 ms expressed in whole milliseconds for the common cases).
func NewEncoder(sampleRate, channels, frameMs int, opts ...Option) (*Encoder, error) {
	enc, err := gopus.NewEncoder(sampleRate, channels, gopus.Audio)
	if err != nil {
		return nil, fmt.Errorf("opus: create encoder: %w", err)
	}
	e := &Encoder{
		enc:               enc,
		channels:          channels,
		samplesPerChannel: sampleRate * frameMs / 1000,
	}
	for _, o := range opts {
		o(e)
	}
	if e.bitrate > 0 {
		enc.SetBitrate(e.bitrate)
	}
	return e, nil
}

// FrameSizeBytes returns the exact number of little-endian int16 PCM bytes
// the encoder consumes per frame. This is the frame size the codec.Framer
// must be configured with.
func (e *Encoder) FrameSizeBytes() int {
	return e.samplesPerChannel * e.channels * 2
}

// Encode encodes one frame of little-endian int16 PCM bytes into one Opus
// packet. pcm must be exactly FrameSizeBytes long.
func (e *Encoder) Encode(pcm []byte) ([]byte, error) {
	if len(pcm) != e.FrameSizeBytes() {
		return nil, &codec.CodecError{
			Op:  "encode",
			Err: fmt.Errorf("frame is %d bytes, encoder requires %d", len(pcm), e.FrameSizeBytes()),
		}
	}
	samples := bytesToInt16s(pcm)
	packet, err := e.enc.Encode(samples, e.samplesPerChannel, maxPacketBytes)
	if err != nil {
		return nil, &codec.CodecError{Op: "encode", Err: err}
	}
	return packet, nil
}

// bytesToInt16s converts little-endian bytes to int16 PCM samples.
func bytesToInt16s(b []byte) []int16 {
	pcm := make([]int16, len(b)/2)
	for i := range pcm {
		pcm[i] = int16(b[i*2]) | int16(b[i*2+1])<<8
	}
	return pcm
}
