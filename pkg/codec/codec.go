// Package codec defines the narrow interface the audio path uses to talk to
// a frame codec, and the Framer that slices a continuous PCM byte stream
// into codec-sized frames.
//
// The codec itself is opaque: any implementation that encodes one fixed-size
// PCM frame into one packet is substitutable. The Opus implementation lives
// in the opus subpackage.
package codec

import "fmt"

// Encoder encodes exactly one frame of little-endian int16 PCM bytes into
// one codec packet. Implementations may fail per call; a failure affects
// only that frame.
type Encoder interface {
	Encode(pcm []byte) ([]byte, error)
}

// CodecError wraps a failure inside a codec implementation so callers can
// distinguish codec faults from transport or I/O errors.
type CodecError struct {
	Op  string
	Err error
}

func (e *CodecError) Error() string {
	return fmt.Sprintf("codec: %s: %v", e.Op, e.Err)
}

func (e *CodecError) Unwrap() error { return e.Err }
