package codec

import "log/slog"

// Framer accumulates an arbitrarily chunked stream of outgoing PCM bytes and
// emits one encoded packet per complete frame. Bytes that do not yet fill a
// frame are carried as leftover into the next Append, so the frame sequence
// is insensitive to how callers chunk their writes.
//
// A Framer is owned by exactly one logical audio session. Sharing one across
// concurrent sessions corrupts frame boundaries and encoder state; create
// one per session and call Reset when the session ends.
type Framer struct {
	enc       Encoder
	frameSize int
	leftover  []byte
}

// NewFramer creates a Framer that cuts frames of frameSize bytes and encodes
// each with enc. frameSize is fixed by the codec's input granularity and the
// stream's sample-rate/channel configuration; it never changes mid-stream.
func NewFramer(enc Encoder, frameSize int) *Framer {
	return &Framer{enc: enc, frameSize: frameSize}
}

// FrameSize returns the fixed PCM frame size in bytes.
func (f *Framer) FrameSize() int { return f.frameSize }

// Pending returns the number of buffered bytes awaiting a complete frame.
// Always less than FrameSize.
func (f *Framer) Pending() int { return len(f.leftover) }

// Append feeds raw PCM bytes into the framer and returns the encoded packets
// produced, in input order. A frame whose encode fails is logged and dropped;
// subsequent frames in the same call are still processed, so one bad frame
// never aborts the stream. The returned slice is empty when not enough bytes
// have accumulated yet.
func (f *Framer) Append(raw []byte) [][]byte {
	combined := f.leftover
	combined = append(combined, raw...)

	var frames [][]byte
	for len(combined) >= f.frameSize {
		packet, err := f.enc.Encode(combined[:f.frameSize])
		if err != nil {
			slog.Error("codec: frame encode failed, dropping frame",
				"frame_bytes", f.frameSize, "err", err)
		} else {
			frames = append(frames, packet)
		}
		combined = combined[f.frameSize:]
	}

	// Copy the tail out of combined so the next Append does not grow an
	// alias of the caller's slice.
	f.leftover = append(f.leftover[:0:0], combined...)
	return frames
}

// Reset discards any buffered leftover bytes. Call it whenever a logical
// audio session ends so one session's tail cannot bleed into the next.
func (f *Framer) Reset() {
	f.leftover = nil
}
