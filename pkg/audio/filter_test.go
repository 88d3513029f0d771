package audio_test

import (
	"testing"

	"github.com/soundbarrier/auricle/pkg/audio"
)

func TestMicFilter_SilenceIsFixedPoint(t *testing.T) {
	f := audio.NewMicFilter(16000)
	buf := make([]int16, 320)
	f.ProcessInPlace(buf)
	for i, s := range buf {
		if s != 0 {
			t.Fatalf("sample %d: got %d, want 0", i, s)
		}
	}

	// The state must still be at rest: a fresh filter and one that has only
	// seen silence must respond identically to the same impulse.
	impulse := func(mf *audio.MicFilter) []int16 {
		b := []int16{1000, 0, 0, 0}
		mf.ProcessInPlace(b)
		return b
	}
	fresh := impulse(audio.NewMicFilter(16000))
	after := impulse(f)
	for i := range fresh {
		if fresh[i] != after[i] {
			t.Errorf("sample %d: got %d after silence, want %d (fresh)", i, after[i], fresh[i])
		}
	}
}

func TestMicFilter_ChunkingInsensitive(t *testing.T) {
	input := make([]int16, 480)
	for i := range input {
		// Deterministic non-trivial waveform.
		input[i] = int16((i*37)%4000 - 2000)
	}

	whole := make([]int16, len(input))
	copy(whole, input)
	f1 := audio.NewMicFilter(16000)
	f1.ProcessInPlace(whole)

	// Process the same stream split at arbitrary boundaries.
	f3 := audio.NewMicFilter(16000)
	split := make([]int16, len(input))
	copy(split, input)
	f3.ProcessInPlace(split[:123])
	f3.ProcessInPlace(split[123:311])
	f3.ProcessInPlace(split[311:])

	for i := range whole {
		if whole[i] != split[i] {
			t.Fatalf("sample %d: single-call %d != chunked %d", i, whole[i], split[i])
		}
	}
}

func TestMicFilter_OutputStaysInRange(t *testing.T) {
	f := audio.NewMicFilter(16000)
	buf := make([]int16, 256)
	for i := range buf {
		// Alternating full-scale input drives the cascade hard.
		if i%2 == 0 {
			buf[i] = 32767
		} else {
			buf[i] = -32768
		}
	}
	f.ProcessInPlace(buf)
	for i, s := range buf {
		if s > 32767 || s < -32768 {
			t.Fatalf("sample %d out of range: %d", i, s)
		}
	}
}

func TestBoostInPlace(t *testing.T) {
	tests := []struct {
		name   string
		in     []int16
		factor float64
		want   []int16
	}{
		{"doubling clips", []int16{20000, -20000, 100}, 2.0, []int16{32767, -32768, 200}},
		{"negative factor is silence", []int16{20000, -5, 3}, -1, []int16{0, 0, 0}},
		{"zero factor is silence", []int16{1, 2, 3}, 0, []int16{0, 0, 0}},
		{"unity is identity", []int16{-7, 0, 7}, 1.0, []int16{-7, 0, 7}},
		{"fractional truncates toward zero", []int16{3, -3}, 0.5, []int16{1, -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := make([]int16, len(tt.in))
			copy(buf, tt.in)
			audio.BoostInPlace(buf, tt.factor)
			for i := range tt.want {
				if buf[i] != tt.want[i] {
					t.Errorf("sample %d: got %d, want %d", i, buf[i], tt.want[i])
				}
			}
		})
	}
}

func TestConvertRoundTrip(t *testing.T) {
	samples := []int16{0, 1, -1, 32767, -32768, 256, -257}
	got := audio.BytesToInt16s(audio.Int16sToBytes(samples))
	if len(got) != len(samples) {
		t.Fatalf("length mismatch: got %d, want %d", len(got), len(samples))
	}
	for i := range samples {
		if got[i] != samples[i] {
			t.Errorf("sample %d: got %d, want %d", i, got[i], samples[i])
		}
	}
}

func TestBytesToInt16s_OddTrailingByte(t *testing.T) {
	got := audio.BytesToInt16s([]byte{0x01, 0x02, 0xff})
	if len(got) != 1 {
		t.Fatalf("got %d samples, want 1", len(got))
	}
	if got[0] != 0x0201 {
		t.Errorf("got %d, want %d", got[0], 0x0201)
	}
}
