package audio

// BoostInPlace scales every sample in buf by factor, clipping the result to
// the int16 range and truncating toward zero. Negative factors are treated
// as 0 (silence), never as polarity inversion. Stateless; safe to call with
// any chunking.
func BoostInPlace(buf []int16, factor float64) {
	if factor < 0 {
		factor = 0
	}
	for i, s := range buf {
		buf[i] = clipToInt16(float64(s) * factor)
	}
}
