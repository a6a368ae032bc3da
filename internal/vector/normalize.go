package vector

// PadVector returns v right-padded with zeros to target length.
// A vector already at or beyond target is returned unchanged; it is never truncated.
func PadVector(v []float32, target int) []float32 {
	if len(v) >= target {
		return v
	}
	out := make([]float32, target)
	copy(out, v)
	return out
}
