package modem

// gardnerThreshold is the timing error magnitude below which the offset is kept.
const gardnerThreshold = 1e-4

// Gardner recovers one sampling point per symbol from a soft symbol track
// sampled at samplesPerSymbol. Starting at index samplesPerSymbol it records
// a point every symbol period and, only where the track changes sign between
// consecutive points, nudges the sampling offset by one sample against the
// early/late error measured at the mid point. Runs of equal symbols coast.
func Gardner(signal []float64, samplesPerSymbol int) []int {
	if samplesPerSymbol < 2 {
		return nil
	}

	var points []int
	offset := 0
	half := samplesPerSymbol / 2
	for n := 1; n*samplesPerSymbol+offset < len(signal); n++ {
		next := n*samplesPerSymbol + offset
		previous := next - samplesPerSymbol
		mid := next - half
		points = append(points, next)

		if signal[next]*signal[previous] >= 0 {
			continue
		}
		e := (signal[next] - signal[previous]) * signal[mid]
		switch {
		case e > gardnerThreshold:
			offset--
		case e < -gardnerThreshold:
			offset++
		}
	}

	return points
}
