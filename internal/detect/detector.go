// Package detect classifies the delta between two consecutive element
// snapshots of the same object as noise or a maneuver candidate. It is a
// pure function of its inputs: both snapshots are passed in by value and
// nothing here touches storage or ambient state.
package detect

import "math"

// Thresholds are the per-axis detection thresholds. Altitude and plane
// changes are physically distinct maneuver types, so a candidate is
// raised when either threshold trips on its own (OR, not AND).
type Thresholds struct {
	SemiMajorAxisKm float64
	InclinationDeg  float64
}

// DefaultThresholds returns the reference detection thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		SemiMajorAxisKm: 0.01,
		InclinationDeg:  0.005,
	}
}

// Elements is the minimal orbital state the detector compares. A
// non-positive semi-major axis marks the elements as malformed.
type Elements struct {
	SemiMajorAxis float64
	Eccentricity  float64
	Inclination   float64
}

// Classification of one snapshot pair.
type Classification int

const (
	// NoPriorData: first observation of the object, or malformed
	// elements on either side; there is nothing sound to compare.
	NoPriorData Classification = iota
	// Stable: all deltas below threshold.
	Stable
	// Maneuver: at least one delta exceeded its threshold.
	Maneuver
)

func (c Classification) String() string {
	switch c {
	case NoPriorData:
		return "no_prior_data"
	case Stable:
		return "stable"
	case Maneuver:
		return "maneuver"
	default:
		return "unknown"
	}
}

// Candidate carries the element deltas and confidence of a detected
// maneuver.
type Candidate struct {
	DeltaA     float64 // |Δ semi-major axis| in km
	DeltaE     float64 // |Δ eccentricity|
	DeltaI     float64 // |Δ inclination| in degrees, shorter arc
	Confidence float64 // in [0,1]
	Class      string  // "altitude", "plane" or "combined"
}

// Outcome is the result of classifying one snapshot pair. Candidate is
// non-nil only when Classification is Maneuver.
type Outcome struct {
	Classification Classification
	Candidate      *Candidate
}

// Classify compares a possibly-absent previous element set against the
// current one. Only the two snapshots matter; elapsed time between them
// does not change the comparison.
func Classify(prev *Elements, curr Elements, th Thresholds) Outcome {
	if prev == nil {
		return Outcome{Classification: NoPriorData}
	}
	// Malformed elements on either side must not raise a spurious
	// candidate.
	if prev.SemiMajorAxis <= 0 || curr.SemiMajorAxis <= 0 {
		return Outcome{Classification: NoPriorData}
	}

	deltaA := math.Abs(curr.SemiMajorAxis - prev.SemiMajorAxis)
	deltaE := math.Abs(curr.Eccentricity - prev.Eccentricity)
	deltaI := shortestArcDeg(prev.Inclination, curr.Inclination)

	overA := deltaA > th.SemiMajorAxisKm
	overI := deltaI > th.InclinationDeg
	if !overA && !overI {
		return Outcome{Classification: Stable}
	}

	cand := &Candidate{
		DeltaA:     deltaA,
		DeltaE:     deltaE,
		DeltaI:     deltaI,
		Confidence: confidence(deltaA/th.SemiMajorAxisKm, deltaI/th.InclinationDeg),
	}
	switch {
	case overA && overI:
		cand.Class = "combined"
	case overA:
		cand.Class = "altitude"
	default:
		cand.Class = "plane"
	}
	return Outcome{Classification: Maneuver, Candidate: cand}
}

// confidence maps the dominant delta-to-threshold ratio r onto (0,1) as
// 1 - 1/r. The curve is monotonic in r, approaches 1 as the delta grows
// and crosses 0.5 at twice the threshold.
func confidence(ratioA, ratioI float64) float64 {
	r := math.Max(ratioA, ratioI)
	if r <= 1 {
		return 0
	}
	c := 1 - 1/r
	if c > 1 {
		c = 1
	}
	return c
}

// shortestArcDeg returns the angular separation of two angles in
// degrees taken on the shorter arc, so differently-normalized
// inclinations never produce a near-full-circle delta.
func shortestArcDeg(a, b float64) float64 {
	d := math.Mod(math.Abs(a-b), 360)
	if d > 180 {
		d = 360 - d
	}
	return d
}
