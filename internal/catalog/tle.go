package catalog

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Earth constants used for element derivation and orbit classification.
const (
	earthRadiusKm = 6378.137
	earthMuKm3S2  = 398600.4418
	geoAxisKm     = 42164.0
)

// Orbit classification boundaries (altitude above mean equatorial radius).
const (
	leoMaxAltitudeKm = 2000.0
	meoMaxAltitudeKm = 35000.0
)

// DefaultGeoToleranceKm is the half-width of the geosynchronous band
// around the nominal GEO semi-major axis.
const DefaultGeoToleranceKm = 150.0

// ParseEpoch extracts the element epoch from line 1 of a two-line element
// set. The epoch occupies columns 19-32: a two-digit year followed by a
// fractional day of year. Two-digit years below 57 belong to the 2000s,
// 57 and above to the 1900s (the historical TLE convention).
func ParseEpoch(line1 string) (time.Time, error) {
	if len(line1) < 32 {
		return time.Time{}, fmt.Errorf("line 1 too short for epoch field: %d chars", len(line1))
	}

	year, err := strconv.Atoi(strings.TrimSpace(line1[18:20]))
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse epoch year: %v", err)
	}
	dayOfYear, err := strconv.ParseFloat(strings.TrimSpace(line1[20:32]), 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse epoch day: %v", err)
	}
	if dayOfYear < 1 || dayOfYear >= 367 {
		return time.Time{}, fmt.Errorf("epoch day of year out of range: %f", dayOfYear)
	}

	if year < 57 {
		year += 2000
	} else {
		year += 1900
	}

	base := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	offset := time.Duration((dayOfYear - 1) * 24 * float64(time.Hour))
	return base.Add(offset), nil
}

// line2Elements holds the orbital elements recoverable from line 2 of a
// two-line element set.
type line2Elements struct {
	Inclination  float64 // degrees
	RAAN         float64 // degrees
	Eccentricity float64
	ArgPerigee   float64 // degrees
	MeanAnomaly  float64 // degrees
	MeanMotion   float64 // revolutions per day
}

// parseLine2 extracts elements from the fixed columns of line 2.
// Eccentricity is stored with an implied leading decimal point.
func parseLine2(line2 string) (*line2Elements, error) {
	if len(line2) < 63 {
		return nil, fmt.Errorf("line 2 too short for element fields: %d chars", len(line2))
	}

	parseField := func(name, field string) (float64, error) {
		v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
		if err != nil {
			return 0, fmt.Errorf("failed to parse %s: %v", name, err)
		}
		return v, nil
	}

	var el line2Elements
	var err error
	if el.Inclination, err = parseField("inclination", line2[8:16]); err != nil {
		return nil, err
	}
	if el.RAAN, err = parseField("raan", line2[17:25]); err != nil {
		return nil, err
	}
	ecc, err := parseField("eccentricity", line2[26:33])
	if err != nil {
		return nil, err
	}
	el.Eccentricity = ecc / 1e7
	if el.ArgPerigee, err = parseField("argument of perigee", line2[34:42]); err != nil {
		return nil, err
	}
	if el.MeanAnomaly, err = parseField("mean anomaly", line2[43:51]); err != nil {
		return nil, err
	}
	if el.MeanMotion, err = parseField("mean motion", line2[52:63]); err != nil {
		return nil, err
	}
	if el.MeanMotion <= 0 {
		return nil, fmt.Errorf("non-positive mean motion: %f", el.MeanMotion)
	}
	return &el, nil
}

// semiMajorAxisFromMeanMotion converts a mean motion in revolutions per
// day into a semi-major axis in kilometers via a = (mu/n^2)^(1/3).
func semiMajorAxisFromMeanMotion(revPerDay float64) float64 {
	if revPerDay <= 0 {
		return 0
	}
	n := revPerDay * 2 * math.Pi / 86400 // rad/s
	return math.Cbrt(earthMuKm3S2 / (n * n))
}

// ClassifyOrbit buckets a semi-major axis (km) into a coarse orbit
// regime. The geosynchronous band is checked first so that a GEO object
// is never misfiled as MEO/OTHER by the altitude thresholds.
func ClassifyOrbit(semiMajorAxisKm, geoToleranceKm float64) string {
	if semiMajorAxisKm <= 0 {
		return "UNKNOWN"
	}
	if math.Abs(semiMajorAxisKm-geoAxisKm) <= geoToleranceKm {
		return "GEO"
	}
	altitude := semiMajorAxisKm - earthRadiusKm
	switch {
	case altitude < leoMaxAltitudeKm:
		return "LEO"
	case altitude <= meoMaxAltitudeKm:
		return "MEO"
	default:
		return "OTHER"
	}
}
