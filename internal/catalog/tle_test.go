package catalog

import (
	"math"
	"testing"
	"time"
)

// buildLine1 produces a line 1 with the given two-digit year and day of
// year in the fixed epoch columns.
func buildLine1(yearDigits, dayField string) string {
	// Columns 19-20 hold the year, 21-32 the fractional day of year.
	return "1 25544U 98067A   " + yearDigits + dayField + " .00016717  00000-0  10270-3 0  9005"
}

func TestParseEpoch_CenturyPivot(t *testing.T) {
	tests := []struct {
		name       string
		yearDigits string
		wantYear   int
	}{
		{"mid nineties maps to 1900s", "95", 1995},
		{"twenties map to 2000s", "24", 2024},
		{"pivot value 57 maps to 1957", "57", 1957},
		{"just below pivot maps to 2056", "56", 2056},
		{"zero maps to 2000", "00", 2000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line1 := buildLine1(tt.yearDigits, "001.00000000")
			epoch, err := ParseEpoch(line1)
			if err != nil {
				t.Fatalf("ParseEpoch failed: %v", err)
			}
			if epoch.Year() != tt.wantYear {
				t.Errorf("Expected year %d, got %d", tt.wantYear, epoch.Year())
			}
		})
	}
}

func TestParseEpoch_DayOfYear(t *testing.T) {
	// Day 32.5 of 2024 is February 1st, 12:00 UTC.
	line1 := buildLine1("24", "032.50000000")
	epoch, err := ParseEpoch(line1)
	if err != nil {
		t.Fatalf("ParseEpoch failed: %v", err)
	}

	want := time.Date(2024, time.February, 1, 12, 0, 0, 0, time.UTC)
	if !epoch.Equal(want) {
		t.Errorf("Expected epoch %v, got %v", want, epoch)
	}
}

func TestParseEpoch_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		line1 string
	}{
		{"too short", "1 25544U"},
		{"non-numeric year", buildLine1("xx", "001.00000000")},
		{"non-numeric day", buildLine1("24", "abc.00000000")},
		{"day of year zero", buildLine1("24", "000.50000000")},
		{"day of year too large", buildLine1("24", "367.00000000")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseEpoch(tt.line1); err == nil {
				t.Error("Expected error, got nil")
			}
		})
	}
}

func TestParseLine2(t *testing.T) {
	// Real ISS element set.
	line2 := "2 25544  51.6416 247.4627 0006703 130.5360 325.0288 15.72125391563537"

	el, err := parseLine2(line2)
	if err != nil {
		t.Fatalf("parseLine2 failed: %v", err)
	}

	if math.Abs(el.Inclination-51.6416) > 1e-9 {
		t.Errorf("Expected inclination 51.6416, got %f", el.Inclination)
	}
	if math.Abs(el.RAAN-247.4627) > 1e-9 {
		t.Errorf("Expected RAAN 247.4627, got %f", el.RAAN)
	}
	if math.Abs(el.Eccentricity-0.0006703) > 1e-12 {
		t.Errorf("Expected eccentricity 0.0006703, got %f", el.Eccentricity)
	}
	if math.Abs(el.ArgPerigee-130.5360) > 1e-9 {
		t.Errorf("Expected argument of perigee 130.5360, got %f", el.ArgPerigee)
	}
	if math.Abs(el.MeanAnomaly-325.0288) > 1e-9 {
		t.Errorf("Expected mean anomaly 325.0288, got %f", el.MeanAnomaly)
	}
	if math.Abs(el.MeanMotion-15.72125391) > 1e-6 {
		t.Errorf("Expected mean motion 15.72125391, got %f", el.MeanMotion)
	}
}

func TestParseLine2_Invalid(t *testing.T) {
	if _, err := parseLine2("2 25544"); err == nil {
		t.Error("Expected error for short line, got nil")
	}
	if _, err := parseLine2("2 25544  xx.xxxx 247.4627 0006703 130.5360 325.0288 15.72125391563537"); err == nil {
		t.Error("Expected error for non-numeric inclination, got nil")
	}
}

func TestSemiMajorAxisFromMeanMotion(t *testing.T) {
	// ~15.5 rev/day is a low orbit around 6800 km; a geosynchronous
	// object at 1 rev/sidereal-day sits near 42164 km.
	a := semiMajorAxisFromMeanMotion(15.5)
	if a < 6700 || a > 6900 {
		t.Errorf("Expected semi-major axis near 6800 km for 15.5 rev/day, got %f", a)
	}

	a = semiMajorAxisFromMeanMotion(1.0027)
	if math.Abs(a-geoAxisKm) > 50 {
		t.Errorf("Expected semi-major axis near %f km for geosynchronous motion, got %f", geoAxisKm, a)
	}

	if a := semiMajorAxisFromMeanMotion(0); a != 0 {
		t.Errorf("Expected 0 for zero mean motion, got %f", a)
	}
}

func TestClassifyOrbit(t *testing.T) {
	tests := []struct {
		name string
		aKm  float64
		want string
	}{
		{"low orbit", 6900, "LEO"},
		{"medium orbit", 26000, "MEO"},
		{"nominal geosynchronous", 42164, "GEO"},
		{"edge of geo band", 42164 + DefaultGeoToleranceKm, "GEO"},
		{"just past geo band", 42164 + DefaultGeoToleranceKm + 1, "OTHER"},
		{"boundary between low and medium", earthRadiusKm + 2000, "MEO"},
		{"just inside low", earthRadiusKm + 1999.9, "LEO"},
		{"beyond medium", 80000, "OTHER"},
		{"zero axis", 0, "UNKNOWN"},
		{"negative axis", -1, "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyOrbit(tt.aKm, DefaultGeoToleranceKm)
			if got != tt.want {
				t.Errorf("ClassifyOrbit(%f) = %q, want %q", tt.aKm, got, tt.want)
			}
		})
	}
}
