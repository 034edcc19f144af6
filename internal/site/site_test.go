package site

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestJulianDate verifies our Julian Date calculation against known values.
func TestJulianDate(t *testing.T) {
	tests := []struct {
		name     string
		time     time.Time
		expected float64
	}{
		{
			name:     "J2000.0 epoch",
			time:     time.Date(2000, 1, 1, 12, 0, 0, 0, time.UTC),
			expected: 2451545.0,
		},
		{
			name:     "Unix epoch",
			time:     time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC),
			expected: 2440587.5,
		},
		{
			// Vallado Example 3-15: April 6, 2004, 07:51:28.386 UTC
			name:     "Vallado example date",
			time:     time.Date(2004, 4, 6, 7, 51, 28, 386009000, time.UTC),
			expected: 2453101.827411875,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := JulianDate(tt.time)
			diff := math.Abs(got - tt.expected)
			if diff > 1e-6 {
				t.Errorf("JulianDate(%v) = %.10f, want %.10f (diff=%.2e)", tt.time, got, tt.expected, diff)
			}
		})
	}
}

// TestLocalSiderealTimeGreenwich checks GMST at J2000.0 (280.46061837 deg).
func TestLocalSiderealTimeGreenwich(t *testing.T) {
	greenwich := NewObserver(51.4769, 0, 0)
	lst := LocalSiderealTime(greenwich, time.Date(2000, 1, 1, 12, 0, 0, 0, time.UTC))
	got := lst * 180 / math.Pi
	if math.Abs(got-280.46061837) > 1e-4 {
		t.Errorf("GMST at J2000 = %.8f deg, want 280.46061837", got)
	}
}

func TestLocalSiderealTimeLongitudeShift(t *testing.T) {
	ts := time.Date(2026, 2, 6, 4, 1, 0, 0, time.UTC)
	east := LocalSiderealTime(NewObserver(0, 90, 0), ts)
	zero := LocalSiderealTime(NewObserver(0, 0, 0), ts)

	diff := math.Mod(east-zero+2*math.Pi, 2*math.Pi)
	assert.InDelta(t, math.Pi/2, diff, 1e-9)

	for _, lon := range []float64{-170, -70.4, 0, 45, 179} {
		lst := LocalSiderealTime(NewObserver(0, lon, 0), ts)
		assert.GreaterOrEqual(t, lst, 0.0)
		assert.Less(t, lst, 2*math.Pi)
	}
}

func TestToHorizontalZenith(t *testing.T) {
	obs := Paranal()
	ts := time.Date(2025, 6, 1, 3, 0, 0, 0, time.UTC)

	lstDeg := LocalSiderealTime(obs, ts) * 180 / math.Pi
	target := Equatorial{RADeg: lstDeg, DecDeg: ParanalLatDeg}

	hz := ToHorizontal(obs, target, ts)
	assert.InDelta(t, 90, hz.AltitudeDeg, 1e-5)

	x, _, err := TargetAirmass(obs, target, ts)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, x, 1e-3)
}

func TestToHorizontalMeridianTransit(t *testing.T) {
	obs := Paranal()
	ts := time.Date(2025, 6, 1, 3, 0, 0, 0, time.UTC)
	lstDeg := LocalSiderealTime(obs, ts) * 180 / math.Pi

	// On the meridian the altitude is 90 - |lat - dec|; a target north of
	// the zenith transits at azimuth 0, one south of it at 180.
	north := ToHorizontal(obs, Equatorial{RADeg: lstDeg, DecDeg: 0}, ts)
	assert.InDelta(t, 90-24.6272, north.AltitudeDeg, 1e-6)
	assert.InDelta(t, 0, math.Mod(north.AzimuthDeg+1, 360)-1, 1e-6)

	south := ToHorizontal(obs, Equatorial{RADeg: lstDeg, DecDeg: -60}, ts)
	assert.InDelta(t, 90-(60-24.6272), south.AltitudeDeg, 1e-6)
	assert.InDelta(t, 180, south.AzimuthDeg, 1e-6)
}

func TestTargetBelowHorizon(t *testing.T) {
	obs := Paranal()
	ts := time.Date(2025, 6, 1, 3, 0, 0, 0, time.UTC)
	lstDeg := LocalSiderealTime(obs, ts) * 180 / math.Pi

	// Twelve hours from the meridian at Dec +60 never rises at Paranal.
	target := Equatorial{RADeg: math.Mod(lstDeg+180, 360), DecDeg: 60}
	_, hz, err := TargetAirmass(obs, target, ts)
	assert.ErrorIs(t, err, ErrBelowHorizon)
	assert.Less(t, hz.AltitudeDeg, 0.0)
}

func TestAirmass(t *testing.T) {
	tests := []struct {
		alt  float64
		want float64
		tol  float64
	}{
		{90, 1.0, 1e-3},
		{60, 1.1547, 2e-3},
		{30, 1.9943, 5e-3},
		{10, 5.60, 0.05},
	}
	for _, tt := range tests {
		got, err := Airmass(tt.alt)
		require.NoError(t, err)
		assert.InDelta(t, tt.want, got, tt.tol, "altitude %.0f", tt.alt)
		assert.GreaterOrEqual(t, got, 1.0)
	}

	_, err := Airmass(0)
	assert.ErrorIs(t, err, ErrBelowHorizon)
	_, err = Airmass(-5)
	assert.ErrorIs(t, err, ErrBelowHorizon)
}

func TestPresets(t *testing.T) {
	assert.Equal(t, []int{10, 20, 30, 50, 70, 85, 100}, Percentiles())

	p, err := PresetFor(50)
	require.NoError(t, err)
	assert.Equal(t, 0.8, p.Seeing)

	prev := 0.0
	for _, pct := range Percentiles() {
		p, err := PresetFor(pct)
		require.NoError(t, err)
		assert.Greater(t, p.Seeing, prev, "seeing must worsen with percentile")
		prev = p.Seeing
	}

	for _, bad := range []int{0, 40, 55, 80, 101, -10} {
		_, err := PresetFor(bad)
		assert.ErrorIs(t, err, ErrUnsupportedPercentile, "percentile %d", bad)
	}
}

func TestImageQuality(t *testing.T) {
	// At 500 nm and zenith the delivered FWHM equals the seeing.
	assert.InDelta(t, 0.8, ImageQuality(0.8, 0.5, 1), 1e-12)

	// Longer wavelengths sharpen the image, higher airmass blurs it.
	ks := ImageQuality(0.8, 2.146, 1)
	assert.InDelta(t, 0.598, ks, 2e-3)
	assert.Greater(t, ImageQuality(0.8, 2.146, 1.5), ks)
}
