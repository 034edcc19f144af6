// Package site describes the observatory: where it is, the standard
// atmospheric presets offered for it, and where a target sits in its sky.
package site

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Paranal geodetic coordinates (UT4 / Yepun).
const (
	ParanalLatDeg = -24.6272
	ParanalLonDeg = -70.4048
	ParanalAltM   = 2635.0
)

// ErrUnsupportedPercentile is returned for a percentile outside the preset set.
var ErrUnsupportedPercentile = errors.New("unsupported atmospheric percentile")

// Preset is a standard observing-condition category: the percentile of
// nights with seeing at least this good and the corresponding seeing FWHM at
// zenith and 500 nm.
type Preset struct {
	Percentile int
	Seeing     float64 // arcsec
}

var presets = map[int]Preset{
	10:  {Percentile: 10, Seeing: 0.50},
	20:  {Percentile: 20, Seeing: 0.60},
	30:  {Percentile: 30, Seeing: 0.70},
	50:  {Percentile: 50, Seeing: 0.80},
	70:  {Percentile: 70, Seeing: 1.00},
	85:  {Percentile: 85, Seeing: 1.15},
	100: {Percentile: 100, Seeing: 1.40},
}

// PresetFor returns the preset for an atmospheric percentile. Percentiles
// between presets are rejected rather than interpolated.
func PresetFor(percentile int) (Preset, error) {
	p, ok := presets[percentile]
	if !ok {
		return Preset{}, fmt.Errorf("%w: %d (supported: %s)",
			ErrUnsupportedPercentile, percentile, joinInts(Percentiles()))
	}
	return p, nil
}

// Percentiles returns the supported percentiles in ascending order.
func Percentiles() []int {
	out := make([]int, 0, len(presets))
	for p := range presets {
		out = append(out, p)
	}
	sort.Ints(out)
	return out
}

// ImageQuality returns the delivered FWHM (arcsec) for a zenith 500 nm seeing
// observed at the given wavelength (microns) and airmass, using the
// Kolmogorov scalings λ^-0.2 and X^0.6.
func ImageQuality(seeing, waveMicron, airmass float64) float64 {
	return seeing * math.Pow(waveMicron/0.5, -0.2) * math.Pow(airmass, 0.6)
}

func joinInts(v []int) string {
	s := make([]string, len(v))
	for i, n := range v {
		s[i] = strconv.Itoa(n)
	}
	return strings.Join(s, ", ")
}
