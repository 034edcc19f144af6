package instrument

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/integrate"
)

// curvePoints is the number of samples in a tabulated throughput curve.
const curvePoints = 401

// edgeFraction sets the width of each filter edge ramp as a fraction of the FWHM.
const edgeFraction = 0.1

// Filter is a photometric passband with a tabulated throughput curve.
// Wavelengths are in microns.
type Filter struct {
	name   string
	center float64
	width  float64
	peak   float64
	vegaAB float64

	wave       []float64
	throughput []float64
}

// NewFilter builds a filter whose throughput is a trapezoid centred on center
// with full width at half maximum width and plateau transmission peak.
// vegaAB is m_AB - m_Vega in this band.
func NewFilter(name string, center, width, peak, vegaAB float64) *Filter {
	edge := edgeFraction * width
	half := width / 2

	wave := floats.Span(make([]float64, curvePoints), center-half-edge, center+half+edge)
	throughput := make([]float64, curvePoints)
	for i, w := range wave {
		d := math.Abs(w - center)
		switch {
		case d <= half-edge:
			throughput[i] = peak
		case d >= half+edge:
			throughput[i] = 0
		default:
			throughput[i] = peak * (half + edge - d) / (2 * edge)
		}
	}

	return &Filter{
		name:       name,
		center:     center,
		width:      width,
		peak:       peak,
		vegaAB:     vegaAB,
		wave:       wave,
		throughput: throughput,
	}
}

// Name returns the filter name as used by the instrument.
func (f *Filter) Name() string { return f.name }

// Center returns the central wavelength in microns.
func (f *Filter) Center() float64 { return f.center }

// Width returns the FWHM in microns.
func (f *Filter) Width() float64 { return f.width }

// Peak returns the plateau transmission.
func (f *Filter) Peak() float64 { return f.peak }

// VegaABOffset returns m_AB - m_Vega for this band.
func (f *Filter) VegaABOffset() float64 { return f.vegaAB }

// Curve returns copies of the tabulated wavelength (microns) and throughput samples.
func (f *Filter) Curve() (wave, throughput []float64) {
	wave = append([]float64(nil), f.wave...)
	throughput = append([]float64(nil), f.throughput...)
	return wave, throughput
}

// Limits returns the wavelength range (microns) over which the throughput
// exceeds threshold. Both values are zero if no sample does.
func (f *Filter) Limits(threshold float64) (lo, hi float64) {
	first, last := -1, -1
	for i, t := range f.throughput {
		if t > threshold {
			if first < 0 {
				first = i
			}
			last = i
		}
	}
	if first < 0 {
		return 0, 0
	}
	return f.wave[first], f.wave[last]
}

// Integrate returns the integral over wavelength (microns) of fn times the
// filter throughput.
func (f *Filter) Integrate(fn func(waveMicron float64) float64) float64 {
	y := make([]float64, len(f.wave))
	for i, w := range f.wave {
		y[i] = fn(w) * f.throughput[i]
	}
	return integrate.Trapezoidal(f.wave, y)
}

// PhotonIntegral returns the dimensionless band integral of T(λ)/λ dλ. A flat
// spectrum of f_nu (W m^-2 Hz^-1) yields f_nu * PhotonIntegral / h photons
// per second per square metre through the filter.
func (f *Filter) PhotonIntegral() float64 {
	return f.Integrate(func(w float64) float64 { return 1 / w })
}
