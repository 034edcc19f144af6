// Package instrument models the HAWK-I near-infrared imager on the VLT:
// its filter set, light-collecting area, detector noise and the point-source
// aperture used for photometry.
package instrument

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrUnknownFilter is returned when a filter name is not part of the instrument.
var ErrUnknownFilter = errors.New("unknown filter")

// fwhmToSigma converts a Gaussian FWHM to its standard deviation.
const fwhmToSigma = 1 / 2.3548200450309493

// Model is the instrument capability the calculator depends on.
type Model interface {
	Name() string
	Filter(name string) (*Filter, error)
	Filters() []*Filter
	CollectionArea() float64     // m^2
	PixelScale() float64         // arcsec per pixel
	DarkCurrent() float64        // e- s^-1 pixel^-1
	ReadNoise() float64          // e- rms per pixel per read
	QuantumEfficiency() float64  // e- per photon
	SystematicFraction() float64 // fractional flat-field error of collected counts
	EncircledEnergy(radius, fwhm float64) float64
}

// HawkI is the built-in HAWK-I model.
type HawkI struct {
	filters    []*Filter
	byName     map[string]*Filter
	area       float64
	pixelScale float64
	dark       float64
	readNoise  float64
	qe         float64
	systematic float64
}

// Option configures a HawkI model.
type Option func(*HawkI)

// WithSystematicFraction sets the fractional systematic noise floor.
func WithSystematicFraction(f float64) Option {
	return func(h *HawkI) {
		h.systematic = f
	}
}

// WithReadNoise overrides the per-read noise in e- rms.
func WithReadNoise(rn float64) Option {
	return func(h *HawkI) {
		h.readNoise = rn
	}
}

// WithDarkCurrent overrides the dark current in e- s^-1 pixel^-1.
func WithDarkCurrent(dc float64) Option {
	return func(h *HawkI) {
		h.dark = dc
	}
}

// filterAliases maps common alternative names onto HAWK-I filter names.
var filterAliases = map[string]string{
	"k":   "Ks",
	"brg": "BrGamma",
}

// NewHawkI returns the HAWK-I model with the built-in filter set.
//
// Telescope: 8.2 m primary (4.0 m radius used as the effective aperture),
// 20% central obstruction and 85% mirror reflectance. Detector values from
// the HAWK-I user manual. The filter curves are trapezoid approximations of
// the published passbands, not the measured transmission tables.
func NewHawkI(opts ...Option) *HawkI {
	filters := []*Filter{
		NewFilter("Y", 1.021, 0.102, 0.92, 0.60),
		NewFilter("NB1060", 1.061, 0.010, 0.75, 0.67),
		NewFilter("NB1190", 1.186, 0.010, 0.75, 0.81),
		NewFilter("J", 1.258, 0.154, 0.90, 0.91),
		NewFilter("CH4", 1.575, 0.112, 0.85, 1.30),
		NewFilter("H", 1.620, 0.251, 0.90, 1.39),
		NewFilter("NB2090", 2.095, 0.020, 0.80, 1.80),
		NewFilter("H2", 2.124, 0.030, 0.80, 1.83),
		NewFilter("Ks", 2.146, 0.324, 0.85, 1.85),
		NewFilter("BrGamma", 2.165, 0.030, 0.80, 1.86),
	}

	h := &HawkI{
		filters:    filters,
		byName:     make(map[string]*Filter, len(filters)),
		area:       math.Pi * 4.0 * 4.0 * 0.8 * 0.85,
		pixelScale: 0.1063,
		dark:       0.01,
		readNoise:  5.0,
		qe:         0.9,
	}
	for _, f := range filters {
		h.byName[strings.ToLower(f.Name())] = f
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Name returns "HAWKI".
func (h *HawkI) Name() string { return "HAWKI" }

// Filter looks up a filter by name, case-insensitively. "K" resolves to Ks.
func (h *HawkI) Filter(name string) (*Filter, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if alias, ok := filterAliases[key]; ok {
		key = strings.ToLower(alias)
	}
	f, ok := h.byName[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q is not available with HAWK-I, choose from %s",
			ErrUnknownFilter, name, strings.Join(h.FilterNames(), ", "))
	}
	return f, nil
}

// Filters returns the supported filters in instrument order.
func (h *HawkI) Filters() []*Filter {
	return append([]*Filter(nil), h.filters...)
}

// FilterNames returns the supported filter names in instrument order.
func (h *HawkI) FilterNames() []string {
	names := make([]string, len(h.filters))
	for i, f := range h.filters {
		names[i] = f.Name()
	}
	return names
}

func (h *HawkI) CollectionArea() float64     { return h.area }
func (h *HawkI) PixelScale() float64         { return h.pixelScale }
func (h *HawkI) DarkCurrent() float64        { return h.dark }
func (h *HawkI) ReadNoise() float64          { return h.readNoise }
func (h *HawkI) QuantumEfficiency() float64  { return h.qe }
func (h *HawkI) SystematicFraction() float64 { return h.systematic }

// EncircledEnergy returns the fraction of a Gaussian PSF with the given FWHM
// that falls inside a circular aperture of the given radius (same units).
func (h *HawkI) EncircledEnergy(radius, fwhm float64) float64 {
	if fwhm <= 0 {
		return 1
	}
	if radius <= 0 {
		return 0
	}
	sigma := fwhm * fwhmToSigma
	return 1 - math.Exp(-radius*radius/(2*sigma*sigma))
}
