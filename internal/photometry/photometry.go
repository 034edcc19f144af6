// Package photometry converts between magnitudes, flux densities and photon
// rates through a passband.
package photometry

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

const (
	// ABZeroPointJy is the flux density of a 0 mag AB source.
	ABZeroPointJy = 3631.0

	// planck is the Planck constant in J s.
	planck = 6.62607015e-34

	// jansky is 1 Jy in W m^-2 Hz^-1.
	jansky = 1e-26
)

var (
	// ErrNonPositiveFlux is returned when a magnitude is requested for a flux <= 0.
	ErrNonPositiveFlux = errors.New("flux must be positive")

	// ErrUnknownUnit is returned when a brightness unit cannot be parsed.
	ErrUnknownUnit = errors.New("unknown brightness unit")
)

// Band is the passband information needed for photometric conversions.
type Band interface {
	// VegaABOffset returns m_AB - m_Vega.
	VegaABOffset() float64
	// PhotonIntegral returns the dimensionless integral of T(λ)/λ dλ.
	PhotonIntegral() float64
}

// Unit is a brightness unit.
type Unit int

const (
	VegaMag Unit = iota
	ABMag
	Jansky
)

// String returns the unit name.
func (u Unit) String() string {
	switch u {
	case VegaMag:
		return "vega"
	case ABMag:
		return "ab"
	case Jansky:
		return "jy"
	default:
		return "unknown"
	}
}

// MarshalText encodes the unit by name.
func (u Unit) MarshalText() ([]byte, error) {
	return []byte(u.String()), nil
}

// UnmarshalText decodes a unit name accepted by ParseUnit.
func (u *Unit) UnmarshalText(text []byte) error {
	parsed, err := ParseUnit(string(text))
	if err != nil {
		return err
	}
	*u = parsed
	return nil
}

// IsMagnitude reports whether the unit is a magnitude system.
func (u Unit) IsMagnitude() bool {
	return u == VegaMag || u == ABMag
}

// ParseUnit parses "vega", "ab" or "jy" (case-insensitive). An empty string is Vega.
func ParseUnit(s string) (Unit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "vega", "mag":
		return VegaMag, nil
	case "ab", "abmag":
		return ABMag, nil
	case "jy", "jansky":
		return Jansky, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownUnit, s)
	}
}

// Brightness is a source brightness in a given unit.
type Brightness struct {
	Value float64 `json:"value"`
	Unit  Unit    `json:"unit"`
}

// Vega returns a Vega magnitude.
func Vega(m float64) Brightness { return Brightness{Value: m, Unit: VegaMag} }

// AB returns an AB magnitude.
func AB(m float64) Brightness { return Brightness{Value: m, Unit: ABMag} }

// Jy returns a flux density in Jansky.
func Jy(v float64) Brightness { return Brightness{Value: v, Unit: Jansky} }

// String formats the brightness with its unit.
func (b Brightness) String() string {
	if b.Unit == Jansky {
		return fmt.Sprintf("%g Jy", b.Value)
	}
	return fmt.Sprintf("%.3f mag (%s)", b.Value, b.Unit)
}

// FluxDensity returns the flux density in Jy of b in the given band.
func (b Brightness) FluxDensity(band Band) (float64, error) {
	if math.IsNaN(b.Value) || math.IsInf(b.Value, 0) {
		return 0, fmt.Errorf("brightness %v is not finite", b.Value)
	}
	switch b.Unit {
	case VegaMag:
		return ABZeroPointJy * math.Pow(10, -0.4*(b.Value+band.VegaABOffset())), nil
	case ABMag:
		return ABZeroPointJy * math.Pow(10, -0.4*b.Value), nil
	case Jansky:
		if b.Value < 0 {
			return 0, fmt.Errorf("flux density %g Jy: %w", b.Value, ErrNonPositiveFlux)
		}
		return b.Value, nil
	default:
		return 0, fmt.Errorf("%w: %d", ErrUnknownUnit, int(b.Unit))
	}
}

// PhotonRate returns the photon rate in ph s^-1 m^-2 of b through the band.
func (b Brightness) PhotonRate(band Band) (float64, error) {
	jy, err := b.FluxDensity(band)
	if err != nil {
		return 0, err
	}
	return PhotonRate(jy, band), nil
}

// PhotonRate converts a flat-spectrum flux density in Jy to ph s^-1 m^-2
// through the band.
func PhotonRate(fluxJy float64, band Band) float64 {
	return fluxJy * jansky * band.PhotonIntegral() / planck
}

// FluxDensityFromPhotonRate inverts PhotonRate.
func FluxDensityFromPhotonRate(rate float64, band Band) float64 {
	return rate * planck / (jansky * band.PhotonIntegral())
}

// FromFluxDensity expresses a flux density in Jy as a brightness in unit u.
func FromFluxDensity(fluxJy float64, u Unit, band Band) (Brightness, error) {
	if u == Jansky {
		return Jy(fluxJy), nil
	}
	if !(fluxJy > 0) || math.IsInf(fluxJy, 0) {
		return Brightness{}, fmt.Errorf("flux density %g Jy: %w", fluxJy, ErrNonPositiveFlux)
	}
	ab := -2.5 * math.Log10(fluxJy/ABZeroPointJy)
	switch u {
	case ABMag:
		return AB(ab), nil
	case VegaMag:
		return Vega(ab - band.VegaABOffset()), nil
	default:
		return Brightness{}, fmt.Errorf("%w: %d", ErrUnknownUnit, int(u))
	}
}
