// Package sky provides the sky background seen through a filter. A Source
// returns the background photon rate per square arcsecond; implementations
// query the ESO SkyCalc service or read an offline surface-brightness table.
package sky

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/star/hawkietc/internal/photometry"
)

var (
	// ErrUnavailable is returned when the sky data source cannot be reached
	// or returns an unusable response.
	ErrUnavailable = errors.New("sky background unavailable")

	// ErrNoData is returned when a source has no background for the filter
	// or query.
	ErrNoData = errors.New("no sky background data")

	// ErrInvalidQuery is returned when the observing conditions of a
	// Query are out of range.
	ErrInvalidQuery = errors.New("invalid sky query")

	// ErrInvalidResponse is returned when a source answers with a payload
	// it cannot use. Retrying the same query does not help.
	ErrInvalidResponse = errors.New("invalid sky model response")
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// LimitThreshold is the throughput above which a filter's wavelength range
// is sent to SkyCalc.
const LimitThreshold = 0.2

// Band is the filter information a Source needs.
type Band interface {
	photometry.Band
	Name() string
	// Limits returns the wavelength range in microns where throughput
	// exceeds threshold.
	Limits(threshold float64) (lo, hi float64)
	// Integrate returns the integral over wavelength (microns) of fn times
	// the throughput.
	Integrate(fn func(waveMicron float64) float64) float64
}

// Moon sets the lunar geometry for a SkyCalc query. Angles in degrees.
type Moon struct {
	SunSeparation    float64 `json:"moon_sun_sep" yaml:"sun_separation" validate:"gte=0,lte=360"`
	TargetSeparation float64 `json:"moon_target_sep" yaml:"target_separation" validate:"gte=0,lte=180"`
	Altitude         float64 `json:"moon_alt" yaml:"altitude" validate:"gte=-90,lte=90"`
}

// Query holds the observing conditions of a background lookup.
type Query struct {
	Airmass float64 `validate:"gte=1,lte=3"`
	// PWV is the precipitable water vapour in mm. Zero leaves the
	// service default.
	PWV  float64 `validate:"gte=0,lte=30"`
	Moon *Moon   `validate:"omitempty"`
}

// Validate checks the airmass, PWV and lunar geometry ranges.
func (q Query) Validate() error {
	if err := validate.Struct(q); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return fmt.Errorf("%w: %s fails %s=%s (got %v)", ErrInvalidQuery, fe.Namespace(), fe.Tag(), fe.Param(), fe.Value())
		}
		return fmt.Errorf("%w: %w", ErrInvalidQuery, err)
	}
	return nil
}

// Background is a sky background through a filter.
type Background struct {
	// PhotonRate is in photons s^-1 m^-2 arcsec^-2.
	PhotonRate float64
	// Source names the Source that produced the value.
	Source string
}

// Source looks up the sky background through a band.
type Source interface {
	Name() string
	Background(ctx context.Context, band Band, q Query) (Background, error)
}
