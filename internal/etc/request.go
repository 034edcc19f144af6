package etc

import (
	"math"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/star/hawkietc/internal/site"
	"github.com/star/hawkietc/internal/sky"
)

const (
	// DefaultDIT is the detector integration time per frame in seconds.
	DefaultDIT = 60.0

	// DefaultAirmass is used when neither an airmass nor a target is given.
	DefaultAirmass = 1.0

	// MaxAirmass is the largest airmass the sky model accepts.
	MaxAirmass = 3.0
)

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
	if err := validate.RegisterValidation("finite", isFinite); err != nil {
		panic(err)
	}
}

func isFinite(fl validator.FieldLevel) bool {
	switch fl.Field().Kind() {
	case reflect.Float32, reflect.Float64:
		f := fl.Field().Float()
		return !math.IsNaN(f) && !math.IsInf(f, 0)
	default:
		return true
	}
}

// Request describes one observation.
type Request struct {
	// Filter is a HAWK-I filter name; "K" is accepted for Ks.
	Filter string `json:"filter" validate:"required"`

	// ExposureTime is the total integration time in seconds.
	ExposureTime float64 `json:"exposure_time" validate:"finite,gt=0"`

	// DIT is the integration time per frame in seconds. Zero selects the
	// calculator default. Exposures shorter than DIT are taken as a
	// single frame.
	DIT float64 `json:"dit,omitempty" validate:"finite,gte=0"`

	// Percentile selects the atmospheric preset (10, 20, 30, 50, 70, 85 or 100).
	Percentile int `json:"percentile" validate:"required"`

	// TargetSNR is the signal-to-noise ratio the limiting magnitude is
	// solved for. It is ignored by forward calculations.
	TargetSNR float64 `json:"target_snr" validate:"finite,gt=0"`

	// Airmass defaults to 1. It cannot be combined with Target.
	Airmass float64 `json:"airmass,omitempty" validate:"omitempty,finite,gte=1,lte=3,excluded_with=Target"`

	// Target and ObsTime derive the airmass at Paranal.
	Target  *site.Equatorial `json:"target,omitempty" validate:"omitempty"`
	ObsTime time.Time        `json:"obs_time,omitempty" validate:"required_with=Target"`

	// MagSystem is "vega" (default) or "ab".
	MagSystem string `json:"mag_system,omitempty" validate:"omitempty,oneof=vega ab"`

	Sky SkyConditions `json:"sky"`
}

// SkyConditions are the optional sky model parameters.
type SkyConditions struct {
	// PWV is the precipitable water vapour in mm; zero uses the model default.
	PWV  float64   `json:"pwv,omitempty" validate:"finite,gte=0,lte=30"`
	Moon *sky.Moon `json:"moon,omitempty" validate:"omitempty"`
}

func (r Request) normalized() Request {
	r.Filter = strings.TrimSpace(r.Filter)
	r.MagSystem = strings.ToLower(strings.TrimSpace(r.MagSystem))
	return r
}

// validateRequest checks the struct constraints. The target S/N is skipped
// for forward calculations.
func validateRequest(r Request, needSNR bool) error {
	var err error
	if needSNR {
		err = validate.Struct(r)
	} else {
		err = validate.StructExcept(r, "TargetSNR")
	}
	if err != nil {
		return validationError(err)
	}
	return nil
}
