package etc

import (
	"fmt"
	"io"
	"math"
	"text/tabwriter"
	"time"

	"github.com/star/hawkietc/internal/photometry"
	"github.com/star/hawkietc/internal/site"
)

// Pointing is the target geometry used to derive the airmass.
type Pointing struct {
	Target      site.Equatorial `json:"target"`
	ObsTime     time.Time       `json:"obs_time"`
	JulianDate  float64         `json:"julian_date"`
	AltitudeDeg float64         `json:"altitude_deg"`
	AzimuthDeg  float64         `json:"azimuth_deg"`
}

// Result is the outcome of a calculation together with the intermediate
// quantities of the noise model. Electron counts are for the full exposure
// inside the photometric aperture.
type Result struct {
	Instrument   string    `json:"instrument"`
	Filter       string    `json:"filter"`
	ExposureTime float64   `json:"exposure_time"`
	DIT          float64   `json:"dit"`
	NDIT         float64   `json:"ndit"`
	Percentile   int       `json:"percentile"`
	Airmass      float64   `json:"airmass"`
	Pointing     *Pointing `json:"pointing,omitempty"`
	MagSystem    string    `json:"mag_system"`

	// Set by LimitingMagnitude.
	TargetSNR           float64 `json:"target_snr,omitempty"`
	LimitingMagnitude   float64 `json:"limiting_magnitude,omitempty"`
	LimitingMagnitudeAB float64 `json:"limiting_magnitude_ab,omitempty"`
	LimitingFluxJy      float64 `json:"limiting_flux_jy,omitempty"`

	// Set by SNR.
	Brightness *photometry.Brightness `json:"brightness,omitempty"`

	Seeing          float64 `json:"seeing"`
	FWHM            float64 `json:"fwhm"`
	ApertureRadius  float64 `json:"aperture_radius"`
	ApertureArea    float64 `json:"aperture_area"`
	Pixels          float64 `json:"pixels"`
	EncircledEnergy float64 `json:"encircled_energy"`

	SkySource            string  `json:"sky_source"`
	SkyPhotonRate        float64 `json:"sky_photon_rate"`
	SkyElectrons         float64 `json:"sky_electrons"`
	SkyElectronsPerPixel float64 `json:"sky_electrons_per_pixel"`
	DarkElectrons        float64 `json:"dark_electrons"`
	ReadNoiseVariance    float64 `json:"read_noise_variance"`
	SourceElectrons      float64 `json:"source_electrons"`
	NoiseElectrons       float64 `json:"noise_electrons"`
	SNR                  float64 `json:"snr"`
}

func (o *observation) result(signal float64) *Result {
	return &Result{
		Instrument:           "HAWK-I",
		Filter:               o.filter.Name(),
		ExposureTime:         o.exptime,
		DIT:                  o.dit,
		NDIT:                 o.ndit,
		Percentile:           o.preset.Percentile,
		Airmass:              o.airmass,
		Pointing:             o.pointing,
		MagSystem:            o.unit.String(),
		Seeing:               o.preset.Seeing,
		FWHM:                 o.fwhm,
		ApertureRadius:       o.radius,
		ApertureArea:         o.area,
		Pixels:               o.pixels,
		EncircledEnergy:      o.encircled,
		SkySource:            o.skySource,
		SkyPhotonRate:        o.skyRate,
		SkyElectrons:         o.sky,
		SkyElectronsPerPixel: o.sky / o.pixels,
		DarkElectrons:        o.dark,
		ReadNoiseVariance:    o.read,
		SourceElectrons:      signal,
		NoiseElectrons:       math.Sqrt(o.variance(signal)),
		SNR:                  o.snr(signal),
	}
}

// Summary writes a human-readable report of r.
func (r *Result) Summary(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintf(tw, "Instrument\t%s\n", r.Instrument)
	fmt.Fprintf(tw, "Filter\t%s\n", r.Filter)
	fmt.Fprintf(tw, "Exposure time\t%.1f s (NDIT %.2f x DIT %.1f s)\n", r.ExposureTime, r.NDIT, r.DIT)
	fmt.Fprintf(tw, "Atmospheric percentile\t%d (seeing %.2f\")\n", r.Percentile, r.Seeing)
	fmt.Fprintf(tw, "Airmass\t%.3f\n", r.Airmass)
	if p := r.Pointing; p != nil {
		fmt.Fprintf(tw, "Target\tRA %.4f Dec %+.4f at %s (JD %.5f)\n",
			p.Target.RADeg, p.Target.DecDeg, p.ObsTime.Format(time.RFC3339), p.JulianDate)
		fmt.Fprintf(tw, "Altitude / azimuth\t%.2f / %.2f deg\n", p.AltitudeDeg, p.AzimuthDeg)
	}
	fmt.Fprintf(tw, "Image quality FWHM\t%.3f arcsec\n", r.FWHM)
	fmt.Fprintf(tw, "Aperture\tr = %.3f arcsec, %.3f arcsec2, %.1f px, EE %.3f\n",
		r.ApertureRadius, r.ApertureArea, r.Pixels, r.EncircledEnergy)
	fmt.Fprintf(tw, "Sky background (%s)\t%.4g ph/s/m2/arcsec2\n", r.SkySource, r.SkyPhotonRate)
	fmt.Fprintf(tw, "Sky\t%.4g e- (%.4g e-/px)\n", r.SkyElectrons, r.SkyElectronsPerPixel)
	fmt.Fprintf(tw, "Dark\t%.4g e-\n", r.DarkElectrons)
	fmt.Fprintf(tw, "Read noise variance\t%.4g e-2\n", r.ReadNoiseVariance)
	fmt.Fprintf(tw, "Source\t%.4g e-\n", r.SourceElectrons)
	fmt.Fprintf(tw, "Noise\t%.4g e-\n", r.NoiseElectrons)
	if r.Brightness != nil {
		fmt.Fprintf(tw, "Brightness\t%s\n", r.Brightness)
		fmt.Fprintf(tw, "S/N\t%.3f\n", r.SNR)
	} else {
		fmt.Fprintf(tw, "Target S/N\t%.3f (achieved %.3f)\n", r.TargetSNR, r.SNR)
		fmt.Fprintf(tw, "Limiting magnitude\t%.3f %s (%.3f AB, %.4g Jy)\n",
			r.LimitingMagnitude, r.MagSystem, r.LimitingMagnitudeAB, r.LimitingFluxJy)
	}
	return tw.Flush()
}
