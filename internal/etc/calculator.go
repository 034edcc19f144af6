// Package etc is the HAWK-I exposure time calculator. It combines the
// instrument model, the Paranal atmospheric presets and a sky background
// source into a point-source signal-to-noise model, and solves that model
// for the limiting magnitude of an observation.
package etc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/star/hawkietc/internal/instrument"
	"github.com/star/hawkietc/internal/metrics"
	"github.com/star/hawkietc/internal/photometry"
	"github.com/star/hawkietc/internal/site"
	"github.com/star/hawkietc/internal/sky"
)

// Calculator computes limiting magnitudes and S/N ratios. It holds no
// mutable state and is safe for concurrent use.
type Calculator struct {
	model      instrument.Model
	source     sky.Source
	observer   site.Observer
	defaultDIT float64
	logger     *slog.Logger
}

// Option configures a Calculator.
type Option func(*Calculator)

// WithDefaultDIT sets the DIT used when a request leaves it unset.
func WithDefaultDIT(dit float64) Option {
	return func(c *Calculator) {
		if dit > 0 {
			c.defaultDIT = dit
		}
	}
}

// WithObserver replaces the Paranal observer used for target airmasses.
func WithObserver(obs site.Observer) Option {
	return func(c *Calculator) {
		c.observer = obs
	}
}

// NewCalculator creates a Calculator for the instrument model and sky source.
// A nil logger uses slog.Default.
func NewCalculator(model instrument.Model, source sky.Source, logger *slog.Logger, opts ...Option) *Calculator {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Calculator{
		model:      model,
		source:     source,
		observer:   site.Paranal(),
		defaultDIT: DefaultDIT,
		logger:     logger.With("component", "etc"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Model returns the instrument model.
func (c *Calculator) Model() instrument.Model { return c.model }

// LimitingMagnitude returns the faintest point source that reaches
// req.TargetSNR, reported in req.MagSystem.
func (c *Calculator) LimitingMagnitude(ctx context.Context, req Request) (res *Result, err error) {
	defer func() { metrics.RecordCalculation("limit", err) }()

	obs, err := c.prepare(ctx, req, true)
	if err != nil {
		return nil, err
	}

	signal, err := obs.solveSignal(req.TargetSNR)
	if err != nil {
		return nil, err
	}

	rate := signal / (obs.collect * obs.encircled)
	jy := photometry.FluxDensityFromPhotonRate(rate, obs.filter)
	mag, err := photometry.FromFluxDensity(jy, obs.unit, obs.filter)
	if err != nil {
		return nil, numericalErrorf("limiting flux %g Jy: %v", jy, err)
	}
	ab, err := photometry.FromFluxDensity(jy, photometry.ABMag, obs.filter)
	if err != nil {
		return nil, numericalErrorf("limiting flux %g Jy: %v", jy, err)
	}

	res = obs.result(signal)
	res.TargetSNR = req.TargetSNR
	res.LimitingMagnitude = mag.Value
	res.LimitingMagnitudeAB = ab.Value
	res.LimitingFluxJy = jy

	metrics.SetLimitingMagnitude(obs.filter.Name(), mag.Value)
	c.logger.Info("limiting magnitude computed",
		"filter", obs.filter.Name(),
		"exptime", obs.exptime,
		"percentile", obs.preset.Percentile,
		"airmass", obs.airmass,
		"target_snr", req.TargetSNR,
		"mag", mag.Value,
		"mag_system", obs.unit.String(),
	)
	return res, nil
}

// SNR returns the signal-to-noise ratio reached by a source of the given
// brightness. req.TargetSNR is ignored.
func (c *Calculator) SNR(ctx context.Context, req Request, b photometry.Brightness) (res *Result, err error) {
	defer func() { metrics.RecordCalculation("snr", err) }()

	obs, err := c.prepare(ctx, req, false)
	if err != nil {
		return nil, err
	}
	signal, err := obs.signal(b)
	if err != nil {
		return nil, err
	}

	res = obs.result(signal)
	res.Brightness = &b
	c.logger.Info("snr computed",
		"filter", obs.filter.Name(),
		"exptime", obs.exptime,
		"brightness", b.String(),
		"snr", res.SNR,
	)
	return res, nil
}

// observation is a validated request with every brightness-independent
// quantity of the noise model resolved.
type observation struct {
	filter   *instrument.Filter
	preset   site.Preset
	unit     photometry.Unit
	airmass  float64
	pointing *Pointing

	exptime float64
	dit     float64
	ndit    float64

	fwhm      float64
	radius    float64
	area      float64
	pixels    float64
	encircled float64

	skySource string
	skyRate   float64

	collect    float64 // e- per (ph s^-1 m^-2) over the exposure
	sky        float64 // e- in aperture
	dark       float64 // e- in aperture
	read       float64 // read-noise variance in aperture
	systematic float64
}

func (c *Calculator) prepare(ctx context.Context, req Request, needSNR bool) (*observation, error) {
	req = req.normalized()
	if err := validateRequest(req, needSNR); err != nil {
		return nil, err
	}

	filter, err := c.model.Filter(req.Filter)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	preset, err := site.PresetFor(req.Percentile)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	unit, err := photometry.ParseUnit(req.MagSystem)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}

	obs := &observation{
		filter:     filter,
		preset:     preset,
		unit:       unit,
		airmass:    DefaultAirmass,
		exptime:    req.ExposureTime,
		systematic: c.model.SystematicFraction(),
	}
	if req.Airmass > 0 {
		obs.airmass = req.Airmass
	}
	if req.Target != nil {
		if err := c.resolvePointing(obs, *req.Target, req.ObsTime); err != nil {
			return nil, err
		}
	}

	obs.dit = req.DIT
	if obs.dit == 0 {
		obs.dit = c.defaultDIT
	}
	if obs.exptime >= obs.dit {
		obs.ndit = obs.exptime / obs.dit
	} else {
		obs.ndit = 1
		obs.dit = obs.exptime
	}

	obs.fwhm = site.ImageQuality(preset.Seeing, filter.Center(), obs.airmass)
	obs.radius = obs.fwhm
	obs.area = math.Pi * obs.radius * obs.radius
	obs.pixels = obs.area / (c.model.PixelScale() * c.model.PixelScale())
	obs.encircled = c.model.EncircledEnergy(obs.radius, obs.fwhm)
	if !(obs.encircled > 0) {
		return nil, numericalErrorf("aperture of radius %.3f arcsec encloses no flux", obs.radius)
	}

	bg, err := c.lookupSky(ctx, filter, sky.Query{
		Airmass: obs.airmass,
		PWV:     req.Sky.PWV,
		Moon:    req.Sky.Moon,
	})
	if err != nil {
		return nil, err
	}
	obs.skySource = bg.Source
	obs.skyRate = bg.PhotonRate

	obs.collect = c.model.CollectionArea() * c.model.QuantumEfficiency() * obs.exptime
	obs.sky = obs.skyRate * obs.area * obs.collect
	obs.dark = c.model.DarkCurrent() * obs.pixels * obs.exptime
	obs.read = c.model.ReadNoise() * c.model.ReadNoise() * obs.pixels * obs.ndit

	c.logger.Debug("noise budget",
		"filter", filter.Name(),
		"seeing", preset.Seeing,
		"fwhm", obs.fwhm,
		"pixels", obs.pixels,
		"ndit", obs.ndit,
		"dit", obs.dit,
		"sky_source", obs.skySource,
		"sky_rate", obs.skyRate,
		"sky_e", obs.sky,
		"dark_e", obs.dark,
		"read_var", obs.read,
	)
	return obs, nil
}

func (c *Calculator) resolvePointing(obs *observation, target site.Equatorial, at time.Time) error {
	x, hz, err := site.TargetAirmass(c.observer, target, at)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	if x > MaxAirmass {
		return configErrorf("target airmass %.2f at %s exceeds %.1f", x, at.UTC().Format(time.RFC3339), MaxAirmass)
	}
	obs.airmass = x
	obs.pointing = &Pointing{
		Target:      target,
		ObsTime:     at.UTC(),
		JulianDate:  site.JulianDate(at),
		AltitudeDeg: hz.AltitudeDeg,
		AzimuthDeg:  hz.AzimuthDeg,
	}
	return nil
}

func (c *Calculator) lookupSky(ctx context.Context, filter *instrument.Filter, q sky.Query) (sky.Background, error) {
	start := time.Now()
	bg, err := c.source.Background(ctx, filter, q)
	metrics.ObserveSkyLookup(c.source.Name(), time.Since(start), err)
	if err != nil {
		if errors.Is(err, sky.ErrNoData) || errors.Is(err, sky.ErrInvalidQuery) {
			return sky.Background{}, fmt.Errorf("%w: %w", ErrConfiguration, err)
		}
		return sky.Background{}, fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	if math.IsNaN(bg.PhotonRate) || math.IsInf(bg.PhotonRate, 0) || bg.PhotonRate < 0 {
		return sky.Background{}, numericalErrorf("sky background %g ph/s/m2/arcsec2 from %s", bg.PhotonRate, c.source.Name())
	}
	return bg, nil
}

// variance returns the noise variance in e- for a source signal in e-.
func (o *observation) variance(signal float64) float64 {
	sys := o.systematic * (signal + o.sky)
	return signal + o.sky + o.dark + o.read + sys*sys
}

// snr returns the S/N of a source signal in e-.
func (o *observation) snr(signal float64) float64 {
	v := o.variance(signal)
	if v <= 0 {
		return 0
	}
	return signal / math.Sqrt(v)
}

// signal returns the source e- in the aperture for brightness b.
func (o *observation) signal(b photometry.Brightness) (float64, error) {
	rate, err := b.PhotonRate(o.filter)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	return rate * o.collect * o.encircled, nil
}

// solveSignal inverts S / sqrt(variance(S)) = s for S. With a systematic
// fraction e the equation is the quadratic
//
//	(1 - s^2 e^2) S^2 - s^2 (1 + 2 e^2 B) S - s^2 (B + D + R + e^2 B^2) = 0
//
// which has a positive root only while s*e < 1.
func (o *observation) solveSignal(s float64) (float64, error) {
	e2 := o.systematic * o.systematic
	s2 := s * s

	a := 1 - s2*e2
	if a <= 0 {
		return 0, numericalErrorf("S/N %g is unreachable with a systematic noise floor of %g", s, o.systematic)
	}
	b := s2 * (1 + 2*e2*o.sky)
	c := s2 * (o.sky + o.dark + o.read + e2*o.sky*o.sky)

	signal := (b + math.Sqrt(b*b+4*a*c)) / (2 * a)
	if math.IsNaN(signal) || math.IsInf(signal, 0) || signal <= 0 {
		return 0, numericalErrorf("no positive signal reaches S/N %g (solution %g e-)", s, signal)
	}
	return signal, nil
}
