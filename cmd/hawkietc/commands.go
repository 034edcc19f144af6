package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/star/hawkietc/internal/etc"
	"github.com/star/hawkietc/internal/instrument"
	"github.com/star/hawkietc/internal/photometry"
	"github.com/star/hawkietc/internal/site"
	"github.com/star/hawkietc/internal/sky"
)

// requestFlags are the observation flags shared by limit and snr.
type requestFlags struct {
	filter        string
	exptime       float64
	dit           float64
	percentile    int
	snr           float64
	airmass       float64
	ra, dec       float64
	obsTime       string
	magSystem     string
	pwv           float64
	moonSunSep    float64
	moonTargetSep float64
	moonAlt       float64
}

func (f *requestFlags) register(fs *pflag.FlagSet, withSNR bool) {
	fs.StringVarP(&f.filter, "filter", "f", "Ks", "HAWK-I filter")
	fs.Float64VarP(&f.exptime, "exptime", "t", 3600, "total exposure time in seconds")
	fs.Float64Var(&f.dit, "dit", 0, "integration time per frame in seconds (0 uses the configured default)")
	fs.IntVarP(&f.percentile, "percentile", "p", 50, "atmospheric percentile: 10, 20, 30, 50, 70, 85 or 100")
	if withSNR {
		fs.Float64VarP(&f.snr, "snr", "s", 5, "target signal-to-noise ratio")
	}
	fs.Float64Var(&f.airmass, "airmass", 0, "airmass (default 1)")
	fs.Float64Var(&f.ra, "ra", 0, "target right ascension in degrees")
	fs.Float64Var(&f.dec, "dec", 0, "target declination in degrees")
	fs.StringVar(&f.obsTime, "time", "", "observation time, RFC 3339 (default now)")
	fs.StringVar(&f.magSystem, "mag-system", "vega", "magnitude system of the result: vega or ab")
	fs.Float64Var(&f.pwv, "pwv", 0, "precipitable water vapour in mm (SkyCalc only)")
	fs.Float64Var(&f.moonSunSep, "moon-sun-sep", 0, "moon-sun separation in degrees (SkyCalc only)")
	fs.Float64Var(&f.moonTargetSep, "moon-target-sep", 45, "moon-target separation in degrees (SkyCalc only)")
	fs.Float64Var(&f.moonAlt, "moon-alt", -90, "moon altitude in degrees (SkyCalc only)")
}

func (f *requestFlags) request(fs *pflag.FlagSet, now time.Time) (etc.Request, error) {
	req := etc.Request{
		Filter:       f.filter,
		ExposureTime: f.exptime,
		DIT:          f.dit,
		Percentile:   f.percentile,
		TargetSNR:    f.snr,
		Airmass:      f.airmass,
		MagSystem:    f.magSystem,
		Sky:          etc.SkyConditions{PWV: f.pwv},
	}

	if fs.Changed("ra") || fs.Changed("dec") {
		if !fs.Changed("ra") || !fs.Changed("dec") {
			return req, fmt.Errorf("%w: --ra and --dec must be given together", etc.ErrConfiguration)
		}
		req.Target = &site.Equatorial{RADeg: f.ra, DecDeg: f.dec}
		req.ObsTime = now
		if f.obsTime != "" {
			t, err := time.Parse(time.RFC3339, f.obsTime)
			if err != nil {
				return req, fmt.Errorf("%w: --time: %w", etc.ErrConfiguration, err)
			}
			req.ObsTime = t
		}
	}

	if fs.Changed("moon-sun-sep") || fs.Changed("moon-target-sep") || fs.Changed("moon-alt") {
		req.Sky.Moon = &sky.Moon{
			SunSeparation:    f.moonSunSep,
			TargetSeparation: f.moonTargetSep,
			Altitude:         f.moonAlt,
		}
	}
	return req, nil
}

func newLimitCmd(c *cli) *cobra.Command {
	var rf requestFlags
	cmd := &cobra.Command{
		Use:   "limit",
		Short: "Compute the limiting magnitude for a target S/N",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req, err := rf.request(cmd.Flags(), time.Now())
			if err != nil {
				return err
			}
			calc, err := c.calculator()
			if err != nil {
				return err
			}
			res, err := calc.LimitingMagnitude(cmd.Context(), req)
			if err != nil {
				return err
			}
			if c.output == outputJSON {
				return writeJSON(cmd.OutOrStdout(), res)
			}
			return res.Summary(cmd.OutOrStdout())
		},
	}
	rf.register(cmd.Flags(), true)
	return cmd
}

func newSNRCmd(c *cli) *cobra.Command {
	var (
		rf   requestFlags
		mags []float64
		unit string
	)
	cmd := &cobra.Command{
		Use:   "snr",
		Short: "Compute the S/N reached by one or more source brightnesses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req, err := rf.request(cmd.Flags(), time.Now())
			if err != nil {
				return err
			}
			u, err := photometry.ParseUnit(unit)
			if err != nil {
				return fmt.Errorf("%w: %w", etc.ErrConfiguration, err)
			}
			calc, err := c.calculator()
			if err != nil {
				return err
			}

			if len(mags) == 1 {
				res, err := calc.SNR(cmd.Context(), req, photometry.Brightness{Value: mags[0], Unit: u})
				if err != nil {
					return err
				}
				if c.output == outputJSON {
					return writeJSON(cmd.OutOrStdout(), res)
				}
				return res.Summary(cmd.OutOrStdout())
			}

			values := make([]photometry.Brightness, len(mags))
			for i, m := range mags {
				values[i] = photometry.Brightness{Value: m, Unit: u}
			}
			points, err := calc.SNRCurve(cmd.Context(), req, values)
			if err != nil {
				return err
			}
			if c.output == outputJSON {
				return writeJSON(cmd.OutOrStdout(), points)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "BRIGHTNESS\tSOURCE E-\tNOISE E-\tS/N")
			for _, p := range points {
				fmt.Fprintf(tw, "%s\t%.4g\t%.4g\t%.3f\n", p.Brightness, p.SourceElectrons, p.NoiseElectrons, p.SNR)
			}
			return tw.Flush()
		},
	}
	rf.register(cmd.Flags(), false)
	cmd.Flags().Float64SliceVarP(&mags, "mag", "m", []float64{20}, "source brightness; repeat for an S/N curve")
	cmd.Flags().StringVar(&unit, "unit", "vega", "brightness unit: vega, ab or jy")
	return cmd
}

type filterInfo struct {
	Name            string  `json:"name"`
	Center          float64 `json:"center_um"`
	Width           float64 `json:"width_um"`
	Peak            float64 `json:"peak"`
	VegaABOffset    float64 `json:"vega_ab_offset"`
	LimitLow        float64 `json:"limit_low_um"`
	LimitHigh       float64 `json:"limit_high_um"`
	SkyBrightness   float64 `json:"sky_mag_arcsec2"`
	PhotonsPerJy    float64 `json:"photons_per_jy"`
	ZeroPointPhoton float64 `json:"vega_zero_point_photons"`
}

func newFiltersCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "filters",
		Short: "List the HAWK-I filters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			table := sky.DefaultTable()
			var infos []filterInfo
			for _, f := range instrument.NewHawkI().Filters() {
				lo, hi := f.Limits(sky.LimitThreshold)
				mu, err := table.SurfaceBrightness(f.Name(), 1)
				if err != nil {
					return err
				}
				zp, err := photometry.Vega(0).PhotonRate(f)
				if err != nil {
					return err
				}
				infos = append(infos, filterInfo{
					Name:            f.Name(),
					Center:          f.Center(),
					Width:           f.Width(),
					Peak:            f.Peak(),
					VegaABOffset:    f.VegaABOffset(),
					LimitLow:        lo,
					LimitHigh:       hi,
					SkyBrightness:   mu,
					PhotonsPerJy:    photometry.PhotonRate(1, f),
					ZeroPointPhoton: zp,
				})
			}
			c.logger.Debug("listing filters", "count", len(infos))

			if c.output == outputJSON {
				return writeJSON(cmd.OutOrStdout(), infos)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "FILTER\tCENTER um\tFWHM um\tPEAK\tAB-VEGA\tSKY mag/arcsec2\tVEGA ZP ph/s/m2")
			for _, i := range infos {
				fmt.Fprintf(tw, "%s\t%.3f\t%.3f\t%.2f\t%.2f\t%.1f\t%.3g\n",
					i.Name, i.Center, i.Width, i.Peak, i.VegaABOffset, i.SkyBrightness, i.ZeroPointPhoton)
			}
			return tw.Flush()
		},
	}
}
