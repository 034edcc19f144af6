// Command example runs the reference HAWK-I calculation: Ks band, one hour,
// median conditions and S/N 5, followed by the S/N curve from 10 to 25 mag.
package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"

	"github.com/star/hawkietc/internal/app"
	"github.com/star/hawkietc/internal/config"
	"github.com/star/hawkietc/internal/etc"
	"github.com/star/hawkietc/internal/logging"
	"github.com/star/hawkietc/internal/photometry"
)

func main() {
	offline := pflag.Bool("offline", false, "use the offline sky table instead of SkyCalc")
	pflag.Parse()

	v := config.New()
	if *offline {
		v.Set("sky.mode", config.SkyModeTable)
	}
	cfg, err := config.Load(v, "")
	if err != nil {
		fmt.Println("ERROR loading config:", err)
		os.Exit(1)
	}
	logger, err := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Println("ERROR creating logger:", err)
		os.Exit(1)
	}

	calc, err := app.NewCalculator(cfg, logger)
	if err != nil {
		fmt.Println("ERROR:", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	req := etc.Request{
		Filter:       "K",
		ExposureTime: 3600,
		Percentile:   50,
		TargetSNR:    5,
	}

	res, err := calc.LimitingMagnitude(ctx, req)
	if err != nil {
		fmt.Println("ERROR computing limiting magnitude:", err)
		os.Exit(1)
	}
	if err := res.Summary(os.Stdout); err != nil {
		fmt.Println("ERROR writing summary:", err)
		os.Exit(1)
	}

	var mags []photometry.Brightness
	for m := 10.0; m <= 25; m += 0.5 {
		mags = append(mags, photometry.Vega(m))
	}
	points, err := calc.SNRCurve(ctx, req, mags)
	if err != nil {
		fmt.Println("ERROR computing S/N curve:", err)
		os.Exit(1)
	}

	fmt.Printf("\nS/N in %s after %.0f s\n", res.Filter, res.ExposureTime)
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "MAG (VEGA)\tS/N")
	for _, p := range points {
		fmt.Fprintf(tw, "%.1f\t%.2f\n", p.Brightness.Value, p.SNR)
	}
	tw.Flush()
}
