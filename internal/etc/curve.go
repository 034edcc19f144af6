package etc

import (
	"context"
	"math"

	"github.com/star/hawkietc/internal/metrics"
	"github.com/star/hawkietc/internal/photometry"
)

// CurvePoint is the S/N reached by one source brightness.
type CurvePoint struct {
	Brightness      photometry.Brightness `json:"brightness"`
	SourceElectrons float64               `json:"source_electrons"`
	NoiseElectrons  float64               `json:"noise_electrons"`
	SNR             float64               `json:"snr"`
}

// SNRCurve returns the S/N for each brightness under the same observing
// conditions. The sky background is looked up once.
func (c *Calculator) SNRCurve(ctx context.Context, req Request, brightness []photometry.Brightness) (points []CurvePoint, err error) {
	defer func() { metrics.RecordCalculation("curve", err) }()

	if len(brightness) == 0 {
		return nil, configErrorf("no brightness values given")
	}
	obs, err := c.prepare(ctx, req, false)
	if err != nil {
		return nil, err
	}

	points = make([]CurvePoint, 0, len(brightness))
	for _, b := range brightness {
		signal, err := obs.signal(b)
		if err != nil {
			return nil, err
		}
		points = append(points, CurvePoint{
			Brightness:      b,
			SourceElectrons: signal,
			NoiseElectrons:  math.Sqrt(obs.variance(signal)),
			SNR:             obs.snr(signal),
		})
	}

	c.logger.Debug("snr curve computed", "filter", obs.filter.Name(), "points", len(points))
	return points, nil
}
