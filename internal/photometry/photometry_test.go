package photometry

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBand struct {
	offset   float64
	integral float64
}

func (b fakeBand) VegaABOffset() float64   { return b.offset }
func (b fakeBand) PhotonIntegral() float64 { return b.integral }

// ks approximates HAWK-I Ks: offset 1.85, 0.85 * 0.324 / 2.146.
var ks = fakeBand{offset: 1.85, integral: 0.85 * 0.324 / 2.146}

func TestParseUnit(t *testing.T) {
	tests := []struct {
		in   string
		want Unit
	}{
		{"", VegaMag},
		{"vega", VegaMag},
		{"VEGA", VegaMag},
		{"mag", VegaMag},
		{"ab", ABMag},
		{"ABmag", ABMag},
		{"jy", Jansky},
		{"Jansky", Jansky},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseUnit(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseUnit("erg")
	assert.ErrorIs(t, err, ErrUnknownUnit)
}

func TestFluxDensity(t *testing.T) {
	jy, err := AB(0).FluxDensity(ks)
	require.NoError(t, err)
	assert.InDelta(t, 3631, jy, 1e-9)

	// Vega zero point in Ks sits 1.85 mag below the AB zero point.
	jy, err = Vega(0).FluxDensity(ks)
	require.NoError(t, err)
	assert.InDelta(t, 3631*math.Pow(10, -0.74), jy, 1e-6)
	assert.InDelta(t, 660.8, jy, 0.5)

	jy, err = Jy(1.5).FluxDensity(ks)
	require.NoError(t, err)
	assert.Equal(t, 1.5, jy)

	_, err = Jy(-1).FluxDensity(ks)
	assert.ErrorIs(t, err, ErrNonPositiveFlux)

	_, err = Vega(math.NaN()).FluxDensity(ks)
	assert.Error(t, err)
}

func TestFiveMagnitudesIsFactorHundred(t *testing.T) {
	a, err := Vega(15).PhotonRate(ks)
	require.NoError(t, err)
	b, err := Vega(20).PhotonRate(ks)
	require.NoError(t, err)
	assert.InDelta(t, 100, a/b, 1e-9)
}

func TestPhotonRateKsZeroPoint(t *testing.T) {
	// A 0 mag Vega source in Ks delivers roughly 1.3e9 photons/s/m^2 through
	// a filter with 85% plateau transmission.
	rate, err := Vega(0).PhotonRate(ks)
	require.NoError(t, err)
	assert.InEpsilon(t, 1.28e9, rate, 0.02)
}

func TestRoundTrip(t *testing.T) {
	for _, u := range []Unit{VegaMag, ABMag} {
		for _, m := range []float64{-1, 0, 12.5, 22.3, 27} {
			in := Brightness{Value: m, Unit: u}
			rate, err := in.PhotonRate(ks)
			require.NoError(t, err)

			out, err := FromFluxDensity(FluxDensityFromPhotonRate(rate, ks), u, ks)
			require.NoError(t, err)
			assert.Equal(t, u, out.Unit)
			assert.InDelta(t, m, out.Value, 1e-9, "unit %s mag %g", u, m)
		}
	}
}

func TestVegaABConversion(t *testing.T) {
	jy, err := Vega(20).FluxDensity(ks)
	require.NoError(t, err)

	ab, err := FromFluxDensity(jy, ABMag, ks)
	require.NoError(t, err)
	assert.InDelta(t, 21.85, ab.Value, 1e-9)
}

func TestFromFluxDensityNonPositive(t *testing.T) {
	for _, f := range []float64{0, -3, math.NaN(), math.Inf(1)} {
		_, err := FromFluxDensity(f, VegaMag, ks)
		assert.ErrorIs(t, err, ErrNonPositiveFlux, "flux %g", f)
	}

	b, err := FromFluxDensity(2e-6, Jansky, ks)
	require.NoError(t, err)
	assert.Equal(t, Jy(2e-6), b)
}

func TestBrightnessString(t *testing.T) {
	assert.Equal(t, "22.300 mag (vega)", Vega(22.3).String())
	assert.Equal(t, "1e-06 Jy", Jy(1e-6).String())
}

func TestBrightnessJSON(t *testing.T) {
	data, err := json.Marshal(AB(21.5))
	require.NoError(t, err)
	assert.JSONEq(t, `{"value":21.5,"unit":"ab"}`, string(data))

	var b Brightness
	require.NoError(t, json.Unmarshal([]byte(`{"value":3e-6,"unit":"Jy"}`), &b))
	assert.Equal(t, Jy(3e-6), b)

	assert.Error(t, json.Unmarshal([]byte(`{"value":1,"unit":"erg"}`), &b))
}
