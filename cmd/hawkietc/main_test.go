package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/star/hawkietc/internal/etc"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), err
}

func TestLimitJSON(t *testing.T) {
	out, err := run(t, "limit", "--offline", "--log-level", "error",
		"--filter", "K", "--exptime", "3600", "--percentile", "50", "--snr", "5", "-o", "json")
	require.NoError(t, err)

	var res etc.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "Ks", res.Filter)
	assert.InDelta(t, 22.3, res.LimitingMagnitude, 0.3)
	assert.InDelta(t, 5, res.SNR, 1e-9)
	assert.Equal(t, "table", res.SkySource)
}

func TestLimitText(t *testing.T) {
	out, err := run(t, "limit", "--offline", "--log-level", "error", "--filter", "J", "--mag-system", "ab")
	require.NoError(t, err)
	assert.Contains(t, out, "Limiting magnitude")
	assert.Contains(t, out, " ab (")
}

func TestLimitWithTarget(t *testing.T) {
	out, err := run(t, "limit", "--offline", "--log-level", "error", "-o", "json",
		"--ra", "83.8", "--dec", "-5.4", "--time", "2025-12-15T04:00:00Z")
	require.NoError(t, err)

	var res etc.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.NotNil(t, res.Pointing)
	assert.GreaterOrEqual(t, res.Airmass, 1.0)
	assert.Greater(t, res.Pointing.JulianDate, 2461000.0)
}

func TestSNRCurveText(t *testing.T) {
	out, err := run(t, "snr", "--offline", "--log-level", "error", "--mag", "18", "--mag", "20", "--mag", "22")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "S/N")
	assert.Contains(t, lines[1], "18.000 mag (vega)")
}

func TestSNRSingleJSON(t *testing.T) {
	out, err := run(t, "snr", "--offline", "--log-level", "error", "-o", "json", "--mag", "1e-5", "--unit", "jy")
	require.NoError(t, err)

	var res etc.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.NotNil(t, res.Brightness)
	assert.Greater(t, res.SNR, 0.0)
}

func TestFilters(t *testing.T) {
	out, err := run(t, "filters", "--log-level", "error")
	require.NoError(t, err)
	for _, name := range []string{"Y", "NB1060", "J", "H", "Ks", "BrGamma"} {
		assert.Contains(t, out, name)
	}
}

func TestMetricsTextfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hawkietc.prom")
	_, err := run(t, "limit", "--offline", "--log-level", "error", "--metrics-textfile", path)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hawkietc_calculations_total")
}

func TestErrorsMapToExitCodes(t *testing.T) {
	quiet := []string{"--log-level", "error"}
	tests := []struct {
		args []string
		code int
	}{
		{append([]string{"limit", "--offline", "--filter", "Z"}, quiet...), exitConfiguration},
		{append([]string{"limit", "--offline", "--exptime", "0"}, quiet...), exitConfiguration},
		{append([]string{"limit", "--offline", "--percentile", "40"}, quiet...), exitConfiguration},
		{append([]string{"limit", "--offline", "--ra", "10"}, quiet...), exitConfiguration},
		{append([]string{"limit", "--offline", "-o", "xml"}, quiet...), exitConfiguration},
		{[]string{"limit", "--offline", "--log-level", "verbose"}, exitConfiguration},
		{append([]string{"limit", "--offline", "--instrument-systematic-fraction", "0.5"}, quiet...), exitNumerical},
		{append([]string{"limit", "--sky-url", "http://127.0.0.1:1", "--sky-max-tries", "1"}, quiet...), exitNetwork},
	}
	for _, tt := range tests {
		t.Run(strings.Join(tt.args, " "), func(t *testing.T) {
			_, err := run(t, tt.args...)
			require.Error(t, err)
			assert.Equal(t, tt.code, exitCode(err), "%v", err)
		})
	}

	assert.Equal(t, exitError, exitCode(errors.New("boom")))
	assert.Equal(t, exitNetwork, exitCode(fmt.Errorf("wrapped: %w", etc.ErrNetwork)))
}
