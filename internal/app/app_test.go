package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/star/hawkietc/internal/config"
	"github.com/star/hawkietc/internal/etc"
	"github.com/star/hawkietc/internal/sky"
)

var testLogger = slog.New(slog.NewJSONHandler(io.Discard, nil))

func TestNewSource(t *testing.T) {
	cfg := config.Default().Sky

	src, err := NewSource(cfg, testLogger)
	require.NoError(t, err)
	assert.IsType(t, &sky.Retrying{}, src)
	assert.Equal(t, "skycalc", src.Name())

	cfg.Mode = config.SkyModeTable
	src, err = NewSource(cfg, testLogger)
	require.NoError(t, err)
	assert.Equal(t, "table", src.Name())

	path := filepath.Join(t.TempDir(), "sky.yaml")
	require.NoError(t, os.WriteFile(path, []byte("filters:\n  Ks: 12.9\n"), 0o600))
	cfg.TableFile = path
	src, err = NewSource(cfg, testLogger)
	require.NoError(t, err)
	require.IsType(t, &sky.Table{}, src)
	assert.Equal(t, []string{"Ks"}, src.(*sky.Table).Filters())

	cfg.TableFile = filepath.Join(t.TempDir(), "missing.yaml")
	_, err = NewSource(cfg, testLogger)
	assert.Error(t, err)

	cfg.Mode = "live"
	_, err = NewSource(cfg, testLogger)
	assert.Error(t, err)
}

func TestNewCalculatorOffline(t *testing.T) {
	cfg := config.Default()
	cfg.Sky.Mode = config.SkyModeTable
	cfg.Instrument.DefaultDIT = 30

	calc, err := NewCalculator(&cfg, testLogger)
	require.NoError(t, err)

	res, err := calc.LimitingMagnitude(context.Background(), etc.Request{
		Filter: "Ks", ExposureTime: 3600, Percentile: 50, TargetSNR: 5,
	})
	require.NoError(t, err)
	assert.Equal(t, 120.0, res.NDIT)
	assert.InDelta(t, 22.3, res.LimitingMagnitude, 0.3)
}

func TestNewCalculatorSkyCalcRetries(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Sky.URL = server.URL
	cfg.Sky.MaxTries = 3
	cfg.Sky.RetryInterval = time.Millisecond

	calc, err := NewCalculator(&cfg, testLogger)
	require.NoError(t, err)

	_, err = calc.LimitingMagnitude(context.Background(), etc.Request{
		Filter: "J", ExposureTime: 600, Percentile: 30, TargetSNR: 10,
	})
	assert.ErrorIs(t, err, etc.ErrNetwork)
	assert.Equal(t, int32(3), calls.Load())
}
