// Package app wires configuration into a ready Calculator.
package app

import (
	"fmt"
	"log/slog"

	"github.com/star/hawkietc/internal/config"
	"github.com/star/hawkietc/internal/etc"
	"github.com/star/hawkietc/internal/instrument"
	"github.com/star/hawkietc/internal/sky"
)

// NewSource builds the sky background source selected by cfg.
func NewSource(cfg config.SkyConfig, logger *slog.Logger) (sky.Source, error) {
	switch cfg.Mode {
	case config.SkyModeTable:
		if cfg.TableFile == "" {
			logger.Info("using built-in sky table")
			return sky.DefaultTable(), nil
		}
		t, err := sky.LoadTable(cfg.TableFile)
		if err != nil {
			return nil, err
		}
		logger.Info("loaded sky table", "file", cfg.TableFile, "filters", t.Filters())
		return t, nil

	case config.SkyModeSkyCalc:
		client := sky.NewSkyCalc(cfg.URL, logger, sky.WithTimeout(cfg.Timeout))
		logger.Info("sky config",
			"mode", cfg.Mode,
			"url", client.URL(),
			"timeout_seconds", cfg.Timeout.Seconds(),
			"max_tries", cfg.MaxTries,
			"retry_interval_seconds", cfg.RetryInterval.Seconds(),
		)
		return sky.NewRetrying(client, cfg.MaxTries, cfg.RetryInterval, logger), nil

	default:
		return nil, fmt.Errorf("unknown sky mode %q", cfg.Mode)
	}
}

// NewCalculator builds the HAWK-I calculator described by cfg.
func NewCalculator(cfg *config.Config, logger *slog.Logger) (*etc.Calculator, error) {
	source, err := NewSource(cfg.Sky, logger)
	if err != nil {
		return nil, fmt.Errorf("%w: sky source: %w", etc.ErrConfiguration, err)
	}
	model := instrument.NewHawkI(instrument.WithSystematicFraction(cfg.Instrument.SystematicFraction))
	return etc.NewCalculator(model, source, logger, etc.WithDefaultDIT(cfg.Instrument.DefaultDIT)), nil
}
