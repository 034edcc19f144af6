package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/star/hawkietc/internal/app"
	"github.com/star/hawkietc/internal/config"
	"github.com/star/hawkietc/internal/etc"
	"github.com/star/hawkietc/internal/logging"
	"github.com/star/hawkietc/internal/metrics"
)

const (
	outputText = "text"
	outputJSON = "json"
)

// cli holds the state shared by all subcommands.
type cli struct {
	v       *viper.Viper
	cfgFile string
	offline bool
	output  string

	cfg    *config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{v: config.New()}

	root := &cobra.Command{
		Use:           "hawkietc",
		Short:         "Exposure time calculator for the HAWK-I imager on the VLT",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.setup(cmd)
		},
		PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
			return c.writeMetrics()
		},
	}

	def := config.Default()
	pf := root.PersistentFlags()
	pf.StringVar(&c.cfgFile, "config", "", "YAML config file")
	pf.BoolVar(&c.offline, "offline", false, "use the offline sky table instead of SkyCalc")
	pf.StringVarP(&c.output, "output", "o", outputText, "output format: text or json")

	pf.String(config.FlagName("log.level"), def.Log.Level, "log level: debug, info, warn, error")
	pf.String(config.FlagName("log.format"), def.Log.Format, "log format: console or json")
	pf.String(config.FlagName("sky.mode"), def.Sky.Mode, "sky source: skycalc or table")
	pf.String(config.FlagName("sky.url"), def.Sky.URL, "SkyCalc endpoint")
	pf.Duration(config.FlagName("sky.timeout"), def.Sky.Timeout, "SkyCalc request timeout")
	pf.Uint(config.FlagName("sky.max_tries"), def.Sky.MaxTries, "SkyCalc attempts per lookup")
	pf.Duration(config.FlagName("sky.retry_interval"), def.Sky.RetryInterval, "initial SkyCalc retry delay")
	pf.String(config.FlagName("sky.table_file"), def.Sky.TableFile, "YAML sky table for table mode")
	pf.Float64(config.FlagName("instrument.systematic_fraction"), def.Instrument.SystematicFraction, "flat-field systematic noise fraction")
	pf.Float64(config.FlagName("instrument.default_dit"), def.Instrument.DefaultDIT, "default DIT in seconds")
	pf.String(config.FlagName("metrics.textfile"), def.Metrics.Textfile, "write Prometheus metrics to this file")

	root.AddCommand(newLimitCmd(c), newSNRCmd(c), newFiltersCmd(c))
	return root
}

func (c *cli) setup(cmd *cobra.Command) error {
	if err := config.BindFlags(c.v, cmd.Flags()); err != nil {
		return err
	}
	if c.offline {
		c.v.Set("sky.mode", config.SkyModeTable)
	}
	if c.output != outputText && c.output != outputJSON {
		return fmt.Errorf("%w: unknown output format %q", etc.ErrConfiguration, c.output)
	}

	cfg, err := config.Load(c.v, c.cfgFile)
	if err != nil {
		return fmt.Errorf("%w: %w", etc.ErrConfiguration, err)
	}
	logger, err := logging.New(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return fmt.Errorf("%w: %w", etc.ErrConfiguration, err)
	}
	c.cfg = cfg
	c.logger = logger
	c.logger.Debug("configuration loaded", "file", c.v.ConfigFileUsed(), "sky_mode", cfg.Sky.Mode)
	return nil
}

func (c *cli) calculator() (*etc.Calculator, error) {
	return app.NewCalculator(c.cfg, c.logger)
}

func (c *cli) writeMetrics() error {
	if c.cfg == nil || c.cfg.Metrics.Textfile == "" {
		return nil
	}
	if err := metrics.WriteTextfile(c.cfg.Metrics.Textfile); err != nil {
		return fmt.Errorf("writing metrics: %w", err)
	}
	c.logger.Debug("metrics written", "file", c.cfg.Metrics.Textfile)
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
