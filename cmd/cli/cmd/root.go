package cmd

import (
	"context"
	"os"
	"time"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	cliapi "order-analysis/internal/cli"
	"order-analysis/internal/config"
)

var (
	cfgFile   string
	serverURL string
	format    string
	quiet     bool
	noColor   bool
	timeout   time.Duration
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "order-report",
	Short: "CLI client for the order analysis API",
	Long: `Order Report renders the daily delivery reports computed by the order
analysis server: driver, hub and vehicle summaries, time-bucket distributions
and exports. It also triggers snapshots and inspects the run history.`,
	Version:       "1.0.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := fang.Execute(context.Background(), rootCmd); err != nil {
		os.Exit(1)
	}
}

func init() {
	// Global flags. Defaults come from the config file and ORDER_REPORT_* env.
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./cli.yaml or $HOME/.order-report/cli.yaml)")
	rootCmd.PersistentFlags().StringVarP(&serverURL, "server", "s", "", "API server address")
	rootCmd.PersistentFlags().StringVarP(&format, "format", "f", "", "Output format (table, json, csv)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Quiet mode (rows only)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable color output")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "Request timeout")
}

// loadConfig reads the CLI config and applies explicitly set flags on top.
func loadConfig(cmd *cobra.Command) (*cliapi.Config, error) {
	var (
		cfg *cliapi.Config
		err error
	)
	if cfgFile != "" {
		cfg, err = config.LoadCLIConfigWithFile(cfgFile)
	} else {
		cfg, err = config.LoadCLIConfig()
	}
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("server") {
		cfg.ServerURL = serverURL
	}
	if flags.Changed("format") {
		cfg.Format = format
	}
	if flags.Changed("quiet") {
		cfg.Quiet = quiet
	}
	if flags.Changed("no-color") {
		cfg.NoColor = noColor
	}
	if flags.Changed("timeout") {
		cfg.RequestTimeout = timeout
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// initializeClient sets up configuration, formatter, and API client
func initializeClient(cmd *cobra.Command) (*cliapi.Config, *cliapi.OutputFormatter, *cliapi.Client, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, nil, err
	}

	formatter := cliapi.NewOutputFormatter(cfg.Format, cfg.Quiet, cfg.NoColor)
	client := cliapi.NewClient(cfg.ServerURL, cfg.RequestTimeout,
		cliapi.WithAPIKey(cfg.APIKey),
		cliapi.WithRetries(2, 500*time.Millisecond))

	return cfg, formatter, client, nil
}

// reportFlags are shared by every command that selects a report.
type reportFlags struct {
	date    string
	hub     string
	refresh bool
}

func (f *reportFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.date, "date", "d", "", "Report date (YYYY-MM-DD, default today)")
	cmd.Flags().StringVarP(&f.hub, "hub", "H", "", "Delivery hub (default the first configured hub)")
	cmd.Flags().BoolVar(&f.refresh, "refresh", false, "Re-fetch the order snapshot before computing")
}

func (f *reportFlags) query() cliapi.ReportQuery {
	return cliapi.ReportQuery{Date: f.date, Hub: f.hub, Refresh: f.refresh}
}

// startSpinner shows progress for slow calls when the output is an
// interactive table. The returned func stops it.
func startSpinner(cfg *cliapi.Config, message string) func() {
	if cfg.Quiet || cfg.Format != cliapi.FormatTable {
		return func() {}
	}
	spinner := cliapi.NewProgressSpinner(message, cfg.NoColor)
	spinner.Start()
	return spinner.Stop
}
