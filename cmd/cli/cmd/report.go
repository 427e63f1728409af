package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	cliapi "order-analysis/internal/cli"
	"order-analysis/internal/export"
)

var (
	driversFlags  reportFlags
	hubsFlags     reportFlags
	vehiclesFlags reportFlags
	bucketFlags   reportFlags
	reportAll     reportFlags
	bucketsBy     string
)

var driversCmd = &cobra.Command{
	Use:   "drivers",
	Short: "Driver-wise summary for one hub",
	Long: `Show delivered, unable-to-deliver, returned and out-on-road counts per
delivery associate and vehicle model for one hub and day, with a grand total.`,
	Args: cobra.NoArgs,
	RunE: runDrivers,
}

var hubsCmd = &cobra.Command{
	Use:   "hubs",
	Short: "Hub-wise summary across all hubs",
	Args:  cobra.NoArgs,
	RunE:  runHubs,
}

var vehiclesCmd = &cobra.Command{
	Use:   "vehicles",
	Short: "Bike and auto utilization per hub",
	Args:  cobra.NoArgs,
	RunE:  runVehicles,
}

var timeBucketsCmd = &cobra.Command{
	Use:     "timebuckets",
	Aliases: []string{"tb"},
	Short:   "Time-bucket distribution by hub or customer",
	Long: `Spread the day's orders across the configured time buckets.

--by hub       first out-for-delivery time per hub
--by customer  pickup time per allow-listed customer, with each customer's
               share and the peak buckets`,
	Args: cobra.NoArgs,
	RunE: runTimeBuckets,
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Every report table for one day and hub",
	Args:  cobra.NoArgs,
	RunE:  runReport,
}

func init() {
	driversFlags.register(driversCmd)
	hubsFlags.register(hubsCmd)
	vehiclesFlags.register(vehiclesCmd)
	bucketFlags.register(timeBucketsCmd)
	reportAll.register(reportCmd)
	timeBucketsCmd.Flags().StringVar(&bucketsBy, "by", "hub", "Group by hub or customer")

	rootCmd.AddCommand(driversCmd, hubsCmd, vehiclesCmd, timeBucketsCmd, reportCmd)
}

func runDrivers(cmd *cobra.Command, args []string) error {
	_, formatter, client, err := initializeClient(cmd)
	if err != nil {
		return err
	}

	summary, err := client.Drivers(cmd.Context(), driversFlags.query())
	if err != nil {
		formatter.PrintError(err)
		return err
	}
	return formatter.PrintTable(export.DriverTable(summary))
}

func runHubs(cmd *cobra.Command, args []string) error {
	_, formatter, client, err := initializeClient(cmd)
	if err != nil {
		return err
	}

	summary, err := client.Hubs(cmd.Context(), hubsFlags.query())
	if err != nil {
		formatter.PrintError(err)
		return err
	}
	return formatter.PrintTable(export.HubTable(summary))
}

func runVehicles(cmd *cobra.Command, args []string) error {
	_, formatter, client, err := initializeClient(cmd)
	if err != nil {
		return err
	}

	util, err := client.Vehicles(cmd.Context(), vehiclesFlags.query())
	if err != nil {
		formatter.PrintError(err)
		return err
	}
	return formatter.PrintTable(export.VehicleTable(util))
}

func runTimeBuckets(cmd *cobra.Command, args []string) error {
	if bucketsBy != "hub" && bucketsBy != "customer" {
		return fmt.Errorf("invalid --by %q: must be hub or customer", bucketsBy)
	}

	_, formatter, client, err := initializeClient(cmd)
	if err != nil {
		return err
	}

	if bucketsBy == "hub" {
		dist, err := client.HubTimes(cmd.Context(), bucketFlags.query())
		if err != nil {
			formatter.PrintError(err)
			return err
		}
		return formatter.PrintTable(export.HubTimeTable(dist))
	}

	dist, err := client.CustomerTimes(cmd.Context(), bucketFlags.query())
	if err != nil {
		formatter.PrintError(err)
		return err
	}
	return formatter.PrintTables([]export.Tabular{
		export.CustomerTimeTable(dist),
		export.CustomerShareTable(dist),
		export.PeakTimeTable(dist),
	})
}

func runReport(cmd *cobra.Command, args []string) error {
	cfg, formatter, client, err := initializeClient(cmd)
	if err != nil {
		return err
	}

	stop := startSpinner(cfg, "Computing report")
	result, err := client.Report(cmd.Context(), reportAll.query())
	stop()
	if err != nil {
		formatter.PrintError(err)
		return err
	}

	if !cfg.Quiet && cfg.Format == cliapi.FormatTable {
		formatter.PrintInfo(fmt.Sprintf("%d orders from %s (cached: %v)",
			result.Snapshot.Records, result.Snapshot.Source, result.Snapshot.FromCache))
	}
	return formatter.PrintTables(export.Tables(result.Report))
}
