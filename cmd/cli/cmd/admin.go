package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Run a snapshot of every hub now",
	Long: `Refresh the order snapshot, compute the report for every configured hub
and export the configured tables. Subcommands inspect and control the
scheduled snapshots.`,
	Args: cobra.NoArgs,
	RunE: runSnapshot,
}

var snapshotStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the snapshot scheduler state",
	Args:  cobra.NoArgs,
	RunE:  runSnapshotStatus,
}

var snapshotPauseCmd = &cobra.Command{
	Use:   "pause",
	Short: "Pause scheduled snapshots",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return toggleSnapshots(cmd, true)
	},
}

var snapshotResumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Resume scheduled snapshots",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return toggleSnapshots(cmd, false)
	},
}

var cacheCmd = &cobra.Command{
	Use:   "invalidate-cache",
	Short: "Drop the server's cached order snapshot",
	Args:  cobra.NoArgs,
	RunE:  runInvalidateCache,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the server's report configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfig,
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the server is up",
	Args:  cobra.NoArgs,
	RunE:  runHealth,
}

func init() {
	snapshotCmd.AddCommand(snapshotStatusCmd, snapshotPauseCmd, snapshotResumeCmd)
	rootCmd.AddCommand(snapshotCmd, cacheCmd, configCmd, healthCmd)
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	cfg, formatter, client, err := initializeClient(cmd)
	if err != nil {
		return err
	}

	stop := startSpinner(cfg, "Running snapshot")
	summary, err := client.RunSnapshot(cmd.Context())
	stop()
	if err != nil {
		formatter.PrintError(err)
		return err
	}

	if err := formatter.PrintSnapshotSummary(summary); err != nil {
		return err
	}
	if summary.Failures > 0 {
		return fmt.Errorf("snapshot finished with %d failures", summary.Failures)
	}
	return nil
}

func runSnapshotStatus(cmd *cobra.Command, args []string) error {
	_, formatter, client, err := initializeClient(cmd)
	if err != nil {
		return err
	}

	status, err := client.SnapshotStatus(cmd.Context())
	if err != nil {
		formatter.PrintError(err)
		return err
	}
	return formatter.PrintSnapshotStatus(status)
}

func toggleSnapshots(cmd *cobra.Command, pause bool) error {
	_, formatter, client, err := initializeClient(cmd)
	if err != nil {
		return err
	}

	if pause {
		err = client.PauseSnapshots(cmd.Context())
	} else {
		err = client.ResumeSnapshots(cmd.Context())
	}
	if err != nil {
		formatter.PrintError(err)
		return err
	}

	if pause {
		formatter.PrintSuccess("Scheduled snapshots paused")
	} else {
		formatter.PrintSuccess("Scheduled snapshots resumed")
	}
	return nil
}

func runInvalidateCache(cmd *cobra.Command, args []string) error {
	_, formatter, client, err := initializeClient(cmd)
	if err != nil {
		return err
	}

	resp, err := client.InvalidateCache(cmd.Context())
	if err != nil {
		formatter.PrintError(err)
		return err
	}

	if resp.Invalidated {
		formatter.PrintSuccess(fmt.Sprintf("Dropped cached snapshot of %s (age %s)", resp.Source, resp.Age))
	} else {
		formatter.PrintInfo(fmt.Sprintf("No cached snapshot of %s", resp.Source))
	}
	return nil
}

func runConfig(cmd *cobra.Command, args []string) error {
	_, formatter, client, err := initializeClient(cmd)
	if err != nil {
		return err
	}

	cfg, err := client.Config(cmd.Context())
	if err != nil {
		formatter.PrintError(err)
		return err
	}
	return formatter.PrintConfig(cfg)
}

func runHealth(cmd *cobra.Command, args []string) error {
	_, formatter, client, err := initializeClient(cmd)
	if err != nil {
		return err
	}

	health, err := client.Health(cmd.Context())
	if err != nil {
		formatter.PrintError(err)
		return err
	}
	formatter.PrintSuccess(fmt.Sprintf("Server %s (database %s, source %s)", health.Status, health.Database, health.Source))
	return nil
}
