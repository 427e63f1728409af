package cmd

import (
	"github.com/spf13/cobra"
)

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs [ID]",
	Short: "List report runs or show one run",
	Long: `List recent report computations, newest first, or show a single run
by id. Every report request and scheduled snapshot records a run.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRuns,
}

func init() {
	runsCmd.Flags().IntVarP(&runsLimit, "limit", "n", 20, "Number of runs to list")
	rootCmd.AddCommand(runsCmd)
}

func runRuns(cmd *cobra.Command, args []string) error {
	_, formatter, client, err := initializeClient(cmd)
	if err != nil {
		return err
	}

	if len(args) == 1 {
		run, err := client.Run(cmd.Context(), args[0])
		if err != nil {
			formatter.PrintError(err)
			return err
		}
		return formatter.PrintRun(run)
	}

	runs, err := client.Runs(cmd.Context(), runsLimit)
	if err != nil {
		formatter.PrintError(err)
		return err
	}
	return formatter.PrintRuns(runs)
}
