package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"order-analysis/internal/export"
)

var (
	exportFlags  reportFlags
	exportFormat string
	exportOutput string
)

var exportCmd = &cobra.Command{
	Use:   "export TABLE",
	Short: "Download a report table as a file",
	Long: `Download one report table rendered by the server.

Tables:  drivers, hubs, vehicles, hub-times, customer-times, customer-shares, peak-times
Formats: csv, json, html, png, parquet

The file is written to the current directory under the server's file name
unless --output names a file or directory. Use --output - for stdout.`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: export.TableNames,
	RunE:      runExport,
}

func init() {
	exportFlags.register(exportCmd)
	exportCmd.Flags().StringVar(&exportFormat, "as", export.FormatCSV, "File format (csv, json, html, png, parquet)")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file or directory")
	exportCmd.RegisterFlagCompletionFunc("as", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return export.Formats, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, formatter, client, err := initializeClient(cmd)
	if err != nil {
		return err
	}

	stop := startSpinner(cfg, fmt.Sprintf("Rendering %s as %s", args[0], exportFormat))
	body, filename, err := client.Export(cmd.Context(), args[0], exportFormat, exportFlags.query())
	stop()
	if err != nil {
		formatter.PrintError(err)
		return err
	}
	defer body.Close()

	if exportOutput == "-" {
		_, err := io.Copy(cmd.OutOrStdout(), body)
		return err
	}

	path := exportPath(exportOutput, filename)
	n, err := writeFile(path, body)
	if err != nil {
		formatter.PrintError(err)
		return err
	}

	if cfg.Quiet {
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	}
	formatter.PrintSuccess(fmt.Sprintf("Wrote %s (%d bytes)", path, n))
	return nil
}

// exportPath resolves --output against the server-provided file name.
func exportPath(output, filename string) string {
	if output == "" {
		return filename
	}
	if info, err := os.Stat(output); err == nil && info.IsDir() {
		return filepath.Join(output, filename)
	}
	return output
}

func writeFile(path string, r io.Reader) (int64, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return 0, fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", path, err)
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return n, fmt.Errorf("failed to write %s: %w", path, err)
	}
	return n, nil
}
