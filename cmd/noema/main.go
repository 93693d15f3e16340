package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"noema/app"
	"noema/internal"
	"noema/internal/config"
	"noema/internal/server"
)

func main() {
	// .env is optional; flags and real environment win.
	if err := godotenv.Load(); err != nil {
		internal.DefaultLogger.Debug("no .env file loaded: %v", err)
	}

	rootCmd := &cobra.Command{
		Use:   "noema",
		Short: "Unattended tabular-data reporting pipeline",
	}

	rootCmd.AddCommand(
		newAnalyzeCmd(),
		newServeCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newAnalyzeCmd() *cobra.Command {
	var (
		dataDir string
		outDir  string
		file    string
		limit   int
		clean   bool
	)

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze data files and assemble the combined report",
		Long: `Analyze every recognized data file under the data directory (or a single
named file) and write the report artifacts: per-file summary CSVs, histogram
PNGs, REPORT.md, report.html, report_summary.json, and the qd templates.

Per-file and per-column failures are reported inside the artifacts; the
command exits 0 even when zero files are found or every file fails, so
downstream automation always finds well-formed artifacts.

Example: noema analyze --n 5 --file measurements.csv --clean`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("data-dir") {
				cfg.DataDir = dataDir
			}
			if cmd.Flags().Changed("out-dir") {
				cfg.OutDir = outDir
			}
			if cmd.Flags().Changed("file") {
				cfg.FileOverride = file
			}
			if cmd.Flags().Changed("n") {
				cfg.ColumnLimit = limit
			}
			if cmd.Flags().Changed("clean") {
				cfg.Clean = clean
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger := internal.DefaultLogger
			agg, err := app.NewPipeline(*cfg, logger).Run()
			if err != nil {
				// Infrastructure failure: artifacts could not be written.
				return err
			}

			fmt.Printf("Run %s: %d file(s), %d analyzed, %d failed\n",
				agg.RunID, len(agg.Outcomes), agg.AnalyzedCount(), agg.FailedCount())
			fmt.Printf("Report written to %s\n", cfg.OutDir)
			return nil
		},
	}

	cmd.Flags().StringVar(&dataDir, "data-dir", "data", "Input directory scanned for data files")
	cmd.Flags().StringVar(&outDir, "out-dir", "reports", "Output directory for report artifacts")
	cmd.Flags().StringVar(&file, "file", "", "Optional single file under the data directory (empty = scan)")
	cmd.Flags().IntVar(&limit, "n", 0, "Max kept columns to plot per file (0 = all)")
	cmd.Flags().BoolVar(&clean, "clean", false, "Purge prior artifacts from the output directory first")

	return cmd
}

func newServeCmd() *cobra.Command {
	var (
		addr   string
		outDir string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the generated report artifacts over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.ServeAddr = addr
			}
			if cmd.Flags().Changed("out-dir") {
				cfg.OutDir = outDir
			}

			return server.New(cfg.OutDir, internal.DefaultLogger).Start(cfg.ServeAddr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "Listen address")
	cmd.Flags().StringVar(&outDir, "out-dir", "reports", "Output directory to serve")

	return cmd
}
