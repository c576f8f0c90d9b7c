package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nao1215/regionspider/internal/config"
)

// NewRootCmd creates the root command, which runs a crawl.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "regionspider",
		Short: "Export the statistical division codes of China to CSV",
		Long: `regionspider crawls the statistical division code directory published by
the National Bureau of Statistics of China (www.stats.gov.cn).

It locates the newest edition on the directory index, walks its listing
pages from provinces down to the requested level, and exports one row per
region to a CSV file. Every crawl is also recorded in a local history
database so editions can be compared with 'regionspider history --compare'.

Levels:
  1 province, 2 city, 3 county, 4 town, 5 village

Examples:
  # Provinces, cities and counties to region_data_<date>.csv
  regionspider

  # Everything down to villages, with an Excel copy
  regionspider --level 5 --csv_file regions.csv --xlsx_file regions.xlsx

  # Do not record the crawl
  regionspider --no-db`,
		Version:       getVersion(),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runCrawlCmd,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().StringP("config", "c", "",
		"Configuration file path (default: .regionspider in current or home directory)")
	cmd.PersistentFlags().String("db", "",
		"History database: SQLite file path or postgres:// DSN (default: XDG data directory)")

	// Crawl flags
	cmd.Flags().String("csv_file", "",
		"File to export CSV data to (default: region_data_<date>.csv)")
	cmd.Flags().Int("level", config.DefaultLevel,
		"Number of region levels to crawl (1-5)")
	cmd.Flags().String("xlsx_file", "", "Also export the regions to this XLSX file")
	cmd.Flags().String("markdown_file", "", "Also write a Markdown crawl summary to this file")
	cmd.Flags().Bool("no-db", false, "Do not record the crawl in the history database")
	cmd.Flags().Duration("timeout", config.DefaultTimeout,
		"Per-request timeout (0 disables the timeout)")
	cmd.Flags().String("root-url", config.DefaultRootURL, "Directory index URL")
	cmd.Flags().String("proxy", "",
		"Proxy URL: http://, https://, socks5:// or socks5h:// (default: proxy environment variables)")

	// Add subcommands
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
