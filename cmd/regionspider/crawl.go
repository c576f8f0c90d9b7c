package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/regionspider/internal/config"
	"github.com/nao1215/regionspider/internal/crawler"
	"github.com/nao1215/regionspider/internal/database"
	"github.com/nao1215/regionspider/internal/log"
	"github.com/nao1215/regionspider/internal/model"
	"github.com/nao1215/regionspider/internal/pipeline"
	"github.com/nao1215/regionspider/internal/transport"
)

// runCrawlCmd executes the root command.
func runCrawlCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := log.NewSecureLogger(os.Stderr, cfg.Verbose)
	slog.SetDefault(logger)

	// Set up context with signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Info("received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return runCrawl(ctx, cfg, nil, logger, cmd.OutOrStdout())
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// loadBaseConfig builds the configuration shared by all commands:
// defaults, then the configuration file, then the environment, then the
// global flags.
func loadBaseConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.Verbose = getVerboseFlag(cmd)

	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	cfg.ConfigFilePath = configPath

	if err := config.Load(cfg); err != nil {
		return nil, err
	}
	config.LoadEnv(cfg)

	if cmd.Flags().Changed("db") {
		if cfg.DatabaseDSN, err = cmd.Flags().GetString("db"); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// buildConfig creates the crawl configuration. Flags override the
// configuration file and the environment only when given explicitly.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := loadBaseConfig(cmd)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()

	if cfg.CSVFile, err = flags.GetString("csv_file"); err != nil {
		return nil, err
	}
	if cfg.XLSXFile, err = flags.GetString("xlsx_file"); err != nil {
		return nil, err
	}
	if cfg.MarkdownFile, err = flags.GetString("markdown_file"); err != nil {
		return nil, err
	}

	noDB, err := flags.GetBool("no-db")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noDB

	if flags.Changed("level") {
		if cfg.Level, err = flags.GetInt("level"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("timeout") {
		if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("root-url") {
		if cfg.RootURL, err = flags.GetString("root-url"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("proxy") {
		if cfg.Proxy, err = flags.GetString("proxy"); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// runCrawl runs one crawl and reports the outcome on out.
// httpClient may be nil to build one from the proxy configuration.
//
// An index without any standard is not an error: nothing is written and
// runCrawl returns nil.
func runCrawl(ctx context.Context, cfg *config.Config, httpClient *http.Client, logger *slog.Logger, out io.Writer) error {
	logger.Info("starting crawl",
		"root", cfg.RootURL,
		"level", cfg.Level,
		"saveToDB", cfg.SaveToDB,
	)

	if httpClient == nil {
		client, err := newHTTPClient(ctx, cfg, logger)
		if err != nil {
			return err
		}
		httpClient = client
	}

	fetcher, err := crawler.NewFetcher(httpClient,
		crawler.WithUserAgent(cfg.UserAgent),
		crawler.WithCookie(cfg.Cookie),
		crawler.WithHeaders(cfg.Headers),
		crawler.WithEncoding(cfg.Encoding),
		crawler.WithMaxBodySize(cfg.MaxBodySize),
		crawler.WithTimeout(cfg.Timeout),
		crawler.WithFetcherLogger(logger),
	)
	if err != nil {
		return fmt.Errorf("failed to create fetcher: %w", err)
	}

	spider := crawler.NewSpider(fetcher,
		crawler.WithSelectors(cfg.Selectors),
		crawler.WithLogger(logger),
		crawler.WithProgress(func(r model.Region) {
			parent, _ := r.Parent()
			logger.Debug("region",
				"code", r.Code,
				"name", r.Name,
				"type", r.Level.String(),
				"parent_code", parent,
			)
		}),
	)

	p := pipeline.New(pipeline.WithLogger(logger))
	p.AddSteps(
		pipeline.NewLocateStep(crawler.NewLocator(fetcher), cfg.RootURL, logger),
		pipeline.NewWalkStep(spider, logger),
		pipeline.NewExportStep(
			pipeline.WithCSVPath(cfg.CSVFile),
			pipeline.WithXLSXPath(cfg.XLSXFile),
			pipeline.WithMarkdownPath(cfg.MarkdownFile),
			pipeline.WithExportLogger(logger),
		),
	)

	if cfg.SaveToDB {
		p.AddStep(pipeline.NewDeferredPersistStep(func(ctx context.Context) (pipeline.CrawlStore, error) {
			db, err := database.Open(ctx, cfg.DatabaseDSN)
			if err != nil {
				return nil, fmt.Errorf("failed to open database: %w", err)
			}
			logger.Info("database opened", "dsn", cfg.DatabaseDSN)
			return db, nil
		}, logger))
	}

	result := model.NewCrawlResult(cfg.Level)
	if err := p.Execute(ctx, result); err != nil {
		if errors.Is(err, crawler.ErrNoStandard) {
			logger.Info("nothing to export", "root", cfg.RootURL, "reason", err)
			return nil
		}
		return err
	}
	logger.Info("crawl finished",
		"pages", spider.PagesFetched(),
		"regions", len(result.Regions),
	)

	fmt.Fprintf(out, "Total time: %s\n", result.Elapsed().Round(time.Millisecond))
	fmt.Fprintf(out, "Exported region data to %s\n", result.Outputs[0])
	for _, path := range result.Outputs[1:] {
		fmt.Fprintf(out, "Wrote %s\n", path)
	}
	if result.CrawlID != "" {
		fmt.Fprintf(out, "Saved crawl history: %s (%d regions)\n", result.CrawlID, len(result.Rows))
	}
	return nil
}

// newHTTPClient builds the crawl client. A configured proxy is checked
// before the crawl starts.
func newHTTPClient(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*http.Client, error) {
	if cfg.Proxy != "" {
		if err := transport.CheckProxy(ctx, cfg.Proxy); err != nil {
			return nil, err
		}
		logger.Info("using proxy", "proxy", cfg.Proxy)
	}

	client, err := transport.NewHTTPClient(transport.WithProxy(cfg.Proxy))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}
	return client, nil
}
