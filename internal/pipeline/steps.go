package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/nao1215/regionspider/internal/config"
	"github.com/nao1215/regionspider/internal/export"
	"github.com/nao1215/regionspider/internal/model"
)

// StandardLocator finds the newest standard on an index page.
// *crawler.Locator implements it.
type StandardLocator interface {
	Locate(ctx context.Context, indexURL string) (model.Standard, error)
}

// RegionWalker collects the regions of a standard.
// *crawler.Spider implements it.
type RegionWalker interface {
	Walk(ctx context.Context, startURL string, maxLevel int) ([]model.Region, error)
}

// CrawlStore persists a finished crawl.
// *database.RegionDB implements it.
type CrawlStore interface {
	SaveCrawl(ctx context.Context, result *model.CrawlResult) (string, error)
}

// StoreOpener opens the crawl store when it is first needed.
// A store that implements io.Closer is closed once the crawl is saved.
type StoreOpener func(ctx context.Context) (CrawlStore, error)

// LocateStep finds the standard to crawl.
type LocateStep struct {
	locator  StandardLocator
	indexURL string
	logger   *slog.Logger
}

// NewLocateStep creates a step that reads the index at indexURL.
func NewLocateStep(locator StandardLocator, indexURL string, logger *slog.Logger) *LocateStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &LocateStep{locator: locator, indexURL: indexURL, logger: logger}
}

// Name returns the step name.
func (s *LocateStep) Name() string {
	return "locate"
}

// Do sets result.Standard. crawler.ErrNoStandard is returned unwrapped so
// that callers can tell an empty index from a failure.
func (s *LocateStep) Do(ctx context.Context, result *model.CrawlResult) error {
	standard, err := s.locator.Locate(ctx, s.indexURL)
	if err != nil {
		return err
	}
	result.Standard = standard

	s.logger.Info("located standard",
		"url", standard.URL,
		"date", standard.Date,
	)
	return nil
}

// WalkStep collects the regions of the located standard.
type WalkStep struct {
	walker RegionWalker
	logger *slog.Logger
}

// NewWalkStep creates a step that walks with walker.
func NewWalkStep(walker RegionWalker, logger *slog.Logger) *WalkStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &WalkStep{walker: walker, logger: logger}
}

// Name returns the step name.
func (s *WalkStep) Name() string {
	return "walk"
}

// Do sets result.Regions and result.FinishedAt.
func (s *WalkStep) Do(ctx context.Context, result *model.CrawlResult) error {
	if result.Standard.URL == "" {
		return errors.New("walk step requires a located standard")
	}

	regions, err := s.walker.Walk(ctx, result.Standard.URL, result.MaxLevel)
	if err != nil {
		return err
	}
	result.Regions = regions
	result.FinishedAt = time.Now()

	counts := model.CountByLevel(regions)
	attrs := []any{"total", len(regions), "elapsed", result.Elapsed().Round(time.Millisecond)}
	for _, level := range model.Levels() {
		if counts[level] > 0 {
			attrs = append(attrs, level.CSSName(), counts[level])
		}
	}
	s.logger.Info("walk finished", attrs...)
	return nil
}

// ExportStep writes the collected regions to files.
type ExportStep struct {
	csvPath      string
	xlsxPath     string
	markdownPath string
	logger       *slog.Logger
}

// ExportStepOption configures an ExportStep.
type ExportStepOption func(*ExportStep)

// WithCSVPath sets the CSV output path. When empty, the path is derived
// from the standard's publication date.
func WithCSVPath(path string) ExportStepOption {
	return func(s *ExportStep) {
		s.csvPath = path
	}
}

// WithXLSXPath enables the XLSX export.
func WithXLSXPath(path string) ExportStepOption {
	return func(s *ExportStep) {
		s.xlsxPath = path
	}
}

// WithMarkdownPath enables the Markdown summary.
func WithMarkdownPath(path string) ExportStepOption {
	return func(s *ExportStep) {
		s.markdownPath = path
	}
}

// WithExportLogger sets a custom logger for the export step.
func WithExportLogger(logger *slog.Logger) ExportStepOption {
	return func(s *ExportStep) {
		s.logger = logger
	}
}

// NewExportStep creates an export step.
func NewExportStep(opts ...ExportStepOption) *ExportStep {
	s := &ExportStep{logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *ExportStep) Name() string {
	return "export"
}

// Do builds result.Rows, writes every configured file, and records the
// written paths in result.Outputs. The CSV file is always written.
func (s *ExportStep) Do(ctx context.Context, result *model.CrawlResult) error {
	result.Rows = export.BuildRows(result.Regions, result.Standard)

	csvPath := s.csvPath
	if csvPath == "" {
		csvPath = config.DefaultCSVFile(result.Standard.Date)
	}

	targets := []export.Target{{Path: csvPath, Format: export.FormatCSV}}
	if s.xlsxPath != "" {
		targets = append(targets, export.Target{Path: s.xlsxPath, Format: export.FormatXLSX})
	}
	if s.markdownPath != "" {
		targets = append(targets, export.Target{Path: s.markdownPath, Format: export.FormatMarkdown})
	}

	if err := export.WriteFiles(ctx, result, targets...); err != nil {
		return err
	}

	for _, target := range targets {
		result.Outputs = append(result.Outputs, target.Path)
		s.logger.Info("wrote file",
			"format", target.Format.String(),
			"path", target.Path,
			"rows", len(result.Rows),
		)
	}
	return nil
}

// PersistStep stores the crawl history.
type PersistStep struct {
	store  CrawlStore
	open   StoreOpener
	logger *slog.Logger
}

// NewPersistStep creates a step that saves crawls to store.
// The caller keeps ownership of store.
func NewPersistStep(store CrawlStore, logger *slog.Logger) *PersistStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &PersistStep{store: store, logger: logger}
}

// NewDeferredPersistStep creates a step that opens its store with open when
// it runs, so a crawl that stops earlier never touches the database.
func NewDeferredPersistStep(open StoreOpener, logger *slog.Logger) *PersistStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &PersistStep{open: open, logger: logger}
}

// Name returns the step name.
func (s *PersistStep) Name() string {
	return "persist"
}

// Do saves result and sets result.CrawlID.
func (s *PersistStep) Do(ctx context.Context, result *model.CrawlResult) (err error) {
	if result.Rows == nil {
		result.Rows = export.BuildRows(result.Regions, result.Standard)
	}

	store := s.store
	if s.open != nil {
		if store, err = s.open(ctx); err != nil {
			return err
		}
		if closer, ok := store.(io.Closer); ok {
			defer func() {
				if cerr := closer.Close(); cerr != nil && err == nil {
					err = fmt.Errorf("failed to close crawl store: %w", cerr)
				}
			}()
		}
	}

	id, err := store.SaveCrawl(ctx, result)
	if err != nil {
		return fmt.Errorf("failed to save crawl history: %w", err)
	}
	result.CrawlID = id

	s.logger.Info("saved crawl", "id", id, "rows", len(result.Rows))
	return nil
}
