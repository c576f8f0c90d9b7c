package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"github.com/nao1215/regionspider/internal/model"
)

// DefaultSelector returns the selector for the entries of a listing page
// at the given level, e.g. ".citytable .citytr td a".
func DefaultSelector(level model.Level) string {
	name := level.CSSName()
	return fmt.Sprintf(".%stable .%str td a", name, name)
}

// Spider walks the listing pages of one standard.
type Spider struct {
	// fetcher retrieves each listing page.
	fetcher PageFetcher

	// selectors overrides DefaultSelector per level.
	selectors map[model.Level]string

	// progress is called for every collected region.
	progress func(model.Region)

	// logger receives one debug record per listing page.
	logger *slog.Logger

	// pagesFetched counts the listing pages retrieved by the last Walk.
	pagesFetched int
}

// SpiderOption configures a Spider.
type SpiderOption func(*Spider)

// WithSelectors overrides the entry selector of some levels.
func WithSelectors(selectors map[model.Level]string) SpiderOption {
	return func(s *Spider) {
		for level, selector := range selectors {
			s.selectors[level] = selector
		}
	}
}

// WithProgress sets a callback invoked for each collected region, in
// output order.
func WithProgress(fn func(model.Region)) SpiderOption {
	return func(s *Spider) {
		s.progress = fn
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) SpiderOption {
	return func(s *Spider) {
		s.logger = logger
	}
}

// NewSpider creates a Spider that fetches pages through fetcher.
func NewSpider(fetcher PageFetcher, opts ...SpiderOption) *Spider {
	s := &Spider{
		fetcher:   fetcher,
		selectors: make(map[model.Level]string),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Selector returns the entry selector used at level.
func (s *Spider) Selector(level model.Level) string {
	if selector, ok := s.selectors[level]; ok {
		return selector
	}
	return DefaultSelector(level)
}

// PagesFetched returns the number of listing pages retrieved by the last Walk.
func (s *Spider) PagesFetched() int {
	return s.pagesFetched
}

// parentRef identifies the region a listing page belongs to.
// ok is false on the province page.
type parentRef struct {
	code string
	ok   bool
}

// Walk collects the regions reachable from startURL down to maxLevel
// levels (1 = provinces only, 5 = down to villages).
//
// Regions are returned in pre-order: each region is followed by all of its
// descendants before its next sibling. Pages are fetched one at a time and
// the first failure aborts the walk; no partial result is returned.
func (s *Spider) Walk(ctx context.Context, startURL string, maxLevel int) ([]model.Region, error) {
	if maxLevel < 1 || maxLevel > model.LevelCount {
		return nil, fmt.Errorf("%w: %d", ErrInvalidMaxLevel, maxLevel)
	}

	s.pagesFetched = 0
	regions := make([]model.Region, 0, 64)
	if err := s.walk(ctx, startURL, 0, maxLevel, parentRef{}, &regions); err != nil {
		return nil, err
	}
	return regions, nil
}

// walk processes the listing page at pageURL, which lists regions of the
// level at depth, and recurses into every linked child page.
func (s *Spider) walk(ctx context.Context, pageURL string, depth, maxLevel int, parent parentRef, out *[]model.Region) error {
	if depth >= maxLevel {
		return nil
	}
	level, ok := model.LevelAt(depth)
	if !ok {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	doc, err := s.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return fmt.Errorf("failed to crawl %s page: %w", level.CSSName(), err)
	}
	s.pagesFetched++

	entries := doc.Find(s.Selector(level))
	s.logger.Debug("listing page",
		"level", level.String(),
		"url", pageURL,
		"entries", entries.Length(),
	)

	for i := range entries.Length() {
		a := entries.Eq(i)

		name := strings.TrimSpace(a.Text())
		if isDigits(name) {
			continue
		}

		href, hasLink := a.Attr("href")
		href = strings.TrimSpace(href)
		hasLink = hasLink && href != ""

		code := model.FallbackCode
		if hasLink {
			code = codeFromHref(href)
		}

		region := model.NewRegion(code, name, level)
		if parent.ok {
			region = region.WithParent(parent.code)
		}
		*out = append(*out, region)
		if s.progress != nil {
			s.progress(region)
		}

		if !hasLink {
			continue
		}
		next := childURL(pageURL, href)
		if err := s.walk(ctx, next, depth+1, maxLevel, parentRef{code: code, ok: true}, out); err != nil {
			return err
		}
	}
	return nil
}

// isDigits reports whether s is non-empty and every rune is a digit.
// Listing rows repeat the code as link text; those links are not regions.
func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// codeFromHref returns the last path segment of href without its
// extension: "11/01/110101.html" yields "110101".
func codeFromHref(href string) string {
	segment := href[strings.LastIndex(href, "/")+1:]
	if i := strings.Index(segment, "."); i >= 0 {
		segment = segment[:i]
	}
	return segment
}

// childURL replaces the final path segment of pageURL with href.
// Listing links are always relative to the directory of their page.
func childURL(pageURL, href string) string {
	i := strings.LastIndex(pageURL, "/")
	if i < 0 {
		return href
	}
	return pageURL[:i+1] + href
}
