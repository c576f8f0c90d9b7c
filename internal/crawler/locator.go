package crawler

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/nao1215/regionspider/internal/model"
)

// IndexEntrySelector selects the standards listed on the directory index,
// newest first.
const IndexEntrySelector = ".list-content > ul > li"

// Locator finds the newest standard on the directory index.
type Locator struct {
	fetcher PageFetcher
}

// NewLocator creates a Locator that reads the index through fetcher.
func NewLocator(fetcher PageFetcher) *Locator {
	return &Locator{fetcher: fetcher}
}

// Locate fetches indexURL and returns the first listed standard.
// It returns ErrNoStandard when the index lists nothing and
// ErrMalformedIndex when the first entry has no link or no date.
func (l *Locator) Locate(ctx context.Context, indexURL string) (model.Standard, error) {
	doc, err := l.fetcher.Fetch(ctx, indexURL)
	if err != nil {
		return model.Standard{}, err
	}

	entry := doc.Find(IndexEntrySelector).First()
	if entry.Length() == 0 {
		return model.Standard{}, ErrNoStandard
	}

	href, ok := entry.Find("a").First().Attr("href")
	if !ok || strings.TrimSpace(href) == "" {
		return model.Standard{}, fmt.Errorf("%w: entry has no link", ErrMalformedIndex)
	}

	date := strings.TrimSpace(entry.Find("span").First().Text())
	if date == "" {
		return model.Standard{}, fmt.Errorf("%w: entry has no date", ErrMalformedIndex)
	}

	standardURL, err := resolveStandardURL(indexURL, strings.TrimSpace(href))
	if err != nil {
		return model.Standard{}, fmt.Errorf("%w: %v", ErrMalformedIndex, err)
	}

	return model.Standard{URL: standardURL, Date: date}, nil
}

// resolveStandardURL resolves href against the index page and upgrades
// plain http to https. The index links to its standards over http even
// though the site redirects every such request.
func resolveStandardURL(indexURL, href string) (string, error) {
	ref, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("invalid link %q: %w", href, err)
	}

	base, err := url.Parse(indexURL)
	if err == nil {
		ref = base.ResolveReference(ref)
	}

	if ref.Scheme == "http" {
		ref.Scheme = "https"
	}
	return ref.String(), nil
}
