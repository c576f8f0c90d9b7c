// Package crawler walks the statistical division code directory.
//
// # Components
//
//   - Fetcher: issues one GET at a time, decodes the page to UTF-8 and
//     returns a goquery document
//   - Locator: finds the newest standard on the directory index page
//   - Spider: walks the listing pages of a standard depth first and
//     collects a Region per entry
//
// # Markup
//
// The directory index lists standards as ".list-content > ul > li", newest
// first, each with a link and a publication date in a <span>. Every listing
// page marks its entries with level-specific classes, for example
// ".citytable .citytr td a" on a city listing. Each row carries two links
// to the same child page, one whose text is the code and one whose text is
// the name; entries whose text is all digits are skipped.
//
// # Usage
//
//	fetcher, err := crawler.NewFetcher(nil, crawler.WithUserAgent(ua))
//	standard, err := crawler.NewLocator(fetcher).Locate(ctx, indexURL)
//	regions, err := crawler.NewSpider(fetcher).Walk(ctx, standard.URL, 3)
//
// The crawl is strictly sequential: there is never more than one request in
// flight, and the first failed request aborts the whole walk.
package crawler
