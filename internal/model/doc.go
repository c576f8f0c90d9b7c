// Package model defines the data structures shared by the crawler, the
// exporters and the database.
//
// This package contains the following main types:
//   - Level: the administrative level of a region (province to village)
//   - Region: one node of the administrative hierarchy as discovered by a crawl
//   - Standard: the published code standard a crawl starts from
//   - Row: a Region with its export-only columns assigned
//   - CrawlResult: the state threaded through a crawl pipeline
package model
