// Package export writes crawled regions to files.
//
// BuildRows turns the ordered regions of a crawl into export rows once;
// every writer consumes the same rows:
//
//   - CSVWriter: the primary output, header plus one line per region
//   - XLSXWriter: the same columns in a spreadsheet
//   - MarkdownWriter: a human-readable crawl summary
//
// WriteFiles writes several targets concurrently.
package export
