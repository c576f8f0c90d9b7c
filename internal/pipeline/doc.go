// Package pipeline runs a crawl as a sequence of steps.
//
// A crawl is locate (find the newest standard), walk (collect its
// regions), export (write the files), and optionally persist (store the
// crawl history). Each step receives the CrawlResult accumulated by the
// steps before it. The first failing step stops the pipeline.
package pipeline
