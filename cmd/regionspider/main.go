// Package main provides the entry point for the regionspider CLI.
//
// regionspider downloads the statistical division codes published by the
// National Bureau of Statistics of China and exports them as CSV.
//
// Usage:
//
//	regionspider [--level 1..5] [--csv_file path]
//	regionspider history [--compare]
//
// See --help for all available options.
package main

// main is the entry point for regionspider.
func main() {
	Execute()
}
