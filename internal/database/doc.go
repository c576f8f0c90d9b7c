// Package database stores crawl history.
//
// Every persisted crawl gets a row in "crawls" and one row per exported
// region in "regions", so two editions of the standard can be compared
// later without crawling again.
//
// The store is SQLite (modernc.org/sqlite, no cgo) by default, in the XDG
// data directory. A postgres:// or postgresql:// DSN selects PostgreSQL
// through lib/pq. Queries are written with '?' placeholders and rebound by
// sqlx for the active driver.
package database
