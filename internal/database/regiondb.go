package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"  // PostgreSQL driver
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/regionspider/internal/model"
)

// ErrCrawlNotFound is returned when no crawl has the requested id.
var ErrCrawlNotFound = errors.New("crawl not found")

// Driver names registered by the imported SQL drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// timeLayout is fixed-width so stored timestamps sort as text.
const timeLayout = "2006-01-02 15:04:05.000000000"

// RegionDB stores crawls and their regions.
type RegionDB struct {
	// db is the underlying connection pool.
	db *sqlx.DB
}

// Crawl is the stored summary of one crawl.
type Crawl struct {
	ID           string    `json:"id"`
	StandardURL  string    `json:"standard_url"`
	StandardDate string    `json:"standard_date"`
	MaxLevel     int       `json:"max_level"`
	RegionCount  int       `json:"region_count"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
}

// crawlRecord is the scan target for the crawls table.
type crawlRecord struct {
	ID           string `db:"id"`
	StandardURL  string `db:"standard_url"`
	StandardDate string `db:"standard_date"`
	MaxLevel     int    `db:"max_level"`
	RegionCount  int    `db:"region_count"`
	StartedAt    string `db:"started_at"`
	FinishedAt   string `db:"finished_at"`
}

func (r crawlRecord) toCrawl() Crawl {
	return Crawl{
		ID:           r.ID,
		StandardURL:  r.StandardURL,
		StandardDate: r.StandardDate,
		MaxLevel:     r.MaxLevel,
		RegionCount:  r.RegionCount,
		StartedAt:    parseTimestamp(r.StartedAt),
		FinishedAt:   parseTimestamp(r.FinishedAt),
	}
}

// IsPostgresDSN reports whether dsn selects PostgreSQL.
func IsPostgresDSN(dsn string) bool {
	lower := strings.ToLower(dsn)
	return strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://")
}

// Open connects to dsn and creates the schema if needed.
// Anything that is not a PostgreSQL URL is a SQLite file path; its
// directory is created.
func Open(ctx context.Context, dsn string) (*RegionDB, error) {
	if IsPostgresDSN(dsn) {
		db, err := sqlx.ConnectContext(ctx, DriverPostgres, dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		return newMigrated(ctx, db)
	}

	if err := os.MkdirAll(filepath.Dir(dsn), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sqlx.ConnectContext(ctx, DriverSQLite, dsn+"?mode=rwc&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	return newMigrated(ctx, db)
}

func newMigrated(ctx context.Context, db *sqlx.DB) (*RegionDB, error) {
	rdb := New(db)
	if err := rdb.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return rdb, nil
}

// New wraps an open connection without touching the schema.
func New(db *sqlx.DB) *RegionDB {
	return &RegionDB{db: db}
}

// Close closes the database connection.
func (r *RegionDB) Close() error {
	return r.db.Close()
}

// schema uses types and syntax accepted by both SQLite and PostgreSQL.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS crawls (
		id TEXT PRIMARY KEY,
		standard_url TEXT NOT NULL,
		standard_date TEXT NOT NULL,
		max_level INTEGER NOT NULL,
		region_count INTEGER NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_crawls_started_at ON crawls(started_at)`,
	`CREATE TABLE IF NOT EXISTS regions (
		crawl_id TEXT NOT NULL REFERENCES crawls(id) ON DELETE CASCADE,
		id INTEGER NOT NULL,
		code TEXT NOT NULL,
		name TEXT NOT NULL,
		type TEXT NOT NULL,
		parent_code TEXT,
		create_time TEXT NOT NULL,
		update_time TEXT NOT NULL,
		is_deleted INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (crawl_id, id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_regions_code ON regions(crawl_id, type, code)`,
}

// Migrate creates the tables if they do not exist.
func (r *RegionDB) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create tables: %w", err)
		}
	}
	return nil
}

// SaveCrawl stores result and its rows in one transaction and returns the
// new crawl id. Nothing is stored if any insert fails.
func (r *RegionDB) SaveCrawl(ctx context.Context, result *model.CrawlResult) (id string, err error) {
	id = uuid.NewString()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	finished := result.FinishedAt
	if finished.IsZero() {
		finished = time.Now()
	}

	_, err = tx.ExecContext(ctx, tx.Rebind(`
	INSERT INTO crawls (id, standard_url, standard_date, max_level, region_count, started_at, finished_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)`),
		id,
		result.Standard.URL,
		result.Standard.Date,
		result.MaxLevel,
		len(result.Rows),
		formatTimestamp(result.StartedAt),
		formatTimestamp(finished),
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert crawl: %w", err)
	}

	stmt, err := tx.PreparexContext(ctx, tx.Rebind(`
	INSERT INTO regions (crawl_id, id, code, name, type, parent_code, create_time, update_time, is_deleted)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`))
	if err != nil {
		return "", fmt.Errorf("failed to prepare region insert: %w", err)
	}
	defer stmt.Close()

	for _, row := range result.Rows {
		if _, err = stmt.ExecContext(ctx,
			id,
			row.ID,
			row.Code,
			row.Name,
			row.Type,
			row.ParentCode,
			row.CreateTime,
			row.UpdateTime,
			row.IsDeleted,
		); err != nil {
			return "", fmt.Errorf("failed to insert region %d: %w", row.ID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit crawl: %w", err)
	}
	return id, nil
}

const selectCrawl = `
	SELECT id, standard_url, standard_date, max_level, region_count, started_at, finished_at
	FROM crawls`

// ListCrawls returns all stored crawls, newest first.
func (r *RegionDB) ListCrawls(ctx context.Context) ([]Crawl, error) {
	return r.selectCrawls(ctx, selectCrawl+` ORDER BY started_at DESC`)
}

// LatestCrawls returns at most n crawls, newest first.
func (r *RegionDB) LatestCrawls(ctx context.Context, n int) ([]Crawl, error) {
	return r.selectCrawls(ctx, selectCrawl+` ORDER BY started_at DESC LIMIT ?`, n)
}

func (r *RegionDB) selectCrawls(ctx context.Context, query string, args ...any) ([]Crawl, error) {
	var records []crawlRecord
	if err := r.db.SelectContext(ctx, &records, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list crawls: %w", err)
	}

	crawls := make([]Crawl, len(records))
	for i, rec := range records {
		crawls[i] = rec.toCrawl()
	}
	return crawls, nil
}

// GetCrawl returns the crawl with the given id, or ErrCrawlNotFound.
func (r *RegionDB) GetCrawl(ctx context.Context, id string) (*Crawl, error) {
	var rec crawlRecord
	err := r.db.GetContext(ctx, &rec, r.db.Rebind(selectCrawl+` WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrCrawlNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get crawl: %w", err)
	}

	crawl := rec.toCrawl()
	return &crawl, nil
}

// GetRows returns the exported rows of a crawl in their original order.
func (r *RegionDB) GetRows(ctx context.Context, crawlID string) ([]model.Row, error) {
	if _, err := r.GetCrawl(ctx, crawlID); err != nil {
		return nil, err
	}

	rows := make([]model.Row, 0)
	err := r.db.SelectContext(ctx, &rows, r.db.Rebind(`
	SELECT id, code, name, type, parent_code, create_time, update_time, is_deleted
	FROM regions
	WHERE crawl_id = ?
	ORDER BY id`), crawlID)
	if err != nil {
		return nil, fmt.Errorf("failed to get regions: %w", err)
	}
	return rows, nil
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// parseTimestamp parses a stored timestamp. Values written by other tools
// may use RFC 3339; anything unparsable yields the zero time.
func parseTimestamp(s string) time.Time {
	formats := []string{
		timeLayout,
		time.RFC3339Nano,
		time.DateTime,
	}
	for _, format := range formats {
		if t, err := time.ParseInLocation(format, s, time.UTC); err == nil {
			return t
		}
	}
	return time.Time{}
}
