package model

import "time"

// CrawlResult accumulates the state of one crawl as it moves through the
// pipeline: the located standard, the regions in discovery order, the rows
// built from them, and where they were written.
type CrawlResult struct {
	// MaxLevel is the number of levels crawled (1..LevelCount).
	MaxLevel int `json:"max_level"`

	// Standard is set by the locate step.
	Standard Standard `json:"standard"`

	// Regions are in depth-first pre-order: every region appears after its
	// parent and siblings keep page order.
	Regions []Region `json:"regions"`

	// Rows are built from Regions by the export step.
	Rows []Row `json:"-"`

	// Outputs lists the files written by the export step.
	Outputs []string `json:"outputs,omitempty"`

	// CrawlID is the identifier assigned when the crawl is persisted.
	// Empty when persistence is disabled.
	CrawlID string `json:"crawl_id,omitempty"`

	// StartedAt is when the crawl began.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is when the walk finished.
	FinishedAt time.Time `json:"finished_at"`
}

// NewCrawlResult creates an empty result for a crawl of maxLevel levels.
func NewCrawlResult(maxLevel int) *CrawlResult {
	return &CrawlResult{
		MaxLevel:  maxLevel,
		Regions:   make([]Region, 0),
		StartedAt: time.Now(),
	}
}

// Elapsed returns how long the crawl took, or zero if it has not finished.
func (r *CrawlResult) Elapsed() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
