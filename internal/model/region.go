package model

// FallbackCode is assigned to the one listing entry that has no link to a
// drill-down page. The only such entry observed is Xiong'an New Area
// (雄安新区), which the source lists under Hebei without a page of its own.
// This is a known data anomaly, so the code is fixed rather than derived.
const FallbackCode = "133100"

// Region is one node of the administrative hierarchy.
type Region struct {
	// Code is the region code taken from its detail-page link, or
	// FallbackCode for the entry without a link.
	Code string `json:"code"`

	// Name is the display name as shown in the listing.
	Name string `json:"name"`

	// Level is derived from the crawl depth.
	Level Level `json:"type"`

	// ParentCode is the code of the enclosing region.
	// It is meaningful only when HasParent is true.
	ParentCode string `json:"parent_code,omitempty"`

	// HasParent is false for provinces. Absence of a parent is tracked
	// explicitly so that any code value, including "0", is a valid parent.
	HasParent bool `json:"-"`
}

// NewRegion returns a top-level region (no parent).
func NewRegion(code, name string, level Level) Region {
	return Region{Code: code, Name: name, Level: level}
}

// WithParent returns a copy of r whose parent is parentCode.
func (r Region) WithParent(parentCode string) Region {
	r.ParentCode = parentCode
	r.HasParent = true
	return r
}

// Parent returns the parent code and whether the region has one.
func (r Region) Parent() (string, bool) {
	return r.ParentCode, r.HasParent
}

// CountByLevel counts regions per level.
// Every level is present in the result, with zero for levels not crawled.
func CountByLevel(regions []Region) map[Level]int {
	counts := make(map[Level]int, LevelCount)
	for _, l := range Levels() {
		counts[l] = 0
	}
	for _, r := range regions {
		counts[r.Level]++
	}
	return counts
}
