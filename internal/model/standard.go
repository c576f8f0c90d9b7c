package model

// Standard is a published edition of the region code standard.
type Standard struct {
	// URL is the absolute https URL of the standard's province listing page.
	URL string `json:"url"`

	// Date is the publication date exactly as shown on the index page,
	// e.g. "2023-09-11". It is embedded in export timestamps and the
	// default output file name, so it is kept as text.
	Date string `json:"date"`
}

// ExportTime returns the timestamp written to create_time and update_time:
// the publication date at midnight.
func (s Standard) ExportTime() string {
	return s.Date + " 00:00:00"
}
