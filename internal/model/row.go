package model

import "strconv"

// Columns is the header of every tabular export, in column order.
var Columns = []string{
	"id",
	"code",
	"name",
	"type",
	"parent_code",
	"create_time",
	"update_time",
	"is_deleted",
}

// Row is a Region with the export-only fields assigned.
// Rows are built once, after the crawl, and never modified.
type Row struct {
	ID         int     `json:"id" db:"id"`
	Code       string  `json:"code" db:"code"`
	Name       string  `json:"name" db:"name"`
	Type       string  `json:"type" db:"type"`
	ParentCode *string `json:"parent_code" db:"parent_code"`
	CreateTime string  `json:"create_time" db:"create_time"`
	UpdateTime string  `json:"update_time" db:"update_time"`
	IsDeleted  int     `json:"is_deleted" db:"is_deleted"`
}

// Values returns the row as strings in Columns order.
// A missing parent code is an empty string.
func (r Row) Values() []string {
	parent := ""
	if r.ParentCode != nil {
		parent = *r.ParentCode
	}
	return []string{
		strconv.Itoa(r.ID),
		r.Code,
		r.Name,
		r.Type,
		parent,
		r.CreateTime,
		r.UpdateTime,
		strconv.Itoa(r.IsDeleted),
	}
}
