package export

import "github.com/nao1215/regionspider/internal/model"

// BuildRows assigns the export-only fields to regions.
// IDs are 1-based positions, both timestamps are the publication date at
// midnight, and nothing is marked deleted. Provinces have a nil parent.
func BuildRows(regions []model.Region, standard model.Standard) []model.Row {
	ts := standard.ExportTime()
	rows := make([]model.Row, len(regions))
	for i, r := range regions {
		row := model.Row{
			ID:         i + 1,
			Code:       r.Code,
			Name:       r.Name,
			Type:       r.Level.String(),
			CreateTime: ts,
			UpdateTime: ts,
			IsDeleted:  0,
		}
		if parent, ok := r.Parent(); ok {
			row.ParentCode = &parent
		}
		rows[i] = row
	}
	return rows
}

// rowsOf returns the rows of result, building them if the export step has
// not done so yet.
func rowsOf(result *model.CrawlResult) []model.Row {
	if result.Rows != nil || len(result.Regions) == 0 {
		return result.Rows
	}
	return BuildRows(result.Regions, result.Standard)
}
