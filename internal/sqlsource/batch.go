package sqlsource

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/risk-cli/internal/detect"
	"github.com/sells-group/risk-cli/internal/model"
	"github.com/sells-group/risk-cli/internal/resilience"
)

// Batch is a query result turned into batch input.
type Batch struct {
	Items    []model.RawItem
	Mapping  model.ColumnMapping
	Metadata model.SQLMetadata
}

// PrepareBatch maps query rows to raw batch items. With autoDetect the
// columns are picked from the result; otherwise mapping is used as given,
// and an empty mapping scans each row's values. A result with no rows, or
// rows that yield no items, is a bad request.
func PrepareBatch(query string, res *Result, mapping model.ColumnMapping, autoDetect bool) (*Batch, error) {
	if res == nil || len(res.Rows) == 0 {
		return nil, resilience.BadRequest(eris.New("sqlsource: query returned no rows"))
	}

	if autoDetect {
		mapping = detect.DetectColumns(res.Columns, res.Rows)
	}
	items := detect.RowItems(res.Rows, mapping)
	if len(items) == 0 {
		return nil, resilience.BadRequest(eris.New("sqlsource: no tax ID or company name found in query rows"))
	}

	return &Batch{
		Items:   items,
		Mapping: mapping,
		Metadata: model.SQLMetadata{
			Query:           query,
			TotalSQLRecords: len(res.Rows),
			ColumnsDetected: res.Columns,
			ItemsProcessed:  len(items),
			ColumnMapping:   mapping,
		},
	}, nil
}
