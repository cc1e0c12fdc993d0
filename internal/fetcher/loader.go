package fetcher

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/risk-cli/internal/detect"
	"github.com/sells-group/risk-cli/internal/model"
)

// LoadItems reads batch inputs from path, choosing the parser by extension:
// .txt (one value per line), .csv, .xlsx or .json.
func LoadItems(path string) ([]model.RawItem, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", "":
		return loadLines(path)
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrap(err, "fetcher: open csv")
		}
		defer f.Close() //nolint:errcheck
		rows, err := ReadCSV(f, CSVOptions{LazyQuotes: true, TrimSpace: true})
		if err != nil {
			return nil, err
		}
		return RowsToItems(rows), nil
	case ".xlsx":
		rows, err := ReadXLSX(path, XLSXOptions{})
		if err != nil {
			return nil, err
		}
		return RowsToItems(rows), nil
	case ".json":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, eris.Wrap(err, "fetcher: read json")
		}
		return DecodeItems(data)
	default:
		return nil, eris.Errorf("fetcher: unsupported input format %q", filepath.Ext(path))
	}
}

func loadLines(path string) ([]model.RawItem, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: open text")
	}
	defer f.Close() //nolint:errcheck

	var values []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			values = append(values, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, eris.Wrap(err, "fetcher: scan text")
	}
	return model.StringItems(values), nil
}

// RowsToItems turns tabular rows into raw items. A single-column sheet yields
// bare values, dropping the first row when it looks like a header. Wider
// sheets use the first row as field names and yield one record per row.
func RowsToItems(rows [][]string) []model.RawItem {
	rows = dropBlankRows(rows)
	if len(rows) == 0 {
		return nil
	}

	if width(rows) == 1 {
		if dt, _ := detect.Detect(rows[0][0]); dt == model.DataTypeUnknown {
			rows = rows[1:]
		}
		values := make([]string, len(rows))
		for i, r := range rows {
			values[i] = strings.TrimSpace(r[0])
		}
		return model.StringItems(values)
	}

	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.ToLower(strings.TrimSpace(h))
	}
	items := make([]model.RawItem, 0, len(rows)-1)
	for _, r := range rows[1:] {
		rec := make(map[string]string, len(header))
		for i, col := range header {
			if col == "" || i >= len(r) {
				continue
			}
			rec[col] = strings.TrimSpace(r[i])
		}
		items = append(items, model.RecordItem(rec))
	}
	return items
}

func width(rows [][]string) int {
	w := 0
	for _, r := range rows {
		n := len(r)
		for n > 0 && strings.TrimSpace(r[n-1]) == "" {
			n--
		}
		w = max(w, n)
	}
	return w
}

func dropBlankRows(rows [][]string) [][]string {
	out := rows[:0:0]
	for _, r := range rows {
		for _, c := range r {
			if strings.TrimSpace(c) != "" {
				out = append(out, r)
				break
			}
		}
	}
	return out
}
