// Package fetcher loads batch input items from local files: plain text, CSV,
// XLSX and JSON.
package fetcher

import (
	"bufio"
	"encoding/csv"
	"io"
	"strings"

	"github.com/rotisserie/eris"
)

// CSVOptions configures the CSV parser.
type CSVOptions struct {
	Delimiter  rune // 0 sniffs ';' or ',' from the first line
	Comment    rune // comment character (0 = none)
	LazyQuotes bool
	TrimSpace  bool
}

// ReadCSV reads every row of a CSV document. Rows may have varying widths.
func ReadCSV(r io.Reader, opts CSVOptions) ([][]string, error) {
	br := bufio.NewReader(r)
	if opts.Delimiter == 0 {
		opts.Delimiter = sniffDelimiter(br)
	}

	reader := csv.NewReader(br)
	reader.Comma = opts.Delimiter
	if opts.Comment != 0 {
		reader.Comment = opts.Comment
	}
	reader.LazyQuotes = opts.LazyQuotes
	reader.FieldsPerRecord = -1 // allow variable fields

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return nil, eris.Wrap(err, "csv: read row")
		}
		if opts.TrimSpace {
			for i, field := range record {
				record[i] = strings.TrimSpace(field)
			}
		}
		rows = append(rows, record)
	}
}

// sniffDelimiter picks ';' when the first line has more semicolons than
// commas. Spreadsheet exports in pt-BR locales use ';'.
func sniffDelimiter(br *bufio.Reader) rune {
	peek, _ := br.Peek(4096)
	line := string(peek)
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	if strings.Count(line, ";") > strings.Count(line, ",") {
		return ';'
	}
	return ','
}
