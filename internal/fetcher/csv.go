// Package fetcher parses local CSV and XLSX snapshots of the source sheets,
// used for offline runs and fixtures in place of the live Sheets API.
package fetcher

import (
	"encoding/csv"
	"io"
	"strings"

	"github.com/rotisserie/eris"
)

// CSVOptions configures the CSV reader.
type CSVOptions struct {
	Delimiter rune // default ','
	SkipRows  int  // leading rows to discard before the header
	TrimSpace bool
}

// ReadCSV reads all rows from a CSV document. Rows may have a variable
// number of fields; the caller decides what a usable row looks like.
func ReadCSV(r io.Reader, opts CSVOptions) ([][]string, error) {
	reader := csv.NewReader(r)
	if opts.Delimiter != 0 {
		reader.Comma = opts.Delimiter
	}
	reader.FieldsPerRecord = -1

	var rows [][]string
	for i := 0; ; i++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "csv: read row")
		}
		if i < opts.SkipRows {
			continue
		}
		if opts.TrimSpace {
			for j, field := range record {
				record[j] = strings.TrimSpace(field)
			}
		}
		rows = append(rows, record)
	}
	return rows, nil
}
