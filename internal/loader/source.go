// Package loader fetches each external source and maps its rows into the
// typed records the validator and joiner consume. All identifier
// normalization happens here or in the validator; nothing downstream ever
// re-parses raw source text.
package loader

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/ugrc/lsli-skid/internal/fetcher"
	"github.com/ugrc/lsli-skid/pkg/gsheets"
)

// SheetSource produces the raw rows of one worksheet.
type SheetSource interface {
	Rows(ctx context.Context) ([][]string, error)
	Name() string
}

// GSheetSource reads a worksheet through the Sheets API.
type GSheetSource struct {
	Client        gsheets.Client
	SpreadsheetID string
	Worksheet     string
}

func (s GSheetSource) Rows(ctx context.Context) ([][]string, error) {
	rows, err := s.Client.Values(ctx, s.SpreadsheetID, s.Worksheet)
	if err != nil {
		return nil, eris.Wrapf(err, "loader: read worksheet %s", s.Worksheet)
	}
	return rows, nil
}

func (s GSheetSource) Name() string {
	return s.Worksheet
}

// FileSource reads a local CSV or XLSX snapshot of a worksheet, used for
// offline runs and fixtures.
type FileSource struct {
	Path      string
	Worksheet string // XLSX only; empty means first sheet
}

func (s FileSource) Rows(_ context.Context) ([][]string, error) {
	switch strings.ToLower(filepath.Ext(s.Path)) {
	case ".xlsx":
		return fetcher.ReadXLSX(s.Path, fetcher.XLSXOptions{SheetName: s.Worksheet})
	case ".csv":
		f, err := os.Open(s.Path)
		if err != nil {
			return nil, eris.Wrapf(err, "loader: open %s", s.Path)
		}
		defer f.Close() //nolint:errcheck
		return fetcher.ReadCSV(f, fetcher.CSVOptions{TrimSpace: true})
	default:
		return nil, eris.Errorf("loader: unsupported snapshot format %q", filepath.Ext(s.Path))
	}
}

func (s FileSource) Name() string {
	return filepath.Base(s.Path)
}

// cell returns the trimmed value of column i, tolerating ragged rows.
func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// headerIndex maps column titles to indices for one header row.
func headerIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.TrimSpace(name)] = i
	}
	return idx
}

// emptyRow reports whether every cell is blank.
func emptyRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
