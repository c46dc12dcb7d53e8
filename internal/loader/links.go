package loader

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ugrc/lsli-skid/internal/model"
	"github.com/ugrc/lsli-skid/internal/pwsid"
)

// Interactive-maps sheet column titles. "Water Systme Name" is the sheet's
// own spelling; matching it is not optional.
const (
	linkColPWSID      = "PWSID"
	linkColSystemName = "Water Systme Name"
	linkColLink       = "Interactive map link"
)

// LinksResult carries the loaded rows plus operational skips: empty rows
// and duplicate identifiers deduplicated keep-last. Link duplicates are a
// data-quality note for the summary email, not a formal validation drop;
// that check belongs to the certification source.
type LinksResult struct {
	Records          []model.MapLinkRecord
	EmptyRows        int
	Duplicates       int
	DuplicateSystems map[string]string // system name -> canonical PWSID
}

// Links reads the interactive-maps sheet, keeping only the identifier,
// system name, and link columns.
type Links struct {
	source SheetSource
	format pwsid.Format
}

// NewLinks creates the links-sheet loader.
func NewLinks(source SheetSource, format pwsid.Format) *Links {
	return &Links{source: source, format: format}
}

// Load fetches and types the sheet. As with certifications, rows with
// invalid identifiers are kept (canonical PWSID empty) for the validator.
func (l *Links) Load(ctx context.Context) (LinksResult, error) {
	rows, err := l.source.Rows(ctx)
	if err != nil {
		return LinksResult{}, eris.Wrap(err, "loader: fetch links sheet")
	}
	if len(rows) == 0 {
		return LinksResult{}, eris.Errorf("loader: links sheet %s is empty", l.source.Name())
	}

	idx := headerIndex(rows[0])
	for _, col := range []string{linkColPWSID, linkColLink} {
		if _, ok := idx[col]; !ok {
			return LinksResult{}, eris.Errorf("loader: links sheet missing column %q", col)
		}
	}

	result := LinksResult{DuplicateSystems: map[string]string{}}
	lastByPWSID := map[string]int{} // canonical PWSID -> index in Records

	for _, row := range rows[1:] {
		if emptyRow(row) || cell(row, idx[linkColPWSID]) == "" {
			result.EmptyRows++
			continue
		}

		rec := model.MapLinkRecord{
			RawPWSID:   cell(row, idx[linkColPWSID]),
			SystemName: cell(row, idx[linkColSystemName]),
			Link:       cell(row, idx[linkColLink]),
		}
		if canonical, err := l.format.Normalize(rec.RawPWSID); err == nil {
			rec.PWSID = canonical
		}

		// Keep-last dedupe on canonical identifier: later sheet rows are
		// corrections of earlier ones. Invalid identifiers pass through
		// untouched for the validator to report.
		if prev, ok := lastByPWSID[rec.PWSID]; ok && rec.PWSID != "" {
			result.Duplicates++
			result.DuplicateSystems[result.Records[prev].SystemName] = rec.PWSID
			result.Records[prev] = rec
			continue
		}
		if rec.PWSID != "" {
			lastByPWSID[rec.PWSID] = len(result.Records)
		}
		result.Records = append(result.Records, rec)
	}

	if result.Duplicates > 0 {
		zap.L().Warn("duplicate PWSIDs in links sheet", zap.Int("count", result.Duplicates))
	}
	zap.L().Info("map link records loaded",
		zap.String("sheet", l.source.Name()),
		zap.Int("records", len(result.Records)),
		zap.Int("empty_rows", result.EmptyRows),
		zap.Int("duplicates", result.Duplicates),
	)
	return result, nil
}
