package loader

import (
	"context"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ugrc/lsli-skid/internal/model"
	"github.com/ugrc/lsli-skid/internal/pwsid"
)

// Approved-systems sheet column titles. The schema belongs to the sheet's
// owner; these names are fixed upstream.
const (
	certColPWSID          = "PWS ID"
	certColTime           = "Time"
	certColSystemName     = "System Name"
	certColApproved       = "Approved"
	certColClassification = "SC, LC, on NTNC"
)

// certHeaderRow is the sheet row holding the column titles. The first row
// is a banner, so the header is the second.
const certHeaderRow = 1

// certTimeLayouts covers the submission timestamp shapes the form has
// produced over time.
var certTimeLayouts = []string{
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"1/2/2006",
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC3339,
}

// CertificationsResult carries the loaded rows plus empty-row skips.
type CertificationsResult struct {
	Records   []model.CertificationRecord
	EmptyRows int
}

// Certifications reads the approved-systems sheet. Identifiers are
// normalized here; rows whose identifier fails the grammar keep an empty
// canonical PWSID and their raw text, for the validator to drop and report.
type Certifications struct {
	source SheetSource
	format pwsid.Format
}

// NewCertifications creates the certification-sheet loader.
func NewCertifications(source SheetSource, format pwsid.Format) *Certifications {
	return &Certifications{source: source, format: format}
}

// Load fetches and types the sheet. Records come back most recent
// submission first, so a keep-first duplicate policy retains the latest
// certification for a system.
func (c *Certifications) Load(ctx context.Context) (CertificationsResult, error) {
	rows, err := c.source.Rows(ctx)
	if err != nil {
		return CertificationsResult{}, eris.Wrap(err, "loader: fetch certifications sheet")
	}
	if len(rows) <= certHeaderRow {
		return CertificationsResult{}, eris.Errorf("loader: certifications sheet %s has no header row", c.source.Name())
	}

	idx := headerIndex(rows[certHeaderRow])
	for _, col := range []string{certColPWSID, certColSystemName} {
		if _, ok := idx[col]; !ok {
			return CertificationsResult{}, eris.Errorf("loader: certifications sheet missing column %q", col)
		}
	}

	var result CertificationsResult
	for _, row := range rows[certHeaderRow+1:] {
		// The sheet carries many blank formatting rows.
		if emptyRow(row) || cell(row, idx[certColPWSID]) == "" {
			result.EmptyRows++
			continue
		}

		rec := model.CertificationRecord{
			RawPWSID:       cell(row, idx[certColPWSID]),
			SystemName:     cell(row, idx[certColSystemName]),
			Approved:       cell(row, idx[certColApproved]),
			Classification: cell(row, idx[certColClassification]),
			SubmittedAt:    parseSheetTime(cell(row, idx[certColTime])),
		}
		if canonical, err := c.format.Normalize(rec.RawPWSID); err == nil {
			rec.PWSID = canonical
		}
		result.Records = append(result.Records, rec)
	}

	sort.SliceStable(result.Records, func(i, j int) bool {
		return result.Records[i].SubmittedAt.After(result.Records[j].SubmittedAt)
	})

	zap.L().Info("certification records loaded",
		zap.String("sheet", c.source.Name()),
		zap.Int("records", len(result.Records)),
		zap.Int("empty_rows", result.EmptyRows),
	)
	return result, nil
}

// parseSheetTime tries each known layout; unparsable values become the zero
// time, which sorts last and never wins a duplicate contest.
func parseSheetTime(s string) time.Time {
	for _, layout := range certTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
