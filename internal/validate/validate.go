// Package validate applies the per-row data checks to the two area-based
// sources before joining. Each check drops offending rows and records a
// report entry instead of failing the run; whole-source failures are the
// loaders' concern.
package validate

import (
	"go.uber.org/zap"

	"github.com/ugrc/lsli-skid/internal/model"
)

// DuplicatePolicy selects what happens to certification rows that share a
// canonical identifier.
type DuplicatePolicy string

const (
	// KeepFirst retains the first occurrence. Loaders present certification
	// rows most recent first, so this keeps the latest submission.
	KeepFirst DuplicatePolicy = "keep-first"
	// DropAll drops every row of a duplicated identifier.
	DropAll DuplicatePolicy = "drop-all"
)

// ParsePolicy maps a config string to a policy, defaulting to KeepFirst.
func ParsePolicy(s string) DuplicatePolicy {
	if DuplicatePolicy(s) == DropAll {
		return DropAll
	}
	return KeepFirst
}

// Result is the validator output: cleaned record sets plus the ordered drop
// entries (check order, then source order, then row order).
type Result struct {
	Certifications []model.CertificationRecord
	Links          []model.MapLinkRecord
	Drops          []model.DropEntry
}

// Clean runs the malformed-identifier and duplicate-identifier checks.
// Loaders have already attempted normalization: a row with an empty
// canonical PWSID is one whose raw identifier failed the grammar. The
// third check (missing geometry) happens in the join, which feeds its
// discards back through Result ordering in the pipeline.
func Clean(certs []model.CertificationRecord, links []model.MapLinkRecord, policy DuplicatePolicy) Result {
	var result Result

	// Check 1: malformed identifiers, certifications then links.
	var wellFormedCerts []model.CertificationRecord
	for _, c := range certs {
		if c.PWSID == "" {
			result.Drops = append(result.Drops, model.DropEntry{
				PWSID:  c.RawPWSID,
				Source: model.SourceCertifications,
				Reason: model.DropInvalidPWSID,
				Detail: c.SystemName,
			})
			continue
		}
		wellFormedCerts = append(wellFormedCerts, c)
	}

	var wellFormedLinks []model.MapLinkRecord
	for _, l := range links {
		if l.PWSID == "" {
			result.Drops = append(result.Drops, model.DropEntry{
				PWSID:  l.RawPWSID,
				Source: model.SourceLinks,
				Reason: model.DropInvalidPWSID,
				Detail: l.SystemName,
			})
			continue
		}
		wellFormedLinks = append(wellFormedLinks, l)
	}

	// Check 2: duplicate identifiers within the certification source.
	counts := map[string]int{}
	for _, c := range wellFormedCerts {
		counts[c.PWSID]++
	}

	kept := map[string]bool{}
	for _, c := range wellFormedCerts {
		if counts[c.PWSID] > 1 {
			dropAll := policy == DropAll
			if dropAll || kept[c.PWSID] {
				result.Drops = append(result.Drops, model.DropEntry{
					PWSID:  c.PWSID,
					Source: model.SourceCertifications,
					Reason: model.DropDuplicatePWSID,
					Detail: c.SystemName,
				})
				continue
			}
		}
		kept[c.PWSID] = true
		result.Certifications = append(result.Certifications, c)
	}

	result.Links = wellFormedLinks

	if n := len(result.Drops); n > 0 {
		zap.L().Warn("validation dropped rows", zap.Int("count", n))
	}
	return result
}
