package model

import "time"

// DropReason classifies why a row was excluded during validation.
type DropReason string

const (
	DropInvalidPWSID       DropReason = "InvalidPWSID"
	DropDuplicatePWSID     DropReason = "DuplicatePWSID"
	DropNoMatchingGeometry DropReason = "NoMatchingGeometry"
)

// Source identifies which external source a row came from.
type Source string

const (
	SourceCertifications Source = "certifications"
	SourceLinks          Source = "links"
	SourceProperties     Source = "properties"
)

// DropEntry records one row excluded during validation: which identifier,
// from which source, and why. Entries are ordered by check, then source,
// then original row order.
type DropEntry struct {
	PWSID  string     `json:"pwsid"` // canonical when known, raw otherwise
	Source Source     `json:"source"`
	Reason DropReason `json:"reason"`
	Detail string     `json:"detail,omitempty"`
}

// SkipCounts tracks operational data-quality skips that are logged and
// summarized but kept out of the three-category drop report.
type SkipCounts struct {
	MissingCoordinates int `json:"missing_coordinates"`
	EmptyRows          int `json:"empty_rows"`
	DuplicateLinks     int `json:"duplicate_links"`
}

// RunSummary accumulates everything the notification email reports about a
// single run. It lives only for the run; nothing is persisted.
type RunSummary struct {
	RunID        string      `json:"run_id"`
	Start        time.Time   `json:"start"`
	End          time.Time   `json:"end"`
	PointsLoaded int         `json:"points_loaded"`
	AreasLoaded  int         `json:"areas_loaded"`
	Drops        []DropEntry `json:"drops,omitempty"`
	Skips        SkipCounts  `json:"skips"`

	// MissingCoordSystems counts skipped property rows per owning system,
	// keyed "PWSID name" the way the upstream inventory reports them.
	MissingCoordSystems map[string]int `json:"missing_coord_systems,omitempty"`

	// DuplicateLinkSystems maps system name to PWSID for links-sheet rows
	// dropped by the keep-last dedupe.
	DuplicateLinkSystems map[string]string `json:"duplicate_link_systems,omitempty"`
}

// Duration returns the wall-clock length of the run.
func (s RunSummary) Duration() time.Duration {
	return s.End.Sub(s.Start)
}

// DropsByReason filters the ordered drop entries to a single category,
// preserving order.
func (s RunSummary) DropsByReason(reason DropReason) []DropEntry {
	var out []DropEntry
	for _, d := range s.Drops {
		if d.Reason == reason {
			out = append(out, d)
		}
	}
	return out
}
