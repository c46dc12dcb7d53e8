package pipeline

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ugrc/lsli-skid/internal/model"
)

// FormatSummary renders the run summary as the plain-text email body. Every
// section is emitted even when empty so recipients can tell "no problems"
// apart from "section missing".
func FormatSummary(s model.RunSummary) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Update summary for %s\n", s.End.Format("2006-01-02"))
	b.WriteString(strings.Repeat("=", 40) + "\n\n")

	fmt.Fprintf(&b, "Run ID: %s\n", s.RunID)
	fmt.Fprintf(&b, "Start time: %s\n", s.Start.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&b, "End time: %s\n", s.End.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&b, "Duration: %s\n", s.Duration().Round(0))
	fmt.Fprintf(&b, "Property points loaded: %d\n", s.PointsLoaded)
	fmt.Fprintf(&b, "Certification areas loaded: %d\n", s.AreasLoaded)
	if s.Skips.EmptyRows > 0 {
		fmt.Fprintf(&b, "Empty sheet rows skipped: %d\n", s.Skips.EmptyRows)
	}

	section(&b, fmt.Sprintf("%d point records skipped for missing coordinates", s.Skips.MissingCoordinates))
	for _, system := range sortedKeys(s.MissingCoordSystems) {
		fmt.Fprintf(&b, "%s: %d\n", system, s.MissingCoordSystems[system])
	}

	invalid := s.DropsByReason(model.DropInvalidPWSID)
	section(&b, fmt.Sprintf("%d rows dropped for invalid PWSIDs", len(invalid)))
	for _, d := range invalid {
		fmt.Fprintf(&b, "%q (%s)\n", d.PWSID, d.Source)
	}

	dups := s.DropsByReason(model.DropDuplicatePWSID)
	section(&b, fmt.Sprintf("%d rows dropped for duplicate PWSIDs in the certification sheet", len(dups)))
	for _, d := range dups {
		line := d.PWSID
		if d.Detail != "" {
			line += " (" + d.Detail + ")"
		}
		b.WriteString(line + "\n")
	}

	section(&b, fmt.Sprintf("%d duplicate PWSIDs in the interactive map sheet (latest row kept)", s.Skips.DuplicateLinks))
	for _, name := range sortedKeys(s.DuplicateLinkSystems) {
		fmt.Fprintf(&b, "%s: %s\n", name, s.DuplicateLinkSystems[name])
	}

	missing := s.DropsByReason(model.DropNoMatchingGeometry)
	section(&b, fmt.Sprintf("%d systems missing service area geometries", len(missing)))
	for _, d := range missing {
		line := d.PWSID
		if d.Detail != "" {
			line += ": " + d.Detail
		}
		b.WriteString(line + "\n")
	}

	return b.String()
}

func section(b *strings.Builder, heading string) {
	b.WriteString("\n" + heading + "\n")
	b.WriteString(strings.Repeat("-", 40) + "\n")
}

func sortedKeys[M ~map[string]V, V any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
