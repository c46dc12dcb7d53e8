// Package pwsid normalizes Utah public water system identifiers.
//
// Identifiers arrive from the sheets and the state feature service in a mix
// of shapes: "UTAH001234", "utah1234", "1234", sometimes with stray leading
// zeros or whitespace. Every join in the pipeline is keyed on the canonical
// form, so normalization happens once at the loader boundary and never again.
package pwsid

import (
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
)

// ErrInvalidIdentifier indicates a raw identifier that matches neither
// accepted shape: the state prefix followed by digits, or digits alone.
var ErrInvalidIdentifier = eris.New("pwsid: invalid identifier")

// Format describes the canonical identifier layout: an upper-case prefix
// followed by the numeric portion zero-padded to Digits characters.
type Format struct {
	Prefix string
	Digits int
}

// DefaultFormat is the statewide PWSID layout, e.g. "UTAH001234".
var DefaultFormat = Format{Prefix: "UTAH", Digits: 6}

// shape accepts an optional alphabetic prefix and a digit run with optional
// leading zeros. Prefix correctness is checked against the Format, not here.
var shape = regexp.MustCompile(`^([A-Za-z]+)?0*([0-9]+)$`)

// Normalize canonicalizes a raw identifier. The match is case-insensitive
// and tolerant of surrounding whitespace and leading zeros; the result is
// Prefix + zero-padded digits. Normalizing an already-canonical identifier
// returns it unchanged. Returns ErrInvalidIdentifier for anything else.
func (f Format) Normalize(raw string) (string, error) {
	m := shape.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return "", eris.Wrapf(ErrInvalidIdentifier, "%q", raw)
	}
	if m[1] != "" && !strings.EqualFold(m[1], f.Prefix) {
		return "", eris.Wrapf(ErrInvalidIdentifier, "%q has prefix %q", raw, m[1])
	}

	digits := m[2]
	if pad := f.Digits - len(digits); pad > 0 {
		digits = strings.Repeat("0", pad) + digits
	}
	return f.Prefix + digits, nil
}

// Normalize canonicalizes raw using DefaultFormat.
func Normalize(raw string) (string, error) {
	return DefaultFormat.Normalize(raw)
}
