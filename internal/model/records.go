// Package model defines the typed records flowing through the sync pipeline.
//
// Loaders map each source's loosely-typed rows into these structs as early
// as possible; the validator and joiner never see raw tabular cells.
package model

import (
	"time"

	"github.com/twpayne/go-geom"
)

// PropertyRecord is one service line from the state inventory GraphQL
// endpoint, spatialized into Web Mercator. Field names mirror the endpoint's
// schema except where the hosted service's 31-character field limit forces a
// rename (serviceline_material_cassificat).
type PropertyRecord struct {
	SystemID               *int64      `json:"system_id"`
	PWSID                  string      `json:"pws_id"`
	PWSName                string      `json:"pws_name"`
	PWSCounty              string      `json:"pws_county"`
	PWSPopulation          *int64      `json:"pws_population"`
	ServiceLineID          string      `json:"serviceline_id"`
	PWSAddress             string      `json:"pws_address"`
	PWSCity                string      `json:"pws_city"`
	PWSZipcode             *int64      `json:"pws_zipcode"`
	ServiceLineAddress     string      `json:"serviceline_address"`
	ServiceLineZipcode     string      `json:"serviceline_zipcode"`
	SensitivePopulation    string      `json:"sensitive_population"`
	SystemOwnedMaterial    string      `json:"system_owned_material"`
	PreviouslyLead         string      `json:"previously_lead"`
	SOYearInstalled        string      `json:"so_year_installed"`
	COYearInstalled        string      `json:"co_year_installed"`
	SOBasisClassification  string      `json:"so_basis_classification"`
	COBasisClassification  string      `json:"co_basis_classification"`
	COMaterial             string      `json:"co_material"`
	SOMaterial             string      `json:"so_material"`
	MaterialClassification string      `json:"serviceline_material_cassificat"`
	Geometry               *geom.Point `json:"-"`
}

// Attributes returns the record's publishable fields keyed by the hosted
// layer's field names.
func (p PropertyRecord) Attributes() map[string]any {
	return map[string]any{
		"system_id":                       p.SystemID,
		"pws_id":                          p.PWSID,
		"pws_name":                        p.PWSName,
		"pws_county":                      p.PWSCounty,
		"pws_population":                  p.PWSPopulation,
		"serviceline_id":                  p.ServiceLineID,
		"pws_address":                     p.PWSAddress,
		"pws_city":                        p.PWSCity,
		"pws_zipcode":                     p.PWSZipcode,
		"serviceline_address":             p.ServiceLineAddress,
		"serviceline_zipcode":             p.ServiceLineZipcode,
		"sensitive_population":            p.SensitivePopulation,
		"system_owned_material":           p.SystemOwnedMaterial,
		"previously_lead":                 p.PreviouslyLead,
		"so_year_installed":               p.SOYearInstalled,
		"co_year_installed":               p.COYearInstalled,
		"so_basis_classification":         p.SOBasisClassification,
		"co_basis_classification":         p.COBasisClassification,
		"co_material":                     p.COMaterial,
		"so_material":                     p.SOMaterial,
		"serviceline_material_cassificat": p.MaterialClassification,
	}
}

// CertificationRecord is one row from the approved-systems sheet: a water
// system that has self-certified lead-free status for its service area.
type CertificationRecord struct {
	PWSID          string    `json:"pwsid"`
	RawPWSID       string    `json:"-"`
	SystemName     string    `json:"system_name"`
	Approved       string    `json:"approved"`
	Classification string    `json:"classification"` // "SC, LC, on NTNC" sheet column
	SubmittedAt    time.Time `json:"submitted_time"`
}

// MapLinkRecord is one row from the interactive-maps sheet: a link to a
// system's own status map.
type MapLinkRecord struct {
	PWSID      string `json:"pwsid"`
	RawPWSID   string `json:"-"`
	SystemName string `json:"system_name"`
	Link       string `json:"link"`
}

// ServiceArea is the authoritative polygon boundary for one water system,
// from the state service-area layer. Read-only ground truth.
type ServiceArea struct {
	PWSID    string             `json:"pwsid"`
	Geometry *geom.MultiPolygon `json:"-"`
}

// AreaFeature is the joined output published to the areas layer: the outer
// join of a certification and a map link, inner-joined to its service-area
// geometry. Exactly one canonical PWSID and exactly one geometry each.
type AreaFeature struct {
	PWSID            string
	SystemName       string
	Approved         string
	Classification   string
	SubmittedAt      *time.Time
	Link             string
	HasCertification bool
	HasLink          bool
	Geometry         *geom.MultiPolygon
}

// Sources describes which sheet(s) contributed to the feature.
func (a AreaFeature) Sources() string {
	switch {
	case a.HasCertification && a.HasLink:
		return "certification+link"
	case a.HasLink:
		return "link"
	default:
		return "certification"
	}
}

// Attributes returns the feature's publishable fields. The submission time
// is published as submitted_time: the hosted service rejects a field named
// "time".
func (a AreaFeature) Attributes() map[string]any {
	attrs := map[string]any{
		"pwsid":          a.PWSID,
		"system_name":    a.SystemName,
		"approved":       a.Approved,
		"classification": a.Classification,
		"link":           a.Link,
		"sources":        a.Sources(),
	}
	if a.SubmittedAt != nil {
		attrs["submitted_time"] = a.SubmittedAt.UnixMilli()
	} else {
		attrs["submitted_time"] = nil
	}
	return attrs
}
