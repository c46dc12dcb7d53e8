package loader

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/ugrc/lsli-skid/internal/model"
	"github.com/ugrc/lsli-skid/internal/spatial"
	"github.com/ugrc/lsli-skid/pkg/graphql"
)

//go:embed query.yaml
var queryDocRaw []byte

type queryDoc struct {
	ResultKey string `yaml:"result_key"`
	Query     string `yaml:"query"`
}

// PointsResult is the property-record loader output: spatialized records
// plus the missing-coordinate skips, which stay out of the formal drop
// report and feed their own summary section.
type PointsResult struct {
	Records         []model.PropertyRecord
	MissingCoords   int
	MissingBySystem map[string]int // "PWSID name" -> skipped rows
}

// Points loads property records from the inventory GraphQL endpoint.
type Points struct {
	client   graphql.Client
	pageSize int
	doc      queryDoc
}

// NewPoints creates the property-record loader. pageSize caps rows per
// query; the endpoint is paged until it returns a short page.
func NewPoints(client graphql.Client, pageSize int) (*Points, error) {
	var doc queryDoc
	if err := yaml.Unmarshal(queryDocRaw, &doc); err != nil {
		return nil, eris.Wrap(err, "loader: parse query document")
	}
	if doc.ResultKey == "" || doc.Query == "" {
		return nil, eris.New("loader: query document missing result_key or query")
	}
	if pageSize <= 0 {
		pageSize = 8000
	}
	return &Points{client: client, pageSize: pageSize, doc: doc}, nil
}

// rawPoint mirrors the endpoint's row shape. Numeric columns arrive as
// JSON numbers or strings depending on the upstream ETL vintage, so the
// flexible ones stay untyped until conversion.
type rawPoint struct {
	SystemID               any      `json:"system_id"`
	PWSID                  string   `json:"pws_id"`
	PWSName                string   `json:"pws_name"`
	PWSCounty              string   `json:"pws_county"`
	PWSPopulation          any      `json:"pws_population"`
	ServiceLineID          string   `json:"serviceline_id"`
	PWSAddress             string   `json:"pws_address"`
	PWSCity                string   `json:"pws_city"`
	PWSZipcode             any      `json:"pws_zipcode"`
	Latitude               *float64 `json:"latitude"`
	Longitude              *float64 `json:"longitude"`
	ServiceLineAddress     string   `json:"serviceline_address"`
	ServiceLineZipcode     any      `json:"serviceline_zipcode"`
	SensitivePopulation    string   `json:"sensitive_population"`
	SystemOwnedMaterial    string   `json:"system_owned_material"`
	PreviouslyLead         string   `json:"previously_lead"`
	SOYearInstalled        any      `json:"so_year_installed"`
	COYearInstalled        any      `json:"co_year_installed"`
	SOBasisClassification  string   `json:"so_basis_classification"`
	COBasisClassification  string   `json:"co_basis_classification"`
	COMaterial             string   `json:"co_material"`
	SOMaterial             string   `json:"so_material"`
	MaterialClassification string   `json:"serviceline_material_cassification"`
}

// Load pages through the endpoint and spatializes every row that carries a
// usable coordinate pair. Rows without coordinates are counted per system
// and dropped; they never abort the run.
func (p *Points) Load(ctx context.Context) (PointsResult, error) {
	log := zap.L().With(zap.String("loader", "points"))

	var raws []rawPoint
	for offset := 0; ; offset += p.pageSize {
		data, err := p.client.Query(ctx, p.doc.Query, map[string]any{
			"offset": offset,
			"limit":  p.pageSize,
		})
		if err != nil {
			return PointsResult{}, eris.Wrap(err, "loader: fetch property records")
		}

		var envelope map[string]json.RawMessage
		if err := json.Unmarshal(data, &envelope); err != nil {
			return PointsResult{}, eris.Wrap(err, "loader: decode property response")
		}
		rowsRaw, ok := envelope[p.doc.ResultKey]
		if !ok {
			return PointsResult{}, eris.Errorf("loader: response missing %q", p.doc.ResultKey)
		}

		var page []rawPoint
		if err := json.Unmarshal(rowsRaw, &page); err != nil {
			return PointsResult{}, eris.Wrap(err, "loader: decode property rows")
		}

		log.Debug("fetched page", zap.Int("offset", offset), zap.Int("rows", len(page)))
		raws = append(raws, page...)
		if len(page) < p.pageSize {
			break
		}
	}

	result := PointsResult{MissingBySystem: map[string]int{}}
	for _, raw := range raws {
		if raw.Latitude == nil || raw.Longitude == nil {
			result.MissingCoords++
			result.MissingBySystem[fmt.Sprintf("%s %s", raw.PWSID, raw.PWSName)]++
			continue
		}
		result.Records = append(result.Records, toPropertyRecord(raw))
	}

	if result.MissingCoords > 0 {
		log.Warn("rows with missing coordinates", zap.Int("count", result.MissingCoords))
	}
	log.Info("property records loaded",
		zap.Int("records", len(result.Records)),
		zap.Int("missing_coords", result.MissingCoords),
	)
	return result, nil
}

func toPropertyRecord(raw rawPoint) model.PropertyRecord {
	// The latitude/longitude columns hold northing/easting for UTM rows;
	// the Coordinate mapping is the single place that pairing is decided.
	point := spatial.ToPoint(spatial.Coordinate{X: *raw.Longitude, Y: *raw.Latitude})

	return model.PropertyRecord{
		SystemID:               toInt64(raw.SystemID),
		PWSID:                  raw.PWSID,
		PWSName:                raw.PWSName,
		PWSCounty:              raw.PWSCounty,
		PWSPopulation:          toInt64(raw.PWSPopulation),
		ServiceLineID:          raw.ServiceLineID,
		PWSAddress:             raw.PWSAddress,
		PWSCity:                raw.PWSCity,
		PWSZipcode:             zip5(raw.PWSZipcode),
		ServiceLineAddress:     raw.ServiceLineAddress,
		ServiceLineZipcode:     toString(raw.ServiceLineZipcode),
		SensitivePopulation:    raw.SensitivePopulation,
		SystemOwnedMaterial:    raw.SystemOwnedMaterial,
		PreviouslyLead:         raw.PreviouslyLead,
		SOYearInstalled:        toString(raw.SOYearInstalled),
		COYearInstalled:        toString(raw.COYearInstalled),
		SOBasisClassification:  raw.SOBasisClassification,
		COBasisClassification:  raw.COBasisClassification,
		COMaterial:             raw.COMaterial,
		SOMaterial:             raw.SOMaterial,
		MaterialClassification: raw.MaterialClassification,
		Geometry:               point,
	}
}

// zip5 truncates ZIP+4 values to the five-digit form and parses them,
// returning nil for anything unusable.
func zip5(v any) *int64 {
	s := toString(v)
	if len(s) > 5 {
		s = s[:5]
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil
	}
	return &n
}

func toInt64(v any) *int64 {
	switch t := v.(type) {
	case nil:
		return nil
	case float64:
		n := int64(t)
		return &n
	case string:
		n, err := strconv.ParseInt(t, 10, 64)
		if err != nil {
			return nil
		}
		return &n
	default:
		return nil
	}
}

func toString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", t)
	}
}
