package loader

import (
	"context"
	"encoding/json"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ugrc/lsli-skid/internal/model"
	"github.com/ugrc/lsli-skid/internal/pwsid"
	"github.com/ugrc/lsli-skid/internal/spatial"
	"github.com/ugrc/lsli-skid/pkg/agol"
)

// dwsysnumField is the system identifier column on the state service-area
// layer.
const dwsysnumField = "DWSYSNUM"

// ServiceAreas loads the reference service-area polygons from the state
// open-data feature service. The dataset is ground truth and read-only;
// rows that cannot be keyed or carry no polygon are skipped, never fixed.
type ServiceAreas struct {
	client   agol.Client
	layerURL string
	format   pwsid.Format
}

// NewServiceAreas creates the reference-geometry loader.
func NewServiceAreas(client agol.Client, layerURL string, format pwsid.Format) *ServiceAreas {
	return &ServiceAreas{client: client, layerURL: layerURL, format: format}
}

// Load queries the layer in Web Mercator and returns one ServiceArea per
// distinct canonical identifier (first geometry wins).
func (s *ServiceAreas) Load(ctx context.Context) ([]model.ServiceArea, error) {
	log := zap.L().With(zap.String("loader", "service_areas"))

	features, err := s.client.QueryLayer(ctx, s.layerURL, agol.QueryOptions{
		OutFields:      []string{dwsysnumField},
		OutWKID:        spatial.WebMercatorWKID,
		ReturnGeometry: true,
	})
	if err != nil {
		return nil, eris.Wrap(err, "loader: fetch service areas")
	}

	var areas []model.ServiceArea
	seen := map[string]bool{}

	for _, f := range features {
		raw, _ := f.Attributes[dwsysnumField].(string)
		if raw == "" || raw == " " {
			continue
		}
		canonical, err := s.format.Normalize(raw)
		if err != nil {
			log.Debug("skipping unkeyable service area", zap.String("dwsysnum", raw))
			continue
		}
		if seen[canonical] {
			continue
		}
		if len(f.Geometry) == 0 {
			log.Debug("service area has no geometry", zap.String("pwsid", canonical))
			continue
		}

		var poly spatial.EsriPolygon
		if err := json.Unmarshal(f.Geometry, &poly); err != nil {
			log.Debug("service area geometry undecodable", zap.String("pwsid", canonical), zap.Error(err))
			continue
		}
		mp, err := spatial.EsriToMultiPolygon(poly)
		if err != nil {
			log.Debug("service area geometry unusable", zap.String("pwsid", canonical), zap.Error(err))
			continue
		}

		seen[canonical] = true
		areas = append(areas, model.ServiceArea{PWSID: canonical, Geometry: mp})
	}

	log.Info("service areas loaded", zap.Int("areas", len(areas)), zap.Int("features", len(features)))
	return areas, nil
}
