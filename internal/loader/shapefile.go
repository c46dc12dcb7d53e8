package loader

import (
	"math"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/ugrc/lsli-skid/internal/model"
	"github.com/ugrc/lsli-skid/internal/pwsid"
	"github.com/ugrc/lsli-skid/internal/spatial"
)

// ServiceAreasFromShapefile reads the reference polygons from a downloaded
// open-data shapefile instead of the live feature service, for offline
// runs. Geographic coordinates are projected to Web Mercator; projected
// input is assumed to already be Web Mercator.
func ServiceAreasFromShapefile(path string, format pwsid.Format) ([]model.ServiceArea, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "loader: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	keyField := -1
	for i, f := range reader.Fields() {
		if strings.EqualFold(strings.TrimRight(f.String(), "\x00"), dwsysnumField) {
			keyField = i
			break
		}
	}
	if keyField < 0 {
		return nil, eris.Errorf("loader: shapefile has no %s field", dwsysnumField)
	}

	log := zap.L().With(zap.String("loader", "service_areas_shp"))
	var areas []model.ServiceArea
	seen := map[string]bool{}

	for reader.Next() {
		_, shape := reader.Shape()
		poly, ok := shape.(*shp.Polygon)
		if !ok {
			continue
		}

		raw := strings.TrimSpace(strings.TrimRight(reader.Attribute(keyField), "\x00"))
		canonical, err := format.Normalize(raw)
		if err != nil {
			log.Debug("skipping unkeyable shape", zap.String("dwsysnum", raw))
			continue
		}
		if seen[canonical] {
			continue
		}

		mp := polygonToMultiPolygon(poly)
		if mp == nil {
			log.Debug("shape has no usable rings", zap.String("pwsid", canonical))
			continue
		}

		seen[canonical] = true
		areas = append(areas, model.ServiceArea{PWSID: canonical, Geometry: mp})
	}
	if err := reader.Err(); err != nil {
		return nil, eris.Wrap(err, "loader: read shapefile")
	}

	log.Info("service areas loaded from shapefile", zap.Int("areas", len(areas)))
	return areas, nil
}

// polygonToMultiPolygon converts a shapefile polygon's parts into a Web
// Mercator multipolygon. Shapefile outer rings wind clockwise, matching the
// Esri ring convention used elsewhere.
func polygonToMultiPolygon(p *shp.Polygon) *geom.MultiPolygon {
	if p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	geographic := looksGeographic(p)
	var rings [][][]float64

	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		end := int32(len(p.Points))
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		}

		ring := make([][]float64, 0, end-start)
		for j := start; j < end; j++ {
			x, y := p.Points[j].X, p.Points[j].Y
			if geographic {
				x, y = spatial.WGS84ToWebMercator(x, y)
			}
			ring = append(ring, []float64{x, y})
		}
		rings = append(rings, ring)
	}

	mp, err := spatial.EsriToMultiPolygon(spatial.EsriPolygon{Rings: rings})
	if err != nil {
		return nil
	}
	return mp
}

// looksGeographic reports whether every vertex fits in degree range, the
// heuristic for a shapefile still in WGS84.
func looksGeographic(p *shp.Polygon) bool {
	for _, pt := range p.Points {
		if math.Abs(pt.X) > 180 || math.Abs(pt.Y) > 90 {
			return false
		}
	}
	return true
}
