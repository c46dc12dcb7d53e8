package pipeline

import (
	"context"
	"encoding/json"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ugrc/lsli-skid/internal/model"
	"github.com/ugrc/lsli-skid/internal/spatial"
	"github.com/ugrc/lsli-skid/pkg/agol"
)

// publishPoints replaces the points layer with the given records. Truncate
// and add run back to back; the layer is briefly empty between them.
func (p *Pipeline) publishPoints(ctx context.Context, records []model.PropertyRecord) (int, error) {
	features := make([]agol.Feature, 0, len(records))
	for _, rec := range records {
		geomJSON, err := json.Marshal(spatial.PointToEsri(rec.Geometry))
		if err != nil {
			return 0, eris.Wrap(err, "pipeline: encode point geometry")
		}
		features = append(features, agol.Feature{
			Geometry:   geomJSON,
			Attributes: rec.Attributes(),
		})
	}
	return p.replaceLayer(ctx, p.cfg.AGOL.PointsLayerURL, features)
}

// publishAreas replaces the certification areas layer.
func (p *Pipeline) publishAreas(ctx context.Context, areas []model.AreaFeature) (int, error) {
	features := make([]agol.Feature, 0, len(areas))
	for _, area := range areas {
		geomJSON, err := json.Marshal(spatial.PolygonToEsri(area.Geometry))
		if err != nil {
			return 0, eris.Wrap(err, "pipeline: encode area geometry")
		}
		features = append(features, agol.Feature{
			Geometry:   geomJSON,
			Attributes: area.Attributes(),
		})
	}
	return p.replaceLayer(ctx, p.cfg.AGOL.AreasLayerURL, features)
}

func (p *Pipeline) replaceLayer(ctx context.Context, layerURL string, features []agol.Feature) (int, error) {
	if err := p.agol.Truncate(ctx, layerURL); err != nil {
		return 0, err
	}
	zap.L().Info("layer truncated", zap.String("layer", layerURL))

	added, err := p.agol.AddFeatures(ctx, layerURL, features)
	if err != nil {
		return 0, err
	}
	zap.L().Info("features added", zap.String("layer", layerURL), zap.Int("count", added))
	return added, nil
}
