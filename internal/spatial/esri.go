package spatial

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
)

// SpatialReference is the Esri JSON spatial reference object.
type SpatialReference struct {
	WKID int `json:"wkid"`
}

// EsriPoint is an Esri JSON point geometry.
type EsriPoint struct {
	X                float64          `json:"x"`
	Y                float64          `json:"y"`
	SpatialReference SpatialReference `json:"spatialReference"`
}

// EsriPolygon is an Esri JSON polygon geometry. Outer rings wind clockwise,
// holes counter-clockwise; rings are not grouped into parts.
type EsriPolygon struct {
	Rings            [][][]float64    `json:"rings"`
	SpatialReference SpatialReference `json:"spatialReference"`
}

// PointToEsri converts a Web Mercator point to Esri JSON.
func PointToEsri(p *geom.Point) EsriPoint {
	return EsriPoint{
		X:                p.X(),
		Y:                p.Y(),
		SpatialReference: SpatialReference{WKID: WebMercatorWKID},
	}
}

// PolygonToEsri flattens a multipolygon's rings into Esri JSON.
func PolygonToEsri(mp *geom.MultiPolygon) EsriPolygon {
	var rings [][][]float64
	for i := 0; i < mp.NumPolygons(); i++ {
		poly := mp.Polygon(i)
		for j := 0; j < poly.NumLinearRings(); j++ {
			ring := poly.LinearRing(j)
			coords := make([][]float64, ring.NumCoords())
			for k := 0; k < ring.NumCoords(); k++ {
				c := ring.Coord(k)
				coords[k] = []float64{c.X(), c.Y()}
			}
			rings = append(rings, coords)
		}
	}
	return EsriPolygon{Rings: rings, SpatialReference: SpatialReference{WKID: WebMercatorWKID}}
}

// EsriToMultiPolygon rebuilds a multipolygon from Esri JSON rings. A
// clockwise ring opens a new polygon; counter-clockwise rings are holes of
// the polygon most recently opened. A leading hole with no outer ring is
// promoted to its own polygon rather than dropped.
func EsriToMultiPolygon(e EsriPolygon) (*geom.MultiPolygon, error) {
	if len(e.Rings) == 0 {
		return nil, eris.New("spatial: polygon has no rings")
	}

	mp := geom.NewMultiPolygon(geom.XY).SetSRID(WebMercatorWKID)
	var current *geom.Polygon

	flush := func() error {
		if current == nil {
			return nil
		}
		if err := mp.Push(current); err != nil {
			return eris.Wrap(err, "spatial: push polygon")
		}
		current = nil
		return nil
	}

	for _, ring := range e.Rings {
		if len(ring) < 4 {
			continue
		}
		flat := make([]float64, 0, len(ring)*2)
		for _, c := range ring {
			if len(c) < 2 {
				return nil, eris.New("spatial: malformed ring coordinate")
			}
			flat = append(flat, c[0], c[1])
		}
		lr := geom.NewLinearRingFlat(geom.XY, flat)

		if clockwise(ring) || current == nil {
			if err := flush(); err != nil {
				return nil, err
			}
			current = geom.NewPolygon(geom.XY)
		}
		if err := current.Push(lr); err != nil {
			return nil, eris.Wrap(err, "spatial: push ring")
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}

	if mp.NumPolygons() == 0 {
		return nil, eris.New("spatial: polygon has no usable rings")
	}
	return mp, nil
}

// clockwise reports whether a ring winds clockwise (negative signed area in
// a y-up plane), the Esri convention for outer rings.
func clockwise(ring [][]float64) bool {
	var sum float64
	for i := 0; i < len(ring)-1; i++ {
		sum += (ring[i+1][0] - ring[i][0]) * (ring[i+1][1] + ring[i][1])
	}
	return sum > 0
}
