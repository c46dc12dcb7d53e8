// Package spatial handles coordinate classification, projection into the
// working coordinate system (Web Mercator), and conversion between go-geom
// geometries and Esri JSON geometry.
package spatial

import (
	"math"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
)

// ErrMissingCoordinates indicates a record without a usable coordinate pair.
var ErrMissingCoordinates = eris.New("spatial: missing coordinates")

// WebMercatorWKID is the working coordinate system for both published layers.
const WebMercatorWKID = 3857

// CRS identifies the coordinate system a source coordinate pair is in.
type CRS int

const (
	WGS84    CRS = 4326  // geographic degrees
	UTM12N   CRS = 26912 // NAD83 / UTM zone 12N meters
)

// Coordinate is a source coordinate pair with the axes fixed at construction:
// X is always longitude or easting, Y always latitude or northing. The
// upstream inventory delivers these in columns named latitude/longitude even
// when they hold UTM northing/easting, so the mapping happens exactly once,
// where the columns are read.
type Coordinate struct {
	X float64
	Y float64
}

// Classify determines which coordinate system a pair is in. The inventory
// mixes WGS84 and UTM rows in one feed; anything with |Y| < 100 can only be
// a geographic latitude, anything larger a UTM northing.
func Classify(c Coordinate) CRS {
	if math.Abs(c.Y) < 100 {
		return WGS84
	}
	return UTM12N
}

// NAD83 / GRS80 ellipsoid and UTM zone 12N projection constants.
const (
	semiMajor  = 6378137.0
	flattening = 1 / 298.257222101
	utmScale   = 0.9996
	utmFalseE  = 500000.0
	utmLon0Deg = -111.0
)

var (
	ecc2  = flattening * (2 - flattening) // first eccentricity squared
	eccP2 = ecc2 / (1 - ecc2)             // second eccentricity squared
)

// WGS84ToWebMercator projects geographic degrees to spherical Web Mercator.
func WGS84ToWebMercator(lon, lat float64) (x, y float64) {
	x = semiMajor * lon * math.Pi / 180
	y = semiMajor * math.Log(math.Tan(math.Pi/4+lat*math.Pi/360))
	return x, y
}

// UTM12ToWGS84 inverts the NAD83 / UTM zone 12N transverse Mercator
// projection using the standard series expansion.
func UTM12ToWGS84(easting, northing float64) (lon, lat float64) {
	m := northing / utmScale
	mu := m / (semiMajor * (1 - ecc2/4 - 3*ecc2*ecc2/64 - 5*ecc2*ecc2*ecc2/256))

	e1 := (1 - math.Sqrt(1-ecc2)) / (1 + math.Sqrt(1-ecc2))
	phi1 := mu +
		(3*e1/2-27*e1*e1*e1/32)*math.Sin(2*mu) +
		(21*e1*e1/16-55*e1*e1*e1*e1/32)*math.Sin(4*mu) +
		(151*e1*e1*e1/96)*math.Sin(6*mu) +
		(1097*e1*e1*e1*e1/512)*math.Sin(8*mu)

	sin1, cos1, tan1 := math.Sin(phi1), math.Cos(phi1), math.Tan(phi1)
	c1 := eccP2 * cos1 * cos1
	t1 := tan1 * tan1
	n1 := semiMajor / math.Sqrt(1-ecc2*sin1*sin1)
	r1 := semiMajor * (1 - ecc2) / math.Pow(1-ecc2*sin1*sin1, 1.5)
	d := (easting - utmFalseE) / (n1 * utmScale)

	phi := phi1 - (n1*tan1/r1)*(d*d/2-
		(5+3*t1+10*c1-4*c1*c1-9*eccP2)*math.Pow(d, 4)/24+
		(61+90*t1+298*c1+45*t1*t1-252*eccP2-3*c1*c1)*math.Pow(d, 6)/720)
	lam := utmLon0Deg*math.Pi/180 + (d-
		(1+2*t1+c1)*d*d*d/6+
		(5-2*c1+28*t1-3*c1*c1+8*eccP2+24*t1*t1)*math.Pow(d, 5)/120)/cos1

	return lam * 180 / math.Pi, phi * 180 / math.Pi
}

// ToPoint projects a classified source coordinate into a Web Mercator point.
func ToPoint(c Coordinate) *geom.Point {
	var x, y float64
	switch Classify(c) {
	case UTM12N:
		lon, lat := UTM12ToWGS84(c.X, c.Y)
		x, y = WGS84ToWebMercator(lon, lat)
	default:
		x, y = WGS84ToWebMercator(c.X, c.Y)
	}
	return geom.NewPointFlat(geom.XY, []float64{x, y}).SetSRID(WebMercatorWKID)
}
