// Package geometry converts registry geometry payloads to well-known text.
//
// The registry serves geometry in two families: GeoJSON-like objects with a
// type and nested coordinate arrays, and legacy GML markup carrying
// gml:posList coordinate runs. Both are normalized into go-geom shapes and
// rendered as WKT with ordinates capped at 6 decimal digits.
package geometry

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/twpayne/go-geom"
)

var (
	gmlPolygonRe = regexp.MustCompile(`(?is)<gml:Polygon[^>]*>(.*?)</gml:Polygon>`)
	gmlPosListRe = regexp.MustCompile(`(?is)<gml:posList>([^<]+)</gml:posList>`)
	gmlPosRe     = regexp.MustCompile(`<gml:pos>([^<]+)</gml:pos>`)
)

// ParsePos extracts the x/y pair from a simple gml:pos tag. Unparsable input
// yields two empty strings; a single-token pos yields an empty y.
func ParsePos(gml string) (x, y string) {
	m := gmlPosRe.FindStringSubmatch(gml)
	if m == nil {
		return "", ""
	}
	parts := strings.Fields(m[1])
	switch {
	case len(parts) >= 2:
		return parts[0], parts[1]
	case len(parts) == 1:
		return parts[0], ""
	default:
		return "", ""
	}
}

// ToWKT converts a geometry object to WKT. Recognized shapes are GeoJSON-like
// Point, Polygon and MultiPolygon plus embedded GML markup; anything else
// falls back to the geometry's JSON serialization verbatim. Malformed
// coordinate entries are dropped rather than failing the whole shape.
func ToWKT(geometry gjson.Result) string {
	if !geometry.IsObject() {
		return ""
	}

	coords := geometry.Get("coordinates")
	switch geometry.Get("type").String() {
	case "Polygon":
		if coords.IsArray() {
			body := polygonBody(newPolygon(parseRings(coords)))
			if body == "" {
				return ""
			}
			return "POLYGON " + body
		}
	case "MultiPolygon":
		if coords.IsArray() {
			var bodies []string
			for _, polyCoords := range coords.Array() {
				if body := polygonBody(newPolygon(parseRings(polyCoords))); body != "" {
					bodies = append(bodies, body)
				}
			}
			if len(bodies) == 0 {
				return ""
			}
			return "MULTIPOLYGON (" + strings.Join(bodies, ", ") + ")"
		}
	case "Point":
		if arr := coords.Array(); coords.IsArray() && len(arr) >= 2 {
			x, okX := floatValue(arr[0])
			y, okY := floatValue(arr[1])
			if !okX || !okY {
				return ""
			}
			pt := geom.NewPointFlat(geom.XY, []float64{x, y})
			return "POINT (" + FormatOrdinate(pt.X()) + " " + FormatOrdinate(pt.Y()) + ")"
		}
	}

	if gml := geometry.Get("gml"); gml.Type == gjson.String {
		return GMLToWKT(gml.String())
	}

	return geometry.Raw
}

// GMLToWKT converts legacy GML markup to WKT. Each gml:Polygon block becomes
// one polygon; markup without polygon blocks is parsed as a single block. If
// no coordinate runs can be extracted at all, the markup is returned verbatim.
func GMLToWKT(gml string) string {
	var blocks []string
	for _, m := range gmlPolygonRe.FindAllStringSubmatch(gml, -1) {
		blocks = append(blocks, m[1])
	}
	if len(blocks) == 0 {
		blocks = []string{gml}
	}

	var polygons []*geom.Polygon
	for _, block := range blocks {
		var rings [][]geom.Coord
		for _, m := range gmlPosListRe.FindAllStringSubmatch(block, -1) {
			if ring := parsePosList(m[1]); len(ring) > 0 {
				rings = append(rings, ring)
			}
		}
		if poly := newPolygon(rings); poly != nil {
			polygons = append(polygons, poly)
		}
	}

	if len(polygons) == 0 {
		return gml
	}
	if len(polygons) == 1 {
		body := polygonBody(polygons[0])
		if body == "" {
			return ""
		}
		return "POLYGON " + body
	}

	var bodies []string
	for _, poly := range polygons {
		if body := polygonBody(poly); body != "" {
			bodies = append(bodies, body)
		}
	}
	if len(bodies) == 0 {
		return ""
	}
	return "MULTIPOLYGON (" + strings.Join(bodies, ", ") + ")"
}

// FormatOrdinate renders a coordinate value with up to 6 decimal digits,
// stripping trailing zeros and a trailing decimal point.
func FormatOrdinate(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	s := strconv.FormatFloat(v, 'f', 6, 64)
	s = strings.TrimRight(s, "0")
	return strings.TrimRight(s, ".")
}

// newPolygon builds a polygon from parsed rings, skipping empty ones.
// Returns nil when no usable ring remains.
func newPolygon(rings [][]geom.Coord) *geom.Polygon {
	poly := geom.NewPolygon(geom.XY)
	for _, ring := range rings {
		if len(ring) == 0 {
			continue
		}
		_ = poly.Push(geom.NewLinearRing(geom.XY).MustSetCoords(ring))
	}
	if poly.NumLinearRings() == 0 {
		return nil
	}
	return poly
}

// polygonBody renders the ring list of a polygon as "((x y, …), (…))".
func polygonBody(poly *geom.Polygon) string {
	if poly == nil {
		return ""
	}
	var rings []string
	for i := 0; i < poly.NumLinearRings(); i++ {
		var parts []string
		for _, c := range poly.LinearRing(i).Coords() {
			parts = append(parts, FormatOrdinate(c.X())+" "+FormatOrdinate(c.Y()))
		}
		if len(parts) > 0 {
			rings = append(rings, "("+strings.Join(parts, ", ")+")")
		}
	}
	if len(rings) == 0 {
		return ""
	}
	return "(" + strings.Join(rings, ", ") + ")"
}

// parseRings reads a GeoJSON-like ring array, dropping malformed pairs.
func parseRings(coords gjson.Result) [][]geom.Coord {
	var rings [][]geom.Coord
	for _, ringRes := range coords.Array() {
		if !ringRes.IsArray() {
			continue
		}
		var ring []geom.Coord
		for _, entry := range ringRes.Array() {
			if !entry.IsArray() {
				continue
			}
			pair := entry.Array()
			if len(pair) < 2 {
				continue
			}
			x, okX := floatValue(pair[0])
			y, okY := floatValue(pair[1])
			if !okX || !okY {
				continue
			}
			ring = append(ring, geom.Coord{x, y})
		}
		rings = append(rings, ring)
	}
	return rings
}

// parsePosList reads a whitespace-separated coordinate run in x y pairs,
// dropping pairs that fail to parse.
func parsePosList(text string) []geom.Coord {
	items := strings.Fields(text)
	var coords []geom.Coord
	for i := 0; i+1 < len(items); i += 2 {
		x, errX := strconv.ParseFloat(items[i], 64)
		y, errY := strconv.ParseFloat(items[i+1], 64)
		if errX != nil || errY != nil {
			continue
		}
		coords = append(coords, geom.Coord{x, y})
	}
	return coords
}

// floatValue coerces a JSON number or numeric string to a float.
func floatValue(r gjson.Result) (float64, bool) {
	switch r.Type {
	case gjson.Number:
		return r.Float(), true
	case gjson.String:
		v, err := strconv.ParseFloat(strings.TrimSpace(r.Str), 64)
		if err != nil {
			return 0, false
		}
		return v, true
	default:
		return 0, false
	}
}
