// Package geometry validates and reshapes GeoJSON polygon payloads.
package geometry

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const (
	TypePolygon           = "Polygon"
	TypeFeature           = "Feature"
	TypeFeatureCollection = "FeatureCollection"

	// MinRingPositions is the smallest closed ring: a triangle plus its closing position.
	MinRingPositions = 4

	invalidPolygonMessage = "Not a valid polygon coordinates."
)

// ErrNoPolygon is returned by ExtractGeometry when the payload carries no polygon.
var ErrNoPolygon = errors.New("no polygon geometry found")

// Polygon is a GeoJSON Polygon geometry.
type Polygon struct {
	Type        string        `json:"type"`
	Coordinates [][][]float64 `json:"coordinates"`
}

// Feature is a GeoJSON Feature carrying a polygon.
type Feature struct {
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties"`
	Geometry   Polygon        `json:"geometry"`
}

// FeatureCollection is the response shape used for stored boundaries.
type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

var (
	positionSchema = map[string]any{
		"type":     "array",
		"minItems": 2,
		"maxItems": 2,
		"items":    map[string]any{"type": "number"},
	}

	polygonSchema = map[string]any{
		"type":     "object",
		"required": []any{"type", "coordinates"},
		"properties": map[string]any{
			"type": map[string]any{"enum": []any{TypePolygon}},
			"coordinates": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":  "array",
					"items": positionSchema,
				},
			},
		},
	}

	featureCollectionSchema = map[string]any{
		"type":     "object",
		"required": []any{"type", "features"},
		"properties": map[string]any{
			"type": map[string]any{"enum": []any{TypeFeatureCollection}},
			"features": map[string]any{
				"type":     "array",
				"minItems": 1,
				"items": map[string]any{
					"type":     "object",
					"required": []any{"type", "geometry"},
					"properties": map[string]any{
						"type":     map[string]any{"enum": []any{TypeFeature}},
						"geometry": polygonSchema,
					},
				},
			},
		},
	}

	schemaLoader = gojsonschema.NewGoLoader(map[string]any{
		"oneOf": []any{polygonSchema, featureCollectionSchema},
	})
)

// Validate reports whether raw is a well-formed single-ring GeoJSON polygon, either as a bare
// Polygon geometry or as a FeatureCollection of Polygon features. On failure the second value
// is a human-readable reason.
func Validate(raw json.RawMessage) (bool, string) {
	if len(raw) == 0 {
		return false, invalidPolygonMessage
	}

	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return false, invalidPolygonMessage + " " + err.Error()
	}

	if !result.Valid() {
		return false, describeSchemaErrors(result.Errors())
	}

	polygons, err := decodePolygons(raw)
	if err != nil {
		return false, invalidPolygonMessage
	}

	for i, polygon := range polygons {
		if reason := checkRings(polygon.Coordinates); reason != "" {
			if len(polygons) > 1 {
				return false, fmt.Sprintf("feature %d: %s", i, reason)
			}

			return false, reason
		}
	}

	return true, ""
}

// ExtractGeometry returns the first polygon geometry of raw.
func ExtractGeometry(raw json.RawMessage) (*Polygon, error) {
	polygons, err := decodePolygons(raw)
	if err != nil {
		return nil, err
	}

	if len(polygons) == 0 {
		return nil, ErrNoPolygon
	}

	return &polygons[0], nil
}

// WrapFeatureCollection builds the FeatureCollection shape around a stored geometry.
func WrapFeatureCollection(polygon Polygon) FeatureCollection {
	return FeatureCollection{
		Type: TypeFeatureCollection,
		Features: []Feature{
			{
				Type:       TypeFeature,
				Properties: map[string]any{},
				Geometry:   polygon,
			},
		},
	}
}

func decodePolygons(raw json.RawMessage) ([]Polygon, error) {
	var probe struct {
		Type string `json:"type"`
	}

	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("failed to decode geometry: %w", err)
	}

	switch probe.Type {
	case TypePolygon:
		var polygon Polygon
		if err := json.Unmarshal(raw, &polygon); err != nil {
			return nil, fmt.Errorf("failed to decode polygon: %w", err)
		}

		return []Polygon{polygon}, nil
	case TypeFeatureCollection:
		var collection FeatureCollection
		if err := json.Unmarshal(raw, &collection); err != nil {
			return nil, fmt.Errorf("failed to decode feature collection: %w", err)
		}

		polygons := make([]Polygon, 0, len(collection.Features))
		for _, feature := range collection.Features {
			polygons = append(polygons, feature.Geometry)
		}

		return polygons, nil
	default:
		return nil, ErrNoPolygon
	}
}

func checkRings(rings [][][]float64) string {
	if len(rings) != 1 {
		return fmt.Sprintf("Polygon must have exactly one linear ring, got %d.", len(rings))
	}

	ring := rings[0]
	if len(ring) < MinRingPositions {
		return fmt.Sprintf("Polygon ring must have at least %d positions.", MinRingPositions)
	}

	first, last := ring[0], ring[len(ring)-1]
	if first[0] != last[0] || first[1] != last[1] {
		return "The first and last positions in a linear ring must be equivalent."
	}

	for _, position := range ring {
		lon, lat := position[0], position[1]
		if lon < -180 || lon > 180 || lat < -90 || lat > 90 {
			return fmt.Sprintf("Position [%v, %v] is not a valid longitude/latitude pair.", lon, lat)
		}
	}

	return ""
}

func describeSchemaErrors(errs []gojsonschema.ResultError) string {
	messages := make([]string, 0, len(errs))
	for _, e := range errs {
		messages = append(messages, e.String())
	}

	return invalidPolygonMessage + " " + strings.Join(messages, "; ")
}
