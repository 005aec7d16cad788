// Package testutil provides test data builders and utilities for testing.
package testutil

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/dukex/gtfs-pathways/pkg/models"
	"github.com/google/uuid"
)

// SquarePolygon is a closed single-ring polygon around a station.
const SquarePolygon = `{"type":"Polygon","coordinates":` +
	`[[[77.58,12.97],[77.60,12.97],[77.60,12.99],[77.58,12.99],[77.58,12.97]]]}`

// Day returns midnight UTC of the given date.
func Day(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// CreateTestPathwayVersion creates a valid PathwayVersion with default values that can be overridden.
func CreateTestPathwayVersion(overrides ...func(*models.PathwayVersion)) *models.PathwayVersion {
	record := &models.PathwayVersion{
		RecordID:         strings.ReplaceAll(uuid.NewString(), "-", ""),
		ProjectGroupID:   "pg-1",
		StationID:        "st-1",
		FileUploadPath:   "https://storage/2024/1/pg-1/file.zip",
		UploadedBy:       "user-1",
		CollectedBy:      "surveyor",
		CollectionDate:   Day(2023, time.December, 20),
		CollectionMethod: "manual",
		ValidFrom:        Day(2024, time.January, 1),
		ValidTo:          Day(2024, time.January, 31),
		DataSource:       "TDEITools",
		SchemaVersion:    "v1.0",
		Polygon:          json.RawMessage(SquarePolygon),
	}

	for _, override := range overrides {
		override(record)
	}

	return record
}

// WithStation sets the station of the record.
func WithStation(stationID string) func(*models.PathwayVersion) {
	return func(r *models.PathwayVersion) {
		r.StationID = stationID
	}
}

// WithInterval sets the validity interval of the record.
func WithInterval(from, to time.Time) func(*models.PathwayVersion) {
	return func(r *models.PathwayVersion) {
		r.ValidFrom = from
		r.ValidTo = to
	}
}

// CreateTestUploadMeta creates valid upload metadata matching CreateTestPathwayVersion.
func CreateTestUploadMeta(overrides ...func(*models.UploadMeta)) models.UploadMeta {
	meta := models.UploadMeta{
		CollectedBy:      "surveyor",
		CollectionDate:   "2023-12-20",
		StationID:        "st-1",
		ProjectGroupID:   "pg-1",
		CollectionMethod: "manual",
		DataSource:       "TDEITools",
		Polygon:          json.RawMessage(SquarePolygon),
		SchemaVersion:    "v1.0",
		ValidFrom:        "2024-01-01",
		ValidTo:          "2024-01-31",
	}

	for _, override := range overrides {
		override(&meta)
	}

	return meta
}
