package services

import (
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/dukex/gtfs-pathways/pkg/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const testPolygon = `{"type":"FeatureCollection","features":[{"type":"Feature","properties":{},"geometry":` +
	`{"type":"Polygon","coordinates":[[[-122.3,47.6],[-122.2,47.6],[-122.2,47.7],[-122.3,47.7],[-122.3,47.6]]]}}]}`

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func date(t *testing.T, value string) time.Time {
	t.Helper()

	parsed, err := models.ParseTimestamp(value)
	require.NoError(t, err)

	return parsed
}

func validRecord(t *testing.T) *models.PathwayVersion {
	t.Helper()

	return &models.PathwayVersion{
		RecordID:         "4f1c2b0d9e8a4b7c8d6e5f4a3b2c1d0e",
		ProjectGroupID:   "pg-1",
		StationID:        "st-1",
		FileUploadPath:   "https://tdei.blob.core.windows.net/pathways/2024/1/pg-1/4f1c/gtfs%20pathways.zip",
		UploadedBy:       "user-1",
		CollectedBy:      "surveyor",
		CollectionDate:   date(t, "2023-12-20"),
		CollectionMethod: "manual",
		ValidFrom:        date(t, "2024-01-01"),
		ValidTo:          date(t, "2024-01-31"),
		DataSource:       "TDEITools",
		SchemaVersion:    "v1.0",
		Polygon:          json.RawMessage(testPolygon),
	}
}

func validMeta() models.UploadMeta {
	return models.UploadMeta{
		CollectedBy:      "surveyor",
		CollectionDate:   "2023-12-20T10:00:00Z",
		StationID:        "st-1",
		ProjectGroupID:   "pg-1",
		CollectionMethod: "manual",
		DataSource:       "TDEITools",
		Polygon:          json.RawMessage(testPolygon),
		SchemaVersion:    "v1.0",
		ValidFrom:        "2024-01-01",
		ValidTo:          "2024-01-31",
	}
}

func metaJSON(t *testing.T, meta models.UploadMeta) string {
	t.Helper()

	raw, err := json.Marshal(meta)
	require.NoError(t, err)

	return string(raw)
}

func bearer(t *testing.T, subject string) string {
	t.Helper()

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": subject}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	return "Bearer " + token
}
