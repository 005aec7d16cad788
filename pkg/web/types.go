// Package web provides the HTTP handlers of the pathways API.
package web

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dukex/gtfs-pathways/pkg/query"
)

// CreatePathwayResponse is returned when an upload has been accepted.
type CreatePathwayResponse struct {
	RecordID string `json:"tdei_record_id"`
}

// HealthResponse reports the state of the service dependencies.
type HealthResponse struct {
	Status    string            `json:"status"`
	Message   string            `json:"message"`
	Checkers  map[string]string `json:"checkers"`
	Timestamp time.Time         `json:"timestamp"`
}

var errInvalidPage = errors.New("must be a positive integer")

// ListParamsFromQuery reads the listing filters. bbox may be repeated, comma separated, or both.
func ListParamsFromQuery(values url.Values) (query.ListParams, error) {
	params := query.ListParams{
		SchemaVersion:  values.Get("pathways_schema_version"),
		DateTime:       values.Get("date_time"),
		ProjectGroupID: values.Get("tdei_project_group_id"),
		RecordID:       values.Get("tdei_record_id"),
		StationID:      values.Get("tdei_station_id"),
	}

	var err error

	params.PageNo, err = positiveInt(values, "page_no")
	if err != nil {
		return query.ListParams{}, err
	}

	params.PageSize, err = positiveInt(values, "page_size")
	if err != nil {
		return query.ListParams{}, err
	}

	params.BBox, err = parseBBox(values["bbox"])
	if err != nil {
		return query.ListParams{}, err
	}

	return params, nil
}

func positiveInt(values url.Values, key string) (int, error) {
	raw := values.Get(key)
	if raw == "" {
		return 0, nil
	}

	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed < 1 {
		return 0, fmt.Errorf("%s %w", key, errInvalidPage)
	}

	return parsed, nil
}

func parseBBox(raw []string) ([]float64, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var bbox []float64

	for _, value := range raw {
		for _, part := range strings.Split(value, ",") {
			coordinate, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
			if err != nil {
				return nil, query.ErrInvalidBBox
			}

			bbox = append(bbox, coordinate)
		}
	}

	return bbox, nil
}
