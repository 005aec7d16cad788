// Package models defines the pathway records and the messages exchanged with other services.
package models

import (
	"encoding/json"
	"time"
)

// PathwayVersion is one submitted version of a station's pathways dataset.
type PathwayVersion struct {
	RecordID         string          `json:"tdei_record_id"`
	ProjectGroupID   string          `json:"tdei_project_group_id"`
	StationID        string          `json:"tdei_station_id"`
	FileUploadPath   string          `json:"file_upload_path"`
	UploadedBy       string          `json:"uploaded_by"`
	CollectedBy      string          `json:"collected_by"`
	CollectionDate   time.Time       `json:"collection_date"`
	CollectionMethod string          `json:"collection_method"`
	ValidFrom        time.Time       `json:"valid_from"`
	ValidTo          time.Time       `json:"valid_to"`
	DataSource       string          `json:"data_source"`
	SchemaVersion    string          `json:"pathways_schema_version"`
	Polygon          json.RawMessage `json:"polygon,omitempty"`
	UploadedDate     time.Time       `json:"uploaded_date"`
}

// Validate checks a record about to be persisted.
func (p *PathwayVersion) Validate() FieldErrors {
	checker := &fieldChecker{}

	checker.required("tdei_record_id", p.RecordID)
	checker.required("tdei_project_group_id", p.ProjectGroupID)
	checker.required("tdei_station_id", p.StationID)
	checker.required("file_upload_path", p.FileUploadPath)
	checker.required("collected_by", p.CollectedBy)
	checker.oneOf("collection_method", p.CollectionMethod, CollectionMethods)
	checker.oneOf("data_source", p.DataSource, DataSources)

	if p.CollectionDate.IsZero() {
		checker.failf("collection_date should not be empty")
	}

	fromSet, toSet := !p.ValidFrom.IsZero(), !p.ValidTo.IsZero()
	if !fromSet {
		checker.failf("valid_from should not be empty")
	}

	if !toSet {
		checker.failf("valid_to should not be empty")
	}

	if fromSet && toSet {
		checker.interval(p.ValidFrom, p.ValidTo)
	}

	checker.polygon(p.Polygon)

	return checker.errs
}
