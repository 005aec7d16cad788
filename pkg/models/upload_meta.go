package models

import (
	"encoding/json"
	"time"
)

// UploadMeta is the metadata submitted alongside a pathways file. Dates stay as strings until
// Validate has accepted them.
type UploadMeta struct {
	CollectedBy      string          `json:"collected_by"`
	CollectionDate   string          `json:"collection_date"`
	StationID        string          `json:"tdei_station_id"`
	ProjectGroupID   string          `json:"tdei_project_group_id"`
	CollectionMethod string          `json:"collection_method"`
	DataSource       string          `json:"data_source"`
	Polygon          json.RawMessage `json:"polygon,omitempty"`
	SchemaVersion    string          `json:"pathways_schema_version"`
	ValidFrom        string          `json:"valid_from"`
	ValidTo          string          `json:"valid_to"`
}

// Validate runs every field rule and returns all failures.
func (m *UploadMeta) Validate() FieldErrors {
	checker := &fieldChecker{}

	checker.required("collected_by", m.CollectedBy)
	checker.timestamp("collection_date", m.CollectionDate)
	checker.required("tdei_station_id", m.StationID)
	checker.required("tdei_project_group_id", m.ProjectGroupID)
	checker.oneOf("collection_method", m.CollectionMethod, CollectionMethods)
	checker.oneOf("data_source", m.DataSource, DataSources)
	checker.polygon(m.Polygon)

	to, toOK := checker.timestamp("valid_to", m.ValidTo)
	from, fromOK := checker.timestamp("valid_from", m.ValidFrom)

	if toOK && fromOK {
		checker.interval(from, to)
	}

	return checker.errs
}

// ToRecord builds the record for this metadata. Unparseable dates are left zero, so callers
// validate the metadata first.
func (m *UploadMeta) ToRecord(recordID, userID, fileUploadPath string) *PathwayVersion {
	return &PathwayVersion{
		RecordID:         recordID,
		ProjectGroupID:   m.ProjectGroupID,
		StationID:        m.StationID,
		FileUploadPath:   fileUploadPath,
		UploadedBy:       userID,
		CollectedBy:      m.CollectedBy,
		CollectionDate:   parseOrZero(m.CollectionDate),
		CollectionMethod: m.CollectionMethod,
		ValidFrom:        parseOrZero(m.ValidFrom),
		ValidTo:          parseOrZero(m.ValidTo),
		DataSource:       m.DataSource,
		SchemaVersion:    m.SchemaVersion,
		Polygon:          m.Polygon,
	}
}

func parseOrZero(value string) time.Time {
	parsed, err := ParseTimestamp(value)
	if err != nil {
		return time.Time{}
	}

	return parsed
}
