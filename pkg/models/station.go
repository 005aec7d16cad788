package models

import "encoding/json"

// StationRef is the station registry's view of a station. IsActive is nil when the registry
// does not report it.
type StationRef struct {
	StationID      string          `json:"tdei_station_id"`
	ProjectGroupID string          `json:"tdei_project_group_id"`
	StationName    string          `json:"station_name"`
	IsActive       *bool           `json:"is_active,omitempty"`
	Polygon        json.RawMessage `json:"polygon,omitempty"`
}

func (s *StationRef) Active() bool {
	return s.IsActive == nil || *s.IsActive
}
