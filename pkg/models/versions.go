package models

type Version struct {
	Version       string `json:"version"`
	Documentation string `json:"documentation"`
	Specification string `json:"specification"`
}

// VersionsInfo lists the pathways schema versions this service accepts.
type VersionsInfo struct {
	Versions []Version `json:"versions"`
}

// SupportedVersions is served by the versions info endpoint.
func SupportedVersions() VersionsInfo {
	return VersionsInfo{
		Versions: []Version{
			{
				Version:       "v1.0",
				Documentation: "https://gtfs.org/schedule/reference/#pathwaystxt",
				Specification: "https://github.com/google/transit/blob/master/gtfs/spec/en/reference.md",
			},
		},
	}
}
