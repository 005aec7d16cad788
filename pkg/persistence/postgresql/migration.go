package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE EXTENSION IF NOT EXISTS postgis;

			CREATE TABLE pathway_versions (
				tdei_record_id VARCHAR(40) PRIMARY KEY,
				tdei_project_group_id VARCHAR(40) NOT NULL,
				tdei_station_id VARCHAR(40) NOT NULL,
				file_upload_path TEXT NOT NULL,
				uploaded_by VARCHAR(100) NOT NULL,
				collected_by VARCHAR(100) NOT NULL,
				collection_date TIMESTAMP WITH TIME ZONE NOT NULL,
				collection_method VARCHAR(20) NOT NULL,
				valid_from TIMESTAMP WITH TIME ZONE NOT NULL,
				valid_to TIMESTAMP WITH TIME ZONE NOT NULL,
				data_source VARCHAR(20) NOT NULL,
				pathways_schema_version VARCHAR(20) NOT NULL,
				polygon geometry(Polygon, 4326),
				uploaded_date TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX idx_pathway_versions_station ON pathway_versions(tdei_project_group_id, tdei_station_id);
			CREATE INDEX idx_pathway_versions_uploaded_date ON pathway_versions(uploaded_date);
			CREATE INDEX idx_pathway_versions_polygon ON pathway_versions USING GIST (polygon);
		`,
	}
}
