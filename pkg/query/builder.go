// Package query builds the parameterized SQL statements run against the pathway_versions table.
package query

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

const (
	DefaultPageNo   = 1
	DefaultPageSize = 10

	dateLayout = "2006-01-02"

	selectColumns = `tdei_record_id, tdei_project_group_id, tdei_station_id, file_upload_path, uploaded_by,
	collected_by, collection_date, collection_method, valid_from, valid_to, data_source,
	pathways_schema_version, ST_AsGeoJSON(polygon) AS polygon2, uploaded_date`
)

var (
	// ErrInvalidDate is returned when date_time is not a real YYYY-MM-DD calendar date.
	ErrInvalidDate = errors.New("Invalid date provided.")

	// ErrInvalidBBox is returned when a bounding box is supplied without exactly four values.
	ErrInvalidBBox = errors.New("Bounding box should have 4 values: west, south, east, north.")

	datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

// Query is a SQL statement with positional arguments.
type Query struct {
	Text string
	Args []any
}

// ListParams are the optional listing filters. Zero values mean "unset"; BBox is unset when nil.
type ListParams struct {
	SchemaVersion  string
	DateTime       string
	ProjectGroupID string
	RecordID       string
	StationID      string
	BBox           []float64
	PageNo         int
	PageSize       int
}

// Page returns the effective page number and size.
func (p ListParams) Page() (int, int) {
	pageNo, pageSize := p.PageNo, p.PageSize
	if pageNo < 1 {
		pageNo = DefaultPageNo
	}

	if pageSize < 1 {
		pageSize = DefaultPageSize
	}

	return pageNo, pageSize
}

type builder struct {
	conditions []string
	args       []any
}

func (b *builder) arg(value any) string {
	b.args = append(b.args, value)

	return fmt.Sprintf("$%d", len(b.args))
}

func (b *builder) where(format string, values ...any) {
	placeholders := make([]any, 0, len(values))
	for _, value := range values {
		placeholders = append(placeholders, b.arg(value))
	}

	b.conditions = append(b.conditions, fmt.Sprintf(format, placeholders...))
}

// BuildList builds the paged listing query. Each set filter adds one AND condition; results are
// ordered newest upload first.
func BuildList(params ListParams) (Query, error) {
	b := &builder{}

	if params.SchemaVersion != "" {
		b.where("pathways_schema_version = %s", params.SchemaVersion)
	}

	if params.DateTime != "" {
		date, err := parseDate(params.DateTime)
		if err != nil {
			return Query{}, err
		}

		b.where("valid_to > %s", date)
	}

	if params.ProjectGroupID != "" {
		b.where("tdei_project_group_id = %s", params.ProjectGroupID)
	}

	if params.RecordID != "" {
		b.where("tdei_record_id = %s", params.RecordID)
	}

	if params.StationID != "" {
		b.where("tdei_station_id = %s", params.StationID)
	}

	if params.BBox != nil {
		if len(params.BBox) != 4 {
			return Query{}, ErrInvalidBBox
		}

		b.where("polygon && ST_MakeEnvelope(%s, %s, %s, %s, 4326)",
			params.BBox[0], params.BBox[1], params.BBox[2], params.BBox[3])
	}

	var text strings.Builder

	text.WriteString("SELECT ")
	text.WriteString(selectColumns)
	text.WriteString(" FROM pathway_versions")

	if len(b.conditions) > 0 {
		text.WriteString(" WHERE ")
		text.WriteString(strings.Join(b.conditions, " AND "))
	}

	pageNo, pageSize := params.Page()

	text.WriteString(" ORDER BY uploaded_date DESC")
	text.WriteString(" LIMIT " + b.arg(pageSize))
	text.WriteString(" OFFSET " + b.arg((pageNo-1)*pageSize))

	return Query{Text: text.String(), Args: b.args}, nil
}

// OverlapQuery finds at most one record of the same project group and station whose validity
// interval intersects [from, to].
func OverlapQuery(projectGroupID, stationID string, from, to time.Time) Query {
	return Query{
		Text: `SELECT tdei_record_id FROM pathway_versions
	WHERE tdei_project_group_id = $1 AND tdei_station_id = $2
	AND valid_from <= $4 AND valid_to >= $3
	LIMIT 1`,
		Args: []any{projectGroupID, stationID, from, to},
	}
}

// RecordPathQuery selects the storage location of one record.
func RecordPathQuery(recordID string) Query {
	return Query{
		Text: "SELECT file_upload_path FROM pathway_versions WHERE tdei_record_id = $1",
		Args: []any{recordID},
	}
}

// InsertRow holds the column values of a new pathway_versions row. Polygon is GeoJSON geometry
// text, nil when the record has no boundary.
type InsertRow struct {
	RecordID         string
	ProjectGroupID   string
	StationID        string
	FileUploadPath   string
	UploadedBy       string
	CollectedBy      string
	CollectionDate   time.Time
	CollectionMethod string
	ValidFrom        time.Time
	ValidTo          time.Time
	DataSource       string
	SchemaVersion    string
	Polygon          *string
}

// InsertQuery builds the insert statement, returning the server-assigned upload timestamp.
func InsertQuery(row InsertRow) Query {
	return Query{
		Text: `INSERT INTO pathway_versions (
	tdei_record_id, tdei_project_group_id, tdei_station_id, file_upload_path, uploaded_by,
	collected_by, collection_date, collection_method, valid_from, valid_to, data_source,
	pathways_schema_version, polygon
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12,
	CASE WHEN $13::text IS NULL THEN NULL ELSE ST_SetSRID(ST_GeomFromGeoJSON($13::text), 4326) END)
RETURNING uploaded_date`,
		Args: []any{
			row.RecordID, row.ProjectGroupID, row.StationID, row.FileUploadPath, row.UploadedBy,
			row.CollectedBy, row.CollectionDate, row.CollectionMethod, row.ValidFrom, row.ValidTo,
			row.DataSource, row.SchemaVersion, row.Polygon,
		},
	}
}

func parseDate(value string) (time.Time, error) {
	if !datePattern.MatchString(value) {
		return time.Time{}, ErrInvalidDate
	}

	date, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}

	return date, nil
}
