package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/gtfs-pathways/pkg/geometry"
	"github.com/dukex/gtfs-pathways/pkg/models"
	"github.com/dukex/gtfs-pathways/pkg/persistence"
	"github.com/dukex/gtfs-pathways/pkg/query"
)

// PathwayRepository handles pathway_versions database operations.
type PathwayRepository struct {
	db     *DB
	logger *slog.Logger
}

// NewPathwayRepository creates a new pathway repository.
func NewPathwayRepository(db *DB, logger *slog.Logger) *PathwayRepository {
	return &PathwayRepository{db: db, logger: logger}
}

// List returns one page of records matching params, newest upload first.
func (r *PathwayRepository) List(ctx context.Context, params query.ListParams) ([]*models.PathwayVersion, error) {
	q, err := query.BuildList(params)
	if err != nil {
		return nil, err
	}

	records := make([]*models.PathwayVersion, 0)

	err = r.db.Query(ctx, q, func(rows *sql.Rows) error {
		record, err := scanPathway(rows)
		if err != nil {
			return err
		}

		records = append(records, record)

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list pathway versions: %w", err)
	}

	return records, nil
}

func (r *PathwayRepository) FileUploadPath(ctx context.Context, recordID string) (string, error) {
	var (
		path  string
		found bool
	)

	err := r.db.Query(ctx, query.RecordPathQuery(recordID), func(rows *sql.Rows) error {
		found = true

		return rows.Scan(&path)
	})
	if err != nil {
		return "", persistence.NewRecordError("FileUploadPath", recordID, err)
	}

	if !found {
		return "", persistence.NewRecordError("FileUploadPath", recordID, persistence.ErrRecordNotFound)
	}

	return path, nil
}

func (r *PathwayRepository) FindOverlapping(ctx context.Context, projectGroupID, stationID string, from, to time.Time) (string, error) {
	var recordID string

	err := r.db.Query(ctx, query.OverlapQuery(projectGroupID, stationID, from, to), func(rows *sql.Rows) error {
		return rows.Scan(&recordID)
	})
	if err != nil {
		return "", fmt.Errorf("failed to check overlapping versions: %w", err)
	}

	return recordID, nil
}

// Insert stores record and returns it with the server-assigned upload date.
func (r *PathwayRepository) Insert(ctx context.Context, record *models.PathwayVersion) (*models.PathwayVersion, error) {
	polygon, err := storedGeometry(record.Polygon)
	if err != nil {
		return nil, persistence.NewRecordError("Insert", record.RecordID, err)
	}

	q := query.InsertQuery(query.InsertRow{
		RecordID:         record.RecordID,
		ProjectGroupID:   record.ProjectGroupID,
		StationID:        record.StationID,
		FileUploadPath:   record.FileUploadPath,
		UploadedBy:       record.UploadedBy,
		CollectedBy:      record.CollectedBy,
		CollectionDate:   record.CollectionDate,
		CollectionMethod: record.CollectionMethod,
		ValidFrom:        record.ValidFrom,
		ValidTo:          record.ValidTo,
		DataSource:       record.DataSource,
		SchemaVersion:    record.SchemaVersion,
		Polygon:          polygon,
	})

	saved := *record

	err = r.db.Query(ctx, q, func(rows *sql.Rows) error {
		return rows.Scan(&saved.UploadedDate)
	})
	if err != nil {
		return nil, persistence.NewRecordError("Insert", record.RecordID, err)
	}

	r.logger.DebugContext(ctx, "pathway version inserted", "record_id", record.RecordID)

	return &saved, nil
}

func storedGeometry(raw json.RawMessage) (*string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	polygon, err := geometry.ExtractGeometry(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to extract polygon: %w", err)
	}

	encoded, err := json.Marshal(polygon)
	if err != nil {
		return nil, fmt.Errorf("failed to encode polygon: %w", err)
	}

	text := string(encoded)

	return &text, nil
}

func scanPathway(rows *sql.Rows) (*models.PathwayVersion, error) {
	var (
		record  models.PathwayVersion
		polygon sql.NullString
	)

	err := rows.Scan(
		&record.RecordID,
		&record.ProjectGroupID,
		&record.StationID,
		&record.FileUploadPath,
		&record.UploadedBy,
		&record.CollectedBy,
		&record.CollectionDate,
		&record.CollectionMethod,
		&record.ValidFrom,
		&record.ValidTo,
		&record.DataSource,
		&record.SchemaVersion,
		&polygon,
		&record.UploadedDate,
	)
	if err != nil {
		return nil, err
	}

	if polygon.Valid {
		var stored geometry.Polygon

		err = json.Unmarshal([]byte(polygon.String), &stored)
		if err != nil {
			return nil, fmt.Errorf("failed to decode stored polygon: %w", err)
		}

		record.Polygon, err = json.Marshal(geometry.WrapFeatureCollection(stored))
		if err != nil {
			return nil, fmt.Errorf("failed to encode polygon: %w", err)
		}
	}

	return &record, nil
}
