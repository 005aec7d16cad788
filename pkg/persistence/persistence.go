// Package persistence provides the data storage abstraction for pathway records.
package persistence

import (
	"context"
	"time"

	"github.com/dukex/gtfs-pathways/pkg/models"
	"github.com/dukex/gtfs-pathways/pkg/query"
)

type Persistence interface {
	Pathways() PathwayRepository
	HealthCheck(ctx context.Context) error

	Close(ctx context.Context) error
}

// PathwayRepository reads and writes pathway_versions rows.
type PathwayRepository interface {
	List(ctx context.Context, params query.ListParams) ([]*models.PathwayVersion, error)
	// FileUploadPath returns ErrRecordNotFound when no row matches.
	FileUploadPath(ctx context.Context, recordID string) (string, error)
	// FindOverlapping returns the id of a record whose validity interval intersects [from, to]
	// for the same project group and station, or "" when there is none.
	FindOverlapping(ctx context.Context, projectGroupID, stationID string, from, to time.Time) (string, error)
	Insert(ctx context.Context, record *models.PathwayVersion) (*models.PathwayVersion, error)
}
