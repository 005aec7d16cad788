package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/dukex/gtfs-pathways/pkg/models"
	"github.com/dukex/gtfs-pathways/pkg/persistence"
	"github.com/dukex/gtfs-pathways/pkg/query"
	"github.com/dukex/gtfs-pathways/pkg/storage"
)

// StationResolver finds the active station a record refers to.
type StationResolver interface {
	Resolve(ctx context.Context, stationID, projectGroupID string) (*models.StationRef, error)
}

// Pathways lists, serves and creates pathway records.
type Pathways struct {
	repository persistence.PathwayRepository
	storage    storage.Storage
	stations   StationResolver
	logger     *slog.Logger
}

// NewPathways creates the record service. store may be nil, in which case downloads fail.
func NewPathways(
	repository persistence.PathwayRepository,
	store storage.Storage,
	stations StationResolver,
	logger *slog.Logger,
) *Pathways {
	return &Pathways{
		repository: repository,
		storage:    store,
		stations:   stations,
		logger:     logger.With("module", "pathways_service"),
	}
}

func (p *Pathways) List(ctx context.Context, params query.ListParams) ([]*models.PathwayVersion, error) {
	records, err := p.repository.List(ctx, params)
	if err != nil {
		if errors.Is(err, query.ErrInvalidDate) || errors.Is(err, query.ErrInvalidBBox) {
			return nil, newError(KindInput, "List", inputMessage(err), err)
		}

		return nil, newError(KindPersistence, "List", "Error while fetching the pathways information", err)
	}

	return records, nil
}

// DownloadHandle opens the stored file of a record. Callers close the handle.
func (p *Pathways) DownloadHandle(ctx context.Context, recordID string) (*storage.FileHandle, error) {
	path, err := p.repository.FileUploadPath(ctx, recordID)
	if err != nil {
		if persistence.IsRecordNotFound(err) {
			return nil, newError(KindNotFound, "DownloadHandle", "Record not found", err)
		}

		return nil, newError(KindPersistence, "DownloadHandle", "Error while getting the file stream", err)
	}

	if p.storage == nil {
		return nil, newError(KindPersistence, "DownloadHandle", "Storage not configured", nil)
	}

	handle, err := p.storage.Open(ctx, path)
	if err != nil {
		return nil, newError(KindPersistence, "DownloadHandle", "Error while getting the file stream", err)
	}

	return handle, nil
}

// Create admits a record: it validates the record, verifies the station, rejects overlapping
// validity intervals and inserts the row. Overlap check and insert are separate statements.
func (p *Pathways) Create(ctx context.Context, record *models.PathwayVersion) (*models.PathwayVersion, error) {
	logger := p.logger.With("record_id", record.RecordID)
	stage := StageReceived

	reject := func(err *ServiceError) (*models.PathwayVersion, error) {
		logger.WarnContext(ctx, "pathway version rejected",
			"stage", StageRejected, "reached", stage, "kind", err.Kind, "error", err)

		return nil, err.at(stage)
	}

	candidate := *record

	path, err := url.PathUnescape(candidate.FileUploadPath)
	if err != nil {
		return reject(newError(KindInput, "Create", "Invalid file_upload_path provided.", err))
	}

	candidate.FileUploadPath = path

	if fieldErrs := candidate.Validate(); len(fieldErrs) > 0 {
		return reject(newError(KindValidation, "Create", validationMessage(fieldErrs), fieldErrs))
	}

	stage = StageMetadataValidated

	_, err = p.stations.Resolve(ctx, candidate.StationID, candidate.ProjectGroupID)
	if err != nil {
		return reject(newError(KindNotFound, "Create",
			fmt.Sprintf("Station with ID %s not found or inactive for the org.", candidate.StationID), err))
	}

	stage = StageStationVerified

	overlapping, err := p.repository.FindOverlapping(ctx,
		candidate.ProjectGroupID, candidate.StationID, candidate.ValidFrom, candidate.ValidTo)
	if err != nil {
		return reject(newError(KindPersistence, "Create", "Error saving the pathways version", err))
	}

	if overlapping != "" {
		return reject(newError(KindOverlap, "Create",
			fmt.Sprintf("Given record overlaps with tdeirecord %s in the system", overlapping), nil))
	}

	stage = StageOverlapChecked

	saved, err := p.repository.Insert(ctx, &candidate)
	if err != nil {
		if persistence.IsUniqueViolation(err) {
			return reject(newError(KindDuplicate, "Create",
				fmt.Sprintf("Input with value '%s' already exists.", candidate.RecordID), err))
		}

		if fkErr, ok := persistence.IsForeignKeyViolation(err); ok {
			return reject(newError(KindInput, "Create",
				fmt.Sprintf("No reference found for the constraint '%s' in the system.", fkErr.Constraint), err))
		}

		return reject(newError(KindPersistence, "Create", "Error saving the pathways version", err))
	}

	logger.InfoContext(ctx, "pathway version persisted", "stage", StagePersisted)

	return saved, nil
}

func inputMessage(err error) string {
	switch {
	case errors.Is(err, query.ErrInvalidDate):
		return query.ErrInvalidDate.Error()
	case errors.Is(err, query.ErrInvalidBBox):
		return query.ErrInvalidBBox.Error()
	default:
		return err.Error()
	}
}

func validationMessage(errs models.FieldErrors) string {
	return "Input validation failed with below reasons : " + errs.Error()
}
