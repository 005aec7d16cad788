package services

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dukex/gtfs-pathways/pkg/auth"
	"github.com/dukex/gtfs-pathways/pkg/eventbus"
	"github.com/dukex/gtfs-pathways/pkg/metrics"
	"github.com/dukex/gtfs-pathways/pkg/models"
	"github.com/dukex/gtfs-pathways/pkg/storage"
	"go.opentelemetry.io/otel/trace"
)

const (
	UploadStage = "pathways-upload"

	zipExtension       = ".zip"
	zipContentType     = "application/zip"
	jsonContentType    = "application/json"
	unauthenticatedMsg = "User not authenticated/authorized to perform this action."
	permissionCheckMsg = "Unable to verify user permissions."
)

// PermissionChecker decides whether a user may upload for a project group.
type PermissionChecker interface {
	CanUpload(ctx context.Context, userID, projectGroupID string) (bool, error)
}

// UploadRequest is one multipart submission.
type UploadRequest struct {
	FileName      string
	ContentType   string
	File          io.Reader
	Meta          string
	Authorization string
}

// Admission accepts uploads: it checks them, stores the file with its metadata and hands the
// submission to the validation pipeline.
type Admission struct {
	storage     storage.Storage
	permissions PermissionChecker
	publisher   eventbus.Publisher
	topic       string
	metrics     *metrics.Metrics
	logger      *slog.Logger
	now         func() time.Time

	// pending tracks publishes still running after the caller got its response.
	pending sync.WaitGroup
}

func NewAdmission(
	store storage.Storage,
	permissions PermissionChecker,
	publisher eventbus.Publisher,
	topic string,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Admission {
	return &Admission{
		storage:     store,
		permissions: permissions,
		publisher:   publisher,
		topic:       topic,
		metrics:     m,
		logger:      logger.With("module", "upload_admission"),
		now:         time.Now,
	}
}

// Admit runs the admission checks in order and returns the new record id. The submission
// event is published in the background; its failure is only logged.
func (a *Admission) Admit(ctx context.Context, req UploadRequest) (string, error) {
	recordID, err := a.admit(ctx, req)
	if err != nil {
		a.metrics.UploadRejected()
		a.logger.WarnContext(ctx, "upload rejected", "kind", KindOf(err), "error", err)

		return "", err
	}

	a.metrics.UploadAccepted()

	return recordID, nil
}

func (a *Admission) admit(ctx context.Context, req UploadRequest) (string, error) {
	if !strings.EqualFold(filepath.Ext(req.FileName), zipExtension) {
		return "", newError(KindFileType, "Admit", "Invalid file type.", nil)
	}

	var meta models.UploadMeta

	err := json.Unmarshal([]byte(req.Meta), &meta)
	if err != nil {
		return "", newError(KindInput, "Admit", "Invalid metadata: "+err.Error(), err)
	}

	if fieldErrs := meta.Validate(); len(fieldErrs) > 0 {
		return "", newError(KindValidation, "Admit", validationMessage(fieldErrs), fieldErrs)
	}

	userID, err := a.authorize(ctx, req.Authorization, meta.ProjectGroupID)
	if err != nil {
		return "", err
	}

	recordID := storage.NewRecordID()
	folder := storage.FolderPath(a.now(), meta.ProjectGroupID, recordID)

	contentType := req.ContentType
	if contentType == "" {
		contentType = zipContentType
	}

	fileURL, err := a.storage.Upload(ctx, storage.FilePath(folder, req.FileName), contentType, req.File)
	if err != nil {
		return "", newError(KindPersistence, "Admit", "Error while uploading the file", err)
	}

	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return "", newError(KindPersistence, "Admit", "Error while uploading the file", err)
	}

	_, err = a.storage.Upload(ctx, storage.FilePath(folder, storage.MetaFileName), jsonContentType, bytes.NewReader(metaJSON))
	if err != nil {
		return "", newError(KindPersistence, "Admit", "Error while uploading the file", err)
	}

	a.publishSubmitted(ctx, &models.QueueMessageEnvelope{
		RecordID:       recordID,
		UserID:         userID,
		ProjectGroupID: meta.ProjectGroupID,
		Stage:          UploadStage,
		Response:       models.Response{Success: true, Message: "File uploaded for the project group: " + meta.ProjectGroupID},
		Meta:           map[string]any{models.MetaFileUploadPath: fileURL},
		Request:        metaJSON,
	})

	a.logger.InfoContext(ctx, "upload admitted", "record_id", recordID, "file_upload_path", fileURL)

	return recordID, nil
}

func (a *Admission) authorize(ctx context.Context, authorization, projectGroupID string) (string, error) {
	userID, err := auth.UserID(authorization)
	if err != nil {
		return "", newError(KindUnauthenticated, "Admit", unauthenticatedMsg, err)
	}

	granted, err := a.permissions.CanUpload(ctx, userID, projectGroupID)
	if err != nil {
		return "", newError(KindUpstream, "Admit", permissionCheckMsg, err)
	}

	if !granted {
		return "", newError(KindUnauthenticated, "Admit", unauthenticatedMsg, nil)
	}

	return userID, nil
}

// publishSubmitted publishes at most once, detached from the request so the response does not
// wait for the broker. Only the trace context of the request is carried over.
func (a *Admission) publishSubmitted(ctx context.Context, envelope *models.QueueMessageEnvelope) {
	a.pending.Add(1)

	go func() {
		defer a.pending.Done()

		publishCtx := trace.ContextWithSpanContext(context.Background(), trace.SpanContextFromContext(ctx))

		err := a.publisher.Publish(publishCtx, a.topic, envelope)
		if err != nil {
			a.logger.ErrorContext(publishCtx, "failed to publish upload event",
				"record_id", envelope.RecordID, "topic", a.topic, "error", err)
		}
	}()
}

// Wait blocks until background publishes have finished.
func (a *Admission) Wait() {
	a.pending.Wait()
}
