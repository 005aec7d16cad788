package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/dukex/gtfs-pathways/pkg/eventbus"
	"github.com/dukex/gtfs-pathways/pkg/metrics"
	"github.com/dukex/gtfs-pathways/pkg/models"
	"github.com/dukex/gtfs-pathways/pkg/otelhelper"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ServiceStage is the stage stamped on every status this service republishes.
const ServiceStage = "pathways-data-service"

const (
	unexpectedMessage = "Unexpected error while processing the pathways validation result."
	malformedMessage  = "Invalid pathways validation result payload."
)

// RecordCreator persists admitted records.
type RecordCreator interface {
	Create(ctx context.Context, record *models.PathwayVersion) (*models.PathwayVersion, error)
}

// Reconciler turns validation results into persisted records and reports every outcome to
// the data service topic.
type Reconciler struct {
	records     RecordCreator
	permissions PermissionChecker
	publisher   eventbus.Publisher
	topic       string
	metrics     *metrics.Metrics
	tracer      trace.Tracer
	logger      *slog.Logger
}

func NewReconciler(
	records RecordCreator,
	permissions PermissionChecker,
	publisher eventbus.Publisher,
	topic string,
	m *metrics.Metrics,
	tracer trace.Tracer,
	logger *slog.Logger,
) *Reconciler {
	return &Reconciler{
		records:     records,
		permissions: permissions,
		publisher:   publisher,
		topic:       topic,
		metrics:     m,
		tracer:      tracer,
		logger:      logger.With("module", "reconciler"),
	}
}

// Handle processes one validation result. It never panics; the returned error only reports a
// failed republish.
func (r *Reconciler) Handle(ctx context.Context, envelope *models.QueueMessageEnvelope) (err error) {
	ctx, span := otelhelper.StartSpan(ctx, r.tracer, "pathways.reconcile",
		attribute.String(otelhelper.RecordIDKey, envelope.RecordID),
		attribute.String(otelhelper.ProjectGroupIDKey, envelope.ProjectGroupID),
		attribute.String(otelhelper.UserIDKey, envelope.UserID),
		attribute.String(otelhelper.StageKey, envelope.Stage),
	)
	defer span.End()

	logger := r.logger.With("record_id", envelope.RecordID)

	defer func() {
		if recovered := recover(); recovered != nil {
			panicErr := fmt.Errorf("panic while reconciling: %v", recovered)

			logger.ErrorContext(ctx, "validation result handler panicked", "error", panicErr)
			otelhelper.SetError(span, panicErr)
			r.metrics.ResultFailed()

			err = r.report(ctx, logger, envelope, false, unexpectedMessage)
		}
	}()

	logger.InfoContext(ctx, "validation result received",
		"stage", envelope.Stage, "success", envelope.Response.Success)

	success, message, cause := r.reconcile(ctx, envelope)
	if success {
		r.metrics.ResultPersisted()
	} else {
		r.metrics.ResultFailed()
		otelhelper.SetError(span, cause, attribute.String(otelhelper.ErrorKindKey, KindOf(cause).String()))
		logger.WarnContext(ctx, "validation result not persisted", "reason", message, "error", cause)
	}

	return r.report(ctx, logger, envelope, success, message)
}

// HandleMalformed reports a payload that could not be decoded as an envelope. Identifiers are
// read leniently; without a record id there is nothing to correlate and the payload is dropped.
func (r *Reconciler) HandleMalformed(ctx context.Context, payload []byte, decodeErr error) error {
	envelope := recoverIdentifiers(payload)

	ctx, span := otelhelper.StartSpan(ctx, r.tracer, "pathways.reconcile",
		attribute.String(otelhelper.RecordIDKey, envelope.RecordID),
		attribute.String(otelhelper.ProjectGroupIDKey, envelope.ProjectGroupID),
		attribute.String(otelhelper.UserIDKey, envelope.UserID),
	)
	defer span.End()

	logger := r.logger.With("record_id", envelope.RecordID)

	r.metrics.ResultFailed()
	otelhelper.SetError(span, decodeErr, attribute.String(otelhelper.ErrorKindKey, KindInput.String()))

	if envelope.RecordID == "" {
		logger.ErrorContext(ctx, "dropping validation result without record id", "error", decodeErr)

		return nil
	}

	logger.WarnContext(ctx, "validation result could not be decoded", "error", decodeErr)

	return r.report(ctx, logger, envelope, false, malformedMessage)
}

// recoverIdentifiers fills what it can: a field of the wrong type is skipped, the others are
// still read.
func recoverIdentifiers(payload []byte) *models.QueueMessageEnvelope {
	var ids struct {
		RecordID       string `json:"tdei_record_id"`
		UserID         string `json:"user_id"`
		ProjectGroupID string `json:"tdei_project_group_id"`
	}

	_ = json.Unmarshal(payload, &ids)

	return &models.QueueMessageEnvelope{
		RecordID:       ids.RecordID,
		UserID:         ids.UserID,
		ProjectGroupID: ids.ProjectGroupID,
	}
}

func (r *Reconciler) reconcile(ctx context.Context, envelope *models.QueueMessageEnvelope) (bool, string, error) {
	if !envelope.Response.Success {
		return false, envelope.Response.Message, fmt.Errorf("upstream validation failed: %s", envelope.Response.Message)
	}

	granted, err := r.permissions.CanUpload(ctx, envelope.UserID, envelope.ProjectGroupID)
	if err != nil {
		return false, permissionCheckMsg, newError(KindUpstream, "Reconcile", permissionCheckMsg, err)
	}

	if !granted {
		return false, unauthenticatedMsg, newError(KindUnauthenticated, "Reconcile", unauthenticatedMsg, nil)
	}

	var meta models.UploadMeta

	err = json.Unmarshal(envelope.Request, &meta)
	if err != nil {
		input := newError(KindInput, "Reconcile", "Invalid request payload: "+err.Error(), err)

		return false, input.Message, input
	}

	if fieldErrs := meta.Validate(); len(fieldErrs) > 0 {
		return false, validationMessage(fieldErrs), newError(KindValidation, "Reconcile", validationMessage(fieldErrs), fieldErrs)
	}

	record := meta.ToRecord(envelope.RecordID, envelope.UserID, envelope.FileUploadPath())

	if fieldErrs := record.Validate(); len(fieldErrs) > 0 {
		return false, validationMessage(fieldErrs), newError(KindValidation, "Reconcile", validationMessage(fieldErrs), fieldErrs)
	}

	_, err = r.records.Create(ctx, record)
	if err != nil {
		return false, PublicMessage(err), err
	}

	return true, "Pathways data persisted for record " + envelope.RecordID, nil
}

func (r *Reconciler) report(ctx context.Context, logger *slog.Logger, envelope *models.QueueMessageEnvelope, success bool, message string) error {
	err := r.publisher.Publish(ctx, r.topic, envelope.WithResponse(ServiceStage, success, message))
	if err != nil {
		logger.ErrorContext(ctx, "failed to publish reconciliation status", "topic", r.topic, "error", err)

		return fmt.Errorf("failed to report status of %s: %w", envelope.RecordID, err)
	}

	return nil
}
