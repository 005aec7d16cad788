// Package services provides the pathways record, upload admission and validation-result
// reconciliation services, together with their error taxonomy.
package services

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a service failure and decides its HTTP status.
type Kind int

const (
	KindUnknown Kind = iota
	KindInput
	KindValidation
	KindUnauthenticated
	KindNotFound
	KindDuplicate
	KindOverlap
	KindFileType
	KindPersistence
	KindUpstream
)

var kindNames = map[Kind]string{
	KindUnknown:         "unknown",
	KindInput:           "input",
	KindValidation:      "validation",
	KindUnauthenticated: "unauthenticated",
	KindNotFound:        "not_found",
	KindDuplicate:       "duplicate",
	KindOverlap:         "overlap",
	KindFileType:        "file_type",
	KindPersistence:     "persistence",
	KindUpstream:        "upstream",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}

	return kindNames[KindUnknown]
}

// Status returns the HTTP status for the kind.
func (k Kind) Status() int {
	switch k {
	case KindInput, KindValidation, KindDuplicate, KindOverlap, KindFileType:
		return http.StatusBadRequest
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Stage is a step of record admission.
type Stage string

const (
	StageReceived          Stage = "received"
	StageMetadataValidated Stage = "metadata_validated"
	StageStationVerified   Stage = "station_verified"
	StageOverlapChecked    Stage = "overlap_checked"
	StagePersisted         Stage = "persisted"
	StageRejected          Stage = "rejected"
)

const genericMessage = "An unexpected error occurred."

// ServiceError wraps service-level errors with a kind and a caller-facing message.
type ServiceError struct {
	Kind    Kind
	Op      string // Operation name
	Stage   Stage  // Last stage reached before the rejection, when relevant
	Message string // Human-readable message, safe to return to callers
	Err     error  // Underlying error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	}

	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func newError(kind Kind, op, message string, err error) *ServiceError {
	return &ServiceError{Kind: kind, Op: op, Message: message, Err: err}
}

func (e *ServiceError) at(stage Stage) *ServiceError {
	e.Stage = stage

	return e
}

// KindOf returns the kind of err, KindUnknown when err is not a ServiceError.
func KindOf(err error) Kind {
	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		return serviceErr.Kind
	}

	return KindUnknown
}

// StatusCode maps err to an HTTP status.
func StatusCode(err error) int {
	return KindOf(err).Status()
}

// PublicMessage returns the message of a ServiceError, and a generic text for anything else so
// internals never reach callers.
func PublicMessage(err error) string {
	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) && serviceErr.Message != "" {
		return serviceErr.Message
	}

	return genericMessage
}

// StageOf returns the admission stage recorded on err.
func StageOf(err error) Stage {
	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		return serviceErr.Stage
	}

	return ""
}
