package models

import "encoding/json"

const (
	MetaFileUploadPath = "file_upload_path"
	MetaIsValid        = "isValid"
)

// Response is the outcome carried by a queue message.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// QueueMessageEnvelope is the message exchanged with the validation pipeline, both for upload
// submissions and for validation results.
type QueueMessageEnvelope struct {
	RecordID       string          `json:"tdei_record_id"`
	UserID         string          `json:"user_id"`
	ProjectGroupID string          `json:"tdei_project_group_id"`
	Stage          string          `json:"stage"`
	Response       Response        `json:"response"`
	Meta           map[string]any  `json:"meta,omitempty"`
	Request        json.RawMessage `json:"request,omitempty"`
}

// FileUploadPath returns the storage URL carried in meta, if any.
func (e *QueueMessageEnvelope) FileUploadPath() string {
	if e.Meta == nil {
		return ""
	}

	path, _ := e.Meta[MetaFileUploadPath].(string)

	return path
}

// WithResponse returns a copy of the envelope stamped with stage and response.
func (e *QueueMessageEnvelope) WithResponse(stage string, success bool, message string) *QueueMessageEnvelope {
	out := *e

	out.Stage = stage
	out.Response = Response{Success: success, Message: message}

	out.Meta = make(map[string]any, len(e.Meta)+1)
	for key, value := range e.Meta {
		out.Meta[key] = value
	}

	out.Meta[MetaIsValid] = success

	return &out
}
