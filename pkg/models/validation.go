package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/dukex/gtfs-pathways/pkg/geometry"
	"github.com/go-playground/validator/v10"
)

var (
	CollectionMethods = []string{"manual", "transform", "generated", "others"}
	DataSources       = []string{"3rdParty", "TDEITools", "InHouse"}

	// TimestampLayouts are the accepted ISO-8601 forms, tried in order.
	TimestampLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"}

	validate = validator.New()
)

// FieldErrors collects one message per failing field.
type FieldErrors []string

func (e FieldErrors) Error() string {
	return strings.Join(e, ", ")
}

// Err returns nil when no field failed.
func (e FieldErrors) Err() error {
	if len(e) == 0 {
		return nil
	}

	return e
}

type fieldChecker struct {
	errs FieldErrors
}

func (c *fieldChecker) failf(format string, args ...any) {
	c.errs = append(c.errs, fmt.Sprintf(format, args...))
}

func (c *fieldChecker) required(field, value string) bool {
	if validate.Var(value, "required") != nil {
		c.failf("%s should not be empty", field)

		return false
	}

	return true
}

func (c *fieldChecker) oneOf(field, value string, allowed []string) {
	if !c.required(field, value) {
		return
	}

	if validate.Var(value, "oneof="+strings.Join(allowed, " ")) != nil {
		c.failf("%s must be one of the following values: %s", field, strings.Join(allowed, ", "))
	}
}

func (c *fieldChecker) timestamp(field, value string) (time.Time, bool) {
	if !c.required(field, value) {
		return time.Time{}, false
	}

	parsed, err := ParseTimestamp(value)
	if err != nil {
		c.failf("%s must be a valid ISO 8601 date string", field)

		return time.Time{}, false
	}

	return parsed, true
}

func (c *fieldChecker) polygon(raw []byte) {
	if isAbsent(raw) {
		return
	}

	if valid, reason := geometry.Validate(raw); !valid {
		c.failf("polygon: %s", reason)
	}
}

func (c *fieldChecker) interval(from, to time.Time) {
	if from.After(to) {
		c.failf("valid_from should be before or equal to valid_to")
	}
}

// ParseTimestamp parses an ISO-8601 date or date-time.
func ParseTimestamp(value string) (time.Time, error) {
	var lastErr error

	for _, layout := range TimestampLayouts {
		parsed, err := time.Parse(layout, value)
		if err == nil {
			return parsed, nil
		}

		lastErr = err
	}

	return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", value, lastErr)
}

func isAbsent(raw []byte) bool {
	trimmed := strings.TrimSpace(string(raw))

	return trimmed == "" || trimmed == "null"
}
