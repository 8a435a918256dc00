package validation

import (
	"encoding/json"
	"math"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/lorrc/service-desk-sla/internal/core/errors"
)

var (
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	uuidRegex  = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

	// clockTimeRegex accepts HH:mm within a day; 24:00 marks end of day.
	clockTimeRegex = regexp.MustCompile(`^(([01][0-9]|2[0-3]):[0-5][0-9]|24:00)$`)
)

const timeFormatMessage = "Must be an RFC 3339 timestamp or a YYYY-MM-DD date"

// MaxMillis is the largest millisecond count a time.Duration can hold.
const MaxMillis = math.MaxInt64 / int64(time.Millisecond)

var millisRangeMessage = "Must be between 0 and " + strconv.FormatInt(MaxMillis, 10)

// Validator collects field errors for one request.
type Validator struct {
	errors *apperrors.ValidationErrors
}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{
		errors: apperrors.NewValidationErrors(),
	}
}

// HasErrors returns true if there are validation errors
func (v *Validator) HasErrors() bool {
	return v.errors.HasErrors()
}

// Errors returns the validation errors
func (v *Validator) Errors() *apperrors.ValidationErrors {
	return v.errors
}

// Err returns the collected errors, or nil when every check passed.
func (v *Validator) Err() error {
	if v.HasErrors() {
		return v.errors
	}
	return nil
}

// Required validates that a string is not empty
func (v *Validator) Required(field, value string) *Validator {
	if strings.TrimSpace(value) == "" {
		v.errors.Add(field, "This field is required")
	}
	return v
}

// MaxLength validates maximum string length
func (v *Validator) MaxLength(field, value string, max int) *Validator {
	if len(value) > max {
		v.errors.Add(field, "Must be at most "+strconv.Itoa(max)+" characters")
	}
	return v
}

// Email validates email format
func (v *Validator) Email(field, value string) *Validator {
	if value != "" && !emailRegex.MatchString(value) {
		v.errors.Add(field, "Must be a valid email address")
	}
	return v
}

// UUID validates UUID format
func (v *Validator) UUID(field, value string) *Validator {
	if value != "" && !uuidRegex.MatchString(value) {
		v.errors.Add(field, "Must be a valid UUID")
	}
	return v
}

// OneOf validates value is one of the allowed values. Empty values are left
// to Required.
func (v *Validator) OneOf(field, value string, allowed []string) *Validator {
	if value == "" {
		return v
	}
	for _, a := range allowed {
		if value == a {
			return v
		}
	}
	v.errors.Add(field, "Must be one of: "+strings.Join(allowed, ", "))
	return v
}

// Custom adds a custom validation
func (v *Validator) Custom(field string, valid bool, message string) *Validator {
	if !valid {
		v.errors.Add(field, message)
	}
	return v
}

// ClockTime validates an HH:mm time of day.
func (v *Validator) ClockTime(field, value string) *Validator {
	if value != "" && !clockTimeRegex.MatchString(value) {
		v.errors.Add(field, "Must be a time of day in HH:mm format")
	}
	return v
}

// WorkDays validates a non-empty set of ISO weekdays (1 = Monday .. 7 = Sunday).
func (v *Validator) WorkDays(field string, days []int) *Validator {
	if len(days) == 0 {
		v.errors.Add(field, "At least one work day is required")
		return v
	}
	for _, d := range days {
		if d < 1 || d > 7 {
			v.errors.Add(field, "Work days are ISO weekdays 1..7")
			return v
		}
	}
	return v
}

// Millis validates a duration given in milliseconds.
func (v *Validator) Millis(field string, ms int64) *Validator {
	if ms < 0 || ms > MaxMillis {
		v.errors.Add(field, millisRangeMessage)
	}
	return v
}

// OptionalUUID parses a UUID that may be absent.
func (v *Validator) OptionalUUID(field, value string) *uuid.UUID {
	if value == "" {
		return nil
	}
	id, err := uuid.Parse(value)
	if err != nil {
		v.errors.Add(field, "Must be a valid UUID")
		return nil
	}
	return &id
}

// RequiredTime reads a mandatory time query parameter.
func (v *Validator) RequiredTime(r *http.Request, key string) time.Time {
	parsed, err := ParseTimeQueryParam(r, key)
	switch {
	case err != nil:
		v.errors.Add(key, timeFormatMessage)
	case parsed == nil:
		v.errors.Add(key, "This field is required")
	default:
		return parsed.Time
	}
	return time.Time{}
}

// RequiredMillis reads a mandatory non-negative duration given in
// milliseconds.
func (v *Validator) RequiredMillis(r *http.Request, key string) time.Duration {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		v.errors.Add(key, "This field is required")
		return 0
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		v.errors.Add(key, "Must be a non-negative integer")
		return 0
	}
	if ms < 0 || ms > MaxMillis {
		v.errors.Add(key, millisRangeMessage)
		return 0
	}
	return time.Duration(ms) * time.Millisecond
}

// TimeRange reads an optional [from, to) window. A bare date as the upper
// bound includes that whole day.
func (v *Validator) TimeRange(r *http.Request, fromKey, toKey string) (from, to *time.Time) {
	if parsed, err := ParseTimeQueryParam(r, fromKey); err != nil {
		v.errors.Add(fromKey, "Must be a valid date or timestamp")
	} else if parsed != nil {
		from = &parsed.Time
	}

	if parsed, err := ParseTimeQueryParam(r, toKey); err != nil {
		v.errors.Add(toKey, "Must be a valid date or timestamp")
	} else if parsed != nil {
		end := parsed.Time
		if parsed.DateOnly {
			end = end.Add(24 * time.Hour)
		}
		to = &end
	}

	if from != nil && to != nil && from.After(*to) {
		v.errors.Add(fromKey, "Must be before "+toKey)
	}
	return from, to
}

// DecodeAndValidate decodes JSON request body and runs basic validation
func DecodeAndValidate[T any](r *http.Request) (*T, error) {
	var req T

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, apperrors.NewBadRequestError(err, "Invalid request body")
	}

	return &req, nil
}

// PaginationParams holds pagination parameters
type PaginationParams struct {
	Limit  int
	Offset int
}

// DefaultPagination returns default pagination values
func DefaultPagination() PaginationParams {
	return PaginationParams{
		Limit:  25,
		Offset: 0,
	}
}

// ParsePagination extracts pagination from query parameters, falling back to
// the defaults for unusable values and capping the limit at maxLimit.
func ParsePagination(r *http.Request, maxLimit int) PaginationParams {
	params := DefaultPagination()
	params.Limit = ParseIntQueryParam(r, "limit", params.Limit)
	if params.Limit == 0 {
		params.Limit = DefaultPagination().Limit
	}
	params.Offset = ParseIntQueryParam(r, "offset", params.Offset)
	params.Limit = min(params.Limit, maxLimit)
	return params
}

// ParseIntQueryParam parses a non-negative integer query parameter.
func ParseIntQueryParam(r *http.Request, key string, defaultValue int) int {
	value, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || value < 0 {
		return defaultValue
	}
	return value
}

// ParseStringQueryParam safely parses a string query parameter
func ParseStringQueryParam(r *http.Request, key string) *string {
	value := r.URL.Query().Get(key)
	if value == "" {
		return nil
	}
	return &value
}

// ParseBoolQueryParam safely parses a boolean query parameter
func ParseBoolQueryParam(r *http.Request, key string, defaultValue bool) bool {
	value, err := strconv.ParseBool(r.URL.Query().Get(key))
	if err != nil {
		return defaultValue
	}
	return value
}

// ParsedTime is a time query parameter. DateOnly reports that the value was
// a bare YYYY-MM-DD date, which callers may treat as a whole day.
type ParsedTime struct {
	Time     time.Time
	DateOnly bool
}

// ParseTimeQueryParam parses an RFC 3339 timestamp or a YYYY-MM-DD date.
// A missing parameter yields nil without error.
func ParseTimeQueryParam(r *http.Request, key string) (*ParsedTime, error) {
	value := strings.TrimSpace(r.URL.Query().Get(key))
	if value == "" {
		return nil, nil
	}

	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return &ParsedTime{Time: t}, nil
	}
	if t, err := time.Parse(time.DateOnly, value); err == nil {
		return &ParsedTime{Time: t, DateOnly: true}, nil
	}

	v := NewValidator()
	v.Custom(key, false, timeFormatMessage)
	return nil, v.Errors()
}
