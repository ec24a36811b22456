package domain

import (
	"errors"
	"fmt"
)

// ErrorKind tags the failure classes surfaced by the scoring engines.
type ErrorKind string

const (
	KindDataUnavailable  ErrorKind = "data_unavailable"
	KindNoData           ErrorKind = "no_data"
	KindMalformed        ErrorKind = "malformed"
	KindInsufficientData ErrorKind = "insufficient_data"
	KindUnknownProvider  ErrorKind = "unknown_provider"
	KindStaleData        ErrorKind = "stale_data"
)

// Error is the tagged error returned by the record store and the engines.
// Only the fields relevant to Kind are populated.
type Error struct {
	Kind      ErrorKind `json:"kind"`
	Dataset   Dataset   `json:"dataset,omitempty"`
	EntityID  string    `json:"entity_id,omitempty"`
	Field     string    `json:"field,omitempty"`
	RawValue  string    `json:"raw_value,omitempty"`
	Component string    `json:"component,omitempty"`
	Provider  string    `json:"provider,omitempty"`
	Err       error     `json:"-"`
}

func (e *Error) Error() string {
	var msg string
	switch e.Kind {
	case KindDataUnavailable:
		msg = fmt.Sprintf("dataset %s unavailable", e.Dataset)
	case KindNoData:
		msg = fmt.Sprintf("no data for %s", e.EntityID)
		if e.Dataset != "" {
			msg = fmt.Sprintf("no %s data for %s", e.Dataset, e.EntityID)
		}
	case KindMalformed:
		msg = fmt.Sprintf("malformed %s value %q", e.Field, e.RawValue)
	case KindInsufficientData:
		msg = fmt.Sprintf("insufficient data for %s", e.Component)
	case KindUnknownProvider:
		msg = fmt.Sprintf("unknown ESG provider %q", e.Provider)
	case KindStaleData:
		msg = fmt.Sprintf("stale data for %s", e.EntityID)
	default:
		msg = string(e.Kind)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on Kind so errors.Is(err, &Error{Kind: KindNoData}) works.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

func DataUnavailable(dataset Dataset, cause error) *Error {
	return &Error{Kind: KindDataUnavailable, Dataset: dataset, Err: cause}
}

func NoData(entityID string, dataset Dataset) *Error {
	return &Error{Kind: KindNoData, EntityID: entityID, Dataset: dataset}
}

func Malformed(field, raw string) *Error {
	return &Error{Kind: KindMalformed, Field: field, RawValue: raw}
}

func InsufficientData(component string) *Error {
	return &Error{Kind: KindInsufficientData, Component: component}
}

func UnknownProvider(provider string) *Error {
	return &Error{Kind: KindUnknownProvider, Provider: provider}
}

func StaleData(entityID string) *Error {
	return &Error{Kind: KindStaleData, EntityID: entityID}
}

// KindOf returns the tag of a domain error, or "" for anything else.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// ErrorDetail is the serializable form of a failure attached to a report.
type ErrorDetail struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
	Dataset Dataset   `json:"dataset,omitempty"`
	Entity  string    `json:"entity_id,omitempty"`
}

// DetailOf converts any error into an ErrorDetail.
func DetailOf(err error) *ErrorDetail {
	if err == nil {
		return nil
	}
	detail := &ErrorDetail{Message: err.Error()}
	var de *Error
	if errors.As(err, &de) {
		detail.Kind = de.Kind
		detail.Dataset = de.Dataset
		detail.Entity = de.EntityID
	}
	return detail
}
