// Package errors holds the reconciler's coded error catalogue, the OCM API
// error type and network error classification.
package errors

import (
	"fmt"
	"net/http"
)

const errorCodePrefix = "machinepool-reconciler"

// ServiceErrorCode identifies an entry in the error catalogue
type ServiceErrorCode int

const (
	// ErrorNotFound - resource not found
	ErrorNotFound ServiceErrorCode = 1
	// ErrorValidation - general validation failure
	ErrorValidation ServiceErrorCode = 2
	// ErrorConflict - resource conflict
	ErrorConflict ServiceErrorCode = 3
	// ErrorForbidden - forbidden
	ErrorForbidden ServiceErrorCode = 4
	// ErrorUnauthorized - insufficient permissions
	ErrorUnauthorized ServiceErrorCode = 5
	// ErrorUnauthenticated - missing or invalid credentials
	ErrorUnauthenticated ServiceErrorCode = 6
	// ErrorBadRequest - bad request
	ErrorBadRequest ServiceErrorCode = 7
	// ErrorMalformedRequest - unparseable input
	ErrorMalformedRequest ServiceErrorCode = 8
	// ErrorNotImplemented - not implemented
	ErrorNotImplemented ServiceErrorCode = 9
	// ErrorGeneral - unclassified failure
	ErrorGeneral ServiceErrorCode = 10
	// ErrorConfigNotFound - reconciler configuration not found
	ErrorConfigNotFound ServiceErrorCode = 11
	// ErrorDesiredState - declared configuration could not be loaded
	ErrorDesiredState ServiceErrorCode = 12
	// ErrorOCMAPI - OCM clusters_mgmt API failure
	ErrorOCMAPI ServiceErrorCode = 13
	// ErrorOCMEnvironmentNotFound - no OCM environment configured for a cluster
	ErrorOCMEnvironmentNotFound ServiceErrorCode = 14
	// ErrorInvalidUpdates - the reconciliation plan contained rejected changes
	ErrorInvalidUpdates ServiceErrorCode = 15
)

// ServiceError is a coded error with an associated HTTP status, used for
// infrastructure failures surfaced to the CLI and to logs.
type ServiceError struct {
	Code     ServiceErrorCode
	Reason   string
	HttpCode int
}

var catalogue = map[ServiceErrorCode]ServiceError{
	ErrorNotFound:               {ErrorNotFound, "Resource not found", http.StatusNotFound},
	ErrorValidation:             {ErrorValidation, "General validation failure", http.StatusBadRequest},
	ErrorConflict:               {ErrorConflict, "Resource conflict", http.StatusConflict},
	ErrorForbidden:              {ErrorForbidden, "Forbidden to perform this action", http.StatusForbidden},
	ErrorUnauthorized:           {ErrorUnauthorized, "Account is unauthorized to perform this action", http.StatusForbidden},
	ErrorUnauthenticated:        {ErrorUnauthenticated, "Account authentication could not be verified", http.StatusUnauthorized},
	ErrorBadRequest:             {ErrorBadRequest, "Bad request", http.StatusBadRequest},
	ErrorMalformedRequest:       {ErrorMalformedRequest, "Unable to read request", http.StatusBadRequest},
	ErrorNotImplemented:         {ErrorNotImplemented, "Not implemented", http.StatusMethodNotAllowed},
	ErrorGeneral:                {ErrorGeneral, "Unspecified error", http.StatusInternalServerError},
	ErrorConfigNotFound:         {ErrorConfigNotFound, "Reconciler configuration not found", http.StatusNotFound},
	ErrorDesiredState:           {ErrorDesiredState, "Declared configuration could not be loaded", http.StatusInternalServerError},
	ErrorOCMAPI:                 {ErrorOCMAPI, "OCM API error", http.StatusInternalServerError},
	ErrorOCMEnvironmentNotFound: {ErrorOCMEnvironmentNotFound, "OCM environment not configured", http.StatusNotFound},
	ErrorInvalidUpdates:         {ErrorInvalidUpdates, "Reconciliation plan contains invalid updates", http.StatusUnprocessableEntity},
}

// Find returns the catalogue entry for code
func Find(code ServiceErrorCode) (bool, *ServiceError) {
	entry, ok := catalogue[code]
	if !ok {
		return false, nil
	}
	return true, &ServiceError{Code: entry.Code, Reason: entry.Reason, HttpCode: entry.HttpCode}
}

// Errors returns all catalogue entries
func Errors() []ServiceError {
	out := make([]ServiceError, 0, len(catalogue))
	for _, e := range catalogue {
		out = append(out, e)
	}
	return out
}

// New creates a ServiceError for code. An empty reason falls back to the
// catalogue reason; an unknown code falls back to ErrorGeneral.
func New(code ServiceErrorCode, reason string, values ...interface{}) *ServiceError {
	exists, err := Find(code)
	if !exists {
		_, err = Find(ErrorGeneral)
	}
	if reason != "" {
		err.Reason = fmt.Sprintf(reason, values...)
	}
	return err
}

// Error implements the error interface
func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s: %s", e.CodeStr(), e.Reason)
}

// CodeStr returns the prefixed error code, e.g. machinepool-reconciler-13
func (e *ServiceError) CodeStr() string {
	return fmt.Sprintf("%s-%d", errorCodePrefix, e.Code)
}

// AsError returns the ServiceError as a plain error
func (e *ServiceError) AsError() error {
	return fmt.Errorf("%s", e.Error())
}

// Is404 reports whether the error maps to HTTP 404
func (e *ServiceError) Is404() bool {
	return e.HttpCode == http.StatusNotFound
}

// IsConflict reports whether the error is a conflict
func (e *ServiceError) IsConflict() bool {
	return e.Code == ErrorConflict
}

// IsForbidden reports whether the error is a forbidden error
func (e *ServiceError) IsForbidden() bool {
	return e.Code == ErrorForbidden
}

func NotFound(reason string, values ...interface{}) *ServiceError {
	return New(ErrorNotFound, reason, values...)
}

func Validation(reason string, values ...interface{}) *ServiceError {
	return New(ErrorValidation, reason, values...)
}

func GeneralError(reason string, values ...interface{}) *ServiceError {
	return New(ErrorGeneral, reason, values...)
}

func ConfigNotFound(reason string, values ...interface{}) *ServiceError {
	return New(ErrorConfigNotFound, reason, values...)
}

func DesiredStateError(reason string, values ...interface{}) *ServiceError {
	return New(ErrorDesiredState, reason, values...)
}

func OCMAPIError(reason string, values ...interface{}) *ServiceError {
	return New(ErrorOCMAPI, reason, values...)
}

func OCMEnvironmentNotFound(reason string, values ...interface{}) *ServiceError {
	return New(ErrorOCMEnvironmentNotFound, reason, values...)
}

func InvalidUpdates(reason string, values ...interface{}) *ServiceError {
	return New(ErrorInvalidUpdates, reason, values...)
}
