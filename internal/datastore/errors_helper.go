// Package datastore provides error handling helpers for database operations
package datastore

import (
	"github.com/cardoc/cardoc-go/internal/errors"
)

// dbError creates a properly categorized database error with context
func dbError(err error, operation string, context ...any) error {
	builder := errors.New(err).
		Component("datastore").
		Category(errors.CategoryDatabase).
		Context("operation", operation)

	for i := 0; i < len(context)-1; i += 2 {
		if key, ok := context[i].(string); ok {
			builder = builder.Context(key, context[i+1])
		}
	}

	return builder.Build()
}

// validationError creates a validation error for a rejected field
func validationError(message, field string) error {
	return errors.Newf("%s", message).
		Component("datastore").
		Category(errors.CategoryValidation).
		Context("field", field).
		Build()
}

// notFoundError reports a missing diagnostic record
func notFoundError(id string) error {
	return errors.Newf("diagnostic record %s not found", id).
		Component("datastore").
		Category(errors.CategoryNotFound).
		Context("id", id).
		Build()
}
