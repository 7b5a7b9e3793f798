package repository

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/mongo"

	appErrors "github.com/signalflags/signalflags-api/pkg/errors"
)

// Backend error codes surfaced by the document store.
const (
	codeUnauthorized       = 13
	codeDocumentValidation = 121
)

// mapMongoError converts driver failures into the domain error taxonomy.
// Callers handle mongo.ErrNoDocuments themselves since not-found is a
// nil-result convention, not an error.
func mapMongoError(err error, message string) error {
	if err == nil {
		return nil
	}

	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) {
		switch cmdErr.Code {
		case codeUnauthorized:
			return appErrors.Wrap(err, appErrors.ErrPermissionDenied.Code, appErrors.ErrPermissionDenied.Status, message)
		case codeDocumentValidation:
			return appErrors.Wrap(err, appErrors.ErrDataFormat.Code, appErrors.ErrDataFormat.Status, message)
		}
	}

	var writeErr mongo.WriteException
	if errors.As(err, &writeErr) {
		for _, we := range writeErr.WriteErrors {
			switch we.Code {
			case codeUnauthorized:
				return appErrors.Wrap(err, appErrors.ErrPermissionDenied.Code, appErrors.ErrPermissionDenied.Status, message)
			case codeDocumentValidation:
				return appErrors.Wrap(err, appErrors.ErrDataFormat.Code, appErrors.ErrDataFormat.Status, message)
			}
		}
	}

	if mongo.IsDuplicateKeyError(err) {
		return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, message)
	}

	if mongo.IsNetworkError(err) || mongo.IsTimeout(err) || errors.Is(err, context.DeadlineExceeded) {
		return appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, message)
	}

	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}
