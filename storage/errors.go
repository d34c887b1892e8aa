package storage

import (
	"context"
	"errors"
	"fmt"

	"field_uploader/apperr"

	"github.com/minio/minio-go/v7"
)

var (
	ErrMissingCredentials = errors.New("object storage credentials are not configured")
	ErrInvalidLocation    = errors.New("storage location is missing or invalid")
	ErrTransport          = errors.New("object storage is unreachable")
	ErrRejected           = errors.New("object storage rejected the request")
	// ErrAlreadyExists is a rejection: the target key is taken and is never
	// overwritten.
	ErrAlreadyExists = fmt.Errorf("%w: object already exists", ErrRejected)
)

func storageError(op string, reason error, detail any) error {
	if detail == nil {
		return apperr.Wrap(apperr.KindStorage, op, reason)
	}
	return apperr.Wrap(apperr.KindStorage, op, fmt.Errorf("%w: %v", reason, detail))
}

// classify maps a minio-go error to one of the storage reasons.
func classify(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return storageError(op, ErrTransport, err)
	}

	resp := minio.ToErrorResponse(err)
	switch resp.Code {
	case "":
		return storageError(op, ErrTransport, err)
	case "NoSuchBucket", "InvalidBucketName", "XMinioInvalidObjectName":
		return storageError(op, ErrInvalidLocation, err)
	case "PreconditionFailed":
		return storageError(op, ErrAlreadyExists, err)
	default:
		return storageError(op, ErrRejected, err)
	}
}
