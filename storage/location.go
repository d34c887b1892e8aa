package storage

import (
	"bytes"
	"context"
	"log/slog"
	"strings"

	"github.com/minio/minio-go/v7"
)

const directoryContentType = "application/x-directory"

// Location is a key prefix inside the bucket. ID is the full prefix without a
// trailing slash, Name its last segment.
type Location struct {
	ID   string
	Name string
}

// FindChildren lists the direct children of parentID named exactly name.
// Deleted markers are not returned by ListObjects, so only live locations match.
func (s *Store) FindChildren(ctx context.Context, parentID, name string) ([]Location, error) {
	const op = "storage.FindChildren"
	if s.client == nil {
		return nil, storageError(op, ErrMissingCredentials, nil)
	}
	parentID = strings.Trim(parentID, "/")
	if parentID == "" {
		return nil, storageError(op, ErrInvalidLocation, "empty parent location id")
	}

	// Stopping early must cancel the listing goroutine.
	listCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	want := parentID + "/" + name + "/"
	var found []Location
	for obj := range s.client.ListObjects(listCtx, s.bucketName, minio.ListObjectsOptions{
		Prefix:    want,
		Recursive: false,
	}) {
		if obj.Err != nil {
			return nil, classify(op, obj.Err)
		}
		// Anything under the prefix proves the location exists.
		if strings.HasPrefix(obj.Key, want) {
			found = append(found, Location{ID: parentID + "/" + name, Name: name})
			break
		}
	}
	return found, nil
}

// CreateChild writes the directory marker for parentID/name. Writing the same
// marker twice converges on the same location.
func (s *Store) CreateChild(ctx context.Context, parentID, name string) (Location, error) {
	const op = "storage.CreateChild"
	if s.client == nil {
		return Location{}, storageError(op, ErrMissingCredentials, nil)
	}
	parentID = strings.Trim(parentID, "/")
	if parentID == "" {
		return Location{}, storageError(op, ErrInvalidLocation, "empty parent location id")
	}

	id := parentID + "/" + name
	_, err := s.client.PutObject(ctx, s.bucketName, id+"/", bytes.NewReader(nil), 0, minio.PutObjectOptions{
		ContentType: directoryContentType,
	})
	if err != nil {
		slog.Error("failed to create location", "parent_id", parentID, "name", name, "error", err)
		return Location{}, classify(op, err)
	}

	slog.Info("location created", "location_id", id)
	return Location{ID: id, Name: name}, nil
}
