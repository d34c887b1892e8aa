package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"field_uploader/models"

	"github.com/minio/minio-go/v7"
)

const (
	uploadChunkSize = 1024 * 1024 * 10
	// maxNameAttempts bounds the "-2", "-3", ... suffixes tried when a
	// composed name is already taken.
	maxNameAttempts = 5
)

// Artifact is one binary payload ready to be stored under Name.
type Artifact struct {
	Body         io.Reader
	Size         int64
	Name         string
	ContentType  string
	OriginalName string
}

// Upload streams the artifact into parentID and returns its object key.
//
// Writes are create-if-absent: an existing object is never replaced. When the
// name is taken and the body can be rewound, the upload is retried as
// "<stem>-2<ext>", "<stem>-3<ext>" and so on. Otherwise it fails with
// ErrAlreadyExists. Multipart parts of an aborted upload are never visible as
// an object.
func (s *Store) Upload(ctx context.Context, a Artifact, parentID string) (string, error) {
	const op = "storage.Upload"
	if s.client == nil {
		return "", storageError(op, ErrMissingCredentials, nil)
	}
	parentID = strings.Trim(parentID, "/")
	if parentID == "" {
		return "", storageError(op, ErrInvalidLocation, "empty parent location id")
	}
	if a.Name == "" || strings.Contains(a.Name, "/") {
		return "", storageError(op, ErrInvalidLocation, "invalid artifact name "+a.Name)
	}

	for attempt := 1; ; attempt++ {
		key := parentID + "/" + disambiguate(a.Name, attempt)
		stored, err := s.put(ctx, op, a, key)
		if err == nil {
			return stored, nil
		}
		if !errors.Is(err, ErrAlreadyExists) {
			return "", err
		}

		seeker, ok := a.Body.(io.Seeker)
		if !ok || attempt == maxNameAttempts {
			slog.Warn("artifact name already taken, giving up", "key", key, "attempt", attempt)
			return "", err
		}
		if _, serr := seeker.Seek(0, io.SeekStart); serr != nil {
			slog.Error("failed to rewind artifact body", "key", key, "error", serr)
			return "", err
		}
		slog.Info("artifact name already taken, retrying with suffix", "key", key, "attempt", attempt)
	}
}

func (s *Store) put(ctx context.Context, op string, a Artifact, key string) (string, error) {
	size := a.Size
	if size <= 0 {
		size = -1
	}
	contentType := a.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	opts := minio.PutObjectOptions{
		ContentType: contentType,
		PartSize:    uploadChunkSize,
		UserMetadata: map[string]string{
			"X-Uploaded-At":   time.Now().Format(time.RFC3339),
			"X-Original-Name": a.OriginalName,
		},
	}
	opts.SetMatchETagExcept("*")

	startTime := time.Now()
	info, err := s.client.PutObject(ctx, s.bucketName, key, models.NewProgressReader(a.Body, key), size, opts)
	if err != nil {
		err = classify(op, err)
		if !errors.Is(err, ErrAlreadyExists) {
			slog.Error("failed to upload artifact", "key", key, "error", err)
		}
		return "", err
	}

	if info.Key != "" {
		key = info.Key
	}
	slog.Info("artifact uploaded", "key", key, "size", info.Size, "upload_duration", time.Since(startTime).Seconds())
	return key, nil
}

// disambiguate returns name for the first attempt and inserts "-<attempt>"
// before the extension after that.
func disambiguate(name string, attempt int) string {
	if attempt <= 1 {
		return name
	}
	ext := path.Ext(name)
	return fmt.Sprintf("%s-%d%s", strings.TrimSuffix(name, ext), attempt, ext)
}
