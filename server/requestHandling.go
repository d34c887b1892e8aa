package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"field_uploader/apperr"
	"field_uploader/upload"
)

const (
	defaultMaxUploadBytes = 64 << 20
	maxMemoryForForm      = 16 << 20
)

type response struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	WorkerName string `json:"worker_name,omitempty"`
}

func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func sendJSONResponse(w http.ResponseWriter, status int, body response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

func sendOutcome(w http.ResponseWriter, out upload.Outcome) {
	status := http.StatusOK
	if !out.Success {
		status = statusFor(out.Kind)
	}
	sendJSONResponse(w, status, response{Success: out.Success, Message: out.Message})
}

func getContentType(fileName string) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	defaultContentType := "application/octet-stream"
	if contentType := mime.TypeByExtension(ext); contentType != "" {
		return contentType
	}
	return defaultContentType
}

// formValue returns the first non-empty value among the accepted field names.
func formValue(r *http.Request, names ...string) string {
	for _, name := range names {
		if v := strings.TrimSpace(r.FormValue(name)); v != "" {
			return v
		}
	}
	return ""
}

// sendFormError answers a form that could not be parsed. Bodies over the
// upload limit get 413 so clients can tell them from malformed forms.
func sendFormError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		slog.Warn("upload body exceeds limit", "limit_bytes", tooLarge.Limit)
		sendJSONResponse(w, http.StatusRequestEntityTooLarge, response{
			Message: fmt.Sprintf("The upload is too large. The limit is %d bytes.", tooLarge.Limit),
		})
		return
	}
	slog.Warn("failed to parse multipart form", "error", err)
	sendJSONResponse(w, http.StatusBadRequest, response{Message: "Could not read the submitted form."})
}

// parseUploadForm reads the multipart form and the first attached file found
// under names. A missing file is not an error here; the workflow rejects it.
func parseUploadForm(w http.ResponseWriter, r *http.Request, limit int64, names ...string) (*upload.File, func(), error) {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(maxMemoryForForm); err != nil {
		return nil, func() {}, err
	}
	cleanup := func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}

	for _, name := range names {
		file, header, err := r.FormFile(name)
		if errors.Is(err, http.ErrMissingFile) {
			continue
		}
		if err != nil {
			cleanup()
			return nil, func() {}, err
		}
		if header.Filename == "" {
			file.Close()
			continue
		}
		return toUploadFile(file, header), func() {
			file.Close()
			cleanup()
		}, nil
	}
	return nil, cleanup, nil
}

func toUploadFile(file multipart.File, header *multipart.FileHeader) *upload.File {
	fileName := filepath.Base(header.Filename)
	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = getContentType(fileName)
	}
	return &upload.File{
		Body:        file,
		Size:        header.Size,
		Filename:    fileName,
		ContentType: contentType,
	}
}
