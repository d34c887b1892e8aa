package kintone

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"field_uploader/apperr"
)

var (
	ErrAuth           = errors.New("kintone rejected the API token")
	ErrInvalidRequest = errors.New("kintone rejected the request")
	ErrService        = errors.New("kintone is unavailable")
)

// apiError is the error body kintone returns with non-2xx responses.
type apiError struct {
	Code    string `json:"code"`
	ID      string `json:"id"`
	Message string `json:"message"`
}

func recordStoreError(op string, reason error, detail any) error {
	if detail == nil {
		return apperr.Wrap(apperr.KindRecordStore, op, reason)
	}
	return apperr.Wrap(apperr.KindRecordStore, op, fmt.Errorf("%w: %v", reason, detail))
}

func statusError(op string, status int, body []byte) error {
	detail := fmt.Sprintf("HTTP %d", status)
	var ae apiError
	if err := json.Unmarshal(body, &ae); err == nil && ae.Message != "" {
		detail = fmt.Sprintf("HTTP %d %s: %s", status, ae.Code, ae.Message)
	}

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return recordStoreError(op, ErrAuth, detail)
	case status >= 400 && status < 500:
		return recordStoreError(op, ErrInvalidRequest, detail)
	default:
		return recordStoreError(op, ErrService, detail)
	}
}
