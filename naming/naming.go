package naming

import (
	"path/filepath"
	"strings"
	"time"

	"field_uploader/apperr"

	"github.com/google/uuid"
)

type Workflow int

const (
	TestImage Workflow = iota
	HabitatImage
)

func (w Workflow) String() string {
	if w == HabitatImage {
		return "habitat_image"
	}
	return "test_image"
}

const timestampLayout = "2006-01-02T15-04-05"

// JST is the fixed UTC+9 zone every artifact timestamp is rendered in.
var JST = time.FixedZone("JST", 9*60*60)

type Keys struct {
	TrayID string
}

func NewCorrelationID() string {
	return uuid.NewString()
}

func Timestamp(t time.Time) string {
	return t.In(JST).Format(timestampLayout)
}

// Extension returns the extension of the submitted filename, dot included.
func Extension(filename string) string {
	return filepath.Ext(filepath.Base(filename))
}

func Compose(w Workflow, keys Keys, ts time.Time, correlationID, ext string) (string, error) {
	if err := ValidateTrayID(keys.TrayID); err != nil {
		return "", err
	}

	switch w {
	case TestImage:
		if correlationID == "" {
			return "", apperr.New(apperr.KindValidation, "naming.Compose", "correlation id is required for test images")
		}
		return keys.TrayID + "_" + Timestamp(ts) + "_" + correlationID + ext, nil
	case HabitatImage:
		return keys.TrayID + "_" + Timestamp(ts) + ext, nil
	default:
		return "", apperr.New(apperr.KindValidation, "naming.Compose", "unknown workflow")
	}
}

// ValidateTrayID rejects empty ids and ids that would escape a storage location.
func ValidateTrayID(trayID string) error {
	if strings.TrimSpace(trayID) == "" {
		return apperr.New(apperr.KindValidation, "naming.ValidateTrayID", "tray id is required")
	}
	if strings.ContainsAny(trayID, `/\`) || strings.Contains(trayID, "..") {
		return apperr.New(apperr.KindValidation, "naming.ValidateTrayID", "tray id contains path separators")
	}
	return nil
}
