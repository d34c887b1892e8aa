package config

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"field_uploader/apperr"
)

func (ap *AppConfig) Validate() error {
	if ap.Port <= 0 || ap.Port > 65535 {
		return fmt.Errorf("APP_PORT must be in range 1-65535, got: %d", ap.Port)
	}
	return nil
}

// Validate only checks what the process needs to boot. Credentials and workflow
// roots are checked per request by RequireTestImage and RequireHabitatImage.
func (mc *MinIOConfig) Validate() error {
	missingVars := []string{}

	if mc.Endpoint == "" {
		missingVars = append(missingVars, "MINIO_ENDPOINT")
	}
	if mc.BucketName == "" {
		missingVars = append(missingVars, "MINIO_BUCKET_NAME")
	}

	if len(missingVars) > 0 {
		message := fmt.Sprintf("environment variables must be set: %s", strings.Join(missingVars, ", "))
		slog.Warn(message)
		return errors.New(message)
	}

	if !isValidBucketName(mc.BucketName) {
		message := fmt.Sprintf("bucket name '%s' contains invalid characters, use lowercase letters, digits and hyphens only", mc.BucketName)
		slog.Error(message)
		return errors.New(message)
	}

	return nil
}

func (kc *KintoneConfig) Validate() error {
	if kc.Domain != "" && strings.Contains(kc.Domain, "/") {
		return fmt.Errorf("KINTONE_DOMAIN must be a bare host name, got %q", kc.Domain)
	}
	return nil
}

var bucketNameRegex = regexp.MustCompile(`^[a-z0-9\-]+$`)

func isValidBucketName(bucketName string) bool {
	return bucketNameRegex.MatchString(bucketName)
}

func (c Config) RequireTestImage() error {
	missing := []string{}
	if c.MinIO.TestImageRoot == "" {
		missing = append(missing, "NPK_FOLDER_ID")
	}
	if c.Kintone.Domain == "" {
		missing = append(missing, "KINTONE_DOMAIN")
	}
	if c.Kintone.Tracking.Token == "" {
		missing = append(missing, "KINTONE_API_TOKEN")
	}
	if c.Kintone.Tracking.ID == "" {
		missing = append(missing, "KINTONE_APP_ID")
	}
	return missingError("config.RequireTestImage", missing)
}

func (c Config) RequireHabitatImage() error {
	missing := []string{}
	if c.MinIO.HabitatImageRoot == "" {
		missing = append(missing, "HABITAT_IMAGE_FOLDER_ID")
	}
	return missingError("config.RequireHabitatImage", missing)
}

func (c Config) RequireAttendance() error {
	missing := []string{}
	if c.Kintone.Domain == "" {
		missing = append(missing, "KINTONE_DOMAIN")
	}
	if c.Kintone.UserMaster.ID == "" {
		missing = append(missing, "KINTONE_USER_MASTER_APP_ID")
	}
	if c.Kintone.UserMaster.Token == "" {
		missing = append(missing, "KINTONE_USER_MASTER_API_TOKEN")
	}
	if c.Kintone.Attendance.ID == "" {
		missing = append(missing, "KINTONE_ATTENDANCE_APP_ID")
	}
	if c.Kintone.Attendance.Token == "" {
		missing = append(missing, "KINTONE_ATTENDANCE_API_TOKEN")
	}
	return missingError("config.RequireAttendance", missing)
}

func missingError(op string, missing []string) error {
	if len(missing) == 0 {
		return nil
	}
	return apperr.New(apperr.KindConfiguration, op, "missing settings: "+strings.Join(missing, ", "))
}
