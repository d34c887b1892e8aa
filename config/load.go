package config

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
)

const (
	defaultPort              = 8080
	defaultTrackingAppID     = "129"
	defaultUUIDFieldCode     = "uuid"
	defaultStatusFieldCode   = "ocr_status"
	defaultCategoryFieldCode = "npk_test_type"
	defaultCategory          = "soil-test"
	defaultStatusProcessing  = "processing"
)

func lookup(envMap map[string]string, key, fallback string) string {
	if v, ok := envMap[key]; ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func (c *AppConfig) Load(envMap map[string]string) error {
	c.Host = lookup(envMap, "APP_HOST", "")

	portStr := lookup(envMap, "APP_PORT", lookup(envMap, "PORT", ""))
	if portStr == "" {
		c.Port = defaultPort
		slog.Warn("APP_PORT is not set, using default", "port", defaultPort)
	} else {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return fmt.Errorf("APP_PORT must be a number, got %q: %w", portStr, err)
		}
		c.Port = port
	}

	level := lookup(envMap, "LOG_LEVEL", "info")
	if err := c.LogLevel.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("LOG_LEVEL %q: %w", level, err)
	}
	return nil
}

func (c *MinIOConfig) Load(envMap map[string]string) error {
	c.Endpoint = lookup(envMap, "MINIO_ENDPOINT", "")
	c.AccessKeyID = lookup(envMap, "MINIO_ACCESS_KEY", "")
	c.SecretAccessKey = lookup(envMap, "MINIO_SECRET_KEY", "")
	c.BucketName = lookup(envMap, "MINIO_BUCKET_NAME", "")
	c.Location = lookup(envMap, "MINIO_LOCATION", "")
	c.TestImageRoot = strings.Trim(lookup(envMap, "NPK_FOLDER_ID", ""), "/")
	c.HabitatImageRoot = strings.Trim(lookup(envMap, "HABITAT_IMAGE_FOLDER_ID", ""), "/")

	useSSLStr, ok := envMap["MINIO_USE_SSL"]
	if ok {
		c.UseSSL = strings.ToLower(strings.TrimSpace(useSSLStr)) != "false"
	} else {
		c.UseSSL = true
		slog.Warn("MINIO_USE_SSL is not set, defaulting to true")
	}

	if c.AccessKeyID == "" || c.SecretAccessKey == "" {
		slog.Warn("MinIO credentials are not set, uploads will fail until they are configured")
	}
	return nil
}

func (c *KintoneConfig) Load(envMap map[string]string) error {
	c.Domain = lookup(envMap, "KINTONE_DOMAIN", "")
	c.Tracking = KintoneApp{
		ID:    lookup(envMap, "KINTONE_APP_ID", defaultTrackingAppID),
		Token: lookup(envMap, "KINTONE_API_TOKEN", ""),
	}
	c.UserMaster = KintoneApp{
		ID:    lookup(envMap, "KINTONE_USER_MASTER_APP_ID", ""),
		Token: lookup(envMap, "KINTONE_USER_MASTER_API_TOKEN", ""),
	}
	c.Attendance = KintoneApp{
		ID:    lookup(envMap, "KINTONE_ATTENDANCE_APP_ID", ""),
		Token: lookup(envMap, "KINTONE_ATTENDANCE_API_TOKEN", ""),
	}
	c.UUIDFieldCode = lookup(envMap, "KINTONE_UUID_FIELD_CODE", defaultUUIDFieldCode)
	c.StatusFieldCode = lookup(envMap, "KINTONE_STATUS_FIELD_CODE", defaultStatusFieldCode)
	c.CategoryFieldCode = lookup(envMap, "KINTONE_CATEGORY_FIELD_CODE", defaultCategoryFieldCode)
	c.Category = lookup(envMap, "KINTONE_CATEGORY", defaultCategory)
	c.StatusProcessing = lookup(envMap, "KINTONE_STATUS_PROCESSING", defaultStatusProcessing)
	return nil
}
