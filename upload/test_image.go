package upload

import (
	"context"
	"log/slog"

	"field_uploader/kintone"
	"field_uploader/naming"
	"field_uploader/storage"
)

// Record field codes of the business attributes in the tracking app.
const (
	fieldSiteID   = "placeID"
	fieldHouseID  = "houseID"
	fieldTrayID   = "treiID"
	fieldUsername = "username"
	fieldWorkerID = "worker_id"
	fieldMemo     = "memo"
	fieldTestType = "test_type"
)

// SubmitTestImage uploads a test image and then registers its tracking record.
//
// The artifact is always stored before the record that references it. When
// the record cannot be created the uploaded artifact is left in place and the
// submission is reported as failed.
func (c *Coordinator) SubmitTestImage(ctx context.Context, req Request) Outcome {
	if err := c.cfg.RequireTestImage(); err != nil {
		slog.Error("test image submission rejected, server is misconfigured", "error", err)
		return c.finish(naming.TestImage, failed("The server is missing required configuration.", err))
	}
	if err := validate(req); err != nil {
		slog.Warn("invalid test image submission", "tray_id", req.TrayID, "error", err)
		return c.finish(naming.TestImage, failed(validationMessage(err), err))
	}

	correlationID := c.newID()
	filename, err := naming.Compose(naming.TestImage, naming.Keys{TrayID: req.TrayID}, c.now(), correlationID, naming.Extension(req.File.Filename))
	if err != nil {
		return c.finish(naming.TestImage, failed(validationMessage(err), err))
	}

	root := c.cfg.MinIO.TestImageRoot
	var artifactID string
	err = c.timed("storage", "upload", func() error {
		var err error
		artifactID, err = c.store.Upload(ctx, storage.Artifact{
			Body:         req.File.Body,
			Size:         req.File.Size,
			Name:         filename,
			ContentType:  req.File.ContentType,
			OriginalName: req.File.Filename,
		}, root)
		return err
	})
	if err != nil {
		slog.Error("test image upload failed", "tray_id", req.TrayID, "location_id", root, "filename", filename, "error", err)
		return c.finish(naming.TestImage, failed("Upload to object storage failed: "+err.Error(), err))
	}

	kc := c.cfg.Kintone
	fields := kintone.Fields{
		kintone.Required(kc.UUIDFieldCode, correlationID),
		kintone.Required(kc.StatusFieldCode, kc.StatusProcessing),
		kintone.Required(kc.CategoryFieldCode, kc.Category),
		kintone.Optional(fieldSiteID, req.SiteID),
		kintone.Optional(fieldHouseID, req.HouseID),
		kintone.Optional(fieldTrayID, req.TrayID),
		kintone.Optional(fieldUsername, req.Username),
		kintone.Optional(fieldWorkerID, req.WorkerID),
		kintone.Optional(fieldMemo, req.Memo),
		kintone.Optional(fieldTestType, req.TestType),
	}

	var recordID string
	err = c.timed("kintone", "create", func() error {
		var err error
		recordID, err = c.records.Create(ctx, kintone.App{ID: kc.Tracking.ID, Token: kc.Tracking.Token}, fields)
		return err
	})
	if err != nil {
		slog.Error("tracking record creation failed after upload, artifact left orphaned",
			"artifact_id", artifactID, "correlation_id", correlationID, "tray_id", req.TrayID, "error", err)
		return c.finish(naming.TestImage, failed("Failed to register the tracking record.", err))
	}

	slog.Info("test image submitted", "artifact_id", artifactID, "correlation_id", correlationID, "record_id", recordID)
	return c.finish(naming.TestImage, succeeded("Upload complete, tracking record registered."))
}
