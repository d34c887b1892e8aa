package upload

import (
	"context"
	"log/slog"

	"field_uploader/naming"
	"field_uploader/storage"
)

// SubmitHabitatImage stores a habitat image in the per-tray location under the
// habitat root. No record is written for habitat images.
func (c *Coordinator) SubmitHabitatImage(ctx context.Context, req Request) Outcome {
	if err := c.cfg.RequireHabitatImage(); err != nil {
		slog.Error("habitat image submission rejected, server is misconfigured", "error", err)
		return c.finish(naming.HabitatImage, failed("The server is missing required configuration.", err))
	}
	if err := validate(req); err != nil {
		slog.Warn("invalid habitat image submission", "tray_id", req.TrayID, "error", err)
		return c.finish(naming.HabitatImage, failed(validationMessage(err), err))
	}

	root := c.cfg.MinIO.HabitatImageRoot
	var locationID string
	err := c.timed("storage", "resolve_location", func() error {
		var err error
		locationID, err = c.resolver.Resolve(ctx, root, req.TrayID)
		return err
	})
	if err != nil {
		slog.Error("habitat location resolution failed", "tray_id", req.TrayID, "parent_id", root, "error", err)
		return c.finish(naming.HabitatImage, failed("Storage location lookup failed: "+err.Error(), err))
	}

	filename, err := naming.Compose(naming.HabitatImage, naming.Keys{TrayID: req.TrayID}, c.now(), "", naming.Extension(req.File.Filename))
	if err != nil {
		return c.finish(naming.HabitatImage, failed(validationMessage(err), err))
	}

	var artifactID string
	err = c.timed("storage", "upload", func() error {
		var err error
		artifactID, err = c.store.Upload(ctx, storage.Artifact{
			Body:         req.File.Body,
			Size:         req.File.Size,
			Name:         filename,
			ContentType:  req.File.ContentType,
			OriginalName: req.File.Filename,
		}, locationID)
		return err
	})
	if err != nil {
		slog.Error("habitat image upload failed", "tray_id", req.TrayID, "location_id", locationID, "filename", filename, "error", err)
		return c.finish(naming.HabitatImage, failed("Upload to object storage failed: "+err.Error(), err))
	}

	slog.Info("habitat image submitted", "artifact_id", artifactID, "tray_id", req.TrayID)
	return c.finish(naming.HabitatImage, succeeded("Habitat image upload complete."))
}
