package server

import (
	"log/slog"
	"net/http"

	"field_uploader/upload"
)

func (s *Server) Submit(w http.ResponseWriter, r *http.Request) {
	slog.Info("test image submission received")

	file, done, err := parseUploadForm(w, r, s.maxUploadBytes, "photo_npk_test_type", "image")
	if err != nil {
		sendFormError(w, err)
		return
	}
	defer done()

	out := s.uploads.SubmitTestImage(r.Context(), upload.Request{
		File: file,
		Attributes: upload.Attributes{
			TrayID:   formValue(r, "treiID", "trayId"),
			SiteID:   formValue(r, "placeID", "siteId"),
			HouseID:  formValue(r, "houseID", "houseId"),
			Username: formValue(r, "username"),
			WorkerID: formValue(r, "worker_id", "workerId"),
			Memo:     formValue(r, "memo"),
			TestType: formValue(r, "test_type", "testType"),
		},
	})
	sendOutcome(w, out)
}

func (s *Server) UploadHabitatImage(w http.ResponseWriter, r *http.Request) {
	slog.Info("habitat image submission received")

	file, done, err := parseUploadForm(w, r, s.maxUploadBytes, "habitat_image", "image")
	if err != nil {
		sendFormError(w, err)
		return
	}
	defer done()

	out := s.uploads.SubmitHabitatImage(r.Context(), upload.Request{
		File:       file,
		Attributes: upload.Attributes{TrayID: formValue(r, "treiID", "trayId")},
	})
	sendOutcome(w, out)
}
