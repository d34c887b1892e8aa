package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"field_uploader/attendance"
)

type attendanceRequest struct {
	WorkerID      string   `json:"worker_id"`
	WorkerIDCamel string   `json:"workerId"`
	Latitude      *float64 `json:"latitude"`
	Longitude     *float64 `json:"longitude"`
	Accuracy      *float64 `json:"accuracy"`
}

func (s *Server) RecordAttendance(w http.ResponseWriter, r *http.Request) {
	var req attendanceRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		slog.Warn("invalid attendance payload", "error", err)
		sendJSONResponse(w, http.StatusBadRequest, response{Message: "Request body must be JSON."})
		return
	}
	workerID := req.WorkerID
	if workerID == "" {
		workerID = req.WorkerIDCamel
	}

	out := s.attendance.ClockIn(r.Context(), attendance.Punch{
		WorkerID:  workerID,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		Accuracy:  req.Accuracy,
	})
	status := http.StatusOK
	if !out.Success {
		status = statusFor(out.Kind)
	}
	sendJSONResponse(w, status, response{Success: out.Success, Message: out.Message, WorkerName: out.WorkerName})
}
