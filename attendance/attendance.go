package attendance

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"field_uploader/apperr"
	"field_uploader/config"
	"field_uploader/kintone"
	"field_uploader/naming"
)

const (
	masterWorkerIDField   = "userid_master"
	masterWorkerNameField = "username_master"
)

type RecordStore interface {
	First(ctx context.Context, app kintone.App, query string, fields []string) (kintone.Record, bool, error)
	Create(ctx context.Context, app kintone.App, fields kintone.Fields) (string, error)
}

// Punch is one clock-in sent from the field device.
type Punch struct {
	WorkerID  string
	Latitude  *float64
	Longitude *float64
	Accuracy  *float64
}

type Outcome struct {
	Success    bool
	Message    string
	Kind       apperr.Kind
	Err        error
	WorkerName string
}

type Service struct {
	cfg     config.Config
	records RecordStore
	now     func() time.Time
}

func NewService(cfg config.Config, records RecordStore, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{cfg: cfg, records: records, now: now}
}

// ClockIn looks the worker up in the user master app and writes one
// attendance record for them.
func (s *Service) ClockIn(ctx context.Context, p Punch) Outcome {
	if err := s.cfg.RequireAttendance(); err != nil {
		slog.Error("clock-in rejected, server is misconfigured", "error", err)
		return Outcome{Message: "The server is missing required kintone configuration.", Kind: apperr.KindConfiguration, Err: err}
	}
	workerID := strings.TrimSpace(p.WorkerID)
	if workerID == "" {
		err := apperr.New(apperr.KindValidation, "attendance.ClockIn", "worker id is required")
		return Outcome{Message: "Worker ID is required.", Kind: apperr.KindValidation, Err: err}
	}

	kc := s.cfg.Kintone
	master := kintone.App{ID: kc.UserMaster.ID, Token: kc.UserMaster.Token}
	query := masterWorkerIDField + " = " + kintone.Quote(workerID)
	rec, ok, err := s.records.First(ctx, master, query, []string{masterWorkerNameField})
	if err != nil {
		slog.Error("user master lookup failed", "worker_id", workerID, "error", err)
		return Outcome{Message: "Failed to look up the worker in the user master.", Kind: apperr.KindOf(err), Err: err}
	}
	if !ok {
		err := apperr.New(apperr.KindNotFound, "attendance.ClockIn", "worker not found")
		slog.Warn("worker not found in user master", "worker_id", workerID)
		return Outcome{Message: fmt.Sprintf("Worker %q was not found.", workerID), Kind: apperr.KindNotFound, Err: err}
	}
	workerName := rec.String(masterWorkerNameField)

	fields := kintone.Fields{
		kintone.Required("worker_id", workerID),
		kintone.Optional("worker_name", workerName),
		kintone.Required("clock_in_time", s.now().In(naming.JST).Format(time.RFC3339)),
		kintone.Optional("latitude", formatCoord(p.Latitude)),
		kintone.Optional("longitude", formatCoord(p.Longitude)),
		kintone.Optional("location_accuracy", formatCoord(p.Accuracy)),
		kintone.Optional("map_link", mapLink(p.Latitude, p.Longitude)),
	}
	attendanceApp := kintone.App{ID: kc.Attendance.ID, Token: kc.Attendance.Token}
	if _, err := s.records.Create(ctx, attendanceApp, fields); err != nil {
		slog.Error("attendance record creation failed", "worker_id", workerID, "error", err)
		return Outcome{Message: "Failed to record attendance.", Kind: apperr.KindOf(err), Err: err}
	}

	slog.Info("attendance recorded", "worker_id", workerID)
	return Outcome{Success: true, Message: "Attendance recorded.", WorkerName: workerName}
}

func formatCoord(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func mapLink(lat, lng *float64) string {
	if lat == nil || lng == nil {
		return ""
	}
	return "https://www.google.com/maps?q=" + formatCoord(lat) + "," + formatCoord(lng)
}
