package attendance

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"field_uploader/apperr"
	"field_uploader/config"
	"field_uploader/kintone"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRecordStore struct {
	record    kintone.Record
	found     bool
	lookupErr error
	createErr error
	query     string
	lookups   int
	created   kintone.Fields
	createApp kintone.App
}

func (f *fakeRecordStore) First(_ context.Context, _ kintone.App, query string, _ []string) (kintone.Record, bool, error) {
	f.lookups++
	f.query = query
	return f.record, f.found, f.lookupErr
}

func (f *fakeRecordStore) Create(_ context.Context, app kintone.App, fields kintone.Fields) (string, error) {
	f.createApp = app
	f.created = fields
	return "5", f.createErr
}

func attendanceConfig() config.Config {
	return config.Config{Kintone: config.KintoneConfig{
		Domain:     "example.cybozu.com",
		UserMaster: config.KintoneApp{ID: "10", Token: "master-token"},
		Attendance: config.KintoneApp{ID: "11", Token: "attendance-token"},
	}}
}

func fixedNow() time.Time {
	return time.Date(2024, 6, 1, 1, 0, 0, 0, time.UTC)
}

func ptr(v float64) *float64 { return &v }

func TestClockIn(t *testing.T) {
	store := &fakeRecordStore{
		found:  true,
		record: kintone.Record{"username_master": {Value: json.RawMessage(`"Hanako"`)}},
	}
	svc := NewService(attendanceConfig(), store, fixedNow)

	out := svc.ClockIn(context.Background(), Punch{WorkerID: "W-01", Latitude: ptr(35.5), Longitude: ptr(139.25), Accuracy: ptr(12)})
	require.True(t, out.Success, out.Message)
	assert.Equal(t, "Hanako", out.WorkerName)
	assert.Equal(t, `userid_master = "W-01"`, store.query)
	assert.Equal(t, kintone.App{ID: "11", Token: "attendance-token"}, store.createApp)

	values := map[string]string{}
	for _, f := range store.created.Present() {
		values[f.Code] = f.Value
	}
	assert.Equal(t, map[string]string{
		"worker_id":         "W-01",
		"worker_name":       "Hanako",
		"clock_in_time":     "2024-06-01T10:00:00+09:00",
		"latitude":          "35.5",
		"longitude":         "139.25",
		"location_accuracy": "12",
		"map_link":          "https://www.google.com/maps?q=35.5,139.25",
	}, values)
}

func TestClockInWithoutCoordinates(t *testing.T) {
	store := &fakeRecordStore{found: true, record: kintone.Record{}}
	svc := NewService(attendanceConfig(), store, fixedNow)

	out := svc.ClockIn(context.Background(), Punch{WorkerID: "W-01"})
	require.True(t, out.Success)
	for _, f := range store.created.Present() {
		assert.NotEqual(t, "map_link", f.Code)
		assert.NotEqual(t, "latitude", f.Code)
	}
}

func TestClockInUnknownWorker(t *testing.T) {
	store := &fakeRecordStore{}
	svc := NewService(attendanceConfig(), store, fixedNow)

	out := svc.ClockIn(context.Background(), Punch{WorkerID: "nobody"})
	assert.False(t, out.Success)
	assert.Equal(t, apperr.KindNotFound, out.Kind)
	assert.Nil(t, store.created)
}

func TestClockInFailures(t *testing.T) {
	svc := NewService(attendanceConfig(), &fakeRecordStore{}, fixedNow)
	out := svc.ClockIn(context.Background(), Punch{})
	assert.Equal(t, apperr.KindValidation, out.Kind)

	store := &fakeRecordStore{}
	svc = NewService(config.Config{}, store, fixedNow)
	out = svc.ClockIn(context.Background(), Punch{WorkerID: "W-01"})
	assert.Equal(t, apperr.KindConfiguration, out.Kind)
	assert.Zero(t, store.lookups)

	store = &fakeRecordStore{lookupErr: apperr.Wrap(apperr.KindRecordStore, "kintone.Lookup", fmt.Errorf("%w: HTTP 503", kintone.ErrService))}
	svc = NewService(attendanceConfig(), store, fixedNow)
	out = svc.ClockIn(context.Background(), Punch{WorkerID: "W-01"})
	assert.Equal(t, apperr.KindRecordStore, out.Kind)
	assert.Nil(t, store.created)

	store = &fakeRecordStore{found: true, record: kintone.Record{}, createErr: apperr.Wrap(apperr.KindRecordStore, "kintone.Create", kintone.ErrInvalidRequest)}
	svc = NewService(attendanceConfig(), store, fixedNow)
	out = svc.ClockIn(context.Background(), Punch{WorkerID: "W-01"})
	assert.False(t, out.Success)
	assert.Equal(t, apperr.KindRecordStore, out.Kind)
	assert.ErrorIs(t, out.Err, kintone.ErrInvalidRequest)
}
