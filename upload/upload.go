package upload

import (
	"context"
	"errors"
	"io"
	"time"

	"field_uploader/apperr"
	"field_uploader/config"
	"field_uploader/kintone"
	"field_uploader/metrics"
	"field_uploader/naming"
	"field_uploader/storage"
)

type ArtifactStore interface {
	Upload(ctx context.Context, a storage.Artifact, parentID string) (string, error)
}

type LocationResolver interface {
	Resolve(ctx context.Context, parentID, name string) (string, error)
}

type RecordCreator interface {
	Create(ctx context.Context, app kintone.App, fields kintone.Fields) (string, error)
}

// File is the image attached to a submission.
type File struct {
	Body        io.Reader
	Size        int64
	Filename    string
	ContentType string
}

type Attributes struct {
	TrayID   string
	SiteID   string
	HouseID  string
	Username string
	WorkerID string
	Memo     string
	TestType string
}

type Request struct {
	File *File
	Attributes
}

// Outcome is the result of one submission. Kind is KindUnknown on success and
// otherwise tells the HTTP layer which status to answer with.
type Outcome struct {
	Success bool
	Message string
	Kind    apperr.Kind
	Err     error
}

func succeeded(message string) Outcome {
	return Outcome{Success: true, Message: message}
}

func failed(message string, err error) Outcome {
	return Outcome{Message: message, Kind: apperr.KindOf(err), Err: err}
}

type Coordinator struct {
	cfg      config.Config
	store    ArtifactStore
	resolver LocationResolver
	records  RecordCreator
	observer metrics.Observer
	now      func() time.Time
	newID    func() string
}

type Option func(*Coordinator)

func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		c.now = now
	}
}

func WithIDGenerator(newID func() string) Option {
	return func(c *Coordinator) {
		c.newID = newID
	}
}

func WithObserver(o metrics.Observer) Option {
	return func(c *Coordinator) {
		c.observer = o
	}
}

func New(cfg config.Config, store ArtifactStore, resolver LocationResolver, records RecordCreator, opts ...Option) *Coordinator {
	c := &Coordinator{
		cfg:      cfg,
		store:    store,
		resolver: resolver,
		records:  records,
		observer: metrics.Nop{},
		now:      time.Now,
		newID:    naming.NewCorrelationID,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Coordinator) timed(target, op string, fn func() error) error {
	start := time.Now()
	err := fn()
	c.observer.ObserveCall(target, op, time.Since(start), err)
	return err
}

func (c *Coordinator) finish(w naming.Workflow, o Outcome) Outcome {
	outcome := "success"
	if !o.Success {
		outcome = o.Kind.String()
	}
	c.observer.ObserveSubmission(w.String(), outcome)
	return o
}

func validate(req Request) error {
	if req.File == nil || req.File.Body == nil || req.File.Filename == "" {
		return apperr.New(apperr.KindValidation, "upload.validate", "no image was selected")
	}
	return naming.ValidateTrayID(req.TrayID)
}

func validationMessage(err error) string {
	var e *apperr.Error
	if errors.As(err, &e) && e.Err != nil {
		return e.Err.Error()
	}
	return err.Error()
}
