package storage

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"field_uploader/apperr"

	backoff "github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/singleflight"
)

// LocationService lists and creates named child locations.
type LocationService interface {
	FindChildren(ctx context.Context, parentID, name string) ([]Location, error)
	CreateChild(ctx context.Context, parentID, name string) (Location, error)
}

// resolveTimeout bounds the shared lookup-and-create once it no longer follows
// any single caller's context.
const resolveTimeout = 30 * time.Second

// Resolver implements find-or-create of a named child location.
//
// Concurrent calls for the same parent and name share one lookup and at most
// one create inside this process. The shared work is detached from the caller
// that started it, so a cancelled caller only abandons its own wait. Listing
// is retried on transport failures; creating is not.
type Resolver struct {
	locations    LocationService
	group        singleflight.Group
	buildBackoff func() backoff.BackOff
	waiting      atomic.Int64
}

func NewResolver(locations LocationService, factory func() backoff.BackOff) *Resolver {
	if factory == nil {
		factory = func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 100 * time.Millisecond
			b.MaxElapsedTime = 3 * time.Second
			return b
		}
	}
	return &Resolver{locations: locations, buildBackoff: factory}
}

func (r *Resolver) Resolve(ctx context.Context, parentID, name string) (string, error) {
	if parentID == "" || name == "" {
		return "", storageError("storage.Resolve", ErrInvalidLocation, "parent id and name are required")
	}

	detached := context.WithoutCancel(ctx)
	ch := r.group.DoChan(parentID+"\x00"+name, func() (any, error) {
		workCtx, cancel := context.WithTimeout(detached, resolveTimeout)
		defer cancel()
		return r.findOrCreate(workCtx, parentID, name)
	})

	r.waiting.Add(1)
	defer r.waiting.Add(-1)

	select {
	case <-ctx.Done():
		slog.Warn("caller stopped waiting for location", "parent_id", parentID, "name", name, "error", ctx.Err())
		return "", storageError("storage.Resolve", ErrTransport, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		if res.Shared {
			slog.Debug("location resolution shared with a concurrent request", "parent_id", parentID, "name", name)
		}
		return res.Val.(string), nil
	}
}

func (r *Resolver) findOrCreate(ctx context.Context, parentID, name string) (string, error) {
	var found []Location
	err := backoff.Retry(func() error {
		var err error
		found, err = r.locations.FindChildren(ctx, parentID, name)
		if err != nil && !errors.Is(err, ErrTransport) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(r.buildBackoff(), ctx))
	if err != nil {
		slog.Error("failed to look up location", "parent_id", parentID, "name", name, "error", err)
		return "", ensureStorageKind("storage.Resolve", err)
	}

	if len(found) > 0 {
		slog.Info("location already exists", "name", name, "location_id", found[0].ID)
		return found[0].ID, nil
	}

	slog.Info("location not found, creating", "parent_id", parentID, "name", name)
	created, err := r.locations.CreateChild(ctx, parentID, name)
	if err != nil {
		return "", ensureStorageKind("storage.Resolve", err)
	}
	return created.ID, nil
}

func ensureStorageKind(op string, err error) error {
	if apperr.KindOf(err) == apperr.KindStorage {
		return err
	}
	return storageError(op, ErrTransport, err)
}
