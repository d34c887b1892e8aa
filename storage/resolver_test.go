package storage

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"field_uploader/apperr"

	backoff "github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLocations struct {
	mu          sync.Mutex
	children    map[string]Location
	finds       int
	creates     int
	findErrs    []error
	createErr   error
	releaseFind chan struct{}
}

func newFakeLocations() *fakeLocations {
	return &fakeLocations{children: map[string]Location{}}
}

func (f *fakeLocations) FindChildren(ctx context.Context, parentID, name string) ([]Location, error) {
	if f.releaseFind != nil {
		select {
		case <-f.releaseFind:
		case <-ctx.Done():
			return nil, storageError("storage.FindChildren", ErrTransport, ctx.Err())
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finds++
	if len(f.findErrs) > 0 {
		err := f.findErrs[0]
		f.findErrs = f.findErrs[1:]
		return nil, err
	}
	if loc, ok := f.children[parentID+"/"+name]; ok {
		return []Location{loc}, nil
	}
	return nil, nil
}

func (f *fakeLocations) CreateChild(_ context.Context, parentID, name string) (Location, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	if f.createErr != nil {
		return Location{}, f.createErr
	}
	loc := Location{ID: parentID + "/" + name, Name: name}
	f.children[loc.ID] = loc
	return loc, nil
}

func fastBackoff() backoff.BackOff {
	return backoff.WithMaxRetries(backoff.NewConstantBackOff(time.Millisecond), 3)
}

func TestResolveSequentialCallsCreateOnce(t *testing.T) {
	locs := newFakeLocations()
	r := NewResolver(locs, fastBackoff)
	ctx := context.Background()

	first, err := r.Resolve(ctx, "habitat", "Tray-42")
	require.NoError(t, err)
	second, err := r.Resolve(ctx, "habitat", "Tray-42")
	require.NoError(t, err)

	assert.Equal(t, "habitat/Tray-42", first)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, locs.creates)
	assert.Equal(t, 2, locs.finds)
}

func TestResolveRetriesTransportFailuresOnLookup(t *testing.T) {
	locs := newFakeLocations()
	locs.findErrs = []error{
		storageError("storage.FindChildren", ErrTransport, "timeout"),
		storageError("storage.FindChildren", ErrTransport, "timeout"),
	}
	r := NewResolver(locs, fastBackoff)

	id, err := r.Resolve(context.Background(), "habitat", "T9")
	require.NoError(t, err)
	assert.Equal(t, "habitat/T9", id)
	assert.Equal(t, 3, locs.finds)
	assert.Equal(t, 1, locs.creates)
}

func TestResolveDoesNotRetryRejectedLookup(t *testing.T) {
	locs := newFakeLocations()
	locs.findErrs = []error{storageError("storage.FindChildren", ErrRejected, "AccessDenied")}
	r := NewResolver(locs, fastBackoff)

	_, err := r.Resolve(context.Background(), "habitat", "T9")
	require.ErrorIs(t, err, ErrRejected)
	assert.Equal(t, 1, locs.finds)
	assert.Zero(t, locs.creates)
}

func TestResolveDoesNotRetryCreate(t *testing.T) {
	locs := newFakeLocations()
	locs.createErr = storageError("storage.CreateChild", ErrTransport, "reset by peer")
	r := NewResolver(locs, fastBackoff)

	_, err := r.Resolve(context.Background(), "habitat", "T9")
	require.ErrorIs(t, err, ErrTransport)
	assert.Equal(t, apperr.KindStorage, apperr.KindOf(err))
	assert.Equal(t, 1, locs.creates)
}

func TestResolveWrapsForeignErrors(t *testing.T) {
	locs := newFakeLocations()
	locs.createErr = errors.New("unexpected")
	r := NewResolver(locs, fastBackoff)

	_, err := r.Resolve(context.Background(), "habitat", "T9")
	require.Error(t, err)
	assert.Equal(t, apperr.KindStorage, apperr.KindOf(err))
}

func TestResolveConcurrentCallsCreateOnce(t *testing.T) {
	locs := newFakeLocations()
	locs.releaseFind = make(chan struct{})
	r := NewResolver(locs, fastBackoff)

	const callers = 8
	ids := make([]string, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, err := r.Resolve(context.Background(), "habitat", "T9")
			assert.NoError(t, err)
			ids[i] = id
		}(i)
	}

	waitForWaiters(t, r, callers)
	close(locs.releaseFind)
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, "habitat/T9", id)
	}
	assert.Equal(t, 1, locs.finds)
	assert.Equal(t, 1, locs.creates)
}

func TestResolveSurvivesCancelledFirstCaller(t *testing.T) {
	locs := newFakeLocations()
	locs.releaseFind = make(chan struct{})
	r := NewResolver(locs, fastBackoff)

	ctxA, cancelA := context.WithCancel(context.Background())
	defer cancelA()
	errA := make(chan error, 1)
	go func() {
		_, err := r.Resolve(ctxA, "habitat", "T9")
		errA <- err
	}()
	waitForWaiters(t, r, 1)

	type result struct {
		id  string
		err error
	}
	resB := make(chan result, 1)
	go func() {
		id, err := r.Resolve(context.Background(), "habitat", "T9")
		resB <- result{id, err}
	}()
	waitForWaiters(t, r, 2)

	cancelA()
	err := <-errA
	require.ErrorIs(t, err, ErrTransport)
	assert.Contains(t, err.Error(), "context canceled")

	close(locs.releaseFind)
	b := <-resB
	require.NoError(t, b.err)
	assert.Equal(t, "habitat/T9", b.id)
	assert.Equal(t, 1, locs.finds)
	assert.Equal(t, 1, locs.creates)
}

func waitForWaiters(t *testing.T, r *Resolver, n int64) {
	t.Helper()
	require.Eventually(t, func() bool { return r.waiting.Load() == n }, time.Second, time.Millisecond)
}

func TestResolveRequiresName(t *testing.T) {
	r := NewResolver(newFakeLocations(), fastBackoff)
	_, err := r.Resolve(context.Background(), "habitat", "")
	require.ErrorIs(t, err, ErrInvalidLocation)
}
