package storage

import (
	"context"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
)

type storedObject struct {
	data []byte
	opts minio.PutObjectOptions
}

type fakeMinio struct {
	mu      sync.Mutex
	objects map[string]storedObject
	puts    int
	putErr  error
	listErr error
	exists  bool
	made    int
	makeErr error
}

func newFakeMinio() *fakeMinio {
	return &fakeMinio{objects: map[string]storedObject{}}
}

func (f *fakeMinio) PutObject(_ context.Context, _, objectName string, reader io.Reader, _ int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts++
	if f.putErr != nil {
		return minio.UploadInfo{}, f.putErr
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return minio.UploadInfo{}, err
	}
	if _, taken := f.objects[objectName]; taken && opts.Header().Get("If-None-Match") == "*" {
		return minio.UploadInfo{}, minio.ErrorResponse{
			StatusCode: http.StatusPreconditionFailed,
			Code:       "PreconditionFailed",
			Key:        objectName,
		}
	}
	f.objects[objectName] = storedObject{data: data, opts: opts}
	return minio.UploadInfo{Key: objectName, Size: int64(len(data))}, nil
}

func (f *fakeMinio) ListObjects(_ context.Context, _ string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo {
	f.mu.Lock()
	defer f.mu.Unlock()

	keys := make([]string, 0, len(f.objects))
	for key := range f.objects {
		if strings.HasPrefix(key, opts.Prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	ch := make(chan minio.ObjectInfo, len(keys)+1)
	if f.listErr != nil {
		ch <- minio.ObjectInfo{Err: f.listErr}
	}
	for _, key := range keys {
		ch <- minio.ObjectInfo{Key: key}
	}
	close(ch)
	return ch
}

func (f *fakeMinio) BucketExists(context.Context, string) (bool, error) {
	return f.exists, nil
}

func (f *fakeMinio) MakeBucket(context.Context, string, minio.MakeBucketOptions) error {
	f.made++
	return f.makeErr
}

func newTestStore(client objectAPI) *Store {
	return &Store{client: client, bucketName: "field-images"}
}
