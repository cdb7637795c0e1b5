package s3

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	exists      bool
	existsErr   error
	made        int
	putErr      error
	objects     map[string][]byte
	contentType map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: map[string][]byte{}, contentType: map[string]string{}}
}

func (f *fakeStore) BucketExists(context.Context, string) (bool, error) {
	return f.exists, f.existsErr
}

func (f *fakeStore) MakeBucket(context.Context, string, minio.MakeBucketOptions) error {
	f.made++
	f.exists = true
	return nil
}

func (f *fakeStore) PutObject(_ context.Context, _ string, key string, reader io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	if f.putErr != nil {
		return minio.UploadInfo{}, f.putErr
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return minio.UploadInfo{}, err
	}
	if int64(len(data)) != size {
		return minio.UploadInfo{}, errors.New("size mismatch")
	}
	f.objects[key] = data
	f.contentType[key] = opts.ContentType
	return minio.UploadInfo{Key: key, ETag: "etag-1", Size: size}, nil
}

func TestArchivePutCreatesBucketOnce(t *testing.T) {
	store := newFakeStore()
	archive := newArchive(store, "receipts", nil)

	require.NoError(t, archive.Put(context.Background(), "/settlements/bk-1.json", "application/json", []byte(`{"a":1}`)))
	require.NoError(t, archive.Put(context.Background(), "settlements/bk-2.json", "", []byte(`{}`)))

	assert.Equal(t, 1, store.made)
	assert.Equal(t, []byte(`{"a":1}`), store.objects["settlements/bk-1.json"])
	assert.Equal(t, "application/json", store.contentType["settlements/bk-1.json"])
	assert.Equal(t, "application/octet-stream", store.contentType["settlements/bk-2.json"])
}

func TestArchivePutErrors(t *testing.T) {
	store := newFakeStore()
	store.exists = true
	store.putErr = errors.New("denied")
	archive := newArchive(store, "receipts", nil)

	assert.Error(t, archive.Put(context.Background(), "  ", "application/json", nil))
	err := archive.Put(context.Background(), "settlements/bk-1.json", "application/json", []byte(`{}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "put object")
}

func TestNewArchiveValidates(t *testing.T) {
	_, err := NewArchive(Options{Bucket: "receipts"}, nil)
	assert.Error(t, err)
	_, err = NewArchive(Options{Endpoint: "http://localhost:9000"}, nil)
	assert.Error(t, err)
}

func TestParseEndpoint(t *testing.T) {
	assert.Equal(t, "minio:9000", parseEndpoint("http://minio:9000"))
	assert.Equal(t, "minio:9000", parseEndpoint("minio:9000"))
}
