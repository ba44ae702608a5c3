package blobstore

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

type fakeObject struct {
	data        []byte
	contentType string
	metadata    map[string]string
}

// fakeS3 implements s3API and s3Uploader against an in-memory map.
type fakeS3 struct {
	mu        sync.Mutex
	objects   map[string]fakeObject
	uploadErr error
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string]fakeObject)}
}

func (f *fakeS3) Upload(_ context.Context, input *s3.PutObjectInput, _ ...func(*manager.Uploader)) (*manager.UploadOutput, error) {
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	data, err := io.ReadAll(input.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.ToString(input.Key)] = fakeObject{
		data:        data,
		contentType: aws.ToString(input.ContentType),
		metadata:    input.Metadata,
	}
	return &manager.UploadOutput{Location: "s3://" + aws.ToString(input.Bucket) + "/" + aws.ToString(input.Key)}, nil
}

func (f *fakeS3) GetObject(_ context.Context, params *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	obj, ok := f.objects[aws.ToString(params.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(obj.data))}, nil
}

func (f *fakeS3) HeadObject(_ context.Context, params *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	obj, ok := f.objects[aws.ToString(params.Key)]
	if !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{
		ContentLength: aws.Int64(int64(len(obj.data))),
		ContentType:   aws.String(obj.contentType),
		Metadata:      obj.metadata,
	}, nil
}

func newTestS3Store(fake *fakeS3) *S3Store {
	return &S3Store{bucket: "photos", client: fake, uploader: fake}
}

func TestS3StoreRoundTrip(t *testing.T) {
	fake := newFakeS3()
	store := newTestS3Store(fake)
	ctx := context.Background()

	blob, err := store.Store(ctx, []byte("pixels"), "cat.png", "image/png")
	if err != nil {
		t.Fatalf("Store() failed: %v", err)
	}
	if _, ok := fake.objects["blobs/"+blob.Key]; !ok {
		t.Errorf("expected object under blobs/%s", blob.Key)
	}

	data, err := store.Retrieve(ctx, blob.Key)
	if err != nil || string(data) != "pixels" {
		t.Errorf("Retrieve() = %q, %v", data, err)
	}

	stat, err := store.Exists(ctx, blob.Key)
	if err != nil {
		t.Fatalf("Exists() failed: %v", err)
	}
	if stat != blob {
		t.Errorf("Exists() = %+v, want %+v", stat, blob)
	}
}

func TestS3StoreNotFound(t *testing.T) {
	store := newTestS3Store(newFakeS3())
	ctx := context.Background()
	key := KeyFromDigest(Digest([]byte("missing")))

	if _, err := store.Retrieve(ctx, key); !errors.Is(err, ErrNotFound) {
		t.Errorf("Retrieve() error = %v, want ErrNotFound", err)
	}
	if _, err := store.Exists(ctx, key); !errors.Is(err, ErrNotFound) {
		t.Errorf("Exists() error = %v, want ErrNotFound", err)
	}
	if _, err := store.Retrieve(ctx, "blobs/../secret"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Retrieve(malformed) error = %v, want ErrNotFound", err)
	}
}

func TestS3StoreUploadFailure(t *testing.T) {
	fake := newFakeS3()
	fake.uploadErr = errors.New("connection reset by peer")
	store := newTestS3Store(fake)

	_, err := store.Store(context.Background(), []byte("x"), "x.jpg", "image/jpeg")
	if !errors.Is(err, ErrStorage) {
		t.Errorf("Store() error = %v, want ErrStorage", err)
	}
}

func TestNewS3StoreRequiresBucket(t *testing.T) {
	if _, err := NewS3Store(context.Background(), S3Config{}); err == nil {
		t.Error("expected error without bucket")
	}
}
