package blob_test

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"sync"
	"testing"

	"github.com/absmach/rounds/backend/softmax"
	"github.com/absmach/rounds/pkg/blob"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	bucket  string
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string][]byte)}
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bucket = aws.ToString(in.Bucket)
	f.objects[aws.ToString(in.Key)] = data

	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}

	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func stores(t *testing.T) map[string]blob.Store {
	t.Helper()

	return map[string]blob.Store{
		"memory": blob.NewMemory(),
		"fs":     blob.NewFS(t.TempDir()),
		"s3":     blob.NewS3WithClient(newFakeS3(), "models"),
	}
}

func TestStorePutGet(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := store.Get(ctx, "runs/missing.cbor")
			assert.ErrorIs(t, err, blob.ErrNotFound)

			require.NoError(t, store.Put(ctx, "runs/a/model.cbor", []byte("first")))
			require.NoError(t, store.Put(ctx, "runs/a/model.cbor", []byte("second")))

			got, err := store.Get(ctx, "runs/a/model.cbor")
			require.NoError(t, err)
			assert.Equal(t, []byte("second"), got)

			assert.ErrorIs(t, store.Put(ctx, "", []byte("x")), blob.ErrInvalidKey)
		})
	}
}

func TestFSRejectsEscapingKeys(t *testing.T) {
	store := blob.NewFS(t.TempDir())

	cases := []struct {
		desc string
		key  string
	}{
		{desc: "parent directory", key: "../model.cbor"},
		{desc: "nested parent", key: "a/../../model.cbor"},
		{desc: "absolute", key: "/tmp/model.cbor"},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			err := store.Put(context.Background(), tc.key, []byte("x"))
			assert.ErrorIs(t, err, blob.ErrInvalidKey)
		})
	}
}

func TestFSWithoutRoot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "model.cbor")
	store := blob.NewFS("")

	require.NoError(t, store.Put(context.Background(), filepath.ToSlash(path), []byte("weights")))
	got, err := store.Get(context.Background(), filepath.ToSlash(path))
	require.NoError(t, err)
	assert.Equal(t, []byte("weights"), got)
}

func TestNew(t *testing.T) {
	cases := []struct {
		desc string
		cfg  blob.Config
		err  error
	}{
		{desc: "fs", cfg: blob.Config{Driver: "fs", Root: t.TempDir()}},
		{desc: "default driver", cfg: blob.Config{}},
		{desc: "memory", cfg: blob.Config{Driver: "memory"}},
		{desc: "s3 without bucket", cfg: blob.Config{Driver: "s3"}, err: blob.ErrMissingBucket},
		{desc: "unknown", cfg: blob.Config{Driver: "tape"}, err: blob.ErrUnsupported},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			store, err := blob.New(context.Background(), tc.cfg)
			if tc.err != nil {
				assert.ErrorIs(t, err, tc.err)

				return
			}
			require.NoError(t, err)
			assert.NotNil(t, store)
		})
	}
}

func TestModelSaver(t *testing.T) {
	backend, err := softmax.NewBackend(3, 4, 11)
	require.NoError(t, err)
	model, err := backend.NewModel(context.Background())
	require.NoError(t, err)

	saver := blob.NewModelSaver(blob.NewMemory())
	require.NoError(t, saver.Save(context.Background(), model, "model.cbor"))

	var loaded softmax.Model
	require.NoError(t, saver.Load(context.Background(), "model.cbor", &loaded))
	assert.Equal(t, model, &loaded)

	err = saver.Save(context.Background(), "not a model", "other.cbor")
	assert.ErrorIs(t, err, blob.ErrNotSnapshotter)

	err = saver.Load(context.Background(), "missing.cbor", &loaded)
	assert.ErrorIs(t, err, blob.ErrNotFound)
}
