package objectclient

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeObjects struct {
	objects     map[string][]byte
	contentType string
	err         error
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{objects: map[string][]byte{}}
}

func (f *fakeObjects) UploadFile(_ context.Context, bucket, key string, data io.Reader, contentType string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	b, err := io.ReadAll(data)
	if err != nil {
		return "", err
	}
	f.objects[bucket+"/"+key] = b
	f.contentType = contentType
	return objectURL(bucket, "us-east-2", key), nil
}

func (f *fakeObjects) DeleteFile(_ context.Context, bucket, key string) error {
	if f.err != nil {
		return f.err
	}
	delete(f.objects, bucket+"/"+key)
	return nil
}

func TestArchiveKey(t *testing.T) {
	a := NewArchive(newFakeObjects(), "amity-kb")

	assert.Equal(t, "kb/abc_fee_structure.pdf", a.Key("abc_fee structure.pdf"))
	assert.Equal(t, "kb/notes.txt", a.Key("../../etc/notes.txt"))
}

func TestArchiveStoreThenRemove(t *testing.T) {
	objs := newFakeObjects()
	a := NewArchive(objs, "amity-kb")
	ctx := context.Background()

	url, err := a.Store(ctx, "abc_hostel.txt", "", []byte("Hostel rules"))
	require.NoError(t, err)

	assert.Equal(t, "https://amity-kb.s3.us-east-2.amazonaws.com/kb/abc_hostel.txt", url)
	assert.Equal(t, "application/octet-stream", objs.contentType)
	assert.Equal(t, "Hostel rules", string(objs.objects["amity-kb/kb/abc_hostel.txt"]))

	require.NoError(t, a.Remove(ctx, "abc_hostel.txt"))
	assert.Empty(t, objs.objects)
}

func TestArchive_PropagatesErrors(t *testing.T) {
	objs := newFakeObjects()
	objs.err = errors.New("denied")
	a := NewArchive(objs, "amity-kb")

	_, err := a.Store(context.Background(), "x.pdf", "application/pdf", []byte("%PDF"))
	require.Error(t, err)
	require.Error(t, a.Remove(context.Background(), "x.pdf"))
}
