package store

import (
	"context"
	"fmt"
	"io"
	"testing"
)

type fakeBlob struct {
	objects map[string]bool
	uploads int
}

func newFakeBlob() *fakeBlob {
	return &fakeBlob{objects: map[string]bool{}}
}

func (f *fakeBlob) Put(_ context.Context, _, key string, _ io.Reader, _ string) error {
	f.objects[key] = true
	return nil
}

func (f *fakeBlob) Get(_ context.Context, _, key string) (io.ReadCloser, error) {
	if !f.objects[key] {
		return nil, fmt.Errorf("no object %s", key)
	}
	return io.NopCloser(nil), nil
}

func (f *fakeBlob) UploadFile(_ context.Context, _, key, _, _ string) error {
	f.objects[key] = true
	return nil
}

func (f *fakeBlob) DownloadFile(_ context.Context, _, key, _ string) error {
	if !f.objects[key] {
		return fmt.Errorf("no object %s", key)
	}
	return nil
}

func (f *fakeBlob) UploadFromURL(_ context.Context, _, key, _ string) error {
	f.objects[key] = true
	f.uploads++
	return nil
}

func (f *fakeBlob) MakePublic(context.Context, string, string) error { return nil }

func (f *fakeBlob) PublicURL(bucket, key string) string {
	return "https://" + bucket + "/" + key
}

func (f *fakeBlob) Exists(_ context.Context, _, key string) (bool, error) {
	return f.objects[key], nil
}

func (f *fakeBlob) Delete(_ context.Context, _, key string) error {
	delete(f.objects, key)
	return nil
}

func TestRehostURLSkipsAlreadyCopiedAssets(t *testing.T) {
	blob := newFakeBlob()
	s := New(nil, blob, "media")

	first, err := s.RehostURL(context.Background(), "job-1", "http://cdn.example.com/clip.mp4", "mp4")
	if err != nil {
		t.Fatal(err)
	}
	second, err := s.RehostURL(context.Background(), "job-1", "http://cdn.example.com/clip.mp4", "mp4")
	if err != nil {
		t.Fatal(err)
	}

	if first != second {
		t.Errorf("keys differ for the same source: %q vs %q", first, second)
	}
	if blob.uploads != 1 {
		t.Errorf("uploads = %d, want 1 (second call must reuse the copy)", blob.uploads)
	}
}

func TestRehostURLKeysPerSourceAndJob(t *testing.T) {
	blob := newFakeBlob()
	s := New(nil, blob, "media")

	a, err := s.RehostURL(context.Background(), "job-1", "http://cdn.example.com/a.jpg", "jpg")
	if err != nil {
		t.Fatal(err)
	}
	b, err := s.RehostURL(context.Background(), "job-1", "http://cdn.example.com/b.jpg", "jpg")
	if err != nil {
		t.Fatal(err)
	}
	if a == b {
		t.Errorf("distinct sources share a key: %q", a)
	}

	other, err := s.RehostURL(context.Background(), "job-2", "http://cdn.example.com/a.jpg", "jpg")
	if err != nil {
		t.Fatal(err)
	}
	if other == a {
		t.Errorf("jobs share a key: %q", other)
	}
}
