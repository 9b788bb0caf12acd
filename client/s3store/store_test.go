package s3store

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/baasic/baasic-go/dto"
)

// fakeS3 is an in-memory object map behind the s3API interface.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string]string
	etags   map[string]string
	rev     int

	gotGet    []*s3.GetObjectInput
	gotPut    []*s3.PutObjectInput
	gotDelete []*s3.DeleteObjectInput
	gotList   []*s3.ListObjectsV2Input
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string]string{}, etags: map[string]string{}}
}

func (f *fakeS3) GetObject(
	ctx context.Context,
	params *s3.GetObjectInput,
	optFns ...func(*s3.Options),
) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gotGet = append(f.gotGet, params)

	value, ok := f.objects[aws.ToString(params.Key)]
	if !ok {
		return nil, &s3types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader([]byte(value)))}, nil
}

func (f *fakeS3) PutObject(
	ctx context.Context,
	params *s3.PutObjectInput,
	optFns ...func(*s3.Options),
) (*s3.PutObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gotPut = append(f.gotPut, params)

	data, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	key := aws.ToString(params.Key)
	f.objects[key] = string(data)
	f.rev++
	f.etags[key] = string(rune('a' + f.rev))
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(
	ctx context.Context,
	params *s3.DeleteObjectInput,
	optFns ...func(*s3.Options),
) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gotDelete = append(f.gotDelete, params)

	key := aws.ToString(params.Key)
	delete(f.objects, key)
	delete(f.etags, key)
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) ListObjectsV2(
	ctx context.Context,
	params *s3.ListObjectsV2Input,
	optFns ...func(*s3.Options),
) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gotList = append(f.gotList, params)

	out := &s3.ListObjectsV2Output{}
	for key := range f.objects {
		out.Contents = append(out.Contents, s3types.Object{
			Key:  aws.String(key),
			ETag: aws.String(f.etags[key]),
		})
	}
	return out, nil
}

func newTestStore(fake *fakeS3) *Store {
	return newWithAPI(Config{
		Bucket:       "sessions",
		Prefix:       "baasic/",
		PollInterval: 20 * time.Millisecond,
	}, fake)
}

func TestStore_Golden(t *testing.T) {
	t.Parallel()

	fake := newFakeS3()
	s := newTestStore(fake)

	if _, ok, err := s.GetItem("missing"); err != nil || ok {
		t.Fatalf("GetItem(missing) = ok %v, err %v, want absent", ok, err)
	}

	if err := s.SetItem("token", "abc"); err != nil {
		t.Fatalf("SetItem() error = %v", err)
	}
	if got := aws.ToString(fake.gotPut[0].Key); got != "baasic/token" {
		t.Errorf("put key = %q, want prefixed key", got)
	}

	value, ok, err := s.GetItem("token")
	if err != nil || !ok || value != "abc" {
		t.Fatalf("GetItem(token) = %q, %v, %v, want \"abc\"", value, ok, err)
	}

	if err := s.RemoveItem("token"); err != nil {
		t.Fatalf("RemoveItem() error = %v", err)
	}
	if _, ok, _ := s.GetItem("token"); ok {
		t.Fatal("GetItem(token) after remove, want absent")
	}
}

func TestWatch_DiffsSnapshots(t *testing.T) {
	t.Parallel()

	fake := newFakeS3()
	s := newTestStore(fake)

	ch, unsub := s.Watch()
	defer unsub()

	// Let the poller take its baseline snapshot first.
	time.Sleep(50 * time.Millisecond)

	if err := s.SetItem("bus", `{"type":"tokenExpired"}`); err != nil {
		t.Fatalf("SetItem() error = %v", err)
	}

	select {
	case change := <-ch:
		if change.Key != "bus" || change.NewValue != `{"type":"tokenExpired"}` {
			t.Errorf("change = %+v, want bus set", change)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for set notification")
	}

	if err := s.RemoveItem("bus"); err != nil {
		t.Fatalf("RemoveItem() error = %v", err)
	}

	select {
	case change := <-ch:
		if change.Key != "bus" || change.NewValue != "" {
			t.Errorf("change = %+v, want bus removal", change)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for removal notification")
	}
}

var _ dto.Backend = (*Store)(nil)
