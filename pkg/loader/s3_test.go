package loader

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/mstellato/prefetchd/pkg/prefetch"
)

// fakeS3 serves objects from a map.
type fakeS3 struct {
	objects map[string][]byte
	err     error
	lastKey string
}

func (f *fakeS3) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.lastKey = aws.ToString(params.Key)
	if f.err != nil {
		return nil, f.err
	}
	data, ok := f.objects[f.lastKey]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func TestS3LoaderFetchWithPrefix(t *testing.T) {
	fake := &fakeS3{objects: map[string][]byte{
		"bundles/step2.js": []byte("bundle-bytes"),
	}}
	l := NewS3Loader(fake, "wizard-assets", "bundles")

	data, err := l.Load(context.Background(), "step2.js")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != "bundle-bytes" {
		t.Fatalf("unexpected data %q", data)
	}
	if fake.lastKey != "bundles/step2.js" {
		t.Fatalf("unexpected object key %q", fake.lastKey)
	}
}

func TestS3LoaderMissingObject(t *testing.T) {
	l := NewS3Loader(&fakeS3{objects: map[string][]byte{}}, "wizard-assets", "")

	_, err := l.Load(context.Background(), "step9.js")
	if !errors.Is(err, prefetch.ErrResourceNotFound) {
		t.Fatalf("expected ErrResourceNotFound, got %v", err)
	}
}

func TestS3LoaderThrottlingIsTransport(t *testing.T) {
	fake := &fakeS3{err: &smithy.GenericAPIError{Code: "SlowDown", Message: "slow down"}}
	l := NewS3Loader(fake, "wizard-assets", "")

	_, err := l.Load(context.Background(), "step2.js")
	if !errors.Is(err, prefetch.ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
	if got := prefetch.ClassifyError(err); got != prefetch.ReasonNetwork {
		t.Fatalf("expected network classification, got %v", got)
	}
}

func TestS3LoaderContextErrorsPassThrough(t *testing.T) {
	fake := &fakeS3{err: context.DeadlineExceeded}
	l := NewS3Loader(fake, "wizard-assets", "")

	_, err := l.Load(context.Background(), "step2.js")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected DeadlineExceeded, got %v", err)
	}
	if got := prefetch.ClassifyError(err); got != prefetch.ReasonTimeout {
		t.Fatalf("expected timeout classification, got %v", got)
	}
}

func TestS3LoaderAccessDeniedIsResourceError(t *testing.T) {
	fake := &fakeS3{err: &smithy.GenericAPIError{Code: "AccessDenied", Message: "denied"}}
	l := NewS3Loader(fake, "wizard-assets", "")

	_, err := l.Load(context.Background(), "step2.js")
	if err == nil {
		t.Fatal("expected error")
	}
	if got := prefetch.ClassifyError(err); got != prefetch.ReasonResource {
		t.Fatalf("expected resource classification, got %v", got)
	}
}
