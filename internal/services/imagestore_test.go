package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

type mockS3Client struct {
	getObjectFunc func(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	putObjectFunc func(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

func (m *mockS3Client) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if m.getObjectFunc != nil {
		return m.getObjectFunc(ctx, params, optFns...)
	}
	return nil, errors.New("getObjectFunc not set")
}

func (m *mockS3Client) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if m.putObjectFunc != nil {
		return m.putObjectFunc(ctx, params, optFns...)
	}
	return nil, errors.New("putObjectFunc not set")
}

func TestImageKey(t *testing.T) {
	tests := []struct {
		itemCode string
		n        int
		want     string
	}{
		{"ABC123", 1, "ABC123_1.jpeg"},
		{"ABC123", 10, "ABC123_10.jpeg"},
		{"item-x", 3, "item-x_3.jpeg"},
	}

	for _, tt := range tests {
		if got := ImageKey(tt.itemCode, tt.n); got != tt.want {
			t.Errorf("ImageKey(%q, %d) = %q, want %q", tt.itemCode, tt.n, got, tt.want)
		}
	}
}

func TestBundleKey(t *testing.T) {
	if got := BundleKey("ABC123"); got != "ABC123.zip" {
		t.Errorf("BundleKey() = %q, want ABC123.zip", got)
	}
}

func TestFetchImage_Success(t *testing.T) {
	client := &mockS3Client{
		getObjectFunc: func(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
			if *params.Bucket != "source-bucket" {
				t.Errorf("bucket = %q, want source-bucket", *params.Bucket)
			}
			if *params.Key != "ABC123_2.jpeg" {
				t.Errorf("key = %q, want ABC123_2.jpeg", *params.Key)
			}
			return &s3.GetObjectOutput{
				Body: io.NopCloser(bytes.NewReader([]byte("image bytes"))),
			}, nil
		},
	}

	store := NewImageStore(client, client, "source-bucket", "bundle-bucket")

	data, found, err := store.FetchImage(context.Background(), "ABC123", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !found {
		t.Fatal("expected found=true")
	}
	if string(data) != "image bytes" {
		t.Errorf("data = %q, want %q", data, "image bytes")
	}
}

func TestFetchImage_NoSuchKey(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{
			name: "typed NoSuchKey",
			err:  &s3types.NoSuchKey{},
		},
		{
			name: "message-only NoSuchKey",
			err:  errors.New("NoSuchKey: The specified key does not exist"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &mockS3Client{
				getObjectFunc: func(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
					return nil, tt.err
				},
			}

			store := NewImageStore(client, client, "source-bucket", "bundle-bucket")

			data, found, err := store.FetchImage(context.Background(), "ABC123", 1)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if found {
				t.Error("expected found=false for missing key")
			}
			if data != nil {
				t.Error("expected nil data for missing key")
			}
		})
	}
}

func TestFetchImage_OtherError(t *testing.T) {
	client := &mockS3Client{
		getObjectFunc: func(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
			return nil, errors.New("AccessDenied: not allowed")
		},
	}

	store := NewImageStore(client, client, "source-bucket", "bundle-bucket")

	_, _, err := store.FetchImage(context.Background(), "ABC123", 1)
	if err == nil {
		t.Fatal("expected error for access denied")
	}
	if !strings.Contains(err.Error(), "failed to get image ABC123_1.jpeg") {
		t.Errorf("expected wrapped key in error, got: %v", err)
	}
}

func TestPutBundle(t *testing.T) {
	var uploaded []byte
	client := &mockS3Client{
		putObjectFunc: func(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
			if *params.Bucket != "bundle-bucket" {
				t.Errorf("bucket = %q, want bundle-bucket", *params.Bucket)
			}
			if *params.Key != "ABC123.zip" {
				t.Errorf("key = %q, want ABC123.zip", *params.Key)
			}
			if *params.ContentType != "application/zip" {
				t.Errorf("content type = %q, want application/zip", *params.ContentType)
			}
			uploaded, _ = io.ReadAll(params.Body)
			return &s3.PutObjectOutput{}, nil
		},
	}

	store := NewImageStore(client, client, "source-bucket", "bundle-bucket")

	key, err := store.PutBundle(context.Background(), "ABC123", []byte("zip contents"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key != "ABC123.zip" {
		t.Errorf("key = %q, want ABC123.zip", key)
	}
	if string(uploaded) != "zip contents" {
		t.Errorf("uploaded = %q, want %q", uploaded, "zip contents")
	}
}

func TestPutBundle_Error(t *testing.T) {
	client := &mockS3Client{
		putObjectFunc: func(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
			return nil, errors.New("AccessDenied")
		},
	}

	store := NewImageStore(client, client, "source-bucket", "bundle-bucket")

	_, err := store.PutBundle(context.Background(), "ABC123", []byte("zip"))
	if err == nil {
		t.Fatal("expected error for upload failure")
	}
	if !strings.Contains(err.Error(), "failed to upload bundle ABC123.zip") {
		t.Errorf("expected wrapped key in error, got: %v", err)
	}
}

func TestPutBundle_UsesBundleClient(t *testing.T) {
	sourceClient := &mockS3Client{
		putObjectFunc: func(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
			t.Error("upload went through the source client")
			return nil, errors.New("wrong client")
		},
	}
	bundleClient := &mockS3Client{
		putObjectFunc: func(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
			return &s3.PutObjectOutput{}, nil
		},
	}

	store := NewImageStore(sourceClient, bundleClient, "source-bucket", "bundle-bucket")

	if _, err := store.PutBundle(context.Background(), "ABC123", []byte("zip")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
