package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/smithy-go"
)

// S3API abstracts the S3 operations the image store needs for testing
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// ImageStore fetches product images from the source bucket and uploads
// finished bundles. The bundle client may differ from the source client
// when the bundle bucket lives in another account.
type ImageStore struct {
	sourceClient S3API
	bundleClient S3API
	sourceBucket string
	bundleBucket string
}

// NewImageStore creates an ImageStore with explicit clients (for testing).
func NewImageStore(sourceClient, bundleClient S3API, sourceBucket, bundleBucket string) *ImageStore {
	return &ImageStore{
		sourceClient: sourceClient,
		bundleClient: bundleClient,
		sourceBucket: sourceBucket,
		bundleBucket: bundleBucket,
	}
}

// NewImageStoreFromConfig builds an ImageStore from application config.
// When BundleRoleARN is set, uploads go through a client that assumes
// that role in the bundle bucket's account.
func NewImageStoreFromConfig(cfg aws.Config, appConfig *Config) *ImageStore {
	sourceClient := s3.NewFromConfig(cfg)

	bundleClient := S3API(sourceClient)
	if appConfig.BundleRoleARN != "" {
		creds := stscreds.NewAssumeRoleProvider(sts.NewFromConfig(cfg), appConfig.BundleRoleARN)
		bundleCfg := cfg.Copy()
		bundleCfg.Credentials = aws.NewCredentialsCache(creds)
		bundleClient = s3.NewFromConfig(bundleCfg)
	}

	return NewImageStore(sourceClient, bundleClient, appConfig.SourceBucket, appConfig.BundleBucket)
}

// ImageKey returns the source bucket key for image n of an item.
// Upstream crawlers write images as {item_code}_{n}.jpeg, numbered from 1.
func ImageKey(itemCode string, n int) string {
	return fmt.Sprintf("%s_%d.jpeg", itemCode, n)
}

// BundleKey returns the bundle bucket key for an item's zip.
func BundleKey(itemCode string) string {
	return itemCode + ".zip"
}

// FetchImage downloads one product image from the source bucket.
// Missing keys report found=false rather than an error; gaps in the
// numbering are normal when upstream skipped an image.
func (s *ImageStore) FetchImage(ctx context.Context, itemCode string, n int) ([]byte, bool, error) {
	key := ImageKey(itemCode, n)

	result, err := s.sourceClient.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.sourceBucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNoSuchKey(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get image %s: %w", key, err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read image %s: %w", key, err)
	}

	return data, true, nil
}

// PutBundle uploads a finished zip for the item and returns the object key.
// The key is stable per item, so re-running a bundle overwrites the
// previous artifact.
func (s *ImageStore) PutBundle(ctx context.Context, itemCode string, data []byte) (string, error) {
	key := BundleKey(itemCode)

	_, err := s.bundleClient.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bundleBucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/zip"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload bundle %s: %w", key, err)
	}

	return key, nil
}

func isNoSuchKey(err error) bool {
	var notFound *s3types.NoSuchKey
	if errors.As(err, &notFound) {
		return true
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorCode() == "NoSuchKey" {
		return true
	}

	// Some wrapped transport errors only carry the code in the message
	return strings.Contains(err.Error(), "NoSuchKey")
}
