package di

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/phdb/image-bundler/internal/services"
)

func ProvideAWSConfig(ctx context.Context) (aws.Config, error) {
	return config.LoadDefaultConfig(ctx)
}

func ProvideDynamoDB(config aws.Config) *dynamodb.Client {
	return dynamodb.NewFromConfig(config)
}

func ProvideS3Client(config aws.Config) *s3.Client {
	return s3.NewFromConfig(config)
}

// ProvideImageStore builds the image store. When the config names a bundle
// role ARN, uploads assume that role (cross-account bundle bucket).
func ProvideImageStore(config aws.Config, appConfig *services.Config) *services.ImageStore {
	return services.NewImageStoreFromConfig(config, appConfig)
}
