// Package config loads process configuration and constructs the AWS
// clients. Clients are built once at startup and injected; nothing in the
// module reads ambient AWS state after that.
package config

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/joho/godotenv"
)

// Config holds the process configuration.
type Config struct {
	// TableName is the shared entity table.
	TableName string

	// Region is the AWS region.
	Region string

	// Endpoint overrides the DynamoDB endpoint (DynamoDB Local).
	Endpoint string

	// AccessKeyID/SecretAccessKey override the default credential chain
	// when both are set.
	AccessKeyID     string
	SecretAccessKey string

	// MediaBucket holds bumper video and thumbnail objects.
	MediaBucket string

	// SenderEmail is the verified SES sender address.
	SenderEmail string

	// VerifyEmailBaseURL and ForgotPasswordBaseURL are embedded in
	// outbound mail.
	VerifyEmailBaseURL    string
	ForgotPasswordBaseURL string
}

// Load reads configuration from the environment, consulting a .env file
// when present.
func Load() (Config, error) {
	// Missing .env is fine; the Lambda environment sets variables directly.
	_ = godotenv.Load()

	cfg := Config{
		TableName:             os.Getenv("ADMIX_TABLE_NAME"),
		Region:                os.Getenv("ADMIX_AWS_REGION"),
		Endpoint:              os.Getenv("ADMIX_AWS_ENDPOINT"),
		AccessKeyID:           os.Getenv("ADMIX_AWS_ACCESS_KEY_ID"),
		SecretAccessKey:       os.Getenv("ADMIX_AWS_SECRET_ACCESS_KEY"),
		MediaBucket:           os.Getenv("ADMIX_MEDIA_BUCKET"),
		SenderEmail:           os.Getenv("ADMIX_SENDER_EMAIL"),
		VerifyEmailBaseURL:    os.Getenv("ADMIX_VERIFY_EMAIL_BASE_URL"),
		ForgotPasswordBaseURL: os.Getenv("ADMIX_FORGOT_PASSWORD_BASE_URL"),
	}
	if cfg.TableName == "" {
		cfg.TableName = "admix_entities"
	}
	if cfg.Region == "" {
		return Config{}, fmt.Errorf("ADMIX_AWS_REGION is required")
	}
	return cfg, nil
}

// NewAWSConfig builds the shared aws.Config.
func NewAWSConfig(ctx context.Context, cfg Config) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	return awsconfig.LoadDefaultConfig(ctx, opts...)
}

// NewDynamoClient builds the DynamoDB client, honoring the endpoint
// override.
func NewDynamoClient(awsCfg aws.Config, cfg Config) *dynamodb.Client {
	return dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
}

// NewS3Client builds the S3 client for bumper media.
func NewS3Client(awsCfg aws.Config) *s3.Client {
	return s3.NewFromConfig(awsCfg)
}

// NewSESClient builds the SESv2 client for outbound mail.
func NewSESClient(awsCfg aws.Config) *sesv2.Client {
	return sesv2.NewFromConfig(awsCfg)
}
