package providers

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/smithy-go"

	"github.com/pratik-mahalle/ec2-automations/internal/config"
)

// AWSClients bundles the collaborator handles handed to every handler
type AWSClients struct {
	Compute   *EC2Compute
	Store     *S3Store
	Publisher *SNSPublisher
}

// LoadAWSConfig builds an SDK config. Static credentials are used when both
// key parts are present; otherwise the default chain (the Lambda execution
// role in production) applies.
func LoadAWSConfig(ctx context.Context, creds config.AWSConfig) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(nonEmpty(creds.Region, "us-east-1")),
	}
	if creds.AccessKeyID != "" && creds.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(creds.AccessKeyID, creds.SecretAccessKey, creds.SessionToken),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, err
	}

	if creds.EndpointURL != "" {
		cfg.BaseEndpoint = aws.String(creds.EndpointURL)
	}

	return cfg, nil
}

// NewAWSClients creates one client per service from cfg
func NewAWSClients(cfg aws.Config) *AWSClients {
	// Local emulators serve buckets by path, not virtual host.
	pathStyle := cfg.BaseEndpoint != nil

	return &AWSClients{
		Compute: NewEC2Compute(ec2.NewFromConfig(cfg)),
		Store: NewS3Store(s3.NewFromConfig(cfg, func(o *s3.Options) {
			o.UsePathStyle = pathStyle
		})),
		Publisher: NewSNSPublisher(sns.NewFromConfig(cfg)),
	}
}

// apiErrorCode returns the service error code carried by err, if any
func apiErrorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}

// apiErrorMessage returns a short description of err for per-target reports
func apiErrorMessage(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		if msg := apiErr.ErrorMessage(); msg != "" {
			return apiErr.ErrorCode() + ": " + msg
		}
		return apiErr.ErrorCode()
	}
	return err.Error()
}

func nonEmpty(v string, def string) string {
	if v == "" {
		return def
	}
	return v
}
