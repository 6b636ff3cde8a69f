package providers

import (
	"bytes"
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/pratik-mahalle/ec2-automations/internal/domain/storage"
)

// S3API is the subset of the S3 client used by S3Store
type S3API interface {
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Store implements storage.Store on S3
type S3Store struct {
	client S3API
}

// NewS3Store creates a new S3 backed store
func NewS3Store(client S3API) *S3Store {
	return &S3Store{client: client}
}

// List returns every object under prefix, following continuation tokens
func (s *S3Store) List(ctx context.Context, bucket, prefix string) ([]storage.Object, error) {
	input := &s3.ListObjectsV2Input{Bucket: aws.String(bucket)}
	if prefix != "" {
		input.Prefix = aws.String(prefix)
	}

	var out []storage.Object
	p := s3.NewListObjectsV2Paginator(s.client, input)
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, obj := range page.Contents {
			o := storage.Object{
				Key:  aws.ToString(obj.Key),
				Size: aws.ToInt64(obj.Size),
			}
			if obj.LastModified != nil {
				o.LastModified = *obj.LastModified
			}
			out = append(out, o)
		}
	}
	return out, nil
}

// Put writes body to bucket/key
func (s *S3Store) Put(ctx context.Context, bucket, key string, body []byte, contentType string) error {
	input := &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(body),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	_, err := s.client.PutObject(ctx, input)
	return err
}

// Delete removes bucket/key. A key that is already gone is not an error.
func (s *S3Store) Delete(ctx context.Context, bucket, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return nil
	}

	var noSuchKey *s3types.NoSuchKey
	if errors.As(err, &noSuchKey) || apiErrorCode(err) == "NoSuchKey" || apiErrorCode(err) == "NotFound" {
		return nil
	}
	return err
}
