// Package blob removes bumper media objects from S3.
//
// Only deletion is exposed: uploads happen outside the core, but a bumper
// delete must clean up the already-uploaded video and thumbnail objects so
// no orphaned storage is left behind.
package blob

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Storage is the blob contract consumed by the bumper façade.
type Storage interface {
	Delete(ctx context.Context, key string) error
}

// S3Storage deletes objects from a single bucket.
type S3Storage struct {
	client *s3.Client
	bucket string
}

// NewS3 creates an S3-backed Storage.
func NewS3(client *s3.Client, bucket string) *S3Storage {
	return &S3Storage{
		client: client,
		bucket: bucket,
	}
}

// Delete removes one object. Deleting a missing key succeeds; S3 delete is
// idempotent.
func (s *S3Storage) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete object %q: %w", key, err)
	}
	return nil
}

// ObjectKeyFromURL extracts the object key from a stored media URL of the
// form https://<bucket-host>/<key>. Returns "" when the URL has no key
// segment.
func ObjectKeyFromURL(raw string) string {
	parts := strings.SplitN(raw, "/", 4)
	if len(parts) < 4 {
		return ""
	}
	return parts[3]
}
