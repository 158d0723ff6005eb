// Package storage provides the generic object-store upload collaborator
// used by drivers whose platform has no artifact endpoint of its own.
package storage

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"

	"github.com/sgaunet/ci-bridge/pkg/driver"
)

// S3Uploader publishes artifacts to one S3 bucket. Credentials and
// region come from the standard AWS environment/shared config chain.
type S3Uploader struct {
	uploader *s3manager.Uploader
	bucket   string
	prefix   string
}

var _ driver.Uploader = (*S3Uploader)(nil)

// NewS3Uploader creates an uploader targeting bucket, with keys nested
// under prefix.
func NewS3Uploader(bucket, prefix string) (*S3Uploader, error) {
	sess, err := session.NewSessionWithOptions(session.Options{
		SharedConfigState: session.SharedConfigEnable,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return &S3Uploader{
		uploader: s3manager.NewUploader(sess),
		bucket:   bucket,
		prefix:   prefix,
	}, nil
}

// objectKey nests name under the configured prefix.
func (u *S3Uploader) objectKey(name string) string {
	return path.Join(u.prefix, name)
}

// contentType guesses a MIME type from the file extension.
func contentType(name string) string {
	if t := mime.TypeByExtension(filepath.Ext(name)); t != "" {
		return t
	}
	return "application/octet-stream"
}

// Upload streams r into the bucket and returns the resulting location.
// Ownership of the object passes to the caller.
func (u *S3Uploader) Upload(ctx context.Context, name string, r io.Reader, size int64) (*driver.UploadResult, error) {
	contentType := contentType(name)

	out, err := u.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(u.objectKey(name)),
		Body:        r,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload to s3://%s: %w", u.bucket, err)
	}

	return &driver.UploadResult{URI: out.Location, Mime: contentType, Size: size}, nil
}
