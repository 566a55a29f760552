// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package session // import "github.com/drdotnet/agent/session"

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	sha256 "github.com/minio/sha256-simd"
	log "github.com/sirupsen/logrus"
)

// ObjectPutter is the subset of the S3 client used for uploads.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput,
		optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Uploader copies finished session directories to a bucket.
type S3Uploader struct {
	client ObjectPutter
	bucket string
	prefix string
}

// NewS3Uploader creates an uploader using the default AWS configuration
// chain. endpoint may be empty to use the regular AWS endpoints.
func NewS3Uploader(ctx context.Context, bucket, prefix, endpoint string) (*S3Uploader, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})
	return NewS3UploaderWithClient(client, bucket, prefix), nil
}

// NewS3UploaderWithClient creates an uploader around an existing client.
func NewS3UploaderWithClient(client ObjectPutter, bucket, prefix string) *S3Uploader {
	return &S3Uploader{client: client, bucket: bucket, prefix: prefix}
}

// Upload puts every file of the finished session under
// <prefix>/<session uuid>/ in the bucket.
func (u *S3Uploader) Upload(ctx context.Context, s *Session) error {
	s.mu.Lock()
	finished := s.finished
	files := append([]string{infoFileName, manifestFileName}, s.files...)
	s.mu.Unlock()
	if !finished {
		return fmt.Errorf("session %s is not finished", s.info.ID)
	}

	for _, name := range files {
		key := path.Join(u.prefix, s.info.ID.String(), name)
		if err := u.uploadFile(ctx, filepath.Join(s.dir, name), key); err != nil {
			return err
		}
		log.Debugf("Uploaded %s to s3://%s/%s", name, u.bucket, key)
	}
	return nil
}

func (u *S3Uploader) uploadFile(ctx context.Context, localPath, key string) error {
	file, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open local file: %w", err)
	}
	defer file.Close()

	hasher := sha256.New()
	if _, err = io.Copy(hasher, file); err != nil {
		return fmt.Errorf("failed to hash content of %q: %v", localPath, err)
	}
	contentSHA256 := base64.StdEncoding.EncodeToString(hasher.Sum(nil))

	if _, err = file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to set position in file %q: %v", localPath, err)
	}

	contentType := "application/octet-stream"
	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:         &u.bucket,
		Key:            &key,
		Body:           file,
		ContentType:    &contentType,
		ChecksumSHA256: &contentSHA256,
	})
	if err != nil {
		return fmt.Errorf("failed to upload %q: %w", key, err)
	}
	return nil
}
