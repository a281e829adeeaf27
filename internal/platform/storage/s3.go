// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package storage pushes staged image files to an S3-compatible object store.

Handlers stage multipart uploads on local disk first; [S3Uploader.Upload]
then moves the bytes to the bucket and always removes the staged copy,
whether the upload succeeded or not.
*/
package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/taibuivan/videotube/pkg/uuid"
)

var (
	// ErrNoFile is returned when Upload is called without a staged file.
	ErrNoFile = errors.New("storage: no file to upload")
	// ErrDisabled is returned by the uploader used when no bucket is configured.
	ErrDisabled = errors.New("storage: object storage is not configured")
)

// UploadResult describes a stored object.
type UploadResult struct {
	Key       string
	SecureURL string
}

// ObjectPutter is the subset of [*s3.Client] used by [S3Uploader].
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Settings configures the S3 client.
type Settings struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	PublicBaseURL   string
}

// NewS3Client builds an S3 client from static credentials and an optional
// custom endpoint (MinIO, R2).
func NewS3Client(ctx context.Context, settings Settings) (*s3.Client, error) {
	options := []func(*config.LoadOptions) error{
		config.WithRegion(settings.Region),
	}
	if settings.AccessKeyID != "" {
		options = append(options, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(settings.AccessKeyID, settings.SecretAccessKey, ""),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, options...)
	if err != nil {
		return nil, fmt.Errorf("storage: failed to load aws config: %w", err)
	}

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if settings.Endpoint != "" {
			o.BaseEndpoint = aws.String(settings.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// S3Uploader stores images under "images/<uuid><ext>" in one bucket.
type S3Uploader struct {
	client        ObjectPutter
	bucket        string
	publicBaseURL string
	logger        *slog.Logger
}

// NewS3Uploader creates an uploader. publicBaseURL is the externally reachable
// prefix of the bucket; when empty the virtual-hosted AWS URL is used.
func NewS3Uploader(client ObjectPutter, settings Settings, logger *slog.Logger) *S3Uploader {
	base := strings.TrimRight(settings.PublicBaseURL, "/")
	if base == "" {
		base = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", settings.Bucket, settings.Region)
	}
	return &S3Uploader{
		client:        client,
		bucket:        settings.Bucket,
		publicBaseURL: base,
		logger:        logger,
	}
}

// Upload stores the file at localPath and returns its public URL.
// The staged file is removed in every case.
func (uploader *S3Uploader) Upload(ctx context.Context, localPath string) (*UploadResult, error) {
	if localPath == "" {
		return nil, ErrNoFile
	}
	defer removeStaged(uploader.logger, localPath)

	file, err := os.Open(localPath)
	if err != nil {
		return nil, fmt.Errorf("storage_open_failed: %w", err)
	}
	defer file.Close()

	contentType, err := sniffContentType(file, localPath)
	if err != nil {
		return nil, err
	}

	key := "images/" + uuid.New() + strings.ToLower(filepath.Ext(localPath))
	_, err = uploader.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(uploader.bucket),
		Key:         aws.String(key),
		Body:        file,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return nil, fmt.Errorf("storage_put_object_failed: %w", err)
	}

	uploader.logger.DebugContext(ctx, "image_uploaded", slog.String("key", key))
	return &UploadResult{Key: key, SecureURL: uploader.publicBaseURL + "/" + key}, nil
}

// sniffContentType inspects the first bytes of file, falling back to the
// extension when the content is not recognized. The read offset is reset.
func sniffContentType(file *os.File, path string) (string, error) {
	head := make([]byte, 512)
	n, err := file.Read(head)
	if err != nil && n == 0 {
		return "", fmt.Errorf("storage_read_failed: %w", err)
	}
	if _, err := file.Seek(0, 0); err != nil {
		return "", fmt.Errorf("storage_seek_failed: %w", err)
	}

	contentType := http.DetectContentType(head[:n])
	if contentType == "application/octet-stream" {
		if byExt := mime.TypeByExtension(filepath.Ext(path)); byExt != "" {
			contentType = byExt
		}
	}
	return contentType, nil
}

// # Disabled Storage

// DisabledUploader rejects every upload. It is wired when no bucket is set so
// the API still starts for local development of the non-upload endpoints.
type DisabledUploader struct {
	logger *slog.Logger
}

// NewDisabledUploader returns a [DisabledUploader].
func NewDisabledUploader(logger *slog.Logger) *DisabledUploader {
	return &DisabledUploader{logger: logger}
}

// Upload removes the staged file and returns [ErrDisabled].
func (uploader *DisabledUploader) Upload(_ context.Context, localPath string) (*UploadResult, error) {
	if localPath == "" {
		return nil, ErrNoFile
	}
	removeStaged(uploader.logger, localPath)
	return nil, ErrDisabled
}

func removeStaged(logger *slog.Logger, path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("staged_file_remove_failed", slog.String("path", path), slog.Any("error", err))
	}
}
