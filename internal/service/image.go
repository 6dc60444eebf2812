package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/mealgram/backend/config"
)

// ImageService decodes base64-inlined image payloads and stores them as
// files, on local disk by default or in S3 when a bucket is configured.
type ImageService struct {
	mediaDir string
	bucket   string
	s3Client *s3.Client
	logger   *logrus.Logger
}

// NewImageService creates a new ImageService instance. The S3 client is
// only initialized when cfg.S3Bucket is set.
func NewImageService(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*ImageService, error) {
	svc := &ImageService{
		mediaDir: cfg.MediaDir,
		bucket:   cfg.S3Bucket,
		logger:   logger,
	}

	if err := os.MkdirAll(cfg.MediaDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create media dir: %w", err)
	}

	if cfg.S3Bucket != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(os.Getenv("AWS_REGION")),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		svc.s3Client = s3.NewFromConfig(awsCfg)
	}

	return svc, nil
}

// DecodeBase64 decodes a base64 payload (with or without a data URI
// prefix) and verifies it is a supported image type.
func (s *ImageService) DecodeBase64(payload string) ([]byte, string, error) {
	if payload == "" {
		return nil, "", validationErr("image", "image is required")
	}

	// Strip "data:image/png;base64," style prefixes.
	if idx := strings.Index(payload, ";base64,"); idx >= 0 {
		payload = payload[idx+len(";base64,"):]
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", validationErr("image", "image is not valid base64")
	}

	contentType := http.DetectContentType(data)
	if _, ok := imageExtensions[contentType]; !ok {
		return nil, "", validationErr("image", "unsupported image type %s", contentType)
	}
	return data, contentType, nil
}

// SaveBase64 decodes a base64 payload and stores it under prefix. It
// returns the relative storage path.
func (s *ImageService) SaveBase64(ctx context.Context, prefix, payload string) (string, error) {
	data, contentType, err := s.DecodeBase64(payload)
	if err != nil {
		return "", err
	}
	ext := imageExtensions[contentType]

	name := filepath.Join(prefix, uuid.New().String()+ext)

	if s.s3Client != nil {
		if err := s.uploadToS3(ctx, name, data, contentType); err != nil {
			return "", err
		}
		return name, nil
	}

	fullPath := filepath.Join(s.mediaDir, name)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return "", fmt.Errorf("failed to create image dir: %w", err)
	}
	if err := os.WriteFile(fullPath, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write image: %w", err)
	}

	return name, nil
}

// Delete removes a stored image. Missing files are not an error; the
// reference is already gone.
func (s *ImageService) Delete(ctx context.Context, path string) error {
	if path == "" {
		return nil
	}

	if s.s3Client != nil {
		_, err := s.s3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(path),
		})
		return err
	}

	err := os.Remove(filepath.Join(s.mediaDir, path))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *ImageService) uploadToS3(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to upload to S3: %w", err)
	}
	s.logger.WithField("key", key).Debug("uploaded image to S3")
	return nil
}

var imageExtensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}
