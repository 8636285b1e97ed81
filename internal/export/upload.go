package export

import (
	"bytes"
	"context"
	"fmt"
	"path"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"go.uber.org/zap"

	"github.com/homefront-realty/admin-backoffice/pkg/logger"
)

// UploadConfig configures the artifact bucket.
type UploadConfig struct {
	Region   string
	Bucket   string
	Prefix   string
	Endpoint string
}

// Uploader stores export artifacts in an S3-compatible bucket.
type Uploader struct {
	bucket   string
	prefix   string
	uploader *s3manager.Uploader
	logger   *logger.Logger
}

// NewUploader creates an uploader from the default AWS credential chain.
func NewUploader(cfg UploadConfig, log *logger.Logger) (*Uploader, error) {
	awsCfg := &aws.Config{Region: aws.String(cfg.Region)}
	if cfg.Endpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.Endpoint)
		awsCfg.S3ForcePathStyle = aws.Bool(true)
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	log.Info("export uploads enabled",
		zap.String("bucket", cfg.Bucket),
		zap.String("region", cfg.Region),
	)

	return &Uploader{
		bucket:   cfg.Bucket,
		prefix:   cfg.Prefix,
		uploader: s3manager.NewUploader(sess),
		logger:   log,
	}, nil
}

// Upload stores data under the uploader prefix and returns the object key.
func (u *Uploader) Upload(ctx context.Context, filename string, f Format, data []byte) (string, error) {
	key := path.Join(u.prefix, filename)

	result, err := u.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(f.ContentType()),
	})
	if err != nil {
		u.logger.Error("export upload failed",
			zap.String("bucket", u.bucket),
			zap.String("key", key),
			zap.Error(err),
		)
		return "", fmt.Errorf("failed to upload export: %w", err)
	}

	u.logger.Info("export uploaded",
		zap.String("location", result.Location),
		zap.Int("bytes", len(data)),
	)
	return key, nil
}
