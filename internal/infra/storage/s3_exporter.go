// Package storage provides object storage backends for plan exports.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/planforge/api/internal/config"
	"github.com/planforge/api/pkg/logger"
)

// S3Exporter uploads exported plan documents to S3 and returns presigned
// download links. It implements app.PlanExporter.
type S3Exporter struct {
	client     *s3.Client
	presign    *s3.PresignClient
	bucket     string
	prefix     string
	presignTTL time.Duration
	logger     *logger.Logger
}

// NewS3Exporter creates an exporter from the export configuration. When
// RoleARN is set the bucket is accessed through an assumed role.
func NewS3Exporter(ctx context.Context, cfg config.ExportConfig, log *logger.Logger) (*S3Exporter, error) {
	if !cfg.IsConfigured() {
		return nil, fmt.Errorf("export storage is not configured")
	}

	awsOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}

	if cfg.RoleARN != "" {
		baseCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		stsClient := sts.NewFromConfig(baseCfg)
		creds := stscreds.NewAssumeRoleProvider(stsClient, cfg.RoleARN)
		awsOpts = append(awsOpts, awsconfig.WithCredentialsProvider(creds))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	s3Opts := []func(*s3.Options){}
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true // Required for MinIO
		})
	}

	client := s3.NewFromConfig(awsCfg, s3Opts...)

	return &S3Exporter{
		client:     client,
		presign:    s3.NewPresignClient(client),
		bucket:     cfg.Bucket,
		prefix:     cfg.Prefix,
		presignTTL: cfg.PresignTTL,
		logger:     log.With("component", "s3_exporter"),
	}, nil
}

// Export uploads the document and returns a presigned download URL.
func (e *S3Exporter) Export(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	objectKey := e.objectKey(key)

	_, err := e.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(e.bucket),
		Key:         aws.String(objectKey),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload export: %w", err)
	}

	req, err := e.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(e.bucket),
		Key:    aws.String(objectKey),
	}, s3.WithPresignExpires(e.presignTTL))
	if err != nil {
		return "", fmt.Errorf("failed to presign export: %w", err)
	}

	e.logger.Info("plan export uploaded",
		"key", objectKey,
		"bytes", len(data),
	)
	return req.URL, nil
}

func (e *S3Exporter) objectKey(key string) string {
	prefix := e.prefix
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return prefix + strings.TrimPrefix(key, "/")
}
