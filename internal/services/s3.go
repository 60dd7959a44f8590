package services

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"

	"bizdesk/internal/config"
	"bizdesk/internal/models"
	"bizdesk/internal/utils/logger"
)

// FileStore is the blob storage used for invoice PDFs and company logos.
type FileStore interface {
	// UploadFile stores data under a fresh key below prefix and returns the key.
	UploadFile(ctx context.Context, data []byte, prefix, filename, contentType string) (string, error)
	// PresignUpload returns a URL the client can PUT the object to.
	PresignUpload(ctx context.Context, key, contentType string, ttl time.Duration) (string, error)
	GetSignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// Ensure S3Service implements FileURLGenerator
var (
	_ models.FileURLGenerator = (*S3Service)(nil)
	_ FileStore               = (*S3Service)(nil)
)

type S3Service struct {
	client     *s3.Client
	presign    *s3.PresignClient
	bucketName string
	provider   string
	logger     *logger.Logger
}

func NewS3Service(ctx context.Context, cfg config.StorageConfig) (*S3Service, error) {
	log := logger.New("s3_service")
	s3cfg := cfg.S3

	// Validate required credentials
	if s3cfg.AccessKey == "" || s3cfg.SecretKey == "" {
		return nil, log.Error("S3 credentials are empty ❌", fmt.Errorf("accessKey or secretKey is empty"))
	}

	region := s3cfg.Region
	if region == "" {
		region = "auto"
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s3cfg.AccessKey,
			s3cfg.SecretKey,
			"", // Session token (not needed for basic auth)
		)),
		awsconfig.WithRetryMode(aws.RetryModeStandard),
		awsconfig.WithRetryMaxAttempts(3),
	)
	if err != nil {
		return nil, log.Error("Unable to load SDK config ❌", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if s3cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(s3cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	// Verify credentials by making a test API call
	_, err = client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s3cfg.BucketName),
	})
	if err != nil {
		return nil, log.Error("Failed to verify S3 bucket %s ❌", err, s3cfg.BucketName)
	}

	log.Success("S3 service initialized successfully ✅")

	return &S3Service{
		client:     client,
		presign:    s3.NewPresignClient(client),
		bucketName: s3cfg.BucketName,
		provider:   cfg.Provider,
		logger:     log,
	}, nil
}

// UploadFile stores a private object and returns its key.
func (s *S3Service) UploadFile(ctx context.Context, data []byte, prefix, filename, contentType string) (string, error) {
	key := path.Join(prefix, uuid.New().String()+filepath.Ext(filename))
	s.logger.Info("📤 Uploading %s as %s", filename, key)

	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	}
	// R2 rejects canned ACLs other than its defaults.
	if s.provider != "r2" {
		input.ACL = types.ObjectCannedACLPrivate
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", s.logger.Error("Failed to upload file to storage ❌", err)
	}

	s.logger.Success("✅ File uploaded: %s", key)
	return key, nil
}

// PresignUpload returns a presigned PUT URL for key.
func (s *S3Service) PresignUpload(ctx context.Context, key, contentType string, ttl time.Duration) (string, error) {
	req, err := s.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucketName),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", s.logger.Error("Failed to presign upload for %s ❌", err, key)
	}
	return req.URL, nil
}

// GetSignedURL implements FileURLGenerator interface
func (s *S3Service) GetSignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", s.logger.Error("Failed to generate pre-signed URL ❌", err)
	}
	return req.URL, nil
}
