// File: services/archive.go
package services

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsCfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"go-meet-control/config"
	"go-meet-control/logger"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ResultsArchive stores final standings once a competition finishes.
type ResultsArchive interface {
	Store(ctx context.Context, key string, body []byte) error
}

// s3PutAPI is the slice of the S3 client the archive uses.
type s3PutAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type s3Archive struct {
	client     s3PutAPI
	bucketName string
}

// NewS3Archive builds an archive on any S3-compatible endpoint. An empty
// endpoint uses AWS itself.
func NewS3Archive(ctx context.Context, cfg config.ArchiveConfig) (ResultsArchive, error) {
	opts := []func(*awsCfg.LoadOptions) error{awsCfg.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsCfg.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}
	awsSDKConfig, err := awsCfg.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		logger.Error.Printf("[NewS3Archive] Failed to load AWS SDK config: %v", err)
		return nil, err
	}
	client := s3.NewFromConfig(awsSDKConfig, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	logger.Info.Printf("[NewS3Archive] Archive ready endpoint=%q bucket=%s", cfg.Endpoint, cfg.BucketName)
	return &s3Archive{client: client, bucketName: cfg.BucketName}, nil
}

func (a *s3Archive) Store(ctx context.Context, key string, body []byte) error {
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(xlsxContentType),
	})
	if err != nil {
		logger.Error.Printf("[Store] Failed to put object '%s' in bucket '%s': %v", key, a.bucketName, err)
		return err
	}
	logger.Info.Printf("[Store] Archived '%s' in bucket '%s' (%d bytes)", key, a.bucketName, len(body))
	return nil
}

// standingsKey names the archived workbook of a competition.
func standingsKey(competitionID string, finishedAt time.Time) string {
	return fmt.Sprintf("standings/%s/%s.xlsx", competitionID, finishedAt.UTC().Format("20060102T150405Z"))
}
