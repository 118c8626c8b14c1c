package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"realtime-editor/internal/config"
)

// MaxBlobSize 이미지 1개당 첨부 상한 (초과 시 URL만 전송)
const MaxBlobSize = 8 << 20

// ErrBlobTooLarge 객체가 MaxBlobSize를 넘음
var ErrBlobTooLarge = errors.New("blob too large")

// BlobFetcher S3 키로 객체 바이트를 가져온다
type BlobFetcher interface {
	Fetch(ctx context.Context, key string) ([]byte, error)
}

// S3Service S3 이미지 객체 조회
type S3Service struct {
	client *s3.Client
	bucket string
}

// NewS3Service 생성자
// 자격 증명이 비어 있으면 기본 체인(환경 변수, IAM role)을 사용한다.
func NewS3Service(ctx context.Context, cfg *config.S3Config) (*S3Service, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	log.Printf("[S3] Image embedding enabled (bucket=%s, region=%s)", cfg.BucketName, cfg.Region)
	return &S3Service{
		client: s3.NewFromConfig(awsCfg),
		bucket: cfg.BucketName,
	}, nil
}

// Fetch 객체 전체를 메모리로 읽는다
func (s *S3Service) Fetch(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("s3 get %s: %w", key, err)
	}
	defer out.Body.Close()

	if out.ContentLength != nil && *out.ContentLength > MaxBlobSize {
		return nil, ErrBlobTooLarge
	}
	data, err := io.ReadAll(io.LimitReader(out.Body, MaxBlobSize+1))
	if err != nil {
		return nil, fmt.Errorf("s3 read %s: %w", key, err)
	}
	if len(data) > MaxBlobSize {
		return nil, ErrBlobTooLarge
	}
	return data, nil
}
