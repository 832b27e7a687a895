package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// ErrNotFound is returned when a report key does not exist.
var ErrNotFound = errors.New("report not found")

type Options struct {
	ServiceURL string
	AccessKey  string
	SecretKey  string
	Bucket     string
	Region     string
}

type Service struct {
	client     *s3.Client
	bucketName string
}

func NewService(ctx context.Context, opts Options) (*Service, error) {
	if opts.Bucket == "" {
		opts.Bucket = "lighthouse-reports"
	}
	if opts.Region == "" {
		opts.Region = "us-east-1"
	}

	loadOpts := []func(*config.LoadOptions) error{
		config.WithRegion(opts.Region),
	}
	if opts.AccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(aws.CredentialsProviderFunc(func(ctx context.Context) (aws.Credentials, error) {
			return aws.Credentials{
				AccessKeyID:     opts.AccessKey,
				SecretAccessKey: opts.SecretKey,
			}, nil
		})))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.ServiceURL != "" {
			o.BaseEndpoint = aws.String(opts.ServiceURL)
		}
		o.UsePathStyle = true
	})

	return &Service{
		client:     client,
		bucketName: opts.Bucket,
	}, nil
}

// EnsureBucket creates the bucket if it does not exist yet.
func (s *Service) EnsureBucket(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucketName)})
	if err == nil {
		return nil
	}

	_, err = s.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(s.bucketName)})
	var owned *types.BucketAlreadyOwnedByYou
	if err != nil && !errors.As(err, &owned) {
		return fmt.Errorf("failed to create bucket %s: %w", s.bucketName, err)
	}
	return nil
}

func reportKey(id string) string {
	return fmt.Sprintf("reports/%s.json", id)
}

// PutReport uploads a raw audit report.
func (s *Service) PutReport(ctx context.Context, id string, report []byte) error {
	return s.UploadStream(ctx, reportKey(id), bytes.NewReader(report), "application/json")
}

// GetReport opens a stored report. The caller closes the stream.
func (s *Service) GetReport(ctx context.Context, id string) (io.ReadCloser, *time.Time, *string, error) {
	stream, _, lastModified, etag, err := s.GetFile(ctx, reportKey(id))
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, nil, nil, ErrNotFound
		}
		return nil, nil, nil, err
	}
	return stream, lastModified, etag, nil
}

func (s *Service) DeleteReport(ctx context.Context, id string) error {
	return s.DeleteFile(ctx, reportKey(id))
}

func (s *Service) UploadStream(ctx context.Context, key string, stream io.Reader, contentType string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucketName),
		Key:         aws.String(key),
		Body:        stream,
		ContentType: aws.String(contentType),
	})
	return err
}

func (s *Service) DeleteFile(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key),
	})
	return err
}

func (s *Service) GetFile(ctx context.Context, key string) (io.ReadCloser, *string, *time.Time, *string, error) {
	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, nil, nil, nil, err
	}

	return resp.Body, resp.ContentType, resp.LastModified, resp.ETag, nil
}
