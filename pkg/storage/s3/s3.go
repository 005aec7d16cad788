// Package s3 stores files in an S3-compatible object store.
package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dukex/gtfs-pathways/pkg/storage"
)

type Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
}

// ObjectAPI is the part of the S3 client the storage uses.
type ObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

type Storage struct {
	client   ObjectAPI
	endpoint string
	bucket   string
	logger   *slog.Logger
}

// NewClient builds a path-style S3 client for cfg.Endpoint with static credentials.
func NewClient(ctx context.Context, cfg Config) (*s3.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load s3 config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

func NewStorage(client ObjectAPI, endpoint, bucket string, logger *slog.Logger) *Storage {
	return &Storage{
		client:   client,
		endpoint: strings.TrimSuffix(endpoint, "/"),
		bucket:   bucket,
		logger:   logger.With("module", "s3_storage"),
	}
}

// Upload writes body under key filePath and returns {endpoint}/{bucket}/{key}. Seekable bodies,
// such as multipart files, are streamed as they are; anything else is read into memory first.
func (s *Storage) Upload(ctx context.Context, filePath, contentType string, body io.Reader) (string, error) {
	payload, size, err := seekable(body)
	if err != nil {
		return "", fmt.Errorf("failed to read upload body: %w", err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(filePath),
		Body:          payload,
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", filePath, err)
	}

	s.logger.DebugContext(ctx, "file uploaded", "key", filePath, "size", size)

	return fmt.Sprintf("%s/%s/%s", s.endpoint, s.bucket, filePath), nil
}

// seekable returns body as a ReadSeeker together with the number of bytes left to read.
func seekable(body io.Reader) (io.ReadSeeker, int64, error) {
	if rs, ok := body.(io.ReadSeeker); ok {
		start, err := rs.Seek(0, io.SeekCurrent)
		if err != nil {
			return nil, 0, err
		}

		end, err := rs.Seek(0, io.SeekEnd)
		if err != nil {
			return nil, 0, err
		}

		_, err = rs.Seek(start, io.SeekStart)
		if err != nil {
			return nil, 0, err
		}

		return rs, end - start, nil
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, 0, err
	}

	return bytes.NewReader(data), int64(len(data)), nil
}

func (s *Storage) Open(ctx context.Context, remoteURL string) (*storage.FileHandle, error) {
	key, err := s.keyOf(remoteURL)
	if err != nil {
		return nil, err
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", key, err)
	}

	mimeType := aws.ToString(out.ContentType)
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	return &storage.FileHandle{
		FileName: path.Base(key),
		MimeType: mimeType,
		Body:     out.Body,
	}, nil
}

// keyOf extracts the object key from a URL produced by Upload. Stored paths may be
// percent-encoded.
func (s *Storage) keyOf(remoteURL string) (string, error) {
	unescaped, err := url.PathUnescape(remoteURL)
	if err != nil {
		return "", fmt.Errorf("%w: %s", storage.ErrInvalidLocation, remoteURL)
	}

	prefix := s.endpoint + "/" + s.bucket + "/"
	if !strings.HasPrefix(unescaped, prefix) || len(unescaped) == len(prefix) {
		return "", fmt.Errorf("%w: %s", storage.ErrInvalidLocation, remoteURL)
	}

	return strings.TrimPrefix(unescaped, prefix), nil
}
