package blobstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

const (
	s3ObjectPrefix = "blobs/"
	s3FilenameMeta = "filename"
	s3ChecksumMeta = "blake2b"
)

// S3Config configures the S3 backend. AccessKey and SecretKey are optional;
// without them the default AWS credential chain is used. Endpoint selects an
// S3-compatible service (MinIO, R2) and switches to path-style addressing.
type S3Config struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

type s3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

type s3Uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// S3Store stores blobs as objects in an S3 bucket.
type S3Store struct {
	bucket   string
	client   s3API
	uploader s3Uploader
}

// NewS3Store creates an S3-backed Store.
func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("S3 bucket is required")
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}

	client := s3.NewFromConfig(awsCfg, s3Opts...)
	return &S3Store{
		bucket:   cfg.Bucket,
		client:   client,
		uploader: manager.NewUploader(client),
	}, nil
}

// Backend implements Store.
func (s *S3Store) Backend() string {
	return "s3"
}

// Store implements Store. The upload has completed when Store returns.
func (s *S3Store) Store(ctx context.Context, data []byte, filename, contentType string) (StoredBlob, error) {
	digest := Digest(data)
	blob := StoredBlob{
		Key:         KeyFromDigest(digest),
		ByteSize:    int64(len(data)),
		ContentType: contentType,
		Filename:    filename,
		Checksum:    digest,
	}

	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s3ObjectPrefix + blob.Key),
		Body:   bytes.NewReader(data),
		Metadata: map[string]string{
			s3FilenameMeta: filename,
			s3ChecksumMeta: digest,
		},
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := s.uploader.Upload(ctx, input); err != nil {
		return StoredBlob{}, storageError("s3 upload", err)
	}
	return blob, nil
}

// Retrieve implements Store.
func (s *S3Store) Retrieve(ctx context.Context, key string) ([]byte, error) {
	if _, err := DigestFromKey(key); err != nil {
		return nil, err
	}

	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s3ObjectPrefix + key),
	})
	if err != nil {
		return nil, s.mapError("s3 download", key, err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, storageError("s3 download read", err)
	}
	return data, nil
}

// Exists implements Store.
func (s *S3Store) Exists(ctx context.Context, key string) (StoredBlob, error) {
	digest, err := DigestFromKey(key)
	if err != nil {
		return StoredBlob{}, err
	}

	head, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s3ObjectPrefix + key),
	})
	if err != nil {
		return StoredBlob{}, s.mapError("s3 head", key, err)
	}

	return StoredBlob{
		Key:         key,
		ByteSize:    aws.ToInt64(head.ContentLength),
		ContentType: aws.ToString(head.ContentType),
		Filename:    head.Metadata[s3FilenameMeta],
		Checksum:    digest,
	}, nil
}

func (s *S3Store) mapError(op, key string, err error) error {
	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	if errors.As(err, &noSuchKey) || errors.As(err, &notFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}

	// HeadObject has no body, so some S3-compatible services only report
	// the status as a generic API error code.
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && (apiErr.ErrorCode() == "NotFound" || apiErr.ErrorCode() == "NoSuchKey") {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return storageError(op, err)
}
