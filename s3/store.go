// Package s3 provides the remote-bucket storage backend on top of the AWS
// SDK. Objects carry their owner and original file name as S3 user metadata,
// and URLs resolve to the bucket's public https address.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/cfiguera/authd"
)

const (
	metaOwnerID      = "owner-id"
	metaOriginalName = "original-name"
)

// API is the subset of the S3 client used by Store.
type API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Config holds the remote backend configuration. Credentials come from the
// ambient AWS environment (access key and secret in env variables) unless
// static keys are set explicitly.
type Config struct {
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
}

// Store is the S3 FileStorage implementation.
type Store struct {
	client API
	bucket string
}

// New creates a Store against a real S3 client built from cfg.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("new s3 store: bucket cannot be empty")
	}

	opts := []func(*awsconfig.LoadOptions) error{}
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
		return nil, fmt.Errorf("new s3 store: load aws config: %w", err)
	}

	return NewWithClient(s3.NewFromConfig(awsCfg), cfg.Bucket), nil
}

// NewWithClient creates a Store over an existing client. Tests use it with a
// fake API.
func NewWithClient(client API, bucket string) *Store {
	return &Store{client: client, bucket: bucket}
}

// Save uploads content under obj.Path with its content type and user
// metadata. The put is atomic per key on the S3 side; a failed upload may
// leave nothing or a previous version, never a partial object. Partial
// transfer state on the wire is not cleaned up.
func (s *Store) Save(ctx context.Context, obj authd.PutObject, content io.Reader) (authd.SaveResult, error) {
	if err := ctx.Err(); err != nil {
		return authd.SaveResult{}, err
	}

	if !authd.IsValidPath(obj.Path) {
		return authd.SaveResult{}, fmt.Errorf("save %q: %w", obj.Path, authd.ErrInvalidInput)
	}

	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(obj.Path),
		Body:        content,
		ContentType: aws.String(obj.ContentType),
		Metadata: map[string]string{
			metaOwnerID:      obj.OwnerID,
			metaOriginalName: obj.OriginalName,
		},
	}
	if obj.Size > 0 {
		input.ContentLength = aws.Int64(obj.Size)
	}

	out, err := s.client.PutObject(ctx, input)
	if err != nil {
		return authd.SaveResult{}, fmt.Errorf("save %q: put object: %w: %s", obj.Path, authd.ErrStorageWrite, err)
	}

	return authd.SaveResult{
		BytesWritten: obj.Size,
		Etag:         aws.ToString(out.ETag),
	}, nil
}

// Open streams an object's content. Returns authd.ErrNotFound for a missing
// key. Keys are addressed with "/" natively; no separator escaping is
// applied or translated.
func (s *Store) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(path),
	})
	if err != nil {
		var noSuchKey *s3types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, authd.ErrNotFound
		}
		return nil, fmt.Errorf("open %q: %w", path, err)
	}

	return out.Body, nil
}

// URLFor returns the object's public bucket URL. Pure string construction,
// no I/O.
func (s *Store) URLFor(path string) string {
	return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", s.bucket, path)
}
