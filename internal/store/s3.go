package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/nao1215/drivercatalog/internal/catalog"
)

// S3API is the subset of the S3 client used by the S3 store.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Options locates the catalog object.
type S3Options struct {
	Bucket string
	Key    string
	Region string

	// Endpoint overrides the service endpoint (MinIO, LocalStack) and
	// switches to path-style addressing.
	Endpoint string
}

// S3 stores the catalog blob as a single object.
type S3 struct {
	client S3API
	bucket string
	key    string
}

// NewS3 returns an S3 store using client.
func NewS3(client S3API, bucket, key string) *S3 {
	return &S3{client: client, bucket: bucket, key: key}
}

// OpenS3 builds an S3 client from the default AWS credential chain.
func OpenS3(ctx context.Context, opts S3Options) (*S3, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to load AWS config: %w", ErrStoreIO, err)
	}

	var s3Opts []func(*s3.Options)
	if opts.Endpoint != "" {
		endpoint := opts.Endpoint
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		})
	}
	return NewS3(s3.NewFromConfig(cfg, s3Opts...), opts.Bucket, opts.Key), nil
}

// Location returns the s3:// URI of the catalog object.
func (s *S3) Location() string {
	return "s3://" + s.bucket + "/" + s.key
}

// Load downloads the object. A missing object is an empty tree.
func (s *S3) Load(ctx context.Context) (*catalog.Tree, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if isObjectNotFound(err) {
		return catalog.NewTree(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get %s: %w", ErrStoreIO, s.Location(), err)
	}
	defer out.Body.Close()

	blob, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrStoreIO, s.Location(), err)
	}
	return Decode(blob)
}

// Save uploads the blob, replacing the previous object.
func (s *S3) Save(ctx context.Context, tree *catalog.Tree) error {
	blob, err := Encode(tree)
	if err != nil {
		return err
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.key),
		Body:          bytes.NewReader(blob),
		ContentLength: aws.Int64(int64(len(blob))),
		ContentType:   aws.String("application/octet-stream"),
		Metadata:      map[string]string{"sha3-256": Digest(blob)},
	})
	if err != nil {
		return fmt.Errorf("%w: put %s: %w", ErrStoreIO, s.Location(), err)
	}
	return nil
}

// Close is a no-op.
func (s *S3) Close() error {
	return nil
}

func isObjectNotFound(err error) bool {
	if err == nil {
		return false
	}
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}
