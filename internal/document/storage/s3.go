// Package storage issues presigned object storage URLs for document uploads.
package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	smithyhttp "github.com/aws/smithy-go/transport/http"

	"govportal/internal/platform/config"
)

// DefaultExpiry bounds how long an upload URL stays valid.
const DefaultExpiry = 15 * time.Minute

var presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	return pc.PresignPutObject(ctx, in, optFns...)
}

var headObject = func(c *s3.Client, ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	return c.HeadObject(ctx, in, optFns...)
}

// ErrObjectNotFound reports that nothing was stored under the key.
var ErrObjectNotFound = errors.New("object not found")

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	Size        int64
	ContentType string
}

// PresignedUpload is a URL the client PUTs the file body to.
type PresignedUpload struct {
	URL       string
	Method    string
	ExpiresAt time.Time
}

// S3Presigner signs PUT requests against one bucket. Works with AWS S3 and
// S3 compatible endpoints such as MinIO.
type S3Presigner struct {
	api    *s3.Client
	client *s3.PresignClient
	bucket string
	expiry time.Duration
	now    func() time.Time
}

// NewS3Presigner builds a presigner from cfg. Static credentials are used when
// both keys are set, otherwise the default AWS credential chain applies.
func NewS3Presigner(ctx context.Context, cfg config.S3Config) (*S3Presigner, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	expiry := cfg.URLExpiry
	if expiry <= 0 {
		expiry = DefaultExpiry
	}
	return &S3Presigner{
		api:    client,
		client: s3.NewPresignClient(client),
		bucket: cfg.Bucket,
		expiry: expiry,
		now:    time.Now,
	}, nil
}

// PresignPut signs a PUT for key. The content type and length are part of the
// signature, so the upload must match what was declared.
func (p *S3Presigner) PresignPut(ctx context.Context, key, contentType string, size int64) (*PresignedUpload, error) {
	issuedAt := p.now()
	req, err := presignPutObject(p.client, ctx, &s3.PutObjectInput{
		Bucket:        aws.String(p.bucket),
		Key:           aws.String(key),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(size),
	}, s3.WithPresignExpires(p.expiry))
	if err != nil {
		return nil, fmt.Errorf("presign put %s: %w", key, err)
	}
	return &PresignedUpload{URL: req.URL, Method: req.Method, ExpiresAt: issuedAt.Add(p.expiry)}, nil
}

// StatObject looks the key up with HeadObject. A missing key returns
// ErrObjectNotFound.
func (p *S3Presigner) StatObject(ctx context.Context, key string) (*ObjectInfo, error) {
	out, err := headObject(p.api, ctx, &s3.HeadObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("head object %s: %w", key, err)
	}
	return &ObjectInfo{Size: aws.ToInt64(out.ContentLength), ContentType: aws.ToString(out.ContentType)}, nil
}

func isNotFound(err error) bool {
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var re *smithyhttp.ResponseError
	return errors.As(err, &re) && re.HTTPStatusCode() == http.StatusNotFound
}
