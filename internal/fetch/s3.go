package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/joseph-ayodele/certverify/internal/common"
)

// ObjectGetter is the subset of the S3 client used by S3Fetcher.
type ObjectGetter interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Fetcher downloads s3://bucket/key locators.
type S3Fetcher struct {
	client   ObjectGetter
	maxBytes int64
	logger   *slog.Logger
}

// NewS3Client builds an S3 client from static configuration. Requests are
// anonymous when no access key is configured.
func NewS3Client(cfg common.S3Config) *s3.Client {
	opts := s3.Options{
		Region:       cfg.Region,
		UsePathStyle: cfg.UsePathStyle,
		Credentials:  aws.AnonymousCredentials{},
	}
	if cfg.AccessKeyID != "" {
		key, secret := cfg.AccessKeyID, cfg.SecretKey
		opts.Credentials = aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
			return aws.Credentials{AccessKeyID: key, SecretAccessKey: secret, Source: "certverify"}, nil
		})
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(opts)
}

func NewS3Fetcher(client ObjectGetter, maxBytes int64, logger *slog.Logger) *S3Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &S3Fetcher{client: client, maxBytes: maxBytes, logger: logger}
}

// ParseS3Locator splits s3://bucket/key.
func ParseS3Locator(locator string) (bucket, key string, err error) {
	u, err := url.Parse(locator)
	if err != nil {
		return "", "", err
	}
	if !strings.EqualFold(u.Scheme, "s3") {
		return "", "", fmt.Errorf("not an s3 locator: %q", locator)
	}
	bucket = u.Host
	key = strings.TrimPrefix(u.Path, "/")
	if bucket == "" || key == "" {
		return "", "", fmt.Errorf("s3 locator needs bucket and key: %q", locator)
	}
	return bucket, key, nil
}

func (f *S3Fetcher) Fetch(ctx context.Context, locator string) ([]byte, error) {
	bucket, key, err := ParseS3Locator(locator)
	if err != nil {
		return nil, common.Retrieval("parse locator", err)
	}

	out, err := f.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, common.Retrieval("object not found", err)
		}
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			return nil, common.Retrieval(fmt.Sprintf("get object: %s", apiErr.ErrorCode()), err)
		}
		return nil, common.Retrieval("get object", err)
	}
	defer out.Body.Close()

	var r io.Reader = out.Body
	if f.maxBytes > 0 {
		r = io.LimitReader(out.Body, f.maxBytes+1)
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, common.Retrieval("read object", err)
	}
	if f.maxBytes > 0 && int64(len(body)) > f.maxBytes {
		return nil, common.Retrieval(fmt.Sprintf("object exceeds %d bytes", f.maxBytes), nil)
	}

	f.logger.Debug("fetch.s3.done", "bucket", bucket, "key", key, "bytes", len(body))
	return body, nil
}
