package cache

import (
	"context"
	stderr "errors"
	"fmt"
	"io"
	"net"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	pcerrors "github.com/precachefs/precachefs/pkg/errors"
	"github.com/precachefs/precachefs/pkg/retry"
)

// S3Backend is a BackingStore rooted at an S3 bucket and prefix instead of a
// local directory. It lets the same Store/Reader/Predictor core serve a
// prefetch cache in front of object storage: HeadObject stands in for stat,
// and a single unranged GetObject stands in for the local backend's full
// read — the core never issues a ranged GET, by the same whole-file-entry
// rule that governs the local case.
type S3Backend struct {
	client  *s3.Client
	bucket  string
	prefix  string
	retryer *retry.Retryer
}

// S3Options carries the subset of config.S3Config NewS3Backend needs,
// kept separate from internal/config so internal/cache never imports it.
type S3Options struct {
	Region          string
	Endpoint        string
	ForcePathStyle  bool
	AccessKeyID     string
	SecretAccessKey string
}

// NewS3Backend creates an S3-backed store for bucket. Credentials come from
// opts.AccessKeyID/SecretAccessKey if both are set, otherwise from the
// default AWS credential chain resolved via aws-sdk-go-v2/config. prefix is
// prepended to every normalized path before it is resolved against the
// bucket. retryCfg governs how transient AWS errors (throttling, connection
// resets) are retried; pass retry.DefaultConfig() for sensible defaults.
func NewS3Backend(ctx context.Context, bucket, prefix string, opts S3Options, retryCfg retry.Config) (*S3Backend, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(opts.Region)}
	if opts.AccessKeyID != "" && opts.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, "")))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
		o.UsePathStyle = opts.ForcePathStyle
	})

	return &S3Backend{
		client:  client,
		bucket:  bucket,
		prefix:  strings.TrimSuffix(prefix, "/"),
		retryer: retry.New(retryCfg),
	}, nil
}

func (b *S3Backend) SetRoot(root string) {
	bucket, prefix := splitS3Root(root)
	if bucket != "" {
		b.bucket = bucket
	}
	b.prefix = strings.TrimSuffix(prefix, "/")
}

// splitS3Root parses "s3://bucket/prefix" style roots.
func splitS3Root(root string) (bucket, prefix string) {
	root = strings.TrimPrefix(root, "s3://")
	parts := strings.SplitN(root, "/", 2)
	bucket = parts[0]
	if len(parts) > 1 {
		prefix = parts[1]
	}
	return bucket, prefix
}

func (b *S3Backend) key(path string) string {
	if b.prefix == "" {
		return path
	}
	return b.prefix + "/" + path
}

func (b *S3Backend) Stat(ctx context.Context, path string) (FileInfo, error) {
	var info FileInfo
	err := b.retryer.Do(ctx, func() error {
		out, err := b.client.HeadObject(ctx, &s3.HeadObjectInput{
			Bucket: aws.String(b.bucket),
			Key:    aws.String(b.key(path)),
		})
		if err != nil {
			return classifyS3Error(err, path, b.bucket)
		}
		info = FileInfo{Size: aws.ToInt64(out.ContentLength), ModTime: aws.ToTime(out.LastModified)}
		return nil
	})
	if err != nil {
		return FileInfo{}, err
	}
	return info, nil
}

func (b *S3Backend) ReadDir(ctx context.Context, path string) ([]DirEntry, error) {
	prefix := b.key(path)
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	var entries []DirEntry
	var token *string
	for {
		var out *s3.ListObjectsV2Output
		err := b.retryer.Do(ctx, func() error {
			var listErr error
			out, listErr = b.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
				Bucket:            aws.String(b.bucket),
				Prefix:            aws.String(prefix),
				Delimiter:         aws.String("/"),
				ContinuationToken: token,
			})
			if listErr != nil {
				return classifyS3Error(listErr, path, b.bucket)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		for _, p := range out.CommonPrefixes {
			name := strings.TrimSuffix(strings.TrimPrefix(aws.ToString(p.Prefix), prefix), "/")
			if name != "" {
				entries = append(entries, DirEntry{Name: name, IsDir: true})
			}
		}
		for _, obj := range out.Contents {
			name := strings.TrimPrefix(aws.ToString(obj.Key), prefix)
			if name != "" {
				entries = append(entries, DirEntry{Name: name, IsDir: false})
			}
		}
		if !aws.ToBool(out.IsTruncated) {
			break
		}
		token = out.NextContinuationToken
	}
	return entries, nil
}

func (b *S3Backend) ReadFile(ctx context.Context, path string) ([]byte, error) {
	var data []byte
	err := b.retryer.Do(ctx, func() error {
		out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(b.bucket),
			Key:    aws.String(b.key(path)),
		})
		if err != nil {
			return classifyS3Error(err, path, b.bucket)
		}
		defer out.Body.Close()
		body, readErr := io.ReadAll(out.Body)
		if readErr != nil {
			return pcerrors.NewError(pcerrors.ErrCodeStorageRead, readErr.Error()).
				WithComponent("s3backend").WithOperation("ReadFile").WithCause(readErr)
		}
		data = body
		return nil
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

// classifyS3Error maps an AWS error into a structured PrecacheFSError,
// preserving errNotExist in the cause chain so callers can keep testing
// with errors.Is(err, os.ErrNotExist)-style checks against errNotExist.
func classifyS3Error(err error, path, bucket string) error {
	var apiErr smithy.APIError
	if stderr.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return pcerrors.NewError(pcerrors.ErrCodeObjectNotFound, fmt.Sprintf("%s: object not found", path)).
				WithComponent("s3backend").WithContext("bucket", bucket).WithContext("key", path).
				WithCause(fmt.Errorf("%s: %w", path, errNotExist))
		case "NoSuchBucket":
			return pcerrors.NewError(pcerrors.ErrCodeBucketNotFound, fmt.Sprintf("bucket %s not found", bucket)).
				WithComponent("s3backend").WithContext("bucket", bucket)
		case "AccessDenied":
			return pcerrors.NewError(pcerrors.ErrCodeAccessDenied, fmt.Sprintf("%s: access denied", path)).
				WithComponent("s3backend").WithContext("bucket", bucket).WithContext("key", path)
		case "SlowDown", "Throttling", "ThrottlingException", "RequestTimeout", "InternalError", "ServiceUnavailable":
			throttled := pcerrors.NewError(pcerrors.ErrCodeStorageRead, err.Error()).
				WithComponent("s3backend").WithContext("bucket", bucket).WithContext("key", path).WithCause(err)
			throttled.Retryable = true
			return throttled
		}
	}
	var netErr net.Error
	if stderr.As(err, &netErr) {
		return pcerrors.NewError(pcerrors.ErrCodeNetworkError, err.Error()).
			WithComponent("s3backend").WithContext("bucket", bucket).WithContext("key", path).WithCause(err)
	}
	return pcerrors.NewError(pcerrors.ErrCodeStorageRead, err.Error()).
		WithComponent("s3backend").WithContext("bucket", bucket).WithContext("key", path).WithCause(err)
}

var errNotExist = stderr.New("object not found")
