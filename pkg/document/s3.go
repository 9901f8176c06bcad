package document

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/dd0wney/cluso-opticbench/pkg/logging"
	"github.com/dd0wney/cluso-opticbench/pkg/optic"
	"github.com/dd0wney/cluso-opticbench/pkg/validation"
)

// S3API is the subset of the S3 client used by S3Store.
type S3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, opts ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3Config locates a bucket of documents. Empty credentials fall back to
// the default AWS credential chain.
type S3Config struct {
	Bucket    string `yaml:"bucket" json:"bucket"`
	Prefix    string `yaml:"prefix" json:"prefix"`
	Region    string `yaml:"region" json:"region"`
	Endpoint  string `yaml:"endpoint" json:"endpoint"`
	AccessKey string `yaml:"access_key" json:"access_key"`
	SecretKey string `yaml:"secret_key" json:"secret_key"`
	PathStyle bool   `yaml:"path_style" json:"path_style"`
}

// Validate checks the configuration.
func (c S3Config) Validate() error {
	err := validation.NewConfigValidator("s3").
		Required("bucket", c.Bucket).
		When(c.AccessKey != "" || c.SecretKey != "", func(cv *validation.ConfigValidator) {
			cv.Required("access_key", c.AccessKey).Required("secret_key", c.SecretKey)
		}).
		Validate()
	if err != nil {
		return optic.ConfigError("validate s3 config", err)
	}
	return nil
}

// ObjectInfo describes a stored document.
type ObjectInfo struct {
	Key      string
	Size     int64
	Modified time.Time
}

// S3Store keeps documents in an S3 compatible bucket. Keys carry the
// codec extension.
type S3Store struct {
	client S3API
	bucket string
	prefix string
	opts   []Option
}

// NewS3Store connects to the bucket described by cfg.
func NewS3Store(ctx context.Context, cfg S3Config, opts ...Option) (*S3Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, optic.ConfigError("load aws config", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.PathStyle
	})
	return NewS3StoreWithClient(client, cfg.Bucket, cfg.Prefix, opts...), nil
}

// NewS3StoreWithClient uses an existing client.
func NewS3StoreWithClient(client S3API, bucket, prefix string, opts ...Option) *S3Store {
	return &S3Store{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/"), opts: opts}
}

func (s *S3Store) key(name string) string {
	if s.prefix == "" {
		return name
	}
	return path.Join(s.prefix, name)
}

// Put stores the document under name. The codec follows the extension of
// name.
func (s *S3Store) Put(ctx context.Context, name string, d *Document) error {
	c, err := CodecFor(name)
	if err != nil {
		return optic.NewError("put document").Data().Cause(err).Err()
	}
	data, err := Encode(d, c, s.opts...)
	if err != nil {
		return err
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key(name)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType(c)),
		Metadata: map[string]string{
			"fingerprint": d.Fingerprint,
			"version":     d.Version,
			"saved":       stamp(),
		},
	})
	if err != nil {
		return optic.NewError("put document").Data().Cause(fmt.Errorf("s3://%s/%s: %w", s.bucket, s.key(name), err)).Err()
	}
	newOptions(s.opts).logger.Debug("document stored",
		logging.String("bucket", s.bucket),
		logging.String("key", s.key(name)),
		logging.Int("bytes", len(data)))
	return nil
}

// Get fetches and decodes the document stored under name.
func (s *S3Store) Get(ctx context.Context, name string) (*Document, error) {
	c, err := CodecFor(name)
	if err != nil {
		return nil, optic.NewError("get document").Data().Cause(err).Err()
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	if err != nil {
		return nil, optic.NewError("get document").Data().Cause(fmt.Errorf("s3://%s/%s: %w", s.bucket, s.key(name), err)).Err()
	}
	defer func() { _ = out.Body.Close() }()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, optic.NewError("get document").Data().Cause(err).Err()
	}
	return Decode(data, c, s.opts...)
}

// List returns the documents below the store prefix. Objects without a
// document extension are skipped.
func (s *S3Store) List(ctx context.Context) ([]ObjectInfo, error) {
	in := &s3.ListObjectsV2Input{Bucket: aws.String(s.bucket)}
	if s.prefix != "" {
		in.Prefix = aws.String(s.prefix + "/")
	}
	var out []ObjectInfo
	pages := s3.NewListObjectsV2Paginator(s.client, in)
	for pages.HasMorePages() {
		page, err := pages.NextPage(ctx)
		if err != nil {
			return nil, optic.NewError("list documents").Data().Cause(err).Err()
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if _, err := CodecFor(key); err != nil {
				continue
			}
			if s.prefix != "" {
				key = strings.TrimPrefix(key, s.prefix+"/")
			}
			out = append(out, ObjectInfo{
				Key:      key,
				Size:     aws.ToInt64(obj.Size),
				Modified: aws.ToTime(obj.LastModified),
			})
		}
	}
	return out, nil
}

func contentType(c Codec) string {
	if c == Plain {
		return "application/yaml"
	}
	return "application/octet-stream"
}
