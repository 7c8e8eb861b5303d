package storage

import (
	"context"
	"errors"
	"io"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	portal_errors "agency-portal/pkg/errors"
)

type S3Config struct {
	Region     string
	Bucket     string
	AccessKey  string
	SecretKey  string
	Endpoint   string
	PublicBase string
	MaxSize    int64
}

// Client wraps the S3 API the upload boundary needs.
type Client struct {
	cfg S3Config
	s3  *s3.Client
}

var allowedContentPrefixes = []string{"image/", "video/", "application/", "text/"}

func NewClient(ctx context.Context, cfg S3Config) (*Client, error) {
	if cfg.Region == "" || cfg.Bucket == "" {
		return nil, errors.New("s3 region and bucket are required")
	}

	var opts []func(*awsconfig.LoadOptions) error
	opts = append(opts, awsconfig.WithRegion(cfg.Region))

	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &Client{cfg: cfg, s3: client}, nil
}

// ValidateUpload rejects a file before any bytes go to the bucket.
func (c *Client) ValidateUpload(contentType string, size int64) error {
	if c.cfg.MaxSize > 0 && size > c.cfg.MaxSize {
		return portal_errors.ErrTooLarge
	}
	for _, prefix := range allowedContentPrefixes {
		if strings.HasPrefix(contentType, prefix) {
			return nil
		}
	}
	return portal_errors.ErrUnsupportedMedia
}

// Put uploads an object and returns its public URL.
func (c *Client) Put(ctx context.Context, key, contentType string, size int64, body io.Reader) (string, error) {
	_, err := c.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(c.cfg.Bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		return "", err
	}
	return c.PublicURL(key), nil
}

// PublicURL builds the browsable URL for an object key.
func (c *Client) PublicURL(key string) string {
	base := c.cfg.PublicBase
	if base == "" {
		base = "https://" + c.cfg.Bucket + ".s3." + c.cfg.Region + ".amazonaws.com"
	}
	u, err := url.Parse(base)
	if err != nil {
		return base + "/" + key
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/" + key
	return u.String()
}
