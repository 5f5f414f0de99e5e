// Package archive stores generated reports in S3.
package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

const DefaultRegion = "us-east-1"

var ErrNoBucket = errors.New("archive bucket not set")

// PutObjectAPI is the slice of the S3 client the archive needs.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type S3Archive struct {
	client PutObjectAPI
	bucket string
	prefix string
	now    func() time.Time
}

// LoadConfig resolves AWS credentials from the default chain, optionally
// pinned to a shared profile.
func LoadConfig(ctx context.Context, profile, region string) (awssdk.Config, error) {
	opts := []func(*config.LoadOptions) error{config.WithDefaultRegion(DefaultRegion)}
	if profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(profile))
	}
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return awssdk.Config{}, fmt.Errorf("unable to load AWS SDK config: %w", err)
	}
	return cfg, nil
}

func NewS3Archive(cfg awssdk.Config, bucket, prefix string) (*S3Archive, error) {
	return NewWithClient(s3.NewFromConfig(cfg), bucket, prefix)
}

func NewWithClient(client PutObjectAPI, bucket, prefix string) (*S3Archive, error) {
	if bucket == "" {
		return nil, ErrNoBucket
	}
	return &S3Archive{client: client, bucket: bucket, prefix: prefix, now: time.Now}, nil
}

// Key names a report object: <prefix><subject>/<range>/<timestamp>.<ext>.
func (a *S3Archive) Key(subject, timeRange, ext string) string {
	subject = strings.ToLower(strings.Join(strings.Fields(subject), "-"))
	stamp := a.now().UTC().Format("20060102T150405Z")
	return a.prefix + path.Join(subject, timeRange, stamp+"."+ext)
}

// Put uploads body under key and returns its s3:// location.
func (a *S3Archive) Put(ctx context.Context, key string, body []byte, contentType string) (string, error) {
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      awssdk.String(a.bucket),
		Key:         awssdk.String(key),
		Body:        bytes.NewReader(body),
		ContentType: awssdk.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}

	location := fmt.Sprintf("s3://%s/%s", a.bucket, key)
	zerolog.Ctx(ctx).Info().Str("location", location).Int("bytes", len(body)).Msg("report archived")
	return location, nil
}
