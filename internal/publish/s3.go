// Package publish uploads packaged add-ons to release storage.
package publish

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/libukai/Anki-Addon-Dev-ToolKit/internal/config"
	"github.com/libukai/Anki-Addon-Dev-ToolKit/internal/errors"
)

// ContentType is the media type artifacts are stored with.
const ContentType = "application/zip"

// Uploader uploads one artifact and returns where it was stored.
type Uploader interface {
	Upload(ctx context.Context, artifactPath string) (string, error)
}

// PutObjectAPI is the part of the S3 client the uploader needs.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Uploader stores artifacts in an S3 (or S3-compatible) bucket.
type S3Uploader struct {
	client   PutObjectAPI
	bucket   string
	prefix   string
	repoName string
	logger   *slog.Logger
}

// NewS3Uploader creates an uploader for the project's publish settings.
func NewS3Uploader(cfg *config.Config, client PutObjectAPI) (*S3Uploader, error) {
	if cfg.Publish.Bucket == "" {
		return nil, errors.New("E130").WithDetail("publish.bucket is not set")
	}
	return &S3Uploader{
		client:   client,
		bucket:   cfg.Publish.Bucket,
		prefix:   cfg.Publish.Prefix,
		repoName: cfg.RepoName,
		logger:   slog.Default().With("component", "publish"),
	}, nil
}

// SetLogger sets the uploader's logger.
func (u *S3Uploader) SetLogger(l *slog.Logger) {
	if l != nil {
		u.logger = l
	}
}

// Key returns the object key for an artifact.
func (u *S3Uploader) Key(artifactPath string) string {
	return u.prefix + filepath.Base(artifactPath)
}

// Upload implements Uploader. It returns the s3:// URI of the object.
func (u *S3Uploader) Upload(ctx context.Context, artifactPath string) (string, error) {
	f, err := os.Open(artifactPath)
	if err != nil {
		return "", errors.New("E130").WithDetail(artifactPath).Wrap(err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", errors.New("E130").WithDetail(artifactPath).Wrap(err)
	}

	key := u.Key(artifactPath)
	version, target := ParseArtifactName(u.repoName, filepath.Base(artifactPath))

	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(info.Size()),
		ContentType:   aws.String(ContentType),
		Metadata: map[string]string{
			"addon-version": version,
			"addon-target":  target,
		},
	})
	if err != nil {
		return "", errors.New("E130").WithDetailf("put s3://%s/%s", u.bucket, key).Wrap(err)
	}

	uri := "s3://" + u.bucket + "/" + key
	u.logger.Info("uploaded artifact", "uri", uri, "bytes", info.Size())
	return uri, nil
}

// ParseArtifactName extracts the version and target from an artifact file
// name such as "review-heatmap-v1.2.0-ankiweb.ankiaddon".
func ParseArtifactName(repoName, name string) (version, target string) {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	base = strings.TrimPrefix(base, repoName+"-")

	target = "local"
	if strings.HasSuffix(base, "-ankiweb") {
		target = "ankiweb"
		base = strings.TrimSuffix(base, "-ankiweb")
	}
	return base, target
}

// NewS3Client builds an S3 client from the publish settings on top of the
// SDK's default configuration chain: environment, shared config and
// credentials files, profiles, SSO and instance roles. A region set in the
// publish settings wins over the chain's.
func NewS3Client(ctx context.Context, cfg config.PublishConfig) (*s3.Client, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.New("E130").WithDetail("load AWS configuration").Wrap(err)
	}
	if awsCfg.Region == "" {
		return nil, errors.New("E130").WithDetail("no region: set publish.region, AWS_REGION or a profile region")
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	}), nil
}
