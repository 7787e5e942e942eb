package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/malbeclabs/sparkify-lake/lake/pkg/duck"
)

// maxDeleteBatch is the DeleteObjects per-request key limit.
const maxDeleteBatch = 1000

// S3API is the subset of *s3.Client used by the store.
type S3API interface {
	s3.ListObjectsV2APIClient
	DeleteObjects(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	CreateBucket(ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
}

type S3 struct {
	log    *slog.Logger
	client S3API
}

// NewS3 creates an S3 store from explicit credentials.
func NewS3(ctx context.Context, log *slog.Logger, cfg *duck.S3Config) (*S3, error) {
	if cfg == nil {
		return nil, fmt.Errorf("S3 configuration is required")
	}
	creds := credentials.NewStaticCredentialsProvider(
		cfg.AccessKeyID,
		cfg.SecretAccessKey,
		"",
	)
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(creds),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var client *s3.Client
	if endpointURL := cfg.EndpointURL(); endpointURL != "" {
		client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			o.BaseEndpoint = &endpointURL
			o.UsePathStyle = cfg.URLStyle == "path"
		})
		log.Info("using custom S3 endpoint", "endpoint", endpointURL)
	} else {
		client = s3.NewFromConfig(awsCfg)
	}
	return NewS3WithClient(log, client), nil
}

func NewS3WithClient(log *slog.Logger, client S3API) *S3 {
	return &S3{log: log, client: client}
}

// Reset deletes every object under the location's key prefix. S3 has no
// directories, so nothing is recreated.
func (s *S3) Reset(ctx context.Context, loc duck.Location) error {
	if !loc.IsS3() {
		return fmt.Errorf("S3 store cannot reset %s", loc)
	}
	prefix := loc.Path
	if prefix == "" {
		return fmt.Errorf("refusing to reset bucket root s3://%s", loc.Bucket)
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(loc.Bucket),
		Prefix: aws.String(prefix),
	})

	var batch []types.ObjectIdentifier
	deleted := 0
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		out, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(loc.Bucket),
			Delete: &types.Delete{Objects: batch, Quiet: aws.Bool(true)},
		})
		if err != nil {
			return fmt.Errorf("failed to delete objects under %s: %w", loc, err)
		}
		if out != nil && len(out.Errors) > 0 {
			first := out.Errors[0]
			return fmt.Errorf("failed to delete %d objects under %s (first: %s: %s)",
				len(out.Errors), loc, aws.ToString(first.Key), aws.ToString(first.Message))
		}
		deleted += len(batch)
		batch = batch[:0]
		return nil
	}

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("failed to list objects under %s: %w", loc, err)
		}
		for _, obj := range page.Contents {
			batch = append(batch, types.ObjectIdentifier{Key: obj.Key})
			if len(batch) == maxDeleteBatch {
				if err := flush(); err != nil {
					return err
				}
			}
		}
	}
	if err := flush(); err != nil {
		return err
	}

	s.log.Debug("cleared S3 prefix", "bucket", loc.Bucket, "prefix", prefix, "objects", deleted)
	return nil
}

// EnsureBucket creates the bucket when it does not exist. Only used against
// local MinIO endpoints; production buckets are provisioned out of band.
func (s *S3) EnsureBucket(ctx context.Context, bucket string) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(bucket),
	})
	if err == nil {
		return nil
	}
	s.log.Info("creating bucket", "bucket", bucket, "head_error", err)
	_, err = s.client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(bucket),
	})
	if err != nil {
		var owned *types.BucketAlreadyOwnedByYou
		if errors.As(err, &owned) {
			return nil
		}
		return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
	}
	return nil
}

// IsLocalEndpoint reports whether the endpoint is a MinIO on this host.
func IsLocalEndpoint(endpoint string) bool {
	endpoint = strings.TrimPrefix(endpoint, "http://")
	endpoint = strings.TrimPrefix(endpoint, "https://")
	return strings.HasPrefix(endpoint, "localhost") ||
		strings.HasPrefix(endpoint, "127.0.0.1") ||
		strings.Contains(endpoint, "host.docker.internal")
}
