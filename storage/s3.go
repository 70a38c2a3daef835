package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Config holds configuration for S3-compatible storage.
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string // optional: MinIO, DO Spaces, R2
	AccessKeyID     string
	SecretAccessKey string
}

// ObjectStore keeps listing blobs: one blurb.html plus numbered gallery
// images per listing id.
type ObjectStore struct {
	client *s3.Client
	bucket string
}

func NewObjectStore(ctx context.Context, cfg S3Config) (*ObjectStore, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	var client *s3.Client
	if cfg.Endpoint != "" {
		client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	} else {
		client = s3.NewFromConfig(awsCfg)
	}

	return &ObjectStore{
		client: client,
		bucket: cfg.Bucket,
	}, nil
}

// PutObjects writes a batch of keyed blobs. Enrichment collects everything
// for a listing first and writes here once, so a failed extraction leaves no
// partial object set behind.
func (o *ObjectStore) PutObjects(ctx context.Context, objects map[string][]byte) error {
	for key, body := range objects {
		_, err := o.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(o.bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader(body),
			ContentType: aws.String(contentTypeForKey(key)),
		})
		if err != nil {
			return fmt.Errorf("put %s: %w", key, err)
		}
	}
	return nil
}

// Exists reports whether the key is present in the bucket.
func (o *ObjectStore) Exists(ctx context.Context, key string) (bool, error) {
	_, err := o.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(o.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, fmt.Errorf("head %s: %w", key, err)
	}
	return true, nil
}

func (o *ObjectStore) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := o.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(o.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

// ListImageKeys returns the image object names under a listing prefix, in
// gallery order.
func (o *ObjectStore) ListImageKeys(ctx context.Context, listingID string) ([]string, error) {
	out, err := o.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(o.bucket),
		Prefix: aws.String(listingID + "/"),
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", listingID, err)
	}

	var keys []string
	for _, obj := range out.Contents {
		name := path.Base(aws.ToString(obj.Key))
		if name == "blurb.html" {
			continue
		}
		keys = append(keys, name)
	}
	sort.Slice(keys, func(i, j int) bool {
		return imageIndex(keys[i]) < imageIndex(keys[j])
	})
	return keys, nil
}

// imageIndex extracts the numeric prefix of "<n>.webp"; lexicographic order
// would put 10.webp before 2.webp.
func imageIndex(name string) int {
	base := strings.TrimSuffix(name, path.Ext(name))
	n, err := strconv.Atoi(base)
	if err != nil {
		return 0
	}
	return n
}

func contentTypeForKey(key string) string {
	switch path.Ext(key) {
	case ".html":
		return "text/html"
	case ".webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}
