package blob

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/chatflow-dev/chatflow/model"
	"github.com/chatflow-dev/chatflow/utils"
)

const s3Scheme = "s3"

// S3Options selects the bucket documents live in.
type S3Options struct {
	Bucket string
	Region string
	// Endpoint is only set for S3 compatible services (MinIO, LocalStack).
	Endpoint string
}

// S3BlobStore keeps documents as objects of one bucket. Storage keys are
// s3://<bucket>/<key> URLs.
type S3BlobStore struct {
	client *s3.Client
	bucket string
}

var _ BlobStore = (*S3BlobStore)(nil)

// NewS3BlobStore loads the default AWS credential chain for opts.Region.
func NewS3BlobStore(ctx context.Context, opts S3Options) (*S3BlobStore, error) {
	if opts.Bucket == "" || opts.Region == "" {
		return nil, utils.Errorf("bucket and region must be non-empty")
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(opts.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3BlobStore{client: client, bucket: opts.Bucket}, nil
}

func (s *S3BlobStore) url(key string) string {
	return (&url.URL{Scheme: s3Scheme, Host: s.bucket, Path: "/" + key}).String()
}

// key extracts the object key from a storage key of this bucket.
func (s *S3BlobStore) key(storageKey string) (string, error) {
	u, err := url.Parse(storageKey)
	if err != nil {
		return "", fmt.Errorf("invalid s3 url %q: %w", storageKey, err)
	}
	if u.Scheme != s3Scheme {
		return "", fmt.Errorf("invalid s3 url %q", storageKey)
	}
	if u.Host != s.bucket {
		return "", fmt.Errorf("requested bucket %s does not match configured bucket %s", u.Host, s.bucket)
	}
	return cleanKey(u.Path)
}

// Put uploads a document and returns its storage key.
func (s *S3BlobStore) Put(ctx context.Context, data []byte, mime, key string) (string, error) {
	k, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(k),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(mime),
		ACL:         types.ObjectCannedACLPrivate,
	})
	if err != nil {
		return "", fmt.Errorf("put %s: %w", k, err)
	}
	return s.url(k), nil
}

// Get downloads the document behind a storage key returned by Put or List.
func (s *S3BlobStore) Get(ctx context.Context, storageKey string) ([]byte, error) {
	k, err := s.key(storageKey)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(k),
	})
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", k, err)
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// List pages through every object under prefix. Folder placeholder objects are
// skipped.
func (s *S3BlobStore) List(ctx context.Context, prefix string) ([]model.Document, error) {
	docs := []model.Document{}
	p := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", prefix, err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if strings.HasSuffix(key, "/") {
				continue
			}
			docs = append(docs, model.Document{Name: path.Base(key), StorageKey: s.url(key)})
		}
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].StorageKey < docs[j].StorageKey })
	return docs, nil
}
