package storage

import (
	"bytes"
	"context"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/pkg/errors"
)

var ErrObjectNotFound = errors.New("object not found")

type SpacesConfig struct {
	AccessKey string
	SecretKey string
	Region    string
	Endpoint  string
	Bucket    string
	Prefix    string
}

// SpacesClient mirrors ledger files to an S3-compatible bucket.
type SpacesClient struct {
	client *s3.Client
	bucket string
	prefix string
}

func NewSpacesClient(ctx context.Context, cfg SpacesConfig) (*SpacesClient, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "unable to load SDK config")
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = true
	})

	return &SpacesClient{
		client: client,
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
	}, nil
}

func (s *SpacesClient) key(name string) string {
	return path.Join(s.prefix, name)
}

// Backup uploads data as <prefix>/<name>.
func (s *SpacesClient) Backup(ctx context.Context, name string, data []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key(name)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return errors.Wrapf(err, "failed to upload %s", name)
	}
	return nil
}

// Restore downloads <prefix>/<name>. A missing object yields
// ErrObjectNotFound.
func (s *SpacesClient) Restore(ctx context.Context, name string) ([]byte, error) {
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, ErrObjectNotFound
		}
		return nil, errors.Wrapf(err, "failed to download %s", name)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", name)
	}
	return data, nil
}

// RestoreFile fetches the backup of localPath when the local file does not
// exist. It reports whether a file was written.
func (s *SpacesClient) RestoreFile(ctx context.Context, localPath string) (bool, error) {
	if _, err := os.Stat(localPath); err == nil {
		return false, nil
	}

	data, err := s.Restore(ctx, filepath.Base(localPath))
	if errors.Is(err, ErrObjectNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if err := os.MkdirAll(filepath.Dir(localPath), 0755); err != nil {
		return false, errors.Wrap(err, "create ledger directory")
	}
	if err := os.WriteFile(localPath, data, 0644); err != nil {
		return false, errors.Wrap(err, "write restored ledger")
	}
	return true, nil
}
