package s3

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type Store struct {
	bucket string
	debug  bool
	client *s3.Client
}

// New returns a store backed by an S3 bucket. Empty key and secret use the
// default credential chain.
func New(ctx context.Context, key, secret, region, bucket string, debug bool) (*Store, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(region),
	}
	if key != "" || secret != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(key, secret, "")))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("s3: couldn't load aws config: %w", err)
	}
	s := &Store{
		bucket: bucket,
		debug:  debug,
		client: s3.NewFromConfig(cfg),
	}

	// Check if bucket exists
	if _, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(bucket),
	}); err != nil {
		return nil, fmt.Errorf("s3: couldn't head bucket %s: %w", bucket, err)
	}
	return s, nil
}

func (s *Store) Upload(ctx context.Context, path, name string) error {
	var contentType string
	switch ext := filepath.Ext(path); ext {
	case ".mp3":
		contentType = "audio/mpeg"
	case ".wav":
		contentType = "audio/wav"
	default:
		return fmt.Errorf("s3: unknown content type for extension %s", ext)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("s3: couldn't read file %s: %w", path, err)
	}
	out, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(name),
		Body:        bytes.NewReader(b),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("s3: couldn't put object %s: %w", name, err)
	}
	if s.debug {
		js, _ := json.Marshal(out)
		log.Println("s3: put object", name, string(js))
	}
	return nil
}

func (s *Store) Download(ctx context.Context, path, name string) error {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(name),
	})
	if err != nil {
		return fmt.Errorf("s3: couldn't get object %s: %w", name, err)
	}
	defer out.Body.Close()
	b, err := io.ReadAll(out.Body)
	if err != nil {
		return fmt.Errorf("s3: couldn't read object %s: %w", name, err)
	}
	if err := os.WriteFile(path, b, 0644); err != nil {
		return fmt.Errorf("s3: couldn't write %s: %w", path, err)
	}
	return nil
}
