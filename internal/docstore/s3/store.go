// Package s3 implements a document store over an S3-compatible backend
// (AWS S3 or MinIO). Minimal surface area: single bucket, one object per
// user under the users/ prefix.
package s3

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"rentledger/internal/docstore"
)

// Config holds explicit construction parameters (mostly for tests). For prod
// we rely primarily on environment variables.
type Config struct {
	Region          string
	Bucket          string
	Endpoint        string // optional; if set enables custom endpoint (e.g. MinIO)
	AccessKeyID     string // optional (falls back to default credentials chain)
	SecretAccessKey string // optional
	SessionToken    string // optional
	PathStyle       bool
}

// Store implements docstore.Store against one S3 bucket.
type Store struct {
	client *s3.Client
	bucket string
}

// Environment variables:
//   RENTLEDGER_S3_BUCKET=<bucket> (required)
//   RENTLEDGER_S3_REGION=<region> (default us-east-1)
//   RENTLEDGER_S3_ENDPOINT=<url> (optional, for MinIO)
//   RENTLEDGER_S3_PATH_STYLE=true|false (default false)
//   AWS_ACCESS_KEY_ID / AWS_SECRET_ACCESS_KEY / AWS_SESSION_TOKEN (optional)

// New creates an S3 document store from Config.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken)))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, err
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.PathStyle {
			o.UsePathStyle = true
		}
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return &Store{client: client, bucket: cfg.Bucket}, nil
}

// OpenFromEnv constructs an S3 store from process environment.
func OpenFromEnv(ctx context.Context) (*Store, error) {
	bucket := os.Getenv("RENTLEDGER_S3_BUCKET")
	if bucket == "" {
		return nil, fmt.Errorf("RENTLEDGER_S3_BUCKET required for s3 driver")
	}
	cfg := Config{
		Bucket:    bucket,
		Region:    os.Getenv("RENTLEDGER_S3_REGION"),
		Endpoint:  os.Getenv("RENTLEDGER_S3_ENDPOINT"),
		PathStyle: strings.EqualFold(os.Getenv("RENTLEDGER_S3_PATH_STYLE"), "true"),
	}
	return New(ctx, cfg)
}

// Driver returns the docstore driver identifier.
func (s *Store) Driver() docstore.Driver { return docstore.DriverS3 }

func objectKey(userID string) (string, error) {
	if strings.TrimSpace(userID) == "" {
		return "", fmt.Errorf("empty user id")
	}
	if strings.ContainsAny(userID, "/\\") {
		return "", fmt.Errorf("invalid user id %q", userID)
	}
	return "users/" + userID + ".json", nil
}

// Read fetches the user's document object; a missing key reports ok=false.
func (s *Store) Read(ctx context.Context, userID string) (docstore.Document, bool, error) {
	key, err := objectKey(userID)
	if err != nil {
		return docstore.Document{}, false, err
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: &s.bucket, Key: &key})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return docstore.Document{}, false, nil
		}
		return docstore.Document{}, false, fmt.Errorf("get object: %w", err)
	}
	defer func() { _ = out.Body.Close() }()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return docstore.Document{}, false, err
	}
	var doc docstore.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return docstore.Document{}, false, fmt.Errorf("decode document: %w", err)
	}
	return doc, true, nil
}

// Write overwrites the user's document object.
func (s *Store) Write(ctx context.Context, userID string, doc docstore.Document) error {
	key, err := objectKey(userID)
	if err != nil {
		return err
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	contentType := "application/json"
	if _, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &s.bucket,
		Key:         &key,
		Body:        bytes.NewReader(data),
		ContentType: &contentType,
	}); err != nil {
		return fmt.Errorf("put object: %w", err)
	}
	return nil
}
