// Copyright 2026 ZapDrive Authors
// SPDX-License-Identifier: Apache-2.0

package blobstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/LeeDigitalWorks/zapdrive/pkg/types"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

const (
	// crcMetadataKey is the user metadata key carrying the chunk's
	// CRC-64/NVME checksum, hex encoded.
	crcMetadataKey = "crc64nvme"

	defaultPresignTTL = 15 * time.Minute

	// deleteBatchMax is the S3 DeleteObjects per-request limit.
	deleteBatchMax = 1000
)

func init() {
	Register(types.StorageTypeS3, NewS3)
}

// S3 implements Store for S3-compatible object storage
type S3 struct {
	client        *s3.Client
	presign       *s3.PresignClient
	bucket        string
	publicBaseURL string
	presignTTL    time.Duration
}

// NewS3 creates an S3 blob store
func NewS3(cfg types.BackendConfig) (Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket required for S3 backend")
	}

	opts := []func(*config.LoadOptions) error{
		// Shared HTTP client for connection reuse across uploads.
		config.WithHTTPClient(&http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		}),
	}

	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}

	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	s3Opts := []func(*s3.Options){}
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}
	if cfg.PathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	client := s3.NewFromConfig(awsCfg, s3Opts...)

	ttl := cfg.PresignTTL
	if ttl <= 0 {
		ttl = defaultPresignTTL
	}

	return &S3{
		client:        client,
		presign:       s3.NewPresignClient(client),
		bucket:        cfg.Bucket,
		publicBaseURL: cfg.PublicBaseURL,
		presignTTL:    ttl,
	}, nil
}

// Put stores one object. When the request forbids overwriting, the
// write carries If-None-Match: * so the existing object wins and the
// caller sees ErrKeyExists.
func (s *S3) Put(ctx context.Context, req PutRequest) error {
	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(req.Key),
		Body:          bytes.NewReader(req.Data),
		ContentLength: aws.Int64(int64(len(req.Data))),
		Metadata: map[string]string{
			crcMetadataKey: strconv.FormatUint(req.CRC64, 16),
		},
	}
	if req.ContentType != "" {
		input.ContentType = aws.String(req.ContentType)
	}
	if !req.AllowOverwrite {
		input.IfNoneMatch = aws.String("*")
	}

	start := time.Now()
	_, err := s.client.PutObject(ctx, input)
	observeOp("put", types.StorageTypeS3, start, err)
	if err != nil {
		if isPreconditionFailed(err) {
			return fmt.Errorf("put object %s: %w", req.Key, ErrKeyExists)
		}
		return fmt.Errorf("put object %s: %w", req.Key, err)
	}
	bytesWrittenTotal.WithLabelValues(string(types.StorageTypeS3)).Add(float64(len(req.Data)))
	return nil
}

// URL returns the public URL when the bucket fronts a CDN, a presigned
// GET otherwise.
func (s *S3) URL(ctx context.Context, key string) (string, error) {
	if s.publicBaseURL != "" {
		return s.publicBaseURL + "/" + key, nil
	}

	out, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.presignTTL))
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}
	return out.URL, nil
}

// Remove deletes keys in DeleteObjects batches.
func (s *S3) Remove(ctx context.Context, keys ...string) error {
	for start := 0; start < len(keys); start += deleteBatchMax {
		end := start + deleteBatchMax
		if end > len(keys) {
			end = len(keys)
		}

		objects := make([]s3types.ObjectIdentifier, 0, end-start)
		for _, k := range keys[start:end] {
			objects = append(objects, s3types.ObjectIdentifier{Key: aws.String(k)})
		}

		began := time.Now()
		_, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s.bucket),
			Delete: &s3types.Delete{
				Objects: objects,
				Quiet:   aws.Bool(true),
			},
		})
		observeOp("remove", types.StorageTypeS3, began, err)
		if err != nil {
			return fmt.Errorf("delete objects: %w", err)
		}
	}
	return nil
}

func (s *S3) Close() error {
	return nil
}

// isPreconditionFailed reports whether err is the HTTP 412 returned
// for a failed If-None-Match write.
func isPreconditionFailed(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorCode() == "PreconditionFailed" {
		return true
	}
	return false
}
