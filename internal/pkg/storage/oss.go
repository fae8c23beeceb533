package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"

	"github.com/qs3c/powerplan_server/config"
)

type OSSStore struct {
	client     *oss.Client
	bucket     *oss.Bucket
	bucketName string
	cdnDomain  string
}

func NewOSSStore(cfg *config.OSSConfig) (*OSSStore, error) {
	client, err := oss.New(cfg.Endpoint, cfg.AccessKeyID, cfg.AccessKeySecret)
	if err != nil {
		return nil, fmt.Errorf("failed to create OSS client: %w", err)
	}

	bucket, err := client.Bucket(cfg.BucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to get bucket: %w", err)
	}

	return &OSSStore{
		client:     client,
		bucket:     bucket,
		bucketName: cfg.BucketName,
		cdnDomain:  cfg.CDNDomain,
	}, nil
}

// Put 上传账单文件
func (s *OSSStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	err := s.bucket.PutObject(key, bytes.NewReader(data),
		oss.ContentType(contentType),
		oss.WithContext(ctx),
		oss.ContentDisposition(fmt.Sprintf("attachment; filename=%q", lastSegment(key))),
	)
	if err != nil {
		return "", fmt.Errorf("failed to upload bill: %w", err)
	}

	return s.URL(key), nil
}

// SignedURL 生成带签名的临时下载地址
func (s *OSSStore) SignedURL(_ context.Context, key string, expire time.Duration) (string, error) {
	seconds := int64(expire.Seconds())
	if seconds <= 0 {
		seconds = 3600
	}

	signedURL, err := s.bucket.SignURL(key, oss.HTTPGet, seconds)
	if err != nil {
		return "", fmt.Errorf("failed to generate signed URL: %w", err)
	}
	return signedURL, nil
}

func (s *OSSStore) Delete(ctx context.Context, key string) error {
	if err := s.bucket.DeleteObject(key, oss.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

// URL 公共访问地址，配置了 CDN 时走 CDN
func (s *OSSStore) URL(key string) string {
	if s.cdnDomain != "" {
		return fmt.Sprintf("https://%s/%s", s.cdnDomain, key)
	}
	endpoint := strings.TrimPrefix(strings.TrimPrefix(s.client.Config.Endpoint, "https://"), "http://")
	return fmt.Sprintf("https://%s.%s/%s", s.bucketName, endpoint, key)
}

func lastSegment(key string) string {
	if i := strings.LastIndex(key, "/"); i >= 0 {
		return key[i+1:]
	}
	return key
}
