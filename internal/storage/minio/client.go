// Package minio stores each key as an object in a bucket. One bucket is one
// origin; bucket notifications carry changes to the other handles.
package minio

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/notification"

	"github.com/dtroode/moviecat/internal/logger"
	"github.com/dtroode/moviecat/internal/model"
)

const (
	objectPrefix  = "kv/"
	metaOrigin    = "origin"
	metaTombstone = "tombstone"
	eventBuffer   = 64
)

// Internal adapter interface to enable mocking without a real MinIO server.
type minioAPI interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (io.ReadCloser, error)
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	ListenBucketNotification(ctx context.Context, bucketName, prefix, suffix string, events []string) <-chan notification.Info
}

// Wrapper to adapt *minio.Client to minioAPI.
type minioClientWrapper struct{ c *minio.Client }

func (w minioClientWrapper) BucketExists(ctx context.Context, bucketName string) (bool, error) {
	return w.c.BucketExists(ctx, bucketName)
}
func (w minioClientWrapper) MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error {
	return w.c.MakeBucket(ctx, bucketName, opts)
}
func (w minioClientWrapper) PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	return w.c.PutObject(ctx, bucketName, objectName, reader, objectSize, opts)
}
func (w minioClientWrapper) GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (io.ReadCloser, error) {
	obj, err := w.c.GetObject(ctx, bucketName, objectName, opts)
	if err != nil {
		return nil, err
	}
	return obj, nil
}
func (w minioClientWrapper) StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error) {
	return w.c.StatObject(ctx, bucketName, objectName, opts)
}
func (w minioClientWrapper) ListenBucketNotification(ctx context.Context, bucketName, prefix, suffix string, events []string) <-chan notification.Info {
	return w.c.ListenBucketNotification(ctx, bucketName, prefix, suffix, events)
}

var _ model.Storage = (*Client)(nil)

// Client is a storage handle onto a bucket. Removal writes an empty
// tombstone object so the change reaches watchers with its origin.
type Client struct {
	api    minioAPI
	bucket string
	id     string
	logger *logger.Logger
}

// NewClient creates a new MinIO storage client using a real *minio.Client instance.
func NewClient(ctx context.Context, client *minio.Client, bucket string, logger *logger.Logger) (*Client, error) {
	return NewClientWithAPI(ctx, minioClientWrapper{c: client}, bucket, logger)
}

// NewClientWithAPI allows injecting a mockable API (used in tests).
func NewClientWithAPI(ctx context.Context, api minioAPI, bucket string, logger *logger.Logger) (*Client, error) {
	c := &Client{
		api:    api,
		bucket: bucket,
		id:     uuid.NewString(),
		logger: logger,
	}

	err := c.ensureBucketExists(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure bucket exists: %w", err)
	}

	return c, nil
}

// ensureBucketExists creates the bucket if it doesn't exist
func (c *Client) ensureBucketExists(ctx context.Context) error {
	exists, err := c.api.BucketExists(ctx, c.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	if !exists {
		err = c.api.MakeBucket(ctx, c.bucket, minio.MakeBucketOptions{})
		if err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
		c.logger.Info("MinIO storage: bucket created",
			"bucket", c.bucket)
	}

	return nil
}

// Get returns the value for key.
func (c *Client) Get(ctx context.Context, key string) (string, bool, error) {
	ok, err := c.exists(ctx, key)
	if err != nil || !ok {
		return "", false, err
	}

	obj, err := c.api.GetObject(ctx, c.bucket, objectName(key), minio.GetObjectOptions{})
	if err != nil {
		return "", false, fmt.Errorf("failed to get object: %w", err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return "", false, fmt.Errorf("failed to read object: %w", err)
	}

	return string(data), true, nil
}

// Set overwrites key.
func (c *Client) Set(ctx context.Context, key, value string) error {
	opts := minio.PutObjectOptions{
		ContentType:  "application/json",
		UserMetadata: map[string]string{metaOrigin: c.id},
	}
	_, err := c.api.PutObject(ctx, c.bucket, objectName(key), strings.NewReader(value), int64(len(value)), opts)
	if err != nil {
		return fmt.Errorf("failed to upload object: %w", err)
	}
	return nil
}

// Remove replaces key with a tombstone. Removing an absent key changes nothing.
func (c *Client) Remove(ctx context.Context, key string) error {
	ok, err := c.exists(ctx, key)
	if err != nil || !ok {
		return err
	}

	opts := minio.PutObjectOptions{
		UserMetadata: map[string]string{
			metaOrigin:    c.id,
			metaTombstone: "true",
		},
	}
	_, err = c.api.PutObject(ctx, c.bucket, objectName(key), strings.NewReader(""), 0, opts)
	if err != nil {
		return fmt.Errorf("failed to write tombstone: %w", err)
	}
	return nil
}

// exists checks if a live (non-tombstone) object is stored for key.
func (c *Client) exists(ctx context.Context, key string) (bool, error) {
	info, err := c.api.StatObject(ctx, c.bucket, objectName(key), minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat object: %w", err)
	}
	return metadata(info.UserMetadata, metaTombstone) != "true", nil
}

// Watch streams object writes made by other handles until ctx is done.
func (c *Client) Watch(ctx context.Context) (<-chan model.StorageEvent, error) {
	notes := c.api.ListenBucketNotification(ctx, c.bucket, objectPrefix, "", []string{"s3:ObjectCreated:*"})
	if notes == nil {
		return nil, fmt.Errorf("failed to listen for bucket notifications")
	}

	ch := make(chan model.StorageEvent, eventBuffer)

	go func() {
		defer close(ch)

		for {
			var (
				info notification.Info
				ok   bool
			)
			select {
			case <-ctx.Done():
				return
			case info, ok = <-notes:
				if !ok {
					return
				}
			}

			if info.Err != nil {
				c.logger.Warn("MinIO storage: notification error",
					"error", info.Err.Error())
				continue
			}

			for _, record := range info.Records {
				ev, ok := c.event(ctx, record)
				if !ok || ev.Origin == c.id {
					continue
				}
				select {
				case ch <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return ch, nil
}

func (c *Client) event(ctx context.Context, record notification.Event) (model.StorageEvent, bool) {
	name, err := url.QueryUnescape(record.S3.Object.Key)
	if err != nil {
		name = record.S3.Object.Key
	}
	if !strings.HasPrefix(name, objectPrefix) {
		return model.StorageEvent{}, false
	}

	ev := model.StorageEvent{
		Key:    strings.TrimPrefix(name, objectPrefix),
		Origin: metadata(record.S3.Object.UserMetadata, metaOrigin),
	}

	if ev.Origin == "" {
		info, err := c.api.StatObject(ctx, c.bucket, name, minio.StatObjectOptions{})
		if err != nil {
			c.logger.Warn("MinIO storage: failed to stat changed object",
				"key", ev.Key,
				"error", err.Error())
		} else {
			ev.Origin = metadata(info.UserMetadata, metaOrigin)
		}
	}

	return ev, true
}

// Origin returns the handle id.
func (c *Client) Origin() string {
	return c.id
}

// Close is a no-op; the underlying client holds no open resources.
func (c *Client) Close() error {
	return nil
}

func objectName(key string) string {
	return objectPrefix + key
}

// metadata looks up a user metadata value whether or not the server kept the
// X-Amz-Meta- prefix.
func metadata(meta map[string]string, name string) string {
	for k, v := range meta {
		k = strings.ToLower(k)
		k = strings.TrimPrefix(k, "x-amz-meta-")
		if k == name {
			return v
		}
	}
	return ""
}
