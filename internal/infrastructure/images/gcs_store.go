package images

import (
	"context"
	"io"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/feedstream/internal/application"
	"github.com/oksasatya/feedstream/pkg/helpers"
)

// GCSStore stores feed images in a Google Cloud Storage bucket and
// releases them by deleting the object.
type GCSStore struct {
	Client *storage.Client
	Bucket string
}

func NewGCSStore(client *storage.Client, bucket string) *GCSStore {
	return &GCSStore{Client: client, Bucket: bucket}
}

func (s *GCSStore) Store(ctx context.Context, r io.Reader, filename, contentType string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	objectPath := filepath.ToSlash(filepath.Join("images", uuid.NewString()+ext))
	return helpers.UploadObject(ctx, s.Client, s.Bucket, objectPath, contentType, r)
}

func (s *GCSStore) Release(ctx context.Context, url string) error {
	objectPath := helpers.ObjectPathFromURL(s.Bucket, url)
	if objectPath == "" {
		// foreign URL, nothing to release
		return nil
	}
	return helpers.DeleteObject(ctx, s.Client, s.Bucket, objectPath)
}

var _ application.ImageStore = (*GCSStore)(nil)

// ReleaseJob is the payload placed on the image-release queue.
type ReleaseJob struct {
	ImageURL string `json:"image_url"`
}

// QueuedStore stores images directly but hands releases to a RabbitMQ
// queue so a worker retries them independently of the request path.
// When the broker is unavailable it falls back to releasing inline.
type QueuedStore struct {
	Direct *GCSStore
	Pub    *helpers.RabbitPublisher
	Queue  string
	Logger *logrus.Logger
}

func NewQueuedStore(direct *GCSStore, pub *helpers.RabbitPublisher, queue string, logger *logrus.Logger) *QueuedStore {
	return &QueuedStore{Direct: direct, Pub: pub, Queue: queue, Logger: logger}
}

func (q *QueuedStore) Store(ctx context.Context, r io.Reader, filename, contentType string) (string, error) {
	return q.Direct.Store(ctx, r, filename, contentType)
}

func (q *QueuedStore) Release(ctx context.Context, url string) error {
	if q.Pub != nil {
		err := q.Pub.PublishJSON(ctx, q.Queue, ReleaseJob{ImageURL: url})
		if err == nil {
			return nil
		}
		if q.Logger != nil {
			q.Logger.WithError(err).Warn("image release enqueue failed, releasing inline")
		}
	}
	return q.Direct.Release(ctx, url)
}

var _ application.ImageStore = (*QueuedStore)(nil)
