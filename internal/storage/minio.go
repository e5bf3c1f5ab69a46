package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// SnapshotArchive stores point-in-time copies of document content in a MinIO
// bucket. Each persisted revision becomes its own immutable object.
type SnapshotArchive struct {
	client *minio.Client
	bucket string
}

// NewSnapshotArchive creates the archive client and ensures the bucket exists.
func NewSnapshotArchive(cfg *MinIOConfig) (*SnapshotArchive, error) {
	if cfg == nil || cfg.Endpoint == "" {
		return nil, fmt.Errorf("minio config missing")
	}
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio new: %w", err)
	}
	s := &SnapshotArchive{client: mc, bucket: cfg.Bucket}
	// ensure bucket exists (idempotent)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := mc.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		exist, xerr := mc.BucketExists(ctx, s.bucket)
		if xerr != nil || !exist {
			return nil, fmt.Errorf("minio bucket ensure: %w", err)
		}
	}
	return s, nil
}

// Archive uploads one content revision under snapshots/<docID>/<unix-nanos>.
func (s *SnapshotArchive) Archive(ctx context.Context, docID, content string) error {
	key := fmt.Sprintf("snapshots/%s/%d", docID, time.Now().UnixNano())
	r := strings.NewReader(content)
	_, err := s.client.PutObject(ctx, s.bucket, key, r, int64(r.Len()),
		minio.PutObjectOptions{ContentType: "text/plain; charset=utf-8"})
	if err != nil {
		return fmt.Errorf("minio put %s: %w", key, err)
	}
	return nil
}
