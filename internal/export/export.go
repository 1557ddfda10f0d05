// Package export mirrors fetched job results into an S3-compatible object
// store, so render farms can hand artifacts to downstream pipelines without
// sharing the engine's local disk.
package export

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"path"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/vk/comfygridgo/internal/ctxlog"
)

// Config addresses the target bucket.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
	UseSSL    bool
}

// Store uploads result artifacts under <prefix>/<promptID>/<filename>.
type Store struct {
	mc     *minio.Client
	bucket string
	prefix string
}

// New builds an object-store sink from the given config.
func New(cfg Config) (*Store, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("export requires an endpoint and a bucket")
	}
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create object-store client: %w", err)
	}
	return &Store{mc: mc, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

// objectName joins the configured prefix, the job id and the artifact name.
func (s *Store) objectName(promptID, filename string) string {
	return path.Join(s.prefix, promptID, filename)
}

// Put uploads every artifact of one finished job.
func (s *Store) Put(ctx context.Context, promptID string, images map[string][]byte) error {
	logger := ctxlog.FromContext(ctx).With("bucket", s.bucket, "prompt_id", promptID)
	for filename, data := range images {
		name := s.objectName(promptID, filename)
		contentType := http.DetectContentType(data)
		_, err := s.mc.PutObject(ctx, s.bucket, name, bytes.NewReader(data), int64(len(data)),
			minio.PutObjectOptions{ContentType: contentType})
		if err != nil {
			return fmt.Errorf("failed to upload %s: %w", name, err)
		}
		logger.Info("Artifact exported.", "object", name, "bytes", len(data))
	}
	return nil
}
