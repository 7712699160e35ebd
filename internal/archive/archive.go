// Package archive keeps the raw bytes of every uploaded statement, keyed by
// content checksum, so an import can be audited or replayed later.
package archive

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/storage"
)

// Archiver stores a statement file and returns a URI for it.
type Archiver interface {
	Put(ctx context.Context, userID, fileName string, data []byte) (string, error)
}

// Key returns the object key <user>/<sha256>/<file>.
func Key(userID, fileName string, data []byte) (string, error) {
	user := strings.TrimSpace(userID)
	if user == "" || strings.ContainsAny(user, `/\`) || user == "." || user == ".." {
		return "", fmt.Errorf("invalid user id %q", userID)
	}
	name := path.Base(strings.ReplaceAll(fileName, `\`, "/"))
	if name == "." || name == "/" || name == "" {
		return "", fmt.Errorf("invalid file name %q", fileName)
	}
	sum := sha256.Sum256(data)
	return path.Join(user, hex.EncodeToString(sum[:]), name), nil
}

// DirArchiver writes files under a local directory.
type DirArchiver struct {
	Root string
}

// Put writes data unless the same content is already archived.
func (a DirArchiver) Put(_ context.Context, userID, fileName string, data []byte) (string, error) {
	key, err := Key(userID, fileName, data)
	if err != nil {
		return "", err
	}
	dst := filepath.Join(a.Root, filepath.FromSlash(key))
	uri := "file://" + filepath.ToSlash(dst)

	if _, err := os.Stat(dst); err == nil {
		return uri, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("stat %s: %w", dst, err)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("creating archive dir: %w", err)
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", dst, err)
	}
	return uri, nil
}

// GCSArchiver uploads files to a Google Cloud Storage bucket. Credentials
// come from Application Default Credentials.
type GCSArchiver struct {
	client  *storage.Client
	bucket  string
	timeout time.Duration
}

// NewGCSArchiver creates a storage client for bucket.
func NewGCSArchiver(ctx context.Context, bucket string) (*GCSArchiver, error) {
	if bucket == "" {
		return nil, errors.New("gcs archive: bucket is required")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &GCSArchiver{client: client, bucket: bucket, timeout: 2 * time.Minute}, nil
}

// Put uploads data to gs://<bucket>/<key>.
func (a *GCSArchiver) Put(ctx context.Context, userID, fileName string, data []byte) (string, error) {
	key, err := Key(userID, fileName, data)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	w := a.client.Bucket(a.bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType(fileName)
	w.Metadata = map[string]string{"user": userID, "file": path.Base(key)}

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("write to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalize upload: %w", err)
	}
	return GCSURI(a.bucket, key), nil
}

// Close releases the storage client.
func (a *GCSArchiver) Close() error {
	return a.client.Close()
}

// GCSURI formats a gs:// URI.
func GCSURI(bucket, key string) string {
	return "gs://" + bucket + "/" + key
}

func contentType(fileName string) string {
	switch strings.ToLower(path.Ext(fileName)) {
	case ".pdf":
		return "application/pdf"
	case ".csv":
		return "text/csv"
	case ".qif":
		return "application/qif"
	}
	if t := mime.TypeByExtension(path.Ext(fileName)); t != "" {
		return t
	}
	return "application/octet-stream"
}
