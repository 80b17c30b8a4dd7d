// Package source opens import files from the local disk or from Google
// Cloud Storage.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
)

const gcsScheme = "gs://"

// IsRemote reports whether uri names a Cloud Storage object.
func IsRemote(uri string) bool {
	return strings.HasPrefix(uri, gcsScheme)
}

// Open returns a reader for a local path or a gs://bucket/object URI.
// The caller closes it.
func Open(ctx context.Context, uri string) (io.ReadCloser, error) {
	if IsRemote(uri) {
		return openGCS(ctx, uri)
	}
	return OpenFile(uri)
}

// Name returns the base name of the file a URI points at, e.g.
// "gs://bucket/exports/dues.csv" -> "dues.csv".
func Name(uri string) string {
	if IsRemote(uri) {
		if _, object, err := ParseGCSURI(uri); err == nil {
			return filepath.Base(object)
		}
		return strings.TrimPrefix(uri, gcsScheme)
	}
	return filepath.Base(uri)
}

// FileExists checks if a file exists and is not a directory
func FileExists(filePath string) bool {
	info, err := os.Stat(filePath)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// OpenFile opens a local file for reading, returning an error if the file doesn't exist
func OpenFile(filePath string) (*os.File, error) {
	if filePath == "" {
		return nil, errors.New("no input file given")
	}
	if !FileExists(filePath) {
		return nil, fmt.Errorf("file does not exist: %s", filePath)
	}

	file, err := os.Open(filePath) // #nosec G304 -- path comes from the operator
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return file, nil
}

// ParseGCSURI splits gs://bucket/path/to/object into bucket and object.
func ParseGCSURI(uri string) (bucket, object string, err error) {
	if !IsRemote(uri) {
		return "", "", fmt.Errorf("invalid GCS URI: %s", uri)
	}
	bucket, object, ok := strings.Cut(strings.TrimPrefix(uri, gcsScheme), "/")
	if !ok || bucket == "" || object == "" {
		return "", "", fmt.Errorf("invalid GCS URI (no object path): %s", uri)
	}
	return bucket, object, nil
}

func openGCS(ctx context.Context, uri string) (io.ReadCloser, error) {
	bucket, object, err := ParseGCSURI(uri)
	if err != nil {
		return nil, err
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}

	r, err := client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("open GCS object %s/%s: %w", bucket, object, err)
	}
	return &gcsReader{Reader: r, client: client}, nil
}

// gcsReader closes the storage client together with the object reader.
type gcsReader struct {
	*storage.Reader
	client *storage.Client
}

func (g *gcsReader) Close() error {
	return errors.Join(g.Reader.Close(), g.client.Close())
}
