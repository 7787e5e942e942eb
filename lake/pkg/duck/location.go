package duck

import (
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"
)

const (
	SchemeFile = "file"
	SchemeS3   = "s3"
)

// Location is a validated local or S3 path. Globs are allowed in the path.
type Location struct {
	Scheme string
	// Bucket is only set for S3 locations.
	Bucket string
	// Path is an absolute filesystem path for file locations and an object
	// key prefix (no leading slash) for S3 locations.
	Path string
}

// ParseLocation accepts file://, bare local paths, and s3:// URIs. The
// Hadoop-style s3a:// and s3n:// schemes are normalised to s3://.
func ParseLocation(uri string) (Location, error) {
	if uri == "" {
		return Location{}, fmt.Errorf("location URI is required")
	}

	if p, found := strings.CutPrefix(uri, "file://"); found {
		if p == "" {
			return Location{}, fmt.Errorf("location URI file:// path cannot be empty")
		}
		return localLocation(p)
	}

	for _, scheme := range []string{"s3://", "s3a://", "s3n://"} {
		if rest, found := strings.CutPrefix(uri, scheme); found {
			return s3Location("s3://" + rest)
		}
	}

	if strings.Contains(uri, "://") {
		return Location{}, fmt.Errorf("location URI must start with file:// or s3:// or be a local path (got: %q)", uri)
	}
	return localLocation(uri)
}

func localLocation(p string) (Location, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return Location{}, fmt.Errorf("failed to get absolute path for %q: %w", p, err)
	}
	return Location{Scheme: SchemeFile, Path: abs}, nil
}

func s3Location(uri string) (Location, error) {
	// Only the bucket comes from the parsed URL; the key keeps glob
	// characters verbatim.
	parsed, err := url.Parse(uri)
	if err != nil {
		return Location{}, fmt.Errorf("invalid s3:// URI format: %w", err)
	}
	if parsed.Host == "" {
		return Location{}, fmt.Errorf("s3:// URI must include a bucket name (e.g., s3://bucket-name/path)")
	}
	bucket := parsed.Host
	if len(bucket) < 3 || len(bucket) > 63 {
		return Location{}, fmt.Errorf("s3 bucket name must be between 3 and 63 characters")
	}
	key := strings.TrimPrefix(uri, "s3://"+bucket)
	key = strings.TrimPrefix(key, "/")
	if i := strings.IndexByte(key, '?'); i >= 0 {
		key = key[:i]
	}
	return Location{Scheme: SchemeS3, Bucket: bucket, Path: key}, nil
}

func (l Location) IsS3() bool {
	return l.Scheme == SchemeS3
}

// Join appends slash-separated elements to the location.
func (l Location) Join(elem ...string) Location {
	out := l
	parts := append([]string{l.Path}, elem...)
	if l.IsS3() {
		out.Path = strings.TrimPrefix(path.Join(parts...), "/")
		return out
	}
	out.Path = filepath.Join(parts...)
	return out
}

// String renders the location the way DuckDB expects it.
func (l Location) String() string {
	if l.IsS3() {
		if l.Path == "" {
			return "s3://" + l.Bucket
		}
		return "s3://" + l.Bucket + "/" + l.Path
	}
	return l.Path
}

// AnyS3 reports whether any of the locations lives in S3.
func AnyS3(locs ...Location) bool {
	for _, l := range locs {
		if l.IsS3() {
			return true
		}
	}
	return false
}
