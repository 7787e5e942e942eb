package duck

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDuck_ParseLocation(t *testing.T) {
	tests := []struct {
		name       string
		uri        string
		wantErr    bool
		errMsg     string
		wantScheme string
		wantBucket string
		wantPath   string
	}{
		{
			name:    "empty URI",
			uri:     "",
			wantErr: true,
			errMsg:  "location URI is required",
		},
		{
			name:       "valid file URI",
			uri:        "file:///tmp/storage",
			wantScheme: SchemeFile,
			wantPath:   "/tmp/storage",
		},
		{
			name:    "empty file path",
			uri:     "file://",
			wantErr: true,
			errMsg:  "location URI file:// path cannot be empty",
		},
		{
			name:       "bare absolute path",
			uri:        "/data/out",
			wantScheme: SchemeFile,
			wantPath:   "/data/out",
		},
		{
			name:       "valid s3 URI",
			uri:        "s3://my-bucket/path",
			wantScheme: SchemeS3,
			wantBucket: "my-bucket",
			wantPath:   "path",
		},
		{
			name:       "s3a URI normalised",
			uri:        "s3a://udacity-dend/",
			wantScheme: SchemeS3,
			wantBucket: "udacity-dend",
			wantPath:   "",
		},
		{
			name:       "s3n URI with glob",
			uri:        "s3n://udacity-dend/song_data/*/*/*/*.json",
			wantScheme: SchemeS3,
			wantBucket: "udacity-dend",
			wantPath:   "song_data/*/*/*/*.json",
		},
		{
			name:    "s3 URI without bucket",
			uri:     "s3:///path",
			wantErr: true,
			errMsg:  "s3:// URI must include a bucket name",
		},
		{
			name:    "s3 URI with short bucket name",
			uri:     "s3://ab/path",
			wantErr: true,
			errMsg:  "s3 bucket name must be between 3 and 63 characters",
		},
		{
			name:    "s3 URI with long bucket name",
			uri:     "s3://" + strings.Repeat("a", 64) + "/path",
			wantErr: true,
			errMsg:  "s3 bucket name must be between 3 and 63 characters",
		},
		{
			name:    "invalid scheme",
			uri:     "http://example.com",
			wantErr: true,
			errMsg:  "location URI must start with file:// or s3://",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc, err := ParseLocation(tt.uri)
			if tt.wantErr {
				require.Error(t, err)
				if tt.errMsg != "" {
					require.Contains(t, err.Error(), tt.errMsg)
				}
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.wantScheme, loc.Scheme)
			require.Equal(t, tt.wantBucket, loc.Bucket)
			require.Equal(t, tt.wantPath, loc.Path)
		})
	}
}

func TestDuck_ParseLocation_RelativePathIsAbsolute(t *testing.T) {
	loc, err := ParseLocation("out/parquet")
	require.NoError(t, err)
	require.True(t, filepath.IsAbs(loc.Path))
	require.True(t, strings.HasSuffix(loc.Path, filepath.Join("out", "parquet")))
}

func TestDuck_Location_JoinAndString(t *testing.T) {
	s3loc, err := ParseLocation("s3a://udacity-test-sparkify/")
	require.NoError(t, err)
	require.Equal(t, "s3://udacity-test-sparkify", s3loc.String())
	require.Equal(t, "s3://udacity-test-sparkify/parquet/songs", s3loc.Join("parquet", "songs").String())
	require.Equal(t, "s3://udacity-test-sparkify/parquet/songs/**/*.parquet", s3loc.Join("parquet/songs", "**", "*.parquet").String())

	local, err := ParseLocation("file:///tmp/in")
	require.NoError(t, err)
	require.Equal(t, "/tmp/in/log_data/*.json", local.Join("log_data/*.json").String())

	require.True(t, AnyS3(local, s3loc))
	require.False(t, AnyS3(local))
}

func TestDuck_Location_StringDropsQuery(t *testing.T) {
	loc, err := ParseLocation("s3a://bucket-name/data?accessKey=abc&region=us-east-1")
	require.NoError(t, err)
	require.Equal(t, "data", loc.Path)
	require.Equal(t, "s3://bucket-name/data", loc.String())
	require.NotContains(t, loc.Join("parquet", "songs").String(), "abc")
}
