package duck

import (
	"fmt"
	"strings"
)

const defaultRegion = "us-east-1"

// S3Config holds configuration for S3-compatible storage (AWS S3, MinIO, etc.)
type S3Config struct {
	AccessKeyID     string // S3 access key ID
	SecretAccessKey string // S3 secret access key
	Endpoint        string // S3 endpoint (e.g., "localhost:9000" for MinIO, empty for AWS)
	Region          string // S3 region (e.g., "us-east-1")
	UseSSL          bool   // Whether to use SSL/TLS (typically false for MinIO, true for AWS)
	URLStyle        string // URL style: "path" or "virtual"
}

// NewS3Config builds an S3Config from explicit credentials. An endpoint that
// is not an amazonaws.com host is treated as MinIO: plain HTTP and path-style
// addressing unless overridden afterwards.
func NewS3Config(accessKeyID, secretAccessKey, endpoint, region string) (*S3Config, error) {
	if accessKeyID == "" || secretAccessKey == "" {
		return nil, fmt.Errorf("%w: both access key ID and secret access key are required", ErrConfigMissing)
	}
	if region == "" {
		region = defaultRegion
	}
	cfg := &S3Config{
		AccessKeyID:     accessKeyID,
		SecretAccessKey: secretAccessKey,
		Endpoint:        endpoint,
		Region:          region,
		UseSSL:          true,
		URLStyle:        "virtual",
	}
	if cfg.IsMinIO() {
		cfg.UseSSL = false
		cfg.URLStyle = "path"
	}
	return cfg, nil
}

// IsMinIO reports whether the endpoint points somewhere other than AWS.
func (c *S3Config) IsMinIO() bool {
	return c.Endpoint != "" && !strings.Contains(c.Endpoint, "amazonaws.com")
}

// EndpointHost returns the endpoint without its scheme, which is what the
// DuckDB S3 secret expects.
func (c *S3Config) EndpointHost() string {
	endpoint := strings.TrimPrefix(c.Endpoint, "http://")
	return strings.TrimPrefix(endpoint, "https://")
}

// EndpointURL returns the endpoint with a scheme, which is what the AWS SDK expects.
func (c *S3Config) EndpointURL() string {
	if c.Endpoint == "" {
		return ""
	}
	if strings.HasPrefix(c.Endpoint, "http://") || strings.HasPrefix(c.Endpoint, "https://") {
		return c.Endpoint
	}
	if c.UseSSL {
		return "https://" + c.Endpoint
	}
	return "http://" + c.Endpoint
}

func (c *S3Config) secretSQL() string {
	var b strings.Builder
	b.WriteString("CREATE OR REPLACE SECRET etl_s3 (TYPE s3")
	fmt.Fprintf(&b, ", KEY_ID %s", quoteLiteral(c.AccessKeyID))
	fmt.Fprintf(&b, ", SECRET %s", quoteLiteral(c.SecretAccessKey))
	if c.Endpoint != "" {
		fmt.Fprintf(&b, ", ENDPOINT %s", quoteLiteral(c.EndpointHost()))
	}
	if c.Region != "" {
		fmt.Fprintf(&b, ", REGION %s", quoteLiteral(c.Region))
	}
	urlStyle := c.URLStyle
	if urlStyle == "" {
		urlStyle = "path"
	}
	fmt.Fprintf(&b, ", URL_STYLE %s", quoteLiteral(urlStyle))
	fmt.Fprintf(&b, ", USE_SSL %t", c.UseSSL)
	b.WriteString(")")
	return b.String()
}
