// Package config loads the object store credentials file.
//
// The file holds KEY=VALUE lines. An INI section header such as [AWS] may
// precede them and is ignored. Values are returned to the caller and never
// exported to the process environment.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/malbeclabs/sparkify-lake/lake/pkg/duck"
)

var ErrConfigMissing = duck.ErrConfigMissing

type Credentials struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	Endpoint        string
	// UseSSL and URLStyle override what the endpoint implies when set.
	UseSSL   *bool
	URLStyle string
}

// ReadCredentials parses the credentials file at path.
func ReadCredentials(path string) (*Credentials, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: credentials file %s not found", ErrConfigMissing, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file %s: %w", path, err)
	}

	values, err := godotenv.Unmarshal(stripSections(string(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse credentials file %s: %w", path, err)
	}

	creds := &Credentials{
		AccessKeyID:     values[KeyAccessKeyID],
		SecretAccessKey: values[KeySecretAccessKey],
		Region:          values[KeyRegion],
		Endpoint:        values[KeyEndpoint],
		URLStyle:        strings.ToLower(values[KeyURLStyle]),
	}
	if v, ok := values[KeyUseSSL]; ok && v != "" {
		useSSL, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid %s value %q: %w", KeyUseSSL, v, err)
		}
		creds.UseSSL = &useSSL
	}
	switch creds.URLStyle {
	case "", URLStylePath, URLStyleVirtual:
	default:
		return nil, fmt.Errorf("invalid %s value %q: must be %q or %q", KeyURLStyle, creds.URLStyle, URLStylePath, URLStyleVirtual)
	}
	return creds, nil
}

// S3Config builds the engine and storage configuration. Both keys must be
// present.
func (c *Credentials) S3Config() (*duck.S3Config, error) {
	var missing []string
	if c.AccessKeyID == "" {
		missing = append(missing, KeyAccessKeyID)
	}
	if c.SecretAccessKey == "" {
		missing = append(missing, KeySecretAccessKey)
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s not set", ErrConfigMissing, strings.Join(missing, ", "))
	}

	cfg, err := duck.NewS3Config(c.AccessKeyID, c.SecretAccessKey, c.Endpoint, c.Region)
	if err != nil {
		return nil, err
	}
	if c.UseSSL != nil {
		cfg.UseSSL = *c.UseSSL
	}
	if c.URLStyle != "" {
		cfg.URLStyle = c.URLStyle
	}
	return cfg, nil
}

// LoadS3Config reads path and builds an S3 configuration from it.
func LoadS3Config(path string) (*duck.S3Config, error) {
	creds, err := ReadCredentials(path)
	if err != nil {
		return nil, err
	}
	return creds.S3Config()
}

func stripSections(s string) string {
	var b strings.Builder
	scanner := bufio.NewScanner(strings.NewReader(s))
	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]") {
			continue
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}
