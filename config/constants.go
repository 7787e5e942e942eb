package config

const (
	// DefaultCredentialsFile is read from the working directory.
	DefaultCredentialsFile = "dl.cfg"

	KeyAccessKeyID     = "AWS_ACCESS_KEY_ID"
	KeySecretAccessKey = "AWS_SECRET_ACCESS_KEY"
	KeyRegion          = "AWS_REGION"
	KeyEndpoint        = "S3_ENDPOINT"
	KeyUseSSL          = "S3_USE_SSL"
	KeyURLStyle        = "S3_URL_STYLE"

	URLStylePath    = "path"
	URLStyleVirtual = "virtual"
)
