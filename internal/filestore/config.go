package filestore

// Provider identifies the object storage backend.
type Provider string

const (
	ProviderMinIO Provider = "minio"
)

// DefaultBucket receives schema snapshots when no bucket is configured.
const DefaultBucket = "sqlany-snapshots"

// Config holds the settings needed to reach the object store that schema
// snapshots are published to.
type Config struct {
	// Provider is the storage backend. Empty disables snapshot publishing.
	Provider Provider `yaml:"provider"`

	// Endpoint is the host:port of the storage server.
	// Example: "localhost:9000" for local MinIO.
	Endpoint string `yaml:"endpoint"`

	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`

	// UseSSL controls whether TLS is used for the connection.
	UseSSL bool `yaml:"use_ssl"`

	// Region is used by region-aware backends. Leave empty for MinIO.
	Region string `yaml:"region"`

	// Bucket holds the snapshots; it is created on first publish.
	Bucket string `yaml:"bucket"`
}

// DefaultConfig returns a local-dev config for MinIO.
func DefaultConfig(endpoint, accessKey, secretKey string) *Config {
	return &Config{
		Provider:  ProviderMinIO,
		Endpoint:  endpoint,
		AccessKey: accessKey,
		SecretKey: secretKey,
		UseSSL:    false,
		Bucket:    DefaultBucket,
	}
}

// Enabled reports whether a backend is configured.
func (c *Config) Enabled() bool {
	return c != nil && c.Provider != "" && c.Endpoint != ""
}
