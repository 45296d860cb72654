package config

type SecurityConfig interface {
	// GetCredentialsKey returns the base64 encoded 32 byte key used to seal stored credentials.
	// Empty means credentials are stored unsealed.
	GetCredentialsKey() string
}

type Security struct{}

var _ SecurityConfig = Security{}

func (Security) GetCredentialsKey() string {
	return GetEnv("CREDENTIALS_KEY", "")
}
