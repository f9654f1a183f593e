// Package config implements TOML configuration loading, validation, and
// platform-specific path resolution for attendance-go. Values are layered
// defaults -> config file -> environment -> CLI flags.
package config

// Config is the parsed configuration file. Keys are flat at the top level;
// the embedded sections only group related fields.
type Config struct {
	AuthConfig
	DriveConfig
	CipherConfig
	HistoryConfig
	LoggingConfig
	NetworkConfig
}

// AuthConfig selects the OAuth client and consent flow.
type AuthConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	AuthFlow     string `toml:"auth_flow"`
}

// DriveConfig locates the destination folder and the Drive endpoints.
type DriveConfig struct {
	FolderName    string `toml:"folder_name"`
	APIBaseURL    string `toml:"api_base_url"`
	UploadBaseURL string `toml:"upload_base_url"`
}

// CipherConfig selects the encryption scheme for new uploads.
type CipherConfig struct {
	CipherScheme string `toml:"cipher_scheme"`
}

// HistoryConfig controls the local upload journal.
type HistoryConfig struct {
	History     bool   `toml:"history"`
	HistoryPath string `toml:"history_path"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
}

// NetworkConfig controls HTTP behavior.
type NetworkConfig struct {
	RequestTimeout string `toml:"request_timeout"`
}
