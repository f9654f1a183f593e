package config

import (
	"github.com/vocos/attendance-go/internal/auth"
	"github.com/vocos/attendance-go/internal/cipher"
	"github.com/vocos/attendance-go/internal/drive"
	"github.com/vocos/attendance-go/internal/upload"
)

// Default values for configuration options, layer 0 of the override chain.
const (
	defaultLogLevel       = "info"
	defaultLogFormat      = "auto"
	defaultRequestTimeout = "60s"
)

// DefaultConfig returns a Config populated with all default values. It is
// both the starting point for TOML decoding and the fallback when no
// config file exists. history_path is filled in by Resolve.
func DefaultConfig() *Config {
	return &Config{
		AuthConfig: AuthConfig{
			ClientID: auth.DefaultClientID,
			AuthFlow: string(auth.FlowBrowser),
		},
		DriveConfig: DriveConfig{
			FolderName:    upload.DefaultFolderName,
			APIBaseURL:    drive.DefaultAPIBaseURL,
			UploadBaseURL: drive.DefaultUploadBaseURL,
		},
		CipherConfig: CipherConfig{
			CipherScheme: cipher.SchemeOpenSSL,
		},
		HistoryConfig: HistoryConfig{
			History: true,
		},
		LoggingConfig: LoggingConfig{
			LogLevel:  defaultLogLevel,
			LogFormat: defaultLogFormat,
		},
		NetworkConfig: NetworkConfig{
			RequestTimeout: defaultRequestTimeout,
		},
	}
}
