package config

import "os"

// Environment variable names for overrides.
const (
	EnvConfig       = "ATTENDANCE_GO_CONFIG"
	EnvClientID     = "ATTENDANCE_GO_CLIENT_ID"
	EnvClientSecret = "ATTENDANCE_GO_CLIENT_SECRET"
	EnvFolder       = "ATTENDANCE_GO_FOLDER"
)

// EnvOverrides holds values derived from environment variables.
type EnvOverrides struct {
	ConfigPath   string // ATTENDANCE_GO_CONFIG: config file path
	ClientID     string // ATTENDANCE_GO_CLIENT_ID: OAuth client ID
	ClientSecret string // ATTENDANCE_GO_CLIENT_SECRET: OAuth client secret
	FolderName   string // ATTENDANCE_GO_FOLDER: destination folder name
}

// ReadEnvOverrides reads environment variables and returns any overrides found.
func ReadEnvOverrides() EnvOverrides {
	return EnvOverrides{
		ConfigPath:   os.Getenv(EnvConfig),
		ClientID:     os.Getenv(EnvClientID),
		ClientSecret: os.Getenv(EnvClientSecret),
		FolderName:   os.Getenv(EnvFolder),
	}
}
