package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/vocos/attendance-go/internal/auth"
	"github.com/vocos/attendance-go/internal/cipher"
)

// Validation limits.
const (
	minRequestTimeout = 1 * time.Second
	maxFolderNameLen  = 255
)

// Validate checks all configuration values and returns every error found,
// so one run reports everything that needs fixing.
func Validate(cfg *Config) error {
	var errs []error

	errs = append(errs, validateAuth(&cfg.AuthConfig)...)
	errs = append(errs, validateDrive(&cfg.DriveConfig)...)
	errs = append(errs, validateCipher(&cfg.CipherConfig)...)
	errs = append(errs, validateLogging(&cfg.LoggingConfig)...)
	errs = append(errs, validateNetwork(&cfg.NetworkConfig)...)

	return errors.Join(errs...)
}

var validAuthFlows = map[string]bool{
	string(auth.FlowBrowser): true,
	string(auth.FlowDevice):  true,
}

func validateAuth(a *AuthConfig) []error {
	var errs []error

	if strings.TrimSpace(a.ClientID) == "" {
		errs = append(errs, errors.New("client_id: must not be empty"))
	}

	if !validAuthFlows[a.AuthFlow] {
		errs = append(errs, fmt.Errorf("auth_flow: must be one of browser, device; got %q", a.AuthFlow))
	}

	return errs
}

func validateDrive(d *DriveConfig) []error {
	var errs []error

	name := strings.TrimSpace(d.FolderName)

	switch {
	case name == "":
		errs = append(errs, errors.New("folder_name: must not be empty"))
	case len(name) > maxFolderNameLen:
		errs = append(errs, fmt.Errorf("folder_name: must be at most %d bytes", maxFolderNameLen))
	}

	errs = append(errs, validateBaseURL("api_base_url", d.APIBaseURL)...)
	errs = append(errs, validateBaseURL("upload_base_url", d.UploadBaseURL)...)

	return errs
}

func validateBaseURL(field, raw string) []error {
	u, err := url.Parse(raw)
	if err != nil {
		return []error{fmt.Errorf("%s: %w", field, err)}
	}

	if (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
		return []error{fmt.Errorf("%s: must be an absolute http(s) URL, got %q", field, raw)}
	}

	return nil
}

var validCipherSchemes = map[string]bool{
	cipher.SchemeOpenSSL:  true,
	cipher.SchemeArgon2id: true,
}

func validateCipher(c *CipherConfig) []error {
	if !validCipherSchemes[c.CipherScheme] {
		return []error{fmt.Errorf("cipher_scheme: must be one of openssl, argon2id; got %q", c.CipherScheme)}
	}

	return nil
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validLogFormats = map[string]bool{
	"auto": true,
	"text": true,
	"json": true,
}

func validateLogging(l *LoggingConfig) []error {
	var errs []error

	if !validLogLevels[l.LogLevel] {
		errs = append(errs, fmt.Errorf("log_level: must be one of debug, info, warn, error; got %q", l.LogLevel))
	}

	if !validLogFormats[l.LogFormat] {
		errs = append(errs, fmt.Errorf("log_format: must be one of auto, text, json; got %q", l.LogFormat))
	}

	return errs
}

func validateNetwork(n *NetworkConfig) []error {
	d, err := time.ParseDuration(n.RequestTimeout)
	if err != nil {
		return []error{fmt.Errorf("request_timeout: invalid duration %q: %w", n.RequestTimeout, err)}
	}

	if d < minRequestTimeout {
		return []error{fmt.Errorf("request_timeout: must be >= %s, got %s", minRequestTimeout, d)}
	}

	return nil
}
