package credkit

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/PaulFidika/tokenkit/core"
)

// Credential file types.
const (
	TypeAuthorizedUser = "authorized_user"
	TypeServiceAccount = "service_account"
)

// Environment variables consulted by Default.
const (
	EnvCredentialsJSON = "TOKENKIT_CREDENTIALS_JSON"
	EnvCredentialsFile = "GOOGLE_APPLICATION_CREDENTIALS"
)

// ErrNoCredentials is returned by Default when no source is configured.
var ErrNoCredentials = errors.New("tokenkit: no credentials found")

// FromJSON builds a source from a credentials file, dispatching on "type".
func FromJSON(data []byte, opts ...Option) (Source, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, core.Configf("credentials", "invalid JSON: %v", err)
	}
	switch head.Type {
	case TypeAuthorizedUser:
		var key UserRefreshKey
		if err := json.Unmarshal(data, &key); err != nil {
			return nil, core.Configf("credentials", "invalid authorized_user key: %v", err)
		}
		return NewUserRefresh(key, opts...)
	case TypeServiceAccount:
		var key ServiceAccountKey
		if err := json.Unmarshal(data, &key); err != nil {
			return nil, core.Configf("credentials", "invalid service_account key: %v", err)
		}
		return NewServiceAccount(key, opts...)
	case "":
		return nil, core.Configf("type", "json key is missing the type field")
	default:
		return nil, core.Configf("type", "unsupported credentials type %q", head.Type)
	}
}

// Default discovers credentials, in order, from:
//
//	TOKENKIT_CREDENTIALS_JSON - inline credentials JSON
//	GOOGLE_APPLICATION_CREDENTIALS - path to a credentials file
//	~/.config/gcloud/application_default_credentials.json
func Default(opts ...Option) (Source, error) {
	if inline := strings.TrimSpace(os.Getenv(EnvCredentialsJSON)); inline != "" {
		return FromJSON([]byte(inline), opts...)
	}
	if path := strings.TrimSpace(os.Getenv(EnvCredentialsFile)); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		return FromJSON(data, opts...)
	}
	if path := wellKnownFile(); path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			return FromJSON(data, opts...)
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	}
	return nil, ErrNoCredentials
}

func wellKnownFile() string {
	if dir := os.Getenv("CLOUDSDK_CONFIG"); dir != "" {
		return filepath.Join(dir, "application_default_credentials.json")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "gcloud", "application_default_credentials.json")
}
