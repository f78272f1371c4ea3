package backend

import (
	"errors"
	"fmt"
	"strings"

	"tracker/internal/config"
)

// FromAppConfig converts the application config into the primary backend
// config.
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, errors.New("app config is nil")
	}
	return forType(appConfig, appConfig.DataBackend)
}

// MirrorFromAppConfig returns the mirror backend config. ok is false when no
// mirror is configured.
func MirrorFromAppConfig(appConfig *config.Config) (cfg Config, ok bool, err error) {
	if appConfig == nil {
		return Config{}, false, errors.New("app config is nil")
	}
	if strings.TrimSpace(appConfig.MirrorBackend) == "" {
		return Config{}, false, nil
	}
	cfg, err = forType(appConfig, appConfig.MirrorBackend)
	return cfg, err == nil, err
}

func forType(appConfig *config.Config, kind string) (Config, error) {
	backendType := BackendType(kind)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", kind)
	}
	return Config{
		Type:                     backendType,
		DataDirectory:            appConfig.DataDir,
		ConfigTable:              appConfig.ConfigTable,
		SQLiteDBPath:             appConfig.SQLiteDBPath,
		GoogleSpreadsheetID:      appConfig.GoogleSpreadsheetID,
		GoogleServiceAccountJSON: appConfig.GoogleServiceAccountJSON,
		GoogleServiceAccountFile: appConfig.GoogleServiceAccountFile,
	}, nil
}

// Validate checks the fields the selected backend needs.
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}
	switch c.Type {
	case FileBackend:
		if strings.TrimSpace(c.DataDirectory) == "" {
			return errors.New("data directory is required for file backend")
		}
	case SQLiteBackend:
		if strings.TrimSpace(c.SQLiteDBPath) == "" {
			return errors.New("SQLite database path is required for sqlite backend")
		}
	case SheetsBackend:
		if strings.TrimSpace(c.GoogleSpreadsheetID) == "" {
			return errors.New("Google Spreadsheet ID is required for sheets backend")
		}
	}
	return nil
}

// GetBackendTypeStrings returns all valid backend type strings.
func GetBackendTypeStrings() []string {
	return []string{FileBackend.String(), SheetsBackend.String(), SQLiteBackend.String(), MemoryBackend.String()}
}
