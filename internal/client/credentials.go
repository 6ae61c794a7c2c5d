// SPDX-License-Identifier: MIT

package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
)

// Credentials is the locally persisted login state.
type Credentials struct {
	BaseURL string `json:"baseUrl"`
	Token   string `json:"token"`
	UserID  int64  `json:"userId"`
	Email   string `json:"email"`
}

// DefaultCredentialsPath returns the per-user credentials location.
func DefaultCredentialsPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("credentials path: %w", err)
	}
	return filepath.Join(dir, "workpulse", "credentials.json"), nil
}

// SaveCredentials writes credentials atomically. A crash mid-write leaves
// either the old file or the new one, never a torn file.
func SaveCredentials(path string, creds Credentials) error {
	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return fmt.Errorf("save credentials: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("save credentials: %w", err)
	}
	if err := renameio.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("save credentials: %w", err)
	}
	return nil
}

// LoadCredentials reads persisted credentials. A missing file yields
// zero-value credentials and no error.
func LoadCredentials(path string) (Credentials, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if errors.Is(err, os.ErrNotExist) {
		return Credentials{}, nil
	}
	if err != nil {
		return Credentials{}, fmt.Errorf("load credentials: %w", err)
	}
	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return Credentials{}, fmt.Errorf("load credentials: %w", err)
	}
	return creds, nil
}

// ClearCredentials removes the stored credentials. Used on logout and when
// the server forces one.
func ClearCredentials(path string) error {
	err := os.Remove(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("clear credentials: %w", err)
	}
	return nil
}
