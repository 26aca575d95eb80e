package auth

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// TokenFileName sits next to the settings file so a separately started UI can
// find the running host's token.
const TokenFileName = "bridge.token"

// TokenFilePath returns the token file for the given settings file.
func TokenFilePath(settingsFile string) string {
	return filepath.Join(filepath.Dir(settingsFile), TokenFileName)
}

// WriteTokenFile stores token readable by the owner only.
func WriteTokenFile(fs afero.Fs, path, token string) error {
	if err := fs.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create token dir: %w", err)
	}
	if err := afero.WriteFile(fs, path, []byte(token+"\n"), 0o600); err != nil {
		return fmt.Errorf("write token file: %w", err)
	}
	return nil
}

// ReadTokenFile returns the token written by WriteTokenFile.
func ReadTokenFile(fs afero.Fs, path string) (string, error) {
	b, err := afero.ReadFile(fs, path)
	if err != nil {
		return "", fmt.Errorf("read token file: %w", err)
	}
	token := strings.TrimSpace(string(b))
	if token == "" {
		return "", fmt.Errorf("token file %s is empty", path)
	}
	return token, nil
}

// RemoveTokenFile deletes the token on host shutdown. A missing file is fine.
func RemoveTokenFile(fs afero.Fs, path string) error {
	if err := fs.Remove(path); err != nil {
		if exists, _ := afero.Exists(fs, path); exists {
			return fmt.Errorf("remove token file: %w", err)
		}
	}
	return nil
}
