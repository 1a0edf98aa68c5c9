package securestore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
)

// ReadJSONFile reads path into v. When secret is set the file must be an
// encrypted envelope; otherwise it is plain JSON.
func ReadJSONFile(path, secret string, v any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if strings.TrimSpace(secret) != "" {
		raw, err = Decrypt(secret, raw)
		if err != nil {
			return err
		}
	}
	return json.Unmarshal(raw, v)
}

// WriteJSONFile marshals v, encrypts it when secret is set, and replaces path
// through a temp file rename.
func WriteJSONFile(path, secret string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if strings.TrimSpace(secret) != "" {
		payload, err = Encrypt(secret, payload)
		if err != nil {
			return err
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
