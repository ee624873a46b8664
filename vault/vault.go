// Package vault stores the runtime configuration (vector store
// endpoint, token, collection and identity) Fernet-encrypted on disk.
package vault

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fernet/fernet-go"
)

var (
	ErrNotConfigured     = errors.New("configuration not found")
	ErrAlreadyConfigured = errors.New("configuration already exists")
)

// Config is the decrypted runtime configuration. It is passed around as
// a plain value; nothing outside this package touches the files.
type Config struct {
	Endpoint   string `json:"cloudflare_url"`
	APIKey     string `json:"api_key"`
	Collection string `json:"collection_name"`
	Identity   string `json:"identity"`
}

// Store keeps config.enc and config.key under a data directory. The
// key is generated on first use.
type Store struct {
	dir string
}

func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) configPath() string {
	return filepath.Join(s.dir, "config.enc")
}

func (s *Store) keyPath() string {
	return filepath.Join(s.dir, "config.key")
}

func (s *Store) Exists() bool {
	_, err := os.Stat(s.configPath())
	return err == nil
}

// Save encrypts and persists the configuration. It refuses to
// overwrite an existing one; Reset first.
func (s *Store) Save(cfg Config) error {
	if s.Exists() {
		return ErrAlreadyConfigured
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}

	key, err := s.loadKey()
	if err != nil {
		return err
	}

	payload, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}

	token, err := fernet.EncryptAndSign(payload, key)
	if err != nil {
		return fmt.Errorf("failed to encrypt configuration: %w", err)
	}

	if err := os.WriteFile(s.configPath(), token, 0o600); err != nil {
		return fmt.Errorf("failed to write configuration: %w", err)
	}

	return nil
}

func (s *Store) Load() (Config, error) {
	token, err := os.ReadFile(s.configPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Config{}, ErrNotConfigured
		}
		return Config{}, fmt.Errorf("failed to read configuration: %w", err)
	}

	key, err := s.loadKey()
	if err != nil {
		return Config{}, err
	}

	payload := fernet.VerifyAndDecrypt(token, 0, []*fernet.Key{key})
	if payload == nil {
		return Config{}, errors.New("failed to decrypt configuration")
	}

	var cfg Config
	if err := json.Unmarshal(payload, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode configuration: %w", err)
	}

	return cfg, nil
}

// Reset removes both the encrypted configuration and its key.
func (s *Store) Reset() error {
	for _, path := range []string{s.configPath(), s.keyPath()} {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to remove %s: %w", path, err)
		}
	}

	return nil
}

func (s *Store) loadKey() (*fernet.Key, error) {
	raw, err := os.ReadFile(s.keyPath())
	if err == nil {
		keys, err := fernet.DecodeKeys(string(raw))
		if err != nil {
			return nil, fmt.Errorf("failed to decode key file: %w", err)
		}
		return keys[0], nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}

	var key fernet.Key
	if err := key.Generate(); err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}

	if err := os.WriteFile(s.keyPath(), []byte(key.Encode()), 0o600); err != nil {
		return nil, fmt.Errorf("failed to write key file: %w", err)
	}

	return &key, nil
}
