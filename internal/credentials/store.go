// Package credentials persists the access credential pair to the shared
// credentials file read by AWS tooling.
package credentials

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"gopkg.in/ini.v1"
)

const (
	DefaultProfile = "default"

	accessKeyField = "aws_access_key_id"
	secretKeyField = "aws_secret_access_key"
)

// Pair is an access key id and its secret.
type Pair struct {
	AccessKey string
	SecretKey string
}

// Store reads and writes one credentials file.
type Store struct {
	fs   afero.Fs
	path string
}

// DefaultPath returns ~/.aws/credentials.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("credentials: resolve home directory: %w", err)
	}
	return filepath.Join(home, ".aws", "credentials"), nil
}

// NewStore returns a store for path on fs. Use afero.NewOsFs() for the real
// filesystem.
func NewStore(fs afero.Fs, path string) *Store {
	return &Store{fs: fs, path: path}
}

func (s *Store) Path() string { return s.path }

// Save writes p as the [default] profile. Other profiles already present in
// the file are kept.
func (s *Store) Save(p Pair) error {
	if p.AccessKey == "" || p.SecretKey == "" {
		return fmt.Errorf("credentials: access key and secret key are required")
	}

	if err := s.fs.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("credentials: create directory: %w", err)
	}

	file, err := s.load()
	if err != nil {
		return err
	}

	sec := file.Section(DefaultProfile)
	sec.Key(accessKeyField).SetValue(p.AccessKey)
	sec.Key(secretKeyField).SetValue(p.SecretKey)

	var buf bytes.Buffer
	if _, err := file.WriteTo(&buf); err != nil {
		return fmt.Errorf("credentials: encode: %w", err)
	}
	if err := afero.WriteFile(s.fs, s.path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("credentials: write %s: %w", s.path, err)
	}
	return nil
}

// Load reads the [default] profile. It fails if the file or either key is missing.
func (s *Store) Load() (Pair, error) {
	exists, err := afero.Exists(s.fs, s.path)
	if err != nil {
		return Pair{}, fmt.Errorf("credentials: stat %s: %w", s.path, err)
	}
	if !exists {
		return Pair{}, fmt.Errorf("credentials: %s does not exist", s.path)
	}

	file, err := s.load()
	if err != nil {
		return Pair{}, err
	}

	sec, err := file.GetSection(DefaultProfile)
	if err != nil {
		return Pair{}, fmt.Errorf("credentials: no [%s] profile in %s", DefaultProfile, s.path)
	}
	p := Pair{
		AccessKey: sec.Key(accessKeyField).String(),
		SecretKey: sec.Key(secretKeyField).String(),
	}
	if p.AccessKey == "" || p.SecretKey == "" {
		return Pair{}, fmt.Errorf("credentials: incomplete [%s] profile in %s", DefaultProfile, s.path)
	}
	return p, nil
}

func (s *Store) load() (*ini.File, error) {
	exists, err := afero.Exists(s.fs, s.path)
	if err != nil {
		return nil, fmt.Errorf("credentials: stat %s: %w", s.path, err)
	}
	if !exists {
		return ini.Empty(), nil
	}

	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		return nil, fmt.Errorf("credentials: read %s: %w", s.path, err)
	}
	file, err := ini.Load(data)
	if err != nil {
		return nil, fmt.Errorf("credentials: parse %s: %w", s.path, err)
	}
	return file, nil
}
