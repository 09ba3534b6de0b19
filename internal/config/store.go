package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/blackwell-systems/autoapply/internal/apperr"
	"github.com/blackwell-systems/autoapply/internal/model"
	"github.com/blackwell-systems/autoapply/internal/stats"
	"github.com/blackwell-systems/autoapply/internal/vault"
)

const (
	ConfigFile     = "config.json"
	StatisticsFile = "statistics.json"
	LogDirName     = "logs"
	JournalFile    = "journal.db"
)

// ErrNoCredentials is returned when no account has been saved yet.
var ErrNoCredentials = apperr.New(apperr.KindNotFound, "no credentials saved; run 'autoapply login' first")

// Store owns every file in the data directory. All methods are safe for
// concurrent use; each write replaces its file through a temp-file rename.
type Store struct {
	dir    string
	mu     sync.Mutex
	cipher *vault.Cipher
}

// fileConfig is the on-disk layout of config.json.
type fileConfig struct {
	Email        string          `json:"email,omitempty"`
	Password     string          `json:"password,omitempty"`
	CreatedAt    string          `json:"created_at,omitempty"`
	SearchConfig json.RawMessage `json:"search_config,omitempty"`
}

// Open returns a store rooted at dir, creating the directory if needed.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, apperr.Wrap(apperr.KindPersistence, err, "failed to create data directory")
	}
	return &Store{dir: dir}, nil
}

// Dir returns the data directory.
func (s *Store) Dir() string {
	return s.dir
}

// LogDir returns the log directory inside the data directory.
func (s *Store) LogDir() string {
	return filepath.Join(s.dir, LogDirName)
}

// SaveCredentials encrypts and stores the account, keeping the search config.
func (s *Store) SaveCredentials(creds model.Credentials) error {
	if err := creds.Validate(); err != nil {
		return apperr.Wrap(apperr.KindValidation, err, "invalid credentials")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.cipherLocked()
	if err != nil {
		return err
	}
	email, err := c.Encrypt(creds.Email)
	if err != nil {
		return apperr.Wrap(apperr.KindPersistence, err, "failed to encrypt email")
	}
	password, err := c.Encrypt(creds.Password)
	if err != nil {
		return apperr.Wrap(apperr.KindPersistence, err, "failed to encrypt password")
	}

	fc, err := s.readConfigLocked()
	if err != nil {
		return err
	}
	fc.Email = email
	fc.Password = password
	fc.CreatedAt = time.Now().Format(time.RFC3339)
	return s.writeJSONLocked(ConfigFile, fc)
}

// LoadCredentials decrypts the stored account. It returns ErrNoCredentials
// when nothing has been saved.
func (s *Store) LoadCredentials() (model.Credentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fc, err := s.readConfigLocked()
	if err != nil {
		return model.Credentials{}, err
	}
	if fc.Email == "" || fc.Password == "" {
		return model.Credentials{}, ErrNoCredentials
	}

	c, err := s.cipherLocked()
	if err != nil {
		return model.Credentials{}, err
	}
	email, err := c.Decrypt(fc.Email)
	if err != nil {
		return model.Credentials{}, apperr.Wrap(apperr.KindPersistence, err, "failed to decrypt email")
	}
	password, err := c.Decrypt(fc.Password)
	if err != nil {
		return model.Credentials{}, apperr.Wrap(apperr.KindPersistence, err, "failed to decrypt password")
	}
	return model.Credentials{Email: email, Password: password}, nil
}

// LoadSearchConfig returns the stored search config layered over the
// defaults, or the defaults when none is stored.
func (s *Store) LoadSearchConfig() (model.SearchConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg := model.DefaultSearchConfig()
	fc, err := s.readConfigLocked()
	if err != nil {
		return cfg, err
	}
	if len(fc.SearchConfig) == 0 || string(fc.SearchConfig) == "null" {
		return cfg, nil
	}
	if err := json.Unmarshal(fc.SearchConfig, &cfg); err != nil {
		return model.DefaultSearchConfig(), apperr.Wrap(apperr.KindPersistence, err, "failed to parse search config")
	}
	return cfg, nil
}

// SaveSearchConfig validates and stores cfg, keeping the credentials.
func (s *Store) SaveSearchConfig(cfg model.SearchConfig) error {
	if err := cfg.Validate(); err != nil {
		return apperr.Wrap(apperr.KindValidation, err, "invalid search config")
	}

	raw, err := json.Marshal(cfg)
	if err != nil {
		return apperr.Wrap(apperr.KindPersistence, err, "failed to encode search config")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	fc, err := s.readConfigLocked()
	if err != nil {
		return err
	}
	fc.SearchConfig = raw
	return s.writeJSONLocked(ConfigFile, fc)
}

// ResetSearchConfig drops the stored search config so the defaults apply.
func (s *Store) ResetSearchConfig() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	fc, err := s.readConfigLocked()
	if err != nil {
		return err
	}
	fc.SearchConfig = nil
	return s.writeJSONLocked(ConfigFile, fc)
}

// LoadStatistics returns the statistics recorded for email. An unknown
// email yields an empty record.
func (s *Store) LoadStatistics(email string) (model.UserStatistics, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.readStatisticsLocked()
	if err != nil {
		return model.UserStatistics{}, err
	}
	return all[email], nil
}

// SaveSession merges rec into the statistics for email and returns the
// updated record.
func (s *Store) SaveSession(email string, rec model.SessionRecord) (model.UserStatistics, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.readStatisticsLocked()
	if err != nil {
		return model.UserStatistics{}, err
	}
	updated := stats.Merge(all[email], rec)
	all[email] = updated

	if err := s.writeJSONLocked(StatisticsFile, all); err != nil {
		return model.UserStatistics{}, err
	}
	return updated, nil
}

// Reset deletes the key, config, statistics, journal and logs. Other files in
// the data directory, such as a running server's pid file, are left alone. A
// fresh key is generated on the next credential write.
func (s *Store) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	owned := []string{
		vault.KeyFile,
		ConfigFile,
		StatisticsFile,
		JournalFile,
		JournalFile + "-wal",
		JournalFile + "-shm",
		LogDirName,
	}
	for _, name := range owned {
		if err := os.RemoveAll(filepath.Join(s.dir, name)); err != nil {
			return apperr.Wrap(apperr.KindPersistence, err, fmt.Sprintf("failed to delete %s", name))
		}
	}
	s.cipher = nil
	return nil
}

func (s *Store) cipherLocked() (*vault.Cipher, error) {
	if s.cipher != nil {
		return s.cipher, nil
	}
	c, err := vault.Open(s.dir)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindPersistence, err, "failed to open key")
	}
	s.cipher = c
	return c, nil
}

func (s *Store) readConfigLocked() (fileConfig, error) {
	var fc fileConfig
	if err := s.readJSONLocked(ConfigFile, &fc); err != nil {
		return fileConfig{}, err
	}
	return fc, nil
}

func (s *Store) readStatisticsLocked() (map[string]model.UserStatistics, error) {
	all := make(map[string]model.UserStatistics)
	if err := s.readJSONLocked(StatisticsFile, &all); err != nil {
		return nil, err
	}
	if all == nil {
		all = make(map[string]model.UserStatistics)
	}
	return all, nil
}

// readJSONLocked decodes name into v. A missing file leaves v untouched.
func (s *Store) readJSONLocked(name string, v interface{}) error {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return apperr.Wrapf(apperr.KindPersistence, err, "failed to read %s", name)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return apperr.Wrapf(apperr.KindPersistence, err, "failed to parse %s", name)
	}
	return nil
}

// writeJSONLocked replaces name atomically: write a temp file, then rename.
func (s *Store) writeJSONLocked(name string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return apperr.Wrapf(apperr.KindPersistence, err, "failed to encode %s", name)
	}
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return apperr.Wrap(apperr.KindPersistence, err, "failed to create data directory")
	}

	path := filepath.Join(s.dir, name)
	tmp := fmt.Sprintf("%s.tmp.%d", path, os.Getpid())
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return apperr.Wrapf(apperr.KindPersistence, err, "failed to write %s", name)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return apperr.Wrapf(apperr.KindPersistence, err, "failed to replace %s", name)
	}
	return nil
}
