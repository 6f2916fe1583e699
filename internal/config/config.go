package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Storage backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Environment overrides.
const (
	EnvTelegramToken  = "COUNTDOWN_TELEGRAM_TOKEN"
	EnvTelegramChatID = "COUNTDOWN_TELEGRAM_CHAT_ID"
	EnvDataDir        = "COUNTDOWN_DATA"
)

var (
	// DefaultTickInterval is one countdown step.
	DefaultTickInterval = time.Second
	// DefaultAddr is where serve listens unless told otherwise.
	DefaultAddr = "127.0.0.1:7070"
	// DefaultCategories seed a fresh installation.
	DefaultCategories = []string{"Workout", "Study", "Break"}
)

// Settings is the user configuration shared by the CLI, the shell and the web server.
type Settings struct {
	Storage    Storage   `yaml:"storage"`
	Scheduler  Scheduler `yaml:"scheduler"`
	Categories []string  `yaml:"categories"`
	LogLevel   string    `yaml:"log_level"`
	Notify     Notify    `yaml:"notify"`
	Web        Web       `yaml:"web"`
}

type Storage struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
}

type Scheduler struct {
	TickInterval  time.Duration `yaml:"tick_interval"`
	ResumeOnStart bool          `yaml:"resume_on_start"`
}

type Notify struct {
	Bell     bool     `yaml:"bell"`
	Telegram Telegram `yaml:"telegram"`
}

type Telegram struct {
	Token  string `yaml:"token"`
	ChatID int64  `yaml:"chat_id"`
}

// Enabled reports whether both credentials are present.
func (t Telegram) Enabled() bool {
	return t.Token != "" && t.ChatID != 0
}

type Web struct {
	Addr string `yaml:"addr"`
}

// Default returns the initial settings.
func Default() Settings {
	return Settings{
		Storage: Storage{
			Backend: BackendFile,
			Path:    DefaultDataDir(),
		},
		Scheduler: Scheduler{
			TickInterval: DefaultTickInterval,
		},
		Categories: append([]string(nil), DefaultCategories...),
		LogLevel:   "warn",
		Notify:     Notify{Bell: true},
		Web:        Web{Addr: DefaultAddr},
	}
}

// FileStore reads and writes settings as YAML.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates a store for the file at path.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("path is required")
	}
	return &FileStore{path: path}, nil
}

// Path returns the settings file location.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the settings file, or returns defaults if it does not exist.
// Environment overrides are applied and the result is validated.
func (s *FileStore) Load() (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg := Default()
	data, err := os.ReadFile(s.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return Settings{}, fmt.Errorf("read config: %w", err)
	default:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return Settings{}, fmt.Errorf("unmarshal config: %w", err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Settings{}, err
	}
	return Normalize(cfg)
}

// Save writes the settings to disk atomically.
func (s *FileStore) Save(cfg Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := Marshal(cfg)
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write tmp: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("rename tmp: %w", err)
	}
	return nil
}

// Marshal renders settings as YAML.
func Marshal(cfg Settings) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return buf.Bytes(), nil
}

func applyEnv(cfg *Settings) error {
	if v := strings.TrimSpace(os.Getenv(EnvTelegramToken)); v != "" {
		cfg.Notify.Telegram.Token = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvTelegramChatID)); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvTelegramChatID, err)
		}
		cfg.Notify.Telegram.ChatID = id
	}
	if v := strings.TrimSpace(os.Getenv(EnvDataDir)); v != "" {
		cfg.Storage.Path = v
	}
	return nil
}
