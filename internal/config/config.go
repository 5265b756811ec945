package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	ConfigDirName  = ".sgpt"
	ConfigFileName = "config.yaml"
)

// ErrMissingAPIKey is returned by Validate when no API key is configured.
// Callers must surface this before attempting any network call.
var ErrMissingAPIKey = errors.New("no API key configured: set api_key in the config file or export SGPT_API_KEY")

// ProviderName identifies the completion backend preset
type ProviderName string

const (
	ProviderDeepSeek ProviderName = "deepseek"
	ProviderOpenAI   ProviderName = "openai"
)

// CacheSettings controls the completion cache
type CacheSettings struct {
	Enabled bool   `yaml:"enabled"`
	Length  int    `yaml:"length"`
	Path    string `yaml:"path,omitempty"`
}

// Config represents the application configuration. It is loaded once at
// startup and passed read-only into constructors.
type Config struct {
	Provider       ProviderName `yaml:"provider"`
	APIKey         string       `yaml:"api_key"`
	BaseURL        string       `yaml:"base_url,omitempty"`
	DefaultModel   string       `yaml:"default_model"`
	RequestTimeout int          `yaml:"request_timeout"`

	Cache           CacheSettings `yaml:"cache"`
	ChatCacheLength int           `yaml:"chat_cache_length"`

	UseFunctions           bool `yaml:"use_functions"`
	DefaultExecuteShellCmd bool `yaml:"default_execute_shell_cmd"`
	ShellInteraction       bool `yaml:"shell_interaction"`
	PrettifyMarkdown       bool `yaml:"prettify_markdown"`

	// "auto" means detect at runtime
	OSName    string `yaml:"os_name"`
	ShellName string `yaml:"shell_name"`

	RoleStoragePath string `yaml:"role_storage_path,omitempty"`
}

// Default returns a configuration with the fork's defaults. The default
// backend is DeepSeek, not OpenAI.
func Default() *Config {
	return &Config{
		Provider:               ProviderDeepSeek,
		DefaultModel:           "deepseek-chat",
		RequestTimeout:         60,
		Cache:                  CacheSettings{Enabled: true, Length: 100},
		ChatCacheLength:        100,
		UseFunctions:           true,
		DefaultExecuteShellCmd: false,
		ShellInteraction:       true,
		PrettifyMarkdown:       true,
		OSName:                 "auto",
		ShellName:              "auto",
	}
}

// GetConfigDir returns the path to the config directory
func GetConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ConfigDirName), nil
}

// GetConfigPath returns the path to the config file
func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, ConfigFileName), nil
}

// Load reads the configuration from disk. A missing file returns (nil, nil).
func Load() (*Config, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(configPath)
}

// LoadFrom reads the configuration from an explicit path
func LoadFrom(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyEnv(cfg)
	return cfg, nil
}

// LoadOrInit loads the configuration, creating it with defaults on first run
func LoadOrInit() (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}
	if cfg != nil {
		return cfg, nil
	}

	cfg = Default()
	applyEnv(cfg)
	if err := Save(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to disk
func Save(cfg *Config) error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}
	return SaveTo(configPath, cfg)
}

// SaveTo writes the configuration to an explicit path
func SaveTo(configPath string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// 0600: the file holds the API key
	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks the configuration for problems that must block dispatch
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return ErrMissingAPIKey
	}
	if c.Provider != ProviderDeepSeek && c.Provider != ProviderOpenAI {
		return fmt.Errorf("unknown provider %q", c.Provider)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive, got %d", c.RequestTimeout)
	}
	return nil
}

// RolesDir returns the role storage directory, honoring role_storage_path
func (c *Config) RolesDir() (string, error) {
	if c.RoleStoragePath != "" {
		return c.RoleStoragePath, nil
	}
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "roles"), nil
}

// ChatsDir returns the chat session storage directory
func (c *Config) ChatsDir() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "chats"), nil
}

// CachePath returns the completion cache database path, honoring cache.path
func (c *Config) CachePath() (string, error) {
	if c.Cache.Path != "" {
		return c.Cache.Path, nil
	}
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "cache.db"), nil
}

// FunctionsDir returns the directory holding user-declared function specs
func (c *Config) FunctionsDir() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "functions"), nil
}

// applyEnv lets environment variables supply the API key when the file has
// none. SGPT_API_KEY wins over OPENAI_API_KEY.
func applyEnv(cfg *Config) {
	if cfg.APIKey != "" {
		return
	}
	if key := os.Getenv("SGPT_API_KEY"); key != "" {
		cfg.APIKey = key
		return
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		cfg.APIKey = key
	}
}
