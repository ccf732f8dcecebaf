package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// KML source modes.
const (
	KMLModeGitHub = "github"
	KMLModeDir    = "dir"
)

// Config represents the application configuration.
type Config struct {
	App    ApplicationConfig `yaml:"app"`
	Data   DataConfig        `yaml:"data"`
	SQLite SQLiteConfig      `yaml:"sqlite"`
	Auth   AuthConfig        `yaml:"auth"`
	KML    KMLConfig         `yaml:"kml"`
	Vision VisionConfig      `yaml:"vision"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Data.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	return c.KML.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// DataConfig holds the path to the data directory (findings.json, users.json,
// uploads/).
type DataConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the data configuration.
func (c *DataConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// SQLiteConfig holds the search index database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds JWT session configuration plus the seeded admin account.
type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
	AdminUser string        `yaml:"admin_user"`
	AdminPass string        `yaml:"admin_pass"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.JWTSecret, validation.Required),
	)
}

// KMLConfig selects where itineraries come from: a GitHub repository folder
// or a local directory.
type KMLConfig struct {
	Mode   string `yaml:"mode"`
	Owner  string `yaml:"owner"`
	Repo   string `yaml:"repo"`
	Branch string `yaml:"branch"`
	Folder string `yaml:"folder"`
	Path   string `yaml:"path"`
}

// Validate validates the KML source configuration.
func (c *KMLConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = KMLModeDir
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(KMLModeGitHub, KMLModeDir)),
	); err != nil {
		return err
	}
	if c.Mode == KMLModeGitHub && (c.Owner == "" || c.Repo == "") {
		return fmt.Errorf("kml: mode is %q but owner/repo are empty", KMLModeGitHub)
	}
	if c.Mode == KMLModeDir && c.Path == "" {
		return fmt.Errorf("kml: mode is %q but path is empty", KMLModeDir)
	}
	return nil
}

// VisionConfig holds the OpenAI-compatible vision endpoint used for price-tag
// OCR. An empty APIKey disables the feature.
type VisionConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Data: DataConfig{
			Path: "./data",
		},
		SQLite: SQLiteConfig{
			Path: "./itinera.db",
		},
		Auth: AuthConfig{
			TokenTTL:  24 * time.Hour,
			AdminUser: "admin",
		},
		KML: KMLConfig{
			Mode: KMLModeDir,
			Path: "./kmls",
		},
		Vision: VisionConfig{
			BaseURL: "https://api.moonshot.ai/v1",
			Model:   "moonshot-v1-8k-vision-preview",
		},
	}
}
