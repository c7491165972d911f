package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/saaskit/backend/internal/models"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

const (
	DefaultMarkerPath = ".setup-complete"
	DefaultEnvFile    = ".env"
)

// SetupState is the process-wide view of first-run configuration. It is loaded once at
// startup and reloaded after the wizard persists new values.
type SetupState struct {
	mu         sync.RWMutex
	v          *viper.Viper
	markerPath string
	envFile    string

	databaseURL  string
	authSecret   string
	appName      string
	primaryColor string
	logoURL      string
}

// LoadSetupState reads the setup values from v. Empty paths fall back to the defaults.
func LoadSetupState(v *viper.Viper, markerPath, envFile string) *SetupState {
	if markerPath == "" {
		markerPath = DefaultMarkerPath
	}
	if envFile == "" {
		envFile = DefaultEnvFile
	}
	s := &SetupState{v: v, markerPath: markerPath, envFile: envFile}
	s.load()
	return s
}

// Reload re-reads the env file (when one is configured) and refreshes the cached values.
// A missing file means nothing was persisted yet.
func (s *SetupState) Reload() {
	if s.v.ConfigFileUsed() != "" {
		if err := s.v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
				log.Warnf("[SETUP] Failed to reload %s: %v", s.v.ConfigFileUsed(), err)
			}
		}
	}
	s.load()
}

func (s *SetupState) load() {
	s.mu.Lock()
	defer s.mu.Unlock()

	// .env keys arrive flattened (database_url) while env bindings use dotted keys
	s.databaseURL = s.lookup("database.url", "database_url")
	s.authSecret = s.lookup("auth.secret", "auth_secret", "better_auth_secret")
	s.appName = s.lookup("app.name", "app_name")
	s.primaryColor = s.lookup("app.primary_color", "primary_color")
	s.logoURL = s.lookup("app.logo_url", "logo_url")
}

func (s *SetupState) lookup(keys ...string) string {
	for _, key := range keys {
		if val := strings.TrimSpace(s.v.GetString(key)); val != "" {
			return val
		}
	}
	return ""
}

func (s *SetupState) DatabaseURL() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.databaseURL
}

func (s *SetupState) AuthSecret() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.authSecret
}

// Branding returns the persisted application name, primary color and logo URL.
func (s *SetupState) Branding() (name, color, logo string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.appName, s.primaryColor, s.logoURL
}

func (s *SetupState) MarkerPath() string {
	return s.markerPath
}

// HasMarker reports whether the completion marker exists. Any stat failure counts as absent.
func (s *SetupState) HasMarker() bool {
	info, err := os.Stat(s.markerPath)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// MarkComplete writes the completion marker containing an RFC 3339 timestamp.
func (s *SetupState) MarkComplete(now time.Time) error {
	if dir := filepath.Dir(s.markerPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create marker directory: %w", err)
		}
	}
	if err := os.WriteFile(s.markerPath, []byte(now.UTC().Format(time.RFC3339Nano)), 0o644); err != nil {
		return fmt.Errorf("write setup marker: %w", err)
	}
	return nil
}

// Persist merges cfg into the env file and reloads the state from it. Values that the
// dotenv format cannot carry unchanged are rejected with models.ErrInvalidConfiguration.
func (s *SetupState) Persist(cfg models.SetupConfiguration) error {
	env, err := gotenv.Read(s.envFile)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("read %s: %w", s.envFile, err)
		}
		env = gotenv.Env{}
	}

	values := make(gotenv.Env, len(env)+5)
	for key, val := range env {
		values[strings.ToUpper(key)] = val
	}
	values["DATABASE_URL"] = cfg.DatabaseURL
	values["AUTH_SECRET"] = cfg.AuthSecret
	values["APP_NAME"] = cfg.AppName
	values["PRIMARY_COLOR"] = cfg.PrimaryColor
	values["LOGO_URL"] = cfg.LogoURL

	content, err := encodeEnv(values)
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.envFile, []byte(content), 0o600); err != nil {
		return fmt.Errorf("write %s: %w", s.envFile, err)
	}

	// explicit values win over process env bindings for the running server
	s.v.Set("database.url", cfg.DatabaseURL)
	s.v.Set("auth.secret", cfg.AuthSecret)
	s.v.Set("app.name", cfg.AppName)
	s.v.Set("app.primary_color", cfg.PrimaryColor)
	s.v.Set("app.logo_url", cfg.LogoURL)
	s.Reload()
	return nil
}

// encodeEnv renders values in dotenv format and checks that parsing the result yields
// the same values.
func encodeEnv(values gotenv.Env) (string, error) {
	escaped := make(gotenv.Env, len(values))
	for key, val := range values {
		// gotenv expands $NAME inside double quotes
		escaped[key] = strings.ReplaceAll(val, "$", `\$`)
	}

	content, err := gotenv.Marshal(escaped)
	if err != nil {
		return "", fmt.Errorf("encode env: %w", err)
	}
	content += "\n"

	parsed, err := gotenv.Unmarshal(content)
	if err != nil {
		return "", fmt.Errorf("encode env: %w", err)
	}
	for key, val := range values {
		if parsed[key] != val {
			return "", fmt.Errorf("%w: %s cannot be stored in the env file", models.ErrInvalidConfiguration, key)
		}
	}
	return content, nil
}
