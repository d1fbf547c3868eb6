package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"slices"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/zalando/go-keyring"
	"gopkg.in/yaml.v3"
)

// GroupLabels names the directory rows that open and close each team section.
type GroupLabels struct {
	BackStart  string `yaml:"back_start"`
	BackEnd    string `yaml:"back_end"`
	FrontStart string `yaml:"front_start"`
	FrontEnd   string `yaml:"front_end"`
	CashStart  string `yaml:"cash_start"`
	CashEnd    string `yaml:"cash_end"`
}

// Settings is the runtime configuration of a session.
type Settings struct {
	BaseURL    string `yaml:"base_url"`
	Actor      string `yaml:"actor"`
	APIKey     string `yaml:"api_key"`
	Port       string `yaml:"port"`
	Language   string `yaml:"language"`
	RatePerSec int    `yaml:"rate_per_sec"`

	DirectoryTTL       time.Duration `yaml:"directory_ttl"`
	ScheduleCurrentTTL time.Duration `yaml:"schedule_current_ttl"`
	ScheduleOtherTTL   time.Duration `yaml:"schedule_other_ttl"`

	TeamConcurrency    int `yaml:"team_concurrency"`
	HistoryConcurrency int `yaml:"history_concurrency"`
	SendConcurrency    int `yaml:"send_concurrency"`

	FeedRefresh   string `yaml:"feed_refresh"`
	LiveRefresh   string `yaml:"live_refresh"`
	NotifyRefresh string `yaml:"notify_refresh"`

	Groups GroupLabels `yaml:"groups"`
}

// KeyringGetter and KeyringSetter access the OS keyring. Replaced in tests.
var (
	KeyringGetter = keyring.Get
	KeyringSetter = keyring.Set
)

// Defaults returns the settings used when nothing overrides them.
func Defaults() Settings {
	return Settings{
		Port:               DefaultPort,
		Language:           DefaultLanguage,
		RatePerSec:         DefaultRatePerSec,
		DirectoryTTL:       DirectoryTTL,
		ScheduleCurrentTTL: ScheduleCurrentTTL,
		ScheduleOtherTTL:   ScheduleOtherTTL,
		TeamConcurrency:    TeamConcurrency,
		HistoryConcurrency: HistoryConcurrency,
		SendConcurrency:    SendConcurrency,
		FeedRefresh:        DefaultFeedRefresh,
		LiveRefresh:        DefaultLiveRefresh,
		NotifyRefresh:      DefaultNotifyRefresh,
		Groups:             DefaultGroupLabels,
	}
}

// Load layers defaults, the optional YAML file at path, the .env file and the
// process environment, then falls back to the keyring for the API key.
func Load(path string) (Settings, error) {
	s := Defaults()
	log := slog.With(LogKeyComponent, CompConfig)

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return s, fmt.Errorf("%s: %w", ErrSettingsRead, err)
		}
		if err := yaml.Unmarshal(data, &s); err != nil {
			return s, fmt.Errorf("%s: %w", ErrSettingsParse, err)
		}
	}

	// godotenv never overrides variables already present in the environment.
	if err := godotenv.Load(EnvFileName); err != nil {
		log.Debug(MsgEnvMissing, LogKeyError, err)
	}
	s.applyEnv()

	if s.APIKey == "" && s.BaseURL != "" {
		s.APIKey = lookupAPIKey(s.BaseURL)
	}

	return s, nil
}

func (s *Settings) applyEnv() {
	if v := os.Getenv(EnvBaseURL); v != "" {
		s.BaseURL = v
	}
	if v := os.Getenv(EnvActor); v != "" {
		s.Actor = v
	}
	if v := os.Getenv(EnvAPIKey); v != "" {
		s.APIKey = v
	}
	if v := os.Getenv(EnvPort); v != "" {
		s.Port = v
	}
	if v := os.Getenv(EnvLanguage); v != "" {
		s.Language = v
	}
	if v := os.Getenv(EnvRatePerSec); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			s.RatePerSec = n
		}
	}
}

// KeyringUser is the keyring account under which the API key of a backend is stored.
func KeyringUser(baseURL string) string {
	if u, err := url.Parse(baseURL); err == nil && u.Host != "" {
		return u.Host + u.Path
	}
	return baseURL
}

func lookupAPIKey(baseURL string) string {
	key, err := KeyringGetter(KeyringService, KeyringUser(baseURL))
	if err != nil {
		slog.Debug(MsgKeyringMiss,
			LogKeyComponent, CompConfig,
			LogKeyError, err,
		)
		return ""
	}
	return key
}

// SaveAPIKey stores the API key of a backend in the OS keyring.
func SaveAPIKey(baseURL, key string) error {
	if err := KeyringSetter(KeyringService, KeyringUser(baseURL), key); err != nil {
		return fmt.Errorf("%s: %w", ErrKeyringWrite, err)
	}
	return nil
}

// LookupAPIKey returns the API key stored for a backend, if any.
func LookupAPIKey(baseURL string) (string, bool) {
	key := lookupAPIKey(baseURL)
	return key, key != ""
}

// Validate reports the first configuration problem found.
func (s Settings) Validate() error {
	if s.BaseURL == "" {
		return errors.New(ErrBaseURLEmpty)
	}
	u, err := url.Parse(s.BaseURL)
	if err != nil {
		return fmt.Errorf("%s: %w", ErrInvalidURL, err)
	}
	if u.Scheme != SchemeHTTP && u.Scheme != SchemeHTTPS {
		return fmt.Errorf("%s: %s", ErrProtocol, u.Scheme)
	}
	if err := ValidatePort(s.Port); err != nil {
		return err
	}
	if s.RatePerSec <= 0 {
		return errors.New(ErrRateLimit)
	}
	if !slices.Contains(SupportedLanguages, s.Language) {
		return fmt.Errorf("%s: %q", ErrLanguage, s.Language)
	}
	return nil
}

// ValidatePort checks that port is a number in the TCP range.
func ValidatePort(port string) error {
	if port == "" {
		return errors.New(ErrPortRequired)
	}
	n, err := strconv.Atoi(port)
	if err != nil {
		return errors.New(ErrPortNumber)
	}
	if n < MinPort || n > MaxPort {
		return errors.New(ErrPortRange)
	}
	return nil
}

// Limit clamps a configured worker count to at least one.
func Limit(n, fallback int) int {
	if n >= 1 {
		return n
	}
	if fallback >= 1 {
		return fallback
	}
	return 1
}
