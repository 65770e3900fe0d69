package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bryfeng/sherpa-front-sub002/internal/registry"
)

// GlobalFlags are the raw persistent flag values before merging. Precedence
// is flags over env over config file over defaults.
type GlobalFlags struct {
	ConfigPath     string
	JSON           bool
	Plain          bool
	Select         string
	ResultsOnly    bool
	EnableCommands string
	Timeout        string
	Retries        int
	BackendURL     string
	Model          string
	Chain          string
	NoSession      bool
	LogLevel       string
}

type Settings struct {
	OutputMode      string
	SelectFields    []string
	ResultsOnly     bool
	EnableCommands  []string
	Timeout         time.Duration
	Retries         int
	BackendURL      string
	Model           string
	Chain           string
	SessionEnabled  bool
	SessionPath     string
	SessionLockPath string
	RPCOverrides    map[int64]string
	LogLevel        string
}

type fileConfig struct {
	Output   string `yaml:"output"`
	Timeout  string `yaml:"timeout"`
	Retries  *int   `yaml:"retries"`
	LogLevel string `yaml:"log_level"`
	Backend  struct {
		URL   string `yaml:"url"`
		Model string `yaml:"model"`
	} `yaml:"backend"`
	Session struct {
		Enabled  *bool  `yaml:"enabled"`
		Path     string `yaml:"path"`
		LockPath string `yaml:"lock_path"`
	} `yaml:"session"`
	RPC map[string]string `yaml:"rpc"`
}

func Load(flags GlobalFlags) (Settings, error) {
	settings, err := defaultSettings()
	if err != nil {
		return Settings{}, err
	}

	cfgPath, err := resolveConfigPath(flags.ConfigPath)
	if err != nil {
		return Settings{}, err
	}

	if err := applyFileConfig(cfgPath, &settings); err != nil {
		return Settings{}, err
	}

	applyEnv(&settings)

	if err := applyFlags(flags, &settings); err != nil {
		return Settings{}, err
	}

	if settings.OutputMode == "" {
		settings.OutputMode = "json"
	}
	if settings.Timeout <= 0 {
		settings.Timeout = 30 * time.Second
	}
	if settings.Retries < 0 {
		settings.Retries = 0
	}
	if settings.BackendURL == "" {
		settings.BackendURL = registry.DefaultBackendURL
	}

	return settings, nil
}

func defaultSettings() (Settings, error) {
	sessionPath, lockPath, err := defaultSessionPaths()
	if err != nil {
		return Settings{}, err
	}
	return Settings{
		OutputMode:      "json",
		Timeout:         30 * time.Second,
		Retries:         2,
		BackendURL:      registry.DefaultBackendURL,
		SessionEnabled:  true,
		SessionPath:     sessionPath,
		SessionLockPath: lockPath,
		LogLevel:        "warn",
	}, nil
}

func resolveConfigPath(input string) (string, error) {
	if strings.TrimSpace(input) != "" {
		return input, nil
	}
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "sherpa", "config.yaml"), nil
}

func defaultSessionPaths() (string, string, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", "", err
		}
		base = filepath.Join(home, ".cache")
	}
	dir := filepath.Join(base, "sherpa")
	return filepath.Join(dir, "session.db"), filepath.Join(dir, "session.lock"), nil
}

func applyFileConfig(path string, settings *Settings) error {
	buf, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}

	var cfg fileConfig
	if err := yaml.Unmarshal(buf, &cfg); err != nil {
		return fmt.Errorf("parse config yaml: %w", err)
	}

	if cfg.Output != "" {
		settings.OutputMode = strings.ToLower(cfg.Output)
	}
	if cfg.Timeout != "" {
		d, err := time.ParseDuration(cfg.Timeout)
		if err != nil {
			return fmt.Errorf("config timeout: %w", err)
		}
		settings.Timeout = d
	}
	if cfg.Retries != nil {
		settings.Retries = *cfg.Retries
	}
	if cfg.LogLevel != "" {
		settings.LogLevel = strings.ToLower(cfg.LogLevel)
	}
	if cfg.Backend.URL != "" {
		settings.BackendURL = strings.TrimRight(cfg.Backend.URL, "/")
	}
	if cfg.Backend.Model != "" {
		settings.Model = cfg.Backend.Model
	}
	if cfg.Session.Enabled != nil {
		settings.SessionEnabled = *cfg.Session.Enabled
	}
	if cfg.Session.Path != "" {
		settings.SessionPath = cfg.Session.Path
	}
	if cfg.Session.LockPath != "" {
		settings.SessionLockPath = cfg.Session.LockPath
	}
	for chain, url := range cfg.RPC {
		id, err := strconv.ParseInt(strings.TrimSpace(chain), 10, 64)
		if err != nil {
			return fmt.Errorf("config rpc: chain key %q is not a chain id", chain)
		}
		if settings.RPCOverrides == nil {
			settings.RPCOverrides = map[int64]string{}
		}
		settings.RPCOverrides[id] = strings.TrimSpace(url)
	}

	return nil
}

func applyEnv(settings *Settings) {
	if v := os.Getenv("SHERPA_OUTPUT"); v != "" {
		settings.OutputMode = strings.ToLower(v)
	}
	if v := os.Getenv("SHERPA_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			settings.Timeout = d
		}
	}
	if v := os.Getenv("SHERPA_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			settings.Retries = n
		}
	}
	if v := os.Getenv("SHERPA_BACKEND_URL"); v != "" {
		settings.BackendURL = strings.TrimRight(v, "/")
	}
	if v := os.Getenv("SHERPA_MODEL"); v != "" {
		settings.Model = v
	}
	if v := os.Getenv("SHERPA_CHAIN"); v != "" {
		settings.Chain = v
	}
	if v := os.Getenv("SHERPA_NO_SESSION"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			settings.SessionEnabled = !b
		}
	}
	if v := os.Getenv("SHERPA_SESSION_PATH"); v != "" {
		settings.SessionPath = v
	}
	if v := os.Getenv("SHERPA_SESSION_LOCK_PATH"); v != "" {
		settings.SessionLockPath = v
	}
	if v := os.Getenv("SHERPA_LOG_LEVEL"); v != "" {
		settings.LogLevel = strings.ToLower(v)
	}
}

func applyFlags(flags GlobalFlags, settings *Settings) error {
	if flags.JSON && flags.Plain {
		return fmt.Errorf("cannot use --json and --plain together")
	}
	if flags.JSON {
		settings.OutputMode = "json"
	}
	if flags.Plain {
		settings.OutputMode = "plain"
	}
	if fields := splitCSV(flags.Select); len(fields) > 0 {
		settings.SelectFields = fields
	}
	settings.ResultsOnly = flags.ResultsOnly

	if allowed := splitCSV(flags.EnableCommands); len(allowed) > 0 {
		settings.EnableCommands = allowed
	}

	if flags.Timeout != "" {
		d, err := time.ParseDuration(flags.Timeout)
		if err != nil {
			return fmt.Errorf("parse --timeout: %w", err)
		}
		settings.Timeout = d
	}
	if flags.Retries >= 0 {
		settings.Retries = flags.Retries
	}
	if flags.BackendURL != "" {
		settings.BackendURL = strings.TrimRight(flags.BackendURL, "/")
	}
	if flags.Model != "" {
		settings.Model = flags.Model
	}
	if flags.Chain != "" {
		settings.Chain = flags.Chain
	}
	if flags.NoSession {
		settings.SessionEnabled = false
	}
	if flags.LogLevel != "" {
		settings.LogLevel = strings.ToLower(flags.LogLevel)
	}

	if settings.OutputMode != "json" && settings.OutputMode != "plain" {
		return fmt.Errorf("output must be json or plain")
	}

	return nil
}

func splitCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if v := strings.TrimSpace(part); v != "" {
			out = append(out, v)
		}
	}
	return out
}
