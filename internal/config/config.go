// Package config handles TOML configuration loading with environment variable substitution.
package config

import (
	"fmt"
	"os"
	"regexp"

	"github.com/BurntSushi/toml"
)

// Config is the root configuration structure.
type Config struct {
	Server       ServerConfig       `toml:"server"`
	Database     DatabaseConfig     `toml:"database"`
	Fingerprints FingerprintsConfig `toml:"fingerprints"`
	General      GeneralConfig      `toml:"general"`
	TV           TVConfig           `toml:"tv"`
	Movie        MovieConfig        `toml:"movie"`
	Workers      WorkersConfig      `toml:"workers"`
	Tools        ToolsConfig        `toml:"tools"`
}

// ServerConfig points at the media server.
type ServerConfig struct {
	URL      string `toml:"url"`
	Token    string `toml:"token"`
	LogLevel string `toml:"log_level"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

type FingerprintsConfig struct {
	Path string `toml:"path"`
}

// GeneralConfig holds the skip policy knobs shared across content kinds.
type GeneralConfig struct {
	Mode             string   `toml:"mode"`
	LookaheadSec     int64    `toml:"lookahead_sec"`
	Users            []string `toml:"users"`
	Clients          []string `toml:"clients"`
	IgnoreIntroItems []int64  `toml:"ignore_intro_items"`
	IgnoreOutroItems []int64  `toml:"ignore_outro_items"`
}

// TVConfig is the episode policy.
type TVConfig struct {
	ProcessRecentlyAdded bool     `toml:"process_recently_added"`
	ProcessDeleted       bool     `toml:"process_deleted"`
	CheckForThemeSec     int64    `toml:"check_for_theme_sec"`
	CheckIntroWindowSec  int64    `toml:"check_intro_window_sec"`
	CheckCredits         bool     `toml:"check_credits"`
	CheckCreditsAction   string   `toml:"check_credits_action"`
	CheckCreditsSec      int64    `toml:"check_credits_sec"`
	CreditsDelaySec      int64    `toml:"credits_delay_sec"`
	PlayNext             bool     `toml:"play_next"`
	RecapPhrases         []string `toml:"recap_phrases"`
}

// MovieConfig is the movie policy.
type MovieConfig struct {
	ProcessRecentlyAdded bool   `toml:"process_recently_added"`
	ProcessDeleted       bool   `toml:"process_deleted"`
	CheckIntroWindowSec  int64  `toml:"check_intro_window_sec"`
	CheckCredits         bool   `toml:"check_credits"`
	CheckCreditsAction   string `toml:"check_credits_action"`
	CheckCreditsSec      int64  `toml:"check_credits_sec"`
	CreditsDelaySec      int64  `toml:"credits_delay_sec"`
}

type WorkersConfig struct {
	PoolSize           int   `toml:"pool_size"`
	DetectorTimeoutSec int64 `toml:"detector_timeout_sec"`
	CommandTimeoutSec  int64 `toml:"command_timeout_sec"`
}

// ToolsConfig locates the external binaries the detectors shell out to.
type ToolsConfig struct {
	FFmpegPath string `toml:"ffmpeg_path"`
	FpcalcPath string `toml:"fpcalc_path"`
}

// Load reads and parses the configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Substitute environment variables
	content := substituteEnvVars(string(data))

	var cfg Config
	if _, err := toml.Decode(content, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.URL == "" {
		cfg.Server.URL = "http://127.0.0.1:32400"
	}
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = "info"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "./data/skipd.db"
	}
	if cfg.Fingerprints.Path == "" {
		cfg.Fingerprints.Path = "./data/themes.db"
	}
	if cfg.General.Mode == "" {
		cfg.General.Mode = "skip_only_theme"
	}
	if cfg.General.LookaheadSec == 0 {
		cfg.General.LookaheadSec = 5
	}
	if cfg.TV.CheckForThemeSec == 0 {
		cfg.TV.CheckForThemeSec = 600
	}
	if cfg.TV.CheckIntroWindowSec == 0 {
		cfg.TV.CheckIntroWindowSec = 600
	}
	if cfg.TV.CheckCreditsAction == "" {
		cfg.TV.CheckCreditsAction = "none"
	}
	if cfg.TV.CheckCreditsSec == 0 {
		cfg.TV.CheckCreditsSec = 120
	}
	if len(cfg.TV.RecapPhrases) == 0 {
		cfg.TV.RecapPhrases = []string{"previously on", "last season", "last episode"}
	}
	if cfg.Movie.CheckIntroWindowSec == 0 {
		cfg.Movie.CheckIntroWindowSec = 600
	}
	if cfg.Movie.CheckCreditsAction == "" {
		cfg.Movie.CheckCreditsAction = "none"
	}
	if cfg.Movie.CheckCreditsSec == 0 {
		cfg.Movie.CheckCreditsSec = 600
	}
	if cfg.Workers.PoolSize == 0 {
		cfg.Workers.PoolSize = 4
	}
	if cfg.Workers.DetectorTimeoutSec == 0 {
		cfg.Workers.DetectorTimeoutSec = 300
	}
	if cfg.Workers.CommandTimeoutSec == 0 {
		cfg.Workers.CommandTimeoutSec = 15
	}
	if cfg.Tools.FFmpegPath == "" {
		cfg.Tools.FFmpegPath = "ffmpeg"
	}
	if cfg.Tools.FpcalcPath == "" {
		cfg.Tools.FpcalcPath = "fpcalc"
	}
}

func validate(cfg *Config) error {
	switch cfg.General.Mode {
	case "skip_only_theme", "skip_if_recap":
	default:
		return fmt.Errorf("invalid general.mode %q", cfg.General.Mode)
	}
	for name, action := range map[string]string{
		"tv.check_credits_action":    cfg.TV.CheckCreditsAction,
		"movie.check_credits_action": cfg.Movie.CheckCreditsAction,
	} {
		switch action {
		case "none", "seek", "stop":
		default:
			return fmt.Errorf("invalid %s %q", name, action)
		}
	}
	return nil
}

// substituteEnvVars replaces ${VAR_NAME} with environment variable values.
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

func substituteEnvVars(content string) string {
	return envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		varName := match[2 : len(match)-1] // Strip ${ and }
		if value, ok := os.LookupEnv(varName); ok {
			return value
		}
		return match // Leave unchanged if not found
	})
}
