// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Game     GameConfig     `toml:"game"`
	Score    ScoreConfig    `toml:"score"`
	Server   ServerConfig   `toml:"server"`
	Sync     SyncConfig     `toml:"sync"`
	Reader   ReaderConfig   `toml:"reader"`
	Log      LogConfig      `toml:"log"`
	Messages MessagesConfig `toml:"messages"`
	Scene    SceneConfig    `toml:"scene"`
}

// GameConfig maps session budgets. Durations are in seconds.
type GameConfig struct {
	TimeLimit        *int `toml:"time-limit"`
	TotalErrors      *int `toml:"total-errors"`
	MaxWrongAttempts *int `toml:"max-wrong-attempts"`
	ResultsTimeout   *int `toml:"results-timeout"`
}

// ScoreConfig maps score thresholds and bands. Bands are
// [empathy, creativity, problem-solving].
type ScoreConfig struct {
	HighThreshold   *int  `toml:"high-threshold"`
	MediumThreshold *int  `toml:"medium-threshold"`
	High            []int `toml:"high"`
	Medium          []int `toml:"medium"`
	Low             []int `toml:"low"`
}

// ServerConfig maps the identity server location.
type ServerConfig struct {
	IP      *string `toml:"ip"`
	Port    *int    `toml:"port"`
	GameID  *int    `toml:"game-id"`
	Timeout *int    `toml:"timeout"`
}

// SyncConfig maps result delivery settings.
type SyncConfig struct {
	RetryPolicy    *string `toml:"retry-policy"`
	FetchOnConnect *bool   `toml:"fetch-on-connect"`
}

// ReaderConfig maps the card reader bridge endpoint.
type ReaderConfig struct {
	Enabled *bool   `toml:"enabled"`
	Listen  *string `toml:"listen"`
}

// LogConfig maps logging settings.
type LogConfig struct {
	Level *string `toml:"level"`
	File  *string `toml:"file"`
}

// MessagesConfig maps the result message shown for each end cause.
type MessagesConfig struct {
	Completed    *string `toml:"completed"`
	TimedOut     *string `toml:"timed-out"`
	TooManyWrong *string `toml:"too-many-wrong"`
	WaitingCard  *string `toml:"waiting-card"`
}

// SceneConfig maps the scene source.
type SceneConfig struct {
	Path *string `toml:"path"`
	Seed *int64  `toml:"seed"`
}

// LoadConfig reads a TOML config from the given path. A missing file is not
// an error; found reports whether the file existed.
func LoadConfig(path string) (cfg FileConfig, found bool, err error) {
	if path == "" {
		return FileConfig{}, false, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, false, nil
		}
		return FileConfig{}, false, fmt.Errorf("failed to stat config: %w", err)
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return FileConfig{}, true, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, true, nil
}
