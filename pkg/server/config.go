package server

import (
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the server configuration, populated from the environment.
type Config struct {
	DataDir    string `env:"ROULETTE_DATA_DIR" envDefault:"data"`
	DebugLevel string `env:"ROULETTE_DEBUG_LEVEL" envDefault:"info"`

	Mode       string `env:"ROULETTE_MODE" envDefault:"classic"`
	MinPlayers int    `env:"ROULETTE_MIN_PLAYERS" envDefault:"2"`
	MaxPlayers int    `env:"ROULETTE_MAX_PLAYERS" envDefault:"6"`

	BetAmount int64   `env:"ROULETTE_BET_AMOUNT" envDefault:"100"`
	HouseCut  float64 `env:"ROULETTE_HOUSE_CUT" envDefault:"0.05"`

	StartCountdownSec   int `env:"ROULETTE_START_COUNTDOWN" envDefault:"10"`
	TurnTimeSec         int `env:"ROULETTE_TURN_TIME" envDefault:"30"`
	TurnAdvanceDelaySec int `env:"ROULETTE_TURN_ADVANCE_DELAY" envDefault:"2"`

	ReshuffleAfterShot    bool `env:"ROULETTE_RESHUFFLE_AFTER_SHOT" envDefault:"false"`
	RefundOnCancel        bool `env:"ROULETTE_REFUND_ON_CANCEL" envDefault:"true"`
	AllowMultipleSessions bool `env:"ROULETTE_ALLOW_MULTIPLE" envDefault:"true"`
}

// LoadConfig reads the configuration from the environment.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// DBPath returns the path of the wallet database file.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "roulette.db")
}

// LogFile returns the path of the rotating server log.
func (c *Config) LogFile() string {
	return filepath.Join(c.DataDir, "logs", "roulettesrv.log")
}

// StartCountdown returns the start countdown as a duration.
func (c *Config) StartCountdown() time.Duration {
	return time.Duration(c.StartCountdownSec) * time.Second
}

// TurnTime returns the per-turn clock as a duration.
func (c *Config) TurnTime() time.Duration {
	return time.Duration(c.TurnTimeSec) * time.Second
}

// TurnAdvanceDelay returns the pause between turns as a duration.
func (c *Config) TurnAdvanceDelay() time.Duration {
	return time.Duration(c.TurnAdvanceDelaySec) * time.Second
}
