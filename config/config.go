// Package config loads engine settings from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/XChenLabs/NFTAuction/escrow"
)

const (
	KeyPolicy         = "ESCROW_POLICY"
	KeyTransferBudget = "ESCROW_TRANSFER_BUDGET"
	KeyLogLevel       = "ESCROW_LOG_LEVEL"
)

// Settings is everything a host needs to build an engine.
type Settings struct {
	Engine   escrow.Config
	LogLevel logrus.Level
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyPolicy, escrow.DefaultConfig().Policy.String())
	v.SetDefault(KeyTransferBudget, escrow.DefaultConfig().TransferBudget.String())
	v.SetDefault(KeyLogLevel, logrus.InfoLevel.String())
}

// Load reads settings from v, with environment variables overriding the defaults.
// A nil v reads from a fresh viper instance.
func Load(v *viper.Viper) (Settings, error) {
	if v == nil {
		v = viper.New()
	}
	SetDefaults(v)
	v.AutomaticEnv()

	policy, err := escrow.ParsePolicy(v.GetString(KeyPolicy))
	if err != nil {
		return Settings{}, fmt.Errorf("%s: %w", KeyPolicy, err)
	}

	budget, err := time.ParseDuration(v.GetString(KeyTransferBudget))
	if err != nil {
		return Settings{}, fmt.Errorf("%s: %w", KeyTransferBudget, err)
	}

	level, err := logrus.ParseLevel(v.GetString(KeyLogLevel))
	if err != nil {
		return Settings{}, fmt.Errorf("%s: %w", KeyLogLevel, err)
	}

	cfg := escrow.Config{Policy: policy, TransferBudget: budget}
	if err := cfg.Validate(); err != nil {
		return Settings{}, err
	}
	return Settings{Engine: cfg, LogLevel: level}, nil
}

// NewLogger returns a JSON logrus logger at the configured level.
func (s Settings) NewLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(s.LogLevel)
	return logger
}

// Options returns the engine options for these settings.
func (s Settings) Options() []escrow.Option {
	return []escrow.Option{
		escrow.WithConfig(s.Engine),
		escrow.WithLogger(s.NewLogger()),
	}
}
