package dub

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/viper"
)

// LoadConfigFromViper builds the engine config from Viper, starting
// from defaults so an absent config file still works.
func LoadConfigFromViper() (Config, error) {
	cfg := DefaultConfig()

	if viper.IsSet("dub.drift_factor") {
		cfg.DriftFactor = viper.GetFloat64("dub.drift_factor")
	}
	if viper.IsSet("dub.seek_tolerance") {
		cfg.SeekTolerance = viper.GetDuration("dub.seek_tolerance")
	}
	if viper.IsSet("dub.subtitles") {
		cfg.Subtitles = viper.GetBool("dub.subtitles")
	}
	if viper.IsSet("dub.overlay_width") {
		cfg.OverlayWidth = viper.GetInt("dub.overlay_width")
	}

	// Environment beats the config file.
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse environment overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
