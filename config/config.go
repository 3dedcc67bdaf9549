// Package config loads application settings from YAML through viper. The
// audio engine consumes the settings read-only; persistence and editing
// belong to the application shell.
package config

import (
	"errors"
	"fmt"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/luoheng/voicelink-go/audio"
	"github.com/luoheng/voicelink-go/logger"
)

type Config struct {
	Audio struct {
		SampleRate    int `mapstructure:"sample_rate"`
		Channels      int `mapstructure:"channels"`
		FrameDuration int `mapstructure:"frame_duration"` // milliseconds

		// Device selection: "none" disables the direction, empty picks
		// the system default.
		InputDevice  string `mapstructure:"input_device"`
		OutputDevice string `mapstructure:"output_device"`

		InputGain    float64 `mapstructure:"input_gain"`     // dB
		MinInputGain float64 `mapstructure:"input_gain_min"` // dB
		MaxInputGain float64 `mapstructure:"input_gain_max"` // dB
		OutputVolume int     `mapstructure:"output_volume"`  // 0..100

		FilterAudio bool `mapstructure:"filter_audio"`
	} `mapstructure:"audio"`

	Logging struct {
		Level   string   `mapstructure:"level"`
		Outputs []string `mapstructure:"outputs"`
	} `mapstructure:"logging"`
}

// Load reads the configuration file. An empty path searches the usual
// locations; missing keys fall back to voice-call defaults (48kHz mono,
// 20ms frames, gain bounds -30..+30 dB, full volume).
func Load(configPath string) (Config, error) {
	viper.SetConfigType("yaml")

	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		viper.SetConfigName("config")
		viper.AddConfigPath(".")
		viper.AddConfigPath("./config")
		viper.AddConfigPath("/etc/voicelink")
	}

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath == "" && errors.As(err, &notFound) {
			// No file anywhere on the search path: run on defaults.
			var cfg Config
			if err := viper.Unmarshal(&cfg); err != nil {
				return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
			}
			return cfg, nil
		}
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}

func setDefaults() {
	viper.SetDefault("audio.sample_rate", 48000)
	viper.SetDefault("audio.channels", 1)
	viper.SetDefault("audio.frame_duration", 20)
	viper.SetDefault("audio.input_gain", 0.0)
	viper.SetDefault("audio.input_gain_min", -30.0)
	viper.SetDefault("audio.input_gain_max", 30.0)
	viper.SetDefault("audio.output_volume", 100)
	viper.SetDefault("audio.filter_audio", false)
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.outputs", []string{"stdout"})
}

// Watch re-reads the configuration whenever the file changes and hands the
// fresh copy to onChange. Used to reinit audio devices on settings edits.
func Watch(onChange func(Config)) {
	viper.OnConfigChange(func(_ fsnotify.Event) {
		var cfg Config
		if err := viper.Unmarshal(&cfg); err != nil {
			logger.Warn("Ignoring invalid config change", "error", err)
			return
		}
		onChange(cfg)
	})
	viper.WatchConfig()
}

// AudioConfig maps the persisted settings into the engine's configuration.
func (c Config) AudioConfig() audio.Config {
	return audio.Config{
		SampleRate:    c.Audio.SampleRate,
		Channels:      c.Audio.Channels,
		FrameDuration: c.Audio.FrameDuration,
		InputDevice:   c.Audio.InputDevice,
		OutputDevice:  c.Audio.OutputDevice,
		InputGain:     c.Audio.InputGain,
		MinInputGain:  c.Audio.MinInputGain,
		MaxInputGain:  c.Audio.MaxInputGain,
		OutputVolume:  c.Audio.OutputVolume,
		FilterEnabled: c.Audio.FilterAudio,
	}
}
