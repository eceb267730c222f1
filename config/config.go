package config

import (
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Garden   GardenConfig   `mapstructure:"garden"`
	Quiz     QuizConfig     `mapstructure:"quiz"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

type GardenConfig struct {
	// Days of inactivity before a garden is auto-abandoned.
	AbandonAfterDays int `mapstructure:"abandon_after_days"`
	// Interval for the background abandon sweep; 0 disables it and
	// gardens are only refreshed lazily on access.
	SweepIntervalMinutes int `mapstructure:"sweep_interval_minutes"`
}

type QuizConfig struct {
	// Full picker rotations before a game session completes.
	RoundsPerPlayer int `mapstructure:"rounds_per_player"`
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.SetDefault("server.port", "8080")
	viper.SetDefault("database.path", "./entwine.db")
	viper.SetDefault("garden.abandon_after_days", 7)
	viper.SetDefault("garden.sweep_interval_minutes", 0)
	viper.SetDefault("quiz.rounds_per_player", 3)

	// Allow environment variables
	viper.SetEnvPrefix("ENTWINE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		// Config file not found, use defaults
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}
