package config

import (
	"sync"

	"pocketfolio/internal/database"
	"pocketfolio/internal/gateway"

	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"
)

type SecurityConfig struct {
	// Key used to encrypt the persisted session at rest.
	// Empty disables encryption (plain JSON in the local store).
	EncryptionKey string `mapstructure:"encryption_key"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

type Config struct {
	Gateway  gateway.Config  `mapstructure:"gateway"`
	Store    database.Config `mapstructure:"store"`
	Security SecurityConfig  `mapstructure:"security"`
	Log      LogConfig       `mapstructure:"log"`
}

var (
	appConfig *Config
	once      sync.Once
)

// Load loads configuration from given file path (e.g. "config.yaml").
// If path is empty, it defaults to "config.yaml" in current working directory.
func Load(path string) (*Config, error) {
	var err error
	once.Do(func() {
		v := viper.New()

		if path == "" {
			v.SetConfigName("config")
			v.SetConfigType("yaml")
			v.AddConfigPath(".")
		} else {
			v.SetConfigFile(path)
		}

		// environment overrides, e.g. PF_GATEWAY_BASE_URL=...
		v.SetEnvPrefix("PF")
		v.AutomaticEnv()

		if err = v.ReadInConfig(); err != nil {
			err = errors.Wrap(err, "read config")
			return
		}

		var c Config
		if err = v.Unmarshal(&c); err != nil {
			err = errors.Wrap(err, "unmarshal config")
			return
		}

		appConfig = &c
	})

	if err != nil {
		return nil, err
	}
	return appConfig, nil
}

// Get returns the loaded global configuration.
// Call Load() once at application startup.
func Get() *Config {
	return appConfig
}
