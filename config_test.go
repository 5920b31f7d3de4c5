/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package sqlmigrate

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/acronis/go-appkit/config"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type AppConfig struct {
	Migrator *Config `mapstructure:"migrator" json:"migrator" yaml:"migrator"`
}

func TestConfig(t *testing.T) {
	tests := []struct {
		name        string
		cfgData     string
		expectedCfg func() *Config
	}{
		{
			name: "full config",
			cfgData: `
migrator:
  source: ./migrations
  maxOpenConns: 2
  maxIdleConns: 2
  connMaxLifeTime: 2m
  sqlite3:
    path: ./app.db
    busyTimeout: 10s
`,
			expectedCfg: func() *Config {
				cfg := NewDefaultConfig()
				cfg.Source = "./migrations"
				cfg.MaxOpenConns = 2
				cfg.MaxIdleConns = 2
				cfg.ConnMaxLifetime = config.TimeDuration(2 * time.Minute)
				cfg.SQLite.Path = "./app.db"
				cfg.SQLite.BusyTimeout = config.TimeDuration(10 * time.Second)
				return cfg
			},
		},
		{
			name: "minimal config keeps defaults",
			cfgData: `
migrator:
  source: ./migrations
  sqlite3:
    path: ":memory:"
`,
			expectedCfg: func() *Config {
				cfg := NewDefaultConfig()
				cfg.Source = "./migrations"
				cfg.SQLite.Path = ":memory:"
				return cfg
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, dataType := range []config.DataType{config.DataTypeYAML, config.DataTypeJSON} {
				cfgData := tt.cfgData
				if dataType == config.DataTypeJSON {
					cfgData = string(mustYAMLToJSON([]byte(cfgData)))
				}

				// Load config using config.Loader.
				appCfg := AppConfig{Migrator: NewDefaultConfig()}
				expectedAppCfg := AppConfig{Migrator: tt.expectedCfg()}
				cfgLoader := config.NewLoader(config.NewViperAdapter())
				err := cfgLoader.LoadFromReader(bytes.NewBuffer([]byte(cfgData)), dataType, appCfg.Migrator)
				require.NoError(t, err)
				require.Equal(t, expectedAppCfg, appCfg)

				// Load config using viper unmarshal.
				appCfg = AppConfig{Migrator: NewDefaultConfig()}
				expectedAppCfg = AppConfig{Migrator: tt.expectedCfg()}
				vpr := viper.New()
				vpr.SetConfigType(string(dataType))
				require.NoError(t, vpr.ReadConfig(bytes.NewBuffer([]byte(cfgData))))
				require.NoError(t, vpr.Unmarshal(&appCfg, func(c *mapstructure.DecoderConfig) {
					c.DecodeHook = mapstructure.TextUnmarshallerHookFunc()
				}))
				require.Equal(t, expectedAppCfg, appCfg)

				// Load config using yaml/json unmarshal.
				appCfg = AppConfig{Migrator: NewDefaultConfig()}
				expectedAppCfg = AppConfig{Migrator: tt.expectedCfg()}
				switch dataType {
				case config.DataTypeYAML:
					require.NoError(t, yaml.Unmarshal([]byte(cfgData), &appCfg))
					require.Equal(t, expectedAppCfg, appCfg)
				case config.DataTypeJSON:
					require.NoError(t, json.Unmarshal([]byte(cfgData), &appCfg))
					require.Equal(t, expectedAppCfg, appCfg)
				}
			}
		})
	}
}

func TestConfigWithKeyPrefix(t *testing.T) {
	t.Run("custom key prefix", func(t *testing.T) {
		cfgData := `
customMigrator:
  source: ./migrations
  sqlite3:
    path: ./app.db
`
		cfg := NewConfig(WithKeyPrefix("customMigrator"))
		err := config.NewDefaultLoader("").LoadFromReader(bytes.NewBuffer([]byte(cfgData)), config.DataTypeYAML, cfg)
		require.NoError(t, err)
		require.Equal(t, "./migrations", cfg.Source)
		require.Equal(t, "./app.db", cfg.SQLite.Path)
	})

	t.Run("default key prefix, empty struct initialization", func(t *testing.T) {
		cfgData := `
migrator:
  source: ./migrations
  sqlite3:
    path: ./app.db
`
		cfg := &Config{}
		err := config.NewDefaultLoader("").LoadFromReader(bytes.NewBuffer([]byte(cfgData)), config.DataTypeYAML, cfg)
		require.NoError(t, err)
		require.Equal(t, "./migrations", cfg.Source)
		require.Equal(t, "./app.db", cfg.SQLite.Path)
	})
}

func TestConfigValidationErrors(t *testing.T) {
	tests := []struct {
		name           string
		yamlData       string
		expectedErrMsg string
	}{
		{
			name: "invalid max open connections",
			yamlData: `
migrator:
  maxOpenConns: -1
`,
			expectedErrMsg: `migrator.maxOpenConns: must be positive`,
		},
		{
			name: "invalid max idle connections",
			yamlData: `
migrator:
  maxIdleConns: -1
`,
			expectedErrMsg: `migrator.maxIdleConns: must be positive`,
		},
		{
			name: "max idle connections greater than max open connections",
			yamlData: `
migrator:
  maxOpenConns: 5
  maxIdleConns: 10
`,
			expectedErrMsg: `migrator.maxIdleConns: must be less than maxOpenConns`,
		},
		{
			name: "invalid connection max lifetime",
			yamlData: `
migrator:
  connMaxLifeTime: "invalid-duration"
`,
			expectedErrMsg: `migrator.connMaxLifeTime: time: invalid duration "invalid-duration"`,
		},
		{
			name: "invalid busy timeout",
			yamlData: `
migrator:
  sqlite3:
    busyTimeout: -5s
`,
			expectedErrMsg: `migrator.sqlite3.busyTimeout: must be positive`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			err := config.NewDefaultLoader("").LoadFromReader(bytes.NewBuffer([]byte(tt.yamlData)), config.DataTypeYAML, cfg)
			require.EqualError(t, err, tt.expectedErrMsg)
		})
	}
}

func mustYAMLToJSON(yamlData []byte) []byte {
	var yamlMap map[string]interface{}
	if err := yaml.Unmarshal(yamlData, &yamlMap); err != nil {
		panic(err)
	}
	jsonData, err := json.MarshalIndent(yamlMap, "", "  ")
	if err != nil {
		panic(err)
	}
	return jsonData
}
