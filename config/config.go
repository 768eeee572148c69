// Copyright (C) 2025-2026 CardinalHQ, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/spf13/viper"

	"github.com/cardinalhq/sqlprefs/internal/dbopen"
	"github.com/cardinalhq/sqlprefs/prefs"
	"github.com/cardinalhq/sqlprefs/prefsdb"
)

// Config aggregates configuration for prefsctl.
type Config struct {
	Store    StoreConfig    `mapstructure:"store"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

type StoreConfig struct {
	// Path is the SQLite database file.
	Path    string `mapstructure:"path"`
	Backend string `mapstructure:"backend"`
	// Credential enables encryption. It may be a literal or an "env:NAME"
	// or "file:/path" reference.
	Credential  string `mapstructure:"credential"`
	LoadPolicy  string `mapstructure:"load_policy"`
	CorruptRows string `mapstructure:"corrupt_rows"`
}

type PostgresConfig struct {
	URL string `mapstructure:"url"`
}

func DefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			Path:        DefaultStorePath,
			Backend:     BackendSQLite,
			LoadPolicy:  prefs.LoadEager.String(),
			CorruptRows: prefsdb.CorruptRowsAbort.String(),
		},
	}
}

// Load reads configuration from a config file and environment variables.
// Environment variables use the prefix "SQLPREFS" and the dot character in
// keys is replaced by an underscore, so "store.path" becomes
// "SQLPREFS_STORE_PATH". With an empty configFile, an optional config.yaml
// in the working directory is read.
func Load(configFile string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvs(v, cfg)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks enumerated values and fills in the Postgres URL from the
// SQLPREFS_PG_* variables when the postgres backend has none configured.
func (c *Config) Validate() error {
	if _, err := prefs.ParseLoadPolicy(c.Store.LoadPolicy); err != nil {
		return err
	}
	if _, err := prefsdb.ParseCorruptRowPolicy(c.Store.CorruptRows); err != nil {
		return err
	}

	switch strings.ToLower(c.Store.Backend) {
	case BackendSQLite, "":
		c.Store.Backend = BackendSQLite
		if c.Store.Path == "" {
			return errors.New("store.path is required for the sqlite backend")
		}
	case BackendPostgres:
		c.Store.Backend = BackendPostgres
		if c.Postgres.URL == "" {
			url, err := dbopen.GetDatabaseURLFromEnv(dbopen.DefaultPrefix)
			if err != nil {
				return fmt.Errorf("postgres backend: %w", err)
			}
			c.Postgres.URL = url
		}
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	return nil
}

// bindEnvs registers all keys within cfg so that viper will look up
// corresponding environment variables when unmarshalling.
func bindEnvs(v *viper.Viper, cfg any, parts ...string) {
	val := reflect.ValueOf(cfg)
	typ := reflect.TypeOf(cfg)
	if typ.Kind() == reflect.Ptr {
		val = val.Elem()
		typ = typ.Elem()
	}
	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		tag := f.Tag.Get("mapstructure")
		if tag == "" {
			tag = strings.ToLower(f.Name)
		}
		key := append(parts, tag)
		if f.Type.Kind() == reflect.Struct {
			bindEnvs(v, val.Field(i).Interface(), key...)
			continue
		}
		_ = v.BindEnv(strings.Join(key, "."))
	}
}
