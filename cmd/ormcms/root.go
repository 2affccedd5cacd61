/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tomoncle/ormcms"
	"github.com/tomoncle/ormcms/utils"
)

var log = utils.NewLogger("CLI")

// Environment variable prefix, ORMCMS_DATABASE_CONNECTION_TYPE sets
// database.connection.type.
const envPrefix = "ORMCMS"

var envKeys = []string{
	"database.connection.type",
	"database.connection.host",
	"database.connection.port",
	"database.connection.username",
	"database.connection.password",
	"database.connection.dbname",
	"database.seed.path",
	"database.seed.environment",
	"locales",
	"default_locale",
	"base_url",
	"templates",
	"models",
	"log.level",
	"http.address",
	"http.base_script",
	"http.metrics",
}

type rootOptions struct {
	configFile string
	logLevel   string
}

// NewRootCmd returns the ormcms command with its sub commands.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "ormcms",
		Short: "ORM content widgets for a CMS",
		Long: `ormcms renders content of ORM models through overview, detail and
entry widgets and exposes the field and content services over HTTP.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "", "path to the YAML config file (env: ORMCMS_CONFIG)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn or error")

	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newMigrateCmd(opts))
	cmd.AddCommand(newFieldsCmd(opts))
	cmd.AddCommand(newContentCmd(opts))
	return cmd
}

// loadConfig merges the config file and the environment over the defaults.
func (o *rootOptions) loadConfig() (*ormcms.Config, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range envKeys {
		_ = v.BindEnv(key)
	}

	configFile := o.configFile
	if configFile == "" {
		configFile = v.GetString("config")
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config %s", configFile)
		}
	}

	cfg := ormcms.DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshal config")
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	return cfg, cfg.Validate()
}

func (o *rootOptions) open(ctx context.Context, cfg *ormcms.Config) (*ormcms.App, error) {
	app, err := ormcms.New(ctx, cfg, contentModels()...)
	if err != nil {
		return nil, err
	}
	log.WithField("database", cfg.Database.ConnectionConfig.Type).Debug("application opened")
	return app, nil
}
