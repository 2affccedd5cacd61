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

package ormcms

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/tomoncle/ormcms/database"
	"github.com/tomoncle/ormcms/utils"
	"gopkg.in/yaml.v3"
)

// HTTPConfig configures the HTTP handler and server.
type HTTPConfig struct {
	Address string `yaml:"address" mapstructure:"address"`
	// BaseScript prefixes node routes in generated URLs.
	BaseScript string `yaml:"base_script" mapstructure:"base_script"`
	Metrics    bool   `yaml:"metrics" mapstructure:"metrics"`
	// Advanced exposes every property row to the widget forms.
	Advanced bool `yaml:"advanced" mapstructure:"advanced"`
	// TextUsageURL links text usages to the backend. %site%, %node%,
	// %region%, %section% and %block% are replaced.
	TextUsageURL string `yaml:"text_usage_url" mapstructure:"text_usage_url"`
}

// Config is the configuration of an App.
type Config struct {
	Database      database.Config  `yaml:"database" mapstructure:"database"`
	Locales       []string         `yaml:"locales" mapstructure:"locales"`
	DefaultLocale string           `yaml:"default_locale" mapstructure:"default_locale"`
	BaseURL       string           `yaml:"base_url" mapstructure:"base_url"`
	Templates     []string         `yaml:"templates" mapstructure:"templates"`
	Layouts       []string         `yaml:"layouts" mapstructure:"layouts"`
	Themes        []string         `yaml:"themes" mapstructure:"themes"`
	Models        string           `yaml:"models" mapstructure:"models"` // model definitions file
	Log           utils.LogOptions `yaml:"log" mapstructure:"log"`
	HTTP          HTTPConfig       `yaml:"http" mapstructure:"http"`
}

// DefaultConfig returns an in-memory sqlite setup for a single locale.
func DefaultConfig() *Config {
	return &Config{
		Database: database.Config{
			ConnectionConfig: *database.MemoryConfig(),
			MigrateConfig:    database.MigrateConfig{EnableMigrateOnStartup: true},
		},
		Locales:       []string{"en"},
		DefaultLocale: "en",
		Layouts:       []string{"default"},
		Log:           utils.LogOptions{Level: "info", ConsoleFormat: "text", FileFormat: "text"},
		HTTP:          HTTPConfig{Address: ":8080", Metrics: true},
	}
}

// LoadConfig reads a YAML configuration over the defaults.
func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read config %s", path)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, errors.Wrapf(err, "parse config %s", path)
	}
	return cfg, cfg.Validate()
}

// Validate normalizes the locales and checks the required settings.
func (c *Config) Validate() error {
	if c.Database.ConnectionConfig.Type == "" {
		return errors.New("database type is required")
	}
	locales := make([]string, 0, len(c.Locales))
	for _, locale := range c.Locales {
		if locale = strings.TrimSpace(locale); locale != "" {
			locales = append(locales, locale)
		}
	}
	if len(locales) == 0 {
		return errors.New("at least one locale is required")
	}
	c.Locales = locales
	if c.DefaultLocale == "" {
		c.DefaultLocale = locales[0]
	}
	for _, locale := range locales {
		if locale == c.DefaultLocale {
			return nil
		}
	}
	return errors.Errorf("default locale %q is not one of %v", c.DefaultLocale, locales)
}
