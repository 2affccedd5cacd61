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
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const seedSQL = `INSERT INTO categories (id, name, slug, locale) VALUES (1, 'News', 'news', 'en');
INSERT INTO articles (id, title, slug, teaser, body, image, locale, is_published, category_id)
VALUES (1, 'Hello', 'hello', 'Hello teaser', 'Hello body', '/img/hello.png', 'en', 1, 1);
`

func writeSeededConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	common := filepath.Join(dir, "sql", "common")
	require.NoError(t, os.MkdirAll(common, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(common, "001_articles.sql"), []byte(seedSQL), 0o644))

	path := filepath.Join(dir, "ormcms.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
database:
  connection:
    type: sqlite
    dbname: ":memory:"
  migrate:
    enable_migrate_on_startup: true
  seed:
    enable_seed_on_migrate: true
    path: `+filepath.Join(dir, "sql")+`
locales: [en]
log:
  level: error
`), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestFieldsCommand(t *testing.T) {
	out, err := execute(t, "fields", "Article", "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "title\t")
	assert.Contains(t, out, "slug\t")

	out, err = execute(t, "fields", "Article", "--kind", "unique", "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "slug\t")
	assert.NotContains(t, out, "title\t")

	out, err = execute(t, "fields", "Article", "--kind", "relation", "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "category\t")
	assert.Contains(t, out, "tags\t")

	_, err = execute(t, "fields", "Article", "--kind", "bogus", "--log-level", "error")
	assert.Error(t, err)
	_, err = execute(t, "fields", "Missing", "--log-level", "error")
	assert.Error(t, err)
}

func TestContentCommand(t *testing.T) {
	config := writeSeededConfig(t)

	out, err := execute(t, "content", "Article", "1", "--config", config)
	require.NoError(t, err)
	var c map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &c))
	assert.Equal(t, "Article", c["type"])
	assert.Equal(t, "Hello", c["title"])
	assert.Equal(t, "Hello teaser", c["teaser"])
	assert.Equal(t, "/img/hello.png", c["image"])

	_, err = execute(t, "content", "Article", "42", "--config", config)
	assert.Error(t, err)
}

func TestMigrateCommand(t *testing.T) {
	out, err := execute(t, "migrate", "--seed", "--config", writeSeededConfig(t))
	require.NoError(t, err)
	assert.Contains(t, out, "20250101000100")
	assert.Contains(t, out, "20250101000200")
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	t.Setenv("ORMCMS_HTTP_ADDRESS", ":9191")
	t.Setenv("ORMCMS_DEFAULT_LOCALE", "en")
	cfg, err := (&rootOptions{}).loadConfig()
	require.NoError(t, err)
	assert.Equal(t, ":9191", cfg.HTTP.Address)
	assert.Equal(t, "sqlite", cfg.Database.ConnectionConfig.Type)
	assert.True(t, cfg.Database.MigrateConfig.EnableMigrateOnStartup)
}
