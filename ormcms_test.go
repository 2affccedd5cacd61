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
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/ormcms/cms"
	"github.com/tomoncle/ormcms/content"
	"github.com/tomoncle/ormcms/orm"
	"github.com/tomoncle/ormcms/text"
	"github.com/tomoncle/ormcms/types"
	"github.com/tomoncle/ormcms/widget"
	"github.com/uptrace/bun"
)

type page struct {
	bun.BaseModel `bun:"table:pages,alias:page"`

	ID     int64  `bun:"id,pk,autoincrement"`
	Title  string `bun:"title"`
	Slug   string `bun:"slug,unique"`
	Locale string `bun:"locale"`
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ormcms.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, `
database:
  connection:
    type: sqlite
    dbname: ":memory:"
    slow_query_time: 500ms
locales: [en, " nl "]
default_locale: nl
base_url: https://example.com
http:
  address: ":9090"
  metrics: false
`))
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Database.ConnectionConfig.Type)
	assert.Equal(t, 1, cfg.Database.ConnectionConfig.MaxOpenConns)
	assert.Equal(t, "500ms", cfg.Database.ConnectionConfig.SlowQueryTime.String())
	assert.Equal(t, []string{"en", "nl"}, cfg.Locales)
	assert.Equal(t, "nl", cfg.DefaultLocale)
	assert.Equal(t, ":9090", cfg.HTTP.Address)
	assert.False(t, cfg.HTTP.Metrics)
	assert.Equal(t, "info", cfg.Log.Level)

	_, err = LoadConfig(writeConfig(t, "locales: [en]\ndefault_locale: fr\n"))
	assert.Error(t, err)
	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestConfigValidateDefaultsLocale(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Locales = []string{"nl", "en"}
	cfg.DefaultLocale = ""
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "nl", cfg.DefaultLocale)

	cfg.Locales = []string{" "}
	assert.Error(t, cfg.Validate())
}

func openApp(t *testing.T, opts ...Option) *App {
	t.Helper()
	cfg := DefaultConfig()
	cfg.HTTP.Metrics = false
	cfg.HTTP.TextUsageURL = "/admin/%node%"
	opts = append([]Option{WithModel(orm.ModelDefinition{
		Name:     "Page",
		Instance: (*page)(nil),
		Formats:  map[string]string{orm.FormatTitle: "{title}"},
	}, 10)}, opts...)
	app, err := New(context.Background(), cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })
	return app
}

func TestNewWiresServices(t *testing.T) {
	app := openApp(t)
	assert.Equal(t, []string{"Page"}, app.Manager.ModelNames())
	assert.Equal(t, []string{widget.ContactName, widget.DetailName, widget.EntryName, widget.OverviewName, text.WidgetName}, app.Widgets.Names())
	assert.Equal(t, []string{"default"}, app.Config.Layouts)
	assert.Equal(t, []string{"en"}, app.Services.Locales)

	rec := httptest.NewRecorder()
	app.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestEntryServiceLogsSlugChanges(t *testing.T) {
	ctx := context.Background()
	app := openApp(t)

	svc, err := NewEntryService[page](app)
	require.NoError(t, err)
	assert.Equal(t, "Page", svc.Model().Name())

	entry := &page{Title: "About", Slug: "about", Locale: "en"}
	require.NoError(t, svc.Save(ctx, entry))
	require.NotZero(t, entry.ID)

	entry.Title = "About us"
	require.NoError(t, svc.Update(ctx, entry))
	history, err := svc.History(ctx, entry.ID)
	require.NoError(t, err)
	assert.Empty(t, history)

	entry.Slug = "about-us"
	require.NoError(t, svc.Update(ctx, entry))
	history, err = svc.History(ctx, entry.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "slug", history[0].FieldName)
	assert.Equal(t, "about", history[0].OldValue)
	assert.Equal(t, "about-us", history[0].NewValue)

	stored, err := svc.Get(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, "About us", stored.Title)

	result, err := svc.Page(ctx, types.NewDefaultPageRequest(1, 10))
	require.NoError(t, err)
	assert.Len(t, result.Items, 1)

	_, err = NewEntryService[page](app, "missing")
	assert.Error(t, err)
}

func TestOutdatedSlugRedirects(t *testing.T) {
	ctx := context.Background()
	app := openApp(t)

	site := cms.NewNode(cms.NodeTypeSite, nil)
	pages := cms.NewNode(cms.NodeTypePage, site)
	pages.SetName("en", "Pages")
	pages.SetRoute("en", "/pages")
	require.NoError(t, app.Nodes.SaveNode(ctx, site))
	require.NoError(t, app.Nodes.SaveNode(ctx, pages))

	detail := cms.NewWidget(pages, widget.DetailName)
	props := cms.NewContentProperties()
	props.ModelName = "Page"
	props.IDField = "slug"
	props.ToWidgetProperties(detail.WidgetProperties(), "en")
	require.NoError(t, app.Nodes.SaveWidget(ctx, detail))

	svc, err := NewEntryService[page](app)
	require.NoError(t, err)
	entry := &page{Title: "About", Slug: "about", Locale: "en"}
	require.NoError(t, svc.Save(ctx, entry))
	entry.Slug = "about-us"
	require.NoError(t, svc.Update(ctx, entry))

	base := "/cms/node/" + pages.ID + "/" + detail.ID + "/"
	rec := httptest.NewRecorder()
	app.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, base+"about", nil))
	assert.Equal(t, http.StatusMovedPermanently, rec.Code)
	assert.Equal(t, "/pages/about-us", rec.Header().Get("Location"))

	rec = httptest.NewRecorder()
	app.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, base+"about-us", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<h1>About</h1>")
}

type titleSearcher struct{}

func (titleSearcher) SearchContent(_ context.Context, site, locale, query string, tokens []string, page, pageItems int) (*types.Pagination[content.Content], error) {
	result := types.NewDefaultPagination[content.Content](page, pageItems)
	result.Total = len(tokens)
	for _, token := range tokens {
		result.Items = append(result.Items, &content.Content{Type: "Page", Title: token})
	}
	return result, nil
}

func TestWithSearcher(t *testing.T) {
	ctx := context.Background()
	app := openApp(t, WithSearcher("Page", titleSearcher{}))

	site := cms.NewNode(cms.NodeTypeSite, nil)
	require.NoError(t, app.Nodes.SaveNode(ctx, site))
	detail := cms.NewWidget(site, widget.DetailName)
	props := cms.NewContentProperties()
	props.ModelName = "Page"
	props.ToWidgetProperties(detail.WidgetProperties(), "en")
	require.NoError(t, app.Nodes.SaveWidget(ctx, detail))

	mapper, err := app.Content.GetContentMapper(ctx, "Page")
	require.NoError(t, err)
	result, err := mapper.(content.SearchableMapper).SearchContent(ctx, site.ID, "en", "about us", 1, 10)
	require.NoError(t, err)
	require.Len(t, result.Items, 2)
	assert.Equal(t, "us", result.Items[1].Title)
}

func TestTextsAreWired(t *testing.T) {
	ctx := context.Background()
	app := openApp(t)

	site := cms.NewNode(cms.NodeTypeSite, nil)
	site.SetName("en", "Home")
	require.NoError(t, app.Nodes.SaveNode(ctx, site))
	instance := cms.NewWidget(site, text.WidgetName)
	instance.Region = "main"
	require.NoError(t, app.Texts.SetText(ctx, instance.WidgetProperties(), []string{"en"}, &text.Text{Body: "<p>Welcome</p>"}, text.Submission{}))
	require.NoError(t, app.Nodes.SaveWidget(ctx, instance))

	rec := httptest.NewRecorder()
	app.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cms/node/"+site.ID+"/"+instance.ID, nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<p>Welcome</p>")

	rec = httptest.NewRecorder()
	app.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cms/text/1/usage", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/admin/"+site.ID)

	history, err := app.EntryLog.History(ctx, text.EntryModel, text.EntryID(1, "en"))
	require.NoError(t, err)
	require.Len(t, history, 2)
}
