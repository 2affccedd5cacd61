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

package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/ormcms/cms"
	"github.com/tomoncle/ormcms/content"
	"github.com/tomoncle/ormcms/database"
	"github.com/tomoncle/ormcms/filter"
	"github.com/tomoncle/ormcms/form"
	"github.com/tomoncle/ormcms/orm"
	"github.com/tomoncle/ormcms/processor"
	"github.com/tomoncle/ormcms/text"
	"github.com/tomoncle/ormcms/view"
	"github.com/tomoncle/ormcms/widget"
	"github.com/uptrace/bun"
)

type article struct {
	bun.BaseModel `bun:"table:articles,alias:article"`

	ID     int64  `bun:"id,pk,autoincrement"`
	Title  string `bun:"title"`
	Slug   string `bun:"slug,unique"`
	Body   string `bun:"body"`
	Locale string `bun:"locale"`
}

type fixture struct {
	handler  *Handler
	services *widget.Services
	site     *cms.Node
	news     *cms.Node
	overview *cms.Widget
	detail   *cms.Widget
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	registry := database.NewModelRegistry()
	for _, model := range cms.Models() {
		registry.Register(model)
	}
	registry.Register(orm.EntryLogModel())
	registry.Register(database.NewModelAdapter((*article)(nil), 0))
	for _, model := range text.Models() {
		registry.Register(model)
	}
	factory, err := database.OpenMemory(ctx, registry, append(cms.Migrations(), text.Migrations()...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = factory.Close() })
	db := factory.GetDB()

	manager := orm.NewManager(db)
	_, err = manager.Register(orm.ModelDefinition{
		Name:     "Article",
		Instance: (*article)(nil),
		Formats:  map[string]string{orm.FormatTitle: "{title}", orm.FormatTeaser: "{body}"},
		Options:  map[string]string{form.OptionEntryNode: "true"},
	})
	require.NoError(t, err)
	_, err = db.NewInsert().Model(&[]*article{
		{Title: "First", Slug: "first", Body: "one", Locale: "en"},
		{Title: "Second", Slug: "second", Body: "two", Locale: "en"},
		{Title: "Derde", Slug: "derde", Body: "drie", Locale: "nl"},
	}).Exec(ctx)
	require.NoError(t, err)

	nodes := cms.NewNodeModel(db)
	site := cms.NewNode(cms.NodeTypeSite, nil)
	site.SetName("en", "Site")
	news := cms.NewNode(cms.NodeTypePage, site)
	news.SetName("en", "News")
	news.SetRoute("en", "/news")
	require.NoError(t, nodes.SaveNode(ctx, site))
	require.NoError(t, nodes.SaveNode(ctx, news))

	overview := cms.NewWidget(news, widget.OverviewName)
	props := cms.NewContentProperties()
	props.ModelName = "Article"
	props.Order = "{title} ASC"
	props.ToWidgetProperties(overview.WidgetProperties(), "en")
	require.NoError(t, nodes.SaveWidget(ctx, overview))

	detail := cms.NewWidget(news, widget.DetailName)
	props = cms.NewContentProperties()
	props.ModelName = "Article"
	props.MetaOg = true
	props.ToWidgetProperties(detail.WidgetProperties(), "en")
	require.NoError(t, nodes.SaveWidget(ctx, detail))

	entryLog := orm.NewEntryLogger(db)
	services := &widget.Services{
		Manager:    manager,
		Nodes:      nodes,
		Content:    content.NewService(manager, nodes, ""),
		Filters:    filter.NewRegistry(),
		Processors: processor.NewRegistry(),
		Views:      view.NewViews(),
		EntryLog:   entryLog,
		Texts:      text.NewIO(text.NewStore(db, entryLog), nodes),
		Translator: cms.MapTranslator{},
		Locales:    []string{"en", "nl"},
	}
	h := New(Options{
		Services:      services,
		Widgets:       widget.NewRegistry(services),
		Renderer:      view.NewRenderer(),
		Health:        factory,
		DefaultLocale: "en",
		Advanced:      true,
		Metrics:       true,
		Layouts:       []string{"default"},
		Locales:       []string{"en", "nl"},
		TextUsage:     text.NewUsageFinder(nodes, "/backend/%node%/%region%"),
	})
	return &fixture{handler: h, services: services, site: site, news: news, overview: overview, detail: detail}
}

func (f *fixture) do(t *testing.T, method, target string, body url.Values) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(body.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var status database.HealthStatus
	decode(t, rec, &status)
	assert.True(t, status.Healthy)
}

func TestModelFields(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/cms/orm/fields/select/Article", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var result struct {
		Fields []struct{ Value, Label string } `json:"fields"`
	}
	decode(t, rec, &result)
	var values []string
	for _, field := range result.Fields {
		values = append(values, field.Value)
	}
	assert.Contains(t, values, "title")
	assert.Contains(t, values, "slug")

	rec = f.do(t, http.MethodGet, "/cms/orm/fields/order/Article?depth=0", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &result)
	require.NotEmpty(t, result.Fields)
	assert.Equal(t, orm.EmptyOption, result.Fields[0].Label)

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/cms/orm/fields/select/Missing", nil).Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/cms/orm/fields/bogus/Article", nil).Code)
}

func TestEntryContent(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/cms/orm/content/Article/1?locale=en", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var c map[string]string
	decode(t, rec, &c)
	assert.Equal(t, "First", c["title"])
	assert.Equal(t, "one", c["teaser"])
	assert.Equal(t, "Article", c["type"])
	assert.Contains(t, c, "url")

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/cms/orm/content/Article/99", nil).Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/cms/orm/content/Missing/1", nil).Code)
}

func TestRenderOverview(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/cms/node/"+f.news.ID+"/"+f.overview.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "<title>News</title>")
	assert.Contains(t, body, "First")
	assert.Contains(t, body, "Second")
	assert.NotContains(t, body, "Derde")
	assert.Less(t, strings.Index(body, "First"), strings.Index(body, "Second"))

	rec = f.do(t, http.MethodGet, "/cms/node/"+f.news.ID+"/"+f.overview.ID+"/unexpected", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = f.do(t, http.MethodGet, "/cms/node/other/"+f.overview.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = f.do(t, http.MethodGet, "/cms/node/"+f.news.ID+"/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRenderDetail(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/cms/node/"+f.news.ID+"/"+f.detail.ID+"/2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "<h1>Second</h1>")
	assert.Contains(t, body, `<meta property="og:title" content="Second">`)
	assert.Contains(t, body, `<a href="/news/2">Second</a>`)

	rec = f.do(t, http.MethodGet, "/cms/node/"+f.news.ID+"/"+f.detail.ID+"/3", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = f.do(t, http.MethodGet, "/cms/node/"+f.news.ID+"/"+f.detail.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRenderUnknownWidgetType(t *testing.T) {
	f := newFixture(t)
	instance := cms.NewWidget(f.news, "gallery")
	require.NoError(t, f.services.Nodes.SaveWidget(context.Background(), instance))

	rec := f.do(t, http.MethodGet, "/cms/node/"+f.news.ID+"/"+instance.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWidgetProperties(t *testing.T) {
	f := newFixture(t)
	target := "/cms/widget/" + f.overview.ID + "/properties"

	rec := f.do(t, http.MethodGet, target, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got propertiesResponse
	decode(t, rec, &got)
	assert.Equal(t, widget.OverviewName, got.Widget)
	assert.Equal(t, "Article", got.Data["model"])
	assert.NotEmpty(t, got.Rows)
	assert.Contains(t, got.Preview, "Article")

	rec = f.do(t, http.MethodPost, target, url.Values{
		"model":             {"Article"},
		"pagination-enable": {"1"},
		"pagination-rows":   {"99"},
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	got = propertiesResponse{}
	decode(t, rec, &got)
	assert.Contains(t, got.Errors, "pagination-rows")

	rec = f.do(t, http.MethodPost, target, url.Values{
		"model":             {"Article"},
		"order":             {"{title} DESC"},
		"pagination-enable": {"1"},
		"pagination-rows":   {"1"},
		"pagination-show":   {"1"},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	stored, err := f.services.Nodes.GetWidget(context.Background(), f.overview.ID)
	require.NoError(t, err)
	props := cms.FromWidgetProperties(stored.WidgetProperties(), "en")
	assert.Equal(t, "{title} DESC", props.Order)
	assert.Equal(t, 1, props.PaginationRows)

	rec = f.do(t, http.MethodGet, "/cms/node/"+f.news.ID+"/"+f.overview.ID+"?page=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "First")
	assert.NotContains(t, rec.Body.String(), "Second</")
}

func TestMetrics(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodGet, "/healthz", nil)

	rec := f.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ormcms_http_requests_total")
}
