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

package widget

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/ormcms/cms"
	"github.com/tomoncle/ormcms/content"
	"github.com/tomoncle/ormcms/database"
	"github.com/tomoncle/ormcms/filter"
	"github.com/tomoncle/ormcms/orm"
	"github.com/tomoncle/ormcms/processor"
	"github.com/tomoncle/ormcms/text"
	"github.com/tomoncle/ormcms/view"
	"github.com/uptrace/bun"
)

type category struct {
	bun.BaseModel `bun:"table:categories,alias:category"`

	ID   int64  `bun:"id,pk,autoincrement"`
	Name string `bun:"name"`
}

type article struct {
	bun.BaseModel `bun:"table:articles,alias:article"`

	ID         int64     `bun:"id,pk,autoincrement"`
	Title      string    `bun:"title"`
	Slug       string    `bun:"slug"`
	Body       string    `bun:"body"`
	Locale     string    `bun:"locale"`
	CategoryID int64     `bun:"category_id"`
	Category   *category `bun:"rel:belongs-to,join:category_id=id"`
}

type message struct {
	bun.BaseModel `bun:"table:messages,alias:message"`

	ID     int64  `bun:"id,pk,autoincrement"`
	Name   string `bun:"name"`
	Email  string `bun:"email"`
	Body   string `bun:"body"`
	Rating int    `bun:"rating"`
}

type fixture struct {
	services *Services
	site     *cms.Node
	news     *cms.Node
	archive  *cms.Node
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	registry := database.NewModelRegistry()
	for _, model := range cms.Models() {
		registry.Register(model)
	}
	registry.Register(orm.EntryLogModel())
	registry.Register(database.NewModelAdapter((*category)(nil), 0))
	registry.Register(database.NewModelAdapter((*article)(nil), 10))
	registry.Register(database.NewModelAdapter((*message)(nil), 10))
	for _, model := range text.Models() {
		registry.Register(model)
	}
	factory, err := database.OpenMemory(ctx, registry, append(cms.Migrations(), text.Migrations()...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = factory.Close() })
	db := factory.GetDB()

	manager := orm.NewManager(db)
	_, err = manager.Register(orm.ModelDefinition{Name: "Category", Instance: (*category)(nil), Formats: map[string]string{orm.FormatTitle: "{name}"}})
	require.NoError(t, err)
	_, err = manager.Register(orm.ModelDefinition{
		Name:     "Article",
		Instance: (*article)(nil),
		Formats:  map[string]string{orm.FormatTitle: "{title}", orm.FormatTeaser: "{body}"},
	})
	require.NoError(t, err)
	_, err = manager.Register(orm.ModelDefinition{Name: "Message", Instance: (*message)(nil)})
	require.NoError(t, err)

	_, err = db.NewInsert().Model(&[]*category{{Name: "Tech"}, {Name: "Life"}}).Exec(ctx)
	require.NoError(t, err)
	_, err = db.NewInsert().Model(&[]*article{
		{Title: "First", Slug: "first", Body: "one", Locale: "en", CategoryID: 1},
		{Title: "Second", Slug: "second", Body: "two", Locale: "en", CategoryID: 2},
		{Title: "Third", Slug: "third", Body: "three", Locale: "en", CategoryID: 1},
		{Title: "Alleen", Slug: "alleen", Body: "vier", Locale: "nl", CategoryID: 2},
	}).Exec(ctx)
	require.NoError(t, err)

	nodes := cms.NewNodeModel(db)
	site := cms.NewNode(cms.NodeTypeSite, nil)
	site.SetName("en", "Site")
	news := cms.NewNode(cms.NodeTypePage, site)
	news.SetName("en", "News")
	news.SetRoute("en", "/news")
	archive := cms.NewNode(cms.NodeTypePage, site)
	archive.SetName("en", "Archive")
	archive.SetRoute("en", "/archive")
	for _, node := range []*cms.Node{site, news, archive} {
		require.NoError(t, nodes.SaveNode(ctx, node))
	}

	entryLog := orm.NewEntryLogger(db)
	return &fixture{
		services: &Services{
			Manager:    manager,
			Nodes:      nodes,
			Content:    content.NewService(manager, nodes, ""),
			Filters:    filter.NewRegistry(),
			Processors: processor.NewRegistry(),
			Views:      view.NewViews(),
			EntryLog:   entryLog,
			Texts:      text.NewIO(text.NewStore(db, entryLog), nodes),
			Translator: cms.MapTranslator{"label.model": "Model", "label.entry": "Entry"},
			Locales:    []string{"en", "nl"},
		},
		site: site, news: news, archive: archive,
	}
}

func (f *fixture) context(t *testing.T, name, target string, configure func(p *cms.ContentProperties)) *Context {
	t.Helper()
	widget := cms.NewWidget(f.news, name)
	props := cms.NewContentProperties()
	props.ModelName = "Article"
	if configure != nil {
		configure(props)
	}
	props.ToWidgetProperties(widget.WidgetProperties(), "en")
	return NewContext(f.news, widget, "en", httptest.NewRequest(http.MethodGet, target, nil))
}

func titles(v *view.TemplateView) []string {
	var result []string
	for _, c := range v.Result() {
		result = append(result, c.Title)
	}
	return result
}

func TestOverviewWithoutModel(t *testing.T) {
	f := newFixture(t)
	wc := f.context(t, OverviewName, "/news", func(p *cms.ContentProperties) { p.ModelName = "" })
	wc.Properties.SetAutoCache(true)

	require.NoError(t, NewOverviewWidget(f.services).Index(context.Background(), wc))
	assert.Nil(t, wc.Response.View)
	assert.True(t, wc.Properties.IsCacheEnabled())
	assert.Zero(t, wc.Properties.CacheTTL())
}

func TestOverviewList(t *testing.T) {
	f := newFixture(t)
	wc := f.context(t, OverviewName, "/news", func(p *cms.ContentProperties) { p.Order = "{title} ASC" })
	wc.Properties.SetAutoCache(true)

	require.NoError(t, NewOverviewWidget(f.services).Index(context.Background(), wc))
	require.NotNil(t, wc.Response.View)
	assert.Equal(t, []string{"First", "Second", "Third"}, titles(wc.Response.View))
	assert.Equal(t, "cms/widget/orm/list", wc.Response.View.Resource)
	assert.Equal(t, "one", wc.Response.View.Result()[0].Teaser)
	assert.Equal(t, autoCacheTTL, wc.Properties.CacheTTL())
}

func TestOverviewPagination(t *testing.T) {
	f := newFixture(t)
	configure := func(p *cms.ContentProperties) {
		p.Order = "{id} ASC"
		p.PaginationEnabled = true
		p.PaginationRows = 2
		p.ShowPagination = true
	}

	wc := f.context(t, OverviewName, "/news?page=2&q=x", configure)
	require.NoError(t, NewOverviewWidget(f.services).Index(context.Background(), wc))
	require.NotNil(t, wc.Response.View)
	assert.Equal(t, []string{"Third"}, titles(wc.Response.View))

	pagination := wc.Response.View.Get("pagination").(*view.Pagination)
	assert.Equal(t, 2, pagination.Pages)
	assert.Equal(t, 2, pagination.Page)
	assert.Equal(t, "/news?page=%page%&q=x", pagination.Href)

	wc = f.context(t, OverviewName, "/news?page=9", configure)
	require.NoError(t, NewOverviewWidget(f.services).Index(context.Background(), wc))
	require.NotNil(t, wc.Response.View)
	assert.Equal(t, []string{"Third"}, titles(wc.Response.View))
	assert.Equal(t, 2, wc.Response.View.Get("pagination").(*view.Pagination).Page)

	wc = f.context(t, OverviewName, "/news?page=abc", func(p *cms.ContentProperties) {
		configure(p)
		p.PaginationOffset = 1
	})
	require.NoError(t, NewOverviewWidget(f.services).Index(context.Background(), wc))
	assert.Equal(t, []string{"Second", "Third"}, titles(wc.Response.View))
	assert.Equal(t, 1, wc.Response.View.Get("pagination").(*view.Pagination).Pages)
}

func TestOverviewAjaxPagination(t *testing.T) {
	f := newFixture(t)
	wc := f.context(t, OverviewName, "/news", func(p *cms.ContentProperties) {
		p.PaginationEnabled = true
		p.PaginationRows = 2
		p.ShowPagination = true
		p.UseAjaxForPagination = true
	})
	wc.Request.Header.Set("X-Requested-With", "XMLHttpRequest")

	require.NoError(t, NewOverviewWidget(f.services).Index(context.Background(), wc))
	assert.True(t, wc.Response.ContentOnly)
}

func TestOverviewParameters(t *testing.T) {
	f := newFixture(t)
	w := NewOverviewWidget(f.services)
	ctx := context.Background()

	numbered := func(p *cms.ContentProperties) {
		p.Parameters = cms.Parameters{Count: 1}
		p.Condition = "{slug} = %1%"
	}
	wc := f.context(t, OverviewName, "/news/second", numbered)
	require.NoError(t, w.Index(ctx, wc, "second"))
	assert.Equal(t, []string{"Second"}, titles(wc.Response.View))
	assert.Equal(t, []string{"second"}, wc.Response.View.Get("arguments"))
	assert.Len(t, w.Routes(wc), 1)

	wc = f.context(t, OverviewName, "/news", numbered)
	require.NoError(t, w.Index(ctx, wc))
	assert.Equal(t, http.StatusNotFound, wc.Response.StatusCode)

	named := func(p *cms.ContentProperties) {
		p.Parameters = cms.Parameters{Names: []string{"slug"}}
		p.Condition = "{slug} = %slug%"
	}
	wc = f.context(t, OverviewName, "/news/slug/first", named)
	require.NoError(t, w.Index(ctx, wc, "slug", "first"))
	assert.Equal(t, []string{"First"}, titles(wc.Response.View))

	wc = f.context(t, OverviewName, "/news/title/first", named)
	require.NoError(t, w.Index(ctx, wc, "title", "first"))
	assert.Equal(t, http.StatusNotFound, wc.Response.StatusCode)
}

func TestOverviewNoParametersAction(t *testing.T) {
	f := newFixture(t)
	w := NewOverviewWidget(f.services)
	ctx := context.Background()

	wc := f.context(t, OverviewName, "/news/x", nil)
	require.NoError(t, w.Index(ctx, wc, "x"))
	assert.Equal(t, http.StatusNotFound, wc.Response.StatusCode)
	assert.Empty(t, w.Routes(wc))

	wc = f.context(t, OverviewName, "/news/x", func(p *cms.ContentProperties) { p.NoParametersAction = cms.NoParametersIgnore })
	require.NoError(t, w.Index(ctx, wc, "x"))
	assert.Zero(t, wc.Response.StatusCode)
	assert.Nil(t, wc.Response.View)

	wc = f.context(t, OverviewName, "/news/x", func(p *cms.ContentProperties) { p.NoParametersAction = cms.NoParametersRender })
	require.NoError(t, w.Index(ctx, wc, "x"))
	assert.Zero(t, wc.Response.StatusCode)
	assert.Len(t, wc.Response.View.Result(), 3)
}

func TestOverviewContextVariables(t *testing.T) {
	f := newFixture(t)
	w := NewOverviewWidget(f.services)
	ctx := context.Background()
	condition := func(p *cms.ContentProperties) { p.Condition = "{category} = %context.current.category_id%" }

	wc := f.context(t, OverviewName, "/news", condition)
	wc.Page.Set("current", &article{CategoryID: 2})
	require.NoError(t, w.Index(ctx, wc))
	assert.Equal(t, []string{"Second"}, titles(wc.Response.View))

	wc = f.context(t, OverviewName, "/news", condition)
	err := w.Index(ctx, wc)
	assert.ErrorIs(t, err, ErrContextVariable)

	vars, err := w.ParseContextVariables(wc, "{title} = %1%", map[string]interface{}{"1": "x"})
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"1": "x"}, vars)
}

func TestOverviewFilters(t *testing.T) {
	f := newFixture(t)
	wc := f.context(t, OverviewName, "/news?cat=1", func(p *cms.ContentProperties) {
		p.Order = "{id} ASC"
		p.Filters = []cms.FilterDefinition{{Name: "cat", Type: filter.TypeSingle, Field: "category"}}
	})

	require.NoError(t, NewOverviewWidget(f.services).Index(context.Background(), wc))
	assert.Equal(t, []string{"First", "Third"}, titles(wc.Response.View))

	states := wc.Response.View.Get("filters").(filter.States)
	require.Len(t, states, 1)
	assert.Equal(t, []string{"1"}, states[0].Value)
	assert.NotEmpty(t, states[0].Options)
}

func TestOverviewIgnoresInvalidPeriod(t *testing.T) {
	f := newFixture(t)
	wc := f.context(t, OverviewName, "/news?when=abc", func(p *cms.ContentProperties) {
		p.Order = "{id} ASC"
		p.Filters = []cms.FilterDefinition{{Name: "when", Type: filter.TypeDate, Field: "title"}}
	})

	require.NoError(t, NewOverviewWidget(f.services).Index(context.Background(), wc))
	require.NotNil(t, wc.Response.View)
	assert.Equal(t, []string{"First", "Second", "Third"}, titles(wc.Response.View))
	assert.False(t, wc.Response.IsHandled())
}

func TestOverviewMoreAndEmpty(t *testing.T) {
	f := newFixture(t)
	w := NewOverviewWidget(f.services)
	ctx := context.Background()

	wc := f.context(t, OverviewName, "/news", func(p *cms.ContentProperties) {
		p.PaginationEnabled = true
		p.PaginationRows = 1
		p.ShowMore = true
		p.MoreNode = f.archive.ID
		p.MoreLabel = "All"
	})
	require.NoError(t, w.Index(ctx, wc))
	assert.Equal(t, "/archive", wc.Response.View.Get("moreUrl"))
	assert.Equal(t, "All", wc.Response.View.Get("moreLabel"))
	assert.Len(t, wc.Response.View.Result(), 1)

	wc = f.context(t, OverviewName, "/news", func(p *cms.ContentProperties) { p.Condition = "{slug} = 'none'" })
	wc.Properties.SetAutoCache(true)
	require.NoError(t, w.Index(ctx, wc))
	assert.Nil(t, wc.Response.View)
	assert.True(t, wc.Properties.IsCacheEnabled())
	assert.Equal(t, autoCacheTTL, wc.Properties.CacheTTL())

	wc = f.context(t, OverviewName, "/news", func(p *cms.ContentProperties) {
		p.Condition = "{slug} = 'none'"
		p.EmptyResultView = true
		p.EmptyResultMessage = "Nothing yet"
	})
	require.NoError(t, w.Index(ctx, wc))
	require.NotNil(t, wc.Response.View)
	assert.Equal(t, "Nothing yet", wc.Response.View.Get("emptyResultMessage"))
}

func TestPaginationHref(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/list?a=1&page=3&b=2", nil)
	assert.Equal(t, "/list?page=%page%&a=1&b=2", paginationHref(r))
	r = httptest.NewRequest(http.MethodGet, "/list", nil)
	assert.Equal(t, "/list?page=%page%", paginationHref(r))
}

func TestOverviewPreviewAndSave(t *testing.T) {
	f := newFixture(t)
	w := NewOverviewWidget(f.services)
	wc := f.context(t, OverviewName, "/news", func(p *cms.ContentProperties) { p.Template = view.ViewBlock })

	assert.Contains(t, w.PropertiesPreview(wc), "Model: Article<br />")
	assert.Equal(t, []string{"cms/widget/orm/block"}, w.Templates(wc))

	props := cms.FromWidgetProperties(wc.Properties, "en")
	props.ModelName = "Category"
	w.SaveProperties(wc, props)
	assert.Equal(t, "Category", wc.Properties.Get(cms.PropertyModelName))
}

func TestDetail(t *testing.T) {
	f := newFixture(t)
	w := NewDetailWidget(f.services)
	ctx := context.Background()
	slug := func(p *cms.ContentProperties) {
		p.IDField = "slug"
		p.Title = "1"
		p.MetaOg = true
	}

	wc := f.context(t, DetailName, "/news/second", slug)
	wc.Properties.SetBool("block", true)
	require.NoError(t, w.Index(ctx, wc, "second"))
	require.NotNil(t, wc.Response.View)
	assert.Equal(t, "cms/widget/orm/detail", wc.Response.View.Resource)

	c := wc.Page.Get(ContextContent).(*content.Content)
	assert.Equal(t, "Second", c.Title)
	assert.Equal(t, "Second", wc.Page.Title())
	assert.Equal(t, []Breadcrumb{{URL: "/news/second", Label: "Second"}}, wc.Page.Breadcrumbs())
	assert.Equal(t, "Second", f.news.Meta()["og:title"])
	assert.Equal(t, "two", f.news.Meta()["og:description"])
	assert.True(t, wc.IsBlock)
	assert.False(t, wc.IsRegion)

	wc = f.context(t, DetailName, "/news/missing", slug)
	require.NoError(t, w.Index(ctx, wc, "missing"))
	assert.Equal(t, http.StatusNotFound, wc.Response.StatusCode)

	wc = f.context(t, DetailName, "/news", slug)
	require.NoError(t, w.Index(ctx, wc, ""))
	assert.Equal(t, http.StatusNotFound, wc.Response.StatusCode)

	wc = f.context(t, DetailName, "/news", func(p *cms.ContentProperties) {
		slug(p)
		p.NoParametersAction = cms.NoParametersIgnore
	})
	require.NoError(t, w.Index(ctx, wc, ""))
	assert.Zero(t, wc.Response.StatusCode)
}

func TestDetailUnlocalized(t *testing.T) {
	f := newFixture(t)
	w := NewDetailWidget(f.services)
	ctx := context.Background()

	wc := f.context(t, DetailName, "/news/alleen", func(p *cms.ContentProperties) { p.IDField = "slug" })
	require.NoError(t, w.Index(ctx, wc, "alleen"))
	assert.Equal(t, http.StatusNotFound, wc.Response.StatusCode)

	wc = f.context(t, DetailName, "/news/alleen", func(p *cms.ContentProperties) {
		p.IDField = "slug"
		p.IncludeUnlocalized = true
	})
	require.NoError(t, w.Index(ctx, wc, "alleen"))
	assert.Zero(t, wc.Response.StatusCode)
	assert.Equal(t, "Alleen", wc.Page.Get(ContextContent).(*content.Content).Title)
}

func TestDetailRedirectsOutdatedSlug(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.services.EntryLog.LogChange(ctx, "Article", 1, "slug", "old-first", "first"))

	wc := f.context(t, DetailName, "/news/old-first", func(p *cms.ContentProperties) { p.IDField = "slug" })
	require.NoError(t, NewDetailWidget(f.services).Index(ctx, wc, "old-first"))
	assert.Equal(t, http.StatusMovedPermanently, wc.Response.StatusCode)
	assert.Equal(t, "/news/first", wc.Response.RedirectURL)
	assert.True(t, wc.Response.IsHandled())
}

func TestDetailRoutes(t *testing.T) {
	f := newFixture(t)
	w := NewDetailWidget(f.services)

	routes := w.Routes(f.context(t, DetailName, "/news", nil))
	require.Len(t, routes, 1)
	assert.Equal(t, "/%id%", routes[0].Path)
	assert.Empty(t, w.Routes(f.context(t, DetailName, "/news", func(p *cms.ContentProperties) { p.ModelName = "" })))
}

func TestEntry(t *testing.T) {
	f := newFixture(t)
	w := NewEntryWidget(f.services)
	ctx := context.Background()

	wc := f.context(t, EntryName, "/news", func(p *cms.ContentProperties) {
		p.EntryID = "3"
		p.IDField = "slug"
		p.Breadcrumb = true
	})
	require.NoError(t, w.Index(ctx, wc))
	c := wc.Page.Get(ContextKey(wc.ID)).(*content.Content)
	assert.Equal(t, "Third", c.Title)
	assert.Equal(t, []Breadcrumb{{URL: "/news/3", Label: "Third"}}, wc.Page.Breadcrumbs())
	assert.Empty(t, wc.Page.Title())
	assert.Empty(t, w.Routes(wc))

	preview := w.PropertiesPreview(wc)
	assert.Contains(t, preview, "<strong>Model</strong>: Article<br /><strong>Entry</strong>: #3<br />")

	wc = f.context(t, EntryName, "/news", nil)
	require.NoError(t, w.Index(ctx, wc))
	assert.Nil(t, wc.Response.View)
}

func TestRegistryRender(t *testing.T) {
	f := newFixture(t)
	registry := NewRegistry(f.services)
	assert.Equal(t, []string{ContactName, DetailName, EntryName, OverviewName, text.WidgetName}, registry.Names())

	wc := f.context(t, DetailName, "/news/first", func(p *cms.ContentProperties) { p.IDField = "slug" })
	require.NoError(t, registry.Render(context.Background(), DetailName, wc, []string{"first"}))
	assert.Equal(t, "First", wc.Response.View.Get("content").(*content.Content).Title)

	err := registry.Render(context.Background(), "orm.unknown", wc, nil)
	assert.ErrorIs(t, err, ErrUnknownWidget)

	wc = f.context(t, EntryName, "/news", func(p *cms.ContentProperties) { p.EntryID = strconv.Itoa(2) })
	require.NoError(t, registry.Render(context.Background(), EntryName, wc, nil))
	assert.Equal(t, "Second", wc.Response.View.Get("content").(*content.Content).Title)
}
