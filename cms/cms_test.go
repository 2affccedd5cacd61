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

package cms

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/ormcms/database"
	"github.com/tomoncle/ormcms/orm"
	"github.com/tomoncle/ormcms/types"
	"github.com/uptrace/bun"
)

type event struct {
	bun.BaseModel `bun:"table:events,alias:event"`

	Code  string `bun:"code,pk"`
	Title string `bun:"title"`
	Place string `bun:"place"`
}

type store struct {
	db      *bun.DB
	nodes   *NodeModel
	manager *orm.Manager
	site    *Node
	news    *Node
	entry   *Node
	detail  *Node
}

// newStore builds a site with a news page holding an orm.detail widget and
// an entry node below it.
func newStore(t *testing.T) *store {
	t.Helper()
	ctx := context.Background()

	registry := database.NewModelRegistry()
	for _, model := range Models() {
		registry.Register(model)
	}
	registry.Register(database.NewModelAdapter((*event)(nil), 10))

	factory, err := database.OpenMemory(ctx, registry, Migrations()...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = factory.Close() })
	db := factory.GetDB()

	manager := orm.NewManager(db)
	_, err = manager.Register(orm.ModelDefinition{Name: "Event", Instance: (*event)(nil)})
	require.NoError(t, err)
	_, err = db.NewInsert().Model(&event{Code: "e1", Title: "Launch", Place: "Ghent"}).Exec(ctx)
	require.NoError(t, err)

	nodes := NewNodeModel(db)
	site := NewNode(NodeTypeSite, nil)
	site.SetName("en", "Site")
	site.SetRoute("en", "/")
	news := NewNode(NodeTypePage, site)
	news.SetName("en", "News")
	news.SetRoute("en", "/news")
	news.Weight = 1
	entry := NewNode(NodeTypeEntry, news)
	entry.SetName("en", "Launch")
	entry.SetRoute("en", "/news/launch")
	entry.EntryModel, entry.EntryID = "Event", "e1"
	detail := NewNode(NodeTypePage, entry)
	detail.SetName("en", "Details")
	detail.SetRoute("en", "/news/launch/details")
	for _, node := range []*Node{site, news, entry, detail} {
		require.NoError(t, nodes.SaveNode(ctx, node))
	}

	return &store{db: db, nodes: nodes, manager: manager, site: site, news: news, entry: entry, detail: detail}
}

func TestNodeLocalization(t *testing.T) {
	node := NewNode(NodeTypePage, nil)
	assert.True(t, node.IsRoot())
	assert.Equal(t, node.ID, node.RootNodeID())
	assert.Equal(t, "/nodes/"+node.ID, node.Route("en"))

	node.SetName("nl", "Nieuws")
	assert.Equal(t, "Nieuws", node.Name("en"))
	node.SetName("en", "News")
	assert.Equal(t, "News", node.Name("en"))

	child := NewNode(NodeTypePage, node)
	assert.Equal(t, node.ID, child.ParentID)
	assert.Equal(t, node.ID, child.RootNodeID())
	assert.False(t, child.IsRoot())
}

func TestWidgetProperties(t *testing.T) {
	p := NewWidgetProperties("w1", nil)
	p.Set("model", "Article")
	p.SetBool("search", true)
	p.SetBool("primary", false)
	p.SetInt("depth", 2)
	p.SetLocalized("nl", "title", "Nieuws")

	assert.Equal(t, "Article", p.Get("model"))
	assert.True(t, p.GetBool("search"))
	assert.False(t, p.Has("primary"))
	assert.Equal(t, 2, p.GetInt("depth", 0))
	assert.Equal(t, 7, p.GetInt("missing", 7))
	assert.Equal(t, "Nieuws", p.Get("l10n.nl.title"))
	assert.Equal(t, "Nieuws", p.GetLocalized("nl", "title"))
	assert.Equal(t, "", p.GetLocalized("en", "title"))

	p.Set("model", "")
	assert.False(t, p.Has("model"))

	p.SetAutoCache(true)
	p.SetCache(true)
	p.SetCacheTTL(60)
	assert.True(t, p.IsAutoCache())
	assert.True(t, p.IsCacheEnabled())
	assert.Equal(t, 60, p.CacheTTL())
}

func TestContentPropertiesRoundTrip(t *testing.T) {
	c := NewContentProperties()
	c.ModelName = "Article"
	c.ModelFields = []string{"title", "category.name"}
	c.Condition = "{locale} = 'en'"
	c.PaginationEnabled = true
	c.PaginationRows = 10
	c.ShowPagination = true
	c.ShowMore = true
	c.MoreLabel = "More"
	c.MoreNode = "n1"
	c.Parameters = ParseParameters("category,year")
	c.NoParametersAction = NoParametersRender
	c.Filters = []FilterDefinition{{Name: "cat", Type: "single", Field: "category"}}
	c.TitleFormat = "{title}"

	p := NewWidgetProperties("w1", nil)
	c.ToWidgetProperties(p, "en")
	assert.Equal(t, "cat:single:category", p.Get(PropertyFilters))
	assert.Equal(t, "category,year", p.Get(PropertyParameters))
	assert.Equal(t, "render", p.Get(PropertyParametersNone))
	assert.Equal(t, "More", p.Get("l10n.en.more.label"))

	read := FromWidgetProperties(p, "en")
	assert.Equal(t, c.ModelName, read.ModelName)
	assert.Equal(t, c.ModelFields, read.ModelFields)
	assert.Equal(t, c.Condition, read.Condition)
	assert.Equal(t, 10, read.PaginationRows)
	assert.True(t, read.ShowMore)
	assert.Equal(t, "n1", read.MoreNode)
	assert.Equal(t, 4, read.Parameters.Expected())
	assert.Equal(t, NoParametersRender, read.NoParametersAction)
	assert.Equal(t, c.Filters, read.Filters)
	assert.Equal(t, "{title}", read.TitleFormat)
	assert.Equal(t, "", FromWidgetProperties(p, "nl").TitleFormat)

	// disabling pagination clears the pagination and more keys
	read.PaginationEnabled = false
	read.ToWidgetProperties(p, "en")
	for _, key := range []string{PropertyPaginationRows, PropertyPaginationShow, "l10n.en.more.show", "l10n.en.more.label"} {
		assert.False(t, p.Has(key), key)
	}
	assert.False(t, p.Has(PropertyPaginationEnable))
}

func TestParametersAndFilters(t *testing.T) {
	assert.Equal(t, Parameters{Count: 2}, ParseParameters("2"))
	assert.Equal(t, 2, ParseParameters("2").Expected())
	assert.False(t, ParseParameters("").IsSet())
	assert.True(t, ParseParameters("a, b").IsNamed())

	_, err := ParseFilters("broken")
	assert.Error(t, err)
	filters, err := ParseFilters("a:single:x, b:date:y")
	require.NoError(t, err)
	assert.Len(t, filters, 2)
	assert.Equal(t, "a:single:x,b:date:y", FormatFilters(filters))
}

func TestNoParametersAction(t *testing.T) {
	assert.Equal(t, NoParameters404, ParseNoParametersAction("bogus"))
	assert.Equal(t, NoParametersIgnore, ParseNoParametersAction("ignore"))
	assert.Equal(t, []string{"404", "ignore", "render"}, types.EnumNames(NoParametersActions()...))
	assert.False(t, NoParametersAction(9).IsValid())
}

func TestNodeModel(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	node, err := s.nodes.GetNode(ctx, s.news.ID)
	require.NoError(t, err)
	assert.Equal(t, "News", node.Name("en"))
	assert.False(t, node.CreatedAt.IsZero())

	_, err = s.nodes.GetNode(ctx, "missing")
	assert.ErrorIs(t, err, ErrNodeNotFound)

	all, err := s.nodes.GetNodes(ctx, s.site.ID)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	widget := NewWidget(s.news, "orm.detail")
	widget.WidgetProperties().Set(PropertyModelName, "Event")
	require.NoError(t, s.nodes.SaveWidget(ctx, widget))
	widget.WidgetProperties().SetBool(PropertyPrimary, true)
	require.NoError(t, s.nodes.SaveWidget(ctx, widget))

	refs, err := s.nodes.NodesForWidget(ctx, "orm.detail")
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, s.news.ID, refs[0].Node.ID)
	assert.True(t, refs[0].Widget.WidgetProperties().GetBool(PropertyPrimary))

	options, err := s.nodes.NodeOptions(ctx, s.site.ID, "en")
	require.NoError(t, err)
	assert.Equal(t, "/Site/News/Launch/Details", options.Map()[s.detail.ID])
	assert.Equal(t, "/Site", options[0].Label)

	found, err := s.nodes.EntryNode(ctx, "Event", "e1")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, s.entry.ID, found.ID)

	require.NoError(t, s.nodes.DeleteNode(ctx, s.news.ID))
	refs, err = s.nodes.NodesForWidget(ctx, "orm.detail")
	require.NoError(t, err)
	assert.Empty(t, refs)
}

func TestEntryVariableParser(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	parser := NewEntryVariableParser(s.nodes, s.manager)
	tc := TextContext{Node: s.detail, Locale: "en", BaseURL: "http://cms"}

	value, ok, err := parser.ParseVariable(ctx, tc, "entry.url")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "http://cms/news/launch", value)

	value, ok, err = parser.ParseVariable(ctx, tc, "node.var.place")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Ghent", value)

	value, ok, err = parser.ParseVariable(ctx, TextContext{Node: s.site, Locale: "en"}, "entry.event.e1.link")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `<a href="/news/launch">Launch</a>`, value)

	_, ok, err = parser.ParseVariable(ctx, TextContext{Node: s.news, Locale: "en"}, "entry.name")
	require.NoError(t, err)
	assert.False(t, ok)

	text, err := parser.Parse(ctx, tc, "Read [[entry.name]] at [[entry.url]] [[unknown.var]]")
	require.NoError(t, err)
	assert.Equal(t, "Read Launch at http://cms/news/launch [[unknown.var]]", text)
}

func TestMapTranslator(t *testing.T) {
	tr := MapTranslator{"label.rows": "Rows per %what%"}
	assert.Equal(t, "Rows per page", tr.Translate("label.rows", map[string]string{"what": "page"}))
	assert.Equal(t, "[label.missing]", tr.Translate("label.missing", nil))
}
