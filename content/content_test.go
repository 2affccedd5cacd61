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

package content

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/ormcms/cms"
	"github.com/tomoncle/ormcms/database"
	"github.com/tomoncle/ormcms/orm"
	"github.com/tomoncle/ormcms/types"
	"github.com/uptrace/bun"
)

type post struct {
	bun.BaseModel `bun:"table:posts,alias:post"`

	ID     int64  `bun:"id,pk,autoincrement"`
	Title  string `bun:"title"`
	Slug   string `bun:"slug"`
	Body   string `bun:"body"`
	Locale string `bun:"locale"`
}

type note struct {
	bun.BaseModel `bun:"table:notes,alias:note"`

	ID   int64  `bun:"id,pk,autoincrement"`
	Text string `bun:"text"`
}

type fixture struct {
	db      *bun.DB
	nodes   *cms.NodeModel
	manager *orm.Manager
	post    *orm.Model
	note    *orm.Model
	service *Service
	blog    *cms.Node
	news    *cms.Node
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	registry := database.NewModelRegistry()
	for _, model := range cms.Models() {
		registry.Register(model)
	}
	registry.Register(database.NewModelAdapter((*post)(nil), 10))
	registry.Register(database.NewModelAdapter((*note)(nil), 10))
	factory, err := database.OpenMemory(ctx, registry, cms.Migrations()...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = factory.Close() })
	db := factory.GetDB()

	manager := orm.NewManager(db)
	postModel, err := manager.Register(orm.ModelDefinition{
		Name:     "Post",
		Instance: (*post)(nil),
		Formats:  map[string]string{orm.FormatTitle: "{title}", orm.FormatTeaser: "{body|truncate:5}"},
	})
	require.NoError(t, err)
	noteModel, err := manager.Register(orm.ModelDefinition{Name: "Note", Instance: (*note)(nil)})
	require.NoError(t, err)

	_, err = db.NewInsert().Model(&[]*post{
		{Title: "Hello world", Slug: "hello", Body: "A long body", Locale: "en"},
		{Title: "Hallo wereld", Slug: "hallo", Body: "Een tekst", Locale: "nl"},
		{Title: "Second post", Slug: "second", Body: "More", Locale: "en"},
	}).Exec(ctx)
	require.NoError(t, err)
	_, err = db.NewInsert().Model(&note{Text: "remember"}).Exec(ctx)
	require.NoError(t, err)

	nodes := cms.NewNodeModel(db)
	site := cms.NewNode(cms.NodeTypeSite, nil)
	site.SetName("en", "Site")
	blog := cms.NewNode(cms.NodeTypePage, site)
	blog.SetName("en", "Blog")
	blog.SetRoute("en", "/blog/")
	news := cms.NewNode(cms.NodeTypePage, site)
	news.SetName("en", "News")
	news.SetRoute("en", "/news")
	for _, node := range []*cms.Node{site, blog, news} {
		require.NoError(t, nodes.SaveNode(ctx, node))
	}

	return &fixture{
		db: db, nodes: nodes, manager: manager, post: postModel, note: noteModel,
		service: NewService(manager, nodes, "http://cms"),
		blog:    blog, news: news,
	}
}

func (f *fixture) addDetailWidget(t *testing.T, node *cms.Node, primary bool) *cms.Widget {
	t.Helper()
	widget := cms.NewWidget(node, DetailWidgetName)
	props := cms.NewContentProperties()
	props.ModelName = "Post"
	props.IDField = "slug"
	props.PrimaryMapper = primary
	props.ToWidgetProperties(widget.WidgetProperties(), "en")
	require.NoError(t, f.nodes.SaveWidget(context.Background(), widget))
	return widget
}

func TestOrmMapper(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mapper := NewOrmMapper(f.post)

	_, err := mapper.GetContent(ctx, "site", "en", nil)
	assert.ErrorIs(t, err, ErrNoData)

	content, err := mapper.GetContent(ctx, "site", "en", int64(1))
	require.NoError(t, err)
	require.NotNil(t, content)
	assert.Equal(t, "Post", content.Type)
	assert.Equal(t, "Hello world", content.Title)
	assert.Equal(t, "A lon...", content.Teaser)
	assert.Empty(t, content.URL)

	entry := &post{ID: 3, Title: "In memory", Locale: "en"}
	content, err = mapper.GetContent(ctx, "site", "en", entry)
	require.NoError(t, err)
	assert.Same(t, entry, content.Data)
	assert.Equal(t, "In memory", content.Title)

	// an entry in another locale is fetched again by its id
	content, err = mapper.GetContent(ctx, "site", "nl", entry)
	require.NoError(t, err)
	assert.Equal(t, "Second post", content.Title)

	content, err = mapper.GetContent(ctx, "site", "en", int64(99))
	require.NoError(t, err)
	assert.Nil(t, content)
}

func TestServicePrefersPrimaryDetailWidget(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addDetailWidget(t, f.news, false)
	primary := f.addDetailWidget(t, f.blog, true)

	mapper, err := f.service.GetContentMapper(ctx, "post")
	require.NoError(t, err)
	generic := mapper.(*GenericOrmMapper)
	assert.Equal(t, primary.ID, generic.Widget().ID)

	url, err := mapper.GetURL(ctx, "site", "en", &post{ID: 1, Slug: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "http://cms/blog/hello", url)

	content, err := f.service.Facade().GetContent(ctx, "Post", "site", "en", "second")
	require.NoError(t, err)
	require.NotNil(t, content)
	assert.Equal(t, "Second post", content.Title)
	assert.Equal(t, "http://cms/blog/second", content.URL)

	options, err := f.service.MappersForModel(ctx, "Post", "en")
	require.NoError(t, err)
	assert.Equal(t, []string{"Blog", "News"}, []string{options[0].Label, options[1].Label})

	_, err = f.service.GetContentMapper(ctx, "Note")
	assert.ErrorIs(t, err, ErrMapperNotFound)
}

func TestServiceInvalidate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.GetContentMapper(ctx, "Post")
	assert.ErrorIs(t, err, ErrMapperNotFound)

	f.addDetailWidget(t, f.blog, false)
	_, err = f.service.GetContentMapper(ctx, "Post")
	assert.ErrorIs(t, err, ErrMapperNotFound)

	f.service.Invalidate()
	_, err = f.service.GetContentMapper(ctx, "Post")
	assert.NoError(t, err)
}

func TestGetContentForEntries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addDetailWidget(t, f.blog, false)

	entries, err := f.post.CreateQuery("en").AddOrderBy("{id} ASC").Find(ctx)
	require.NoError(t, err)
	result, err := f.service.GetContentForEntries(ctx, f.post, entries, "site", "en", "", Formats{Teaser: "{slug|upper}"})
	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.Equal(t, "Hello world", result[0].Title)
	assert.Equal(t, "HELLO", result[0].Teaser)
	assert.Equal(t, "http://cms/blog/hello", result[0].URL)

	notes, err := f.note.CreateQuery("en").Find(ctx)
	require.NoError(t, err)
	content, err := f.service.GetContentForEntry(ctx, f.note, notes[0], "site", "en", "", Formats{})
	require.NoError(t, err)
	assert.Equal(t, "Note #1", content.Title)
	assert.Empty(t, content.URL)
}

func TestSearchContent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addDetailWidget(t, f.blog, false)

	mapper, err := f.service.GetContentMapper(ctx, "Post")
	require.NoError(t, err)
	searchable := mapper.(SearchableMapper)

	result, err := searchable.SearchContent(ctx, "site", "en", "hello world", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Total)
	assert.Equal(t, "http://cms/blog/hello", result.Items[0].URL)

	result, err = searchable.SearchContent(ctx, "site", "en", "o", 2, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Total)
	require.Len(t, result.Items, 1)
	assert.Equal(t, "Second post", result.Items[0].Title)

	for _, wildcard := range []string{"%", "_", "Hello_world"} {
		result, err = searchable.SearchContent(ctx, "site", "en", wildcard, 1, 10)
		require.NoError(t, err)
		assert.Zero(t, result.Total, wildcard)
	}
	assert.Equal(t, "100!%!_a!!b", escapeLike("100%_a!b"))
}

type indexSearcher struct {
	tokens []string
}

func (s *indexSearcher) SearchContent(_ context.Context, site, locale, query string, tokens []string, page, pageItems int) (*types.Pagination[Content], error) {
	s.tokens = tokens
	result := types.NewDefaultPagination[Content](page, pageItems)
	result.Total = 1
	result.Items = []*Content{{Type: "Post", Title: site + "/" + locale + ": " + query}}
	return result, nil
}

func TestSearchContentDelegatesToSearchableModel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addDetailWidget(t, f.blog, false)

	searcher := &indexSearcher{}
	f.service.RegisterSearcher("Post", searcher)
	mapper, err := f.service.GetContentMapper(ctx, "Post")
	require.NoError(t, err)

	result, err := mapper.(SearchableMapper).SearchContent(ctx, "site", "en", " second  post ", 1, 10)
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.Equal(t, "site/en:  second  post ", result.Items[0].Title)
	assert.Equal(t, []string{"second", "post"}, searcher.tokens)
}

func TestFacadeRegisteredMapperWins(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addDetailWidget(t, f.blog, false)

	custom := NewOrmMapper(f.post)
	f.service.Facade().Register("Post", custom)
	mapper, err := f.service.Facade().GetContentMapper(ctx, "Post")
	require.NoError(t, err)
	assert.Same(t, custom, mapper)

	names, err := f.service.Facade().Types(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Post"}, names)
}
